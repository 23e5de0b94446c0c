// Package repository holds the durable store of reports. Every driver
// assigns report ids itself and updates status at field granularity, so
// concurrent status writes to the same report are last-write-wins.
package repository

import (
	"context"
	"errors"

	"github.com/citizenwatch/roadwatch-server/internal/models"
)

var ErrNotFound = errors.New("not found")

// Repository is the report store used by the issue service
type Repository interface {
	// Create stores a new report and returns it with its assigned id.
	Create(ctx context.Context, report models.NewReport) (models.Report, error)
	// List returns every stored report in no particular order.
	List(ctx context.Context) ([]models.Report, error)
	Get(ctx context.Context, id string) (*models.Report, error)
	// UpdateStatus changes only the status field. Returns ErrNotFound for
	// unknown ids.
	UpdateStatus(ctx context.Context, id string, status models.Status) error

	AppendStatusChange(ctx context.Context, change models.StatusChange) error
	// ListStatusChanges returns a report's history, newest first.
	ListStatusChanges(ctx context.Context, reportID string) ([]models.StatusChange, error)

	Ping(ctx context.Context) error
	Close() error
}
