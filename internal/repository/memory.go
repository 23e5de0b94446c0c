package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/citizenwatch/roadwatch-server/internal/models"
	"github.com/google/uuid"
)

// Memory is an in-process Repository for local development and tests.
type Memory struct {
	mu      sync.RWMutex
	reports map[string]models.Report
	history map[string][]models.StatusChange
}

func NewMemory() *Memory {
	return &Memory{
		reports: make(map[string]models.Report),
		history: make(map[string][]models.StatusChange),
	}
}

func (m *Memory) Create(ctx context.Context, nr models.NewReport) (models.Report, error) {
	if err := ctx.Err(); err != nil {
		return models.Report{}, err
	}

	r := models.Report{
		ID:          uuid.NewString(),
		IssueType:   nr.IssueType,
		Description: nr.Description,
		Location:    nr.Location,
		PhotoURL:    nr.PhotoURL,
		Status:      nr.Status,
		CreatedAt:   nr.CreatedAt,
	}

	m.mu.Lock()
	m.reports[r.ID] = r
	m.mu.Unlock()
	return r, nil
}

func (m *Memory) List(ctx context.Context) ([]models.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Report, 0, len(m.reports))
	for _, r := range m.reports {
		out = append(out, r)
	}
	return out, nil
}

func (m *Memory) Get(ctx context.Context, id string) (*models.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.reports[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &r, nil
}

func (m *Memory) UpdateStatus(ctx context.Context, id string, status models.Status) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.reports[id]
	if !ok {
		return ErrNotFound
	}
	r.Status = status
	m.reports[id] = r
	return nil
}

func (m *Memory) AppendStatusChange(ctx context.Context, change models.StatusChange) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	m.history[change.ReportID] = append(m.history[change.ReportID], change)
	m.mu.Unlock()
	return nil
}

func (m *Memory) ListStatusChanges(ctx context.Context, reportID string) ([]models.StatusChange, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	entries := m.history[reportID]
	out := make([]models.StatusChange, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		out = append(out, entries[i])
	}
	m.mu.RUnlock()

	// Entries with equal timestamps stay in reverse append order.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ChangedAt.After(out[j].ChangedAt)
	})
	return out, nil
}

func (m *Memory) Ping(ctx context.Context) error { return ctx.Err() }

func (m *Memory) Close() error { return nil }
