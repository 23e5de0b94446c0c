// Package services contains the report lifecycle: submission, listing and
// status changes, plus the access gate and the orphan sweeper. Services are
// called by handlers and talk to the repository and the attachment store.
package services

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/citizenwatch/roadwatch-server/internal/attachments"
	"github.com/citizenwatch/roadwatch-server/internal/events"
	"github.com/citizenwatch/roadwatch-server/internal/metrics"
	"github.com/citizenwatch/roadwatch-server/internal/models"
	"github.com/citizenwatch/roadwatch-server/internal/repository"
	"github.com/citizenwatch/roadwatch-server/internal/validator"
)

const cleanupTimeout = 10 * time.Second

// IssueService handles report business logic
type IssueService struct {
	repo    repository.Repository
	store   attachments.Store
	gate    Authorizer
	events  events.Publisher
	metrics *metrics.Metrics
	logger  *zap.SugaredLogger
	now     func() time.Time
}

// NewIssueService creates a new issue service
func NewIssueService(
	repo repository.Repository,
	store attachments.Store,
	gate Authorizer,
	publisher events.Publisher,
	m *metrics.Metrics,
	logger *zap.SugaredLogger,
) *IssueService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &IssueService{
		repo:    repo,
		store:   store,
		gate:    gate,
		events:  publisher,
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}
}

// Submit validates req, uploads its photo if any and creates the report.
// The photo is fully stored before the report document exists.
func (s *IssueService) Submit(ctx context.Context, req models.SubmitReportRequest) (string, error) {
	req.IssueType = strings.TrimSpace(req.IssueType)
	req.Description = strings.TrimSpace(req.Description)
	req.Location = strings.TrimSpace(req.Location)

	if fields := validator.Struct(&req); fields != nil {
		return "", &ValidationError{Fields: fields}
	}

	photo := req.Photo
	if photo != nil && photo.Filename == "" {
		photo = nil
	}
	if photo != nil && len(photo.Data) == 0 {
		return "", invalid("issue_photo", "is empty")
	}

	var key, photoURL string
	if photo != nil {
		key = attachments.NewObjectKey(photo.Filename)
		url, err := s.store.Upload(ctx, key, photo.ContentType, bytes.NewReader(photo.Data))
		if err != nil {
			s.logger.Errorw("Photo upload failed", "key", key, "error", err)
			return "", storageErr("upload photo", err)
		}
		photoURL = url
	}

	report, err := s.repo.Create(ctx, models.NewReport{
		IssueType:   models.IssueType(req.IssueType),
		Description: req.Description,
		Location:    req.Location,
		PhotoURL:    photoURL,
		Status:      models.StatusReported,
		CreatedAt:   s.now().UTC(),
	})
	if err != nil {
		s.logger.Errorw("Report create failed", "error", err)
		if key != "" {
			s.removeOrphan(ctx, key)
		}
		return "", storageErr("create report", err)
	}

	s.metrics.ReportsSubmitted.Inc()
	s.logger.Infow("Report submitted",
		"id", report.ID,
		"issue_type", report.IssueType,
		"has_photo", photoURL != "",
	)

	return report.ID, nil
}

// removeOrphan deletes an uploaded photo whose report could not be
// created. Failures are left to the sweeper.
func (s *IssueService) removeOrphan(ctx context.Context, key string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	if err := s.store.Delete(ctx, key); err != nil {
		s.logger.Warnw("Orphaned photo left for sweeper", "key", key, "error", err)
		return
	}
	s.logger.Infow("Orphaned photo removed", "key", key)
}

// ListAll returns every report.
func (s *IssueService) ListAll(ctx context.Context) ([]models.Report, error) {
	reports, err := s.repo.List(ctx)
	if err != nil {
		return nil, storageErr("list reports", err)
	}
	if reports == nil {
		reports = []models.Report{}
	}
	return reports, nil
}

// Get returns a single report.
func (s *IssueService) Get(ctx context.Context, id string) (*models.Report, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, invalid("id", "is required")
	}

	report, err := s.repo.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storageErr("get report", err)
	}
	return report, nil
}

// Authorized reports whether token may change report status.
func (s *IssueService) Authorized(token string) bool {
	return s.gate.Authorize(token)
}

// UpdateStatus sets a report's status. The token is checked before anything
// else; an unauthorized call never reads or writes the repository.
// Concurrent updates of the same report are last-write-wins.
func (s *IssueService) UpdateStatus(ctx context.Context, token string, req models.UpdateStatusRequest) error {
	if !s.gate.Authorize(token) {
		s.logger.Warnw("Unauthorized status update", "id", req.ID)
		return ErrUnauthorized
	}

	req.ID = strings.TrimSpace(req.ID)
	req.Status = strings.TrimSpace(req.Status)
	if fields := validator.Struct(&req); fields != nil {
		return &ValidationError{Fields: fields}
	}

	current, err := s.Get(ctx, req.ID)
	if err != nil {
		return err
	}

	next := models.Status(req.Status)
	if current.Status == next {
		s.logger.Infow("Status unchanged", "id", req.ID, "status", next)
		return nil
	}

	if err := s.repo.UpdateStatus(ctx, req.ID, next); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return storageErr("update status", err)
	}

	s.metrics.StatusUpdates.WithLabelValues(string(next)).Inc()
	s.logger.Infow("Status updated", "id", req.ID, "from", current.Status, "to", next)

	change := models.StatusChange{
		ReportID:  req.ID,
		From:      current.Status,
		To:        next,
		ChangedAt: s.now().UTC(),
	}
	if err := s.repo.AppendStatusChange(ctx, change); err != nil {
		s.logger.Errorw("Failed to record status change", "id", req.ID, "error", err)
	}
	if err := s.events.PublishStatusChanged(ctx, change); err != nil {
		s.logger.Warnw("Failed to publish status change", "id", req.ID, "error", err)
	}

	return nil
}

// History returns the recorded status changes of a report, newest first.
func (s *IssueService) History(ctx context.Context, id string) ([]models.StatusChange, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}

	changes, err := s.repo.ListStatusChanges(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, storageErr("list status changes", err)
	}
	if changes == nil {
		changes = []models.StatusChange{}
	}
	return changes, nil
}
