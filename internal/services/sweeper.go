package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/citizenwatch/roadwatch-server/internal/attachments"
	"github.com/citizenwatch/roadwatch-server/internal/metrics"
	"github.com/citizenwatch/roadwatch-server/internal/repository"
)

const sweepTimeout = 5 * time.Minute

// OrphanSweeper deletes stored photos that no report references. Objects
// younger than grace are kept so an in-flight submission's photo is never
// removed between its upload and its report write.
type OrphanSweeper struct {
	repo    repository.Repository
	store   attachments.Store
	grace   time.Duration
	metrics *metrics.Metrics
	logger  *zap.SugaredLogger
	now     func() time.Time
	cron    *cron.Cron
}

// NewOrphanSweeper creates a sweeper
func NewOrphanSweeper(repo repository.Repository, store attachments.Store, grace time.Duration, m *metrics.Metrics, logger *zap.SugaredLogger) *OrphanSweeper {
	return &OrphanSweeper{
		repo:    repo,
		store:   store,
		grace:   grace,
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}
}

// Sweep runs one pass and returns how many objects it deleted.
func (s *OrphanSweeper) Sweep(ctx context.Context) (int, error) {
	// Objects are listed before reports: a report written after the object
	// listing is caught by the grace period.
	objects, err := s.store.List(ctx, attachments.Prefix)
	if err != nil {
		return 0, storageErr("list attachments", err)
	}
	reports, err := s.repo.List(ctx)
	if err != nil {
		return 0, storageErr("list reports", err)
	}

	// Matched by key so a changed base URL or bucket host never orphans a
	// referenced photo.
	referenced := make(map[string]struct{}, len(reports))
	for _, r := range reports {
		if key, ok := attachments.KeyFromURL(r.PhotoURL); ok {
			referenced[key] = struct{}{}
		}
	}

	cutoff := s.now().Add(-s.grace)
	deleted := 0
	for _, obj := range objects {
		if obj.Created.After(cutoff) {
			continue
		}
		if _, ok := referenced[obj.Key]; ok {
			continue
		}
		if err := s.store.Delete(ctx, obj.Key); err != nil {
			s.logger.Warnw("Failed to delete orphaned photo", "key", obj.Key, "error", err)
			continue
		}
		deleted++
		s.metrics.AttachmentsSwept.Inc()
	}

	return deleted, nil
}

// Start runs Sweep on schedule, a cron expression such as "@every 1h".
func (s *OrphanSweeper) Start(schedule string) error {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
		defer cancel()

		n, err := s.Sweep(ctx)
		if err != nil {
			s.logger.Errorw("Orphan sweep failed", "error", err)
			return
		}
		s.logger.Infow("Orphan sweep complete", "deleted", n)
	})
	if err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}

	s.cron = c
	c.Start()
	s.logger.Infow("Orphan sweeper started", "schedule", schedule, "grace", s.grace)
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish or ctx
// to end.
func (s *OrphanSweeper) Stop(ctx context.Context) {
	if s.cron == nil {
		return
	}
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}
