package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/citizenwatch/roadwatch-server/internal/models"
)

func newReport(t models.IssueType) models.NewReport {
	return models.NewReport{
		IssueType:   t,
		Description: "Deep hole",
		Location:    "Main St",
		Status:      models.StatusReported,
		CreatedAt:   time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestMemory_CreateAssignsDistinctIDs(t *testing.T) {
	repo := NewMemory()
	ctx := context.Background()

	var wg sync.WaitGroup
	ids := make(chan string, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := repo.Create(ctx, newReport(models.IssuePothole))
			assert.NoError(t, err)
			ids <- r.ID
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]bool)
	for id := range ids {
		assert.NotEmpty(t, id)
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 50)
}

func TestMemory_UpdateStatus(t *testing.T) {
	repo := NewMemory()
	ctx := context.Background()

	created, err := repo.Create(ctx, newReport(models.IssueOther))
	require.NoError(t, err)

	t.Run("Success", func(t *testing.T) {
		require.NoError(t, repo.UpdateStatus(ctx, created.ID, models.StatusCompleted))

		got, err := repo.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusCompleted, got.Status)
		assert.Equal(t, created.Description, got.Description)
		assert.Equal(t, created.CreatedAt, got.CreatedAt)
	})

	t.Run("NotFound", func(t *testing.T) {
		err := repo.UpdateStatus(ctx, "missing", models.StatusCompleted)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestMemory_GetReturnsCopy(t *testing.T) {
	repo := NewMemory()
	ctx := context.Background()

	created, err := repo.Create(ctx, newReport(models.IssuePothole))
	require.NoError(t, err)

	got, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	got.Status = models.StatusCompleted

	again, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusReported, again.Status)
}

func TestMemory_StatusChangesNewestFirst(t *testing.T) {
	repo := NewMemory()
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, repo.AppendStatusChange(ctx, models.StatusChange{
		ReportID: "r1", From: models.StatusReported, To: models.StatusInProgress, ChangedAt: base,
	}))
	require.NoError(t, repo.AppendStatusChange(ctx, models.StatusChange{
		ReportID: "r1", From: models.StatusInProgress, To: models.StatusCompleted, ChangedAt: base.Add(time.Hour),
	}))

	changes, err := repo.ListStatusChanges(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, changes, 2)
	assert.Equal(t, models.StatusCompleted, changes[0].To)
	assert.Equal(t, models.StatusInProgress, changes[1].To)

	empty, err := repo.ListStatusChanges(ctx, "r2")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestMemory_CanceledContext(t *testing.T) {
	repo := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repo.Create(ctx, newReport(models.IssuePothole))
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, repo.Ping(ctx), context.Canceled)
}
