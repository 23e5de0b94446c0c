package services

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/citizenwatch/roadwatch-server/internal/attachments"
	storemocks "github.com/citizenwatch/roadwatch-server/internal/attachments/mocks"
	"github.com/citizenwatch/roadwatch-server/internal/metrics"
	"github.com/citizenwatch/roadwatch-server/internal/models"
	"github.com/citizenwatch/roadwatch-server/internal/repository"
)

func TestOrphanSweeper_Sweep(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	clock := now.Add(-2 * time.Hour)
	store := attachments.NewMemoryWithClock(func() time.Time { return clock })
	repo := repository.NewMemory()

	upload := func(key string) string {
		url, err := store.Upload(ctx, key, "image/jpeg", bytes.NewReader([]byte("x")))
		require.NoError(t, err)
		return url
	}

	referencedURL := upload("reports/referenced.jpg")
	upload("reports/orphan.jpg")
	upload("other/unrelated.jpg")
	clock = now.Add(-time.Minute)
	upload("reports/inflight.jpg")

	_, err := repo.Create(ctx, models.NewReport{
		IssueType:   models.IssuePothole,
		Description: "d",
		Location:    "l",
		PhotoURL:    referencedURL,
		Status:      models.StatusReported,
		CreatedAt:   now,
	})
	require.NoError(t, err)

	m := metrics.New(prometheus.NewRegistry())
	sweeper := NewOrphanSweeper(repo, store, time.Hour, m, zap.NewNop().Sugar())
	sweeper.now = func() time.Time { return now }

	deleted, err := sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AttachmentsSwept))

	_, ok := store.Get("reports/orphan.jpg")
	assert.False(t, ok)
	for _, key := range []string{"reports/referenced.jpg", "reports/inflight.jpg", "other/unrelated.jpg"} {
		_, ok := store.Get(key)
		assert.True(t, ok, key)
	}

	deleted, err = sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

func TestOrphanSweeper_ListFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := storemocks.NewMockStore(ctrl)
	store.EXPECT().List(gomock.Any(), attachments.Prefix).Return(nil, errors.New("timeout"))
	store.EXPECT().Delete(gomock.Any(), gomock.Any()).Times(0)

	sweeper := NewOrphanSweeper(repository.NewMemory(), store, time.Hour,
		metrics.New(prometheus.NewRegistry()), zap.NewNop().Sugar())

	_, err := sweeper.Sweep(context.Background())
	assert.ErrorIs(t, err, ErrStorage)
}

func TestOrphanSweeper_DeleteFailureContinues(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := storemocks.NewMockStore(ctrl)
	old := time.Now().Add(-48 * time.Hour)

	store.EXPECT().List(gomock.Any(), attachments.Prefix).Return([]attachments.Object{
		{Key: "reports/a.jpg", Created: old},
		{Key: "reports/b.jpg", Created: old},
	}, nil)
	store.EXPECT().Delete(gomock.Any(), "reports/a.jpg").Return(errors.New("permission denied"))
	store.EXPECT().Delete(gomock.Any(), "reports/b.jpg").Return(nil)

	sweeper := NewOrphanSweeper(repository.NewMemory(), store, time.Hour,
		metrics.New(prometheus.NewRegistry()), zap.NewNop().Sugar())

	deleted, err := sweeper.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)
}

func TestOrphanSweeper_StartStop(t *testing.T) {
	sweeper := NewOrphanSweeper(repository.NewMemory(), attachments.NewMemory(), time.Hour,
		metrics.New(prometheus.NewRegistry()), zap.NewNop().Sugar())

	assert.Error(t, sweeper.Start("every so often"))

	require.NoError(t, sweeper.Start("@every 1h"))
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	sweeper.Stop(ctx)
}

func TestOrphanSweeper_BaseURLChangeKeepsReferencedPhotos(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	repo := repository.NewMemory()

	before, err := attachments.NewLocal(dir, "/uploads")
	require.NoError(t, err)

	keptKey := attachments.NewObjectKey("kept.jpg")
	keptURL, err := before.Upload(ctx, keptKey, "image/jpeg", bytes.NewReader([]byte("kept")))
	require.NoError(t, err)
	require.Equal(t, "/uploads/"+keptKey, keptURL)

	orphanKey := attachments.NewObjectKey("orphan.jpg")
	_, err = before.Upload(ctx, orphanKey, "image/jpeg", bytes.NewReader([]byte("orphan")))
	require.NoError(t, err)

	_, err = repo.Create(ctx, models.NewReport{
		IssueType:   models.IssuePothole,
		Description: "d",
		Location:    "l",
		PhotoURL:    keptURL,
		Status:      models.StatusReported,
		CreatedAt:   time.Now(),
	})
	require.NoError(t, err)

	old := time.Now().Add(-2 * time.Hour)
	for _, key := range []string{keptKey, orphanKey} {
		require.NoError(t, os.Chtimes(filepath.Join(dir, filepath.FromSlash(key)), old, old))
	}

	// Same directory, now published behind a CDN.
	after, err := attachments.NewLocal(dir, "https://cdn.example.com/uploads")
	require.NoError(t, err)

	sweeper := NewOrphanSweeper(repo, after, time.Hour, metrics.New(prometheus.NewRegistry()), zap.NewNop().Sugar())
	deleted, err := sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	_, err = os.Stat(filepath.Join(dir, filepath.FromSlash(keptKey)))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, filepath.FromSlash(orphanKey)))
	assert.True(t, os.IsNotExist(err))
}
