package registry_test

import (
	"context"
	"testing"
	"time"

	"media-ops/domain/model"
	"media-ops/infrastructure/registry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadRegistry_CreateRejectsSecondActiveSession(t *testing.T) {
	ctx := context.Background()
	reg := registry.NewUploadRegistry(nil)

	first, err := reg.Create(ctx, "video-1", false)
	require.NoError(t, err)
	assert.Equal(t, model.SessionQueued, first.Status)
	assert.Equal(t, "video-1", first.VideoID)

	_, err = reg.Create(ctx, "video-1", false)
	assert.ErrorIs(t, err, model.ErrConflict)

	// A different video is unaffected.
	_, err = reg.Create(ctx, "video-2", false)
	assert.NoError(t, err)
}

func TestUploadRegistry_TerminalSessionFreesVideo(t *testing.T) {
	ctx := context.Background()
	reg := registry.NewUploadRegistry(nil)

	first, err := reg.Create(ctx, "video-1", false)
	require.NoError(t, err)
	require.NoError(t, reg.Complete(ctx, first.ID, "yt-123"))

	second, err := reg.Create(ctx, "video-1", false)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestUploadRegistry_TerminalStateIsImmutable(t *testing.T) {
	ctx := context.Background()
	reg := registry.NewUploadRegistry(nil)

	s, err := reg.Create(ctx, "video-1", false)
	require.NoError(t, err)
	require.NoError(t, reg.Complete(ctx, s.ID, "yt-123"))

	// Late callbacks from a finishing transfer must not alter the result.
	assert.NoError(t, reg.Fail(ctx, s.ID, model.ErrCodeTransient, "late failure"))
	assert.NoError(t, reg.RecordProgress(ctx, s.ID, 1, 100))
	assert.NoError(t, reg.MarkCancelled(ctx, s.ID))

	got, err := reg.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionCompleted, got.Status)
	assert.Equal(t, "yt-123", got.ResultID)
	assert.Empty(t, got.ErrorCode)
}

func TestUploadRegistry_ProgressIsMonotonic(t *testing.T) {
	ctx := context.Background()
	reg := registry.NewUploadRegistry(nil)

	s, err := reg.Create(ctx, "video-1", false)
	require.NoError(t, err)

	require.NoError(t, reg.RecordProgress(ctx, s.ID, 50, 100))
	require.NoError(t, reg.RecordProgress(ctx, s.ID, 30, 100)) // stale update
	got, err := reg.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(50), got.BytesSent)

	// Never above the total either.
	require.NoError(t, reg.RecordProgress(ctx, s.ID, 500, 100))
	got, err = reg.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), got.BytesSent)
}

func TestUploadRegistry_RequestCancel(t *testing.T) {
	ctx := context.Background()
	reg := registry.NewUploadRegistry(nil)

	s, err := reg.Create(ctx, "video-1", false)
	require.NoError(t, err)

	accepted, err := reg.RequestCancel(ctx, s.ID)
	require.NoError(t, err)
	assert.True(t, accepted)
	assert.True(t, reg.CancelRequested(ctx, s.ID))

	// Requesting again is idempotent.
	accepted, err = reg.RequestCancel(ctx, s.ID)
	require.NoError(t, err)
	assert.True(t, accepted)

	// Cancelling a terminal session is rejected.
	require.NoError(t, reg.Complete(ctx, s.ID, "yt-123"))
	accepted, err = reg.RequestCancel(ctx, s.ID)
	require.NoError(t, err)
	assert.False(t, accepted)

	_, err = reg.RequestCancel(ctx, "missing")
	assert.ErrorIs(t, err, model.ErrSessionNotFound)
}

func TestUploadRegistry_CancelAllCountsActiveOnly(t *testing.T) {
	ctx := context.Background()
	reg := registry.NewUploadRegistry(nil)

	a, _ := reg.Create(ctx, "video-a", false)
	b, _ := reg.Create(ctx, "video-b", false)
	c, _ := reg.Create(ctx, "video-c", false)
	d, _ := reg.Create(ctx, "video-d", false)
	require.NoError(t, reg.MarkUploading(ctx, a.ID))
	require.NoError(t, reg.MarkUploading(ctx, b.ID))
	require.NoError(t, reg.Complete(ctx, d.ID, "yt-d"))

	count, err := reg.CancelAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.True(t, reg.CancelRequested(ctx, a.ID))
	assert.True(t, reg.CancelRequested(ctx, b.ID))
	assert.True(t, reg.CancelRequested(ctx, c.ID))
	assert.False(t, reg.CancelRequested(ctx, d.ID))
}

func TestUploadRegistry_CleanupCompletedHonorsRetention(t *testing.T) {
	ctx := context.Background()
	reg := registry.NewUploadRegistry(nil)

	old, _ := reg.Create(ctx, "video-old", false)
	fresh, _ := reg.Create(ctx, "video-fresh", false)
	active, _ := reg.Create(ctx, "video-active", false)
	require.NoError(t, reg.Complete(ctx, old.ID, "yt-old"))
	require.NoError(t, reg.Complete(ctx, fresh.ID, "yt-fresh"))

	// Zero retention removes every terminal session older than "now", which
	// the just-completed ones are not guaranteed to be; wait a tick.
	time.Sleep(5 * time.Millisecond)
	removed, err := reg.CleanupCompleted(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	_, err = reg.Get(ctx, old.ID)
	assert.ErrorIs(t, err, model.ErrSessionNotFound)
	_, err = reg.Get(ctx, active.ID)
	assert.NoError(t, err)
}

func TestUploadRegistry_CompleteFillsBytesSent(t *testing.T) {
	ctx := context.Background()
	reg := registry.NewUploadRegistry(nil)

	s, _ := reg.Create(ctx, "video-1", false)
	require.NoError(t, reg.RecordProgress(ctx, s.ID, 40, 100))
	require.NoError(t, reg.Complete(ctx, s.ID, "yt-1"))

	got, err := reg.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), got.BytesSent)
	assert.Equal(t, int64(100), got.BytesTotal)
}

func TestUploadRegistry_GetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	reg := registry.NewUploadRegistry(nil)

	s, _ := reg.Create(ctx, "video-1", false)
	got, err := reg.Get(ctx, s.ID)
	require.NoError(t, err)
	got.Status = model.SessionFailed

	again, err := reg.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionQueued, again.Status)
}
