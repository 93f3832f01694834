package repository

import (
	"context"
	"time"

	"media-ops/domain/model"
)

// IUploadRegistry is the addressable store of in-flight and recently
// finished upload sessions. Terminal sessions are immutable except for
// eviction by CleanupCompleted.
type IUploadRegistry interface {
	// Create allocates a queued session for videoID. Returns
	// model.ErrConflict when a queued or uploading session for the same
	// videoID already exists.
	Create(ctx context.Context, videoID string, testMode bool) (*model.UploadSession, error)
	Get(ctx context.Context, id string) (*model.UploadSession, error)
	List(ctx context.Context) ([]*model.UploadSession, error)

	// Transitions driven by the owning transfer loop.
	MarkUploading(ctx context.Context, id string) error
	RecordProgress(ctx context.Context, id string, bytesSent, bytesTotal int64) error
	RecordAttempt(ctx context.Context, id string) error
	Complete(ctx context.Context, id, resultID string) error
	Fail(ctx context.Context, id, code, message string) error
	MarkCancelled(ctx context.Context, id string) error

	// Cooperative cancellation. RequestCancel returns false when the
	// session is already terminal.
	RequestCancel(ctx context.Context, id string) (bool, error)
	CancelAll(ctx context.Context) (int, error)
	CancelRequested(ctx context.Context, id string) bool

	// CleanupCompleted evicts terminal sessions whose last update is older
	// than retention; returns the number removed.
	CleanupCompleted(ctx context.Context, retention time.Duration) (int, error)
}
