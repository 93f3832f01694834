package repository

import (
	"context"
	"time"

	"media-ops/domain/model"
)

// IVideo is the content-store boundary. The orchestrator reads source and
// metadata from it and mirrors terminal results back onto the record.
type IVideo interface {
	Create(ctx context.Context, video *model.Video) error
	Get(ctx context.Context, id string) (*model.Video, error)
	List(ctx context.Context, limit int) ([]*model.Video, error)

	Schedule(ctx context.Context, id string, at time.Time) error
	MarkInProgress(ctx context.Context, id string) error
	MarkPending(ctx context.Context, id string) error
	MarkDraft(ctx context.Context, id string) error
	MarkPublished(ctx context.Context, id, youtubeID string, at time.Time) error
	MarkUploadFailed(ctx context.Context, id, message string) error

	// FindDueScheduled returns pending-schedule records with
	// scheduledAt <= now, oldest first.
	FindDueScheduled(ctx context.Context, now time.Time, limit int) ([]*model.Video, error)
}
