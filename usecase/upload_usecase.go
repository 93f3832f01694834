package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"media-ops/domain/dto"
	"media-ops/domain/model"
	"media-ops/domain/repository"
	"media-ops/infrastructure/logger"

	"golang.org/x/sync/errgroup"
)

// IUploadUsecase orchestrates upload sessions end to end.
type IUploadUsecase interface {
	// StartUpload validates the video record, registers a session and
	// queues the transfer. The session id comes back immediately; status
	// is retrieved by polling.
	StartUpload(ctx context.Context, videoID string, testMode bool) (*model.UploadSession, error)
	GetSession(ctx context.Context, id string) (*model.UploadSession, error)
	ListSessions(ctx context.Context) ([]*model.UploadSession, error)
	Cancel(ctx context.Context, id string) (bool, error)
	CancelAll(ctx context.Context) (int, error)
	Cleanup(ctx context.Context) (int, error)
	// Run owns the worker pool; it blocks until ctx is done.
	Run(ctx context.Context) error
}

type uploadTask struct {
	sessionID string
	videoID   string
	testMode  bool
	// wasScheduled records whether the video was in pending-schedule when
	// the upload started, so a cancel can restore the original status.
	wasScheduled bool
}

// UploadUsecase drives transfers on a bounded worker pool. The pool size is
// the cap on simultaneously in-flight transfers; the queue gives
// backpressure when every worker is busy.
type UploadUsecase struct {
	registry  repository.IUploadRegistry
	videos    repository.IVideo
	transfer  repository.ITransfer
	objects   repository.ISourceObject
	tasks     chan uploadTask
	workers   int
	retention time.Duration
}

func NewUploadUsecase(
	registry repository.IUploadRegistry,
	videos repository.IVideo,
	transfer repository.ITransfer,
	objects repository.ISourceObject,
	workers, queueDepth int,
	retention time.Duration,
) *UploadUsecase {
	if workers <= 0 {
		workers = 3
	}
	if queueDepth <= 0 {
		queueDepth = 64
	}
	if retention <= 0 {
		retention = time.Hour
	}
	return &UploadUsecase{
		registry:  registry,
		videos:    videos,
		transfer:  transfer,
		objects:   objects,
		tasks:     make(chan uploadTask, queueDepth),
		workers:   workers,
		retention: retention,
	}
}

func (u *UploadUsecase) StartUpload(ctx context.Context, videoID string, testMode bool) (*model.UploadSession, error) {
	video, err := u.videos.Get(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if video.SourceObjectRef == "" {
		return nil, fmt.Errorf("%w: video %s has no source object", model.ErrValidation, videoID)
	}
	if video.Title == "" {
		return nil, fmt.Errorf("%w: video %s has no title", model.ErrValidation, videoID)
	}
	if video.Description == "" {
		return nil, fmt.Errorf("%w: video %s has no description", model.ErrValidation, videoID)
	}

	session, err := u.registry.Create(ctx, videoID, testMode)
	if err != nil {
		return nil, err
	}

	wasScheduled := video.Status == model.VideoStatusPendingSchedule

	if err := u.videos.MarkInProgress(ctx, videoID); err != nil {
		logger.GetLogger().WithField("videoId", videoID).WithField("error", err).
			Warn("Failed to mark video in-progress")
	}

	select {
	case u.tasks <- uploadTask{sessionID: session.ID, videoID: videoID, testMode: testMode, wasScheduled: wasScheduled}:
	default:
		_ = u.registry.Fail(ctx, session.ID, model.ErrCodeQueue, "upload queue is full")
		_ = u.videos.MarkUploadFailed(ctx, videoID, "upload queue is full")
		return nil, fmt.Errorf("cannot accept upload for video %s: %w", videoID, model.ErrQueueFull)
	}
	return session, nil
}

func (u *UploadUsecase) GetSession(ctx context.Context, id string) (*model.UploadSession, error) {
	return u.registry.Get(ctx, id)
}

func (u *UploadUsecase) ListSessions(ctx context.Context) ([]*model.UploadSession, error) {
	return u.registry.List(ctx)
}

func (u *UploadUsecase) Cancel(ctx context.Context, id string) (bool, error) {
	return u.registry.RequestCancel(ctx, id)
}

func (u *UploadUsecase) CancelAll(ctx context.Context) (int, error) {
	return u.registry.CancelAll(ctx)
}

func (u *UploadUsecase) Cleanup(ctx context.Context) (int, error) {
	return u.registry.CleanupCompleted(ctx, u.retention)
}

func (u *UploadUsecase) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < u.workers; i++ {
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case task := <-u.tasks:
					u.process(ctx, task)
				}
			}
		})
	}
	return g.Wait()
}

// process runs one queued transfer to its terminal state.
func (u *UploadUsecase) process(ctx context.Context, task uploadTask) {
	lg := logger.GetLogger().WithField("sessionId", task.sessionID).WithField("videoId", task.videoID)

	// A cancel may arrive while the session is still queued.
	if u.registry.CancelRequested(ctx, task.sessionID) {
		u.finishCancelled(ctx, task)
		return
	}
	if err := u.registry.MarkUploading(ctx, task.sessionID); err != nil {
		lg.WithField("error", err).Warn("Could not mark session uploading")
		return
	}

	if task.testMode {
		resultID := "test-" + task.sessionID
		_ = u.registry.Complete(ctx, task.sessionID, resultID)
		_ = u.videos.MarkPublished(ctx, task.videoID, resultID, time.Now().UTC())
		lg.Info("Test-mode upload completed")
		return
	}

	session, err := u.registry.Get(ctx, task.sessionID)
	if err != nil {
		lg.WithField("error", err).Warn("Session disappeared before transfer")
		return
	}
	video, err := u.videos.Get(ctx, task.videoID)
	if err != nil {
		u.finishFailed(ctx, task, model.ErrCodeSource, fmt.Errorf("video record unavailable: %w", err))
		return
	}

	// New sessions always start at zero. The registry keeps BytesSent on
	// failed sessions for operator visibility only; a retry is a new
	// session and a new platform upload, not a resume.
	offset := session.BytesSent
	source, size, err := u.objects.Open(ctx, video.SourceObjectRef, offset)
	if err != nil {
		u.finishFailed(ctx, task, model.ErrCodeSource, err)
		return
	}
	defer func() { _ = source.Close() }()
	_ = u.registry.RecordProgress(ctx, task.sessionID, offset, size)

	resultID, err := u.transfer.Transfer(ctx, &repository.TransferInput{
		SessionID: task.sessionID,
		Source:    source,
		Offset:    offset,
		Size:      size,
		Metadata: &dto.UploadMetadata{
			Title:       video.Title,
			Description: video.Description,
			Tags:        video.Tags,
			Privacy:     video.Privacy,
			CategoryID:  video.CategoryID,
		},
		OnProgress: func(bytesSent, bytesTotal int64) {
			_ = u.registry.RecordProgress(ctx, task.sessionID, bytesSent, bytesTotal)
		},
		OnAttempt: func() {
			_ = u.registry.RecordAttempt(ctx, task.sessionID)
		},
		Cancelled: func() bool {
			return u.registry.CancelRequested(ctx, task.sessionID)
		},
	})
	if err != nil {
		if errors.Is(err, model.ErrCancelled) {
			u.finishCancelled(ctx, task)
			lg.Info("Upload cancelled")
			return
		}
		u.finishFailed(ctx, task, model.ClassifyCode(err), err)
		return
	}

	_ = u.registry.Complete(ctx, task.sessionID, resultID)
	if err := u.videos.MarkPublished(ctx, task.videoID, resultID, time.Now().UTC()); err != nil {
		lg.WithField("error", err).Error("Upload completed but video record update failed")
		return
	}
	lg.WithField("resultId", resultID).Info("Upload completed")
}

// finishCancelled reverts the record to the status it had before the upload
// started: schedule-originated videos go back to pending-schedule, direct
// uploads go back to draft.
func (u *UploadUsecase) finishCancelled(ctx context.Context, task uploadTask) {
	_ = u.registry.MarkCancelled(ctx, task.sessionID)
	if task.wasScheduled {
		_ = u.videos.MarkPending(ctx, task.videoID)
		return
	}
	_ = u.videos.MarkDraft(ctx, task.videoID)
}

// finishFailed records the classified error on both the session and the
// video record so the failure is visible without polling the registry.
func (u *UploadUsecase) finishFailed(ctx context.Context, task uploadTask, code string, err error) {
	logger.GetLogger().WithField("sessionId", task.sessionID).WithField("code", code).
		WithField("error", err).Error("Upload failed")
	_ = u.registry.Fail(ctx, task.sessionID, code, err.Error())
	_ = u.videos.MarkUploadFailed(ctx, task.videoID, err.Error())
}
