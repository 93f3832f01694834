package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"media-ops/domain/dto"
	"media-ops/domain/model"
	"media-ops/domain/repository"
	"media-ops/infrastructure/logger"

	"golang.org/x/sync/errgroup"
)

// ISweepUsecase promotes due scheduled videos into active uploads.
type ISweepUsecase interface {
	Sweep(ctx context.Context, now time.Time) (*dto.SweepReport, error)
}

// SweepUsecase hands due records to the upload orchestrator with bounded
// concurrency. StartUpload itself returns once the session is queued, so
// the real cap on in-flight transfers is the orchestrator's worker pool;
// the errgroup limit here keeps the content-store reads and validation
// bounded within one sweep.
type SweepUsecase struct {
	videos   repository.IVideo
	uploads  IUploadUsecase
	limit    int
	parallel int
}

func NewSweepUsecase(videos repository.IVideo, uploads IUploadUsecase, batchLimit, parallel int) ISweepUsecase {
	if batchLimit <= 0 {
		batchLimit = 25
	}
	if parallel <= 0 {
		parallel = 3
	}
	return &SweepUsecase{videos: videos, uploads: uploads, limit: batchLimit, parallel: parallel}
}

func (s *SweepUsecase) Sweep(ctx context.Context, now time.Time) (*dto.SweepReport, error) {
	due, err := s.videos.FindDueScheduled(ctx, now, s.limit)
	if err != nil {
		return nil, err
	}

	report := &dto.SweepReport{Processed: len(due)}
	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallel)
	for _, video := range due {
		video := video
		g.Go(func() error {
			session, err := s.uploads.StartUpload(ctx, video.ID, false)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Failed++
				report.Errors = append(report.Errors, video.ID+": "+err.Error())
				// A record that cannot pass validation will never pass it on
				// a later sweep; mark it instead of retrying forever.
				if errors.Is(err, model.ErrValidation) {
					_ = s.videos.MarkUploadFailed(ctx, video.ID, err.Error())
				}
				return nil
			}
			report.Succeeded++
			logger.GetLogger().WithField("videoId", video.ID).
				WithField("sessionId", session.ID).Info("Scheduled upload started")
			return nil
		})
	}
	_ = g.Wait()
	return report, nil
}
