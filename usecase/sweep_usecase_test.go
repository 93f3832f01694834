package usecase_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"media-ops/domain/model"
	"media-ops/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockUploadUsecase struct {
	mock.Mock
}

func (m *MockUploadUsecase) StartUpload(ctx context.Context, videoID string, testMode bool) (*model.UploadSession, error) {
	args := m.Called(ctx, videoID, testMode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.UploadSession), args.Error(1)
}

func (m *MockUploadUsecase) GetSession(ctx context.Context, id string) (*model.UploadSession, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.UploadSession), args.Error(1)
}

func (m *MockUploadUsecase) ListSessions(ctx context.Context) ([]*model.UploadSession, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.UploadSession), args.Error(1)
}

func (m *MockUploadUsecase) Cancel(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockUploadUsecase) CancelAll(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockUploadUsecase) Cleanup(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockUploadUsecase) Run(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func scheduledVideo(id string, at time.Time) *model.Video {
	v := uploadableVideo(id)
	v.ScheduledAt = &at
	return v
}

func TestSweepUsecase_PromotesDueVideos(t *testing.T) {
	now := time.Now()
	due := []*model.Video{
		scheduledVideo("video-1", now.Add(-time.Hour)),
		scheduledVideo("video-2", now.Add(-time.Minute)),
	}

	videos := new(MockVideoRepository)
	videos.On("FindDueScheduled", mock.Anything, now, 25).Return(due, nil)

	uploads := new(MockUploadUsecase)
	uploads.On("StartUpload", mock.Anything, "video-1", false).Return(&model.UploadSession{ID: "s-1"}, nil)
	uploads.On("StartUpload", mock.Anything, "video-2", false).Return(&model.UploadSession{ID: "s-2"}, nil)

	sweeper := usecase.NewSweepUsecase(videos, uploads, 25, 3)
	report, err := sweeper.Sweep(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Processed)
	assert.Equal(t, 2, report.Succeeded)
	assert.Equal(t, 0, report.Failed)
	uploads.AssertExpectations(t)
}

func TestSweepUsecase_NothingDue(t *testing.T) {
	now := time.Now()
	videos := new(MockVideoRepository)
	videos.On("FindDueScheduled", mock.Anything, now, 25).Return([]*model.Video{}, nil)

	uploads := new(MockUploadUsecase)
	sweeper := usecase.NewSweepUsecase(videos, uploads, 25, 3)

	report, err := sweeper.Sweep(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Processed)
	uploads.AssertNotCalled(t, "StartUpload", mock.Anything, mock.Anything, mock.Anything)
}

func TestSweepUsecase_ValidationFailureMarksRecord(t *testing.T) {
	now := time.Now()
	due := []*model.Video{scheduledVideo("video-bad", now.Add(-time.Hour))}

	videos := new(MockVideoRepository)
	videos.On("FindDueScheduled", mock.Anything, now, 25).Return(due, nil)
	videos.On("MarkUploadFailed", mock.Anything, "video-bad", mock.Anything).Return(nil)

	uploads := new(MockUploadUsecase)
	uploads.On("StartUpload", mock.Anything, "video-bad", false).
		Return(nil, fmt.Errorf("%w: no source", model.ErrValidation))

	sweeper := usecase.NewSweepUsecase(videos, uploads, 25, 3)
	report, err := sweeper.Sweep(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	assert.Len(t, report.Errors, 1)
	// A record that can never validate is marked so it is not reswept.
	videos.AssertCalled(t, "MarkUploadFailed", mock.Anything, "video-bad", mock.Anything)
}

func TestSweepUsecase_ConflictDoesNotMarkRecord(t *testing.T) {
	now := time.Now()
	due := []*model.Video{scheduledVideo("video-1", now.Add(-time.Hour))}

	videos := new(MockVideoRepository)
	videos.On("FindDueScheduled", mock.Anything, now, 25).Return(due, nil)

	uploads := new(MockUploadUsecase)
	uploads.On("StartUpload", mock.Anything, "video-1", false).
		Return(nil, fmt.Errorf("%w: already uploading", model.ErrConflict))

	sweeper := usecase.NewSweepUsecase(videos, uploads, 25, 3)
	report, err := sweeper.Sweep(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	videos.AssertNotCalled(t, "MarkUploadFailed", mock.Anything, mock.Anything, mock.Anything)
}
