package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"media-ops/domain/model"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// VideoRepository stores video content records in MongoDB.
type VideoRepository struct {
	coll *mongo.Collection
}

func NewVideoRepository(db *mongo.Database) *VideoRepository {
	return &VideoRepository{coll: db.Collection("videos")}
}

func (r *VideoRepository) Create(ctx context.Context, video *model.Video) error {
	now := time.Now().UTC()
	if video.ID == "" {
		video.ID = uuid.NewString()
	}
	if video.Status == "" {
		video.Status = model.VideoStatusDraft
	}
	if video.Privacy == "" {
		video.Privacy = "private"
	}
	video.CreatedAt = now
	video.UpdatedAt = now
	if _, err := r.coll.InsertOne(ctx, video); err != nil {
		return fmt.Errorf("failed to insert video: %w", err)
	}
	return nil
}

func (r *VideoRepository) Get(ctx context.Context, id string) (*model.Video, error) {
	var v model.Video
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&v)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, model.ErrVideoNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch video %s: %w", id, err)
	}
	return &v, nil
}

func (r *VideoRepository) List(ctx context.Context, limit int) ([]*model.Video, error) {
	if limit <= 0 {
		limit = 100
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(int64(limit))
	cursor, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list videos: %w", err)
	}
	var out []*model.Video
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode videos: %w", err)
	}
	return out, nil
}

func (r *VideoRepository) Schedule(ctx context.Context, id string, at time.Time) error {
	return r.update(ctx, id, bson.M{
		"status":      model.VideoStatusPendingSchedule,
		"scheduledAt": at.UTC(),
	})
}

func (r *VideoRepository) MarkInProgress(ctx context.Context, id string) error {
	return r.update(ctx, id, bson.M{"status": model.VideoStatusInProgress})
}

func (r *VideoRepository) MarkPending(ctx context.Context, id string) error {
	return r.update(ctx, id, bson.M{"status": model.VideoStatusPendingSchedule})
}

func (r *VideoRepository) MarkDraft(ctx context.Context, id string) error {
	return r.update(ctx, id, bson.M{"status": model.VideoStatusDraft})
}

func (r *VideoRepository) MarkPublished(ctx context.Context, id, youtubeID string, at time.Time) error {
	return r.update(ctx, id, bson.M{
		"status":       model.VideoStatusDone,
		"youtubeId":    youtubeID,
		"publishedAt":  at.UTC(),
		"errorMessage": "",
	})
}

func (r *VideoRepository) MarkUploadFailed(ctx context.Context, id, message string) error {
	return r.update(ctx, id, bson.M{
		"status":       model.VideoStatusUploadFailed,
		"errorMessage": message,
	})
}

func (r *VideoRepository) FindDueScheduled(ctx context.Context, now time.Time, limit int) ([]*model.Video, error) {
	if limit <= 0 {
		limit = 25
	}
	filter := bson.M{
		"status":      model.VideoStatusPendingSchedule,
		"scheduledAt": bson.M{"$lte": now.UTC()},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "scheduledAt", Value: 1}}).
		SetLimit(int64(limit))
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query due scheduled videos: %w", err)
	}
	var out []*model.Video
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode due scheduled videos: %w", err)
	}
	return out, nil
}

func (r *VideoRepository) update(ctx context.Context, id string, set bson.M) error {
	set["updatedAt"] = time.Now().UTC()
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update video %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return model.ErrVideoNotFound
	}
	return nil
}
