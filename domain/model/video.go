package model

import "time"

// Video record statuses in the content store. The sweeper promotes
// pending-schedule records whose scheduledAt has arrived.
const (
	VideoStatusDraft           = "draft"
	VideoStatusPendingSchedule = "pending-schedule"
	VideoStatusInProgress      = "in-progress"
	VideoStatusDone            = "done"
	VideoStatusUploadFailed    = "upload-failed"
)

// Video is a content record in the content store.
type Video struct {
	ID              string     `json:"id" bson:"_id"`
	Title           string     `json:"title" bson:"title"`
	Description     string     `json:"description" bson:"description"`
	Tags            []string   `json:"tags,omitempty" bson:"tags,omitempty"`
	Privacy         string     `json:"privacy" bson:"privacy"`
	CategoryID      string     `json:"categoryId,omitempty" bson:"categoryId,omitempty"`
	SourceObjectRef string     `json:"sourceObjectRef" bson:"sourceObjectRef"`
	Status          string     `json:"status" bson:"status"`
	ScheduledAt     *time.Time `json:"scheduledAt,omitempty" bson:"scheduledAt,omitempty"`
	YouTubeID       string     `json:"youtubeId,omitempty" bson:"youtubeId,omitempty"`
	PublishedAt     *time.Time `json:"publishedAt,omitempty" bson:"publishedAt,omitempty"`
	ErrorMessage    string     `json:"errorMessage,omitempty" bson:"errorMessage,omitempty"`
	CreatedAt       time.Time  `json:"createdAt" bson:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt" bson:"updatedAt"`
}
