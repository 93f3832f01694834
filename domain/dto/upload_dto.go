package dto

import "time"

// StartUploadRequest is the optional body of POST /api/uploads/:videoId.
type StartUploadRequest struct {
	TestMode bool `json:"testMode"`
}

// StartUploadResponse acknowledges a started upload; status is retrieved by
// polling MonitorPath.
type StartUploadResponse struct {
	SessionID   string `json:"sessionId"`
	MonitorPath string `json:"monitorPath"`
}

// UploadMetadata carries the platform metadata sent with the initiation call.
type UploadMetadata struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags,omitempty"`
	Privacy     string   `json:"privacy"`
	CategoryID  string   `json:"categoryId,omitempty"`
}

// SweepReport summarizes one sweep over due scheduled records.
type SweepReport struct {
	Processed int      `json:"processed"`
	Succeeded int      `json:"succeeded"`
	Failed    int      `json:"failed"`
	Errors    []string `json:"errors,omitempty"`
}

// CreateVideoRequest creates a content record.
type CreateVideoRequest struct {
	Title           string   `json:"title" binding:"required"`
	Description     string   `json:"description"`
	Tags            []string `json:"tags"`
	Privacy         string   `json:"privacy"`
	CategoryID      string   `json:"categoryId"`
	SourceObjectRef string   `json:"sourceObjectRef" binding:"required"`
}

// ScheduleVideoRequest marks a record for the sweeper.
type ScheduleVideoRequest struct {
	ScheduledAt time.Time `json:"scheduledAt" binding:"required"`
}
