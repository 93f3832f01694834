package model

import "time"

// SessionStatus is the lifecycle state of an upload session.
type SessionStatus string

const (
	SessionQueued    SessionStatus = "queued"
	SessionUploading SessionStatus = "uploading"
	SessionCompleted SessionStatus = "completed"
	SessionFailed    SessionStatus = "failed"
	SessionCancelled SessionStatus = "cancelled"
)

// Terminal reports whether no further transitions are allowed from s.
func (s SessionStatus) Terminal() bool {
	return s == SessionCompleted || s == SessionFailed || s == SessionCancelled
}

// UploadSession tracks one attempt to move one video to YouTube.
// BytesSent is owned by the transfer loop and is monotonically
// non-decreasing once uploading begins.
type UploadSession struct {
	ID              string        `json:"id"`
	VideoID         string        `json:"videoId"`
	Status          SessionStatus `json:"status"`
	BytesTotal      int64         `json:"bytesTotal"`
	BytesSent       int64         `json:"bytesSent"`
	ResultID        string        `json:"resultId,omitempty"`
	ErrorCode       string        `json:"errorCode,omitempty"`
	ErrorMessage    string        `json:"errorMessage,omitempty"`
	Attempts        int           `json:"attempts"`
	CancelRequested bool          `json:"cancelRequested"`
	TestMode        bool          `json:"testMode,omitempty"`
	CreatedAt       time.Time     `json:"createdAt"`
	UpdatedAt       time.Time     `json:"updatedAt"`
}
