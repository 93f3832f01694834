package model

import (
	"errors"
	"fmt"
)

// Synchronous errors are resolved within the request; everything else is
// recorded on the session by the background transfer loop.
var (
	ErrValidation      = errors.New("validation failed")
	ErrConflict        = errors.New("active upload session already exists")
	ErrSessionNotFound = errors.New("upload session not found")
	ErrVideoNotFound   = errors.New("video not found")
	ErrQuotaExceeded   = errors.New("platform quota exceeded")
	ErrCancelled       = errors.New("upload cancelled")
	ErrTransient       = errors.New("transient transfer error")
	ErrQueueFull       = errors.New("upload queue full")
)

// AuthRequiredError means no usable credential exists; AuthURL is where the
// operator re-authenticates.
type AuthRequiredError struct {
	AuthURL string
}

func (e *AuthRequiredError) Error() string {
	return fmt.Sprintf("authentication required, visit %s", e.AuthURL)
}

// Error codes recorded on failed sessions.
const (
	ErrCodeAuth      = "auth_required"
	ErrCodeQuota     = "quota_exceeded"
	ErrCodeTransient = "transient"
	ErrCodePermanent = "permanent"
	ErrCodeSource    = "source_unavailable"
	ErrCodeQueue     = "queue_full"
	ErrCodeRestart   = "restart"
)

// ClassifyCode maps a transfer error to the code stored on the session.
func ClassifyCode(err error) string {
	var authErr *AuthRequiredError
	switch {
	case errors.As(err, &authErr):
		return ErrCodeAuth
	case errors.Is(err, ErrQuotaExceeded):
		return ErrCodeQuota
	case errors.Is(err, ErrTransient):
		return ErrCodeTransient
	case errors.Is(err, ErrQueueFull):
		return ErrCodeQueue
	default:
		return ErrCodePermanent
	}
}
