package repository

import (
	"context"
	"io"

	"media-ops/domain/dto"
)

// TransferInput describes one resumable transfer. Source must already be
// positioned at Offset; the transfer loop computes chunk ranges from it.
type TransferInput struct {
	SessionID string
	Source    io.Reader
	Offset    int64
	Size      int64
	Metadata  *dto.UploadMetadata

	// OnProgress is invoked after each accepted chunk, OnAttempt before
	// each chunk retry. Cancelled is checked once per chunk boundary.
	OnProgress func(bytesSent, bytesTotal int64)
	OnAttempt  func()
	Cancelled  func() bool
}

// ITransfer performs the resumable upload protocol against the platform and
// returns the platform-assigned video id.
type ITransfer interface {
	Transfer(ctx context.Context, in *TransferInput) (string, error)
}
