package repository

import (
	"context"
	"io"
)

// ISourceObject opens a source video object for reading starting at offset,
// returning the reader and the total object size. Offset support is what
// lets a rehydrated session resume from its recorded bytesSent.
type ISourceObject interface {
	Open(ctx context.Context, ref string, offset int64) (io.ReadCloser, int64, error)
}
