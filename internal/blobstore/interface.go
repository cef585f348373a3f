package blobstore

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned by Open when no blob exists under the key.
var ErrNotFound = errors.New("blob not found")

// BlobPutResult describes one persisted blob payload.
type BlobPutResult struct {
	SHA256    string
	SizeBytes int64
	BlobKey   string
}

// PutOptions carries metadata stored alongside the bytes where the backend supports it.
type PutOptions struct {
	ContentType string
}

// BlobStore keeps attachment bytes. Keys are content addressed, so equal
// payloads share one key.
type BlobStore interface {
	Put(ctx context.Context, r io.Reader, opts PutOptions) (BlobPutResult, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}
