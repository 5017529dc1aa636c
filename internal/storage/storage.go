// Package storage holds the S3-compatible object store used for transcript
// exports. Uploaded recordings do NOT go here — they live in the blob
// directory on local disk; this store only receives derived artifacts
// (rendered CSV transcripts) and hands out time-limited download links.
package storage

import (
	"context"
	"io"
	"time"
)

// PutOptions define optional parameters for storing an object. Size should
// be the exact byte count if known, or -1 to let the backend chunk.
type PutOptions struct {
	Size        int64
	ContentType string
	Metadata    map[string]string
}

// ObjectInfo contains basic information about a stored object.
type ObjectInfo struct {
	Key         string
	Size        int64
	ETag        string
	ContentType string
}

// ObjectStore is an S3-compatible object storage client. Methods use context
// and streaming readers; nothing is buffered through local disk.
type ObjectStore interface {
	// Put stores an object under the given key.
	Put(ctx context.Context, key string, r io.Reader, opt PutOptions) (ObjectInfo, error)
	// Delete removes an object by key.
	Delete(ctx context.Context, key string) error
	// PresignGet returns a time-limited URL for downloading the object
	// without credentials.
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
}
