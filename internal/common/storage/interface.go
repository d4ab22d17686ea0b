package storage

import (
	"context"
	"errors"
	"io"
)

// ErrObjectNotFound is returned when the requested key does not exist.
var ErrObjectNotFound = errors.New("object not found")

// ObjectStorage is the read-only object access used to load question records.
type ObjectStorage interface {
	// GetObject opens a reader for an object. Caller must close the returned reader.
	GetObject(ctx context.Context, bucket, objectKey string) (io.ReadCloser, error)

	// StatObject returns size and ETag for an object.
	StatObject(ctx context.Context, bucket, objectKey string) (ObjectStat, error)

	// ListObjects streams keys under prefix; per-item failures are reported in ObjectInfo.Err.
	ListObjects(ctx context.Context, bucket, prefix string) <-chan ObjectInfo
}

// ObjectStat contains object metadata.
type ObjectStat struct {
	SizeBytes   int64
	ETag        string
	ContentType string
}

// ObjectInfo is one listing entry.
type ObjectInfo struct {
	Key       string
	SizeBytes int64
	Err       error
}
