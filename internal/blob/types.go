package blob

import (
	"context"
	"errors"
	"time"
)

var (
	ErrObjectNotFound = errors.New("object not found")
)

// Backend defines the object store operations consumed by the upload
// pipeline. It is implemented by the S3 backend and by test fakes.
// Implementations must be safe for concurrent use by multiple workers.
type Backend interface {
	// PutFile uploads a local file under key with the given metadata
	PutFile(ctx context.Context, params *PutFileParams) (*PutFileResponse, error)

	// Head returns the remote object's reported size and ETag.
	// Returns ErrObjectNotFound if the key does not exist.
	Head(ctx context.Context, key string) (*HeadResponse, error)

	// EnsureBucket creates the configured bucket if it does not exist.
	// Idempotent; called once at startup.
	EnsureBucket(ctx context.Context) error
}

type PutFileParams struct {
	Key      string
	FilePath string
	Metadata map[string]string
}

type PutFileResponse struct {
	Key     string
	ETag    string
	Version string
}

type HeadResponse struct {
	Size         int64
	ETag         string
	LastModified time.Time
}
