package storage

import (
	"context"
	"errors"
	"io"
)

var ErrObjectNotFound = errors.New("object not found")

type UploadResult struct {
	Key      string
	Location string
	ETag     string
}

// ObjectStore is the subset of an S3-compatible bucket the pipeline needs:
// definition files are read and listed, SQL exports are uploaded.
type ObjectStore interface {
	Get(ctx context.Context, key string) ([]byte, error)

	// List returns the keys directly or transitively under prefix.
	List(ctx context.Context, prefix string) ([]string, error)

	Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*UploadResult, error)

	GetPublicURL(key string) string
}
