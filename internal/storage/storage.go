package storage

import (
	"context"
	"io"
)

// PutOptions conveys the destination of a single object.
type PutOptions struct {
	Bucket      string
	Key         string
	ContentType string
}

// Service writes objects to remote object storage.
type Service interface {
	// PutObject uploads body and returns its s3:// location.
	PutObject(ctx context.Context, body io.Reader, opts PutOptions) (string, error)
}
