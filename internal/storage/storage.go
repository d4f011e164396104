package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"
)

// Service stores event assets in remote object storage.
type Service interface {
	// PutObject uploads body under key and returns its s3:// location.
	PutObject(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
	// GetObjectURL returns a retrievable URL for a location returned by PutObject.
	GetObjectURL(ctx context.Context, location string, expires time.Duration) (string, error)
	DeleteObject(ctx context.Context, location string) error
}

// ParseLocation splits an s3://bucket/key location.
func ParseLocation(location string) (bucket, key string, err error) {
	if !strings.HasPrefix(location, "s3://") {
		return "", "", fmt.Errorf("invalid s3 location")
	}
	rest := strings.TrimPrefix(location, "s3://")
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) == 0 || parts[0] == "" {
		return "", "", fmt.Errorf("invalid s3 location")
	}
	if len(parts) == 1 || strings.TrimPrefix(parts[1], "/") == "" {
		return "", "", fmt.Errorf("s3 key missing")
	}
	return parts[0], strings.TrimPrefix(parts[1], "/"), nil
}

// Location formats an s3:// location.
func Location(bucket, key string) string {
	return fmt.Sprintf("s3://%s/%s", bucket, strings.TrimPrefix(key, "/"))
}
