package provider

import (
	"context"
	"io"
	"strings"
)

// Provider is a destination for downloaded assets. A typical Provider
// is the local filesystem or an S3 bucket.
type Provider interface {
	// EnsureDir creates the directory (and any missing parents) so
	// that files can be placed under it.
	EnsureDir(ctx context.Context, path string) error

	// OpenWrite opens a file for streaming writes, creating missing
	// parent directories.
	OpenWrite(ctx context.Context, path string) (io.WriteCloser, error)
}

// FromPath picks a provider for a destination string. s3://bucket/prefix
// selects the S3 provider with paths resolved under the prefix;
// anything else is a local path.
func FromPath(ctx context.Context, dest string) (Provider, string, error) {
	if strings.HasPrefix(dest, "s3://") {
		rest := strings.TrimPrefix(dest, "s3://")
		bucket, prefix, _ := strings.Cut(rest, "/")
		p, err := NewS3Provider(ctx, bucket, prefix)
		if err != nil {
			return nil, "", err
		}
		return p, "", nil
	}
	return NewLocalProvider(""), dest, nil
}
