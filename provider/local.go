package provider

import (
	"context"
	"io"
	"os"
	"path/filepath"
)

// LocalProvider writes downloads to a posix filesystem.
type LocalProvider struct {
	basePath string
}

// NewLocalProvider creates a LocalProvider rooted at basePath. If
// basePath is empty, it acts upon absolute or relative paths directly.
func NewLocalProvider(basePath string) *LocalProvider {
	return &LocalProvider{basePath: basePath}
}

func (p *LocalProvider) resolve(path string) string {
	if p.basePath == "" {
		return path
	}
	return filepath.Join(p.basePath, filepath.Clean(path))
}

// EnsureDir creates the directory and any missing parents.
func (p *LocalProvider) EnsureDir(ctx context.Context, path string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	return os.MkdirAll(p.resolve(path), 0755)
}

// OpenWrite opens a file for writing, creating parent directories.
func (p *LocalProvider) OpenWrite(ctx context.Context, path string) (io.WriteCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	fullPath := p.resolve(path)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return nil, err
	}
	return os.OpenFile(fullPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
}
