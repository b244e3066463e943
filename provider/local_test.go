package provider

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestLocalProvider_EnsureDir(t *testing.T) {
	base := t.TempDir()
	p := NewLocalProvider(base)

	if err := p.EnsureDir(context.Background(), "a/b/c"); err != nil {
		t.Fatalf("EnsureDir failed: %v", err)
	}

	info, err := os.Stat(filepath.Join(base, "a", "b", "c"))
	if err != nil {
		t.Fatalf("Expected directory to exist: %v", err)
	}
	if !info.IsDir() {
		t.Error("Expected a directory")
	}
}

func TestLocalProvider_OpenWrite(t *testing.T) {
	base := t.TempDir()
	p := NewLocalProvider(base)

	w, err := p.OpenWrite(context.Background(), "sub/file.txt")
	if err != nil {
		t.Fatalf("OpenWrite failed: %v", err)
	}
	if _, err := io.WriteString(w, "hello"); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(base, "sub", "file.txt"))
	if err != nil {
		t.Fatalf("Failed to read back: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("Expected hello, got %q", data)
	}
}

func TestLocalProvider_OpenWriteTruncates(t *testing.T) {
	base := t.TempDir()
	p := NewLocalProvider(base)

	for _, content := range []string{"first version", "second"} {
		w, err := p.OpenWrite(context.Background(), "file.txt")
		if err != nil {
			t.Fatalf("OpenWrite failed: %v", err)
		}
		if _, err := io.WriteString(w, content); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
		if err := w.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	}

	data, err := os.ReadFile(filepath.Join(base, "file.txt"))
	if err != nil {
		t.Fatalf("Failed to read back: %v", err)
	}
	if string(data) != "second" {
		t.Errorf("Expected the rewrite to truncate, got %q", data)
	}
}

func TestFromPath_Local(t *testing.T) {
	p, root, err := FromPath(context.Background(), "/data/downloads")
	if err != nil {
		t.Fatalf("FromPath failed: %v", err)
	}
	if _, ok := p.(*LocalProvider); !ok {
		t.Errorf("Expected LocalProvider, got %T", p)
	}
	if root != "/data/downloads" {
		t.Errorf("Expected root /data/downloads, got %s", root)
	}
}
