package engine_test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/seb26/fioctl/engine"
)

func TestChunkRanges(t *testing.T) {
	tests := []struct {
		name string
		size int64
		n    int
		want []engine.ChunkRange
	}{
		{
			name: "even split",
			size: 100,
			n:    4,
			want: []engine.ChunkRange{{0, 25}, {25, 25}, {50, 25}, {75, 25}},
		},
		{
			name: "remainder absorbed by last",
			size: 10,
			n:    3,
			want: []engine.ChunkRange{{0, 4}, {4, 4}, {8, 2}},
		},
		{
			name: "single chunk",
			size: 42,
			n:    1,
			want: []engine.ChunkRange{{0, 42}},
		},
		{
			name: "smaller than chunk count",
			size: 2,
			n:    4,
			want: []engine.ChunkRange{{0, 1}, {1, 1}, {2, 0}, {2, 0}},
		},
		{
			name: "empty file",
			size: 0,
			n:    2,
			want: []engine.ChunkRange{{0, 0}, {0, 0}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := engine.ChunkRanges(tt.size, tt.n)
			if len(got) != len(tt.want) {
				t.Fatalf("Expected %d ranges, got %d", len(tt.want), len(got))
			}
			var total int64
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("Range %d: expected %+v, got %+v", i, tt.want[i], got[i])
				}
				total += got[i].Length
			}
			if total != tt.size {
				t.Errorf("Ranges cover %d bytes, expected %d", total, tt.size)
			}
		})
	}
}

type recordingProgress struct {
	mu        sync.Mutex
	activated int
	advanced  int64
}

func (p *recordingProgress) Activate() {
	p.mu.Lock()
	p.activated++
	p.mu.Unlock()
}

func (p *recordingProgress) Advance(n int64) {
	p.mu.Lock()
	p.advanced += n
	p.mu.Unlock()
}

func TestChunkUploader_Upload(t *testing.T) {
	content := make([]byte, 1000)
	for i := range content {
		content[i] = byte(i % 251)
	}

	dir := t.TempDir()
	localPath := filepath.Join(dir, "clip.mov")
	if err := os.WriteFile(localPath, content, 0644); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}

	var mu sync.Mutex
	bodies := make(map[string][]byte)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("Expected PUT, got %s", r.Method)
		}
		if got := r.Header.Get("x-amz-acl"); got != "private" {
			t.Errorf("Expected x-amz-acl private, got %q", got)
		}
		if got := r.Header.Get("Content-Type"); got != "video/quicktime" {
			t.Errorf("Expected content type video/quicktime, got %q", got)
		}
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies[r.URL.Path] = body
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	urls := make([]string, 4)
	for i := range urls {
		urls[i] = fmt.Sprintf("%s/chunk/%d", server.URL, i)
	}

	uploader := engine.NewChunkUploader(server.Client(), engine.RetryPolicy{Cap: time.Millisecond}, nil)
	prog := &recordingProgress{}

	ok := uploader.Upload(context.Background(), engine.TransferJob{
		LocalPath:   localPath,
		Name:        "clip.mov",
		Size:        1000,
		ContentType: "video/quicktime",
		UploadURLs:  urls,
	}, prog)

	if !ok {
		t.Fatal("Expected upload to succeed")
	}

	var reassembled []byte
	for i := range urls {
		reassembled = append(reassembled, bodies[fmt.Sprintf("/chunk/%d", i)]...)
	}
	if len(reassembled) != len(content) {
		t.Fatalf("Expected %d uploaded bytes, got %d", len(content), len(reassembled))
	}
	for i := range content {
		if reassembled[i] != content[i] {
			t.Fatalf("Byte %d differs after reassembly", i)
		}
	}

	if prog.activated != 1 {
		t.Errorf("Expected exactly one activation, got %d", prog.activated)
	}
	if prog.advanced != 1000 {
		t.Errorf("Expected 1000 advanced bytes, got %d", prog.advanced)
	}
}

func TestChunkUploader_UploadReportsFailure(t *testing.T) {
	dir := t.TempDir()
	localPath := filepath.Join(dir, "clip.mov")
	if err := os.WriteFile(localPath, []byte("some bytes"), 0644); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}

	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	uploader := engine.NewChunkUploader(server.Client(), engine.RetryPolicy{Cap: time.Millisecond}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	ok := uploader.Upload(ctx, engine.TransferJob{
		LocalPath:   localPath,
		Name:        "clip.mov",
		Size:        10,
		ContentType: "application/octet-stream",
		UploadURLs:  []string{server.URL + "/only"},
	}, nil)

	if ok {
		t.Fatal("Expected upload to report failure")
	}
	if calls.Load() == 0 {
		t.Error("Expected at least one upload attempt")
	}
}
