package engine_test

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/seb26/fioctl/asset"
	"github.com/seb26/fioctl/engine"
)

// memProvider is an in-memory download destination.
type memProvider struct {
	mu    sync.Mutex
	dirs  []string
	files map[string][]byte
}

func newMemProvider() *memProvider {
	return &memProvider{files: make(map[string][]byte)}
}

func (p *memProvider) EnsureDir(ctx context.Context, path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dirs = append(p.dirs, path)
	return nil
}

func (p *memProvider) OpenWrite(ctx context.Context, path string) (io.WriteCloser, error) {
	return &memWriter{provider: p, path: path}, nil
}

func (p *memProvider) hasDir(path string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, d := range p.dirs {
		if d == path {
			return true
		}
	}
	return false
}

func (p *memProvider) file(path string) ([]byte, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	data, ok := p.files[path]
	return data, ok
}

func (p *memProvider) fileNames() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	names := make([]string, 0, len(p.files))
	for name := range p.files {
		names = append(names, name)
	}
	return names
}

type memWriter struct {
	provider *memProvider
	path     string
	buf      bytes.Buffer
}

func (w *memWriter) Write(p []byte) (int, error) {
	return w.buf.Write(p)
}

func (w *memWriter) Close() error {
	w.provider.mu.Lock()
	defer w.provider.mu.Unlock()
	w.provider.files[w.path] = w.buf.Bytes()
	return nil
}

func serveContent(t *testing.T, content map[string]string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := content[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		io.WriteString(w, body)
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestDownloader(client asset.Client, dest *memProvider, opts engine.DownloadOptions) *engine.TreeDownloader {
	return engine.NewTreeDownloader(client, dest, nil, opts, nil, nil, nil)
}

func TestTreeDownloader_DownloadsTree(t *testing.T) {
	server := serveContent(t, map[string]string{
		"/notes": "meeting notes",
		"/clip":  "clip bytes",
	})

	client := newFakeClient("")
	client.children["root"] = []asset.Asset{
		{ID: "f1", Name: "footage", Kind: asset.KindFolder},
		{ID: "n1", Name: "notes.txt", Kind: asset.KindFile, Filesize: 13, OriginalURL: server.URL + "/notes"},
	}
	client.children["f1"] = []asset.Asset{
		{ID: "c1", Name: "clip.mov", Kind: asset.KindFile, Filesize: 10, OriginalURL: server.URL + "/clip"},
		{ID: "c2", Name: "clip.mov", Kind: asset.KindFile, Filesize: 10, OriginalURL: server.URL + "/clip"},
	}

	dest := newMemProvider()
	downloader := newTestDownloader(client, dest, engine.DownloadOptions{Capacity: 2, PerSec: 1000})

	var failed int
	for res := range downloader.Run(context.Background(), "root", "out") {
		if res.Outcome == engine.OutcomeFailed {
			failed++
			t.Errorf("Unexpected failure for %s: %v", res.Destination, res.Err)
		}
	}
	if failed != 0 {
		t.Fatalf("Expected no failures, got %d", failed)
	}

	if !dest.hasDir("out") {
		t.Error("Expected the destination root to be created")
	}
	if !dest.hasDir(filepath.Join("out", "footage")) {
		t.Error("Expected the footage directory to be created")
	}

	if data, ok := dest.file(filepath.Join("out", "notes.txt")); !ok {
		t.Error("Expected notes.txt to download")
	} else if string(data) != "meeting notes" {
		t.Errorf("notes.txt content: got %q", data)
	}

	// Duplicate sibling names get numeric suffixes in encounter order
	if _, ok := dest.file(filepath.Join("out", "footage", "clip.mov")); !ok {
		t.Errorf("Expected clip.mov, have %v", dest.fileNames())
	}
	if _, ok := dest.file(filepath.Join("out", "footage", "clip_2.mov")); !ok {
		t.Errorf("Expected clip_2.mov, have %v", dest.fileNames())
	}
}

func TestTreeDownloader_VersionStackFlat(t *testing.T) {
	server := serveContent(t, map[string]string{"/cover": "cover bytes"})

	client := newFakeClient("")
	client.children["root"] = []asset.Asset{
		{
			ID:   "vs1",
			Name: "hero.mov",
			Kind: asset.KindVersionStack,
			Cover: &asset.Asset{
				ID: "v3", Name: "hero_v3.mov", Kind: asset.KindFile,
				Filesize: 11, OriginalURL: server.URL + "/cover",
			},
		},
	}

	dest := newMemProvider()
	downloader := newTestDownloader(client, dest, engine.DownloadOptions{Capacity: 2, PerSec: 1000})

	for res := range downloader.Run(context.Background(), "root", "out") {
		if res.Err != nil {
			t.Errorf("Unexpected failure for %s: %v", res.Destination, res.Err)
		}
	}

	// The cover lands under the stack's name, not the version's
	if data, ok := dest.file(filepath.Join("out", "hero.mov")); !ok {
		t.Errorf("Expected hero.mov from the cover, have %v", dest.fileNames())
	} else if string(data) != "cover bytes" {
		t.Errorf("hero.mov content: got %q", data)
	}
}

func TestTreeDownloader_VersionStackWithoutCover(t *testing.T) {
	client := newFakeClient("")
	client.children["root"] = []asset.Asset{
		{ID: "vs1", Name: "hero.mov", Kind: asset.KindVersionStack},
	}

	dest := newMemProvider()
	downloader := newTestDownloader(client, dest, engine.DownloadOptions{Capacity: 2, PerSec: 1000})

	var failures int
	for res := range downloader.Run(context.Background(), "root", "out") {
		if res.Outcome == engine.OutcomeFailed {
			failures++
			if res.SourceID != "vs1" {
				t.Errorf("Expected failure for vs1, got %s", res.SourceID)
			}
		}
	}
	if failures != 1 {
		t.Errorf("Expected 1 failure for the coverless stack, got %d", failures)
	}
}

func TestTreeDownloader_IncludeVersions(t *testing.T) {
	server := serveContent(t, map[string]string{
		"/v1": "version one",
		"/v2": "version two",
	})

	client := newFakeClient("")
	client.children["root"] = []asset.Asset{
		{ID: "vs1", Name: "hero.mov", Kind: asset.KindVersionStack},
	}
	client.children["vs1"] = []asset.Asset{
		{ID: "v1", Name: "hero_v1.mov", Kind: asset.KindFile, Filesize: 11, OriginalURL: server.URL + "/v1"},
		{ID: "v2", Name: "hero_v2.mov", Kind: asset.KindFile, Filesize: 11, OriginalURL: server.URL + "/v2"},
	}

	dest := newMemProvider()
	downloader := newTestDownloader(client, dest, engine.DownloadOptions{
		Capacity: 2, PerSec: 1000, IncludeVersions: true,
	})

	for res := range downloader.Run(context.Background(), "root", "out") {
		if res.Err != nil {
			t.Errorf("Unexpected failure for %s: %v", res.Destination, res.Err)
		}
	}

	versionsDir := filepath.Join("out", "hero.mov", "versions")
	if _, ok := dest.file(filepath.Join(versionsDir, "hero_v1.mov")); !ok {
		t.Errorf("Expected hero_v1.mov under %s, have %v", versionsDir, dest.fileNames())
	}
	if _, ok := dest.file(filepath.Join(versionsDir, "hero_v2.mov")); !ok {
		t.Errorf("Expected hero_v2.mov under %s, have %v", versionsDir, dest.fileNames())
	}
}

func TestTreeDownloader_QualityRendition(t *testing.T) {
	server := serveContent(t, map[string]string{"/proxy": "proxy bytes"})

	client := newFakeClient("")
	client.children["root"] = []asset.Asset{
		{
			ID: "c1", Name: "clip.mov", Kind: asset.KindFile, Filesize: 11,
			OriginalURL: server.URL + "/orig",
			Renditions:  map[string]string{"h264_1080_best": server.URL + "/proxy"},
		},
	}

	dest := newMemProvider()
	downloader := newTestDownloader(client, dest, engine.DownloadOptions{
		Capacity: 2, PerSec: 1000, Quality: "high",
	})

	for res := range downloader.Run(context.Background(), "root", "out") {
		if res.Err != nil {
			t.Errorf("Unexpected failure for %s: %v", res.Destination, res.Err)
		}
	}

	want := filepath.Join("out", "clip.h264_1080_best.mp4")
	if data, ok := dest.file(want); !ok {
		t.Errorf("Expected %s, have %v", want, dest.fileNames())
	} else if string(data) != "proxy bytes" {
		t.Errorf("Rendition content: got %q", data)
	}
}

func TestTreeDownloader_ListFailureStrandsSubtree(t *testing.T) {
	server := serveContent(t, map[string]string{"/a": "a bytes"})

	client := newFakeClient("")
	client.children["root"] = []asset.Asset{
		{ID: "bad", Name: "broken", Kind: asset.KindFolder},
		{ID: "a1", Name: "a.txt", Kind: asset.KindFile, Filesize: 7, OriginalURL: server.URL + "/a"},
	}
	client.listErr = map[string]bool{"bad": true}

	dest := newMemProvider()
	downloader := newTestDownloader(client, dest, engine.DownloadOptions{Capacity: 2, PerSec: 1000})

	var failures, successes int
	for res := range downloader.Run(context.Background(), "root", "out") {
		if res.Outcome == engine.OutcomeFailed {
			failures++
			continue
		}
		successes++
	}

	if failures != 1 {
		t.Errorf("Expected 1 failure for the broken container, got %d", failures)
	}
	if _, ok := dest.file(filepath.Join("out", "a.txt")); !ok {
		t.Error("Expected a.txt to download despite the broken sibling")
	}
	if successes == 0 {
		t.Error("Expected successful records alongside the failure")
	}
}
