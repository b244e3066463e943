package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"regexp"

	"github.com/seb26/fioctl/asset"
)

// ErrNoParentMapping is returned when a work item's parent directory
// has no remote container id, which happens only when creating that
// folder failed earlier and stranded the subtree.
var ErrNoParentMapping = errors.New("engine: no remote container for parent directory")

// Outcome classifies one attempted item.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
)

// Filter combines an include and an exclude pattern. A name passes when
// it matches the include pattern (absent means everything matches) and
// does not match the exclude pattern (absent means nothing is
// excluded).
type Filter struct {
	Include *regexp.Regexp
	Exclude *regexp.Regexp
}

// Match reports whether the name passes the filter.
func (f Filter) Match(name string) bool {
	if f.Include != nil && !f.Include.MatchString(name) {
		return false
	}
	if f.Exclude != nil && f.Exclude.MatchString(name) {
		return false
	}
	return true
}

// UploadOptions configures a tree upload run.
type UploadOptions struct {
	// Capacity bounds how many tree nodes are in flight at once.
	// Default: 5.
	Capacity int

	// PerSec is the target submission rate. Default: 10.
	PerSec float64

	// ContentsOnly attaches a folder root's immediate children
	// directly to the destination container instead of creating a
	// subfolder named after the root.
	ContentsOnly bool

	// Folders and Files filter discovered directory and file names
	// independently.
	Folders Filter
	Files   Filter
}

// UploadResult is the outcome record for one attempted item.
type UploadResult struct {
	Source  string
	Outcome Outcome
	Asset   *asset.Asset
	Err     error
}

type nodeKind int

const (
	nodeFile nodeKind = iota
	nodeFolder
)

// queueNode is a pending disk entity awaiting processing.
type queueNode struct {
	kind       nodeKind
	path       string
	originRoot string
}

// TreeUploader drives local filesystem discovery, remote folder
// creation, and file scheduling through the rate-limited executor.
// Folders are synchronous items so the directory index always holds a
// file's parent before the file is dispatched; files are asynchronous
// and complete in whatever order the network allows.
type TreeUploader struct {
	client asset.Client
	chunks *ChunkUploader
	slots  *SlotPool
	stats  *TransferStats
	sink   ProgressSink
	logger *slog.Logger
	opts   UploadOptions
}

// NewTreeUploader assembles an upload orchestrator. stats and sink may
// be nil when no progress display is attached.
func NewTreeUploader(client asset.Client, chunks *ChunkUploader, opts UploadOptions, stats *TransferStats, sink ProgressSink, logger *slog.Logger) *TreeUploader {
	if opts.Capacity <= 0 {
		opts.Capacity = 5
	}
	if opts.PerSec <= 0 {
		opts.PerSec = 10
	}
	if stats == nil {
		stats = NewTransferStats()
	}
	if sink == nil {
		sink = NopSink{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TreeUploader{
		client: client,
		chunks: chunks,
		slots:  NewSlotPool(opts.Capacity),
		stats:  stats,
		sink:   sink,
		logger: logger,
		opts:   opts,
	}
}

// Stats exposes the run's shared totals for display.
func (u *TreeUploader) Stats() *TransferStats {
	return u.stats
}

// Run walks every root, uploads its tree under destID, and streams one
// outcome record per attempted item. Folder creation failures strand
// only their own subtree; siblings and other roots continue.
func (u *TreeUploader) Run(ctx context.Context, roots []string, destID string) <-chan UploadResult {
	out := make(chan UploadResult)

	go func() {
		defer close(out)

		index := NewDirectoryIndex()
		exec := NewExecutor(u.opts.Capacity, u.opts.PerSec, u.processor(index))

		items := make(chan Item[queueNode])
		rootFailures := make(chan UploadResult, len(roots))
		go func() {
			defer close(items)
			defer close(rootFailures)
			u.discover(ctx, roots, destID, index, items, rootFailures)
		}()

		for res := range exec.Run(ctx, items) {
			out <- u.record(res)
		}
		for failure := range rootFailures {
			out <- failure
		}
	}()

	return out
}

// discover walks each root iteratively and feeds work items to the
// executor. Totals grow as files are found, even while earlier files
// are already transferring.
func (u *TreeUploader) discover(ctx context.Context, roots []string, destID string, index *DirectoryIndex, items chan<- Item[queueNode], rootFailures chan<- UploadResult) {
	emit := func(item Item[queueNode]) bool {
		select {
		case items <- item:
			return true
		case <-ctx.Done():
			return false
		}
	}

	for _, root := range roots {
		info, err := os.Stat(root)
		if err != nil {
			rootFailures <- UploadResult{Source: root, Outcome: OutcomeFailed, Err: err}
			continue
		}

		if !info.IsDir() {
			// A file root attaches directly to the destination
			// container; its origin is the parent directory.
			origin := filepath.Dir(root)
			index.Set(origin, destID)
			u.stats.AddDiscovered(info.Size())
			if !emit(Item[queueNode]{Value: queueNode{kind: nodeFile, path: root, originRoot: origin}}) {
				return
			}
			continue
		}

		containerID := destID
		if !u.opts.ContentsOnly {
			a, err := u.client.CreateAsset(ctx, destID, asset.CreateRequest{
				Type: asset.KindFolder,
				Name: filepath.Base(root),
			})
			if err != nil {
				u.logger.Error("failed to create remote folder for root", "root", root, "error", err)
				rootFailures <- UploadResult{Source: root, Outcome: OutcomeFailed, Err: err}
				continue
			}
			containerID = a.ID
		}
		index.Set(root, containerID)

		stack := []string{root}
		for len(stack) > 0 {
			dir := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			entries, err := os.ReadDir(dir)
			if err != nil {
				u.logger.Warn("cannot list directory", "dir", dir, "error", err)
				continue
			}

			for _, entry := range entries {
				name := entry.Name()
				path := filepath.Join(dir, name)

				if entry.IsDir() {
					if !u.opts.Folders.Match(name) {
						u.logger.Debug("filter skipped folder", "path", path)
						continue
					}
					if !emit(Item[queueNode]{Value: queueNode{kind: nodeFolder, path: path, originRoot: root}, Sync: true}) {
						return
					}
					stack = append(stack, path)
					continue
				}

				if !u.opts.Files.Match(name) {
					u.logger.Debug("filter skipped file", "path", path)
					continue
				}
				fi, err := entry.Info()
				if err != nil {
					u.logger.Warn("cannot stat file", "path", path, "error", err)
					continue
				}
				u.stats.AddDiscovered(fi.Size())
				if !emit(Item[queueNode]{Value: queueNode{kind: nodeFile, path: path, originRoot: root}}) {
					return
				}
			}
		}
	}
}

// processor returns the executor worker bound to this run's index.
func (u *TreeUploader) processor(index *DirectoryIndex) Worker[queueNode, UploadResult] {
	return func(ctx context.Context, node queueNode) (UploadResult, error) {
		switch node.kind {
		case nodeFolder:
			return u.createFolder(ctx, index, node)
		default:
			return u.uploadFile(ctx, index, node)
		}
	}
}

func (u *TreeUploader) createFolder(ctx context.Context, index *DirectoryIndex, node queueNode) (UploadResult, error) {
	parentID, ok := index.Get(filepath.Dir(node.path))
	if !ok {
		return UploadResult{}, fmt.Errorf("%w: %s", ErrNoParentMapping, node.path)
	}

	a, err := u.client.CreateAsset(ctx, parentID, asset.CreateRequest{
		Type: asset.KindFolder,
		Name: filepath.Base(node.path),
	})
	if err != nil {
		return UploadResult{}, fmt.Errorf("create folder %s: %w", node.path, err)
	}

	index.Set(node.path, a.ID)
	return UploadResult{
		Source:  u.display(node),
		Outcome: OutcomeSucceeded,
		Asset:   a,
	}, nil
}

func (u *TreeUploader) uploadFile(ctx context.Context, index *DirectoryIndex, node queueNode) (UploadResult, error) {
	parentID, ok := index.Get(filepath.Dir(node.path))
	if !ok {
		return UploadResult{}, fmt.Errorf("%w: %s", ErrNoParentMapping, node.path)
	}

	info, err := os.Stat(node.path)
	if err != nil {
		return UploadResult{}, fmt.Errorf("stat %s: %w", node.path, err)
	}

	name := filepath.Base(node.path)
	contentType := mime.TypeByExtension(filepath.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	a, err := u.client.CreateAsset(ctx, parentID, asset.CreateRequest{
		Type:     asset.KindFile,
		Name:     name,
		Filesize: info.Size(),
		Filetype: contentType,
	})
	if err != nil {
		return UploadResult{}, fmt.Errorf("create file asset %s: %w", node.path, err)
	}

	slot := u.slots.Acquire()
	defer func() {
		u.slots.Release(slot)
		u.sink.FileFinished(slot)
	}()

	prog := statsProgress{
		inner: u.sink.FileStarted(slot, u.display(node), info.Size()),
		stats: u.stats,
	}

	ok = u.chunks.Upload(ctx, TransferJob{
		LocalPath:   node.path,
		Name:        name,
		Size:        info.Size(),
		ContentType: contentType,
		UploadURLs:  a.UploadURLs,
	}, prog)
	u.stats.FileDone()

	outcome := OutcomeSucceeded
	if !ok {
		outcome = OutcomeFailed
	}
	return UploadResult{
		Source:  u.display(node),
		Outcome: outcome,
		Asset:   a,
	}, nil
}

// display renders a node relative to its origin root, the way results
// name their sources.
func (u *TreeUploader) display(node queueNode) string {
	rel, err := filepath.Rel(node.originRoot, node.path)
	if err != nil || rel == "." {
		return filepath.Base(node.path)
	}
	return rel
}

// record converts an executor result into the caller-facing outcome.
func (u *TreeUploader) record(res Result[queueNode, UploadResult]) UploadResult {
	if res.Err != nil {
		return UploadResult{
			Source:  u.display(res.Item),
			Outcome: OutcomeFailed,
			Err:     res.Err,
		}
	}
	return res.Value
}

// statsProgress fans per-file progress into the run totals.
type statsProgress struct {
	inner TransferProgress
	stats *TransferStats
}

func (p statsProgress) Activate() { p.inner.Activate() }

func (p statsProgress) Advance(n int64) {
	p.inner.Advance(n)
	p.stats.AddBytes(n)
}
