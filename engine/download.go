package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/seb26/fioctl/asset"
	"github.com/seb26/fioctl/provider"
)

// DownloadOptions configures a recursive download run.
type DownloadOptions struct {
	// Capacity bounds how many tree nodes are in flight at once.
	// Default: 10.
	Capacity int

	// PerSec is the target submission rate. Default: 10.
	PerSec float64

	// Quality is the requested rendition: a tier (high|medium|low), an
	// explicit rendition name, or original/empty.
	Quality string

	// IncludeVersions recurses into version stacks as a "versions"
	// pseudo-folder instead of collapsing each stack to its cover
	// file. The two behaviors are mutually exclusive per run.
	IncludeVersions bool
}

// DownloadResult is the outcome record for one remote entity.
type DownloadResult struct {
	Destination string
	SourceID    string
	Outcome     Outcome
	Err         error
}

// remoteNode is a pending remote entity awaiting processing.
type remoteNode struct {
	kind     nodeKind
	asset    *asset.Asset
	destPath string
}

// TreeDownloader streams a remote container's tree to a destination
// provider. Directory records run synchronously so a file's local
// parent exists before its download dispatches; file downloads run
// through the rate-limited executor, each under a progress slot.
type TreeDownloader struct {
	client asset.Client
	dest   provider.Provider
	http   *http.Client
	slots  *SlotPool
	stats  *TransferStats
	sink   ProgressSink
	logger *slog.Logger
	opts   DownloadOptions
}

// NewTreeDownloader assembles a download orchestrator. httpClient may
// be nil to get a dedicated client with a tuned transport; stats and
// sink may be nil when no progress display is attached.
func NewTreeDownloader(client asset.Client, dest provider.Provider, httpClient *http.Client, opts DownloadOptions, stats *TransferStats, sink ProgressSink, logger *slog.Logger) *TreeDownloader {
	if opts.Capacity <= 0 {
		opts.Capacity = 10
	}
	if opts.PerSec <= 0 {
		opts.PerSec = 10
	}
	if httpClient == nil {
		httpClient = &http.Client{
			Transport: &http.Transport{
				MaxIdleConnsPerHost: opts.Capacity * 2,
				IdleConnTimeout:     90 * time.Second,
			},
		}
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
	return &TreeDownloader{
		client: client,
		dest:   dest,
		http:   httpClient,
		slots:  NewSlotPool(opts.Capacity),
		stats:  stats,
		sink:   sink,
		logger: logger,
		opts:   opts,
	}
}

// Stats exposes the run's shared totals for display.
func (d *TreeDownloader) Stats() *TransferStats {
	return d.stats
}

// Run traverses the container depth-first, preorder, and streams one
// record per entity. Sibling name collisions get a numeric suffix in
// encounter order.
func (d *TreeDownloader) Run(ctx context.Context, rootID, destRoot string) <-chan DownloadResult {
	out := make(chan DownloadResult)

	go func() {
		defer close(out)

		if err := d.dest.EnsureDir(ctx, destRoot); err != nil {
			out <- DownloadResult{Destination: destRoot, Outcome: OutcomeFailed, Err: err}
			return
		}

		exec := NewExecutor(d.opts.Capacity, d.opts.PerSec, d.process)

		items := make(chan Item[remoteNode])
		failures := make(chan DownloadResult)
		go func() {
			defer close(items)
			defer close(failures)
			d.traverse(ctx, rootID, destRoot, items, failures)
		}()

		execCh := exec.Run(ctx, items)
		failCh := (<-chan DownloadResult)(failures)
		for execCh != nil || failCh != nil {
			select {
			case res, ok := <-execCh:
				if !ok {
					execCh = nil
					continue
				}
				out <- d.record(res)
			case failure, ok := <-failCh:
				if !ok {
					failCh = nil
					continue
				}
				out <- failure
			}
		}
	}()

	return out
}

// frame is one level of the traversal: a container's children plus the
// per-parent sibling name counter.
type frame struct {
	destPath string
	children []asset.Asset
	next     int
	siblings map[string]int
}

// traverse walks the remote tree with an explicit frame stack, emitting
// each entity in depth-first preorder. Listing failures drop that
// subtree and surface as failed records.
func (d *TreeDownloader) traverse(ctx context.Context, rootID, destRoot string, items chan<- Item[remoteNode], failures chan<- DownloadResult) {
	emit := func(item Item[remoteNode]) bool {
		select {
		case items <- item:
			return true
		case <-ctx.Done():
			return false
		}
	}
	fail := func(res DownloadResult) bool {
		select {
		case failures <- res:
			return true
		case <-ctx.Done():
			return false
		}
	}
	push := func(stack []*frame, containerID, destPath string) []*frame {
		children, err := d.client.ListChildren(ctx, containerID)
		if err != nil {
			d.logger.Warn("cannot list container", "id", containerID, "error", err)
			fail(DownloadResult{Destination: destPath, SourceID: containerID, Outcome: OutcomeFailed, Err: err})
			return stack
		}
		return append(stack, &frame{
			destPath: destPath,
			children: children,
			siblings: make(map[string]int),
		})
	}

	stack := push(nil, rootID, destRoot)
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		if top.next == len(top.children) {
			stack = stack[:len(stack)-1]
			continue
		}

		child := top.children[top.next]
		top.next++

		name := resolveSibling(top.siblings, filepath.Join(top.destPath, child.Name))

		switch child.Kind {
		case asset.KindFolder:
			node := remoteNode{kind: nodeFolder, asset: &child, destPath: name}
			if !emit(Item[remoteNode]{Value: node, Sync: true}) {
				return
			}
			stack = push(stack, child.ID, name)

		case asset.KindVersionStack:
			if d.opts.IncludeVersions {
				node := remoteNode{kind: nodeFolder, asset: &child, destPath: name}
				if !emit(Item[remoteNode]{Value: node, Sync: true}) {
					return
				}
				stack = push(stack, child.ID, filepath.Join(name, "versions"))
				continue
			}
			// Flat mode: the stack collapses to its designated cover.
			if child.Cover == nil {
				fail(DownloadResult{Destination: name, SourceID: child.ID, Outcome: OutcomeFailed,
					Err: fmt.Errorf("version stack %s has no cover asset", child.ID)})
				continue
			}
			d.stats.AddDiscovered(child.Cover.Filesize)
			if !emit(Item[remoteNode]{Value: remoteNode{kind: nodeFile, asset: child.Cover, destPath: name}}) {
				return
			}

		default:
			d.stats.AddDiscovered(child.Filesize)
			if !emit(Item[remoteNode]{Value: remoteNode{kind: nodeFile, asset: &child, destPath: name}}) {
				return
			}
		}
	}
}

// resolveSibling applies the per-parent collision counter: the n-th
// occurrence of a name gains a _n suffix before the extension.
func resolveSibling(siblings map[string]int, name string) string {
	siblings[name]++
	n := siblings[name]
	if n == 1 {
		return name
	}
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	return fmt.Sprintf("%s_%d%s", base, n, ext)
}

// process is the executor worker for one remote node.
func (d *TreeDownloader) process(ctx context.Context, node remoteNode) (DownloadResult, error) {
	if node.kind == nodeFolder {
		if err := d.dest.EnsureDir(ctx, node.destPath); err != nil {
			return DownloadResult{}, fmt.Errorf("create directory %s: %w", node.destPath, err)
		}
		return DownloadResult{
			Destination: node.destPath,
			SourceID:    node.asset.ID,
			Outcome:     OutcomeSucceeded,
		}, nil
	}
	return d.downloadFile(ctx, node)
}

func (d *TreeDownloader) downloadFile(ctx context.Context, node remoteNode) (DownloadResult, error) {
	rendition, url, err := asset.ResolveRendition(node.asset, d.opts.Quality)
	if err != nil {
		return DownloadResult{}, err
	}

	dir, base := filepath.Split(node.destPath)
	destPath := filepath.Join(dir, asset.RenditionFilename(base, rendition))

	slot := d.slots.Acquire()
	defer func() {
		d.slots.Release(slot)
		d.sink.FileFinished(slot)
	}()

	prog := statsProgress{
		inner: d.sink.FileStarted(slot, destPath, node.asset.Filesize),
		stats: d.stats,
	}
	defer d.stats.FileDone()

	if err := d.fetch(ctx, url, destPath, prog); err != nil {
		return DownloadResult{}, fmt.Errorf("download %s: %w", destPath, err)
	}

	return DownloadResult{
		Destination: destPath,
		SourceID:    node.asset.ID,
		Outcome:     OutcomeSucceeded,
	}, nil
}

// fetch streams the rendition URL into the destination provider.
func (d *TreeDownloader) fetch(ctx context.Context, url, destPath string, prog TransferProgress) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := d.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	w, err := d.dest.OpenWrite(ctx, destPath)
	if err != nil {
		return err
	}

	prog.Activate()
	if _, err := io.Copy(&progressWriter{w: w, prog: prog}, resp.Body); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

// record converts an executor result into the caller-facing outcome.
func (d *TreeDownloader) record(res Result[remoteNode, DownloadResult]) DownloadResult {
	if res.Err != nil {
		return DownloadResult{
			Destination: res.Item.destPath,
			SourceID:    res.Item.asset.ID,
			Outcome:     OutcomeFailed,
			Err:         res.Err,
		}
	}
	return res.Value
}

// progressWriter reports written bytes to the progress tracker.
type progressWriter struct {
	w    io.Writer
	prog TransferProgress
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	n, err := pw.w.Write(p)
	if n > 0 {
		pw.prog.Advance(int64(n))
	}
	return n, err
}
