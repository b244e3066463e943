package engine

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"
)

// chunkWorkers is the fixed per-file parallelism for chunk uploads,
// nested inside whatever outer capacity scheduled the file itself.
const chunkWorkers = 5

// TransferJob is one file upload: the local source, its total size, and
// the presigned destination URL per chunk. The remote side fixes the
// URL count; chunk sizes follow from it.
type TransferJob struct {
	LocalPath   string
	Name        string
	Size        int64
	ContentType string
	UploadURLs  []string
}

// ChunkRange is one contiguous byte range of a file.
type ChunkRange struct {
	Offset int64
	Length int64
}

// ChunkRanges partitions [0, size) into n contiguous non-overlapping
// ranges. Every range except the last has length ceil(size/n); the last
// absorbs the remainder. Degenerate tails (when size < n) come out
// empty rather than past end-of-file.
func ChunkRanges(size int64, n int) []ChunkRange {
	if n <= 0 {
		return nil
	}
	chunkSize := (size + int64(n) - 1) / int64(n)
	ranges := make([]ChunkRange, n)
	for i := 0; i < n; i++ {
		offset := int64(i) * chunkSize
		if offset > size {
			offset = size
		}
		end := offset + chunkSize
		if end > size || i == n-1 {
			end = size
		}
		ranges[i] = ChunkRange{Offset: offset, Length: end - offset}
	}
	return ranges
}

// ChunkUploader performs parallel multi-part uploads. It owns an
// explicit HTTP client whose connection pool is shared by every chunk
// worker; nothing is cached per goroutine.
type ChunkUploader struct {
	client *http.Client
	retry  RetryPolicy
	logger *slog.Logger
}

// NewChunkUploader creates an uploader around the given HTTP client.
// A nil client gets a dedicated one with a tuned transport.
func NewChunkUploader(client *http.Client, retry RetryPolicy, logger *slog.Logger) *ChunkUploader {
	if client == nil {
		client = &http.Client{
			Transport: &http.Transport{
				MaxIdleConnsPerHost: chunkWorkers * 4,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ChunkUploader{client: client, retry: retry, logger: logger}
}

type chunkResult struct {
	index int
	bytes int64
	err   error
}

// Upload transmits every chunk of the job concurrently and reports
// overall success. A chunk that still fails once retries are exhausted
// makes the whole job false; that is logged as a warning, never raised.
// The first completed chunk activates the progress tracker.
func (u *ChunkUploader) Upload(ctx context.Context, job TransferJob, prog TransferProgress) bool {
	if prog == nil {
		prog = NopProgress{}
	}

	start := time.Now()
	ranges := ChunkRanges(job.Size, len(job.UploadURLs))

	indices := make(chan int)
	results := make(chan chunkResult, len(ranges))
	for i := 0; i < chunkWorkers; i++ {
		go func() {
			for idx := range indices {
				n, err := u.uploadChunk(ctx, job, idx, ranges[idx])
				results <- chunkResult{index: idx, bytes: n, err: err}
			}
		}()
	}

	go func() {
		defer close(indices)
		for i := range ranges {
			select {
			case indices <- i:
			case <-ctx.Done():
				return
			}
		}
	}()

	activated := false
	failed := false
collect:
	for range ranges {
		var res chunkResult
		select {
		case res = <-results:
		case <-ctx.Done():
			failed = true
			break collect
		}
		if !activated {
			prog.Activate()
			activated = true
		}
		if res.err != nil {
			u.logger.Warn("chunk upload failed",
				"file", job.Name,
				"chunk", res.index,
				"error", res.err,
			)
			failed = true
			continue
		}
		prog.Advance(res.bytes)
	}

	if failed {
		u.logger.Warn("upload did not complete successfully", "file", job.Name)
		return false
	}

	elapsed := time.Since(start)
	speed := float64(job.Size) / elapsed.Seconds()
	u.logger.Info("upload completed",
		"file", job.Name,
		"elapsed", elapsed.Round(time.Millisecond),
		"speed", FormatBytesPerSec(speed),
		"speed_bits", FormatMbps(speed),
	)
	return true
}

// uploadChunk reads one byte range from the source file and PUTs it to
// the chunk's presigned URL, retrying per policy. The last chunk reads
// to end-of-file regardless of rounding.
func (u *ChunkUploader) uploadChunk(ctx context.Context, job TransferJob, index int, rng ChunkRange) (int64, error) {
	data, err := u.readChunk(job, index, rng)
	if err != nil {
		return 0, fmt.Errorf("read chunk %d of %s: %w", index, job.LocalPath, err)
	}

	url := job.UploadURLs[index]
	err = u.retry.Do(ctx, func() error {
		return u.put(ctx, url, job.ContentType, data)
	})
	if err != nil {
		return 0, fmt.Errorf("upload chunk %d of %s: %w", index, job.Name, err)
	}
	return int64(len(data)), nil
}

func (u *ChunkUploader) readChunk(job TransferJob, index int, rng ChunkRange) ([]byte, error) {
	f, err := os.Open(job.LocalPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if _, err := f.Seek(rng.Offset, io.SeekStart); err != nil {
		return nil, err
	}

	if index == len(job.UploadURLs)-1 {
		return io.ReadAll(f)
	}
	return io.ReadAll(io.LimitReader(f, rng.Length))
}

func (u *ChunkUploader) put(ctx context.Context, url, contentType string, data []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-amz-acl", "private")

	resp, err := u.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
