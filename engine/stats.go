package engine

import (
	"sync/atomic"
	"time"
)

// TransferStats holds the running totals for one upload or download
// run. Totals grow lazily during discovery while earlier files are
// already transferring, so every field is updated atomically. The
// struct is owned by the orchestrator and handed to whoever renders
// progress; there is no package-level state.
type TransferStats struct {
	totalFiles atomic.Int64
	totalBytes atomic.Int64
	doneFiles  atomic.Int64
	doneBytes  atomic.Int64
	startedAt  time.Time
}

// NewTransferStats returns stats with the clock started.
func NewTransferStats() *TransferStats {
	return &TransferStats{startedAt: time.Now()}
}

// AddDiscovered registers a newly discovered file and its size.
func (s *TransferStats) AddDiscovered(size int64) {
	s.totalFiles.Add(1)
	s.totalBytes.Add(size)
}

// AddBytes registers transferred bytes.
func (s *TransferStats) AddBytes(n int64) {
	s.doneBytes.Add(n)
}

// FileDone registers one completed file.
func (s *TransferStats) FileDone() {
	s.doneFiles.Add(1)
}

// Snapshot returns a point-in-time copy for display.
func (s *TransferStats) Snapshot() StatsSnapshot {
	elapsed := time.Since(s.startedAt)
	snap := StatsSnapshot{
		TotalFiles: s.totalFiles.Load(),
		TotalBytes: s.totalBytes.Load(),
		DoneFiles:  s.doneFiles.Load(),
		DoneBytes:  s.doneBytes.Load(),
		Elapsed:    elapsed,
	}
	if elapsed > 0 {
		snap.BytesPerSec = float64(snap.DoneBytes) / elapsed.Seconds()
	}
	return snap
}

// StatsSnapshot is a consistent-enough view of a run's progress.
type StatsSnapshot struct {
	TotalFiles  int64
	TotalBytes  int64
	DoneFiles   int64
	DoneBytes   int64
	Elapsed     time.Duration
	BytesPerSec float64
}
