package engine

// TransferProgress receives per-file progress events from a transfer.
// Activate fires once, on the first completed chunk, moving the file
// from pending to active; Advance reports completed bytes.
type TransferProgress interface {
	Activate()
	Advance(n int64)
}

// ProgressSink allocates per-file progress trackers for a run. The slot
// identifies the display row the transfer occupies for its duration.
type ProgressSink interface {
	FileStarted(slot int, name string, size int64) TransferProgress
	FileFinished(slot int)
}

// NopProgress discards all progress events.
type NopProgress struct{}

func (NopProgress) Activate() {}

func (NopProgress) Advance(int64) {}

// NopSink discards per-file progress entirely.
type NopSink struct{}

func (NopSink) FileStarted(int, string, int64) TransferProgress { return NopProgress{} }
func (NopSink) FileFinished(int) {}
