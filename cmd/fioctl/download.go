package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/seb26/fioctl/engine"
	"github.com/seb26/fioctl/provider"
	"github.com/seb26/fioctl/store"
	"github.com/seb26/fioctl/ui"
)

// runDownload downloads a remote asset tree to a local path or an
// s3://bucket/prefix destination.
func runDownload(args []string) int {
	fs := flag.NewFlagSet("download", flag.ExitOnError)

	configPath := fs.String("config", "", "Path to YAML config file")
	capacity := fs.Int("capacity", 0, "Number of concurrent transfers")
	rate := fs.Float64("rate", 0, "Submission rate per second")
	quality := fs.String("quality", "", "Rendition to fetch: high, medium, low, an explicit rendition name, or original")
	includeVersions := fs.Bool("include-versions", false, "Download every version of version stacks under a versions folder")
	tuiEnabled := fs.Bool("tui", false, "Show interactive progress display")
	verbose := fs.Bool("verbose", false, "Enable debug logging")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: fioctl download [options] <asset-id> <dest>

Download a remote asset tree. <dest> is a local directory or an
s3://bucket/prefix destination.

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return ExitInvalidArgs
	}

	if fs.NArg() != 2 {
		fmt.Fprintln(os.Stderr, "Error: <asset-id> and <dest> are required")
		fs.Usage()
		return ExitInvalidArgs
	}
	assetID, dest := fs.Arg(0), fs.Arg(1)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		return ExitConfigError
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		return ExitConfigError
	}
	if *capacity != 0 {
		cfg.Capacity = *capacity
	}
	if *rate != 0 {
		cfg.Rate = *rate
	}
	if *quality != "" {
		cfg.Quality = *quality
	}

	logger := newLogger(*verbose)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nReceived interrupt, shutting down...")
		cancel()
	}()

	dst, destRoot, err := provider.FromPath(ctx, dest)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Destination error: %v\n", err)
		return ExitGeneralError
	}

	journal, err := openJournal(cfg.JournalPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Journal error: %v\n", err)
		return ExitGeneralError
	}
	if journal != nil {
		defer journal.Close()
	}

	client := newAssetClient(cfg)
	stats := engine.NewTransferStats()

	var sink engine.ProgressSink
	var program *tea.Program
	stop := make(chan struct{})
	if *tuiEnabled {
		model := ui.NewModel("Download", cfg.Capacity)
		program = tea.NewProgram(model, tea.WithAltScreen())
		sink = ui.NewSink(program)
		go ui.PollStats(program, stats, 200*time.Millisecond, stop)
	}

	downloader := engine.NewTreeDownloader(client, dst, nil, engine.DownloadOptions{
		Capacity:        cfg.Capacity,
		PerSec:          cfg.Rate,
		Quality:         cfg.Quality,
		IncludeVersions: cfg.IncludeVersions || *includeVersions,
	}, stats, sink, logger)

	results := downloader.Run(ctx, assetID, destRoot)

	var failed int
	collect := func() {
		for res := range results {
			if res.Outcome == engine.OutcomeFailed {
				failed++
			}
			if program == nil {
				printDownloadResult(res)
			}
			if journal != nil {
				saveDownloadRecord(journal, res)
			}
		}
	}

	if program != nil {
		done := make(chan struct{})
		go func() {
			collect()
			close(stop)
			close(done)
		}()
		if _, err := program.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "Display error: %v\n", err)
		}
		cancel()
		<-done
	} else {
		collect()
	}

	snap := stats.Snapshot()
	fmt.Fprintf(os.Stderr, "Downloaded %d/%d files (%s) in %s\n",
		snap.DoneFiles, snap.TotalFiles,
		engine.FormatBytes(snap.DoneBytes), snap.Elapsed.Round(time.Second))

	if failed > 0 {
		fmt.Fprintf(os.Stderr, "%d items failed\n", failed)
		return ExitPartialFailure
	}
	return ExitSuccess
}

func printDownloadResult(res engine.DownloadResult) {
	if res.Err != nil {
		fmt.Fprintf(os.Stderr, "failed     %s: %v\n", res.Destination, res.Err)
		return
	}
	fmt.Printf("downloaded %s\n", res.Destination)
}

func saveDownloadRecord(journal store.Journal, res engine.DownloadResult) {
	rec := &store.TransferRecord{
		Key:         "download:" + res.Destination,
		Direction:   store.DirectionDownload,
		Source:      res.SourceID,
		Destination: res.Destination,
		Outcome:     string(res.Outcome),
		FinishedAt:  time.Now(),
	}
	if res.Err != nil {
		rec.Error = res.Err.Error()
	}
	if err := journal.Save(rec); err != nil {
		fmt.Fprintf(os.Stderr, "journal: %v\n", err)
	}
}
