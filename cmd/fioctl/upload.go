package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"regexp"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/seb26/fioctl/engine"
	"github.com/seb26/fioctl/store"
	"github.com/seb26/fioctl/ui"
)

// runUpload uploads local files and folder trees into a remote
// container, creating the remote folder structure as it goes.
func runUpload(args []string) int {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)

	configPath := fs.String("config", "", "Path to YAML config file")
	dest := fs.String("dest", "", "Destination container ID (required)")
	capacity := fs.Int("capacity", 0, "Number of concurrent transfers")
	rate := fs.Float64("rate", 0, "Submission rate per second")
	contentsOnly := fs.Bool("contents-only", false, "Upload folder contents without the enclosing folder")
	include := fs.String("include", "", "Regexp; only matching file names are uploaded")
	exclude := fs.String("exclude", "", "Regexp; matching file names are skipped")
	folderInclude := fs.String("folder-include", "", "Regexp; only matching folder names are descended")
	folderExclude := fs.String("folder-exclude", "", "Regexp; matching folder names are skipped")
	tuiEnabled := fs.Bool("tui", false, "Show interactive progress display")
	verbose := fs.Bool("verbose", false, "Enable debug logging")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: fioctl upload [options] <path>...

Upload files and folder trees to the destination container.

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return ExitInvalidArgs
	}

	if *dest == "" || fs.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Error: -dest and at least one source path are required")
		fs.Usage()
		return ExitInvalidArgs
	}

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

	var filters struct {
		files   engine.Filter
		folders engine.Filter
	}
	for _, f := range []struct {
		expr string
		dst  **regexp.Regexp
	}{
		{*include, &filters.files.Include},
		{*exclude, &filters.files.Exclude},
		{*folderInclude, &filters.folders.Include},
		{*folderExclude, &filters.folders.Exclude},
	} {
		if f.expr == "" {
			continue
		}
		re, err := regexp.Compile(f.expr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid filter %q: %v\n", f.expr, err)
			return ExitInvalidArgs
		}
		*f.dst = re
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

	journal, err := openJournal(cfg.JournalPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Journal error: %v\n", err)
		return ExitGeneralError
	}
	if journal != nil {
		defer journal.Close()
	}

	client := newAssetClient(cfg)
	retry := engine.RetryPolicy{Cap: cfg.Retry.Cap, Logger: logger}
	chunks := engine.NewChunkUploader(nil, retry, logger)
	stats := engine.NewTransferStats()

	var sink engine.ProgressSink
	var program *tea.Program
	stop := make(chan struct{})
	if *tuiEnabled {
		model := ui.NewModel("Upload", cfg.Capacity)
		program = tea.NewProgram(model, tea.WithAltScreen())
		sink = ui.NewSink(program)
		go ui.PollStats(program, stats, 200*time.Millisecond, stop)
	}

	uploader := engine.NewTreeUploader(client, chunks, engine.UploadOptions{
		Capacity:     cfg.Capacity,
		PerSec:       cfg.Rate,
		ContentsOnly: cfg.ContentsOnly || *contentsOnly,
		Folders:      filters.folders,
		Files:        filters.files,
	}, stats, sink, logger)

	results := uploader.Run(ctx, fs.Args(), *dest)

	var failed int
	collect := func() {
		for res := range results {
			if res.Outcome == engine.OutcomeFailed {
				failed++
			}
			if program == nil {
				printUploadResult(res)
			}
			if journal != nil {
				saveUploadRecord(journal, *dest, res)
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
	fmt.Fprintf(os.Stderr, "Uploaded %d/%d files (%s) in %s\n",
		snap.DoneFiles, snap.TotalFiles,
		engine.FormatBytes(snap.DoneBytes), snap.Elapsed.Round(time.Second))

	if failed > 0 {
		fmt.Fprintf(os.Stderr, "%d items failed\n", failed)
		return ExitPartialFailure
	}
	return ExitSuccess
}

func printUploadResult(res engine.UploadResult) {
	if res.Err != nil {
		fmt.Fprintf(os.Stderr, "failed   %s: %v\n", res.Source, res.Err)
		return
	}
	fmt.Printf("uploaded %s\n", res.Source)
}

func saveUploadRecord(journal store.Journal, destID string, res engine.UploadResult) {
	rec := &store.TransferRecord{
		Key:         "upload:" + res.Source,
		Direction:   store.DirectionUpload,
		Source:      res.Source,
		Destination: destID,
		Outcome:     string(res.Outcome),
		FinishedAt:  time.Now(),
	}
	if res.Asset != nil {
		rec.AssetID = res.Asset.ID
		rec.Bytes = res.Asset.Filesize
	}
	if res.Err != nil {
		rec.Error = res.Err.Error()
	}
	if err := journal.Save(rec); err != nil {
		fmt.Fprintf(os.Stderr, "journal: %v\n", err)
	}
}

func openJournal(path string) (store.Journal, error) {
	if path == "" {
		return nil, nil
	}
	return store.NewBoltJournal(path)
}
