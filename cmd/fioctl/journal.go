package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/seb26/fioctl/engine"
	"github.com/seb26/fioctl/store"
)

// runJournal prints recorded transfer outcomes from the journal.
func runJournal(args []string) int {
	fs := flag.NewFlagSet("journal", flag.ExitOnError)

	configPath := fs.String("config", "", "Path to YAML config file")
	journalPath := fs.String("journal", "", "Path to the journal database (overrides config)")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: fioctl journal [options]

Print every recorded transfer outcome.

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return ExitInvalidArgs
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		return ExitConfigError
	}

	path := cfg.JournalPath
	if *journalPath != "" {
		path = *journalPath
	}
	if path == "" {
		fmt.Fprintln(os.Stderr, "Error: no journal path configured")
		return ExitInvalidArgs
	}

	journal, err := store.NewBoltJournal(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Journal error: %v\n", err)
		return ExitGeneralError
	}
	defer journal.Close()

	recs, err := journal.List()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Journal error: %v\n", err)
		return ExitGeneralError
	}

	for _, rec := range recs {
		line := fmt.Sprintf("%s  %-8s  %-9s  %s -> %s",
			rec.FinishedAt.Format("2006-01-02 15:04:05"),
			rec.Direction, rec.Outcome, rec.Source, rec.Destination)
		if rec.Bytes > 0 {
			line += fmt.Sprintf("  (%s)", engine.FormatBytes(rec.Bytes))
		}
		if rec.Error != "" {
			line += fmt.Sprintf("  error: %s", rec.Error)
		}
		fmt.Fprintln(os.Stdout, line)
	}
	return ExitSuccess
}
