package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/seb26/fioctl/asset"
	"github.com/seb26/fioctl/engine"
)

// runList lists the children of one or more containers as a single
// stream, merged by name.
func runList(args []string) int {
	fs := flag.NewFlagSet("list", flag.ExitOnError)

	configPath := fs.String("config", "", "Path to YAML config file")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: fioctl list [options] <asset-id>...

List the children of each container, merged into one name-ordered stream.

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return ExitInvalidArgs
	}

	if fs.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Error: at least one <asset-id> is required")
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

	client := newAssetClient(cfg)
	ctx := context.Background()

	streams := make([]<-chan asset.Asset, 0, fs.NArg())
	errs := make(chan error, fs.NArg())
	for _, id := range fs.Args() {
		ch := make(chan asset.Asset)
		streams = append(streams, ch)
		go func(id string, out chan<- asset.Asset) {
			defer close(out)
			children, err := client.ListChildren(ctx, id)
			if err != nil {
				errs <- fmt.Errorf("list children of %s: %w", id, err)
				return
			}
			for _, child := range children {
				out <- child
			}
		}(id, ch)
	}

	merged := engine.Merge(func(a asset.Asset) string { return a.Name }, streams...)
	for a := range merged {
		switch a.Kind {
		case asset.KindFolder:
			fmt.Printf("%s/\n", a.Name)
		case asset.KindVersionStack:
			fmt.Printf("%s (versions)\n", a.Name)
		default:
			fmt.Printf("%s  %s\n", a.Name, engine.FormatBytes(a.Filesize))
		}
	}

	close(errs)
	var failed bool
	for err := range errs {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		failed = true
	}
	if failed {
		return ExitGeneralError
	}
	return ExitSuccess
}
