package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/seb26/fioctl/asset"
	"github.com/seb26/fioctl/engine"
)

// runTraverse prints a remote asset tree in depth-first order.
func runTraverse(args []string) int {
	fs := flag.NewFlagSet("traverse", flag.ExitOnError)

	configPath := fs.String("config", "", "Path to YAML config file")
	includeVersions := fs.Bool("include-versions", false, "Descend into version stacks")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: fioctl traverse [options] <asset-id>

Print the tree under the given container.

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return ExitInvalidArgs
	}

	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Error: <asset-id> is required")
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

	if err := traverse(ctx, client, fs.Arg(0), 0, *includeVersions); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitGeneralError
	}
	return ExitSuccess
}

func traverse(ctx context.Context, client asset.Client, id string, depth int, includeVersions bool) error {
	children, err := client.ListChildren(ctx, id)
	if err != nil {
		return fmt.Errorf("list children of %s: %w", id, err)
	}

	indent := strings.Repeat("  ", depth)
	for _, child := range children {
		switch child.Kind {
		case asset.KindFolder:
			fmt.Printf("%s%s/\n", indent, child.Name)
			if err := traverse(ctx, client, child.ID, depth+1, includeVersions); err != nil {
				return err
			}
		case asset.KindVersionStack:
			fmt.Printf("%s%s (versions)\n", indent, child.Name)
			if includeVersions {
				if err := traverse(ctx, client, child.ID, depth+1, includeVersions); err != nil {
					return err
				}
			}
		default:
			fmt.Printf("%s%s  %s\n", indent, child.Name, engine.FormatBytes(child.Filesize))
		}
	}
	return nil
}
