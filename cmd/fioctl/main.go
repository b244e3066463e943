package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/seb26/fioctl/asset"
	"github.com/seb26/fioctl/config"
)

// Exit codes
const (
	ExitSuccess        = 0
	ExitGeneralError   = 1
	ExitInvalidArgs    = 2
	ExitConfigError    = 3
	ExitPartialFailure = 4
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return ExitInvalidArgs
	}

	command := args[0]
	cmdArgs := args[1:]

	switch command {
	case "upload":
		return runUpload(cmdArgs)
	case "download":
		return runDownload(cmdArgs)
	case "traverse":
		return runTraverse(cmdArgs)
	case "list":
		return runList(cmdArgs)
	case "journal":
		return runJournal(cmdArgs)
	case "help", "-h", "--help":
		printUsage()
		return ExitSuccess
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		return ExitInvalidArgs
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `Usage: fioctl <command> [options]

Commands:
  upload    Upload local files and folder trees to a remote container
  download  Download a remote asset tree to a local path or s3:// bucket
  traverse  Print a remote asset tree
  list      List the children of one or more containers, merged by name
  journal   Print recorded transfer outcomes

Run 'fioctl <command> -h' for command-specific help.`)
}

// loadConfig layers the config file (if present) under environment
// overrides.
func loadConfig(path string) (config.Config, error) {
	cfg := config.Default()
	if path != "" {
		loaded, err := config.LoadFromFile(path)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func newAssetClient(cfg config.Config) *asset.HTTPClient {
	return asset.NewHTTPClient(asset.ClientOptions{
		BaseURL: cfg.API.BaseURL,
		Token:   cfg.API.Token,
	})
}
