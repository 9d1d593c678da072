// Package main is the entry point for the vscripting preview.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dshills/vscripting/internal/app"
	"github.com/dshills/vscripting/internal/host"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	opts, ok := parseFlags()
	if !ok {
		return 0
	}

	application, err := app.New(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize: %v\n", err)
		return 1
	}
	// Ensure cleanup on all exit paths
	defer application.Shutdown()

	screen, err := host.NewScreen()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to create terminal: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := application.Run(ctx, screen); err != nil && ctx.Err() == nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func parseFlags() (app.Options, bool) {
	var opts app.Options
	var showVersion bool
	var logToStderr bool

	flag.StringVar(&opts.ConfigPath, "config", "", "Path to configuration file")
	flag.StringVar(&opts.ConfigPath, "c", "", "Path to configuration file (shorthand)")
	flag.StringVar(&opts.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flag.BoolVar(&logToStderr, "log-stderr", false, "Log to stderr when no log file is configured")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showVersion, "v", false, "Show version information (shorthand)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "vscripting - live visual preview of a source file\n\n")
		fmt.Fprintf(os.Stderr, "Usage: vscripting [options] file\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nKeys:\n")
		fmt.Fprintf(os.Stderr, "  + -       zoom in / out\n")
		fmt.Fprintf(os.Stderr, "  0         actual size\n")
		fmt.Fprintf(os.Stderr, "  f F       fit / fit without magnifying\n")
		fmt.Fprintf(os.Stderr, "  arrows    scroll\n")
		fmt.Fprintf(os.Stderr, "  a         toggle accessory panel\n")
		fmt.Fprintf(os.Stderr, "  q         quit\n")
	}

	flag.Parse()

	if showVersion {
		fmt.Printf("vscripting %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
		return opts, false
	}

	switch opts.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		fmt.Fprintf(os.Stderr, "Error: invalid log level %q (must be debug, info, warn, or error)\n", opts.LogLevel)
		os.Exit(2)
	}

	if logToStderr {
		opts.LogOutput = os.Stderr
	}
	opts.Files = flag.Args()
	if len(opts.Files) == 0 {
		flag.Usage()
		os.Exit(2)
	}
	return opts, true
}
