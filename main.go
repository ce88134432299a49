package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/stupside/reelmeta/cmd"
)

// newLogger reads the logging flags straight from args so that config
// loading in the CLI Before hook already logs with the chosen handler.
func newLogger(args []string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if slices.Contains(args, "--debug") {
		opts.Level = slog.LevelDebug
	}
	if slices.Contains(args, "--log-json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func main() {
	slog.SetDefault(newLogger(os.Args))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Root().Run(ctx, os.Args); err != nil {
		if cause := context.Cause(ctx); cause != nil {
			slog.InfoContext(ctx, "interrupted", "cause", cause)
			return
		}
		slog.Error("reelmeta failed", "error", err)
		os.Exit(1)
	}
}
