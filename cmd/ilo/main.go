package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/xeniagda/ilo-pi-ante-toki/internal/logger"
)

// cfg is the config file loaded by the root Before hook.
var cfg Config

func main() {
	app := &cli.Command{
		Name:   "ilo",
		Usage:  "Learn a gram vocabulary from a corpus and encode text with it",
		Flags:  loggingFlags(),
		Before: setup,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return cli.ShowAppHelp(cmd)
		},
		Commands: []*cli.Command{
			trainCmd(),
			encodeCmd(),
			decodeCmd(),
			inspectCmd(),
			bundleCmd(),
			serveCmd(),
			versionCmd(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads the config file and installs the logger in the context.
func setup(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	loaded, err := LoadConfig(configPath())
	if err != nil {
		return ctx, cli.Exit(fmt.Sprintf("error: config: %v", err), 1)
	}
	cfg = loaded
	applyLogConfig(cmd, cfg)

	level, err := logger.ParseLevel(logLevel)
	if err != nil {
		return ctx, cli.Exit(fmt.Sprintf("error: %v", err), 1)
	}
	if debug {
		level = slog.LevelDebug
	}
	format, err := logger.ParseFormat(logFormat)
	if err != nil {
		return ctx, cli.Exit(fmt.Sprintf("error: %v", err), 1)
	}
	log := logger.NewFormat(format, os.Stderr, level)
	log.Debug("configuration loaded", "path", configPath(), "level", level.String(), "format", string(format))
	return logger.WithContext(ctx, log), nil
}
