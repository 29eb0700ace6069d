package main

import "github.com/urfave/cli/v3"

var (
	logLevel     string
	logFormat    string
	debug        bool
	boundaryName string
	cacheDir     string
	vocabPath    string
)

func loggingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (pretty, json, text)",
			Value:       "pretty",
			Destination: &logFormat,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "enable debug logging (shorthand for --log-level=debug)",
			Destination: &debug,
		},
	}
}

func boundaryFlag() cli.Flag {
	return &cli.StringFlag{
		Name:        "boundary",
		Usage:       "unit boundary: newline, space, tab or a single character",
		Value:       "newline",
		Destination: &boundaryName,
	}
}

func cacheDirFlag() cli.Flag {
	return &cli.StringFlag{
		Name:        "cache-dir",
		Usage:       "directory for default outputs (env " + envCacheDir + ")",
		Destination: &cacheDir,
	}
}

// vocabFlags selects an existing vocabulary (.grams or .gramc).
func vocabFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "vocab",
			Aliases:     []string{"v"},
			Usage:       "path to a .grams table or .gramc bundle",
			Destination: &vocabPath,
			Required:    true,
		},
		boundaryFlag(),
	}
}

func idWidthFlag(dst *int) cli.Flag {
	return &cli.IntFlag{
		Name:        "id-width",
		Usage:       "bits per id in encoded unit streams (16 or 32)",
		Value:       16,
		Destination: dst,
	}
}

func corpusFlags(format, lang *string) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "format",
			Usage:       "corpus format: lines or tsv (id, lang, text)",
			Value:       "lines",
			Destination: format,
		},
		&cli.StringFlag{
			Name:        "lang",
			Usage:       "keep only tsv records in this language",
			Destination: lang,
		},
	}
}
