package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"github.com/xeniagda/ilo-pi-ante-toki/internal/logger"
	"github.com/xeniagda/ilo-pi-ante-toki/internal/version"
	"github.com/xeniagda/ilo-pi-ante-toki/internal/vocab"
	"github.com/xeniagda/ilo-pi-ante-toki/pkg/idstream"
)

func bundleCmd() *cli.Command {
	var (
		out     string
		format  string
		lang    string
		idWidth int
	)

	return &cli.Command{
		Name:      "bundle",
		Usage:     "Encode a corpus against an existing vocabulary into a .gramc bundle",
		ArgsUsage: "CORPUS",
		Flags: append(append(vocabFlags(), corpusFlags(&format, &lang)...),
			&cli.StringFlag{
				Name:        "out",
				Aliases:     []string{"o"},
				Usage:       "bundle path (default <cache-dir>/<corpus>.gramc)",
				Destination: &out,
			},
			idWidthFlag(&idWidth),
			cacheDirFlag(),
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			applyVocabConfig(cmd, cfg, &idWidth)

			if cmd.NArg() != 1 {
				return cli.Exit("error: exactly one corpus file is required", 1)
			}
			input := cmd.Args().First()
			width, err := idstream.ParseWidth(idWidth)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			v, _, err := openVocab()
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: load vocabulary: %v", err), 1)
			}
			opts, err := corpusOptions(format, lang, v.Boundary())
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			units, err := readCorpus(input, opts)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			dir, err := resolveCacheDir(cacheDir)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			path, err := resolveOutput(input, out, dir, vocab.BundleExt)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}

			info, err := vocab.Describe(v, units)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			info.Name = inputStem(input)
			info.ToolVersion = version.String()
			if err := vocab.WriteBundle(path, v, info, units, width); err != nil {
				return cli.Exit(fmt.Sprintf("error: bundle: %v", err), 1)
			}

			var size uint64
			if st, err := os.Stat(path); err == nil {
				size = uint64(st.Size())
			}
			log.Info("bundle written", "path", path, "units", len(units), "width", int(width))
			fmt.Printf("%s: %s units, %.2fx compression, %s\n",
				path, humanize.Comma(int64(len(units))), info.CompressionRatio(), humanize.Bytes(size))
			return nil
		},
	}
}
