package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/xeniagda/ilo-pi-ante-toki/internal/logger"
	"github.com/xeniagda/ilo-pi-ante-toki/internal/version"
	"github.com/xeniagda/ilo-pi-ante-toki/internal/vocab"
	"github.com/xeniagda/ilo-pi-ante-toki/pkg/gram"
	"github.com/xeniagda/ilo-pi-ante-toki/pkg/idstream"
)

type trainParams struct {
	cfg      vocab.Config
	corpus   vocabCorpus
	outDir   string
	out      string
	bundle   bool
	width    idstream.Width
	progress bool
}

type vocabCorpus struct {
	format string
	lang   string
}

type trainReport struct {
	input  string
	output string
	size   int64
	info   vocab.Info
	took   time.Duration
}

func trainCmd() *cli.Command {
	var (
		threshold    float64
		maxMerges    int
		maxTableSize int
		idWidth      int
		jobs         int
		out          string
		format       string
		lang         string
		bundle       bool
		noProgress   bool
	)

	return &cli.Command{
		Name:      "train",
		Usage:     "Learn a gram table from one or more corpus files",
		ArgsUsage: "CORPUS...",
		Flags: append(corpusFlags(&format, &lang),
			&cli.Float64Flag{
				Name:        "threshold",
				Aliases:     []string{"t"},
				Usage:       "stop when the best pair covers less than this fraction of the original length",
				Value:       0.001,
				Destination: &threshold,
			},
			&cli.IntFlag{
				Name:        "max-merges",
				Usage:       "stop after this many merges (0 = unlimited)",
				Destination: &maxMerges,
			},
			&cli.IntFlag{
				Name:        "max-table-size",
				Usage:       "stop once the table holds this many grams (0 = unlimited)",
				Destination: &maxTableSize,
			},
			&cli.StringFlag{
				Name:        "out",
				Aliases:     []string{"o"},
				Usage:       "output path (single corpus only; default <cache-dir>/<corpus>.grams)",
				Destination: &out,
			},
			&cli.BoolFlag{
				Name:        "bundle",
				Usage:       "also write a .gramc bundle holding the table, training info and the encoded corpus",
				Destination: &bundle,
			},
			&cli.IntFlag{
				Name:        "jobs",
				Aliases:     []string{"j"},
				Usage:       "corpora trained in parallel",
				Value:       runtime.GOMAXPROCS(0),
				Destination: &jobs,
			},
			&cli.BoolFlag{
				Name:        "no-progress",
				Usage:       "disable the merge progress bar",
				Destination: &noProgress,
			},
			idWidthFlag(&idWidth),
			boundaryFlag(),
			cacheDirFlag(),
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			applyTrainConfig(cmd, cfg, &threshold, &maxMerges, &maxTableSize, &idWidth)

			inputs := cmd.Args().Slice()
			if len(inputs) == 0 {
				return cli.Exit("error: at least one corpus file is required", 1)
			}
			if out != "" && len(inputs) > 1 {
				return cli.Exit("error: --out needs exactly one corpus; use --cache-dir for several", 1)
			}
			boundary, err := vocab.ParseBoundary(boundaryName)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			width, err := idstream.ParseWidth(idWidth)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			dir, err := resolveCacheDir(cacheDir)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}

			p := trainParams{
				cfg: vocab.Config{
					Threshold:    threshold,
					Boundary:     boundary,
					MaxMerges:    maxMerges,
					MaxTableSize: maxTableSize,
				},
				corpus:   vocabCorpus{format: format, lang: lang},
				outDir:   dir,
				out:      out,
				bundle:   bundle,
				width:    width,
				progress: !noProgress && len(inputs) == 1,
			}

			reports := make([]trainReport, len(inputs))
			g, gctx := errgroup.WithContext(ctx)
			g.SetLimit(max(jobs, 1))
			for i, input := range inputs {
				g.Go(func() error {
					r, err := trainOne(gctx, log.With("corpus", input), input, p)
					if err != nil {
						return fmt.Errorf("%s: %w", input, err)
					}
					reports[i] = r
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return cli.Exit(fmt.Sprintf("error: train %v", err), 1)
			}

			for _, r := range reports {
				printTrainReport(r)
			}
			return nil
		},
	}
}

func trainOne(ctx context.Context, log logger.Logger, input string, p trainParams) (trainReport, error) {
	start := time.Now()
	opts, err := corpusOptions(p.corpus.format, p.corpus.lang, p.cfg.Boundary)
	if err != nil {
		return trainReport{}, err
	}
	units, err := readCorpus(input, opts)
	if err != nil {
		return trainReport{}, err
	}
	if len(units) == 0 {
		return trainReport{}, fmt.Errorf("no units read (format %s, lang %q)", opts.Format, opts.Lang)
	}
	log.Info("corpus loaded", "units", len(units))

	output, err := resolveOutput(input, p.out, p.outDir, vocab.TableExt)
	if err != nil {
		return trainReport{}, err
	}

	var bar *progressbar.ProgressBar
	if p.progress {
		bar = newMergeBar(filepath.Base(input), p.cfg.MaxMerges)
	}
	cfg := p.cfg
	cfg.OnMerge = func(ev gram.MergeEvent) {
		if bar != nil {
			_ = bar.Add(1)
		}
		log.Debug("merge",
			"step", ev.Step,
			"pair", ev.Pair.String(),
			"id", ev.ID,
			"count", ev.Count,
			"relative", ev.Relative,
			"stream_len", ev.StreamLen,
		)
	}

	res, err := vocab.Train(ctx, units, cfg)
	if bar != nil {
		_ = bar.Finish()
	}
	if err != nil {
		return trainReport{}, err
	}
	res.Info.Name = inputStem(input)
	res.Info.ToolVersion = version.String()
	log.Info("training stopped",
		"reason", res.Reason.String(),
		"grams", res.Vocab.Len(),
		"stream_len", len(res.Stream),
	)

	if err := vocab.SaveTable(output, res.Vocab.Table()); err != nil {
		return trainReport{}, fmt.Errorf("save table: %w", err)
	}
	if p.bundle {
		bundlePath := siblingPath(output, vocab.BundleExt)
		if err := vocab.WriteBundle(bundlePath, res.Vocab, res.Info, units, p.width); err != nil {
			return trainReport{}, fmt.Errorf("write bundle: %w", err)
		}
		log.Info("bundle written", "path", bundlePath)
	}

	var size int64
	if st, err := os.Stat(output); err == nil {
		size = st.Size()
	}
	return trainReport{
		input:  input,
		output: output,
		size:   size,
		info:   res.Info,
		took:   time.Since(start),
	}, nil
}

func newMergeBar(name string, maxMerges int) *progressbar.ProgressBar {
	total := -1
	if maxMerges > 0 {
		total = maxMerges
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("merging "+name),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("merges"),
		progressbar.OptionClearOnFinish(),
	)
}

func printTrainReport(r trainReport) {
	info := r.info
	fmt.Printf("%s -> %s (%s)\n", r.input, r.output, humanize.Bytes(uint64(r.size)))
	fmt.Printf("  units:     %s\n", humanize.Comma(int64(info.Units)))
	fmt.Printf("  grams:     %s (%s literals, %s composites)\n",
		humanize.Comma(int64(info.Literals+info.Composites)),
		humanize.Comma(int64(info.Literals)),
		humanize.Comma(int64(info.Composites)))
	fmt.Printf("  stream:    %s -> %s symbols (%.2fx)\n",
		humanize.Comma(int64(info.Symbols)),
		humanize.Comma(int64(info.StreamLen)),
		info.CompressionRatio())
	fmt.Printf("  stopped:   %s after %s\n", info.StopReason, r.took.Round(time.Millisecond))
}
