package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/xeniagda/ilo-pi-ante-toki/internal/corpus"
	"github.com/xeniagda/ilo-pi-ante-toki/internal/logger"
	"github.com/xeniagda/ilo-pi-ante-toki/internal/vocab"
	"github.com/xeniagda/ilo-pi-ante-toki/pkg/gram"
	"github.com/xeniagda/ilo-pi-ante-toki/pkg/idstream"
)

// indexExt is appended to a binary id stream path for its span index.
const indexExt = ".idx"

func encodeCmd() *cli.Command {
	var (
		segments bool
		sep      string
		out      string
		idWidth  int
	)

	return &cli.Command{
		Name:      "encode",
		Usage:     "Encode text to gram ids (arguments, or one unit per stdin line)",
		ArgsUsage: "[TEXT...]",
		Flags: append(vocabFlags(),
			&cli.BoolFlag{
				Name:        "segments",
				Aliases:     []string{"s"},
				Usage:       "print the text of each gram instead of ids",
				Destination: &segments,
			},
			&cli.StringFlag{
				Name:        "sep",
				Usage:       "separator between printed segments",
				Value:       "|",
				Destination: &sep,
			},
			&cli.StringFlag{
				Name:        "out",
				Aliases:     []string{"o"},
				Usage:       "write a binary id stream here (and its span index to <out>" + indexExt + ")",
				Destination: &out,
			},
			idWidthFlag(&idWidth),
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			applyVocabConfig(cmd, cfg, &idWidth)

			v, _, err := openVocab()
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: load vocabulary: %v", err), 1)
			}
			texts, err := encodeInputs(cmd.Args().Slice(), os.Stdin)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: read input: %v", err), 1)
			}

			if out != "" {
				width, err := idstream.ParseWidth(idWidth)
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: %v", err), 1)
				}
				n, err := writeIDStream(out, v, texts, width)
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: %v", err), 1)
				}
				log.Info("id stream written", "path", out, "units", n, "width", int(width))
				return nil
			}

			w := bufio.NewWriter(os.Stdout)
			defer func() { _ = w.Flush() }()
			for i, text := range texts {
				ids, err := v.Encode(text)
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: encode unit %d: %v", i, err), 1)
				}
				line, err := formatUnit(v, ids, segments, sep)
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: %v", err), 1)
				}
				_, _ = fmt.Fprintln(w, line)
			}
			return nil
		},
	}
}

// encodeInputs returns args as units, or the lines of stdin when there are none.
// Both are NFC-normalised like training corpora.
func encodeInputs(args []string, stdin io.Reader) ([]string, error) {
	if len(args) > 0 {
		texts := make([]string, len(args))
		for i, a := range args {
			texts[i] = corpus.Normalize(a)
		}
		return texts, nil
	}
	units, err := corpus.Read(stdin, corpus.Options{Format: corpus.FormatLines})
	if err != nil {
		return nil, err
	}
	texts := make([]string, len(units))
	for i, u := range units {
		texts[i] = u.Text
	}
	return texts, nil
}

func formatUnit(v *vocab.Vocabulary, ids []gram.ID, segments bool, sep string) (string, error) {
	if segments {
		return v.Segment(ids, sep)
	}
	return formatIDs(ids), nil
}

func formatIDs(ids []gram.ID) string {
	var b strings.Builder
	for i, id := range ids {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(strconv.FormatUint(uint64(id), 10))
	}
	return b.String()
}

// writeIDStream encodes every text into a fixed-width id stream at path with a
// span index beside it. Both files are staged in the target directory and
// renamed into place only after every unit encoded, so a failed write leaves
// any previous stream untouched.
func writeIDStream(path string, v *vocab.Vocabulary, texts []string, width idstream.Width) (n int, err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, err
	}
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return 0, err
	}
	idx, err := os.CreateTemp(dir, "."+filepath.Base(path)+indexExt+".tmp-*")
	if err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = idx.Close()
			_ = os.Remove(f.Name())
			_ = os.Remove(idx.Name())
		}
	}()

	bw := bufio.NewWriter(f)
	bi := bufio.NewWriter(idx)
	sw, err := idstream.NewWriter(bw, width)
	if err != nil {
		return 0, err
	}
	iw := idstream.NewIndexWriter(bi)
	for i, text := range texts {
		ids, err := v.Encode(text)
		if err != nil {
			return 0, fmt.Errorf("encode unit %d: %w", i, err)
		}
		span, err := sw.WriteUnit(ids)
		if err != nil {
			return 0, fmt.Errorf("write unit %d: %w", i, err)
		}
		if err := iw.Write(span); err != nil {
			return 0, err
		}
	}
	for _, c := range []struct {
		w *bufio.Writer
		f *os.File
	}{{bw, f}, {bi, idx}} {
		if err = c.w.Flush(); err != nil {
			return 0, err
		}
		if err = c.f.Sync(); err != nil {
			return 0, err
		}
		if err = c.f.Close(); err != nil {
			return 0, err
		}
	}
	if err = os.Rename(idx.Name(), path+indexExt); err != nil {
		return 0, err
	}
	if err = os.Rename(f.Name(), path); err != nil {
		return 0, err
	}
	return iw.Count(), nil
}
