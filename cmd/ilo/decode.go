package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/xeniagda/ilo-pi-ante-toki/internal/vocab"
	"github.com/xeniagda/ilo-pi-ante-toki/pkg/gram"
	"github.com/xeniagda/ilo-pi-ante-toki/pkg/idstream"
)

func decodeCmd() *cli.Command {
	var (
		in      string
		idWidth int
	)

	return &cli.Command{
		Name:      "decode",
		Usage:     "Decode gram ids back to text (arguments, stdin lines, or a binary id stream)",
		ArgsUsage: "[ID...]",
		Flags: append(vocabFlags(),
			&cli.StringFlag{
				Name:        "in",
				Aliases:     []string{"i"},
				Usage:       "binary id stream written by encode --out",
				Destination: &in,
			},
			idWidthFlag(&idWidth),
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			applyVocabConfig(cmd, cfg, &idWidth)

			v, _, err := openVocab()
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: load vocabulary: %v", err), 1)
			}

			var units [][]gram.ID
			switch {
			case in != "":
				width, err := idstream.ParseWidth(idWidth)
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: %v", err), 1)
				}
				units, err = readIDStream(in, width)
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: read %s: %v", in, err), 1)
				}
			case cmd.NArg() > 0:
				ids, err := parseIDs(cmd.Args().Slice())
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: %v", err), 1)
				}
				units = [][]gram.ID{ids}
			default:
				units, err = scanIDLines(os.Stdin)
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: read stdin: %v", err), 1)
				}
			}

			texts, err := decodeAll(v, units)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: decode %v", err), 1)
			}
			w := bufio.NewWriter(os.Stdout)
			defer func() { _ = w.Flush() }()
			for _, text := range texts {
				_, _ = fmt.Fprintln(w, text)
			}
			return nil
		},
	}
}

func parseIDs(fields []string) ([]gram.ID, error) {
	ids := make([]gram.ID, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.ParseUint(f, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q", f)
		}
		ids = append(ids, gram.ID(n))
	}
	return ids, nil
}

// scanIDLines reads one unit of whitespace separated ids per line.
func scanIDLines(r io.Reader) ([][]gram.ID, error) {
	var units [][]gram.ID
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16<<20)
	for line := 1; sc.Scan(); line++ {
		ids, err := parseIDs(strings.Fields(sc.Text()))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		units = append(units, ids)
	}
	return units, sc.Err()
}

func readIDStream(path string, width idstream.Width) ([][]gram.ID, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	st, err := f.Stat()
	if err != nil {
		return nil, err
	}
	index, err := os.ReadFile(path + indexExt)
	if err != nil {
		return nil, err
	}
	spans, err := idstream.ParseIndex(index, st.Size())
	if err != nil {
		return nil, err
	}
	units := make([][]gram.ID, len(spans))
	for i, s := range spans {
		if units[i], err = idstream.ReadUnit(f, s, width); err != nil {
			return nil, fmt.Errorf("unit %d: %w", i, err)
		}
	}
	return units, nil
}

func decodeAll(v *vocab.Vocabulary, units [][]gram.ID) ([]string, error) {
	out := make([]string, len(units))
	for i, ids := range units {
		text, err := v.Decode(ids)
		if err != nil {
			return nil, fmt.Errorf("unit %d: %w", i, err)
		}
		out[i] = text
	}
	return out, nil
}
