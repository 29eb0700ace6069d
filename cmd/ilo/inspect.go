package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/dustin/go-humanize"
	json "github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/xeniagda/ilo-pi-ante-toki/internal/vocab"
	"github.com/xeniagda/ilo-pi-ante-toki/pkg/gram"
)

func inspectCmd() *cli.Command {
	var (
		offset     int
		limit      int
		corpusPath string
		format     string
		lang       string
		asJSON     bool
		usedOnly   bool
	)

	return &cli.Command{
		Name:  "inspect",
		Usage: "List the grams of a vocabulary; * marks grams used by the encoded corpus",
		Flags: append(append(vocabFlags(), corpusFlags(&format, &lang)...),
			&cli.IntFlag{Name: "offset", Usage: "first gram id to list", Destination: &offset},
			&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Usage: "grams to list (0 = all)", Destination: &limit},
			&cli.StringFlag{
				Name:        "corpus",
				Usage:       "mark grams used when encoding this corpus (bundles use their own units)",
				Destination: &corpusPath,
			},
			&cli.BoolFlag{Name: "used", Usage: "list only grams marked as used", Destination: &usedOnly},
			&cli.BoolFlag{Name: "json", Usage: "print entries as JSON lines", Destination: &asJSON},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			applyVocabConfig(cmd, cfg, nil)

			v, info, err := openVocab()
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: load vocabulary: %v", err), 1)
			}
			used, err := usedGrams(v, format, lang, corpusPath)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			entries, err := v.Entries(offset, limit)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}

			w := bufio.NewWriter(os.Stdout)
			defer func() { _ = w.Flush() }()
			if !asJSON {
				printVocabSummary(w, v, info)
			}
			enc := json.NewEncoder(w)
			for _, e := range entries {
				mark := used != nil && used[e.ID]
				if usedOnly && !mark {
					continue
				}
				if asJSON {
					if err := enc.Encode(inspectEntry{Entry: e, Used: mark}); err != nil {
						return cli.Exit(fmt.Sprintf("error: %v", err), 1)
					}
					continue
				}
				_, _ = fmt.Fprintln(w, formatEntry(e, mark))
			}
			return nil
		},
	}
}

type inspectEntry struct {
	vocab.Entry
	Used bool `json:"used"`
}

// usedGrams marks the grams appearing in the bundle's encoded units, or in
// corpusPath encoded against v. It returns nil when neither is available.
func usedGrams(v *vocab.Vocabulary, format, lang, corpusPath string) ([]bool, error) {
	if corpusPath != "" {
		opts, err := corpusOptions(format, lang, v.Boundary())
		if err != nil {
			return nil, err
		}
		units, err := readCorpus(corpusPath, opts)
		if err != nil {
			return nil, err
		}
		var stream []gram.ID
		for i, u := range units {
			ids, err := v.Encode(u.Text)
			if err != nil {
				return nil, fmt.Errorf("encode unit %d (%s): %w", i, u.ID, err)
			}
			stream = append(stream, ids...)
		}
		return vocab.Used(stream, v.Len()), nil
	}
	if filepath.Ext(vocabPath) != vocab.BundleExt {
		return nil, nil
	}
	b, err := vocab.OpenBundle(vocabPath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = b.Close() }()
	var stream []gram.ID
	for i := range b.NumUnits() {
		ids, err := b.Unit(i)
		if err != nil {
			return nil, err
		}
		stream = append(stream, ids...)
	}
	return vocab.Used(stream, v.Len()), nil
}

func printVocabSummary(w *bufio.Writer, v *vocab.Vocabulary, info *vocab.Info) {
	literals := v.Table().Literals()
	_, _ = fmt.Fprintf(w, "# %s: %s grams (%s literals, %s composites), boundary %s\n",
		filepath.Base(vocabPath),
		humanize.Comma(int64(v.Len())),
		humanize.Comma(int64(literals)),
		humanize.Comma(int64(v.Len()-literals)),
		vocab.BoundaryName(v.Boundary()))
	if info == nil {
		return
	}
	_, _ = fmt.Fprintf(w, "# id %s, trained %s from %s units, threshold %g, stopped: %s\n",
		info.ID, humanize.Time(info.CreatedAt), humanize.Comma(int64(info.Units)), info.Threshold, info.StopReason)
	if info.IDWidth != 0 {
		_, _ = fmt.Fprintf(w, "# encoded units: %d-bit ids, %.2fx compression\n", info.IDWidth, info.CompressionRatio())
	}
}

// formatEntry renders "id<TAB>mark<TAB>kind<TAB>depth<TAB>text", with composite
// children and the quoted expansion.
func formatEntry(e vocab.Entry, used bool) string {
	mark := " "
	if used {
		mark = "*"
	}
	kind := e.Kind
	if e.Left != nil && e.Right != nil {
		kind = fmt.Sprintf("%d+%d", *e.Left, *e.Right)
	}
	return fmt.Sprintf("%d\t%s\t%s\t%d\t%s", e.ID, mark, kind, e.Depth, strconv.Quote(e.Text))
}
