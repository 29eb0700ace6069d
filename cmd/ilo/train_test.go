package main

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/xeniagda/ilo-pi-ante-toki/internal/logger"
	"github.com/xeniagda/ilo-pi-ante-toki/internal/vocab"
	"github.com/xeniagda/ilo-pi-ante-toki/pkg/gram"
	"github.com/xeniagda/ilo-pi-ante-toki/pkg/idstream"
)

const trainCorpus = "toki pona li pona\npona pona\nmi toki e toki pona\nlili\n"

func writeCorpus(t *testing.T, dir, name, text string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		t.Fatalf("write corpus: %v", err)
	}
	return path
}

// Not parallel: inspect reads the package-level vocabPath.
func TestTrainBundleMarksUsedGrams(t *testing.T) {
	dir := t.TempDir()
	input := writeCorpus(t, dir, "toki.txt", trainCorpus)

	p := trainParams{
		cfg:    vocab.Config{Threshold: 0.01, Boundary: '\n'},
		corpus: vocabCorpus{format: "lines"},
		outDir: dir,
		bundle: true,
		width:  idstream.Width16,
	}
	r, err := trainOne(context.Background(), logger.Discard(), input, p)
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	if r.output != filepath.Join(dir, "toki"+vocab.TableExt) || r.info.Composites == 0 {
		t.Fatalf("unexpected report: %+v", r)
	}

	bundlePath := siblingPath(r.output, vocab.BundleExt)
	v, _, err := vocab.Load(bundlePath, 0)
	if err != nil {
		t.Fatalf("load bundle: %v", err)
	}
	want := make([]bool, v.Len())
	for _, line := range strings.Split(strings.TrimSuffix(trainCorpus, "\n"), "\n") {
		ids, err := v.Encode(line)
		if err != nil {
			t.Fatalf("encode %q: %v", line, err)
		}
		for _, id := range ids {
			want[id] = true
		}
	}

	oldVocab, oldBoundary := vocabPath, boundaryName
	t.Cleanup(func() { vocabPath, boundaryName = oldVocab, oldBoundary })
	vocabPath, boundaryName = bundlePath, "newline"

	used, err := usedGrams(v, "lines", "", "")
	if err != nil {
		t.Fatalf("used grams: %v", err)
	}
	if !slices.Equal(used, want) {
		t.Fatalf("got %v want %v", used, want)
	}

	entries, err := v.Entries(0, 0)
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	for _, e := range entries {
		mark := strings.Split(formatEntry(e, used[e.ID]), "\t")[1]
		if wantMark := map[bool]string{true: "*", false: " "}[want[e.ID]]; mark != wantMark {
			t.Fatalf("gram %d: got mark %q want %q", e.ID, mark, wantMark)
		}
	}

	// A corpus holding a single letter uses only that literal.
	single := writeCorpus(t, dir, "single.txt", "l\n")
	used, err = usedGrams(v, "lines", "", single)
	if err != nil {
		t.Fatalf("used grams from corpus: %v", err)
	}
	lit, err := v.Encode("l")
	if err != nil || len(lit) != 1 {
		t.Fatalf("encode l: %v %v", lit, err)
	}
	for id, u := range used {
		if u != (gram.ID(id) == lit[0]) {
			t.Fatalf("gram %d: got used=%v", id, u)
		}
	}
	line := formatEntry(entries[lit[0]], true)
	if !strings.HasPrefix(line, strings.Join([]string{formatIDs(lit), "*", "literal"}, "\t")) {
		t.Fatalf("got %q", line)
	}
}

// Not parallel: the train command writes through package-level flag values.
func TestTrainCommandSeveralCorpora(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out")
	first := writeCorpus(t, dir, "first.txt", trainCorpus)
	second := writeCorpus(t, dir, "second.txt", "jan li moku\njan li lape\nmoku moku\n")

	oldCache, oldBoundary := cacheDir, boundaryName
	t.Cleanup(func() { cacheDir, boundaryName = oldCache, oldBoundary })

	args := []string{"train", "--cache-dir", out, "--no-progress", "--jobs", "2", "--bundle", first, second}
	if err := trainCmd().Run(context.Background(), args); err != nil {
		t.Fatalf("train: %v", err)
	}

	for _, name := range []string{"first", "second"} {
		path := filepath.Join(out, name+vocab.TableExt)
		table, err := vocab.LoadTable(path)
		if err != nil {
			t.Fatalf("load %s: %v", path, err)
		}
		if err := table.Validate(); err != nil || table.Literals() == 0 {
			t.Fatalf("%s: literals=%d err=%v", path, table.Literals(), err)
		}
		b, err := vocab.OpenBundle(siblingPath(path, vocab.BundleExt))
		if err != nil {
			t.Fatalf("open bundle: %v", err)
		}
		if !b.Vocab().Table().Equal(table) {
			t.Fatalf("%s: bundle table differs from the saved table", name)
		}
		_ = b.Close()
	}
}
