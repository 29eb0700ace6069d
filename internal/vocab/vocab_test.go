package vocab

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/xeniagda/ilo-pi-ante-toki/internal/corpus"
	"github.com/xeniagda/ilo-pi-ante-toki/pkg/gram"
	"github.com/xeniagda/ilo-pi-ante-toki/pkg/idstream"
)

func sampleUnits() []corpus.Unit {
	texts := []string{
		"mi moku e kili.",
		"sina moku e telo.",
		"ona li moku ala.",
		"mi wile moku.",
		"kili li pona.",
	}
	var units []corpus.Unit
	for r := 0; r < 4; r++ {
		for i, text := range texts {
			units = append(units, corpus.Unit{ID: strings.Repeat("x", r) + string(rune('a'+i)), Text: text})
		}
	}
	return units
}

func trainSample(t *testing.T) *Result {
	t.Helper()
	res, err := Train(context.Background(), sampleUnits(), Config{Threshold: 0.005, Boundary: '\n'})
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	return res
}

func TestTrainInfo(t *testing.T) {
	t.Parallel()

	res := trainSample(t)
	info := res.Info
	if info.ID == "" || info.CreatedAt.IsZero() {
		t.Fatalf("missing id or timestamp: %+v", info)
	}
	if info.Units != 20 || info.Boundary != "newline" {
		t.Fatalf("unexpected info: %+v", info)
	}
	if info.Literals+info.Composites != res.Vocab.Len() {
		t.Fatalf("literal/composite counts do not add up: %+v vs %d", info, res.Vocab.Len())
	}
	if info.StreamLen != len(res.Stream) || info.CompressionRatio() <= 1 {
		t.Fatalf("expected compression, got %+v", info)
	}
	if info.StopReason != res.Reason.String() {
		t.Fatalf("stop reason %q vs %v", info.StopReason, res.Reason)
	}
}

func TestEncodeDecodeText(t *testing.T) {
	t.Parallel()

	v := trainSample(t).Vocab
	for _, text := range []string{"mi moku.", "kili li pona.", "telo"} {
		ids, err := v.Encode(text)
		if err != nil {
			t.Fatalf("encode %q: %v", text, err)
		}
		got, err := v.Decode(ids)
		if err != nil || got != text {
			t.Fatalf("round trip %q: got %q, %v", text, got, err)
		}
		seg, err := v.Segment(ids, "/")
		if err != nil || strings.ReplaceAll(seg, "/", "") != text {
			t.Fatalf("segment %q: got %q, %v", text, seg, err)
		}
	}

	_, err := v.Encode("moku Q")
	var unknown *gram.UnknownSymbolError
	if !errors.As(err, &unknown) || unknown.Symbol != 'Q' {
		t.Fatalf("expected unknown symbol Q, got %v", err)
	}
}

func TestEntries(t *testing.T) {
	t.Parallel()

	v := trainSample(t).Vocab
	entries, err := v.Entries(0, 0)
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(entries) != v.Len() {
		t.Fatalf("got %d entries want %d", len(entries), v.Len())
	}
	for _, e := range entries {
		if e.Kind == "literal" && (e.Depth != 0 || len([]rune(e.Text)) != 1) {
			t.Fatalf("bad literal entry: %+v", e)
		}
		if e.Kind == "composite" && (e.Left == nil || e.Right == nil || e.Depth < 1 || len([]rune(e.Text)) < 2) {
			t.Fatalf("bad composite entry: %+v", e)
		}
		if strings.ContainsRune(e.Text, '\n') && e.Kind != "literal" {
			t.Fatalf("composite crosses a boundary: %+v", e)
		}
	}

	page, err := v.Entries(2, 3)
	if err != nil || len(page) != 3 || page[0].ID != 2 {
		t.Fatalf("page: got %+v, %v", page, err)
	}
	if _, err := v.Entries(v.Len()+1, 1); err == nil {
		t.Fatalf("expected out of range offset error")
	}
}

func TestSaveLoadTable(t *testing.T) {
	t.Parallel()

	res := trainSample(t)
	path := filepath.Join(t.TempDir(), "nested", "tok"+TableExt)
	if err := SaveTable(path, res.Vocab.Table()); err != nil {
		t.Fatalf("save: %v", err)
	}
	st, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if st.Size() != int64(res.Vocab.Len()*gram.RecordSize) {
		t.Fatalf("file size %d, want %d", st.Size(), res.Vocab.Len()*gram.RecordSize)
	}

	v, info, err := Load(path, '\n')
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if info != nil {
		t.Fatalf("bare tables carry no info")
	}
	if !v.Table().Equal(res.Vocab.Table()) {
		t.Fatalf("loaded table differs")
	}

	ents, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(ents) != 1 {
		t.Fatalf("temporary files left behind: %v", ents)
	}
}

func TestBundleRoundTrip(t *testing.T) {
	t.Parallel()

	res := trainSample(t)
	units := sampleUnits()
	path := filepath.Join(t.TempDir(), "tok"+BundleExt)
	if err := WriteBundle(path, res.Vocab, res.Info, units, idstream.Width16); err != nil {
		t.Fatalf("write bundle: %v", err)
	}

	b, err := OpenBundle(path)
	if err != nil {
		t.Fatalf("open bundle: %v", err)
	}
	defer func() { _ = b.Close() }()

	if !b.Vocab().Table().Equal(res.Vocab.Table()) {
		t.Fatalf("bundled table differs")
	}
	if b.Info().ID != res.Info.ID || b.Info().IDWidth != 16 {
		t.Fatalf("info not preserved: %+v", b.Info())
	}
	if b.Width() != idstream.Width16 || b.NumUnits() != len(units) {
		t.Fatalf("width=%d units=%d", b.Width(), b.NumUnits())
	}
	for i, u := range units {
		ids, err := b.Unit(i)
		if err != nil {
			t.Fatalf("unit %d: %v", i, err)
		}
		want, _ := res.Vocab.Encode(u.Text)
		if !slices.Equal(ids, want) {
			t.Fatalf("unit %d: got %v want %v", i, ids, want)
		}
	}

	v, info, err := Load(path, 0)
	if err != nil || info == nil || v.Boundary() != '\n' {
		t.Fatalf("load bundle: v=%v info=%v err=%v", v, info, err)
	}
}

func TestBundleUnitAfterClose(t *testing.T) {
	t.Parallel()

	res := trainSample(t)
	path := filepath.Join(t.TempDir(), "tok"+BundleExt)
	if err := WriteBundle(path, res.Vocab, res.Info, sampleUnits(), idstream.Width16); err != nil {
		t.Fatalf("write bundle: %v", err)
	}
	b, err := OpenBundle(path)
	if err != nil {
		t.Fatalf("open bundle: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if _, err := b.Unit(0); !errors.Is(err, ErrBundleClosed) {
		t.Fatalf("got %v want %v", err, ErrBundleClosed)
	}
	if b.Vocab().Len() != res.Vocab.Len() {
		t.Fatalf("got %d grams want %d", b.Vocab().Len(), res.Vocab.Len())
	}
}

func TestBundleAbortsOnUnknownSymbol(t *testing.T) {
	t.Parallel()

	res := trainSample(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "tok"+BundleExt)
	units := append(sampleUnits(), corpus.Unit{ID: "bad", Text: "xyz"})

	err := WriteBundle(path, res.Vocab, res.Info, units, idstream.Width16)
	var unknown *gram.UnknownSymbolError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownSymbolError, got %v", err)
	}
	ents, _ := os.ReadDir(dir)
	if len(ents) != 0 {
		t.Fatalf("no artifact should be left behind, found %v", ents)
	}
}

func TestBundleAbortsOnOverflow(t *testing.T) {
	t.Parallel()

	// 70,000 literals: the last ones cannot be written with 16-bit ids.
	grams := make([]gram.Gram[rune], 0, 70000)
	runes := make([]rune, 0, 70000)
	for r := rune(0x10000); len(grams) < 70000; r++ {
		grams = append(grams, gram.NewLiteral(r))
		runes = append(runes, r)
	}
	table, err := gram.NewTable(grams)
	if err != nil {
		t.Fatalf("new table: %v", err)
	}
	v := New(table, '\n')

	dir := t.TempDir()
	path := filepath.Join(dir, "wide"+BundleExt)
	units := []corpus.Unit{{ID: "ok", Text: string(runes[:10])}, {ID: "big", Text: string(runes[65530:65540])}}

	err = WriteBundle(path, v, Info{}, units, idstream.Width16)
	var overflow *idstream.OverflowError
	if !errors.As(err, &overflow) || overflow.ID != 65536 {
		t.Fatalf("expected overflow at 65536, got %v", err)
	}
	if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
		t.Fatalf("bundle must not exist after overflow: %v", statErr)
	}

	if err := WriteBundle(path, v, Info{}, units, idstream.Width32); err != nil {
		t.Fatalf("32-bit bundle: %v", err)
	}
}

func TestParseBoundary(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]rune{"newline": '\n', "space": ' ', "tab": '\t', "|": '|'} {
		got, err := ParseBoundary(in)
		if err != nil || got != want {
			t.Fatalf("ParseBoundary(%q): got %q, %v", in, got, err)
		}
		if back, _ := ParseBoundary(BoundaryName(want)); back != want {
			t.Fatalf("BoundaryName(%q) does not parse back", want)
		}
	}
	if _, err := ParseBoundary("ab"); err == nil {
		t.Fatalf("expected error for multi-rune boundary")
	}
}

func TestDescribe(t *testing.T) {
	t.Parallel()

	res := trainSample(t)
	info, err := Describe(res.Vocab, sampleUnits())
	if err != nil {
		t.Fatalf("describe: %v", err)
	}
	// Encoding the training corpus reproduces the training stream.
	if info.StreamLen != res.Info.StreamLen || info.Symbols != res.Info.Symbols {
		t.Fatalf("got stream %d symbols %d want %d and %d",
			info.StreamLen, info.Symbols, res.Info.StreamLen, res.Info.Symbols)
	}
	if info.ID == res.Info.ID {
		t.Fatalf("describe should mint a fresh id")
	}
}
