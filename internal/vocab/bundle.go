package vocab

import (
	"errors"
	"fmt"
	"os"

	json "github.com/goccy/go-json"

	"github.com/xeniagda/ilo-pi-ante-toki/internal/corpus"
	"github.com/xeniagda/ilo-pi-ante-toki/pkg/gram"
	"github.com/xeniagda/ilo-pi-ante-toki/pkg/gramfile"
	"github.com/xeniagda/ilo-pi-ante-toki/pkg/idstream"
)

const sectionVersion = 1

// WriteBundle writes v, its training info and units encoded against v to a
// bundle at path. Any encoding or overflow error aborts the whole bundle.
func WriteBundle(path string, v *Vocabulary, info Info, units []corpus.Unit, width idstream.Width) error {
	table, err := gram.AppendTable(make([]byte, 0, v.Len()*gram.RecordSize), v.Table(), Codec)
	if err != nil {
		return err
	}
	info.IDWidth = int(width)
	infoJSON, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("encode info: %w", err)
	}

	return writeAtomic(path, func(f *os.File) error {
		w, err := gramfile.NewWriter(f)
		if err != nil {
			return err
		}
		if err := w.WriteSection(gramfile.SectionTable, sectionVersion, table); err != nil {
			return err
		}
		if err := w.WriteSection(gramfile.SectionInfo, sectionVersion, infoJSON); err != nil {
			return err
		}

		sw, err := w.BeginSection(gramfile.SectionUnits, sectionVersion)
		if err != nil {
			return err
		}
		ids, err := idstream.NewWriter(sw, width)
		if err != nil {
			return err
		}
		index := make([]byte, 0, len(units)*idstream.IndexRecordSize)
		for i, u := range units {
			encoded, err := v.Encode(u.Text)
			if err != nil {
				return fmt.Errorf("encode unit %d (%s): %w", i, u.ID, err)
			}
			span, err := ids.WriteUnit(encoded)
			if err != nil {
				return fmt.Errorf("write unit %d (%s): %w", i, u.ID, err)
			}
			index = idstream.AppendSpan(index, span)
		}
		if err := sw.End(); err != nil {
			return err
		}
		if err := w.WriteSection(gramfile.SectionUnitIndex, sectionVersion, index); err != nil {
			return err
		}
		if width == idstream.Width32 {
			if err := w.AddFlags(gramfile.FlagUnitsWide); err != nil {
				return err
			}
		}
		return w.Finalise()
	})
}

// Bundle is an opened gram bundle.
type Bundle struct {
	file   *gramfile.File
	vocab  *Vocabulary
	info   Info
	spans  []idstream.Span
	units  []byte
	width  idstream.Width
	closed bool
}

// ErrBundleClosed is returned by Unit after Close.
var ErrBundleClosed = errors.New("vocab: bundle is closed")

// OpenBundle opens and validates a bundle.
func OpenBundle(path string) (*Bundle, error) {
	f, err := gramfile.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	b, err := newBundle(f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return b, nil
}

func newBundle(f *gramfile.File) (*Bundle, error) {
	raw, ok := f.Lookup(gramfile.SectionTable)
	if !ok {
		return nil, fmt.Errorf("%w: missing table section", gramfile.ErrCorruptFile)
	}
	table, err := gram.ParseTable(raw, Codec)
	if err != nil {
		return nil, err
	}

	var info Info
	if raw, ok := f.Lookup(gramfile.SectionInfo); ok {
		if err := json.Unmarshal(raw, &info); err != nil {
			return nil, fmt.Errorf("decode info: %w", err)
		}
	}
	boundary := corpus.DefaultBoundary
	if info.Boundary != "" {
		if boundary, err = ParseBoundary(info.Boundary); err != nil {
			return nil, err
		}
	}

	width := idstream.Width16
	if f.Header.Flags&gramfile.FlagUnitsWide != 0 {
		width = idstream.Width32
	}
	units, _ := f.Lookup(gramfile.SectionUnits)
	var spans []idstream.Span
	if raw, ok := f.Lookup(gramfile.SectionUnitIndex); ok {
		if spans, err = idstream.ParseIndex(raw, int64(len(units))); err != nil {
			return nil, err
		}
	}

	return &Bundle{
		file:  f,
		vocab: New(table, boundary),
		info:  info,
		spans: spans,
		units: units,
		width: width,
	}, nil
}

func (b *Bundle) Vocab() *Vocabulary    { return b.vocab }
func (b *Bundle) Info() Info            { return b.info }
func (b *Bundle) Width() idstream.Width { return b.width }
func (b *Bundle) NumUnits() int         { return len(b.spans) }

// Unit returns the encoded ids of unit i. It fails with ErrBundleClosed
// once Close has been called.
func (b *Bundle) Unit(i int) ([]gram.ID, error) {
	if b.closed {
		return nil, ErrBundleClosed
	}
	if i < 0 || i >= len(b.spans) {
		return nil, fmt.Errorf("vocab: unit %d out of range [0, %d)", i, len(b.spans))
	}
	s := b.spans[i]
	return idstream.ParseUnit(b.units[s.Offset:s.End()], b.width)
}

// Close releases the underlying file. The vocabulary stays usable.
func (b *Bundle) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	b.units = nil
	return b.file.Close()
}
