package vocab

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xeniagda/ilo-pi-ante-toki/pkg/gram"
)

const (
	// TableExt is the extension of bare gram table files.
	TableExt = ".grams"
	// BundleExt is the extension of gram bundles.
	BundleExt = ".gramc"
)

// SaveTable writes t to path. The file only appears once fully written.
func SaveTable(path string, t *gram.Table[rune]) error {
	buf, err := gram.AppendTable(make([]byte, 0, t.Len()*gram.RecordSize), t, Codec)
	if err != nil {
		return err
	}
	return writeAtomic(path, func(f *os.File) error {
		return writeFull(f, buf)
	})
}

// LoadTable reads a bare gram table file.
func LoadTable(path string) (*gram.Table[rune], error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	t, err := gram.ReadTable(bufio.NewReader(f), Codec)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return t, nil
}

// Load opens a vocabulary from a .grams table or a .gramc bundle. For bare
// tables boundary is used as given; bundles carry their own.
func Load(path string, boundary rune) (*Vocabulary, *Info, error) {
	if filepath.Ext(path) == BundleExt {
		b, err := OpenBundle(path)
		if err != nil {
			return nil, nil, err
		}
		defer func() { _ = b.Close() }()
		info := b.Info()
		return b.Vocab(), &info, nil
	}
	t, err := LoadTable(path)
	if err != nil {
		return nil, nil, err
	}
	return New(t, boundary), nil, nil
}

// writeAtomic writes through a temporary file in the target directory and
// renames it into place, so a failed write never leaves a partial artifact.
func writeAtomic(path string, write func(*os.File) error) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if err = write(tmp); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func writeFull(f *os.File, p []byte) error {
	for len(p) > 0 {
		n, err := f.Write(p)
		if err != nil {
			return err
		}
		p = p[n:]
	}
	return nil
}
