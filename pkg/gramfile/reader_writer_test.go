package gramfile

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeBundle(t *testing.T, path string) {
	t.Helper()

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create file: %v", err)
	}
	defer func() { _ = f.Close() }()

	w, err := NewWriter(f)
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	if err := w.WriteSection(SectionInfo, 1, []byte(`{"threshold":0.01}`)); err != nil {
		t.Fatalf("write info: %v", err)
	}
	if err := w.WriteSection(SectionTable, 1, []byte{1, 'a', 0, 0, 0, 0, 0, 0, 0}); err != nil {
		t.Fatalf("write table: %v", err)
	}
	sw, err := w.BeginSection(SectionUnits, 1)
	if err != nil {
		t.Fatalf("begin units: %v", err)
	}
	if err := w.WriteSection(SectionUnitIndex, 1, nil); err == nil {
		t.Fatalf("expected error while a section is open")
	}
	if _, err := sw.Write([]byte{0, 0, 0, 0}); err != nil {
		t.Fatalf("write units: %v", err)
	}
	if err := sw.End(); err != nil {
		t.Fatalf("end units: %v", err)
	}
	if err := w.WriteSection(SectionTable, 1, nil); err == nil {
		t.Fatalf("expected duplicate section error")
	}
	if err := w.AddFlags(FlagUnitsWide); err != nil {
		t.Fatalf("add flags: %v", err)
	}
	if err := w.Finalise(); err != nil {
		t.Fatalf("finalise: %v", err)
	}
	if err := w.Finalise(); err == nil {
		t.Fatalf("expected error on second finalise")
	}
}

func TestOpenRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "toki.gramc")
	writeBundle(t, path)

	bf, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() {
		if cerr := bf.Close(); cerr != nil {
			t.Fatalf("close: %v", cerr)
		}
		if cerr := bf.Close(); cerr != nil {
			t.Fatalf("second close: %v", cerr)
		}
	}()

	if bf.Header.Flags&FlagUnitsWide == 0 {
		t.Fatalf("flags not preserved: %x", bf.Header.Flags)
	}
	if len(bf.Sections) != 3 {
		t.Fatalf("section count: got %d want 3", len(bf.Sections))
	}
	for i := 1; i < len(bf.Sections); i++ {
		if bf.Sections[i-1].Type > bf.Sections[i].Type {
			t.Fatalf("section directory not sorted: %+v", bf.Sections)
		}
	}

	table, ok := bf.Lookup(SectionTable)
	if !ok || !bytes.Equal(table, []byte{1, 'a', 0, 0, 0, 0, 0, 0, 0}) {
		t.Fatalf("table section mismatch: %v", table)
	}
	info, ok := bf.Lookup(SectionInfo)
	if !ok || string(info) != `{"threshold":0.01}` {
		t.Fatalf("info section mismatch: %q", info)
	}
	units, ok := bf.Lookup(SectionUnits)
	if !ok || len(units) != 4 {
		t.Fatalf("units section mismatch: %v", units)
	}
	if _, ok := bf.Lookup(SectionUnitIndex); ok {
		t.Fatalf("unit index was never written")
	}
}

func TestOpenReaderAtDoesNotMap(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "toki.gramc")
	writeBundle(t, path)

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	bf, err := OpenReaderAt(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		t.Fatalf("open readerat: %v", err)
	}
	if bf.Mapped() {
		t.Fatalf("OpenReaderAt should not mmap")
	}
	if bf.Header.HeaderSize != headerSize {
		t.Fatalf("header size: got %d want %d", bf.Header.HeaderSize, headerSize)
	}
}

func TestOpenRejectsCorruption(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "toki.gramc")
	writeBundle(t, path)
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}

	badMagic := bytes.Clone(raw)
	badMagic[0] = 'X'
	if _, err := OpenReaderAt(bytes.NewReader(badMagic), int64(len(badMagic))); !errors.Is(err, ErrInvalidMagic) {
		t.Fatalf("bad magic: expected ErrInvalidMagic, got %v", err)
	}

	badMajor := bytes.Clone(raw)
	badMajor[4] = 9
	if _, err := OpenReaderAt(bytes.NewReader(badMajor), int64(len(badMajor))); !errors.Is(err, ErrUnsupportedMajor) {
		t.Fatalf("bad major: expected ErrUnsupportedMajor, got %v", err)
	}

	truncated := raw[:len(raw)-1]
	if _, err := OpenReaderAt(bytes.NewReader(truncated), int64(len(truncated))); !errors.Is(err, ErrCorruptFile) {
		t.Fatalf("truncated: expected ErrCorruptFile, got %v", err)
	}
}

func TestHeaderAndSectionEncodingLittleEndian(t *testing.T) {
	t.Parallel()

	h := Header{
		Magic:            [4]byte{'G', 'R', 'M', 0},
		Major:            0x1122,
		Minor:            0x3344,
		HeaderSize:       headerSize,
		SectionCount:     3,
		SectionDirOffset: 0x0102030405060708,
		FileSize:         0x1112131415161718,
		Flags:            FlagUnitsWide,
	}
	hdrRaw := appendHeader(nil, h)
	if len(hdrRaw) != headerSize {
		t.Fatalf("header length: got %d want %d", len(hdrRaw), headerSize)
	}
	if hdrRaw[4] != 0x22 || hdrRaw[5] != 0x11 {
		t.Fatalf("major is not little-endian: %x", hdrRaw[4:6])
	}
	got, err := parseHeader(hdrRaw)
	if err != nil || got != h {
		t.Fatalf("header round-trip mismatch: got %+v want %+v (%v)", got, h, err)
	}
	if _, err := parseHeader(hdrRaw[:headerSize-1]); !errors.Is(err, ErrCorruptFile) {
		t.Fatalf("short header: expected ErrCorruptFile, got %v", err)
	}

	s := Section{Type: uint32(SectionUnits), Version: 2, Offset: 48, Size: 0x0102030405060708}
	secRaw := appendSection(nil, s)
	if len(secRaw) != sectionSize {
		t.Fatalf("section length: got %d want %d", len(secRaw), sectionSize)
	}
	if secRaw[16] != 0x08 || secRaw[23] != 0x01 {
		t.Fatalf("section size is not little-endian: %x", secRaw[16:24])
	}
	if gotS := parseSection(secRaw); gotS != s {
		t.Fatalf("section round-trip mismatch: got %+v want %+v", gotS, s)
	}
}

func TestWriterErrors(t *testing.T) {
	t.Parallel()

	f, err := os.Create(filepath.Join(t.TempDir(), "x.gramc"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer func() { _ = f.Close() }()

	w, err := NewWriter(f)
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	sw, err := w.BeginSection(SectionUnits, 1)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if _, err := w.BeginSection(SectionUnits, 1); !errors.Is(err, ErrSectionOpen) {
		t.Fatalf("expected ErrSectionOpen, got %v", err)
	}
	if err := w.Finalise(); !errors.Is(err, ErrSectionOpen) {
		t.Fatalf("finalise with open section: got %v", err)
	}
	if err := sw.End(); err != nil {
		t.Fatalf("end: %v", err)
	}
	if _, err := sw.Write([]byte{1}); !errors.Is(err, ErrSectionClosed) {
		t.Fatalf("write after end: got %v", err)
	}
	if err := w.WriteSection(SectionUnits, 1, nil); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	if err := w.Finalise(); err != nil {
		t.Fatalf("finalise: %v", err)
	}
	if err := w.AddFlags(FlagUnitsWide); !errors.Is(err, ErrFinalised) {
		t.Fatalf("expected ErrFinalised, got %v", err)
	}
}
