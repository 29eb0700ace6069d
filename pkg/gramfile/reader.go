package gramfile

import (
	"fmt"
	"io"
	"math"
	"os"

	"golang.org/x/sys/unix"
)

// File is an opened bundle. Section payloads alias Data and are only valid
// until Close.
type File struct {
	Data     []byte
	Header   Header
	Sections []Section

	unmap func([]byte) error
}

// Open maps path read-only. When mmap fails the file is read into memory.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	st, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if st.Size() < headerSize || st.Size() > math.MaxInt {
		return nil, fmt.Errorf("%w: size %d", ErrCorruptFile, st.Size())
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(st.Size()), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return OpenReaderAt(f, st.Size())
	}
	bf, err := parse(data)
	if err != nil {
		_ = unix.Munmap(data)
		return nil, err
	}
	bf.unmap = unix.Munmap
	return bf, nil
}

// OpenReaderAt copies size bytes from r and validates them as a bundle.
func OpenReaderAt(r io.ReaderAt, size int64) (*File, error) {
	if size < 0 || size > math.MaxInt {
		return nil, fmt.Errorf("%w: size %d", ErrCorruptFile, size)
	}
	data := make([]byte, size)
	if n, err := r.ReadAt(data, 0); n < len(data) {
		if err == nil || err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return parse(data)
}

func parse(data []byte) (*File, error) {
	h, err := parseHeader(data)
	if err != nil {
		return nil, err
	}
	if !h.Valid() {
		return nil, ErrInvalidMagic
	}
	if !h.Compatible() {
		return nil, fmt.Errorf("%w: %d.%d", ErrUnsupportedMajor, h.Major, h.Minor)
	}
	size := uint64(len(data))
	if h.FileSize != size {
		return nil, fmt.Errorf("%w: header says %d bytes, have %d", ErrCorruptFile, h.FileSize, size)
	}

	dirStart := h.SectionDirOffset
	dirEnd := dirStart + uint64(h.SectionCount)*sectionSize
	if dirStart < uint64(h.HeaderSize) || dirEnd < dirStart || dirEnd > size {
		return nil, fmt.Errorf("%w: section directory out of bounds", ErrCorruptFile)
	}

	sections := make([]Section, h.SectionCount)
	for i := range sections {
		s := parseSection(data[dirStart+uint64(i)*sectionSize:])
		switch end := s.End(); {
		case end < s.Offset || end > size:
			return nil, fmt.Errorf("%w: section %d out of bounds", ErrCorruptFile, i)
		case s.Offset < uint64(h.HeaderSize):
			return nil, fmt.Errorf("%w: section %d overlaps header", ErrCorruptFile, i)
		case s.Offset < dirEnd && dirStart < end:
			return nil, fmt.Errorf("%w: section %d overlaps section directory", ErrCorruptFile, i)
		case s.Offset%align != 0:
			return nil, fmt.Errorf("%w: section %d not %d-byte aligned", ErrCorruptFile, i, align)
		}
		sections[i] = s
	}
	return &File{Data: data, Header: h, Sections: sections}, nil
}

// Mapped reports whether Data is backed by mmap.
func (f *File) Mapped() bool { return f.unmap != nil }

// Close releases the mapping. It is safe to call more than once.
func (f *File) Close() error {
	if f == nil || f.Data == nil {
		return nil
	}
	var err error
	if f.unmap != nil {
		err = f.unmap(f.Data)
	}
	f.Data, f.Sections, f.unmap = nil, nil, nil
	return err
}

// Lookup returns the payload of the first section of type t.
func (f *File) Lookup(t SectionType) ([]byte, bool) {
	for _, s := range f.Sections {
		if SectionType(s.Type) == t {
			return f.Data[s.Offset:s.End()], true
		}
	}
	return nil, false
}
