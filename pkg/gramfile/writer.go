package gramfile

import (
	"bufio"
	"cmp"
	"errors"
	"fmt"
	"io"
	"slices"
)

var (
	ErrFinalised     = errors.New("gramfile: writer already finalised")
	ErrSectionOpen   = errors.New("gramfile: a streamed section is still open")
	ErrDuplicate     = errors.New("gramfile: duplicate section type")
	ErrSectionClosed = errors.New("gramfile: section writer is not active")
)

// Target is where a bundle is written. The header is patched in place with
// WriteAt once every section is known; *os.File satisfies it.
type Target interface {
	io.Writer
	io.WriterAt
}

// Writer lays out a bundle front to back: reserved header, aligned section
// payloads, then the section directory. It is not safe for concurrent use.
type Writer struct {
	dst      Target
	buf      *bufio.Writer
	pos      uint64
	sections []Section
	open     *SectionWriter
	flags    uint64
	done     bool
}

// NewWriter starts a bundle at offset 0 of dst, which should be empty.
func NewWriter(dst Target) (*Writer, error) {
	if dst == nil {
		return nil, errors.New("gramfile: nil target")
	}
	w := &Writer{dst: dst, buf: bufio.NewWriterSize(dst, 64<<10)}
	if err := w.pad(headerSize); err != nil {
		return nil, err
	}
	return w, nil
}

// WriteSection stores data as the payload of a section of type typ.
func (w *Writer) WriteSection(typ SectionType, version uint32, data []byte) error {
	sw, err := w.BeginSection(typ, version)
	if err != nil {
		return err
	}
	if _, err := sw.Write(data); err != nil {
		return err
	}
	return sw.End()
}

// AddFlags ORs flags into the header.
func (w *Writer) AddFlags(flags uint64) error {
	if w.done {
		return ErrFinalised
	}
	w.flags |= flags
	return nil
}

// BeginSection opens a section whose payload is streamed through the returned
// writer. No other section may be written until End is called.
func (w *Writer) BeginSection(typ SectionType, version uint32) (*SectionWriter, error) {
	switch {
	case w.done:
		return nil, ErrFinalised
	case w.open != nil:
		return nil, ErrSectionOpen
	case w.has(typ):
		return nil, fmt.Errorf("%w: %s", ErrDuplicate, typ)
	}
	if err := w.pad(alignUp(w.pos, align) - w.pos); err != nil {
		return nil, err
	}
	w.open = &SectionWriter{w: w, sec: Section{Type: uint32(typ), Version: version, Offset: w.pos}}
	return w.open, nil
}

func (w *Writer) has(typ SectionType) bool {
	if w.open != nil && SectionType(w.open.sec.Type) == typ {
		return true
	}
	return slices.ContainsFunc(w.sections, func(s Section) bool { return SectionType(s.Type) == typ })
}

// SectionWriter is an io.Writer for one section payload.
type SectionWriter struct {
	w   *Writer
	sec Section
}

func (sw *SectionWriter) Write(p []byte) (int, error) {
	if sw.w.open != sw {
		return 0, ErrSectionClosed
	}
	n, err := sw.w.buf.Write(p)
	sw.w.pos += uint64(n)
	return n, err
}

// End records the section in the directory.
func (sw *SectionWriter) End() error {
	if sw.w.open != sw {
		return ErrSectionClosed
	}
	sw.sec.Size = sw.w.pos - sw.sec.Offset
	sw.w.sections = append(sw.w.sections, sw.sec)
	sw.w.open = nil
	return nil
}

// Finalise writes the directory, sorted by section type, and the header.
// The writer cannot be used afterwards.
func (w *Writer) Finalise() error {
	if w.done {
		return ErrFinalised
	}
	if w.open != nil {
		return ErrSectionOpen
	}
	w.done = true

	slices.SortFunc(w.sections, func(a, b Section) int { return cmp.Compare(a.Type, b.Type) })
	if err := w.pad(alignUp(w.pos, align) - w.pos); err != nil {
		return err
	}
	dirOffset := w.pos
	dir := make([]byte, 0, len(w.sections)*sectionSize)
	for _, s := range w.sections {
		dir = appendSection(dir, s)
	}
	if _, err := w.buf.Write(dir); err != nil {
		return err
	}
	w.pos += uint64(len(dir))
	if err := w.buf.Flush(); err != nil {
		return err
	}

	h := Header{
		Major:            CurrentMajor,
		Minor:            CurrentMinor,
		HeaderSize:       headerSize,
		SectionCount:     uint32(len(w.sections)),
		SectionDirOffset: dirOffset,
		FileSize:         w.pos,
		Flags:            w.flags,
	}
	copy(h.Magic[:], Magic)
	_, err := w.dst.WriteAt(appendHeader(make([]byte, 0, headerSize), h), 0)
	return err
}

func (w *Writer) pad(n uint64) error {
	var zeros [align]byte
	for n > 0 {
		chunk := min(n, uint64(len(zeros)))
		if _, err := w.buf.Write(zeros[:chunk]); err != nil {
			return err
		}
		w.pos += chunk
		n -= chunk
	}
	return nil
}

func alignUp(n, a uint64) uint64 {
	return (n + a - 1) / a * a
}
