// Package idstream stores encoded units as fixed-width little-endian gram ids.
//
// Units are written back to back with no separators. Each WriteUnit returns
// the unit's Span, which callers record out of band (see IndexWriter).
package idstream

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/xeniagda/ilo-pi-ante-toki/pkg/gram"
)

// Width is the number of bits used per id.
type Width uint8

const (
	Width16 Width = 16
	Width32 Width = 32
)

var ErrInvalidWidth = errors.New("idstream: width must be 16 or 32")

// ParseWidth accepts 16 or 32.
func ParseWidth(bits int) (Width, error) {
	switch bits {
	case 16:
		return Width16, nil
	case 32:
		return Width32, nil
	default:
		return 0, fmt.Errorf("%w: got %d", ErrInvalidWidth, bits)
	}
}

func (w Width) Bytes() int { return int(w) / 8 }

// Capacity is the number of distinct ids the width can hold.
func (w Width) Capacity() uint64 { return 1 << uint(w) }

// Fits reports whether id can be written at this width.
func (w Width) Fits(id gram.ID) bool { return uint64(id) < w.Capacity() }

func (w Width) valid() bool { return w == Width16 || w == Width32 }

// OverflowError reports an id that does not fit the configured width.
type OverflowError struct {
	ID       gram.ID
	Width    Width
	Position int
}

func (e *OverflowError) Error() string {
	return fmt.Sprintf("idstream: id %d at position %d does not fit in %d bits", e.ID, e.Position, e.Width)
}

// Span locates a unit inside the stream, in bytes.
type Span struct {
	Offset uint32
	Length uint32
}

func (s Span) End() uint64 { return uint64(s.Offset) + uint64(s.Length) }

// AppendUnit appends ids at width w. On overflow dst is returned unchanged.
func AppendUnit(dst []byte, ids []gram.ID, w Width) ([]byte, error) {
	if !w.valid() {
		return dst, ErrInvalidWidth
	}
	for i, id := range ids {
		if !w.Fits(id) {
			return dst, &OverflowError{ID: id, Width: w, Position: i}
		}
	}
	for _, id := range ids {
		if w == Width16 {
			dst = binary.LittleEndian.AppendUint16(dst, uint16(id))
		} else {
			dst = binary.LittleEndian.AppendUint32(dst, uint32(id))
		}
	}
	return dst, nil
}

// ParseUnit decodes a unit encoded at width w.
func ParseUnit(data []byte, w Width) ([]gram.ID, error) {
	if !w.valid() {
		return nil, ErrInvalidWidth
	}
	size := w.Bytes()
	if len(data)%size != 0 {
		return nil, fmt.Errorf("idstream: unit length %d is not a multiple of %d", len(data), size)
	}
	ids := make([]gram.ID, 0, len(data)/size)
	for off := 0; off < len(data); off += size {
		if w == Width16 {
			ids = append(ids, gram.ID(binary.LittleEndian.Uint16(data[off:])))
		} else {
			ids = append(ids, gram.ID(binary.LittleEndian.Uint32(data[off:])))
		}
	}
	return ids, nil
}

// Writer streams units to an io.Writer and tracks their offsets.
type Writer struct {
	w      io.Writer
	width  Width
	offset uint64
	buf    []byte
}

func NewWriter(w io.Writer, width Width) (*Writer, error) {
	if w == nil {
		return nil, errors.New("idstream: nil writer")
	}
	if !width.valid() {
		return nil, ErrInvalidWidth
	}
	return &Writer{w: w, width: width}, nil
}

func (w *Writer) Width() Width { return w.width }

// Offset is the number of bytes written so far.
func (w *Writer) Offset() uint64 { return w.offset }

// WriteUnit writes one unit. An id that does not fit the width fails the
// unit with *OverflowError before any of its bytes are written.
func (w *Writer) WriteUnit(ids []gram.ID) (Span, error) {
	buf, err := AppendUnit(w.buf[:0], ids, w.width)
	if err != nil {
		return Span{}, err
	}
	w.buf = buf
	end := w.offset + uint64(len(buf))
	if end > math.MaxUint32 {
		return Span{}, fmt.Errorf("idstream: stream exceeds %d bytes", uint64(math.MaxUint32))
	}
	if len(buf) > 0 {
		if _, err := w.w.Write(buf); err != nil {
			return Span{}, err
		}
	}
	span := Span{Offset: uint32(w.offset), Length: uint32(len(buf))}
	w.offset = end
	return span, nil
}

// ReadUnit reads the unit at span from r.
func ReadUnit(r io.ReaderAt, span Span, w Width) ([]gram.ID, error) {
	if span.Length == 0 {
		return []gram.ID{}, nil
	}
	buf := make([]byte, span.Length)
	if _, err := r.ReadAt(buf, int64(span.Offset)); err != nil {
		return nil, fmt.Errorf("idstream: read unit at %d: %w", span.Offset, err)
	}
	return ParseUnit(buf, w)
}
