package idstream

import (
	"encoding/binary"
	"fmt"
	"io"
)

// IndexRecordSize is the width of one span record: u32 offset, u32 length.
const IndexRecordSize = 8

func AppendSpan(dst []byte, s Span) []byte {
	dst = binary.LittleEndian.AppendUint32(dst, s.Offset)
	return binary.LittleEndian.AppendUint32(dst, s.Length)
}

// IndexWriter writes span records back to back.
type IndexWriter struct {
	w   io.Writer
	n   int
	buf [IndexRecordSize]byte
}

func NewIndexWriter(w io.Writer) *IndexWriter { return &IndexWriter{w: w} }

func (iw *IndexWriter) Write(s Span) error {
	if _, err := iw.w.Write(AppendSpan(iw.buf[:0], s)); err != nil {
		return err
	}
	iw.n++
	return nil
}

// Count is the number of records written.
func (iw *IndexWriter) Count() int { return iw.n }

// ParseIndex decodes span records. A non-negative streamSize bounds every span.
func ParseIndex(data []byte, streamSize int64) ([]Span, error) {
	if len(data)%IndexRecordSize != 0 {
		return nil, fmt.Errorf("idstream: index length %d is not a multiple of %d", len(data), IndexRecordSize)
	}
	spans := make([]Span, 0, len(data)/IndexRecordSize)
	for off := 0; off < len(data); off += IndexRecordSize {
		s := Span{
			Offset: binary.LittleEndian.Uint32(data[off:]),
			Length: binary.LittleEndian.Uint32(data[off+4:]),
		}
		if streamSize >= 0 && s.End() > uint64(streamSize) {
			return nil, fmt.Errorf("idstream: span %d [%d,+%d) exceeds stream of %d bytes", len(spans), s.Offset, s.Length, streamSize)
		}
		spans = append(spans, s)
	}
	return spans, nil
}
