package gram

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

const (
	// RecordSize is the width of one serialized gram.
	RecordSize = 9

	payloadSize = RecordSize - 1

	tagComposite byte = 0
	// maxLiteralLen is the largest Literal discriminant.
	maxLiteralLen = 4
)

// SymbolCodec gives a symbol type its canonical byte form. Encodings must be
// 1 to 4 bytes long.
type SymbolCodec[S comparable] interface {
	AppendSymbol(dst []byte, sym S) ([]byte, error)
	ParseSymbol(b []byte) (S, error)
}

// RuneCodec encodes runes as UTF-8.
type RuneCodec struct{}

func (RuneCodec) AppendSymbol(dst []byte, r rune) ([]byte, error) {
	if !utf8.ValidRune(r) {
		return dst, fmt.Errorf("invalid rune %U", r)
	}
	return utf8.AppendRune(dst, r), nil
}

func (RuneCodec) ParseSymbol(b []byte) (rune, error) {
	r, size := utf8.DecodeRune(b)
	if r == utf8.RuneError && size <= 1 {
		return 0, errors.New("invalid utf-8")
	}
	if size != len(b) {
		return 0, fmt.Errorf("utf-8 length %d does not match discriminant %d", size, len(b))
	}
	return r, nil
}

// ByteCodec encodes bytes as themselves.
type ByteCodec struct{}

func (ByteCodec) AppendSymbol(dst []byte, b byte) ([]byte, error) {
	return append(dst, b), nil
}

func (ByteCodec) ParseSymbol(b []byte) (byte, error) {
	if len(b) != 1 {
		return 0, fmt.Errorf("byte symbol needs 1 byte, got %d", len(b))
	}
	return b[0], nil
}

// AppendRecord appends the 9-byte record for g, stored at index.
func AppendRecord[S comparable](dst []byte, index ID, g Gram[S], codec SymbolCodec[S]) ([]byte, error) {
	switch g.Kind {
	case Composite:
		if g.Left >= index || g.Right >= index {
			return dst, &TopologyError{Index: index, Left: g.Left, Right: g.Right}
		}
		dst = append(dst, tagComposite)
		dst = binary.LittleEndian.AppendUint32(dst, uint32(g.Left))
		dst = binary.LittleEndian.AppendUint32(dst, uint32(g.Right))
		return dst, nil
	case Literal:
		start := len(dst)
		var err error
		dst, err = codec.AppendSymbol(append(dst, 0), g.Symbol)
		if err != nil {
			return dst[:start], fmt.Errorf("gram: encode literal %d: %w", index, err)
		}
		n := len(dst) - start - 1
		if n < 1 || n > maxLiteralLen {
			return dst[:start], fmt.Errorf("gram: literal %d encodes to %d bytes, want 1..%d", index, n, maxLiteralLen)
		}
		dst[start] = byte(n)
		for ; n < payloadSize; n++ {
			dst = append(dst, 0)
		}
		return dst, nil
	default:
		return dst, fmt.Errorf("gram: invalid kind %d at index %d", g.Kind, index)
	}
}

// AppendTable appends the records of every gram in t. The table is validated
// first; on error dst is returned unchanged.
func AppendTable[S comparable](dst []byte, t *Table[S], codec SymbolCodec[S]) ([]byte, error) {
	if err := t.Validate(); err != nil {
		return dst, err
	}
	start := len(dst)
	for i, g := range t.grams {
		var err error
		dst, err = AppendRecord(dst, ID(i), g, codec)
		if err != nil {
			return dst[:start], err
		}
	}
	return dst, nil
}

// WriteTable serializes t to w. The records are fully built before the first
// write, so an invalid table writes nothing.
func WriteTable[S comparable](w io.Writer, t *Table[S], codec SymbolCodec[S]) (int64, error) {
	buf, err := AppendTable(make([]byte, 0, t.Len()*RecordSize), t, codec)
	if err != nil {
		return 0, err
	}
	n, err := w.Write(buf)
	return int64(n), err
}

// ParseTable decodes a table from its serialized records.
func ParseTable[S comparable](data []byte, codec SymbolCodec[S]) (*Table[S], error) {
	if len(data)%RecordSize != 0 {
		return nil, &MalformedRecordError{Index: len(data) / RecordSize, Reason: "truncated record"}
	}
	t := &Table[S]{grams: make([]Gram[S], 0, len(data)/RecordSize)}
	for off := 0; off < len(data); off += RecordSize {
		g, err := parseRecord(t.Len(), data[off:off+RecordSize], codec)
		if err != nil {
			return nil, err
		}
		t.grams = append(t.grams, g)
	}
	return t, nil
}

// ReadTable decodes records from r until EOF.
func ReadTable[S comparable](r io.Reader, codec SymbolCodec[S]) (*Table[S], error) {
	t := &Table[S]{}
	var rec [RecordSize]byte
	for {
		_, err := io.ReadFull(r, rec[:])
		if err == io.EOF {
			return t, nil
		}
		if err == io.ErrUnexpectedEOF {
			return nil, &MalformedRecordError{Index: t.Len(), Reason: "truncated record"}
		}
		if err != nil {
			return nil, err
		}
		g, err := parseRecord(t.Len(), rec[:], codec)
		if err != nil {
			return nil, err
		}
		t.grams = append(t.grams, g)
	}
}

func parseRecord[S comparable](index int, rec []byte, codec SymbolCodec[S]) (Gram[S], error) {
	tag, payload := rec[0], rec[1:RecordSize]
	if tag == tagComposite {
		left := ID(binary.LittleEndian.Uint32(payload[0:4]))
		right := ID(binary.LittleEndian.Uint32(payload[4:8]))
		if int64(left) >= int64(index) || int64(right) >= int64(index) {
			return Gram[S]{}, &MalformedRecordError{
				Index:  index,
				Reason: fmt.Sprintf("composite references (%d, %d), operands must be below %d", left, right, index),
			}
		}
		return NewComposite[S](left, right), nil
	}
	if tag > maxLiteralLen {
		return Gram[S]{}, &MalformedRecordError{Index: index, Reason: fmt.Sprintf("invalid discriminant %d", tag)}
	}
	for _, b := range payload[tag:] {
		if b != 0 {
			return Gram[S]{}, &MalformedRecordError{Index: index, Reason: "non-zero literal padding"}
		}
	}
	sym, err := codec.ParseSymbol(payload[:tag])
	if err != nil {
		return Gram[S]{}, &MalformedRecordError{Index: index, Reason: err.Error()}
	}
	return NewLiteral(sym), nil
}
