// Package vocab binds the gram engine to text: runes are the symbols and one
// boundary rune separates units.
package vocab

import (
	"fmt"
	"strings"

	"github.com/xeniagda/ilo-pi-ante-toki/pkg/gram"
)

// Codec is the symbol codec for text vocabularies.
var Codec gram.SymbolCodec[rune] = gram.RuneCodec{}

// Vocabulary is a frozen gram table over runes. It is safe for concurrent use.
type Vocabulary struct {
	table    *gram.Table[rune]
	enc      *gram.Encoder[rune]
	boundary rune
}

func New(table *gram.Table[rune], boundary rune) *Vocabulary {
	return &Vocabulary{
		table:    table,
		enc:      gram.NewEncoder(table),
		boundary: boundary,
	}
}

func (v *Vocabulary) Table() *gram.Table[rune] { return v.table }
func (v *Vocabulary) Boundary() rune           { return v.boundary }
func (v *Vocabulary) Len() int                 { return v.table.Len() }

// Encode maps text to gram ids.
func (v *Vocabulary) Encode(text string) ([]gram.ID, error) {
	return v.enc.Encode([]rune(text))
}

// Decode expands ids back to text.
func (v *Vocabulary) Decode(ids []gram.ID) (string, error) {
	runes, err := gram.Decode(v.table, ids)
	if err != nil {
		return "", err
	}
	return string(runes), nil
}

// Render returns the text a single gram stands for.
func (v *Vocabulary) Render(id gram.ID) (string, error) {
	return v.Decode([]gram.ID{id})
}

// Entry describes one gram for listings.
type Entry struct {
	ID    gram.ID  `json:"id"`
	Kind  string   `json:"kind"`
	Left  *gram.ID `json:"left,omitempty"`
	Right *gram.ID `json:"right,omitempty"`
	Text  string   `json:"text"`
	Depth int      `json:"depth"`
}

// Entry returns the listing entry for id.
func (v *Vocabulary) Entry(id gram.ID) (Entry, error) {
	g, ok := v.table.At(id)
	if !ok {
		return Entry{}, &gram.InvalidIDError{ID: id, Len: v.table.Len()}
	}
	text, err := v.Render(id)
	if err != nil {
		return Entry{}, err
	}
	depth, err := gram.Depth(v.table, id)
	if err != nil {
		return Entry{}, err
	}
	e := Entry{ID: id, Kind: g.Kind.String(), Text: text, Depth: depth}
	if g.Kind == gram.Composite {
		left, right := g.Left, g.Right
		e.Left, e.Right = &left, &right
	}
	return e, nil
}

// Entries lists grams in [offset, offset+limit). limit <= 0 lists to the end.
func (v *Vocabulary) Entries(offset, limit int) ([]Entry, error) {
	if offset < 0 || offset > v.table.Len() {
		return nil, fmt.Errorf("vocab: offset %d out of range [0, %d]", offset, v.table.Len())
	}
	end := v.table.Len()
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	out := make([]Entry, 0, end-offset)
	for i := offset; i < end; i++ {
		e, err := v.Entry(gram.ID(i))
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// Used marks every id that appears in stream.
func Used(stream []gram.ID, size int) []bool {
	used := make([]bool, size)
	for _, id := range stream {
		if int(id) < size {
			used[id] = true
		}
	}
	return used
}

// Segment renders ids as the text of each gram joined by sep.
func (v *Vocabulary) Segment(ids []gram.ID, sep string) (string, error) {
	parts := make([]string, len(ids))
	for i, id := range ids {
		text, err := v.Render(id)
		if err != nil {
			return "", err
		}
		parts[i] = text
	}
	return strings.Join(parts, sep), nil
}

// ParseBoundary accepts a single rune or one of the names "newline", "space", "tab".
func ParseBoundary(s string) (rune, error) {
	switch strings.ToLower(s) {
	case "newline", "\\n", "\n":
		return '\n', nil
	case "space", " ":
		return ' ', nil
	case "tab", "\\t", "\t":
		return '\t', nil
	}
	r := []rune(s)
	if len(r) != 1 {
		return 0, fmt.Errorf("vocab: boundary must be a single character, got %q", s)
	}
	return r[0], nil
}

// BoundaryName is the inverse of ParseBoundary for the named runes.
func BoundaryName(r rune) string {
	switch r {
	case '\n':
		return "newline"
	case ' ':
		return "space"
	case '\t':
		return "tab"
	default:
		return string(r)
	}
}
