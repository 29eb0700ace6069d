// Package gram implements n-gram vocabulary induction and the gram table codec.
//
// A gram table is an ordered list of grams. A Literal gram wraps one atomic
// symbol; a Composite gram joins two grams that appear earlier in the table.
// Tables are built by a greedy pair-merging Session, replayed over new input by
// an Encoder, expanded back to symbols by Decode and persisted as fixed-width
// 9-byte records by WriteTable/ReadTable.
package gram

import "fmt"

// ID is a gram's index in its table.
type ID uint32

type Kind uint8

const (
	Literal Kind = iota + 1
	Composite
)

func (k Kind) String() string {
	switch k {
	case Literal:
		return "literal"
	case Composite:
		return "composite"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Gram is a table entry. Symbol is only meaningful for Literal grams,
// Left and Right only for Composite grams.
type Gram[S comparable] struct {
	Kind   Kind
	Symbol S
	Left   ID
	Right  ID
}

func NewLiteral[S comparable](sym S) Gram[S] {
	return Gram[S]{Kind: Literal, Symbol: sym}
}

func NewComposite[S comparable](left, right ID) Gram[S] {
	return Gram[S]{Kind: Composite, Left: left, Right: right}
}

func (g Gram[S]) IsLiteral() bool { return g.Kind == Literal }

func (g Gram[S]) String() string {
	if g.Kind == Composite {
		return fmt.Sprintf("Composite(%d, %d)", g.Left, g.Right)
	}
	return fmt.Sprintf("Literal(%v)", g.Symbol)
}

// Table is an append-only, topologically ordered list of grams: every
// Composite at index i references ids strictly below i.
type Table[S comparable] struct {
	grams []Gram[S]
}

// NewTable builds a table from grams, rejecting any topology violation.
func NewTable[S comparable](grams []Gram[S]) (*Table[S], error) {
	t := &Table[S]{grams: make([]Gram[S], 0, len(grams))}
	for _, g := range grams {
		if _, err := t.Append(g); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (t *Table[S]) Len() int { return len(t.grams) }

// At returns the gram stored at id. ok is false when id is out of range.
func (t *Table[S]) At(id ID) (Gram[S], bool) {
	if int(id) >= len(t.grams) {
		return Gram[S]{}, false
	}
	return t.grams[id], true
}

// Grams returns a copy of the table entries.
func (t *Table[S]) Grams() []Gram[S] {
	out := make([]Gram[S], len(t.grams))
	copy(out, t.grams)
	return out
}

// Append adds g at the next index and returns that index.
func (t *Table[S]) Append(g Gram[S]) (ID, error) {
	next := ID(len(t.grams))
	switch g.Kind {
	case Literal:
	case Composite:
		if g.Left >= next || g.Right >= next {
			return 0, &TopologyError{Index: next, Left: g.Left, Right: g.Right}
		}
	default:
		return 0, fmt.Errorf("gram: invalid kind %d at index %d", g.Kind, next)
	}
	t.grams = append(t.grams, g)
	return next, nil
}

func (t *Table[S]) AppendLiteral(sym S) ID {
	id := ID(len(t.grams))
	t.grams = append(t.grams, NewLiteral(sym))
	return id
}

func (t *Table[S]) AppendComposite(left, right ID) (ID, error) {
	return t.Append(NewComposite[S](left, right))
}

// Validate checks the topological invariant over the whole table.
func (t *Table[S]) Validate() error {
	for i, g := range t.grams {
		if g.Kind != Composite {
			continue
		}
		if int(g.Left) >= i || int(g.Right) >= i {
			return &TopologyError{Index: ID(i), Left: g.Left, Right: g.Right}
		}
	}
	return nil
}

// Equal reports whether both tables hold the same grams in the same order.
func (t *Table[S]) Equal(o *Table[S]) bool {
	if t == nil || o == nil {
		return t == o
	}
	if len(t.grams) != len(o.grams) {
		return false
	}
	for i := range t.grams {
		a, b := t.grams[i], o.grams[i]
		if a.Kind != b.Kind {
			return false
		}
		if a.Kind == Literal && a.Symbol != b.Symbol {
			return false
		}
		if a.Kind == Composite && (a.Left != b.Left || a.Right != b.Right) {
			return false
		}
	}
	return true
}

// Literals counts the Literal entries.
func (t *Table[S]) Literals() int {
	n := 0
	for _, g := range t.grams {
		if g.Kind == Literal {
			n++
		}
	}
	return n
}
