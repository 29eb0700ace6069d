package gram

// Encoder maps symbol sequences to gram ids by replaying a table's merges in
// table order. It is read-only after construction and safe for concurrent use.
type Encoder[S comparable] struct {
	table  *Table[S]
	lookup map[S]ID
	merges []merge
}

type merge struct {
	pair Pair
	id   ID
}

func NewEncoder[S comparable](t *Table[S]) *Encoder[S] {
	e := &Encoder[S]{
		table:  t,
		lookup: make(map[S]ID, t.Literals()),
	}
	for i, g := range t.grams {
		switch g.Kind {
		case Literal:
			// First occurrence wins if a table repeats a symbol.
			if _, ok := e.lookup[g.Symbol]; !ok {
				e.lookup[g.Symbol] = ID(i)
			}
		case Composite:
			e.merges = append(e.merges, merge{pair: Pair{Left: g.Left, Right: g.Right}, id: ID(i)})
		}
	}
	return e
}

// Encode returns the gram ids for input. A symbol with no Literal entry fails
// the whole call with *UnknownSymbolError.
func (e *Encoder[S]) Encode(input []S) ([]ID, error) {
	stream := make([]ID, len(input))
	present := make([]bool, e.table.Len())
	for i, sym := range input {
		id, ok := e.lookup[sym]
		if !ok {
			return nil, &UnknownSymbolError{Symbol: sym, Position: i}
		}
		stream[i] = id
		present[id] = true
	}

	// Merges must run in learned order: later composites are defined in terms
	// of ids produced by earlier ones. present only ever over-approximates, so
	// skipping on it never changes the result.
	for _, m := range e.merges {
		if len(stream) < 2 {
			break
		}
		if !present[m.pair.Left] || !present[m.pair.Right] {
			continue
		}
		var n int
		stream, n = contract(stream, m.pair, m.id)
		if n > 0 {
			present[m.id] = true
		}
	}
	return stream, nil
}
