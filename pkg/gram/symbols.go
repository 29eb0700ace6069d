package gram

// BuildSymbols assigns ids to symbols in order of first appearance and returns
// the initial token stream, a table holding only Literal grams, and a
// per-id flag that is true for ids whose symbol may never pair.
//
// A nil canPair lets every symbol pair.
func BuildSymbols[S comparable](input []S, canPair func(S) bool) ([]ID, *Table[S], []bool) {
	table := &Table[S]{}
	stream := make([]ID, 0, len(input))
	var boundary []bool

	ids := make(map[S]ID)
	for _, sym := range input {
		id, ok := ids[sym]
		if !ok {
			id = table.AppendLiteral(sym)
			ids[sym] = id
			boundary = append(boundary, canPair != nil && !canPair(sym))
		}
		stream = append(stream, id)
	}
	return stream, table, boundary
}
