package gram

// Expand rewrites ids until only Literal ids remain. Each pass replaces every
// Composite with its two operands; the topological order bounds the number
// of passes by the table depth.
func Expand[S comparable](t *Table[S], ids []ID) ([]ID, error) {
	cur := make([]ID, 0, len(ids))
	for _, id := range ids {
		if int(id) >= t.Len() {
			return nil, &InvalidIDError{ID: id, Len: t.Len()}
		}
		cur = append(cur, id)
	}

	var next []ID
	for {
		replaced := false
		next = next[:0]
		for _, id := range cur {
			g := t.grams[id]
			if g.Kind == Composite {
				next = append(next, g.Left, g.Right)
				replaced = true
				continue
			}
			next = append(next, id)
		}
		if !replaced {
			return cur, nil
		}
		cur, next = next, cur
	}
}

// Decode expands ids to their atomic symbols.
func Decode[S comparable](t *Table[S], ids []ID) ([]S, error) {
	lits, err := Expand(t, ids)
	if err != nil {
		return nil, err
	}
	out := make([]S, len(lits))
	for i, id := range lits {
		out[i] = t.grams[id].Symbol
	}
	return out, nil
}

// Depth returns the number of expansion passes id needs to reach literals.
func Depth[S comparable](t *Table[S], id ID) (int, error) {
	if int(id) >= t.Len() {
		return 0, &InvalidIDError{ID: id, Len: t.Len()}
	}
	depths := make([]int, int(id)+1)
	// Ids below id are all that id can reach, so a single forward sweep suffices.
	for i := ID(0); i <= id; i++ {
		g := t.grams[i]
		if g.Kind == Composite {
			depths[i] = 1 + max(depths[g.Left], depths[g.Right])
		}
	}
	return depths[id], nil
}
