package gram

import "fmt"

// Pair is an ordered pair of adjacent ids.
type Pair struct {
	Left, Right ID
}

func (p Pair) String() string { return fmt.Sprintf("(%d, %d)", p.Left, p.Right) }

func (p Pair) less(o Pair) bool {
	if p.Left != o.Left {
		return p.Left < o.Left
	}
	return p.Right < o.Right
}

// CountPairs counts every adjacent pair in stream. Pairs where either side
// is a boundary id are not counted. A nil isBoundary treats no id as boundary.
func CountPairs(stream []ID, isBoundary func(ID) bool) map[Pair]int {
	counts := make(map[Pair]int)
	for i := 0; i+1 < len(stream); i++ {
		a, b := stream[i], stream[i+1]
		if isBoundary != nil && (isBoundary(a) || isBoundary(b)) {
			continue
		}
		counts[Pair{Left: a, Right: b}]++
	}
	return counts
}

// MostFrequent returns the pair with the highest count. Ties go to the
// lexicographically lowest (Left, Right). ok is false for an empty map.
func MostFrequent(counts map[Pair]int) (best Pair, count int, ok bool) {
	for p, c := range counts {
		if !ok || c > count || (c == count && p.less(best)) {
			best, count, ok = p, c, true
		}
	}
	return best, count, ok
}

// contract replaces every non-overlapping occurrence of p, scanning left to
// right, with id. It rewrites stream in place and returns the shortened slice
// and the number of replacements.
func contract(stream []ID, p Pair, id ID) ([]ID, int) {
	w, n := 0, 0
	for r := 0; r < len(stream); {
		if r+1 < len(stream) && stream[r] == p.Left && stream[r+1] == p.Right {
			stream[w] = id
			r += 2
			n++
		} else {
			stream[w] = stream[r]
			r++
		}
		w++
	}
	return stream[:w], n
}
