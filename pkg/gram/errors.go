package gram

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidThreshold = errors.New("gram: threshold must be in (0, 1]")
	ErrStopped          = errors.New("gram: session already stopped")
)

// UnknownSymbolError reports an input symbol that has no Literal entry.
type UnknownSymbolError struct {
	Symbol   any
	Position int
}

func (e *UnknownSymbolError) Error() string {
	return fmt.Sprintf("gram: unknown symbol %q at position %d", fmt.Sprint(e.Symbol), e.Position)
}

// InvalidIDError reports a gram id outside the table.
type InvalidIDError struct {
	ID  ID
	Len int
}

func (e *InvalidIDError) Error() string {
	return fmt.Sprintf("gram: id %d out of range for table of %d grams", e.ID, e.Len)
}

// TopologyError reports a Composite referencing an id at or above its own index.
// Tables built by a Session never contain one.
type TopologyError struct {
	Index       ID
	Left, Right ID
}

func (e *TopologyError) Error() string {
	return fmt.Sprintf("gram: composite at %d references (%d, %d), operands must precede it", e.Index, e.Left, e.Right)
}

// MalformedRecordError reports a corrupt record in a serialized table.
type MalformedRecordError struct {
	Index  int
	Reason string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("gram: malformed record %d: %s", e.Index, e.Reason)
}
