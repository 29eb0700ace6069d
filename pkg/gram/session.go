package gram

import (
	"context"
	"fmt"
)

type State uint8

const (
	Running State = iota
	Stopped
)

func (s State) String() string {
	if s == Stopped {
		return "stopped"
	}
	return "running"
}

// StopReason says why a Session stopped merging.
type StopReason uint8

const (
	StopNone StopReason = iota
	// StopExhausted means no eligible pair was left in the stream.
	StopExhausted
	// StopBelowThreshold means the best pair's relative frequency fell under the threshold.
	StopBelowThreshold
	StopMaxMerges
	StopTableFull
)

func (r StopReason) String() string {
	switch r {
	case StopNone:
		return "none"
	case StopExhausted:
		return "exhausted"
	case StopBelowThreshold:
		return "below-threshold"
	case StopMaxMerges:
		return "max-merges"
	case StopTableFull:
		return "table-full"
	default:
		return fmt.Sprintf("stop(%d)", uint8(r))
	}
}

// Options configures a training Session.
type Options[S comparable] struct {
	// Threshold is the minimum relative frequency, count divided by the
	// original input length, a pair needs to be merged. Must be in (0, 1].
	Threshold float64

	// CanPair reports whether a symbol may take part in a pair. Symbols for
	// which it returns false are boundary markers. Nil means all symbols pair.
	CanPair func(S) bool

	// MaxMerges caps the number of merge steps (0 = unlimited).
	MaxMerges int

	// MaxTableSize caps the table length (0 = unlimited).
	MaxTableSize int

	// OnMerge, when set, is called after every accepted merge.
	OnMerge func(MergeEvent)
}

// MergeEvent describes one accepted merge step.
type MergeEvent struct {
	Step      int
	Pair      Pair
	ID        ID
	Count     int
	Relative  float64
	StreamLen int
}

// Session owns the state of one training run. It is not safe for concurrent
// use; independent sessions share nothing and may run in parallel.
type Session[S comparable] struct {
	opts     Options[S]
	table    *Table[S]
	stream   []ID
	boundary []bool
	total    int
	merges   int
	state    State
	reason   StopReason
}

// NewSession builds the literal table and initial stream from input.
func NewSession[S comparable](input []S, opts Options[S]) (*Session[S], error) {
	if !(opts.Threshold > 0 && opts.Threshold <= 1) {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidThreshold, opts.Threshold)
	}
	if opts.MaxMerges < 0 || opts.MaxTableSize < 0 {
		return nil, fmt.Errorf("gram: negative limits (max merges %d, max table size %d)", opts.MaxMerges, opts.MaxTableSize)
	}
	stream, table, boundary := BuildSymbols(input, opts.CanPair)
	return &Session[S]{
		opts:     opts,
		table:    table,
		stream:   stream,
		boundary: boundary,
		total:    len(input),
	}, nil
}

// Table returns the gram table. It must not be modified, and is final once
// the session has stopped.
func (s *Session[S]) Table() *Table[S] { return s.table }

// Stream returns a copy of the current token stream.
func (s *Session[S]) Stream() []ID {
	out := make([]ID, len(s.stream))
	copy(out, s.stream)
	return out
}

func (s *Session[S]) OriginalLength() int   { return s.total }
func (s *Session[S]) Merges() int           { return s.merges }
func (s *Session[S]) State() State          { return s.state }
func (s *Session[S]) Reason() StopReason    { return s.reason }
func (s *Session[S]) IsBoundary(id ID) bool { return int(id) < len(s.boundary) && s.boundary[id] }

// Step runs one merge iteration. It returns true when a merge was performed
// and false once the session has stopped; Reason then says why.
func (s *Session[S]) Step() (bool, error) {
	if s.state == Stopped {
		return false, ErrStopped
	}
	// Exhaustion is reported ahead of the configured limits.
	best, count, ok := MostFrequent(CountPairs(s.stream, s.IsBoundary))
	if !ok {
		return s.stop(StopExhausted), nil
	}
	if s.opts.MaxMerges > 0 && s.merges >= s.opts.MaxMerges {
		return s.stop(StopMaxMerges), nil
	}
	if s.opts.MaxTableSize > 0 && s.table.Len() >= s.opts.MaxTableSize {
		return s.stop(StopTableFull), nil
	}
	relative := float64(count) / float64(s.total)
	if relative < s.opts.Threshold {
		return s.stop(StopBelowThreshold), nil
	}

	id, err := s.table.AppendComposite(best.Left, best.Right)
	if err != nil {
		return false, err
	}
	s.stream, _ = contract(s.stream, best, id)
	s.merges++

	if s.opts.OnMerge != nil {
		s.opts.OnMerge(MergeEvent{
			Step:      s.merges,
			Pair:      best,
			ID:        id,
			Count:     count,
			Relative:  relative,
			StreamLen: len(s.stream),
		})
	}
	return true, nil
}

// Run merges until the session stops. Cancelling ctx aborts between steps
// and leaves the session running with a well-formed partial table.
func (s *Session[S]) Run(ctx context.Context) (StopReason, error) {
	for s.state == Running {
		if err := ctx.Err(); err != nil {
			return StopNone, err
		}
		if _, err := s.Step(); err != nil {
			return StopNone, err
		}
	}
	return s.reason, nil
}

func (s *Session[S]) stop(reason StopReason) bool {
	s.state = Stopped
	s.reason = reason
	return false
}

// Train runs a complete session over input and returns the final table,
// token stream and stop reason.
func Train[S comparable](ctx context.Context, input []S, opts Options[S]) (*Table[S], []ID, StopReason, error) {
	s, err := NewSession(input, opts)
	if err != nil {
		return nil, nil, StopNone, err
	}
	reason, err := s.Run(ctx)
	if err != nil {
		return nil, nil, StopNone, err
	}
	return s.table, s.stream, reason, nil
}
