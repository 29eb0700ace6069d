package vocab

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/xeniagda/ilo-pi-ante-toki/internal/corpus"
	"github.com/xeniagda/ilo-pi-ante-toki/pkg/gram"
)

// Config holds the training parameters.
type Config struct {
	Threshold    float64
	Boundary     rune
	MaxMerges    int
	MaxTableSize int
	OnMerge      func(gram.MergeEvent)
}

// Info is the training metadata stored alongside a bundled vocabulary.
type Info struct {
	ID           string    `json:"id"`
	Name         string    `json:"name,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	Threshold    float64   `json:"threshold"`
	Boundary     string    `json:"boundary"`
	MaxMerges    int       `json:"max_merges,omitempty"`
	MaxTableSize int       `json:"max_table_size,omitempty"`
	StopReason   string    `json:"stop_reason"`
	Units        int       `json:"units"`
	Symbols      int       `json:"symbols"`
	Literals     int       `json:"literals"`
	Composites   int       `json:"composites"`
	StreamLen    int       `json:"stream_len"`
	IDWidth      int       `json:"id_width,omitempty"`
	ToolVersion  string    `json:"tool_version,omitempty"`
}

// CompressionRatio is the original symbol count over the final stream length.
func (i Info) CompressionRatio() float64 {
	if i.StreamLen == 0 {
		return 0
	}
	return float64(i.Symbols) / float64(i.StreamLen)
}

// Result is the outcome of a training run.
type Result struct {
	Vocab  *Vocabulary
	Stream []gram.ID
	Reason gram.StopReason
	Info   Info
}

// Train flattens units, runs one merge session over them and freezes the table.
func Train(ctx context.Context, units []corpus.Unit, cfg Config) (*Result, error) {
	if cfg.Boundary == 0 {
		cfg.Boundary = corpus.DefaultBoundary
	}
	symbols := corpus.Symbols(units, cfg.Boundary)
	boundary := cfg.Boundary

	table, stream, reason, err := gram.Train(ctx, symbols, gram.Options[rune]{
		Threshold:    cfg.Threshold,
		CanPair:      func(r rune) bool { return r != boundary },
		MaxMerges:    cfg.MaxMerges,
		MaxTableSize: cfg.MaxTableSize,
		OnMerge:      cfg.OnMerge,
	})
	if err != nil {
		return nil, err
	}

	literals := table.Literals()
	return &Result{
		Vocab:  New(table, boundary),
		Stream: stream,
		Reason: reason,
		Info: Info{
			ID:           uuid.NewString(),
			CreatedAt:    time.Now().UTC(),
			Threshold:    cfg.Threshold,
			Boundary:     BoundaryName(boundary),
			MaxMerges:    cfg.MaxMerges,
			MaxTableSize: cfg.MaxTableSize,
			StopReason:   reason.String(),
			Units:        len(units),
			Symbols:      len(symbols),
			Literals:     literals,
			Composites:   table.Len() - literals,
			StreamLen:    len(stream),
		},
	}, nil
}

// Describe builds training-style metadata for an existing vocabulary applied
// to units, as if units had been its training corpus. StreamLen counts the
// encoded units plus one boundary after each.
func Describe(v *Vocabulary, units []corpus.Unit) (Info, error) {
	streamLen := 0
	for i, u := range units {
		ids, err := v.Encode(u.Text)
		if err != nil {
			return Info{}, fmt.Errorf("encode unit %d (%s): %w", i, u.ID, err)
		}
		streamLen += len(ids) + 1
	}
	literals := v.Table().Literals()
	return Info{
		ID:         uuid.NewString(),
		CreatedAt:  time.Now().UTC(),
		Boundary:   BoundaryName(v.Boundary()),
		Units:      len(units),
		Symbols:    len(corpus.Symbols(units, v.Boundary())),
		Literals:   literals,
		Composites: v.Len() - literals,
		StreamLen:  streamLen,
	}, nil
}
