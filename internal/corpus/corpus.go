// Package corpus reads source units (sentences) and flattens them into the
// symbol sequence the gram engine trains on.
package corpus

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// DefaultBoundary terminates every unit in a flattened sequence.
const DefaultBoundary = '\n'

// Format selects how a corpus file is parsed.
type Format string

const (
	// FormatLines is one unit per line.
	FormatLines Format = "lines"
	// FormatTSV is one `id<TAB>lang<TAB>text` record per line.
	FormatTSV Format = "tsv"
)

func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatLines, "":
		return FormatLines, nil
	case FormatTSV:
		return FormatTSV, nil
	default:
		return "", fmt.Errorf("corpus: unknown format %q (want lines or tsv)", s)
	}
}

// Unit is one source unit.
type Unit struct {
	ID   string
	Lang string
	Text string
}

// Options controls reading.
type Options struct {
	Format Format
	// Lang keeps only TSV records with this language code. Empty keeps all.
	Lang string
	// Boundary may not appear inside unit text; units containing it are rejected.
	Boundary rune
	// SkipEmpty drops units whose text is empty after normalisation.
	SkipEmpty bool
}

var ErrBoundaryInText = errors.New("corpus: unit contains the boundary marker")

// Read parses all units from r. Text is normalised to NFC.
func Read(r io.Reader, opts Options) ([]Unit, error) {
	var units []Unit
	err := Scan(r, opts, func(u Unit) error {
		units = append(units, u)
		return nil
	})
	return units, err
}

// Scan calls fn for every unit in r, stopping at the first error.
func Scan(r io.Reader, opts Options, fn func(Unit) error) error {
	if opts.Format == "" {
		opts.Format = FormatLines
	}
	if opts.Boundary == 0 {
		opts.Boundary = DefaultBoundary
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		u, ok, err := parseLine(sc.Text(), line, opts)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if err := fn(u); err != nil {
			return err
		}
	}
	return sc.Err()
}

func parseLine(raw string, line int, opts Options) (Unit, bool, error) {
	raw = strings.TrimSuffix(raw, "\r")
	var u Unit
	switch opts.Format {
	case FormatTSV:
		if raw == "" {
			return u, false, nil
		}
		id, rest, ok := strings.Cut(raw, "\t")
		if !ok {
			return u, false, fmt.Errorf("corpus: line %d: missing language field", line)
		}
		lang, text, ok := strings.Cut(rest, "\t")
		if !ok {
			return u, false, fmt.Errorf("corpus: line %d: missing text field", line)
		}
		if opts.Lang != "" && lang != opts.Lang {
			return u, false, nil
		}
		u = Unit{ID: id, Lang: lang, Text: text}
	case FormatLines:
		u = Unit{ID: fmt.Sprint(line), Lang: opts.Lang, Text: raw}
	default:
		return u, false, fmt.Errorf("corpus: unknown format %q", opts.Format)
	}

	u.Text = norm.NFC.String(u.Text)
	if opts.SkipEmpty && u.Text == "" {
		return u, false, nil
	}
	if strings.ContainsRune(u.Text, opts.Boundary) {
		return u, false, fmt.Errorf("%w: line %d (%U)", ErrBoundaryInText, line, opts.Boundary)
	}
	return u, true, nil
}

// Symbols flattens units into one rune sequence, appending boundary after
// every unit.
func Symbols(units []Unit, boundary rune) []rune {
	n := 0
	for _, u := range units {
		n += len(u.Text) + 1
	}
	out := make([]rune, 0, n)
	for _, u := range units {
		out = append(out, []rune(u.Text)...)
		out = append(out, boundary)
	}
	return out
}

// Normalize returns s in NFC, the form units are stored in.
func Normalize(s string) string {
	return norm.NFC.String(s)
}
