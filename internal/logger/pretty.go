package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	ansiReset = "\033[0m"
	ansiDim   = "\033[90m"
	ansiBold  = "\033[1m"
	ansiRed   = "\033[31m"
	ansiYel   = "\033[33m"
	ansiBlue  = "\033[34m"
	ansiCyan  = "\033[36m"
)

type PrettyOptions struct {
	Level slog.Leveler
	Color bool
}

// PrettyHandler writes one line per record: "15:04:05 INFO  message key=value".
type PrettyHandler struct {
	opts   PrettyOptions
	mu     *sync.Mutex
	w      io.Writer
	prefix string
	attrs  []slog.Attr
}

func NewPrettyHandler(w io.Writer, opts *PrettyOptions) *PrettyHandler {
	h := &PrettyHandler{w: w, mu: &sync.Mutex{}}
	if opts != nil {
		h.opts = *opts
	}
	return h
}

func (h *PrettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	minLevel := slog.LevelInfo
	if h.opts.Level != nil {
		minLevel = h.opts.Level.Level()
	}
	return level >= minLevel
}

func (h *PrettyHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	h.paint(&b, ansiDim, r.Time.Format(time.TimeOnly))
	b.WriteByte(' ')
	h.paint(&b, ansiBold+levelColor(r.Level), fmt.Sprintf("%-5s", r.Level.String()))
	b.WriteByte(' ')
	b.WriteString(r.Message)

	first := true
	write := func(a slog.Attr) {
		if a.Equal(slog.Attr{}) {
			return
		}
		if first && h.opts.Color {
			b.WriteString(ansiCyan)
		}
		first = false
		b.WriteByte(' ')
		appendAttr(&b, a)
	}
	for _, a := range h.attrs {
		write(a)
	}
	r.Attrs(func(a slog.Attr) bool {
		write(withPrefix(h.prefix, a))
		return true
	})
	if !first && h.opts.Color {
		b.WriteString(ansiReset)
	}
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

// WithAttrs binds attrs under the handler's current group.
func (h *PrettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	nh := *h
	nh.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	nh.attrs = append(nh.attrs, h.attrs...)
	for _, a := range attrs {
		nh.attrs = append(nh.attrs, withPrefix(h.prefix, a))
	}
	return &nh
}

func (h *PrettyHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	nh := *h
	nh.prefix = h.prefix + name + "."
	return &nh
}

func (h *PrettyHandler) paint(b *strings.Builder, color, s string) {
	if !h.opts.Color {
		b.WriteString(s)
		return
	}
	b.WriteString(color)
	b.WriteString(s)
	b.WriteString(ansiReset)
}

func levelColor(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return ansiRed
	case level >= slog.LevelWarn:
		return ansiYel
	case level >= slog.LevelInfo:
		return ansiBlue
	default:
		return ansiDim
	}
}

// withPrefix qualifies the key of a with the group prefix. Prefixed attrs are
// written verbatim by appendAttr.
func withPrefix(prefix string, a slog.Attr) slog.Attr {
	if prefix == "" {
		return a
	}
	a.Key = prefix + a.Key
	return a
}

func appendAttr(b *strings.Builder, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Value.Kind() == slog.KindGroup {
		for i, ga := range a.Value.Group() {
			if i > 0 {
				b.WriteByte(' ')
			}
			ga.Key = a.Key + "." + ga.Key
			appendAttr(b, ga)
		}
		return
	}
	b.WriteString(a.Key)
	b.WriteByte('=')
	switch a.Value.Kind() {
	case slog.KindString:
		b.WriteString(quoteIfNeeded(a.Value.String()))
	case slog.KindTime:
		b.WriteString(a.Value.Time().Format(time.RFC3339))
	case slog.KindDuration:
		b.WriteString(a.Value.Duration().String())
	default:
		b.WriteString(quoteIfNeeded(fmt.Sprint(a.Value.Any())))
	}
}

func quoteIfNeeded(s string) string {
	if needsQuoting(s) {
		return strconv.Quote(s)
	}
	return s
}

func needsQuoting(s string) bool {
	for _, c := range s {
		if c <= ' ' || c == '"' || c == '=' || c == 0x7f {
			return true
		}
	}
	return false
}
