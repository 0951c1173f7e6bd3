package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

const consoleTimeLayout = "15:04:05.000"

// consoleHandler writes one human-readable line per record:
//
//	12:04:05.123 INFO  [attempt] rank 3, job 77: record done | decision=process
type consoleHandler struct {
	mu        *sync.Mutex
	w         io.Writer
	level     *slog.LevelVar
	addSource bool
	preset    fieldSet
	prefix    string
}

func newConsoleHandler(w io.Writer, lvl *slog.LevelVar, addSource bool) slog.Handler {
	return &consoleHandler{mu: &sync.Mutex{}, w: w, level: lvl, addSource: addSource}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	fields := h.preset.clone()
	record.Attrs(func(attr slog.Attr) bool {
		fields.add(h.prefix, attr)
		return true
	})

	component := fields.take(FieldComponent)
	subject := FormatSubject(fields.take(FieldShard), fields.take(FieldJob))

	ts := record.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	var b strings.Builder
	b.WriteString(ts.Format(consoleTimeLayout))
	b.WriteByte(' ')
	fmt.Fprintf(&b, "%-5s", levelLabel(record.Level))
	if component != "" {
		b.WriteString(" [" + component + "]")
	}
	if subject != "" {
		b.WriteString(" " + subject + ":")
	}
	b.WriteByte(' ')
	if msg := strings.TrimSpace(record.Message); msg != "" {
		b.WriteString(msg)
	} else {
		b.WriteString("(no message)")
	}
	if h.addSource {
		if src := record.Source(); src != nil {
			fmt.Fprintf(&b, " (%s:%d)", filepath.Base(src.File), src.Line)
		}
	}
	for i, f := range fields.items {
		if i == 0 {
			b.WriteString(" |")
		}
		b.WriteString(" " + f.key + "=" + formatValue(f.value))
	}
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.preset = h.preset.clone()
	for _, attr := range attrs {
		clone.preset.add(h.prefix, attr)
	}
	return &clone
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.prefix = h.prefix + name + "."
	return &clone
}

// FormatSubject renders the shard and job a line belongs to, e.g. "rank 3, job 77".
func FormatSubject(shard, job string) string {
	shard = strings.TrimSpace(shard)
	job = strings.TrimSpace(job)
	parts := make([]string, 0, 2)
	if shard != "" {
		parts = append(parts, "rank "+shard)
	}
	if job != "" {
		parts = append(parts, "job "+job)
	}
	return strings.Join(parts, ", ")
}

type field struct {
	key   string
	value slog.Value
}

// fieldSet keeps attributes in first-seen order; a repeated key keeps its
// position and takes the newest value.
type fieldSet struct {
	items []field
}

func (s fieldSet) clone() fieldSet {
	return fieldSet{items: append([]field(nil), s.items...)}
}

func (s *fieldSet) add(prefix string, attr slog.Attr) {
	attr.Value = attr.Value.Resolve()
	if attr.Value.Kind() == slog.KindGroup {
		inner := prefix
		if attr.Key != "" {
			inner = prefix + attr.Key + "."
		}
		for _, member := range attr.Value.Group() {
			s.add(inner, member)
		}
		return
	}
	if attr.Key == "" {
		return
	}
	key := prefix + attr.Key
	for i := range s.items {
		if s.items[i].key == key {
			s.items[i].value = attr.Value
			return
		}
	}
	s.items = append(s.items, field{key: key, value: attr.Value})
}

// take removes key and returns its value as plain text.
func (s *fieldSet) take(key string) string {
	for i, f := range s.items {
		if f.key != key {
			continue
		}
		s.items = append(s.items[:i], s.items[i+1:]...)
		if f.value.Kind() == slog.KindString {
			return f.value.String()
		}
		return strings.Trim(formatValue(f.value), `"`)
	}
	return ""
}

func formatValue(v slog.Value) string {
	var s string
	switch v.Kind() {
	case slog.KindInt64:
		return strconv.FormatInt(v.Int64(), 10)
	case slog.KindUint64:
		return strconv.FormatUint(v.Uint64(), 10)
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'g', -1, 64)
	case slog.KindBool:
		return strconv.FormatBool(v.Bool())
	case slog.KindDuration:
		return v.Duration().Round(time.Millisecond).String()
	case slog.KindTime:
		return v.Time().Format(time.RFC3339)
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			s = err.Error()
		} else {
			s = fmt.Sprint(v.Any())
		}
	default:
		s = v.String()
	}
	if s == "" || strings.ContainsAny(s, " \t\n\"=") {
		return strconv.Quote(s)
	}
	return s
}

func levelLabel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN"
	case level >= slog.LevelInfo:
		return "INFO"
	default:
		return "DEBUG"
	}
}
