package logging

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/modoterra/tender/pkg/core"
)

// Emitter receives one rendered record. *lineproc.Processor implements it.
type Emitter interface {
	Emit(raw, source string) bool
}

// ConsoleHandler renders records as "LEVEL: msg key=value" and hands them to
// an Emitter. The component attribute becomes the source and is not
// repeated in the text. The processor supplies the timestamp.
type ConsoleHandler struct {
	emitter Emitter
	level   slog.Leveler
	source  string
	attrs   []slog.Attr
	groups  []string
}

// NewConsoleHandler creates a handler writing to e.
func NewConsoleHandler(e Emitter, level slog.Leveler) *ConsoleHandler {
	if level == nil {
		level = slog.LevelInfo
	}
	return &ConsoleHandler{emitter: e, level: level, source: core.DefaultSource}
}

func (h *ConsoleHandler) Enabled(_ context.Context, l slog.Level) bool {
	return l >= h.level.Level()
}

func (h *ConsoleHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	if r.Level != slog.LevelInfo {
		b.WriteString(r.Level.String())
		b.WriteString(": ")
	}
	b.WriteString(r.Message)

	source := h.source
	for _, a := range h.attrs {
		writeAttr(&b, "", a)
	}
	prefix := groupPrefix(h.groups)
	r.Attrs(func(a slog.Attr) bool {
		if prefix == "" && a.Key == ComponentKey {
			source = a.Value.String()
			return true
		}
		writeAttr(&b, prefix, a)
		return true
	})

	h.emitter.Emit(b.String(), source)
	return nil
}

func (h *ConsoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	nh := h.clone()
	prefix := groupPrefix(h.groups)
	for _, a := range attrs {
		if prefix == "" && a.Key == ComponentKey {
			nh.source = a.Value.String()
			continue
		}
		if prefix != "" {
			a.Key = prefix + a.Key
		}
		nh.attrs = append(nh.attrs, a)
	}
	return nh
}

func (h *ConsoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	nh := h.clone()
	nh.groups = append(nh.groups, name)
	return nh
}

func (h *ConsoleHandler) clone() *ConsoleHandler {
	nh := *h
	nh.attrs = append([]slog.Attr(nil), h.attrs...)
	nh.groups = append([]string(nil), h.groups...)
	return &nh
}

func groupPrefix(groups []string) string {
	if len(groups) == 0 {
		return ""
	}
	return strings.Join(groups, ".") + "."
}

func writeAttr(b *strings.Builder, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		p := prefix
		if a.Key != "" {
			p += a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			writeAttr(b, p, ga)
		}
		return
	}
	fmt.Fprintf(b, " %s%s=%s", prefix, a.Key, quote(a.Value.String()))
}

func quote(s string) string {
	if s == "" || strings.ContainsAny(s, " \t\"=") {
		return strconv.Quote(s)
	}
	return s
}
