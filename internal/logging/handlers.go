package logging

import (
	"context"
	"errors"
	"log/slog"
)

// ContextProvider returns attributes evaluated when a record is logged,
// such as the number of tasks waiting on the core loop.
type ContextProvider func() []slog.Attr

// withContext appends the provider's attributes to every record.
type withContext struct {
	next     slog.Handler
	provider ContextProvider
}

func (h withContext) Enabled(ctx context.Context, l slog.Level) bool {
	return h.next.Enabled(ctx, l)
}

func (h withContext) Handle(ctx context.Context, r slog.Record) error {
	r.AddAttrs(h.provider()...)
	return h.next.Handle(ctx, r)
}

func (h withContext) WithAttrs(attrs []slog.Attr) slog.Handler {
	return withContext{next: h.next.WithAttrs(attrs), provider: h.provider}
}

func (h withContext) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return withContext{next: h.next.WithGroup(name), provider: h.provider}
}

// fanout hands each record to every sink that accepts its level.
type fanout []slog.Handler

func newFanout(sinks ...slog.Handler) fanout {
	out := make(fanout, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

func (f fanout) Enabled(ctx context.Context, l slog.Level) bool {
	for _, s := range f {
		if s.Enabled(ctx, l) {
			return true
		}
	}
	return false
}

// Handle delivers r to all enabled sinks. A failing sink does not keep the
// record from the others; the failures are joined.
func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, s := range f {
		if !s.Enabled(ctx, r.Level) {
			continue
		}
		if err := s.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	return f.each(func(s slog.Handler) slog.Handler { return s.WithAttrs(attrs) })
}

func (f fanout) WithGroup(name string) slog.Handler {
	if name == "" {
		return f
	}
	return f.each(func(s slog.Handler) slog.Handler { return s.WithGroup(name) })
}

func (f fanout) each(fn func(slog.Handler) slog.Handler) fanout {
	out := make(fanout, len(f))
	for i, s := range f {
		out[i] = fn(s)
	}
	return out
}
