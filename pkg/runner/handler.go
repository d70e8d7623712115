package runner

import (
	"context"

	"github.com/aretw0/canopy/pkg/domain"
)

// Handler is the presentation strategy for a run's event stream. The
// Runner calls Handle once per event, in stream order, before the next
// event is released by the engine.
type Handler interface {
	Handle(ctx context.Context, ev domain.Event) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, ev domain.Event) error

func (f HandlerFunc) Handle(ctx context.Context, ev domain.Event) error {
	return f(ctx, ev)
}

// ContentRenderer transforms Response content before output. It allows
// TUI rendering (markdown to ANSI) without coupling this package to a
// terminal library.
type ContentRenderer func(string) (string, error)
