package runner

import (
	"context"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/aretw0/canopy/pkg/domain"
)

// TextHandler writes a human-readable trace of the run to a writer.
type TextHandler struct {
	Writer   io.Writer
	Renderer ContentRenderer
}

// TextHandlerOption configures a TextHandler.
type TextHandlerOption func(*TextHandler)

// WithRenderer sets the transformation applied to Response content.
func WithRenderer(renderer ContentRenderer) TextHandlerOption {
	return func(h *TextHandler) {
		h.Renderer = renderer
	}
}

// NewTextHandler creates a handler writing to w (stdout when nil).
func NewTextHandler(w io.Writer, opts ...TextHandlerOption) *TextHandler {
	if w == nil {
		w = os.Stdout
	}
	h := &TextHandler{Writer: w}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *TextHandler) Handle(ctx context.Context, ev domain.Event) error {
	switch e := ev.(type) {
	case domain.Status:
		_, err := fmt.Fprintf(h.Writer, "-- %s\n", e.Message)
		return err
	case domain.Result:
		if e.Summary == "" {
			return nil
		}
		_, err := fmt.Fprintf(h.Writer, "   %s\n", e.Summary)
		return err
	case domain.Retrieval:
		label := e.Summary
		if label == "" {
			label = fmt.Sprintf("retrieved %d objects", len(e.Objects))
		}
		if e.Source != "" {
			label = fmt.Sprintf("%s (%s)", label, e.Source)
		}
		_, err := fmt.Fprintf(h.Writer, "   %s\n", label)
		return err
	case domain.Response:
		content := e.Content
		if h.Renderer != nil {
			rendered, err := h.Renderer(content)
			if err == nil {
				content = rendered
			}
		}
		_, err := fmt.Fprintln(h.Writer, content)
		return err
	case domain.Error:
		_, err := fmt.Fprintf(h.Writer, "error: %s\n", e.Message)
		return err
	case domain.Completed:
		if e.Message != "" {
			_, err := fmt.Fprintf(h.Writer, "-- completed: %s\n", e.Message)
			return err
		}
		return nil
	default:
		return nil
	}
}

// Interactive reports whether w is a terminal, for callers deciding
// whether rendered output is appropriate.
func Interactive(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
