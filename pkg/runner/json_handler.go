package runner

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/aretw0/canopy/pkg/domain"
	"github.com/aretw0/canopy/pkg/schema"
)

// JSONHandler writes one schema envelope per event, newline-delimited
// (NDJSON), for machine consumers driving the CLI.
type JSONHandler struct {
	Writer io.Writer
}

// NewJSONHandler creates a handler writing to w (stdout when nil).
func NewJSONHandler(w io.Writer) *JSONHandler {
	if w == nil {
		w = os.Stdout
	}
	return &JSONHandler{Writer: w}
}

func (h *JSONHandler) Handle(ctx context.Context, ev domain.Event) error {
	data, err := schema.Encode(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if _, err := h.Writer.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	return nil
}
