package schema

import (
	"encoding/json"
	"fmt"

	"github.com/aretw0/canopy/pkg/domain"
)

// envelope is the wire shape shared by every event variant: the variant's
// own fields plus a "type" discriminator.
type envelope struct {
	Type domain.Kind `json:"type"`

	Message     string           `json:"message,omitempty"`
	Data        any              `json:"data,omitempty"`
	Summary     string           `json:"summary,omitempty"`
	DisplayType string           `json:"display_type,omitempty"`
	Objects     []map[string]any `json:"objects,omitempty"`
	Source      string           `json:"source,omitempty"`
	Content     string           `json:"content,omitempty"`
	ErrorKind   domain.ErrorKind `json:"error_kind,omitempty"`
	Recoverable *bool            `json:"recoverable,omitempty"`
	Metadata    map[string]any   `json:"metadata,omitempty"`
}

// Encode serializes an event as a JSON envelope with a "type" discriminator
// and stable snake_case keys.
func Encode(ev domain.Event) ([]byte, error) {
	env := envelope{Type: ev.Kind()}

	switch e := ev.(type) {
	case domain.Status:
		env.Message = e.Message
	case domain.Result:
		env.Data = e.Data
		env.Summary = e.Summary
		env.DisplayType = e.DisplayType
		env.Metadata = e.Metadata
	case domain.Retrieval:
		env.Objects = e.Objects
		env.Summary = e.Summary
		env.Source = e.Source
		env.Metadata = e.Metadata
	case domain.Response:
		env.Content = e.Content
		env.Metadata = e.Metadata
	case domain.Error:
		env.Message = e.Message
		env.ErrorKind = e.ErrorKind
		recoverable := e.Recoverable
		env.Recoverable = &recoverable
		env.Metadata = e.Metadata
	case domain.Completed:
		env.Message = e.Message
		env.Metadata = e.Metadata
	default:
		return nil, fmt.Errorf("unknown event type %T", ev)
	}

	return json.Marshal(env)
}

// MustEncode is Encode for fixtures and tests; it panics on failure.
func MustEncode(ev domain.Event) []byte {
	data, err := Encode(ev)
	if err != nil {
		panic(err)
	}
	return data
}

// Decode parses a JSON envelope back into its event variant. The decoding
// is exhaustive over the closed union: an unknown "type" is an error, never
// a silent fallback.
func Decode(data []byte) (domain.Event, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode event envelope: %w", err)
	}

	switch env.Type {
	case domain.KindStatus:
		return domain.Status{Message: env.Message}, nil
	case domain.KindResult:
		return domain.Result{
			Data:        env.Data,
			Summary:     env.Summary,
			DisplayType: env.DisplayType,
			Metadata:    env.Metadata,
		}, nil
	case domain.KindRetrieval:
		return domain.Retrieval{
			Objects:  env.Objects,
			Summary:  env.Summary,
			Source:   env.Source,
			Metadata: env.Metadata,
		}, nil
	case domain.KindResponse:
		return domain.Response{Content: env.Content, Metadata: env.Metadata}, nil
	case domain.KindError:
		recoverable := false
		if env.Recoverable != nil {
			recoverable = *env.Recoverable
		}
		return domain.Error{
			Message:     env.Message,
			ErrorKind:   env.ErrorKind,
			Recoverable: recoverable,
			Metadata:    env.Metadata,
		}, nil
	case domain.KindCompleted:
		return domain.Completed{Message: env.Message, Metadata: env.Metadata}, nil
	case "":
		return nil, fmt.Errorf("event envelope has no type")
	default:
		return nil, fmt.Errorf("unknown event type %q", env.Type)
	}
}
