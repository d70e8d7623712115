package middleware

import (
	"context"
	"regexp"

	"github.com/aretw0/canopy/pkg/domain"
	"github.com/aretw0/canopy/pkg/ports"
)

type piiMiddleware struct {
	next     ports.RunStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks values of keys
// matching the patterns before records reach the backing store. The
// in-flight event stream is left untouched.
func NewPIIMiddleware(patternStrings []string) Middleware {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		patterns[i] = regexp.MustCompile(p)
	}
	return func(next ports.RunStore) ports.RunStore {
		return &piiMiddleware{next: next, patterns: patterns}
	}
}

func (m *piiMiddleware) Append(ctx context.Context, rec domain.StepRecord) error {
	rec.Event = m.mask(rec.Event)
	return m.next.Append(ctx, rec)
}

func (m *piiMiddleware) List(ctx context.Context, runID string) ([]domain.StepRecord, error) {
	return m.next.List(ctx, runID)
}

func (m *piiMiddleware) Runs(ctx context.Context) ([]domain.RunInfo, error) {
	return m.next.Runs(ctx)
}

func (m *piiMiddleware) Delete(ctx context.Context, runID string) error {
	return m.next.Delete(ctx, runID)
}

// mask returns a copy of the event with matching keys redacted. Events
// are cloned so the engine's in-memory copies keep their values.
func (m *piiMiddleware) mask(ev domain.Event) domain.Event {
	switch e := ev.(type) {
	case domain.Result:
		if data, ok := e.Data.(map[string]any); ok {
			data = deepCopyMap(data)
			maskMap(data, m.patterns)
			e.Data = data
		}
		e.Metadata = maskedCopy(e.Metadata, m.patterns)
		return e
	case domain.Retrieval:
		objects := make([]map[string]any, len(e.Objects))
		for i, obj := range e.Objects {
			objects[i] = deepCopyMap(obj)
			maskMap(objects[i], m.patterns)
		}
		e.Objects = objects
		e.Metadata = maskedCopy(e.Metadata, m.patterns)
		return e
	case domain.Response:
		e.Metadata = maskedCopy(e.Metadata, m.patterns)
		return e
	default:
		return ev
	}
}

// Helpers

func maskedCopy(m map[string]any, patterns []*regexp.Regexp) map[string]any {
	if m == nil {
		return nil
	}
	out := deepCopyMap(m)
	maskMap(out, patterns)
	return out
}

func deepCopyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		// Handle nested maps
		if subMap, ok := v.(map[string]any); ok {
			out[k] = deepCopyMap(subMap)
		} else {
			out[k] = v // shallow copy of value
		}
	}
	return out
}

func maskMap(m map[string]any, patterns []*regexp.Regexp) {
	for k, v := range m {
		// Check key against patterns
		for _, p := range patterns {
			if p.MatchString(k) {
				m[k] = "***"
				break
			}
		}

		// Recurse if map
		if subMap, ok := v.(map[string]any); ok {
			maskMap(subMap, patterns)
		}
	}
}
