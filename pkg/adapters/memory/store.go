package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aretw0/canopy/pkg/domain"
)

// Store implements ports.RunStore in memory.
// Safe for concurrent use.
type Store struct {
	mu   sync.RWMutex
	runs map[string][]domain.StepRecord
}

// NewStore creates a new in-memory run store.
func NewStore() *Store {
	return &Store{
		runs: make(map[string][]domain.StepRecord),
	}
}

// Append adds one record to a run's step log.
func (s *Store) Append(ctx context.Context, rec domain.StepRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[rec.RunID] = append(s.runs[rec.RunID], rec)
	return nil
}

// List returns a run's records ordered by Seq.
func (s *Store) List(ctx context.Context, runID string) ([]domain.StepRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records, ok := s.runs[runID]
	if !ok {
		return nil, domain.ErrRunNotFound
	}

	// Copy on read so callers can't mutate store state through the slice.
	out := make([]domain.StepRecord, len(records))
	copy(out, records)
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

// Runs summarizes all recorded runs, most recent first.
func (s *Store) Runs(ctx context.Context) ([]domain.RunInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	infos := make([]domain.RunInfo, 0, len(s.runs))
	for runID, records := range s.runs {
		info := domain.RunInfo{RunID: runID, Events: len(records)}
		for _, rec := range records {
			if info.StartedAt.IsZero() || rec.At.Before(info.StartedAt) {
				info.StartedAt = rec.At
			}
		}
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool {
		if !infos[i].StartedAt.Equal(infos[j].StartedAt) {
			return infos[i].StartedAt.After(infos[j].StartedAt)
		}
		return infos[i].RunID < infos[j].RunID
	})
	return infos, nil
}

// Delete removes a run's records. Deleting an unknown run is not an error.
func (s *Store) Delete(ctx context.Context, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.runs, runID)
	return nil
}
