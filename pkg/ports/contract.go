package ports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/canopy/pkg/domain"
)

// RunStoreContract runs a suite of tests verifying that a RunStore
// implementation adheres to the interface contract. Adapter tests call this
// with a freshly constructed store.
func RunStoreContract(t *testing.T, store RunStore) {
	ctx := context.Background()
	base := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	runID := "contract-run-" + base.Format("20060102150405")

	t.Run("Append and List", func(t *testing.T) {
		records := []domain.StepRecord{
			{RunID: runID, Seq: 0, At: base, Event: domain.Status{Message: "Processing root..."}},
			{RunID: runID, Seq: 1, At: base.Add(time.Second), Event: domain.Result{Data: "forty-two", Summary: "answer"}},
			{RunID: runID, Seq: 2, At: base.Add(2 * time.Second), Event: domain.Completed{Message: "contract-tree"}},
		}
		for _, rec := range records {
			require.NoError(t, store.Append(ctx, rec), "Append should not fail")
		}

		got, err := store.List(ctx, runID)
		require.NoError(t, err)
		require.Len(t, got, len(records))

		for i, rec := range got {
			assert.Equal(t, runID, rec.RunID)
			assert.Equal(t, i, rec.Seq, "records must come back in Seq order")
			assert.Equal(t, records[i].Event.Kind(), rec.Event.Kind())
		}

		res, ok := got[1].Event.(domain.Result)
		require.True(t, ok, "second record must decode as a Result")
		assert.Equal(t, "forty-two", res.Data)
		assert.Equal(t, "answer", res.Summary)

		done, ok := got[2].Event.(domain.Completed)
		require.True(t, ok, "third record must decode as Completed")
		assert.Equal(t, "contract-tree", done.Message)
	})

	t.Run("List Non-Existent", func(t *testing.T) {
		_, err := store.List(ctx, "non-existent-"+runID)
		assert.ErrorIs(t, err, domain.ErrRunNotFound)
	})

	t.Run("Runs Summary", func(t *testing.T) {
		newer := "contract-newer-" + base.Format("20060102150405")
		rec := domain.StepRecord{
			RunID: newer,
			Seq:   0,
			At:    base.Add(time.Hour),
			Event: domain.Completed{Message: "contract-tree"},
		}
		require.NoError(t, store.Append(ctx, rec))

		runs, err := store.Runs(ctx)
		require.NoError(t, err)
		require.GreaterOrEqual(t, len(runs), 2)

		assert.Equal(t, newer, runs[0].RunID, "most recent run must come first")
		assert.Equal(t, 1, runs[0].Events)
		assert.True(t, runs[0].StartedAt.Equal(base.Add(time.Hour)))

		var older *domain.RunInfo
		for i := range runs {
			if runs[i].RunID == runID {
				older = &runs[i]
			}
		}
		require.NotNil(t, older, "first run must appear in the summary")
		assert.Equal(t, 3, older.Events)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, runID))

		_, err := store.List(ctx, runID)
		assert.ErrorIs(t, err, domain.ErrRunNotFound)

		assert.NoError(t, store.Delete(ctx, "already-gone"), "deleting an unknown run is not an error")
	})
}
