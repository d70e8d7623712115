package runlog

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/canopy/pkg/adapters/memory"
	"github.com/aretw0/canopy/pkg/domain"
)

func stream(events ...domain.Event) <-chan domain.Event {
	ch := make(chan domain.Event)
	go func() {
		defer close(ch)
		for _, ev := range events {
			ch <- ev
		}
	}()
	return ch
}

func TestRecorderIsTransparent(t *testing.T) {
	store := memory.NewStore()
	rec := NewRecorder(store)
	ctx := context.Background()

	in := stream(
		domain.Status{Message: "Processing root..."},
		domain.Result{Data: "forty-two"},
		domain.Completed{Message: "tree"},
	)

	var got []domain.Event
	for ev := range rec.Record(ctx, "run-1", in) {
		got = append(got, ev)
	}

	if len(got) != 3 {
		t.Fatalf("forwarded %d events, want 3", len(got))
	}
	if got[0].Kind() != domain.KindStatus || got[2].Kind() != domain.KindCompleted {
		t.Errorf("event order changed: %v %v %v", got[0].Kind(), got[1].Kind(), got[2].Kind())
	}

	records, err := store.List(ctx, "run-1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("stored %d records, want 3", len(records))
	}
	for i, r := range records {
		if r.Seq != i {
			t.Errorf("record %d has Seq %d", i, r.Seq)
		}
		if r.At.IsZero() {
			t.Errorf("record %d has zero timestamp", i)
		}
		if r.Event.Kind() != got[i].Kind() {
			t.Errorf("record %d kind = %v, stream kind = %v", i, r.Event.Kind(), got[i].Kind())
		}
	}
}

// failStore always rejects appends.
type failStore struct{}

func (failStore) Append(ctx context.Context, rec domain.StepRecord) error {
	return errors.New("disk full")
}

func (failStore) List(ctx context.Context, runID string) ([]domain.StepRecord, error) {
	return nil, domain.ErrRunNotFound
}

func (failStore) Runs(ctx context.Context) ([]domain.RunInfo, error) { return nil, nil }

func (failStore) Delete(ctx context.Context, runID string) error { return nil }

func TestRecorderStoreFailureDoesNotPerturbStream(t *testing.T) {
	rec := NewRecorder(failStore{})

	in := stream(domain.Status{Message: "a"}, domain.Completed{Message: "tree"})
	count := 0
	for range rec.Record(context.Background(), "run-1", in) {
		count++
	}
	if count != 2 {
		t.Fatalf("forwarded %d events despite store failure, want 2", count)
	}
}

func TestManagerSerializesAccess(t *testing.T) {
	store := memory.NewStore()
	m := NewManager(store)
	ctx := context.Background()

	if err := store.Append(ctx, domain.StepRecord{RunID: "run-1", Seq: 0, Event: domain.Completed{Message: "t"}}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	done := make(chan struct{})
	err := m.WithLock(ctx, "run-1", func(ctx context.Context) error {
		go func() {
			// A second holder must block until the first releases.
			_ = m.WithLock(ctx, "run-1", func(ctx context.Context) error { return nil })
			close(done)
		}()
		select {
		case <-done:
			return errors.New("nested WithLock acquired the lock while held")
		default:
			return nil
		}
	})
	if err != nil {
		t.Fatal(err)
	}
	<-done

	records, err := m.List(ctx, "run-1")
	if err != nil || len(records) != 1 {
		t.Fatalf("List = (%v, %v), want one record", records, err)
	}
	if err := m.Delete(ctx, "run-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := m.List(ctx, "run-1"); !errors.Is(err, domain.ErrRunNotFound) {
		t.Fatalf("List after delete: err = %v, want ErrRunNotFound", err)
	}
}
