package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/canopy/pkg/domain"
	"github.com/aretw0/canopy/pkg/ports"
)

func TestStoreContract(t *testing.T) {
	ports.RunStoreContract(t, NewStore())
}

func TestListReturnsCopies(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	rec := domain.StepRecord{
		RunID: "run-1",
		Seq:   0,
		At:    time.Now(),
		Event: domain.Status{Message: "working"},
	}
	require.NoError(t, store.Append(ctx, rec))

	first, err := store.List(ctx, "run-1")
	require.NoError(t, err)
	first[0].Event = domain.Status{Message: "tampered"}

	second, err := store.List(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "working", second[0].Event.(domain.Status).Message,
		"mutating a listed slice must not affect the store")
}
