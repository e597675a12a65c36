package history

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/relpack/internal/pipeline"
)

func report(id, target string, outcome pipeline.BuildOutcome, failed int) *pipeline.BuildReport {
	return &pipeline.BuildReport{
		SchemaVersion: 1,
		BuildID:       id,
		Target:        target,
		Outcome:       outcome,
		Processed:     10,
		Failed:        failed,
		Start:         time.Now().Add(-time.Minute),
		End:           time.Now(),
	}
}

func TestStore_RecordAndGet(t *testing.T) {
	store, err := NewStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Record(ctx, report("b-1", "web", pipeline.OutcomeSuccess, 0)))

	got, err := store.Get(ctx, "b-1")
	require.NoError(t, err)
	assert.Equal(t, "web", got.Target)
	assert.Equal(t, pipeline.OutcomeSuccess, got.Outcome)
	assert.Equal(t, uint(10), got.Processed)
}

func TestStore_RecentIsNewestFirst(t *testing.T) {
	store, err := NewStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Record(ctx, report("b-1", "web", pipeline.OutcomeSuccess, 0)))
	require.NoError(t, store.Record(ctx, report("b-2", "web", pipeline.OutcomeFailed, 3)))
	require.NoError(t, store.Record(ctx, report("b-3", "api", pipeline.OutcomeSuccess, 0)))

	entries, err := store.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "b-3", entries[0].BuildID)
	assert.Equal(t, "b-2", entries[1].BuildID)
	assert.Equal(t, 3, entries[1].Failed)
}

func TestStore_GetUnknownBuild(t *testing.T) {
	store, err := NewStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	_, err = store.Get(context.Background(), "nope")
	assert.Error(t, err)
}
