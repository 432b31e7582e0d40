package replica

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tallykeep/internal/cloudkv"
	"github.com/roach88/tallykeep/internal/model"
	"github.com/roach88/tallykeep/internal/store"
)

func newTestReplicas(t *testing.T) (*Store, store.KV) {
	t.Helper()
	kv, err := cloudkv.Open(cloudkv.InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { kv.Close() })
	return New(kv), kv
}

func snapshotAt(ts int64, clientName string) model.Snapshot {
	s := model.Snapshot{
		WorkingSet:   model.WorkingSet{Clients: []model.Client{{ID: "c1", Name: clientName}}},
		Version:      model.SchemaVersion,
		LastModified: ts,
	}
	s.Normalize()
	return s
}

func TestWriteRead(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestReplicas(t)

	key, err := r.Write(ctx, snapshotAt(1000, "Acme"))
	require.NoError(t, err)
	assert.Equal(t, "cloud_backup_1000", key)

	got, ok := r.Read(ctx, key)
	require.True(t, ok)
	assert.Equal(t, int64(1000), got.LastModified)
	assert.Equal(t, "Acme", got.Clients[0].Name)
	assert.NotNil(t, got.Payments)
}

func TestRead_Missing(t *testing.T) {
	r, _ := newTestReplicas(t)
	_, ok := r.Read(context.Background(), Key(1))
	assert.False(t, ok)
}

func TestListReplicas_NumericMostRecentFirst(t *testing.T) {
	ctx := context.Background()
	r, kv := newTestReplicas(t)

	for _, ts := range []int64{999, 1000, 20} {
		_, err := r.Write(ctx, snapshotAt(ts, "x"))
		require.NoError(t, err)
	}
	require.NoError(t, kv.Put(ctx, KeyPrefix+"notanumber", []byte("{}")))

	entries, err := r.ListReplicas(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Entry{
		{Key: "cloud_backup_1000", Timestamp: 1000},
		{Key: "cloud_backup_999", Timestamp: 999},
		{Key: "cloud_backup_20", Timestamp: 20},
	}, entries)
}

func TestLatest_Empty(t *testing.T) {
	r, _ := newTestReplicas(t)
	_, ok, err := r.Latest(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLatest_SkipsCorruptedAndInvalid(t *testing.T) {
	ctx := context.Background()
	r, kv := newTestReplicas(t)

	_, err := r.Write(ctx, snapshotAt(100, "Good"))
	require.NoError(t, err)
	require.NoError(t, kv.Put(ctx, Key(300), []byte(`{"clients":`)))
	require.NoError(t, kv.Put(ctx, Key(200), []byte(`{"clients":[]}`)))

	got, ok, err := r.Latest(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(100), got.LastModified)
	assert.Equal(t, "Good", got.Clients[0].Name)
}

func TestPrune(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestReplicas(t)

	for ts := int64(1); ts <= 5; ts++ {
		_, err := r.Write(ctx, snapshotAt(ts, "x"))
		require.NoError(t, err)
	}

	removed, err := r.Prune(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, removed, "keep 0 disables pruning")

	removed, err = r.Prune(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, removed)

	entries, err := r.ListReplicas(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Entry{{Key: Key(5), Timestamp: 5}, {Key: Key(4), Timestamp: 4}}, entries)

	removed, err = r.Prune(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 0, removed)
}
