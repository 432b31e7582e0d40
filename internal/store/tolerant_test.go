package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tallykeep/internal/model"
)

// failingKV fails every operation, like a full disk.
type failingKV struct{}

var errQuota = errors.New("quota exceeded")

func (failingKV) Get(context.Context, string) ([]byte, error) { return nil, errQuota }
func (failingKV) Put(context.Context, string, []byte) error { return errQuota }
func (failingKV) Delete(context.Context, string) error { return errQuota }
func (failingKV) Keys(context.Context, string) ([]string, error) { return nil, errQuota }

func TestRead_MissingReturnsDefault(t *testing.T) {
	s := createTestStore(t)

	got := Read(context.Background(), s, KeyClients, []model.Client{{ID: "default"}})
	require.Len(t, got, 1)
	assert.Equal(t, "default", got[0].ID)
}

func TestRead_CorruptedReturnsDefault(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	require.NoError(t, s.Put(ctx, KeyClients, []byte(`{not json`)))

	got := Read(ctx, s, KeyClients, []model.Client{})
	assert.Empty(t, got)
	assert.NotNil(t, got)
}

func TestRead_WrongShapeReturnsDefault(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	require.NoError(t, s.Put(ctx, KeyLastSync, []byte(`"yesterday"`)))

	assert.Equal(t, int64(0), LastSync(ctx, s))
}

func TestRead_StoreFailureReturnsDefault(t *testing.T) {
	got := Read(context.Background(), failingKV{}, KeyLastSync, int64(7))
	assert.Equal(t, int64(7), got)
}

func TestWrite_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	clients := []model.Client{{ID: "c1", Name: "Acme"}}
	require.True(t, Write(ctx, s, KeyClients, clients))

	got := Read(ctx, s, KeyClients, []model.Client{})
	assert.Equal(t, clients, got)
}

func TestWrite_FailureReturnsFalse(t *testing.T) {
	assert.False(t, Write(context.Background(), failingKV{}, KeyClients, []model.Client{}))
}

func TestWrite_UnencodableReturnsFalse(t *testing.T) {
	s := createTestStore(t)
	assert.False(t, Write(context.Background(), s, "bad", make(chan int)))
}

func TestMeta_SyncAndBackup(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	assert.Equal(t, int64(0), LastSync(ctx, s))
	require.True(t, RecordSync(ctx, s, 1700000000000))
	assert.Equal(t, int64(1700000000000), LastSync(ctx, s))

	_, ok := LastBackup(ctx, s)
	assert.False(t, ok)

	meta := model.BackupMetadata{Timestamp: 42, Version: model.SchemaVersion, Checksum: "abc"}
	require.True(t, RecordBackup(ctx, s, meta))
	got, ok := LastBackup(ctx, s)
	require.True(t, ok)
	assert.Equal(t, meta, got)
}

func TestMeta_Flag(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	assert.False(t, Flag(ctx, s, KeyPaymentMigration))
	require.True(t, SetFlag(ctx, s, KeyPaymentMigration))
	assert.True(t, Flag(ctx, s, KeyPaymentMigration))
}

func TestMeta_LastModified(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	assert.Zero(t, LastModified(ctx, s))
	require.True(t, RecordModified(ctx, s, 1700000000123))
	assert.Equal(t, int64(1700000000123), LastModified(ctx, s))
}
