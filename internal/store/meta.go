package store

import (
	"context"

	"github.com/roach88/tallykeep/internal/model"
)

// Bookkeeping keys.
const (
	KeyLastSync         = "lastSync"
	KeyBackupMetadata   = "backupMetadata"
	KeyPaymentMigration = "payment_status_migration_v1"
	KeyLastModified     = "lastModified"
)

// LastSync returns the last successful sync time in ms, or 0 if never synced.
func LastSync(ctx context.Context, kv KV) int64 {
	return Read(ctx, kv, KeyLastSync, int64(0))
}

// RecordSync stores ts as the last successful sync time.
func RecordSync(ctx context.Context, kv KV, ts int64) bool {
	return Write(ctx, kv, KeyLastSync, ts)
}

// LastModified returns when the stored working set was last assembled into
// a snapshot, in ms, or 0 if it never was.
func LastModified(ctx context.Context, kv KV) int64 {
	return Read(ctx, kv, KeyLastModified, int64(0))
}

// RecordModified stores the assembly time of the current snapshot.
func RecordModified(ctx context.Context, kv KV, ts int64) bool {
	return Write(ctx, kv, KeyLastModified, ts)
}

// LastBackup returns the metadata of the most recent replica write.
func LastBackup(ctx context.Context, kv KV) (model.BackupMetadata, bool) {
	meta := Read(ctx, kv, KeyBackupMetadata, model.BackupMetadata{})
	return meta, meta.Timestamp != 0
}

// RecordBackup stores the metadata of a replica write.
func RecordBackup(ctx context.Context, kv KV, meta model.BackupMetadata) bool {
	return Write(ctx, kv, KeyBackupMetadata, meta)
}

// Flag reports whether a boolean flag key is set.
func Flag(ctx context.Context, kv KV, key string) bool {
	return Read(ctx, kv, key, false)
}

// SetFlag sets a boolean flag key.
func SetFlag(ctx context.Context, kv KV, key string) bool {
	return Write(ctx, kv, key, true)
}
