// Package store provides the primary persistence tier: a SQLite-backed
// key/value table holding one serialized value per logical key.
//
// Logical keys (one value per key):
//   - clients, projects, timeEntries, invoices, payments, recurringTemplates,
//     invoiceReminders, exchangeRates, billerInfo: the working set
//   - lastSync: last successful sync timestamp (ms)
//   - backupMetadata: most recent {timestamp, version, checksum}
//   - payment_status_migration_v1: one-time ledger migration flag
//
// Two layers:
//   - KV (Get/Put/Delete/Keys) returns errors and is implemented by Store
//     and by the cloud tier (internal/cloudkv)
//   - Read/Write are tolerant wrappers over any KV: they never fail, they
//     log and fall back to a default (Read) or report false (Write)
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - single open connection: SQLite allows one writer
package store
