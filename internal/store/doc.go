// Package store provides SQLite-backed storage for compiled builtin snapshots.
//
// Each import is one immutable batch:
//   - imports: one row per imported snapshot, keyed by a UUIDv7
//   - languages: the snapshot's language records, in declaration order
//   - builtins: one row per builtin record with its resolved category
//   - builtin_classes: the category classes each builtin derives from
//
// # Ordering
//
//   - Imports are ordered by seq INTEGER, never by timestamps
//   - Builtins are read back ORDER BY id ASC, which is emission order
//   - Languages are read back ORDER BY position ASC
//
// # Identity
//
// Imports are idempotent by fingerprint (see ir.Snapshot.Fingerprint).
// Saving a snapshot whose fingerprint is already stored returns the
// existing import. Loading recomputes the fingerprint and fails with
// ErrFingerprintMismatch if the rows no longer hash to it.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
