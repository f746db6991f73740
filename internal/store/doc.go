// Package store provides SQLite-backed persistence for fmdesk.
//
// Two tables live in one database file:
//   - actions: the append-only log of every dispatched action, as
//     action.Envelope records. Replaying it through state.Reduce rebuilds
//     the exact state the engine held.
//   - preferences: a small key/value table for client state that must
//     survive restarts (theme, session token).
//
// # Critical Patterns
//
// Logical time only:
//   - The log is ordered by seq INTEGER (the engine clock), NEVER timestamps.
//   - Replay is independent of wall time.
//
// Deterministic query results:
//   - Log queries use ORDER BY seq ASC, id COLLATE BINARY ASC.
//   - Empty results are empty slices, not nil.
//
// Idempotent writes:
//   - Appending an envelope whose id is already stored is a no-op.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
