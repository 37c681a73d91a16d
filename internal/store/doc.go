// Package store provides SQLite-backed durable storage for the moments
// pipeline: the per-game run/stage ledger and the append-only payload
// version history.
//
// # Critical Patterns
//
// Append-only ledger:
//   - A stage row that reaches a terminal status (success, failed, skipped)
//     is never rewritten. Retries insert a new row with attempt+1. The
//     ledger is the only source of truth for "did this game's moments get
//     regenerated, when, and why".
//
// Immutable versions:
//   - payload_versions rows are never updated (beyond the active flag) or
//     deleted. Version numbers are monotonic per game.
//   - At most one active version per game, enforced by a partial UNIQUE
//     index on (game_id) WHERE is_active = 1 - NOT by application locking.
//     A losing concurrent finalizer observes the constraint violation as
//     ErrVersionConflict and must abort or retry cleanly.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: enforce referential integrity
package store
