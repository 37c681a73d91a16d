// Package pipeline orchestrates the five-stage moment generation process
// for a game and keeps the append-only run/stage ledger.
//
// Stages execute strictly in order per game: NORMALIZE_PBP, DERIVE_SIGNALS,
// GENERATE_MOMENTS, VALIDATE_MOMENTS, FINALIZE_MOMENTS. A later stage never
// starts before its predecessor reaches success. Across games, runs may
// execute on parallel workers; the algorithmic stages are pure functions
// over immutable snapshots, so the only shared state is the store.
//
// Failure semantics, by error class:
//
//   - structural input errors fail NORMALIZE_PBP immediately, no retry
//   - contract violations fail VALIDATE_MOMENTS; auto_chain permits a
//     bounded regeneration (re-render) before the run halts
//   - collaborator failures (render timeout, transient render failure) are
//     retried a bounded number of times from a FRESH stage attempt, never
//     resumed mid-stage
//
// Every failure is recorded in the ledger; rows at a terminal status are
// never rewritten. Two concurrent runs for the same game may both reach
// FINALIZE_MOMENTS; each publishes against the version it observed at run
// start, so the loser records a clean VERSION_CONFLICT failure, which is
// never retried within the run.
package pipeline
