// Package signal derives per-play narrative signals from a normalized
// timeline: lead state, lead-change and scoring-play flags, unanswered-run
// windows, and lead-ladder tier crossings.
//
// The deriver is a pure function over an immutable play slice. It accepts a
// suffix of a game (live ingestion re-derives from the last processed play),
// which drives two deliberate edge-case rules:
//
//   - The first play of a window counts as a scoring play whenever either
//     running score is non-zero, so a mid-game restart is not mistaken for a
//     scoreless stretch.
//   - The run accumulator seeds from the first observed score pair, never
//     from (0,0), so the pre-window differential is not reported as one huge
//     run.
//
// Lead-ladder tiers are a REQUIRED input. There is no default ladder: a
// single-sport assumption baked into a default caused real bugs before, so
// construction fails loudly when tiers are missing.
package signal
