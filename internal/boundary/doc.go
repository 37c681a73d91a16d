// Package boundary classifies cut points between narrative moments.
//
// The classifier walks a play window with its derived signals and emits one
// Marker candidate per play that ends a stretch: HARD markers force a cut no
// matter what the partitioner would prefer, SOFT markers are advisory and
// may be merged away when the resulting moment would be underpowered.
//
// Reason precedence when several coincide on one play: HARD always wins and
// is never suppressed; among SOFT reasons, scoring play beats possession
// change beats stoppage.
//
// All budgets are injected through the Budgets struct. Defaults exist for
// play-count caps (soft 30, absolute 50) and the explicit-narration budget
// (5 max, 3 preferred), but callers wire per-league values through config.
package boundary
