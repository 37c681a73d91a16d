// Package partition walks a timeline and its boundary markers in one pass
// and emits the ordered Moment sequence.
//
// A HARD marker always cuts. A SOFT marker cuts only when the open moment
// already holds enough meaningful events (scoring or explicitly narrated
// plays) to stand on its own; otherwise the marker is merged away and the
// moment keeps growing. The absolute play cap is enforced here as well as in
// the classifier, so no SOFT-only stretch can ever cross it.
//
// Partitioning is deterministic by construction: no randomness, no wall
// clock, no map iteration over unordered keys. The same timeline and budgets
// produce a byte-for-byte identical moment sequence, which the golden tests
// pin down.
package partition
