// Package timeline defines the normalized event model consumed by the
// moments pipeline.
//
// A Timeline is the read-only input to every downstream stage: an ordered
// sequence of Play records for one game, plus social posts anchored to play
// positions. Plays are immutable once normalized; stages never mutate a
// Timeline, they derive from it.
//
// Normalization is the trust boundary. Raw ingest documents are validated
// against an embedded JSON Schema before any field is read, duplicate play
// indices are rejected outright, and individual records missing required
// fields are quarantined with a reason rather than passed downstream as
// loosely typed maps.
package timeline
