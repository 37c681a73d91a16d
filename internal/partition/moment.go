package partition

import (
	"github.com/rallycap/moments/internal/boundary"
	"github.com/rallycap/moments/internal/timeline"
)

// Moment is a bounded, ordered group of plays treated as one narrative
// unit. Created here; the compressor attaches group labels and the
// rendering collaborator attaches narrative text. Nothing else mutates a
// moment, and nothing re-orders the sequence except the assembler's
// deterministic sort.
type Moment struct {
	// PlayIDs are the member play indices, ascending, non-empty,
	// non-overlapping across moments.
	PlayIDs []int `json:"play_ids"`

	// Period is the period of the first play in the moment.
	Period int `json:"period"`

	// StartClock and EndClock are remaining seconds at the first and last
	// play. Nil when the source clock was unparsable; such moments sort as
	// if at 0 remaining (last within the period).
	StartClock *int `json:"start_clock,omitempty"`
	EndClock   *int `json:"end_clock,omitempty"`

	// ScoreBefore is the score entering the moment: the previous moment's
	// ScoreAfter, or (0,0) for the first moment of a full-game window.
	ScoreBefore timeline.Score `json:"score_before"`

	// ScoreAfter is the running score after the moment's last play.
	ScoreAfter timeline.Score `json:"score_after"`

	// BoundaryReason is why the moment closed.
	BoundaryReason boundary.Reason `json:"boundary_reason"`

	// ExplicitPlays counts member plays that need explicit narration.
	ExplicitPlays int `json:"explicit_plays"`

	// HasSocial is true when a social post anchors inside the moment.
	// Social-bearing moments are never collapsed by compact mode.
	HasSocial bool `json:"has_social"`

	// Narrative is the rendered text, attached by the rendering
	// collaborator between generation and validation. Empty until then.
	Narrative string `json:"narrative,omitempty"`

	// CompactLabel is the group summary label attached by compact mode.
	CompactLabel string `json:"compact_label,omitempty"`
}

// FirstPlayID returns the first member play index.
func (m *Moment) FirstPlayID() int {
	return m.PlayIDs[0]
}

// LastPlayID returns the last member play index.
func (m *Moment) LastPlayID() int {
	return m.PlayIDs[len(m.PlayIDs)-1]
}

// StartClockSeconds returns the start clock, or 0 when unknown (the
// sorts-last policy).
func (m *Moment) StartClockSeconds() int {
	if m.StartClock == nil {
		return 0
	}
	return *m.StartClock
}
