package boundary

import "fmt"

// Kind distinguishes forced cuts from advisory ones.
type Kind int

const (
	// Hard markers are never skipped by the partitioner.
	Hard Kind = iota
	// Soft markers may be merged away to avoid underpowered moments.
	Soft
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	if k == Hard {
		return "HARD"
	}
	return "SOFT"
}

// Reason is the closed set of boundary causes. Serialized values are stable:
// they appear in persisted moments and in the compression histogram.
type Reason string

// Hard reasons.
const (
	ReasonPeriodBoundary   Reason = "PERIOD_BOUNDARY"
	ReasonLeadChange       Reason = "LEAD_CHANGE"
	ReasonExplicitOverflow Reason = "EXPLICIT_PLAY_OVERFLOW"
	ReasonAbsoluteMax      Reason = "ABSOLUTE_MAX_PLAYS"
)

// Soft reasons.
const (
	ReasonSoftCap          Reason = "SOFT_CAP"
	ReasonScoringPlay      Reason = "SCORING_PLAY"
	ReasonPossessionChange Reason = "POSSESSION_CHANGE"
	ReasonStoppage         Reason = "STOPPAGE"
	ReasonSecondExplicit   Reason = "SECOND_EXPLICIT_PLAY"
)

// KindOf returns the kind a reason implies. Unknown reasons panic: the set
// is closed and a new reason must be classified here at compile time.
func KindOf(r Reason) Kind {
	switch r {
	case ReasonPeriodBoundary, ReasonLeadChange, ReasonExplicitOverflow, ReasonAbsoluteMax:
		return Hard
	case ReasonSoftCap, ReasonScoringPlay, ReasonPossessionChange, ReasonStoppage, ReasonSecondExplicit:
		return Soft
	default:
		panic(fmt.Sprintf("boundary: unknown reason %q", string(r)))
	}
}

// Marker is a cut-point candidate emitted after the play at AfterIndex.
type Marker struct {
	AfterIndex int    `json:"after_index"`
	Kind       Kind   `json:"kind"`
	Reason     Reason `json:"reason"`
}
