package signal

import "fmt"

// Lead identifies which side holds the lead after a play.
type Lead int

const (
	LeadTie Lead = iota
	LeadHome
	LeadAway
)

// String implements fmt.Stringer.
func (l Lead) String() string {
	switch l {
	case LeadTie:
		return "TIE"
	case LeadHome:
		return "HOME"
	case LeadAway:
		return "AWAY"
	default:
		return fmt.Sprintf("Lead(%d)", int(l))
	}
}

// Side identifies a team in home/away terms.
type Side int

const (
	SideHome Side = iota
	SideAway
)

// String implements fmt.Stringer.
func (s Side) String() string {
	if s == SideHome {
		return "HOME"
	}
	return "AWAY"
}

// PlaySignal is the derived signal set for one play.
type PlaySignal struct {
	// Index is the play index this signal describes.
	Index int

	// Lead is the lead state after the play. Ties are LeadTie.
	Lead Lead

	// LeadChange is true only when the lead strictly flips between the two
	// non-tie states. Moving into or out of a tie is not a lead change.
	LeadChange bool

	// ScoringPlay is true when either side's score increased since the
	// previous play. For the first play of the window it is true when
	// either running score is non-zero.
	ScoringPlay bool

	// PointsHome and PointsAway are the points scored on this play. Both
	// are zero for the first play of a mid-game window, where the previous
	// score pair is unobserved.
	PointsHome int
	PointsAway int

	// Tier is the signed lead-ladder tier after the play: positive for a
	// home lead, negative for away, magnitude = number of ladder
	// thresholds the margin has reached.
	Tier int

	// TierCrossing is true when Tier differs from the previous play's.
	TierCrossing bool
}

// RunWindow is a streak of unanswered points by one side.
type RunWindow struct {
	// Side is the team that scored every point in the window.
	Side Side

	// Points is the total unanswered points.
	Points int

	// FirstIndex and LastIndex bound the scoring plays of the run.
	FirstIndex int
	LastIndex  int

	// CausedLeadChange is true when a play inside the run flipped the lead
	// to the running side.
	CausedLeadChange bool

	// leadingAtEnd records whether the running side held the lead when the
	// run ended; used by IsQualifying.
	leadingAtEnd bool
}

// IsQualifying reports whether the run is a notable narrative beat: it
// either caused a lead change, or expanded the leading team's margin by at
// least threshold points.
func (r RunWindow) IsQualifying(threshold int) bool {
	if r.CausedLeadChange {
		return true
	}
	return r.leadingAtEnd && r.Points >= threshold
}

// Signals is the full derivation result for a play window.
type Signals struct {
	// Plays is position-parallel to the input play slice.
	Plays []PlaySignal

	// Runs holds every closed run window plus the still-open trailing run,
	// in order of occurrence.
	Runs []RunWindow
}

// ForIndex returns the signal for a play index, or nil when the index is
// outside the derived window.
func (s *Signals) ForIndex(index int) *PlaySignal {
	for i := range s.Plays {
		if s.Plays[i].Index == index {
			return &s.Plays[i]
		}
	}
	return nil
}
