package boundary

import "fmt"

// Budgets holds the play-count and explicit-narration budgets for one
// partitioning pass. An injectable struct, never process-wide globals, so
// per-league overrides are plumbed through config.
type Budgets struct {
	// SoftCapPlays is the advisory moment size; reaching it emits a SOFT
	// marker.
	SoftCapPlays int `json:"soft_cap_plays"`

	// HardCapPlays is the absolute moment size; reaching it forces a HARD
	// cut even mid-sequence.
	HardCapPlays int `json:"hard_cap_plays"`

	// MaxExplicitPlays is the hard ceiling on explicitly narrated plays
	// per moment, enforced by the partitioner even when no marker lands
	// on the offending play.
	MaxExplicitPlays int `json:"max_explicit_plays"`

	// PreferredExplicitPlays is the advisory explicit-play count; the
	// second explicit play emits a SOFT marker.
	PreferredExplicitPlays int `json:"preferred_explicit_plays"`

	// MinMeaningfulEvents is the underpowered threshold used by the
	// partitioner: a SOFT cut is skipped while the open moment has fewer
	// meaningful events (scoring or explicit plays) than this.
	MinMeaningfulEvents int `json:"min_meaningful_events"`
}

// DefaultBudgets returns the stock budgets: soft cap 30, hard cap 50,
// explicit budget 5 max / 3 preferred, underpowered threshold 2.
func DefaultBudgets() Budgets {
	return Budgets{
		SoftCapPlays:           30,
		HardCapPlays:           50,
		MaxExplicitPlays:       5,
		PreferredExplicitPlays: 3,
		MinMeaningfulEvents:    2,
	}
}

// Validate rejects budget combinations the classifier cannot honor.
func (b Budgets) Validate() error {
	if b.SoftCapPlays <= 0 || b.HardCapPlays <= 0 {
		return fmt.Errorf("boundary: play caps must be positive, got soft=%d hard=%d", b.SoftCapPlays, b.HardCapPlays)
	}
	if b.SoftCapPlays > b.HardCapPlays {
		return fmt.Errorf("boundary: soft cap %d exceeds hard cap %d", b.SoftCapPlays, b.HardCapPlays)
	}
	if b.PreferredExplicitPlays <= 0 || b.MaxExplicitPlays < b.PreferredExplicitPlays {
		return fmt.Errorf("boundary: explicit budget invalid, got max=%d preferred=%d", b.MaxExplicitPlays, b.PreferredExplicitPlays)
	}
	if b.MinMeaningfulEvents < 0 {
		return fmt.Errorf("boundary: min meaningful events must be non-negative, got %d", b.MinMeaningfulEvents)
	}
	return nil
}
