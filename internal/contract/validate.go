package contract

import (
	"strings"

	"github.com/rallycap/moments/internal/partition"
	"github.com/rallycap/moments/internal/timeline"
)

// Options configures the optional rules. The structural rules (ordering,
// monotonicity, continuity) always run.
type Options struct {
	// Timeline, when set, enables the play-coverage gap check and the
	// narrative entity/outcome checks.
	Timeline *timeline.Timeline

	// TargetWords, when positive, enables the ±15% word-count rule
	// against the externally supplied target.
	TargetWords int

	// RegulationPeriods, when positive, enables the overtime-claim check:
	// a narrative asserting overtime contradicts a game that never left
	// regulation.
	RegulationPeriods int

	// Finalized disables the forbidden-language rule; spoiler phrasing is
	// only forbidden pre-finalization.
	Finalized bool
}

// Validate runs every rule over the moment sequence and returns all
// violations found, or an empty list on success.
//
// Panics on an empty sequence: callers must not validate nothing, that is a
// programmer error, not an expected-invalid input.
func Validate(moments []partition.Moment, opts Options) []Violation {
	if len(moments) == 0 {
		panic("contract: Validate called with empty moment sequence")
	}

	violations := []Violation{}
	violations = append(violations, CheckOrdering(moments, opts.Timeline)...)
	violations = append(violations, CheckScoreMonotonic(moments)...)
	violations = append(violations, CheckContinuity(moments)...)
	violations = append(violations, CheckNarrativePresence(moments)...)
	violations = append(violations, CheckNarrativeFacts(moments, opts)...)
	if opts.TargetWords > 0 {
		violations = append(violations, CheckWordCount(moments, opts.TargetWords)...)
	}
	if !opts.Finalized {
		violations = append(violations, CheckForbiddenLanguage(moments)...)
	}
	return violations
}

// CheckOrdering verifies the deterministic sort contract (period
// ascending, start clock descending with more remaining time first and
// unparsable clocks counting as 0 so they sort last, first play index
// ascending) plus
// non-empty moments, ascending member play ids, no overlaps across moments,
// and, when the timeline is available, exact coverage with no gaps.
func CheckOrdering(moments []partition.Moment, tl *timeline.Timeline) []Violation {
	var out []Violation

	seen := make(map[int]int) // play id -> owning moment position
	for i := range moments {
		m := &moments[i]
		if len(m.PlayIDs) == 0 {
			out = append(out, violation(CodeEmptyMoment, i, -1, "moment has no plays"))
			continue
		}
		prevID := -1
		for _, id := range m.PlayIDs {
			if id <= prevID {
				out = append(out, violation(CodeMomentOrder, i, id, "play ids not strictly ascending"))
			}
			prevID = id
			if owner, dup := seen[id]; dup {
				out = append(out, violation(CodePlayOverlap, i, id, "play already belongs to moment %d", owner))
				continue
			}
			seen[id] = i
		}

		if i == 0 {
			continue
		}
		prev := &moments[i-1]
		if badOrder(prev, m) {
			out = append(out, violation(CodeMomentOrder, i, -1,
				"moment out of order after (period=%d clock=%d first=%d)",
				prev.Period, prev.StartClockSeconds(), prev.FirstPlayID()))
		}
	}

	if tl != nil {
		for _, p := range tl.Plays {
			if _, ok := seen[p.Index]; !ok {
				out = append(out, violation(CodePlayGap, -1, p.Index, "timeline play missing from every moment"))
			}
		}
	}
	return out
}

// badOrder reports whether b may not follow a under the sort contract.
func badOrder(a, b *partition.Moment) bool {
	if a.Period != b.Period {
		return b.Period < a.Period
	}
	ac, bc := a.StartClockSeconds(), b.StartClockSeconds()
	if ac != bc {
		return bc > ac // clock descends within a period
	}
	return b.FirstPlayID() < a.FirstPlayID()
}

// CheckScoreMonotonic verifies that no score component decreases, either
// within a moment (ScoreBefore → ScoreAfter) or across the seam from one
// moment's ScoreAfter to the next one's ScoreBefore.
func CheckScoreMonotonic(moments []partition.Moment) []Violation {
	var out []Violation
	for i := range moments {
		m := &moments[i]
		if m.ScoreAfter.DecreasedFrom(m.ScoreBefore) {
			out = append(out, violation(CodeScoreDecrease, i, -1,
				"score decreased within moment: (%d,%d) -> (%d,%d)",
				m.ScoreBefore.Home, m.ScoreBefore.Away, m.ScoreAfter.Home, m.ScoreAfter.Away))
		}
		if i > 0 && moments[i].ScoreBefore.DecreasedFrom(moments[i-1].ScoreAfter) {
			out = append(out, violation(CodeScoreDecrease, i, -1,
				"score decreased across moments: (%d,%d) -> (%d,%d)",
				moments[i-1].ScoreAfter.Home, moments[i-1].ScoreAfter.Away,
				moments[i].ScoreBefore.Home, moments[i].ScoreBefore.Away))
		}
	}
	return out
}

// CheckContinuity verifies the exact seam equality
// moments[i+1].ScoreBefore == moments[i].ScoreAfter. Any mismatch,
// including an accidental reset to (0,0) at a period boundary, is a
// reportable break, never a silent correction.
func CheckContinuity(moments []partition.Moment) []Violation {
	var out []Violation
	for i := 1; i < len(moments); i++ {
		prev, cur := &moments[i-1], &moments[i]
		if cur.ScoreBefore != prev.ScoreAfter {
			out = append(out, violation(CodeScoreContinuityBreak, i, -1,
				"score_before (%d,%d) does not continue previous score_after (%d,%d)",
				cur.ScoreBefore.Home, cur.ScoreBefore.Away,
				prev.ScoreAfter.Home, prev.ScoreAfter.Away))
		}
	}
	return out
}

// CheckNarrativePresence requires non-empty narrative text on every moment.
func CheckNarrativePresence(moments []partition.Moment) []Violation {
	var out []Violation
	for i := range moments {
		if strings.TrimSpace(moments[i].Narrative) == "" {
			out = append(out, violation(CodeNarrativeMissing, i, -1, "moment has no narrative text"))
		}
	}
	return out
}

// CheckWordCount enforces the ±15% tolerance around the supplied target on
// each moment's narrative.
func CheckWordCount(moments []partition.Moment, target int) []Violation {
	lo := target * 85 / 100
	hi := target * 115 / 100
	var out []Violation
	for i := range moments {
		n := len(strings.Fields(moments[i].Narrative))
		if n == 0 {
			continue // reported by CheckNarrativePresence
		}
		if n < lo || n > hi {
			out = append(out, violation(CodeWordCountOutOfRange, i, -1,
				"narrative is %d words, outside %d-%d (target %d +/-15%%)", n, lo, hi, target))
		}
	}
	return out
}
