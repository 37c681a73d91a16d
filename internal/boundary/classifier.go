package boundary

import (
	"fmt"

	"github.com/rallycap/moments/internal/signal"
	"github.com/rallycap/moments/internal/timeline"
)

// Play types that hand possession to the other team.
var possessionChangeTypes = map[string]bool{
	"turnover":          true,
	"steal":             true,
	"interception":      true,
	"defensive_rebound": true,
	"fumble":            true,
	"punt":              true,
}

// Play types that stop the game without ending the period.
var stoppageTypes = map[string]bool{
	"timeout":   true,
	"injury":    true,
	"review":    true,
	"challenge": true,
}

// Play types that always warrant explicit narration regardless of points.
var explicitPlayTypes = map[string]bool{
	"dunk":          true,
	"three_pointer": true,
	"block":         true,
	"buzzer_beater": true,
	"home_run":      true,
	"touchdown":     true,
	"goal":          true,
}

// Classify emits boundary marker candidates for a play window.
//
// plays and sigs.Plays must be position-parallel (the deriver guarantees
// this for its own input). One marker at most is emitted per play; when
// several reasons coincide the marker carries the winning reason:
//
//   - any HARD reason beats every SOFT reason
//   - HARD: period boundary > lead change > explicit overflow > absolute max
//   - SOFT: second explicit > scoring play > possession change > stoppage >
//     soft cap
//
// Counters reset only on HARD markers. SOFT markers are candidates the
// partitioner may decline, so the classifier keeps counting through them:
// resetting on a declined candidate would let a moment outgrow the absolute
// caps. The soft cap therefore re-fires on every play past the cap until
// the absolute max forces a cut.
func Classify(plays []timeline.Play, sigs *signal.Signals, b Budgets) ([]Marker, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	if len(plays) != len(sigs.Plays) {
		return nil, fmt.Errorf("boundary: %d plays but %d signals", len(plays), len(sigs.Plays))
	}

	var markers []Marker
	playCount := 0
	explicitCount := 0
	for i, p := range plays {
		sig := sigs.Plays[i]
		playCount++
		if IsExplicit(p, sig) {
			explicitCount++
		}

		reason, found := pickReason(plays, i, sig, b, playCount, explicitCount)
		if !found {
			continue
		}
		m := Marker{AfterIndex: p.Index, Kind: KindOf(reason), Reason: reason}
		markers = append(markers, m)
		if m.Kind == Hard {
			playCount = 0
			explicitCount = 0
		}
	}
	return markers, nil
}

// pickReason evaluates every rule for one play and returns the winning
// reason under the documented precedence.
func pickReason(plays []timeline.Play, i int, sig signal.PlaySignal, b Budgets, playCount, explicitCount int) (Reason, bool) {
	p := plays[i]

	// HARD, in precedence order.
	if i+1 < len(plays) && plays[i+1].Period != p.Period {
		return ReasonPeriodBoundary, true
	}
	if sig.LeadChange {
		return ReasonLeadChange, true
	}
	if explicitCount >= b.PreferredExplicitPlays {
		return ReasonExplicitOverflow, true
	}
	if playCount >= b.HardCapPlays {
		return ReasonAbsoluteMax, true
	}

	// SOFT, in precedence order.
	if explicitCount == b.PreferredExplicitPlays-1 && IsExplicit(p, sig) {
		return ReasonSecondExplicit, true
	}
	if sig.ScoringPlay {
		return ReasonScoringPlay, true
	}
	if possessionChangeTypes[p.PlayType] {
		return ReasonPossessionChange, true
	}
	if stoppageTypes[p.PlayType] {
		return ReasonStoppage, true
	}
	if playCount >= b.SoftCapPlays {
		return ReasonSoftCap, true
	}
	return "", false
}

// IsExplicit reports whether a play needs explicit narration: a big scoring
// play (3+ points by one side), a lead change or ladder tier crossing, or a
// play type that is always called out.
func IsExplicit(p timeline.Play, sig signal.PlaySignal) bool {
	if sig.PointsHome >= 3 || sig.PointsAway >= 3 {
		return true
	}
	if sig.LeadChange || sig.TierCrossing {
		return true
	}
	return explicitPlayTypes[p.PlayType]
}
