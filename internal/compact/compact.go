// Package compact implements the compact display mode: maximal runs of
// consecutive PBP-only, low-excitement moments collapse into a single
// summarized group, while every moment carrying externally sourced
// commentary passes through untouched and alone.
//
// Excitement is an internal score. It picks the collapse cutoff and nothing
// else; it is never attached to the output, so callers cannot come to
// depend on its scale.
package compact

import (
	"fmt"

	"github.com/rallycap/moments/internal/boundary"
	"github.com/rallycap/moments/internal/partition"
)

// Group is one compact-mode display unit: either a single pass-through
// moment, or a collapsed run of low-signal moments under one label.
type Group struct {
	Moments   []partition.Moment `json:"moments"`
	Collapsed bool               `json:"collapsed"`
	Label     string             `json:"label,omitempty"`
}

// Compress applies compact mode to a finished moment sequence.
//
// thresholds are the league's ascending excitement tiers and are REQUIRED:
// there is no default list (the guardrail mirrors the lead-ladder rule).
// The overall game excitement selects a collapse cutoff from the tiers:
// the more exciting the game, the lower the cutoff index never reached,
// i.e. the fewer groups collapse. Moments containing social posts are never
// eligible and always form their own visible group.
func Compress(moments []partition.Moment, thresholds []float64) ([]Group, error) {
	if len(thresholds) == 0 {
		return nil, fmt.Errorf("compact: excitement thresholds are required, no default list exists")
	}
	prev := 0.0
	for i, t := range thresholds {
		if t <= prev && i > 0 || t < 0 {
			return nil, fmt.Errorf("compact: thresholds must be non-negative and strictly ascending, got %v at position %d", t, i)
		}
		prev = t
	}
	if len(moments) == 0 {
		return nil, fmt.Errorf("compact: empty moment sequence")
	}

	cutoff := collapseCutoff(moments, thresholds)

	var groups []Group
	var pending []partition.Moment
	flush := func() {
		if len(pending) == 0 {
			return
		}
		groups = append(groups, makeGroup(pending, cutoff))
		pending = nil
	}

	for _, m := range moments {
		if m.HasSocial {
			// Externally sourced commentary is never compressed away.
			flush()
			groups = append(groups, Group{Moments: []partition.Moment{m}})
			continue
		}
		pending = append(pending, m)
	}
	flush()
	return groups, nil
}

// makeGroup collapses a PBP-only run when every member sits under the
// cutoff; otherwise the members stay visible as individual groups folded
// into one uncollapsed group.
func makeGroup(run []partition.Moment, cutoff float64) Group {
	collapse := true
	for i := range run {
		if excitement(&run[i]) >= cutoff {
			collapse = false
			break
		}
	}
	g := Group{Moments: run, Collapsed: collapse}
	if collapse {
		g.Label = groupLabel(run)
		for i := range g.Moments {
			g.Moments[i].CompactLabel = g.Label
		}
	}
	return g
}

// collapseCutoff maps overall game excitement to a tier cutoff, inversely:
// a dull game uses the top tier (most collapsing), a wild one the bottom.
func collapseCutoff(moments []partition.Moment, thresholds []float64) float64 {
	total := 0.0
	for i := range moments {
		total += excitement(&moments[i])
	}
	overall := total / float64(len(moments))

	tier := 0
	for _, t := range thresholds {
		if overall >= t {
			tier++
		}
	}
	idx := len(thresholds) - 1 - tier
	if idx < 0 {
		idx = 0
	}
	return thresholds[idx]
}

// excitement scores one moment. Internal only: the scale is free to change
// and must never leak into serialized output.
func excitement(m *partition.Moment) float64 {
	score := 2.0 * float64(m.ExplicitPlays)

	swing := m.ScoreAfter.Margin() - m.ScoreBefore.Margin()
	if swing < 0 {
		swing = -swing
	}
	score += 0.5 * float64(swing)

	switch m.BoundaryReason {
	case boundary.ReasonLeadChange:
		score += 3
	case boundary.ReasonExplicitOverflow:
		score += 2
	case boundary.ReasonScoringPlay, boundary.ReasonSecondExplicit:
		score += 1
	}
	return score
}

// groupLabel builds the visible summary for a collapsed run.
func groupLabel(run []partition.Moment) string {
	first, last := &run[0], &run[len(run)-1]
	plays := 0
	for i := range run {
		plays += len(run[i].PlayIDs)
	}
	return fmt.Sprintf("%d quiet plays, %d-%d to %d-%d",
		plays,
		first.ScoreBefore.Home, first.ScoreBefore.Away,
		last.ScoreAfter.Home, last.ScoreAfter.Away)
}
