package partition

import (
	"fmt"

	"github.com/rallycap/moments/internal/boundary"
	"github.com/rallycap/moments/internal/signal"
	"github.com/rallycap/moments/internal/timeline"
)

// Partition consumes the timeline and the boundary markers in one pass and
// returns the ordered moment sequence plus its derived metrics.
//
// The first moment's ScoreBefore is (0,0); every later moment's ScoreBefore
// is the previous moment's ScoreAfter. The trailing moment, when the stream
// ends without a marker, closes with PERIOD_BOUNDARY: the end of the window
// is the end of a period as far as narration is concerned.
func Partition(tl *timeline.Timeline, sigs *signal.Signals, markers []boundary.Marker, b boundary.Budgets) ([]Moment, Metrics, error) {
	if err := b.Validate(); err != nil {
		return nil, Metrics{}, err
	}
	if len(tl.Plays) == 0 {
		return nil, Metrics{}, fmt.Errorf("partition: empty timeline")
	}
	if len(tl.Plays) != len(sigs.Plays) {
		return nil, Metrics{}, fmt.Errorf("partition: %d plays but %d signals", len(tl.Plays), len(sigs.Plays))
	}

	markerAt := make(map[int]boundary.Marker, len(markers))
	for _, m := range markers {
		// The classifier emits at most one marker per play; a duplicate is
		// a programmer error upstream.
		if _, dup := markerAt[m.AfterIndex]; dup {
			return nil, Metrics{}, fmt.Errorf("partition: duplicate marker after play %d", m.AfterIndex)
		}
		markerAt[m.AfterIndex] = m
	}

	var moments []Moment
	prevAfter := timeline.Score{}

	var cur []timeline.Play
	meaningful := 0
	explicit := 0

	cut := func(reason boundary.Reason) {
		first, last := cur[0], cur[len(cur)-1]
		m := Moment{
			PlayIDs:        make([]int, len(cur)),
			Period:         first.Period,
			StartClock:     first.Clock,
			EndClock:       last.Clock,
			ScoreBefore:    prevAfter,
			ScoreAfter:     last.Score(),
			BoundaryReason: reason,
			ExplicitPlays:  explicit,
			HasSocial:      tl.HasSocialInRange(first.Index, last.Index),
		}
		for i, p := range cur {
			m.PlayIDs[i] = p.Index
		}
		moments = append(moments, m)
		prevAfter = m.ScoreAfter
		cur = cur[:0:0]
		meaningful = 0
		explicit = 0
	}

	for i, p := range tl.Plays {
		sig := sigs.Plays[i]
		cur = append(cur, p)
		if boundary.IsExplicit(p, sig) {
			explicit++
			meaningful++
		} else if sig.ScoringPlay {
			meaningful++
		}

		m, ok := markerAt[p.Index]
		switch {
		case ok && m.Kind == boundary.Hard:
			cut(m.Reason)
		case ok && meaningful >= b.MinMeaningfulEvents:
			cut(m.Reason)
		case explicit >= b.MaxExplicitPlays:
			// The classifier escalates to a hard cut well before this, but
			// no marker stream may push a moment past the explicit budget.
			cut(boundary.ReasonExplicitOverflow)
		case len(cur) >= b.HardCapPlays:
			// Same backstop for the play-count budget.
			cut(boundary.ReasonAbsoluteMax)
		}
	}
	if len(cur) > 0 {
		cut(boundary.ReasonPeriodBoundary)
	}

	return moments, Summarize(moments), nil
}
