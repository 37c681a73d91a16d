package partition

import (
	"sort"

	"github.com/rallycap/moments/internal/boundary"
)

// Metrics is the derived compression summary over a finished moment
// sequence. Never authoritative state: always recomputable from the moments
// themselves via Summarize.
type Metrics struct {
	TotalPlays      int                     `json:"total_plays"`
	MomentCount     int                     `json:"moment_count"`
	ExplicitPlays   int                     `json:"explicit_plays"`
	SocialMoments   int                     `json:"social_moments"`
	PlaysPerMoment  Percentiles             `json:"plays_per_moment"`
	ReasonHistogram map[boundary.Reason]int `json:"reason_histogram"`
}

// Percentiles summarizes a play-count distribution for dashboards.
type Percentiles struct {
	Min int `json:"min"`
	P50 int `json:"p50"`
	P90 int `json:"p90"`
	Max int `json:"max"`
}

// Summarize recomputes metrics from a moment sequence.
func Summarize(moments []Moment) Metrics {
	m := Metrics{ReasonHistogram: make(map[boundary.Reason]int)}
	if len(moments) == 0 {
		return m
	}

	sizes := make([]int, 0, len(moments))
	for i := range moments {
		mom := &moments[i]
		m.TotalPlays += len(mom.PlayIDs)
		m.ExplicitPlays += mom.ExplicitPlays
		if mom.HasSocial {
			m.SocialMoments++
		}
		m.ReasonHistogram[mom.BoundaryReason]++
		sizes = append(sizes, len(mom.PlayIDs))
	}
	m.MomentCount = len(moments)

	sort.Ints(sizes)
	m.PlaysPerMoment = Percentiles{
		Min: sizes[0],
		P50: sizes[(len(sizes)-1)/2],
		P90: sizes[(len(sizes)-1)*9/10],
		Max: sizes[len(sizes)-1],
	}
	return m
}
