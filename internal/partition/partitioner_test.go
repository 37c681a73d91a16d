package partition_test

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rallycap/moments/internal/boundary"
	"github.com/rallycap/moments/internal/partition"
	"github.com/rallycap/moments/internal/signal"
	"github.com/rallycap/moments/internal/testutil"
	"github.com/rallycap/moments/internal/timeline"
)

func derive(t *testing.T, tl *timeline.Timeline) *signal.Signals {
	t.Helper()
	d, err := signal.NewDeriver(signal.Config{RunThreshold: 8, LeadTiers: []int{5, 10, 15}})
	require.NoError(t, err)
	sigs, err := d.Derive(tl.Plays)
	require.NoError(t, err)
	return sigs
}

func run(t *testing.T, tl *timeline.Timeline) ([]partition.Moment, partition.Metrics) {
	t.Helper()
	sigs := derive(t, tl)
	markers, err := boundary.Classify(tl.Plays, sigs, boundary.DefaultBudgets())
	require.NoError(t, err)
	moments, metrics, err := partition.Partition(tl, sigs, markers, boundary.DefaultBudgets())
	require.NoError(t, err)
	return moments, metrics
}

func TestPartition_TwoPlayGameIsOneMoment(t *testing.T) {
	// A scoring play emits a soft marker, but one meaningful event is
	// below the underpowered threshold, so the cut is declined and the
	// trailing close produces a single moment.
	tl := testutil.NewGame("g").
		Score(testutil.Home, 2).
		Quiet(1).
		Build()

	moments, _ := run(t, tl)
	require.Len(t, moments, 1)
	assert.Equal(t, []int{0, 1}, moments[0].PlayIDs)
	assert.Equal(t, boundary.ReasonPeriodBoundary, moments[0].BoundaryReason)
}

func TestPartition_HardMarkerCutsEvenWhenUnderpowered(t *testing.T) {
	tl := testutil.NewGame("g").
		Quiet(2).
		Period(2).
		Quiet(2).
		Build()

	moments, _ := run(t, tl)
	require.Len(t, moments, 2)
	assert.Equal(t, []int{0, 1}, moments[0].PlayIDs)
	assert.Equal(t, boundary.ReasonPeriodBoundary, moments[0].BoundaryReason)
	assert.Equal(t, []int{2, 3, 4}, moments[1].PlayIDs)
}

func TestPartition_ExplicitCeilingBindsWithoutMarkers(t *testing.T) {
	// Eight straight threes, but the marker stream carries none of the
	// classifier's escalation. The partitioner still refuses to grow a
	// moment past the explicit budget.
	b := testutil.NewGame("g")
	for i := 0; i < 8; i++ {
		b.Score(testutil.Home, 3)
	}
	tl := b.Build()
	sigs := derive(t, tl)

	budgets := boundary.DefaultBudgets()
	moments, _, err := partition.Partition(tl, sigs, nil, budgets)
	require.NoError(t, err)

	require.Len(t, moments, 2)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, moments[0].PlayIDs)
	assert.Equal(t, boundary.ReasonExplicitOverflow, moments[0].BoundaryReason)
	assert.Equal(t, budgets.MaxExplicitPlays, moments[0].ExplicitPlays)
	for _, m := range moments {
		assert.LessOrEqual(t, m.ExplicitPlays, budgets.MaxExplicitPlays)
	}
}

func TestPartition_ScoreChaining(t *testing.T) {
	tl := testutil.NewGame("g").
		Score(testutil.Home, 2).
		Score(testutil.Away, 3).
		Quiet(1).
		Score(testutil.Home, 2).
		Score(testutil.Home, 2).
		Build()

	moments, _ := run(t, tl)
	require.True(t, len(moments) >= 2)

	assert.Equal(t, timeline.Score{}, moments[0].ScoreBefore, "the first moment enters at 0-0")
	for i := 1; i < len(moments); i++ {
		assert.Equal(t, moments[i-1].ScoreAfter, moments[i].ScoreBefore,
			"moment %d must enter at the previous moment's exit score", i)
	}
	last := moments[len(moments)-1]
	assert.Equal(t, tl.FinalScore(), last.ScoreAfter)
}

func TestPartition_PlayCoverage(t *testing.T) {
	tl := testutil.NewGame("g").
		Score(testutil.Home, 2).
		Score(testutil.Away, 3).
		Quiet(4).
		Score(testutil.Home, 3).
		Period(2).
		Quiet(2).
		Score(testutil.Away, 2).
		Build()

	moments, metrics := run(t, tl)

	var covered []int
	for _, m := range moments {
		covered = append(covered, m.PlayIDs...)
	}
	want := make([]int, len(tl.Plays))
	for i := range tl.Plays {
		want[i] = tl.Plays[i].Index
	}
	assert.Equal(t, want, covered, "every play appears exactly once, in order")
	assert.Equal(t, len(tl.Plays), metrics.TotalPlays)
	assert.Equal(t, len(moments), metrics.MomentCount)
}

func TestPartition_SocialFlagged(t *testing.T) {
	tl := testutil.NewGame("g").
		Score(testutil.Home, 2).
		Social("@fan", "let's go").
		Score(testutil.Away, 3).
		Build()

	moments, metrics := run(t, tl)
	found := false
	for _, m := range moments {
		if m.HasSocial {
			found = true
		}
	}
	assert.True(t, found)
	assert.Equal(t, 1, metrics.SocialMoments)
}

func TestPartition_Deterministic(t *testing.T) {
	tl := testutil.NewGame("g").
		Score(testutil.Home, 3).
		Quiet(3).
		Score(testutil.Away, 2).
		Score(testutil.Away, 3).
		Quiet(2).
		Score(testutil.Home, 2).
		Build()

	a, _ := run(t, tl)
	b, _ := run(t, tl)
	assert.Equal(t, a, b, "same input, same moments, every time")
}

func TestPartition_EmptyTimelineRejected(t *testing.T) {
	tl := testutil.NewGame("g").Quiet(1).Build()
	sigs := derive(t, tl)
	tl.Plays = nil
	_, _, err := partition.Partition(tl, sigs, nil, boundary.DefaultBudgets())
	assert.Error(t, err)
}

func TestPartition_DuplicateMarkerRejected(t *testing.T) {
	tl := testutil.NewGame("g").Quiet(2).Build()
	sigs := derive(t, tl)
	markers := []boundary.Marker{
		{AfterIndex: 0, Kind: boundary.Soft, Reason: boundary.ReasonStoppage},
		{AfterIndex: 0, Kind: boundary.Hard, Reason: boundary.ReasonLeadChange},
	}
	_, _, err := partition.Partition(tl, sigs, markers, boundary.DefaultBudgets())
	assert.Error(t, err)
}

func TestPartition_Golden(t *testing.T) {
	tl := testutil.NewGame("g").
		Score(testutil.Home, 2).
		Score(testutil.Away, 3).
		Quiet(1).
		Score(testutil.Home, 2).
		Build()

	moments, _ := run(t, tl)
	out, err := json.MarshalIndent(moments, "", "  ")
	require.NoError(t, err)

	g := goldie.New(t)
	g.Assert(t, "partition_moments", out)
}
