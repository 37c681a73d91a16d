package signal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rallycap/moments/internal/testutil"
)

func testDeriver(t *testing.T) *Deriver {
	t.Helper()
	d, err := NewDeriver(Config{RunThreshold: 8, LeadTiers: []int{5, 10, 15}})
	require.NoError(t, err)
	return d
}

func TestNewDeriver_RequiresLeadTiers(t *testing.T) {
	_, err := NewDeriver(Config{RunThreshold: 8})
	require.Error(t, err, "an empty ladder must be rejected, never defaulted")
	assert.Contains(t, err.Error(), "no default ladder")
}

func TestNewDeriver_RejectsBadLadders(t *testing.T) {
	cases := []struct {
		name  string
		tiers []int
	}{
		{"descending", []int{10, 5}},
		{"duplicate", []int{5, 5, 10}},
		{"zero", []int{0, 5}},
		{"negative", []int{-3, 5}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewDeriver(Config{RunThreshold: 8, LeadTiers: tc.tiers})
			assert.Error(t, err)
		})
	}
}

func TestNewDeriver_RejectsNonPositiveRunThreshold(t *testing.T) {
	_, err := NewDeriver(Config{RunThreshold: 0, LeadTiers: []int{5}})
	assert.Error(t, err)
}

func TestDerive_EmptyWindow(t *testing.T) {
	d := testDeriver(t)
	_, err := d.Derive(nil)
	assert.Error(t, err)
}

func TestDerive_LeadChangeIsStrictFlip(t *testing.T) {
	// HOME 2-0, tie 2-2, AWAY 2-4, tie 4-4, HOME 6-4.
	tl := testutil.NewGame("g1").
		Score(testutil.Home, 2).
		Score(testutil.Away, 2).
		Score(testutil.Away, 2).
		Score(testutil.Home, 2).
		Score(testutil.Home, 2).
		Build()

	d := testDeriver(t)
	sigs, err := d.Derive(tl.Plays)
	require.NoError(t, err)

	var changes []int
	for _, s := range sigs.Plays {
		if s.LeadChange {
			changes = append(changes, s.Index)
		}
	}
	// Every transition passes through a tie, so no strict flip ever occurs.
	assert.Empty(t, changes, "tie transitions must not count as lead changes")
}

func TestDerive_StrictFlipWithoutTie(t *testing.T) {
	// HOME 2-0, then AWAY scores 3: 2-3 is a direct HOME->AWAY flip.
	tl := testutil.NewGame("g1").
		Score(testutil.Home, 2).
		Score(testutil.Away, 3).
		Build()

	d := testDeriver(t)
	sigs, err := d.Derive(tl.Plays)
	require.NoError(t, err)

	require.Len(t, sigs.Plays, 2)
	assert.False(t, sigs.Plays[0].LeadChange, "first play of a window never flags a change")
	assert.True(t, sigs.Plays[1].LeadChange)
	assert.Equal(t, LeadAway, sigs.Plays[1].Lead)
}

func TestDerive_MidWindowSeeding(t *testing.T) {
	// A window starting mid-game at 50-48: the first play must not be
	// credited with 50 points.
	d := testDeriver(t)
	tl := testutil.NewGame("g1").
		Score(testutil.Home, 2).
		Score(testutil.Home, 2).
		Build()
	tl.Plays[0].ScoreHome = 50
	tl.Plays[0].ScoreAway = 48
	tl.Plays[1].ScoreHome = 52
	tl.Plays[1].ScoreAway = 48

	sigs, err := d.Derive(tl.Plays)
	require.NoError(t, err)

	first := sigs.Plays[0]
	assert.Zero(t, first.PointsHome)
	assert.Zero(t, first.PointsAway)
	assert.True(t, first.ScoringPlay, "non-zero running score marks the seed play as scoring")
	assert.Equal(t, LeadHome, first.Lead)

	second := sigs.Plays[1]
	assert.Equal(t, 2, second.PointsHome)
	assert.Zero(t, second.PointsAway)
}

func TestDerive_ScoreDecreaseRejected(t *testing.T) {
	tl := testutil.NewGame("g1").
		Score(testutil.Home, 2).
		Score(testutil.Home, 2).
		Build()
	tl.Plays[1].ScoreHome = 0

	d := testDeriver(t)
	_, err := d.Derive(tl.Plays)
	assert.Error(t, err)
}

func TestDerive_QualifyingRun(t *testing.T) {
	// Away leads 0-5, then home answers with an unanswered 8-0 stretch to
	// take and extend the lead.
	tl := testutil.NewGame("g1").
		Score(testutil.Away, 3).
		Score(testutil.Away, 2).
		Score(testutil.Home, 3).
		Quiet(2).
		Score(testutil.Home, 3).
		Score(testutil.Home, 2).
		Build()

	d := testDeriver(t)
	sigs, err := d.Derive(tl.Plays)
	require.NoError(t, err)

	require.Len(t, sigs.Runs, 2)

	away := sigs.Runs[0]
	assert.Equal(t, SideAway, away.Side)
	assert.Equal(t, 5, away.Points)
	assert.False(t, away.IsQualifying(8), "a 5-0 run that changed nothing is not a beat")

	home := sigs.Runs[1]
	assert.Equal(t, SideHome, home.Side)
	assert.Equal(t, 8, home.Points)
	assert.True(t, home.CausedLeadChange)
	assert.True(t, home.IsQualifying(8))
}

func TestDerive_RunResetsWhenOpponentScores(t *testing.T) {
	tl := testutil.NewGame("g1").
		Score(testutil.Home, 2).
		Score(testutil.Home, 2).
		Score(testutil.Away, 2).
		Build()

	d := testDeriver(t)
	sigs, err := d.Derive(tl.Plays)
	require.NoError(t, err)

	require.Len(t, sigs.Runs, 2)
	assert.Equal(t, 4, sigs.Runs[0].Points)
	assert.Equal(t, SideHome, sigs.Runs[0].Side)
	assert.Equal(t, 2, sigs.Runs[1].Points)
	assert.Equal(t, SideAway, sigs.Runs[1].Side)
}

func TestDerive_TierCrossings(t *testing.T) {
	// Home margin walks 3, 6, 9, 11: crossings at the 5 and 10 thresholds.
	tl := testutil.NewGame("g1").
		Score(testutil.Home, 3).
		Score(testutil.Home, 3).
		Score(testutil.Home, 3).
		Score(testutil.Home, 2).
		Build()

	d := testDeriver(t)
	sigs, err := d.Derive(tl.Plays)
	require.NoError(t, err)

	tiers := make([]int, len(sigs.Plays))
	for i, s := range sigs.Plays {
		tiers[i] = s.Tier
	}
	assert.Equal(t, []int{0, 1, 1, 2}, tiers)
	assert.True(t, sigs.Plays[1].TierCrossing)
	assert.False(t, sigs.Plays[2].TierCrossing)
	assert.True(t, sigs.Plays[3].TierCrossing)
}

func TestDerive_TierIsSignedForAwayLeads(t *testing.T) {
	tl := testutil.NewGame("g1").
		Score(testutil.Away, 3).
		Score(testutil.Away, 3).
		Build()

	d := testDeriver(t)
	sigs, err := d.Derive(tl.Plays)
	require.NoError(t, err)
	assert.Equal(t, -1, sigs.Plays[1].Tier)
}

func TestForIndex(t *testing.T) {
	tl := testutil.NewGame("g1").Score(testutil.Home, 2).Build()
	d := testDeriver(t)
	sigs, err := d.Derive(tl.Plays)
	require.NoError(t, err)

	assert.NotNil(t, sigs.ForIndex(0))
	assert.Nil(t, sigs.ForIndex(99))
}
