package contract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rallycap/moments/internal/partition"
	"github.com/rallycap/moments/internal/timeline"
)

func narrativeTimeline() *timeline.Timeline {
	return &timeline.Timeline{
		GameID:   "g",
		HomeTeam: "Rivertown Hawks",
		AwayTeam: "Lakeside Comets",
		Plays: []timeline.Play{
			{Index: 0, Period: 1, PlayType: "shot_2pt", Player: "Dana Webb", ScoreHome: 2},
			{Index: 1, Period: 1, PlayType: "shot_3pt", ScoreHome: 2, ScoreAway: 3},
			{Index: 2, Period: 2, PlayType: "pass", ScoreHome: 2, ScoreAway: 3},
		},
		Social: []timeline.SocialPost{
			{AfterIndex: 0, Handle: "Hawk Talk", Text: "here we go"},
		},
	}
}

func narrativeOpts() Options {
	return Options{Timeline: narrativeTimeline(), RegulationPeriods: 4}
}

func momentsWithNarrative(text string) []partition.Moment {
	m := validMoments()
	m[0].Narrative = text
	return m
}

func TestCheckNarrativeFacts_StatInvention(t *testing.T) {
	for _, text := range []string{
		"they shot 64% in the stretch",
		"a 52.5 percent clip from deep",
		"unreal efficiency from the bench",
	} {
		got := codes(CheckNarrativeFacts(momentsWithNarrative(text), narrativeOpts()))
		assert.Contains(t, got, CodeStatInvention, "text %q", text)
	}
}

func TestCheckNarrativeFacts_KnownEntitiesPass(t *testing.T) {
	// Players on the moment's plays, team names, and social handles are
	// all legitimate vocabulary.
	text := "Dana Webb gets the Rivertown Hawks moving while Hawk Talk celebrates"
	violations := CheckNarrativeFacts(momentsWithNarrative(text), narrativeOpts())
	assert.Empty(t, violations)
}

func TestCheckNarrativeFacts_UnknownEntity(t *testing.T) {
	got := codes(CheckNarrativeFacts(momentsWithNarrative("a vintage Jordan Mayfield takeover"), narrativeOpts()))
	assert.Contains(t, got, CodeUnknownEntity)
}

func TestCheckNarrativeFacts_EntityFromAnotherMomentIsUnknown(t *testing.T) {
	// Dana Webb plays in moment 0 only; naming them in moment 1 is an
	// invention as far as that moment's plays are concerned.
	m := validMoments()
	m[1].Narrative = "Dana Webb keeps rolling"
	got := codes(CheckNarrativeFacts(m, narrativeOpts()))
	assert.Contains(t, got, CodeUnknownEntity)
}

func TestCheckNarrativeFacts_LoserWinClaim(t *testing.T) {
	// Final score is 2-3: the away side leads, so a home win claim is a
	// contradiction.
	got := codes(CheckNarrativeFacts(momentsWithNarrative("Rivertown Hawks win this one going away"), narrativeOpts()))
	assert.Contains(t, got, CodeOutcomeContradiction)
}

func TestCheckNarrativeFacts_WinnerWinClaimAllowed(t *testing.T) {
	violations := CheckNarrativeFacts(momentsWithNarrative("Lakeside Comets win the stretch"), narrativeOpts())
	assert.Empty(t, violations)
}

func TestCheckNarrativeFacts_OvertimeClaimInRegulationGame(t *testing.T) {
	// The game never leaves period 2 of a 4-period sport.
	for _, text := range []string{
		"this one is headed to overtime",
		"an OT classic in the making",
	} {
		got := codes(CheckNarrativeFacts(momentsWithNarrative(text), narrativeOpts()))
		assert.Contains(t, got, CodeOutcomeContradiction, "text %q", text)
	}
}

func TestCheckNarrativeFacts_OvertimeClaimAllowedPastRegulation(t *testing.T) {
	opts := narrativeOpts()
	opts.Timeline.Plays = append(opts.Timeline.Plays, timeline.Play{
		Index: 3, Period: 5, PlayType: "pass", ScoreHome: 2, ScoreAway: 3,
	})
	violations := CheckNarrativeFacts(momentsWithNarrative("overtime it is"), opts)
	assert.Empty(t, violations)
}

func TestCheckNarrativeFacts_SkippedWithoutTimeline(t *testing.T) {
	violations := CheckNarrativeFacts(momentsWithNarrative("a vintage Jordan Mayfield takeover"), Options{})
	assert.Empty(t, violations, "entity and outcome checks need the timeline")
}

func TestCheckNarrativeFacts_EmptyNarrativeSkipped(t *testing.T) {
	m := validMoments()
	m[0].Narrative = "   "
	m[1].Narrative = ""
	violations := CheckNarrativeFacts(m, narrativeOpts())
	require.Empty(t, violations, "presence is CheckNarrativePresence's job")
}
