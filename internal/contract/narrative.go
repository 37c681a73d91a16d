package contract

import (
	"regexp"
	"strings"

	"github.com/rallycap/moments/internal/partition"
)

// percentFigure matches percentage and efficiency claims. Play records
// carry no shooting splits, so any such figure is invented by the renderer.
var percentFigure = regexp.MustCompile(`\d+(\.\d+)?\s*(%|percent)|\befficiency\b`)

// properNoun matches a run of two or more capitalized words, the shape of
// a person or team name. Single capitalized words are skipped: sentence
// starts would drown the check in noise.
var properNoun = regexp.MustCompile(`\b[A-Z][a-z]+(?: [A-Z][a-z]+)+\b`)

// Spoiler phrasing forbidden before finalization. Matched case-insensitively.
var forbiddenPhrases = []string{
	"final score",
	"wins the game",
	"wins it",
	"game over",
	"seals the win",
	"clinches",
	"spoiler",
}

// Overtime claims checked against the period count.
var overtimeClaim = regexp.MustCompile(`(?i)\bover\s?time\b|\bOT\b`)

// winClaim captures "<Name> win/won/wins ..." assertions.
var winClaim = regexp.MustCompile(`([A-Z][A-Za-z ]*?)\s+(?:win|wins|won)\b`)

// CheckNarrativeFacts verifies that narrative text invents no stats, names
// no entities absent from the underlying plays, and contradicts no outcome
// the final score settles. The entity and outcome rules need the timeline
// and are skipped without one.
func CheckNarrativeFacts(moments []partition.Moment, opts Options) []Violation {
	var out []Violation
	for i := range moments {
		text := moments[i].Narrative
		if strings.TrimSpace(text) == "" {
			continue
		}
		if loc := percentFigure.FindString(text); loc != "" {
			out = append(out, violation(CodeStatInvention, i, -1,
				"narrative cites a figure absent from the plays: %q", loc))
		}
		if opts.Timeline != nil {
			out = append(out, checkEntities(text, i, moments[i], opts)...)
			out = append(out, checkOutcome(text, i, opts)...)
		}
	}
	return out
}

// checkEntities flags proper nouns that match no player, team, or social
// handle known to the moment's underlying data.
func checkEntities(text string, momentIndex int, m partition.Moment, opts Options) []Violation {
	known := knownEntities(m, opts)
	var out []Violation
	for _, name := range properNoun.FindAllString(text, -1) {
		if !knownName(known, name) {
			out = append(out, violation(CodeUnknownEntity, momentIndex, -1,
				"narrative names %q, which appears nowhere in the underlying plays", name))
		}
	}
	return out
}

// knownEntities collects the legitimate name vocabulary for a moment: the
// players on its plays, both team names, and social handles.
func knownEntities(m partition.Moment, opts Options) []string {
	tl := opts.Timeline
	names := []string{tl.HomeTeam, tl.AwayTeam}
	member := make(map[int]bool, len(m.PlayIDs))
	for _, id := range m.PlayIDs {
		member[id] = true
	}
	for _, p := range tl.Plays {
		if member[p.Index] && p.Player != "" {
			names = append(names, p.Player)
		}
	}
	for _, s := range tl.Social {
		if member[s.AfterIndex] {
			names = append(names, s.Handle)
		}
	}
	return names
}

func knownName(known []string, name string) bool {
	for _, k := range known {
		if k == "" {
			continue
		}
		if strings.EqualFold(k, name) || strings.Contains(strings.ToLower(k), strings.ToLower(name)) {
			return true
		}
	}
	return false
}

// checkOutcome flags outcome assertions the final score contradicts: a
// winner claim for the trailing side, or an overtime claim for a game that
// never left regulation.
func checkOutcome(text string, momentIndex int, opts Options) []Violation {
	tl := opts.Timeline
	final := tl.FinalScore()
	var out []Violation

	for _, match := range winClaim.FindAllStringSubmatch(text, -1) {
		subject := strings.TrimSpace(match[1])
		var loser string
		switch {
		case final.Home > final.Away:
			loser = tl.AwayTeam
		case final.Away > final.Home:
			loser = tl.HomeTeam
		default:
			continue // tied so far; no winner to contradict
		}
		if loser != "" && strings.Contains(strings.ToLower(loser), strings.ToLower(subject)) {
			out = append(out, violation(CodeOutcomeContradiction, momentIndex, -1,
				"narrative asserts %q won but the final score is %d-%d", subject, final.Home, final.Away))
		}
	}

	if opts.RegulationPeriods > 0 && overtimeClaim.MatchString(text) {
		maxPeriod := 0
		for _, p := range tl.Plays {
			if p.Period > maxPeriod {
				maxPeriod = p.Period
			}
		}
		if maxPeriod <= opts.RegulationPeriods {
			out = append(out, violation(CodeOutcomeContradiction, momentIndex, -1,
				"narrative asserts overtime but the game ended in period %d", maxPeriod))
		}
	}
	return out
}

// CheckForbiddenLanguage flags score-revealing or spoiler phrasing. Only
// runs pre-finalization; Validate skips it once Finalized is set.
func CheckForbiddenLanguage(moments []partition.Moment) []Violation {
	var out []Violation
	for i := range moments {
		lower := strings.ToLower(moments[i].Narrative)
		for _, phrase := range forbiddenPhrases {
			if strings.Contains(lower, phrase) {
				out = append(out, violation(CodeForbiddenPhrase, i, -1,
					"narrative contains forbidden phrase %q", phrase))
			}
		}
	}
	return out
}
