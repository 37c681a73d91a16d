package harness

import (
	"fmt"

	"github.com/rallycap/moments/internal/payload"
	"github.com/rallycap/moments/internal/timeline"
)

// Principle is an invariant that must hold for every scenario outcome, no
// matter what the scenario itself asserts.
type Principle struct {
	Name  string
	Check func(*Outcome) error
}

// Principles returns the full invariant set.
func Principles() []Principle {
	return []Principle{
		{"terminal-ledger", checkTerminalLedger},
		{"monotonic-attempts", checkMonotonicAttempts},
		{"play-coverage", checkPlayCoverage},
		{"score-chaining", checkScoreChaining},
		{"payload-integrity", checkPayloadIntegrity},
	}
}

// checkTerminalLedger: once a run returns, no ledger row may be left
// pending or running.
func checkTerminalLedger(out *Outcome) error {
	for _, row := range out.Rows {
		switch row.Status {
		case "success", "failed", "skipped":
		default:
			return fmt.Errorf("row seq %d (%s attempt %d) left in status %q",
				row.Seq, row.Stage, row.Attempt, row.Status)
		}
	}
	return nil
}

// checkMonotonicAttempts: per stage, attempts count up from 1 without
// gaps, in insertion order.
func checkMonotonicAttempts(out *Outcome) error {
	last := map[string]int{}
	for _, row := range out.Rows {
		if row.Attempt != last[row.Stage]+1 {
			return fmt.Errorf("%s attempt %d follows attempt %d", row.Stage, row.Attempt, last[row.Stage])
		}
		last[row.Stage] = row.Attempt
	}
	return nil
}

// checkPlayCoverage: the final moments cover every normalized play exactly
// once, in index order.
func checkPlayCoverage(out *Outcome) error {
	if out.Timeline == nil || len(out.Result.Moments) == 0 {
		return nil
	}
	next := 0
	for _, m := range out.Result.Moments {
		for _, id := range m.PlayIDs {
			if id != next {
				return fmt.Errorf("expected play %d next, moment covers %d", next, id)
			}
			next++
		}
	}
	if next != len(out.Timeline.Plays) {
		return fmt.Errorf("moments cover %d of %d plays", next, len(out.Timeline.Plays))
	}
	return nil
}

// checkScoreChaining: every moment enters at the previous moment's exit
// score, starting from 0-0 and ending at the final score.
func checkScoreChaining(out *Outcome) error {
	moments := out.Result.Moments
	if out.Timeline == nil || len(moments) == 0 {
		return nil
	}
	prev := timeline.Score{}
	for i, m := range moments {
		if m.ScoreBefore != prev {
			return fmt.Errorf("moment %d enters at %d-%d, previous exits at %d-%d",
				i, m.ScoreBefore.Home, m.ScoreBefore.Away, prev.Home, prev.Away)
		}
		prev = m.ScoreAfter
	}
	if final := out.Timeline.FinalScore(); prev != final {
		return fmt.Errorf("last moment exits at %d-%d, final score is %d-%d",
			prev.Home, prev.Away, final.Home, final.Away)
	}
	return nil
}

// checkPayloadIntegrity: a published version's hash matches its content
// and the version is active.
func checkPayloadIntegrity(out *Outcome) error {
	v := out.Result.Version
	if v == nil {
		return nil
	}
	if got := payload.Hash(out.Payload); got != v.PayloadHash {
		return fmt.Errorf("stored hash %s does not match content hash %s", v.PayloadHash, got)
	}
	if !v.IsActive {
		return fmt.Errorf("freshly published version %d is not active", v.VersionNumber)
	}
	return nil
}
