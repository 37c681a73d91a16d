package contract

import "fmt"

// Violation codes. Stable strings: they are persisted in stage output and
// surfaced verbatim to the admin UI.
const (
	CodeMomentOrder          = "MOMENT_ORDER"
	CodeEmptyMoment          = "EMPTY_MOMENT"
	CodePlayOverlap          = "PLAY_OVERLAP"
	CodePlayGap              = "PLAY_GAP"
	CodeScoreDecrease        = "SCORE_DECREASE"
	CodeScoreContinuityBreak = "SCORE_CONTINUITY_BREAK"
	CodeNarrativeMissing     = "NARRATIVE_MISSING"
	CodeStatInvention        = "STAT_INVENTION"
	CodeUnknownEntity        = "UNKNOWN_ENTITY"
	CodeOutcomeContradiction = "OUTCOME_CONTRADICTION"
	CodeWordCountOutOfRange  = "WORD_COUNT_OUT_OF_RANGE"
	CodeForbiddenPhrase      = "FORBIDDEN_PHRASE"
)

// Violation is one contract breach. MomentIndex is the position of the
// offending moment in the sequence (-1 when not moment-specific); PlayIndex
// is the offending play id (-1 when not play-specific).
type Violation struct {
	Code        string `json:"code"`
	Message     string `json:"message"`
	MomentIndex int    `json:"moment_index"`
	PlayIndex   int    `json:"play_index"`
}

// String implements fmt.Stringer.
func (v Violation) String() string {
	switch {
	case v.MomentIndex >= 0 && v.PlayIndex >= 0:
		return fmt.Sprintf("[%s] moment %d, play %d: %s", v.Code, v.MomentIndex, v.PlayIndex, v.Message)
	case v.MomentIndex >= 0:
		return fmt.Sprintf("[%s] moment %d: %s", v.Code, v.MomentIndex, v.Message)
	default:
		return fmt.Sprintf("[%s] %s", v.Code, v.Message)
	}
}

func violation(code string, momentIndex, playIndex int, format string, args ...any) Violation {
	return Violation{
		Code:        code,
		Message:     fmt.Sprintf(format, args...),
		MomentIndex: momentIndex,
		PlayIndex:   playIndex,
	}
}
