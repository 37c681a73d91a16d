package pipeline

import "fmt"

// Stage identifies one step of the generation process. The values are
// persisted in the ledger; never renumber or rename.
type Stage string

const (
	StageNormalizePBP    Stage = "NORMALIZE_PBP"
	StageDeriveSignals   Stage = "DERIVE_SIGNALS"
	StageGenerateMoments Stage = "GENERATE_MOMENTS"
	StageValidateMoments Stage = "VALIDATE_MOMENTS"
	StageFinalizeMoments Stage = "FINALIZE_MOMENTS"
)

// StageOrder is the fixed execution order.
var StageOrder = []Stage{
	StageNormalizePBP,
	StageDeriveSignals,
	StageGenerateMoments,
	StageValidateMoments,
	StageFinalizeMoments,
}

// ParseStage maps a persisted string back to a Stage.
func ParseStage(s string) (Stage, error) {
	for _, st := range StageOrder {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("pipeline: unknown stage %q", s)
}

// Status is a stage's lifecycle state.
type Status string

const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// Terminal reports whether a status freezes its ledger row.
func (s Status) Terminal() bool {
	switch s {
	case StatusSuccess, StatusFailed, StatusSkipped:
		return true
	case StatusPending, StatusRunning:
		return false
	default:
		panic(fmt.Sprintf("pipeline: unknown status %q", string(s)))
	}
}
