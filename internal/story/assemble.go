// Package story assembles validated moments into the final immutable
// StoryOutput.
//
// Assembly is a pure function and a gatekeeper: it refuses, with a typed
// AssemblyError, any input that is empty, carries a moment without
// narrative, or overlaps play ids across moments. It never repairs,
// reorders beyond its deterministic sort, or returns a partial result.
package story

import (
	"errors"
	"fmt"
	"sort"

	"github.com/rallycap/moments/internal/contract"
	"github.com/rallycap/moments/internal/partition"
)

// AssemblyError codes.
const (
	ErrCodeEmptyInput  = "EMPTY_INPUT"
	ErrCodeUnvalidated = "UNVALIDATED_INPUT"
)

// AssemblyError reports a refused assembly. Violations carries the
// individual contract breaches when the refusal came from validation.
type AssemblyError struct {
	Code       string
	Message    string
	Violations []contract.Violation
}

// Error implements the error interface.
func (e *AssemblyError) Error() string {
	if len(e.Violations) > 0 {
		return fmt.Sprintf("%s: %s (%d violations)", e.Code, e.Message, len(e.Violations))
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsAssemblyError reports whether err is (or wraps) an AssemblyError.
func IsAssemblyError(err error) bool {
	var ae *AssemblyError
	return errors.As(err, &ae)
}

// StoryOutput is the validated, ordered, immutable result of assembly.
// Moments returns a copy so callers cannot mutate the assembled order.
type StoryOutput struct {
	moments []partition.Moment
}

// Moments returns the ordered moments.
func (s *StoryOutput) Moments() []partition.Moment {
	out := make([]partition.Moment, len(s.moments))
	copy(out, s.moments)
	return out
}

// Len returns the number of moments.
func (s *StoryOutput) Len() int {
	return len(s.moments)
}

// Assemble validates narrative presence and play-id exclusivity, sorts the
// moments deterministically, and constructs the StoryOutput.
//
// Sort order: period ascending, start clock descending (more remaining time
// first), first play index ascending. A moment whose clock failed to parse
// counts as 0 seconds remaining and therefore sorts last within its period.
// That is a documented policy, not a repair.
func Assemble(moments []partition.Moment) (*StoryOutput, error) {
	if len(moments) == 0 {
		return nil, &AssemblyError{Code: ErrCodeEmptyInput, Message: "cannot assemble from empty list"}
	}

	var violations []contract.Violation
	violations = append(violations, contract.CheckNarrativePresence(moments)...)
	violations = append(violations, overlaps(moments)...)
	if len(violations) > 0 {
		return nil, &AssemblyError{
			Code:       ErrCodeUnvalidated,
			Message:    "refusing to assemble unvalidated moments",
			Violations: violations,
		}
	}

	ordered := make([]partition.Moment, len(moments))
	copy(ordered, moments)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := &ordered[i], &ordered[j]
		if a.Period != b.Period {
			return a.Period < b.Period
		}
		if a.StartClockSeconds() != b.StartClockSeconds() {
			return a.StartClockSeconds() > b.StartClockSeconds()
		}
		return a.FirstPlayID() < b.FirstPlayID()
	})

	return &StoryOutput{moments: ordered}, nil
}

// overlaps flags play ids claimed by more than one moment.
func overlaps(moments []partition.Moment) []contract.Violation {
	seen := make(map[int]bool)
	var out []contract.Violation
	for i := range moments {
		for _, id := range moments[i].PlayIDs {
			if seen[id] {
				out = append(out, contract.Violation{
					Code:        contract.CodePlayOverlap,
					Message:     fmt.Sprintf("play %d belongs to more than one moment", id),
					MomentIndex: i,
					PlayIndex:   id,
				})
				continue
			}
			seen[id] = true
		}
	}
	return out
}
