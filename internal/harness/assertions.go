package harness

import (
	"encoding/json"
	"fmt"

	"github.com/rallycap/moments/internal/pipeline"
)

// Check compares an outcome with its scenario's expectations and returns
// every mismatch. An empty slice means the scenario passed.
func Check(out *Outcome) []error {
	var errs []error
	expect := out.Scenario.Expect

	errs = append(errs, checkError(out, expect)...)
	errs = append(errs, checkStages(out, expect)...)

	if expect.Moments > 0 && len(out.Result.Moments) != expect.Moments {
		errs = append(errs, fmt.Errorf("expected %d moments, got %d", expect.Moments, len(out.Result.Moments)))
	}
	if expect.Version > 0 {
		switch {
		case out.Result.Version == nil:
			errs = append(errs, fmt.Errorf("expected version %d, nothing was published", expect.Version))
		case out.Result.Version.VersionNumber != expect.Version:
			errs = append(errs, fmt.Errorf("expected version %d, got %d", expect.Version, out.Result.Version.VersionNumber))
		}
	}
	if expect.Collapsed != nil {
		got, err := countCollapsed(out.Payload)
		if err != nil {
			errs = append(errs, err)
		} else if got != *expect.Collapsed {
			errs = append(errs, fmt.Errorf("expected %d collapsed groups, got %d", *expect.Collapsed, got))
		}
	}
	if len(expect.Violations) > 0 {
		errs = append(errs, checkViolations(out, expect.Violations)...)
	}
	return errs
}

func checkError(out *Outcome, expect Expectations) []error {
	if expect.Error == "" {
		if out.RunErr != nil {
			return []error{fmt.Errorf("expected success, run failed: %v", out.RunErr)}
		}
		return nil
	}
	if out.RunErr == nil {
		return []error{fmt.Errorf("expected error %s, run succeeded", expect.Error)}
	}
	se, ok := pipeline.IsStageError(out.RunErr)
	if !ok {
		return []error{fmt.Errorf("expected error %s, got untyped error: %v", expect.Error, out.RunErr)}
	}
	if string(se.Code) != expect.Error {
		return []error{fmt.Errorf("expected error %s, got %s", expect.Error, se.Code)}
	}
	return nil
}

// checkStages verifies the expected rows appear in the ledger as an
// ordered subsequence.
func checkStages(out *Outcome, expect Expectations) []error {
	var errs []error
	i := 0
	for _, want := range expect.Stages {
		found := false
		for ; i < len(out.Rows); i++ {
			row := out.Rows[i]
			if row.Stage == want.Stage && row.Status == want.Status &&
				(want.Code == "" || row.ErrorCode == want.Code) {
				found = true
				i++
				break
			}
		}
		if !found {
			errs = append(errs, fmt.Errorf("ledger has no %s row with status %s (code %q) after position %d",
				want.Stage, want.Status, want.Code, i))
		}
	}
	return errs
}

func checkViolations(out *Outcome, want []string) []error {
	got := make([]string, len(out.Result.Violations))
	for i, v := range out.Result.Violations {
		got[i] = v.Code
	}
	if len(got) != len(want) {
		return []error{fmt.Errorf("expected violations %v, got %v", want, got)}
	}
	for i := range want {
		if got[i] != want[i] {
			return []error{fmt.Errorf("expected violations %v, got %v", want, got)}
		}
	}
	return nil
}

// countCollapsed counts collapsed groups in a published payload.
func countCollapsed(payload []byte) (int, error) {
	if payload == nil {
		return 0, fmt.Errorf("collapsed-group expectation needs a published payload")
	}
	var doc struct {
		Compact []struct {
			Collapsed bool `json:"collapsed"`
		} `json:"compact"`
	}
	if err := json.Unmarshal(payload, &doc); err != nil {
		return 0, fmt.Errorf("parse payload: %w", err)
	}
	n := 0
	for _, g := range doc.Compact {
		if g.Collapsed {
			n++
		}
	}
	return n, nil
}
