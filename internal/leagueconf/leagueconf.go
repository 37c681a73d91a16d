// Package leagueconf loads per-league rulebooks (lead-ladder tiers,
// run thresholds, compact-mode excitement tiers, period-label formats)
// from CUE files validated against an embedded schema.
//
// The schema makes the two threshold lists required with no defaults. A
// deployment that forgets a league's ladder fails at load time, not with a
// silently wrong partition.
package leagueconf

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
)

//go:embed schema.cue
var schemaCUE string

// League is one league's rulebook.
type League struct {
	Key               string       `json:"key"`
	LeadTiers         []int        `json:"lead_tiers"`
	RunThreshold      int          `json:"run_threshold"`
	ExcitementTiers   []float64    `json:"excitement_tiers"`
	RegulationPeriods int          `json:"regulation_periods"`
	PeriodLabels      PeriodLabels `json:"period_labels"`
}

// PeriodLabels holds display-only period formatting rules.
type PeriodLabels struct {
	Regulation string `json:"regulation"`
	Overtime   string `json:"overtime"`
}

// FormatPeriod renders a display label for a period number. Display only;
// no pipeline logic depends on the result.
func (l *League) FormatPeriod(period int) string {
	if period > l.RegulationPeriods {
		return fmt.Sprintf(l.PeriodLabels.Overtime, period-l.RegulationPeriods)
	}
	return fmt.Sprintf(l.PeriodLabels.Regulation, period)
}

// Registry holds the loaded rulebooks.
type Registry struct {
	leagues map[string]*League
}

// Get returns the rulebook for a league key (case-insensitive).
func (r *Registry) Get(key string) (*League, error) {
	l, ok := r.leagues[strings.ToLower(key)]
	if !ok {
		return nil, fmt.Errorf("leagueconf: no rulebook for league %q", key)
	}
	return l, nil
}

// Keys returns the configured league keys, sorted.
func (r *Registry) Keys() []string {
	keys := make([]string, 0, len(r.leagues))
	for k := range r.leagues {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Load reads every CUE file in dir, unifies the result with the embedded
// schema, and decodes the rulebooks. All constraint failures surface as one
// error; a half-valid directory never half-loads.
func Load(dir string) (*Registry, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("leagueconf: embedded schema: %w", err)
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, fmt.Errorf("leagueconf: no CUE files in %s", dir)
	}
	var merged cue.Value = schema
	for _, inst := range instances {
		if inst.Err != nil {
			return nil, fmt.Errorf("leagueconf: load %s: %w", dir, inst.Err)
		}
		v := ctx.BuildInstance(inst)
		if err := v.Err(); err != nil {
			return nil, fmt.Errorf("leagueconf: build %s: %w", dir, err)
		}
		merged = merged.Unify(v)
	}
	if err := merged.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("leagueconf: %s violates the rulebook schema: %w", dir, err)
	}

	return decode(merged)
}

// LoadString builds a registry from inline CUE source. Test hook, also
// handy for embedded deployments with a single static rulebook.
func LoadString(src string) (*Registry, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("leagueconf: embedded schema: %w", err)
	}
	v := ctx.CompileString(src, cue.Filename("leagues.cue"))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("leagueconf: %w", err)
	}
	merged := schema.Unify(v)
	if err := merged.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("leagueconf: rulebook schema violation: %w", err)
	}

	return decode(merged)
}

func decode(v cue.Value) (*Registry, error) {
	leaguesVal := v.LookupPath(cue.ParsePath("leagues"))
	if !leaguesVal.Exists() {
		return nil, fmt.Errorf("leagueconf: no leagues declared")
	}

	reg := &Registry{leagues: make(map[string]*League)}
	iter, err := leaguesVal.Fields()
	if err != nil {
		return nil, fmt.Errorf("leagueconf: iterate leagues: %w", err)
	}
	for iter.Next() {
		key := strings.ToLower(iter.Selector().Unquoted())
		var l League
		if err := iter.Value().Decode(&l); err != nil {
			return nil, fmt.Errorf("leagueconf: decode league %q: %w", key, err)
		}
		l.Key = key
		if err := checkLeague(&l); err != nil {
			return nil, err
		}
		reg.leagues[key] = &l
	}
	if len(reg.leagues) == 0 {
		return nil, fmt.Errorf("leagueconf: no leagues declared")
	}
	return reg, nil
}

// checkLeague enforces the ordering constraints CUE's schema cannot
// express concisely.
func checkLeague(l *League) error {
	for i := 1; i < len(l.LeadTiers); i++ {
		if l.LeadTiers[i] <= l.LeadTiers[i-1] {
			return fmt.Errorf("leagueconf: league %q lead_tiers not strictly ascending", l.Key)
		}
	}
	for i := 1; i < len(l.ExcitementTiers); i++ {
		if l.ExcitementTiers[i] <= l.ExcitementTiers[i-1] {
			return fmt.Errorf("leagueconf: league %q excitement_tiers not strictly ascending", l.Key)
		}
	}
	return nil
}
