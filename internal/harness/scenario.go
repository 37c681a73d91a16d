package harness

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// Scenario is one end-to-end pipeline conformance case.
type Scenario struct {
	// Name uniquely identifies the scenario; it doubles as the golden
	// snapshot name.
	Name string `yaml:"name"`

	// Description explains what the scenario validates.
	Description string `yaml:"description,omitempty"`

	// Leagues is inline CUE rulebook source. Empty uses the stock nba
	// rulebook.
	Leagues string `yaml:"leagues,omitempty"`

	// Game describes the input timeline.
	Game GameSpec `yaml:"game"`

	// Options control the run.
	Options RunSpec `yaml:"options,omitempty"`

	// Expect describes the required outcome.
	Expect Expectations `yaml:"expect"`

	// Golden snapshots the partition/compaction summary when true.
	Golden bool `yaml:"golden,omitempty"`
}

// GameSpec builds the input document, either step by step or verbatim.
type GameSpec struct {
	ID       string `yaml:"id"`
	League   string `yaml:"league,omitempty"`
	HomeTeam string `yaml:"home_team,omitempty"`
	AwayTeam string `yaml:"away_team,omitempty"`

	// Plays are builder steps, applied in order.
	Plays []PlayStep `yaml:"plays,omitempty"`

	// Doc is a raw JSON document used verbatim instead of Plays. For
	// scenarios exercising structural rejection.
	Doc string `yaml:"doc,omitempty"`
}

// PlayStep is one builder directive. Exactly one field may be set.
type PlayStep struct {
	Score  *ScoreStep  `yaml:"score,omitempty"`
	Quiet  int         `yaml:"quiet,omitempty"`
	Period int         `yaml:"period,omitempty"`
	Play   string      `yaml:"play,omitempty"`
	Clock  *int        `yaml:"clock,omitempty"`
	Social *SocialStep `yaml:"social,omitempty"`
}

// ScoreStep appends a scoring play.
type ScoreStep struct {
	Side   string `yaml:"side"` // HOME | AWAY
	Points int    `yaml:"points"`
	Player string `yaml:"player,omitempty"`
}

// SocialStep anchors a social post after the most recent play.
type SocialStep struct {
	Handle string `yaml:"handle"`
	Text   string `yaml:"text"`
}

// RunSpec controls how the pipeline runs over the game.
type RunSpec struct {
	Trigger   string `yaml:"trigger,omitempty"`
	AutoChain bool   `yaml:"auto_chain,omitempty"`

	// TargetWords overrides the narrative length target.
	TargetWords int `yaml:"target_words,omitempty"`

	// Narrative forces a fixed-text renderer instead of the template
	// renderer. The way to provoke contract violations on demand.
	Narrative string `yaml:"narrative,omitempty"`
}

// Expectations describe the required outcome of a run.
type Expectations struct {
	// Error is the expected stage error code; empty means the run must
	// succeed.
	Error string `yaml:"error,omitempty"`

	// Stages must appear as an ordered subsequence of the ledger.
	Stages []StageExpect `yaml:"stages,omitempty"`

	// Moments is the expected moment count (0 skips the check; a valid
	// game always produces at least one moment).
	Moments int `yaml:"moments,omitempty"`

	// Version is the expected published version number (0 skips).
	Version int `yaml:"version,omitempty"`

	// Collapsed is the expected number of collapsed compact groups.
	Collapsed *int `yaml:"collapsed,omitempty"`

	// Violations are the expected contract violation codes, in report
	// order.
	Violations []string `yaml:"violations,omitempty"`
}

// StageExpect matches one ledger row.
type StageExpect struct {
	Stage  string `yaml:"stage"`
	Status string `yaml:"status"`
	Code   string `yaml:"code,omitempty"`
}

// LoadScenario reads and validates a single scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("harness: read scenario: %w", err)
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("harness: parse %s: %w", path, err)
	}
	if err := sc.validate(); err != nil {
		return nil, fmt.Errorf("harness: %s: %w", path, err)
	}
	return &sc, nil
}

// LoadScenarios reads every *.yaml scenario in dir, sorted by filename.
func LoadScenarios(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("harness: glob scenarios: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("harness: no scenarios in %s", dir)
	}
	sort.Strings(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	seen := map[string]bool{}
	for _, p := range paths {
		sc, err := LoadScenario(p)
		if err != nil {
			return nil, err
		}
		if seen[sc.Name] {
			return nil, fmt.Errorf("harness: duplicate scenario name %q", sc.Name)
		}
		seen[sc.Name] = true
		scenarios = append(scenarios, sc)
	}
	return scenarios, nil
}

func (s *Scenario) validate() error {
	if s.Name == "" {
		return fmt.Errorf("scenario has no name")
	}
	if s.Game.Doc != "" {
		if len(s.Game.Plays) > 0 {
			return fmt.Errorf("scenario %q sets both game.doc and game.plays", s.Name)
		}
		return nil
	}
	if s.Game.ID == "" {
		return fmt.Errorf("scenario %q has no game id", s.Name)
	}
	if len(s.Game.Plays) == 0 {
		return fmt.Errorf("scenario %q has no plays", s.Name)
	}
	for i, step := range s.Game.Plays {
		if err := step.validate(); err != nil {
			return fmt.Errorf("scenario %q play %d: %w", s.Name, i, err)
		}
	}
	for _, se := range s.Expect.Stages {
		if se.Stage == "" || se.Status == "" {
			return fmt.Errorf("scenario %q has a stage expectation missing stage or status", s.Name)
		}
	}
	return nil
}

func (p *PlayStep) validate() error {
	set := 0
	if p.Score != nil {
		set++
		if p.Score.Side != "HOME" && p.Score.Side != "AWAY" {
			return fmt.Errorf("score side must be HOME or AWAY, got %q", p.Score.Side)
		}
		if p.Score.Points <= 0 {
			return fmt.Errorf("score points must be positive, got %d", p.Score.Points)
		}
	}
	if p.Quiet > 0 {
		set++
	}
	if p.Period > 0 {
		set++
	}
	if p.Play != "" {
		set++
	}
	if p.Clock != nil {
		set++
	}
	if p.Social != nil {
		set++
	}
	if set != 1 {
		return fmt.Errorf("exactly one directive per step, got %d", set)
	}
	return nil
}
