package harness

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rallycap/moments/internal/leagueconf"
	"github.com/rallycap/moments/internal/pipeline"
	"github.com/rallycap/moments/internal/render"
	"github.com/rallycap/moments/internal/store"
	"github.com/rallycap/moments/internal/testutil"
	"github.com/rallycap/moments/internal/timeline"
)

// stockLeagues is the rulebook used when a scenario does not carry its own.
const stockLeagues = `
leagues: nba: {
	lead_tiers: [3, 6, 10]
	run_threshold: 6
	excitement_tiers: [2.0, 4.0, 6.0]
	regulation_periods: 4
	period_labels: {
		regulation: "Q%d"
		overtime:   "OT%d"
	}
}
`

// Outcome is everything a scenario run produced, for assertion and
// principle checks.
type Outcome struct {
	Scenario *Scenario

	// Result and RunErr come straight from the orchestrator.
	Result *pipeline.Result
	RunErr error

	// Rows is the run's full stage ledger, in insertion order.
	Rows []store.StageRow

	// Timeline is the normalized input, nil when normalization rejected
	// the document.
	Timeline *timeline.Timeline

	// Payload is the published version's canonical content, nil when the
	// run did not finalize.
	Payload []byte
}

// Run executes one scenario against a throwaway database and returns the
// outcome. An error here means the harness itself could not run; failures
// of the pipeline land in Outcome.RunErr.
func Run(ctx context.Context, sc *Scenario) (*Outcome, error) {
	dir, err := os.MkdirTemp("", "harness-*")
	if err != nil {
		return nil, fmt.Errorf("harness: temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	st, err := store.Open(filepath.Join(dir, "moments.db"))
	if err != nil {
		return nil, fmt.Errorf("harness: open store: %w", err)
	}
	defer st.Close()

	src := sc.Leagues
	if src == "" {
		src = stockLeagues
	}
	leagues, err := leagueconf.LoadString(src)
	if err != nil {
		return nil, fmt.Errorf("harness: scenario %q leagues: %w", sc.Name, err)
	}

	var renderer pipeline.Renderer = render.NewTemplate()
	if sc.Options.Narrative != "" {
		renderer = fixedRenderer(sc.Options.Narrative)
	}

	orch, err := pipeline.New(pipeline.Config{
		Store:       st,
		Renderer:    renderer,
		Leagues:     leagues,
		TargetWords: sc.Options.TargetWords,
	})
	if err != nil {
		return nil, fmt.Errorf("harness: scenario %q: %w", sc.Name, err)
	}

	doc, err := buildDoc(&sc.Game)
	if err != nil {
		return nil, fmt.Errorf("harness: scenario %q: %w", sc.Name, err)
	}

	out := &Outcome{Scenario: sc}
	out.Result, out.RunErr = orch.ProcessGame(ctx, doc, pipeline.RunOptions{
		Trigger:   sc.Options.Trigger,
		AutoChain: sc.Options.AutoChain,
	})
	if out.Result == nil {
		return nil, fmt.Errorf("harness: scenario %q produced no result: %w", sc.Name, out.RunErr)
	}

	out.Rows, err = st.ReadStages(ctx, out.Result.RunID)
	if err != nil {
		return nil, fmt.Errorf("harness: scenario %q ledger: %w", sc.Name, err)
	}

	if tl, _, err := timeline.Normalize(doc); err == nil {
		out.Timeline = tl
	}
	if out.Result.Version != nil {
		out.Payload = out.Result.Version.Content
	}
	return out, nil
}

// buildDoc turns a GameSpec into the raw ingest document.
func buildDoc(g *GameSpec) ([]byte, error) {
	if g.Doc != "" {
		return []byte(g.Doc), nil
	}

	b := testutil.NewGame(g.ID)
	if g.League != "" {
		b.League(g.League)
	}
	if g.HomeTeam != "" || g.AwayTeam != "" {
		b.Teams(g.HomeTeam, g.AwayTeam)
	}
	for i, step := range g.Plays {
		switch {
		case step.Score != nil:
			b.ScoreBy(step.Score.Side, step.Score.Points, step.Score.Player)
		case step.Quiet > 0:
			b.Quiet(step.Quiet)
		case step.Period > 0:
			b.Period(step.Period)
		case step.Play != "":
			b.Play(step.Play)
		case step.Clock != nil:
			b.Clock(*step.Clock)
		case step.Social != nil:
			b.Social(step.Social.Handle, step.Social.Text)
		default:
			return nil, fmt.Errorf("empty play step %d", i)
		}
	}
	return b.Doc(), nil
}

// fixedRenderer answers every render call with the same text.
type fixedRenderer string

func (r fixedRenderer) Render(ctx context.Context, in pipeline.SectionInput) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return string(r), nil
}
