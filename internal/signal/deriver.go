package signal

import (
	"fmt"

	"github.com/rallycap/moments/internal/timeline"
)

// Config holds the injectable knobs for signal derivation. Per-league values
// come from the league rulebook; nothing here has a process-wide global.
type Config struct {
	// RunThreshold is the minimum unanswered-point total for a run to
	// qualify as a notable beat (when it does not cause a lead change).
	RunThreshold int

	// LeadTiers is the ascending lead-ladder margin thresholds for the
	// sport. REQUIRED: there is no default ladder.
	LeadTiers []int
}

// Deriver computes per-play signals. Construct with NewDeriver; the zero
// value is unusable.
type Deriver struct {
	cfg Config
}

// NewDeriver validates the config and returns a Deriver.
//
// LeadTiers must be non-empty, strictly ascending, and positive. An empty
// ladder is rejected rather than defaulted; see the package comment.
func NewDeriver(cfg Config) (*Deriver, error) {
	if len(cfg.LeadTiers) == 0 {
		return nil, fmt.Errorf("signal: lead tiers are required, no default ladder exists")
	}
	prev := 0
	for i, t := range cfg.LeadTiers {
		if t <= prev {
			return nil, fmt.Errorf("signal: lead tiers must be positive and strictly ascending, got %v at position %d", t, i)
		}
		prev = t
	}
	if cfg.RunThreshold <= 0 {
		return nil, fmt.Errorf("signal: run threshold must be positive, got %d", cfg.RunThreshold)
	}
	return &Deriver{cfg: cfg}, nil
}

// Config returns the config the deriver was built with.
func (d *Deriver) Config() Config {
	return d.cfg
}

// Derive computes signals for an ordered play window. The window may start
// mid-game; see the package comment for the seeding rules.
func (d *Deriver) Derive(plays []timeline.Play) (*Signals, error) {
	if len(plays) == 0 {
		return nil, fmt.Errorf("signal: cannot derive from empty play window")
	}

	out := &Signals{Plays: make([]PlaySignal, 0, len(plays))}

	var run *RunWindow
	prevLead := LeadTie
	prevTier := 0
	var prevScore timeline.Score
	for i, p := range plays {
		score := p.Score()
		sig := PlaySignal{Index: p.Index}

		if i == 0 {
			// Mid-window seed: the previous score pair is unobserved, so
			// point deltas stay zero and the run accumulator starts empty.
			sig.ScoringPlay = score.Home > 0 || score.Away > 0
		} else {
			sig.PointsHome = score.Home - prevScore.Home
			sig.PointsAway = score.Away - prevScore.Away
			if sig.PointsHome < 0 || sig.PointsAway < 0 {
				return nil, fmt.Errorf("signal: running score decreased at play %d", p.Index)
			}
			sig.ScoringPlay = sig.PointsHome > 0 || sig.PointsAway > 0
		}

		sig.Lead = leadOf(score)
		sig.Tier = tierOf(score, d.cfg.LeadTiers)
		if i > 0 {
			sig.LeadChange = isFlip(prevLead, sig.Lead)
			sig.TierCrossing = sig.Tier != prevTier
		}

		run = d.trackRun(out, run, sig)

		out.Plays = append(out.Plays, sig)
		prevLead = sig.Lead
		prevTier = sig.Tier
		prevScore = score
	}

	if run != nil {
		run.leadingAtEnd = leadingAtEnd(*run, prevLead)
		out.Runs = append(out.Runs, *run)
	}
	return out, nil
}

// trackRun advances the unanswered-run accumulator for one play signal and
// returns the (possibly new) open run. A run resets the instant the other
// team scores; a play where both sides score (and-one situations in some
// feeds) closes the run without opening a new one.
func (d *Deriver) trackRun(out *Signals, run *RunWindow, sig PlaySignal) *RunWindow {
	homeScored := sig.PointsHome > 0
	awayScored := sig.PointsAway > 0
	if !homeScored && !awayScored {
		return run
	}
	if homeScored && awayScored {
		if run != nil {
			run.leadingAtEnd = leadingAtEnd(*run, sig.Lead)
			out.Runs = append(out.Runs, *run)
		}
		return nil
	}

	side := SideHome
	points := sig.PointsHome
	if awayScored {
		side = SideAway
		points = sig.PointsAway
	}

	if run != nil && run.Side != side {
		run.leadingAtEnd = leadingAtEnd(*run, sig.Lead)
		out.Runs = append(out.Runs, *run)
		run = nil
	}
	if run == nil {
		run = &RunWindow{Side: side, FirstIndex: sig.Index, LastIndex: sig.Index}
	}
	run.Points += points
	run.LastIndex = sig.Index
	if sig.LeadChange && leadFor(side) == sig.Lead {
		run.CausedLeadChange = true
	}
	return run
}

func leadOf(s timeline.Score) Lead {
	switch {
	case s.Home > s.Away:
		return LeadHome
	case s.Away > s.Home:
		return LeadAway
	default:
		return LeadTie
	}
}

func leadFor(s Side) Lead {
	if s == SideHome {
		return LeadHome
	}
	return LeadAway
}

// isFlip reports a strict HOME<->AWAY flip. Tie transitions do not count.
func isFlip(prev, cur Lead) bool {
	if prev == LeadTie || cur == LeadTie {
		return false
	}
	return prev != cur
}

// tierOf returns the signed ladder tier for a score margin.
func tierOf(s timeline.Score, tiers []int) int {
	margin := s.Margin()
	abs := margin
	if abs < 0 {
		abs = -abs
	}
	tier := 0
	for _, t := range tiers {
		if abs >= t {
			tier++
		}
	}
	if margin < 0 {
		tier = -tier
	}
	return tier
}

// leadingAtEnd reports whether the run's side held the lead when it closed.
func leadingAtEnd(r RunWindow, lead Lead) bool {
	return leadFor(r.Side) == lead
}
