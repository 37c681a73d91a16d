// Package testutil provides deterministic game fixtures for tests.
//
// GameBuilder accumulates plays with correct running scores and monotonic
// indices, so tests describe scoring shape ("an 8-0 run", "a quiet
// stretch") instead of hand-maintaining score columns.
package testutil

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/rallycap/moments/internal/timeline"
)

// Sides accepted by Score and ScoreBy.
const (
	Home = "HOME"
	Away = "AWAY"
)

// periodSeconds is the builder's fixed period length. Every play consumes
// playSeconds of clock; tests that care about exact clocks set them via Clock.
const (
	periodSeconds = 720
	playSeconds   = 24
)

// GameBuilder builds a timeline play by play.
type GameBuilder struct {
	tl    timeline.Timeline
	index int
	clock int
	home  int
	away  int
}

// NewGame creates a builder for one game in period 1 with the clock full.
func NewGame(gameID string) *GameBuilder {
	return &GameBuilder{
		tl: timeline.Timeline{
			GameID:   gameID,
			League:   "nba",
			HomeTeam: "Rivertown Hawks",
			AwayTeam: "Lakeside Comets",
		},
		index: 0,
		clock: periodSeconds,
	}
}

// League overrides the league key.
func (g *GameBuilder) League(key string) *GameBuilder {
	g.tl.League = key
	return g
}

// Teams overrides the team names.
func (g *GameBuilder) Teams(home, away string) *GameBuilder {
	g.tl.HomeTeam = home
	g.tl.AwayTeam = away
	return g
}

// Period advances to the given period and refills the clock.
func (g *GameBuilder) Period(p int) *GameBuilder {
	g.clock = periodSeconds
	g.addPlay("", "", "period_start", fmt.Sprintf("period %d begins", p), p)
	return g
}

// Score appends a scoring play for side worth points. The play type is
// derived from the point value.
func (g *GameBuilder) Score(side string, points int) *GameBuilder {
	return g.ScoreBy(side, points, "")
}

// ScoreBy is Score with an attributed player name.
func (g *GameBuilder) ScoreBy(side string, points int, player string) *GameBuilder {
	switch side {
	case Home:
		g.home += points
	case Away:
		g.away += points
	default:
		panic(fmt.Sprintf("testutil: unknown side %q", side))
	}
	g.addPlay(side, player, scoreType(points),
		fmt.Sprintf("%d point make for %s", points, side), g.currentPeriod())
	return g
}

// Play appends one non-scoring play of the given type.
func (g *GameBuilder) Play(playType string) *GameBuilder {
	g.addPlay("", "", playType, playType, g.currentPeriod())
	return g
}

// Quiet appends n non-scoring pass plays.
func (g *GameBuilder) Quiet(n int) *GameBuilder {
	for i := 0; i < n; i++ {
		g.Play("pass")
	}
	return g
}

// Social anchors a social post after the most recent play.
func (g *GameBuilder) Social(handle, text string) *GameBuilder {
	if g.index == 0 {
		panic("testutil: Social before any play")
	}
	g.tl.Social = append(g.tl.Social, timeline.SocialPost{
		AfterIndex: g.index - 1,
		PostedAt:   time.Date(2026, 3, 14, 19, 0, 0, 0, time.UTC).Add(time.Duration(g.index) * time.Minute),
		Handle:     handle,
		Text:       text,
	})
	return g
}

// Clock overrides the remaining seconds used for the NEXT play.
func (g *GameBuilder) Clock(seconds int) *GameBuilder {
	g.clock = seconds
	return g
}

// Build returns the accumulated timeline.
func (g *GameBuilder) Build() *timeline.Timeline {
	tl := g.tl
	return &tl
}

// Doc marshals the accumulated timeline into the raw ingest document
// shape, with clocks re-encoded as "MM:SS" strings.
func (g *GameBuilder) Doc() []byte {
	type wirePlay struct {
		Index       int    `json:"index"`
		Period      int    `json:"period"`
		Clock       string `json:"clock,omitempty"`
		Team        string `json:"team,omitempty"`
		Player      string `json:"player,omitempty"`
		PlayType    string `json:"play_type"`
		Description string `json:"description"`
		ScoreHome   int    `json:"score_home"`
		ScoreAway   int    `json:"score_away"`
	}
	type wireSocial struct {
		AfterIndex int    `json:"after_index"`
		PostedAt   string `json:"posted_at"`
		Handle     string `json:"handle"`
		Text       string `json:"text"`
	}
	doc := struct {
		GameID   string       `json:"game_id"`
		League   string       `json:"league"`
		HomeTeam string       `json:"home_team"`
		AwayTeam string       `json:"away_team"`
		Plays    []wirePlay   `json:"plays"`
		Social   []wireSocial `json:"social,omitempty"`
	}{
		GameID:   g.tl.GameID,
		League:   g.tl.League,
		HomeTeam: g.tl.HomeTeam,
		AwayTeam: g.tl.AwayTeam,
	}
	for _, p := range g.tl.Plays {
		wp := wirePlay{
			Index:       p.Index,
			Period:      p.Period,
			Team:        p.Team,
			Player:      p.Player,
			PlayType:    p.PlayType,
			Description: p.Description,
			ScoreHome:   p.ScoreHome,
			ScoreAway:   p.ScoreAway,
		}
		if p.Clock != nil {
			wp.Clock = fmt.Sprintf("%d:%02d", *p.Clock/60, *p.Clock%60)
		}
		doc.Plays = append(doc.Plays, wp)
	}
	for _, s := range g.tl.Social {
		doc.Social = append(doc.Social, wireSocial{
			AfterIndex: s.AfterIndex,
			PostedAt:   s.PostedAt.Format(time.RFC3339),
			Handle:     s.Handle,
			Text:       s.Text,
		})
	}
	b, err := json.Marshal(doc)
	if err != nil {
		panic(err)
	}
	return b
}

func (g *GameBuilder) currentPeriod() int {
	if len(g.tl.Plays) == 0 {
		return 1
	}
	return g.tl.Plays[len(g.tl.Plays)-1].Period
}

func (g *GameBuilder) addPlay(side, player, playType, description string, period int) {
	clock := g.clock
	g.clock -= playSeconds
	if g.clock < 0 {
		g.clock = 0
	}
	team := ""
	switch side {
	case Home:
		team = g.tl.HomeTeam
	case Away:
		team = g.tl.AwayTeam
	}
	g.tl.Plays = append(g.tl.Plays, timeline.Play{
		Index:       g.index,
		Period:      period,
		Clock:       &clock,
		Team:        team,
		Player:      player,
		PlayType:    playType,
		Description: description,
		ScoreHome:   g.home,
		ScoreAway:   g.away,
	})
	g.index++
}

func scoreType(points int) string {
	switch points {
	case 1:
		return "free_throw"
	case 2:
		return "shot_2pt"
	default:
		return "shot_3pt"
	}
}
