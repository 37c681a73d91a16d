package timeline

import "time"

// Score is a (home, away) running score pair.
type Score struct {
	Home int `json:"home"`
	Away int `json:"away"`
}

// Margin returns home minus away.
func (s Score) Margin() int {
	return s.Home - s.Away
}

// DecreasedFrom reports whether either component went backwards relative
// to prev. Scores in a normalized timeline only ever accumulate.
func (s Score) DecreasedFrom(prev Score) bool {
	return s.Home < prev.Home || s.Away < prev.Away
}

// Play is a single normalized play-by-play record.
//
// Index is unique and monotonically increasing within a game. ScoreHome and
// ScoreAway are the running scores after this play. Clock is the remaining
// seconds in the period, nil when the source clock was absent or unparsable
// (see ParseClock for the sorts-last contract).
type Play struct {
	Index       int    `json:"index"`
	Period      int    `json:"period"`
	Clock       *int   `json:"clock,omitempty"`
	Team        string `json:"team,omitempty"`
	Player      string `json:"player,omitempty"`
	PlayType    string `json:"play_type"`
	Description string `json:"description"`
	ScoreHome   int    `json:"score_home"`
	ScoreAway   int    `json:"score_away"`
}

// Score returns the running score after this play.
func (p Play) Score() Score {
	return Score{Home: p.ScoreHome, Away: p.ScoreAway}
}

// ClockSeconds returns the remaining seconds, or 0 when the clock is
// unknown. Zero is a deliberate policy, not a fallback: an unparsable clock
// sorts last within its period everywhere ordering matters.
func (p Play) ClockSeconds() int {
	if p.Clock == nil {
		return 0
	}
	return *p.Clock
}

// SocialPost is an externally sourced commentary event interleaved into the
// timeline. AfterIndex anchors the post to the play it followed; posts are
// never dropped by any stage of the pipeline.
type SocialPost struct {
	AfterIndex int       `json:"after_index"`
	PostedAt   time.Time `json:"posted_at"`
	Handle     string    `json:"handle"`
	Text       string    `json:"text"`
}

// Timeline is the ordered play/social-event stream for one game.
// Read-only input to the pipeline core.
type Timeline struct {
	GameID   string       `json:"game_id"`
	League   string       `json:"league"`
	HomeTeam string       `json:"home_team"`
	AwayTeam string       `json:"away_team"`
	Plays    []Play       `json:"plays"`
	Social   []SocialPost `json:"social,omitempty"`
}

// FinalScore returns the running score after the last play, or the zero
// Score for an empty timeline.
func (t *Timeline) FinalScore() Score {
	if len(t.Plays) == 0 {
		return Score{}
	}
	return t.Plays[len(t.Plays)-1].Score()
}

// SocialAfter returns the social posts anchored to the given play index.
func (t *Timeline) SocialAfter(playIndex int) []SocialPost {
	var posts []SocialPost
	for _, p := range t.Social {
		if p.AfterIndex == playIndex {
			posts = append(posts, p)
		}
	}
	return posts
}

// HasSocialInRange reports whether any social post anchors to a play index
// in [first, last]. Used by the compressor to mark moments that must never
// be collapsed.
func (t *Timeline) HasSocialInRange(first, last int) bool {
	for _, p := range t.Social {
		if p.AfterIndex >= first && p.AfterIndex <= last {
			return true
		}
	}
	return false
}
