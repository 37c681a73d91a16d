package timeline

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed timeline.schema.json
var timelineSchemaJSON []byte

// compiled once at init; the schema is embedded, so a failure here is a
// build defect, not a runtime condition.
var timelineSchema = mustCompileSchema()

func mustCompileSchema() *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	if err := c.AddResource("timeline.schema.json", bytes.NewReader(timelineSchemaJSON)); err != nil {
		panic(fmt.Sprintf("timeline schema: %v", err))
	}
	s, err := c.Compile("timeline.schema.json")
	if err != nil {
		panic(fmt.Sprintf("timeline schema: %v", err))
	}
	return s
}

// InputError is a structural ingest error: the document as a whole is
// unusable (malformed JSON, schema violation, duplicate or non-monotonic
// play indices). Structural errors are fatal for the run and never retried
// by this core.
type InputError struct {
	Code    string
	Message string
}

// Structural input error codes.
const (
	ErrCodeMalformed      = "MALFORMED_DOCUMENT"
	ErrCodeSchema         = "SCHEMA_VIOLATION"
	ErrCodeDuplicateIndex = "DUPLICATE_PLAY_INDEX"
	ErrCodeIndexOrder     = "PLAY_INDEX_ORDER"
	ErrCodeEmptyTimeline  = "EMPTY_TIMELINE"
)

func (e *InputError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Quarantined records a single ingest record that was rejected while the
// rest of the document was accepted. Quarantined records are reported, never
// silently dropped.
type Quarantined struct {
	PlayIndex int    `json:"play_index"`
	Reason    string `json:"reason"`
}

// rawPlay mirrors the wire shape of a play; the clock arrives as a string
// and is parsed into seconds during normalization.
type rawPlay struct {
	Index       int    `json:"index"`
	Period      int    `json:"period"`
	Clock       string `json:"clock"`
	Team        string `json:"team"`
	Player      string `json:"player"`
	PlayType    string `json:"play_type"`
	Description string `json:"description"`
	ScoreHome   int    `json:"score_home"`
	ScoreAway   int    `json:"score_away"`
}

type rawSocial struct {
	AfterIndex int    `json:"after_index"`
	PostedAt   string `json:"posted_at"`
	Handle     string `json:"handle"`
	Text       string `json:"text"`
}

type rawTimeline struct {
	GameID   string      `json:"game_id"`
	League   string      `json:"league"`
	HomeTeam string      `json:"home_team"`
	AwayTeam string      `json:"away_team"`
	Plays    []rawPlay   `json:"plays"`
	Social   []rawSocial `json:"social"`
}

// Normalize validates a raw ingest document and produces a Timeline.
//
// The document must satisfy the embedded JSON Schema. Duplicate or
// decreasing play indices fail the whole document (the upstream fetcher
// guarantees uniqueness; a violation means the feed is corrupt). Individual
// records with semantic problems (a running score that goes backwards, a
// period that jumps backwards) are quarantined and reported alongside the
// accepted timeline.
func Normalize(doc []byte) (*Timeline, []Quarantined, error) {
	var generic any
	if err := json.Unmarshal(doc, &generic); err != nil {
		return nil, nil, &InputError{Code: ErrCodeMalformed, Message: err.Error()}
	}
	if err := timelineSchema.Validate(generic); err != nil {
		return nil, nil, &InputError{Code: ErrCodeSchema, Message: err.Error()}
	}

	var raw rawTimeline
	if err := json.Unmarshal(doc, &raw); err != nil {
		return nil, nil, &InputError{Code: ErrCodeMalformed, Message: err.Error()}
	}
	if len(raw.Plays) == 0 {
		return nil, nil, &InputError{Code: ErrCodeEmptyTimeline, Message: "timeline has no plays"}
	}

	tl := &Timeline{
		GameID:   raw.GameID,
		League:   raw.League,
		HomeTeam: raw.HomeTeam,
		AwayTeam: raw.AwayTeam,
	}

	var quarantined []Quarantined
	seen := make(map[int]bool, len(raw.Plays))
	lastIndex := -1
	var prev *Play
	for _, rp := range raw.Plays {
		if seen[rp.Index] {
			return nil, nil, &InputError{
				Code:    ErrCodeDuplicateIndex,
				Message: fmt.Sprintf("play index %d appears more than once", rp.Index),
			}
		}
		seen[rp.Index] = true
		if rp.Index <= lastIndex {
			return nil, nil, &InputError{
				Code:    ErrCodeIndexOrder,
				Message: fmt.Sprintf("play index %d not monotonically increasing", rp.Index),
			}
		}
		lastIndex = rp.Index

		if reason, ok := checkPlay(rp, prev); !ok {
			quarantined = append(quarantined, Quarantined{PlayIndex: rp.Index, Reason: reason})
			continue
		}

		p := Play{
			Index:       rp.Index,
			Period:      rp.Period,
			Team:        rp.Team,
			Player:      rp.Player,
			PlayType:    rp.PlayType,
			Description: rp.Description,
			ScoreHome:   rp.ScoreHome,
			ScoreAway:   rp.ScoreAway,
		}
		if secs, ok := ParseClock(rp.Clock); ok {
			p.Clock = &secs
		}
		tl.Plays = append(tl.Plays, p)
		prev = &tl.Plays[len(tl.Plays)-1]
	}

	if len(tl.Plays) == 0 {
		return nil, quarantined, &InputError{
			Code:    ErrCodeEmptyTimeline,
			Message: "every play was quarantined",
		}
	}

	for _, rs := range raw.Social {
		ts, err := time.Parse(time.RFC3339, rs.PostedAt)
		if err != nil {
			quarantined = append(quarantined, Quarantined{
				PlayIndex: rs.AfterIndex,
				Reason:    fmt.Sprintf("social post: bad posted_at %q", rs.PostedAt),
			})
			continue
		}
		tl.Social = append(tl.Social, SocialPost{
			AfterIndex: rs.AfterIndex,
			PostedAt:   ts,
			Handle:     rs.Handle,
			Text:       rs.Text,
		})
	}

	return tl, quarantined, nil
}

// checkPlay applies per-record semantic checks. prev is the last ACCEPTED
// play, nil for the first.
func checkPlay(rp rawPlay, prev *Play) (reason string, ok bool) {
	if rp.PlayType == "" {
		return "missing play_type", false
	}
	if prev != nil {
		if rp.ScoreHome < prev.ScoreHome || rp.ScoreAway < prev.ScoreAway {
			return fmt.Sprintf("running score decreased (%d,%d) -> (%d,%d)",
				prev.ScoreHome, prev.ScoreAway, rp.ScoreHome, rp.ScoreAway), false
		}
		if rp.Period < prev.Period {
			return fmt.Sprintf("period decreased %d -> %d", prev.Period, rp.Period), false
		}
	}
	return "", true
}
