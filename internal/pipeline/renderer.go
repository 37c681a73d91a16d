package pipeline

import (
	"context"
	"errors"
	"fmt"
)

// SectionInput is the structured input handed to the rendering
// collaborator for one moment. The renderer is a black box: structured
// input in, narrative text or a typed failure out.
type SectionInput struct {
	GameID      string   `json:"game_id"`
	League      string   `json:"league"`
	HomeTeam    string   `json:"home_team"`
	AwayTeam    string   `json:"away_team"`
	Period      string   `json:"period"` // display label, e.g. "Q3"
	PlayLines   []string `json:"play_lines"`
	SocialLines []string `json:"social_lines,omitempty"`
	ScoreBefore [2]int   `json:"score_before"`
	ScoreAfter  [2]int   `json:"score_after"`
	TargetWords int      `json:"target_words"`
}

// Renderer is the AI text-rendering collaborator. Implementations must
// honor ctx cancellation; the orchestrator owns timeouts and bounded
// retries, and never retries inside validation.
type Renderer interface {
	Render(ctx context.Context, in SectionInput) (string, error)
}

// RenderError classes. Transient failures may be retried by the
// orchestrator; permanent ones fail the stage on first sight.
const (
	RenderTimeout   = "TIMEOUT"
	RenderTransient = "TRANSIENT"
	RenderPermanent = "PERMANENT"
)

// RenderError is a typed failure from the rendering collaborator.
type RenderError struct {
	Code    string
	Message string
}

// Error implements the error interface.
func (e *RenderError) Error() string {
	return fmt.Sprintf("render %s: %s", e.Code, e.Message)
}

// Retryable reports whether the orchestrator may retry this failure.
func (e *RenderError) Retryable() bool {
	return e.Code == RenderTimeout || e.Code == RenderTransient
}

// AsRenderError unwraps a RenderError, mapping bare context deadline
// errors to the TIMEOUT class.
func AsRenderError(err error) *RenderError {
	var re *RenderError
	if errors.As(err, &re) {
		return re
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &RenderError{Code: RenderTimeout, Message: err.Error()}
	}
	return &RenderError{Code: RenderPermanent, Message: err.Error()}
}
