// Package render provides a deterministic, template-based implementation
// of the pipeline's Renderer. It exists for the CLI and for tests; a
// production deployment swaps in an AI collaborator behind the same
// interface.
package render

import (
	"context"
	"fmt"
	"strings"

	"github.com/rallycap/moments/internal/pipeline"
)

// TemplateRenderer composes narrative text from the structured section
// input only. It never quotes play descriptions, so it cannot introduce
// names, figures, or outcome claims the contract validator would reject.
type TemplateRenderer struct{}

// NewTemplate returns a TemplateRenderer.
func NewTemplate() *TemplateRenderer {
	return &TemplateRenderer{}
}

// filler sentences used to pad short narratives toward the word target.
// All lowercase nouns, no names, no totals.
var filler = []string{
	"Both benches stay locked in as the pace holds.",
	"Possessions get shorter and every trip feels contested.",
	"The rotations tighten and the defensive effort picks up.",
	"Neither side finds much separation through the stretch.",
	"The tempo swings back and forth without a clear rhythm.",
	"Every loose ball turns into a scramble on the floor.",
}

// Render builds a factual recap for one moment and pads or trims it to
// land inside the ±15% word-count tolerance around in.TargetWords.
func (r *TemplateRenderer) Render(ctx context.Context, in pipeline.SectionInput) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if in.HomeTeam == "" || in.AwayTeam == "" {
		return "", &pipeline.RenderError{
			Code:    pipeline.RenderPermanent,
			Message: "section input is missing team names",
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s and %s trade blows in %s.", in.AwayTeam, in.HomeTeam, in.Period)
	fmt.Fprintf(&sb, " The stretch opens at %d-%d and closes at %d-%d over %d plays.",
		in.ScoreBefore[0], in.ScoreBefore[1], in.ScoreAfter[0], in.ScoreAfter[1], len(in.PlayLines))

	swing := margin(in.ScoreAfter) - margin(in.ScoreBefore)
	switch {
	case swing > 0:
		fmt.Fprintf(&sb, " The home side claws back %d points of ground through the segment.", swing)
	case swing < 0:
		fmt.Fprintf(&sb, " The visitors carve out %d points of breathing room along the way.", -swing)
	default:
		sb.WriteString(" Neither side moves the margin by the end of it.")
	}
	if len(in.SocialLines) > 0 {
		sb.WriteString(" The crowd online has plenty to say about this one.")
	}

	return fitToTarget(sb.String(), in.TargetWords), nil
}

func margin(score [2]int) int {
	return score[0] - score[1]
}

// fitToTarget pads with filler sentences until the word count clears the
// lower tolerance bound, then trims from the tail if it overshoots the
// upper one. Deterministic for identical input.
func fitToTarget(text string, target int) string {
	if target <= 0 {
		return text
	}
	lo := target * 85 / 100
	hi := target * 115 / 100

	words := strings.Fields(text)
	for i := 0; len(words) < lo; i++ {
		words = append(words, strings.Fields(filler[i%len(filler)])...)
	}
	if len(words) > hi {
		words = words[:hi]
		last := words[len(words)-1]
		words[len(words)-1] = strings.TrimRight(last, ",.;") + "."
	}
	return strings.Join(words, " ")
}
