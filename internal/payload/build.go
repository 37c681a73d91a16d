package payload

import (
	"fmt"

	"github.com/rallycap/moments/internal/compact"
	"github.com/rallycap/moments/internal/partition"
	"github.com/rallycap/moments/internal/story"
)

// Build serializes a finalized story (plus its compact-mode view and the
// recomputable compression summary) into canonical bytes and the content
// hash that identifies the version.
//
// Internal-only fields stay internal: excitement scores are never part of a
// group here, and the metrics block is marked derived so readers do not
// treat it as authoritative.
func Build(gameID string, out *story.StoryOutput, groups []compact.Group) (content []byte, hash string, err error) {
	moments := out.Moments()

	doc := map[string]any{
		"game_id": gameID,
		"moments": momentList(moments),
		"compact": groupList(groups),
		"summary": metricsDoc(partition.Summarize(moments)),
	}

	content, err = MarshalCanonical(doc)
	if err != nil {
		return nil, "", fmt.Errorf("payload: build %s: %w", gameID, err)
	}
	return content, Hash(content), nil
}

func momentList(moments []partition.Moment) []any {
	list := make([]any, len(moments))
	for i := range moments {
		list[i] = momentDoc(&moments[i])
	}
	return list
}

func momentDoc(m *partition.Moment) map[string]any {
	ids := make([]any, len(m.PlayIDs))
	for i, id := range m.PlayIDs {
		ids[i] = id
	}
	doc := map[string]any{
		"play_ids":        ids,
		"period":          m.Period,
		"start_clock":     m.StartClockSeconds(),
		"score_before":    scoreDoc(m.ScoreBefore.Home, m.ScoreBefore.Away),
		"score_after":     scoreDoc(m.ScoreAfter.Home, m.ScoreAfter.Away),
		"boundary_reason": string(m.BoundaryReason),
		"narrative":       m.Narrative,
	}
	if m.EndClock != nil {
		doc["end_clock"] = *m.EndClock
	}
	if m.CompactLabel != "" {
		doc["compact_label"] = m.CompactLabel
	}
	return doc
}

func scoreDoc(home, away int) map[string]any {
	return map[string]any{"home": home, "away": away}
}

func groupList(groups []compact.Group) []any {
	list := make([]any, len(groups))
	for i, g := range groups {
		ids := make([]any, 0)
		for _, m := range g.Moments {
			for _, id := range m.PlayIDs {
				ids = append(ids, id)
			}
		}
		doc := map[string]any{
			"collapsed": g.Collapsed,
			"play_ids":  ids,
		}
		if g.Label != "" {
			doc["label"] = g.Label
		}
		list[i] = doc
	}
	return list
}

func metricsDoc(m partition.Metrics) map[string]any {
	hist := make(map[string]any, len(m.ReasonHistogram))
	for reason, n := range m.ReasonHistogram {
		hist[string(reason)] = n
	}
	return map[string]any{
		"derived":        true,
		"total_plays":    m.TotalPlays,
		"moment_count":   m.MomentCount,
		"explicit_plays": m.ExplicitPlays,
		"social_moments": m.SocialMoments,
		"plays_per_moment": map[string]any{
			"min": m.PlaysPerMoment.Min,
			"p50": m.PlaysPerMoment.P50,
			"p90": m.PlaysPerMoment.P90,
			"max": m.PlaysPerMoment.Max,
		},
		"reason_histogram": hist,
	}
}
