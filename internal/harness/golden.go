package harness

import (
	"encoding/json"
	"fmt"
)

// Summary renders the structural outcome of a run as stable, indented
// JSON for golden snapshots. Narrative text is excluded: snapshots pin the
// partition and compaction shape, not renderer prose.
func Summary(out *Outcome) ([]byte, error) {
	type scoreDoc struct {
		Home int `json:"home"`
		Away int `json:"away"`
	}
	type momentDoc struct {
		PlayIDs    []int    `json:"play_ids"`
		Period     int      `json:"period"`
		Reason     string   `json:"boundary_reason"`
		ScoreAfter scoreDoc `json:"score_after"`
	}
	type groupDoc struct {
		PlayIDs   []int  `json:"play_ids"`
		Collapsed bool   `json:"collapsed"`
		Label     string `json:"label,omitempty"`
	}
	type summaryDoc struct {
		GameID  string      `json:"game_id"`
		Moments []momentDoc `json:"moments"`
		Groups  []groupDoc  `json:"groups"`
		Version int         `json:"version,omitempty"`
	}

	doc := summaryDoc{GameID: out.Result.GameID}
	for _, m := range out.Result.Moments {
		doc.Moments = append(doc.Moments, momentDoc{
			PlayIDs:    m.PlayIDs,
			Period:     m.Period,
			Reason:     string(m.BoundaryReason),
			ScoreAfter: scoreDoc{m.ScoreAfter.Home, m.ScoreAfter.Away},
		})
	}
	if out.Payload != nil {
		var p struct {
			Compact []struct {
				PlayIDs   []int  `json:"play_ids"`
				Collapsed bool   `json:"collapsed"`
				Label     string `json:"label"`
			} `json:"compact"`
		}
		if err := json.Unmarshal(out.Payload, &p); err != nil {
			return nil, fmt.Errorf("harness: parse payload: %w", err)
		}
		for _, g := range p.Compact {
			doc.Groups = append(doc.Groups, groupDoc{PlayIDs: g.PlayIDs, Collapsed: g.Collapsed, Label: g.Label})
		}
	}
	if out.Result.Version != nil {
		doc.Version = out.Result.Version.VersionNumber
	}
	return json.MarshalIndent(doc, "", "  ")
}
