package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rallycap/moments/internal/boundary"
	"github.com/rallycap/moments/internal/compact"
	"github.com/rallycap/moments/internal/config"
	"github.com/rallycap/moments/internal/leagueconf"
	"github.com/rallycap/moments/internal/partition"
	"github.com/rallycap/moments/internal/signal"
	"github.com/rallycap/moments/internal/timeline"
)

// CompactOptions holds flags for the compact command.
type CompactOptions struct {
	*RootOptions
	Leagues string
}

// compactGroup is the JSON shape of one compact group in the preview.
type compactGroup struct {
	Moments   int    `json:"moments"`
	Plays     int    `json:"plays"`
	Collapsed bool   `json:"collapsed"`
	Label     string `json:"label,omitempty"`
}

// compactPreview is the full preview output.
type compactPreview struct {
	File    string            `json:"file"`
	GameID  string            `json:"game_id"`
	Moments int               `json:"moments"`
	Groups  []compactGroup    `json:"groups"`
	Metrics partition.Metrics `json:"metrics"`
}

// NewCompactCommand creates the compact command.
func NewCompactCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompactOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compact <timeline.json>",
		Short: "Preview moment partitioning and compact-mode grouping",
		Long: `Run partitioning and compact-mode compression over a timeline without
rendering narrative or touching the database. Shows which moments the
compressed presentation would collapse and the partition quality metrics.

Example:
  moments compact --leagues ./leagues game1.json
  moments compact --leagues ./leagues --format json game1.json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompact(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Leagues, "leagues", "", "path to league rulebook directory (required)")
	_ = cmd.MarkFlagRequired("leagues")

	return cmd
}

func runCompact(opts *CompactOptions, file string, cmd *cobra.Command) error {
	formatter := &Printer{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	cfg, err := config.Load(opts.Config)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	leagues, err := leagueconf.Load(opts.Leagues)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load league rulebooks", err)
	}
	doc, err := os.ReadFile(file)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read timeline", err)
	}

	tl, quarantined, err := timeline.Normalize(doc)
	if err != nil {
		return WrapExitError(ExitFailure, "timeline rejected", err)
	}
	for _, q := range quarantined {
		formatter.Verbosef("quarantined play %d: %s", q.PlayIndex, q.Reason)
	}

	league, err := leagues.Get(tl.League)
	if err != nil {
		return WrapExitError(ExitFailure, "unknown league", err)
	}
	deriver, err := signal.NewDeriver(signal.Config{
		RunThreshold: league.RunThreshold,
		LeadTiers:    league.LeadTiers,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "bad league rulebook", err)
	}
	sigs, err := deriver.Derive(tl.Plays)
	if err != nil {
		return WrapExitError(ExitFailure, "signal derivation failed", err)
	}

	budgets := budgetsFrom(cfg)
	markers, err := boundary.Classify(tl.Plays, sigs, budgets)
	if err != nil {
		return WrapExitError(ExitFailure, "classification failed", err)
	}
	moments, metrics, err := partition.Partition(tl, sigs, markers, budgets)
	if err != nil {
		return WrapExitError(ExitFailure, "partitioning failed", err)
	}
	groups, err := compact.Compress(moments, league.ExcitementTiers)
	if err != nil {
		return WrapExitError(ExitFailure, "compaction failed", err)
	}

	preview := compactPreview{
		File:    file,
		GameID:  tl.GameID,
		Moments: len(moments),
		Metrics: metrics,
	}
	for _, g := range groups {
		plays := 0
		for _, m := range g.Moments {
			plays += len(m.PlayIDs)
		}
		preview.Groups = append(preview.Groups, compactGroup{
			Moments:   len(g.Moments),
			Plays:     plays,
			Collapsed: g.Collapsed,
			Label:     g.Label,
		})
	}

	if opts.Format == "json" {
		return formatter.OK(preview)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %d moments in %d groups\n", tl.GameID, len(moments), len(groups))
	for i, g := range preview.Groups {
		if g.Collapsed {
			fmt.Fprintf(&sb, "  group %d: collapsed, %q\n", i, g.Label)
		} else {
			fmt.Fprintf(&sb, "  group %d: %d moments, %d plays\n", i, g.Moments, g.Plays)
		}
	}
	fmt.Fprintf(&sb, "  plays per moment: min %d, p50 %d, p90 %d, max %d",
		preview.Metrics.PlaysPerMoment.Min, preview.Metrics.PlaysPerMoment.P50,
		preview.Metrics.PlaysPerMoment.P90, preview.Metrics.PlaysPerMoment.Max)
	return formatter.OK(sb.String())
}
