package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/rallycap/moments/internal/boundary"
	"github.com/rallycap/moments/internal/config"
	"github.com/rallycap/moments/internal/leagueconf"
	"github.com/rallycap/moments/internal/logger"
	"github.com/rallycap/moments/internal/metrics"
	"github.com/rallycap/moments/internal/pipeline"
	"github.com/rallycap/moments/internal/render"
	"github.com/rallycap/moments/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database  string
	Leagues   string
	AutoChain bool
	Trigger   string
	Workers   int

	// Renderer allows overriding the narrative renderer (for testing).
	// If nil, defaults to the deterministic template renderer.
	Renderer pipeline.Renderer
}

// runSummary is the per-game output row.
type runSummary struct {
	File       string `json:"file"`
	RunID      string `json:"run_id,omitempty"`
	GameID     string `json:"game_id,omitempty"`
	Status     string `json:"status"`
	Moments    int    `json:"moments,omitempty"`
	Violations int    `json:"violations,omitempty"`
	Version    int    `json:"version,omitempty"`
	Error      string `json:"error,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <timeline.json>...",
		Short: "Process game timelines into published moment payloads",
		Long: `Run the full pipeline over one or more timeline documents.

Each file is normalized, partitioned into moments, rendered, validated
against the factual contract, and published as a new payload version. Every
stage attempt is recorded in the run ledger.

Example:
  moments run --db ./moments.db --leagues ./leagues game1.json
  moments run --db ./moments.db --leagues ./leagues --auto-chain *.json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringVar(&opts.Leagues, "leagues", "", "path to league rulebook directory (required)")
	cmd.Flags().BoolVar(&opts.AutoChain, "auto-chain", false, "retry retryable stage failures and regenerate once after contract violations")
	cmd.Flags().StringVar(&opts.Trigger, "trigger", "manual", "run trigger recorded in the ledger (auto|manual)")
	cmd.Flags().IntVar(&opts.Workers, "workers", 0, "concurrent games (0 uses config)")
	_ = cmd.MarkFlagRequired("db")
	_ = cmd.MarkFlagRequired("leagues")

	return cmd
}

func runPipeline(opts *RunOptions, files []string, cmd *cobra.Command) error {
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
	if opts.Workers > 0 {
		cfg.Workers = opts.Workers
	}
	level := cfg.LogLevel
	if opts.Verbose {
		level = "debug"
	}
	log := logger.New(level)

	leagues, err := leagueconf.Load(opts.Leagues)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load league rulebooks", err)
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			log.Error(context.Background(), "error closing database", logger.Error(closeErr))
		}
	}()

	renderer := opts.Renderer
	if renderer == nil {
		renderer = render.NewTemplate()
	}

	orch, err := pipeline.New(pipeline.Config{
		Store:         st,
		Renderer:      renderer,
		Leagues:       leagues,
		Budgets:       budgetsFrom(cfg),
		TargetWords:   cfg.TargetWords,
		RenderTimeout: time.Duration(cfg.RenderTimeoutMS) * time.Millisecond,
		RenderRetries: cfg.RenderRetries,
		Logger:        log,
		Metrics:       metrics.New(prometheus.NewRegistry()),
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build pipeline", err)
	}

	pool, err := pipeline.NewPool(orch, cfg.Workers, log)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build worker pool", err)
	}

	jobs := make([]pipeline.Job, 0, len(files))
	for _, f := range files {
		doc, err := os.ReadFile(f)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read timeline", err)
		}
		jobs = append(jobs, pipeline.Job{
			Doc: doc,
			Opts: pipeline.RunOptions{
				Trigger:   opts.Trigger,
				AutoChain: opts.AutoChain,
			},
		})
	}

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	results := pool.Run(ctx, jobs)

	summaries := make([]runSummary, len(results))
	failed := false
	for i, r := range results {
		s := runSummary{File: files[i], Status: "ok"}
		if r.Result != nil {
			s.RunID = r.Result.RunID
			s.GameID = r.Result.GameID
			s.Moments = len(r.Result.Moments)
			s.Violations = len(r.Result.Violations)
			if r.Result.Version != nil {
				s.Version = r.Result.Version.VersionNumber
			}
		}
		if r.Err != nil {
			failed = true
			s.Status = "failed"
			s.Error = r.Err.Error()
		}
		summaries[i] = s
	}

	if opts.Format == "json" {
		if err := formatter.OK(summaries); err != nil {
			return err
		}
	} else {
		for _, s := range summaries {
			if s.Status == "ok" {
				formatter.Verbosef("%s: run %s", s.File, s.RunID)
				if err := formatter.OK(textSummary(s)); err != nil {
					return err
				}
			} else {
				_ = formatter.Fail(stageCode(s.Error), textSummary(s), nil)
			}
		}
	}

	if failed {
		return NewExitError(ExitFailure, "one or more runs failed")
	}
	return nil
}

func textSummary(s runSummary) string {
	if s.Status == "ok" {
		return fmt.Sprintf("%s: %s published version %d (%d moments)",
			s.File, s.GameID, s.Version, s.Moments)
	}
	return s.File + ": " + s.Error
}

// stageCode pulls the stable code out of a stage error string, falling
// back to a generic one.
func stageCode(msg string) string {
	for _, code := range []string{
		"STRUCTURAL_INPUT", "RENDER_FAILED", "RENDER_TIMEOUT",
		"CONTRACT_VIOLATIONS", "VERSION_CONFLICT",
	} {
		if strings.Contains(msg, code) {
			return code
		}
	}
	return "RUN_FAILED"
}

// budgetsFrom overlays non-zero config values on the stock budgets.
func budgetsFrom(cfg config.Config) boundary.Budgets {
	b := boundary.DefaultBudgets()
	if cfg.SoftCapPlays > 0 {
		b.SoftCapPlays = cfg.SoftCapPlays
	}
	if cfg.HardCapPlays > 0 {
		b.HardCapPlays = cfg.HardCapPlays
	}
	if cfg.MaxExplicitPlays > 0 {
		b.MaxExplicitPlays = cfg.MaxExplicitPlays
	}
	if cfg.PreferredExplicitPlays > 0 {
		b.PreferredExplicitPlays = cfg.PreferredExplicitPlays
	}
	if cfg.MinMeaningfulEvents > 0 {
		b.MinMeaningfulEvents = cfg.MinMeaningfulEvents
	}
	return b
}
