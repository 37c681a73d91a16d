package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/rallycap/moments/internal/boundary"
	"github.com/rallycap/moments/internal/compact"
	"github.com/rallycap/moments/internal/contract"
	"github.com/rallycap/moments/internal/leagueconf"
	"github.com/rallycap/moments/internal/logger"
	"github.com/rallycap/moments/internal/metrics"
	"github.com/rallycap/moments/internal/partition"
	"github.com/rallycap/moments/internal/payload"
	"github.com/rallycap/moments/internal/signal"
	"github.com/rallycap/moments/internal/store"
	"github.com/rallycap/moments/internal/story"
	"github.com/rallycap/moments/internal/timeline"
)

// Config wires the orchestrator's collaborators and budgets.
type Config struct {
	Store    *store.Store
	Renderer Renderer
	Leagues  *leagueconf.Registry

	// Budgets for the classifier/partitioner. Zero value means the stock
	// defaults.
	Budgets boundary.Budgets

	// TargetWords per moment narrative, enforced ±15% by validation.
	TargetWords int

	// RenderTimeout bounds one renderer call; RenderRetries bounds fresh
	// stage attempts after retryable collaborator failures (only when the
	// run's auto_chain permits).
	RenderTimeout time.Duration
	RenderRetries int

	Logger  logger.Logger
	Metrics *metrics.Metrics
}

// Orchestrator sequences the five stages for one game at a time and owns
// all store access for the pipeline core.
type Orchestrator struct {
	st       *store.Store
	renderer Renderer
	leagues  *leagueconf.Registry
	budgets  boundary.Budgets

	targetWords   int
	renderTimeout time.Duration
	renderRetries int

	log logger.Logger
	met *metrics.Metrics
}

// New validates the config and builds an Orchestrator.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("pipeline: store is required")
	}
	if cfg.Renderer == nil {
		return nil, fmt.Errorf("pipeline: renderer is required")
	}
	if cfg.Leagues == nil {
		return nil, fmt.Errorf("pipeline: league registry is required")
	}
	budgets := cfg.Budgets
	if budgets == (boundary.Budgets{}) {
		budgets = boundary.DefaultBudgets()
	}
	if err := budgets.Validate(); err != nil {
		return nil, err
	}
	o := &Orchestrator{
		st:            cfg.Store,
		renderer:      cfg.Renderer,
		leagues:       cfg.Leagues,
		budgets:       budgets,
		targetWords:   cfg.TargetWords,
		renderTimeout: cfg.RenderTimeout,
		renderRetries: cfg.RenderRetries,
		log:           cfg.Logger,
		met:           cfg.Metrics,
	}
	if o.targetWords <= 0 {
		o.targetWords = 60
	}
	if o.renderTimeout <= 0 {
		o.renderTimeout = 20 * time.Second
	}
	if o.log == nil {
		o.log = logger.Nop()
	}
	if o.met == nil {
		o.met = metrics.New(prometheus.NewRegistry())
	}
	return o, nil
}

// RunOptions describes how a run was triggered.
type RunOptions struct {
	// Trigger is "auto" (ingestion) or "manual" (operator override).
	Trigger string

	// AutoChain permits bounded retries of retryable stage failures. When
	// false, the first failure halts the run.
	AutoChain bool
}

// StageResult is the in-memory echo of one ledger row.
type StageResult struct {
	Stage     Stage
	Attempt   int
	Status    Status
	ErrorCode string
}

// Result is the outcome of one run.
type Result struct {
	RunID       string
	GameID      string
	Stages      []StageResult
	Quarantined []timeline.Quarantined
	Moments     []partition.Moment
	Violations  []contract.Violation
	Story       *story.StoryOutput
	Version     *store.Version
}

// Failed reports whether any stage failed.
func (r *Result) Failed() bool {
	for _, s := range r.Stages {
		if s.Status == StatusFailed {
			return true
		}
	}
	return false
}

// runState carries intermediate artifacts between stages of one run.
type runState struct {
	doc     []byte
	tl      *timeline.Timeline
	league  *leagueconf.League
	sigs    *signal.Signals
	moments []partition.Moment
	groups  []compact.Group
	metrics partition.Metrics

	// baseVersion is the highest published version observed when the run
	// started. Finalize publishes against it; a concurrent run that
	// published in between makes this run's finalize lose with a
	// VERSION_CONFLICT instead of silently stacking another version.
	baseVersion int

	// regenerated marks that the one permitted narrative regeneration
	// after contract violations has been spent.
	regenerated bool
}

// ProcessGame executes a full run over a raw timeline document. The
// returned Result reflects the ledger even when the run failed; the error
// is the first stage failure, typed *StageError.
func (o *Orchestrator) ProcessGame(ctx context.Context, doc []byte, opts RunOptions) (*Result, error) {
	gameID, league := peekIdentity(doc)
	run := store.Run{
		ID:        uuid.NewString(),
		GameID:    gameID,
		League:    league,
		Trigger:   opts.Trigger,
		AutoChain: opts.AutoChain,
		CreatedAt: time.Now().UTC(),
	}
	if run.Trigger == "" {
		run.Trigger = "manual"
	}
	if err := o.st.CreateRun(ctx, run); err != nil {
		return nil, err
	}

	res := &Result{RunID: run.ID, GameID: gameID}
	state := &runState{doc: doc}
	if active, err := o.st.ActiveVersion(ctx, gameID); err != nil {
		return nil, err
	} else if active != nil {
		state.baseVersion = active.VersionNumber
	}
	log := o.log.Named("run")

	for i := 0; i < len(StageOrder); i++ {
		stage := StageOrder[i]
		err := o.execStage(ctx, run.ID, stage, res, state, opts)
		if err == nil {
			continue
		}

		se, _ := IsStageError(err)
		// Contract violations are recoverable by regenerating narrative:
		// step back to GENERATE_MOMENTS once when auto_chain permits.
		if se != nil && se.Code == ErrCodeContractViolations && opts.AutoChain && !state.regenerated {
			state.regenerated = true
			log.Warn(ctx, "contract violations, regenerating narrative",
				logger.String("run", run.ID), logger.Int("violations", len(res.Violations)))
			i = indexOf(StageGenerateMoments) - 1
			continue
		}

		log.Error(ctx, "run halted", logger.String("run", run.ID),
			logger.String("stage", string(stage)), logger.Error(err))
		o.skipRemaining(ctx, run.ID, res, i+1)
		return res, err
	}

	log.Info(ctx, "run finished", logger.String("run", run.ID),
		logger.String("game", gameID), logger.Int("moments", len(res.Moments)))
	return res, nil
}

// execStage runs one stage, retrying retryable failures from a fresh
// ledger attempt when auto_chain permits. A stage either completes, fails,
// or was never attempted; there is no mid-stage resumption.
func (o *Orchestrator) execStage(ctx context.Context, runID string, stage Stage, res *Result, state *runState, opts RunOptions) error {
	budget := 0
	if opts.AutoChain {
		budget = o.renderRetries
	}

	var lastErr error
	for attemptNo := 0; attemptNo <= budget; attemptNo++ {
		if attemptNo > 0 {
			o.met.RenderRetries.Inc()
		}
		err := o.execAttempt(ctx, runID, stage, res, state)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retryable(err) {
			return err
		}
	}
	return lastErr
}

// execAttempt runs exactly one ledger attempt of a stage.
func (o *Orchestrator) execAttempt(ctx context.Context, runID string, stage Stage, res *Result, state *runState) error {
	attempt, err := o.st.BeginStage(ctx, runID, string(stage))
	if err != nil {
		return stageErr(stage, ErrCodeInternal, err, "ledger begin failed")
	}
	if err := o.st.MarkStageRunning(ctx, runID, string(stage), attempt); err != nil {
		return stageErr(stage, ErrCodeInternal, err, "ledger transition failed")
	}

	started := time.Now()
	output, logs, stageFailure := o.runStage(ctx, stage, res, state)
	o.met.StageDuration.WithLabelValues(string(stage)).Observe(time.Since(started).Seconds())

	status := StatusSuccess
	errCode, errDetail := "", ""
	if stageFailure != nil {
		status = StatusFailed
		if se, ok := IsStageError(stageFailure); ok {
			errCode = string(se.Code)
		} else {
			errCode = string(ErrCodeInternal)
		}
		errDetail = stageFailure.Error()
	}
	o.met.StagesTotal.WithLabelValues(string(stage), string(status)).Inc()

	if err := o.st.FinishStage(ctx, runID, string(stage), attempt, string(status), output, logs, errCode, errDetail); err != nil {
		return stageErr(stage, ErrCodeInternal, err, "ledger finish failed")
	}
	res.Stages = append(res.Stages, StageResult{
		Stage:     stage,
		Attempt:   attempt,
		Status:    status,
		ErrorCode: errCode,
	})
	return stageFailure
}

// runStage dispatches to the stage body. Returns the stage's verbatim
// output and log lines alongside any failure; both are persisted either way.
func (o *Orchestrator) runStage(ctx context.Context, stage Stage, res *Result, state *runState) (output, logs string, err error) {
	switch stage {
	case StageNormalizePBP:
		return o.normalize(res, state)
	case StageDeriveSignals:
		return o.deriveSignals(state)
	case StageGenerateMoments:
		return o.generateMoments(ctx, res, state)
	case StageValidateMoments:
		return o.validateMoments(res, state)
	case StageFinalizeMoments:
		return o.finalizeMoments(ctx, res, state)
	default:
		panic(fmt.Sprintf("pipeline: unknown stage %q", string(stage)))
	}
}

func (o *Orchestrator) normalize(res *Result, state *runState) (string, string, error) {
	tl, quarantined, err := timeline.Normalize(state.doc)
	res.Quarantined = quarantined
	if err != nil {
		return "", "", stageErr(StageNormalizePBP, ErrCodeStructuralInput, err, "timeline rejected")
	}
	state.tl = tl
	res.GameID = tl.GameID

	var lines []string
	for _, q := range quarantined {
		lines = append(lines, fmt.Sprintf("quarantined play %d: %s", q.PlayIndex, q.Reason))
	}
	out := mustJSON(map[string]any{
		"plays":       len(tl.Plays),
		"social":      len(tl.Social),
		"quarantined": len(quarantined),
	})
	return out, strings.Join(lines, "\n"), nil
}

func (o *Orchestrator) deriveSignals(state *runState) (string, string, error) {
	league, err := o.leagues.Get(state.tl.League)
	if err != nil {
		return "", "", stageErr(StageDeriveSignals, ErrCodeStructuralInput, err, "unknown league")
	}
	state.league = league

	deriver, err := signal.NewDeriver(signal.Config{
		RunThreshold: league.RunThreshold,
		LeadTiers:    league.LeadTiers,
	})
	if err != nil {
		return "", "", stageErr(StageDeriveSignals, ErrCodeInternal, err, "deriver config")
	}
	sigs, err := deriver.Derive(state.tl.Plays)
	if err != nil {
		return "", "", stageErr(StageDeriveSignals, ErrCodeStructuralInput, err, "derivation failed")
	}
	state.sigs = sigs

	qualifying := 0
	for _, r := range sigs.Runs {
		if r.IsQualifying(league.RunThreshold) {
			qualifying++
		}
	}
	out := mustJSON(map[string]any{
		"plays":           len(sigs.Plays),
		"runs":            len(sigs.Runs),
		"qualifying_runs": qualifying,
	})
	return out, "", nil
}

func (o *Orchestrator) generateMoments(ctx context.Context, res *Result, state *runState) (string, string, error) {
	markers, err := boundary.Classify(state.tl.Plays, state.sigs, o.budgets)
	if err != nil {
		return "", "", stageErr(StageGenerateMoments, ErrCodeInternal, err, "classification failed")
	}
	moments, met, err := partition.Partition(state.tl, state.sigs, markers, o.budgets)
	if err != nil {
		return "", "", stageErr(StageGenerateMoments, ErrCodeInternal, err, "partitioning failed")
	}
	groups, err := compact.Compress(moments, state.league.ExcitementTiers)
	if err != nil {
		return "", "", stageErr(StageGenerateMoments, ErrCodeInternal, err, "compaction failed")
	}
	adoptCompactLabels(moments, groups)

	var lines []string
	for i := range moments {
		text, err := o.renderMoment(ctx, state, &moments[i])
		if err != nil {
			re := AsRenderError(err)
			code := ErrCodeRenderFailed
			if re.Code == RenderTimeout {
				code = ErrCodeRenderTimeout
			}
			return "", strings.Join(lines, "\n"),
				stageErr(StageGenerateMoments, code, re, "moment %d render failed", i)
		}
		moments[i].Narrative = text
		lines = append(lines, fmt.Sprintf("moment %d: plays %d-%d rendered %d words",
			i, moments[i].FirstPlayID(), moments[i].LastPlayID(), len(strings.Fields(text))))
	}

	state.moments = moments
	state.groups = groups
	state.metrics = met
	res.Moments = moments

	out := mustJSON(map[string]any{
		"moments":        len(moments),
		"compact_groups": len(groups),
		"total_plays":    met.TotalPlays,
	})
	return out, strings.Join(lines, "\n"), nil
}

func (o *Orchestrator) validateMoments(res *Result, state *runState) (string, string, error) {
	violations := contract.Validate(state.moments, contract.Options{
		Timeline:          state.tl,
		TargetWords:       o.targetWords,
		RegulationPeriods: state.league.RegulationPeriods,
	})
	res.Violations = violations
	if len(violations) > 0 {
		o.met.ContractFailures.Inc()
		var lines []string
		for _, v := range violations {
			lines = append(lines, v.String())
		}
		out := mustJSON(map[string]any{"violations": violations})
		return out, strings.Join(lines, "\n"),
			stageErr(StageValidateMoments, ErrCodeContractViolations, nil, "%d contract violations", len(violations))
	}
	return mustJSON(map[string]any{"violations": []any{}}), "", nil
}

func (o *Orchestrator) finalizeMoments(ctx context.Context, res *Result, state *runState) (string, string, error) {
	assembled, err := story.Assemble(state.moments)
	if err != nil {
		return "", "", stageErr(StageFinalizeMoments, ErrCodeInternal, err, "assembly refused")
	}
	res.Story = assembled

	content, hash, err := payload.Build(state.tl.GameID, assembled, state.groups)
	if err != nil {
		return "", "", stageErr(StageFinalizeMoments, ErrCodeInternal, err, "payload build failed")
	}

	version, err := o.st.PublishVersion(ctx, state.tl.GameID, hash, content, state.baseVersion)
	if err != nil {
		if errors.Is(err, store.ErrVersionConflict) {
			o.met.VersionConflicts.Inc()
			return "", "", stageErr(StageFinalizeMoments, ErrCodeVersionConflict, err, "lost single-active race")
		}
		return "", "", stageErr(StageFinalizeMoments, ErrCodeInternal, err, "publish failed")
	}
	o.met.VersionsPublished.Inc()
	res.Version = version

	out := mustJSON(map[string]any{
		"version": version.VersionNumber,
		"hash":    version.PayloadHash,
	})
	return out, "", nil
}

// renderMoment calls the rendering collaborator for one moment under the
// configured timeout.
func (o *Orchestrator) renderMoment(ctx context.Context, state *runState, m *partition.Moment) (string, error) {
	in := SectionInput{
		GameID:      state.tl.GameID,
		League:      state.tl.League,
		HomeTeam:    state.tl.HomeTeam,
		AwayTeam:    state.tl.AwayTeam,
		Period:      state.league.FormatPeriod(m.Period),
		ScoreBefore: [2]int{m.ScoreBefore.Home, m.ScoreBefore.Away},
		ScoreAfter:  [2]int{m.ScoreAfter.Home, m.ScoreAfter.Away},
		TargetWords: o.targetWords,
	}
	member := make(map[int]bool, len(m.PlayIDs))
	for _, id := range m.PlayIDs {
		member[id] = true
	}
	for _, p := range state.tl.Plays {
		if member[p.Index] {
			in.PlayLines = append(in.PlayLines, p.Description)
		}
	}
	for _, s := range state.tl.Social {
		if member[s.AfterIndex] {
			in.SocialLines = append(in.SocialLines, fmt.Sprintf("%s: %s", s.Handle, s.Text))
		}
	}

	rctx, cancel := context.WithTimeout(ctx, o.renderTimeout)
	defer cancel()
	return o.renderer.Render(rctx, in)
}

// skipRemaining records skipped rows for stages after a halt, so the
// ledger shows the full shape of the aborted run.
func (o *Orchestrator) skipRemaining(ctx context.Context, runID string, res *Result, from int) {
	for _, stage := range StageOrder[from:] {
		attempt, err := o.st.BeginStage(ctx, runID, string(stage))
		if err != nil {
			continue
		}
		if err := o.st.FinishStage(ctx, runID, string(stage), attempt, string(StatusSkipped), "", "", "", ""); err != nil {
			continue
		}
		o.met.StagesTotal.WithLabelValues(string(stage), string(StatusSkipped)).Inc()
		res.Stages = append(res.Stages, StageResult{Stage: stage, Attempt: attempt, Status: StatusSkipped})
	}
}

// adoptCompactLabels copies group labels back onto the canonical moment
// slice. Groups flatten to the same moment order they were built from.
func adoptCompactLabels(moments []partition.Moment, groups []compact.Group) {
	i := 0
	for _, g := range groups {
		for range g.Moments {
			if i < len(moments) {
				moments[i].CompactLabel = g.Label
			}
			i++
		}
	}
}

// retryable reports whether a stage failure may be retried from a fresh
// attempt: render timeouts and transient render failures only. Structural
// input, contract violations, and version conflicts never retry here.
func retryable(err error) bool {
	se, ok := IsStageError(err)
	if !ok {
		return false
	}
	if se.Code != ErrCodeRenderTimeout && se.Code != ErrCodeRenderFailed {
		return false
	}
	var re *RenderError
	return errors.As(err, &re) && re.Retryable()
}

// peekIdentity extracts game_id/league leniently for the run row; full
// validation happens in NORMALIZE_PBP.
func peekIdentity(doc []byte) (gameID, league string) {
	var peek struct {
		GameID string `json:"game_id"`
		League string `json:"league"`
	}
	_ = json.Unmarshal(doc, &peek)
	if peek.GameID == "" {
		peek.GameID = "unknown"
	}
	if peek.League == "" {
		peek.League = "unknown"
	}
	return peek.GameID, peek.League
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(b)
}

func indexOf(stage Stage) int {
	for i, s := range StageOrder {
		if s == stage {
			return i
		}
	}
	panic(fmt.Sprintf("pipeline: stage %q not in order", string(stage)))
}
