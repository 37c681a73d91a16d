package store

import (
	"context"
	"fmt"
	"time"
)

// Run is a persisted pipeline run row.
type Run struct {
	ID        string
	GameID    string
	League    string
	Trigger   string // "auto" | "manual"
	AutoChain bool
	CreatedAt time.Time
}

// StageRow is one append-only row of the stage ledger.
type StageRow struct {
	Seq         int64
	RunID       string
	Stage       string
	Attempt     int
	Status      string
	Output      string
	Logs        string
	ErrorCode   string
	ErrorDetail string
}

// Terminal stage statuses. A row carrying one of these is frozen.
var terminalStatuses = map[string]bool{
	"success": true,
	"failed":  true,
	"skipped": true,
}

// ErrStageFrozen is returned when an update targets a stage row that has
// already reached a terminal status. The ledger never rewrites history; the
// caller must append a fresh attempt instead.
type ErrStageFrozen struct {
	RunID   string
	Stage   string
	Attempt int
}

func (e *ErrStageFrozen) Error() string {
	return fmt.Sprintf("stage %s attempt %d of run %s is terminal and cannot be updated", e.Stage, e.Attempt, e.RunID)
}

// CreateRun inserts a pipeline run row.
func (s *Store) CreateRun(ctx context.Context, r Run) error {
	autoChain := 0
	if r.AutoChain {
		autoChain = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pipeline_runs (id, game_id, league, "trigger", auto_chain, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, r.ID, r.GameID, r.League, r.Trigger, autoChain, r.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("create run: %w", err)
	}
	return nil
}

// BeginStage appends a new stage row in the pending status and returns its
// attempt number. Each retry of a stage gets its own row; attempts start
// at 1.
func (s *Store) BeginStage(ctx context.Context, runID, stage string) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin stage: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	var attempt int
	err = tx.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(attempt), 0) + 1 FROM pipeline_stages
		WHERE run_id = ? AND stage = ?
	`, runID, stage).Scan(&attempt)
	if err != nil {
		return 0, fmt.Errorf("begin stage: next attempt: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO pipeline_stages (run_id, stage, attempt, status)
		VALUES (?, ?, ?, 'pending')
	`, runID, stage, attempt)
	if err != nil {
		return 0, fmt.Errorf("begin stage: insert: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("begin stage: commit: %w", err)
	}
	return attempt, nil
}

// MarkStageRunning transitions a pending stage row to running.
func (s *Store) MarkStageRunning(ctx context.Context, runID, stage string, attempt int) error {
	return s.transition(ctx, runID, stage, attempt, "running", "", "", "", "")
}

// FinishStage records a terminal status with the stage's verbatim output
// and log lines. Once written, the row is frozen.
func (s *Store) FinishStage(ctx context.Context, runID, stage string, attempt int, status, output, logs, errorCode, errorDetail string) error {
	if !terminalStatuses[status] {
		return fmt.Errorf("finish stage: %q is not a terminal status", status)
	}
	return s.transition(ctx, runID, stage, attempt, status, output, logs, errorCode, errorDetail)
}

// transition updates a stage row, guarded so terminal rows stay frozen.
// The WHERE clause excludes terminal statuses; zero rows affected on an
// existing row means someone tried to rewrite history.
func (s *Store) transition(ctx context.Context, runID, stage string, attempt int, status, output, logs, errorCode, errorDetail string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE pipeline_stages
		SET status = ?, output = ?, logs = ?, error_code = ?, error_detail = ?
		WHERE run_id = ? AND stage = ? AND attempt = ?
		  AND status NOT IN ('success', 'failed', 'skipped')
	`, status, output, logs, errorCode, errorDetail, runID, stage, attempt)
	if err != nil {
		return fmt.Errorf("update stage: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update stage: rows affected: %w", err)
	}
	if n == 0 {
		var exists int
		err := s.db.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM pipeline_stages
			WHERE run_id = ? AND stage = ? AND attempt = ?
		`, runID, stage, attempt).Scan(&exists)
		if err != nil {
			return fmt.Errorf("update stage: check row: %w", err)
		}
		if exists > 0 {
			return &ErrStageFrozen{RunID: runID, Stage: stage, Attempt: attempt}
		}
		return fmt.Errorf("update stage: no such row (run=%s stage=%s attempt=%d)", runID, stage, attempt)
	}
	return nil
}

// ReadStages returns every ledger row for a run in insertion order.
// Ordering uses the seq rowid, never timestamps.
func (s *Store) ReadStages(ctx context.Context, runID string) ([]StageRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, run_id, stage, attempt, status, output, logs, error_code, error_detail
		FROM pipeline_stages
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("read stages: %w", err)
	}
	defer rows.Close()

	stages := []StageRow{}
	for rows.Next() {
		var r StageRow
		if err := rows.Scan(&r.Seq, &r.RunID, &r.Stage, &r.Attempt, &r.Status, &r.Output, &r.Logs, &r.ErrorCode, &r.ErrorDetail); err != nil {
			return nil, fmt.Errorf("scan stage: %w", err)
		}
		stages = append(stages, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stages: %w", err)
	}
	return stages, nil
}

// ReadRun returns a run row by id.
func (s *Store) ReadRun(ctx context.Context, runID string) (*Run, error) {
	var r Run
	var autoChain int
	var createdAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, game_id, league, "trigger", auto_chain, created_at
		FROM pipeline_runs WHERE id = ?
	`, runID).Scan(&r.ID, &r.GameID, &r.League, &r.Trigger, &autoChain, &createdAt)
	if err != nil {
		return nil, fmt.Errorf("read run %s: %w", runID, err)
	}
	r.AutoChain = autoChain != 0
	if ts, err := time.Parse(time.RFC3339, createdAt); err == nil {
		r.CreatedAt = ts
	}
	return &r, nil
}
