package store

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "moments.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestOpenIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "moments.db")

	st, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	// Reopening an existing database must not fail on schema reapplication.
	st2, err := Open(path)
	require.NoError(t, err)
	defer st2.Close()

	var version int
	require.NoError(t, st2.DB().QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, currentSchemaVersion, version)
}

func TestCreateAndReadRun(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	created := time.Date(2026, 3, 14, 19, 30, 0, 0, time.UTC)
	require.NoError(t, st.CreateRun(ctx, Run{
		ID:        "run-1",
		GameID:    "game-1",
		League:    "nba",
		Trigger:   "auto",
		AutoChain: true,
		CreatedAt: created,
	}))

	r, err := st.ReadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "game-1", r.GameID)
	assert.Equal(t, "nba", r.League)
	assert.Equal(t, "auto", r.Trigger)
	assert.True(t, r.AutoChain)
	assert.Equal(t, created, r.CreatedAt)
}

func TestReadRunMissing(t *testing.T) {
	st := openTestStore(t)

	_, err := st.ReadRun(context.Background(), "no-such-run")
	require.Error(t, err)
}

func TestBeginStageAttemptNumbering(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.CreateRun(ctx, Run{ID: "run-1", GameID: "g", League: "nba", Trigger: "manual", CreatedAt: time.Now()}))

	for want := 1; want <= 3; want++ {
		attempt, err := st.BeginStage(ctx, "run-1", "NORMALIZE_PBP")
		require.NoError(t, err)
		assert.Equal(t, want, attempt)
	}

	// A different stage starts its own attempt sequence.
	attempt, err := st.BeginStage(ctx, "run-1", "DERIVE_SIGNALS")
	require.NoError(t, err)
	assert.Equal(t, 1, attempt)
}

func TestStageLifecycle(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.CreateRun(ctx, Run{ID: "run-1", GameID: "g", League: "nba", Trigger: "manual", CreatedAt: time.Now()}))

	attempt, err := st.BeginStage(ctx, "run-1", "NORMALIZE_PBP")
	require.NoError(t, err)
	require.NoError(t, st.MarkStageRunning(ctx, "run-1", "NORMALIZE_PBP", attempt))
	require.NoError(t, st.FinishStage(ctx, "run-1", "NORMALIZE_PBP", attempt,
		"success", `{"plays":12}`, "normalized 12 plays", "", ""))

	stages, err := st.ReadStages(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, stages, 1)
	row := stages[0]
	assert.Equal(t, "NORMALIZE_PBP", row.Stage)
	assert.Equal(t, 1, row.Attempt)
	assert.Equal(t, "success", row.Status)
	assert.Equal(t, `{"plays":12}`, row.Output)
	assert.Equal(t, "normalized 12 plays", row.Logs)
	assert.Empty(t, row.ErrorCode)
}

func TestFinishStageRejectsNonTerminalStatus(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.CreateRun(ctx, Run{ID: "run-1", GameID: "g", League: "nba", Trigger: "manual", CreatedAt: time.Now()}))
	attempt, err := st.BeginStage(ctx, "run-1", "NORMALIZE_PBP")
	require.NoError(t, err)

	err = st.FinishStage(ctx, "run-1", "NORMALIZE_PBP", attempt, "running", "", "", "", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a terminal status")
}

func TestTerminalRowIsFrozen(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.CreateRun(ctx, Run{ID: "run-1", GameID: "g", League: "nba", Trigger: "manual", CreatedAt: time.Now()}))
	attempt, err := st.BeginStage(ctx, "run-1", "GENERATE_MOMENTS")
	require.NoError(t, err)
	require.NoError(t, st.FinishStage(ctx, "run-1", "GENERATE_MOMENTS", attempt,
		"failed", "", "", "RENDER_TIMEOUT", "renderer timed out"))

	// The failed row cannot be revived or rewritten.
	var frozen *ErrStageFrozen
	err = st.MarkStageRunning(ctx, "run-1", "GENERATE_MOMENTS", attempt)
	require.ErrorAs(t, err, &frozen)
	assert.Equal(t, "run-1", frozen.RunID)
	assert.Equal(t, "GENERATE_MOMENTS", frozen.Stage)
	assert.Equal(t, attempt, frozen.Attempt)

	err = st.FinishStage(ctx, "run-1", "GENERATE_MOMENTS", attempt, "success", "", "", "", "")
	require.ErrorAs(t, err, &frozen)

	// The retry path appends a new attempt instead.
	next, err := st.BeginStage(ctx, "run-1", "GENERATE_MOMENTS")
	require.NoError(t, err)
	assert.Equal(t, attempt+1, next)

	stages, err := st.ReadStages(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, stages, 2)
	assert.Equal(t, "failed", stages[0].Status)
	assert.Equal(t, "RENDER_TIMEOUT", stages[0].ErrorCode)
	assert.Equal(t, "pending", stages[1].Status)
}

func TestTransitionMissingRow(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.CreateRun(ctx, Run{ID: "run-1", GameID: "g", League: "nba", Trigger: "manual", CreatedAt: time.Now()}))

	err := st.MarkStageRunning(ctx, "run-1", "NORMALIZE_PBP", 7)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such row")
}

func TestReadStagesInsertionOrder(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.CreateRun(ctx, Run{ID: "run-1", GameID: "g", League: "nba", Trigger: "manual", CreatedAt: time.Now()}))
	require.NoError(t, st.CreateRun(ctx, Run{ID: "run-2", GameID: "g", League: "nba", Trigger: "manual", CreatedAt: time.Now()}))

	order := []string{"NORMALIZE_PBP", "DERIVE_SIGNALS", "GENERATE_MOMENTS", "GENERATE_MOMENTS"}
	for _, stage := range order {
		_, err := st.BeginStage(ctx, "run-1", stage)
		require.NoError(t, err)
	}
	// Rows of other runs must not leak in.
	_, err := st.BeginStage(ctx, "run-2", "NORMALIZE_PBP")
	require.NoError(t, err)

	stages, err := st.ReadStages(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, stages, len(order))
	for i, row := range stages {
		assert.Equal(t, order[i], row.Stage, "row %d", i)
		assert.Equal(t, "run-1", row.RunID)
		if i > 0 {
			assert.Greater(t, row.Seq, stages[i-1].Seq)
		}
	}
	assert.Equal(t, 1, stages[2].Attempt)
	assert.Equal(t, 2, stages[3].Attempt)
}

func TestPublishVersionNumberingAndActiveFlag(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	v1, err := st.PublishVersion(ctx, "game-1", "hash-1", []byte(`{"v":1}`), 0)
	require.NoError(t, err)
	assert.Equal(t, 1, v1.VersionNumber)
	assert.True(t, v1.IsActive)

	v2, err := st.PublishVersion(ctx, "game-1", "hash-2", []byte(`{"v":2}`), 1)
	require.NoError(t, err)
	assert.Equal(t, 2, v2.VersionNumber)

	// Version numbers are scoped per game.
	other, err := st.PublishVersion(ctx, "game-2", "hash-3", []byte(`{"v":1}`), 0)
	require.NoError(t, err)
	assert.Equal(t, 1, other.VersionNumber)

	active, err := st.ActiveVersion(ctx, "game-1")
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, 2, active.VersionNumber)
	assert.Equal(t, "hash-2", active.PayloadHash)
	assert.Equal(t, []byte(`{"v":2}`), active.Content)

	history, err := st.ListVersions(ctx, "game-1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, 1, history[0].VersionNumber)
	assert.False(t, history[0].IsActive)
	assert.Equal(t, 2, history[1].VersionNumber)
	assert.True(t, history[1].IsActive)
}

func TestActiveVersionNoneYet(t *testing.T) {
	st := openTestStore(t)

	v, err := st.ActiveVersion(context.Background(), "game-1")
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestGetVersion(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	_, err := st.PublishVersion(ctx, "game-1", "hash-1", []byte(`{"v":1}`), 0)
	require.NoError(t, err)
	_, err = st.PublishVersion(ctx, "game-1", "hash-2", []byte(`{"v":2}`), 1)
	require.NoError(t, err)

	v, err := st.GetVersion(ctx, "game-1", 1)
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, "hash-1", v.PayloadHash)
	assert.False(t, v.IsActive)

	missing, err := st.GetVersion(ctx, "game-1", 9)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSingleActiveInvariantAtStorageLevel(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	_, err := st.PublishVersion(ctx, "game-1", "hash-1", []byte(`{}`), 0)
	require.NoError(t, err)

	// A second active row for the same game violates the partial unique
	// index even when inserted directly.
	_, err = st.DB().ExecContext(ctx, `
		INSERT INTO payload_versions (game_id, version_number, payload_hash, content, is_active, created_at)
		VALUES ('game-1', 2, 'hash-2', X'7B7D', 1, '2026-03-14T19:00:00Z')
	`)
	require.Error(t, err)
	assert.True(t, isUniqueViolation(err))
}

func TestHistoryNeverRewritten(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	v1, err := st.PublishVersion(ctx, "game-1", "hash-1", []byte(`{"v":1}`), 0)
	require.NoError(t, err)
	_, err = st.PublishVersion(ctx, "game-1", "hash-2", []byte(`{"v":2}`), 1)
	require.NoError(t, err)

	// Publishing a new version only flips the active flag on the old
	// row; its content and hash are untouched.
	old, err := st.GetVersion(ctx, "game-1", v1.VersionNumber)
	require.NoError(t, err)
	require.NotNil(t, old)
	assert.Equal(t, "hash-1", old.PayloadHash)
	assert.Equal(t, []byte(`{"v":1}`), old.Content)
	assert.False(t, old.IsActive)
}

func TestPublishVersionStaleBaseConflict(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	_, err := st.PublishVersion(ctx, "game-1", "hash-1", []byte(`{"v":1}`), 0)
	require.NoError(t, err)

	// A second publisher that also observed no versions loses cleanly.
	_, err = st.PublishVersion(ctx, "game-1", "hash-2", []byte(`{"v":2}`), 0)
	require.ErrorIs(t, err, ErrVersionConflict)

	active, err := st.ActiveVersion(ctx, "game-1")
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, 1, active.VersionNumber)
	assert.Equal(t, "hash-1", active.PayloadHash)

	history, err := st.ListVersions(ctx, "game-1")
	require.NoError(t, err)
	assert.Len(t, history, 1, "the loser must not have written anything")
}

func TestPublishVersionConcurrentRace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "moments.db")
	a, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	b, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })

	ctx := context.Background()
	handles := []*Store{a, b}
	errs := make([]error, 2)

	// Both finalizers observed the same empty history before racing.
	var wg sync.WaitGroup
	for i := range handles {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = handles[i].PublishVersion(ctx, "game-1", "hash", []byte(`{}`), 0)
		}(i)
	}
	wg.Wait()

	conflicts := 0
	for _, err := range errs {
		if err != nil {
			require.ErrorIs(t, err, ErrVersionConflict)
			conflicts++
		}
	}
	assert.Equal(t, 1, conflicts, "exactly one publisher must lose")

	history, err := a.ListVersions(ctx, "game-1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.True(t, history[0].IsActive)
}
