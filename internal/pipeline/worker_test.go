package pipeline_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rallycap/moments/internal/pipeline"
)

func TestNewPoolValidation(t *testing.T) {
	orch, _ := newTestOrchestrator(t, constantRenderer(goodNarrative), nil)

	_, err := pipeline.NewPool(nil, 2, nil)
	require.Error(t, err)
	_, err = pipeline.NewPool(orch, 0, nil)
	require.Error(t, err)
	_, err = pipeline.NewPool(orch, -1, nil)
	require.Error(t, err)

	pool, err := pipeline.NewPool(orch, 2, nil)
	require.NoError(t, err)
	require.NotNil(t, pool)
}

func TestPoolRunAlignsResults(t *testing.T) {
	orch, st := newTestOrchestrator(t, constantRenderer(goodNarrative), nil)
	pool, err := pipeline.NewPool(orch, 3, nil)
	require.NoError(t, err)

	jobs := make([]pipeline.Job, 5)
	for i := range jobs {
		jobs[i] = pipeline.Job{Doc: fourPlayDoc(fmt.Sprintf("game-%d", i))}
	}
	// A structurally broken document in the middle fails its own job only.
	jobs[2] = pipeline.Job{Doc: []byte(`{"game_id":"broken","league":"nba"}`)}

	results := pool.Run(context.Background(), jobs)
	require.Len(t, results, len(jobs))

	for i, jr := range results {
		if i == 2 {
			require.Error(t, jr.Err)
			se, ok := pipeline.IsStageError(jr.Err)
			require.True(t, ok)
			assert.Equal(t, pipeline.ErrCodeStructuralInput, se.Code)
			continue
		}
		require.NoError(t, jr.Err, "job %d", i)
		require.NotNil(t, jr.Result)
		assert.Equal(t, fmt.Sprintf("game-%d", i), jr.Result.GameID)
		require.NotNil(t, jr.Result.Version)
	}

	// Each healthy game published independently.
	for _, id := range []string{"game-0", "game-1", "game-3", "game-4"} {
		v, err := st.ActiveVersion(context.Background(), id)
		require.NoError(t, err)
		require.NotNil(t, v, id)
	}
}

func TestPoolRunCancelled(t *testing.T) {
	orch, _ := newTestOrchestrator(t, constantRenderer(goodNarrative), nil)
	pool, err := pipeline.NewPool(orch, 1, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	jobs := []pipeline.Job{{Doc: fourPlayDoc("game-1")}, {Doc: fourPlayDoc("game-2")}}
	results := pool.Run(ctx, jobs)
	require.Len(t, results, 2)
	// With the context already cancelled, every job fails, either with
	// ctx.Err() before dispatch or inside the run's first store call.
	assert.Error(t, results[0].Err)
	assert.Error(t, results[1].Err)
}
