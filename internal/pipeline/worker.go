package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/rallycap/moments/internal/logger"
)

// Job is one game document queued for processing.
type Job struct {
	Doc  []byte
	Opts RunOptions
}

// JobResult pairs a job's outcome with its error, in submission order.
type JobResult struct {
	Result *Result
	Err    error
}

// Pool fans games out over a bounded set of workers. Runs for different
// games are independent; ordering only matters within a game, and the
// store's single-active constraint arbitrates concurrent finalizes.
type Pool struct {
	orch    *Orchestrator
	workers int
	log     logger.Logger
}

// NewPool builds a pool over orch with the given concurrency.
func NewPool(orch *Orchestrator, workers int, log logger.Logger) (*Pool, error) {
	if orch == nil {
		return nil, fmt.Errorf("pipeline: orchestrator is required")
	}
	if workers <= 0 {
		return nil, fmt.Errorf("pipeline: workers must be positive, got %d", workers)
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Pool{orch: orch, workers: workers, log: log.Named("pool")}, nil
}

// Run processes every job and returns results aligned with the input
// slice. Individual run failures are reported per job, not returned as a
// pool error; only ctx cancellation stops the pool early.
func (p *Pool) Run(ctx context.Context, jobs []Job) []JobResult {
	results := make([]JobResult, len(jobs))
	idx := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < p.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range idx {
				res, err := p.orch.ProcessGame(ctx, jobs[i].Doc, jobs[i].Opts)
				results[i] = JobResult{Result: res, Err: err}
				if err != nil {
					p.log.Warn(ctx, "job failed",
						logger.Int("job", i), logger.Error(err))
				}
			}
		}()
	}

	for i := range jobs {
		select {
		case idx <- i:
		case <-ctx.Done():
			results[i] = JobResult{Err: ctx.Err()}
		}
	}
	close(idx)
	wg.Wait()
	return results
}
