package twin

import (
	"context"
	"sync"

	"github.com/sentomas/Digital-Twin-CNC/internal/health"
	"github.com/sentomas/Digital-Twin-CNC/internal/machine"
	"github.com/sentomas/Digital-Twin-CNC/internal/prognosis"
)

// RunResult is the summary of one ensemble member.
type RunResult struct {
	Seed      int64
	Stats     health.Statistics
	FinalWear float64
	Cycles    int
	Estimate  prognosis.Estimate
}

// Ensemble runs the same machine configuration across consecutive
// seeds in parallel, one twin per seed. Useful for judging how much of
// an outcome is sensor noise versus the configuration itself.
type Ensemble struct {
	params    machine.Parameters
	cmd       machine.Command
	seedStart int64
	numRuns   int
}

func NewEnsemble(params machine.Parameters, cmd machine.Command, seedStart int64, numRuns int) *Ensemble {
	return &Ensemble{
		params:    params,
		cmd:       cmd,
		seedStart: seedStart,
		numRuns:   numRuns,
	}
}

// Run advances every member by steps ticks and returns their summaries
// ordered by seed. The first member error, typically a cancelled
// context, fails the whole ensemble.
func (e *Ensemble) Run(ctx context.Context, steps int) ([]RunResult, error) {
	results := make([]RunResult, e.numRuns)
	errs := make([]error, e.numRuns)

	var wg sync.WaitGroup
	for i := 0; i < e.numRuns; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			seed := e.seedStart + int64(idx)
			tw := New(e.params, e.cmd, seed, nil)
			if err := tw.RunSteps(ctx, steps); err != nil {
				errs[idx] = err
				return
			}
			results[idx] = RunResult{
				Seed:      seed,
				Stats:     tw.Stats(),
				FinalWear: tw.State().Wear,
				Cycles:    len(tw.Reports()),
				Estimate:  tw.Estimate(),
			}
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}

// WorstStatus reduces an ensemble to its most severe member status.
func WorstStatus(results []RunResult) health.Status {
	worst := health.StatusOptimal
	for _, r := range results {
		if r.Stats.Status > worst {
			worst = r.Stats.Status
		}
	}
	return worst
}
