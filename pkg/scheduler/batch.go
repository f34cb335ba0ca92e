package scheduler

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// BatchOutcome is the result of one sequence in a batch. Err holds parse and
// other fatal run errors; they do not stop the rest of the batch.
type BatchOutcome struct {
	Input  string
	Result *Result
	Err    error
}

// RunBatch simulates independent sequences concurrently, at most parallelism
// at a time (no limit if parallelism <= 0). Each sequence gets its own run
// state, so runs share nothing. Outcomes keep the order of inputs.
//
// The returned error is non-nil only when ctx is cancelled before every
// sequence started.
func RunBatch(ctx context.Context, inputs []string, alg Algorithm, opts Options, parallelism int) ([]BatchOutcome, error) {
	outcomes := make([]BatchOutcome, len(inputs))

	g, gctx := errgroup.WithContext(ctx)
	if parallelism > 0 {
		g.SetLimit(parallelism)
	}

	for i, input := range inputs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			result, err := Simulate(input, alg, opts)
			outcomes[i] = BatchOutcome{Input: input, Result: result, Err: err}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return outcomes, err
	}
	return outcomes, nil
}
