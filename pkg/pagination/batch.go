package pagination

import (
	"context"
	"sync"
	"time"

	"github.com/Sternrassler/notion-export/pkg/limiter"
	"github.com/rs/zerolog/log"
)

// Result is the outcome of processing one item of a batch.
type Result[Out any] struct {
	Value Out
	Err   error
}

// ProcessBatch runs fn for every item through lim and returns the results
// positionally: results[i] belongs to items[i] whatever the completion
// order. Failures are reported per item and never stop sibling items.
func ProcessBatch[In, Out any](ctx context.Context, lim *limiter.Limiter, items []In, fn func(context.Context, In) (Out, error)) []Result[Out] {
	start := time.Now()
	results := make([]Result[Out], len(items))

	var wg sync.WaitGroup
	for i, item := range items {
		wg.Add(1)
		go func(i int, item In) {
			defer wg.Done()
			err := lim.Run(ctx, func(ctx context.Context) error {
				v, err := fn(ctx, item)
				results[i] = Result[Out]{Value: v, Err: err}
				return err
			})
			if err != nil && results[i].Err == nil {
				// limiter wait ended before the task ran
				results[i].Err = err
			}
		}(i, item)
	}
	wg.Wait()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	log.Debug().
		Int("items", len(items)).
		Int("failed", failed).
		Dur("duration", time.Since(start)).
		Msg("Batch processed")

	return results
}
