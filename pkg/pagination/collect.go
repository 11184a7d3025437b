package pagination

import (
	"context"
	"fmt"
)

// Batch is one page of a cursor-paginated collection.
type Batch[T any] struct {
	Items      []T
	NextCursor string
	HasMore    bool
}

// FetchFunc fetches the batch starting at cursor ("" for the first).
type FetchFunc[T any] func(ctx context.Context, cursor string) (Batch[T], error)

// Collect walks a collection batch by batch. A fetch error or an onBatch
// error stops the walk and is returned; fetch errors are returned as is.
func Collect[T any](ctx context.Context, fetch FetchFunc[T], onBatch func(Batch[T]) error) error {
	cursor := ""
	seen := make(map[string]bool)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		batch, err := fetch(ctx, cursor)
		if err != nil {
			return err
		}
		if err := onBatch(batch); err != nil {
			return err
		}

		if !batch.HasMore || batch.NextCursor == "" {
			return nil
		}
		if seen[batch.NextCursor] {
			return fmt.Errorf("pagination: cursor %q repeated", batch.NextCursor)
		}
		seen[batch.NextCursor] = true
		cursor = batch.NextCursor
	}
}

// All collects every item of a collection in order.
func All[T any](ctx context.Context, fetch FetchFunc[T]) ([]T, error) {
	var items []T
	err := Collect(ctx, fetch, func(b Batch[T]) error {
		items = append(items, b.Items...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}
