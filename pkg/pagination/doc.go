// Package pagination provides the cursor loop and positional batch
// dispatch shared by database queries and block children listing.
//
// Notion paginates with opaque cursors: each response carries has_more and
// next_cursor, so pages of one collection can only be fetched in sequence.
// Concurrency happens across the items of a batch instead:
//
//	err := pagination.Collect(ctx, fetch, func(b pagination.Batch[client.Page]) error {
//		results := pagination.ProcessBatch(ctx, lim, b.Items, render)
//		...
//	})
//
// Collect:
//   - Calls fetch with the empty cursor, then with each NextCursor
//   - Stops when HasMore is false or NextCursor is empty
//   - Hands each batch to onBatch before fetching the next
//
// ProcessBatch:
//   - Dispatches every item through a limiter.Limiter
//   - Returns one Result per item, in input order
package pagination
