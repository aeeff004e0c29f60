package simpleauthority

import (
	"context"
	"iter"
)

// DefaultScanBatchSize is the page size used when scanning references.
const DefaultScanBatchSize = 100

// References returns a lazy, finite sequence of the ids of items whose
// statements on field link to authorityID.
//
// Pages are fetched by keyset (ids strictly after the last one seen), so
// rewriting items while iterating never skips a page. The sequence holds
// no connection between pages and every call to the returned function
// starts over from the first id, which makes a retry after a partial
// failure well defined. Iteration stops after the first error.
func References(ctx context.Context, store ContentStore, field, authorityID string, batchSize int) iter.Seq2[string, error] {
	if batchSize <= 0 {
		batchSize = DefaultScanBatchSize
	}
	return func(yield func(string, error) bool) {
		after := ""
		for {
			ids, err := store.FindItemsReferencingAuthority(ctx, field, authorityID, after, batchSize)
			if err != nil {
				yield("", err)
				return
			}
			for _, id := range ids {
				if !yield(id, nil) {
					return
				}
			}
			if len(ids) < batchSize {
				return
			}
			after = ids[len(ids)-1]
		}
	}
}
