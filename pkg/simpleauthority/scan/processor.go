package scan

import (
	"context"
	"fmt"

	"github.com/tendant/simple-authority/pkg/simpleauthority"
)

// ItemProcessor processes individual content items found by a scan.
//
// Example implementations:
//   - Relinker (points references at a replacement authority)
//   - Reindexer (resubmits items to the content index)
//   - Reporter (exports affected items)
type ItemProcessor interface {
	// Process is called for each item found during scan.
	// Return error to mark this item as failed (scan continues with next item).
	Process(ctx context.Context, item *simpleauthority.ContentItem) error
}

// RelinkProcessor rewrites statements that reference a retired authority
// so they carry a replacement id and value, then saves the item. It repairs
// references written after the rename, such as imports or edits made
// outside the service, or left by a content store that does not share the
// rename's transaction.
type RelinkProcessor struct {
	Store   simpleauthority.ContentStore
	Index   simpleauthority.ContentIndex
	Field   string
	OldID   string
	NewID   string
	Value   string
	Updated int
}

func (p *RelinkProcessor) Process(ctx context.Context, item *simpleauthority.ContentItem) error {
	if simpleauthority.RewriteStatements(item, p.Field, p.OldID, p.NewID, p.Value) == 0 {
		return nil
	}
	if err := p.Store.Update(ctx, item); err != nil {
		return fmt.Errorf("update item %s: %w", item.ID, err)
	}
	if p.Index != nil {
		if err := reindex(ctx, p.Index, item); err != nil {
			return err
		}
	}
	p.Updated++
	return nil
}

// ReindexProcessor resubmits every scanned item to a content index, one
// committed batch per item. It brings the index back in line with stored
// data, for example after a rename whose content index commit failed.
type ReindexProcessor struct {
	Index simpleauthority.ContentIndex
}

func (p *ReindexProcessor) Process(ctx context.Context, item *simpleauthority.ContentItem) error {
	return reindex(ctx, p.Index, item)
}

func reindex(ctx context.Context, index simpleauthority.ContentIndex, item *simpleauthority.ContentItem) error {
	batch, err := index.BeginItems(ctx)
	if err != nil {
		return fmt.Errorf("begin index batch: %w", err)
	}
	if err := batch.IndexItem(ctx, item, true); err != nil {
		_ = batch.Discard(ctx)
		return fmt.Errorf("index item %s: %w", item.ID, err)
	}
	if err := batch.Commit(ctx); err != nil {
		_ = batch.Discard(ctx)
		return fmt.Errorf("commit index item %s: %w", item.ID, err)
	}
	return nil
}

// funcProcessor adapts a function to the ItemProcessor interface.
type funcProcessor struct {
	fn func(context.Context, *simpleauthority.ContentItem) error
}

func (p *funcProcessor) Process(ctx context.Context, item *simpleauthority.ContentItem) error {
	return p.fn(ctx, item)
}
