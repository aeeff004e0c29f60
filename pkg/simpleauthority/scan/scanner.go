// Package scan finds content items that reference an authority and runs
// a processor over them. Operators use it to audit and repair references
// to authorities that no longer exist.
package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tendant/simple-authority/pkg/simpleauthority"
)

// Scanner walks the items referencing an authority.
type Scanner struct {
	authorities simpleauthority.AuthorityStore
	content     simpleauthority.ContentStore
	logger      *slog.Logger
}

// New creates a new Scanner instance. A nil logger uses slog.Default.
func New(authorities simpleauthority.AuthorityStore, content simpleauthority.ContentStore, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{authorities: authorities, content: content, logger: logger}
}

// ScanOptions configures the scan operation.
type ScanOptions struct {
	// Field is the metadata field the references live on
	Field string

	// AuthorityID is the referenced authority
	AuthorityID string

	// Processor defines the processing logic (required unless DryRun is true)
	Processor ItemProcessor

	// BatchSize controls how many ids to query at once (default: 100)
	BatchSize int

	// DryRun if true, doesn't process items, just reports what would be processed
	DryRun bool

	// OnProgress is called after each item (optional)
	OnProgress func(processed, found int64)
}

// ScanResult contains statistics about the scan operation.
type ScanResult struct {
	// Dangling is true when the referenced authority does not exist
	Dangling bool

	// TotalFound is the number of items referencing the authority
	TotalFound int64

	// TotalProcessed is the number of items successfully processed
	TotalProcessed int64

	// TotalFailed is the number of items that failed processing
	TotalFailed int64

	// FoundIDs contains the ids of every item found
	FoundIDs []string

	// FailedIDs contains the ids of items that failed processing
	FailedIDs []string
}

// Scan finds items whose statements on the field reference the authority
// and processes each one. If an item fails processing, the error is
// recorded and scanning continues with the next item.
func (s *Scanner) Scan(ctx context.Context, opts ScanOptions) (*ScanResult, error) {
	result := &ScanResult{}

	if opts.AuthorityID == "" {
		return result, fmt.Errorf("authority id is required")
	}
	if !opts.DryRun && opts.Processor == nil {
		return result, fmt.Errorf("processor is required when DryRun is false")
	}
	field := simpleauthority.NormalizeField(opts.Field)

	_, err := s.authorities.FindByID(ctx, opts.AuthorityID)
	switch {
	case errors.Is(err, simpleauthority.ErrAuthorityNotFound):
		result.Dangling = true
	case err != nil:
		return result, fmt.Errorf("failed to look up authority: %w", err)
	}

	for id, err := range simpleauthority.References(ctx, s.content, field, opts.AuthorityID, opts.BatchSize) {
		if err != nil {
			return result, fmt.Errorf("failed to list items: %w", err)
		}
		result.TotalFound++
		result.FoundIDs = append(result.FoundIDs, id)

		if opts.DryRun {
			s.logger.Info("Would process item", "item_id", id, "authority_id", opts.AuthorityID, "dangling", result.Dangling)
			result.TotalProcessed++
			s.progress(opts, result)
			continue
		}

		item, err := s.content.Reload(ctx, id)
		if err == nil {
			err = opts.Processor.Process(ctx, item)
		}
		if err != nil {
			result.TotalFailed++
			result.FailedIDs = append(result.FailedIDs, id)
			s.logger.Error("Failed to process item", "item_id", id, "error", err)
		} else {
			result.TotalProcessed++
		}
		s.progress(opts, result)
	}

	return result, nil
}

func (s *Scanner) progress(opts ScanOptions, result *ScanResult) {
	if opts.OnProgress != nil {
		opts.OnProgress(result.TotalProcessed+result.TotalFailed, result.TotalFound)
	}
}

// ForEach is a convenience method that processes each referencing item with
// a callback function.
func (s *Scanner) ForEach(ctx context.Context, field, authorityID string, fn func(context.Context, *simpleauthority.ContentItem) error) (*ScanResult, error) {
	return s.Scan(ctx, ScanOptions{
		Field:       field,
		AuthorityID: authorityID,
		Processor:   &funcProcessor{fn: fn},
	})
}
