package simpleauthority

import (
	"context"
)

// Service defines the main interface for the simple-authority library
type Service interface {
	// Rename replaces the value of an authority record, relinks every
	// referencing metadata statement to the replacement record and
	// reindexes both the authority and the touched items. It returns the id
	// of the replacement record.
	//
	// The id and value are trimmed of surrounding whitespace (see
	// RenameRequest.Normalize) before validation. The replacement record,
	// the rewritten statements and the event carry the trimmed value.
	Rename(ctx context.Context, req RenameRequest, caller Caller) (string, error)
}
