package simpleauthority

import (
	"context"
	"time"
)

// AuthorityStore defines persistence for authority records
type AuthorityStore interface {
	// FindByID returns ErrAuthorityNotFound when the id is unknown
	FindByID(ctx context.Context, id string) (*AuthorityRecord, error)

	// Create persists the record and returns its id. An empty record ID is
	// assigned by the store.
	Create(ctx context.Context, record *AuthorityRecord) (string, error)

	// Delete removes the record. Deleting an absent id is a no-op.
	Delete(ctx context.Context, id string) error
}

// ContentStore defines persistence for content items and their metadata
type ContentStore interface {
	// FindItemsReferencingAuthority returns up to limit item ids, in
	// ascending order and strictly greater than afterID, whose statements on
	// field link to authorityID. The result reflects stored data, never the
	// search index.
	FindItemsReferencingAuthority(ctx context.Context, field, authorityID, afterID string, limit int) ([]string, error)

	// Reload reads the current state of an item. Returns ErrItemNotFound
	// when the item is gone.
	Reload(ctx context.Context, id string) (*ContentItem, error)

	// Update persists the item's statements in order.
	Update(ctx context.Context, item *ContentItem) error
}

// Tx is one transactional context spanning the authority store and the
// content store. Exactly one of Commit or Rollback releases it; further
// calls return ErrTxDone.
type Tx interface {
	Authorities() AuthorityStore
	Content() ContentStore
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Transactor opens transactional contexts
type Transactor interface {
	Begin(ctx context.Context) (Tx, error)
}

// AuthorityIndex is the search index over authority records. Writes go
// through a batch owned by one caller.
type AuthorityIndex interface {
	BeginAuthorities(ctx context.Context) (AuthorityBatch, error)
}

// AuthorityBatch stages authority index writes. They are invisible to
// searches and to other batches until Commit. Discard drops them; after
// Commit or Discard, Discard is a no-op and every other call returns
// ErrBatchDone.
type AuthorityBatch interface {
	IndexAuthority(ctx context.Context, record *AuthorityRecord) error
	RemoveAuthority(ctx context.Context, id string) error
	Commit(ctx context.Context) error
	Discard(ctx context.Context) error
}

// ContentIndex is the search index over content items
type ContentIndex interface {
	BeginItems(ctx context.Context) (ContentBatch, error)
}

// ContentBatch stages content index writes with the same visibility rules
// as AuthorityBatch.
type ContentBatch interface {
	// IndexItem submits the item for indexing. Without force, an item whose
	// revision is already committed to the index is skipped.
	IndexItem(ctx context.Context, item *ContentItem, force bool) error
	Commit(ctx context.Context) error
	Discard(ctx context.Context) error
}

// CapabilityGate answers the authorization and feature-flag questions a
// rename depends on
type CapabilityGate interface {
	// RenameEnabled reports whether renames of the given kind are enabled
	RenameEnabled(kind Kind) bool

	// ExternalRenameEnabled reports whether externally sourced authorities
	// may be renamed
	ExternalRenameEnabled() bool

	// IsAdministrator reports whether the caller holds administrative rights
	IsAdministrator(ctx context.Context, caller Caller) bool
}

// EventSink receives notifications about completed renames
type EventSink interface {
	AuthorityRenamed(ctx context.Context, event AuthorityRenamed) error
}

// Observer is told about the outcome of every rename attempt.
// outcome is "success" or the error class name.
type Observer interface {
	RenameFinished(outcome string, itemsUpdated int, duration time.Duration)
}
