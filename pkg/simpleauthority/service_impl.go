package simpleauthority

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// service implements the Service interface
type service struct {
	transactor     Transactor
	authorityIndex AuthorityIndex
	contentIndex   ContentIndex
	gate           CapabilityGate
	eventSink      EventSink
	observer       Observer
	logger         *slog.Logger
	scanBatchSize  int
	locks          *keyedMutex
	now            func() time.Time
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithTransactor sets the source of transactional contexts over the
// authority and content stores
func WithTransactor(t Transactor) Option {
	return func(s *service) {
		s.transactor = t
	}
}

// WithAuthorityIndex sets the authority search index
func WithAuthorityIndex(index AuthorityIndex) Option {
	return func(s *service) {
		s.authorityIndex = index
	}
}

// WithContentIndex sets the content search index
func WithContentIndex(index ContentIndex) Option {
	return func(s *service) {
		s.contentIndex = index
	}
}

// WithCapabilityGate sets the authorization and feature-flag gate
func WithCapabilityGate(gate CapabilityGate) Option {
	return func(s *service) {
		s.gate = gate
	}
}

// WithEventSink sets the event sink for the service
func WithEventSink(sink EventSink) Option {
	return func(s *service) {
		s.eventSink = sink
	}
}

// WithObserver sets the rename outcome observer
func WithObserver(o Observer) Option {
	return func(s *service) {
		s.observer = o
	}
}

// WithLogger sets the structured logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *service) {
		s.logger = logger
	}
}

// WithScanBatchSize sets the page size used to find referencing items
func WithScanBatchSize(n int) Option {
	return func(s *service) {
		s.scanBatchSize = n
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (Service, error) {
	s := &service{
		eventSink:     NewNoopEventSink(),
		observer:      NoopObserver{},
		scanBatchSize: DefaultScanBatchSize,
		locks:         newKeyedMutex(),
		now:           func() time.Time { return time.Now().UTC() },
	}

	for _, option := range options {
		option(s)
	}

	if s.transactor == nil {
		return nil, fmt.Errorf("transactor is required")
	}
	if s.authorityIndex == nil {
		return nil, fmt.Errorf("authority index is required")
	}
	if s.contentIndex == nil {
		return nil, fmt.Errorf("content index is required")
	}
	if s.gate == nil {
		return nil, fmt.Errorf("capability gate is required")
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	return s, nil
}

func (s *service) Rename(ctx context.Context, req RenameRequest, caller Caller) (newID string, err error) {
	start := time.Now()
	items := 0
	req = req.Normalize()
	defer func() {
		s.observer.RenameFinished(outcomeOf(err), items, time.Since(start))
	}()

	if !s.gate.RenameEnabled(KindPerson) {
		return "", newRenameError(req.AuthorityID, "check_enabled", ErrDisabled, nil)
	}
	if !s.gate.IsAdministrator(ctx, caller) {
		return "", newRenameError(req.AuthorityID, "authorize", ErrUnauthorized, nil)
	}
	if verr := req.Validate(); verr != nil {
		return "", newRenameError(req.AuthorityID, "validate", ErrValidationFailure, verr)
	}

	// Past the gates the rename completes or fails as a unit; caller
	// cancellation no longer applies.
	ctx = context.WithoutCancel(ctx)

	unlock := s.locks.Lock(req.AuthorityID)
	defer unlock()

	s.logger.Info("Updating authority value",
		"authority_id", req.AuthorityID, "value", req.Value, "caller", caller.Subject)

	newID, items, err = s.rename(ctx, req)
	if err != nil {
		s.logger.Error("Could not update authority value",
			"authority_id", req.AuthorityID, "error", err)
		return "", err
	}

	s.logger.Info("Authority value updated",
		"authority_id", req.AuthorityID, "new_authority_id", newID, "items_updated", items)
	return newID, nil
}

func (s *service) rename(ctx context.Context, req RenameRequest) (string, int, error) {
	tx, err := s.transactor.Begin(ctx)
	if err != nil {
		return "", 0, newRenameError(req.AuthorityID, "begin", ErrStorageFailure, err)
	}
	committed := false
	var (
		authBatch    AuthorityBatch
		contentBatch ContentBatch
	)
	defer func() {
		if committed {
			return
		}
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, ErrTxDone) {
			s.logger.Error("Failed to roll back rename", "authority_id", req.AuthorityID, "error", rbErr)
		}
		s.discard(ctx, req.AuthorityID, authBatch, contentBatch)
	}()

	// Each rename owns its index batches so a concurrent commit never
	// publishes another rename's writes.
	authBatch, err = s.authorityIndex.BeginAuthorities(ctx)
	if err != nil {
		return "", 0, newRenameError(req.AuthorityID, "begin_authority_index", ErrIndexFailure, err)
	}
	contentBatch, err = s.contentIndex.BeginItems(ctx)
	if err != nil {
		return "", 0, newRenameError(req.AuthorityID, "begin_content_index", ErrIndexFailure, err)
	}

	old, err := tx.Authorities().FindByID(ctx, req.AuthorityID)
	if err != nil {
		if errors.Is(err, ErrAuthorityNotFound) {
			return "", 0, newRenameError(req.AuthorityID, "lookup", ErrNotFound, err)
		}
		return "", 0, newRenameError(req.AuthorityID, "lookup", ErrStorageFailure, err)
	}
	if !old.Kind.IsPerson() {
		return "", 0, newRenameError(req.AuthorityID, "check_kind", ErrUnsupportedKind,
			fmt.Errorf("only person authorities can be updated, got %q", old.Kind))
	}
	if old.Kind.IsExternallySourced() && !s.gate.ExternalRenameEnabled() {
		return "", 0, newRenameError(req.AuthorityID, "check_enabled", ErrDisabled,
			fmt.Errorf("renaming %q authorities is disabled", old.Kind))
	}

	// OldActive -> BothExist
	now := s.now()
	replacement := &AuthorityRecord{
		Kind:      old.Kind,
		Value:     req.Value,
		Field:     old.Field,
		CreatedAt: now,
		UpdatedAt: now,
	}
	newID, err := tx.Authorities().Create(ctx, replacement)
	if err != nil {
		return "", 0, newRenameError(req.AuthorityID, "create", ErrStorageFailure, err)
	}
	replacement.ID = newID

	if err := authBatch.IndexAuthority(ctx, replacement); err != nil {
		return "", 0, newRenameError(req.AuthorityID, "index_authority", ErrIndexFailure, err)
	}

	// BothExist -> NewActiveOldGone. The delete is only visible to others
	// once every reference below has been rewritten in the same context.
	if err := tx.Authorities().Delete(ctx, old.ID); err != nil {
		return "", 0, newRenameError(req.AuthorityID, "delete", ErrStorageFailure, err)
	}
	if err := authBatch.RemoveAuthority(ctx, old.ID); err != nil {
		return "", 0, newRenameError(req.AuthorityID, "unindex_authority", ErrIndexFailure, err)
	}
	s.logger.Debug("Replaced authority record", "authority_id", old.ID, "new_authority_id", newID)

	field := NormalizeField(old.Field)
	items := 0
	for itemID, scanErr := range References(ctx, tx.Content(), field, old.ID, s.scanBatchSize) {
		if scanErr != nil {
			return "", items, newRenameError(req.AuthorityID, "scan", ErrStorageFailure, scanErr)
		}

		item, err := tx.Content().Reload(ctx, itemID)
		if err != nil {
			return "", items, newRenameError(req.AuthorityID, "reload", ErrStorageFailure,
				fmt.Errorf("item %s: %w", itemID, err))
		}
		if RewriteStatements(item, field, old.ID, newID, req.Value) == 0 {
			s.logger.Debug("Skipping item without matching statements", "item_id", itemID)
			continue
		}
		if err := tx.Content().Update(ctx, item); err != nil {
			return "", items, newRenameError(req.AuthorityID, "update_item", ErrStorageFailure,
				fmt.Errorf("item %s: %w", itemID, err))
		}
		if err := contentBatch.IndexItem(ctx, item, true); err != nil {
			return "", items, newRenameError(req.AuthorityID, "index_item", ErrIndexFailure,
				fmt.Errorf("item %s: %w", itemID, err))
		}
		items++
	}

	if err := authBatch.Commit(ctx); err != nil {
		return "", items, newRenameError(req.AuthorityID, "commit_authority_index", ErrIndexFailure, err)
	}
	if err := contentBatch.Commit(ctx); err != nil {
		return "", items, newRenameError(req.AuthorityID, "commit_content_index", ErrIndexFailure, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return "", items, newRenameError(req.AuthorityID, "commit", ErrStorageFailure, err)
	}
	committed = true

	event := AuthorityRenamed{
		OldID:        old.ID,
		NewID:        newID,
		Value:        req.Value,
		Field:        field,
		Kind:         old.Kind,
		ItemsUpdated: items,
		RenamedAt:    now,
	}
	if err := s.eventSink.AuthorityRenamed(ctx, event); err != nil {
		// The rename is already durable
		s.logger.Warn("Failed to publish rename event", "authority_id", old.ID, "error", err)
	}

	return newID, items, nil
}

// discard drops the index writes of a failed rename. Batches that already
// committed are left as they are.
func (s *service) discard(ctx context.Context, authorityID string, batches ...interface {
	Discard(ctx context.Context) error
}) {
	for _, b := range batches {
		if b == nil {
			continue
		}
		if err := b.Discard(ctx); err != nil {
			s.logger.Warn("Failed to discard staged index documents",
				"authority_id", authorityID, "error", err)
		}
	}
}
