package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/simple-authority/pkg/simpleauthority"
)

// tx buffers writes in overlay maps. A nil authority entry marks a delete.
// Versions of everything read or written are recorded and checked on
// commit so a transaction never overwrites a concurrent change.
type tx struct {
	repo *Repository

	mu          sync.Mutex
	done        bool
	authWrites  map[string]*simpleauthority.AuthorityRecord
	itemWrites  map[string]*simpleauthority.ContentItem
	authReadVer map[string]uint64
	itemReadVer map[string]uint64
}

func (t *tx) Authorities() simpleauthority.AuthorityStore { return (*txAuthorities)(t) }

func (t *tx) Content() simpleauthority.ContentStore { return (*txContent)(t) }

func (t *tx) Commit(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return simpleauthority.ErrTxDone
	}
	t.done = true

	r := t.repo
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, ver := range t.authReadVer {
		if r.authVersions[id] != ver {
			return fmt.Errorf("authority %s: %w", id, ErrConflict)
		}
	}
	for id, ver := range t.itemReadVer {
		if r.itemVersions[id] != ver {
			return fmt.Errorf("item %s: %w", id, ErrConflict)
		}
	}

	for id, record := range t.authWrites {
		if record == nil {
			delete(r.authorities, id)
		} else {
			r.authorities[id] = record
		}
		r.authVersions[id]++
	}
	for id, item := range t.itemWrites {
		r.items[id] = item
		r.itemVersions[id]++
	}
	return nil
}

func (t *tx) Rollback(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return simpleauthority.ErrTxDone
	}
	t.done = true
	t.authWrites = nil
	t.itemWrites = nil
	return nil
}

func (t *tx) checkOpen() error {
	if t.done {
		return simpleauthority.ErrTxDone
	}
	return nil
}

// recordAuthRead pins the version of an authority the first time the
// transaction touches it. Callers hold t.mu and r.mu.
func (t *tx) recordAuthRead(id string) {
	if _, ok := t.authReadVer[id]; !ok {
		t.authReadVer[id] = t.repo.authVersions[id]
	}
}

func (t *tx) recordItemRead(id string) {
	if _, ok := t.itemReadVer[id]; !ok {
		t.itemReadVer[id] = t.repo.itemVersions[id]
	}
}

type txAuthorities tx

func (a *txAuthorities) FindByID(ctx context.Context, id string) (*simpleauthority.AuthorityRecord, error) {
	t := (*tx)(a)
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.checkOpen(); err != nil {
		return nil, err
	}

	if record, ok := t.authWrites[id]; ok {
		if record == nil {
			return nil, simpleauthority.ErrAuthorityNotFound
		}
		recordCopy := *record
		return &recordCopy, nil
	}

	r := t.repo
	r.mu.RLock()
	defer r.mu.RUnlock()
	t.recordAuthRead(id)
	record, exists := r.authorities[id]
	if !exists {
		return nil, simpleauthority.ErrAuthorityNotFound
	}
	recordCopy := *record
	return &recordCopy, nil
}

func (a *txAuthorities) Create(ctx context.Context, record *simpleauthority.AuthorityRecord) (string, error) {
	t := (*tx)(a)
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.checkOpen(); err != nil {
		return "", err
	}

	recordCopy := *record
	if recordCopy.ID == "" {
		recordCopy.ID = uuid.NewString()
	}
	r := t.repo
	r.mu.RLock()
	_, exists := r.authorities[recordCopy.ID]
	t.recordAuthRead(recordCopy.ID)
	r.mu.RUnlock()
	if staged, ok := t.authWrites[recordCopy.ID]; ok {
		exists = staged != nil
	}
	if exists {
		return "", fmt.Errorf("authority %s already exists", recordCopy.ID)
	}
	if recordCopy.CreatedAt.IsZero() {
		recordCopy.CreatedAt = time.Now().UTC()
	}
	if recordCopy.UpdatedAt.IsZero() {
		recordCopy.UpdatedAt = recordCopy.CreatedAt
	}
	t.authWrites[recordCopy.ID] = &recordCopy
	return recordCopy.ID, nil
}

func (a *txAuthorities) Delete(ctx context.Context, id string) error {
	t := (*tx)(a)
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.checkOpen(); err != nil {
		return err
	}

	r := t.repo
	r.mu.RLock()
	t.recordAuthRead(id)
	r.mu.RUnlock()
	t.authWrites[id] = nil
	return nil
}

type txContent tx

func (c *txContent) FindItemsReferencingAuthority(ctx context.Context, field, authorityID, afterID string, limit int) ([]string, error) {
	t := (*tx)(c)
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.checkOpen(); err != nil {
		return nil, err
	}

	r := t.repo
	r.mu.RLock()
	defer r.mu.RUnlock()
	return findReferencing(r.items, t.itemWrites, field, authorityID, afterID, limit), nil
}

func (c *txContent) Reload(ctx context.Context, id string) (*simpleauthority.ContentItem, error) {
	t := (*tx)(c)
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.checkOpen(); err != nil {
		return nil, err
	}

	if item, ok := t.itemWrites[id]; ok {
		return item.Clone(), nil
	}
	r := t.repo
	r.mu.RLock()
	defer r.mu.RUnlock()
	t.recordItemRead(id)
	item, exists := r.items[id]
	if !exists {
		return nil, simpleauthority.ErrItemNotFound
	}
	return item.Clone(), nil
}

func (c *txContent) Update(ctx context.Context, item *simpleauthority.ContentItem) error {
	t := (*tx)(c)
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.checkOpen(); err != nil {
		return err
	}

	if _, staged := t.itemWrites[item.ID]; !staged {
		r := t.repo
		r.mu.RLock()
		_, exists := r.items[item.ID]
		t.recordItemRead(item.ID)
		r.mu.RUnlock()
		if !exists {
			return simpleauthority.ErrItemNotFound
		}
	}
	itemCopy := item.Clone()
	itemCopy.UpdatedAt = time.Now().UTC()
	t.itemWrites[item.ID] = itemCopy
	return nil
}
