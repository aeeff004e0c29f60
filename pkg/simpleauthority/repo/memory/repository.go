package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/simple-authority/pkg/simpleauthority"
)

// ErrConflict indicates a transaction read data that another transaction
// changed before it committed.
var ErrConflict = errors.New("memory: concurrent modification")

// Repository implements the authority and content stores using in-memory
// storage. Methods on Repository apply immediately; Begin returns an
// isolated transactional context whose writes become visible on Commit.
type Repository struct {
	mu           sync.RWMutex
	authorities  map[string]*simpleauthority.AuthorityRecord
	items        map[string]*simpleauthority.ContentItem
	authVersions map[string]uint64
	itemVersions map[string]uint64
}

var (
	_ simpleauthority.AuthorityStore = (*Repository)(nil)
	_ simpleauthority.ContentStore   = (*Repository)(nil)
	_ simpleauthority.Transactor     = (*Repository)(nil)
)

// New creates a new in-memory repository
func New() *Repository {
	return &Repository{
		authorities:  make(map[string]*simpleauthority.AuthorityRecord),
		items:        make(map[string]*simpleauthority.ContentItem),
		authVersions: make(map[string]uint64),
		itemVersions: make(map[string]uint64),
	}
}

// Authority operations

func (r *Repository) FindByID(ctx context.Context, id string) (*simpleauthority.AuthorityRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, exists := r.authorities[id]
	if !exists {
		return nil, simpleauthority.ErrAuthorityNotFound
	}
	recordCopy := *record
	return &recordCopy, nil
}

func (r *Repository) Create(ctx context.Context, record *simpleauthority.AuthorityRecord) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	recordCopy := *record
	if recordCopy.ID == "" {
		recordCopy.ID = uuid.NewString()
	}
	if _, exists := r.authorities[recordCopy.ID]; exists {
		return "", fmt.Errorf("authority %s already exists", recordCopy.ID)
	}
	if recordCopy.CreatedAt.IsZero() {
		recordCopy.CreatedAt = time.Now().UTC()
	}
	if recordCopy.UpdatedAt.IsZero() {
		recordCopy.UpdatedAt = recordCopy.CreatedAt
	}
	r.authorities[recordCopy.ID] = &recordCopy
	r.authVersions[recordCopy.ID]++
	return recordCopy.ID, nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.authorities[id]; exists {
		delete(r.authorities, id)
		r.authVersions[id]++
	}
	return nil
}

// Content operations

// PutItem stores an item as-is, creating or replacing it. It is used to
// seed content; the rename path goes through Update.
func (r *Repository) PutItem(ctx context.Context, item *simpleauthority.ContentItem) error {
	if item.ID == "" {
		return fmt.Errorf("item id is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[item.ID] = item.Clone()
	r.itemVersions[item.ID]++
	return nil
}

func (r *Repository) FindItemsReferencingAuthority(ctx context.Context, field, authorityID, afterID string, limit int) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return findReferencing(r.items, nil, field, authorityID, afterID, limit), nil
}

func (r *Repository) Reload(ctx context.Context, id string) (*simpleauthority.ContentItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, exists := r.items[id]
	if !exists {
		return nil, simpleauthority.ErrItemNotFound
	}
	return item.Clone(), nil
}

func (r *Repository) Update(ctx context.Context, item *simpleauthority.ContentItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[item.ID]; !exists {
		return simpleauthority.ErrItemNotFound
	}
	itemCopy := item.Clone()
	itemCopy.UpdatedAt = time.Now().UTC()
	r.items[item.ID] = itemCopy
	r.itemVersions[item.ID]++
	return nil
}

// ListItems returns copies of all items sorted by id
func (r *Repository) ListItems(ctx context.Context) []*simpleauthority.ContentItem {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*simpleauthority.ContentItem, 0, len(r.items))
	for _, item := range r.items {
		result = append(result, item.Clone())
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})
	return result
}

// Transactions

// Begin opens a transactional context over the repository
func (r *Repository) Begin(ctx context.Context) (simpleauthority.Tx, error) {
	return &tx{
		repo:        r,
		authWrites:  make(map[string]*simpleauthority.AuthorityRecord),
		itemWrites:  make(map[string]*simpleauthority.ContentItem),
		authReadVer: make(map[string]uint64),
		itemReadVer: make(map[string]uint64),
	}, nil
}

// findReferencing scans base items, with overlay entries taking precedence,
// for statements on field linked to authorityID.
func findReferencing(base, overlay map[string]*simpleauthority.ContentItem, field, authorityID, afterID string, limit int) []string {
	var ids []string
	seen := make(map[string]bool, len(overlay))
	match := func(id string, item *simpleauthority.ContentItem) {
		if id <= afterID {
			return
		}
		for _, st := range item.Statements {
			if st.Field == field && st.Authority == authorityID {
				ids = append(ids, id)
				return
			}
		}
	}
	for id, item := range overlay {
		seen[id] = true
		match(id, item)
	}
	for id, item := range base {
		if seen[id] {
			continue
		}
		match(id, item)
	}
	sort.Strings(ids)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids
}
