package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/tendant/simple-authority/pkg/simpleauthority"
)

// Document is an indexed, searchable rendering of an authority record or a
// content item.
type Document struct {
	ID       string
	Revision int64
	Fields   map[string][]string
}

// Index is an in-memory search index. Writes are staged in batches and
// become searchable when their batch commits. A single Index can serve as
// AuthorityIndex and ContentIndex; use one instance per role so ids never
// collide.
type Index struct {
	mu        sync.RWMutex
	committed map[string]*Document
	open      int
	commits   int
}

var (
	_ simpleauthority.AuthorityIndex = (*Index)(nil)
	_ simpleauthority.ContentIndex   = (*Index)(nil)
	_ simpleauthority.AuthorityBatch = (*Batch)(nil)
	_ simpleauthority.ContentBatch   = (*Batch)(nil)
)

// New creates an empty index
func New() *Index {
	return &Index{
		committed: make(map[string]*Document),
	}
}

// AuthorityDocument renders an authority record for indexing
func AuthorityDocument(record *simpleauthority.AuthorityRecord) *Document {
	return &Document{
		ID: record.ID,
		Fields: map[string][]string{
			"kind":  {string(record.Kind)},
			"value": {record.Value},
			"field": {simpleauthority.NormalizeField(record.Field)},
		},
	}
}

// ItemDocument renders a content item for indexing. Linked statements also
// produce a "<field>_authority" entry.
func ItemDocument(item *simpleauthority.ContentItem) *Document {
	doc := &Document{
		ID:       item.ID,
		Revision: item.Revision,
		Fields:   make(map[string][]string),
	}
	for _, st := range item.Statements {
		doc.Fields[st.Field] = append(doc.Fields[st.Field], st.Value)
		if st.Authority != "" {
			key := st.Field + "_authority"
			doc.Fields[key] = append(doc.Fields[key], st.Authority)
		}
	}
	return doc
}

// Begin opens a batch over the index
func (x *Index) Begin() *Batch {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.open++
	return &Batch{index: x, pending: make(map[string]*Document)}
}

func (x *Index) BeginAuthorities(ctx context.Context) (simpleauthority.AuthorityBatch, error) {
	return x.Begin(), nil
}

func (x *Index) BeginItems(ctx context.Context) (simpleauthority.ContentBatch, error) {
	return x.Begin(), nil
}

// Batch holds writes private to one caller until Commit
type Batch struct {
	index *Index

	mu      sync.Mutex
	done    bool
	pending map[string]*Document // nil value stages a removal
}

func (b *Batch) IndexAuthority(ctx context.Context, record *simpleauthority.AuthorityRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.done {
		return simpleauthority.ErrBatchDone
	}
	b.pending[record.ID] = AuthorityDocument(record)
	return nil
}

func (b *Batch) RemoveAuthority(ctx context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.done {
		return simpleauthority.ErrBatchDone
	}
	b.pending[id] = nil
	return nil
}

func (b *Batch) IndexItem(ctx context.Context, item *simpleauthority.ContentItem, force bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.done {
		return simpleauthority.ErrBatchDone
	}
	if !force {
		if doc, ok := b.index.Get(item.ID); ok && doc.Revision == item.Revision {
			return nil
		}
	}
	b.pending[item.ID] = ItemDocument(item)
	return nil
}

// Commit makes the batch's writes searchable
func (b *Batch) Commit(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.done {
		return simpleauthority.ErrBatchDone
	}
	b.done = true

	x := b.index
	x.mu.Lock()
	defer x.mu.Unlock()
	for id, doc := range b.pending {
		if doc == nil {
			delete(x.committed, id)
		} else {
			x.committed[id] = doc
		}
	}
	b.pending = nil
	x.open--
	x.commits++
	return nil
}

// Discard drops the batch's writes
func (b *Batch) Discard(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.done {
		return nil
	}
	b.done = true
	b.pending = nil

	b.index.mu.Lock()
	b.index.open--
	b.index.mu.Unlock()
	return nil
}

// Pending returns the number of staged writes
func (b *Batch) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// Get returns a committed document
func (x *Index) Get(id string) (*Document, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	doc, ok := x.committed[id]
	return doc, ok
}

// Search returns the ids of committed documents whose field contains value,
// compared case-insensitively.
func (x *Index) Search(field, value string) []string {
	x.mu.RLock()
	defer x.mu.RUnlock()
	needle := strings.ToLower(value)
	var ids []string
	for id, doc := range x.committed {
		for _, v := range doc.Fields[field] {
			if strings.Contains(strings.ToLower(v), needle) {
				ids = append(ids, id)
				break
			}
		}
	}
	sort.Strings(ids)
	return ids
}

// Open returns the number of batches neither committed nor discarded
func (x *Index) Open() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.open
}

// Commits returns how many batches were committed
func (x *Index) Commits() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.commits
}
