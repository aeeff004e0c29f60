// Package badger provides a BadgerDB-backed search index for authority
// records and content items.
//
// Each batch stages its documents in memory and writes them in a single
// badger write batch on Commit, so a crash before Commit leaves the persisted
// index untouched.
package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/tendant/simple-authority/pkg/simpleauthority"
	memindex "github.com/tendant/simple-authority/pkg/simpleauthority/index/memory"
)

// Config holds configuration for a BadgerDB-backed index.
type Config struct {
	// Path is the directory for BadgerDB files. Ignored when InMemory is true.
	Path string

	// InMemory enables in-memory mode (no disk persistence).
	InMemory bool

	// SyncWrites enables synchronous writes for durability.
	SyncWrites bool

	// Prefix namespaces the keys of this index so the authority and content
	// indexes can share one database.
	Prefix string

	// Logger is the logger for BadgerDB operations. If nil, BadgerDB's
	// internal logging is disabled.
	Logger *slog.Logger
}

// DefaultConfig returns durable defaults for the given path
func DefaultConfig(path string) Config {
	return Config{Path: path, SyncWrites: true}
}

// InMemoryConfig returns configuration for tests
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// badgerLogger adapts slog.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// Open opens a BadgerDB database for the given configuration. The caller
// must Close the returned database.
func Open(cfg Config) (*badger.DB, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent index")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create index directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger index: %w", err)
	}
	return db, nil
}

// Index is a search index persisted in BadgerDB
type Index struct {
	db     *badger.DB
	prefix string

	// serializes batch commits
	commitMu sync.Mutex
}

var (
	_ simpleauthority.AuthorityIndex = (*Index)(nil)
	_ simpleauthority.ContentIndex   = (*Index)(nil)
	_ simpleauthority.AuthorityBatch = (*Batch)(nil)
	_ simpleauthority.ContentBatch   = (*Batch)(nil)
)

// New creates an index over an open database. prefix namespaces its keys.
func New(db *badger.DB, prefix string) *Index {
	return &Index{db: db, prefix: prefix}
}

func (x *Index) key(id string) []byte {
	return []byte(x.prefix + "doc/" + id)
}

// Begin opens a batch over the index
func (x *Index) Begin() *Batch {
	return &Batch{index: x, pending: make(map[string]*memindex.Document)}
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
	pending map[string]*memindex.Document // nil value stages a removal
}

func (b *Batch) IndexAuthority(ctx context.Context, record *simpleauthority.AuthorityRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.done {
		return simpleauthority.ErrBatchDone
	}
	b.pending[record.ID] = memindex.AuthorityDocument(record)
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
		doc, err := b.index.Get(item.ID)
		if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if doc != nil && doc.Revision == item.Revision {
			return nil
		}
	}
	b.pending[item.ID] = memindex.ItemDocument(item)
	return nil
}

// Commit writes the batch's documents in one badger write batch. A failed
// Commit leaves the batch open so it can still be discarded.
func (b *Batch) Commit(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.done {
		return simpleauthority.ErrBatchDone
	}
	if err := b.index.write(b.pending); err != nil {
		return err
	}
	b.done = true
	b.pending = nil
	return nil
}

// Discard drops the batch's writes
func (b *Batch) Discard(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.done = true
	b.pending = nil
	return nil
}

func (x *Index) write(docs map[string]*memindex.Document) error {
	if len(docs) == 0 {
		return nil
	}
	x.commitMu.Lock()
	defer x.commitMu.Unlock()

	wb := x.db.NewWriteBatch()
	defer wb.Cancel()
	for id, doc := range docs {
		if doc == nil {
			if err := wb.Delete(x.key(id)); err != nil {
				return fmt.Errorf("stage delete %s: %w", id, err)
			}
			continue
		}
		data, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("encode document %s: %w", id, err)
		}
		if err := wb.Set(x.key(id), data); err != nil {
			return fmt.Errorf("stage document %s: %w", id, err)
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("flush index batch: %w", err)
	}
	return nil
}

// Get returns a committed document. Returns badger.ErrKeyNotFound when the
// id is not indexed.
func (x *Index) Get(id string) (*memindex.Document, error) {
	var doc memindex.Document
	err := x.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(x.key(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &doc)
		})
	})
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// Search returns the ids of committed documents whose field contains value,
// compared case-insensitively.
func (x *Index) Search(field, value string) ([]string, error) {
	needle := strings.ToLower(value)
	var ids []string
	err := x.db.View(func(txn *badger.Txn) error {
		prefix := []byte(x.prefix + "doc/")
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var doc memindex.Document
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &doc)
			}); err != nil {
				return err
			}
			for _, v := range doc.Fields[field] {
				if strings.Contains(strings.ToLower(v), needle) {
					ids = append(ids, doc.ID)
					break
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(ids)
	return ids, nil
}
