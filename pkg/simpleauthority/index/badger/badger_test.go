package badger_test

import (
	"context"
	"testing"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-authority/pkg/simpleauthority"
	"github.com/tendant/simple-authority/pkg/simpleauthority/index/badger"
)

const field = "dc.contributor.author"

func openTestDB(t *testing.T) *badgerdb.DB {
	t.Helper()
	db, err := badger.Open(badger.InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := badger.Open(badger.Config{})
	assert.Error(t, err)
}

func TestIndex_CommitAndSearch(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	authorities := badger.New(db, "authority/")
	items := badger.New(db, "item/")

	authBatch, err := authorities.BeginAuthorities(ctx)
	require.NoError(t, err)
	require.NoError(t, authBatch.IndexAuthority(ctx, &simpleauthority.AuthorityRecord{
		ID: "auth-1", Kind: simpleauthority.KindPerson, Value: "J. Smith", Field: field,
	}))
	itemBatch, err := items.BeginItems(ctx)
	require.NoError(t, err)
	require.NoError(t, itemBatch.IndexItem(ctx, &simpleauthority.ContentItem{
		ID:         "item-1",
		Revision:   1,
		Statements: []simpleauthority.MetadataStatement{{Field: field, Value: "J. Smith", Authority: "auth-1"}},
	}, true))

	_, err = authorities.Get("auth-1")
	assert.ErrorIs(t, err, badgerdb.ErrKeyNotFound)

	require.NoError(t, authBatch.Commit(ctx))
	require.NoError(t, itemBatch.Commit(ctx))
	assert.ErrorIs(t, authBatch.Commit(ctx), simpleauthority.ErrBatchDone)

	doc, err := authorities.Get("auth-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"J. Smith"}, doc.Fields["value"])

	// Prefixes keep the two indexes apart
	_, err = items.Get("auth-1")
	assert.ErrorIs(t, err, badgerdb.ErrKeyNotFound)

	ids, err := items.Search(field+"_authority", "auth-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"item-1"}, ids)

	ids, err = authorities.Search("value", "smith")
	require.NoError(t, err)
	assert.Equal(t, []string{"auth-1"}, ids)
}

func TestIndex_RemoveAndDiscard(t *testing.T) {
	ctx := context.Background()
	x := badger.New(openTestDB(t), "authority/")

	seed := x.Begin()
	require.NoError(t, seed.IndexAuthority(ctx, &simpleauthority.AuthorityRecord{ID: "auth-1", Value: "J. Smith"}))
	require.NoError(t, seed.Commit(ctx))

	discarded := x.Begin()
	require.NoError(t, discarded.RemoveAuthority(ctx, "auth-1"))
	require.NoError(t, discarded.IndexAuthority(ctx, &simpleauthority.AuthorityRecord{ID: "auth-2", Value: "Jane Smith"}))

	// Another batch commits while the first is still open
	other := x.Begin()
	require.NoError(t, other.IndexAuthority(ctx, &simpleauthority.AuthorityRecord{ID: "auth-3", Value: "A. Other"}))
	require.NoError(t, other.Commit(ctx))

	require.NoError(t, discarded.Discard(ctx))
	assert.ErrorIs(t, discarded.Commit(ctx), simpleauthority.ErrBatchDone)

	_, err := x.Get("auth-1")
	assert.NoError(t, err)
	_, err = x.Get("auth-2")
	assert.ErrorIs(t, err, badgerdb.ErrKeyNotFound)
	_, err = x.Get("auth-3")
	assert.NoError(t, err)

	remove := x.Begin()
	require.NoError(t, remove.RemoveAuthority(ctx, "auth-1"))
	require.NoError(t, remove.Commit(ctx))
	_, err = x.Get("auth-1")
	assert.ErrorIs(t, err, badgerdb.ErrKeyNotFound)
}

func TestIndex_SkipsUnchangedRevision(t *testing.T) {
	ctx := context.Background()
	x := badger.New(openTestDB(t), "item/")
	item := &simpleauthority.ContentItem{
		ID:         "item-1",
		Revision:   3,
		Statements: []simpleauthority.MetadataStatement{{Field: field, Value: "J. Smith", Authority: "auth-1"}},
	}
	index := func(force bool) {
		t.Helper()
		batch := x.Begin()
		require.NoError(t, batch.IndexItem(ctx, item, force))
		require.NoError(t, batch.Commit(ctx))
	}

	index(false)

	item.Statements[0].Value = "Jane Smith"
	index(false)
	ids, err := x.Search(field, "jane")
	require.NoError(t, err)
	assert.Empty(t, ids)

	index(true)
	ids, err = x.Search(field, "jane")
	require.NoError(t, err)
	assert.Equal(t, []string{"item-1"}, ids)
}
