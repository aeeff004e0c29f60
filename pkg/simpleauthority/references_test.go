package simpleauthority_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-authority/pkg/simpleauthority"
	"github.com/tendant/simple-authority/pkg/simpleauthority/repo/memory"
)

// pagingStore records each page request and can fail on a given page.
type pagingStore struct {
	simpleauthority.ContentStore
	afters []string
	failOn int
}

func (s *pagingStore) FindItemsReferencingAuthority(ctx context.Context, field, authorityID, afterID string, limit int) ([]string, error) {
	s.afters = append(s.afters, afterID)
	if s.failOn > 0 && len(s.afters) == s.failOn {
		return nil, errors.New("connection reset")
	}
	return s.ContentStore.FindItemsReferencingAuthority(ctx, field, authorityID, afterID, limit)
}

func seededStore(t *testing.T, n int) *memory.Repository {
	t.Helper()
	repo := memory.New()
	for i := 0; i < n; i++ {
		require.NoError(t, repo.PutItem(context.Background(), &simpleauthority.ContentItem{
			ID:         fmt.Sprintf("item-%02d", i),
			Statements: []simpleauthority.MetadataStatement{{Field: authorField, Value: "J. Smith", Authority: "auth-1"}},
		}))
	}
	require.NoError(t, repo.PutItem(context.Background(), &simpleauthority.ContentItem{
		ID:         "item-zz",
		Statements: []simpleauthority.MetadataStatement{{Field: authorField, Value: "B. Jones", Authority: "auth-2"}},
	}))
	return repo
}

func collect(t *testing.T, seq func(func(string, error) bool)) ([]string, error) {
	t.Helper()
	var ids []string
	for id, err := range seq {
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func TestReferences_PagesByKeyset(t *testing.T) {
	store := &pagingStore{ContentStore: seededStore(t, 7)}

	ids, err := collect(t, simpleauthority.References(context.Background(), store, authorField, "auth-1", 3))
	require.NoError(t, err)
	assert.Equal(t, []string{"item-00", "item-01", "item-02", "item-03", "item-04", "item-05", "item-06"}, ids)
	assert.Equal(t, []string{"", "item-02", "item-05"}, store.afters)
}

func TestReferences_ExactMultipleOfBatch(t *testing.T) {
	store := &pagingStore{ContentStore: seededStore(t, 4)}

	ids, err := collect(t, simpleauthority.References(context.Background(), store, authorField, "auth-1", 2))
	require.NoError(t, err)
	assert.Len(t, ids, 4)
	assert.Equal(t, []string{"", "item-01", "item-03"}, store.afters)
}

func TestReferences_Empty(t *testing.T) {
	store := &pagingStore{ContentStore: seededStore(t, 0)}

	ids, err := collect(t, simpleauthority.References(context.Background(), store, authorField, "auth-1", 10))
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestReferences_StopsAfterError(t *testing.T) {
	store := &pagingStore{ContentStore: seededStore(t, 5), failOn: 2}

	ids, err := collect(t, simpleauthority.References(context.Background(), store, authorField, "auth-1", 2))
	require.Error(t, err)
	assert.Equal(t, []string{"item-00", "item-01"}, ids)
	assert.Len(t, store.afters, 2)
}

func TestReferences_Restartable(t *testing.T) {
	store := &pagingStore{ContentStore: seededStore(t, 5)}
	seq := simpleauthority.References(context.Background(), store, authorField, "auth-1", 2)

	first, err := collect(t, seq)
	require.NoError(t, err)
	second, err := collect(t, seq)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestReferences_EarlyBreak(t *testing.T) {
	store := &pagingStore{ContentStore: seededStore(t, 9)}

	var got []string
	for id, err := range simpleauthority.References(context.Background(), store, authorField, "auth-1", 3) {
		require.NoError(t, err)
		got = append(got, id)
		if len(got) == 2 {
			break
		}
	}
	assert.Equal(t, []string{"item-00", "item-01"}, got)
	assert.Len(t, store.afters, 1)
}
