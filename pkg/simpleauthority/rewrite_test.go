package simpleauthority_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tendant/simple-authority/pkg/simpleauthority"
)

func TestRewriteStatements(t *testing.T) {
	item := &simpleauthority.ContentItem{
		ID: "item-1",
		Statements: []simpleauthority.MetadataStatement{
			{Field: "dc.title", Value: "On Things"},
			{Field: authorField, Value: "J. Smith", Authority: "auth-1"},
			{Field: authorField, Value: "A. Other", Authority: "auth-2"},
			{Field: "dc.contributor.editor", Value: "J. Smith", Authority: "auth-1"},
			{Field: authorField, Value: "Smith, J.", Authority: "auth-1"},
		},
	}

	changed := simpleauthority.RewriteStatements(item, authorField, "auth-1", "auth-new", "Jane Smith")
	assert.Equal(t, 2, changed)
	assert.Equal(t, []simpleauthority.MetadataStatement{
		{Field: "dc.title", Value: "On Things"},
		{Field: authorField, Value: "Jane Smith", Authority: "auth-new"},
		{Field: authorField, Value: "A. Other", Authority: "auth-2"},
		{Field: "dc.contributor.editor", Value: "J. Smith", Authority: "auth-1"},
		{Field: authorField, Value: "Jane Smith", Authority: "auth-new"},
	}, item.Statements)
}

func TestRewriteStatements_Idempotent(t *testing.T) {
	item := &simpleauthority.ContentItem{
		ID: "item-1",
		Statements: []simpleauthority.MetadataStatement{
			{Field: authorField, Value: "J. Smith", Authority: "auth-1"},
			{Field: authorField, Value: "B. Jones", Authority: "auth-3"},
		},
	}

	simpleauthority.RewriteStatements(item, authorField, "auth-1", "auth-new", "Jane Smith")
	once := item.Clone()

	changed := simpleauthority.RewriteStatements(item, authorField, "auth-1", "auth-new", "Jane Smith")
	assert.Zero(t, changed)
	assert.Equal(t, once, item)
}

func TestRewriteStatements_NoMatch(t *testing.T) {
	assert.Zero(t, simpleauthority.RewriteStatements(nil, authorField, "auth-1", "auth-new", "x"))

	item := &simpleauthority.ContentItem{
		ID:         "item-1",
		Statements: []simpleauthority.MetadataStatement{{Field: authorField, Value: "Unlinked"}},
	}
	assert.Zero(t, simpleauthority.RewriteStatements(item, authorField, "", "auth-new", "x"))
	assert.Equal(t, "Unlinked", item.Statements[0].Value)
}

func TestNormalizeField(t *testing.T) {
	assert.Equal(t, "dc.contributor.author", simpleauthority.NormalizeField("dc_contributor_author"))
	assert.Equal(t, "dc.title", simpleauthority.NormalizeField(" dc.title "))
	assert.Equal(t, "", simpleauthority.NormalizeField(""))
}
