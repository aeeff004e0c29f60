package simpleauthority

import (
	"time"
)

// Kind is the domain type for authority record kinds.
type Kind string

// Authority kind constants (typed).
const (
	KindPerson Kind = "person"
	// KindOrcid is a person whose canonical value is sourced from ORCID.
	KindOrcid Kind = "orcid"
	KindOther Kind = "other"
)

// IsPerson reports whether records of this kind represent a person.
func (k Kind) IsPerson() bool {
	return k == KindPerson || k == KindOrcid
}

// IsExternallySourced reports whether the value of records of this kind
// comes from a third-party identity provider.
func (k Kind) IsExternallySourced() bool {
	return k == KindOrcid
}

// AuthorityRecord is a canonical identity entry referenced by content
// metadata through its ID.
type AuthorityRecord struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	Value     string    `json:"value"`
	Field     string    `json:"field"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MetadataStatement is one field/value pair on a content item.
// Authority is empty when the statement is not linked to an authority.
type MetadataStatement struct {
	Field     string `json:"field"`
	Value     string `json:"value"`
	Authority string `json:"authority,omitempty"`
}

// ContentItem holds an ordered sequence of metadata statements.
//
// Revision is the item's own edit marker. Authority-driven rewrites leave it
// untouched, which is why they must force a reindex.
type ContentItem struct {
	ID         string              `json:"id"`
	Revision   int64               `json:"revision"`
	Statements []MetadataStatement `json:"statements"`
	UpdatedAt  time.Time           `json:"updated_at"`
}

// Clone returns a deep copy of the item.
func (i *ContentItem) Clone() *ContentItem {
	if i == nil {
		return nil
	}
	c := *i
	c.Statements = append([]MetadataStatement(nil), i.Statements...)
	return &c
}

// Caller identifies who asked for a rename.
type Caller struct {
	Subject string
	Roles   []string
}

// HasRole reports whether the caller carries the given role.
func (c Caller) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// AuthorityRenamed describes a completed rename. It is handed to the
// EventSink after the transactional context commits.
type AuthorityRenamed struct {
	OldID        string    `json:"old_id"`
	NewID        string    `json:"new_id"`
	Value        string    `json:"value"`
	Field        string    `json:"field"`
	Kind         Kind      `json:"kind"`
	ItemsUpdated int       `json:"items_updated"`
	RenamedAt    time.Time `json:"renamed_at"`
}
