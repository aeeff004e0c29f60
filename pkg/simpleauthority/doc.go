// Package simpleauthority renames authority values and propagates the new
// value to every content item that references them.
//
// An authority record is a canonical identity (for example a person) that
// content metadata points at through a stable identifier. Identifiers, not
// values, are the join key across stores, so a rename retires the old
// identifier and mints a replacement record:
//
//	OldActive -> BothExist -> NewActiveOldGone
//
// The Service exposed by this package validates the caller and the request,
// creates the replacement record, rewrites every referencing metadata
// statement, forces a reindex of the touched items and commits the indexes
// and the transactional context. Stores (memory, Postgres) and indexes
// (memory, BadgerDB) are provided under subpackages.
//
// Consistency Window
//
// The authority store mutation and the content rewrite share one
// transactional context, but the search indexes are committed before that
// context. Each rename writes to the indexes through its own batches, which
// no other rename can commit. A failure or crash between the index commits
// and the store commit leaves the indexes ahead of the stores until the
// next reindex.
package simpleauthority
