// Package store persists scene specifications and media assets in SQLite.
//
// The two entities cross-reference each other by id and share a coupled
// terminal transition: when a render finishes, both records move to their
// terminal status in a single transaction.
package store
