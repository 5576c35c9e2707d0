// Package store provides persistent storage for idgate using SQLite.
//
// Two independent stores live in separate database files:
//
//   - WhitelistStore: the set of authorized user IDs with display metadata
//   - DirectoryStore: Person/Account contact graph with phone lookup
//
// Both are implemented on database/sql with modernc.org/sqlite, WAL mode,
// and foreign keys enabled:
//
//	PRAGMA journal_mode=WAL;
//	PRAGMA foreign_keys=ON;
//
// Expected conditions are sentinel errors, not storage failures:
//
//   - ErrNotFound: remove/delete targeted an absent entity
//   - ErrDuplicateUser: whitelist entry already present
//   - ErrPersonNotFound: account creation referenced a missing person
//
// Anything else is a wrapped storage error. Every operation is a single
// statement or one explicit transaction (DeletePerson cascade), so
// concurrent callers never observe a half-applied mutation. All methods
// accept context.Context.
package store
