// Package gorm provides a GORM-backed implementation of the authgate
// AccountStore. It works with any database GORM supports (PostgreSQL,
// MySQL, SQLite, ...) and is the store to use in production.
//
// The unique index on the accounts email column is the uniqueness
// authority: CreateAccount never pre-checks, it inserts and translates a
// duplicate-key failure to authgate.ErrEmailTaken. Concurrent registrations
// for one address therefore yield exactly one row, with no application-level
// race window.
//
// # Usage
//
//	db, _ := gorm.Open(sqlite.Open(path), &gorm.Config{TranslateError: true})
//	store, _ := gormstore.NewAccountStore(db)
package gorm
