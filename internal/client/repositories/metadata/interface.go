// Package metadata stores small key-value records of the local client in the
// SQLite `metadata` table. The session token and user profile live here.
package metadata

import (
	"context"

	"github.com/dmitrijs2005/authkeeper/internal/dbx"
)

// Repository reads and writes records of the metadata table.
type Repository interface {
	// Lookup returns the value of key, or an error matching
	// common.ErrorNotFound when no record exists.
	Lookup(ctx context.Context, key string) ([]byte, error)

	// Upsert inserts or replaces the record of key.
	Upsert(ctx context.Context, key string, value []byte) error

	// DeleteKeys removes the records of keys. Missing keys are ignored.
	DeleteKeys(ctx context.Context, keys ...string) error
}

// RepositoryFactory binds a Repository to a connection or a transaction.
type RepositoryFactory func(db dbx.DBTX) Repository
