package metadata

import (
	"context"
	"database/sql"
	"errors"
	"sort"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/dbx"
)

// Storage adapts the metadata table to the session persistence contract.
// Multi-key writes and removals run in a single transaction so that the
// token and the user record never drift apart on disk.
type Storage struct {
	db   *sql.DB
	repo RepositoryFactory
}

// NewStorage returns a Storage over the SQLite metadata table of db.
func NewStorage(db *sql.DB) *Storage {
	return &Storage{db: db, repo: SQLiteFactory}
}

// Get returns the stored value, or (nil, nil) when key is absent.
func (s *Storage) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := s.repo(s.db).Lookup(ctx, key)
	if errors.Is(err, common.ErrorNotFound) {
		return nil, nil
	}
	return v, err
}

// Put upserts every entry of values atomically.
func (s *Storage) Put(ctx context.Context, values map[string][]byte) error {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repo(tx)
		for _, k := range keys {
			if err := repo.Upsert(ctx, k, values[k]); err != nil {
				return err
			}
		}
		return nil
	})
}

// Remove deletes keys atomically. Missing keys are not an error.
func (s *Storage) Remove(ctx context.Context, keys ...string) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return s.repo(tx).DeleteKeys(ctx, keys...)
	})
}
