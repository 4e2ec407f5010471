package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/vietddude/recap/internal/infra/storage"
)

// UnitOfWork bundles bookmark and search-history writes into a single
// database transaction, ensuring atomicity (all succeed or all fail).
type UnitOfWork struct {
	tx        *sqlx.Tx
	Bookmarks storage.BookmarkRepository
	History   storage.SearchHistoryRepository
}

// NewUnitOfWork creates a new unit of work with an active transaction.
func (db *DB) NewUnitOfWork(ctx context.Context) (*UnitOfWork, error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	return &UnitOfWork{
		tx:        tx,
		Bookmarks: &BookmarkRepo{db: tx},
		History:   &SearchHistoryRepo{db: tx},
	}, nil
}

// Commit commits the transaction.
func (u *UnitOfWork) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("transaction already completed")
	}
	err := u.tx.Commit()
	u.tx = nil
	return err
}

// Rollback rolls back the transaction. Safe to call multiple times.
func (u *UnitOfWork) Rollback() error {
	if u.tx == nil {
		return nil // Already committed or rolled back
	}
	err := u.tx.Rollback()
	u.tx = nil
	return err
}

// WithTx runs fn inside one transaction, committing when fn returns
// nil and rolling back otherwise.
func (db *DB) WithTx(ctx context.Context, fn func(*UnitOfWork) error) error {
	uow, err := db.NewUnitOfWork(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = uow.Rollback() }()

	if err := fn(uow); err != nil {
		return err
	}
	return uow.Commit()
}
