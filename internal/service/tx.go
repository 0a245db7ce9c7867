package service

import (
	"context"
	"database/sql"

	"github.com/iliyamo/store-reservation/internal/repository"
)

// SQLTxRunner runs units of work on MySQL.  Transactions use READ COMMITTED
// so that a count taken after acquiring a row lock sees every reservation
// committed by the previous lock holder.
type SQLTxRunner struct {
	db *sql.DB
}

func NewSQLTxRunner(db *sql.DB) *SQLTxRunner {
	if db == nil {
		panic("nil db passed to NewSQLTxRunner")
	}
	return &SQLTxRunner{db: db}
}

func (t *SQLTxRunner) Repos() Repos { return reposFor(t.db) }

func (t *SQLTxRunner) WithinTx(ctx context.Context, fn func(ctx context.Context, r Repos) error) error {
	tx, err := t.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(ctx, reposFor(tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

func reposFor(db repository.DBTX) Repos {
	return Repos{
		Members:      repository.NewMemberRepo(db),
		Stores:       repository.NewStoreRepo(db),
		Reservations: repository.NewReservationRepo(db),
		Reviews:      repository.NewReviewRepo(db),
		Tokens:       repository.NewTokenRepo(db),
	}
}
