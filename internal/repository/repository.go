package repository

import (
	"database/sql"
	"fmt"

	"github.com/doug-martin/goqu/v9"

	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // register postgres dialect
)

type Repository struct {
	DB            *sql.DB
	GoquDBWrapper *goqu.Database
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		DB:            db,
		GoquDBWrapper: goqu.New("postgres", db),
	}
}

// WithTransaction runs fn inside one transaction. Any error (or panic)
// rolls the whole unit of work back, so ledger writes and the cache
// invalidations issued through tx commit or vanish together.
func WithTransaction(db *goqu.Database, fn func(tx *goqu.TxDatabase) error) (err error) {
	rawTx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}

	tx := goqu.NewTx("postgres", rawTx)
	defer func() {
		if p := recover(); p != nil {
			rawTx.Rollback()
			panic(p)
		} else if err != nil {
			rawTx.Rollback()
		} else {
			err = rawTx.Commit()
		}
	}()

	err = fn(tx)
	return
}
