package picklist

import (
	"fmt"

	"stockdesk/internal/repository"
	"stockdesk/pkg/models"

	"github.com/doug-martin/goqu/v9"
)

const (
	allocTable    = "picklist_items"
	overflowTable = "picklist_overflow_items"
)

type PicklistRepository struct {
	repository *repository.Repository
}

func NewRepository(r *repository.Repository) *PicklistRepository {
	return &PicklistRepository{repository: r}
}

// UpsertAllocation adds qty to the user's cumulative allocation for the
// key, creating the row with a zero baseline when absent. The price is
// captured on first touch only.
func (r *PicklistRepository) UpsertAllocation(tx *goqu.TxDatabase, userID string, key models.StockKey, qty, price float64) error {
	query := tx.Insert(allocTable).
		Rows(goqu.Record{
			"user_id":         userID,
			"dept_id":         key.DeptID,
			"article":         key.Article,
			"qty_alloc":       qty,
			"price_at_moment": price,
		}).
		OnConflict(
			goqu.DoUpdate(
				"user_id, dept_id, article",
				goqu.Record{
					"qty_alloc":  goqu.L("picklist_items.qty_alloc + EXCLUDED.qty_alloc"),
					"updated_at": goqu.L("now()"),
				},
			),
		)

	if _, err := query.Executor().Exec(); err != nil {
		return fmt.Errorf("failed to upsert allocation for user %s item %s: %w", userID, key, err)
	}
	return nil
}

// UpsertOverflow adds qty to the user's cumulative overflow for the key.
func (r *PicklistRepository) UpsertOverflow(tx *goqu.TxDatabase, userID string, key models.StockKey, qty, price float64) error {
	query := tx.Insert(overflowTable).
		Rows(goqu.Record{
			"user_id":         userID,
			"dept_id":         key.DeptID,
			"article":         key.Article,
			"qty_overflow":    qty,
			"price_at_moment": price,
		}).
		OnConflict(
			goqu.DoUpdate(
				"user_id, dept_id, article",
				goqu.Record{
					"qty_overflow": goqu.L("picklist_overflow_items.qty_overflow + EXCLUDED.qty_overflow"),
					"updated_at":   goqu.L("now()"),
				},
			),
		)

	if _, err := query.Executor().Exec(); err != nil {
		return fmt.Errorf("failed to upsert overflow for user %s item %s: %w", userID, key, err)
	}
	return nil
}

// UserDepartment returns the department the user's open picklist is
// pinned to, or "" when the picklist is empty.
func (r *PicklistRepository) UserDepartment(userID string) (string, error) {
	var deptID string
	query := r.repository.GoquDBWrapper.
		Select("dept_id").
		From(allocTable).
		Where(goqu.Ex{"user_id": userID}).
		Limit(1)

	found, err := query.Executor().ScanVal(&deptID)
	if err != nil {
		return "", fmt.Errorf("failed to resolve picklist department for user %s: %w", userID, err)
	}
	if !found {
		return "", nil
	}
	return deptID, nil
}

// ListForUser joins the user's allocations with ledger names/prices and
// the overflow ledger.
func (r *PicklistRepository) ListForUser(userID string) ([]models.PicklistLine, error) {
	var lines []models.PicklistLine
	query := r.repository.GoquDBWrapper.
		Select(
			goqu.I("p.dept_id").As("dept_id"),
			goqu.I("p.article").As("article"),
			goqu.COALESCE(goqu.I("s.name"), "").As("name"),
			goqu.I("p.qty_alloc").As("qty_alloc"),
			goqu.COALESCE(goqu.I("o.qty_overflow"), 0).As("qty_overflow"),
			goqu.COALESCE(goqu.I("s.price"), 0).As("price"),
		).
		From(goqu.T(allocTable).As("p")).
		LeftJoin(
			goqu.T("stock_items").As("s"),
			goqu.On(goqu.Ex{
				"s.dept_id": goqu.I("p.dept_id"),
				"s.article": goqu.I("p.article"),
			}),
		).
		LeftJoin(
			goqu.T(overflowTable).As("o"),
			goqu.On(goqu.Ex{
				"o.user_id": goqu.I("p.user_id"),
				"o.dept_id": goqu.I("p.dept_id"),
				"o.article": goqu.I("p.article"),
			}),
		).
		Where(goqu.Ex{"p.user_id": userID}).
		Order(goqu.I("p.article").Asc())

	if err := query.Executor().ScanStructs(&lines); err != nil {
		return nil, fmt.Errorf("failed to list picklist for user %s: %w", userID, err)
	}
	return lines, nil
}

// ClearForUser drops the user's allocation and overflow rows.
func (r *PicklistRepository) ClearForUser(tx *goqu.TxDatabase, userID string) error {
	for _, table := range []string{allocTable, overflowTable} {
		query := tx.Delete(table).Where(goqu.Ex{"user_id": userID})
		if _, err := query.Executor().Exec(); err != nil {
			return fmt.Errorf("failed to clear %s for user %s: %w", table, userID, err)
		}
	}
	return nil
}
