package ledger

import (
	"errors"
	"fmt"

	"stockdesk/internal/repository"
	custom_error "stockdesk/pkg/errors"
	"stockdesk/pkg/models"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/lib/pq"
)

const stockTable = "stock_items"

type StockRepository struct {
	repository *repository.Repository
}

func NewRepository(r *repository.Repository) *StockRepository {
	return &StockRepository{repository: r}
}

// Get reads a ledger row without locking it.
func (r *StockRepository) Get(deptID, article string) (*models.StockItem, error) {
	var item models.StockItem
	query := r.repository.GoquDBWrapper.
		From(stockTable).
		Where(goqu.Ex{"dept_id": deptID, "article": article})

	found, err := query.Executor().ScanStruct(&item)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch stock item %s:%s: %w", deptID, article, err)
	}
	if !found {
		return nil, custom_error.NewNotFoundError("stock item", deptID+":"+article)
	}
	return &item, nil
}

// GetForUpdate reads a ledger row under an exclusive row lock scoped to
// tx. Concurrent mutators of the same key serialize here; NOWAIT turns a
// held lock into a retryable LockContentionError instead of an unbounded
// wait.
func (r *StockRepository) GetForUpdate(tx *goqu.TxDatabase, deptID, article string) (*models.StockItem, error) {
	var item models.StockItem
	query := tx.
		From(stockTable).
		Where(goqu.Ex{"dept_id": deptID, "article": article}).
		ForUpdate(exp.NoWait)

	found, err := query.Executor().ScanStruct(&item)
	if err != nil {
		return nil, wrapPgError(err, deptID+":"+article)
	}
	if !found {
		return nil, custom_error.NewNotFoundError("stock item", deptID+":"+article)
	}
	return &item, nil
}

// UpdateQty writes back a quantity the caller has already clamped at zero.
func (r *StockRepository) UpdateQty(tx *goqu.TxDatabase, deptID, article string, qty float64) error {
	query := tx.Update(stockTable).
		Set(goqu.Record{
			"qty":        qty,
			"updated_at": goqu.L("now()"),
		}).
		Where(goqu.Ex{"dept_id": deptID, "article": article})

	result, err := query.Executor().Exec()
	if err != nil {
		return fmt.Errorf("failed to update stock quantity for %s:%s: %w", deptID, article, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected for %s:%s: %w", deptID, article, err)
	}
	if rowsAffected == 0 {
		return custom_error.NewNotFoundError("stock item", deptID+":"+article)
	}
	return nil
}

// Upsert inserts a ledger row or updates the existing one on the
// (dept_id, article) key.
func (r *StockRepository) Upsert(tx *goqu.TxDatabase, item models.StockItem) error {
	query := tx.Insert(stockTable).
		Rows(goqu.Record{
			"dept_id":        item.DeptID,
			"article":        item.Article,
			"name":           item.Name,
			"qty":            item.Qty,
			"price":          item.Price,
			"months_no_move": item.MonthsNoMove,
			"active":         item.Active,
		}).
		OnConflict(
			goqu.DoUpdate(
				"dept_id, article",
				goqu.Record{
					"name":           goqu.L("EXCLUDED.name"),
					"qty":            goqu.L("EXCLUDED.qty"),
					"price":          goqu.L("EXCLUDED.price"),
					"months_no_move": goqu.L("EXCLUDED.months_no_move"),
					"active":         goqu.L("EXCLUDED.active"),
					"updated_at":     goqu.L("now()"),
				},
			),
		)

	if _, err := query.Executor().Exec(); err != nil {
		return wrapPgError(err, item.DeptID+":"+item.Article)
	}
	return nil
}

// SetActive flips the active flag without touching quantities.
func (r *StockRepository) SetActive(tx *goqu.TxDatabase, deptID, article string, active bool) error {
	query := tx.Update(stockTable).
		Set(goqu.Record{
			"active":     active,
			"updated_at": goqu.L("now()"),
		}).
		Where(goqu.Ex{"dept_id": deptID, "article": article})

	if _, err := query.Executor().Exec(); err != nil {
		return fmt.Errorf("failed to set active=%t for %s:%s: %w", active, deptID, article, err)
	}
	return nil
}

// ListByDepartments returns every ledger row in the given departments,
// active or not.
func (r *StockRepository) ListByDepartments(deptIDs []string) ([]models.StockItem, error) {
	var items []models.StockItem
	query := r.repository.GoquDBWrapper.
		From(stockTable).
		Where(goqu.C("dept_id").In(deptIDs)).
		Order(goqu.C("dept_id").Asc(), goqu.C("article").Asc())

	if err := query.Executor().ScanStructs(&items); err != nil {
		return nil, fmt.Errorf("failed to list stock items by departments: %w", err)
	}
	return items, nil
}

// ListActiveByDepartments is ListByDepartments restricted to active rows.
func (r *StockRepository) ListActiveByDepartments(deptIDs []string) ([]models.StockItem, error) {
	var items []models.StockItem
	query := r.repository.GoquDBWrapper.
		From(stockTable).
		Where(goqu.C("dept_id").In(deptIDs), goqu.C("active").IsTrue()).
		Order(goqu.C("dept_id").Asc(), goqu.C("article").Asc())

	if err := query.Executor().ScanStructs(&items); err != nil {
		return nil, fmt.Errorf("failed to list active stock items by departments: %w", err)
	}
	return items, nil
}

// ListByDepartmentsTx is ListByDepartments inside a caller transaction,
// used by plan apply to re-resolve state at apply time.
func (r *StockRepository) ListByDepartmentsTx(tx *goqu.TxDatabase, deptIDs []string) ([]models.StockItem, error) {
	var items []models.StockItem
	query := tx.
		From(stockTable).
		Where(goqu.C("dept_id").In(deptIDs))

	if err := query.Executor().ScanStructs(&items); err != nil {
		return nil, fmt.Errorf("failed to list stock items by departments: %w", err)
	}
	return items, nil
}

// Search matches article or name case-insensitively, optionally limited
// to one department.
func (r *StockRepository) Search(searchQuery, deptID string, limit uint) ([]models.StockItem, error) {
	pattern := "%" + searchQuery + "%"
	conditions := goqu.Or(
		goqu.C("article").ILike(pattern),
		goqu.C("name").ILike(pattern),
	)

	query := r.repository.GoquDBWrapper.
		From(stockTable).
		Where(conditions, goqu.C("active").IsTrue())
	if deptID != "" {
		query = query.Where(goqu.C("dept_id").Eq(deptID))
	}
	query = query.Order(goqu.C("name").Asc()).Limit(limit)

	var items []models.StockItem
	if err := query.Executor().ScanStructs(&items); err != nil {
		return nil, fmt.Errorf("failed to search stock items: %w", err)
	}
	return items, nil
}

func wrapPgError(err error, key string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return custom_error.WrapDBError(key, string(pqErr.Code))
	}
	return fmt.Errorf("stock item %s: %w", key, err)
}
