package models

import "time"

// StockItem is the authoritative ledger record for one (department, article) pair.
// Rows are never deleted, only deactivated.
type StockItem struct {
	ID           int       `db:"id" json:"id"`
	DeptID       string    `db:"dept_id" json:"dept_id"`
	Article      string    `db:"article" json:"article"`
	Name         string    `db:"name" json:"name"`
	Qty          float64   `db:"qty" json:"qty"`
	Price        float64   `db:"price" json:"price"`
	MonthsNoMove float64   `db:"months_no_move" json:"months_no_move"`
	Active       bool      `db:"active" json:"active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// StockKey identifies a ledger row.
type StockKey struct {
	DeptID  string `db:"dept_id" json:"dept_id"`
	Article string `db:"article" json:"article"`
}

func (k StockKey) String() string {
	return k.DeptID + ":" + k.Article
}

// StockSum is the remaining stock value.
func (s *StockItem) StockSum() float64 {
	return s.Qty * s.Price
}

func (s *StockItem) Key() StockKey {
	return StockKey{DeptID: s.DeptID, Article: s.Article}
}

func (s *StockItem) CreateLogView() AuditLog {
	return AuditLog{
		ResourceType: "stock_item",
		ResourceKey:  s.Key().String(),
	}
}
