package models

import "time"

// PicklistItem holds the quantity actually debited from the ledger on a
// user's behalf. One row per (user, dept, article).
type PicklistItem struct {
	ID            int       `db:"id" json:"id"`
	UserID        string    `db:"user_id" json:"user_id"`
	DeptID        string    `db:"dept_id" json:"dept_id"`
	Article       string    `db:"article" json:"article"`
	QtyAllocated  float64   `db:"qty_alloc" json:"qty_alloc"`
	PriceAtMoment float64   `db:"price_at_moment" json:"price_at_moment"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// OverflowItem tracks quantity requested beyond what the ledger could
// supply. Overflow never touches StockItem.Qty.
type OverflowItem struct {
	ID            int       `db:"id" json:"id"`
	UserID        string    `db:"user_id" json:"user_id"`
	DeptID        string    `db:"dept_id" json:"dept_id"`
	Article       string    `db:"article" json:"article"`
	QtyOverflow   float64   `db:"qty_overflow" json:"qty_overflow"`
	PriceAtMoment float64   `db:"price_at_moment" json:"price_at_moment"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// PicklistLine is a picklist row joined with its ledger item, used for
// user-facing listings.
type PicklistLine struct {
	DeptID       string  `db:"dept_id" json:"dept_id"`
	Article      string  `db:"article" json:"article"`
	Name         string  `db:"name" json:"name"`
	QtyAllocated float64 `db:"qty_alloc" json:"qty_alloc"`
	QtyOverflow  float64 `db:"qty_overflow" json:"qty_overflow"`
	Price        float64 `db:"price" json:"price"`
}

func (p *PicklistItem) CreateLogView() AuditLog {
	return AuditLog{
		ResourceType: "picklist_item",
		ResourceKey:  p.UserID + ":" + p.DeptID + ":" + p.Article,
	}
}
