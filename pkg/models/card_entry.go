package models

import "time"

// CardPayload is the rendered display data for one item card. It is a
// derived view: always reconstructible from the ledger row, never
// authoritative.
type CardPayload struct {
	Title        string  `json:"title"`
	DeptID       string  `json:"dept_id"`
	Article      string  `json:"article"`
	Qty          float64 `json:"qty"`
	Price        float64 `json:"price"`
	StockSum     float64 `json:"stock_sum"`
	MonthsNoMove float64 `json:"months_no_move"`
	Active       bool    `json:"active"`
	Found        bool    `json:"found"`
}

// CardEntry is one L2 cache row.
type CardEntry struct {
	ID        int       `db:"id" json:"id"`
	DeptID    string    `db:"dept_id" json:"dept_id"`
	Article   string    `db:"article" json:"article"`
	Payload   []byte    `db:"payload" json:"-"`
	ImageRef  string    `db:"image_ref" json:"image_ref"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
