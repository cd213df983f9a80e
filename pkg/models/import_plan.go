package models

import "time"

// PlanItem is one insert/update candidate in an import plan. Optional
// fields are pointers: nil means "not present in the imported row" and is
// left untouched on update, defaulted on insert.
type PlanItem struct {
	DeptID       string   `json:"dept_id"`
	Article      string   `json:"article"`
	Name         *string  `json:"name,omitempty"`
	Qty          *float64 `json:"qty,omitempty"`
	Price        *float64 `json:"price,omitempty"`
	MonthsNoMove *float64 `json:"months_no_move,omitempty"`
}

// DeptStats carries per-department dry-run aggregates.
type DeptStats struct {
	UniqueArticles int     `json:"unique_articles"`
	TotalSum       float64 `json:"total_sum"`
}

// ImportPlan is a token-addressed, two-phase description of bulk ledger
// changes. It is persisted at dry-run time and consumed exactly once by
// apply or cancel.
type ImportPlan struct {
	Token              string               `json:"token"`
	ToInsert           []PlanItem           `json:"to_insert"`
	ToUpdate           []PlanItem           `json:"to_update"`
	ToDeactivate       []StockKey           `json:"to_deactivate"`
	InvolvedDepts      []string             `json:"involved_depts"`
	DeactivateAllowed  bool                 `json:"deactivate_allowed"`
	DeactivationShare  float64              `json:"deactivation_share"`
	RowsTotal          int                  `json:"rows_total"`
	ArticlesUnique     int                  `json:"articles_unique"`
	PerDept            map[string]DeptStats `json:"per_dept"`
	Summary            string               `json:"summary"`
	CreatedAt          time.Time            `json:"created_at"`
}

// ImportReport summarizes an applied plan.
type ImportReport struct {
	Inserted           int  `json:"inserted"`
	Updated            int  `json:"updated"`
	Deactivated        int  `json:"deactivated"`
	DeactivateSkipped  bool `json:"deactivate_skipped"`
}

func (p *ImportPlan) CreateLogView() AuditLog {
	return AuditLog{
		ResourceType: "import_plan",
		ResourceKey:  p.Token,
	}
}
