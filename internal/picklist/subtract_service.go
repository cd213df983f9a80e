package picklist

import (
	"fmt"

	"stockdesk/internal/repository"
	custom_error "stockdesk/pkg/errors"
	"stockdesk/pkg/models"

	"github.com/doug-martin/goqu/v9"
	"go.uber.org/zap"
)

// SubtractItem is one requested debit in a subtraction batch.
type SubtractItem struct {
	DeptID  string  `json:"dept_id" binding:"required"`
	Article string  `json:"article" binding:"required"`
	Qty     float64 `json:"qty" binding:"required"`
}

// SubtractLine is the per-item outcome: either the before/after
// quantities or an error message, never both.
type SubtractLine struct {
	DeptID    string  `json:"dept_id"`
	Article   string  `json:"article"`
	Before    float64 `json:"before"`
	Requested float64 `json:"requested"`
	After     float64 `json:"after"`
	Error     string  `json:"error,omitempty"`
}

// SubtractReport is the ordered operator-facing result of one batch.
type SubtractReport struct {
	Lines  []SubtractLine `json:"lines"`
	OK     int            `json:"ok"`
	Failed int            `json:"failed"`
}

func (r *SubtractReport) CreateLogView() models.AuditLog {
	return models.AuditLog{
		ResourceType: "stock_item",
		ResourceKey:  fmt.Sprintf("batch[%d]", len(r.Lines)),
	}
}

// SubtractService batch-applies collected quantities back onto the
// ledger, clamped at zero, and invalidates affected card cache entries.
type SubtractService struct {
	db     *goqu.Database
	stocks stockStore
	cache  cacheInvalidator
	audit  auditor
	logger *zap.Logger
	runTx  txRunner
}

func NewSubtractService(r *repository.Repository, stocks stockStore, cache cacheInvalidator, audit auditor, logger *zap.Logger) *SubtractService {
	return &SubtractService{
		db:     r.GoquDBWrapper,
		stocks: stocks,
		cache:  cache,
		audit:  audit,
		logger: logger,
		runTx:  repository.WithTransaction,
	}
}

// SubtractBatch aggregates duplicate keys, then processes every key in
// one shared transaction: locked read, clamp at zero, write back, cache
// invalidation, report line. A missing item is recorded as an error line
// and never aborts the batch; a store-level failure rolls back the whole
// batch.
func (s *SubtractService) SubtractBatch(items []SubtractItem) (*SubtractReport, error) {
	if len(items) == 0 {
		return nil, custom_error.NewValidationError("subtraction batch must not be empty")
	}
	for _, item := range items {
		if item.DeptID == "" || item.Article == "" {
			return nil, custom_error.NewValidationError("department and article must not be empty")
		}
		if item.Qty <= 0 {
			return nil, custom_error.NewValidationError("quantity for %s:%s must be positive, got %v", item.DeptID, item.Article, item.Qty)
		}
	}

	keys, quantities := aggregateItems(items)

	report := &SubtractReport{}
	var touched []models.StockKey

	err := s.runTx(s.db, func(tx *goqu.TxDatabase) error {
		for _, key := range keys {
			requested := quantities[key]
			line := SubtractLine{DeptID: key.DeptID, Article: key.Article, Requested: requested}

			item, err := s.stocks.GetForUpdate(tx, key.DeptID, key.Article)
			if err != nil {
				if custom_error.IsNotFound(err) {
					line.Error = "item not found"
					report.Lines = append(report.Lines, line)
					report.Failed++
					continue
				}
				return err
			}

			before := item.Qty
			after := before - requested
			if after < 0 {
				after = 0
			}

			if err := s.stocks.UpdateQty(tx, key.DeptID, key.Article, after); err != nil {
				return fmt.Errorf("failed to write back quantity for %s: %w", key, err)
			}
			if err := s.cache.InvalidateL2Tx(tx, key); err != nil {
				return err
			}

			line.Before = before
			line.After = after
			report.Lines = append(report.Lines, line)
			report.OK++
			touched = append(touched, key)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("subtraction batch rolled back: %w", err)
	}

	s.cache.DropL1(touched...)
	s.audit.Log("subtract", report, report)
	s.logger.Info("subtracted collected stock",
		zap.Int("ok", report.OK),
		zap.Int("failed", report.Failed),
	)
	return report, nil
}

// aggregateItems folds duplicate keys into one quantity each, keeping
// first-appearance order for the report.
func aggregateItems(items []SubtractItem) ([]models.StockKey, map[models.StockKey]float64) {
	var keys []models.StockKey
	quantities := make(map[models.StockKey]float64, len(items))

	for _, item := range items {
		key := models.StockKey{DeptID: item.DeptID, Article: item.Article}
		if _, seen := quantities[key]; !seen {
			keys = append(keys, key)
		}
		quantities[key] += item.Qty
	}
	return keys, quantities
}
