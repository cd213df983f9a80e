package picklist

import (
	"fmt"
	"math"

	"stockdesk/internal/repository"
	"stockdesk/pkg/auditlog"
	custom_error "stockdesk/pkg/errors"
	"stockdesk/pkg/models"

	"github.com/doug-martin/goqu/v9"
	"go.uber.org/zap"
)

// stockStore is the ledger surface the engines mutate.
type stockStore interface {
	GetForUpdate(tx *goqu.TxDatabase, deptID, article string) (*models.StockItem, error)
	UpdateQty(tx *goqu.TxDatabase, deptID, article string, qty float64) error
}

// picklistStore is the bookkeeping surface for per-user lists.
type picklistStore interface {
	UpsertAllocation(tx *goqu.TxDatabase, userID string, key models.StockKey, qty, price float64) error
	UpsertOverflow(tx *goqu.TxDatabase, userID string, key models.StockKey, qty, price float64) error
	UserDepartment(userID string) (string, error)
	ListForUser(userID string) ([]models.PicklistLine, error)
	ClearForUser(tx *goqu.TxDatabase, userID string) error
}

// cacheInvalidator invalidates card cache entries. The L2 delete runs
// inside the ledger transaction; L1 is dropped only after commit.
type cacheInvalidator interface {
	InvalidateL2Tx(tx *goqu.TxDatabase, keys ...models.StockKey) error
	DropL1(keys ...models.StockKey)
}

type auditor interface {
	Log(action string, data interface{}, item auditlog.Auditable)
}

type txRunner func(db *goqu.Database, fn func(tx *goqu.TxDatabase) error) error

// AllocationResult reports one allocate call. Alloc + Overflow always
// equals the requested quantity.
type AllocationResult struct {
	DeptID   string  `json:"dept_id"`
	Article  string  `json:"article"`
	Alloc    float64 `json:"alloc"`
	Overflow float64 `json:"overflow"`
}

// AllocationService converts a requested quantity into a ledger debit
// plus picklist bookkeeping, tracking unmet demand as overflow.
type AllocationService struct {
	db        *goqu.Database
	stocks    stockStore
	picklists picklistStore
	cache     cacheInvalidator
	audit     auditor
	logger    *zap.Logger
	runTx     txRunner
}

func NewAllocationService(r *repository.Repository, stocks stockStore, picklists picklistStore, cache cacheInvalidator, audit auditor, logger *zap.Logger) *AllocationService {
	return &AllocationService{
		db:        r.GoquDBWrapper,
		stocks:    stocks,
		picklists: picklists,
		cache:     cache,
		audit:     audit,
		logger:    logger,
		runTx:     repository.WithTransaction,
	}
}

// Allocate debits up to the available quantity from the ledger row and
// books the remainder as overflow. A missing ledger row is not an error:
// available is zero and the whole request becomes overflow.
func (s *AllocationService) Allocate(userID, deptID, article string, requested float64) (*AllocationResult, error) {
	if userID == "" || deptID == "" || article == "" {
		return nil, custom_error.NewValidationError("user, department and article must not be empty")
	}
	if requested <= 0 {
		return nil, custom_error.NewValidationError("requested quantity must be positive, got %v", requested)
	}

	pinnedDept, err := s.picklists.UserDepartment(userID)
	if err != nil {
		return nil, err
	}
	if pinnedDept != "" && pinnedDept != deptID {
		return nil, custom_error.NewValidationError("open picklist is pinned to department %s", pinnedDept)
	}

	key := models.StockKey{DeptID: deptID, Article: article}
	result := &AllocationResult{DeptID: deptID, Article: article}

	err = s.runTx(s.db, func(tx *goqu.TxDatabase) error {
		available, price := 0.0, 0.0

		item, err := s.stocks.GetForUpdate(tx, deptID, article)
		if err != nil && !custom_error.IsNotFound(err) {
			return err
		}
		if item != nil {
			available = item.Qty
			price = item.Price
		}

		alloc := math.Min(available, requested)
		overflow := requested - alloc

		if alloc > 0 {
			if err := s.stocks.UpdateQty(tx, deptID, article, available-alloc); err != nil {
				return fmt.Errorf("failed to debit ledger: %w", err)
			}
		}

		// The allocation row is upserted even when alloc is zero, so the
		// user always ends up with a picklist entry.
		if err := s.picklists.UpsertAllocation(tx, userID, key, alloc, price); err != nil {
			return err
		}
		if overflow > 0 {
			if err := s.picklists.UpsertOverflow(tx, userID, key, overflow, price); err != nil {
				return err
			}
		}

		if err := s.cache.InvalidateL2Tx(tx, key); err != nil {
			return err
		}

		result.Alloc = alloc
		result.Overflow = overflow
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cache.DropL1(key)
	s.audit.Log("allocate", result, &models.PicklistItem{UserID: userID, DeptID: deptID, Article: article})
	s.logger.Info("allocated stock",
		zap.String("user", userID),
		zap.String("key", key.String()),
		zap.Float64("alloc", result.Alloc),
		zap.Float64("overflow", result.Overflow),
	)
	return result, nil
}

// List returns the user's current picklist joined with ledger data.
func (s *AllocationService) List(userID string) ([]models.PicklistLine, error) {
	return s.picklists.ListForUser(userID)
}

// Clear drops the user's picklist without restoring ledger quantities;
// restitution is an explicit administrative operation.
func (s *AllocationService) Clear(userID string) error {
	if userID == "" {
		return custom_error.NewValidationError("user must not be empty")
	}
	return s.runTx(s.db, func(tx *goqu.TxDatabase) error {
		return s.picklists.ClearForUser(tx, userID)
	})
}
