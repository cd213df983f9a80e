package importer

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"stockdesk/internal/repository"
	"stockdesk/pkg/auditlog"
	"stockdesk/pkg/models"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ledgerStore is the ledger surface the planner reads and writes.
type ledgerStore interface {
	ListByDepartments(deptIDs []string) ([]models.StockItem, error)
	ListByDepartmentsTx(tx *goqu.TxDatabase, deptIDs []string) ([]models.StockItem, error)
	Upsert(tx *goqu.TxDatabase, item models.StockItem) error
	SetActive(tx *goqu.TxDatabase, deptID, article string, active bool) error
}

type planStore interface {
	Save(plan *models.ImportPlan, ttl time.Duration) error
	Consume(token string) (*models.ImportPlan, error)
}

type cacheInvalidator interface {
	InvalidateL2Tx(tx *goqu.TxDatabase, keys ...models.StockKey) error
	DropL1(keys ...models.StockKey)
}

type auditor interface {
	Log(action string, data interface{}, item auditlog.Auditable)
}

type txRunner func(db *goqu.Database, fn func(tx *goqu.TxDatabase) error) error

// PlannerConfig carries the import safety knobs.
type PlannerConfig struct {
	MaxDeactivateShare float64
	DeactivateMissing  bool
	PlanTTL            time.Duration
}

// PlannerService diffs a normalized product table against the ledger in
// a two-phase dry-run/confirm protocol. Deactivation is all-or-nothing
// per plan, gated by the mass-deactivation threshold.
type PlannerService struct {
	db     *goqu.Database
	stocks ledgerStore
	plans  planStore
	cache  cacheInvalidator
	audit  auditor
	cfg    PlannerConfig
	logger *zap.Logger
	runTx  txRunner
}

func NewPlannerService(r *repository.Repository, stocks ledgerStore, plans planStore, cache cacheInvalidator, audit auditor, cfg PlannerConfig, logger *zap.Logger) *PlannerService {
	return &PlannerService{
		db:     r.GoquDBWrapper,
		stocks: stocks,
		plans:  plans,
		cache:  cache,
		audit:  audit,
		cfg:    cfg,
		logger: logger,
		runTx:  repository.WithTransaction,
	}
}

// BuildPlan runs the dry-run stage: classify rows as insert or update,
// collect deactivation candidates in the involved departments, evaluate
// the threshold and persist the plan under a fresh token. A table with
// zero article identifiers is refused before the ledger is read.
func (s *PlannerService) BuildPlan(table NormalizedTable) (*models.ImportPlan, error) {
	rows := usableRows(table.Rows)
	if countUniqueArticles(rows) == 0 {
		return nil, ErrNoArticles
	}

	plan := &models.ImportPlan{
		Token:     uuid.NewString(),
		PerDept:   map[string]models.DeptStats{},
		RowsTotal: len(table.Rows),
		CreatedAt: time.Now(),
	}
	plan.ArticlesUnique = countUniqueArticles(rows)
	plan.InvolvedDepts = involvedDepartments(rows)

	for _, dept := range plan.InvolvedDepts {
		plan.PerDept[dept] = deptStats(rows, dept)
	}

	ledgerRows, err := s.stocks.ListByDepartments(plan.InvolvedDepts)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger state for dry-run: %w", err)
	}
	ledgerKeys := make(map[models.StockKey]bool, len(ledgerRows))
	for _, item := range ledgerRows {
		ledgerKeys[item.Key()] = true
	}

	imported := make(map[models.StockKey]bool, len(rows))
	for _, row := range rows {
		key := models.StockKey{DeptID: row.Department, Article: row.Article}
		imported[key] = true
		item := rowToPlanItem(row)
		if ledgerKeys[key] {
			plan.ToUpdate = append(plan.ToUpdate, item)
		} else {
			plan.ToInsert = append(plan.ToInsert, item)
		}
	}

	if s.cfg.DeactivateMissing {
		for _, item := range ledgerRows {
			if !imported[item.Key()] {
				plan.ToDeactivate = append(plan.ToDeactivate, item.Key())
			}
		}
	}

	involvedTotal := len(ledgerRows)
	if involvedTotal < 1 {
		involvedTotal = 1
	}
	plan.DeactivationShare = float64(len(plan.ToDeactivate)) / float64(involvedTotal)
	plan.DeactivateAllowed = plan.DeactivationShare <= s.cfg.MaxDeactivateShare
	plan.Summary = summarize(plan, s.cfg)

	if err := s.plans.Save(plan, s.cfg.PlanTTL); err != nil {
		return nil, err
	}

	s.logger.Info("built import plan",
		zap.String("token", plan.Token),
		zap.Int("insert", len(plan.ToInsert)),
		zap.Int("update", len(plan.ToUpdate)),
		zap.Int("deactivate", len(plan.ToDeactivate)),
		zap.Bool("deactivate_allowed", plan.DeactivateAllowed),
	)
	return plan, nil
}

// ApplyPlan confirms a dry-run. The token is consumed up front so a
// concurrent apply of the same plan fails with PlanNotFound; ledger
// state is re-resolved inside the transaction rather than trusted from
// the dry-run snapshot. On a store failure the plan is re-saved and the
// token stays valid for retry.
func (s *PlannerService) ApplyPlan(token string) (*models.ImportReport, error) {
	plan, err := s.plans.Consume(token)
	if err != nil {
		return nil, err
	}

	report := &models.ImportReport{}
	var touched []models.StockKey

	err = s.runTx(s.db, func(tx *goqu.TxDatabase) error {
		ledgerRows, err := s.stocks.ListByDepartmentsTx(tx, plan.InvolvedDepts)
		if err != nil {
			return err
		}
		existing := make(map[models.StockKey]models.StockItem, len(ledgerRows))
		for _, item := range ledgerRows {
			existing[item.Key()] = item
		}

		for _, planItem := range plan.ToInsert {
			inserted, err := s.applyPlanItem(tx, planItem, existing)
			if err != nil {
				return err
			}
			if inserted {
				report.Inserted++
			} else {
				report.Updated++
			}
			touched = append(touched, models.StockKey{DeptID: planItem.DeptID, Article: planItem.Article})
		}
		for _, planItem := range plan.ToUpdate {
			inserted, err := s.applyPlanItem(tx, planItem, existing)
			if err != nil {
				return err
			}
			// A key that raced away between dry-run and apply is
			// silently treated as an insert.
			if inserted {
				report.Inserted++
			} else {
				report.Updated++
			}
			touched = append(touched, models.StockKey{DeptID: planItem.DeptID, Article: planItem.Article})
		}

		if s.cfg.DeactivateMissing && plan.DeactivateAllowed {
			for _, key := range plan.ToDeactivate {
				item, ok := existing[key]
				if !ok || !item.Active {
					continue
				}
				if err := s.stocks.SetActive(tx, key.DeptID, key.Article, false); err != nil {
					return err
				}
				report.Deactivated++
				touched = append(touched, key)
			}
		}
		report.DeactivateSkipped = !plan.DeactivateAllowed && len(plan.ToDeactivate) > 0

		return s.cache.InvalidateL2Tx(tx, touched...)
	})
	if err != nil {
		if saveErr := s.plans.Save(plan, s.cfg.PlanTTL); saveErr != nil {
			s.logger.Error("failed to restore import plan after rollback",
				zap.String("token", token),
				zap.Error(saveErr),
			)
		}
		return nil, fmt.Errorf("import apply rolled back: %w", err)
	}

	s.cache.DropL1(touched...)
	s.audit.Log("import_apply", report, plan)
	s.logger.Info("applied import plan",
		zap.String("token", token),
		zap.Int("inserted", report.Inserted),
		zap.Int("updated", report.Updated),
		zap.Int("deactivated", report.Deactivated),
	)
	return report, nil
}

// CancelPlan discards a persisted plan without touching the ledger.
func (s *PlannerService) CancelPlan(token string) error {
	plan, err := s.plans.Consume(token)
	if err != nil {
		return err
	}
	s.audit.Log("import_cancel", nil, plan)
	return nil
}

// applyPlanItem upserts one plan entry: fields present in the row
// overwrite, missing fields are left untouched on update and defaulted
// on insert, and active is forced true either way. Returns true when the
// key was absent from the ledger at apply time.
func (s *PlannerService) applyPlanItem(tx *goqu.TxDatabase, planItem models.PlanItem, existing map[models.StockKey]models.StockItem) (bool, error) {
	key := models.StockKey{DeptID: planItem.DeptID, Article: planItem.Article}
	item, found := existing[key]
	if !found {
		item = models.StockItem{DeptID: key.DeptID, Article: key.Article}
	}

	if planItem.Name != nil {
		item.Name = *planItem.Name
	}
	if planItem.Qty != nil {
		item.Qty = *planItem.Qty
	}
	if planItem.Price != nil {
		item.Price = *planItem.Price
	}
	if planItem.MonthsNoMove != nil {
		item.MonthsNoMove = *planItem.MonthsNoMove
	}
	item.Active = true

	if err := s.stocks.Upsert(tx, item); err != nil {
		return false, err
	}
	existing[key] = item
	return !found, nil
}

func rowToPlanItem(row Row) models.PlanItem {
	item := models.PlanItem{
		DeptID:       row.Department,
		Article:      row.Article,
		Qty:          row.Qty,
		Price:        row.Price,
		MonthsNoMove: row.MonthsNoMove,
	}
	if row.Name != "" {
		name := row.Name
		item.Name = &name
	}
	return item
}

// usableRows drops rows without an article, trying the 8-digit
// extraction from the name cell first, and defaults a missing
// department.
func usableRows(rows []Row) []Row {
	var out []Row
	for _, row := range rows {
		if row.Article == "" {
			row.Article = ExtractArticle(row.Name)
		}
		if row.Article == "" {
			continue
		}
		if row.Department == "" {
			row.Department = "unknown"
		}
		out = append(out, row)
	}
	return out
}

func countUniqueArticles(rows []Row) int {
	seen := make(map[string]bool, len(rows))
	for _, row := range rows {
		seen[row.Article] = true
	}
	return len(seen)
}

func involvedDepartments(rows []Row) []string {
	seen := map[string]bool{}
	var depts []string
	for _, row := range rows {
		if !seen[row.Department] {
			seen[row.Department] = true
			depts = append(depts, row.Department)
		}
	}
	sort.Strings(depts)
	return depts
}

func deptStats(rows []Row, dept string) models.DeptStats {
	articles := map[string]bool{}
	total := 0.0
	for _, row := range rows {
		if row.Department != dept {
			continue
		}
		articles[row.Article] = true
		if row.Sum != nil {
			total += *row.Sum
		}
	}
	return models.DeptStats{UniqueArticles: len(articles), TotalSum: total}
}

func summarize(plan *models.ImportPlan, cfg PlannerConfig) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Import dry-run: %d rows, %d unique articles\n", plan.RowsTotal, plan.ArticlesUnique)
	fmt.Fprintf(&b, "Insert: %d, update: %d\n", len(plan.ToInsert), len(plan.ToUpdate))
	switch {
	case !cfg.DeactivateMissing:
		b.WriteString("Deactivation disabled by configuration\n")
	case !plan.DeactivateAllowed && len(plan.ToDeactivate) > 0:
		fmt.Fprintf(&b, "Deactivate: %d blocked, share %.2f exceeds limit %.2f\n",
			len(plan.ToDeactivate), plan.DeactivationShare, cfg.MaxDeactivateShare)
	default:
		fmt.Fprintf(&b, "Deactivate: %d\n", len(plan.ToDeactivate))
	}
	for _, dept := range plan.InvolvedDepts {
		stats := plan.PerDept[dept]
		fmt.Fprintf(&b, "Dept %s: %d unique articles, sum %.2f\n", dept, stats.UniqueArticles, stats.TotalSum)
	}
	return strings.TrimRight(b.String(), "\n")
}
