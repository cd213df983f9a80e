package importer

import (
	"encoding/json"
	"fmt"
	"time"

	"stockdesk/internal/repository"
	custom_error "stockdesk/pkg/errors"
	"stockdesk/pkg/models"

	"github.com/doug-martin/goqu/v9"
)

const planTable = "import_plans"

// PlanRepository persists import plans keyed by opaque token. A plan is
// single-consumer: Consume atomically deletes the row, so of two
// concurrent apply attempts exactly one sees the plan.
type PlanRepository struct {
	repository *repository.Repository
}

func NewPlanRepository(r *repository.Repository) *PlanRepository {
	return &PlanRepository{repository: r}
}

func (r *PlanRepository) Save(plan *models.ImportPlan, ttl time.Duration) error {
	raw, err := json.Marshal(plan)
	if err != nil {
		return fmt.Errorf("failed to encode import plan %s: %w", plan.Token, err)
	}

	query := r.repository.GoquDBWrapper.Insert(planTable).
		Rows(goqu.Record{
			"token":      plan.Token,
			"plan":       raw,
			"expires_at": time.Now().Add(ttl),
		}).
		OnConflict(
			goqu.DoUpdate(
				"token",
				goqu.Record{
					"plan":       goqu.L("EXCLUDED.plan"),
					"expires_at": goqu.L("EXCLUDED.expires_at"),
				},
			),
		)

	if _, err := query.Executor().Exec(); err != nil {
		return fmt.Errorf("failed to persist import plan %s: %w", plan.Token, err)
	}
	return nil
}

// Consume deletes the plan row and returns its content. An unknown,
// already-consumed, cancelled or expired token yields PlanNotFoundError.
func (r *PlanRepository) Consume(token string) (*models.ImportPlan, error) {
	var raw []byte
	query := r.repository.GoquDBWrapper.Delete(planTable).
		Where(
			goqu.C("token").Eq(token),
			goqu.C("expires_at").Gt(goqu.L("now()")),
		).
		Returning("plan")

	found, err := query.Executor().ScanVal(&raw)
	if err != nil {
		return nil, fmt.Errorf("failed to consume import plan %s: %w", token, err)
	}
	if !found {
		return nil, custom_error.NewPlanNotFoundError(token)
	}

	var plan models.ImportPlan
	if err := json.Unmarshal(raw, &plan); err != nil {
		return nil, fmt.Errorf("failed to decode import plan %s: %w", token, err)
	}
	return &plan, nil
}

// DeleteExpired prunes plans past their confirmation window.
func (r *PlanRepository) DeleteExpired() (int64, error) {
	query := r.repository.GoquDBWrapper.Delete(planTable).
		Where(goqu.C("expires_at").Lte(goqu.L("now()")))

	result, err := query.Executor().Exec()
	if err != nil {
		return 0, fmt.Errorf("failed to prune expired import plans: %w", err)
	}
	return result.RowsAffected()
}
