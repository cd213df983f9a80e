package auditlog

import (
	"encoding/json"
	"fmt"

	"stockdesk/internal/repository"
	"stockdesk/pkg/models"

	"github.com/doug-martin/goqu/v9"
)

type AuditLogRepository struct {
	repository *repository.Repository
}

func NewRepository(r *repository.Repository) *AuditLogRepository {
	return &AuditLogRepository{repository: r}
}

func (r *AuditLogRepository) PersistLog(entry models.AuditLog, data interface{}) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode audit payload: %w", err)
	}

	query := r.repository.GoquDBWrapper.Insert("audit_logs").
		Rows(goqu.Record{
			"resource_type": entry.ResourceType,
			"resource_key":  entry.ResourceKey,
			"action":        entry.Action,
			"data":          raw,
		})

	if _, err := query.Executor().Exec(); err != nil {
		return fmt.Errorf("failed to insert audit log record: %w", err)
	}
	return nil
}
