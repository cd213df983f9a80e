package auditlog

import (
	"stockdesk/pkg/models"

	"go.uber.org/zap"
)

// Auditable yields the audit log row describing a resource.
type Auditable interface {
	CreateLogView() models.AuditLog
}

type logStore interface {
	PersistLog(entry models.AuditLog, data interface{}) error
}

type Auditlog struct {
	r      logStore
	logger *zap.Logger
}

func NewAuditLog(store logStore, logger *zap.Logger) *Auditlog {
	return &Auditlog{r: store, logger: logger}
}

// Log records an action against a resource. Audit failures are logged
// and swallowed; they never fail the business operation.
func (a *Auditlog) Log(action string, data interface{}, item Auditable) {
	entry := item.CreateLogView()
	entry.Action = action

	if err := a.r.PersistLog(entry, data); err != nil {
		a.logger.Warn("unable to create audit log entry",
			zap.String("resource", entry.ResourceKey),
			zap.Error(err),
		)
		return
	}
}
