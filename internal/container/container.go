package container

import (
	"database/sql"
	"log"

	auditLogRepo "stockdesk/internal/auditlog"
	"stockdesk/internal/cards"
	"stockdesk/internal/config"
	"stockdesk/internal/importer"
	"stockdesk/internal/integrations/googlesheets"
	"stockdesk/internal/ledger"
	"stockdesk/internal/picklist"
	"stockdesk/internal/repository"
	"stockdesk/internal/users"
	"stockdesk/pkg/auditlog"
	"stockdesk/pkg/security"

	"go.uber.org/zap"
)

type Container struct {
	Repository      *repository.Repository
	AuditLog        *auditlog.Auditlog
	CardCache       *cards.CardCache
	LoginHandler    *security.LoginHandler
	StockHandler    *ledger.StockHandler
	CardHandler     *cards.CardHandler
	PicklistHandler *picklist.PicklistHandler
	ImportHandler   *importer.ImportHandler
	UserHandler     *users.UsersHandler
}

func NewAppContainer(db *sql.DB, cfg *config.Config, logger *zap.Logger) *Container {
	repo := repository.NewRepository(db)

	logRepo := auditLogRepo.NewRepository(repo)
	auditLog := auditlog.NewAuditLog(logRepo, logger)

	stockRepo := ledger.NewRepository(repo)
	stockHandler := ledger.NewStockHandler(stockRepo)

	cardRepo := cards.NewCardRepository(repo)
	cardCache := cards.NewCardCache(
		cardRepo,
		stockRepo,
		cards.NewCardRenderer(),
		cfg.CardL1MaxItems,
		cfg.CardL1TTL,
		cfg.CardL2Enabled,
		logger,
	)
	cardHandler := cards.NewCardHandler(cardCache)

	picklistRepo := picklist.NewRepository(repo)
	allocationService := picklist.NewAllocationService(repo, stockRepo, picklistRepo, cardCache, auditLog, logger)
	subtractService := picklist.NewSubtractService(repo, stockRepo, cardCache, auditLog, logger)
	picklistHandler := picklist.NewPicklistHandler(allocationService, subtractService)

	planRepo := importer.NewPlanRepository(repo)
	plannerService := importer.NewPlannerService(repo, stockRepo, planRepo, cardCache, auditLog, importer.PlannerConfig{
		MaxDeactivateShare: cfg.ImportMaxDeactivateShare,
		DeactivateMissing:  cfg.ImportDeactivateMissing,
		PlanTTL:            cfg.ImportPlanTTL,
	}, logger)

	importHandler := importer.NewImportHandler(plannerService, nil)
	if source := newSheetSource(cfg); source != nil {
		importHandler = importer.NewImportHandler(plannerService, source)
	}

	userRepo := users.NewRepository(repo)
	userHandler := users.NewHandler(userRepo)
	loginHandler := security.NewLoginHandler(repo)

	return &Container{
		Repository:      repo,
		AuditLog:        auditLog,
		CardCache:       cardCache,
		LoginHandler:    loginHandler,
		StockHandler:    stockHandler,
		CardHandler:     cardHandler,
		PicklistHandler: picklistHandler,
		ImportHandler:   importHandler,
		UserHandler:     userHandler,
	}
}

// newSheetSource is best effort: the service runs fine without Google
// credentials, only the sheet-sourced import endpoint is disabled.
func newSheetSource(cfg *config.Config) *googlesheets.SheetSource {
	credentialsFile := cfg.SheetsCredentialsFile
	if credentialsFile == "" {
		credentialsFile = "configs/google-credentials.json"
	}

	sheetsService, err := googlesheets.NewSheetsService(credentialsFile)
	if err != nil {
		log.Printf("Google Sheets client unavailable: %v", err)
		return nil
	}

	return googlesheets.NewSheetSource(sheetsService)
}
