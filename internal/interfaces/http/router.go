package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/wip-ledger/internal/application/analytics"
	"github.com/jhoicas/wip-ledger/internal/application/auth"
	"github.com/jhoicas/wip-ledger/internal/application/wip"
	"github.com/jhoicas/wip-ledger/internal/domain/entity"
	"github.com/jhoicas/wip-ledger/pkg/jwt"
	"github.com/jhoicas/wip-ledger/pkg/logger"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	AuthUC      *auth.AuthUseCase
	LedgerUC    *wip.LedgerUseCase
	DashboardUC *analytics.DashboardUseCase
	Tokens      *jwt.Issuer
	ServiceName string
	Log         *logger.Logger
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}

	app.Get("/health", Health(deps.ServiceName, deps.LedgerUC))

	api := app.Group("/api")
	requireAuth := AuthMiddleware(deps.Tokens)

	// Auth: login público; el alta de usuarios solo la hace un admin
	authGroup := api.Group("/auth")
	authHandler := NewAuthHandler(deps.AuthUC, log.Named("auth"))
	authGroup.Post("/login", authHandler.Login)
	authGroup.Post("/register", requireAuth, RequireRole(entity.RoleAdmin), authHandler.Register)

	// WIP (protegido)
	wipGroup := api.Group("/wip", requireAuth)
	wipHandler := NewWipHandler(deps.LedgerUC, log.Named("wip"))
	reportHandler := NewReportHandler(deps.LedgerUC, log.Named("report"))

	producers := RequireRole(entity.RoleAdmin, entity.RoleOperator)
	anyRole := RequireRole(entity.RoleAdmin, entity.RoleOperator, entity.RoleQC)

	wipGroup.Post("/stock", producers, wipHandler.AddStock)
	wipGroup.Post("/labels", producers, wipHandler.RegisterLabel)
	wipGroup.Post("/outputs", producers, wipHandler.RecordOutput)
	wipGroup.Post("/consumptions", producers, wipHandler.Consume)
	wipGroup.Post("/transfers", RequireRole(entity.RoleAdmin, entity.RoleQC), wipHandler.Transfer)

	// export.xlsx antes de :id
	wipGroup.Get("/stock", anyRole, wipHandler.ListStock)
	wipGroup.Get("/stock/export.xlsx", anyRole, reportHandler.ExportStock)
	wipGroup.Get("/stock/:id", anyRole, wipHandler.GetLot)
	wipGroup.Get("/lots/:part/:lot", anyRole, wipHandler.LotsByKey)
	wipGroup.Get("/ledger/:lot/report.pdf", anyRole, reportHandler.LotReport)
	wipGroup.Get("/ledger/:lot", anyRole, wipHandler.LotHistory)
	wipGroup.Get("/batches/:id", anyRole, wipHandler.BatchHistory)

	if deps.DashboardUC != nil {
		dashboardHandler := NewDashboardHandler(deps.DashboardUC, log.Named("dashboard"))
		wipGroup.Get("/dashboard", anyRole, dashboardHandler.GetSummary)
	}
}
