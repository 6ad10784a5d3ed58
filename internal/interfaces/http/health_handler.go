package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/wip-ledger/internal/application/wip"
)

// HealthResponse estado del servicio.
type HealthResponse struct {
	Status        string `json:"status"`
	Service       string `json:"service"`
	AuditFailures int64  `json:"audit_failures"`
}

// Health godoc
// @Summary      Estado del servicio
// @Description  audit_failures cuenta las filas del ledger que no se pudieron escribir o replicar desde el arranque.
// @Tags         health
// @Produce      json
// @Success      200  {object}  HealthResponse
// @Router       /health [get]
func Health(service string, uc *wip.LedgerUseCase) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(HealthResponse{Status: "ok", Service: service, AuditFailures: uc.AuditFailures()})
	}
}
