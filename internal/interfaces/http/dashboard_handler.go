package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/wip-ledger/internal/application/analytics"
	"github.com/jhoicas/wip-ledger/pkg/logger"
)

// DashboardHandler expone el tablero del WIP.
type DashboardHandler struct {
	uc  *analytics.DashboardUseCase
	log *logger.Logger
}

// NewDashboardHandler construye el handler.
func NewDashboardHandler(uc *analytics.DashboardUseCase, log *logger.Logger) *DashboardHandler {
	return &DashboardHandler{uc: uc, log: log}
}

// GetSummary godoc
// @Summary      Tablero del WIP
// @Description  Partes con más stock disponible y movimientos del ledger de hoy y del mes por tipo.
// @Tags         dashboard
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.DashboardSummaryDTO
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /api/wip/dashboard [get]
func (h *DashboardHandler) GetSummary(c *fiber.Ctx) error {
	out, err := h.uc.GetSummary(c.UserContext())
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(out)
}
