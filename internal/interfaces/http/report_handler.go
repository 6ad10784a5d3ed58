package http

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/wip-ledger/internal/application/dto"
	"github.com/jhoicas/wip-ledger/internal/application/wip"
	"github.com/jhoicas/wip-ledger/internal/domain/entity"
	"github.com/jhoicas/wip-ledger/internal/domain/repository"
	"github.com/jhoicas/wip-ledger/internal/infrastructure/report"
	"github.com/jhoicas/wip-ledger/pkg/logger"
	"github.com/jhoicas/wip-ledger/pkg/partno"
)

const (
	reportPageSize   = 500
	reportMaxEntries = 1000
	xlsxContentType  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ReportHandler genera los reportes descargables del WIP.
type ReportHandler struct {
	uc  *wip.LedgerUseCase
	log *logger.Logger
	now func() time.Time
}

// NewReportHandler construye el handler.
func NewReportHandler(uc *wip.LedgerUseCase, log *logger.Logger) *ReportHandler {
	return &ReportHandler{uc: uc, log: log, now: time.Now}
}

// ExportStock godoc
// @Summary      Exportar stock WIP a Excel
// @Description  Mismos filtros que el listado; exporta todas las páginas.
// @Tags         reports
// @Security     Bearer
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param        partnumber  query  string  false  "Filtrar por parte"
// @Param        lotnumber   query  string  false  "Filtrar por lote"
// @Param        status      query  string  false  "available | transferred"
// @Success      200  {file}    file
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/wip/stock/export.xlsx [get]
func (h *ReportHandler) ExportStock(c *fiber.Ctx) error {
	filter, e := stockFilter(c, reportPageSize)
	if e != nil {
		return c.Status(fiber.StatusBadRequest).JSON(e)
	}
	lots, err := h.allStock(c.UserContext(), filter)
	if err != nil {
		return writeError(c, h.log, err)
	}
	data, err := report.StockXLSX(lots, h.now())
	if err != nil {
		return writeError(c, h.log, err)
	}
	c.Set(fiber.HeaderContentType, xlsxContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="wip-stock-%s.xlsx"`, h.now().Format("20060102")))
	return c.Send(data)
}

// LotReport godoc
// @Summary      Historial de un lote en PDF
// @Tags         reports
// @Security     Bearer
// @Produce      application/pdf
// @Param        lot  path  string  true  "lotnumber"
// @Success      200  {file}    file
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/wip/ledger/{lot}/report.pdf [get]
func (h *ReportHandler) LotReport(c *fiber.Ctx) error {
	lotNumber := partno.Normalize(c.Params("lot"))
	if lotNumber == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "MISSING_IDENTIFIER", Message: "lotnumber requerido"})
	}
	ctx := c.UserContext()
	rows, err := h.allStock(ctx, repository.StockFilter{LotNumber: lotNumber, Limit: reportPageSize})
	if err != nil {
		return writeError(c, h.log, err)
	}
	entries, err := h.uc.LotHistory(ctx, lotNumber, reportMaxEntries, 0)
	if err != nil {
		return writeError(c, h.log, err)
	}
	data, err := report.LotHistoryPDF(lotNumber, rows, entries, h.now())
	if err != nil {
		return writeError(c, h.log, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`inline; filename="wip-%s.pdf"`, lotNumber))
	return c.Send(data)
}

// allStock recorre todas las páginas del filtro.
func (h *ReportHandler) allStock(ctx context.Context, filter repository.StockFilter) ([]*entity.StockLot, error) {
	filter.Offset = 0
	var out []*entity.StockLot
	for {
		page, total, err := h.uc.ListStock(ctx, filter)
		if err != nil {
			return nil, err
		}
		out = append(out, page...)
		filter.Offset += len(page)
		if len(page) == 0 || filter.Offset >= total {
			return out, nil
		}
	}
}
