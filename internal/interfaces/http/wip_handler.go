package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/wip-ledger/internal/application/dto"
	"github.com/jhoicas/wip-ledger/internal/application/wip"
	"github.com/jhoicas/wip-ledger/internal/domain/entity"
	"github.com/jhoicas/wip-ledger/internal/domain/repository"
	"github.com/jhoicas/wip-ledger/pkg/logger"
)

// WipHandler expone el ledger WIP: entradas, etiquetas, transferencias, consumos y consultas.
type WipHandler struct {
	uc  *wip.LedgerUseCase
	log *logger.Logger
}

// NewWipHandler construye el handler.
func NewWipHandler(uc *wip.LedgerUseCase, log *logger.Logger) *WipHandler {
	return &WipHandler{uc: uc, log: log}
}

// AddStock godoc
// @Summary      Sumar stock WIP desde una salida de producción
// @Description  Suma a la fila más reciente de partnumber/lotnumber o la crea. operator vacío: usuario del token.
// @Tags         wip
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.AddStockRequest  true  "partnumber, lotnumber, quantity"
// @Success      201   {object}  dto.StockLotResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      500   {object}  dto.ErrorResponse
// @Router       /api/wip/stock [post]
func (h *WipHandler) AddStock(c *fiber.Ctx) error {
	var in dto.AddStockRequest
	if e := bindAndValidate(c, &in); e != nil {
		return c.Status(fiber.StatusBadRequest).JSON(e)
	}
	lot, err := h.uc.AddStock(c.UserContext(), wip.AddStockInput{
		PartNumber:  in.PartNumber,
		LotNumber:   in.LotNumber,
		Quantity:    in.Quantity,
		Operator:    actor(c, in.Operator),
		Customer:    in.Customer,
		Model:       in.Model,
		Description: in.Description,
		SourceTag:   in.SourceTag,
		Notes:       in.Notes,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ToStockLotResponse(lot))
}

// RegisterLabel godoc
// @Summary      Registrar etiqueta QR
// @Description  Cada etiqueta crea una fila WIP nueva. label_id repetido: 409.
// @Tags         wip
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.RegisterLabelRequest  true  "contenido de la etiqueta"
// @Success      201   {object}  dto.StockLotResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/wip/labels [post]
func (h *WipHandler) RegisterLabel(c *fiber.Ctx) error {
	var in dto.RegisterLabelRequest
	if e := bindAndValidate(c, &in); e != nil {
		return c.Status(fiber.StatusBadRequest).JSON(e)
	}
	lot, err := h.uc.RegisterLabel(c.UserContext(), wip.RegisterLabelInput{
		LabelID:     in.LabelID,
		PartNumber:  in.PartNumber,
		LotNumber:   in.LotNumber,
		Quantity:    in.Quantity,
		Operator:    actor(c, in.Operator),
		Customer:    in.Customer,
		Model:       in.Model,
		Description: in.Description,
		Notes:       in.Notes,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ToStockLotResponse(lot))
}

// RecordOutput godoc
// @Summary      Registrar salida de máquina
// @Description  good_qty entra al WIP del lote producido; good_qty+ng_qty se consume (FIFO) del WIP de origen si se indica.
// @Description  Entrada y consumo son transacciones separadas: un 500 puede llegar después de confirmar la entrada;
// @Description  en ese caso details.committed_lot trae la fila ya actualizada.
// @Tags         wip
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.RecordOutputRequest  true  "salida de producción"
// @Success      201   {object}  dto.OutputResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      500   {object}  dto.ErrorResponse
// @Router       /api/wip/outputs [post]
func (h *WipHandler) RecordOutput(c *fiber.Ctx) error {
	var in dto.RecordOutputRequest
	if e := bindAndValidate(c, &in); e != nil {
		return c.Status(fiber.StatusBadRequest).JSON(e)
	}
	out, err := h.uc.RecordOutput(c.UserContext(), wip.RecordOutputInput{
		PartNumber:       in.PartNumber,
		LotNumber:        in.LotNumber,
		GoodQty:          in.GoodQty,
		NGQty:            in.NGQty,
		Operator:         actor(c, in.Operator),
		Customer:         in.Customer,
		Model:            in.Model,
		Description:      in.Description,
		Notes:            in.Notes,
		SourcePartNumber: in.SourcePartNumber,
		SourceLotNumber:  in.SourceLotNumber,
	})
	if err != nil {
		status, body := errorResponse(c, h.log, err)
		if out != nil && out.Lot != nil {
			if body.Details == nil {
				body.Details = map[string]any{}
			}
			body.Details["committed_lot"] = dto.ToStockLotResponse(out.Lot)
		}
		return c.Status(status).JSON(body)
	}
	var resp dto.OutputResponse
	if out.Lot != nil {
		lot := dto.ToStockLotResponse(out.Lot)
		resp.Lot = &lot
	}
	if out.Consumption != nil {
		rec := dto.ToTransferResponse(out.Consumption)
		resp.Consumption = &rec
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

// Transfer godoc
// @Summary      Transferir un lote a QC
// @Description  Consume de un único lote. Todo o nada: 404 si no hay lote disponible, 409 si no alcanza.
// @Tags         wip
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.TransferRequest  true  "partnumber, lotnumber, quantity"
// @Success      200   {object}  dto.TransferResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/wip/transfers [post]
func (h *WipHandler) Transfer(c *fiber.Ctx) error {
	var in dto.TransferRequest
	if e := bindAndValidate(c, &in); e != nil {
		return c.Status(fiber.StatusBadRequest).JSON(e)
	}
	rec, err := h.uc.ConsumeStock(c.UserContext(), wip.ConsumeInput{
		Mode:       entity.ConsumeModeSingle,
		PartNumber: in.PartNumber,
		LotNumber:  in.LotNumber,
		Quantity:   in.Quantity,
		PIC:        actor(c, in.PIC),
		Notes:      in.Notes,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.ToTransferResponse(rec))
}

// Consume godoc
// @Summary      Consumir stock en FIFO
// @Description  Recorre las filas de la más antigua a la más nueva. Un faltante no es error: result_status lo informa.
// @Tags         wip
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ConsumeRequest  true  "partnumber, lotnumber (opcional), quantity"
// @Success      200   {object}  dto.TransferResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/wip/consumptions [post]
func (h *WipHandler) Consume(c *fiber.Ctx) error {
	var in dto.ConsumeRequest
	if e := bindAndValidate(c, &in); e != nil {
		return c.Status(fiber.StatusBadRequest).JSON(e)
	}
	rec, err := h.uc.ConsumeStock(c.UserContext(), wip.ConsumeInput{
		Mode:       entity.ConsumeModeFIFO,
		PartNumber: in.PartNumber,
		LotNumber:  in.LotNumber,
		Quantity:   in.Quantity,
		PIC:        actor(c, in.PIC),
		SourceTag:  in.SourceTag,
		Notes:      in.Notes,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.ToTransferResponse(rec))
}

// ListStock godoc
// @Summary      Listar stock WIP
// @Tags         wip
// @Security     Bearer
// @Produce      json
// @Param        partnumber  query  string  false  "Filtrar por parte"
// @Param        lotnumber   query  string  false  "Filtrar por lote"
// @Param        status      query  string  false  "available | transferred"
// @Param        limit       query  int     false  "Tamaño de página (default 20)"
// @Param        offset      query  int     false  "Desplazamiento"
// @Success      200  {object}  dto.StockListResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/wip/stock [get]
func (h *WipHandler) ListStock(c *fiber.Ctx) error {
	filter, e := stockFilter(c, 20)
	if e != nil {
		return c.Status(fiber.StatusBadRequest).JSON(e)
	}
	list, total, err := h.uc.ListStock(c.UserContext(), filter)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.StockListResponse{
		Items: dto.ToStockLotList(list),
		Page:  dto.PageResponse{Limit: filter.Limit, Offset: filter.Offset, Total: total},
	})
}

// GetLot godoc
// @Summary      Obtener fila WIP por wip_id
// @Tags         wip
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "wip_id"
// @Success      200  {object}  dto.StockLotResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/wip/stock/{id} [get]
func (h *WipHandler) GetLot(c *fiber.Ctx) error {
	lot, err := h.uc.GetLot(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.ToStockLotResponse(lot))
}

// LotsByKey godoc
// @Summary      Filas de una llave parte/lote
// @Tags         wip
// @Security     Bearer
// @Produce      json
// @Param        part  path  string  true  "partnumber"
// @Param        lot   path  string  true  "lotnumber"
// @Success      200  {object}  dto.LotSummaryResponse
// @Router       /api/wip/lots/{part}/{lot} [get]
func (h *WipHandler) LotsByKey(c *fiber.Ctx) error {
	summary, err := h.uc.ListLotsByKey(c.UserContext(), c.Params("part"), c.Params("lot"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.LotSummaryResponse{
		PartNumber:     summary.PartNumber,
		LotNumber:      summary.LotNumber,
		TotalAvailable: summary.TotalAvailable,
		Rows:           dto.ToStockLotList(summary.Rows),
	})
}

// LotHistory godoc
// @Summary      Historial del ledger de un lote
// @Tags         wip
// @Security     Bearer
// @Produce      json
// @Param        lot     path   string  true   "lotnumber"
// @Param        limit   query  int     false  "Tamaño de página (default 100)"
// @Param        offset  query  int     false  "Desplazamiento"
// @Success      200  {array}  dto.LedgerEntryResponse
// @Router       /api/wip/ledger/{lot} [get]
func (h *WipHandler) LotHistory(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_QUERY", Message: "parámetros inválidos"})
	}
	if e := validateStruct(&page); e != nil {
		return c.Status(fiber.StatusBadRequest).JSON(e)
	}
	page.DefaultPage(100)
	list, err := h.uc.LotHistory(c.UserContext(), c.Params("lot"), page.Limit, page.Offset)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.ToLedgerList(list))
}

// BatchHistory godoc
// @Summary      Filas del ledger de una operación
// @Tags         wip
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "batch_id"
// @Success      200  {array}  dto.LedgerEntryResponse
// @Router       /api/wip/batches/{id} [get]
func (h *WipHandler) BatchHistory(c *fiber.Ctx) error {
	list, err := h.uc.BatchHistory(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.ToLedgerList(list))
}

// stockQuery filtros de query para los listados de stock.
type stockQuery struct {
	PartNumber string `query:"partnumber" validate:"omitempty,max=64"`
	LotNumber  string `query:"lotnumber" validate:"omitempty,max=64"`
	Status     string `query:"status" validate:"omitempty,oneof=available transferred"`
	dto.PageRequest
}

func stockFilter(c *fiber.Ctx, defLimit int) (repository.StockFilter, *dto.ErrorResponse) {
	var q stockQuery
	if err := c.QueryParser(&q); err != nil {
		return repository.StockFilter{}, &dto.ErrorResponse{Code: "INVALID_QUERY", Message: "parámetros inválidos"}
	}
	if e := validateStruct(&q); e != nil {
		return repository.StockFilter{}, e
	}
	q.DefaultPage(defLimit)
	return repository.StockFilter{
		PartNumber: q.PartNumber,
		LotNumber:  q.LotNumber,
		Status:     q.Status,
		Limit:      q.Limit,
		Offset:     q.Offset,
	}, nil
}

// actor devuelve el operador explícito del body o, si viene vacío, el usuario del token.
func actor(c *fiber.Ctx, explicit string) string {
	if explicit != "" {
		return explicit
	}
	return GetUsername(c)
}
