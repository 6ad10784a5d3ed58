package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/wip-ledger/internal/application/dto"
	"github.com/jhoicas/wip-ledger/internal/domain"
	"github.com/jhoicas/wip-ledger/pkg/logger"
)

// writeError traduce un error de dominio a su respuesta HTTP.
// Los fallos de almacenamiento se registran y responden 500 sin exponer el detalle.
func writeError(c *fiber.Ctx, log *logger.Logger, err error) error {
	status, resp := errorResponse(c, log, err)
	return c.Status(status).JSON(resp)
}

func errorResponse(c *fiber.Ctx, log *logger.Logger, err error) (int, dto.ErrorResponse) {
	var short *domain.InsufficientStockError
	switch {
	case errors.As(err, &short):
		return fiber.StatusConflict, dto.ErrorResponse{
			Code:    "INSUFFICIENT_STOCK",
			Message: short.Error(),
			Details: map[string]any{
				"partnumber": short.PartNumber,
				"lotnumber":  short.LotNumber,
				"available":  short.Available,
				"requested":  short.Requested,
			},
		}
	case errors.Is(err, domain.ErrInvalidQuantity):
		return fiber.StatusBadRequest, dto.ErrorResponse{Code: "INVALID_QUANTITY", Message: err.Error()}
	case errors.Is(err, domain.ErrMissingIdentifier):
		return fiber.StatusBadRequest, dto.ErrorResponse{Code: "MISSING_IDENTIFIER", Message: err.Error()}
	case errors.Is(err, domain.ErrInvalidInput):
		return fiber.StatusBadRequest, dto.ErrorResponse{Code: "VALIDATION", Message: "datos inválidos"}
	case errors.Is(err, domain.ErrLotNotFound):
		return fiber.StatusNotFound, dto.ErrorResponse{Code: "LOT_NOT_FOUND", Message: err.Error()}
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound, dto.ErrorResponse{Code: "NOT_FOUND", Message: "recurso no encontrado"}
	case errors.Is(err, domain.ErrDuplicate):
		return fiber.StatusConflict, dto.ErrorResponse{Code: "DUPLICATE", Message: "la etiqueta ya fue registrada"}
	case errors.Is(err, domain.ErrUsernameTaken):
		return fiber.StatusConflict, dto.ErrorResponse{Code: "USERNAME_TAKEN", Message: err.Error()}
	case errors.Is(err, domain.ErrUserNotFound), errors.Is(err, domain.ErrUnauthorized):
		return fiber.StatusUnauthorized, dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "credenciales inválidas"}
	case errors.Is(err, domain.ErrForbidden):
		return fiber.StatusForbidden, dto.ErrorResponse{Code: "FORBIDDEN", Message: "cuenta inactiva o suspendida"}
	}

	code := "INTERNAL"
	if errors.Is(err, domain.ErrStorage) {
		code = "STORAGE_ERROR"
	}
	log.Error().Err(err).
		Str("request_id", requestID(c)).
		Str("method", c.Method()).
		Str("path", c.Path()).
		Msg("petición fallida")
	return fiber.StatusInternalServerError, dto.ErrorResponse{Code: code, Message: "error interno"}
}
