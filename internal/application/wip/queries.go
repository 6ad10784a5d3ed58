package wip

import (
	"context"

	"github.com/jhoicas/wip-ledger/internal/domain"
	"github.com/jhoicas/wip-ledger/internal/domain/entity"
	"github.com/jhoicas/wip-ledger/internal/domain/repository"
	"github.com/jhoicas/wip-ledger/pkg/partno"
)

// LotSummary filas de una llave parte/lote con el total disponible.
type LotSummary struct {
	PartNumber     string
	LotNumber      string
	Rows           []*entity.StockLot
	TotalAvailable int64
}

// GetLot obtiene una fila WIP por wip_id.
func (uc *LedgerUseCase) GetLot(ctx context.Context, id string) (*entity.StockLot, error) {
	lot, err := uc.lotRepo.GetByID(ctx, id)
	if err != nil {
		return nil, uc.wrap("get lot", err)
	}
	if lot == nil {
		return nil, domain.ErrNotFound
	}
	return lot, nil
}

// ListLotsByKey devuelve todas las filas de (partNumber, lotNumber), de la más antigua a la más nueva.
func (uc *LedgerUseCase) ListLotsByKey(ctx context.Context, partNumber, lotNumber string) (*LotSummary, error) {
	partNumber = partno.Normalize(partNumber)
	lotNumber = partno.Normalize(lotNumber)
	if partNumber == "" || lotNumber == "" {
		return nil, domain.ErrMissingIdentifier
	}
	rows, err := uc.lotRepo.ListByKey(ctx, partNumber, lotNumber)
	if err != nil {
		return nil, uc.wrap("list lots by key", err)
	}
	summary := &LotSummary{PartNumber: partNumber, LotNumber: lotNumber, Rows: rows}
	for _, r := range rows {
		if r.Status == entity.LotStatusAvailable {
			summary.TotalAvailable += r.Quantity
		}
	}
	return summary, nil
}

// ListStock lista filas WIP con filtros y paginación. Devuelve también el total sin paginar.
func (uc *LedgerUseCase) ListStock(ctx context.Context, filter repository.StockFilter) ([]*entity.StockLot, int, error) {
	filter.PartNumber = partno.Normalize(filter.PartNumber)
	filter.LotNumber = partno.Normalize(filter.LotNumber)
	switch filter.Status {
	case "", entity.LotStatusAvailable, entity.LotStatusTransferred:
	default:
		return nil, 0, domain.ErrInvalidInput
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	list, total, err := uc.lotRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, uc.wrap("list stock", err)
	}
	return list, total, nil
}

// LotHistory devuelve el historial del ledger de un número de lote, más reciente primero.
func (uc *LedgerUseCase) LotHistory(ctx context.Context, lotNumber string, limit, offset int) ([]*entity.LedgerEntry, error) {
	lotNumber = partno.Normalize(lotNumber)
	if lotNumber == "" {
		return nil, domain.ErrMissingIdentifier
	}
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	list, err := uc.ledgerRepo.ListByLot(ctx, lotNumber, limit, offset)
	if err != nil {
		return nil, uc.wrap("lot history", err)
	}
	return list, nil
}

// BatchHistory devuelve las filas del ledger de una operación (p. ej. un TransferRecord).
func (uc *LedgerUseCase) BatchHistory(ctx context.Context, batchID string) ([]*entity.LedgerEntry, error) {
	if batchID == "" {
		return nil, domain.ErrInvalidInput
	}
	list, err := uc.ledgerRepo.ListByBatch(ctx, batchID)
	if err != nil {
		return nil, uc.wrap("batch history", err)
	}
	return list, nil
}
