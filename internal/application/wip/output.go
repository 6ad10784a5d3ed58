package wip

import (
	"context"
	"math"

	"github.com/jhoicas/wip-ledger/internal/domain"
	"github.com/jhoicas/wip-ledger/internal/domain/entity"
	"github.com/jhoicas/wip-ledger/pkg/partno"
)

// RecordOutputInput salida de producción de una máquina.
// GoodQty entra al WIP del lote producido; GoodQty+NGQty se consume del WIP de origen (si se indica).
type RecordOutputInput struct {
	PartNumber  string
	LotNumber   string
	GoodQty     int64
	NGQty       int64
	Operator    string
	Customer    string
	Model       string
	Description string
	Notes       string

	SourcePartNumber string
	SourceLotNumber  string // vacío: FIFO sobre todos los lotes de la parte de origen
}

// OutputResult resultado de RecordOutput. Lot es nil si no hubo piezas buenas;
// Consumption es nil si no se indicó origen.
type OutputResult struct {
	Lot         *entity.StockLot
	Consumption *entity.TransferRecord
}

// RecordOutput registra una salida de producción: AddStock con las piezas buenas y,
// si hay origen, consumo FIFO de las piezas procesadas (buenas + NG).
// Son dos transacciones independientes; el consumo FIFO nunca falla por faltante.
// Si el consumo falla por almacenamiento devuelve el resultado parcial junto al error:
// out.Lot es la entrada ya confirmada.
func (uc *LedgerUseCase) RecordOutput(ctx context.Context, in RecordOutputInput) (*OutputResult, error) {
	if partno.Normalize(in.PartNumber) == "" || partno.Normalize(in.LotNumber) == "" {
		return nil, domain.ErrMissingIdentifier
	}
	if in.GoodQty < 0 || in.NGQty < 0 || in.GoodQty > math.MaxInt64-in.NGQty || in.GoodQty+in.NGQty == 0 {
		return nil, domain.ErrInvalidQuantity
	}

	out := &OutputResult{}
	if in.GoodQty > 0 {
		lot, err := uc.AddStock(ctx, AddStockInput{
			PartNumber:  in.PartNumber,
			LotNumber:   in.LotNumber,
			Quantity:    in.GoodQty,
			Operator:    in.Operator,
			Customer:    in.Customer,
			Model:       in.Model,
			Description: in.Description,
			SourceTag:   "production_output",
			Notes:       in.Notes,
		})
		if err != nil {
			return nil, err
		}
		out.Lot = lot
	}

	if partno.Normalize(in.SourcePartNumber) != "" {
		rec, err := uc.ConsumeStock(ctx, ConsumeInput{
			Mode:       entity.ConsumeModeFIFO,
			PartNumber: in.SourcePartNumber,
			LotNumber:  in.SourceLotNumber,
			Quantity:   in.GoodQty + in.NGQty,
			PIC:        in.Operator,
			SourceTag:  "production_output",
			Notes:      in.Notes,
		})
		if err != nil {
			return out, err
		}
		out.Consumption = rec
	}
	return out, nil
}
