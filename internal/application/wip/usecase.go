package wip

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/wip-ledger/internal/domain"
	"github.com/jhoicas/wip-ledger/internal/domain/entity"
	"github.com/jhoicas/wip-ledger/internal/domain/repository"
	"github.com/jhoicas/wip-ledger/pkg/logger"
	"github.com/jhoicas/wip-ledger/pkg/partno"
)

const publishTimeout = 5 * time.Second

// LedgerUseCase implementa el ledger WIP: entradas por producción, registro de etiquetas QR
// y consumos (lote único o FIFO). Cada operación corre en una transacción con la llave bloqueada.
type LedgerUseCase struct {
	txRunner   TxRunner
	lotRepo    repository.StockLotRepository
	ledgerRepo repository.LedgerRepository
	locker     KeyLocker
	publisher  LedgerPublisher
	log        *logger.Logger
	now        func() time.Time

	auditFailures atomic.Int64
}

// Option configura el caso de uso.
type Option func(*LedgerUseCase)

// WithPublisher replica cada fila del ledger al publisher tras el commit.
func WithPublisher(p LedgerPublisher) Option {
	return func(uc *LedgerUseCase) { uc.publisher = p }
}

// WithClock reemplaza time.Now (tests).
func WithClock(now func() time.Time) Option {
	return func(uc *LedgerUseCase) { uc.now = now }
}

// NewLedgerUseCase construye el caso de uso. lotRepo y ledgerRepo se usan solo para lecturas;
// las escrituras pasan siempre por txRunner.
func NewLedgerUseCase(
	txRunner TxRunner,
	lotRepo repository.StockLotRepository,
	ledgerRepo repository.LedgerRepository,
	locker KeyLocker,
	log *logger.Logger,
	opts ...Option,
) *LedgerUseCase {
	uc := &LedgerUseCase{
		txRunner:   txRunner,
		lotRepo:    lotRepo,
		ledgerRepo: ledgerRepo,
		locker:     locker,
		log:        log,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// AuditFailures devuelve cuántas escrituras/réplicas del ledger fallaron desde el arranque.
func (uc *LedgerUseCase) AuditFailures() int64 {
	return uc.auditFailures.Load()
}

// AddStockInput entrada de AddStock. Customer, Model y Description solo aplican al crear la fila.
type AddStockInput struct {
	PartNumber  string
	LotNumber   string
	Quantity    int64
	Operator    string
	Customer    string
	Model       string
	Description string
	SourceTag   string
	Notes       string
}

// AddStock suma quantity a la fila más reciente de (partNumber, lotNumber) o crea la fila si no existe.
// Una fila transferred vuelve a available al recibir stock. Si el total de la llave
// desbordaría int64 se rechaza con domain.ErrInvalidQuantity sin tocar nada.
func (uc *LedgerUseCase) AddStock(ctx context.Context, in AddStockInput) (*entity.StockLot, error) {
	in.PartNumber = partno.Normalize(in.PartNumber)
	in.LotNumber = partno.Normalize(in.LotNumber)
	if in.PartNumber == "" || in.LotNumber == "" {
		return nil, domain.ErrMissingIdentifier
	}
	if in.Quantity <= 0 {
		return nil, domain.ErrInvalidQuantity
	}
	if in.SourceTag == "" {
		in.SourceTag = "production_output"
	}

	var (
		result  *entity.StockLot
		written []*entity.LedgerEntry
	)
	batchID := uuid.New().String()
	err := uc.withKey(ctx, in.PartNumber, in.LotNumber, func(
		lotRepo repository.StockLotRepository,
		ledgerRepo repository.LedgerRepository,
	) error {
		if err := checkHeadroom(ctx, lotRepo, in.PartNumber, in.LotNumber, in.Quantity); err != nil {
			return err
		}
		now := uc.now()
		lot, err := lotRepo.GetLatestForUpdate(ctx, in.PartNumber, in.LotNumber)
		if err != nil {
			return err
		}
		if lot != nil {
			lot.Quantity += in.Quantity
			lot.Operator = in.Operator
			lot.Status = entity.LotStatusAvailable
			lot.UpdatedAt = now
			if err := lotRepo.Update(ctx, lot); err != nil {
				return err
			}
		} else {
			lot = &entity.StockLot{
				ID:          uuid.New().String(),
				PartNumber:  in.PartNumber,
				LotNumber:   in.LotNumber,
				Customer:    nonEmpty(in.Customer, entity.DefaultCustomer),
				Model:       nonEmpty(in.Model, entity.DefaultModel),
				Description: nonEmpty(in.Description, entity.DefaultDescription),
				Quantity:    in.Quantity,
				Operator:    in.Operator,
				Status:      entity.LotStatusAvailable,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			if err := lotRepo.Create(ctx, lot); err != nil {
				return err
			}
		}
		entry := newEntry(lot, batchID, entity.TxAddFromOutput, in.Quantity, in.Operator, in.SourceTag, in.Notes, now)
		if uc.appendAudit(ctx, ledgerRepo, entry) {
			written = append(written, entry)
		}
		result = lot
		return nil
	})
	if err != nil {
		return nil, uc.wrap("add stock", err)
	}
	uc.publish(ctx, written)
	return result, nil
}

// RegisterLabelInput entrada del registro de una etiqueta QR.
type RegisterLabelInput struct {
	LabelID     string
	PartNumber  string
	LotNumber   string
	Quantity    int64
	Operator    string
	Customer    string
	Model       string
	Description string
	Notes       string
}

// RegisterLabel crea siempre una fila nueva para la etiqueta escaneada.
// Un LabelID repetido devuelve domain.ErrDuplicate.
func (uc *LedgerUseCase) RegisterLabel(ctx context.Context, in RegisterLabelInput) (*entity.StockLot, error) {
	in.PartNumber = partno.Normalize(in.PartNumber)
	in.LotNumber = partno.Normalize(in.LotNumber)
	in.LabelID = partno.Normalize(in.LabelID)
	if in.PartNumber == "" || in.LotNumber == "" {
		return nil, domain.ErrMissingIdentifier
	}
	if in.Quantity <= 0 {
		return nil, domain.ErrInvalidQuantity
	}

	var (
		result  *entity.StockLot
		written []*entity.LedgerEntry
	)
	batchID := uuid.New().String()
	err := uc.withKey(ctx, in.PartNumber, in.LotNumber, func(
		lotRepo repository.StockLotRepository,
		ledgerRepo repository.LedgerRepository,
	) error {
		if err := checkHeadroom(ctx, lotRepo, in.PartNumber, in.LotNumber, in.Quantity); err != nil {
			return err
		}
		now := uc.now()
		lot := &entity.StockLot{
			ID:          uuid.New().String(),
			PartNumber:  in.PartNumber,
			LotNumber:   in.LotNumber,
			Customer:    nonEmpty(in.Customer, entity.DefaultCustomer),
			Model:       nonEmpty(in.Model, entity.DefaultModel),
			Description: nonEmpty(in.Description, entity.DefaultDescription),
			Quantity:    in.Quantity,
			Operator:    in.Operator,
			Status:      entity.LotStatusAvailable,
			LabelID:     in.LabelID,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := lotRepo.Create(ctx, lot); err != nil {
			return err
		}
		entry := newEntry(lot, batchID, entity.TxRegisterFromQR, in.Quantity, in.Operator, "qr_label", in.Notes, now)
		if uc.appendAudit(ctx, ledgerRepo, entry) {
			written = append(written, entry)
		}
		result = lot
		return nil
	})
	if err != nil {
		return nil, uc.wrap("register label", err)
	}
	uc.publish(ctx, written)
	return result, nil
}

// ConsumeInput entrada de ConsumeStock.
// Mode single exige LotNumber; en fifo LotNumber vacío consume todos los lotes de la parte.
type ConsumeInput struct {
	Mode       string
	PartNumber string
	LotNumber  string
	Quantity   int64
	PIC        string
	SourceTag  string
	Notes      string
}

// ConsumeStock descuenta stock según el modo:
//   - single: solo la fila available más antigua de la llave; todo o nada
//     (ErrLotNotFound, *domain.InsufficientStockError).
//   - fifo: recorre las filas con stock de la más antigua a la más nueva hasta cubrir lo pedido.
//     Nunca falla por faltante: el TransferRecord informa lo satisfecho.
func (uc *LedgerUseCase) ConsumeStock(ctx context.Context, in ConsumeInput) (*entity.TransferRecord, error) {
	in.PartNumber = partno.Normalize(in.PartNumber)
	in.LotNumber = partno.Normalize(in.LotNumber)
	if in.Mode == "" {
		in.Mode = entity.ConsumeModeSingle
	}
	if in.PartNumber == "" || (in.Mode == entity.ConsumeModeSingle && in.LotNumber == "") {
		return nil, domain.ErrMissingIdentifier
	}
	if in.Quantity <= 0 {
		return nil, domain.ErrInvalidQuantity
	}

	switch in.Mode {
	case entity.ConsumeModeSingle:
		if in.SourceTag == "" {
			in.SourceTag = "qc_transfer"
		}
		return uc.consumeSingle(ctx, in)
	case entity.ConsumeModeFIFO:
		if in.SourceTag == "" {
			in.SourceTag = "production_consumption"
		}
		return uc.consumeFIFO(ctx, in)
	}
	return nil, domain.ErrInvalidInput
}

// TransferToQC consume un lote exacto (modo single). Es el flujo de transferencia a QC.
func (uc *LedgerUseCase) TransferToQC(ctx context.Context, partNumber, lotNumber string, quantity int64, pic string) (*entity.TransferRecord, error) {
	return uc.ConsumeStock(ctx, ConsumeInput{
		Mode: entity.ConsumeModeSingle, PartNumber: partNumber, LotNumber: lotNumber, Quantity: quantity, PIC: pic,
	})
}

// ConsumeFIFO consume de las filas más antiguas primero (modo fifo).
func (uc *LedgerUseCase) ConsumeFIFO(ctx context.Context, partNumber, lotNumber string, quantity int64, pic string) (*entity.TransferRecord, error) {
	return uc.ConsumeStock(ctx, ConsumeInput{
		Mode: entity.ConsumeModeFIFO, PartNumber: partNumber, LotNumber: lotNumber, Quantity: quantity, PIC: pic,
	})
}

func (uc *LedgerUseCase) consumeSingle(ctx context.Context, in ConsumeInput) (*entity.TransferRecord, error) {
	record := uc.newRecord(in)
	var written []*entity.LedgerEntry
	err := uc.withKey(ctx, in.PartNumber, in.LotNumber, func(
		lotRepo repository.StockLotRepository,
		ledgerRepo repository.LedgerRepository,
	) error {
		lot, err := lotRepo.GetOldestAvailableForUpdate(ctx, in.PartNumber, in.LotNumber)
		if err != nil {
			return err
		}
		if lot == nil {
			return domain.ErrLotNotFound
		}
		if lot.Quantity < in.Quantity {
			return &domain.InsufficientStockError{
				PartNumber: in.PartNumber,
				LotNumber:  in.LotNumber,
				Available:  lot.Quantity,
				Requested:  in.Quantity,
			}
		}
		now := uc.now()
		take, err := uc.take(ctx, lotRepo, lot, in.Quantity, in.PIC, now)
		if err != nil {
			return err
		}
		record.Takes = append(record.Takes, take)
		record.QuantitySatisfied = in.Quantity

		entry := newEntry(lot, record.BatchID, entity.TxReduceForTransfer, -in.Quantity, in.PIC, in.SourceTag, in.Notes, now)
		if uc.appendAudit(ctx, ledgerRepo, entry) {
			written = append(written, entry)
		}
		return nil
	})
	if err != nil {
		return nil, uc.wrap("transfer lot", err)
	}
	record.ResultStatus = entity.TransferFull
	uc.publish(ctx, written)
	return record, nil
}

func (uc *LedgerUseCase) consumeFIFO(ctx context.Context, in ConsumeInput) (*entity.TransferRecord, error) {
	record := uc.newRecord(in)
	var written []*entity.LedgerEntry
	err := uc.withKey(ctx, in.PartNumber, in.LotNumber, func(
		lotRepo repository.StockLotRepository,
		ledgerRepo repository.LedgerRepository,
	) error {
		lots, err := lotRepo.ListConsumableForUpdate(ctx, in.PartNumber, in.LotNumber)
		if err != nil {
			return err
		}
		now := uc.now()
		remaining := in.Quantity
		for _, lot := range lots {
			if remaining == 0 {
				break
			}
			qty := min(lot.Quantity, remaining)
			take, err := uc.take(ctx, lotRepo, lot, qty, in.PIC, now)
			if err != nil {
				return err
			}
			remaining -= qty
			record.Takes = append(record.Takes, take)

			entry := newEntry(lot, record.BatchID, entity.TxReduceForTransfer, -qty, in.PIC, in.SourceTag, in.Notes, now)
			if uc.appendAudit(ctx, ledgerRepo, entry) {
				written = append(written, entry)
			}
		}
		record.QuantitySatisfied = in.Quantity - remaining
		return nil
	})
	if err != nil {
		return nil, uc.wrap("consume fifo", err)
	}

	switch {
	case record.QuantitySatisfied == record.QuantityRequested:
		record.ResultStatus = entity.TransferFull
	case record.QuantitySatisfied > 0:
		record.ResultStatus = entity.TransferPartial
	default:
		record.ResultStatus = entity.TransferInsufficient
	}
	if record.ResultStatus != entity.TransferFull {
		uc.log.Info().
			Str("part", in.PartNumber).
			Str("lot", in.LotNumber).
			Int64("requested", record.QuantityRequested).
			Int64("satisfied", record.QuantitySatisfied).
			Str("batch_id", record.BatchID).
			Msg("consumo FIFO con faltante")
	}
	uc.publish(ctx, written)
	return record, nil
}

// checkHeadroom exige que el total de la llave más qty siga cabiendo en int64.
// Corre dentro de la transacción, con la llave ya bloqueada.
func checkHeadroom(ctx context.Context, lotRepo repository.StockLotRepository, partNumber, lotNumber string, qty int64) error {
	rows, err := lotRepo.ListByKey(ctx, partNumber, lotNumber)
	if err != nil {
		return err
	}
	var total int64
	for _, r := range rows {
		if r.Quantity > math.MaxInt64-total {
			return domain.ErrInvalidQuantity
		}
		total += r.Quantity
	}
	if total > math.MaxInt64-qty {
		return domain.ErrInvalidQuantity
	}
	return nil
}

// take descuenta qty de la fila y la marca transferred si queda en cero.
func (uc *LedgerUseCase) take(
	ctx context.Context,
	lotRepo repository.StockLotRepository,
	lot *entity.StockLot,
	qty int64,
	pic string,
	now time.Time,
) (entity.LotTake, error) {
	lot.Quantity -= qty
	if lot.Quantity == 0 {
		lot.Status = entity.LotStatusTransferred
	}
	lot.Operator = pic
	lot.UpdatedAt = now
	if err := lotRepo.Update(ctx, lot); err != nil {
		return entity.LotTake{}, err
	}
	return entity.LotTake{WipID: lot.ID, LotNumber: lot.LotNumber, Quantity: qty, Remaining: lot.Quantity}, nil
}

func (uc *LedgerUseCase) newRecord(in ConsumeInput) *entity.TransferRecord {
	return &entity.TransferRecord{
		BatchID:           uuid.New().String(),
		PartNumber:        in.PartNumber,
		LotNumber:         in.LotNumber,
		Mode:              in.Mode,
		QuantityRequested: in.Quantity,
		PIC:               in.PIC,
		CreatedAt:         uc.now(),
	}
}

// withKey toma el lock de la llave, abre la transacción y bloquea la llave también en la BD.
func (uc *LedgerUseCase) withKey(
	ctx context.Context,
	partNumber, lotNumber string,
	fn func(repository.StockLotRepository, repository.LedgerRepository) error,
) error {
	unlock, err := uc.locker.Lock(ctx, partno.Key(partNumber, lotNumber))
	if err != nil {
		return &domain.StorageError{Op: "lock key", Err: err}
	}
	defer unlock()

	return uc.txRunner.Run(ctx, func(lotRepo repository.StockLotRepository, ledgerRepo repository.LedgerRepository) error {
		if err := lotRepo.LockKey(ctx, partNumber, lotNumber); err != nil {
			return err
		}
		return fn(lotRepo, ledgerRepo)
	})
}

// appendAudit registra la fila del ledger. Un fallo no aborta la operación de stock:
// queda en el log como WARN y en el contador de fallos de auditoría.
func (uc *LedgerUseCase) appendAudit(ctx context.Context, ledgerRepo repository.LedgerRepository, e *entity.LedgerEntry) bool {
	if err := ledgerRepo.Append(ctx, e); err != nil {
		uc.auditFailures.Add(1)
		uc.log.Warn().Err(err).
			Str("part", e.PartNumber).
			Str("lot", e.LotNumber).
			Str("wip_id", e.WipID).
			Str("batch_id", e.BatchID).
			Str("type", e.TransactionType).
			Int64("quantity_change", e.QuantityChange).
			Msg("no se pudo registrar el movimiento en el ledger")
		return false
	}
	return true
}

func (uc *LedgerUseCase) publish(ctx context.Context, entries []*entity.LedgerEntry) {
	if uc.publisher == nil || len(entries) == 0 {
		return
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := uc.publisher.Publish(pctx, entries); err != nil {
		uc.auditFailures.Add(1)
		uc.log.Warn().Err(err).
			Str("batch_id", entries[0].BatchID).
			Int("entries", len(entries)).
			Msg("no se pudo replicar el ledger al destino externo")
	}
}

// wrap deja pasar los rechazos de negocio y envuelve el resto como StorageError.
func (uc *LedgerUseCase) wrap(op string, err error) error {
	if domain.IsLedgerRejection(err) {
		return err
	}
	var se *domain.StorageError
	if errors.As(err, &se) {
		return err
	}
	return &domain.StorageError{Op: op, Err: err}
}

func newEntry(lot *entity.StockLot, batchID, txType string, delta int64, operator, source, notes string, now time.Time) *entity.LedgerEntry {
	return &entity.LedgerEntry{
		ID:              uuid.New().String(),
		WipID:           lot.ID,
		BatchID:         batchID,
		TransactionType: txType,
		QuantityChange:  delta,
		PartNumber:      lot.PartNumber,
		LotNumber:       lot.LotNumber,
		Operator:        operator,
		SourceTable:     source,
		Notes:           notes,
		Timestamp:       now,
	}
}

func nonEmpty(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
