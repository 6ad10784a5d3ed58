package dto

import (
	"time"

	"github.com/jhoicas/wip-ledger/internal/domain/entity"
)

// AddStockRequest body para POST /api/wip/stock. Operator vacío: se usa el usuario del JWT.
type AddStockRequest struct {
	PartNumber  string `json:"partnumber" validate:"required,max=64"`
	LotNumber   string `json:"lotnumber" validate:"required,max=64"`
	Quantity    int64  `json:"quantity" validate:"required,gt=0,lte=1000000000"`
	Operator    string `json:"operator" validate:"omitempty,max=100"`
	Customer    string `json:"customer" validate:"omitempty,max=100"`
	Model       string `json:"model" validate:"omitempty,max=100"`
	Description string `json:"description" validate:"omitempty,max=255"`
	SourceTag   string `json:"source_tag" validate:"omitempty,max=64"`
	Notes       string `json:"notes" validate:"omitempty,max=500"`
}

// RegisterLabelRequest body para POST /api/wip/labels (contenido de la etiqueta QR escaneada).
type RegisterLabelRequest struct {
	LabelID     string `json:"label_id" validate:"omitempty,max=128"`
	PartNumber  string `json:"partnumber" validate:"required,max=64"`
	LotNumber   string `json:"lotnumber" validate:"required,max=64"`
	Quantity    int64  `json:"quantity" validate:"required,gt=0,lte=1000000000"`
	Operator    string `json:"operator" validate:"omitempty,max=100"`
	Customer    string `json:"customer" validate:"omitempty,max=100"`
	Model       string `json:"model" validate:"omitempty,max=100"`
	Description string `json:"description" validate:"omitempty,max=255"`
	Notes       string `json:"notes" validate:"omitempty,max=500"`
}

// TransferRequest body para POST /api/wip/transfers (lote único, transferencia a QC).
type TransferRequest struct {
	PartNumber string `json:"partnumber" validate:"required,max=64"`
	LotNumber  string `json:"lotnumber" validate:"required,max=64"`
	Quantity   int64  `json:"quantity" validate:"required,gt=0,lte=1000000000"`
	PIC        string `json:"pic" validate:"omitempty,max=100"`
	Notes      string `json:"notes" validate:"omitempty,max=500"`
}

// ConsumeRequest body para POST /api/wip/consumptions (FIFO). LotNumber vacío: todos los lotes de la parte.
type ConsumeRequest struct {
	PartNumber string `json:"partnumber" validate:"required,max=64"`
	LotNumber  string `json:"lotnumber" validate:"omitempty,max=64"`
	Quantity   int64  `json:"quantity" validate:"required,gt=0,lte=1000000000"`
	PIC        string `json:"pic" validate:"omitempty,max=100"`
	SourceTag  string `json:"source_tag" validate:"omitempty,max=64"`
	Notes      string `json:"notes" validate:"omitempty,max=500"`
}

// RecordOutputRequest body para POST /api/wip/outputs.
type RecordOutputRequest struct {
	PartNumber       string `json:"partnumber" validate:"required,max=64"`
	LotNumber        string `json:"lotnumber" validate:"required,max=64"`
	GoodQty          int64  `json:"good_qty" validate:"gte=0,lte=1000000000"`
	NGQty            int64  `json:"ng_qty" validate:"gte=0,lte=1000000000"`
	Operator         string `json:"operator" validate:"omitempty,max=100"`
	Customer         string `json:"customer" validate:"omitempty,max=100"`
	Model            string `json:"model" validate:"omitempty,max=100"`
	Description      string `json:"description" validate:"omitempty,max=255"`
	Notes            string `json:"notes" validate:"omitempty,max=500"`
	SourcePartNumber string `json:"source_partnumber" validate:"omitempty,max=64"`
	SourceLotNumber  string `json:"source_lotnumber" validate:"omitempty,max=64"`
}

// StockLotResponse fila WIP.
type StockLotResponse struct {
	WipID       string    `json:"wip_id"`
	PartNumber  string    `json:"partnumber"`
	LotNumber   string    `json:"lotnumber"`
	Customer    string    `json:"customer"`
	Model       string    `json:"model"`
	Description string    `json:"description"`
	Quantity    int64     `json:"quantity"`
	Operator    string    `json:"operator"`
	Status      string    `json:"status"`
	LabelID     string    `json:"label_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// StockListResponse listado paginado de filas WIP.
type StockListResponse struct {
	Items []StockLotResponse `json:"items"`
	Page  PageResponse       `json:"page"`
}

// LotSummaryResponse filas de una llave parte/lote y su total disponible.
type LotSummaryResponse struct {
	PartNumber     string             `json:"partnumber"`
	LotNumber      string             `json:"lotnumber"`
	TotalAvailable int64              `json:"total_available"`
	Rows           []StockLotResponse `json:"rows"`
}

// LotTakeResponse cantidad tomada de una fila en un consumo.
type LotTakeResponse struct {
	WipID     string `json:"wip_id"`
	LotNumber string `json:"lotnumber"`
	Quantity  int64  `json:"quantity"`
	Remaining int64  `json:"remaining"`
}

// TransferResponse resultado de un consumo (single o fifo).
type TransferResponse struct {
	BatchID           string            `json:"batch_id"`
	PartNumber        string            `json:"partnumber"`
	LotNumber         string            `json:"lotnumber,omitempty"`
	Mode              string            `json:"mode"`
	QuantityRequested int64             `json:"quantity_requested"`
	QuantitySatisfied int64             `json:"quantity_satisfied"`
	Shortfall         int64             `json:"shortfall"`
	ResultStatus      string            `json:"result_status"`
	PIC               string            `json:"pic"`
	Takes             []LotTakeResponse `json:"takes"`
	CreatedAt         time.Time         `json:"created_at"`
}

// OutputResponse resultado de RecordOutput.
type OutputResponse struct {
	Lot         *StockLotResponse `json:"lot,omitempty"`
	Consumption *TransferResponse `json:"consumption,omitempty"`
}

// LedgerEntryResponse fila del ledger.
type LedgerEntryResponse struct {
	ID              string    `json:"id"`
	WipID           string    `json:"wip_id"`
	BatchID         string    `json:"batch_id"`
	TransactionType string    `json:"transaction_type"`
	QuantityChange  int64     `json:"quantity_change"`
	PartNumber      string    `json:"partnumber"`
	LotNumber       string    `json:"lotnumber"`
	Operator        string    `json:"operator"`
	SourceTable     string    `json:"source_table"`
	Notes           string    `json:"notes,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
}

// ToStockLotResponse mapea la entidad a su respuesta.
func ToStockLotResponse(l *entity.StockLot) StockLotResponse {
	return StockLotResponse{
		WipID:       l.ID,
		PartNumber:  l.PartNumber,
		LotNumber:   l.LotNumber,
		Customer:    l.Customer,
		Model:       l.Model,
		Description: l.Description,
		Quantity:    l.Quantity,
		Operator:    l.Operator,
		Status:      l.Status,
		LabelID:     l.LabelID,
		CreatedAt:   l.CreatedAt,
		UpdatedAt:   l.UpdatedAt,
	}
}

// ToStockLotList mapea una lista de filas.
func ToStockLotList(list []*entity.StockLot) []StockLotResponse {
	out := make([]StockLotResponse, 0, len(list))
	for _, l := range list {
		out = append(out, ToStockLotResponse(l))
	}
	return out
}

// ToTransferResponse mapea un TransferRecord.
func ToTransferResponse(r *entity.TransferRecord) TransferResponse {
	takes := make([]LotTakeResponse, 0, len(r.Takes))
	for _, t := range r.Takes {
		takes = append(takes, LotTakeResponse{WipID: t.WipID, LotNumber: t.LotNumber, Quantity: t.Quantity, Remaining: t.Remaining})
	}
	return TransferResponse{
		BatchID:           r.BatchID,
		PartNumber:        r.PartNumber,
		LotNumber:         r.LotNumber,
		Mode:              r.Mode,
		QuantityRequested: r.QuantityRequested,
		QuantitySatisfied: r.QuantitySatisfied,
		Shortfall:         r.Shortfall(),
		ResultStatus:      r.ResultStatus,
		PIC:               r.PIC,
		Takes:             takes,
		CreatedAt:         r.CreatedAt,
	}
}

// ToLedgerList mapea filas del ledger.
func ToLedgerList(list []*entity.LedgerEntry) []LedgerEntryResponse {
	out := make([]LedgerEntryResponse, 0, len(list))
	for _, e := range list {
		out = append(out, LedgerEntryResponse{
			ID:              e.ID,
			WipID:           e.WipID,
			BatchID:         e.BatchID,
			TransactionType: e.TransactionType,
			QuantityChange:  e.QuantityChange,
			PartNumber:      e.PartNumber,
			LotNumber:       e.LotNumber,
			Operator:        e.Operator,
			SourceTable:     e.SourceTable,
			Notes:           e.Notes,
			Timestamp:       e.Timestamp,
		})
	}
	return out
}
