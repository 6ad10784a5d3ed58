package entity

import "time"

// Tipos de transacción del ledger WIP.
const (
	TxAddFromOutput     = "ADD_FROM_OUTPUT"
	TxReduceForTransfer = "REDUCE_FOR_TRANSFER"
	TxRegisterFromQR    = "REGISTER_FROM_QR"
)

// LedgerEntry es una fila inmutable del historial de movimientos WIP (solo inserción).
type LedgerEntry struct {
	ID              string
	WipID           string // referencia débil al StockLot
	BatchID         string // operación que originó la fila
	TransactionType string
	QuantityChange  int64 // positivo para entradas, negativo para consumos
	PartNumber      string
	LotNumber       string
	Operator        string
	SourceTable     string
	Notes           string
	Timestamp       time.Time
}
