package repository

import (
	"context"
	"time"
)

// PartStockResult stock disponible agregado por número de parte.
type PartStockResult struct {
	PartNumber string
	Lots       int   // lotnumbers distintos con stock
	Rows       int   // filas available con stock
	Available  int64 // suma de quantity available
}

// MovementTotalResult suma de movimientos del ledger por tipo de transacción.
type MovementTotalResult struct {
	TransactionType string
	Entries         int
	Quantity        int64 // suma con signo de quantity_change
}

// AnalyticsRepository consultas de solo lectura para el tablero del WIP.
type AnalyticsRepository interface {
	// StockByPart devuelve las `limit` partes con más stock disponible, de mayor a menor.
	StockByPart(ctx context.Context, limit int) ([]PartStockResult, error)
	// MovementTotals agrupa el ledger del período [from, to) por tipo de transacción.
	MovementTotals(ctx context.Context, from, to time.Time) ([]MovementTotalResult, error)
}
