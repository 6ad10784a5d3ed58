package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jhoicas/wip-ledger/internal/domain/entity"
	"github.com/jhoicas/wip-ledger/internal/domain/repository"
)

var _ repository.AnalyticsRepository = (*AnalyticsRepo)(nil)

// AnalyticsRepo consultas de solo lectura para el tablero del WIP.
type AnalyticsRepo struct {
	q Querier
}

// NewAnalyticsRepository construye el adaptador.
func NewAnalyticsRepository(q Querier) *AnalyticsRepo {
	return &AnalyticsRepo{q: q}
}

func (r *AnalyticsRepo) StockByPart(ctx context.Context, limit int) ([]repository.PartStockResult, error) {
	var rows []struct {
		PartNumber string `db:"partnumber"`
		Lots       int    `db:"lots"`
		Rows       int    `db:"row_count"`
		Available  int64  `db:"available"`
	}
	err := sqlx.SelectContext(ctx, r.q, &rows, `
		SELECT partnumber, COUNT(DISTINCT lotnumber) AS lots, COUNT(*) AS row_count, SUM(quantity) AS available
		FROM wip_inventory
		WHERE status = ? AND quantity > 0
		GROUP BY partnumber
		ORDER BY available DESC, partnumber
		LIMIT ?`, entity.LotStatusAvailable, limit)
	if err != nil {
		return nil, fmt.Errorf("analytics.StockByPart: %w", err)
	}
	out := make([]repository.PartStockResult, 0, len(rows))
	for _, r := range rows {
		out = append(out, repository.PartStockResult{PartNumber: r.PartNumber, Lots: r.Lots, Rows: r.Rows, Available: r.Available})
	}
	return out, nil
}

// MovementTotals compara timestamps en UTC, igual que se escriben.
func (r *AnalyticsRepo) MovementTotals(ctx context.Context, from, to time.Time) ([]repository.MovementTotalResult, error) {
	var rows []struct {
		TransactionType string `db:"transaction_type"`
		Entries         int    `db:"entries"`
		Quantity        int64  `db:"quantity"`
	}
	err := sqlx.SelectContext(ctx, r.q, &rows, `
		SELECT transaction_type, COUNT(*) AS entries, SUM(quantity_change) AS quantity
		FROM wip_transactions
		WHERE timestamp >= ? AND timestamp < ?
		GROUP BY transaction_type
		ORDER BY transaction_type`, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("analytics.MovementTotals: %w", err)
	}
	out := make([]repository.MovementTotalResult, 0, len(rows))
	for _, r := range rows {
		out = append(out, repository.MovementTotalResult{TransactionType: r.TransactionType, Entries: r.Entries, Quantity: r.Quantity})
	}
	return out, nil
}
