package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/wip-ledger/internal/domain/entity"
	"github.com/jhoicas/wip-ledger/internal/domain/repository"
)

var _ repository.AnalyticsRepository = (*AnalyticsRepo)(nil)

// AnalyticsRepo consultas de solo lectura para el tablero del WIP.
type AnalyticsRepo struct {
	q Querier
}

// NewAnalyticsRepository construye el adaptador de analítica.
func NewAnalyticsRepository(q Querier) *AnalyticsRepo {
	return &AnalyticsRepo{q: q}
}

// StockByPart agrupa las filas available con stock por número de parte.
func (r *AnalyticsRepo) StockByPart(ctx context.Context, limit int) ([]repository.PartStockResult, error) {
	const query = `
	SELECT
	    partnumber,
	    COUNT(DISTINCT lotnumber) AS lots,
	    COUNT(*)                  AS row_count,
	    SUM(quantity)::BIGINT     AS available
	FROM wip_inventory
	WHERE status = $1 AND quantity > 0
	GROUP BY partnumber
	ORDER BY available DESC, partnumber
	LIMIT $2`

	rows, err := r.q.Query(ctx, query, entity.LotStatusAvailable, limit)
	if err != nil {
		return nil, fmt.Errorf("analytics.StockByPart: %w", err)
	}
	defer rows.Close()

	var results []repository.PartStockResult
	for rows.Next() {
		var row repository.PartStockResult
		if err := rows.Scan(&row.PartNumber, &row.Lots, &row.Rows, &row.Available); err != nil {
			return nil, fmt.Errorf("analytics.StockByPart scan: %w", err)
		}
		results = append(results, row)
	}
	return results, rows.Err()
}

// MovementTotals suma el ledger del período por tipo de transacción.
func (r *AnalyticsRepo) MovementTotals(ctx context.Context, from, to time.Time) ([]repository.MovementTotalResult, error) {
	const query = `
	SELECT
	    transaction_type,
	    COUNT(*)             AS entries,
	    SUM(quantity_change)::BIGINT AS quantity
	FROM wip_transactions
	WHERE timestamp >= $1 AND timestamp < $2
	GROUP BY transaction_type
	ORDER BY transaction_type`

	rows, err := r.q.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("analytics.MovementTotals: %w", err)
	}
	defer rows.Close()

	var results []repository.MovementTotalResult
	for rows.Next() {
		var row repository.MovementTotalResult
		if err := rows.Scan(&row.TransactionType, &row.Entries, &row.Quantity); err != nil {
			return nil, fmt.Errorf("analytics.MovementTotals scan: %w", err)
		}
		results = append(results, row)
	}
	return results, rows.Err()
}
