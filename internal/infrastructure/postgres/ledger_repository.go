package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/wip-ledger/internal/domain/entity"
	"github.com/jhoicas/wip-ledger/internal/domain/repository"
)

var _ repository.LedgerRepository = (*LedgerRepo)(nil)

const ledgerColumns = `id, wip_id, batch_id, transaction_type, quantity_change, partnumber, lotnumber,
		operator, source_table, notes, timestamp`

// LedgerRepo ledger append-only de movimientos WIP sobre PostgreSQL.
type LedgerRepo struct {
	q Querier
}

// NewLedgerRepository construye el adaptador. Pasar pool o tx (Querier).
func NewLedgerRepository(q Querier) *LedgerRepo {
	return &LedgerRepo{q: q}
}

// Append inserta la fila bajo un SAVEPOINT: si falla, la transacción externa sigue utilizable.
func (r *LedgerRepo) Append(ctx context.Context, e *entity.LedgerEntry) error {
	sp, err := r.q.Begin(ctx)
	if err != nil {
		return fmt.Errorf("savepoint ledger: %w", err)
	}
	defer func() { _ = sp.Rollback(ctx) }()

	query := `
		INSERT INTO wip_transactions (` + ledgerColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err = sp.Exec(ctx, query,
		e.ID, e.WipID, e.BatchID, e.TransactionType, e.QuantityChange, e.PartNumber, e.LotNumber,
		e.Operator, e.SourceTable, e.Notes, e.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	if err := sp.Commit(ctx); err != nil {
		return fmt.Errorf("release savepoint ledger: %w", err)
	}
	return nil
}

// ListByLot historial de un número de lote, más reciente primero.
func (r *LedgerRepo) ListByLot(ctx context.Context, lotNumber string, limit, offset int) ([]*entity.LedgerEntry, error) {
	query := `SELECT ` + ledgerColumns + ` FROM wip_transactions
		WHERE lotnumber = $1
		ORDER BY timestamp DESC, seq DESC
		LIMIT $2 OFFSET $3`
	return r.many(ctx, "list ledger by lot", query, lotNumber, limit, offset)
}

// ListByBatch filas de una operación en orden de inserción.
func (r *LedgerRepo) ListByBatch(ctx context.Context, batchID string) ([]*entity.LedgerEntry, error) {
	query := `SELECT ` + ledgerColumns + ` FROM wip_transactions WHERE batch_id = $1 ORDER BY seq ASC`
	return r.many(ctx, "list ledger by batch", query, batchID)
}

func (r *LedgerRepo) many(ctx context.Context, op, query string, args ...any) ([]*entity.LedgerEntry, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()
	var list []*entity.LedgerEntry
	for rows.Next() {
		var e entity.LedgerEntry
		if err := rows.Scan(
			&e.ID, &e.WipID, &e.BatchID, &e.TransactionType, &e.QuantityChange, &e.PartNumber, &e.LotNumber,
			&e.Operator, &e.SourceTable, &e.Notes, &e.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		list = append(list, &e)
	}
	return list, rows.Err()
}
