package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jhoicas/wip-ledger/internal/domain/entity"
	"github.com/jhoicas/wip-ledger/internal/domain/repository"
)

var _ repository.LedgerRepository = (*LedgerRepo)(nil)

const selectLedger = `SELECT id, wip_id, batch_id, transaction_type, quantity_change, partnumber, lotnumber,
		operator, source_table, notes, timestamp FROM wip_transactions`

type ledgerRow struct {
	ID              string    `db:"id"`
	WipID           string    `db:"wip_id"`
	BatchID         string    `db:"batch_id"`
	TransactionType string    `db:"transaction_type"`
	QuantityChange  int64     `db:"quantity_change"`
	PartNumber      string    `db:"partnumber"`
	LotNumber       string    `db:"lotnumber"`
	Operator        string    `db:"operator"`
	SourceTable     string    `db:"source_table"`
	Notes           string    `db:"notes"`
	Timestamp       time.Time `db:"timestamp"`
}

// LedgerRepo ledger append-only sobre SQLite.
type LedgerRepo struct {
	q Querier
}

// NewLedgerRepository construye el adaptador.
func NewLedgerRepository(q Querier) *LedgerRepo {
	return &LedgerRepo{q: q}
}

// Append inserta bajo SAVEPOINT; si el INSERT falla se deshace solo el savepoint.
func (r *LedgerRepo) Append(ctx context.Context, e *entity.LedgerEntry) error {
	if _, err := r.q.ExecContext(ctx, `SAVEPOINT ledger_append`); err != nil {
		return fmt.Errorf("savepoint ledger: %w", err)
	}
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO wip_transactions (id, wip_id, batch_id, transaction_type, quantity_change, partnumber,
			lotnumber, operator, source_table, notes, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.WipID, e.BatchID, e.TransactionType, e.QuantityChange, e.PartNumber,
		e.LotNumber, e.Operator, e.SourceTable, e.Notes, e.Timestamp.UTC(),
	)
	if err != nil {
		_, _ = r.q.ExecContext(ctx, `ROLLBACK TO ledger_append`)
		_, _ = r.q.ExecContext(ctx, `RELEASE ledger_append`)
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	if _, err := r.q.ExecContext(ctx, `RELEASE ledger_append`); err != nil {
		return fmt.Errorf("release savepoint ledger: %w", err)
	}
	return nil
}

func (r *LedgerRepo) ListByLot(ctx context.Context, lotNumber string, limit, offset int) ([]*entity.LedgerEntry, error) {
	return r.many(ctx, "list ledger by lot", selectLedger+`
		WHERE lotnumber = ? ORDER BY timestamp DESC, rowid DESC LIMIT ? OFFSET ?`, lotNumber, limit, offset)
}

func (r *LedgerRepo) ListByBatch(ctx context.Context, batchID string) ([]*entity.LedgerEntry, error) {
	return r.many(ctx, "list ledger by batch", selectLedger+` WHERE batch_id = ? ORDER BY rowid ASC`, batchID)
}

func (r *LedgerRepo) many(ctx context.Context, op, query string, args ...any) ([]*entity.LedgerEntry, error) {
	var rows []ledgerRow
	if err := sqlx.SelectContext(ctx, r.q, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	list := make([]*entity.LedgerEntry, 0, len(rows))
	for _, row := range rows {
		list = append(list, &entity.LedgerEntry{
			ID:              row.ID,
			WipID:           row.WipID,
			BatchID:         row.BatchID,
			TransactionType: row.TransactionType,
			QuantityChange:  row.QuantityChange,
			PartNumber:      row.PartNumber,
			LotNumber:       row.LotNumber,
			Operator:        row.Operator,
			SourceTable:     row.SourceTable,
			Notes:           row.Notes,
			Timestamp:       row.Timestamp,
		})
	}
	return list, nil
}
