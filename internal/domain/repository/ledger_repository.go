package repository

import (
	"context"

	"github.com/jhoicas/wip-ledger/internal/domain/entity"
)

// LedgerRepository define el puerto del historial WIP (solo inserción, nunca update/delete).
type LedgerRepository interface {
	// Append inserta una fila. Dentro de una transacción lo hace bajo un savepoint:
	// si falla, la transacción externa sigue utilizable.
	Append(ctx context.Context, entry *entity.LedgerEntry) error
	ListByLot(ctx context.Context, lotNumber string, limit, offset int) ([]*entity.LedgerEntry, error)
	ListByBatch(ctx context.Context, batchID string) ([]*entity.LedgerEntry, error)
}
