package wip

import (
	"context"

	"github.com/jhoicas/wip-ledger/internal/domain/entity"
	"github.com/jhoicas/wip-ledger/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Garantiza atomicidad del read-modify-write sobre las filas WIP.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		lotRepo repository.StockLotRepository,
		ledgerRepo repository.LedgerRepository,
	) error) error
}

// KeyLocker serializa operaciones sobre una misma llave parte/lote entre peticiones concurrentes
// (en proceso o entre instancias de la API).
type KeyLocker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// LedgerPublisher replica las filas del ledger a un destino externo de auditoría.
// Es best-effort: un error nunca invalida la operación de stock.
type LedgerPublisher interface {
	Publish(ctx context.Context, entries []*entity.LedgerEntry) error
}
