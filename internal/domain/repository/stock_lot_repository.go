package repository

import (
	"context"

	"github.com/jhoicas/wip-ledger/internal/domain/entity"
)

// StockFilter filtros para el listado de stock WIP.
type StockFilter struct {
	PartNumber string
	LotNumber  string
	Status     string
	Limit      int
	Offset     int
}

// StockLotRepository define el puerto de persistencia para filas WIP.
// Los métodos *ForUpdate bloquean las filas devueltas hasta el fin de la transacción.
type StockLotRepository interface {
	// LockKey serializa las escrituras sobre una llave (partNumber, lotNumber) dentro de la transacción.
	// lotNumber vacío bloquea la llave de toda la parte.
	LockKey(ctx context.Context, partNumber, lotNumber string) error

	GetByID(ctx context.Context, id string) (*entity.StockLot, error)

	// GetLatestForUpdate devuelve la fila más reciente de la llave (cualquier estado) o nil.
	GetLatestForUpdate(ctx context.Context, partNumber, lotNumber string) (*entity.StockLot, error)

	// GetOldestAvailableForUpdate devuelve la fila available más antigua de la llave o nil.
	GetOldestAvailableForUpdate(ctx context.Context, partNumber, lotNumber string) (*entity.StockLot, error)

	// ListConsumableForUpdate devuelve las filas con quantity > 0 ordenadas por created_at ASC.
	// lotNumber vacío incluye todos los lotes de la parte.
	ListConsumableForUpdate(ctx context.Context, partNumber, lotNumber string) ([]*entity.StockLot, error)

	Create(ctx context.Context, lot *entity.StockLot) error
	Update(ctx context.Context, lot *entity.StockLot) error

	ListByKey(ctx context.Context, partNumber, lotNumber string) ([]*entity.StockLot, error)
	List(ctx context.Context, filter StockFilter) ([]*entity.StockLot, int, error)
}
