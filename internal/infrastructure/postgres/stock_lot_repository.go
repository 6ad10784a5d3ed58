package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/wip-ledger/internal/domain"
	"github.com/jhoicas/wip-ledger/internal/domain/entity"
	"github.com/jhoicas/wip-ledger/internal/domain/repository"
	"github.com/jhoicas/wip-ledger/pkg/partno"
)

var _ repository.StockLotRepository = (*StockLotRepo)(nil)

const lotColumns = `wip_id, partnumber, lotnumber, customer, model, description, quantity, operator, status,
		COALESCE(label_id, ''), created_at, updated_at`

// StockLotRepo implementación de StockLotRepository sobre PostgreSQL (usable con pool o tx).
type StockLotRepo struct {
	q Querier
}

// NewStockLotRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockLotRepository(q Querier) *StockLotRepo {
	return &StockLotRepo{q: q}
}

// LockKey toma un advisory lock de transacción sobre la llave parte/lote.
// Cubre la carrera de inserción sobre llaves que aún no tienen filas.
func (r *StockLotRepo) LockKey(ctx context.Context, partNumber, lotNumber string) error {
	_, err := r.q.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, partno.Key(partNumber, lotNumber))
	if err != nil {
		return fmt.Errorf("advisory lock: %w", err)
	}
	return nil
}

// GetByID obtiene una fila por wip_id. nil si no existe.
func (r *StockLotRepo) GetByID(ctx context.Context, id string) (*entity.StockLot, error) {
	query := `SELECT ` + lotColumns + ` FROM wip_inventory WHERE wip_id = $1`
	return r.one(ctx, "get lot", query, id)
}

// GetLatestForUpdate obtiene la fila más reciente de la llave y la bloquea.
func (r *StockLotRepo) GetLatestForUpdate(ctx context.Context, partNumber, lotNumber string) (*entity.StockLot, error) {
	query := `SELECT ` + lotColumns + ` FROM wip_inventory
		WHERE partnumber = $1 AND lotnumber = $2
		ORDER BY created_at DESC, seq DESC
		LIMIT 1
		FOR UPDATE`
	return r.one(ctx, "get latest lot", query, partNumber, lotNumber)
}

// GetOldestAvailableForUpdate obtiene la fila available más antigua de la llave y la bloquea.
func (r *StockLotRepo) GetOldestAvailableForUpdate(ctx context.Context, partNumber, lotNumber string) (*entity.StockLot, error) {
	query := `SELECT ` + lotColumns + ` FROM wip_inventory
		WHERE partnumber = $1 AND lotnumber = $2 AND status = 'available'
		ORDER BY created_at ASC, seq ASC
		LIMIT 1
		FOR UPDATE`
	return r.one(ctx, "get oldest lot", query, partNumber, lotNumber)
}

// ListConsumableForUpdate filas con stock, de la más antigua a la más nueva, bloqueadas.
// lotNumber vacío: todos los lotes de la parte.
func (r *StockLotRepo) ListConsumableForUpdate(ctx context.Context, partNumber, lotNumber string) ([]*entity.StockLot, error) {
	query := `SELECT ` + lotColumns + ` FROM wip_inventory
		WHERE partnumber = $1 AND ($2 = '' OR lotnumber = $2) AND quantity > 0
		ORDER BY created_at ASC, seq ASC
		FOR UPDATE`
	return r.many(ctx, "list consumable lots", query, partNumber, lotNumber)
}

// Create inserta una fila. Un label_id repetido devuelve domain.ErrDuplicate.
func (r *StockLotRepo) Create(ctx context.Context, lot *entity.StockLot) error {
	query := `
		INSERT INTO wip_inventory (wip_id, partnumber, lotnumber, customer, model, description, quantity,
			operator, status, label_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULLIF($10, ''), $11, $12)`
	_, err := r.q.Exec(ctx, query,
		lot.ID, lot.PartNumber, lot.LotNumber, lot.Customer, lot.Model, lot.Description, lot.Quantity,
		lot.Operator, lot.Status, lot.LabelID, lot.CreatedAt, lot.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert lot: %w", err)
	}
	return nil
}

// Update persiste cantidad, operador y estado de la fila.
func (r *StockLotRepo) Update(ctx context.Context, lot *entity.StockLot) error {
	query := `
		UPDATE wip_inventory SET quantity = $2, operator = $3, status = $4, updated_at = $5
		WHERE wip_id = $1`
	tag, err := r.q.Exec(ctx, query, lot.ID, lot.Quantity, lot.Operator, lot.Status, lot.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update lot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListByKey todas las filas de la llave, de la más antigua a la más nueva.
func (r *StockLotRepo) ListByKey(ctx context.Context, partNumber, lotNumber string) ([]*entity.StockLot, error) {
	query := `SELECT ` + lotColumns + ` FROM wip_inventory
		WHERE partnumber = $1 AND lotnumber = $2
		ORDER BY created_at ASC, seq ASC`
	return r.many(ctx, "list lots by key", query, partNumber, lotNumber)
}

// List filas filtradas y paginadas (más recientes primero) más el total sin paginar.
func (r *StockLotRepo) List(ctx context.Context, f repository.StockFilter) ([]*entity.StockLot, int, error) {
	var (
		conds []string
		args  []any
	)
	if f.PartNumber != "" {
		args = append(args, f.PartNumber)
		conds = append(conds, fmt.Sprintf("partnumber = $%d", len(args)))
	}
	if f.LotNumber != "" {
		args = append(args, f.LotNumber)
		conds = append(conds, fmt.Sprintf("lotnumber = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM wip_inventory`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count lots: %w", err)
	}

	args = append(args, f.Limit, f.Offset)
	query := `SELECT ` + lotColumns + ` FROM wip_inventory` + where +
		fmt.Sprintf(" ORDER BY updated_at DESC, seq DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	list, err := r.many(ctx, "list lots", query, args...)
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (r *StockLotRepo) one(ctx context.Context, op, query string, args ...any) (*entity.StockLot, error) {
	l, err := scanLot(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return l, nil
}

func (r *StockLotRepo) many(ctx context.Context, op, query string, args ...any) ([]*entity.StockLot, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()
	var list []*entity.StockLot
	for rows.Next() {
		l, err := scanLot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lot: %w", err)
		}
		list = append(list, l)
	}
	return list, rows.Err()
}

func scanLot(row pgx.Row) (*entity.StockLot, error) {
	var l entity.StockLot
	err := row.Scan(
		&l.ID, &l.PartNumber, &l.LotNumber, &l.Customer, &l.Model, &l.Description, &l.Quantity,
		&l.Operator, &l.Status, &l.LabelID, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}
