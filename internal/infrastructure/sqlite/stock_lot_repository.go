package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jhoicas/wip-ledger/internal/domain"
	"github.com/jhoicas/wip-ledger/internal/domain/entity"
	"github.com/jhoicas/wip-ledger/internal/domain/repository"
)

var _ repository.StockLotRepository = (*StockLotRepo)(nil)

const selectLot = `SELECT wip_id, partnumber, lotnumber, customer, model, description, quantity, operator, status,
		label_id, created_at, updated_at FROM wip_inventory`

type lotRow struct {
	ID          string         `db:"wip_id"`
	PartNumber  string         `db:"partnumber"`
	LotNumber   string         `db:"lotnumber"`
	Customer    string         `db:"customer"`
	Model       string         `db:"model"`
	Description string         `db:"description"`
	Quantity    int64          `db:"quantity"`
	Operator    string         `db:"operator"`
	Status      string         `db:"status"`
	LabelID     sql.NullString `db:"label_id"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

func (r lotRow) toEntity() *entity.StockLot {
	return &entity.StockLot{
		ID:          r.ID,
		PartNumber:  r.PartNumber,
		LotNumber:   r.LotNumber,
		Customer:    r.Customer,
		Model:       r.Model,
		Description: r.Description,
		Quantity:    r.Quantity,
		Operator:    r.Operator,
		Status:      r.Status,
		LabelID:     r.LabelID.String,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

// StockLotRepo implementación de StockLotRepository sobre SQLite (usable con db o tx).
// No hay FOR UPDATE: la transacción IMMEDIATE ya excluye a otros escritores.
type StockLotRepo struct {
	q Querier
}

// NewStockLotRepository construye el adaptador.
func NewStockLotRepository(q Querier) *StockLotRepo {
	return &StockLotRepo{q: q}
}

// LockKey no hace nada: el lock de escritura de la base cubre todas las llaves.
func (r *StockLotRepo) LockKey(context.Context, string, string) error { return nil }

func (r *StockLotRepo) GetByID(ctx context.Context, id string) (*entity.StockLot, error) {
	return r.one(ctx, "get lot", selectLot+` WHERE wip_id = ?`, id)
}

func (r *StockLotRepo) GetLatestForUpdate(ctx context.Context, partNumber, lotNumber string) (*entity.StockLot, error) {
	return r.one(ctx, "get latest lot", selectLot+`
		WHERE partnumber = ? AND lotnumber = ?
		ORDER BY created_at DESC, rowid DESC LIMIT 1`, partNumber, lotNumber)
}

func (r *StockLotRepo) GetOldestAvailableForUpdate(ctx context.Context, partNumber, lotNumber string) (*entity.StockLot, error) {
	return r.one(ctx, "get oldest lot", selectLot+`
		WHERE partnumber = ? AND lotnumber = ? AND status = 'available'
		ORDER BY created_at ASC, rowid ASC LIMIT 1`, partNumber, lotNumber)
}

func (r *StockLotRepo) ListConsumableForUpdate(ctx context.Context, partNumber, lotNumber string) ([]*entity.StockLot, error) {
	return r.many(ctx, "list consumable lots", selectLot+`
		WHERE partnumber = ? AND (? = '' OR lotnumber = ?) AND quantity > 0
		ORDER BY created_at ASC, rowid ASC`, partNumber, lotNumber, lotNumber)
}

func (r *StockLotRepo) Create(ctx context.Context, lot *entity.StockLot) error {
	var label sql.NullString
	if lot.LabelID != "" {
		label = sql.NullString{String: lot.LabelID, Valid: true}
	}
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO wip_inventory (wip_id, partnumber, lotnumber, customer, model, description, quantity,
			operator, status, label_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		lot.ID, lot.PartNumber, lot.LotNumber, lot.Customer, lot.Model, lot.Description, lot.Quantity,
		lot.Operator, lot.Status, label, lot.CreatedAt.UTC(), lot.UpdatedAt.UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert lot: %w", err)
	}
	return nil
}

func (r *StockLotRepo) Update(ctx context.Context, lot *entity.StockLot) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE wip_inventory SET quantity = ?, operator = ?, status = ?, updated_at = ?
		WHERE wip_id = ?`,
		lot.Quantity, lot.Operator, lot.Status, lot.UpdatedAt.UTC(), lot.ID,
	)
	if err != nil {
		return fmt.Errorf("update lot: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *StockLotRepo) ListByKey(ctx context.Context, partNumber, lotNumber string) ([]*entity.StockLot, error) {
	return r.many(ctx, "list lots by key", selectLot+`
		WHERE partnumber = ? AND lotnumber = ?
		ORDER BY created_at ASC, rowid ASC`, partNumber, lotNumber)
}

func (r *StockLotRepo) List(ctx context.Context, f repository.StockFilter) ([]*entity.StockLot, int, error) {
	var (
		conds []string
		args  []any
	)
	if f.PartNumber != "" {
		conds = append(conds, "partnumber = ?")
		args = append(args, f.PartNumber)
	}
	if f.LotNumber != "" {
		conds = append(conds, "lotnumber = ?")
		args = append(args, f.LotNumber)
	}
	if f.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, f.Status)
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := sqlx.GetContext(ctx, r.q, &total, `SELECT COUNT(*) FROM wip_inventory`+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count lots: %w", err)
	}
	list, err := r.many(ctx, "list lots", selectLot+where+` ORDER BY updated_at DESC, rowid DESC LIMIT ? OFFSET ?`,
		append(args, f.Limit, f.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (r *StockLotRepo) one(ctx context.Context, op, query string, args ...any) (*entity.StockLot, error) {
	var row lotRow
	if err := sqlx.GetContext(ctx, r.q, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return row.toEntity(), nil
}

func (r *StockLotRepo) many(ctx context.Context, op, query string, args ...any) ([]*entity.StockLot, error) {
	var rows []lotRow
	if err := sqlx.SelectContext(ctx, r.q, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	list := make([]*entity.StockLot, 0, len(rows))
	for _, row := range rows {
		list = append(list, row.toEntity())
	}
	return list, nil
}
