package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/wip-ledger/internal/application/wip"
	"github.com/jhoicas/wip-ledger/internal/domain/repository"
)

var _ wip.TxRunner = (*TxRunner)(nil)

const defaultLockTimeout = 10 * time.Second

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL READ COMMITTED.
// Cada transacción fija lock_timeout: una llave bloqueada por otra sesión colgada
// termina en error en lugar de esperar indefinidamente.
type TxRunner struct {
	pool        *pgxpool.Pool
	lockTimeout time.Duration
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool, lockTimeout: defaultLockTimeout}
}

// WithLockTimeout cambia el lock_timeout por transacción (0 lo desactiva).
func (r *TxRunner) WithLockTimeout(d time.Duration) *TxRunner {
	r.lockTimeout = d
	return r
}

// Run inicia la transacción, ejecuta fn con repos atados a la tx y hace Commit o Rollback.
func (r *TxRunner) Run(ctx context.Context, fn func(
	lotRepo repository.StockLotRepository,
	ledgerRepo repository.LedgerRepository,
) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if r.lockTimeout > 0 {
		// SET no acepta parámetros; el valor sale de un entero
		stmt := fmt.Sprintf("SET LOCAL lock_timeout = %d", r.lockTimeout.Milliseconds())
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("set lock_timeout: %w", err)
		}
	}

	if err := fn(NewStockLotRepository(tx), NewLedgerRepository(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
