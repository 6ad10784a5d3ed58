// Package store abre el almacén configurado (PostgreSQL o SQLite) y expone sus repositorios.
package store

import (
	"context"
	"fmt"

	"github.com/jhoicas/wip-ledger/internal/application/wip"
	"github.com/jhoicas/wip-ledger/internal/domain/repository"
	"github.com/jhoicas/wip-ledger/internal/infrastructure/postgres"
	"github.com/jhoicas/wip-ledger/internal/infrastructure/sqlite"
	"github.com/jhoicas/wip-ledger/pkg/config"
	"github.com/jhoicas/wip-ledger/pkg/logger"
)

// Store repositorios de lectura, runner transaccional y cierre del almacén abierto.
type Store struct {
	TxRunner  wip.TxRunner
	Lots      repository.StockLotRepository
	Ledger    repository.LedgerRepository
	Users     repository.UserRepository
	Analytics repository.AnalyticsRepository

	close func()
}

// Open conecta según cfg.Driver y aplica el esquema si AutoMigrate está activo.
func Open(ctx context.Context, cfg config.DBConfig, log *logger.Logger) (*Store, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		pool, err := postgres.NewPool(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if cfg.AutoMigrate {
			if err := postgres.Migrate(ctx, pool); err != nil {
				pool.Close()
				return nil, err
			}
		}
		log.Info().Str("driver", cfg.Driver).Bool("migrated", cfg.AutoMigrate).Msg("almacén abierto")
		return &Store{
			TxRunner:  postgres.NewTxRunner(pool),
			Lots:      postgres.NewStockLotRepository(pool),
			Ledger:    postgres.NewLedgerRepository(pool),
			Users:     postgres.NewUserRepository(pool),
			Analytics: postgres.NewAnalyticsRepository(pool),
			close:     pool.Close,
		}, nil

	case config.DriverSQLite:
		db, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		if cfg.AutoMigrate {
			if err := sqlite.Migrate(ctx, db); err != nil {
				_ = db.Close()
				return nil, err
			}
		}
		log.Info().Str("driver", cfg.Driver).Str("path", cfg.SQLitePath).Msg("almacén abierto")
		return &Store{
			TxRunner:  sqlite.NewTxRunner(db),
			Lots:      sqlite.NewStockLotRepository(db),
			Ledger:    sqlite.NewLedgerRepository(db),
			Users:     sqlite.NewUserRepository(db),
			Analytics: sqlite.NewAnalyticsRepository(db),
			close:     func() { _ = db.Close() },
		}, nil
	}
	return nil, fmt.Errorf("store: driver desconocido %q", cfg.Driver)
}

// Close libera las conexiones.
func (s *Store) Close() {
	if s.close != nil {
		s.close()
	}
}
