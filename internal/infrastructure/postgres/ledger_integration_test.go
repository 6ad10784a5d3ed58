//go:build integration

package postgres_test

// Integración contra PostgreSQL real vía testcontainers.
// Ejecutar con: go test -tags integration ./internal/infrastructure/postgres/...

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/jhoicas/wip-ledger/internal/application/wip"
	"github.com/jhoicas/wip-ledger/internal/domain"
	"github.com/jhoicas/wip-ledger/internal/domain/entity"
	"github.com/jhoicas/wip-ledger/internal/infrastructure/postgres"
	"github.com/jhoicas/wip-ledger/pkg/logger"
)

// noLock deja toda la serialización a la base de datos (advisory lock + FOR UPDATE).
type noLock struct{}

func (noLock) Lock(context.Context, string) (func(), error) { return func() {}, nil }

func setupPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	pgC, err := tcPostgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		tcPostgres.WithDatabase("wip_test"),
		tcPostgres.WithUsername("wip"),
		tcPostgres.WithPassword("wip"),
		testcontainers.WithWaitStrategy(
			tcPostgres.BasicWaitStrategies()...,
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })

	dsn, err := pgC.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, postgres.Migrate(ctx, pool))
	return pool
}

func newUseCase(pool *pgxpool.Pool) *wip.LedgerUseCase {
	return wip.NewLedgerUseCase(
		postgres.NewTxRunner(pool),
		postgres.NewStockLotRepository(pool),
		postgres.NewLedgerRepository(pool),
		noLock{},
		logger.Nop(),
	)
}

func TestPostgres_Ledger(t *testing.T) {
	pool := setupPool(t)
	uc := newUseCase(pool)
	ctx := context.Background()

	t.Run("escenario entrada y transferencia", func(t *testing.T) {
		lot, err := uc.AddStock(ctx, wip.AddStockInput{PartNumber: "TL001", LotNumber: "LOT1", Quantity: 100, Operator: "op1"})
		require.NoError(t, err)
		lot, err = uc.AddStock(ctx, wip.AddStockInput{PartNumber: "TL001", LotNumber: "LOT1", Quantity: 50, Operator: "op1"})
		require.NoError(t, err)
		assert.Equal(t, int64(150), lot.Quantity)

		_, err = uc.TransferToQC(ctx, "TL001", "LOT1", 200, "qc1")
		assert.ErrorIs(t, err, domain.ErrInsufficientStock)

		rec, err := uc.TransferToQC(ctx, "TL001", "LOT1", 150, "qc1")
		require.NoError(t, err)
		assert.Equal(t, entity.TransferFull, rec.ResultStatus)

		got, err := uc.GetLot(ctx, lot.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(0), got.Quantity)
		assert.Equal(t, entity.LotStatusTransferred, got.Status)

		history, err := uc.LotHistory(ctx, "LOT1", 10, 0)
		require.NoError(t, err)
		require.Len(t, history, 3)
		assert.Equal(t, int64(-150), history[0].QuantityChange)
	})

	t.Run("fifo por etiquetas", func(t *testing.T) {
		_, err := uc.RegisterLabel(ctx, wip.RegisterLabelInput{LabelID: "QR-1", PartNumber: "TL002", LotNumber: "L1", Quantity: 30})
		require.NoError(t, err)
		_, err = uc.RegisterLabel(ctx, wip.RegisterLabelInput{LabelID: "QR-2", PartNumber: "TL002", LotNumber: "L1", Quantity: 20})
		require.NoError(t, err)
		_, err = uc.RegisterLabel(ctx, wip.RegisterLabelInput{LabelID: "QR-2", PartNumber: "TL002", LotNumber: "L1", Quantity: 1})
		assert.ErrorIs(t, err, domain.ErrDuplicate)

		rec, err := uc.ConsumeFIFO(ctx, "TL002", "L1", 40, "prod1")
		require.NoError(t, err)
		require.Len(t, rec.Takes, 2)
		assert.Equal(t, int64(30), rec.Takes[0].Quantity)
		assert.Equal(t, int64(10), rec.Takes[1].Quantity)

		batch, err := uc.BatchHistory(ctx, rec.BatchID)
		require.NoError(t, err)
		assert.Len(t, batch, 2)

		summary, err := uc.ListLotsByKey(ctx, "TL002", "L1")
		require.NoError(t, err)
		assert.Equal(t, int64(10), summary.TotalAvailable)
	})

	t.Run("sin actualizaciones perdidas", func(t *testing.T) {
		_, err := uc.AddStock(ctx, wip.AddStockInput{PartNumber: "TL003", LotNumber: "L1", Quantity: 100})
		require.NoError(t, err)

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(2)
			go func() {
				defer wg.Done()
				_, err := uc.AddStock(ctx, wip.AddStockInput{PartNumber: "TL003", LotNumber: "L1", Quantity: 1})
				assert.NoError(t, err)
			}()
			go func() {
				defer wg.Done()
				_, err := uc.TransferToQC(ctx, "TL003", "L1", 1, "qc1")
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		summary, err := uc.ListLotsByKey(ctx, "TL003", "L1")
		require.NoError(t, err)
		assert.Equal(t, int64(100), summary.TotalAvailable)
		assert.Len(t, summary.Rows, 1)
	})

	t.Run("alta concurrente sobre llave nueva", func(t *testing.T) {
		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := uc.AddStock(ctx, wip.AddStockInput{PartNumber: "TL004", LotNumber: "NEW", Quantity: 2})
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		summary, err := uc.ListLotsByKey(ctx, "TL004", "NEW")
		require.NoError(t, err)
		assert.Len(t, summary.Rows, 1, "el advisory lock evita filas duplicadas en la primera inserción")
		assert.Equal(t, int64(20), summary.TotalAvailable)
	})
}

func TestPostgres_UserRepository(t *testing.T) {
	pool := setupPool(t)
	repo := postgres.NewUserRepository(pool)
	ctx := context.Background()

	u := &entity.User{ID: "u-1", Username: "op1", PasswordHash: "x", Name: "Op", Role: entity.RoleOperator, Status: entity.UserStatusActive}
	require.NoError(t, repo.Create(ctx, u))
	assert.ErrorIs(t, repo.Create(ctx, &entity.User{ID: "u-2", Username: "op1", PasswordHash: "x", Name: "Op", Role: "operator", Status: "active"}), domain.ErrUsernameTaken)

	got, err := repo.GetByUsername(ctx, "op1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "u-1", got.ID)

	missing, err := repo.GetByID(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestPostgres_LockTimeout(t *testing.T) {
	pool := setupPool(t)
	ctx := context.Background()

	// Otra sesión retiene la llave
	holder, err := pool.Begin(ctx)
	require.NoError(t, err)
	defer func() { _ = holder.Rollback(ctx) }()
	require.NoError(t, postgres.NewStockLotRepository(holder).LockKey(ctx, "TL006", "L1"))

	uc := wip.NewLedgerUseCase(
		postgres.NewTxRunner(pool).WithLockTimeout(200*time.Millisecond),
		postgres.NewStockLotRepository(pool),
		postgres.NewLedgerRepository(pool),
		noLock{},
		logger.Nop(),
	)
	_, err = uc.AddStock(ctx, wip.AddStockInput{PartNumber: "TL006", LotNumber: "L1", Quantity: 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrStorage)
	assert.True(t, postgres.IsLockTimeout(err))
}

func TestPostgres_Analytics(t *testing.T) {
	pool := setupPool(t)
	uc := newUseCase(pool)
	ctx := context.Background()

	for _, in := range []wip.AddStockInput{
		{PartNumber: "TL001", LotNumber: "A", Quantity: 10},
		{PartNumber: "TL001", LotNumber: "B", Quantity: 15},
		{PartNumber: "TL002", LotNumber: "A", Quantity: 5},
	} {
		_, err := uc.AddStock(ctx, in)
		require.NoError(t, err)
	}

	repo := postgres.NewAnalyticsRepository(pool)
	parts, err := repo.StockByPart(ctx, 10)
	require.NoError(t, err)
	require.Len(t, parts, 2)
	assert.Equal(t, "TL001", parts[0].PartNumber)
	assert.Equal(t, int64(25), parts[0].Available)

	now := time.Now()
	totals, err := repo.MovementTotals(ctx, now.Add(-time.Hour), now.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, totals, 1)
	assert.Equal(t, 3, totals[0].Entries)
	assert.Equal(t, int64(30), totals[0].Quantity)
}
