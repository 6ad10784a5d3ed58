//go:build integration

package lock

// Integración contra Redis real vía testcontainers.
// Ejecutar con: go test -tags integration ./internal/infrastructure/lock/...

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/jhoicas/wip-ledger/pkg/logger"
)

func TestRedis_LockExclusivo(t *testing.T) {
	ctx := context.Background()

	rdC, err := tcRedis.RunContainer(ctx, testcontainers.WithImage("redis:7-alpine"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdC.Terminate(ctx) })

	url, err := rdC.ConnectionString(ctx)
	require.NoError(t, err)
	rdb, err := Connect(ctx, url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })

	locker := NewRedis(rdb, 5*time.Second, logger.Nop())

	unlock, err := locker.Lock(ctx, "wip:TL001|LOT1")
	require.NoError(t, err)

	waitCtx, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(waitCtx, "wip:TL001|LOT1")
	assert.ErrorIs(t, err, ErrNotObtained)

	unlock()

	unlock2, err := locker.Lock(ctx, "wip:TL001|LOT1")
	require.NoError(t, err)
	unlock2()
}
