package pubsub

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	gpubsub "cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/jhoicas/wip-ledger/internal/domain/entity"
	"github.com/jhoicas/wip-ledger/pkg/logger"
)

func TestPublisher_PublicaUnMensajePorFila(t *testing.T) {
	ctx := context.Background()
	srv := pstest.NewServer()
	t.Cleanup(func() { _ = srv.Close() })

	conn, err := grpc.Dial(srv.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	admin, err := gpubsub.NewClient(ctx, "test-project", option.WithGRPCConn(conn))
	require.NoError(t, err)
	_, err = admin.CreateTopic(ctx, "wip-ledger")
	require.NoError(t, err)

	pub, err := NewPublisher(ctx, "test-project", "wip-ledger", logger.Nop(), option.WithGRPCConn(conn))
	require.NoError(t, err)

	now := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	entries := []*entity.LedgerEntry{
		{ID: "e1", WipID: "w1", BatchID: "b1", TransactionType: entity.TxReduceForTransfer, QuantityChange: -30,
			PartNumber: "TL001", LotNumber: "LOT1", Operator: "qc1", SourceTable: "qc_transfer", Timestamp: now},
		{ID: "e2", WipID: "w2", BatchID: "b1", TransactionType: entity.TxReduceForTransfer, QuantityChange: -10,
			PartNumber: "TL001", LotNumber: "LOT1", Operator: "qc1", SourceTable: "qc_transfer", Timestamp: now},
	}
	require.NoError(t, pub.Publish(ctx, entries))
	require.NoError(t, pub.Close())

	msgs := srv.Messages()
	require.Len(t, msgs, 2)

	var first LedgerMessage
	require.NoError(t, json.Unmarshal(msgs[0].Data, &first))
	assert.Equal(t, "e1", first.ID)
	assert.Equal(t, int64(-30), first.QuantityChange)
	assert.Equal(t, "b1", msgs[0].Attributes["batch_id"])
	assert.Equal(t, "-30", msgs[0].Attributes["quantity_change"])
	assert.Equal(t, entity.TxReduceForTransfer, msgs[1].Attributes["transaction_type"])
}

func TestNewPublisher_RequiereTopic(t *testing.T) {
	_, err := NewPublisher(context.Background(), "p", "", logger.Nop())
	assert.Error(t, err)
}
