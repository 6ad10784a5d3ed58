package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"

	"github.com/jhoicas/wip-ledger/internal/application/wip"
	"github.com/jhoicas/wip-ledger/internal/domain/entity"
	"github.com/jhoicas/wip-ledger/pkg/logger"
	"github.com/jhoicas/wip-ledger/pkg/partno"
)

var _ wip.LedgerPublisher = (*Publisher)(nil)

// LedgerMessage payload JSON de cada fila del ledger publicada.
type LedgerMessage struct {
	ID              string    `json:"id"`
	WipID           string    `json:"wip_id"`
	BatchID         string    `json:"batch_id"`
	TransactionType string    `json:"transaction_type"`
	QuantityChange  int64     `json:"quantity_change"`
	PartNumber      string    `json:"partnumber"`
	LotNumber       string    `json:"lotnumber"`
	Operator        string    `json:"operator"`
	SourceTable     string    `json:"source_table"`
	Notes           string    `json:"notes,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
}

// Publisher replica el ledger a un topic de Pub/Sub. La ordering key es la llave parte/lote,
// así los consumidores ven los movimientos de una llave en orden.
type Publisher struct {
	client *pubsub.Client
	topic  *pubsub.Topic
	log    *logger.Logger
}

// NewPublisher crea el cliente y referencia el topic (no lo crea).
func NewPublisher(ctx context.Context, projectID, topicID string, log *logger.Logger, opts ...option.ClientOption) (*Publisher, error) {
	if projectID == "" || topicID == "" {
		return nil, errors.New("pubsub: project id y topic son requeridos")
	}
	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("pubsub client: %w", err)
	}
	topic := client.Topic(topicID)
	topic.EnableMessageOrdering = true
	return &Publisher{client: client, topic: topic, log: log}, nil
}

// Publish envía una fila por mensaje y espera la confirmación de todas.
func (p *Publisher) Publish(ctx context.Context, entries []*entity.LedgerEntry) error {
	type pending struct {
		entry *entity.LedgerEntry
		key   string
		res   *pubsub.PublishResult
	}
	results := make([]pending, 0, len(entries))
	for _, e := range entries {
		data, err := json.Marshal(toMessage(e))
		if err != nil {
			return fmt.Errorf("encode ledger entry %s: %w", e.ID, err)
		}
		key := partno.Key(e.PartNumber, e.LotNumber)
		res := p.topic.Publish(ctx, &pubsub.Message{
			Data:        data,
			OrderingKey: key,
			Attributes: map[string]string{
				"transaction_type": e.TransactionType,
				"partnumber":       e.PartNumber,
				"lotnumber":        e.LotNumber,
				"batch_id":         e.BatchID,
				"quantity_change":  strconv.FormatInt(e.QuantityChange, 10),
			},
		})
		results = append(results, pending{entry: e, key: key, res: res})
	}

	var errs []error
	for _, r := range results {
		id, err := r.res.Get(ctx)
		if err != nil {
			// Con ordering activo la llave queda pausada tras un fallo
			p.topic.ResumePublish(r.key)
			errs = append(errs, fmt.Errorf("publish %s: %w", r.entry.ID, err))
			continue
		}
		p.log.Debug().Str("message_id", id).Str("batch_id", r.entry.BatchID).Msg("ledger publicado")
	}
	return errors.Join(errs...)
}

// Close vacía los mensajes pendientes y cierra el cliente.
func (p *Publisher) Close() error {
	p.topic.Stop()
	return p.client.Close()
}

func toMessage(e *entity.LedgerEntry) LedgerMessage {
	return LedgerMessage{
		ID:              e.ID,
		WipID:           e.WipID,
		BatchID:         e.BatchID,
		TransactionType: e.TransactionType,
		QuantityChange:  e.QuantityChange,
		PartNumber:      e.PartNumber,
		LotNumber:       e.LotNumber,
		Operator:        e.Operator,
		SourceTable:     e.SourceTable,
		Notes:           e.Notes,
		Timestamp:       e.Timestamp,
	}
}
