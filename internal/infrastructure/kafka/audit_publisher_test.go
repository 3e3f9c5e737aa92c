package kafka_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	ledgerkafka "github.com/jhoicas/stock-ledger/internal/infrastructure/kafka"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestAuditPublisher_PublicaConClaveDeEntidad(t *testing.T) {
	w := &fakeWriter{}
	p := ledgerkafka.NewAuditPublisher(w)

	err := p.Create(context.Background(), &entity.AuditEvent{
		ID:         "ev1",
		Action:     entity.AuditActionTransactionRecorded,
		EntityType: "stock_ledger",
		EntityID:   "ledger-1",
		After:      map[string]any{"quantity": 7},
		CreatedAt:  time.Now(),
	})

	require.NoError(t, err)
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "ledger-1", string(w.msgs[0].Key))
	assert.Equal(t, "action", w.msgs[0].Headers[0].Key)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &body))
	assert.Equal(t, "transaction.recorded", body["action"])
	assert.Equal(t, float64(7), body["after"].(map[string]any)["quantity"])
}

func TestAuditPublisher_PropagaErrorDelWriter(t *testing.T) {
	p := ledgerkafka.NewAuditPublisher(&fakeWriter{err: errors.New("broker caído")})

	err := p.Create(context.Background(), &entity.AuditEvent{ID: "ev1", EntityID: "x"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker caído")
}
