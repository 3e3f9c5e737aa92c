package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// MessageWriter lo que el publicador necesita de *kafka.Writer.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// AuditPublisher publica eventos de auditoría en un tópico Kafka (clave = entidad).
type AuditPublisher struct {
	writer MessageWriter
}

var _ repository.AuditRepository = (*AuditPublisher)(nil)

// NewWriter crea el writer de Kafka para el tópico de auditoría.
func NewWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		BatchSize:    100,
	}
}

// NewAuditPublisher construye el publicador sobre cualquier MessageWriter (ver NewWriter).
func NewAuditPublisher(writer MessageWriter) *AuditPublisher {
	return &AuditPublisher{writer: writer}
}

// auditMessage cuerpo JSON publicado.
type auditMessage struct {
	ID         string         `json:"id"`
	Action     string         `json:"action"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	ActorID    string         `json:"actor_id,omitempty"`
	StoreID    string         `json:"store_id,omitempty"`
	Before     map[string]any `json:"before,omitempty"`
	After      map[string]any `json:"after,omitempty"`
	Changes    map[string]any `json:"changes,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Create publica el evento como JSON con clave EntityID; los eventos de una entidad van a la misma partición.
func (p *AuditPublisher) Create(ctx context.Context, event *entity.AuditEvent) error {
	payload, err := json.Marshal(auditMessage{
		ID:         event.ID,
		Action:     event.Action,
		EntityType: event.EntityType,
		EntityID:   event.EntityID,
		ActorID:    event.ActorID,
		StoreID:    event.StoreID,
		Before:     event.Before,
		After:      event.After,
		Changes:    event.Changes,
		Metadata:   event.Metadata,
		CreatedAt:  event.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("serializar evento de auditoría: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(event.EntityID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "action", Value: []byte(event.Action)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publicar evento de auditoría: %w", err)
	}
	return nil
}

// Close cierra el writer y vacía los mensajes pendientes.
func (p *AuditPublisher) Close() error {
	return p.writer.Close()
}
