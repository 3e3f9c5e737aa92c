package audit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// Sink recibe eventos de auditoría. Record nunca bloquea ni falla hacia el llamador:
// la escritura es best-effort y los errores solo se registran en el log.
type Sink interface {
	Record(event entity.AuditEvent)
}

// NoopSink descarta los eventos.
type NoopSink struct{}

func (NoopSink) Record(entity.AuditEvent) {}

// Options parámetros de la cola asíncrona.
type Options struct {
	QueueSize    int
	Workers      int
	PIIFields    []string
	WriteTimeout time.Duration
}

// AsyncSink encola eventos y los escribe con un pool de workers.
// Si la cola está llena el evento se descarta y se registra una advertencia.
type AsyncSink struct {
	repo    repository.AuditRepository
	log     *logger.Logger
	queue   chan entity.AuditEvent
	pii     map[string]struct{}
	timeout time.Duration
	now     func() time.Time

	mu      sync.RWMutex
	closed  bool
	wg      sync.WaitGroup
	dropped atomic.Int64
	failed  atomic.Int64
}

var _ Sink = (*AsyncSink)(nil)

// NewAsyncSink construye el sink e inicia los workers.
func NewAsyncSink(repo repository.AuditRepository, log *logger.Logger, opts Options) *AsyncSink {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 1024
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 5 * time.Second
	}
	pii := make(map[string]struct{}, len(opts.PIIFields))
	for _, f := range opts.PIIFields {
		pii[f] = struct{}{}
	}
	s := &AsyncSink{
		repo:    repo,
		log:     log.Component("audit"),
		queue:   make(chan entity.AuditEvent, opts.QueueSize),
		pii:     pii,
		timeout: opts.WriteTimeout,
		now:     time.Now,
	}
	for i := 0; i < opts.Workers; i++ {
		s.wg.Add(1)
		go s.worker()
	}
	return s
}

// Record prepara el evento (id, fecha, enmascarado, diff) y lo encola sin bloquear.
func (s *AsyncSink) Record(event entity.AuditEvent) {
	event = s.prepare(event)

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		s.dropped.Add(1)
		s.log.Warn().Str("action", event.Action).Str("entity_id", event.EntityID).Msg("auditoría cerrada, evento descartado")
		return
	}
	select {
	case s.queue <- event:
	default:
		s.dropped.Add(1)
		s.log.Warn().Str("action", event.Action).Str("entity_id", event.EntityID).Msg("cola de auditoría llena, evento descartado")
	}
}

// Close deja de aceptar eventos y espera a que los workers vacíen la cola.
// Si ctx vence antes, retorna ctx.Err() y los eventos pendientes se pierden.
func (s *AsyncSink) Close(ctx context.Context) error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dropped cantidad de eventos descartados (cola llena o sink cerrado).
func (s *AsyncSink) Dropped() int64 { return s.dropped.Load() }

// Failed cantidad de eventos cuya escritura falló.
func (s *AsyncSink) Failed() int64 { return s.failed.Load() }

func (s *AsyncSink) worker() {
	defer s.wg.Done()
	for event := range s.queue {
		if err := s.write(event); err != nil {
			s.failed.Add(1)
			s.log.Error().Err(err).
				Str("action", event.Action).
				Str("entity_type", event.EntityType).
				Str("entity_id", event.EntityID).
				Msg("no se pudo escribir el evento de auditoría")
		}
	}
}

func (s *AsyncSink) write(event entity.AuditEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic en escritura de auditoría: %v", r)
		}
	}()
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	return s.repo.Create(ctx, &event)
}

func (s *AsyncSink) prepare(event entity.AuditEvent) entity.AuditEvent {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = s.now().UTC()
	}
	if event.Metadata == nil {
		event.Metadata = map[string]any{"source": "system"}
	}
	if event.Before != nil && event.After != nil && event.Changes == nil {
		event.Changes = Diff(event.Before, event.After)
	}
	event.Before = Mask(event.Before, s.pii)
	event.After = Mask(event.After, s.pii)
	event.Changes = Mask(event.Changes, s.pii)
	return event
}

// Fanout escribe el evento en todos los destinos y une los errores.
type Fanout []repository.AuditRepository

var _ repository.AuditRepository = Fanout(nil)

func (f Fanout) Create(ctx context.Context, event *entity.AuditEvent) error {
	var errs []error
	for _, dst := range f {
		if err := dst.Create(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
