package audit_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/application/audit"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// fakeRepo guarda eventos; gate permite bloquear las escrituras y err/panicMsg forzar fallas.
type fakeRepo struct {
	mu       sync.Mutex
	events   []entity.AuditEvent
	gate     chan struct{}
	err      error
	panicMsg string
}

func (r *fakeRepo) Create(ctx context.Context, e *entity.AuditEvent) error {
	if r.gate != nil {
		<-r.gate
	}
	if r.panicMsg != "" {
		panic(r.panicMsg)
	}
	if r.err != nil {
		return r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, *e)
	return nil
}

func (r *fakeRepo) Events() []entity.AuditEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]entity.AuditEvent(nil), r.events...)
}

func closeSink(t *testing.T, s *audit.AsyncSink) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Close(ctx))
}

func TestAsyncSink_EnmascaraYCalculaCambios(t *testing.T) {
	repo := &fakeRepo{}
	s := audit.NewAsyncSink(repo, logger.Nop(), audit.Options{PIIFields: []string{"email", "password"}})

	s.Record(entity.AuditEvent{
		Action:     entity.AuditActionUserCreated,
		EntityType: "user",
		EntityID:   "u-1",
		Before:     map[string]any{"email": "a@b.co", "role": "employee"},
		After:      map[string]any{"email": "c@d.co", "role": "shop_owner", "profile": map[string]any{"password": "x"}},
	})
	closeSink(t, s)

	events := repo.Events()
	require.Len(t, events, 1)
	ev := events[0]
	assert.NotEmpty(t, ev.ID)
	assert.False(t, ev.CreatedAt.IsZero())
	assert.Equal(t, map[string]any{"source": "system"}, ev.Metadata)
	assert.Equal(t, "<REDACTED:email>", ev.Before["email"])
	assert.Equal(t, "<REDACTED:email>", ev.After["email"])
	assert.Equal(t, "<REDACTED:password>", ev.After["profile"].(map[string]any)["password"])
	assert.Equal(t, "<REDACTED:email>", ev.Changes["email"], "el diff tampoco expone PII")
	assert.Equal(t, map[string]any{"before": "employee", "after": "shop_owner"}, ev.Changes["role"])
}

func TestAsyncSink_ColaLlenaDescarta(t *testing.T) {
	repo := &fakeRepo{gate: make(chan struct{})}
	s := audit.NewAsyncSink(repo, logger.Nop(), audit.Options{QueueSize: 1, Workers: 1})

	// El worker toma el primero y queda bloqueado; el segundo ocupa la cola.
	s.Record(entity.AuditEvent{Action: "a"})
	require.Eventually(t, func() bool {
		s.Record(entity.AuditEvent{Action: "b"})
		return s.Dropped() > 0
	}, time.Second, time.Millisecond)

	close(repo.gate)
	closeSink(t, s)
	assert.GreaterOrEqual(t, len(repo.Events()), 2)
}

func TestAsyncSink_CerradoDescarta(t *testing.T) {
	repo := &fakeRepo{}
	s := audit.NewAsyncSink(repo, logger.Nop(), audit.Options{})
	closeSink(t, s)

	assert.NotPanics(t, func() { s.Record(entity.AuditEvent{Action: "tarde"}) })
	assert.Equal(t, int64(1), s.Dropped())
	assert.Empty(t, repo.Events())
	closeSink(t, s)
}

func TestAsyncSink_CloseVaciaLaCola(t *testing.T) {
	repo := &fakeRepo{}
	s := audit.NewAsyncSink(repo, logger.Nop(), audit.Options{QueueSize: 100, Workers: 3})
	for i := 0; i < 50; i++ {
		s.Record(entity.AuditEvent{Action: "x"})
	}
	closeSink(t, s)
	assert.Len(t, repo.Events(), 50)
}

func TestAsyncSink_FallasSeCuentanSinPropagar(t *testing.T) {
	repo := &fakeRepo{err: errors.New("tabla bloqueada")}
	s := audit.NewAsyncSink(repo, logger.Nop(), audit.Options{})
	s.Record(entity.AuditEvent{Action: "x"})
	closeSink(t, s)
	assert.Equal(t, int64(1), s.Failed())

	panicking := &fakeRepo{panicMsg: "nil map"}
	s2 := audit.NewAsyncSink(panicking, logger.Nop(), audit.Options{})
	s2.Record(entity.AuditEvent{Action: "y"})
	closeSink(t, s2)
	assert.Equal(t, int64(1), s2.Failed(), "un panic en el destino no tumba el worker")
}

func TestAsyncSink_CloseRespetaElContexto(t *testing.T) {
	repo := &fakeRepo{gate: make(chan struct{})}
	defer close(repo.gate)
	s := audit.NewAsyncSink(repo, logger.Nop(), audit.Options{})
	s.Record(entity.AuditEvent{Action: "x"})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Close(ctx), context.DeadlineExceeded)
}

func TestFanout_EscribeEnTodosYUneErrores(t *testing.T) {
	ok := &fakeRepo{}
	bad := &fakeRepo{err: errors.New("kafka caído")}
	f := audit.Fanout{bad, ok}

	err := f.Create(context.Background(), &entity.AuditEvent{Action: "x"})
	assert.ErrorIs(t, err, bad.err)
	assert.Len(t, ok.Events(), 1, "un destino caído no impide los demás")
}

func TestDiff(t *testing.T) {
	changes := audit.Diff(
		map[string]any{"quantity": int64(10), "price": "5", "gone": true},
		map[string]any{"quantity": int64(7), "price": "5", "new": 1},
	)
	assert.Equal(t, map[string]any{
		"quantity": map[string]any{"before": int64(10), "after": int64(7)},
		"gone":     map[string]any{"before": true, "after": nil},
		"new":      map[string]any{"before": nil, "after": 1},
	}, changes)
}

func TestMask_ListasYNil(t *testing.T) {
	pii := map[string]struct{}{"token": {}}
	assert.Nil(t, audit.Mask(nil, pii))
	out := audit.Mask(map[string]any{"items": []any{map[string]any{"token": "t"}, 3}}, pii)
	assert.Equal(t, []any{map[string]any{"token": "<REDACTED:token>"}, 3}, out["items"])
}
