package audit

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/xela07ax/promulher-api/internal/domain"
	"go.uber.org/zap"
)

type MockStore struct {
	mu      sync.Mutex
	Batches [][]domain.AuditEvent
	Err     error
}

func (m *MockStore) WriteBatch(ctx context.Context, events []domain.AuditEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	cp := make([]domain.AuditEvent, len(events))
	copy(cp, events)
	m.Batches = append(m.Batches, cp)
	return nil
}

func (m *MockStore) events() []domain.AuditEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []domain.AuditEvent
	for _, b := range m.Batches {
		all = append(all, b...)
	}
	return all
}

func TestRecorder_FlushOnStop(t *testing.T) {
	store := &MockStore{}
	r := NewRecorder(store, Options{BatchSize: 100, FlushInterval: time.Hour}, nil, zap.NewNop())
	r.Start()

	for i := 0; i < 3; i++ {
		r.Log(System(domain.ActionStartup, domain.Details{Description: "boot"}))
	}
	r.Stop()

	got := store.events()
	if len(got) != 3 {
		t.Fatalf("flushed %d events, want 3", len(got))
	}
	for _, e := range got {
		if e.ID == "" {
			t.Error("event without ID")
		}
		if e.CreatedAt.IsZero() || !e.UpdatedAt.Equal(e.CreatedAt) {
			t.Errorf("record times not set: %+v", e)
		}
		if e.IsDeleted {
			t.Error("new event must not be deleted")
		}
	}
}

func TestRecorder_BatchSize(t *testing.T) {
	store := &MockStore{}
	r := NewRecorder(store, Options{BatchSize: 2, FlushInterval: time.Hour}, nil, zap.NewNop())
	r.Start()
	for i := 0; i < 5; i++ {
		r.Log(System(domain.ActionError, domain.Details{}))
	}
	r.Stop()

	if len(store.Batches) != 3 {
		t.Errorf("got %d batches, want 3 (2+2+1)", len(store.Batches))
	}
}

func TestRecorder_KeepsBackdatedTimestamp(t *testing.T) {
	store := &MockStore{}
	r := NewRecorder(store, Options{}, nil, zap.NewNop())
	r.Start()

	past := time.Date(2023, 5, 1, 12, 0, 0, 0, time.UTC)
	e := System(domain.ActionStartup, domain.Details{})
	e.Timestamp = past
	r.Log(e)
	r.Stop()

	got := store.events()
	if len(got) != 1 || !got[0].Timestamp.Equal(past) {
		t.Fatalf("timestamp not preserved: %+v", got)
	}
	if got[0].CreatedAt.Equal(past) {
		t.Error("createdAt must be the record time, not the event time")
	}
}

func TestRecorder_DropsOnOverflow(t *testing.T) {
	store := &MockStore{}
	r := NewRecorder(store, Options{BufferSize: 1, FlushInterval: time.Hour}, nil, zap.NewNop())

	// воркер не запущен: второе событие не помещается в буфер
	r.Log(System(domain.ActionStartup, domain.Details{}))
	r.Log(System(domain.ActionShutdown, domain.Details{}))

	r.Start()
	r.Stop()

	got := store.events()
	if len(got) != 1 || got[0].Action != domain.ActionStartup {
		t.Errorf("got %+v, want only the first event", got)
	}
}

func TestRecorder_LogAfterStop(t *testing.T) {
	store := &MockStore{}
	r := NewRecorder(store, Options{}, nil, zap.NewNop())
	r.Start()
	r.Stop()
	r.Stop() // повторный Stop безопасен

	r.Log(System(domain.ActionError, domain.Details{}))
	if n := len(store.events()); n != 0 {
		t.Errorf("event written after stop: %d", n)
	}
}

func TestRecorder_StoreErrorIsSwallowed(t *testing.T) {
	store := &MockStore{Err: errors.New("connection refused")}
	r := NewRecorder(store, Options{}, nil, zap.NewNop())
	r.Start()
	r.Log(System(domain.ActionError, domain.Details{}))
	r.Stop()
}

type MockInvalidator struct {
	Calls atomic.Int32
}

func (m *MockInvalidator) Invalidate(ctx context.Context) { m.Calls.Add(1) }

func TestRecorder_InvalidatesAfterFlush(t *testing.T) {
	tests := []struct {
		name      string
		storeErr  error
		wantCalls int32
	}{
		{"every written batch", nil, 3},
		{"failed batch keeps cache", errors.New("connection refused"), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := &MockInvalidator{}
			r := NewRecorder(&MockStore{Err: tt.storeErr},
				Options{BatchSize: 2, FlushInterval: time.Hour, Invalidator: inv}, nil, zap.NewNop())
			r.Start()
			for i := 0; i < 5; i++ {
				r.Log(System(domain.ActionError, domain.Details{}))
			}
			r.Stop()

			if got := inv.Calls.Load(); got != tt.wantCalls {
				t.Errorf("invalidations = %d, want %d", got, tt.wantCalls)
			}
		})
	}
}
