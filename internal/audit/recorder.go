package audit

/*
Recorder — асинхронная запись журнала аудита.

- Log никогда не блокирует вызывающего: событие кладется в буферизованный канал,
  при переполнении сбрасывается (at-most-once) с записью в лог и метрику.
- Воркер пишет пачками (BatchSize) по заполнению или по таймеру (FlushInterval).
- Stop закрывает вход и дожидается финального flush (Drain Pattern).
- Ошибки хранилища доходят только до логгера, наружу не возвращаются.
- После успешной пачки сбрасывается кэш статистики (Options.Invalidator).
*/

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/xela07ax/promulher-api/internal/domain"
	"github.com/xela07ax/promulher-api/internal/infra"
	"go.uber.org/zap"
)

// Store — куда физически пишутся события.
type Store interface {
	WriteBatch(ctx context.Context, events []domain.AuditEvent) error
}

// Invalidator сбрасывает производные данные (кэш статистики) после записи пачки.
type Invalidator interface {
	Invalidate(ctx context.Context)
}

// Auditor — точка входа для всех режимов захвата.
type Auditor interface {
	Log(event domain.AuditEvent)
}

type Options struct {
	BufferSize    int
	BatchSize     int
	FlushInterval time.Duration

	// Invalidator вызывается после каждой успешной пачки. nil — не вызывается.
	Invalidator Invalidator
}

func (o Options) withDefaults() Options {
	if o.BufferSize <= 0 {
		o.BufferSize = 10000
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 100
	}
	if o.FlushInterval <= 0 {
		o.FlushInterval = 500 * time.Millisecond
	}
	return o
}

type Recorder struct {
	ch      chan domain.AuditEvent
	store   Store
	opts    Options
	metrics *infra.Metrics
	logger  *zap.Logger
	wg      sync.WaitGroup

	// mu защищает канал от отправки после close: Log берет RLock, Stop — Lock
	mu     sync.RWMutex
	closed bool
}

func NewRecorder(store Store, opts Options, metrics *infra.Metrics, logger *zap.Logger) *Recorder {
	opts = opts.withDefaults()
	if metrics == nil {
		metrics = infra.NewMetrics(nil)
	}
	return &Recorder{
		ch:      make(chan domain.AuditEvent, opts.BufferSize),
		store:   store,
		opts:    opts,
		metrics: metrics,
		logger:  logger.With(zap.String("mod", "audit-recorder")),
	}
}

func (r *Recorder) Start() {
	r.wg.Add(1)
	go r.worker()
}

// Stop запирает вход и ждет, пока воркер всё допишет.
func (r *Recorder) Stop() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.logger.Info("stopping recorder: closing channel and flushing buffer...")
	close(r.ch)
	r.mu.Unlock()

	r.wg.Wait()
	r.logger.Info("recorder stopped gracefully")
}

func (r *Recorder) Log(event domain.AuditEvent) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		r.metrics.AuditDropped.WithLabelValues("stopped").Inc()
		r.logger.Warn("audit event dropped: recorder is stopping",
			zap.String("action", string(event.Action)),
			zap.String("module", string(event.Module)))
		return
	}

	prepare(&event)

	// Load Shedding: запрос клиента важнее записи в журнал
	select {
	case r.ch <- event:
		r.metrics.AuditCaptured.WithLabelValues(string(event.Module)).Inc()
		r.metrics.AuditBufferFill.Set(float64(len(r.ch)))
	default:
		r.metrics.AuditDropped.WithLabelValues("overflow").Inc()
		r.logger.Error("audit_buffer_overflow",
			zap.String("id", event.ID),
			zap.String("action", string(event.Action)),
			zap.String("module", string(event.Module)),
		)
	}
}

// prepare проставляет ID, время события и время записи.
func prepare(e *domain.AuditEvent) {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	now := time.Now()
	if e.Timestamp.IsZero() {
		e.Timestamp = now
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.UpdatedAt = e.CreatedAt
	e.IsDeleted = false
	e.DeletedAt = nil
	e.DeletedBy = nil
}

func (r *Recorder) worker() {
	defer r.wg.Done()

	batch := make([]domain.AuditEvent, 0, r.opts.BatchSize)
	ticker := time.NewTicker(r.opts.FlushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		// Background: контекст запроса к этому моменту уже завершен
		if err := r.store.WriteBatch(context.Background(), batch); err != nil {
			r.metrics.AuditFailures.Inc()
			r.logger.Error("audit flush failed", zap.Int("events", len(batch)), zap.Error(err))
		} else {
			r.metrics.AuditFlushed.Add(float64(len(batch)))
			if r.opts.Invalidator != nil {
				r.opts.Invalidator.Invalidate(context.Background())
			}
		}
		batch = batch[:0]
		r.metrics.AuditBufferFill.Set(float64(len(r.ch)))
	}

	for {
		select {
		case event, ok := <-r.ch:
			if !ok {
				flush()
				r.logger.Info("audit worker finished")
				return
			}
			batch = append(batch, event)
			if len(batch) >= r.opts.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}
