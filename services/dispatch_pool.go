package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/modular-health/modular-health-backend/config"
	"github.com/modular-health/modular-health-backend/logger"
	"github.com/modular-health/modular-health-backend/store"
	"github.com/modular-health/modular-health-backend/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// deliveryTimeout bounds one push round trip plus the outcome write.
const deliveryTimeout = 30 * time.Second

// Delivery is one claimed reminder occurrence waiting for push dispatch.
// ReminderID refers to the history row that was claimed for it.
type Delivery struct {
	ReminderID   uuid.UUID
	UserID       uuid.UUID
	Notification *PushNotification
}

// DispatchPool delivers claimed reminders through a bounded set of workers so
// a slow push provider cannot stall a scheduler run. Every accepted delivery
// ends with its history row marked sent or failed. Deliveries the queue
// cannot accept are reported back to the caller, which owns their failure
// mark.
type DispatchPool struct {
	push    PushService
	history store.ReminderHistoryStore
	queue   chan Delivery
	workers int
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	logger  *zap.SugaredLogger
	metrics *dispatchMetrics

	mu      sync.Mutex
	running bool
}

type dispatchMetrics struct {
	queueDepth prometheus.Gauge
	deliveries *prometheus.CounterVec
	duration   prometheus.Histogram
}

var (
	dispatchMetricsInstance *dispatchMetrics
	dispatchMetricsOnce     sync.Once
	dispatchMetricsRegistry prometheus.Registerer = prometheus.DefaultRegisterer
)

func newDispatchMetrics() *dispatchMetrics {
	dispatchMetricsOnce.Do(func() {
		dispatchMetricsInstance = &dispatchMetrics{
			queueDepth: promauto.With(dispatchMetricsRegistry).NewGauge(prometheus.GaugeOpts{
				Name: "modular_health_reminder_dispatch_queue_depth",
				Help: "Number of reminder deliveries waiting for a worker",
			}),
			deliveries: promauto.With(dispatchMetricsRegistry).NewCounterVec(prometheus.CounterOpts{
				Name: "modular_health_reminder_dispatch_deliveries_total",
				Help: "Reminder deliveries by final status",
			}, []string{"status"}),
			duration: promauto.With(dispatchMetricsRegistry).NewHistogram(prometheus.HistogramOpts{
				Name:    "modular_health_reminder_dispatch_duration_seconds",
				Help:    "Time from worker pickup to recorded outcome for one delivery",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			}),
		}
	})
	return dispatchMetricsInstance
}

// resetDispatchMetricsForTesting swaps in a fresh registry so tests can
// construct pools without duplicate registration panics.
func resetDispatchMetricsForTesting() {
	dispatchMetricsInstance = nil
	dispatchMetricsOnce = sync.Once{}
	dispatchMetricsRegistry = prometheus.NewRegistry()
}

// NewDispatchPool creates a stopped pool. Call Start before submitting.
func NewDispatchPool(cfg config.WorkerPoolConfig, push PushService, history store.ReminderHistoryStore) *DispatchPool {
	ctx, cancel := context.WithCancel(context.Background())
	return &DispatchPool{
		push:    push,
		history: history,
		queue:   make(chan Delivery, cfg.QueueSize),
		workers: cfg.MaxWorkers,
		ctx:     ctx,
		cancel:  cancel,
		logger:  logger.GetLogger().Named("dispatch"),
		metrics: newDispatchMetrics(),
	}
}

// Start launches the worker goroutines. Starting an already running pool is
// a no-op.
func (p *DispatchPool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return
	}
	p.running = true

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	p.logger.Infow("Dispatch pool started", "workers", p.workers, "queueSize", cap(p.queue))
}

func (p *DispatchPool) worker(id int) {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			return
		case d, ok := <-p.queue:
			if !ok {
				return
			}
			p.metrics.queueDepth.Dec()
			p.deliver(id, d)
		}
	}
}

// deliver sends one notification and records the outcome on its history row.
func (p *DispatchPool) deliver(workerID int, d Delivery) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(p.ctx, deliveryTimeout)
	defer cancel()

	sendErr := p.push.SendToUser(ctx, d.UserID, d.Notification)

	status := types.ReminderStatusSent
	var sentAt *time.Time
	if sendErr != nil {
		status = types.ReminderStatusFailed
		p.logger.Warnw("Reminder delivery failed",
			"reminderID", d.ReminderID,
			"workerId", workerID,
			"error", sendErr)
	} else {
		now := time.Now().UTC()
		sentAt = &now
	}

	if err := p.history.MarkOutcome(ctx, d.ReminderID, status, sentAt); err != nil {
		p.logger.Errorw("Failed to record reminder outcome",
			"reminderID", d.ReminderID,
			"status", status,
			"error", err)
	}

	p.metrics.deliveries.WithLabelValues(string(status)).Inc()
	p.metrics.duration.Observe(time.Since(start).Seconds())
}

// Submit queues a delivery without blocking. A false return means the queue
// is full and the delivery was not accepted; its history row is untouched.
func (p *DispatchPool) Submit(d Delivery) bool {
	select {
	case p.queue <- d:
		p.metrics.queueDepth.Inc()
		return true
	default:
		p.metrics.deliveries.WithLabelValues("dropped").Inc()
		p.logger.Warnw("Reminder delivery dropped, queue full",
			"reminderID", d.ReminderID,
			"queueSize", cap(p.queue))
		return false
	}
}

// Shutdown stops the workers and waits for in-flight deliveries, bounded by
// the context deadline.
func (p *DispatchPool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	p.mu.Unlock()

	p.logger.Info("Shutting down dispatch pool")
	p.cancel()
	close(p.queue)

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("Dispatch pool shut down")
		return nil
	case <-ctx.Done():
		p.logger.Warn("Dispatch pool shutdown timed out")
		return ctx.Err()
	}
}

// QueueDepth returns the number of deliveries waiting for a worker.
func (p *DispatchPool) QueueDepth() int {
	return len(p.queue)
}

// IsRunning reports whether the pool has been started and not shut down.
func (p *DispatchPool) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}
