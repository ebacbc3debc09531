package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/modular-health/modular-health-backend/config"
	"github.com/modular-health/modular-health-backend/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestDispatchPool(t *testing.T, cfg config.WorkerPoolConfig, push *MockPushService, history *MockReminderHistoryStore) *DispatchPool {
	t.Helper()
	resetDispatchMetricsForTesting()
	pool := NewDispatchPool(cfg, push, history)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = pool.Shutdown(ctx)
	})
	return pool
}

func testDelivery() Delivery {
	return Delivery{
		ReminderID: uuid.New(),
		UserID:     uuid.New(),
		Notification: &PushNotification{
			Title: "Routine reminder",
			Body:  "Time for your 08:00 routine.",
		},
	}
}

func TestDispatchPool_DeliversAndMarksSent(t *testing.T) {
	push := new(MockPushService)
	history := new(MockReminderHistoryStore)
	pool := newTestDispatchPool(t, config.WorkerPoolConfig{MaxWorkers: 2, QueueSize: 10}, push, history)
	pool.Start()

	d := testDelivery()
	done := make(chan struct{})

	push.On("SendToUser", mock.Anything, d.UserID, d.Notification).Return(nil)
	history.On("MarkOutcome", mock.Anything, d.ReminderID, types.ReminderStatusSent,
		mock.MatchedBy(func(sentAt *time.Time) bool { return sentAt != nil })).
		Run(func(mock.Arguments) { close(done) }).
		Return(nil)

	require.True(t, pool.Submit(d))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("delivery outcome was never recorded")
	}

	push.AssertExpectations(t)
	history.AssertExpectations(t)
}

func TestDispatchPool_SendFailureMarksFailed(t *testing.T) {
	push := new(MockPushService)
	history := new(MockReminderHistoryStore)
	pool := newTestDispatchPool(t, config.WorkerPoolConfig{MaxWorkers: 1, QueueSize: 10}, push, history)
	pool.Start()

	d := testDelivery()
	done := make(chan struct{})

	push.On("SendToUser", mock.Anything, d.UserID, d.Notification).
		Return(errors.New("push api unavailable"))
	history.On("MarkOutcome", mock.Anything, d.ReminderID, types.ReminderStatusFailed, (*time.Time)(nil)).
		Run(func(mock.Arguments) { close(done) }).
		Return(nil)

	require.True(t, pool.Submit(d))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("failed delivery was never recorded")
	}

	history.AssertExpectations(t)
}

func TestDispatchPool_BoundedConcurrency(t *testing.T) {
	push := new(MockPushService)
	history := new(MockReminderHistoryStore)
	pool := newTestDispatchPool(t, config.WorkerPoolConfig{MaxWorkers: 2, QueueSize: 100}, push, history)
	pool.Start()

	const deliveries = 6
	var active, peak int32
	release := make(chan struct{})
	done := make(chan struct{}, deliveries)

	push.On("SendToUser", mock.Anything, mock.Anything, mock.Anything).
		Run(func(mock.Arguments) {
			cur := atomic.AddInt32(&active, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if cur <= p || atomic.CompareAndSwapInt32(&peak, p, cur) {
					break
				}
			}
			<-release
			atomic.AddInt32(&active, -1)
		}).
		Return(nil)
	history.On("MarkOutcome", mock.Anything, mock.Anything, types.ReminderStatusSent, mock.Anything).
		Run(func(mock.Arguments) { done <- struct{}{} }).
		Return(nil)

	for i := 0; i < deliveries; i++ {
		require.True(t, pool.Submit(testDelivery()))
	}

	// Give both workers time to pick up a delivery, then let them all run.
	time.Sleep(100 * time.Millisecond)
	close(release)

	for i := 0; i < deliveries; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatalf("delivery %d was never recorded", i)
		}
	}

	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestDispatchPool_QueueFullRejectsDelivery(t *testing.T) {
	push := new(MockPushService)
	history := new(MockReminderHistoryStore)
	// Never started, so nothing drains the queue.
	pool := newTestDispatchPool(t, config.WorkerPoolConfig{MaxWorkers: 1, QueueSize: 2}, push, history)

	assert.True(t, pool.Submit(testDelivery()))
	assert.True(t, pool.Submit(testDelivery()))
	assert.False(t, pool.Submit(testDelivery()))
	assert.Equal(t, 2, pool.QueueDepth())

	// A rejected delivery's history row is left for the caller.
	history.AssertNotCalled(t, "MarkOutcome", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestDispatchPool_GracefulShutdownWaitsForInFlight(t *testing.T) {
	push := new(MockPushService)
	history := new(MockReminderHistoryStore)

	resetDispatchMetricsForTesting()
	pool := NewDispatchPool(config.WorkerPoolConfig{MaxWorkers: 1, QueueSize: 10}, push, history)
	pool.Start()

	started := make(chan struct{})
	var recorded int32

	push.On("SendToUser", mock.Anything, mock.Anything, mock.Anything).
		Run(func(mock.Arguments) {
			close(started)
			time.Sleep(100 * time.Millisecond)
		}).
		Return(nil)
	history.On("MarkOutcome", mock.Anything, mock.Anything, types.ReminderStatusSent, mock.Anything).
		Run(func(mock.Arguments) { atomic.AddInt32(&recorded, 1) }).
		Return(nil)

	require.True(t, pool.Submit(testDelivery()))
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, pool.Shutdown(ctx))

	assert.False(t, pool.IsRunning())
	assert.Equal(t, int32(1), atomic.LoadInt32(&recorded))
}

func TestDispatchPool_DoubleStartIsNoop(t *testing.T) {
	push := new(MockPushService)
	history := new(MockReminderHistoryStore)
	pool := newTestDispatchPool(t, config.WorkerPoolConfig{MaxWorkers: 2, QueueSize: 10}, push, history)

	pool.Start()
	pool.Start()
	assert.True(t, pool.IsRunning())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, pool.Shutdown(ctx))
	assert.False(t, pool.IsRunning())
}
