// Package notify runs post-commit side effects outside the request that scheduled them.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/tuanvumaihuynh/tenant-inventory/internal/config"
	"github.com/tuanvumaihuynh/tenant-inventory/internal/event"
	"github.com/tuanvumaihuynh/tenant-inventory/pkg/outbox"
)

// LowStockTask is scheduled after a committed stock change. It is built from committed values
// only and carries the trace headers of the request that scheduled it.
type LowStockTask struct {
	Event   event.LowStockEvent
	Headers map[string]string
}

// Sink performs a task. Errors are logged by the Dispatcher and never retried.
type Sink interface {
	Handle(ctx context.Context, task LowStockTask) error
}

// Notifier schedules low-stock tasks without waiting for them.
type Notifier interface {
	// Dispatch queues task and reports whether it was accepted. It never blocks.
	Dispatch(ctx context.Context, task LowStockTask) bool
}

var _ Notifier = (*Dispatcher)(nil)

// Dispatcher is a bounded queue drained by a fixed pool of workers.
type Dispatcher struct {
	cfg    config.Dispatcher
	logger *slog.Logger
	sink   Sink

	mu      sync.RWMutex
	stopped bool
	queue   chan LowStockTask
}

func NewDispatcher(cfg config.Dispatcher, logger *slog.Logger, sink Sink) *Dispatcher {
	return &Dispatcher{
		cfg:    cfg,
		logger: logger.With(slog.String("service", "dispatcher")),
		sink:   sink,
		queue:  make(chan LowStockTask, max(cfg.QueueSize, 1)),
	}
}

// NewLowStockTask captures the trace headers of ctx next to ev.
func NewLowStockTask(ctx context.Context, ev event.LowStockEvent) LowStockTask {
	return LowStockTask{Event: ev, Headers: outbox.BuildHeaders(ctx)}
}

func (d *Dispatcher) Dispatch(ctx context.Context, task LowStockTask) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.stopped {
		d.logger.WarnContext(ctx, "dispatcher stopped, dropping task",
			slog.Int64("product_id", task.Event.ProductID),
		)
		return false
	}

	select {
	case d.queue <- task:
		return true
	default:
		d.logger.WarnContext(ctx, "dispatcher queue full, dropping task",
			slog.Int64("product_id", task.Event.ProductID),
			slog.Int("queue_size", cap(d.queue)),
		)
		return false
	}
}

type CleanupFunc func()

// Run starts the workers. The returned cleanup stops accepting tasks, lets the workers drain
// the queue, and cancels whatever is still running after the grace period.
func (d *Dispatcher) Run(ctx context.Context) CleanupFunc {
	ctx, cancel := context.WithCancel(ctx)

	var wg sync.WaitGroup
	for range max(d.cfg.Workers, 1) {
		wg.Go(func() {
			for task := range d.queue {
				d.process(ctx, task)
			}
		})
	}

	return func() {
		d.mu.Lock()
		if !d.stopped {
			d.stopped = true
			close(d.queue)
		}
		d.mu.Unlock()

		doneChan := make(chan struct{})
		go func() {
			wg.Wait()
			close(doneChan)
		}()

		select {
		case <-doneChan:
		case <-time.After(5 * time.Second):
			cancel()
			<-doneChan
		}
		cancel()
	}
}

func (d *Dispatcher) process(ctx context.Context, task LowStockTask) {
	ctx = outbox.ExtractContextFromHeaders(ctx, task.Headers)
	if d.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.cfg.Timeout)
		defer cancel()
	}

	defer func() {
		if rvr := recover(); rvr != nil {
			d.logger.ErrorContext(ctx, "panic in dispatcher task",
				slog.Any("recover", rvr),
				slog.String("stack", string(debug.Stack())),
			)
		}
	}()

	if err := d.sink.Handle(ctx, task); err != nil {
		d.logger.ErrorContext(ctx, "error handling dispatcher task",
			slog.Int64("product_id", task.Event.ProductID),
			slog.Any("error", fmt.Errorf("sink handle: %w", err)),
		)
	}
}
