package notify

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"bookkeep/internal/core"
	applog "bookkeep/internal/log"
)

// Dispatcher forwards notifications to a Sink from a dedicated goroutine.
// Publish never blocks: when the buffer is full the notification is dropped
// and counted. Delivery is best-effort; the pending queue in the engine is
// the source of truth for what an accountant has not yet reviewed.
type Dispatcher struct {
	sink    Sink
	buf     chan core.Notification
	timeout time.Duration

	done      chan struct{}
	closeOnce sync.Once
	dropped   atomic.Int64
}

// NewDispatcher starts the delivery goroutine. bufferSize bounds the backlog;
// timeout bounds each individual delivery.
func NewDispatcher(sink Sink, bufferSize int, timeout time.Duration) *Dispatcher {
	if bufferSize < 1 {
		bufferSize = 1
	}
	d := &Dispatcher{
		sink:    sink,
		buf:     make(chan core.Notification, bufferSize),
		timeout: timeout,
		done:    make(chan struct{}),
	}
	go d.run()
	return d
}

// Publish implements ledger.Publisher.
func (d *Dispatcher) Publish(n core.Notification) {
	select {
	case d.buf <- n:
	default:
		d.dropped.Add(1)
		slog.Warn("Notification buffer full, dropping",
			applog.FieldComponent, applog.ComponentNotify,
			applog.FieldCompany, n.Entry.CompanyName,
			applog.FieldSeq, n.Seq,
			"dropped_total", d.dropped.Load())
	}
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for n := range d.buf {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		if err := d.sink.Notify(ctx, n); err != nil {
			slog.ErrorContext(ctx, "Notification delivery failed",
				applog.FieldComponent, applog.ComponentNotify,
				applog.FieldCompany, n.Entry.CompanyName,
				applog.FieldSeq, n.Seq,
				applog.FieldError, err)
		}
		cancel()
	}
}

// Dropped reports how many notifications were discarded due to backpressure.
func (d *Dispatcher) Dropped() int64 {
	return d.dropped.Load()
}

// Close stops accepting notifications, drains the buffer, and waits for the
// delivery goroutine to exit.
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() {
		close(d.buf)
	})
	<-d.done
}
