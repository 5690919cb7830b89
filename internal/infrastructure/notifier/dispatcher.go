package notifier

import (
	"context"
	"errors"
	"sync"

	"balance_tracker/internal/app/port"
	"balance_tracker/internal/domain/entity"
)

// ErrClosed is returned when a message is queued after Close.
var ErrClosed = errors.New("notifier: dispatcher closed")

const defaultQueueSize = 64

type job struct {
	report *entity.Report
	alert  string
}

// Dispatcher queues reports and alerts and delivers them from a single worker, so a slow chat never stalls a
// polling cycle and messages keep their order.
type Dispatcher struct {
	reports port.ReportSink
	alerts  port.Alerter
	logger  port.Logger

	queue chan job
	done  chan struct{}

	mu     sync.RWMutex
	closed bool
	ctx    context.Context
	cancel context.CancelFunc
}

var (
	_ port.ReportSink = (*Dispatcher)(nil)
	_ port.Alerter    = (*Dispatcher)(nil)
)

// NewDispatcher starts the worker. Either target may be nil, in which case that kind of message is dropped.
func NewDispatcher(reports port.ReportSink, alerts port.Alerter, queueSize int, logger port.Logger) *Dispatcher {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		reports: reports,
		alerts:  alerts,
		logger:  logger,
		queue:   make(chan job, queueSize),
		done:    make(chan struct{}),
		ctx:     ctx,
		cancel:  cancel,
	}
	go d.run()
	return d
}

// Publish queues a report. It blocks only while the queue is full.
func (d *Dispatcher) Publish(ctx context.Context, report *entity.Report) error {
	if d.reports == nil {
		return nil
	}
	return d.enqueue(ctx, job{report: report})
}

// Alert queues an alert text.
func (d *Dispatcher) Alert(ctx context.Context, text string) error {
	if d.alerts == nil {
		return nil
	}
	return d.enqueue(ctx, job{alert: text})
}

// TryAlert queues an alert without blocking and reports whether it was accepted.
// Log hooks use it so logging never waits on the chat.
func (d *Dispatcher) TryAlert(text string) bool {
	if d.alerts == nil {
		return false
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return false
	}
	select {
	case d.queue <- job{alert: text}:
		return true
	default:
		return false
	}
}

func (d *Dispatcher) enqueue(ctx context.Context, j job) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrClosed
	}
	select {
	case d.queue <- j:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for j := range d.queue {
		d.deliver(j)
	}
}

func (d *Dispatcher) deliver(j job) {
	if j.report != nil {
		if err := d.reports.Publish(d.ctx, j.report); err != nil {
			// Warn, not Error: an error entry would become another alert to the same failing chat
			d.logger.Warn("Report delivery failed", "error", err)
		}
		return
	}
	if err := d.alerts.Alert(d.ctx, j.alert); err != nil {
		d.logger.Warn("Alert delivery failed", "error", err)
	}
}

// Close stops accepting messages and waits for the queue to drain. When ctx ends first, the message in flight is
// cancelled and the rest are dropped.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	select {
	case <-d.done:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		<-d.done
		return ctx.Err()
	}
}
