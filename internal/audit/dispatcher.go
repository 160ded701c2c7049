package audit

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// Config controls dispatcher buffering behavior.
type Config struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
	// Logger reports sink panics. Optional.
	Logger logrus.FieldLogger
}

// Dispatcher hands bitácora events to a sink from one background goroutine so
// sink latency never reaches the request path.
type Dispatcher struct {
	sink       Sink
	dropIfFull bool
	logger     logrus.FieldLogger

	// mu guards queue against send-after-close: senders hold it for reading.
	mu     sync.RWMutex
	closed bool
	queue  chan Event
	done   chan struct{}

	dropped   atomic.Uint64
	delivered atomic.Uint64
}

// NewDispatcher starts a dispatcher. It returns nil when auditing is disabled;
// every method is safe on a nil receiver.
func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if sink == nil {
		sink = NoOpSink{}
	}
	d := &Dispatcher{
		sink:       sink,
		dropIfFull: cfg.DropIfFull,
		logger:     cfg.Logger,
		queue:      make(chan Event, max(cfg.BufferSize, 1)),
		done:       make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for event := range d.queue {
		if d.deliver(event) {
			d.delivered.Add(1)
		}
	}
}

func (d *Dispatcher) deliver(event Event) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			if d.logger != nil {
				d.logger.WithField("event", event.EventType).Errorf("bitacora sink panicked: %v", r)
			}
			ok = false
		}
	}()
	d.sink.Emit(context.Background(), event)
	return true
}

// Emit enqueues event. With DropIfFull a full buffer drops the event and
// counts it; otherwise Emit waits for room or ctx cancellation.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil {
		return
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}

	if d.dropIfFull {
		select {
		case d.queue <- event:
		default:
			d.dropped.Add(1)
		}
		return
	}

	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case d.queue <- event:
	case <-ctx.Done():
		d.dropped.Add(1)
	}
}

// Close stops accepting events and returns once every queued event has been
// handed to the sink.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()
	<-d.done
}

// Dropped returns how many events were discarded.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

// Delivered returns how many events reached the sink.
func (d *Dispatcher) Delivered() uint64 {
	if d == nil {
		return 0
	}
	return d.delivered.Load()
}
