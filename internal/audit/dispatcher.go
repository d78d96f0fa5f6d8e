package audit

import (
	"context"
	"sync"
	"sync/atomic"
)

// Config controls dispatcher buffering behavior.
type Config struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// Stats is a point-in-time view of dispatcher counters.
type Stats struct {
	Delivered uint64
	Dropped   uint64
	// Panicked counts events whose sink panicked. They are not redelivered.
	Panicked uint64
}

// Dispatcher hands events to a sink on one worker goroutine so request paths
// never wait on audit I/O. A nil *Dispatcher discards everything.
type Dispatcher struct {
	sink      Sink
	queue     chan Event
	dropFull  bool
	quit      chan struct{}
	finished  chan struct{}
	stopping  atomic.Bool
	stopOnce  sync.Once
	delivered atomic.Uint64
	dropped   atomic.Uint64
	panicked  atomic.Uint64
}

// NewDispatcher starts a dispatcher, or returns nil when cfg.Enabled is false.
func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	size := cfg.BufferSize
	if size <= 0 {
		size = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &Dispatcher{
		sink:     sink,
		queue:    make(chan Event, size),
		dropFull: cfg.DropIfFull,
		quit:     make(chan struct{}),
		finished: make(chan struct{}),
	}
	go d.loop()
	return d
}

func (d *Dispatcher) loop() {
	defer close(d.finished)

	for {
		select {
		case ev := <-d.queue:
			d.send(ev)
		case <-d.quit:
			for {
				select {
				case ev := <-d.queue:
					d.send(ev)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) send(ev Event) {
	defer func() {
		if recover() != nil {
			d.panicked.Add(1)
		}
	}()
	d.sink.Emit(context.Background(), ev)
	d.delivered.Add(1)
}

// Emit queues ev. With DropIfFull a full queue drops and counts the event;
// otherwise Emit waits for room until ctx ends, which also counts as a drop.
func (d *Dispatcher) Emit(ctx context.Context, ev Event) {
	if d == nil || d.stopping.Load() {
		return
	}

	if d.dropFull {
		select {
		case d.queue <- ev:
		case <-d.quit:
		default:
			d.dropped.Add(1)
		}
		return
	}

	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case d.queue <- ev:
	case <-d.quit:
	case <-ctx.Done():
		d.dropped.Add(1)
	}
}

// Shutdown stops intake and waits for queued events to reach the sink, or
// for ctx to end. The worker keeps draining in the background after a
// timeout.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	if d == nil {
		return nil
	}
	d.stopOnce.Do(func() {
		d.stopping.Store(true)
		close(d.quit)
	})

	select {
	case <-d.finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close is Shutdown without a deadline.
func (d *Dispatcher) Close() {
	_ = d.Shutdown(context.Background())
}

// Stats returns the current counters.
func (d *Dispatcher) Stats() Stats {
	if d == nil {
		return Stats{}
	}
	return Stats{
		Delivered: d.delivered.Load(),
		Dropped:   d.dropped.Load(),
		Panicked:  d.panicked.Load(),
	}
}

func (d *Dispatcher) Dropped() uint64   { return d.Stats().Dropped }
func (d *Dispatcher) Delivered() uint64 { return d.Stats().Delivered }
