// Package sender runs outbound Telegram calls through a bounded worker queue
// with a shared retry policy. Calls whose result the caller needs go through
// Do; fire-and-forget calls such as deletes go through Enqueue.
package sender

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

var (
	// ErrQueueClosed is returned by Enqueue after Close.
	ErrQueueClosed = errors.New("telegram sender: queue closed")
	// ErrQueueFull is returned by Enqueue when no slot is free.
	ErrQueueFull = errors.New("telegram sender: queue full")

	errNilCall = errors.New("telegram sender: nil call")
)

// Options tunes the dispatcher. Zero values take the defaults.
type Options struct {
	QueueSize    int
	Workers      int
	MaxRetries   int
	RetryBackoff time.Duration
	// MaxDuration caps one call including its retries.
	MaxDuration time.Duration
}

func (o Options) withDefaults() Options {
	if o.QueueSize <= 0 {
		o.QueueSize = 256
	}
	if o.Workers <= 0 {
		o.Workers = 4
	}
	o.MaxRetries = max(o.MaxRetries, 0)
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = 2 * time.Second
	}
	if o.MaxDuration <= 0 {
		o.MaxDuration = 12 * time.Second
	}
	return o
}

// call is one outbound request; action names it for logs and metrics.
type call struct {
	ctx      context.Context
	action   string
	endpoint string
	fn       func() error
}

// Dispatcher owns the worker pool.
type Dispatcher struct {
	opts   Options
	queue  chan call
	gate   sync.RWMutex
	closed bool
	wg     sync.WaitGroup
	failed atomic.Uint64
}

// NewDispatcher starts the workers.
func NewDispatcher(opts Options) *Dispatcher {
	opts = opts.withDefaults()
	d := &Dispatcher{opts: opts, queue: make(chan call, opts.QueueSize)}
	for range opts.Workers {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			for c := range d.queue {
				d.finish(d.attempt(c))
			}
		}()
	}
	return d
}

// Do runs fn on the caller's goroutine under the retry policy.
func (d *Dispatcher) Do(ctx context.Context, action, endpoint string, fn func() error) error {
	if fn == nil {
		return errNilCall
	}
	return d.finish(d.attempt(call{ctx: ctx, action: action, endpoint: endpoint, fn: fn}))
}

// Enqueue hands fn to a worker without waiting. fn may run more than once.
func (d *Dispatcher) Enqueue(ctx context.Context, action, endpoint string, fn func() error) error {
	if fn == nil {
		return errNilCall
	}
	d.gate.RLock()
	defer d.gate.RUnlock()
	if d.closed {
		return ErrQueueClosed
	}
	// Queued calls outlive the update that produced them.
	c := call{ctx: context.WithoutCancel(orBackground(ctx)), action: action, endpoint: endpoint, fn: fn}
	select {
	case d.queue <- c:
		return nil
	default:
		return ErrQueueFull
	}
}

// Depth is the number of calls waiting for a worker.
func (d *Dispatcher) Depth() int { return len(d.queue) }

// ErrorCount is the number of calls that failed after retries.
func (d *Dispatcher) ErrorCount() uint64 { return d.failed.Load() }

// Close drains the queue and waits for the workers. It is safe to call twice.
func (d *Dispatcher) Close() {
	d.gate.Lock()
	if d.closed {
		d.gate.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.gate.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) finish(err error) error {
	if err != nil {
		d.failed.Add(1)
	}
	return err
}

func orBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
