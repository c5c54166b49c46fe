package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"trade-clicker/internal/state"
)

var (
	ErrQueueFull        = errors.New("signal queue full")
	ErrDispatcherClosed = errors.New("dispatcher closed")
)

// Processor handles one request at a time.
type Processor interface {
	Handle(ctx context.Context, req Request) (Result, error)
	Position(ctx context.Context) (state.Position, error)
}

type job struct {
	ctx   context.Context
	req   Request
	reply chan outcome
}

type outcome struct {
	res Result
	err error
}

// Dispatcher serializes requests from every source onto a single worker so the
// stored position has exactly one writer.
type Dispatcher struct {
	proc Processor
	ch   chan job
	log  zerolog.Logger

	mu      sync.RWMutex
	closed  bool
	done    chan struct{}
	started sync.Once
}

func NewDispatcher(proc Processor, size int, log zerolog.Logger) *Dispatcher {
	if size <= 0 {
		size = 16
	}
	return &Dispatcher{
		proc: proc,
		ch:   make(chan job, size),
		log:  log.With().Str("component", "dispatcher").Logger(),
		done: make(chan struct{}),
	}
}

// Start launches the worker. It returns immediately; the worker exits when ctx
// is canceled or Close is called.
func (d *Dispatcher) Start(ctx context.Context) {
	d.started.Do(func() {
		go d.drain(ctx)
	})
}

// Done is closed when the worker has exited.
func (d *Dispatcher) Done() <-chan struct{} { return d.done }

func (d *Dispatcher) drain(ctx context.Context) {
	defer close(d.done)
	for {
		select {
		case <-ctx.Done():
			d.reject(ctx.Err())
			return
		case j, ok := <-d.ch:
			if !ok {
				return
			}
			d.run(ctx, j)
		}
	}
}

// run handles j under the worker context; only shutdown aborts a started
// sequence.
func (d *Dispatcher) run(ctx context.Context, j job) {
	if err := j.ctx.Err(); err != nil {
		// Caller gave up while queued; do not click for a request nobody awaits.
		j.reply <- outcome{res: Result{RequestID: j.req.ID, Signal: j.req.Signal}, err: err}
		return
	}
	res, err := d.proc.Handle(ctx, j.req)
	j.reply <- outcome{res: res, err: err}
}

// reject fails everything still buffered. A closed channel has nothing left.
func (d *Dispatcher) reject(cause error) {
	for {
		select {
		case j, ok := <-d.ch:
			if !ok {
				return
			}
			j.reply <- outcome{res: Result{RequestID: j.req.ID, Signal: j.req.Signal}, err: errors.Join(ErrDispatcherClosed, cause)}
		default:
			return
		}
	}
}

// Submit queues req and waits for its result or for ctx to end. It fails fast
// with ErrQueueFull when the buffer is exhausted. A request whose ctx ends
// while still queued is skipped.
func (d *Dispatcher) Submit(ctx context.Context, req Request) (Result, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.ReceivedAt.IsZero() {
		req.ReceivedAt = time.Now()
	}
	if _, err := ParseSignal(string(req.Signal)); err != nil {
		return Result{RequestID: req.ID, Signal: req.Signal}, err
	}

	j := job{ctx: ctx, req: req, reply: make(chan outcome, 1)}

	d.mu.RLock()
	if d.closed {
		d.mu.RUnlock()
		return Result{RequestID: req.ID, Signal: req.Signal}, ErrDispatcherClosed
	}
	select {
	case d.ch <- j:
	default:
		d.mu.RUnlock()
		d.log.Warn().Str("id", req.ID).Str("signal", string(req.Signal)).Msg("queue full, signal dropped")
		return Result{RequestID: req.ID, Signal: req.Signal}, ErrQueueFull
	}
	d.mu.RUnlock()

	select {
	case out := <-j.reply:
		return out.res, out.err
	case <-ctx.Done():
		return Result{RequestID: req.ID, Signal: req.Signal}, ctx.Err()
	case <-d.done:
		select {
		case out := <-j.reply:
			return out.res, out.err
		default:
			return Result{RequestID: req.ID, Signal: req.Signal}, ErrDispatcherClosed
		}
	}
}

// Position reads the stored position.
func (d *Dispatcher) Position(ctx context.Context) (state.Position, error) {
	return d.proc.Position(ctx)
}

// Close stops accepting requests and lets the worker finish what is queued.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	close(d.ch)
}
