package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Kind names a class of background work. Each kind has its own lane.
type Kind string

const (
	KindLoad    Kind = "load"
	KindSave    Kind = "save"
	KindExport  Kind = "export"
	KindSort    Kind = "sort"
	KindCatalog Kind = "catalog"
)

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("dispatcher closed")

// Result is the single outcome of a job: a value, an error, or cancellation.
type Result struct {
	Value     any
	Err       error
	Cancelled bool
}

// Success wraps v as a successful result.
func Success(v any) Result { return Result{Value: v} }

// Failure wraps err as a failed result.
func Failure(err error) Result { return Result{Err: err} }

// Cancel is the result of a job that gave up without error.
func Cancel() Result { return Result{Cancelled: true} }

// OK reports whether the job produced a value.
func (r Result) OK() bool { return r.Err == nil && !r.Cancelled }

// Job is a unit of background work.
// Run executes on a worker goroutine and must not touch core state.
// Done receives the result on the core loop.
type Job struct {
	Kind Kind
	Name string
	Run  func(ctx context.Context) Result
	Done func(Result)
}

// Poster marshals a callback onto the core loop.
type Poster interface {
	Post(fn func())
}

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option configures a lane.
type Option func(*config)

type config struct {
	workers    int
	bufferSize int
	blocking   bool
	logged     bool
}

// Workers sets the number of goroutines serving a buffered lane.
func Workers(n int) Option {
	return func(c *config) {
		c.workers = n
	}
}

// Buffered makes the lane async with a queue of the given size.
// Without it, Submit runs the job inline on the caller's goroutine.
func Buffered(size int) Option {
	return func(c *config) {
		c.bufferSize = size
	}
}

// Blocking makes a buffered lane block when the queue is full instead of dropping.
func Blocking() Option {
	return func(c *config) {
		c.blocking = true
	}
}

// Logged adds debug logging around every job of the lane.
func Logged() Option {
	return func(c *config) {
		c.logged = true
	}
}

type lane struct {
	cfg    config
	buffer chan Job
}

// Dispatcher runs jobs on per-kind worker lanes and posts results to the core loop.
type Dispatcher struct {
	poster Poster
	logger Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// OTEL metrics
	queueSize metric.Int64ObservableGauge
	processed metric.Int64Counter
	failed    metric.Int64Counter
	dropped   metric.Int64Counter

	mu     sync.RWMutex
	lanes  map[Kind]*lane
	closed bool
}

// New creates a Dispatcher delivering results through poster.
// Uses the global OTel meter for metrics (no-op if not configured).
func New(poster Poster, logger Logger) (*Dispatcher, error) {
	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		poster: poster,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
		lanes:  make(map[Kind]*lane),
	}

	m := meter()

	var err error

	d.queueSize, err = m.Int64ObservableGauge(
		"jobs.queue.size",
		metric.WithDescription("Current number of jobs waiting in a lane"),
	)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("creating queue size gauge: %w", err)
	}

	_, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			d.mu.RLock()
			defer d.mu.RUnlock()
			for kind, l := range d.lanes {
				if l.buffer == nil {
					continue
				}
				o.ObserveInt64(d.queueSize, int64(len(l.buffer)),
					metric.WithAttributes(attribute.String("kind", string(kind))))
			}
			return nil
		},
		d.queueSize,
	)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("registering queue callback: %w", err)
	}

	d.processed, err = m.Int64Counter(
		"jobs.processed",
		metric.WithDescription("Total jobs processed"),
	)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("creating processed counter: %w", err)
	}

	d.failed, err = m.Int64Counter(
		"jobs.failed",
		metric.WithDescription("Total jobs that returned an error or panicked"),
	)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("creating failed counter: %w", err)
	}

	d.dropped, err = m.Int64Counter(
		"jobs.dropped",
		metric.WithDescription("Total jobs dropped due to full queue"),
	)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("creating dropped counter: %w", err)
	}

	return d, nil
}

// Register configures the lane for kind. Registering a kind twice panics.
func (d *Dispatcher) Register(kind Kind, opts ...Option) {
	cfg := config{workers: 1}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.workers < 1 {
		cfg.workers = 1
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.lanes[kind]; ok {
		panic(fmt.Sprintf("dispatcher: lane %q registered twice", kind))
	}

	l := &lane{cfg: cfg}
	if cfg.bufferSize > 0 {
		l.buffer = make(chan Job, cfg.bufferSize)
		for i := 0; i < cfg.workers; i++ {
			d.wg.Add(1)
			go d.work(kind, l)
		}
	}
	d.lanes[kind] = l
}

// HasKind returns true if a lane is registered for kind.
func (d *Dispatcher) HasKind(kind Kind) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.lanes[kind]
	return ok
}

// Submit hands j to its lane. When the job cannot be accepted, its Done
// callback still receives a failure result on the loop and the error is returned.
func (d *Dispatcher) Submit(j Job) error {
	if j.Kind == "" {
		j.Kind = KindLoad
	}

	d.mu.RLock()
	l, ok := d.lanes[j.Kind]
	closed := d.closed
	if closed || !ok {
		d.mu.RUnlock()
		err := ErrClosed
		if !ok {
			err = fmt.Errorf("unknown job kind: %s", j.Kind)
		}
		d.deliver(j, Failure(err))
		return err
	}

	if l.buffer == nil {
		d.mu.RUnlock()
		d.deliver(j, d.run(j, l.cfg.logged))
		return nil
	}

	if l.cfg.blocking {
		l.buffer <- j
		d.mu.RUnlock()
		return nil
	}

	select {
	case l.buffer <- j:
		d.mu.RUnlock()
		return nil
	default:
		d.mu.RUnlock()
		d.dropped.Add(context.Background(), 1, metric.WithAttributes(attribute.String("kind", string(j.Kind))))
		err := fmt.Errorf("queue full: %s", j.Kind)
		d.deliver(j, Failure(err))
		return err
	}
}

// Close stops accepting jobs, lets queued jobs finish and waits for the workers.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for _, l := range d.lanes {
		if l.buffer != nil {
			close(l.buffer)
		}
	}
	d.mu.Unlock()

	d.wg.Wait()
	d.cancel()
}

func (d *Dispatcher) work(kind Kind, l *lane) {
	defer d.wg.Done()
	for j := range l.buffer {
		d.deliver(j, d.run(j, l.cfg.logged))
	}
}

func (d *Dispatcher) run(j Job, logged bool) (res Result) {
	kindAttr := metric.WithAttributes(attribute.String("kind", string(j.Kind)))
	start := time.Now()
	if logged {
		d.logger.Debug("running job", "kind", j.Kind, "name", j.Name)
	}

	defer func() {
		if r := recover(); r != nil {
			res = Failure(fmt.Errorf("job %s/%s panicked: %v", j.Kind, j.Name, r))
		}
		d.processed.Add(context.Background(), 1, kindAttr)
		if res.Err != nil {
			d.failed.Add(context.Background(), 1, kindAttr)
			d.logger.Error("job failed", "kind", j.Kind, "name", j.Name, "duration", time.Since(start), "error", res.Err)
		} else if logged {
			d.logger.Debug("job complete", "kind", j.Kind, "name", j.Name,
				"duration", time.Since(start), "cancelled", res.Cancelled)
		}
	}()

	if j.Run == nil {
		return Success(nil)
	}
	return j.Run(d.ctx)
}

func (d *Dispatcher) deliver(j Job, res Result) {
	if j.Done == nil {
		return
	}
	d.poster.Post(func() { j.Done(res) })
}
