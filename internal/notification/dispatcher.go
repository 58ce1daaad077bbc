package notification

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Nemeth89/ECOMMERCE-Backend/internal/infrastructure/email"
	"github.com/Nemeth89/ECOMMERCE-Backend/pkg/mylogger"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

type Kind string

const (
	KindVerification  Kind = "verification"
	KindPasswordReset Kind = "password_reset"
)

var (
	ErrQueueFull = errors.New("notification queue is full")
	ErrClosed    = errors.New("notification dispatcher is shut down")
)

// Task is the handle of one dispatched send.
type Task struct {
	Kind Kind
	done chan struct{}
	err  error
}

func newTask(kind Kind) *Task {
	return &Task{Kind: kind, done: make(chan struct{})}
}

func (t *Task) finish(err error) {
	t.err = err
	close(t.done)
}

// Done is closed once the send attempt has finished.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Err reports the outcome. It is only meaningful after Done is closed.
func (t *Task) Err() error {
	select {
	case <-t.done:
		return t.err
	default:
		return nil
	}
}

// Wait blocks until the task finishes or ctx ends.
func (t *Task) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

type job struct {
	ctx  context.Context
	task *Task
	msg  email.Message
}

type DispatcherConfig struct {
	Workers     int
	QueueSize   int
	SendTimeout time.Duration
}

// Dispatcher sends mail on a fixed pool of workers so callers never wait on SMTP.
type Dispatcher struct {
	sender      email.Sender
	logger      *zap.Logger
	sendTimeout time.Duration
	queue       chan job
	wg          sync.WaitGroup

	mu     sync.RWMutex
	closed bool

	sent *prometheus.CounterVec
}

func NewDispatcher(sender email.Sender, cfg DispatcherConfig, logger *zap.Logger) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize < 0 {
		cfg.QueueSize = 0
	}

	d := &Dispatcher{
		sender:      sender,
		logger:      logger,
		sendTimeout: cfg.SendTimeout,
		queue:       make(chan job, cfg.QueueSize),
		sent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Notification send attempts by kind and result.",
		}, []string{"kind", "result"}),
	}

	d.wg.Add(cfg.Workers)
	for range cfg.Workers {
		go d.worker()
	}

	return d
}

func (d *Dispatcher) Collector() prometheus.Collector {
	return d.sent
}

// Dispatch queues msg and returns immediately. The send outlives ctx
// cancellation but keeps its values, so traces stay connected.
func (d *Dispatcher) Dispatch(ctx context.Context, kind Kind, msg email.Message) *Task {
	task := newTask(kind)

	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.record(ctx, kind, "dropped", msg.To, ErrClosed)
		task.finish(ErrClosed)
		return task
	}

	select {
	case d.queue <- job{ctx: context.WithoutCancel(ctx), task: task, msg: msg}:
	default:
		d.record(ctx, kind, "dropped", msg.To, ErrQueueFull)
		task.finish(ErrQueueFull)
	}

	return task
}

// Shutdown stops accepting tasks and waits for queued ones to finish.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()

	for j := range d.queue {
		d.send(j)
	}
}

func (d *Dispatcher) send(j job) {
	ctx := j.ctx
	if d.sendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.sendTimeout)
		defer cancel()
	}

	err := d.sender.Send(ctx, j.msg)
	if err != nil {
		d.record(ctx, j.task.Kind, "failed", j.msg.To, err)
	} else {
		d.record(ctx, j.task.Kind, "sent", j.msg.To, nil)
	}

	j.task.finish(err)
}

func (d *Dispatcher) record(ctx context.Context, kind Kind, result, to string, err error) {
	d.sent.WithLabelValues(string(kind), result).Inc()

	if err != nil {
		mylogger.Warn(
			ctx,
			d.logger,
			"Notification not delivered",
			zap.String("kind", string(kind)),
			zap.String("result", result),
			zap.String("to", to),
			zap.Error(err),
		)
	}
}

// Failed returns a finished task carrying err, for sends that never reached the queue.
func Failed(kind Kind, err error) *Task {
	task := newTask(kind)
	task.finish(err)
	return task
}
