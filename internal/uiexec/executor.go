// Package uiexec provides the two execution contexts used by the visual
// editor: a single-threaded interactive executor on which all state that
// affects rendering is mutated, and a bounded background pool for slow work
// such as theme resolution.
package uiexec

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"
	"sync"
)

// ErrClosed is returned when work is submitted to a closed executor or pool.
var ErrClosed = errors.New("executor closed")

// Invoker schedules work on the interactive context.
type Invoker interface {
	// InvokeLater queues fn to run on the interactive context. If expired is
	// non-nil and reports true when fn is about to run, fn is skipped.
	InvokeLater(fn func(), expired func() bool)
}

// Executor is a single goroutine draining a FIFO of tasks. Tasks never run
// concurrently with each other.
type Executor struct {
	mu      sync.Mutex
	queue   []task
	wake    chan struct{}
	closed  bool
	done    chan struct{}

	logger *slog.Logger
}

type task struct {
	fn      func()
	expired func() bool
}

// Option configures an Executor.
type Option func(*Executor)

// WithLogger sets the logger used to report panicking tasks.
func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewExecutor creates and starts an interactive executor.
func NewExecutor(opts ...Option) *Executor {
	e := &Executor{
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(e)
	}
	go e.loop()
	return e
}

// InvokeLater implements Invoker. Work queued after Close is dropped.
func (e *Executor) InvokeLater(fn func(), expired func() bool) {
	_ = e.submit(task{fn: fn, expired: expired})
}

// InvokeAndWait runs fn on the executor and blocks until it has returned or
// ctx is done. It must not be called from a task running on e.
func (e *Executor) InvokeAndWait(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if err := e.submit(task{fn: func() {
		defer close(finished)
		fn()
	}}); err != nil {
		return err
	}
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Executor) submit(t task) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	e.queue = append(e.queue, t)
	e.mu.Unlock()

	select {
	case e.wake <- struct{}{}:
	default:
	}
	return nil
}

// Close stops accepting work, lets already queued tasks run and waits for the
// loop to exit.
func (e *Executor) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		<-e.done
		return
	}
	e.closed = true
	e.mu.Unlock()

	select {
	case e.wake <- struct{}{}:
	default:
	}
	<-e.done
}

func (e *Executor) loop() {
	defer close(e.done)
	for {
		e.mu.Lock()
		if len(e.queue) == 0 {
			closed := e.closed
			e.mu.Unlock()
			if closed {
				return
			}
			<-e.wake
			continue
		}
		t := e.queue[0]
		e.queue[0] = task{}
		e.queue = e.queue[1:]
		e.mu.Unlock()

		e.run(t)
	}
}

func (e *Executor) run(t task) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("interactive task panicked", "panic", r, "stack", string(debug.Stack()))
		}
	}()
	if t.expired != nil && t.expired() {
		return
	}
	t.fn()
}

// Manual is an Invoker whose tasks run only when RunPending is called. Tests
// use it to step the interactive context deterministically.
type Manual struct {
	mu    sync.Mutex
	queue []task
}

// NewManual creates a manual invoker.
func NewManual() *Manual {
	return &Manual{}
}

// InvokeLater implements Invoker.
func (m *Manual) InvokeLater(fn func(), expired func() bool) {
	m.mu.Lock()
	m.queue = append(m.queue, task{fn: fn, expired: expired})
	m.mu.Unlock()
}

// Pending returns the number of queued tasks.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// RunPending runs queued tasks, including tasks queued while running, until
// the queue is empty. It returns the number of tasks that actually ran.
func (m *Manual) RunPending() int {
	ran := 0
	for {
		m.mu.Lock()
		if len(m.queue) == 0 {
			m.mu.Unlock()
			return ran
		}
		t := m.queue[0]
		m.queue = m.queue[1:]
		m.mu.Unlock()

		if t.expired != nil && t.expired() {
			continue
		}
		t.fn()
		ran++
	}
}
