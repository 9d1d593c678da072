// Package update provides a debounced, merging update queue.
//
// Updates are identified by a merge key. Scheduling an update whose key is
// already pending replaces the pending payload while keeping its place in
// the queue. All pending updates are flushed together on the interactive
// executor once the queue has been quiet for the configured delay.
package update

import (
	"log/slog"
	"sync"
	"time"

	"github.com/dshills/vscripting/internal/uiexec"
)

// DefaultDelay is the quiet period used when no delay is configured.
const DefaultDelay = 250 * time.Millisecond

// Queue coalesces rapid successive updates into one delayed flush.
//
// Thread-safety: Schedule, Cancel and Dispose are safe for concurrent use.
// Flushes only ever run on the queue's Invoker, so two flushes never overlap.
type Queue struct {
	name    string
	delay   time.Duration
	invoker uiexec.Invoker
	logger  *slog.Logger

	mu           sync.Mutex
	restartOnAdd bool
	pending      map[any]*entry
	order        []any
	timer        *time.Timer
	armedAt      time.Time
	seq          uint64 // invalidates timers that were stopped too late
	queued       uint64 // seq of a fired timer whose flush has not run yet
	disposed     bool
}

type entry struct {
	run   func()
	count int
}

// Option configures a Queue.
type Option func(*Queue)

// WithRestartTimerOnAdd controls whether each Schedule call pushes the flush
// deadline forward (true, the default) or the deadline is measured from the
// first update of a batch (false).
func WithRestartTimerOnAdd(restart bool) Option {
	return func(q *Queue) {
		q.restartOnAdd = restart
	}
}

// WithLogger sets the queue logger.
func WithLogger(l *slog.Logger) Option {
	return func(q *Queue) {
		if l != nil {
			q.logger = l
		}
	}
}

// New creates a queue that flushes on invoker after delay.
func New(name string, delay time.Duration, invoker uiexec.Invoker, opts ...Option) *Queue {
	if delay <= 0 {
		delay = DefaultDelay
	}
	q := &Queue{
		name:         name,
		delay:        delay,
		invoker:      invoker,
		logger:       slog.New(slog.DiscardHandler),
		restartOnAdd: true,
		pending:      make(map[any]*entry),
	}
	for _, opt := range opts {
		opt(q)
	}
	q.logger = q.logger.With("queue", name)
	return q
}

// Name returns the queue name.
func (q *Queue) Name() string {
	return q.name
}

// Delay returns the quiet period.
func (q *Queue) Delay() time.Duration {
	return q.delay
}

// SetRestartTimerOnAdd changes the restart-on-add policy for later calls.
func (q *Queue) SetRestartTimerOnAdd(restart bool) {
	q.mu.Lock()
	q.restartOnAdd = restart
	q.mu.Unlock()
}

// Schedule queues run under key. If an update with the same key is pending
// its payload is replaced. Keys must be comparable. Scheduling on a disposed
// queue is a no-op.
func (q *Queue) Schedule(key any, run func()) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.disposed {
		return
	}

	if e, ok := q.pending[key]; ok {
		e.run = run
		e.count++
	} else {
		q.pending[key] = &entry{run: run, count: 1}
		q.order = append(q.order, key)
	}

	if !q.restartOnAdd && (q.timer != nil || q.queued != 0) {
		return
	}
	q.armLocked()
}

// armLocked (re)starts the flush timer. Must hold q.mu.
func (q *Queue) armLocked() {
	if q.timer != nil {
		q.timer.Stop()
	}
	q.seq++
	q.queued = 0
	seq := q.seq
	q.armedAt = time.Now()
	q.timer = time.AfterFunc(q.delay, func() {
		q.mu.Lock()
		if q.seq != seq || q.disposed {
			q.mu.Unlock()
			return
		}
		q.timer = nil
		q.queued = seq
		q.mu.Unlock()

		q.invoker.InvokeLater(func() { q.flushSeq(seq) }, q.isDisposed)
	})
}

// flushSeq is the flush queued by the timer armed as seq. A Schedule that
// re-armed the timer in the meantime owns the batch now, so a stale flush
// does nothing.
func (q *Queue) flushSeq(seq uint64) {
	q.mu.Lock()
	if q.seq != seq {
		q.mu.Unlock()
		return
	}
	q.queued = 0
	q.flushLocked()
}

// Flush runs every pending update now, in scheduling order. It must be called
// on the interactive executor. Updates scheduled while flushing are left for
// the next flush.
func (q *Queue) Flush() {
	q.mu.Lock()
	q.flushLocked()
}

// flushLocked takes the pending batch, releases q.mu and runs it.
func (q *Queue) flushLocked() {
	if q.disposed || len(q.order) == 0 {
		q.mu.Unlock()
		return
	}
	q.stopLocked()
	order := q.order
	pending := q.pending
	q.order = nil
	q.pending = make(map[any]*entry)
	q.mu.Unlock()

	for _, key := range order {
		e := pending[key]
		if e.count > 1 {
			q.logger.Debug("merged updates", "key", key, "count", e.count)
		}
		q.runUpdate(key, e.run)
	}
}

func (q *Queue) runUpdate(key any, run func()) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("update panicked", "key", key, "panic", r)
		}
	}()
	run()
}

// Cancel drops the pending update for key. It reports whether one was
// pending.
func (q *Queue) Cancel(key any) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.pending[key]; !ok {
		return false
	}
	delete(q.pending, key)
	for i, k := range q.order {
		if k == key {
			q.order = append(q.order[:i], q.order[i+1:]...)
			break
		}
	}
	if len(q.order) == 0 {
		q.stopLocked()
	}
	return true
}

// CancelAll drops every pending update.
func (q *Queue) CancelAll() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.order = nil
	q.pending = make(map[any]*entry)
	q.stopLocked()
}

func (q *Queue) stopLocked() {
	if q.timer != nil {
		q.timer.Stop()
		q.timer = nil
	}
	q.seq++
	q.queued = 0
}

// IsEmpty reports whether no update is pending.
func (q *Queue) IsEmpty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.order) == 0
}

// Pending returns the number of pending updates.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.order)
}

// Deadline returns when the armed flush timer fires and whether one is armed.
func (q *Queue) Deadline() (time.Time, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.timer == nil {
		return time.Time{}, false
	}
	return q.armedAt.Add(q.delay), true
}

// Dispose cancels pending updates and stops the queue for good.
func (q *Queue) Dispose() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.disposed {
		return
	}
	q.disposed = true
	q.order = nil
	q.pending = make(map[any]*entry)
	q.stopLocked()
}

func (q *Queue) isDisposed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.disposed
}
