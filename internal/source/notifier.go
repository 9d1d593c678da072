package source

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultSettle is how long a file must stay quiet before an edit counts
// as committed.
const DefaultSettle = 300 * time.Millisecond

// EventKind is the kind of edit event.
type EventKind int

const (
	// EditStarted is sent on the first change after a quiet period.
	EditStarted EventKind = iota
	// EditCommitted is sent once the file has been quiet for the settle
	// period.
	EditCommitted
	// Removed is sent when the file is deleted or renamed away.
	Removed
)

func (k EventKind) String() string {
	switch k {
	case EditStarted:
		return "edit-started"
	case EditCommitted:
		return "edit-committed"
	case Removed:
		return "removed"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event reports a change to a watched file.
type Event struct {
	Kind EventKind
	File *File
	Time time.Time
}

// Subscriber receives events. It runs on the notifier goroutine or the
// settle timer and must not block.
type Subscriber func(Event)

type watched struct {
	file  *File
	timer *time.Timer
	// editing is true between EditStarted and EditCommitted.
	editing bool
}

// Notifier turns raw file system notifications into edit events. It
// watches the directory of each file so atomic saves are seen.
type Notifier struct {
	settle time.Duration
	logger *slog.Logger

	mu      sync.Mutex
	fsw     *fsnotify.Watcher
	files   map[string]*watched
	dirs    map[string]int
	subs    map[int]Subscriber
	order   []int
	nextSub int
	closed  bool
	done    chan struct{}
	wg      sync.WaitGroup
}

// NotifierOption configures a Notifier.
type NotifierOption func(*Notifier)

// WithSettle sets the quiet period before an edit is committed.
func WithSettle(d time.Duration) NotifierOption {
	return func(n *Notifier) {
		if d > 0 {
			n.settle = d
		}
	}
}

// WithLogger sets the notifier logger.
func WithLogger(l *slog.Logger) NotifierOption {
	return func(n *Notifier) {
		if l != nil {
			n.logger = l
		}
	}
}

// NewNotifier starts a notifier.
func NewNotifier(opts ...NotifierOption) (*Notifier, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("source: create watcher: %w", err)
	}
	n := &Notifier{
		settle: DefaultSettle,
		logger: slog.New(slog.DiscardHandler),
		fsw:    fsw,
		files:  make(map[string]*watched),
		dirs:   make(map[string]int),
		subs:   make(map[int]Subscriber),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(n)
	}
	n.wg.Add(1)
	go n.loop()
	return n, nil
}

// Subscribe registers fn. The returned function unsubscribes it.
func (n *Notifier) Subscribe(fn Subscriber) func() {
	n.mu.Lock()
	id := n.nextSub
	n.nextSub++
	n.subs[id] = fn
	n.order = append(n.order, id)
	n.mu.Unlock()

	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.subs, id)
		for i, o := range n.order {
			if o == id {
				n.order = append(n.order[:i:i], n.order[i+1:]...)
				break
			}
		}
	}
}

// Watch starts reporting edits of f.
func (n *Notifier) Watch(f *File) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return ErrNotifierClosed
	}
	if _, ok := n.files[f.Path()]; ok {
		return ErrAlreadyWatching
	}
	dir := filepath.Dir(f.Path())
	if n.dirs[dir] == 0 {
		if err := n.fsw.Add(dir); err != nil {
			return fmt.Errorf("source: watch %s: %w", dir, err)
		}
	}
	n.dirs[dir]++
	n.files[f.Path()] = &watched{file: f}
	return nil
}

// Unwatch stops reporting edits of f. A pending commit is dropped.
func (n *Notifier) Unwatch(f *File) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return ErrNotifierClosed
	}
	w, ok := n.files[f.Path()]
	if !ok {
		return ErrNotWatching
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	delete(n.files, f.Path())
	dir := filepath.Dir(f.Path())
	n.dirs[dir]--
	if n.dirs[dir] == 0 {
		delete(n.dirs, dir)
		if err := n.fsw.Remove(dir); err != nil {
			n.logger.Debug("remove watch", "dir", dir, "error", err)
		}
	}
	return nil
}

// Touch records an in-memory edit of f, exactly as if the file had been
// written.
func (n *Notifier) Touch(f *File) {
	n.changed(f.Path())
}

// Close stops the notifier. Pending commits are dropped.
func (n *Notifier) Close() error {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return nil
	}
	n.closed = true
	for _, w := range n.files {
		if w.timer != nil {
			w.timer.Stop()
		}
	}
	close(n.done)
	n.mu.Unlock()

	err := n.fsw.Close()
	n.wg.Wait()
	return err
}

func (n *Notifier) loop() {
	defer n.wg.Done()
	for {
		select {
		case <-n.done:
			return
		case ev, ok := <-n.fsw.Events:
			if !ok {
				return
			}
			n.handle(ev)
		case err, ok := <-n.fsw.Errors:
			if !ok {
				return
			}
			n.logger.Warn("file watcher error", "error", err)
		}
	}
}

func (n *Notifier) handle(ev fsnotify.Event) {
	path := filepath.Clean(ev.Name)
	switch {
	case ev.Has(fsnotify.Write), ev.Has(fsnotify.Create):
		n.changed(path)
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		n.removed(path)
	}
}

func (n *Notifier) changed(path string) {
	n.mu.Lock()
	w, ok := n.files[path]
	if !ok || n.closed {
		n.mu.Unlock()
		return
	}
	started := !w.editing
	w.editing = true
	if w.timer == nil {
		w.timer = time.AfterFunc(n.settle, func() { n.commit(path) })
	} else {
		w.timer.Reset(n.settle)
	}
	f := w.file
	n.mu.Unlock()

	if started {
		n.publish(Event{Kind: EditStarted, File: f, Time: time.Now()})
	}
}

func (n *Notifier) commit(path string) {
	n.mu.Lock()
	w, ok := n.files[path]
	if !ok || n.closed || !w.editing {
		n.mu.Unlock()
		return
	}
	w.editing = false
	f := w.file
	n.mu.Unlock()

	n.publish(Event{Kind: EditCommitted, File: f, Time: time.Now()})
}

func (n *Notifier) removed(path string) {
	n.mu.Lock()
	w, ok := n.files[path]
	if !ok || n.closed {
		n.mu.Unlock()
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.editing = false
	f := w.file
	n.mu.Unlock()

	n.publish(Event{Kind: Removed, File: f, Time: time.Now()})
}

func (n *Notifier) publish(ev Event) {
	n.mu.Lock()
	subs := make([]Subscriber, 0, len(n.order))
	for _, id := range n.order {
		subs = append(subs, n.subs[id])
	}
	n.mu.Unlock()

	n.logger.Debug("source event", "kind", ev.Kind, "file", ev.File.Name())
	for _, fn := range subs {
		fn(ev)
	}
}
