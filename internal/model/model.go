// Package model binds a source file to its visual representation.
//
// A Model is kept live by activation sources: the first source to activate
// it starts an activation episode and the last one to leave ends it. Edits
// to the source schedule a debounced refresh through the model's update
// queue; the refresh resolves the configured theme on a background pool and
// applies a replacement on the interactive executor only if no newer
// refresh has been requested meanwhile.
package model

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dshills/vscripting/internal/activation"
	"github.com/dshills/vscripting/internal/computation"
	"github.com/dshills/vscripting/internal/disposer"
	"github.com/dshills/vscripting/internal/theme"
	"github.com/dshills/vscripting/internal/uiexec"
	"github.com/dshills/vscripting/internal/update"
)

// DelayAfterTyping is the default quiet period before an edit triggers a
// refresh.
const DelayAfterTyping = 250 * time.Millisecond

// refreshKey is the merge key of theme refreshes in the update queue.
const refreshKey = "theme-refresh"

// Source is the file a model is bound to.
type Source interface {
	Name() string
	Path() string
}

// Background runs slow work off the interactive executor.
type Background interface {
	Submit(fn func(ctx context.Context)) error
}

// Runtime holds the execution contexts a model uses.
type Runtime struct {
	Invoker    uiexec.Invoker
	Background Background
}

// Hooks are optional callbacks run outside the model lock. OnActivate and
// OnDeactivate run once per activation episode; OnThemeApplied runs on the
// interactive executor after a replacement theme has been set.
type Hooks struct {
	OnActivate     func(m *Model)
	OnDeactivate   func(m *Model)
	OnThemeApplied func(m *Model, theme string)
}

// Model is the visual model of one source file.
type Model struct {
	id      int64
	file    Source
	config  *theme.Configuration
	rt      Runtime
	queue   *update.Queue
	table   *activation.Table
	hooks   Hooks
	logger  *slog.Logger
	delay   time.Duration
	restart bool

	mu          sync.Mutex
	sources     *activation.Set
	disposed    bool
	displayName string
	tooltip     string
	// configModCount is the configuration modification count seen at the
	// end of the last activation episode.
	configModCount uint64

	computation computation.Slot
	modCount    atomic.Uint64
}

// Option configures a Model.
type Option func(*Model)

// WithDisplayName sets the name shown when several models are displayed.
func WithDisplayName(name string) Option {
	return func(m *Model) {
		m.displayName = name
	}
}

// WithTooltip sets the model tooltip.
func WithTooltip(tooltip string) Option {
	return func(m *Model) {
		m.tooltip = tooltip
	}
}

// WithHooks sets lifecycle hooks.
func WithHooks(h Hooks) Option {
	return func(m *Model) {
		m.hooks = h
	}
}

// WithActivationTable sets the table activation handles come from.
func WithActivationTable(t *activation.Table) Option {
	return func(m *Model) {
		if t != nil {
			m.table = t
		}
	}
}

// WithDelay sets the quiet period of the update queue.
func WithDelay(d time.Duration) Option {
	return func(m *Model) {
		if d > 0 {
			m.delay = d
		}
	}
}

// WithRestartTimerOnAdd sets the update queue restart policy.
func WithRestartTimerOnAdd(restart bool) Option {
	return func(m *Model) {
		m.restart = restart
	}
}

// WithLogger sets the model logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Model) {
		if l != nil {
			m.logger = l
		}
	}
}

// New creates a model bound to file. If parent is non-nil the model is
// disposed together with it.
func New(parent disposer.Disposable, file Source, config *theme.Configuration, rt Runtime, opts ...Option) *Model {
	if file == nil || config == nil || rt.Invoker == nil || rt.Background == nil {
		panic("model: file, config, invoker and background are required")
	}
	m := &Model{
		id:      newID(file.Name()),
		file:    file,
		config:  config,
		rt:      rt,
		table:   activation.Default,
		logger:  slog.New(slog.DiscardHandler),
		delay:   DelayAfterTyping,
		restart: true,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With("model", m.id, "file", file.Name())
	m.sources = activation.NewSet(m.table)
	m.configModCount = config.ModificationCount()
	m.queue = update.New("visual.editor.preview", m.delay, rt.Invoker,
		update.WithRestartTimerOnAdd(m.restart),
		update.WithLogger(m.logger))

	if parent != nil {
		disposer.Register(parent, m)
	}
	return m
}

var lastNano atomic.Int64

// newID derives an id from the creation time and the file name. The time
// component is strictly increasing within the process so ids are never
// reused.
func newID(name string) int64 {
	now := time.Now().UnixNano()
	for {
		prev := lastNano.Load()
		if now <= prev {
			now = prev + 1
		}
		if lastNano.CompareAndSwap(prev, now) {
			break
		}
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	return now ^ int64(h.Sum32())
}

// ID returns the model id.
func (m *Model) ID() int64 {
	return m.id
}

// File returns the bound source.
func (m *Model) File() Source {
	return m.file
}

// Configuration returns the rendering configuration.
func (m *Model) Configuration() *theme.Configuration {
	return m.config
}

// UpdateQueue returns the queue edits are debounced through.
func (m *Model) UpdateQueue() *update.Queue {
	return m.queue
}

// ActivationTable returns the table handles must come from.
func (m *Model) ActivationTable() *activation.Table {
	return m.table
}

// DisplayName returns the display name, if any.
func (m *Model) DisplayName() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.displayName
}

// SetDisplayName changes the display name.
func (m *Model) SetDisplayName(name string) {
	m.mu.Lock()
	m.displayName = name
	m.mu.Unlock()
}

// Tooltip returns the tooltip, if any.
func (m *Model) Tooltip() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tooltip
}

// SetTooltip changes the tooltip.
func (m *Model) SetTooltip(tooltip string) {
	m.mu.Lock()
	m.tooltip = tooltip
	m.mu.Unlock()
}

// ModificationCount increases every time the model applies a change.
func (m *Model) ModificationCount() uint64 {
	return m.modCount.Load()
}

// IsActive reports whether at least one live source holds the model.
func (m *Model) IsActive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sources.Len() > 0
}

// IsActivatedBy reports whether source currently holds the model.
func (m *Model) IsActivatedBy(source activation.Handle) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sources.Contains(source)
}

// IsDisposed reports whether the model has been disposed.
func (m *Model) IsDisposed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.disposed
}

func (m *Model) String() string {
	return fmt.Sprintf("Model for %s", m.file.Path())
}
