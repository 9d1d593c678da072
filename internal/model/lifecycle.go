package model

import (
	"github.com/dshills/vscripting/internal/activation"
)

// Activate records source as a holder of the model. It returns true only
// for the source that starts a new activation episode. On a disposed model
// it returns false and records nothing.
func (m *Model) Activate(source activation.Handle) bool {
	m.mu.Lock()
	if m.disposed {
		m.mu.Unlock()
		return false
	}
	first := m.sources.Add(source)
	stale := first && m.config.ModificationCount() != m.configModCount
	m.mu.Unlock()

	if !first {
		return false
	}

	m.logger.Debug("model activated", "source", source)
	if m.hooks.OnActivate != nil {
		m.hooks.OnActivate(m)
	}
	// The configuration changed while nobody was looking at the model.
	if stale {
		m.ScheduleRefresh()
	}
	return true
}

// Deactivate drops source. It returns true only when source was the last
// holder, in which case deactivation side effects run once.
func (m *Model) Deactivate(source activation.Handle) bool {
	m.mu.Lock()
	last := m.sources.Remove(source)
	if last {
		m.configModCount = m.config.ModificationCount()
	}
	m.mu.Unlock()

	if last {
		m.deactivated()
	}
	return last
}

func (m *Model) deactivated() {
	m.logger.Debug("model deactivated")
	m.queue.CancelAll()
	if m.hooks.OnDeactivate != nil {
		m.hooks.OnDeactivate(m)
	}
}

// Dispose tears the model down. Holders are dropped in one step and, if the
// model was active, deactivation runs once. Any in-flight refresh is
// cancelled and its result will not be applied. Dispose may be called from
// any goroutine, more than once, and from inside a deactivation hook.
func (m *Model) Dispose() {
	m.mu.Lock()
	if m.disposed {
		m.mu.Unlock()
		return
	}
	m.disposed = true
	wasActive := m.sources.Drain()
	m.mu.Unlock()

	if wasActive {
		m.deactivated()
	}
	m.queue.Dispose()
	m.computation.Close()
}
