package surface

import (
	"slices"
	"sync"

	"github.com/dshills/vscripting/internal/model"
)

// PanEvent describes a change of the visible area.
type PanEvent struct {
	Position Point
	Extent   Dimension
	View     Dimension
}

// PanZoomListener observes scale and panning changes.
type PanZoomListener interface {
	ScaleChanged(previous, current float64)
	PanningChanged(ev PanEvent)
}

// Listener observes surface-level changes.
type Listener interface {
	ModelChanged(s *Surface, m *model.Model)
	AccessoryPanelVisibilityChanged(s *Surface, visible bool)
}

// listenerSet is an insertion-ordered, de-duplicated observer list.
// Notification always iterates a snapshot, so callbacks may add or remove
// listeners freely.
type listenerSet[T comparable] struct {
	mu    sync.Mutex
	items []T
}

// add appends l. A listener that is already present keeps its place.
func (s *listenerSet[T]) add(l T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if slices.Contains(s.items, l) {
		return
	}
	s.items = append(s.items, l)
}

func (s *listenerSet[T]) remove(l T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = without(s.items, l)
}

func (s *listenerSet[T]) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
}

func (s *listenerSet[T]) snapshot() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]T(nil), s.items...)
}

func without[T comparable](items []T, l T) []T {
	for i, it := range items {
		if it == l {
			return append(items[:i:i], items[i+1:]...)
		}
	}
	return items
}

// AddPanZoomListener registers l. Adding a registered listener again does
// not change the notification order.
func (s *Surface) AddPanZoomListener(l PanZoomListener) {
	s.panZoom.add(l)
}

// RemovePanZoomListener unregisters l.
func (s *Surface) RemovePanZoomListener(l PanZoomListener) {
	s.panZoom.remove(l)
}

// AddListener registers a surface listener.
func (s *Surface) AddListener(l Listener) {
	s.listeners.add(l)
}

// RemoveListener unregisters a surface listener.
func (s *Surface) RemoveListener(l Listener) {
	s.listeners.remove(l)
}

// NotifyScaleChanged tells every pan/zoom listener about a scale change.
func (s *Surface) NotifyScaleChanged(previous, current float64) {
	for _, l := range s.panZoom.snapshot() {
		l.ScaleChanged(previous, current)
	}
}

// NotifyPanningChanged tells every pan/zoom listener about a pan.
func (s *Surface) NotifyPanningChanged(ev PanEvent) {
	for _, l := range s.panZoom.snapshot() {
		l.PanningChanged(ev)
	}
}

func (s *Surface) notifyModelChanged(m *model.Model) {
	for _, l := range s.listeners.snapshot() {
		l.ModelChanged(s, m)
	}
}

func (s *Surface) notifyAccessoryPanelVisibility(visible bool) {
	for _, l := range s.listeners.snapshot() {
		l.AccessoryPanelVisibilityChanged(s, visible)
	}
}
