package surface

import (
	"fmt"
	"strings"
	"sync"
)

// ZoomControlsPolicy decides when the zoom buttons are shown.
type ZoomControlsPolicy int

const (
	// ZoomControlsVisible always shows the controls.
	ZoomControlsVisible ZoomControlsPolicy = iota
	// ZoomControlsHidden never installs them.
	ZoomControlsHidden
	// ZoomControlsAutoHide shows them while the pointer is over the surface.
	ZoomControlsAutoHide
)

// String returns the configuration name of the policy.
func (p ZoomControlsPolicy) String() string {
	switch p {
	case ZoomControlsVisible:
		return "visible"
	case ZoomControlsHidden:
		return "hidden"
	case ZoomControlsAutoHide:
		return "auto_hide"
	default:
		return fmt.Sprintf("ZoomControlsPolicy(%d)", int(p))
	}
}

// ParseZoomControlsPolicy parses a configuration value.
func ParseZoomControlsPolicy(s string) (ZoomControlsPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "visible":
		return ZoomControlsVisible, nil
	case "hidden":
		return ZoomControlsHidden, nil
	case "auto_hide", "autohide", "auto-hide":
		return ZoomControlsAutoHide, nil
	}
	return ZoomControlsVisible, fmt.Errorf("%w: %q", ErrInvalidPolicy, s)
}

// HoverKind is the kind of pointer event.
type HoverKind int

const (
	HoverEnter HoverKind = iota
	HoverMove
	HoverExit
)

// HoverEvent is a pointer event delivered by the host.
type HoverEvent struct {
	Kind     HoverKind
	Position Point
}

// HoverHooks lets the surface observe pointer movement over the whole
// window. The returned function removes the listener.
type HoverHooks interface {
	AddHoverListener(fn func(HoverEvent)) (remove func())
}

// HoverRegistry is a HoverHooks the host feeds with Dispatch.
type HoverRegistry struct {
	mu        sync.Mutex
	next      int
	listeners map[int]func(HoverEvent)
	order     []int
}

// NewHoverRegistry creates an empty registry.
func NewHoverRegistry() *HoverRegistry {
	return &HoverRegistry{listeners: make(map[int]func(HoverEvent))}
}

// AddHoverListener implements HoverHooks. Removing twice is harmless.
func (r *HoverRegistry) AddHoverListener(fn func(HoverEvent)) func() {
	r.mu.Lock()
	id := r.next
	r.next++
	r.listeners[id] = fn
	r.order = append(r.order, id)
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if _, ok := r.listeners[id]; !ok {
			return
		}
		delete(r.listeners, id)
		for i, o := range r.order {
			if o == id {
				r.order = append(r.order[:i:i], r.order[i+1:]...)
				break
			}
		}
	}
}

// Len returns the number of registered listeners.
func (r *HoverRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.listeners)
}

// Dispatch delivers ev to a snapshot of the registered listeners.
func (r *HoverRegistry) Dispatch(ev HoverEvent) {
	r.mu.Lock()
	fns := make([]func(HoverEvent), 0, len(r.order))
	for _, id := range r.order {
		fns = append(fns, r.listeners[id])
	}
	r.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

// ZoomControls tracks the visibility of the zoom buttons.
type ZoomControls struct {
	mu       sync.Mutex
	policy   ZoomControlsPolicy
	bounds   func() Rectangle
	visible  bool
	onChange func(visible bool)
}

func newZoomControls(policy ZoomControlsPolicy, bounds func() Rectangle, onChange func(bool)) *ZoomControls {
	return &ZoomControls{
		policy:   policy,
		bounds:   bounds,
		visible:  policy == ZoomControlsVisible,
		onChange: onChange,
	}
}

// Policy returns the policy the controls were installed with.
func (z *ZoomControls) Policy() ZoomControlsPolicy {
	return z.policy
}

// Visible reports whether the controls are shown.
func (z *ZoomControls) Visible() bool {
	z.mu.Lock()
	defer z.mu.Unlock()
	return z.visible
}

func (z *ZoomControls) handleHover(ev HoverEvent) {
	if z.policy != ZoomControlsAutoHide {
		return
	}
	show := ev.Kind != HoverExit && z.bounds().Contains(ev.Position)

	z.mu.Lock()
	changed := z.visible != show
	z.visible = show
	z.mu.Unlock()

	if changed && z.onChange != nil {
		z.onChange(show)
	}
}
