package surface

import (
	"sync"
)

// Indicator is an animated busy indicator.
type Indicator interface {
	Resume()
	Suspend()
	SetVisible(visible bool)
	PreferredSize() Dimension
}

// IndicatorFactory creates the small or the large indicator.
type IndicatorFactory func(small bool) Indicator

// Progress shows a busy indicator either as a small icon in the top right
// corner, used while a previous rendering is still on screen, or as a large
// icon in the center when there is nothing to show yet.
type Progress struct {
	mu        sync.Mutex
	factory   IndicatorFactory
	small     bool
	visible   bool
	installed Indicator
	smallIcon Indicator
	largeIcon Indicator
}

// NewProgress creates a hidden progress panel.
func NewProgress(factory IndicatorFactory, small bool) *Progress {
	if factory == nil {
		factory = func(small bool) Indicator { return NewSpinner(small) }
	}
	return &Progress{factory: factory, small: small}
}

func (p *Progress) iconLocked(small bool) Indicator {
	if small {
		if p.smallIcon == nil {
			p.smallIcon = p.factory(true)
		}
		return p.smallIcon
	}
	if p.largeIcon == nil {
		p.largeIcon = p.factory(false)
	}
	return p.largeIcon
}

// SetSmall switches between the small and the large indicator. A visible
// indicator is suspended before the other one takes its place.
func (p *Progress) SetSmall(small bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if small == p.small {
		return
	}
	if p.visible && p.installed != nil {
		p.installed.Suspend()
		p.installed.SetVisible(false)
	}
	p.small = small
	icon := p.iconLocked(small)
	p.installed = icon
	if p.visible {
		icon.SetVisible(true)
		icon.Resume()
	}
}

// Small reports whether the small indicator is selected.
func (p *Progress) Small() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.small
}

// Show makes the indicator visible and animates it. Showing a visible
// indicator does nothing.
func (p *Progress) Show() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.visible {
		return
	}
	p.visible = true
	icon := p.iconLocked(p.small)
	p.installed = icon
	icon.SetVisible(true)
	icon.Resume()
}

// Hide stops and hides the indicator. Hiding a hidden indicator does
// nothing.
func (p *Progress) Hide() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.visible {
		return
	}
	p.visible = false
	icon := p.iconLocked(p.small)
	icon.SetVisible(false)
	icon.Suspend()
}

// Visible reports whether the indicator is shown.
func (p *Progress) Visible() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.visible
}

// Installed returns the indicator currently placed in the panel, or nil.
func (p *Progress) Installed() Indicator {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.installed
}

// Layout returns where the indicator goes inside a panel of the given size,
// and false when nothing is shown.
func (p *Progress) Layout(panel Dimension) (Rectangle, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.visible {
		return Rectangle{}, false
	}
	size := p.iconLocked(p.small).PreferredSize()
	if p.small {
		return Rectangle{X: panel.Width - size.Width - 1, Y: 1, Width: size.Width, Height: size.Height}, true
	}
	return Rectangle{
		X:      panel.Width/2 - size.Width/2,
		Y:      panel.Height/2 - size.Height/2,
		Width:  size.Width,
		Height: size.Height,
	}, true
}

var spinnerFrames = []rune("⠋⠙⠹⠸⠼⠴⠦⠧⠇⠏")

// Spinner is a character-cell Indicator.
type Spinner struct {
	mu      sync.Mutex
	small   bool
	running bool
	visible bool
	frame   int
}

// NewSpinner creates a suspended, hidden spinner.
func NewSpinner(small bool) *Spinner {
	return &Spinner{small: small}
}

// Resume implements Indicator.
func (s *Spinner) Resume() {
	s.mu.Lock()
	s.running = true
	s.mu.Unlock()
}

// Suspend implements Indicator.
func (s *Spinner) Suspend() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// SetVisible implements Indicator.
func (s *Spinner) SetVisible(visible bool) {
	s.mu.Lock()
	s.visible = visible
	s.mu.Unlock()
}

// PreferredSize implements Indicator.
func (s *Spinner) PreferredSize() Dimension {
	if s.small {
		return Dimension{Width: 1, Height: 1}
	}
	return Dimension{Width: 3, Height: 1}
}

// Running reports whether the spinner animates.
func (s *Spinner) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Visible reports whether the spinner is shown.
func (s *Spinner) Visible() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visible
}

// Tick advances a running spinner by one frame.
func (s *Spinner) Tick() {
	s.mu.Lock()
	if s.running {
		s.frame = (s.frame + 1) % len(spinnerFrames)
	}
	s.mu.Unlock()
}

// Frame returns the text of the current frame.
func (s *Spinner) Frame() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := string(spinnerFrames[s.frame])
	if s.small {
		return r
	}
	return " " + r + " "
}
