package theme

import (
	"sync"

	"github.com/lucasb-eyer/go-colorful"
)

// Manager bundles the collaborators shared by configurations.
type Manager struct {
	Cache      *ResolverCache
	Preference Preference
}

// Configuration is the mutable rendering configuration of one model: the
// theme it is drawn with, the host background and the key of the device or
// profile the theme is resolved under.
type Configuration struct {
	manager *Manager

	mu         sync.RWMutex
	theme      string
	background colorful.Color
	key        string
	modCount   uint64
}

// NewConfiguration creates a configuration.
func NewConfiguration(manager *Manager, theme string, background colorful.Color, key string) *Configuration {
	return &Configuration{
		manager:    manager,
		theme:      theme,
		background: background,
		key:        key,
	}
}

// Manager returns the shared collaborators.
func (c *Configuration) Manager() *Manager {
	return c.manager
}

// Theme returns the current theme URL.
func (c *Configuration) Theme() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.theme
}

// SetTheme changes the theme. Setting the current value is a no-op.
func (c *Configuration) SetTheme(theme string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.theme == theme {
		return
	}
	c.theme = theme
	c.modCount++
}

// Background returns the host background color.
func (c *Configuration) Background() colorful.Color {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.background
}

// SetBackground changes the host background color.
func (c *Configuration) SetBackground(bg colorful.Color) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.background = bg
	c.modCount++
}

// Key returns the resolution key.
func (c *Configuration) Key() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.key
}

// ModificationCount increases with every change.
func (c *Configuration) ModificationCount() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.modCount
}
