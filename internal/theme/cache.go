package theme

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/alecthomas/chroma/v2"
	"golang.org/x/sync/singleflight"
)

// StyleFileExt is the extension of project style files. Their content is
// the chroma XML style format.
const StyleFileExt = ".xml"

// CacheKey identifies a resolver: the theme it was built for and the
// configuration it was built under.
type CacheKey struct {
	Theme  string
	Config string
}

func (k CacheKey) String() string {
	return k.Theme + "|" + k.Config
}

// ResolverCache builds resolvers on demand and keeps them per key.
// Concurrent requests for the same key share one build.
type ResolverCache struct {
	dir    string
	logger *slog.Logger

	mu        sync.Mutex
	resolvers map[CacheKey]*ChromaResolver
	epoch     uint64 // bumped whenever cached entries may be stale
	group     singleflight.Group
	loads     atomic.Int64
	load      func() (map[string]*chroma.Style, error)
}

// CacheOption configures a ResolverCache.
type CacheOption func(*ResolverCache)

// WithCacheLogger sets the cache logger.
func WithCacheLogger(l *slog.Logger) CacheOption {
	return func(c *ResolverCache) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewResolverCache creates a cache that loads project styles from dir. An
// empty dir means there are no project styles.
func NewResolverCache(dir string, opts ...CacheOption) *ResolverCache {
	c := &ResolverCache{
		dir:       dir,
		logger:    slog.New(slog.DiscardHandler),
		resolvers: make(map[CacheKey]*ChromaResolver),
	}
	c.load = c.loadProjectStyles
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Resolver returns the resolver for key, building it if needed. This may
// read the style directory and must not be called on the interactive
// executor.
func (c *ResolverCache) Resolver(key CacheKey) (*ChromaResolver, error) {
	c.mu.Lock()
	if r, ok := c.resolvers[key]; ok {
		c.mu.Unlock()
		return r, nil
	}
	epoch := c.epoch
	c.mu.Unlock()

	// A build started before entries were dropped may have read stale
	// styles. It is handed to its callers but never stored.
	v, err, shared := c.group.Do(fmt.Sprintf("%s#%d", key, epoch), func() (any, error) {
		project, err := c.load()
		if err != nil {
			return nil, err
		}
		r := NewChromaResolver(project)
		c.mu.Lock()
		if c.epoch == epoch {
			c.resolvers[key] = r
		}
		c.mu.Unlock()
		return r, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		c.logger.Debug("shared resolver build", "key", key.String())
	}
	return v.(*ChromaResolver), nil
}

// ReplaceCustomConfig drops every resolver built for theme under a config
// other than config, so the next lookup rebuilds against the new one.
func (c *ResolverCache) ReplaceCustomConfig(theme, config string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.resolvers {
		if key.Theme == theme && key.Config != config {
			delete(c.resolvers, key)
		}
	}
	// builds in flight may be for a config being replaced
	c.epoch++
}

// Clear drops every cached resolver so project styles are read again.
func (c *ResolverCache) Clear() {
	c.mu.Lock()
	c.resolvers = make(map[CacheKey]*ChromaResolver)
	c.epoch++
	c.mu.Unlock()
}

// Loads returns how many times the style directory has been read.
func (c *ResolverCache) Loads() int64 {
	return c.loads.Load()
}

func (c *ResolverCache) loadProjectStyles() (map[string]*chroma.Style, error) {
	c.loads.Add(1)
	project := make(map[string]*chroma.Style)
	if c.dir == "" {
		return project, nil
	}

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return project, nil
		}
		return nil, fmt.Errorf("reading style directory %s: %w", c.dir, err)
	}

	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), StyleFileExt) {
			continue
		}
		path := filepath.Join(c.dir, e.Name())
		st, err := loadStyleFile(path)
		if err != nil {
			c.logger.Warn("skipping style file", "path", path, "error", err)
			continue
		}
		project[strings.ToLower(st.Name)] = st
	}
	return project, nil
}

func loadStyleFile(path string) (*chroma.Style, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	st, err := chroma.NewXMLStyle(f)
	if err != nil {
		return nil, &StyleFileError{Path: path, Err: err}
	}
	return st, nil
}
