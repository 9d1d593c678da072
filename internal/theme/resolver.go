package theme

import (
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/styles"
)

// Resolver looks up themes by name.
type Resolver interface {
	// Theme returns the named theme, or nil if it does not exist.
	Theme(name string, framework bool) *Style
}

// ChromaResolver resolves framework themes from the chroma style registry
// and project themes from a fixed set of loaded styles. Project lookups fall
// back to the registry, so a project may reference any built-in style.
type ChromaResolver struct {
	project map[string]*chroma.Style
}

// NewChromaResolver creates a resolver over the given project styles, keyed
// by name.
func NewChromaResolver(project map[string]*chroma.Style) *ChromaResolver {
	normalized := make(map[string]*chroma.Style, len(project))
	for name, st := range project {
		normalized[strings.ToLower(name)] = st
	}
	return &ChromaResolver{project: normalized}
}

// Theme implements Resolver.
func (r *ChromaResolver) Theme(name string, framework bool) *Style {
	if name == "" {
		return nil
	}
	if !framework {
		if cs, ok := r.project[strings.ToLower(name)]; ok {
			return styleFromChroma(cs, false)
		}
	}
	if cs := registryStyle(name); cs != nil {
		return styleFromChroma(cs, true)
	}
	return nil
}

// Names returns project style names followed by registry names.
func (r *ChromaResolver) Names() []string {
	names := make([]string, 0, len(r.project)+len(styles.Registry))
	for name := range r.project {
		names = append(names, name)
	}
	return append(names, styles.Names()...)
}

// registryStyle finds a chroma registry style without falling back to the
// chroma default, which styles.Get would do.
func registryStyle(name string) *chroma.Style {
	if cs, ok := styles.Registry[name]; ok {
		return cs
	}
	for n, cs := range styles.Registry {
		if strings.EqualFold(n, name) {
			return cs
		}
	}
	return nil
}
