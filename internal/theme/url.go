// Package theme resolves the visual theme a model is rendered with.
//
// Themes are referenced by resource URLs such as "@style/monokai" or
// "@framework:style/github". Resolution goes through a ResolverCache whose
// resolvers are backed by the chroma style registry plus project style
// files; when the configured theme cannot be found a Preference picks a
// replacement. Both steps may be slow and run off the interactive executor.
package theme

import (
	"strings"
)

// ResourceType is the kind of resource a URL points at.
type ResourceType string

const (
	// TypeStyle is a style/theme resource.
	TypeStyle ResourceType = "style"
	// TypeColor is a color resource.
	TypeColor ResourceType = "color"
	// TypeAttr is a theme attribute reference ("?attr/name").
	TypeAttr ResourceType = "attr"
)

// FrameworkNamespace marks resources provided by the platform rather than the
// project.
const FrameworkNamespace = "framework"

// ResourceURL is a parsed resource reference.
type ResourceURL struct {
	Type      ResourceType
	Name      string
	Namespace string
	// Create is set for "@+type/name" references.
	Create bool
	// Theme is set for "?type/name" references.
	Theme bool
}

// IsFramework reports whether the URL points at a framework resource.
func (u ResourceURL) IsFramework() bool {
	return u.Namespace == FrameworkNamespace
}

// String formats the URL back to its canonical form.
func (u ResourceURL) String() string {
	var b strings.Builder
	if u.Theme {
		b.WriteByte('?')
	} else {
		b.WriteByte('@')
	}
	if u.Create {
		b.WriteByte('+')
	}
	if u.Namespace != "" {
		b.WriteString(u.Namespace)
		b.WriteByte(':')
	}
	b.WriteString(string(u.Type))
	b.WriteByte('/')
	b.WriteString(u.Name)
	return b.String()
}

// ParseURL parses "@[+][namespace:]type/name" or "?[namespace:]type/name".
// It reports false for anything else, including empty names and unknown
// prefixes. A bare name without prefix is not a URL.
func ParseURL(s string) (ResourceURL, bool) {
	var u ResourceURL
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return u, false
	}

	switch s[0] {
	case '@':
	case '?':
		u.Theme = true
	default:
		return u, false
	}
	s = s[1:]

	if strings.HasPrefix(s, "+") {
		if u.Theme {
			return ResourceURL{}, false
		}
		u.Create = true
		s = s[1:]
	}

	slash := strings.IndexByte(s, '/')
	if slash <= 0 || slash == len(s)-1 {
		return ResourceURL{}, false
	}
	head, name := s[:slash], s[slash+1:]
	if strings.ContainsAny(name, "/:") {
		return ResourceURL{}, false
	}

	if colon := strings.IndexByte(head, ':'); colon >= 0 {
		u.Namespace = head[:colon]
		head = head[colon+1:]
		if u.Namespace == "" || head == "" {
			return ResourceURL{}, false
		}
	}

	u.Type = ResourceType(head)
	u.Name = name
	return u, true
}

// StyleURL returns the URL for a project style name.
func StyleURL(name string) string {
	return ResourceURL{Type: TypeStyle, Name: name}.String()
}
