package theme

import (
	"context"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// Context is what a Preference decides from.
type Context struct {
	// Current is the theme URL that failed to resolve.
	Current string
	// Background is the host background color.
	Background colorful.Color
	// Candidates are the theme names the resolver knows about.
	Candidates []string
	// Resolver resolves candidates.
	Resolver Resolver
}

// Preference computes a replacement theme URL when the configured theme
// cannot be resolved. Implementations may be slow.
type Preference interface {
	Preferred(ctx context.Context, pc Context) (string, error)
}

// PreferenceFunc adapts a function to Preference.
type PreferenceFunc func(ctx context.Context, pc Context) (string, error)

// Preferred implements Preference.
func (f PreferenceFunc) Preferred(ctx context.Context, pc Context) (string, error) {
	return f(ctx, pc)
}

// PreferredByBackground picks the candidate whose background is perceptually
// closest to the host background, so the visual editor blends in with the
// surrounding text editor.
type PreferredByBackground struct{}

// Preferred implements Preference. Ties go to the earlier candidate.
func (PreferredByBackground) Preferred(ctx context.Context, pc Context) (string, error) {
	if pc.Resolver == nil {
		return "", ErrNoPreference
	}
	best := ""
	bestDist := math.Inf(1)
	for _, name := range pc.Candidates {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		st := pc.Resolver.Theme(name, false)
		if st == nil {
			continue
		}
		d := st.Background.DistanceLab(pc.Background)
		if d < bestDist {
			best, bestDist = st.Name, d
		}
	}
	if best == "" {
		return "", ErrNoPreference
	}
	return StyleURL(best), nil
}
