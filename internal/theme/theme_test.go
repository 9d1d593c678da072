package theme

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/alecthomas/chroma/v2"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseURL(t *testing.T) {
	tests := []struct {
		in   string
		ok   bool
		want ResourceURL
	}{
		{"@style/monokai", true, ResourceURL{Type: TypeStyle, Name: "monokai"}},
		{"@framework:style/github", true, ResourceURL{Type: TypeStyle, Name: "github", Namespace: FrameworkNamespace}},
		{"@+style/new", true, ResourceURL{Type: TypeStyle, Name: "new", Create: true}},
		{"?attr/windowBackground", true, ResourceURL{Type: TypeAttr, Name: "windowBackground", Theme: true}},
		{"@color/accent", true, ResourceURL{Type: TypeColor, Name: "accent"}},
		{"monokai", false, ResourceURL{}},
		{"", false, ResourceURL{}},
		{"@style/", false, ResourceURL{}},
		{"@/name", false, ResourceURL{}},
		{"@:style/name", false, ResourceURL{}},
		{"?+attr/x", false, ResourceURL{}},
		{"@style/a/b", false, ResourceURL{}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseURL(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
			if ok {
				assert.Equal(t, tt.in, got.String())
			}
		})
	}
}

func TestParseURLFramework(t *testing.T) {
	u, ok := ParseURL("@framework:style/vim")
	require.True(t, ok)
	assert.True(t, u.IsFramework())
}

func TestChromaResolverRegistry(t *testing.T) {
	r := NewChromaResolver(nil)

	st := r.Theme("monokai", true)
	require.NotNil(t, st)
	assert.True(t, st.Dark())
	assert.True(t, st.Framework)

	assert.Nil(t, r.Theme("no-such-theme", true))
	assert.Nil(t, r.Theme("", false))
	assert.NotNil(t, r.Theme("MONOKAI", false), "project lookups fall back to the registry")
}

const testStyleXML = `<style name="Midnight">
  <entry type="Background" style="bg:#101018 #e0e0e0"/>
</style>
`

func writeStyle(t *testing.T, dir string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "midnight.xml"), []byte(testStyleXML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.xml"), []byte("<style"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))
}

func TestResolverCacheLoadsProjectStyles(t *testing.T) {
	dir := t.TempDir()
	writeStyle(t, dir)
	c := NewResolverCache(dir)

	r, err := c.Resolver(CacheKey{Theme: "@style/midnight", Config: "default"})
	require.NoError(t, err)

	st := r.Theme("midnight", false)
	require.NotNil(t, st)
	assert.False(t, st.Framework)
	assert.True(t, st.Dark())
	assert.Nil(t, r.Theme("midnight", true), "project styles are not framework styles")
}

func TestResolverCacheSharesBuilds(t *testing.T) {
	c := NewResolverCache(t.TempDir())
	key := CacheKey{Theme: "@style/x", Config: "default"}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Resolver(key)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Loads(), int64(16))

	before := c.Loads()
	_, err := c.Resolver(key)
	require.NoError(t, err)
	assert.Equal(t, before, c.Loads(), "cached resolver is reused")
}

func TestResolverCacheReplaceCustomConfig(t *testing.T) {
	c := NewResolverCache("")
	old := CacheKey{Theme: "@style/x", Config: "custom-1"}
	_, err := c.Resolver(old)
	require.NoError(t, err)

	c.ReplaceCustomConfig("@style/x", "custom-1")
	_, err = c.Resolver(old)
	require.NoError(t, err)
	assert.Equal(t, int64(1), c.Loads())

	c.ReplaceCustomConfig("@style/x", "custom-2")
	_, err = c.Resolver(old)
	require.NoError(t, err)
	assert.Equal(t, int64(2), c.Loads())
}

func TestResolverCacheClearReloads(t *testing.T) {
	c := NewResolverCache("")
	key := CacheKey{Theme: "@style/x", Config: "default"}
	_, err := c.Resolver(key)
	require.NoError(t, err)
	_, err = c.Resolver(key)
	require.NoError(t, err)
	assert.Equal(t, int64(1), c.Loads())

	c.Clear()
	_, err = c.Resolver(key)
	require.NoError(t, err)
	assert.Equal(t, int64(2), c.Loads())
}

func TestResolverCacheDropsBuildStartedBeforeClear(t *testing.T) {
	c := NewResolverCache("")
	key := CacheKey{Theme: "@style/x", Config: "default"}

	started := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int64
	c.load = func() (map[string]*chroma.Style, error) {
		if calls.Add(1) == 1 {
			close(started)
			<-release
		}
		return map[string]*chroma.Style{}, nil
	}

	done := make(chan *ChromaResolver, 1)
	go func() {
		r, err := c.Resolver(key)
		assert.NoError(t, err)
		done <- r
	}()
	<-started
	c.Clear()
	close(release)
	stale := <-done
	require.NotNil(t, stale)

	fresh, err := c.Resolver(key)
	require.NoError(t, err)
	assert.NotSame(t, stale, fresh)
	assert.Equal(t, int64(2), calls.Load())
}

func TestResolverCacheMissingDir(t *testing.T) {
	c := NewResolverCache(filepath.Join(t.TempDir(), "missing"))
	_, err := c.Resolver(CacheKey{})
	assert.NoError(t, err)
}

type fakeResolver map[string]*Style

func (f fakeResolver) Theme(name string, _ bool) *Style {
	return f[name]
}

func mustHex(t *testing.T, s string) colorful.Color {
	t.Helper()
	c, err := colorful.Hex(s)
	require.NoError(t, err)
	return c
}

func TestPreferredByBackground(t *testing.T) {
	r := fakeResolver{
		"light": {Name: "light", Background: mustHex(t, "#fafafa")},
		"dark":  {Name: "dark", Background: mustHex(t, "#1e1e1e")},
	}
	pc := Context{
		Background: mustHex(t, "#202020"),
		Candidates: []string{"light", "dark", "missing"},
		Resolver:   r,
	}

	got, err := PreferredByBackground{}.Preferred(context.Background(), pc)
	require.NoError(t, err)
	assert.Equal(t, "@style/dark", got)

	pc.Background = mustHex(t, "#ffffff")
	got, err = PreferredByBackground{}.Preferred(context.Background(), pc)
	require.NoError(t, err)
	assert.Equal(t, "@style/light", got)
}

func TestPreferredByBackgroundNoCandidates(t *testing.T) {
	_, err := PreferredByBackground{}.Preferred(context.Background(), Context{Resolver: fakeResolver{}})
	assert.ErrorIs(t, err, ErrNoPreference)
}

func TestLuaPreference(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "theme.lua")
	require.NoError(t, os.WriteFile(script, []byte(`
function preferred_theme(ctx)
  if ctx.dark then
    return "dracula"
  end
  return "@framework:style/github"
end
`), 0o644))

	p := NewLuaPreference(script, nil, nil)

	got, err := p.Preferred(context.Background(), Context{Background: mustHex(t, "#000000")})
	require.NoError(t, err)
	assert.Equal(t, "@style/dracula", got)

	got, err = p.Preferred(context.Background(), Context{Background: mustHex(t, "#ffffff")})
	require.NoError(t, err)
	assert.Equal(t, "@framework:style/github", got)
}

func TestLuaPreferenceFallsBack(t *testing.T) {
	fallback := PreferenceFunc(func(context.Context, Context) (string, error) {
		return "@style/fallback", nil
	})
	p := NewLuaPreference(filepath.Join(t.TempDir(), "missing.lua"), fallback, nil)

	got, err := p.Preferred(context.Background(), Context{})
	require.NoError(t, err)
	assert.Equal(t, "@style/fallback", got)
}

func TestConfigurationModificationCount(t *testing.T) {
	c := NewConfiguration(nil, "@style/a", colorful.Color{}, "default")
	c.SetTheme("@style/a")
	assert.Equal(t, uint64(0), c.ModificationCount())
	c.SetTheme("@style/b")
	assert.Equal(t, uint64(1), c.ModificationCount())
	assert.Equal(t, "@style/b", c.Theme())
}
