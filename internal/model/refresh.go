package model

import (
	"context"

	"github.com/dshills/vscripting/internal/computation"
	"github.com/dshills/vscripting/internal/theme"
)

// ScheduleRefresh queues a theme refresh on the update queue. Repeated calls
// within the queue delay collapse into one refresh.
func (m *Model) ScheduleRefresh() {
	m.queue.Schedule(refreshKey, m.RequestThemeRefresh)
}

// RequestThemeRefresh starts resolving the configured theme in the
// background, superseding any refresh still in flight. It is a no-op when
// the configured theme is not a style reference or the model is disposed.
func (m *Model) RequestThemeRefresh() {
	url, ok := theme.ParseURL(m.config.Theme())
	if !ok || url.Type != theme.TypeStyle {
		return
	}
	if m.IsDisposed() {
		return
	}

	tok := m.computation.Begin(context.Background())
	if err := m.rt.Background.Submit(func(ctx context.Context) {
		m.resolveTheme(url, tok)
	}); err != nil {
		m.logger.Debug("theme refresh not scheduled", "error", err)
		m.computation.Finish(tok)
	}
}

// resolveTheme runs on the background pool. The token is re-checked after
// every slow step; a superseded token silently abandons its work.
func (m *Model) resolveTheme(url theme.ResourceURL, tok *computation.Token) {
	defer m.computation.Finish(tok)

	mgr := m.config.Manager()
	if mgr == nil || mgr.Cache == nil {
		return
	}

	key := theme.CacheKey{Theme: m.config.Theme(), Config: m.config.Key()}
	mgr.Cache.ReplaceCustomConfig(key.Theme, key.Config)
	resolver, err := mgr.Cache.Resolver(key)
	if err != nil {
		m.logger.Debug("theme resolver unavailable", "theme", key.Theme, "error", err)
		return
	}
	if !m.computation.IsCurrent(tok) {
		m.logger.Debug("theme refresh superseded", "generation", tok.Generation())
		return
	}

	if resolver.Theme(url.Name, url.IsFramework()) != nil {
		return
	}
	if mgr.Preference == nil {
		return
	}

	preferred, err := mgr.Preference.Preferred(tok.Context(), theme.Context{
		Current:    key.Theme,
		Background: m.config.Background(),
		Candidates: resolver.Names(),
		Resolver:   resolver,
	})
	if err != nil || preferred == "" {
		m.logger.Debug("no preferred theme", "theme", key.Theme, "error", err)
		return
	}

	if !m.computation.IsCurrent(tok) {
		m.logger.Debug("theme refresh superseded", "generation", tok.Generation())
		return
	}

	m.rt.Invoker.InvokeLater(func() {
		m.applyTheme(preferred)
	}, func() bool {
		return m.IsDisposed() || !m.computation.IsLatest(tok)
	})
}

func (m *Model) applyTheme(preferred string) {
	m.config.SetTheme(preferred)
	m.modCount.Add(1)
	m.logger.Debug("theme applied", "theme", preferred)
	if m.hooks.OnThemeApplied != nil {
		m.hooks.OnThemeApplied(m, preferred)
	}
}
