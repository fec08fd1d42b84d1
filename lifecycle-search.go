package registry

import (
	"context"
)

// ProxySearchTask continuously discovers new proxies with a Searcher and
// stores the ones not already known, grounded on original_source's
// ProxySearchTask (a non-periodic task: it just runs the searcher's
// infinite generator for as long as the task manager is up).
type ProxySearchTask struct {
	Searcher *Searcher
	Store    *Store
	Geo      *GeoStore
}

func (t ProxySearchTask) Run(ctx context.Context) {
	for p := range t.Searcher.Search(ctx, nil) {
		exists, err := t.Store.ProxyExists(ctx, p.Host, p.Port)
		if err != nil {
			Log.Error("checking proxy existence", "host", p.Host, "port", p.Port, "error", err)
			continue
		}
		if exists {
			continue
		}
		p.IsActive = true
		if err := t.Store.CreateProxy(ctx, p, t.Geo); err != nil {
			Log.Error("creating discovered proxy", "host", p.Host, "port", p.Port, "error", err)
			continue
		}
		Log.Info("discovered new proxy", "host", p.Host, "port", p.Port)
	}
}
