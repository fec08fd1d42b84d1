package registry

import (
	"context"
	"time"
)

// UpdateActiveProxiesHandle rechecks every active proxy whose last check is
// older than updateDelta, deactivating the ones that fail validation,
// grounded on original_source's UpdateActiveProxyTask.handle.
func UpdateActiveProxiesHandle(ctx context.Context, store *Store, validator Validator, workers int, updateDelta time.Duration) {
	proxies, err := store.ListActiveProxies(ctx)
	if err != nil {
		Log.Error("listing active proxies", "error", err)
		return
	}

	now := time.Now()
	var due []Proxy
	for _, p := range proxies {
		if now.Sub(p.LastCheckAt) > updateDelta {
			due = append(due, p)
		}
	}
	if len(due) == 0 {
		return
	}

	results := MapPool(workers, due, func(p Proxy) bool {
		return validator.Validate(ctx, p.Host, p.Port)
	})

	for i, p := range due {
		if results[i] {
			Log.Info("active proxy check succeeded", "host", p.Host, "port", p.Port)
			p.ScoreUp()
		} else {
			Log.Info("active proxy check failed", "host", p.Host, "port", p.Port)
			p.IsActive = false
			inactiveSince := now
			p.InactiveSince = &inactiveSince
			p.ScoreDown()
		}
		p.LastCheckAt = now
		if err := persistProxyCheck(ctx, store, p); err != nil {
			Log.Error("persisting active proxy check", "host", p.Host, "port", p.Port, "error", err)
		}
	}
}

// persistProxyCheck writes back the score and active/inactive transition of
// p after a recheck. Shared by UpdateActiveProxiesHandle and
// UpdateInactiveProxiesHandle.
func persistProxyCheck(ctx context.Context, store *Store, p Proxy) error {
	if err := store.UpdateProxyScore(ctx, p); err != nil {
		return err
	}
	if p.IsActive {
		return store.SetProxyActive(ctx, p.Host, p.Port)
	}
	return store.SetProxyInactive(ctx, p.Host, p.Port)
}
