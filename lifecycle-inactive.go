package registry

import (
	"context"
	"time"
)

// UpdateInactiveProxiesHandle rechecks inactive proxies with an
// exponential-backoff cadence (inactiveBackoffDue), reactivating the ones
// that pass validation, grounded on original_source's
// UpdateInactiveProxyTask.handle.
func UpdateInactiveProxiesHandle(ctx context.Context, store *Store, validator Validator, workers int) {
	proxies, err := store.ListInactiveProxies(ctx)
	if err != nil {
		Log.Error("listing inactive proxies", "error", err)
		return
	}

	now := time.Now()
	var due []Proxy
	for _, p := range proxies {
		if p.InactiveSince == nil || inactiveBackoffDue(now, p.LastCheckAt, *p.InactiveSince) {
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
			Log.Info("inactive proxy recovered", "host", p.Host, "port", p.Port)
			p.IsActive = true
			p.InactiveSince = nil
			p.ScoreUp()
		} else {
			Log.Info("inactive proxy still failing", "host", p.Host, "port", p.Port)
			p.ScoreDown()
		}
		p.LastCheckAt = now
		if err := persistProxyCheck(ctx, store, p); err != nil {
			Log.Error("persisting inactive proxy check", "host", p.Host, "port", p.Port, "error", err)
		}
	}
}
