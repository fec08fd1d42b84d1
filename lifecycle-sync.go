package registry

import (
	"context"
	"time"
)

// SyncNodesHandle merges the node and proxy sets of every known peer into
// store, grounded on original_source's SyncNodesTask.handle
// (_prepare_nodes_to_sync -> _sync_nodes -> _sync_proxies).
func SyncNodesHandle(ctx context.Context, store *Store, geo *GeoStore, client *PeerClient, workers int, updateDelta time.Duration) {
	due := dueNodes(ctx, store, updateDelta)
	if len(due) == 0 {
		return
	}
	syncNodes(ctx, store, client, workers, due)
	syncProxies(ctx, store, geo, client, workers, due)
}

// dueNodes returns the union of active nodes overdue for a recheck and
// inactive nodes eligible under the same clamped-backoff rule used for
// proxies (lifecycle-inactive.go).
func dueNodes(ctx context.Context, store *Store, updateDelta time.Duration) []Node {
	active, err := store.ListActiveNodes(ctx)
	if err != nil {
		Log.Error("listing active nodes", "error", err)
		active = nil
	}
	inactive, err := store.ListInactiveNodes(ctx)
	if err != nil {
		Log.Error("listing inactive nodes", "error", err)
		inactive = nil
	}

	now := time.Now()
	var due []Node
	for _, n := range active {
		if n.LastCheckAt != nil && now.Sub(*n.LastCheckAt) > updateDelta {
			due = append(due, n)
		}
	}
	for _, n := range inactive {
		switch {
		case n.LastCheckAt == nil:
			due = append(due, n)
		case n.InactiveSince == nil:
			due = append(due, n)
		case inactiveBackoffDue(now, *n.LastCheckAt, *n.InactiveSince):
			due = append(due, n)
		}
	}
	return due
}

func syncNodes(ctx context.Context, store *Store, client *PeerClient, workers int, nodes []Node) {
	type outcome struct {
		urls []string
		ok   bool
	}
	results := MapPool(workers, nodes, func(n Node) outcome {
		urls, ok, err := client.FetchNodes(ctx, n.URL)
		if err != nil {
			Log.Error("fetching peer nodes", "peer", n.URL, "error", err)
		}
		return outcome{urls: urls, ok: ok}
	})

	for i, n := range nodes {
		res := results[i]
		if !res.ok {
			if err := store.SetNodeInactive(ctx, n.URL); err != nil {
				Log.Error("marking node inactive", "peer", n.URL, "error", err)
			}
			continue
		}
		if err := store.InsertNodesByURLs(ctx, res.urls); err != nil {
			Log.Error("inserting nodes from peer", "peer", n.URL, "error", err)
		}
		if err := store.SetNodeActive(ctx, n.URL); err != nil {
			Log.Error("marking node active", "peer", n.URL, "error", err)
		}
	}
}

func syncProxies(ctx context.Context, store *Store, geo *GeoStore, client *PeerClient, workers int, nodes []Node) {
	type outcome struct {
		proxies []Proxy
		ok      bool
	}
	results := MapPool(workers, nodes, func(n Node) outcome {
		proxies, ok, err := client.FetchProxies(ctx, n.URL)
		if err != nil {
			Log.Error("fetching peer proxies", "peer", n.URL, "error", err)
		}
		return outcome{proxies: proxies, ok: ok}
	})

	for _, res := range results {
		if !res.ok {
			continue
		}
		for _, p := range res.proxies {
			exists, err := store.ProxyExists(ctx, p.Host, p.Port)
			if err != nil {
				Log.Error("checking proxy existence", "host", p.Host, "port", p.Port, "error", err)
				continue
			}
			if exists {
				continue
			}
			p.IsActive = true
			if err := store.CreateProxy(ctx, p, geo); err != nil {
				Log.Error("creating proxy from peer sync", "host", p.Host, "port", p.Port, "error", err)
			}
		}
	}
}
