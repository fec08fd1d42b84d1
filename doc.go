/*
Package registry implements the core engines of a self-replenishing registry
of open HTTP proxies: random-IP discovery, proxy validation and lifecycle
scoring, a GeoIP lookup store, a network blacklist, peer-to-peer registry
sync, and a bounded worker pool shared by the periodic maintenance tasks.

Discovery

A Searcher probes random IPv4 addresses on a small set of candidate proxy
ports and streams the ones that pass validation.

Validation and scoring

A Validator decides whether a host:port is a working HTTP(S) proxy. Proxies
and Nodes held in a Store transition between active and inactive state with
an exponentially weighted score and an exponential-backoff recheck cadence.

GeoIP

A GeoStore answers country/region/city lookups for an IPv4 address from a
fixed-width binary file built from a CSV source by PrepareGeoDB.

Peer sync

A PeerClient merges the proxy and node sets of remote instances of this same
service into the local Store.

This example runs a single discovery pass and stores what it finds.

	store, _ := OpenStore(ctx, "tmp/proxy.db")
	geo, _ := OpenGeoStore("tmp/geoip.db")
	validator := NewDefaultValidator(ValidatorConfig{})
	searcher := NewSearcher(100, validator)

	count := 10
	for p := range searcher.Search(ctx, &count) {
		_ = store.CreateProxy(ctx, p, geo)
	}
*/
package registry
