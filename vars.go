package registry

import (
	"expvar"
	"fmt"
)

// getVarInt returns a process-wide *expvar.Int for the given metric path,
// creating it on first use. Used by the discovery component (Searcher) to
// expose basic operational counters without pulling in a metrics client.
func getVarInt(base, id, name string) *expvar.Int {
	fullname := fmt.Sprintf("registry.%s.%s.%s", base, id, name)
	if v := expvar.Get(fullname); v != nil {
		return v.(*expvar.Int)
	}
	return expvar.NewInt(fullname)
}
