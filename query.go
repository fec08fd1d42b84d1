package registry

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// QueryFilter narrows and formats the active-proxy listing, grounded on
// original_source's api.py list_ view (request args country/region/city/
// score/ordered/count/format).
type QueryFilter struct {
	Country string
	Region  string
	City    string
	// MinScore keeps only proxies with Score >= MinScore. Zero means no
	// score filtering, matching the source's `if score:` truthiness check.
	MinScore float64
	Ordered  bool
	// Count truncates the result to at most Count entries. Zero means no
	// limit.
	Count int
}

// ListProxies returns the active proxies in store matching f.
func ListProxies(ctx context.Context, store *Store, f QueryFilter) ([]Proxy, error) {
	proxies, err := store.ListActiveProxies(ctx)
	if err != nil {
		return nil, err
	}

	country := strings.ToUpper(f.Country)
	filtered := proxies[:0]
	for _, p := range proxies {
		if country != "" && p.Country != country {
			continue
		}
		if f.Region != "" && p.Region != f.Region {
			continue
		}
		if f.City != "" && p.City != f.City {
			continue
		}
		if f.MinScore != 0 && p.Score < f.MinScore {
			continue
		}
		filtered = append(filtered, p)
	}

	if f.Ordered {
		sort.SliceStable(filtered, func(i, j int) bool { return filtered[i].Score > filtered[j].Score })
	}
	if f.Count > 0 && len(filtered) > f.Count {
		filtered = filtered[:f.Count]
	}
	return filtered, nil
}

// FormatPlainList renders proxies as "host:port" lines, one per proxy,
// grounded on the source's plain-text branch (Proxy.__repr__ joined with
// newlines).
func FormatPlainList(proxies []Proxy) string {
	lines := make([]string, len(proxies))
	for i, p := range proxies {
		lines[i] = fmt.Sprintf("%s:%d", p.Host, p.Port)
	}
	return strings.Join(lines, "\n")
}
