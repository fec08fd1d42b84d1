package registry

import (
	"fmt"

	"golang.org/x/exp/mmap"
)

// GeoStore answers location lookups for an IPv4 address against a
// fixed-width binary file of GeoBlocks sorted by ip_to ascending, grounded
// on original_source's GeoipDB (binary search over block index, one open
// file handle) but memory-mapped via golang.org/x/exp/mmap instead of
// seek+read, per spec.md §4.4's memory-mapped requirement.
type GeoStore struct {
	ra        *mmap.ReaderAt
	numBlocks int
}

// OpenGeoStore memory-maps the GeoIP database file at path.
func OpenGeoStore(path string) (*GeoStore, error) {
	ra, err := mmap.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening geoip database: %w", err)
	}
	if ra.Len()%geoBlockSize != 0 {
		ra.Close()
		return nil, fmt.Errorf("geoip database %s has size %d, not a multiple of block size %d", path, ra.Len(), geoBlockSize)
	}
	return &GeoStore{ra: ra, numBlocks: ra.Len() / geoBlockSize}, nil
}

// Close releases the memory mapping.
func (s *GeoStore) Close() error {
	return s.ra.Close()
}

// Lookup returns the GeoBlock covering ip, or ok=false if ip falls past the
// end of the database (no block's ip_to is >= ip).
func (s *GeoStore) Lookup(ip string) (block GeoBlock, ok bool, err error) {
	ipInt, err := ipToInt(ip)
	if err != nil {
		return GeoBlock{}, false, err
	}

	raw := make([]byte, geoBlockSize)
	var readErr error
	idx := binarySearchFunc(s.numBlocks, func(i int) (uint32, error) {
		if _, err := s.ra.ReadAt(raw, int64(i)*geoBlockSize); err != nil {
			readErr = err
			return 0, err
		}
		return geoBlockIPTo(raw), nil
	}, ipInt)
	if idx < 0 {
		return GeoBlock{}, false, fmt.Errorf("reading geoip block: %w", readErr)
	}
	if idx >= s.numBlocks {
		return GeoBlock{}, false, nil
	}

	if _, err := s.ra.ReadAt(raw, int64(idx)*geoBlockSize); err != nil {
		return GeoBlock{}, false, fmt.Errorf("reading geoip block %d: %w", idx, err)
	}
	return unpackGeoBlock(raw), true, nil
}

// binarySearchFunc is binarySearch's counterpart for keys that must be read
// through a fallible accessor (a memory-mapped file read) instead of a pure
// function. Returns -1 if any read fails.
func binarySearchFunc(n int, key func(int) (uint32, error), value uint32) int {
	lo, hi := 0, n
	for lo < hi {
		mid := lo + (hi-lo)/2
		k, err := key(mid)
		if err != nil {
			return -1
		}
		if k >= value {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	return lo
}
