package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeGeoStoreFixture(t *testing.T, blocks []GeoBlock) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "geoip.db")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	for _, b := range blocks {
		packed, err := packGeoBlock(b)
		require.NoError(t, err)
		_, err = f.Write(packed)
		require.NoError(t, err)
	}
	return path
}

func TestGeoStoreLookup(t *testing.T) {
	blocks := []GeoBlock{
		{IPFrom: "1.0.0.0", IPTo: "1.0.0.255", Country: "US", Region: "CA", City: "LA"},
		{IPFrom: "1.0.1.0", IPTo: "1.0.1.255", Country: "GB", Region: "LN", City: "London"},
		{IPFrom: "2.0.0.0", IPTo: "2.0.0.255", Country: "DE", Region: "BE", City: "Berlin"},
	}
	path := writeGeoStoreFixture(t, blocks)

	store, err := OpenGeoStore(path)
	require.NoError(t, err)
	defer store.Close()

	block, ok, err := store.Lookup("1.0.0.42")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "US", block.Country)

	block, ok, err = store.Lookup("1.0.1.200")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "GB", block.Country)

	block, ok, err = store.Lookup("2.0.0.1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "DE", block.Country)
}

func TestGeoStoreLookupPastEnd(t *testing.T) {
	path := writeGeoStoreFixture(t, []GeoBlock{
		{IPFrom: "1.0.0.0", IPTo: "1.0.0.255", Country: "US"},
	})

	store, err := OpenGeoStore(path)
	require.NoError(t, err)
	defer store.Close()

	_, ok, err := store.Lookup("9.9.9.9")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestGeoStoreLookupBetweenBlocks(t *testing.T) {
	path := writeGeoStoreFixture(t, []GeoBlock{
		{IPFrom: "1.0.0.0", IPTo: "1.0.0.255", Country: "US"},
		{IPFrom: "1.0.2.0", IPTo: "1.0.2.255", Country: "GB"},
	})

	store, err := OpenGeoStore(path)
	require.NoError(t, err)
	defer store.Close()

	// 1.0.1.0 falls in the gap between blocks; binary search lands on the
	// next block whose ip_to is >= the query, matching original_source's
	// lookup semantics of "nearest block at or after this address".
	block, ok, err := store.Lookup("1.0.1.0")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "GB", block.Country)
}

func TestOpenGeoStoreRejectsBadSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.db")
	require.NoError(t, os.WriteFile(path, []byte("not a multiple of block size"), 0o644))

	_, err := OpenGeoStore(path)
	require.Error(t, err)
}
