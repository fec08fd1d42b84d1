package registry

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPackUnpackGeoBlockRoundTrip(t *testing.T) {
	block := GeoBlock{
		IPFrom:    "178.153.0.0",
		IPTo:      "178.153.255.255",
		Continent: "EU",
		Country:   "FR",
		Region:    "Ile-de-France",
		City:      "Paris",
		Latitude:  48.8566,
		Longitude: 2.3522,
	}

	raw, err := packGeoBlock(block)
	require.NoError(t, err)
	require.Len(t, raw, geoBlockSize)

	got := unpackGeoBlock(raw)
	require.Equal(t, block, got)
}

func TestGeoBlockIPTo(t *testing.T) {
	block := GeoBlock{IPFrom: "1.0.0.0", IPTo: "1.0.0.255", Continent: "AS", Country: "CN"}
	raw, err := packGeoBlock(block)
	require.NoError(t, err)

	expected, err := ipToInt("1.0.0.255")
	require.NoError(t, err)
	require.Equal(t, expected, geoBlockIPTo(raw))
}

func TestPackGeoBlockFieldTooLong(t *testing.T) {
	block := GeoBlock{
		IPFrom:  "1.0.0.0",
		IPTo:    "1.0.0.255",
		Country: "TOO-LONG-FOR-TWO-BYTES",
	}
	_, err := packGeoBlock(block)
	require.Error(t, err)
}
