package registry

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIPToIntRoundTrip(t *testing.T) {
	v, err := ipToInt("178.153.16.203")
	require.NoError(t, err)
	require.Equal(t, "178.153.16.203", intToIP(v))
}

func TestIPToIntInvalid(t *testing.T) {
	_, err := ipToInt("not-an-ip")
	require.Error(t, err)
}

func TestStrToBytesPadsAndRoundTrips(t *testing.T) {
	b, err := strToBytes("US", 2)
	require.NoError(t, err)
	require.Equal(t, "US", strFromBytes(b))
}

func TestStrToBytesTooLong(t *testing.T) {
	_, err := strToBytes("TooLongForTheField", 4)
	require.Error(t, err)
	var tooLong EncodingTooLong
	require.ErrorAs(t, err, &tooLong)
	require.Equal(t, 4, tooLong.Limit)
}

func TestFloatRoundTrip(t *testing.T) {
	b := floatToBytes(37.6173)
	require.InDelta(t, 37.6173, floatFromBytes(b[:]), 1e-9)
}

func TestParsePort(t *testing.T) {
	p, err := parsePort("8080")
	require.NoError(t, err)
	require.Equal(t, 8080, p)

	_, err = parsePort("0")
	require.Error(t, err)

	_, err = parsePort("70000")
	require.Error(t, err)
}
