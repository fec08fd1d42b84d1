package registry

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormatPlainList(t *testing.T) {
	proxies := []Proxy{
		{Host: "1.2.3.4", Port: 8080},
		{Host: "5.6.7.8", Port: 3128},
	}
	require.Equal(t, "1.2.3.4:8080\n5.6.7.8:3128", FormatPlainList(proxies))
}

func TestFormatPlainListEmpty(t *testing.T) {
	require.Equal(t, "", FormatPlainList(nil))
}

func TestProxyScoreUpDown(t *testing.T) {
	p := Proxy{Score: 0}
	p.ScoreUp()
	require.InDelta(t, 0.25, p.Score, 1e-9)
	p.ScoreUp()
	require.InDelta(t, 0.4375, p.Score, 1e-9)
	p.ScoreDown()
	require.InDelta(t, 0.328125, p.Score, 1e-9)
}
