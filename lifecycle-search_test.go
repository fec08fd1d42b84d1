package registry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestProxySearchTaskStoresDiscoveredProxies(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	s := newTestStore(t)
	task := ProxySearchTask{
		Searcher: NewSearcher(4, &alwaysValidValidator{}),
		Store:    s,
	}
	task.Run(ctx)

	active, err := s.ListActiveProxies(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, active)
	for _, p := range active {
		require.True(t, p.IsActive)
	}
}

func TestProxySearchTaskStoresNothingWhenNothingValidates(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	s := newTestStore(t)
	task := ProxySearchTask{
		Searcher: NewSearcher(2, neverValidValidator{}),
		Store:    s,
	}
	task.Run(ctx)

	active, err := s.ListActiveProxies(context.Background())
	require.NoError(t, err)
	require.Empty(t, active)
}
