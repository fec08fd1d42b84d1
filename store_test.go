package registry

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "registry.db")
	s, err := OpenStore(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateAndGetProxy(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.CreateProxy(ctx, Proxy{Host: "1.2.3.4", Port: 8080, IsActive: true}, nil))

	p, ok, err := s.GetProxy(ctx, "1.2.3.4", 8080)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "1.2.3.4", p.Host)
	require.Equal(t, 8080, p.Port)
	require.True(t, p.IsActive)
	require.False(t, p.CreatedAt.IsZero())
	require.False(t, p.LastCheckAt.IsZero())
	require.Nil(t, p.InactiveSince)

	_, ok, err = s.GetProxy(ctx, "1.2.3.4", 9090)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCreateProxySamePortDistinctHosts(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.CreateProxy(ctx, Proxy{Host: "1.2.3.4", Port: 8080}, nil))
	require.NoError(t, s.CreateProxy(ctx, Proxy{Host: "5.6.7.8", Port: 8080}, nil))

	exists, err := s.ProxyExists(ctx, "1.2.3.4", 8080)
	require.NoError(t, err)
	require.True(t, exists)
	exists, err = s.ProxyExists(ctx, "5.6.7.8", 8080)
	require.NoError(t, err)
	require.True(t, exists)
}

func TestListActiveAndInactiveProxies(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.CreateProxy(ctx, Proxy{Host: "1.1.1.1", Port: 80, IsActive: true}, nil))
	require.NoError(t, s.CreateProxy(ctx, Proxy{Host: "2.2.2.2", Port: 80, IsActive: false}, nil))

	active, err := s.ListActiveProxies(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Equal(t, "1.1.1.1", active[0].Host)

	inactive, err := s.ListInactiveProxies(ctx)
	require.NoError(t, err)
	require.Len(t, inactive, 1)
	require.Equal(t, "2.2.2.2", inactive[0].Host)
}

func TestUpdateProxyScore(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.CreateProxy(ctx, Proxy{Host: "1.2.3.4", Port: 80}, nil))
	p, _, err := s.GetProxy(ctx, "1.2.3.4", 80)
	require.NoError(t, err)
	p.ScoreUp()
	require.NoError(t, s.UpdateProxyScore(ctx, p))

	got, _, err := s.GetProxy(ctx, "1.2.3.4", 80)
	require.NoError(t, err)
	require.InDelta(t, 0.25, got.Score, 1e-9)
}

func TestSetProxyActiveInactive(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.CreateProxy(ctx, Proxy{Host: "1.2.3.4", Port: 80, IsActive: true}, nil))

	require.NoError(t, s.SetProxyInactive(ctx, "1.2.3.4", 80))
	p, _, err := s.GetProxy(ctx, "1.2.3.4", 80)
	require.NoError(t, err)
	require.False(t, p.IsActive)
	require.NotNil(t, p.InactiveSince)
	firstInactiveSince := *p.InactiveSince

	// a second SetProxyInactive must not move inactive_since forward.
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, s.SetProxyInactive(ctx, "1.2.3.4", 80))
	p, _, err = s.GetProxy(ctx, "1.2.3.4", 80)
	require.NoError(t, err)
	require.True(t, p.InactiveSince.Equal(firstInactiveSince))

	require.NoError(t, s.SetProxyActive(ctx, "1.2.3.4", 80))
	p, _, err = s.GetProxy(ctx, "1.2.3.4", 80)
	require.NoError(t, err)
	require.True(t, p.IsActive)
	require.Nil(t, p.InactiveSince)
}

func TestInsertNodesByURLsNormalizesAndDedups(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.InsertNodesByURLs(ctx, []string{"http://peer-a.example", "http://peer-a.example/"}))

	exists, err := s.NodeExists(ctx, "http://peer-a.example/")
	require.NoError(t, err)
	require.True(t, exists)

	nodes, err := s.ListInactiveNodes(ctx)
	require.NoError(t, err)
	require.Len(t, nodes, 1)
}

func TestInsertNodesByURLsRejectsMalformed(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	err := s.InsertNodesByURLs(ctx, []string{"not a url"})
	require.Error(t, err)

	exists, err := s.NodeExists(ctx, "not a url")
	require.NoError(t, err)
	require.False(t, exists)
}

func TestSetNodeActiveInactive(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.CreateNode(ctx, Node{URL: "http://peer.example/"}))
	require.NoError(t, s.SetNodeActive(ctx, "http://peer.example/"))

	active, err := s.ListActiveNodes(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)

	require.NoError(t, s.SetNodeInactive(ctx, "http://peer.example/"))
	inactive, err := s.ListInactiveNodes(ctx)
	require.NoError(t, err)
	require.Len(t, inactive, 1)
	require.NotNil(t, inactive[0].InactiveSince)
}
