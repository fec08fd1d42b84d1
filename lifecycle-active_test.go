package registry

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// scriptedValidator returns a fixed result per host:port, defaulting to
// defaultResult for addresses it wasn't told about.
type scriptedValidator struct {
	mu            sync.Mutex
	results       map[string]bool
	defaultResult bool
	calls         int64
}

func (v *scriptedValidator) Validate(ctx context.Context, host string, port int) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.calls++
	if r, ok := v.results[fmt.Sprintf("%s:%d", host, port)]; ok {
		return r
	}
	return v.defaultResult
}

func (v *scriptedValidator) calledCount() int64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.calls
}

func TestUpdateActiveProxiesHandleDeactivatesFailures(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.CreateProxy(ctx, Proxy{Host: "1.1.1.1", Port: 80, IsActive: true}, nil))
	require.NoError(t, s.CreateProxy(ctx, Proxy{Host: "2.2.2.2", Port: 80, IsActive: true}, nil))

	v := &scriptedValidator{results: map[string]bool{"1.1.1.1:80": true, "2.2.2.2:80": false}}
	UpdateActiveProxiesHandle(ctx, s, v, 4, -time.Second) // negative delta: everything is "due"

	p, _, err := s.GetProxy(ctx, "1.1.1.1", 80)
	require.NoError(t, err)
	require.True(t, p.IsActive)
	require.InDelta(t, 0.25, p.Score, 1e-9)

	p, _, err = s.GetProxy(ctx, "2.2.2.2", 80)
	require.NoError(t, err)
	require.False(t, p.IsActive)
	require.NotNil(t, p.InactiveSince)
	require.InDelta(t, 0, p.Score, 1e-9)
}

func TestUpdateActiveProxiesHandleSkipsRecentlyChecked(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.CreateProxy(ctx, Proxy{Host: "1.1.1.1", Port: 80, IsActive: true}, nil))

	v := &scriptedValidator{defaultResult: false}
	UpdateActiveProxiesHandle(ctx, s, v, 4, time.Hour) // just created: not due yet

	p, _, err := s.GetProxy(ctx, "1.1.1.1", 80)
	require.NoError(t, err)
	require.True(t, p.IsActive)
	require.Equal(t, 0.0, p.Score)
}
