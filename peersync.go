package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// peerNode is one entry of a /nodes response.
type peerNode struct {
	URL string `json:"url"`
}

// peerProxy is one entry of a /list response.
type peerProxy struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

type listResult[T any] struct {
	Result []T `json:"result"`
}

// PeerClient fetches the proxy and node sets of a remote registry instance,
// grounded on original_source's SyncNodesTask._request_nodes/_request_proxies.
type PeerClient struct {
	HTTPClient  *http.Client
	InstanceURL string // this instance's own URL, sent when announcing itself
}

// NewPeerClient returns a PeerClient with a default timeout.
func NewPeerClient(instanceURL string) *PeerClient {
	return &PeerClient{
		HTTPClient:  &http.Client{Timeout: 10 * time.Second},
		InstanceURL: instanceURL,
	}
}

// FetchNodes requests nodeURL+"nodes". If c.InstanceURL is set, it POSTs
// its own URL to announce itself to the peer (the peer's own sync task will
// in turn discover us); otherwise it GETs. A non-200 response is treated as
// the peer being unreachable, returning ok=false rather than an error,
// matching the source's behavior of setting result to None.
func (c *PeerClient) FetchNodes(ctx context.Context, nodeURL string) (urls []string, ok bool, err error) {
	target := ensureTrailingSlash(nodeURL) + "nodes"

	var req *http.Request
	if c.InstanceURL != "" {
		form := url.Values{"url": {c.InstanceURL}}
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, target, strings.NewReader(form.Encode()))
		if err != nil {
			return nil, false, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return nil, false, err
		}
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, false, nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, false, nil
	}

	var body listResult[peerNode]
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, false, fmt.Errorf("decoding nodes response from %s: %w", target, err)
	}
	for _, n := range body.Result {
		urls = append(urls, n.URL)
	}
	return urls, true, nil
}

// FetchProxies requests nodeURL+"list", returning the peer's advertised
// active proxies.
func (c *PeerClient) FetchProxies(ctx context.Context, nodeURL string) (proxies []Proxy, ok bool, err error) {
	target := ensureTrailingSlash(nodeURL) + "list"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, false, err
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, false, nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, false, nil
	}

	var body listResult[peerProxy]
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, false, fmt.Errorf("decoding list response from %s: %w", target, err)
	}
	for _, p := range body.Result {
		proxies = append(proxies, Proxy{Host: p.Host, Port: p.Port})
	}
	return proxies, true, nil
}
