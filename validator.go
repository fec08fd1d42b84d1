package registry

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"
)

// Validator decides whether host:port is a working HTTP proxy. It is an
// interface rather than a package-level function so tests can inject a
// deterministic fake instead of monkey-patching a function variable, the
// approach original_source's Proxy.check takes with socket/requests calls
// made directly on the model.
type Validator interface {
	Validate(ctx context.Context, host string, port int) bool
}

// ValidatorConfig holds the tunables original_source exposes as environment
// variables (TRY_URL, CHECK_TIMEOUT).
type ValidatorConfig struct {
	// TryURL is requested through the candidate proxy; a 200 response means
	// the proxy works. Defaults to "http://example.org/".
	TryURL string

	// CheckTimeout bounds the full proxied request. Defaults to 3s.
	CheckTimeout time.Duration

	// OpenPortTimeout bounds the raw TCP connect probe. Defaults to 1s.
	OpenPortTimeout time.Duration
}

func (c ValidatorConfig) withDefaults() ValidatorConfig {
	if c.TryURL == "" {
		c.TryURL = "http://example.org/"
	}
	if c.CheckTimeout == 0 {
		c.CheckTimeout = 3 * time.Second
	}
	if c.OpenPortTimeout == 0 {
		c.OpenPortTimeout = 1 * time.Second
	}
	return c
}

// defaultValidator implements Validator with a TCP connect probe followed
// by a GET of TryURL routed through the candidate as an HTTP proxy, grounded
// on the teacher's net.Dialer.DialContext probe pattern (fastest-tcp.go)
// for the first stage and original_source's requests.get(..., proxies=...)
// for the second. http.ProxyURL routes every request scheme (http and
// https) through the candidate.
type defaultValidator struct {
	cfg ValidatorConfig
}

var _ Validator = &defaultValidator{}

// NewDefaultValidator returns the production Validator.
func NewDefaultValidator(cfg ValidatorConfig) Validator {
	return &defaultValidator{cfg: cfg.withDefaults()}
}

func (v *defaultValidator) Validate(ctx context.Context, host string, port int) bool {
	if !v.checkOpenPort(ctx, host, port) {
		return false
	}
	return v.tryProxy(ctx, host, port)
}

func (v *defaultValidator) checkOpenPort(ctx context.Context, host string, port int) bool {
	ctx, cancel := context.WithTimeout(ctx, v.cfg.OpenPortTimeout)
	defer cancel()
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(host, fmt.Sprint(port)))
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

func (v *defaultValidator) tryProxy(ctx context.Context, host string, port int) bool {
	ctx, cancel := context.WithTimeout(ctx, v.cfg.CheckTimeout)
	defer cancel()

	proxyURL, err := url.Parse(fmt.Sprintf("http://%s", net.JoinHostPort(host, fmt.Sprint(port))))
	if err != nil {
		return false
	}
	client := &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyURL(proxyURL),
		},
		Timeout: v.cfg.CheckTimeout,
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.cfg.TryURL, nil)
	if err != nil {
		return false
	}
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
