package registry

import (
	"context"
	"expvar"
	"fmt"
	"math/rand"
)

// candidatePorts are the ports probed for random-IP discovery, grounded on
// proxy_searcher.py's ProxySearcher.ports.
var candidatePorts = [...]int{8080, 3128}

// Searcher probes random IPv4 addresses on candidatePorts with workers
// concurrent goroutines and streams the ones that validate successfully,
// grounded on original_source's ProxySearcher (a queue fed by N threads,
// stopped via a stop_event) with the stop mechanism replaced by a
// context.CancelFunc, the idiomatic Go equivalent.
type Searcher struct {
	workers   int
	validator Validator

	attempts *expvar.Int
	found    *expvar.Int
}

// NewSearcher returns a Searcher that runs workers concurrent probing
// goroutines against validator.
func NewSearcher(workers int, validator Validator) *Searcher {
	if workers < 1 {
		workers = 1
	}
	return &Searcher{
		workers:   workers,
		validator: validator,
		attempts:  getVarInt("discovery", "default", "attempts"),
		found:     getVarInt("discovery", "default", "found"),
	}
}

// Search starts workers goroutines generating and validating random
// candidates, returning a channel of validated host:port pairs. If count is
// non-nil, the channel is closed and all workers stopped after count
// proxies have been found; a nil count runs until ctx is canceled.
func (s *Searcher) Search(ctx context.Context, count *int) <-chan Proxy {
	out := make(chan Proxy)
	ctx, cancel := context.WithCancel(ctx)
	found := make(chan Proxy)

	for i := 0; i < s.workers; i++ {
		go s.findLoop(ctx, found)
	}

	go func() {
		defer close(out)
		defer cancel()
		n := 0
		for {
			if count != nil && n >= *count {
				return
			}
			select {
			case <-ctx.Done():
				return
			case p := <-found:
				select {
				case out <- p:
				case <-ctx.Done():
					return
				}
				n++
			}
		}
	}()

	return out
}

func (s *Searcher) findLoop(ctx context.Context, found chan<- Proxy) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		host, port := randomCandidate()
		s.attempts.Add(1)
		if !s.validator.Validate(ctx, host, port) {
			continue
		}
		s.found.Add(1)
		select {
		case found <- Proxy{Host: host, Port: port}:
		case <-ctx.Done():
			return
		}
	}
}

func randomCandidate() (host string, port int) {
	host = fmt.Sprintf("%d.%d.%d.%d", rand.Intn(256), rand.Intn(256), rand.Intn(256), rand.Intn(256))
	port = candidatePorts[rand.Intn(len(candidatePorts))]
	return host, port
}
