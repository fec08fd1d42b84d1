package main

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"

	registry "github.com/dist-proxy/registry"
)

// buildVersion can be overridden at link time
// (-ldflags "-X main.buildVersion=..."); defaults to "dev" for local builds,
// grounded on the teacher's printVersion/BuildVersion convention.
var buildVersion = "dev"

// server wires the HTTP API (C11's thin adapter) over a Store and a
// GeoStore, grounded on original_source's api.py Flask routes.
type server struct {
	store     *registry.Store
	geo       *registry.GeoStore
	validator registry.Validator
}

func newServer(store *registry.Store, geo *registry.GeoStore, validator registry.Validator) *server {
	return &server{store: store, geo: geo, validator: validator}
}

func (s *server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/list", s.handleList)
	mux.HandleFunc("/check/", s.handleCheck)
	mux.HandleFunc("/geo/", s.handleGeo)
	mux.HandleFunc("/version", s.handleVersion)
	mux.HandleFunc("/licenses", s.handleLicenses)
	mux.HandleFunc("/nodes", s.handleNodes)
	return mux
}

func (s *server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	http.Redirect(w, r, "/api/v1/list", http.StatusFound)
}

func (s *server) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := registry.QueryFilter{
		Country: q.Get("country"),
		Region:  q.Get("region"),
		City:    q.Get("city"),
		Ordered: q.Get("ordered") != "",
	}
	if v := q.Get("count"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			f.Count = n
		}
	}
	if v := q.Get("score"); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			f.MinScore = n
		}
	}

	proxies, err := registry.ListProxies(r.Context(), s.store, f)
	if err != nil {
		registry.Log.Error("listing proxies", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if q.Get("format") == "plain" {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte(registry.FormatPlainList(proxies)))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"result": proxyDicts(proxies)})
}

func proxyDicts(proxies []registry.Proxy) []map[string]any {
	out := make([]map[string]any, len(proxies))
	for i, p := range proxies {
		out[i] = map[string]any{
			"host":          p.Host,
			"port":          p.Port,
			"created_at":    p.CreatedAt,
			"country":       p.Country,
			"region":        p.Region,
			"city":          p.City,
			"score":         p.Score,
			"last_check_at": p.LastCheckAt,
		}
	}
	return out
}

func (s *server) handleCheck(w http.ResponseWriter, r *http.Request) {
	addr := strings.TrimPrefix(r.URL.Path, "/check/")
	if err := registry.ValidEndpoint(addr); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	host, portStr, _ := net.SplitHostPort(addr)
	port, _ := strconv.Atoi(portStr)
	result := s.validator.Validate(r.Context(), host, port)
	writeJSON(w, http.StatusOK, map[string]any{"host": host, "port": port, "result": result})
}

func (s *server) handleGeo(w http.ResponseWriter, r *http.Request) {
	host := strings.TrimPrefix(r.URL.Path, "/geo/")
	if s.geo == nil {
		http.Error(w, "geoip database not loaded", http.StatusServiceUnavailable)
		return
	}
	block, ok, err := s.geo.Lookup(host)
	if err != nil {
		registry.Log.Error("geo lookup", "host", host, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"host": host, "geo": nil})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"host": host,
		"geo": map[string]string{
			"country": block.Country,
			"region":  block.Region,
			"city":    block.City,
		},
	})
}

func (s *server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"version": buildVersion})
}

func (s *server) handleLicenses(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"geo": "Geo data is taken from https://db-ip.com/ under Creative Commons Attribution 4.0 International License",
	})
}

func (s *server) handleNodes(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		nodes, err := s.store.ListActiveNodes(r.Context())
		if err != nil {
			registry.Log.Error("listing nodes", "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		out := make([]map[string]any, len(nodes))
		for i, n := range nodes {
			out[i] = map[string]any{"url": n.URL}
		}
		writeJSON(w, http.StatusOK, map[string]any{"result": out})
	case http.MethodPost:
		if err := r.ParseForm(); err != nil {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		nodeURL := r.Form.Get("url")
		if nodeURL == "" {
			http.Error(w, "missing url", http.StatusBadRequest)
			return
		}
		if err := registry.ValidNodeURL(nodeURL); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := s.store.InsertNodesByURLs(r.Context(), []string{nodeURL}); err != nil {
			registry.Log.Error("inserting announced node", "url", nodeURL, "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
