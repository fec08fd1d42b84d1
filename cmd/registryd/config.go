package main

import (
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
)

// config holds the settings for the registryd server, grounded on the
// teacher's cmd/routedns/config.go (a TOML file parsed with struct tags).
// Every field also has an environment-variable fallback per spec.md §6;
// a TOML value wins when set, matching the teacher's "config file is
// primary" posture.
type config struct {
	ProxyDBPath         string `toml:"proxy-db-path"`
	GeoipDBPath         string `toml:"geoip-db-path"`
	GeoipDBDownloadURL  string `toml:"geoip-db-download-url"`
	NodesInitPath       string `toml:"nodes-init-path"`
	TryURL              string `toml:"try-url"`
	ProxySearchThreads  int    `toml:"proxy-search-threads"`
	NetBlacklist        string `toml:"net-blacklist"`
	InstanceURL         string `toml:"instance-url"`
	LogLevel            string `toml:"log-level"`
	ListenAddress       string `toml:"listen-address"`
}

// loadConfig reads a TOML file (if path is non-empty) and layers the
// spec.md §6 environment variables and built-in defaults under it.
func loadConfig(path string) (config, error) {
	cfg := config{
		ProxyDBPath:        "tmp/proxy.db",
		GeoipDBPath:        "tmp/geoip.db",
		TryURL:             "http://example.org/",
		ProxySearchThreads: 100,
		LogLevel:           "WARNING",
		ListenAddress:      ":8080",
	}

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return config{}, err
		}
	}

	applyEnvFallback(&cfg.ProxyDBPath, "PROXY_DB_PATH")
	applyEnvFallback(&cfg.GeoipDBPath, "GEOIP_DB_PATH")
	applyEnvFallback(&cfg.GeoipDBDownloadURL, "GEOIP_DB_DOWNLOAD_URL")
	applyEnvFallback(&cfg.NodesInitPath, "NODES_INIT_PATH")
	applyEnvFallback(&cfg.TryURL, "TRY_URL")
	applyEnvFallback(&cfg.NetBlacklist, "NET_BLACKLIST")
	applyEnvFallback(&cfg.InstanceURL, "INSTANCE_URL")
	applyEnvFallback(&cfg.LogLevel, "LOG_LEVEL")

	if v, ok := os.LookupEnv("PROXY_SEARCH_THREADS"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.ProxySearchThreads = n
		}
	}

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return config{}, err
		}
	}

	return cfg, nil
}

// applyEnvFallback sets *field to the named environment variable when it is
// set, replacing the built-in default. loadConfig decodes the TOML file
// afterwards, so a key present in the TOML file still overrides it.
func applyEnvFallback(field *string, envName string) {
	if v, ok := os.LookupEnv(envName); ok {
		*field = v
	}
}
