package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	registry "github.com/dist-proxy/registry"
	"github.com/spf13/cobra"
)

// registryd is the CLI/server entry point, grounded on the teacher's
// cmd/routedns/main.go cobra wiring, generalized from a single DNS-config
// argument to the subcommand set spec.md §6 names for manage.py
// (prepare_geoip_db, add_nodes, run_task) plus an explicit serve command.
func main() {
	var configPath string

	root := &cobra.Command{
		Use:          "registryd",
		Short:        "Self-replenishing open HTTP proxy registry",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to TOML config file")

	root.AddCommand(
		serveCmd(&configPath),
		prepareGeoipDBCmd(&configPath),
		addNodesCmd(&configPath),
		runTaskCmd(&configPath),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupLogging(cfg config) {
	level := parseLogLevel(cfg.LogLevel)
	registry.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func parseLogLevel(name string) slog.Level {
	switch name {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, discovery engine, and maintenance scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			setupLogging(cfg)
			return runServe(cfg)
		},
	}
}

func runServe(cfg config) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	store, err := registry.OpenStore(ctx, cfg.ProxyDBPath)
	if err != nil {
		return fmt.Errorf("opening proxy store: %w", err)
	}
	defer store.Close()

	var geo *registry.GeoStore
	if _, statErr := os.Stat(cfg.GeoipDBPath); statErr == nil {
		geo, err = registry.OpenGeoStore(cfg.GeoipDBPath)
		if err != nil {
			return fmt.Errorf("opening geoip store: %w", err)
		}
		defer geo.Close()
	} else {
		registry.Log.Warn("geoip database not found, /geo will be unavailable", "path", cfg.GeoipDBPath)
	}

	if cfg.NodesInitPath != "" {
		if err := seedNodesFromFile(ctx, store, cfg.NodesInitPath); err != nil {
			registry.Log.Error("seeding nodes from file", "error", err)
		}
	}

	validatorCfg := registry.ValidatorConfig{TryURL: cfg.TryURL}
	validator := registry.NewDefaultValidator(validatorCfg)

	var blacklist *registry.NetBlacklist
	if cfg.NetBlacklist != "" {
		blacklist, err = registry.LoadNetBlacklistFile(cfg.NetBlacklist)
		if err != nil {
			return fmt.Errorf("loading net blacklist: %w", err)
		}
	}

	searchValidator := validator
	if blacklist != nil {
		searchValidator = blacklistedValidator{blacklist: blacklist, inner: validator}
	}

	tasks := registry.NewTaskManager()
	tasks.Register("proxy-search", registry.ProxySearchTask{
		Searcher: registry.NewSearcher(cfg.ProxySearchThreads, searchValidator),
		Store:    store,
		Geo:      geo,
	})
	tasks.Register("update-active-proxies", registry.PeriodicTask{
		Name:     "update-active-proxies",
		Interval: 60 * time.Second,
		Handle: func(ctx context.Context) {
			registry.UpdateActiveProxiesHandle(ctx, store, validator, 100, time.Hour)
		},
	})
	tasks.Register("update-inactive-proxies", registry.PeriodicTask{
		Name:     "update-inactive-proxies",
		Interval: 60 * time.Second,
		Handle: func(ctx context.Context) {
			registry.UpdateInactiveProxiesHandle(ctx, store, validator, 100)
		},
	})
	peerClient := registry.NewPeerClient(cfg.InstanceURL)
	tasks.Register("sync-nodes", registry.PeriodicTask{
		Name:     "sync-nodes",
		Interval: 60 * time.Second,
		Handle: func(ctx context.Context) {
			registry.SyncNodesHandle(ctx, store, geo, peerClient, 100, time.Hour)
		},
	})

	go tasks.Run(ctx)

	srv := newServer(store, geo, validator)
	httpServer := &http.Server{
		Addr:    cfg.ListenAddress,
		Handler: srv.routes(),
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	registry.Log.Info("serving", "address", cfg.ListenAddress)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	registry.Log.Info("stopped")
	return nil
}

// blacklistedValidator rejects any host in blacklist before delegating to
// inner, so discovery never wastes a validation probe on a blacklisted
// network, grounded on original_source's ProxySearchTask passing
// net_blacklist into ProxySearcher.
type blacklistedValidator struct {
	blacklist *registry.NetBlacklist
	inner     registry.Validator
}

func (v blacklistedValidator) Validate(ctx context.Context, host string, port int) bool {
	if v.blacklist.Contains(host) {
		return false
	}
	return v.inner.Validate(ctx, host, port)
}

func prepareGeoipDBCmd(configPath *string) *cobra.Command {
	var csvPath string
	cmd := &cobra.Command{
		Use:   "prepare-geoip-db",
		Short: "Build the binary GeoIP database from a CSV source",
		RunE: func(cmd *cobra.Command, args []string) error {
			if csvPath == "" {
				return fmt.Errorf("--path is required")
			}
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			setupLogging(cfg)
			return registry.PrepareGeoDB(csvPath, cfg.GeoipDBPath)
		},
	}
	cmd.Flags().StringVar(&csvPath, "path", "", "path to the source CSV file")
	return cmd
}

func addNodesCmd(configPath *string) *cobra.Command {
	var seedPath string
	cmd := &cobra.Command{
		Use:   "add-nodes",
		Short: "Seed the node table from a file of peer URLs, one per line",
		RunE: func(cmd *cobra.Command, args []string) error {
			if seedPath == "" {
				return fmt.Errorf("--path is required")
			}
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			setupLogging(cfg)
			store, err := registry.OpenStore(context.Background(), cfg.ProxyDBPath)
			if err != nil {
				return err
			}
			defer store.Close()
			return seedNodesFromFile(context.Background(), store, seedPath)
		},
	}
	cmd.Flags().StringVar(&seedPath, "path", "", "path to a file of node URLs, one per line")
	return cmd
}

func seedNodesFromFile(ctx context.Context, store *registry.Store, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var urls []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			urls = append(urls, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return store.InsertNodesByURLs(ctx, urls)
}

func runTaskCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run-task <TaskName>",
		Short: "Run a single maintenance task once, outside the scheduler",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			setupLogging(cfg)
			return runSingleTask(cfg, args[0])
		},
	}
}

func runSingleTask(cfg config, name string) error {
	ctx := context.Background()
	store, err := registry.OpenStore(ctx, cfg.ProxyDBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	validator := registry.NewDefaultValidator(registry.ValidatorConfig{TryURL: cfg.TryURL})

	var geo *registry.GeoStore
	if _, statErr := os.Stat(cfg.GeoipDBPath); statErr == nil {
		geo, err = registry.OpenGeoStore(cfg.GeoipDBPath)
		if err != nil {
			return fmt.Errorf("opening geoip store: %w", err)
		}
		defer geo.Close()
	}

	switch name {
	case "UpdateActiveProxyTask":
		registry.UpdateActiveProxiesHandle(ctx, store, validator, 100, time.Hour)
	case "UpdateInactiveProxyTask":
		registry.UpdateInactiveProxiesHandle(ctx, store, validator, 100)
	case "SyncNodesTask":
		registry.SyncNodesHandle(ctx, store, geo, registry.NewPeerClient(cfg.InstanceURL), 100, time.Hour)
	default:
		return fmt.Errorf("unknown task %q", name)
	}
	return nil
}
