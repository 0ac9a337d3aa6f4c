// Package main implements the airstreams entry point: it loads the
// platform configuration, connects the shared infrastructure (NATS,
// metrics), creates the configured component instances, and supervises
// their lifecycle until shutdown.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"sort"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vectorfield/airstreams/component"
	"github.com/vectorfield/airstreams/componentregistry"
	"github.com/vectorfield/airstreams/config"
	"github.com/vectorfield/airstreams/metric"
	"github.com/vectorfield/airstreams/natsclient"
)

// Build information constants
const (
	Version = "0.1.0"
	appName = "airstreams"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cliCfg := parseFlags()
	if err := validateFlags(cliCfg); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil
	}
	if cliCfg.ShowHelp {
		printDetailedHelp()
		return nil
	}

	cfg, err := loadConfig(cliCfg)
	if err != nil {
		return err
	}
	if cliCfg.Validate {
		slog.Info("Configuration is valid")
		return nil
	}

	logger := setupLogger(cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(logger)

	slog.Info("Starting airstreams",
		"version", Version,
		"platform", cfg.Platform.ID,
		"config_path", cliCfg.ConfigPath)

	ctx := context.Background()

	metricsRegistry := metric.NewMetricsRegistry()

	natsClient, err := createNATSClient(cfg, metricsRegistry)
	if err != nil {
		return fmt.Errorf("create NATS client: %w", err)
	}
	if err := connectToNATS(ctx, natsClient); err != nil {
		return err
	}
	defer func() { _ = natsClient.Close(context.Background()) }()

	var metricsServer *metric.Server
	if cfg.Metrics.Enabled {
		metricsServer = metric.NewServer(cfg.Metrics.Port, cfg.Metrics.Path, metricsRegistry)
		if err := metricsServer.Start(); err != nil {
			return fmt.Errorf("start metrics server: %w", err)
		}
		defer func() { _ = metricsServer.Stop(5 * time.Second) }()
		slog.Info("Metrics server started", "port", cfg.Metrics.Port, "path", cfg.Metrics.Path)
	}

	registry := component.NewRegistry()
	if err := componentregistry.Register(registry); err != nil {
		return fmt.Errorf("register components: %w", err)
	}

	deps := component.Dependencies{
		NATSClient:      natsClient,
		MetricsRegistry: metricsRegistry,
		Logger:          logger,
	}

	managed, err := createComponents(cfg, registry, deps)
	if err != nil {
		return err
	}
	if len(managed) == 0 {
		return fmt.Errorf("no components enabled in configuration")
	}

	return runWithSignalHandling(ctx, managed, cliCfg.ShutdownTimeout)
}

// loadConfig reads the config file, or falls back to the built-in
// default pipeline when no path is given. CLI logging flags override
// the file's logging section.
func loadConfig(cliCfg *CLIConfig) (*config.Config, error) {
	var cfg *config.Config
	if cliCfg.ConfigPath == "" {
		cfg = config.Default()
	} else {
		loaded, err := config.NewLoader().LoadFile(cliCfg.ConfigPath)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}

	if cliCfg.LogLevel != "" {
		cfg.Logging.Level = cliCfg.LogLevel
	}
	if cliCfg.LogFormat != "" {
		cfg.Logging.Format = cliCfg.LogFormat
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// createNATSClient builds the shared NATS client from configuration.
// The AIRSTREAMS_NATS_URL environment variable overrides the config file.
func createNATSClient(cfg *config.Config, metricsRegistry *metric.MetricsRegistry) (*natsclient.Client, error) {
	url := cfg.NATS.URL
	if envURL := os.Getenv("AIRSTREAMS_NATS_URL"); envURL != "" {
		url = envURL
	}

	opts := []natsclient.ClientOption{
		natsclient.WithName(appName + "-" + cfg.Platform.ID),
		natsclient.WithMetrics(metricsRegistry),
	}
	if cfg.NATS.MaxReconnects != 0 {
		opts = append(opts, natsclient.WithMaxReconnects(cfg.NATS.MaxReconnects))
	}
	if wait, _ := cfg.NATS.ReconnectWaitDuration(); wait > 0 {
		opts = append(opts, natsclient.WithReconnectWait(wait))
	}
	if cfg.NATS.Username != "" {
		opts = append(opts, natsclient.WithCredentials(cfg.NATS.Username, cfg.NATS.Password))
	}
	if cfg.NATS.Token != "" {
		opts = append(opts, natsclient.WithToken(cfg.NATS.Token))
	}

	return natsclient.NewClient(url, opts...)
}

func connectToNATS(ctx context.Context, natsClient *natsclient.Client) error {
	slog.Info("Connecting to NATS", "url", natsClient.URL())
	if err := natsClient.Connect(ctx); err != nil {
		return fmt.Errorf("connect to NATS: %w", err)
	}

	connCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := natsClient.WaitForConnection(connCtx); err != nil {
		return fmt.Errorf("NATS connection timeout: %w", err)
	}
	return nil
}

// startPhase orders component startup so consumers are subscribed before
// producers emit: outputs, then processors, then inputs.
func startPhase(componentType string) int {
	switch componentType {
	case "output":
		return 0
	case "processor":
		return 1
	default: // input
		return 2
	}
}

// createComponents instantiates every enabled component, ordered by
// start phase.
func createComponents(
	cfg *config.Config, registry *component.Registry, deps component.Dependencies,
) ([]*component.ManagedComponent, error) {
	names := make([]string, 0, len(cfg.Components))
	for name := range cfg.Components {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		a, b := cfg.Components[names[i]], cfg.Components[names[j]]
		if startPhase(a.Type) != startPhase(b.Type) {
			return startPhase(a.Type) < startPhase(b.Type)
		}
		return names[i] < names[j]
	})

	var managed []*component.ManagedComponent
	for _, name := range names {
		compCfg := cfg.Components[name]
		if !compCfg.Enabled {
			slog.Info("Component disabled in config", "instance", name)
			continue
		}

		rawConfig, err := compCfg.RawConfig()
		if err != nil {
			return nil, fmt.Errorf("component %s: %w", name, err)
		}

		comp, err := registry.CreateComponent(name, component.Config{
			Name:   compCfg.Name,
			Type:   compCfg.Type,
			Config: rawConfig,
		}, deps)
		if err != nil {
			return nil, fmt.Errorf("create component %s: %w", name, err)
		}

		managed = append(managed, &component.ManagedComponent{
			Component:  comp,
			State:      component.StateCreated,
			StartOrder: len(managed),
		})
		slog.Info("Created component", "instance", name, "factory", compCfg.Name, "type", compCfg.Type)
	}

	return managed, nil
}

// runWithSignalHandling starts all components and blocks until a
// shutdown signal, then stops them in reverse start order.
func runWithSignalHandling(
	ctx context.Context, managed []*component.ManagedComponent, shutdownTimeout time.Duration,
) error {
	signalCtx, signalCancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer signalCancel()

	if err := startAll(signalCtx, managed); err != nil {
		stopAll(managed, shutdownTimeout)
		return fmt.Errorf("start components: %w", err)
	}
	slog.Info("airstreams started", "components", len(managed))

	<-signalCtx.Done()
	slog.Info("Received shutdown signal")

	stopAll(managed, shutdownTimeout)
	slog.Info("airstreams shutdown complete")
	return nil
}

// startAll initializes and starts components phase by phase. Components
// within a phase start concurrently; a phase only begins once the
// previous one is fully up.
func startAll(ctx context.Context, managed []*component.ManagedComponent) error {
	for _, mc := range managed {
		lc, ok := component.AsLifecycleComponent(mc.Component)
		if !ok {
			return fmt.Errorf("component %s does not implement lifecycle", mc.Component.Meta().Name)
		}
		if err := lc.Initialize(); err != nil {
			mc.State = component.StateFailed
			mc.LastError = err
			return fmt.Errorf("initialize %s: %w", mc.Component.Meta().Name, err)
		}
		mc.State = component.StateInitialized
	}

	for start := 0; start < len(managed); {
		phase := startPhase(managed[start].Component.Meta().Type)
		end := start
		for end < len(managed) && startPhase(managed[end].Component.Meta().Type) == phase {
			end++
		}

		var g errgroup.Group
		for _, mc := range managed[start:end] {
			mc := mc
			lc, _ := component.AsLifecycleComponent(mc.Component)
			// Component contexts hang off the signal context, not the
			// group's, so they outlive the start phase.
			mc.Context, mc.Cancel = context.WithCancel(ctx)
			g.Go(func() error {
				if err := lc.Start(mc.Context); err != nil {
					mc.State = component.StateFailed
					mc.LastError = err
					return fmt.Errorf("start %s: %w", mc.Component.Meta().Name, err)
				}
				mc.State = component.StateStarted
				slog.Info("Component started", "component", mc.Component.Meta().Name)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
		start = end
	}
	return nil
}

// stopAll stops started components in reverse start order.
func stopAll(managed []*component.ManagedComponent, timeout time.Duration) {
	for i := len(managed) - 1; i >= 0; i-- {
		mc := managed[i]
		if mc.State != component.StateStarted {
			continue
		}
		lc, ok := component.AsLifecycleComponent(mc.Component)
		if !ok {
			continue
		}
		if err := lc.Stop(timeout); err != nil {
			slog.Error("Component stop failed",
				"component", mc.Component.Meta().Name, "error", err)
			mc.State = component.StateFailed
			mc.LastError = err
		} else {
			mc.State = component.StateStopped
		}
		if mc.Cancel != nil {
			mc.Cancel()
		}
	}
}
