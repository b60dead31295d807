// Package main is the entry point for the wallet bridge.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"github.com/kitefoundry/wallet-bridge/business/wallet"
	walletApp "github.com/kitefoundry/wallet-bridge/business/wallet/app"
	walletDI "github.com/kitefoundry/wallet-bridge/business/wallet/di"
	"github.com/kitefoundry/wallet-bridge/internal/apm"
	"github.com/kitefoundry/wallet-bridge/internal/config"
	"github.com/kitefoundry/wallet-bridge/internal/health"
	"github.com/kitefoundry/wallet-bridge/internal/logger"
	"github.com/kitefoundry/wallet-bridge/internal/metrics"
	"github.com/kitefoundry/wallet-bridge/internal/monolith"
	"github.com/kitefoundry/wallet-bridge/pkg/ui"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	// Parse flags
	configPath := flag.String("config", "", "Path to configuration file")
	cliMode := flag.Bool("cli", false, "Run in CLI mode with logs (no TUI)")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("walletbridge %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	// TUI is the default, CLI is for debugging
	tuiMode := !*cliMode

	// Setup context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		if !tuiMode {
			fmt.Fprintf(os.Stderr, "received shutdown signal: %v\n", sig)
		}
		cancel()
	}()

	// Run application
	if err := run(ctx, *configPath, tuiMode); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string, tuiMode bool) error {
	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Set TUI mode in config so modules know
	cfg.Wallet.TUIMode = tuiMode

	// Setup logger (only log to stderr in CLI mode)
	logLevel := logger.LevelInfo
	switch cfg.App.LogLevel {
	case "debug":
		logLevel = logger.LevelDebug
	case "warn":
		logLevel = logger.LevelWarn
	case "error":
		logLevel = logger.LevelError
	}

	var log *logger.Logger
	if tuiMode {
		// In TUI mode, suppress logs (discard output)
		log = logger.New(io.Discard, logLevel, cfg.App.Name, nil)
	} else {
		log = logger.New(os.Stderr, logLevel, cfg.App.Name, nil)
		log.Info(ctx, "starting wallet bridge",
			"version", version,
			"environment", cfg.App.Environment,
		)
	}

	// Initialize observability if enabled
	var traceProvider apm.TraceProvider
	if cfg.Telemetry.Enabled {
		// Set service name env var for OTEL
		if cfg.Telemetry.ServiceName != "" {
			os.Setenv("OTEL_SERVICE_NAME", cfg.Telemetry.ServiceName)
		}
		if cfg.Telemetry.OTLPEndpoint != "" {
			os.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.Telemetry.OTLPEndpoint)
		}

		// Initialize tracing with Zipkin (local dev friendly)
		traceProvider = apm.NewTraceProvider(log, apm.WithProvider(apm.ZipkinProvider, log))
		log.Info(ctx, "tracing initialized", "provider", "zipkin", "endpoint", cfg.Telemetry.OTLPEndpoint)

		// Initialize metrics with Prometheus
		metrics.NewMetricProvider(
			metrics.WithServiceName(cfg.Telemetry.ServiceName),
			metrics.WithProviderConfig(metrics.NewPrometheusConfig()),
		)

		// Start Prometheus metrics server in background
		port := cfg.Telemetry.PrometheusPort
		if port == 0 {
			port = 9090
		}
		go metrics.ServePrometheusMetrics(metrics.WithPort(strconv.Itoa(port)))
		log.Info(ctx, "prometheus metrics server started", "port", port)
	}
	defer func() {
		if traceProvider != nil {
			traceProvider.Stop()
		}
	}()

	// Start health check server on port 8081
	healthServer := health.NewServer(8081, version)
	if err := healthServer.Start(); err != nil {
		log.Warn(ctx, "failed to start health server", "error", err)
	} else {
		log.Info(ctx, "health server started", "port", 8081)
	}
	defer healthServer.Stop(ctx)

	// Create monolith (application container)
	mono, err := monolith.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to create monolith: %w", err)
	}

	// Define modules in dependency order
	modules := []monolith.Module{
		&wallet.Module{},
	}

	// Register all module services
	if err := mono.RegisterModules(modules...); err != nil {
		return fmt.Errorf("failed to register modules: %w", err)
	}

	// Report provider reachability on /health
	healthServer.RegisterCheck("wallet-agent", func(ctx context.Context) (bool, string) {
		gateway := walletDI.GetProviderGateway(mono.Services())
		if gateway.Available(ctx) {
			return true, "configured"
		}
		return false, "no provider configured"
	})
	healthServer.RegisterCheck("session", func(ctx context.Context) (bool, string) {
		controller := walletDI.GetConnectionController(mono.Services())
		return true, string(controller.Session().Phase())
	})

	if tuiMode {
		startFunc := func() (*walletApp.ConnectionController, error) {
			if err := mono.StartModules(ctx, modules...); err != nil {
				return nil, fmt.Errorf("failed to start modules: %w", err)
			}
			return walletDI.GetConnectionController(mono.Services()), nil
		}
		return runTUI(ctx, startFunc)
	}

	// CLI mode: Start modules synchronously
	if err := mono.StartModules(ctx, modules...); err != nil {
		return fmt.Errorf("failed to start modules: %w", err)
	}

	controller := walletDI.GetConnectionController(mono.Services())
	return runCLI(ctx, controller, log)
}

func runCLI(ctx context.Context, controller *walletApp.ConnectionController, log *logger.Logger) error {
	log.Info(ctx, "all modules started, wallet session active",
		"networks", len(controller.Networks()),
	)

	// Best-effort initial connect so the CLI is usable without keybindings.
	if err := controller.Connect(ctx); err != nil {
		log.Warn(ctx, "initial connect failed", "error", err)
	}

	// Wait for shutdown
	<-ctx.Done()

	log.Info(ctx, "shutting down")

	if err := controller.Close(); err != nil {
		log.Error(ctx, "error closing controller", "error", err)
	}

	return nil
}

func runTUI(ctx context.Context, startFunc func() (*walletApp.ConnectionController, error)) error {
	// Channel to receive StartModulesMsg signal
	startSignal := make(chan struct{}, 1)
	ui.OnStartModules = func() {
		select {
		case startSignal <- struct{}{}:
		default:
		}
	}

	// Create and start the TUI program IMMEDIATELY (shows welcome screen)
	p := tea.NewProgram(ui.New(), tea.WithAltScreen())
	ui.Program = p

	// Run bridge logic in background (non-blocking)
	errCh := make(chan error, 1)
	go func() {
		// Wait for welcome screen to complete
		select {
		case <-startSignal:
		case <-ctx.Done():
			errCh <- nil
			return
		}

		controller, err := startFunc()
		if err != nil {
			ui.Send(ui.ErrorMsg{Error: err})
			errCh <- err
			return
		}

		// Wire key actions to the controller
		ui.OnConnect = func() {
			if err := controller.Connect(ctx); err != nil {
				ui.Send(ui.ErrorMsg{Error: err})
			}
		}
		ui.OnDisconnect = func() {
			controller.Disconnect()
		}
		ui.OnSwitchNetwork = func(networkID string) {
			if err := controller.SwitchNetwork(ctx, networkID); err != nil {
				ui.Send(ui.ErrorMsg{Error: err})
			}
		}
		ui.OnRefreshBalance = func() {
			controller.RefreshBalance(ctx)
		}

		// Seed the dashboard
		ui.Send(ui.NetworksMsg{Networks: controller.Networks()})
		ui.Send(ui.SessionMsg{Session: controller.Session()})

		// Wait for context cancellation
		<-ctx.Done()

		controller.Close()
		errCh <- nil
	}()

	// Run TUI (blocking) - shows immediately with welcome screen
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	// Check for bridge errors
	select {
	case err := <-errCh:
		return err
	default:
		return nil
	}
}
