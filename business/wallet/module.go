// Package wallet implements the wallet bounded context: provider gateway,
// network catalog and connection controller.
package wallet

import (
	"context"

	"github.com/kitefoundry/wallet-bridge/business/wallet/app"
	walletDI "github.com/kitefoundry/wallet-bridge/business/wallet/di"
	"github.com/kitefoundry/wallet-bridge/business/wallet/domain"
	"github.com/kitefoundry/wallet-bridge/business/wallet/infra"
	"github.com/kitefoundry/wallet-bridge/business/wallet/infra/eip1193"
	"github.com/kitefoundry/wallet-bridge/internal/config"
	"github.com/kitefoundry/wallet-bridge/internal/di"
	"github.com/kitefoundry/wallet-bridge/internal/logger"
	"github.com/kitefoundry/wallet-bridge/internal/monolith"
)

// Module implements the wallet bounded context.
type Module struct{}

// RegisterServices registers all wallet services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register ProviderGateway (private - internal dependency)
	di.RegisterToken(c, walletDI.ProviderGateway, func(sr di.ServiceRegistry) app.ProviderGateway {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		provCfg := eip1193.DefaultConfig(cfg.Provider.HTTPURL, cfg.Provider.WSURL)
		if cfg.Provider.RequestTimeout > 0 {
			provCfg.RequestTimeout = cfg.Provider.RequestTimeout
		}
		if cfg.Provider.InitialBackoff > 0 {
			provCfg.InitialBackoff = cfg.Provider.InitialBackoff
		}
		if cfg.Provider.MaxBackoff > 0 {
			provCfg.MaxBackoff = cfg.Provider.MaxBackoff
		}

		provider, err := eip1193.NewProvider(provCfg, log)
		if err != nil {
			panic("failed to create provider gateway: " + err.Error())
		}
		return provider
	})

	// Register StatusSink (private - picked by run mode)
	di.RegisterToken(c, walletDI.StatusSink, func(sr di.ServiceRegistry) app.StatusSink {
		cfg := sr.Get("config").(*config.Config)
		if cfg.Wallet.TUIMode {
			return infra.NewTUIReporter()
		}
		return infra.NewConsoleReporter()
	})

	// Register ConnectionController (public - exposed to other modules)
	di.RegisterToken(c, walletDI.ConnectionController, func(sr di.ServiceRegistry) *app.ConnectionController {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		catalog := sr.Get("catalog").(*domain.Catalog)

		gateway := walletDI.GetProviderGateway(sr)
		sink := walletDI.GetStatusSink(sr)

		ctrlCfg := app.ControllerConfig{
			BalanceRefreshPerMinute: cfg.Wallet.BalanceRefreshRPM,
		}

		controller, err := app.NewConnectionController(ctrlCfg, gateway, catalog, sink, log)
		if err != nil {
			panic("failed to create connection controller: " + err.Error())
		}
		return controller
	})

	return nil
}

// Startup connects the provider event feed and runs the mount probe.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()

	gateway := walletDI.GetProviderGateway(mono.Services())

	// Connect the event feed (type assertion to access Start method)
	if starter, ok := gateway.(interface{ Start(context.Context) error }); ok {
		if err := starter.Start(ctx); err != nil {
			log.Error(ctx, "failed to start provider event feed", "error", err)
			// Don't fail - requests still work, only pushes are lost
		}
	}

	controller := walletDI.GetConnectionController(mono.Services())
	if err := controller.Start(ctx); err != nil {
		return err
	}

	log.Info(ctx, "wallet module started",
		"networks", mono.Catalog().Count(),
		"provider_available", gateway.Available(ctx))
	return nil
}
