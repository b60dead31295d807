// Package monolith provides the application container and module interface.
package monolith

import (
	"context"

	"github.com/kitefoundry/wallet-bridge/business/wallet/domain"
	"github.com/kitefoundry/wallet-bridge/internal/config"
	"github.com/kitefoundry/wallet-bridge/internal/di"
	"github.com/kitefoundry/wallet-bridge/internal/logger"
)

// Monolith is the main application container providing access to shared
// infrastructure.
type Monolith interface {
	Config() *config.Config
	Logger() logger.LoggerInterface
	Catalog() *domain.Catalog
	Services() di.ServiceRegistry
}

// Module represents a bounded context module that can register services and
// start up.
type Module interface {
	RegisterServices(di.Container) error
	Startup(context.Context, Monolith) error
}

// app implements the Monolith interface.
type app struct {
	config    *config.Config
	logger    logger.LoggerInterface
	catalog   *domain.Catalog
	container di.Container
}

// New creates a new Monolith instance. The network catalog is the built-in
// set merged with the configured networks: a configured entry with a known
// id overrides the default, any other entry extends the catalog.
func New(cfg *config.Config, log logger.LoggerInterface) (*app, error) {
	catalog, err := buildCatalog(cfg.Networks)
	if err != nil {
		return nil, err
	}

	container := di.NewContainer()
	container.Register("config", cfg)
	container.Register("logger", log)
	container.Register("catalog", catalog)

	return &app{
		config:    cfg,
		logger:    log,
		catalog:   catalog,
		container: container,
	}, nil
}

func buildCatalog(networks []config.NetworkConfig) (*domain.Catalog, error) {
	descriptors := domain.DefaultDescriptors()
	index := make(map[string]int, len(descriptors))
	for i, d := range descriptors {
		index[d.ID] = i
	}

	for _, n := range networks {
		d := domain.NetworkDescriptor{
			ID:      n.ID,
			ChainID: n.ChainID,
			Name:    n.Name,
			Currency: domain.Currency{
				Name:     n.CurrencyName,
				Symbol:   n.CurrencySymbol,
				Decimals: n.CurrencyDecimals,
			},
			RPCURL:      n.RPCURL,
			ExplorerURL: n.ExplorerURL,
		}
		if d.Currency.Decimals == 0 {
			d.Currency.Decimals = domain.DefaultCurrencyDecimals
		}

		if i, ok := index[n.ID]; ok {
			descriptors[i] = d
			continue
		}
		index[n.ID] = len(descriptors)
		descriptors = append(descriptors, d)
	}

	return domain.NewCatalog(descriptors...)
}

func (a *app) Config() *config.Config {
	return a.config
}

func (a *app) Logger() logger.LoggerInterface {
	return a.logger
}

func (a *app) Catalog() *domain.Catalog {
	return a.catalog
}

func (a *app) Services() di.ServiceRegistry {
	return a.container
}

// Container returns the DI container for module registration.
func (a *app) Container() di.Container {
	return a.container
}

// RegisterModules registers all provided modules.
func (a *app) RegisterModules(modules ...Module) error {
	for _, m := range modules {
		if err := m.RegisterServices(a.container); err != nil {
			return err
		}
	}
	return nil
}

// StartModules starts all provided modules.
func (a *app) StartModules(ctx context.Context, modules ...Module) error {
	for _, m := range modules {
		if err := m.Startup(ctx, a); err != nil {
			return err
		}
	}
	return nil
}
