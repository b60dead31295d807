// Package di contains dependency injection tokens for the wallet context.
package di

import (
	"github.com/kitefoundry/wallet-bridge/business/wallet/app"
	"github.com/kitefoundry/wallet-bridge/internal/di"
)

// Public service tokens - exposed to other modules
var (
	ConnectionController = di.NewToken[*app.ConnectionController]("wallet.ConnectionController")
)

// Private dependency tokens - internal to wallet module
var (
	ProviderGateway = di.NewToken[app.ProviderGateway]("wallet:providerGateway")
	StatusSink      = di.NewToken[app.StatusSink]("wallet:statusSink")
)

// Helper functions for type-safe access
func GetConnectionController(c di.ServiceRegistry) *app.ConnectionController {
	return di.GetToken(c, ConnectionController)
}

func GetProviderGateway(c di.ServiceRegistry) app.ProviderGateway {
	return di.GetToken(c, ProviderGateway)
}

func GetStatusSink(c di.ServiceRegistry) app.StatusSink {
	return di.GetToken(c, StatusSink)
}
