// Package app contains application services and port definitions for the wallet context.
package app

import (
	"context"
	"math/big"

	"github.com/kitefoundry/wallet-bridge/business/wallet/domain"
)

// ProviderGateway defines the interface to the wallet provider. Methods map
// one-to-one onto provider RPC requests; event registrations deliver provider
// push notifications.
type ProviderGateway interface {
	// Available reports whether a provider is reachable at all. A false
	// result is a supported state, not an error.
	Available(ctx context.Context) bool

	// Accounts returns the accounts already authorized for this client
	// without prompting the user. An empty slice means not connected.
	Accounts(ctx context.Context) ([]string, error)

	// RequestAccounts prompts the user to authorize accounts. Rejection
	// surfaces as a USER_REJECTED error.
	RequestAccounts(ctx context.Context) ([]string, error)

	// ChainID returns the chain the provider is currently on.
	ChainID(ctx context.Context) (uint64, error)

	// Balance returns the native-currency balance of address in base units.
	Balance(ctx context.Context, address string) (*big.Int, error)

	// SwitchChain asks the provider to move to the chain identified by its
	// 0x-hex id. An unrecognized chain surfaces as CHAIN_NOT_REGISTERED.
	SwitchChain(ctx context.Context, chainIDHex string) error

	// AddChain registers a network with the provider so a later switch can
	// succeed.
	AddChain(ctx context.Context, network domain.NetworkDescriptor) error

	// OnAccountsChanged registers a handler for account change pushes. The
	// returned function removes exactly this handler.
	OnAccountsChanged(fn func(accounts []string)) (unsubscribe func())

	// OnChainChanged registers a handler for chain change pushes, delivered
	// as 0x-hex chain ids. The returned function removes exactly this
	// handler.
	OnChainChanged(fn func(chainIDHex string)) (unsubscribe func())
}

// StatusSink receives session snapshots whenever the connection state
// changes. Implementations must not mutate the snapshot.
type StatusSink interface {
	SessionChanged(session domain.Session)
}
