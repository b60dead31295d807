// Package domain contains the core domain types for the wallet context.
package domain

import (
	"fmt"

	"github.com/kitefoundry/wallet-bridge/internal/apperror"
)

// Currency describes the native currency of a network.
type Currency struct {
	Name     string
	Symbol   string
	Decimals uint8
}

// NetworkDescriptor holds the connection parameters for one supported chain.
// Descriptors are immutable after catalog construction. ChainIDHex is derived
// from ChainID and is always the lowercase 0x-prefixed hex encoding.
type NetworkDescriptor struct {
	ID          string
	ChainID     uint64
	ChainIDHex  string
	Name        string
	Currency    Currency
	RPCURL      string
	ExplorerURL string
}

// TxURL returns the explorer URL for a transaction hash.
func (d NetworkDescriptor) TxURL(txHash string) string {
	return fmt.Sprintf("%s/tx/%s", d.ExplorerURL, txHash)
}

// AddressURL returns the explorer URL for an address.
func (d NetworkDescriptor) AddressURL(address string) string {
	return fmt.Sprintf("%s/address/%s", d.ExplorerURL, address)
}

// ChainIDToHex encodes a chain id the way providers communicate it.
func ChainIDToHex(chainID uint64) string {
	return fmt.Sprintf("0x%x", chainID)
}

// Catalog is an immutable, insertion-ordered registry of supported networks.
type Catalog struct {
	ordered []NetworkDescriptor
	byID    map[string]NetworkDescriptor
	byChain map[uint64]NetworkDescriptor
}

// NewCatalog builds a catalog from descriptors, deriving ChainIDHex and
// validating uniqueness of ids and chain ids.
func NewCatalog(descriptors ...NetworkDescriptor) (*Catalog, error) {
	c := &Catalog{
		ordered: make([]NetworkDescriptor, 0, len(descriptors)),
		byID:    make(map[string]NetworkDescriptor, len(descriptors)),
		byChain: make(map[uint64]NetworkDescriptor, len(descriptors)),
	}

	for _, d := range descriptors {
		if d.ID == "" {
			return nil, apperror.New(apperror.CodeInvalidInput,
				apperror.WithContext("network descriptor missing id"))
		}
		if d.ChainID == 0 {
			return nil, apperror.New(apperror.CodeInvalidChainID,
				apperror.WithContext(d.ID))
		}
		if _, exists := c.byID[d.ID]; exists {
			return nil, apperror.New(apperror.CodeInvalidInput,
				apperror.WithContext(fmt.Sprintf("duplicate network id %q", d.ID)))
		}
		if prev, exists := c.byChain[d.ChainID]; exists {
			return nil, apperror.New(apperror.CodeDuplicateChainID,
				apperror.WithContext(fmt.Sprintf("chain id %d used by %q and %q", d.ChainID, prev.ID, d.ID)))
		}

		d.ChainIDHex = ChainIDToHex(d.ChainID)

		c.ordered = append(c.ordered, d)
		c.byID[d.ID] = d
		c.byChain[d.ChainID] = d
	}

	return c, nil
}

// MustNewCatalog is NewCatalog panicking on error, for static catalogs.
func MustNewCatalog(descriptors ...NetworkDescriptor) *Catalog {
	c, err := NewCatalog(descriptors...)
	if err != nil {
		panic(err)
	}
	return c
}

// Lookup resolves a network by id.
func (c *Catalog) Lookup(id string) (NetworkDescriptor, error) {
	d, ok := c.byID[id]
	if !ok {
		return NetworkDescriptor{}, apperror.New(apperror.CodeNetworkNotFound,
			apperror.WithContext(id))
	}
	return d, nil
}

// ByChainID resolves a network by chain id.
func (c *Catalog) ByChainID(chainID uint64) (NetworkDescriptor, bool) {
	d, ok := c.byChain[chainID]
	return d, ok
}

// All returns the descriptors in insertion order.
func (c *Catalog) All() []NetworkDescriptor {
	out := make([]NetworkDescriptor, len(c.ordered))
	copy(out, c.ordered)
	return out
}

// Count returns the number of networks in the catalog.
func (c *Catalog) Count() int {
	return len(c.ordered)
}

// DefaultDescriptors returns the networks of the reference deployment.
func DefaultDescriptors() []NetworkDescriptor {
	return []NetworkDescriptor{
		{
			ID:      "avalanche-fuji",
			ChainID: 43113,
			Name:    "Avalanche Fuji Testnet",
			Currency: Currency{
				Name:     "Avalanche",
				Symbol:   "AVAX",
				Decimals: 18,
			},
			RPCURL:      "https://api.avax-test.network/ext/bc/C/rpc",
			ExplorerURL: "https://testnet.snowtrace.io",
		},
		{
			ID:      "kite-testnet",
			ChainID: 2368,
			Name:    "Kite Testnet",
			Currency: Currency{
				Name:     "Kite",
				Symbol:   "KITE",
				Decimals: 18,
			},
			RPCURL:      "https://rpc-testnet.gokite.ai",
			ExplorerURL: "https://testnet.kitescan.ai",
		},
	}
}

// DefaultCatalog returns the built-in two-network catalog.
func DefaultCatalog() *Catalog {
	return MustNewCatalog(DefaultDescriptors()...)
}
