package eip1193

import (
	"encoding/json"
	"fmt"
)

// Provider request methods.
const (
	methodAccounts        = "eth_accounts"
	methodRequestAccounts = "eth_requestAccounts"
	methodChainID         = "eth_chainId"
	methodGetBalance      = "eth_getBalance"
	methodSwitchChain     = "wallet_switchEthereumChain"
	methodAddChain        = "wallet_addEthereumChain"
)

// Provider push events, delivered on the event feed as JSON-RPC
// notifications. accountsChanged carries the account list as its params,
// chainChanged a single-element array with the 0x-hex chain id.
const (
	eventAccountsChanged = "accountsChanged"
	eventChainChanged    = "chainChanged"
)

// Provider error codes (EIP-1193 and EIP-3326).
const (
	codeUserRejectedRequest = 4001
	codeUnrecognizedChain   = 4902
)

// rpcRequest is a JSON-RPC 2.0 request frame.
type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// rpcResponse is a JSON-RPC 2.0 response frame.
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error,omitempty"`
}

// rpcError is the error member of a JSON-RPC response.
type rpcError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("provider error %d: %s", e.Code, e.Message)
}

// eventEnvelope is a JSON-RPC notification frame on the event feed.
type eventEnvelope struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// switchChainParams is the wallet_switchEthereumChain parameter object.
type switchChainParams struct {
	ChainID string `json:"chainId"`
}

// nativeCurrencyParams describes a chain's currency for
// wallet_addEthereumChain.
type nativeCurrencyParams struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
}

// addChainParams is the wallet_addEthereumChain parameter object (EIP-3085).
type addChainParams struct {
	ChainID           string               `json:"chainId"`
	ChainName         string               `json:"chainName"`
	NativeCurrency    nativeCurrencyParams `json:"nativeCurrency"`
	RPCURLs           []string             `json:"rpcUrls"`
	BlockExplorerURLs []string             `json:"blockExplorerUrls,omitempty"`
}
