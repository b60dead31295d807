package eip1193

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kitefoundry/wallet-bridge/business/wallet/domain"
	"github.com/kitefoundry/wallet-bridge/internal/apperror"
	"github.com/kitefoundry/wallet-bridge/internal/logger"
)

// mockLogger implements logger.LoggerInterface for testing.
type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, args ...any)              {}
func (m *mockLogger) Info(ctx context.Context, msg string, args ...any)               {}
func (m *mockLogger) Warn(ctx context.Context, msg string, args ...any)               {}
func (m *mockLogger) Error(ctx context.Context, msg string, args ...any)              {}
func (m *mockLogger) Debugc(ctx context.Context, caller int, msg string, args ...any) {}
func (m *mockLogger) Infoc(ctx context.Context, caller int, msg string, args ...any)  {}
func (m *mockLogger) Warnc(ctx context.Context, caller int, msg string, args ...any)  {}
func (m *mockLogger) Errorc(ctx context.Context, caller int, msg string, args ...any) {}

var _ logger.LoggerInterface = (*mockLogger)(nil)

// rpcHandler maps method names to canned results or errors.
type rpcHandler struct {
	t       *testing.T
	results map[string]any
	errors  map[string]*rpcError
	calls   []string
}

func (h *rpcHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.t.Errorf("bad request body: %v", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	h.calls = append(h.calls, req.Method)

	resp := rpcResponse{JSONRPC: "2.0", ID: req.ID}
	if rpcErr, ok := h.errors[req.Method]; ok {
		resp.Error = rpcErr
	} else if result, ok := h.results[req.Method]; ok {
		data, err := json.Marshal(result)
		if err != nil {
			h.t.Fatalf("marshal result: %v", err)
		}
		resp.Result = data
	} else {
		resp.Result = json.RawMessage("null")
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func newTestProvider(t *testing.T, handler *rpcHandler) *Provider {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	p, err := NewProvider(DefaultConfig(server.URL, ""), &mockLogger{})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	t.Cleanup(func() { p.Close() })
	return p
}

func TestProvider_Accounts(t *testing.T) {
	handler := &rpcHandler{t: t, results: map[string]any{
		methodAccounts: []string{"0xfb6916095ca1df60bb79ce92ce3ea74c37c5d359"},
	}}
	p := newTestProvider(t, handler)

	accounts, err := p.Accounts(context.Background())
	if err != nil {
		t.Fatalf("accounts: %v", err)
	}
	if len(accounts) != 1 || accounts[0] != "0xfb6916095ca1df60bb79ce92ce3ea74c37c5d359" {
		t.Errorf("unexpected accounts: %v", accounts)
	}
}

func TestProvider_Accounts_Empty(t *testing.T) {
	handler := &rpcHandler{t: t, results: map[string]any{
		methodAccounts: []string{},
	}}
	p := newTestProvider(t, handler)

	accounts, err := p.Accounts(context.Background())
	if err != nil {
		t.Fatalf("accounts: %v", err)
	}
	if len(accounts) != 0 {
		t.Errorf("expected no accounts, got %v", accounts)
	}
}

func TestProvider_ChainID(t *testing.T) {
	tests := []struct {
		name    string
		result  string
		want    uint64
		wantErr apperror.Code
	}{
		{name: "fuji", result: "0xa869", want: 43113},
		{name: "kite", result: "0x940", want: 2368},
		{name: "mainnet", result: "0x1", want: 1},
		{name: "malformed", result: "nope", wantErr: apperror.CodeInvalidChainID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := &rpcHandler{t: t, results: map[string]any{
				methodChainID: tt.result,
			}}
			p := newTestProvider(t, handler)

			got, err := p.ChainID(context.Background())
			if tt.wantErr != "" {
				if !apperror.IsCode(err, tt.wantErr) {
					t.Fatalf("expected %s, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("chain id: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestProvider_Balance(t *testing.T) {
	handler := &rpcHandler{t: t, results: map[string]any{
		methodGetBalance: "0xde0b6b3a7640000",
	}}
	p := newTestProvider(t, handler)

	got, err := p.Balance(context.Background(), "0xfb6916095ca1df60bb79ce92ce3ea74c37c5d359")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if want := big.NewInt(1e18); got.Cmp(want) != 0 {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestProvider_RequestAccounts_UserRejected(t *testing.T) {
	handler := &rpcHandler{t: t, errors: map[string]*rpcError{
		methodRequestAccounts: {Code: codeUserRejectedRequest, Message: "User rejected the request."},
	}}
	p := newTestProvider(t, handler)

	_, err := p.RequestAccounts(context.Background())
	if !apperror.IsCode(err, apperror.CodeUserRejected) {
		t.Fatalf("expected USER_REJECTED, got %v", err)
	}
}

func TestProvider_SwitchChain_Unrecognized(t *testing.T) {
	handler := &rpcHandler{t: t, errors: map[string]*rpcError{
		methodSwitchChain: {Code: codeUnrecognizedChain, Message: "Unrecognized chain ID."},
	}}
	p := newTestProvider(t, handler)

	err := p.SwitchChain(context.Background(), "0x940")
	if !apperror.IsCode(err, apperror.CodeChainNotRegistered) {
		t.Fatalf("expected CHAIN_NOT_REGISTERED, got %v", err)
	}
}

func TestProvider_SwitchChain_OtherError(t *testing.T) {
	handler := &rpcHandler{t: t, errors: map[string]*rpcError{
		methodSwitchChain: {Code: -32602, Message: "Invalid params."},
	}}
	p := newTestProvider(t, handler)

	err := p.SwitchChain(context.Background(), "0x940")
	if !apperror.IsCode(err, apperror.CodeProviderRPCError) {
		t.Fatalf("expected PROVIDER_RPC_ERROR, got %v", err)
	}
}

func TestProvider_AddChain_Params(t *testing.T) {
	var captured addChainParams

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			rpcRequest
			Params []addChainParams `json:"params"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		if len(req.Params) == 1 {
			captured = req.Params[0]
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(rpcResponse{JSONRPC: "2.0", ID: req.ID, Result: json.RawMessage("null")})
	}))
	defer server.Close()

	p, err := NewProvider(DefaultConfig(server.URL, ""), &mockLogger{})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	defer p.Close()

	kite, err := domain.DefaultCatalog().Lookup("kite-testnet")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if err := p.AddChain(context.Background(), kite); err != nil {
		t.Fatalf("add chain: %v", err)
	}

	if captured.ChainID != "0x940" {
		t.Errorf("chain id: got %q, want 0x940", captured.ChainID)
	}
	if captured.ChainName != "Kite Testnet" {
		t.Errorf("chain name: got %q", captured.ChainName)
	}
	if captured.NativeCurrency.Symbol != "KITE" || captured.NativeCurrency.Decimals != 18 {
		t.Errorf("currency: got %+v", captured.NativeCurrency)
	}
	if len(captured.RPCURLs) != 1 || captured.RPCURLs[0] != "https://rpc-testnet.gokite.ai" {
		t.Errorf("rpc urls: got %v", captured.RPCURLs)
	}
	if len(captured.BlockExplorerURLs) != 1 || captured.BlockExplorerURLs[0] != "https://testnet.kitescan.ai" {
		t.Errorf("explorer urls: got %v", captured.BlockExplorerURLs)
	}
}

func TestProvider_Unavailable(t *testing.T) {
	p, err := NewProvider(DefaultConfig("", ""), &mockLogger{})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	defer p.Close()

	if p.Available(context.Background()) {
		t.Error("provider without endpoint must report unavailable")
	}

	_, err = p.Accounts(context.Background())
	if !apperror.IsCode(err, apperror.CodeProviderUnavailable) {
		t.Fatalf("expected PROVIDER_UNAVAILABLE, got %v", err)
	}
}

func TestProvider_TransportError(t *testing.T) {
	p, err := NewProvider(DefaultConfig("http://localhost:59999", ""), &mockLogger{})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	defer p.Close()

	_, err = p.ChainID(context.Background())
	if !apperror.IsCode(err, apperror.CodeProviderUnavailable) {
		t.Fatalf("expected PROVIDER_UNAVAILABLE, got %v", err)
	}
}
