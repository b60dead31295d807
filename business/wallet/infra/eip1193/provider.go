// Package eip1193 talks to a local wallet agent over JSON-RPC, exposing the
// EIP-1193 provider surface: request methods over HTTP and push events over
// a WebSocket feed.
package eip1193

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/kitefoundry/wallet-bridge/business/wallet/domain"
	"github.com/kitefoundry/wallet-bridge/internal/apm"
	"github.com/kitefoundry/wallet-bridge/internal/apperror"
	"github.com/kitefoundry/wallet-bridge/internal/httpclient"
	"github.com/kitefoundry/wallet-bridge/internal/logger"
)

const (
	tracerName = "github.com/kitefoundry/wallet-bridge/business/wallet/infra/eip1193"
	meterName  = "github.com/kitefoundry/wallet-bridge/business/wallet/infra/eip1193"
)

// Config holds configuration for the provider adapter.
type Config struct {
	HTTPURL        string        // request endpoint; empty means no provider
	WSURL          string        // event feed endpoint; empty disables events
	RequestTimeout time.Duration
	InitialBackoff time.Duration // event feed reconnect backoff
	MaxBackoff     time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig(httpURL, wsURL string) Config {
	return Config{
		HTTPURL:        httpURL,
		WSURL:          wsURL,
		RequestTimeout: 30 * time.Second,
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     30 * time.Second,
	}
}

// providerMetrics holds OTEL metric instruments.
type providerMetrics struct {
	requests  metric.Int64Counter
	rpcErrors metric.Int64Counter
	events    metric.Int64Counter
}

// Provider implements the wallet provider gateway against a local wallet
// agent.
type Provider struct {
	config Config
	logger logger.LoggerInterface

	http   *httpclient.Client
	nextID atomic.Int64

	feed *feed

	tracer  apm.Tracer
	metrics *providerMetrics
}

// NewProvider creates a provider adapter. A missing HTTP endpoint is not an
// error: the adapter reports itself unavailable and every request fails with
// PROVIDER_UNAVAILABLE, mirroring an environment without a wallet.
func NewProvider(cfg Config, log logger.LoggerInterface) (*Provider, error) {
	p := &Provider{
		config: cfg,
		logger: log,
		tracer: apm.NewTracer(tracerName),
	}

	if cfg.HTTPURL != "" {
		client, err := httpclient.New(
			httpclient.WithProviderName("wallet-agent"),
			httpclient.WithRequestTimeout(cfg.RequestTimeout),
		)
		if err != nil {
			return nil, fmt.Errorf("http client: %w", err)
		}
		p.http = client
	}

	if err := p.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	p.feed = newFeed(cfg, log, p.metrics)

	return p, nil
}

// initMetrics initializes OTEL metric instruments.
func (p *Provider) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	p.metrics = &providerMetrics{}

	p.metrics.requests, err = meter.Int64Counter(
		"provider_requests_total",
		metric.WithDescription("Total provider RPC requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return err
	}

	p.metrics.rpcErrors, err = meter.Int64Counter(
		"provider_rpc_errors_total",
		metric.WithDescription("Total provider RPC error responses"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return err
	}

	p.metrics.events, err = meter.Int64Counter(
		"provider_feed_events_total",
		metric.WithDescription("Events received on the provider feed"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return err
	}

	return nil
}

// Start connects the event feed. Request methods work without it.
func (p *Provider) Start(ctx context.Context) error {
	return p.feed.start(ctx)
}

// Close shuts down the event feed.
func (p *Provider) Close() error {
	return p.feed.close()
}

// Available reports whether a provider endpoint is configured.
func (p *Provider) Available(ctx context.Context) bool {
	return p.http != nil
}

// Accounts returns the already authorized accounts without prompting.
func (p *Provider) Accounts(ctx context.Context) ([]string, error) {
	return call[[]string](ctx, p, methodAccounts, nil)
}

// RequestAccounts prompts the user to authorize accounts.
func (p *Provider) RequestAccounts(ctx context.Context) ([]string, error) {
	return call[[]string](ctx, p, methodRequestAccounts, nil)
}

// ChainID returns the chain the provider is currently on.
func (p *Provider) ChainID(ctx context.Context) (uint64, error) {
	hex, err := call[string](ctx, p, methodChainID, nil)
	if err != nil {
		return 0, err
	}

	chainID, err := hexutil.DecodeUint64(hex)
	if err != nil {
		return 0, apperror.New(apperror.CodeInvalidChainID,
			apperror.WithCause(err),
			apperror.WithContext(hex))
	}
	return chainID, nil
}

// Balance returns the native-currency balance of address in base units.
func (p *Provider) Balance(ctx context.Context, address string) (*big.Int, error) {
	hex, err := call[string](ctx, p, methodGetBalance, []any{address, "latest"})
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeBalanceFetchFailed, address)
	}
	return domain.ParseWeiHex(hex)
}

// SwitchChain asks the provider to move to the given chain.
func (p *Provider) SwitchChain(ctx context.Context, chainIDHex string) error {
	_, err := call[json.RawMessage](ctx, p, methodSwitchChain,
		[]any{switchChainParams{ChainID: chainIDHex}})
	return err
}

// AddChain registers a network with the provider.
func (p *Provider) AddChain(ctx context.Context, network domain.NetworkDescriptor) error {
	params := addChainParams{
		ChainID:   network.ChainIDHex,
		ChainName: network.Name,
		NativeCurrency: nativeCurrencyParams{
			Name:     network.Currency.Name,
			Symbol:   network.Currency.Symbol,
			Decimals: network.Currency.Decimals,
		},
		RPCURLs: []string{network.RPCURL},
	}
	if network.ExplorerURL != "" {
		params.BlockExplorerURLs = []string{network.ExplorerURL}
	}

	_, err := call[json.RawMessage](ctx, p, methodAddChain, []any{params})
	return err
}

// OnAccountsChanged registers a handler for account change pushes.
func (p *Provider) OnAccountsChanged(fn func(accounts []string)) func() {
	return p.feed.onAccountsChanged(fn)
}

// OnChainChanged registers a handler for chain change pushes.
func (p *Provider) OnChainChanged(fn func(chainIDHex string)) func() {
	return p.feed.onChainChanged(fn)
}

// call performs one JSON-RPC round trip and decodes the result. Provider
// error responses map onto stable app error codes.
func call[T any](ctx context.Context, p *Provider, method string, params any) (T, error) {
	var zero T

	ctx, span := p.tracer.StartSpanFromContext(ctx, "provider.request",
		trace.WithAttributes(attribute.String("rpc.method", method)),
	)
	defer span.End()

	if p.http == nil {
		err := apperror.New(apperror.CodeProviderUnavailable)
		span.RecordError(err)
		return zero, err
	}

	p.metrics.requests.Add(ctx, 1,
		metric.WithAttributes(attribute.String("method", method)))

	req := rpcRequest{
		JSONRPC: "2.0",
		ID:      p.nextID.Add(1),
		Method:  method,
		Params:  params,
	}

	var resp rpcResponse
	if err := p.http.PostJSON(ctx, p.config.HTTPURL, req, &resp); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport failed")
		return zero, apperror.New(apperror.CodeProviderUnavailable,
			apperror.WithCause(err),
			apperror.WithContext(method))
	}

	if resp.Error != nil {
		p.metrics.rpcErrors.Add(ctx, 1,
			metric.WithAttributes(attribute.Int("code", resp.Error.Code)))
		span.RecordError(resp.Error)
		span.SetStatus(codes.Error, "rpc error")
		return zero, mapRPCError(resp.Error, method)
	}

	if len(resp.Result) == 0 || string(resp.Result) == "null" {
		span.SetStatus(codes.Ok, "empty result")
		return zero, nil
	}

	var result T
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		span.RecordError(err)
		return zero, apperror.New(apperror.CodeInvalidFormat,
			apperror.WithCause(err),
			apperror.WithContext(method))
	}

	span.SetStatus(codes.Ok, "ok")
	return result, nil
}

// mapRPCError translates provider error codes into app error codes.
func mapRPCError(rpcErr *rpcError, method string) error {
	switch rpcErr.Code {
	case codeUserRejectedRequest:
		return apperror.New(apperror.CodeUserRejected,
			apperror.WithCause(rpcErr),
			apperror.WithContext(method))
	case codeUnrecognizedChain:
		return apperror.New(apperror.CodeChainNotRegistered,
			apperror.WithCause(rpcErr),
			apperror.WithContext(method))
	default:
		return apperror.New(apperror.CodeProviderRPCError,
			apperror.WithCause(rpcErr),
			apperror.WithContext(fmt.Sprintf("%s: code %d", method, rpcErr.Code)))
	}
}
