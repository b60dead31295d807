package app

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/kitefoundry/wallet-bridge/business/wallet/domain"
	"github.com/kitefoundry/wallet-bridge/internal/apm"
	"github.com/kitefoundry/wallet-bridge/internal/apperror"
	"github.com/kitefoundry/wallet-bridge/internal/circuitbreaker"
	"github.com/kitefoundry/wallet-bridge/internal/logger"
	"github.com/kitefoundry/wallet-bridge/internal/ratelimit"
)

const (
	tracerName = "github.com/kitefoundry/wallet-bridge/business/wallet/app"
	meterName  = "github.com/kitefoundry/wallet-bridge/business/wallet/app"
)

// ControllerConfig holds configuration for the connection controller.
type ControllerConfig struct {
	BalanceRefreshPerMinute int // rate limit on balance refetches
}

// DefaultControllerConfig returns sensible defaults.
func DefaultControllerConfig() ControllerConfig {
	return ControllerConfig{
		BalanceRefreshPerMinute: 30,
	}
}

// controllerMetrics holds OTEL metric instruments.
type controllerMetrics struct {
	connectAttempts  metric.Int64Counter
	connectFailures  metric.Int64Counter
	switchRequests   metric.Int64Counter
	chainAdds        metric.Int64Counter
	balanceRefreshes metric.Int64Counter
	providerEvents   metric.Int64Counter
	sessionPhase     metric.Int64Gauge
}

// ConnectionController owns the wallet session and drives it through the
// provider gateway. All session mutations happen here; consumers observe the
// session through Session() snapshots and the StatusSink.
//
// The provider is the single source of truth for the active chain: a switch
// request resolving is not treated as confirmation, only a chainChanged push
// updates the session's ChainID.
type ConnectionController struct {
	config  ControllerConfig
	gateway ProviderGateway
	catalog *domain.Catalog
	sink    StatusSink
	logger  logger.LoggerInterface

	mu      sync.Mutex
	session domain.Session

	// runCtx carries the lifetime of Start for event-driven work.
	runCtx context.Context

	unsubscribers []func()
	closed        atomic.Bool

	balanceCB      *circuitbreaker.CircuitBreaker[*big.Int]
	balanceLimiter *ratelimit.Limiter

	tracer  apm.Tracer
	metrics *controllerMetrics
}

// NewConnectionController creates a controller for the given gateway and
// network catalog. The sink may be nil when no consumer wants push updates.
func NewConnectionController(cfg ControllerConfig, gateway ProviderGateway, catalog *domain.Catalog, sink StatusSink, log logger.LoggerInterface) (*ConnectionController, error) {
	if cfg.BalanceRefreshPerMinute <= 0 {
		cfg.BalanceRefreshPerMinute = DefaultControllerConfig().BalanceRefreshPerMinute
	}

	c := &ConnectionController{
		config:         cfg,
		gateway:        gateway,
		catalog:        catalog,
		sink:           sink,
		logger:         log,
		runCtx:         context.Background(),
		balanceLimiter: ratelimit.New(cfg.BalanceRefreshPerMinute),
		tracer:         apm.NewTracer(tracerName),
	}

	if err := c.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	c.initCircuitBreaker()

	return c, nil
}

// initMetrics initializes OTEL metric instruments.
func (c *ConnectionController) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	c.metrics = &controllerMetrics{}

	c.metrics.connectAttempts, err = meter.Int64Counter(
		"wallet_connect_attempts_total",
		metric.WithDescription("Total wallet connect attempts"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return err
	}

	c.metrics.connectFailures, err = meter.Int64Counter(
		"wallet_connect_failures_total",
		metric.WithDescription("Total failed wallet connect attempts"),
		metric.WithUnit("{failure}"),
	)
	if err != nil {
		return err
	}

	c.metrics.switchRequests, err = meter.Int64Counter(
		"wallet_switch_requests_total",
		metric.WithDescription("Total network switch requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return err
	}

	c.metrics.chainAdds, err = meter.Int64Counter(
		"wallet_chain_adds_total",
		metric.WithDescription("Times an unregistered chain was added to the provider"),
		metric.WithUnit("{add}"),
	)
	if err != nil {
		return err
	}

	c.metrics.balanceRefreshes, err = meter.Int64Counter(
		"wallet_balance_refreshes_total",
		metric.WithDescription("Total balance refresh calls"),
		metric.WithUnit("{refresh}"),
	)
	if err != nil {
		return err
	}

	c.metrics.providerEvents, err = meter.Int64Counter(
		"wallet_provider_events_total",
		metric.WithDescription("Provider push events received"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return err
	}

	c.metrics.sessionPhase, err = meter.Int64Gauge(
		"wallet_session_phase",
		metric.WithDescription("Session phase (0=disconnected, 1=connecting, 2=connected, 3=switching)"),
		metric.WithUnit("{phase}"),
	)
	if err != nil {
		return err
	}

	return nil
}

// initCircuitBreaker initializes the breaker guarding balance reads.
func (c *ConnectionController) initCircuitBreaker() {
	cfg := circuitbreaker.DefaultConfig("wallet-balance")
	cfg.OnStateChange = func(name string, from, to gobreaker.State) {
		c.logger.Info(context.Background(), "circuit breaker state change",
			"breaker", name, "from", from.String(), "to", to.String())
	}
	c.balanceCB = circuitbreaker.New[*big.Int](cfg)
}

// Start registers provider event handlers and runs the mount probe: if the
// provider already authorized accounts for this client, the session is
// restored without prompting. Probe failures are logged, never surfaced.
func (c *ConnectionController) Start(ctx context.Context) error {
	if c.closed.Load() {
		return apperror.New(apperror.CodeInvalidState,
			apperror.WithContext("controller is closed"))
	}

	// Event handlers outlive this call; they must not inherit its span.
	c.runCtx = ctx

	ctx, span := c.tracer.StartSpanFromContext(ctx, "wallet.start")
	defer span.End()

	c.unsubscribers = append(c.unsubscribers,
		c.gateway.OnAccountsChanged(func(accounts []string) {
			c.handleAccountsChanged(c.runCtx, accounts)
		}),
		c.gateway.OnChainChanged(func(chainIDHex string) {
			c.handleChainChanged(c.runCtx, chainIDHex)
		}),
	)

	if !c.gateway.Available(ctx) {
		span.AddEvent("provider_unavailable")
		c.logger.Info(ctx, "no wallet provider available")
		c.publish(c.snapshot())
		return nil
	}

	accounts, err := c.gateway.Accounts(ctx)
	if err != nil {
		span.AddEvent("mount_probe_failed")
		c.logger.Debug(ctx, "mount probe failed", "error", err)
		c.publish(c.snapshot())
		return nil
	}

	if len(accounts) == 0 {
		c.publish(c.snapshot())
		span.SetStatus(codes.Ok, "no prior authorization")
		return nil
	}

	c.adoptAccount(ctx, accounts[0])
	span.SetStatus(codes.Ok, "session restored")
	return nil
}

// Connect prompts the user through the provider and, on approval, adopts the
// first authorized account. Calling Connect while a connect is in flight or
// while already connected is a no-op; the user is never prompted twice.
func (c *ConnectionController) Connect(ctx context.Context) error {
	ctx, span := c.tracer.StartSpanFromContext(ctx, "wallet.connect")
	defer span.End()

	c.metrics.connectAttempts.Add(ctx, 1)

	if !c.gateway.Available(ctx) {
		err := apperror.New(apperror.CodeProviderUnavailable)
		c.update(func(s *domain.Session) {
			s.LastError = err
		})
		c.metrics.connectFailures.Add(ctx, 1)
		span.RecordError(err)
		span.SetStatus(codes.Error, "provider unavailable")
		return err
	}

	c.mu.Lock()
	if c.session.Connecting || c.session.Connected() {
		c.mu.Unlock()
		span.AddEvent("connect_already_in_flight_or_connected")
		return nil
	}
	c.session.Connecting = true
	c.session.LastError = nil
	snap := c.session
	c.mu.Unlock()
	c.publish(snap)

	accounts, err := c.gateway.RequestAccounts(ctx)
	if err != nil {
		c.update(func(s *domain.Session) {
			s.Connecting = false
			s.LastError = err
		})
		c.metrics.connectFailures.Add(ctx, 1)
		span.RecordError(err)
		if apperror.IsCode(err, apperror.CodeUserRejected) {
			span.SetStatus(codes.Error, "user rejected")
		} else {
			span.SetStatus(codes.Error, "request accounts failed")
		}
		return err
	}

	if len(accounts) == 0 {
		err := apperror.New(apperror.CodeNoAccounts)
		c.update(func(s *domain.Session) {
			s.Connecting = false
			s.LastError = err
		})
		c.metrics.connectFailures.Add(ctx, 1)
		span.RecordError(err)
		return err
	}

	c.update(func(s *domain.Session) {
		s.Connecting = false
	})

	if err := c.adoptAccount(ctx, accounts[0]); err != nil {
		c.metrics.connectFailures.Add(ctx, 1)
		span.RecordError(err)
		return err
	}

	span.SetAttributes(attribute.Int("accounts", len(accounts)))
	span.SetStatus(codes.Ok, "connected")
	return nil
}

// Disconnect clears the local session. It never calls the provider: the
// authorization itself is managed on the wallet side, forgetting it here is
// all a disconnect means.
func (c *ConnectionController) Disconnect() {
	c.logger.Info(context.Background(), "wallet disconnected")
	c.update(func(s *domain.Session) {
		*s = domain.Session{}
	})
}

// SwitchNetwork asks the provider to move to the catalog network identified
// by networkID. If the provider does not know the chain, it is added exactly
// once. The session's ChainID is not updated here; only the chainChanged
// push confirms the move.
func (c *ConnectionController) SwitchNetwork(ctx context.Context, networkID string) error {
	ctx, span := c.tracer.StartSpanFromContext(ctx, "wallet.switch_network",
		trace.WithAttributes(attribute.String("network_id", networkID)),
	)
	defer span.End()

	c.metrics.switchRequests.Add(ctx, 1)

	target, err := c.catalog.Lookup(networkID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "unknown network")
		return err
	}

	c.mu.Lock()
	if !c.session.Connected() {
		c.mu.Unlock()
		err := apperror.New(apperror.CodeInvalidState,
			apperror.WithContext("switch requires an active connection"))
		span.RecordError(err)
		return err
	}
	if c.session.Switching {
		c.mu.Unlock()
		span.AddEvent("switch_already_in_flight")
		return nil
	}
	c.session.Switching = true
	c.session.LastError = nil
	snap := c.session
	c.mu.Unlock()
	c.publish(snap)

	defer func() {
		c.update(func(s *domain.Session) {
			s.Switching = false
		})
	}()

	err = c.gateway.SwitchChain(ctx, target.ChainIDHex)
	if apperror.IsCode(err, apperror.CodeChainNotRegistered) {
		span.AddEvent("chain_not_registered_adding")
		c.logger.Info(ctx, "chain not registered with provider, adding",
			"network", target.ID, "chain_id", target.ChainID)
		c.metrics.chainAdds.Add(ctx, 1)

		err = c.gateway.AddChain(ctx, target)
	}

	if err != nil {
		c.update(func(s *domain.Session) {
			s.LastError = err
		})
		span.RecordError(err)
		span.SetStatus(codes.Error, "switch failed")
		return err
	}

	span.SetStatus(codes.Ok, "switch requested")
	return nil
}

// Session returns a snapshot of the current session.
func (c *ConnectionController) Session() domain.Session {
	return c.snapshot()
}

// Networks returns the catalog networks in display order.
func (c *ConnectionController) Networks() []domain.NetworkDescriptor {
	return c.catalog.All()
}

// ActiveNetwork resolves the session's chain against the catalog. The second
// result is false when the provider sits on a chain outside the catalog.
func (c *ConnectionController) ActiveNetwork() (domain.NetworkDescriptor, bool) {
	s := c.snapshot()
	if s.ChainID == 0 {
		return domain.NetworkDescriptor{}, false
	}
	return c.catalog.ByChainID(s.ChainID)
}

// RefreshBalance refetches the balance for the held account, subject to the
// refresh rate limit.
func (c *ConnectionController) RefreshBalance(ctx context.Context) {
	s := c.snapshot()
	if !s.Connected() {
		return
	}
	c.refreshBalance(ctx, s.Address)
}

// Close removes the provider event handlers. The session is left as is.
func (c *ConnectionController) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}

	for _, unsubscribe := range c.unsubscribers {
		unsubscribe()
	}
	c.unsubscribers = nil

	c.logger.Info(context.Background(), "connection controller closed")
	return nil
}

// adoptAccount normalizes an account address, takes it as the session
// account, and fills in chain and balance. Chain and balance lookups are
// best effort.
func (c *ConnectionController) adoptAccount(ctx context.Context, account string) error {
	address, err := domain.NormalizeAddress(account)
	if err != nil {
		c.update(func(s *domain.Session) {
			s.LastError = err
		})
		c.logger.Warn(ctx, "provider returned invalid account", "account", account)
		return err
	}

	c.update(func(s *domain.Session) {
		s.Address = address
		s.LastError = nil
	})
	c.logger.Info(ctx, "account adopted", "address", address)

	if chainID, err := c.gateway.ChainID(ctx); err != nil {
		c.logger.Warn(ctx, "chain id fetch failed", "error", err)
	} else {
		c.update(func(s *domain.Session) {
			s.ChainID = chainID
		})
	}

	c.refreshBalance(ctx, address)
	return nil
}

// refreshBalance fetches and formats the balance for address. Failures clear
// the display rather than surfacing: balance is informational.
func (c *ConnectionController) refreshBalance(ctx context.Context, address string) {
	if !c.balanceLimiter.Allow() {
		c.logger.Debug(ctx, "balance refresh rate limited", "address", address)
		return
	}

	ctx, span := c.tracer.StartSpanFromContext(ctx, "wallet.refresh_balance")
	defer span.End()

	c.metrics.balanceRefreshes.Add(ctx, 1)

	raw, err := c.balanceCB.Execute(func() (*big.Int, error) {
		return c.gateway.Balance(ctx, address)
	})
	if err != nil {
		// Balance is informational; a failed refetch keeps whatever is
		// already displayed.
		span.RecordError(err)
		c.logger.Warn(ctx, "balance fetch failed", "address", address, "error", err)
		return
	}

	decimals := uint8(domain.DefaultCurrencyDecimals)
	if network, ok := c.catalog.ByChainID(c.snapshot().ChainID); ok {
		decimals = network.Currency.Decimals
	}

	display := domain.FormatBalance(raw, decimals)
	c.update(func(s *domain.Session) {
		// The account may have changed while the fetch was in flight.
		if s.Address == address {
			s.BalanceDisplay = display
		}
	})

	span.SetStatus(codes.Ok, "refreshed")
}

// handleAccountsChanged applies a provider accounts push. An empty account
// list is a provider-side disconnect and resets the session from any state.
func (c *ConnectionController) handleAccountsChanged(ctx context.Context, accounts []string) {
	c.metrics.providerEvents.Add(ctx, 1,
		metric.WithAttributes(attribute.String("event", "accountsChanged")))

	if len(accounts) == 0 {
		c.logger.Info(ctx, "provider revoked accounts, disconnecting")
		c.update(func(s *domain.Session) {
			*s = domain.Session{}
		})
		return
	}

	address, err := domain.NormalizeAddress(accounts[0])
	if err != nil {
		c.logger.Warn(ctx, "ignoring invalid account from provider", "account", accounts[0])
		return
	}

	changed := false
	c.update(func(s *domain.Session) {
		if s.Address != address {
			s.Address = address
			s.BalanceDisplay = ""
			changed = true
		}
	})

	if changed {
		c.logger.Info(ctx, "active account changed", "address", address)
		c.refreshBalance(ctx, address)
	}
}

// handleChainChanged applies a provider chain push. The new chain is adopted
// unconditionally, catalog membership or not.
func (c *ConnectionController) handleChainChanged(ctx context.Context, chainIDHex string) {
	c.metrics.providerEvents.Add(ctx, 1,
		metric.WithAttributes(attribute.String("event", "chainChanged")))

	chainID, err := hexutil.DecodeUint64(chainIDHex)
	if err != nil {
		c.logger.Warn(ctx, "ignoring malformed chain id from provider", "chain_id", chainIDHex)
		return
	}

	var address string
	c.update(func(s *domain.Session) {
		s.ChainID = chainID
		s.Switching = false
		s.BalanceDisplay = ""
		address = s.Address
	})
	c.logger.Info(ctx, "active chain changed", "chain_id", chainID)

	if address != "" {
		c.refreshBalance(ctx, address)
	}
}

// snapshot returns a copy of the session under the lock.
func (c *ConnectionController) snapshot() domain.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// update mutates the session under the lock and publishes the result.
func (c *ConnectionController) update(fn func(*domain.Session)) {
	c.mu.Lock()
	fn(&c.session)
	snap := c.session
	c.mu.Unlock()
	c.publish(snap)
}

// publish pushes a snapshot to the sink and records the phase gauge.
func (c *ConnectionController) publish(snap domain.Session) {
	phaseValue := int64(0)
	switch snap.Phase() {
	case domain.PhaseDisconnected:
		phaseValue = 0
	case domain.PhaseConnecting:
		phaseValue = 1
	case domain.PhaseConnected:
		phaseValue = 2
	case domain.PhaseSwitching:
		phaseValue = 3
	}
	c.metrics.sessionPhase.Record(context.Background(), phaseValue)

	if c.sink != nil {
		c.sink.SessionChanged(snap)
	}
}
