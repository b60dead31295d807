package app

import (
	"context"
	"math/big"
	"sync"
	"testing"
	"time"

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

// fakeGateway implements ProviderGateway in memory and lets tests emit
// provider push events synchronously.
type fakeGateway struct {
	mu sync.Mutex

	available  bool
	accounts   []string
	chainID    uint64
	chainIDErr error
	balance    *big.Int
	balanceErr error
	switchErrs map[string]error
	addErr     error

	requestCalls int
	switchCalls  []string
	addCalls     []domain.NetworkDescriptor
	balanceFor   []string

	// When set, RequestAccounts signals on started and blocks until release
	// is closed.
	requestStarted chan struct{}
	requestRelease chan struct{}

	accountsHandlers map[int]func([]string)
	chainHandlers    map[int]func(string)
	nextHandlerID    int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		available:        true,
		chainID:          43113,
		balance:          big.NewInt(1e18),
		switchErrs:       make(map[string]error),
		accountsHandlers: make(map[int]func([]string)),
		chainHandlers:    make(map[int]func(string)),
	}
}

func (g *fakeGateway) Available(ctx context.Context) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.available
}

func (g *fakeGateway) Accounts(ctx context.Context) ([]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.accounts, nil
}

func (g *fakeGateway) RequestAccounts(ctx context.Context) ([]string, error) {
	g.mu.Lock()
	g.requestCalls++
	started := g.requestStarted
	release := g.requestRelease
	g.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if release != nil {
		<-release
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.accounts) == 0 {
		return nil, apperror.New(apperror.CodeUserRejected)
	}
	return g.accounts, nil
}

func (g *fakeGateway) ChainID(ctx context.Context) (uint64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.chainIDErr != nil {
		return 0, g.chainIDErr
	}
	return g.chainID, nil
}

func (g *fakeGateway) Balance(ctx context.Context, address string) (*big.Int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.balanceFor = append(g.balanceFor, address)
	if g.balanceErr != nil {
		return nil, g.balanceErr
	}
	return new(big.Int).Set(g.balance), nil
}

func (g *fakeGateway) SwitchChain(ctx context.Context, chainIDHex string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.switchCalls = append(g.switchCalls, chainIDHex)
	return g.switchErrs[chainIDHex]
}

func (g *fakeGateway) AddChain(ctx context.Context, network domain.NetworkDescriptor) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.addCalls = append(g.addCalls, network)
	return g.addErr
}

func (g *fakeGateway) OnAccountsChanged(fn func([]string)) func() {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.nextHandlerID
	g.nextHandlerID++
	g.accountsHandlers[id] = fn
	return func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		delete(g.accountsHandlers, id)
	}
}

func (g *fakeGateway) OnChainChanged(fn func(string)) func() {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.nextHandlerID
	g.nextHandlerID++
	g.chainHandlers[id] = fn
	return func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		delete(g.chainHandlers, id)
	}
}

func (g *fakeGateway) emitAccountsChanged(accounts []string) {
	g.mu.Lock()
	handlers := make([]func([]string), 0, len(g.accountsHandlers))
	for _, fn := range g.accountsHandlers {
		handlers = append(handlers, fn)
	}
	g.mu.Unlock()
	for _, fn := range handlers {
		fn(accounts)
	}
}

func (g *fakeGateway) emitChainChanged(chainIDHex string) {
	g.mu.Lock()
	handlers := make([]func(string), 0, len(g.chainHandlers))
	for _, fn := range g.chainHandlers {
		handlers = append(handlers, fn)
	}
	g.mu.Unlock()
	for _, fn := range handlers {
		fn(chainIDHex)
	}
}

// recordingSink captures every published session snapshot.
type recordingSink struct {
	mu        sync.Mutex
	snapshots []domain.Session
}

func (r *recordingSink) SessionChanged(s domain.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots = append(r.snapshots, s)
}

func (r *recordingSink) sawPhase(p domain.Phase) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.snapshots {
		if s.Phase() == p {
			return true
		}
	}
	return false
}

const (
	testAccountLower    = "0xfb6916095ca1df60bb79ce92ce3ea74c37c5d359"
	testAccountChecksum = "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359"
)

func newTestController(t *testing.T, gw *fakeGateway, sink StatusSink) *ConnectionController {
	t.Helper()

	cfg := ControllerConfig{BalanceRefreshPerMinute: 600}
	c, err := NewConnectionController(cfg, gw, domain.DefaultCatalog(), sink, &mockLogger{})
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func connect(t *testing.T, c *ConnectionController) {
	t.Helper()
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
}

func TestConnect(t *testing.T) {
	gw := newFakeGateway()
	gw.accounts = []string{testAccountLower}
	sink := &recordingSink{}
	c := newTestController(t, gw, sink)

	connect(t, c)

	s := c.Session()
	if s.Address != testAccountChecksum {
		t.Errorf("address: got %q, want checksummed %q", s.Address, testAccountChecksum)
	}
	if s.ChainID != 43113 {
		t.Errorf("chain id: got %d, want 43113", s.ChainID)
	}
	if s.BalanceDisplay != "1.0000" {
		t.Errorf("balance display: got %q, want %q", s.BalanceDisplay, "1.0000")
	}
	if s.Phase() != domain.PhaseConnected {
		t.Errorf("phase: got %q, want connected", s.Phase())
	}
	if s.LastError != nil {
		t.Errorf("unexpected last error: %v", s.LastError)
	}
	if !sink.sawPhase(domain.PhaseConnecting) {
		t.Error("sink never observed the connecting phase")
	}
}

func TestConnect_ProviderUnavailable(t *testing.T) {
	gw := newFakeGateway()
	gw.available = false
	sink := &recordingSink{}
	c := newTestController(t, gw, sink)

	err := c.Connect(context.Background())
	if !apperror.IsCode(err, apperror.CodeProviderUnavailable) {
		t.Fatalf("expected PROVIDER_UNAVAILABLE, got %v", err)
	}

	s := c.Session()
	if s.Phase() != domain.PhaseDisconnected {
		t.Errorf("phase: got %q, want disconnected", s.Phase())
	}
	if !apperror.IsCode(s.LastError, apperror.CodeProviderUnavailable) {
		t.Errorf("last error: got %v", s.LastError)
	}
	if sink.sawPhase(domain.PhaseConnecting) {
		t.Error("connecting phase must not be entered when no provider exists")
	}
	if gw.requestCalls != 0 {
		t.Errorf("request accounts called %d times, want 0", gw.requestCalls)
	}
}

func TestConnect_UserRejected(t *testing.T) {
	gw := newFakeGateway()
	// Empty accounts make the fake reject the request.
	c := newTestController(t, gw, nil)

	err := c.Connect(context.Background())
	if !apperror.IsCode(err, apperror.CodeUserRejected) {
		t.Fatalf("expected USER_REJECTED, got %v", err)
	}

	s := c.Session()
	if s.Connected() {
		t.Error("session must stay disconnected after rejection")
	}
	if s.Connecting {
		t.Error("connecting flag must clear after rejection")
	}
	if !apperror.IsCode(s.LastError, apperror.CodeUserRejected) {
		t.Errorf("last error: got %v", s.LastError)
	}
}

func TestConnect_SingleFlight(t *testing.T) {
	gw := newFakeGateway()
	gw.accounts = []string{testAccountLower}
	gw.requestStarted = make(chan struct{}, 1)
	gw.requestRelease = make(chan struct{})
	c := newTestController(t, gw, nil)

	done := make(chan error, 1)
	go func() {
		done <- c.Connect(context.Background())
	}()

	select {
	case <-gw.requestStarted:
	case <-time.After(time.Second):
		t.Fatal("first connect never reached the provider")
	}

	// Second connect while the first holds the prompt must be a no-op.
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("concurrent connect: %v", err)
	}

	close(gw.requestRelease)
	if err := <-done; err != nil {
		t.Fatalf("first connect: %v", err)
	}

	if gw.requestCalls != 1 {
		t.Errorf("request accounts called %d times, want 1", gw.requestCalls)
	}
}

func TestConnect_AlreadyConnectedIsNoOp(t *testing.T) {
	gw := newFakeGateway()
	gw.accounts = []string{testAccountLower}
	c := newTestController(t, gw, nil)

	connect(t, c)

	// Connect on an established session must not prompt again.
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("connect while connected: %v", err)
	}

	if gw.requestCalls != 1 {
		t.Errorf("request accounts called %d times, want 1", gw.requestCalls)
	}
	s := c.Session()
	if s.Address != testAccountChecksum {
		t.Errorf("address: got %q, want %q", s.Address, testAccountChecksum)
	}
	if s.Connecting {
		t.Error("connecting flag must stay clear")
	}
}

func TestDisconnect(t *testing.T) {
	gw := newFakeGateway()
	gw.accounts = []string{testAccountLower}
	c := newTestController(t, gw, nil)

	connect(t, c)
	c.Disconnect()

	if s := c.Session(); s != (domain.Session{}) {
		t.Errorf("expected zero session after disconnect, got %+v", s)
	}
}

func TestSwitchNetwork_UnknownID(t *testing.T) {
	gw := newFakeGateway()
	gw.accounts = []string{testAccountLower}
	c := newTestController(t, gw, nil)
	connect(t, c)

	err := c.SwitchNetwork(context.Background(), "no-such-network")
	if !apperror.IsCode(err, apperror.CodeNetworkNotFound) {
		t.Fatalf("expected NETWORK_NOT_FOUND, got %v", err)
	}
	if len(gw.switchCalls) != 0 {
		t.Errorf("provider must not be called for unknown networks, got %v", gw.switchCalls)
	}
}

func TestSwitchNetwork_NotConnected(t *testing.T) {
	gw := newFakeGateway()
	c := newTestController(t, gw, nil)

	err := c.SwitchNetwork(context.Background(), "kite-testnet")
	if !apperror.IsCode(err, apperror.CodeInvalidState) {
		t.Fatalf("expected INVALID_STATE, got %v", err)
	}
}

func TestSwitchNetwork_ChainChangedConfirms(t *testing.T) {
	gw := newFakeGateway()
	gw.accounts = []string{testAccountLower}
	c := newTestController(t, gw, nil)
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	connect(t, c)

	if err := c.SwitchNetwork(context.Background(), "kite-testnet"); err != nil {
		t.Fatalf("switch: %v", err)
	}

	// The request resolving is not confirmation: the session stays on the
	// old chain until the provider pushes chainChanged.
	if got := c.Session().ChainID; got != 43113 {
		t.Errorf("chain id before push: got %d, want 43113", got)
	}

	gw.emitChainChanged("0x940")

	s := c.Session()
	if s.ChainID != 2368 {
		t.Errorf("chain id after push: got %d, want 2368", s.ChainID)
	}
	if s.Switching {
		t.Error("switching flag must clear after the push")
	}
}

func TestSwitchNetwork_AddChainFallback(t *testing.T) {
	gw := newFakeGateway()
	gw.accounts = []string{testAccountLower}
	gw.switchErrs["0x940"] = apperror.New(apperror.CodeChainNotRegistered)
	c := newTestController(t, gw, nil)
	connect(t, c)

	if err := c.SwitchNetwork(context.Background(), "kite-testnet"); err != nil {
		t.Fatalf("switch: %v", err)
	}

	if len(gw.addCalls) != 1 {
		t.Fatalf("add chain called %d times, want 1", len(gw.addCalls))
	}
	if got := gw.addCalls[0]; got.ChainID != 2368 || got.ID != "kite-testnet" {
		t.Errorf("add chain got %q (%d)", got.ID, got.ChainID)
	}
	if len(gw.switchCalls) != 1 {
		t.Errorf("switch called %d times, want 1", len(gw.switchCalls))
	}
}

func TestSwitchNetwork_Rejected(t *testing.T) {
	gw := newFakeGateway()
	gw.accounts = []string{testAccountLower}
	gw.switchErrs["0x940"] = apperror.New(apperror.CodeUserRejected)
	c := newTestController(t, gw, nil)
	connect(t, c)

	err := c.SwitchNetwork(context.Background(), "kite-testnet")
	if !apperror.IsCode(err, apperror.CodeUserRejected) {
		t.Fatalf("expected USER_REJECTED, got %v", err)
	}

	s := c.Session()
	if s.ChainID != 43113 {
		t.Errorf("chain id must be unchanged, got %d", s.ChainID)
	}
	if s.Switching {
		t.Error("switching flag must clear after failure")
	}
	if !apperror.IsCode(s.LastError, apperror.CodeUserRejected) {
		t.Errorf("last error: got %v", s.LastError)
	}
}

func TestAccountsChanged_EmptyDisconnects(t *testing.T) {
	gw := newFakeGateway()
	gw.accounts = []string{testAccountLower}
	c := newTestController(t, gw, nil)
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	connect(t, c)

	gw.emitAccountsChanged(nil)

	if s := c.Session(); s != (domain.Session{}) {
		t.Errorf("expected zero session after account revocation, got %+v", s)
	}
}

func TestAccountsChanged_NewAccount(t *testing.T) {
	const other = "0x52908400098527886e0f7030069857d2e4169ee7"
	const otherChecksum = "0x52908400098527886E0F7030069857D2E4169EE7"

	gw := newFakeGateway()
	gw.accounts = []string{testAccountLower}
	c := newTestController(t, gw, nil)
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	connect(t, c)

	gw.emitAccountsChanged([]string{other})

	s := c.Session()
	if s.Address != otherChecksum {
		t.Errorf("address: got %q, want %q", s.Address, otherChecksum)
	}

	gw.mu.Lock()
	refetched := gw.balanceFor[len(gw.balanceFor)-1]
	gw.mu.Unlock()
	if refetched != otherChecksum {
		t.Errorf("balance refetched for %q, want %q", refetched, otherChecksum)
	}
}

func TestChainChanged_UnknownChainAdopted(t *testing.T) {
	gw := newFakeGateway()
	gw.accounts = []string{testAccountLower}
	c := newTestController(t, gw, nil)
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	gw.emitChainChanged("0x1")

	s := c.Session()
	if s.ChainID != 1 {
		t.Errorf("chain id: got %d, want 1", s.ChainID)
	}
	if _, ok := c.ActiveNetwork(); ok {
		t.Error("chain 1 must not resolve against the catalog")
	}
}

func TestChainChanged_Malformed(t *testing.T) {
	gw := newFakeGateway()
	gw.accounts = []string{testAccountLower}
	c := newTestController(t, gw, nil)
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	before := c.Session().ChainID
	gw.emitChainChanged("not-hex")

	if got := c.Session().ChainID; got != before {
		t.Errorf("malformed push must be ignored, chain id went %d -> %d", before, got)
	}
}

func TestStart_RestoresAuthorizedSession(t *testing.T) {
	gw := newFakeGateway()
	gw.accounts = []string{testAccountLower}
	c := newTestController(t, gw, nil)

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	s := c.Session()
	if s.Address != testAccountChecksum {
		t.Errorf("address: got %q, want %q", s.Address, testAccountChecksum)
	}
	if gw.requestCalls != 0 {
		t.Errorf("mount probe must not prompt, request called %d times", gw.requestCalls)
	}
}

func TestStart_NoProvider(t *testing.T) {
	gw := newFakeGateway()
	gw.available = false
	c := newTestController(t, gw, nil)

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("start must not fail without a provider: %v", err)
	}
	if c.Session().Phase() != domain.PhaseDisconnected {
		t.Errorf("phase: got %q, want disconnected", c.Session().Phase())
	}
}

func TestConnect_BalanceFetchBestEffort(t *testing.T) {
	gw := newFakeGateway()
	gw.accounts = []string{testAccountLower}
	gw.balanceErr = apperror.New(apperror.CodeBalanceFetchFailed)
	c := newTestController(t, gw, nil)

	connect(t, c)

	s := c.Session()
	if !s.Connected() {
		t.Fatal("balance failure must not fail the connect")
	}
	if s.BalanceDisplay != "" {
		t.Errorf("balance display: got %q, want empty", s.BalanceDisplay)
	}
	if s.LastError != nil {
		t.Errorf("balance failure must not set last error, got %v", s.LastError)
	}
}

func TestRefreshBalance_FailureKeepsDisplay(t *testing.T) {
	gw := newFakeGateway()
	gw.accounts = []string{testAccountLower}
	c := newTestController(t, gw, nil)

	connect(t, c)
	if got := c.Session().BalanceDisplay; got != "1.0000" {
		t.Fatalf("balance display after connect: got %q, want %q", got, "1.0000")
	}

	gw.mu.Lock()
	gw.balanceErr = apperror.New(apperror.CodeBalanceFetchFailed)
	gw.mu.Unlock()

	c.RefreshBalance(context.Background())

	s := c.Session()
	if s.BalanceDisplay != "1.0000" {
		t.Errorf("failed refresh must keep the displayed balance: got %q, want %q",
			s.BalanceDisplay, "1.0000")
	}
	if s.LastError != nil {
		t.Errorf("failed refresh must not set last error, got %v", s.LastError)
	}
}

func TestStart_HandlersKeepCallerContext(t *testing.T) {
	gw := newFakeGateway()
	c := newTestController(t, gw, nil)

	type ctxKey struct{}
	ctx := context.WithValue(context.Background(), ctxKey{}, "wallet")
	if err := c.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	// Event handlers run on the context Start was given, not on the
	// context of its already-ended startup span.
	if c.runCtx != ctx {
		t.Error("handler context must be the caller's context")
	}
	if got := c.runCtx.Value(ctxKey{}); got != "wallet" {
		t.Errorf("caller context value lost: got %v", got)
	}
}

func TestClose_RemovesHandlers(t *testing.T) {
	gw := newFakeGateway()
	gw.accounts = []string{testAccountLower}
	c := newTestController(t, gw, nil)
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	connect(t, c)

	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	gw.emitChainChanged("0x940")
	if got := c.Session().ChainID; got != 43113 {
		t.Errorf("events after close must be ignored, chain id got %d", got)
	}
}
