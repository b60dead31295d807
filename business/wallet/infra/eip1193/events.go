package eip1193

import (
	"context"
	"encoding/json"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/kitefoundry/wallet-bridge/internal/apperror"
	"github.com/kitefoundry/wallet-bridge/internal/logger"
	"github.com/kitefoundry/wallet-bridge/internal/wsconn"
)

// feed receives provider push notifications over a WebSocket and fans them
// out to registered handlers. Handlers are independently removable; handler
// registration works before the feed is connected and without a feed
// endpoint at all.
type feed struct {
	config  Config
	logger  logger.LoggerInterface
	metrics *providerMetrics

	ws   *wsconn.Client
	wsMu sync.Mutex

	mu            sync.Mutex
	accountsSubs  map[int]func([]string)
	chainSubs     map[int]func(string)
	nextHandlerID int
}

func newFeed(cfg Config, log logger.LoggerInterface, metrics *providerMetrics) *feed {
	return &feed{
		config:       cfg,
		logger:       log,
		metrics:      metrics,
		accountsSubs: make(map[int]func([]string)),
		chainSubs:    make(map[int]func(string)),
	}
}

// start connects the feed with retry. Without a configured endpoint it is a
// no-op: the provider still serves requests, events just never arrive.
func (f *feed) start(ctx context.Context) error {
	if f.config.WSURL == "" {
		f.logger.Info(ctx, "no event feed configured, provider pushes disabled")
		return nil
	}

	cfg := wsconn.DefaultConfig(f.config.WSURL, "wallet-agent-feed")
	cfg.InitialBackoff = f.config.InitialBackoff
	cfg.MaxBackoff = f.config.MaxBackoff

	ws, err := wsconn.New(cfg)
	if err != nil {
		return apperror.New(apperror.CodeEventStreamError,
			apperror.WithCause(err),
			apperror.WithContext(f.config.WSURL))
	}

	ws.OnMessage(f.handleMessage)
	ws.OnStateChange(func(state wsconn.State, err error) {
		if err != nil {
			f.logger.Warn(context.Background(), "event feed state change",
				"state", string(state), "error", err)
			return
		}
		f.logger.Debug(context.Background(), "event feed state change",
			"state", string(state))
	})

	if err := ws.ConnectWithRetry(ctx); err != nil {
		return apperror.New(apperror.CodeEventStreamError,
			apperror.WithCause(err),
			apperror.WithContext(f.config.WSURL))
	}

	f.wsMu.Lock()
	f.ws = ws
	f.wsMu.Unlock()

	f.logger.Info(ctx, "event feed connected", "url", f.config.WSURL)
	return nil
}

func (f *feed) close() error {
	f.wsMu.Lock()
	defer f.wsMu.Unlock()

	if f.ws != nil {
		err := f.ws.Close()
		f.ws = nil
		return err
	}
	return nil
}

func (f *feed) onAccountsChanged(fn func([]string)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := f.nextHandlerID
	f.nextHandlerID++
	f.accountsSubs[id] = fn

	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.accountsSubs, id)
	}
}

func (f *feed) onChainChanged(fn func(string)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := f.nextHandlerID
	f.nextHandlerID++
	f.chainSubs[id] = fn

	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.chainSubs, id)
	}
}

// handleMessage parses one notification frame and dispatches it. Unknown
// methods and malformed frames are logged and dropped.
func (f *feed) handleMessage(ctx context.Context, data []byte) {
	var env eventEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		f.logger.Warn(ctx, "malformed event frame", "error", err)
		return
	}

	f.metrics.events.Add(ctx, 1,
		metric.WithAttributes(attribute.String("method", env.Method)))

	switch env.Method {
	case eventAccountsChanged:
		var accounts []string
		if err := json.Unmarshal(env.Params, &accounts); err != nil {
			f.logger.Warn(ctx, "malformed accountsChanged params", "error", err)
			return
		}
		for _, fn := range f.accountsHandlers() {
			fn(accounts)
		}

	case eventChainChanged:
		var params []string
		if err := json.Unmarshal(env.Params, &params); err != nil || len(params) == 0 {
			f.logger.Warn(ctx, "malformed chainChanged params", "error", err)
			return
		}
		for _, fn := range f.chainHandlers() {
			fn(params[0])
		}

	default:
		f.logger.Debug(ctx, "ignoring unknown event", "method", env.Method)
	}
}

func (f *feed) accountsHandlers() []func([]string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]func([]string), 0, len(f.accountsSubs))
	for _, fn := range f.accountsSubs {
		out = append(out, fn)
	}
	return out
}

func (f *feed) chainHandlers() []func(string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]func(string), 0, len(f.chainSubs))
	for _, fn := range f.chainSubs {
		out = append(out, fn)
	}
	return out
}
