// Package httpclient provides an instrumented HTTP client with OTEL tracing
// and metrics, tuned for JSON POST exchanges.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptrace"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/httptrace/otelhttptrace"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultDialKeepAlive   = 10 * time.Second
	defaultRequestTimeout  = 10 * time.Second
	defaultMaxConnsPerHost = 5
	defaultIdleConnTimeout = 2 * time.Minute

	metricRequestCounter = "http_client_requests_total"
)

// Options holds configuration for the instrumented client.
type Options struct {
	client         *http.Client
	roundTripper   http.RoundTripper
	requestTimeout *time.Duration
	providerName   string
	headers        map[string]string
}

// Option configures the client.
type Option func(*Options)

// WithHTTPClient substitutes the underlying http.Client.
func WithHTTPClient(client *http.Client) Option {
	return func(o *Options) { o.client = client }
}

// WithRoundTripper sets a custom HTTP transport.
func WithRoundTripper(rt http.RoundTripper) Option {
	return func(o *Options) { o.roundTripper = rt }
}

// WithRequestTimeout sets the request timeout.
func WithRequestTimeout(timeout time.Duration) Option {
	return func(o *Options) { o.requestTimeout = &timeout }
}

// WithProviderName sets the name attached to metrics and spans.
func WithProviderName(name string) Option {
	return func(o *Options) { o.providerName = name }
}

// WithHeaders sets default headers for all requests.
func WithHeaders(headers map[string]string) Option {
	return func(o *Options) { o.headers = headers }
}

// Client wraps http.Client with OTEL instrumentation.
type Client struct {
	client         *http.Client
	requestCounter metric.Int64Counter
	providerName   string
	tracer         trace.Tracer
	headers        map[string]string
}

// New creates an instrumented HTTP client. The transport is wrapped with
// otelhttp so every request carries a client span and low-level httptrace
// events.
func New(opts ...Option) (*Client, error) {
	options := &Options{}
	for _, o := range opts {
		o(options)
	}

	httpClient := options.client
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: defaultRequestTimeout,
		}
	}

	if options.roundTripper != nil {
		httpClient.Transport = options.roundTripper
	} else if httpClient.Transport == nil {
		httpClient.Transport = &http.Transport{
			DialContext: (&net.Dialer{
				KeepAlive: defaultDialKeepAlive,
			}).DialContext,
			MaxConnsPerHost: defaultMaxConnsPerHost,
			IdleConnTimeout: defaultIdleConnTimeout,
		}
	}

	if options.requestTimeout != nil {
		httpClient.Timeout = *options.requestTimeout
	}

	httpClient.Transport = otelhttp.NewTransport(
		httpClient.Transport,
		otelhttp.WithClientTrace(func(ctx context.Context) *httptrace.ClientTrace {
			return otelhttptrace.NewClientTrace(ctx)
		}),
	)

	providerName := options.providerName
	if providerName == "" {
		providerName = "default"
	}

	meter := otel.Meter(
		"instrumented_http_client",
		metric.WithInstrumentationAttributes(attribute.String("provider", providerName)),
	)

	requestCounter, err := meter.Int64Counter(
		metricRequestCounter,
		metric.WithDescription("Total number of HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	return &Client{
		client:         httpClient,
		requestCounter: requestCounter,
		providerName:   providerName,
		tracer:         otel.Tracer("instrumented_http_client"),
		headers:        options.headers,
	}, nil
}

// PostJSON marshals body, POSTs it to url and unmarshals the response into
// result. Non-2xx responses return an error carrying the status.
func (c *Client) PostJSON(ctx context.Context, url string, body, result any) error {
	ctx, span := c.tracer.Start(ctx, "http.request",
		trace.WithAttributes(
			attribute.String("http.method", http.MethodPost),
			attribute.String("http.url", url),
			attribute.String("provider", c.providerName),
		),
	)
	defer span.End()

	payload, err := json.Marshal(body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to marshal body")
		return fmt.Errorf("marshal body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create request")
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	c.requestCounter.Add(ctx, 1,
		metric.WithAttributes(attribute.String("provider", c.providerName)))

	resp, err := c.client.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		return err
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode >= 400 {
		span.SetStatus(codes.Error, "http error status")
		return fmt.Errorf("http status %d: %s", resp.StatusCode, truncate(data, 200))
	}

	if result != nil {
		if err := json.Unmarshal(data, result); err != nil {
			span.RecordError(err)
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}

	span.SetStatus(codes.Ok, "ok")
	return nil
}

func truncate(data []byte, n int) string {
	if len(data) <= n {
		return string(data)
	}
	return string(data[:n]) + "..."
}
