// Package gateway implements checkout.Gateway strategies: direct Mercado
// Pago preference creation, a single webhook, and the two-phase order
// relay.
package gateway

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/xenking/storefront-cart/internal/domain/checkout"
)

// Gateway kinds accepted by New.
const (
	KindMercadoPago = "mercadopago"
	KindWebhook     = "webhook"
	KindRelay       = "relay"
)

// maxBody caps the size of a gateway response body.
const maxBody = 1 << 20

// Config selects and configures a gateway.
type Config struct {
	Kind string `default:"webhook" usage:"Payment gateway: mercadopago, webhook or relay"`
	// Endpoint is the preference API base URL (mercadopago), the webhook URL
	// (webhook) or the second-phase webhook URL (relay).
	Endpoint string `usage:"Payment gateway endpoint URL"`
	// RelayEndpoint is the first-phase order service URL (relay only).
	RelayEndpoint   string        `usage:"First-phase order service URL for the relay gateway" flag:"relay-endpoint"`
	AccessToken     string        `usage:"Mercado Pago access token" flag:"access-token"`
	Sandbox         bool          `default:"false" usage:"Redirect to the Mercado Pago sandbox checkout"`
	NotificationURL string        `usage:"Mercado Pago notification URL" flag:"notification-url"`
	BackURLs        BackURLs
	Timeout         time.Duration `default:"30s" usage:"Per-request timeout for gateway calls"`
}

// BackURLs are where Mercado Pago returns the customer after payment.
type BackURLs struct {
	Success string `usage:"Return URL after an approved payment"`
	Failure string `usage:"Return URL after a rejected payment"`
	Pending string `usage:"Return URL after a pending payment"`
}

// Error is a gateway failure: a non-2xx answer, an unusable body, or a
// 2xx answer without a redirect.
type Error struct {
	Gateway string
	// StatusCode is the HTTP status, zero when the request never completed.
	StatusCode int
	// Message is the server-supplied failure description, if any.
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %s", e.Gateway, e.StatusCode, msg)
	}
	return fmt.Sprintf("%s: %s", e.Gateway, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// UserMessage returns the server-supplied message.
func (e *Error) UserMessage() string { return e.Message }

// Option configures a gateway.
type Option func(*options)

type options struct {
	client         *http.Client
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
}

// WithHTTPClient sets the HTTP client. Its transport is not instrumented.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.client = c }
}

// WithTracerProvider sets the tracer provider of the instrumented transport.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) { o.tracerProvider = tp }
}

// WithMeterProvider sets the meter provider of the instrumented transport.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) { o.meterProvider = mp }
}

func (o *options) httpClient(timeout time.Duration) *http.Client {
	if o.client != nil {
		return o.client
	}
	var opts []otelhttp.Option
	if o.tracerProvider != nil {
		opts = append(opts, otelhttp.WithTracerProvider(o.tracerProvider))
	}
	if o.meterProvider != nil {
		opts = append(opts, otelhttp.WithMeterProvider(o.meterProvider))
	}
	return &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport, opts...),
		Timeout:   timeout,
	}
}

// New creates the gateway selected by cfg.Kind.
func New(cfg Config, opts ...Option) (checkout.Gateway, error) {
	var o options
	for _, fn := range opts {
		fn(&o)
	}
	c := o.httpClient(cfg.Timeout)

	switch cfg.Kind {
	case KindMercadoPago:
		return NewMercadoPago(cfg, c)
	case KindWebhook, "":
		return NewWebhook(cfg.Endpoint, c)
	case KindRelay:
		return NewRelay(cfg.RelayEndpoint, cfg.Endpoint, c)
	default:
		return nil, errors.Errorf("unknown gateway kind %q", cfg.Kind)
	}
}

// caller posts JSON documents on behalf of a named gateway.
type caller struct {
	name   string
	client *http.Client
}

// post sends body and decodes the answer. Non-2xx answers and undecodable
// bodies are returned as *Error.
func (c caller) post(ctx context.Context, url, contentType string, body []byte, header http.Header) (reply, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return reply{}, errors.Wrap(err, "create request")
	}
	for k, v := range header {
		req.Header[k] = v
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return reply{}, &Error{Gateway: c.name, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return reply{}, &Error{Gateway: c.name, StatusCode: resp.StatusCode, Err: errors.Wrap(err, "read body")}
	}

	r, decodeErr := decodeReply(data)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return reply{}, &Error{
			Gateway:    c.name,
			StatusCode: resp.StatusCode,
			Message:    r.message(),
			Err:        errors.New(http.StatusText(resp.StatusCode)),
		}
	}
	if decodeErr != nil {
		return reply{}, &Error{Gateway: c.name, StatusCode: resp.StatusCode, Err: errors.Wrap(decodeErr, "decode body")}
	}
	return r, nil
}

// reject builds the failure for a 2xx answer that is not a usable success.
func (c caller) reject(r reply, fallback string) *Error {
	msg := r.message()
	if msg == "" {
		msg = fallback
	}
	return &Error{Gateway: c.name, Message: msg, Err: checkout.ErrNoRedirect}
}
