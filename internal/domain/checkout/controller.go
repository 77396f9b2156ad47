package checkout

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/xenking/storefront-cart/internal/domain/cart"
)

// ErrNoRedirect is returned when a gateway reports success without a URL.
var ErrNoRedirect = errors.New("gateway returned no redirect URL")

// Cart is the part of the cart store the controller depends on.
type Cart interface {
	Items() []cart.LineItem
	TotalValue() decimal.Decimal
	Reset(ctx context.Context)
}

// Config controls order construction and submission.
type Config struct {
	// Currency is the currency marker set on every order item.
	Currency string
	// Timeout bounds a single gateway submission. Zero disables it.
	Timeout time.Duration
	// PayLabel is the label of the idle pay control.
	PayLabel string
	// BusyLabel is shown on the pay control while a submission is outstanding.
	BusyLabel string
}

// DefaultConfig returns the checkout defaults.
func DefaultConfig() Config {
	return Config{
		Currency:  "BRL",
		Timeout:   30 * time.Second,
		PayLabel:  "Pay with Mercado Pago",
		BusyLabel: "Processing...",
	}
}

// Option configures optional Controller collaborators.
type Option func(*Controller)

// WithNotifier sets the notification channel.
func WithNotifier(n cart.Notifier) Option {
	return func(c *Controller) { c.notifier = n }
}

// WithDisplay sets the checkout modal sink.
func WithDisplay(d Display) Option {
	return func(c *Controller) { c.display = d }
}

// WithJournal sets the receipt journal.
func WithJournal(j Journal) Option {
	return func(c *Controller) { c.journal = j }
}

// WithLogger sets the developer log.
func WithLogger(lg *zap.Logger) Option {
	return func(c *Controller) { c.lg = lg }
}

// WithTracerProvider sets the tracer provider used for submission spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Controller) { c.tracerProvider = tp }
}

// WithMeterProvider sets the meter provider used for submission counters.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(c *Controller) { c.meterProvider = mp }
}

// WithClock overrides the receipt timestamp source.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// Controller drives the checkout wizard for a single cart.
type Controller struct {
	cart    Cart
	gateway Gateway
	cfg     Config

	notifier       cart.Notifier
	display        Display
	journal        Journal
	lg             *zap.Logger
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	now            func() time.Time

	tracer      trace.Tracer
	submissions metric.Int64Counter

	mu       sync.Mutex
	step     Step
	customer CustomerData

	// paying is set while a submission is outstanding.
	paying atomic.Bool
}

// NewController creates a Controller submitting orders for c through g.
func NewController(c Cart, g Gateway, cfg Config, opts ...Option) (*Controller, error) {
	def := DefaultConfig()
	if cfg.Currency == "" {
		cfg.Currency = def.Currency
	}
	if cfg.PayLabel == "" {
		cfg.PayLabel = def.PayLabel
	}
	if cfg.BusyLabel == "" {
		cfg.BusyLabel = def.BusyLabel
	}
	ctrl := &Controller{
		cart:           c,
		gateway:        g,
		cfg:            cfg,
		notifier:       nopNotifier{},
		display:        nopDisplay{},
		lg:             zap.NewNop(),
		tracerProvider: tracenoop.NewTracerProvider(),
		meterProvider:  metricnoop.NewMeterProvider(),
		now:            time.Now,
	}
	for _, o := range opts {
		o(ctrl)
	}

	const scope = "github.com/xenking/storefront-cart/internal/domain/checkout"
	ctrl.tracer = ctrl.tracerProvider.Tracer(scope)
	counter, err := ctrl.meterProvider.Meter(scope).Int64Counter("checkout.submissions",
		metric.WithDescription("Order submissions by gateway and outcome"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create submissions counter")
	}
	ctrl.submissions = counter
	return ctrl, nil
}

// Step returns the current wizard step.
func (c *Controller) Step() Step {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.step
}

// Customer returns the captured customer data, used to pre-fill the form
// when checkout is reopened.
func (c *Controller) Customer() CustomerData {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.customer
}

// Busy reports whether a submission is outstanding.
func (c *Controller) Busy() bool {
	return c.paying.Load()
}

// Open shows the checkout at step one. An empty cart is rejected with a
// warning and the modal stays closed.
func (c *Controller) Open() bool {
	if len(c.cart.Items()) == 0 {
		c.notifier.Notify("Add items to the cart before checking out", cart.SeverityWarning)
		return false
	}
	c.setStep(StepCustomerInfo)
	c.display.ShowCheckout(StepCustomerInfo)
	return true
}

// Continue validates the customer data and advances to the review step.
// Validation failures keep step one and emit an error notification.
func (c *Controller) Continue(data CustomerData) error {
	if c.Step() != StepCustomerInfo {
		return ErrInvalidTransition
	}
	data = data.Normalize()
	if err := data.Validate(); err != nil {
		c.notifier.Notify(validationMessage(err), cart.SeverityError)
		return err
	}

	c.mu.Lock()
	c.customer = data
	c.step = StepReview
	c.mu.Unlock()

	c.display.ShowCheckout(StepReview)
	return nil
}

// Back returns from the review step to step one.
func (c *Controller) Back() error {
	if c.Step() != StepReview {
		return ErrInvalidTransition
	}
	c.setStep(StepCustomerInfo)
	c.display.ShowCheckout(StepCustomerInfo)
	return nil
}

// Cancel closes the checkout. Customer data and cart are preserved.
func (c *Controller) Cancel() {
	if c.Step() == StepClosed {
		return
	}
	c.setStep(StepClosed)
	c.display.HideCheckout()
}

// Forget discards the captured customer data.
func (c *Controller) Forget() {
	c.mu.Lock()
	c.customer = CustomerData{}
	c.mu.Unlock()
}

func (c *Controller) setStep(s Step) {
	c.mu.Lock()
	c.step = s
	c.mu.Unlock()
}

// SummaryLine is one row of the review step.
type SummaryLine struct {
	Title     string          `json:"title"`
	Quantity  int             `json:"quantity"`
	Total     decimal.Decimal `json:"total"`
	Formatted string          `json:"formatted"`
}

// Summary is the read-only order review.
type Summary struct {
	Lines     []SummaryLine   `json:"lines"`
	Total     decimal.Decimal `json:"total"`
	Formatted string          `json:"formatted"`
}

// Summary is recomputed from the live cart on every call.
func (c *Controller) Summary() Summary {
	items := c.cart.Items()
	s := Summary{
		Lines: make([]SummaryLine, len(items)),
		Total: decimal.Zero,
	}
	for i, it := range items {
		total := it.Total()
		s.Lines[i] = SummaryLine{
			Title:     it.Title,
			Quantity:  it.Quantity,
			Total:     total,
			Formatted: cart.FormatPrice(total),
		}
		s.Total = s.Total.Add(total)
	}
	s.Formatted = cart.FormatPrice(s.Total)
	return s
}

// Pay submits the order to the gateway. On success the cart is reset, the
// customer data forgotten, the modal closed and navigation signalled. On
// failure the state is preserved and an error notification is emitted.
//
// Only one submission may be outstanding; a concurrent call returns
// ErrCheckoutInProgress.
func (c *Controller) Pay(ctx context.Context) (*Receipt, error) {
	if c.Step() != StepReview {
		return nil, ErrInvalidTransition
	}
	if !c.paying.CompareAndSwap(false, true) {
		return nil, ErrCheckoutInProgress
	}
	defer c.paying.Store(false)

	c.display.SetPayBusy(true, c.cfg.BusyLabel)
	defer c.display.SetPayBusy(false, c.cfg.PayLabel)

	gw := c.gateway.Name()
	ctx, span := c.tracer.Start(ctx, "checkout.Pay",
		trace.WithAttributes(attribute.String("checkout.gateway", gw)),
	)
	defer span.End()

	items := c.cart.Items()
	if len(items) == 0 {
		c.notifier.Notify("Your cart is empty", cart.SeverityWarning)
		return nil, ErrEmptyCart
	}
	customer := c.Customer()
	order := BuildOrder(uuid.NewString(), items, customer, c.cfg.Currency)
	span.SetAttributes(
		attribute.String("checkout.reference", order.Reference),
		attribute.Int("checkout.items", len(order.Items)),
	)
	lg := c.lg.With(
		zap.String("gateway", gw),
		zap.String("reference", order.Reference),
	)

	redirect, err := c.submit(ctx, order)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.count(ctx, gw, "failure")
		lg.Error("Order submission failed", zap.Error(err))
		c.notifier.Notify(UserMessage(err), cart.SeverityError)
		return nil, errors.Wrap(err, "submit order")
	}
	c.count(ctx, gw, "success")

	receipt := &Receipt{
		Reference:   order.Reference,
		Gateway:     gw,
		OrderID:     redirect.OrderID,
		RedirectURL: redirect.URL,
		Total:       order.Total,
		ItemCount:   len(order.Items),
		Email:       customer.Email,
		CreatedAt:   c.now(),
	}
	if c.journal != nil {
		if err := c.journal.Record(ctx, receipt); err != nil {
			lg.Warn("Record receipt", zap.Error(err))
		}
	}
	lg.Info("Order handed off",
		zap.String("order_id", redirect.OrderID),
		zap.Stringer("total", order.Total),
	)

	c.notifier.Notify("Redirecting to payment...", cart.SeverityInfo)
	c.cart.Reset(ctx)

	c.mu.Lock()
	c.customer = CustomerData{}
	c.step = StepClosed
	c.mu.Unlock()

	c.display.HideCheckout()
	c.display.Navigate(redirect.URL)
	return receipt, nil
}

func (c *Controller) submit(ctx context.Context, o *Order) (*Redirect, error) {
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}
	r, err := c.gateway.Submit(ctx, o)
	if err != nil {
		return nil, err
	}
	if r == nil || r.URL == "" {
		return nil, ErrNoRedirect
	}
	return r, nil
}

func (c *Controller) count(ctx context.Context, gateway, outcome string) {
	c.submissions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("gateway", gateway),
		attribute.String("outcome", outcome),
	))
}

type nopNotifier struct{}

func (nopNotifier) Notify(string, cart.Severity) {}
