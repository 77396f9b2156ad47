// Package widget binds the cart store, the checkout controller and the legacy
// facade to presentation state: a render sink, a notification board and the
// cart panel and checkout modal toggles.
package widget

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/storefront-cart/internal/domain/cart"
	"github.com/xenking/storefront-cart/internal/domain/checkout"
	"github.com/xenking/storefront-cart/internal/domain/compat"
)

// Config groups the configuration of the bound components.
type Config struct {
	Cart         cart.Config
	Checkout     checkout.Config
	Compat       compat.Config
	DismissDelay time.Duration
}

// Option configures optional Widget dependencies.
type Option func(*options)

type options struct {
	lg             *zap.Logger
	journal        checkout.Journal
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
}

// WithLogger sets the logger passed to every component.
func WithLogger(lg *zap.Logger) Option {
	return func(o *options) { o.lg = lg }
}

// WithJournal sets the checkout receipt journal.
func WithJournal(j checkout.Journal) Option {
	return func(o *options) { o.journal = j }
}

// WithTracerProvider sets the tracer provider of the checkout controller.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) { o.tracerProvider = tp }
}

// WithMeterProvider sets the meter provider of the checkout controller.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) { o.meterProvider = mp }
}

// Widget is the storefront cart widget.
type Widget struct {
	Store    *cart.Store
	Checkout *checkout.Controller
	Legacy   *compat.Facade

	board  *Board
	screen *Screen
}

// New hydrates the store from storage and wires the controller and facade
// to it. Hydration completes before any other component reads the store.
func New(ctx context.Context, storage cart.Storage, gw checkout.Gateway, cfg Config, opts ...Option) (*Widget, error) {
	o := options{lg: zap.NewNop()}
	for _, fn := range opts {
		fn(&o)
	}

	ccfg := cfg.Checkout
	if ccfg.PayLabel == "" {
		ccfg.PayLabel = checkout.DefaultConfig().PayLabel
	}
	board := NewBoard(cfg.DismissDelay, o.lg.Named("notify"))
	screen := NewScreen(ccfg.PayLabel)

	store := cart.NewStore(ctx, storage, cfg.Cart,
		cart.WithNotifier(board),
		cart.WithRenderer(screen),
		cart.WithLogger(o.lg.Named("cart")),
	)

	ctrlOpts := []checkout.Option{
		checkout.WithNotifier(board),
		checkout.WithDisplay(screen),
		checkout.WithLogger(o.lg.Named("checkout")),
	}
	if o.journal != nil {
		ctrlOpts = append(ctrlOpts, checkout.WithJournal(o.journal))
	}
	if o.tracerProvider != nil {
		ctrlOpts = append(ctrlOpts, checkout.WithTracerProvider(o.tracerProvider))
	}
	if o.meterProvider != nil {
		ctrlOpts = append(ctrlOpts, checkout.WithMeterProvider(o.meterProvider))
	}
	ctrl, err := checkout.NewController(store, gw, ccfg, ctrlOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "create checkout controller")
	}
	store.OnClear(ctrl.Forget)

	w := &Widget{
		Store:    store,
		Checkout: ctrl,
		Legacy:   compat.New(store, cfg.Compat),
		board:    board,
		screen:   screen,
	}
	store.RefreshCounter()
	return w, nil
}

// Notifications returns the notification board.
func (w *Widget) Notifications() *Board {
	return w.board
}

// OpenCart shows the cart panel with freshly rendered contents.
func (w *Widget) OpenCart() {
	w.screen.setCartOpen(true)
	w.Store.Render()
}

// CloseCart hides the cart panel and closes a checkout in progress.
func (w *Widget) CloseCart() {
	w.screen.setCartOpen(false)
	w.Checkout.Cancel()
}

// ToggleCart flips the cart panel.
func (w *Widget) ToggleCart() {
	if w.screen.state().cartOpen {
		w.CloseCart()
		return
	}
	w.OpenCart()
}

// Escape closes the checkout modal if it is open, the cart panel otherwise.
func (w *Widget) Escape() {
	if w.Checkout.Step() != checkout.StepClosed {
		w.Checkout.Cancel()
		return
	}
	w.CloseCart()
}

// Focus resynchronizes with storage, picking up changes made by another
// session sharing the slot.
func (w *Widget) Focus(ctx context.Context) {
	w.Store.Sync(ctx)
	if w.screen.state().cartOpen {
		w.Store.Render()
	}
}

// CheckoutState is the checkout part of a Snapshot.
type CheckoutState struct {
	Step     string                `json:"step"`
	Customer checkout.CustomerData `json:"customer"`
	Summary  *checkout.Summary     `json:"summary,omitempty"`
	PayBusy  bool                  `json:"pay_busy"`
	PayLabel string                `json:"pay_label"`
}

// Snapshot is the render-ready state of the widget.
type Snapshot struct {
	Items          []cart.LineItem `json:"items"`
	TotalItems     int             `json:"total_items"`
	TotalValue     decimal.Decimal `json:"total_value"`
	TotalFormatted string          `json:"total_formatted"`
	Counter        int             `json:"counter"`
	CartOpen       bool            `json:"cart_open"`
	Checkout       CheckoutState   `json:"checkout"`
	Notification   *Notification   `json:"notification,omitempty"`
	// Navigate is set once, right after a successful checkout.
	Navigate string `json:"navigate,omitempty"`
}

// Snapshot returns the current state and consumes a pending navigation.
func (w *Widget) Snapshot() Snapshot {
	v := w.Store.View()
	st := w.screen.state()
	step := w.Checkout.Step()

	s := Snapshot{
		Items:          v.Items,
		TotalItems:     v.TotalItems,
		TotalValue:     v.TotalValue,
		TotalFormatted: cart.FormatPrice(v.TotalValue),
		Counter:        st.counter,
		CartOpen:       st.cartOpen,
		Checkout: CheckoutState{
			Step:     step.String(),
			Customer: w.Checkout.Customer(),
			PayBusy:  st.payBusy,
			PayLabel: st.payLabel,
		},
		Navigate: w.screen.takeNavigation(),
	}
	if s.Items == nil {
		s.Items = []cart.LineItem{}
	}
	if step == checkout.StepReview {
		summary := w.Checkout.Summary()
		s.Checkout.Summary = &summary
	}
	if n, ok := w.board.Current(); ok {
		s.Notification = &n
	}
	return s
}
