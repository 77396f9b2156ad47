package checkout

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront-cart/internal/domain/cart"
)

// --- Fakes ---

type fakeCart struct {
	mu    sync.Mutex
	items []cart.LineItem
	reset int
}

func (f *fakeCart) Items() []cart.LineItem {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]cart.LineItem(nil), f.items...)
}

func (f *fakeCart) TotalValue() decimal.Decimal {
	total := decimal.Zero
	for _, it := range f.Items() {
		total = total.Add(it.Total())
	}
	return total
}

func (f *fakeCart) Reset(context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = nil
	f.reset++
}

type fakeGateway struct {
	redirect *Redirect
	err      error
	orders   []*Order
	// block, when set, holds Submit until closed.
	block   chan struct{}
	entered chan struct{}
}

func (g *fakeGateway) Name() string { return "fake" }

func (g *fakeGateway) Submit(ctx context.Context, o *Order) (*Redirect, error) {
	g.orders = append(g.orders, o)
	if g.entered != nil {
		close(g.entered)
	}
	if g.block != nil {
		select {
		case <-g.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return g.redirect, g.err
}

type gatewayError struct{ msg string }

func (e *gatewayError) Error() string       { return "gateway: " + e.msg }
func (e *gatewayError) UserMessage() string { return e.msg }

type note struct {
	message  string
	severity cart.Severity
}

type recorder struct {
	mu       sync.Mutex
	notes    []note
	shown    []Step
	hidden   int
	busy     []bool
	labels   []string
	navigate []string
}

func (r *recorder) Notify(message string, severity cart.Severity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, note{message: message, severity: severity})
}

func (r *recorder) ShowCheckout(s Step) { r.shown = append(r.shown, s) }
func (r *recorder) HideCheckout()       { r.hidden++ }
func (r *recorder) Navigate(url string) { r.navigate = append(r.navigate, url) }

func (r *recorder) SetPayBusy(busy bool, label string) {
	r.busy = append(r.busy, busy)
	r.labels = append(r.labels, label)
}

func (r *recorder) last() note {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.notes) == 0 {
		return note{}
	}
	return r.notes[len(r.notes)-1]
}

type fakeJournal struct {
	receipts []*Receipt
	err      error
}

func (j *fakeJournal) Record(_ context.Context, r *Receipt) error {
	j.receipts = append(j.receipts, r)
	return j.err
}

var (
	book     = cart.LineItem{ID: "P1", Title: "Book", UnitPrice: decimal.RequireFromString("19.90"), Quantity: 1}
	customer = CustomerData{Name: "Ana", Email: "ana@example.com", Phone: "(11) 98765-4321", Notes: "gift"}
	fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
)

func newTestController(t *testing.T, c Cart, g Gateway, opts ...Option) (*Controller, *recorder) {
	t.Helper()
	rec := &recorder{}
	opts = append([]Option{
		WithNotifier(rec),
		WithDisplay(rec),
		WithClock(func() time.Time { return fixedNow }),
	}, opts...)
	ctrl, err := NewController(c, g, DefaultConfig(), opts...)
	require.NoError(t, err)
	return ctrl, rec
}

// toReview drives the controller to the review step.
func toReview(t *testing.T, ctrl *Controller) {
	t.Helper()
	require.True(t, ctrl.Open())
	require.NoError(t, ctrl.Continue(customer))
	require.Equal(t, StepReview, ctrl.Step())
}

// --- Tests ---

func TestController_OpenEmptyCart(t *testing.T) {
	ctrl, rec := newTestController(t, &fakeCart{}, &fakeGateway{})

	assert.False(t, ctrl.Open())
	assert.Equal(t, StepClosed, ctrl.Step())
	assert.Empty(t, rec.shown)
	assert.Equal(t, cart.SeverityWarning, rec.last().severity)
}

func TestController_ContinueValidation(t *testing.T) {
	tests := []struct {
		name    string
		data    CustomerData
		wantErr error
	}{
		{name: "empty name", data: CustomerData{Name: "", Email: "a@b.com"}, wantErr: ErrCustomerIncomplete},
		{name: "blank name", data: CustomerData{Name: "   ", Email: "a@b.com"}, wantErr: ErrCustomerIncomplete},
		{name: "empty email", data: CustomerData{Name: "A"}, wantErr: ErrCustomerIncomplete},
		{name: "invalid email", data: CustomerData{Name: "A", Email: "not-an-email"}, wantErr: ErrInvalidEmail},
		{name: "email without tld", data: CustomerData{Name: "A", Email: "a@b"}, wantErr: ErrInvalidEmail},
		{name: "invalid cpf", data: CustomerData{Name: "A", Email: "a@b.com", Document: "111.111.111-11"}, wantErr: ErrInvalidDocument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl, rec := newTestController(t, &fakeCart{items: []cart.LineItem{book}}, &fakeGateway{})
			require.True(t, ctrl.Open())

			err := ctrl.Continue(tt.data)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, StepCustomerInfo, ctrl.Step())
			assert.Equal(t, cart.SeverityError, rec.last().severity)
			assert.Equal(t, validationMessage(tt.wantErr), rec.last().message)
		})
	}
}

func TestController_ContinueTrimsAndAdvances(t *testing.T) {
	ctrl, rec := newTestController(t, &fakeCart{items: []cart.LineItem{book}}, &fakeGateway{})
	require.True(t, ctrl.Open())

	require.NoError(t, ctrl.Continue(CustomerData{Name: "  Ana ", Email: " ana@example.com "}))
	assert.Equal(t, StepReview, ctrl.Step())
	assert.Equal(t, "Ana", ctrl.Customer().Name)
	assert.Equal(t, "ana@example.com", ctrl.Customer().Email)
	assert.Equal(t, []Step{StepCustomerInfo, StepReview}, rec.shown)
}

func TestController_Transitions(t *testing.T) {
	ctrl, rec := newTestController(t, &fakeCart{items: []cart.LineItem{book}}, &fakeGateway{})

	assert.ErrorIs(t, ctrl.Continue(customer), ErrInvalidTransition, "continue while closed")
	assert.ErrorIs(t, ctrl.Back(), ErrInvalidTransition, "back while closed")

	toReview(t, ctrl)
	require.NoError(t, ctrl.Back())
	assert.Equal(t, StepCustomerInfo, ctrl.Step())

	ctrl.Cancel()
	assert.Equal(t, StepClosed, ctrl.Step())
	assert.Equal(t, 1, rec.hidden)
	assert.Equal(t, customer.Email, ctrl.Customer().Email, "cancel keeps customer data")

	require.True(t, ctrl.Open())
	assert.Equal(t, StepCustomerInfo, ctrl.Step(), "reopen lands on step one")

	ctrl.Forget()
	assert.Equal(t, CustomerData{}, ctrl.Customer())
}

func TestController_SummaryIsLive(t *testing.T) {
	c := &fakeCart{items: []cart.LineItem{book}}
	ctrl, _ := newTestController(t, c, &fakeGateway{})

	s := ctrl.Summary()
	require.Len(t, s.Lines, 1)
	assert.Equal(t, "R$ 19,90", s.Formatted)

	c.mu.Lock()
	c.items = append(c.items, cart.LineItem{ID: "P2", Title: "Pen", UnitPrice: decimal.RequireFromString("2.05"), Quantity: 2})
	c.mu.Unlock()

	s = ctrl.Summary()
	require.Len(t, s.Lines, 2)
	assert.Equal(t, "R$ 4,10", s.Lines[1].Formatted)
	assert.True(t, decimal.RequireFromString("24.00").Equal(s.Total))
	assert.Equal(t, "R$ 24,00", s.Formatted)
}

func TestController_PaySuccess(t *testing.T) {
	c := &fakeCart{items: []cart.LineItem{book}}
	gw := &fakeGateway{redirect: &Redirect{URL: "https://pay.example.com/p/1", OrderID: "mp-1"}}
	journal := &fakeJournal{}
	ctrl, rec := newTestController(t, c, gw, WithJournal(journal))
	toReview(t, ctrl)

	receipt, err := ctrl.Pay(context.Background())
	require.NoError(t, err)

	assert.Empty(t, c.Items())
	assert.Equal(t, 1, c.reset)
	assert.Equal(t, []string{"https://pay.example.com/p/1"}, rec.navigate)
	assert.Equal(t, StepClosed, ctrl.Step())
	assert.Equal(t, CustomerData{}, ctrl.Customer())
	assert.Equal(t, note{message: "Redirecting to payment...", severity: cart.SeverityInfo}, rec.last())
	assert.Equal(t, []bool{true, false}, rec.busy)
	assert.False(t, ctrl.Busy())

	require.Len(t, gw.orders, 1)
	order := gw.orders[0]
	assert.Equal(t, "11", order.Payer.Phone.AreaCode)
	assert.Equal(t, "987654321", order.Payer.Phone.Number)
	assert.Equal(t, "gift", order.Notes)
	assert.Equal(t, "BRL", order.Items[0].CurrencyID)
	assert.NotEmpty(t, order.Reference)

	require.Len(t, journal.receipts, 1)
	assert.Equal(t, receipt, journal.receipts[0])
	assert.Equal(t, "mp-1", receipt.OrderID)
	assert.Equal(t, "fake", receipt.Gateway)
	assert.Equal(t, fixedNow, receipt.CreatedAt)
	assert.True(t, decimal.RequireFromString("19.90").Equal(receipt.Total))
}

func TestController_PayFailurePreservesState(t *testing.T) {
	tests := []struct {
		name    string
		gateway *fakeGateway
		message string
	}{
		{
			name:    "server message",
			gateway: &fakeGateway{err: &gatewayError{msg: "Internal error creating preference"}},
			message: "Internal error creating preference",
		},
		{
			name:    "opaque error",
			gateway: &fakeGateway{err: errors.New("connection refused")},
			message: genericFailure,
		},
		{
			name:    "missing redirect",
			gateway: &fakeGateway{redirect: &Redirect{}},
			message: genericFailure,
		},
		{
			name:    "nil redirect",
			gateway: &fakeGateway{},
			message: genericFailure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &fakeCart{items: []cart.LineItem{book}}
			journal := &fakeJournal{}
			ctrl, rec := newTestController(t, c, tt.gateway, WithJournal(journal))
			toReview(t, ctrl)

			_, err := ctrl.Pay(context.Background())
			require.Error(t, err)

			assert.Len(t, c.Items(), 1)
			assert.Zero(t, c.reset)
			assert.Empty(t, rec.navigate)
			assert.Empty(t, journal.receipts)
			assert.Equal(t, StepReview, ctrl.Step())
			assert.Equal(t, customer.Email, ctrl.Customer().Email)
			assert.Equal(t, note{message: tt.message, severity: cart.SeverityError}, rec.last())
			assert.Equal(t, []bool{true, false}, rec.busy)
			assert.False(t, ctrl.Busy())
		})
	}
}

func TestController_PayRetryAfterFailure(t *testing.T) {
	c := &fakeCart{items: []cart.LineItem{book}}
	gw := &fakeGateway{err: errors.New("boom")}
	ctrl, _ := newTestController(t, c, gw)
	toReview(t, ctrl)

	_, err := ctrl.Pay(context.Background())
	require.Error(t, err)

	gw.err = nil
	gw.redirect = &Redirect{URL: "https://pay.example.com/retry"}
	_, err = ctrl.Pay(context.Background())
	require.NoError(t, err)
	require.Len(t, gw.orders, 2)
	assert.NotEqual(t, gw.orders[0].Reference, gw.orders[1].Reference)
}

func TestController_PayOutsideReview(t *testing.T) {
	gw := &fakeGateway{redirect: &Redirect{URL: "https://pay.example.com"}}
	ctrl, _ := newTestController(t, &fakeCart{items: []cart.LineItem{book}}, gw)

	_, err := ctrl.Pay(context.Background())
	require.ErrorIs(t, err, ErrInvalidTransition)
	assert.Empty(t, gw.orders)
}

func TestController_PayEmptyCart(t *testing.T) {
	c := &fakeCart{items: []cart.LineItem{book}}
	gw := &fakeGateway{redirect: &Redirect{URL: "https://pay.example.com"}}
	ctrl, rec := newTestController(t, c, gw)
	toReview(t, ctrl)

	c.Reset(context.Background())
	_, err := ctrl.Pay(context.Background())
	require.ErrorIs(t, err, ErrEmptyCart)
	assert.Empty(t, gw.orders)
	assert.Equal(t, cart.SeverityWarning, rec.last().severity)
	assert.False(t, ctrl.Busy())
}

func TestController_PayConcurrentBlocked(t *testing.T) {
	c := &fakeCart{items: []cart.LineItem{book}}
	gw := &fakeGateway{
		redirect: &Redirect{URL: "https://pay.example.com"},
		block:    make(chan struct{}),
		entered:  make(chan struct{}),
	}
	ctrl, _ := newTestController(t, c, gw)
	toReview(t, ctrl)

	done := make(chan error, 1)
	go func() {
		_, err := ctrl.Pay(context.Background())
		done <- err
	}()
	<-gw.entered
	assert.True(t, ctrl.Busy())

	_, err := ctrl.Pay(context.Background())
	require.ErrorIs(t, err, ErrCheckoutInProgress)

	close(gw.block)
	require.NoError(t, <-done)
	assert.Len(t, gw.orders, 1)
}

func TestController_PayTimeout(t *testing.T) {
	c := &fakeCart{items: []cart.LineItem{book}}
	gw := &fakeGateway{block: make(chan struct{})}
	rec := &recorder{}
	cfg := DefaultConfig()
	cfg.Timeout = 10 * time.Millisecond
	ctrl, err := NewController(c, gw, cfg, WithNotifier(rec), WithDisplay(rec))
	require.NoError(t, err)
	toReview(t, ctrl)

	_, err = ctrl.Pay(context.Background())
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Len(t, c.Items(), 1)
	assert.False(t, ctrl.Busy())
	assert.Equal(t, cart.SeverityError, rec.last().severity)
}

func TestController_JournalFailureDoesNotFailPayment(t *testing.T) {
	c := &fakeCart{items: []cart.LineItem{book}}
	gw := &fakeGateway{redirect: &Redirect{URL: "https://pay.example.com"}}
	ctrl, rec := newTestController(t, c, gw, WithJournal(&fakeJournal{err: errors.New("db down")}))
	toReview(t, ctrl)

	_, err := ctrl.Pay(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"https://pay.example.com"}, rec.navigate)
}
