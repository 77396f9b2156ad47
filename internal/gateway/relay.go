package gateway

import (
	"context"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/storefront-cart/internal/domain/checkout"
)

// Relay registers the order with an order service first, then forwards it
// together with the service's order id and checkout URL to a payment
// webhook that answers with the payment URL.
//
// The order service only accepts simple requests, so the first phase is
// sent as text/plain.
type Relay struct {
	caller
	orderURL   string
	paymentURL string
}

var _ checkout.Gateway = (*Relay)(nil)

// NewRelay creates a relay gateway.
func NewRelay(orderURL, paymentURL string, client *http.Client) (*Relay, error) {
	if orderURL == "" || paymentURL == "" {
		return nil, errors.New("relay: order and payment endpoints are required")
	}
	return &Relay{
		caller:     caller{name: KindRelay, client: client},
		orderURL:   orderURL,
		paymentURL: paymentURL,
	}, nil
}

// Name implements checkout.Gateway.
func (r *Relay) Name() string { return KindRelay }

// Submit implements checkout.Gateway. The order registration must answer
// SUCCESS with both a checkoutUrl and an orderId before payment is requested.
func (r *Relay) Submit(ctx context.Context, o *checkout.Order) (*checkout.Redirect, error) {
	registered, err := r.post(ctx, r.orderURL, "text/plain;charset=utf-8", encodeOrder(o, nil), nil)
	if err != nil {
		return nil, errors.Wrap(err, "register order")
	}
	checkoutURL := registered.first("checkoutUrl")
	orderID := registered.first("orderId")
	if registered.status() != "success" || checkoutURL == "" || orderID == "" {
		return nil, r.reject(registered, "Could not register the order. Please try again.")
	}

	body := encodeOrder(o, func(e *jx.Encoder) {
		e.FieldStart("appsScriptOrderId")
		e.Str(orderID)
		e.FieldStart("checkoutUrl")
		e.Str(checkoutURL)
	})
	paid, err := r.post(ctx, r.paymentURL, "application/json", body, nil)
	if err != nil {
		return nil, errors.Wrap(err, "create payment link")
	}
	paymentURL := paid.first("paymentUrl")
	if paymentURL == "" || paid.failed() {
		return nil, r.reject(paid, "Could not generate the payment link.")
	}
	return &checkout.Redirect{URL: paymentURL, OrderID: orderID}, nil
}
