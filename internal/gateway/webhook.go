package gateway

import (
	"context"
	"net/http"

	"github.com/go-faster/errors"

	"github.com/xenking/storefront-cart/internal/domain/checkout"
)

// redirectKeys are the fields a webhook may carry the payment URL under.
var redirectKeys = []string{"paymentUrl", "init_point", "checkoutUrl", "url", "redirect_url"}

var orderIDKeys = []string{"orderId", "order_id", "id"}

// Webhook posts the order to a single automation webhook or backend that
// answers with a payment URL.
type Webhook struct {
	caller
	url string
}

var _ checkout.Gateway = (*Webhook)(nil)

// NewWebhook creates a webhook gateway posting to url.
func NewWebhook(url string, client *http.Client) (*Webhook, error) {
	if url == "" {
		return nil, errors.New("webhook: endpoint is required")
	}
	return &Webhook{
		caller: caller{name: KindWebhook, client: client},
		url:    url,
	}, nil
}

// Name implements checkout.Gateway.
func (w *Webhook) Name() string { return KindWebhook }

// Submit implements checkout.Gateway.
func (w *Webhook) Submit(ctx context.Context, o *checkout.Order) (*checkout.Redirect, error) {
	r, err := w.post(ctx, w.url, "application/json", encodeOrder(o, nil), nil)
	if err != nil {
		return nil, err
	}
	url := r.first(redirectKeys...)
	if url == "" || r.failed() {
		return nil, w.reject(r, "")
	}
	return &checkout.Redirect{URL: url, OrderID: r.first(orderIDKeys...)}, nil
}
