package gateway

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/storefront-cart/internal/domain/checkout"
)

// DefaultMercadoPagoURL is the Mercado Pago API base URL.
const DefaultMercadoPagoURL = "https://api.mercadopago.com"

// MercadoPago creates checkout preferences directly through the Mercado
// Pago API and redirects to the preference's init point.
type MercadoPago struct {
	caller
	url     string
	token   string
	sandbox bool
	back    BackURLs
	notify  string
}

var _ checkout.Gateway = (*MercadoPago)(nil)

// NewMercadoPago creates a Mercado Pago gateway. cfg.Endpoint overrides the
// API base URL.
func NewMercadoPago(cfg Config, client *http.Client) (*MercadoPago, error) {
	if cfg.AccessToken == "" {
		return nil, errors.New("mercadopago: access token is required")
	}
	base := cfg.Endpoint
	if base == "" {
		base = DefaultMercadoPagoURL
	}
	return &MercadoPago{
		caller:  caller{name: KindMercadoPago, client: client},
		url:     strings.TrimRight(base, "/") + "/checkout/preferences",
		token:   cfg.AccessToken,
		sandbox: cfg.Sandbox,
		back:    cfg.BackURLs,
		notify:  cfg.NotificationURL,
	}, nil
}

// Name implements checkout.Gateway.
func (m *MercadoPago) Name() string { return KindMercadoPago }

// Submit implements checkout.Gateway.
func (m *MercadoPago) Submit(ctx context.Context, o *checkout.Order) (*checkout.Redirect, error) {
	body := encodeOrder(o, m.preferenceFields)
	header := http.Header{}
	header.Set("Authorization", "Bearer "+m.token)
	header.Set("X-Idempotency-Key", o.Reference)

	r, err := m.post(ctx, m.url, "application/json", body, header)
	if err != nil {
		return nil, err
	}

	keys := []string{"init_point", "sandbox_init_point"}
	if m.sandbox {
		keys = []string{"sandbox_init_point", "init_point"}
	}
	url := r.first(keys...)
	if url == "" || r.failed() {
		return nil, m.reject(r, "")
	}
	return &checkout.Redirect{URL: url, OrderID: r.first("id")}, nil
}

func (m *MercadoPago) preferenceFields(e *jx.Encoder) {
	if m.back != (BackURLs{}) {
		e.FieldStart("back_urls")
		e.ObjStart()
		for _, f := range []struct{ name, url string }{
			{"success", m.back.Success},
			{"failure", m.back.Failure},
			{"pending", m.back.Pending},
		} {
			if f.url == "" {
				continue
			}
			e.FieldStart(f.name)
			e.Str(f.url)
		}
		e.ObjEnd()
	}
	if m.back.Success != "" {
		e.FieldStart("auto_return")
		e.Str("approved")
	}
	if m.notify != "" {
		e.FieldStart("notification_url")
		e.Str(m.notify)
	}
}
