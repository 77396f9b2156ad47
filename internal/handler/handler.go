// Package handler exposes the cart widget over a JSON HTTP API.
//
// Every successful response carries the render-ready widget state, so a
// client can redraw the counter, the cart panel, the checkout modal and the
// current notification from any reply.
package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront-cart/internal/domain/checkout"
	"github.com/xenking/storefront-cart/internal/widget"
)

// maxBody caps request bodies.
const maxBody = 64 << 10

// Receipts lists recent checkout hand-offs.
type Receipts interface {
	Recent(ctx context.Context, limit int) ([]checkout.Receipt, error)
}

// Option configures a Handler.
type Option func(*Handler)

// WithReceipts enables GET /api/checkout/receipts.
func WithReceipts(r Receipts) Option {
	return func(h *Handler) { h.receipts = r }
}

// Handler serves the cart API for one widget.
type Handler struct {
	widget   *widget.Widget
	receipts Receipts
	mux      *http.ServeMux
}

var _ http.Handler = (*Handler)(nil)

// New registers the cart, legacy and checkout routes for w.
func New(w *widget.Widget, opts ...Option) *Handler {
	h := &Handler{widget: w, mux: http.NewServeMux()}
	for _, o := range opts {
		o(h)
	}

	h.mux.HandleFunc("GET /api/cart", h.getCart)
	h.mux.HandleFunc("POST /api/cart/items", h.addItem)
	h.mux.HandleFunc("DELETE /api/cart/items/{id}", h.removeItem)
	h.mux.HandleFunc("PUT /api/cart/items/{id}/quantity", h.updateQuantity)
	h.mux.HandleFunc("POST /api/cart/clear", h.clearCart)
	h.mux.HandleFunc("POST /api/cart/open", h.panel(w.OpenCart))
	h.mux.HandleFunc("POST /api/cart/close", h.panel(w.CloseCart))
	h.mux.HandleFunc("POST /api/cart/toggle", h.panel(w.ToggleCart))
	h.mux.HandleFunc("POST /api/cart/escape", h.panel(w.Escape))
	h.mux.HandleFunc("POST /api/cart/focus", h.focus)

	h.mux.HandleFunc("GET /api/legacy/items", h.legacyItems)
	h.mux.HandleFunc("POST /api/legacy/items", h.legacyAdd)
	h.mux.HandleFunc("DELETE /api/legacy/items/{id}", h.legacyRemove)
	h.mux.HandleFunc("POST /api/legacy/items/{id}/increment", h.legacyStep(1))
	h.mux.HandleFunc("POST /api/legacy/items/{id}/decrement", h.legacyStep(-1))
	h.mux.HandleFunc("PUT /api/legacy/items/{id}/quantity", h.legacySetQuantity)
	h.mux.HandleFunc("POST /api/legacy/clear", h.legacyClear)

	h.mux.HandleFunc("GET /api/checkout", h.getCart)
	h.mux.HandleFunc("POST /api/checkout/open", h.openCheckout)
	h.mux.HandleFunc("POST /api/checkout/continue", h.continueCheckout)
	h.mux.HandleFunc("POST /api/checkout/back", h.backCheckout)
	h.mux.HandleFunc("POST /api/checkout/cancel", h.cancelCheckout)
	h.mux.HandleFunc("POST /api/checkout/pay", h.pay)
	h.mux.HandleFunc("GET /api/checkout/receipts", h.listReceipts)

	h.mux.HandleFunc("GET /api/notifications", h.currentNotification)
	h.mux.HandleFunc("DELETE /api/notifications/{id}", h.dismissNotification)
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) getCart(w http.ResponseWriter, _ *http.Request) {
	h.state(w, http.StatusOK)
}

func (h *Handler) panel(fn func()) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		fn()
		h.state(w, http.StatusOK)
	}
}

func (h *Handler) focus(w http.ResponseWriter, r *http.Request) {
	h.widget.Focus(r.Context())
	h.state(w, http.StatusOK)
}

func (h *Handler) currentNotification(w http.ResponseWriter, _ *http.Request) {
	n, ok := h.widget.Notifications().Current()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

func (h *Handler) dismissNotification(w http.ResponseWriter, r *http.Request) {
	if !h.widget.Notifications().Dismiss(r.PathValue("id")) {
		h.fail(w, r, http.StatusNotFound, errors.New("notification not found"))
		return
	}
	h.state(w, http.StatusOK)
}

// errorResponse is the body of every failed request.
type errorResponse struct {
	Error string           `json:"error"`
	State *widget.Snapshot `json:"state,omitempty"`
}

// state writes the widget snapshot.
func (h *Handler) state(w http.ResponseWriter, status int) {
	writeJSON(w, status, h.widget.Snapshot())
}

// fail writes err along with the widget snapshot.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, status int, err error) {
	if status >= http.StatusInternalServerError {
		zctx.From(r.Context()).Error("Request failed", zap.Error(err))
	}
	s := h.widget.Snapshot()
	writeJSON(w, status, errorResponse{Error: err.Error(), State: &s})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decode reads a JSON body into v. An empty body leaves v untouched.
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return errors.Wrap(err, "decode body")
	}
	return nil
}

// plain converts json.Number values produced by decode into float64 or int
// so the domain coercion rules see the same types as in memory.
func plain(v any) any {
	switch x := v.(type) {
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return int(n)
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case map[string]any:
		for k, e := range x {
			x[k] = plain(e)
		}
		return x
	case []any:
		for i, e := range x {
			x[i] = plain(e)
		}
		return x
	default:
		return v
	}
}
