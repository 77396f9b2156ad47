package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront-cart/internal/domain/checkout"
	"github.com/xenking/storefront-cart/internal/widget"
)

var errCheckoutUnavailable = errors.New("checkout needs items in the cart")

// statusOf maps checkout errors to HTTP statuses. Anything not recognized is
// a gateway failure.
func statusOf(err error) int {
	switch {
	case errors.Is(err, checkout.ErrInvalidTransition),
		errors.Is(err, checkout.ErrCheckoutInProgress):
		return http.StatusConflict
	case errors.Is(err, checkout.ErrCustomerIncomplete),
		errors.Is(err, checkout.ErrInvalidEmail),
		errors.Is(err, checkout.ErrInvalidDocument),
		errors.Is(err, checkout.ErrEmptyCart):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadGateway
	}
}

func (h *Handler) openCheckout(w http.ResponseWriter, r *http.Request) {
	if !h.widget.Checkout.Open() {
		h.fail(w, r, http.StatusUnprocessableEntity, errCheckoutUnavailable)
		return
	}
	h.state(w, http.StatusOK)
}

func (h *Handler) continueCheckout(w http.ResponseWriter, r *http.Request) {
	var data checkout.CustomerData
	if err := decode(w, r, &data); err != nil {
		h.fail(w, r, http.StatusBadRequest, err)
		return
	}
	if err := h.widget.Checkout.Continue(data); err != nil {
		h.fail(w, r, statusOf(err), err)
		return
	}
	h.state(w, http.StatusOK)
}

func (h *Handler) backCheckout(w http.ResponseWriter, r *http.Request) {
	if err := h.widget.Checkout.Back(); err != nil {
		h.fail(w, r, statusOf(err), err)
		return
	}
	h.state(w, http.StatusOK)
}

func (h *Handler) cancelCheckout(w http.ResponseWriter, _ *http.Request) {
	h.widget.Checkout.Cancel()
	h.state(w, http.StatusOK)
}

// receiptResponse is the public form of a checkout receipt.
type receiptResponse struct {
	Reference   string          `json:"reference"`
	Gateway     string          `json:"gateway"`
	OrderID     string          `json:"order_id,omitempty"`
	RedirectURL string          `json:"redirect_url"`
	Total       decimal.Decimal `json:"total"`
	ItemCount   int             `json:"item_count"`
	CreatedAt   time.Time       `json:"created_at"`
}

func toReceiptResponse(r checkout.Receipt) receiptResponse {
	return receiptResponse{
		Reference:   r.Reference,
		Gateway:     r.Gateway,
		OrderID:     r.OrderID,
		RedirectURL: r.RedirectURL,
		Total:       r.Total,
		ItemCount:   r.ItemCount,
		CreatedAt:   r.CreatedAt,
	}
}

// payResponse carries the receipt and the widget state. State.Navigate is
// where the client must send the customer.
type payResponse struct {
	Receipt receiptResponse `json:"receipt"`
	State   widget.Snapshot `json:"state"`
}

func (h *Handler) pay(w http.ResponseWriter, r *http.Request) {
	receipt, err := h.widget.Checkout.Pay(r.Context())
	if err != nil {
		h.fail(w, r, statusOf(err), err)
		return
	}
	writeJSON(w, http.StatusOK, payResponse{
		Receipt: toReceiptResponse(*receipt),
		State:   h.widget.Snapshot(),
	})
}

const (
	defaultReceiptLimit = 20
	maxReceiptLimit     = 100
)

func (h *Handler) listReceipts(w http.ResponseWriter, r *http.Request) {
	if h.receipts == nil {
		h.fail(w, r, http.StatusNotFound, errors.New("receipt journal is not configured"))
		return
	}
	limit := defaultReceiptLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			h.fail(w, r, http.StatusBadRequest, errors.Errorf("invalid limit %q", v))
			return
		}
		limit = min(n, maxReceiptLimit)
	}
	list, err := h.receipts.Recent(r.Context(), limit)
	if err != nil {
		h.fail(w, r, http.StatusInternalServerError, errors.Wrap(err, "list receipts"))
		return
	}
	out := make([]receiptResponse, len(list))
	for i, rc := range list {
		out[i] = toReceiptResponse(rc)
	}
	writeJSON(w, http.StatusOK, out)
}
