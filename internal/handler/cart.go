package handler

import (
	"net/http"

	"github.com/go-faster/errors"

	"github.com/xenking/storefront-cart/internal/domain/cart"
)

var errNotAdded = errors.New("product was not added")

func (h *Handler) addItem(w http.ResponseWriter, r *http.Request) {
	var p cart.Product
	if err := decode(w, r, &p); err != nil {
		h.fail(w, r, http.StatusBadRequest, err)
		return
	}
	p.ID = plain(p.ID)
	p.Price = plain(p.Price)

	if !h.widget.Store.Add(r.Context(), p) {
		h.fail(w, r, http.StatusUnprocessableEntity, errNotAdded)
		return
	}
	h.state(w, http.StatusCreated)
}

func (h *Handler) removeItem(w http.ResponseWriter, r *http.Request) {
	h.widget.Store.Remove(r.Context(), r.PathValue("id"))
	h.state(w, http.StatusOK)
}

type quantityRequest struct {
	Quantity any `json:"quantity"`
}

func (h *Handler) updateQuantity(w http.ResponseWriter, r *http.Request) {
	var req quantityRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, http.StatusBadRequest, err)
		return
	}
	h.widget.Store.UpdateQuantity(r.Context(), r.PathValue("id"), plain(req.Quantity))
	h.state(w, http.StatusOK)
}

// clearRequest carries the answer to the clear-cart confirmation prompt.
type clearRequest struct {
	Confirm bool `json:"confirm"`
}

func (r clearRequest) confirmer() cart.Confirmer {
	return cart.ConfirmFunc(func(string) bool { return r.Confirm })
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	var req clearRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, http.StatusBadRequest, err)
		return
	}
	h.widget.Store.Clear(r.Context(), req.confirmer())
	h.state(w, http.StatusOK)
}
