package handler

import (
	"net/http"

	"github.com/xenking/storefront-cart/internal/domain/compat"
)

type legacyItemsResponse struct {
	Items      []compat.Record `json:"items"`
	Total      float64         `json:"total"`
	TotalItems int             `json:"total_items"`
}

func (h *Handler) legacyItems(w http.ResponseWriter, _ *http.Request) {
	f := h.widget.Legacy
	writeJSON(w, http.StatusOK, legacyItemsResponse{
		Items:      f.Items(),
		Total:      f.Total(),
		TotalItems: f.TotalItems(),
	})
}

// legacyAddRequest is a legacy product record plus the requested quantity.
type legacyAddRequest struct {
	Record   map[string]any `json:"record"`
	Quantity int            `json:"quantity"`
}

func (h *Handler) legacyAdd(w http.ResponseWriter, r *http.Request) {
	var req legacyAddRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, http.StatusBadRequest, err)
		return
	}
	rec, _ := plain(req.Record).(map[string]any)
	if !h.widget.Legacy.Add(r.Context(), compat.Record(rec), req.Quantity) {
		h.fail(w, r, http.StatusUnprocessableEntity, errNotAdded)
		return
	}
	h.state(w, http.StatusCreated)
}

func (h *Handler) legacyRemove(w http.ResponseWriter, r *http.Request) {
	h.widget.Legacy.Remove(r.Context(), r.PathValue("id"))
	h.state(w, http.StatusOK)
}

func (h *Handler) legacyStep(delta int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if delta > 0 {
			h.widget.Legacy.Increment(r.Context(), r.PathValue("id"))
		} else {
			h.widget.Legacy.Decrement(r.Context(), r.PathValue("id"))
		}
		h.state(w, http.StatusOK)
	}
}

func (h *Handler) legacySetQuantity(w http.ResponseWriter, r *http.Request) {
	var req quantityRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, http.StatusBadRequest, err)
		return
	}
	h.widget.Legacy.SetQuantity(r.Context(), r.PathValue("id"), plain(req.Quantity))
	h.state(w, http.StatusOK)
}

func (h *Handler) legacyClear(w http.ResponseWriter, r *http.Request) {
	var req clearRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, http.StatusBadRequest, err)
		return
	}
	h.widget.Legacy.Clear(r.Context(), req.confirmer())
	h.state(w, http.StatusOK)
}
