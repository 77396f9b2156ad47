// Package cart implements the storefront cart store: line items keyed by
// product id, quantity clamping, totals and synchronous persistence to a
// single storage slot.
package cart

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned by Storage when the requested slot holds no data.
var ErrNotFound = errors.New("storage slot not found")

// Severity classifies a user-facing notification.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// LineItem is one product entry in the cart.
type LineItem struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
	Image       string          `json:"image"`
	Description string          `json:"description"`
}

// Total returns UnitPrice * Quantity.
func (i LineItem) Total() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Product is an external product record accepted by Store.Add. ID may be a
// string or a number; Price may be a number or a string in either decimal
// notation ("19,90" or "19.90").
type Product struct {
	ID          any    `json:"id"`
	Name        string `json:"name"`
	Price       any    `json:"price"`
	Image       string `json:"image,omitempty"`
	Description string `json:"description,omitempty"`
}

// View is the render-ready state of the cart.
type View struct {
	Items      []LineItem
	TotalItems int
	TotalValue decimal.Decimal
}

// Storage is a key-value persistence service for serialized cart state.
type Storage interface {
	// Load returns the bytes stored under key, or ErrNotFound.
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
}

// Notifier receives user-facing notifications.
type Notifier interface {
	Notify(message string, severity Severity)
}

// Renderer is the sink for render-ready cart state.
type Renderer interface {
	RenderCart(v View)
	UpdateCounter(count int)
}

// Confirmer asks the user for an explicit confirmation.
type Confirmer interface {
	Confirm(prompt string) bool
}

// ConfirmFunc adapts a function to the Confirmer interface.
type ConfirmFunc func(prompt string) bool

// Confirm calls f(prompt).
func (f ConfirmFunc) Confirm(prompt string) bool {
	return f(prompt)
}

type nopNotifier struct{}

func (nopNotifier) Notify(string, Severity) {}

type nopRenderer struct{}

func (nopRenderer) RenderCart(View)   {}
func (nopRenderer) UpdateCounter(int) {}
