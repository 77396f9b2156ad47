// Package checkout implements the two-step checkout wizard: customer data
// collection, order review, and the hand-off of the order to a payment
// gateway that answers with a redirect URL.
package checkout

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Step is the state of the checkout wizard.
type Step int

const (
	// StepClosed means the checkout modal is not shown.
	StepClosed Step = iota
	// StepCustomerInfo collects name, email, phone and notes.
	StepCustomerInfo
	// StepReview shows the order summary and the pay action.
	StepReview
)

func (s Step) String() string {
	switch s {
	case StepClosed:
		return "closed"
	case StepCustomerInfo:
		return "customer_info"
	case StepReview:
		return "review"
	default:
		return "unknown"
	}
}

var (
	// ErrCustomerIncomplete is returned when name or email is missing.
	ErrCustomerIncomplete = errors.New("name and email are required")
	// ErrInvalidEmail is returned when the email does not look like local@domain.tld.
	ErrInvalidEmail = errors.New("invalid email address")
	// ErrInvalidDocument is returned when a CPF was given but fails its checksum.
	ErrInvalidDocument = errors.New("invalid CPF")
	// ErrEmptyCart is returned when checkout is attempted without items.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrInvalidTransition is returned when an action is not allowed in the current step.
	ErrInvalidTransition = errors.New("action not allowed in current checkout step")
	// ErrCheckoutInProgress is returned when a payment submission is already outstanding.
	ErrCheckoutInProgress = errors.New("checkout already in progress")
)

// CustomerData is the contact information captured at step one.
type CustomerData struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
	Notes string `json:"notes,omitempty"`
	// Document is an optional CPF.
	Document string `json:"document,omitempty"`
}

// Order is the payload handed to a payment gateway.
type Order struct {
	// Reference uniquely identifies this submission attempt.
	Reference string
	Items     []OrderItem
	Payer     Payer
	Notes     string
	Total     decimal.Decimal
}

// OrderItem is a single order line.
type OrderItem struct {
	ID          string
	Title       string
	Quantity    int
	UnitPrice   decimal.Decimal
	Description string
	PictureURL  string
	CurrencyID  string
}

// Payer identifies the customer to the gateway.
type Payer struct {
	Name     string
	Email    string
	Phone    Phone
	Document string
}

// Phone is a phone number split into area code and subscriber number.
type Phone struct {
	AreaCode string
	Number   string
}

// Redirect is a successful gateway answer.
type Redirect struct {
	// URL is where the customer completes the payment.
	URL string
	// OrderID is the gateway-side identifier, when one is returned.
	OrderID string
}

// Gateway turns an order into a payment redirect. Implementations are
// interchangeable and selected by configuration.
type Gateway interface {
	Name() string
	Submit(ctx context.Context, o *Order) (*Redirect, error)
}

// Receipt records an order that was handed off for payment.
type Receipt struct {
	Reference   string
	Gateway     string
	OrderID     string
	RedirectURL string
	Total       decimal.Decimal
	ItemCount   int
	Email       string
	CreatedAt   time.Time
}

// Journal records receipts of completed hand-offs.
type Journal interface {
	Record(ctx context.Context, r *Receipt) error
}

// Display is the sink for checkout modal state.
type Display interface {
	ShowCheckout(step Step)
	HideCheckout()
	SetPayBusy(busy bool, label string)
	Navigate(url string)
}

// MessageError is implemented by errors that carry a message meant for the
// customer, such as a gateway's own failure description.
type MessageError interface {
	error
	UserMessage() string
}

const genericFailure = "Could not process your order. Please try again."

// UserMessage returns the most specific customer-facing message for a
// submission failure.
func UserMessage(err error) string {
	var me MessageError
	if errors.As(err, &me) {
		if msg := me.UserMessage(); msg != "" {
			return msg
		}
	}
	return genericFailure
}

type nopDisplay struct{}

func (nopDisplay) ShowCheckout(Step)       {}
func (nopDisplay) HideCheckout()           {}
func (nopDisplay) SetPayBusy(bool, string) {}
func (nopDisplay) Navigate(string)         {}
