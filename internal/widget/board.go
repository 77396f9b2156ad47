package widget

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xenking/storefront-cart/internal/domain/cart"
)

// DefaultDismissDelay is how long a notification stays visible.
const DefaultDismissDelay = 5 * time.Second

// Notification is a visible user notification.
type Notification struct {
	ID        string        `json:"id"`
	Message   string        `json:"message"`
	Severity  cart.Severity `json:"severity"`
	CreatedAt time.Time     `json:"created_at"`
	ExpiresAt time.Time     `json:"expires_at"`
}

// Board is the notification channel. Only one notification is visible at a
// time: a new one replaces the current one. Notifications expire after the
// dismiss delay and may be dismissed earlier.
type Board struct {
	delay time.Duration
	now   func() time.Time
	lg    *zap.Logger

	mu      sync.Mutex
	current *Notification
}

var _ cart.Notifier = (*Board)(nil)

// NewBoard creates a Board. A non-positive delay selects DefaultDismissDelay.
func NewBoard(delay time.Duration, lg *zap.Logger) *Board {
	if delay <= 0 {
		delay = DefaultDismissDelay
	}
	if lg == nil {
		lg = zap.NewNop()
	}
	return &Board{delay: delay, now: time.Now, lg: lg}
}

// Notify implements cart.Notifier.
func (b *Board) Notify(message string, severity cart.Severity) {
	now := b.now()
	n := &Notification{
		ID:        uuid.NewString(),
		Message:   message,
		Severity:  severity,
		CreatedAt: now,
		ExpiresAt: now.Add(b.delay),
	}

	b.mu.Lock()
	b.current = n
	b.mu.Unlock()

	b.lg.Debug("Notification",
		zap.String("id", n.ID),
		zap.String("severity", string(severity)),
		zap.String("message", message),
	)
}

// Current returns the visible notification, if any.
func (b *Board) Current() (Notification, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current == nil {
		return Notification{}, false
	}
	if !b.now().Before(b.current.ExpiresAt) {
		b.current = nil
		return Notification{}, false
	}
	return *b.current, true
}

// Dismiss hides the notification with the given id. It reports whether that
// notification was visible.
func (b *Board) Dismiss(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current == nil || b.current.ID != id {
		return false
	}
	b.current = nil
	return true
}
