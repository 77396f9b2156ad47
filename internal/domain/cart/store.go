package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Config controls the store's storage slot and quantity cap.
type Config struct {
	// StorageKey names the slot the item list is persisted under.
	StorageKey string
	// MaxQuantity caps the quantity of a single line item. Values below 1
	// are treated as 1.
	MaxQuantity int
}

// DefaultConfig returns the configuration observed in production.
func DefaultConfig() Config {
	return Config{
		StorageKey:  "materiaisdaprofe_carrinho",
		MaxQuantity: 1,
	}
}

// Option configures optional Store collaborators.
type Option func(*Store)

// WithNotifier sets the notification channel.
func WithNotifier(n Notifier) Option {
	return func(s *Store) { s.notifier = n }
}

// WithRenderer sets the render sink.
func WithRenderer(r Renderer) Option {
	return func(s *Store) { s.renderer = r }
}

// WithLogger sets the developer log used for persistence failures.
func WithLogger(lg *zap.Logger) Option {
	return func(s *Store) { s.lg = lg }
}

// Store owns the authoritative list of line items.
//
// Collaborators (notifier, renderer, clear hooks) are invoked after the
// store's lock is released, so they may read the store.
type Store struct {
	storage  Storage
	cfg      Config
	notifier Notifier
	renderer Renderer
	lg       *zap.Logger

	mu      sync.Mutex
	items   []LineItem
	onClear []func()
}

// NewStore creates a Store and hydrates it from storage. Hydration never
// fails: a missing slot yields an empty cart, and corrupt data or storage
// errors are logged and also yield an empty cart.
func NewStore(ctx context.Context, storage Storage, cfg Config, opts ...Option) *Store {
	if cfg.StorageKey == "" {
		cfg.StorageKey = DefaultConfig().StorageKey
	}
	if cfg.MaxQuantity < 1 {
		cfg.MaxQuantity = 1
	}
	s := &Store{
		storage:  storage,
		cfg:      cfg,
		notifier: nopNotifier{},
		renderer: nopRenderer{},
		lg:       zap.NewNop(),
	}
	for _, o := range opts {
		o(s)
	}
	s.items = s.load(ctx)
	return s
}

// MaxQuantity returns the configured per-item quantity cap.
func (s *Store) MaxQuantity() int {
	return s.cfg.MaxQuantity
}

// OnClear registers fn to run whenever the cart is emptied by Clear or Reset.
func (s *Store) OnClear(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onClear = append(s.onClear, fn)
}

// Add appends a product as a new line item with quantity 1. Re-adding an
// existing id is rejected with a warning and never updates the stored item.
func (s *Store) Add(ctx context.Context, p Product) bool {
	id, ok := CoerceID(p.ID)
	if !ok || strings.TrimSpace(p.Name) == "" {
		s.notifier.Notify("Error: invalid product", SeverityError)
		return false
	}

	s.mu.Lock()
	if s.indexOf(id) >= 0 {
		s.mu.Unlock()
		s.notifier.Notify(fmt.Sprintf("%s is already in the cart!", p.Name), SeverityWarning)
		return false
	}
	s.items = append(s.items, LineItem{
		ID:          id,
		Title:       p.Name,
		UnitPrice:   ParsePrice(p.Price),
		Quantity:    1,
		Image:       p.Image,
		Description: p.Description,
	})
	s.save(ctx)
	count := s.totalItems()
	s.mu.Unlock()

	s.renderer.UpdateCounter(count)
	s.notifier.Notify(fmt.Sprintf("%s added to the cart!", p.Name), SeveritySuccess)
	return true
}

// Remove deletes the line item with the given id. Unknown ids are ignored.
func (s *Store) Remove(ctx context.Context, id any) {
	key, ok := CoerceID(id)
	if !ok {
		return
	}

	s.mu.Lock()
	idx := s.indexOf(key)
	if idx < 0 {
		s.mu.Unlock()
		return
	}
	removed := s.items[idx]
	s.items = slices.Delete(s.items, idx, idx+1)
	s.save(ctx)
	v := s.view()
	s.mu.Unlock()

	s.push(v)
	s.notifier.Notify(fmt.Sprintf("%s removed from the cart", removed.Title), SeverityInfo)
}

// UpdateQuantity sets the quantity of an existing item, clamped to
// [1, MaxQuantity]. Missing or non-numeric input counts as 1. Unknown ids
// are ignored. No notification is emitted.
func (s *Store) UpdateQuantity(ctx context.Context, id, requested any) {
	key, ok := CoerceID(id)
	if !ok {
		return
	}

	s.mu.Lock()
	idx := s.indexOf(key)
	if idx < 0 {
		s.mu.Unlock()
		return
	}
	s.items[idx].Quantity = clamp(coerceQuantity(requested), s.cfg.MaxQuantity)
	s.save(ctx)
	v := s.view()
	s.mu.Unlock()

	s.push(v)
}

// Clear empties the cart after an explicit confirmation. An already empty
// cart only produces an info notification. It reports whether the cart was
// cleared.
func (s *Store) Clear(ctx context.Context, c Confirmer) bool {
	s.mu.Lock()
	empty := len(s.items) == 0
	s.mu.Unlock()

	if empty {
		s.notifier.Notify("The cart is already empty", SeverityInfo)
		return false
	}
	if c == nil || !c.Confirm("Are you sure you want to clear the cart?") {
		return false
	}

	s.empty(ctx)
	s.notifier.Notify("Cart cleared!", SeverityInfo)
	return true
}

// Reset empties the cart without confirmation or notification. It is used
// once an order has been handed off for payment.
func (s *Store) Reset(ctx context.Context) {
	s.empty(ctx)
}

func (s *Store) empty(ctx context.Context) {
	s.mu.Lock()
	s.items = nil
	s.save(ctx)
	v := s.view()
	hooks := slices.Clone(s.onClear)
	s.mu.Unlock()

	s.push(v)
	for _, fn := range hooks {
		fn()
	}
}

// Sync re-reads the storage slot, picking up changes made by another
// session sharing it, and refreshes the counter.
func (s *Store) Sync(ctx context.Context) {
	items := s.load(ctx)

	s.mu.Lock()
	s.items = items
	count := s.totalItems()
	s.mu.Unlock()

	s.renderer.UpdateCounter(count)
}

// Items returns a copy of the current line items in insertion order.
func (s *Store) Items() []LineItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.items)
}

// Item returns the line item with the given id.
func (s *Store) Item(id any) (LineItem, bool) {
	key, ok := CoerceID(id)
	if !ok {
		return LineItem{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx := s.indexOf(key); idx >= 0 {
		return s.items[idx], true
	}
	return LineItem{}, false
}

// TotalItems returns the sum of quantities.
func (s *Store) TotalItems() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalItems()
}

// TotalValue returns the sum of UnitPrice * Quantity over all items.
func (s *Store) TotalValue() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalValue()
}

// View returns the render-ready state.
func (s *Store) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view()
}

// Render pushes the current state to the renderer.
func (s *Store) Render() {
	s.renderer.RenderCart(s.View())
}

// RefreshCounter pushes the current item count to the renderer.
func (s *Store) RefreshCounter() {
	s.renderer.UpdateCounter(s.TotalItems())
}

func (s *Store) push(v View) {
	s.renderer.UpdateCounter(v.TotalItems)
	s.renderer.RenderCart(v)
}

// indexOf requires s.mu.
func (s *Store) indexOf(id string) int {
	return slices.IndexFunc(s.items, func(it LineItem) bool { return it.ID == id })
}

func (s *Store) totalItems() int {
	n := 0
	for _, it := range s.items {
		n += it.Quantity
	}
	return n
}

func (s *Store) totalValue() decimal.Decimal {
	total := decimal.Zero
	for _, it := range s.items {
		total = total.Add(it.Total())
	}
	return total
}

func (s *Store) view() View {
	return View{
		Items:      slices.Clone(s.items),
		TotalItems: s.totalItems(),
		TotalValue: s.totalValue(),
	}
}

// save persists the item list. Write failures are logged and swallowed.
func (s *Store) save(ctx context.Context) {
	items := s.items
	if items == nil {
		items = []LineItem{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		s.lg.Error("Encode cart", zap.Error(err))
		return
	}
	if err := s.storage.Save(ctx, s.cfg.StorageKey, data); err != nil {
		s.lg.Error("Save cart",
			zap.String("key", s.cfg.StorageKey),
			zap.Error(err),
		)
	}
}

func (s *Store) load(ctx context.Context) []LineItem {
	data, err := s.storage.Load(ctx, s.cfg.StorageKey)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.lg.Error("Load cart",
				zap.String("key", s.cfg.StorageKey),
				zap.Error(err),
			)
		}
		return nil
	}
	if len(data) == 0 {
		return nil
	}

	var items []LineItem
	if err := json.Unmarshal(data, &items); err != nil {
		s.lg.Error("Decode cart",
			zap.String("key", s.cfg.StorageKey),
			zap.Error(err),
		)
		return nil
	}
	return normalize(items, s.cfg.MaxQuantity)
}

// normalize keeps the first entry per id, drops entries without one and
// re-clamps quantities, so hand-edited or legacy slots cannot break the
// store's invariants.
func normalize(items []LineItem, maxQuantity int) []LineItem {
	seen := make(map[string]struct{}, len(items))
	out := items[:0]
	for _, it := range items {
		if it.ID == "" {
			continue
		}
		if _, ok := seen[it.ID]; ok {
			continue
		}
		seen[it.ID] = struct{}{}
		it.Quantity = clamp(it.Quantity, maxQuantity)
		it.UnitPrice = nonNegative(it.UnitPrice)
		out = append(out, it)
	}
	return out
}
