package widget

import (
	"sync"

	"github.com/xenking/storefront-cart/internal/domain/cart"
	"github.com/xenking/storefront-cart/internal/domain/checkout"
)

// Screen records what the storefront should display: the last rendered cart,
// the counter badge, panel and modal visibility, the pay control and a
// pending navigation.
type Screen struct {
	mu       sync.Mutex
	view     cart.View
	counter  int
	cartOpen bool
	step     checkout.Step
	payBusy  bool
	payLabel string
	navigate string
}

var (
	_ cart.Renderer    = (*Screen)(nil)
	_ checkout.Display = (*Screen)(nil)
)

// NewScreen returns a Screen with the idle pay label set.
func NewScreen(payLabel string) *Screen {
	return &Screen{payLabel: payLabel}
}

// RenderCart implements cart.Renderer.
func (s *Screen) RenderCart(v cart.View) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view = v
	s.counter = v.TotalItems
}

// UpdateCounter implements cart.Renderer.
func (s *Screen) UpdateCounter(count int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counter = count
}

// ShowCheckout implements checkout.Display.
func (s *Screen) ShowCheckout(step checkout.Step) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.step = step
}

// HideCheckout implements checkout.Display.
func (s *Screen) HideCheckout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.step = checkout.StepClosed
}

// SetPayBusy implements checkout.Display.
func (s *Screen) SetPayBusy(busy bool, label string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payBusy = busy
	s.payLabel = label
}

// Navigate implements checkout.Display.
func (s *Screen) Navigate(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.navigate = url
}

func (s *Screen) setCartOpen(open bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cartOpen = open
}

// screenState is a consistent copy of the screen.
type screenState struct {
	view     cart.View
	counter  int
	cartOpen bool
	step     checkout.Step
	payBusy  bool
	payLabel string
	navigate string
}

func (s *Screen) state() screenState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return screenState{
		view:     s.view,
		counter:  s.counter,
		cartOpen: s.cartOpen,
		step:     s.step,
		payBusy:  s.payBusy,
		payLabel: s.payLabel,
		navigate: s.navigate,
	}
}

// takeNavigation returns and clears the pending navigation.
func (s *Screen) takeNavigation() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	url := s.navigate
	s.navigate = ""
	return url
}
