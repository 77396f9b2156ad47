// Package compat exposes the cart store through the legacy item shape
// (ID, Nome, Preço, Imagens, URL_Imagem) used by older storefront pages.
package compat

import (
	"cmp"
	"context"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/xenking/storefront-cart/internal/domain/cart"
)

// Record is a product or line item in the legacy shape.
type Record map[string]any

// Legacy outbound field names.
const (
	KeyID          = "ID"
	KeyName        = "Nome"
	KeyPrice       = "Preço"
	KeyQuantity    = "quantidade"
	KeyImages      = "Imagens"
	KeyImageURL    = "URL_Imagem"
	KeyDescription = "Descrição"
)

// Inbound key spellings, in lookup order, after folding.
var (
	idKeys          = []string{"id", "codigo", "idproduto"}
	nameKeys        = []string{"name", "nome", "title", "titulo"}
	priceKeys       = []string{"price", "preco", "priceraw"}
	imageKeys       = []string{"image", "imageurl"}
	descriptionKeys = []string{"description", "descricao"}
)

// Config holds the inbound fallbacks.
type Config struct {
	PlaceholderImage string
	DefaultName      string
}

// DefaultConfig returns the fallbacks used by the storefront.
func DefaultConfig() Config {
	return Config{
		PlaceholderImage: "assets/images/placeholder.jpg",
		DefaultName:      "Produto",
	}
}

// Facade mirrors legacy cart calls onto a Store.
type Facade struct {
	store *cart.Store
	cfg   Config
}

// New creates a Facade over s.
func New(s *cart.Store, cfg Config) *Facade {
	def := DefaultConfig()
	if cfg.PlaceholderImage == "" {
		cfg.PlaceholderImage = def.PlaceholderImage
	}
	if cfg.DefaultName == "" {
		cfg.DefaultName = def.DefaultName
	}
	return &Facade{store: s, cfg: cfg}
}

// FoldKey normalizes a field name for tolerant lookup: accents, case,
// underscores, hyphens and spaces are ignored, so "Preço", "PRECO" and
// "pre_co" all fold to "preco".
func FoldKey(key string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, key)
	if err != nil {
		folded = key
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '_', '-', ' ':
			return -1
		}
		return unicode.ToLower(r)
	}, folded)
}

type folded map[string]any

func fold(rec Record) folded {
	keys := make([]string, 0, len(rec))
	for k := range rec {
		keys = append(keys, k)
	}
	// Spellings already in folded form come first, the rest in byte order.
	slices.SortFunc(keys, func(a, b string) int {
		af, bf := a == FoldKey(a), b == FoldKey(b)
		if af != bf {
			if af {
				return -1
			}
			return 1
		}
		return cmp.Compare(a, b)
	})

	f := make(folded, len(rec))
	for _, k := range keys {
		key, v := FoldKey(k), rec[k]
		// A non-empty spelling wins over an empty one.
		if prev, ok := f[key]; ok && !isEmpty(prev) {
			continue
		}
		f[key] = v
	}
	return f
}

func (f folded) lookup(keys []string) (any, bool) {
	for _, k := range keys {
		if v, ok := f[k]; ok && !isEmpty(v) {
			return v, true
		}
	}
	return nil, false
}

func (f folded) str(keys []string) string {
	v, ok := f.lookup(keys)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

func isEmpty(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	case []any:
		return len(x) == 0
	case []string:
		return len(x) == 0
	}
	return false
}

// ToProduct translates a legacy record into a cart product. The id is left
// nil when no id key is present; Store.Add rejects such products.
func (f *Facade) ToProduct(rec Record) cart.Product {
	fr := fold(rec)

	p := cart.Product{
		Name:        f.cfg.DefaultName,
		Image:       f.cfg.PlaceholderImage,
		Description: fr.str(descriptionKeys),
	}
	if id, ok := fr.lookup(idKeys); ok {
		p.ID = id
	}
	if name := fr.str(nameKeys); name != "" {
		p.Name = name
	}
	if price, ok := fr.lookup(priceKeys); ok {
		p.Price = cart.ParsePrice(price)
	}
	if img := image(fr); img != "" {
		p.Image = img
	}
	return p
}

func image(fr folded) string {
	if s := fr.str(imageKeys); s != "" {
		return s
	}
	switch images := fr["imagens"].(type) {
	case []any:
		if len(images) > 0 {
			if s, ok := images[0].(string); ok && s != "" {
				return s
			}
		}
	case []string:
		if len(images) > 0 && images[0] != "" {
			return images[0]
		}
	}
	return fr.str([]string{"urlimagem"})
}

// ToRecord renders a line item in the legacy shape.
func ToRecord(it cart.LineItem) Record {
	images := []string{}
	if it.Image != "" {
		images = []string{it.Image}
	}
	return Record{
		KeyID:          it.ID,
		KeyName:        it.Title,
		KeyPrice:       it.UnitPrice.InexactFloat64(),
		KeyQuantity:    it.Quantity,
		KeyImages:      images,
		KeyImageURL:    it.Image,
		KeyDescription: it.Description,
	}
}

// Items returns the cart contents in the legacy shape.
func (f *Facade) Items() []Record {
	items := f.store.Items()
	out := make([]Record, len(items))
	for i, it := range items {
		out[i] = ToRecord(it)
	}
	return out
}

// Add adds a legacy product record. A quantity above 1 is applied after the
// add, subject to the store's cap.
func (f *Facade) Add(ctx context.Context, rec Record, quantity int) bool {
	defer f.store.RefreshCounter()

	p := f.ToProduct(rec)
	if !f.store.Add(ctx, p) {
		return false
	}
	if quantity > 1 {
		f.store.UpdateQuantity(ctx, p.ID, quantity)
	}
	return true
}

// Remove removes by id. When no item has that id and idOrIndex is an
// in-range integer or numeric string, it is taken as a position in the item
// list.
func (f *Facade) Remove(ctx context.Context, idOrIndex any) {
	defer f.store.RefreshCounter()

	if _, ok := f.store.Item(idOrIndex); ok {
		f.store.Remove(ctx, idOrIndex)
		return
	}
	idx, ok := index(idOrIndex)
	if !ok {
		return
	}
	items := f.store.Items()
	if idx < len(items) {
		f.store.Remove(ctx, items[idx].ID)
	}
}

func index(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, x >= 0
	case int64:
		return int(x), x >= 0
	case float64:
		if x != float64(int(x)) {
			return 0, false
		}
		return int(x), x >= 0
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(x))
		if err != nil {
			return 0, false
		}
		return n, n >= 0
	}
	return 0, false
}

// Increment raises the quantity of id by one, subject to the cap.
func (f *Facade) Increment(ctx context.Context, id any) {
	f.step(ctx, id, 1)
}

// Decrement lowers the quantity of id by one, never below one.
func (f *Facade) Decrement(ctx context.Context, id any) {
	f.step(ctx, id, -1)
}

func (f *Facade) step(ctx context.Context, id any, delta int) {
	defer f.store.RefreshCounter()

	it, ok := f.store.Item(id)
	if !ok {
		return
	}
	f.store.UpdateQuantity(ctx, it.ID, it.Quantity+delta)
}

// SetQuantity sets the quantity of id. Non-numeric input counts as 1.
func (f *Facade) SetQuantity(ctx context.Context, id, quantity any) {
	defer f.store.RefreshCounter()
	f.store.UpdateQuantity(ctx, id, quantity)
}

// Clear empties the cart after confirmation.
func (f *Facade) Clear(ctx context.Context, c cart.Confirmer) bool {
	defer f.store.RefreshCounter()
	return f.store.Clear(ctx, c)
}

// Total returns the cart value as a number, as legacy callers expect.
func (f *Facade) Total() float64 {
	return f.store.TotalValue().InexactFloat64()
}

// TotalItems returns the sum of quantities.
func (f *Facade) TotalItems() int {
	return f.store.TotalItems()
}
