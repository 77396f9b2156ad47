package checkout

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront-cart/internal/domain/cart"
)

func TestSplitPhone(t *testing.T) {
	tests := []struct {
		phone string
		want  Phone
	}{
		{phone: "", want: Phone{}},
		{phone: "(11) 98765-4321", want: Phone{AreaCode: "11", Number: "987654321"}},
		{phone: "21 3333 4444", want: Phone{AreaCode: "21", Number: "33334444"}},
		{phone: "7", want: Phone{AreaCode: "7"}},
		{phone: "no digits", want: Phone{}},
	}
	for _, tt := range tests {
		t.Run(tt.phone, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitPhone(tt.phone))
		})
	}
}

func TestValidEmail(t *testing.T) {
	assert.True(t, ValidEmail("a@b.com"))
	assert.True(t, ValidEmail("first.last+tag@mail.example.com.br"))
	assert.False(t, ValidEmail("not-an-email"))
	assert.False(t, ValidEmail("a@b"))
	assert.False(t, ValidEmail("a b@c.com"))
	assert.False(t, ValidEmail("a@@b.com"))
}

func TestValidCPF(t *testing.T) {
	tests := []struct {
		cpf  string
		want bool
	}{
		{cpf: "529.982.247-25", want: true},
		{cpf: "52998224725", want: true},
		{cpf: "529.982.247-26", want: false},
		{cpf: "111.111.111-11", want: false},
		{cpf: "123", want: false},
		{cpf: "", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.cpf, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidCPF(tt.cpf))
		})
	}
}

func TestBuildOrder(t *testing.T) {
	items := []cart.LineItem{
		{ID: "P1", Title: "Book", UnitPrice: decimal.RequireFromString("19.90"), Quantity: 2, Image: "img/book.jpg", Description: "Hardcover"},
		{ID: "7", Title: "Pen", UnitPrice: decimal.RequireFromString("0.50"), Quantity: 1},
	}
	data := CustomerData{Name: "Ana", Email: "ana@example.com", Document: "529.982.247-25"}

	o := BuildOrder("ref-1", items, data, "BRL")
	require.Len(t, o.Items, 2)
	assert.Equal(t, "ref-1", o.Reference)
	assert.Equal(t, OrderItem{
		ID:          "P1",
		Title:       "Book",
		Quantity:    2,
		UnitPrice:   items[0].UnitPrice,
		Description: "Hardcover",
		PictureURL:  "img/book.jpg",
		CurrencyID:  "BRL",
	}, o.Items[0])
	assert.True(t, decimal.RequireFromString("40.30").Equal(o.Total))
	assert.Equal(t, "52998224725", o.Payer.Document)
	assert.Equal(t, Phone{}, o.Payer.Phone)
}
