package cart

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  decimal.Decimal
	}{
		{name: "comma decimal", input: "19,90", want: d("19.90")},
		{name: "dot decimal", input: "19.90", want: d("19.90")},
		{name: "currency prefix", input: "R$ 7", want: d("7")},
		{name: "currency with comma", input: "R$ 19,90", want: d("19.90")},
		{name: "surrounding whitespace", input: "  12,5 ", want: d("12.5")},
		{name: "thousands separator stops at second period", input: "1.234,56", want: d("1.234")},
		{name: "leading period", input: ",5", want: d("0.5")},
		{name: "trailing period", input: "5.", want: d("5")},
		{name: "empty string", input: "", want: decimal.Zero},
		{name: "garbage", input: "free!", want: decimal.Zero},
		{name: "nil", input: nil, want: decimal.Zero},
		{name: "float", input: 19.9, want: d("19.9")},
		{name: "int", input: 7, want: d("7")},
		{name: "negative number", input: -3.5, want: decimal.Zero},
		{name: "NaN", input: math.NaN(), want: decimal.Zero},
		{name: "infinity", input: math.Inf(1), want: decimal.Zero},
		{name: "unsupported type", input: []string{"1"}, want: decimal.Zero},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParsePrice(tt.input)
			assert.True(t, tt.want.Equal(got), "expected %s, got %s", tt.want, got)
		})
	}
}

func TestCoerceID(t *testing.T) {
	tests := []struct {
		name   string
		input  any
		want   string
		wantOK bool
	}{
		{name: "string", input: "P1", want: "P1", wantOK: true},
		{name: "trimmed string", input: " P1 ", want: "P1", wantOK: true},
		{name: "integral float", input: float64(12), want: "12", wantOK: true},
		{name: "fractional float", input: 1.5, want: "1.5", wantOK: true},
		{name: "int", input: 42, want: "42", wantOK: true},
		{name: "empty string", input: "", wantOK: false},
		{name: "nil", input: nil, wantOK: false},
		{name: "unsupported", input: []int{1}, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := CoerceID(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "R$ 19,90", FormatPrice(d("19.9")))
	assert.Equal(t, "R$ 0,00", FormatPrice(decimal.Zero))
	assert.Equal(t, "R$ 1234,57", FormatPrice(d("1234.567")))
}
