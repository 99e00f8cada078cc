package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculateDeterministic(t *testing.T) {
	lines := []Line{
		{Price: 199.99, Quantity: 2},
		{Price: 45.50, Quantity: 1},
		{Price: 9.99, Quantity: 3},
	}
	first := Calculate(lines)
	second := Calculate(lines)
	assert.Equal(t, first, second)
}

func TestShippingThreshold(t *testing.T) {
	tests := []struct {
		name         string
		lines        []Line
		wantItems    float64
		wantShipping float64
	}{
		{"at threshold ships free", []Line{{Price: 500.00, Quantity: 1}}, 500.00, 0},
		{"just below pays flat fee", []Line{{Price: 499.99, Quantity: 1}}, 499.99, 30.00},
		{"well above ships free", []Line{{Price: 300.00, Quantity: 2}}, 600.00, 0},
		{"small order pays flat fee", []Line{{Price: 12.00, Quantity: 1}}, 12.00, 30.00},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Calculate(tt.lines)
			assert.Equal(t, tt.wantItems, got.ItemsPrice)
			assert.Equal(t, tt.wantShipping, got.ShippingPrice)
		})
	}
}

func TestTaxRoundHalfUp(t *testing.T) {
	got := Calculate([]Line{{Price: 100.00, Quantity: 1}})
	assert.Equal(t, 10.00, got.TaxPrice)

	got = Calculate([]Line{{Price: 33.33, Quantity: 1}})
	assert.Equal(t, 3.33, got.TaxPrice)

	// 0.125 rounds up, not to even
	assert.Equal(t, 0.13, Round2(0.125))
}

func TestTotalsAddUp(t *testing.T) {
	got := Calculate([]Line{{Price: 120.00, Quantity: 2}})
	assert.Equal(t, 240.00, got.ItemsPrice)
	assert.Equal(t, 30.00, got.ShippingPrice)
	assert.Equal(t, 24.00, got.TaxPrice)
	assert.Equal(t, 294.00, got.TotalPrice)
}

func TestEmptyLines(t *testing.T) {
	got := Calculate(nil)
	assert.Equal(t, 0.00, got.ItemsPrice)
	assert.Equal(t, 30.00, got.ShippingPrice)
	assert.Equal(t, 0.00, got.TaxPrice)
	assert.Equal(t, 30.00, got.TotalPrice)
}
