// Package pricing computes cart and order totals. It is pure arithmetic: no
// storage, no I/O, no failure modes.
package pricing

import "math"

const (
	// Orders above this items subtotal ship free.
	FreeShippingThreshold = 500.00
	FlatShippingFee       = 30.00
	TaxRate               = 0.10
)

// Line is the minimal shape the calculator needs from a cart or order line.
type Line struct {
	Price    float64
	Quantity int
}

// Totals is the four derived amounts stored on every cart and frozen onto
// every order.
type Totals struct {
	ItemsPrice    float64
	ShippingPrice float64
	TaxPrice      float64
	TotalPrice    float64
}

// Round2 rounds half-up to two decimal places.
func Round2(v float64) float64 {
	return math.Floor(v*100+0.5) / 100
}

// Calculate derives totals from lines. Shipping is free once the items
// subtotal reaches the threshold; 499.99 pays the flat fee, 500.00 does not.
func Calculate(lines []Line) Totals {
	var items float64
	for _, l := range lines {
		items += l.Price * float64(l.Quantity)
	}
	items = Round2(items)

	shipping := FlatShippingFee
	if items >= FreeShippingThreshold {
		shipping = 0
	}

	tax := Round2(items * TaxRate)

	return Totals{
		ItemsPrice:    items,
		ShippingPrice: shipping,
		TaxPrice:      tax,
		TotalPrice:    Round2(items + shipping + tax),
	}
}
