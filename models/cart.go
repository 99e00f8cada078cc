package models

import "time"

// CartLine is one (book, quantity) entry. Name/Slug/Image are denormalized
// and Price is the unit price frozen at the time the line was added.
type CartLine struct {
	BookID   string  `json:"bookId" bson:"bookid"`
	Name     string  `json:"name" bson:"name"`
	Slug     string  `json:"slug" bson:"slug"`
	Image    string  `json:"image,omitempty" bson:"image,omitempty"`
	Price    float64 `json:"price" bson:"price"`
	Quantity int     `json:"quantity" bson:"quantity"`
}

// Cart is keyed by either an anonymous session token or a user id. The four
// totals are always the pricing function of Lines; every mutation recomputes
// them before persisting.
type Cart struct {
	CartID        string     `json:"cartId" bson:"cartid"`
	UserID        string     `json:"userId,omitempty" bson:"userid,omitempty"`
	SessionID     string     `json:"sessionId,omitempty" bson:"sessionid,omitempty"`
	Lines         []CartLine `json:"lines" bson:"lines"`
	ItemsPrice    float64    `json:"itemsPrice" bson:"itemsprice"`
	ShippingPrice float64    `json:"shippingPrice" bson:"shippingprice"`
	TaxPrice      float64    `json:"taxPrice" bson:"taxprice"`
	TotalPrice    float64    `json:"totalPrice" bson:"totalprice"`
	CreatedAt     time.Time  `json:"createdAt" bson:"createdat"`
	UpdatedAt     time.Time  `json:"updatedAt" bson:"updatedat"`
}
