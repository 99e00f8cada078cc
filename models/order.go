package models

import "time"

// OrderLine is a frozen copy of a cart line. It references nothing in the
// catalog so later price edits never alter historical orders.
type OrderLine struct {
	BookID   string  `json:"bookId" bson:"bookid"`
	Name     string  `json:"name" bson:"name"`
	Slug     string  `json:"slug" bson:"slug"`
	Image    string  `json:"image,omitempty" bson:"image,omitempty"`
	Price    float64 `json:"price" bson:"price"`
	Quantity int     `json:"quantity" bson:"quantity"`
}

// ShippingAddress is the destination snapshot stored on the order.
type ShippingAddress struct {
	FullName      string `json:"fullName" bson:"fullname"`
	StreetAddress string `json:"streetAddress" bson:"streetaddress"`
	City          string `json:"city" bson:"city"`
	State         string `json:"state,omitempty" bson:"state,omitempty"`
	Country       string `json:"country" bson:"country"`
	PinCode       string `json:"pinCode" bson:"pincode"`
}

// PaymentResult holds whatever the payment provider reported at capture time.
// ID is written at intent creation and must match the capture callback.
type PaymentResult struct {
	ID         string  `json:"id" bson:"id"`
	Status     string  `json:"status" bson:"status"`
	PayerEmail string  `json:"payerEmail,omitempty" bson:"payeremail,omitempty"`
	PricePaid  float64 `json:"pricePaid,omitempty" bson:"pricepaid,omitempty"`
}

// Order is an immutable snapshot created from a priced cart. Only the
// isPaid/paidAt/paymentResult and isDelivered/deliveredAt fields change after
// creation, each exactly once.
type Order struct {
	OrderID         string          `json:"orderId" bson:"orderid"`
	UserID          string          `json:"userId" bson:"userid"`
	Lines           []OrderLine     `json:"lines" bson:"lines"`
	ShippingAddress ShippingAddress `json:"shippingAddress" bson:"shippingaddress"`
	PaymentMethod   string          `json:"paymentMethod" bson:"paymentmethod"`
	ItemsPrice      float64         `json:"itemsPrice" bson:"itemsprice"`
	ShippingPrice   float64         `json:"shippingPrice" bson:"shippingprice"`
	TaxPrice        float64         `json:"taxPrice" bson:"taxprice"`
	TotalPrice      float64         `json:"totalPrice" bson:"totalprice"`
	IsPaid          bool            `json:"isPaid" bson:"ispaid"`
	PaidAt          *time.Time      `json:"paidAt,omitempty" bson:"paidat,omitempty"`
	PaymentResult   *PaymentResult  `json:"paymentResult,omitempty" bson:"paymentresult,omitempty"`
	IsDelivered     bool            `json:"isDelivered" bson:"isdelivered"`
	DeliveredAt     *time.Time      `json:"deliveredAt,omitempty" bson:"deliveredat,omitempty"`
	CreatedAt       time.Time       `json:"createdAt" bson:"createdat"`
}
