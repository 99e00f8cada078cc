package models

import "time"

// User is an account record. Password holds the bcrypt hash; it is never
// serialized back to clients.
type User struct {
	UserID        string    `json:"userId" bson:"userid"`
	Name          string    `json:"name" bson:"name"`
	Email         string    `json:"email" bson:"email"`
	Password      string    `json:"-" bson:"password"`
	Role          []string  `json:"role" bson:"role"`
	PaymentMethod string    `json:"paymentMethod,omitempty" bson:"paymentmethod,omitempty"`
	RefreshToken  string    `json:"-" bson:"refresh_token,omitempty"`
	RefreshExpiry time.Time `json:"-" bson:"refresh_expiry,omitempty"`
	LastLogin     time.Time `json:"-" bson:"last_login,omitempty"`
	CreatedAt     time.Time `json:"createdAt" bson:"createdat"`
}

// Address is a saved shipping address; at most one per user is the default.
type Address struct {
	AddressID     string    `json:"addressId" bson:"addressid"`
	UserID        string    `json:"userId" bson:"userid"`
	FullName      string    `json:"fullName" bson:"fullname"`
	StreetAddress string    `json:"streetAddress" bson:"streetaddress"`
	City          string    `json:"city" bson:"city"`
	State         string    `json:"state,omitempty" bson:"state,omitempty"`
	Country       string    `json:"country" bson:"country"`
	PinCode       string    `json:"pinCode" bson:"pincode"`
	IsDefault     bool      `json:"isDefault" bson:"isdefault"`
	CreatedAt     time.Time `json:"createdAt" bson:"createdat"`
}
