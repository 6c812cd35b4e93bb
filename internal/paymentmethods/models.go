package paymentmethods

import (
	"encoding/json"
	"time"
)

const (
	ServiceStripe  = "stripe"
	TypeCreditCard = "creditcard"
)

// PaymentMethod is a stored instrument usable to fund an order.
type PaymentMethod struct {
	ID              int64
	UUID            string
	CollectiveID    int64
	CreatedByUserID int64
	Name            string
	Service         string
	Type            string
	Token           string
	CustomerID      string
	Currency        string
	Saved           bool
	Data            Data
	// StripeError is set after a rejected provisioning attempt and never
	// cleared by this service.
	StripeError *StripeError
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Data holds the card details sent by the client along with the token.
type Data struct {
	Brand    string `json:"brand" validate:"required"`
	Country  string `json:"country" validate:"required,len=2"`
	ExpMonth int    `json:"expMonth" validate:"required,min=1,max=12"`
	ExpYear  int    `json:"expYear" validate:"required,min=2000"`
	FullName string `json:"fullName,omitempty"`
	Funding  string `json:"funding,omitempty"`
	Zip      string `json:"zip,omitempty"`
}

type StripeError struct {
	Message  string          `json:"message"`
	Response json.RawMessage `json:"response"`
}
