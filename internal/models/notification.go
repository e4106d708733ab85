package models

import (
	"encoding/json"
	"strconv"
	"time"
)

// Mailbox buckets read by the notification workers.
const (
	BucketUserRegistrations  = "user-registrations"
	BucketOrderConfirmations = "order-confirmations"
)

// WelcomeMessage is the object written to the user-registrations bucket.
type WelcomeMessage struct {
	UserData WelcomeData `json:"userData"`
}

type WelcomeData struct {
	UserID           string    `json:"userId"`
	Username         string    `json:"username"`
	Email            string    `json:"email"`
	RegistrationDate time.Time `json:"registrationDate"`
}

// OrderConfirmationMessage is the object written to the order-confirmations bucket.
type OrderConfirmationMessage struct {
	OrderData OrderConfirmationData `json:"orderData"`
}

type OrderConfirmationData struct {
	OrderID   string             `json:"orderId"`
	UserID    string             `json:"userId"`
	Username  string             `json:"username"`
	Email     string             `json:"email"`
	Items     []NotificationItem `json:"items"`
	Total     FlexFloat          `json:"total"`
	OrderDate time.Time          `json:"orderDate"`
}

type NotificationItem struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Price    FlexFloat `json:"price"`
	Quantity FlexInt   `json:"quantity"`
}

// UnmarshalJSON defaults a missing quantity to one.
func (i *NotificationItem) UnmarshalJSON(b []byte) error {
	type plain NotificationItem
	p := plain{Quantity: 1}
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*i = NotificationItem(p)
	return nil
}

// FlexFloat decodes a JSON number or numeric string. Anything unparseable
// decodes to zero.
type FlexFloat float64

func (f *FlexFloat) UnmarshalJSON(b []byte) error {
	*f = 0
	var n float64
	if err := json.Unmarshal(b, &n); err == nil {
		*f = FlexFloat(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			*f = FlexFloat(v)
		}
	}
	return nil
}

// FlexInt decodes a JSON number or numeric string. Null and unparseable
// values decode to one.
type FlexInt int

func (q *FlexInt) UnmarshalJSON(b []byte) error {
	*q = 1
	if string(b) == "null" {
		return nil
	}
	var n float64
	if err := json.Unmarshal(b, &n); err == nil {
		*q = FlexInt(int(n))
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		if v, err := strconv.Atoi(s); err == nil {
			*q = FlexInt(v)
		}
	}
	return nil
}
