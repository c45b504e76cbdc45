package domain

import (
	"strings"
	"time"
)

type PaymentState string

const (
	StateIdle              PaymentState = "idle"
	StateRequestingIntent  PaymentState = "requesting-intent"
	StateIntentReady       PaymentState = "intent-ready"
	StateIntentFailed      PaymentState = "intent-failed"
	StateProcessingPayment PaymentState = "processing-payment"
	StateSucceeded         PaymentState = "succeeded"
	StateFailed            PaymentState = "failed"
	StateClosed            PaymentState = "closed"
)

// Action is a control the payment modal may offer in a given state.
type Action string

const (
	ActionSubmit Action = "submit"
	ActionClose  Action = "close"
)

// Actions lists what the user may do next from s.
func (s PaymentState) Actions() []Action {
	switch s {
	case StateIntentReady, StateFailed:
		return []Action{ActionSubmit, ActionClose}
	case StateIntentFailed, StateSucceeded, StateRequestingIntent:
		return []Action{ActionClose}
	default:
		return nil
	}
}

// PaymentStatusPaid is the value patched onto a booking after a charge.
const PaymentStatusPaid = "paid"

// ClientSecret binds a client-side confirmation to one payment intent.
type ClientSecret string

// IntentID extracts the intent id from a "pi_xxx_secret_yyy" secret.
func (s ClientSecret) IntentID() string {
	v := string(s)
	if i := strings.Index(v, "_secret_"); i > 0 {
		return v[:i]
	}
	return v
}

// PaymentIntent is what the processor returns from a confirmation.
type PaymentIntent struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

const IntentSucceeded = "succeeded"

// PaymentAttempt is a ledger row for a charge the processor accepted.
type PaymentAttempt struct {
	ID              int64
	SessionID       string
	BookingID       string
	Amount          float64
	PaymentIntentID string
	Reconciled      bool
	LastError       *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// BookingPaid is published once a session reaches succeeded.
type BookingPaid struct {
	BookingID       string    `json:"bookingId"`
	PaymentIntentID string    `json:"paymentIntentId"`
	Amount          float64   `json:"amount"`
	Recorded        bool      `json:"recorded"`
	PaidAt          time.Time `json:"paidAt"`
}
