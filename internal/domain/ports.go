package domain

import "context"

// BackendClient is the REST backend owning properties and bookings.
// Read paths return raw payloads; app maps them to domain types.
type BackendClient interface {
	GetOwnerProperties(ctx context.Context, token string) ([]map[string]any, error)
	GetProperty(ctx context.Context, token, id string) (map[string]any, error)
	GetBooking(ctx context.Context, token, id string) (map[string]any, error)

	CreatePaymentIntent(ctx context.Context, token, bookingID string, amount float64) (ClientSecret, error)
	UpdatePaymentStatus(ctx context.Context, token, bookingID, status, paymentIntentID string) (map[string]any, error)
}

// Processor confirms a card payment against a client secret.
// paymentMethod is the opaque token produced by the hosted card element.
type Processor interface {
	ConfirmCardPayment(ctx context.Context, secret ClientSecret, paymentMethod string) (PaymentIntent, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

// AttemptLedger records accepted charges so unrecorded ones can be reconciled.
type AttemptLedger interface {
	RecordAttempt(ctx context.Context, a PaymentAttempt) (int64, error)
	ListUnreconciled(ctx context.Context, limit int) ([]PaymentAttempt, error)
	MarkReconciled(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64, reason string) error
}

type EventPublisher interface {
	PublishBookingPaid(ctx context.Context, ev BookingPaid) error
}
