package app

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"staybook/internal/adapters/observability"
	"staybook/internal/domain"
)

const (
	msgIntentFallback    = "Failed to initialize payment"
	msgPaymentFallback   = "Payment failed. Please try again."
	msgPaymentUnrecorded = "Payment received. Your booking confirmation may take a few minutes to appear."
)

var (
	validate      = newValidator()
	bookingIDExpr = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("bookingid", func(fl validator.FieldLevel) bool {
		return bookingIDExpr.MatchString(fl.Field().String())
	})
	return v
}

// ValidateBookingID rejects ids that could not have come from the backend.
func ValidateBookingID(id string) error {
	if err := validate.Var(id, "required,bookingid"); err != nil {
		return fmt.Errorf("%w: invalid booking id", domain.ErrValidation)
	}
	return nil
}

type openRequest struct {
	BookingID string  `validate:"required,bookingid"`
	Amount    float64 `validate:"gt=0"`
}

// SessionView is the payment modal's view of a session.
type SessionView struct {
	ID              string              `json:"id"`
	BookingID       string              `json:"bookingId"`
	Amount          float64             `json:"amount"`
	State           domain.PaymentState `json:"state"`
	ClientSecret    string              `json:"clientSecret,omitempty"`
	Message         string              `json:"message,omitempty"`
	Actions         []domain.Action     `json:"actions"`
	PaymentIntentID string              `json:"paymentIntentId,omitempty"`
	Recorded        *bool               `json:"recorded,omitempty"`
}

type session struct {
	mu         sync.Mutex
	id         string
	token      string
	bookingID  string
	amount     float64
	state      domain.PaymentState
	secret     domain.ClientSecret
	message    string
	intentID   string
	recorded   *bool
	processing bool
	closed     bool
	expires    time.Time
}

func (s *session) view() SessionView {
	v := SessionView{
		ID:              s.id,
		BookingID:       s.bookingID,
		Amount:          s.amount,
		State:           s.state,
		Message:         s.message,
		Actions:         s.state.Actions(),
		PaymentIntentID: s.intentID,
		Recorded:        s.recorded,
	}
	if v.Actions == nil {
		v.Actions = []domain.Action{}
	}
	switch s.state {
	case domain.StateIntentReady, domain.StateFailed, domain.StateProcessingPayment:
		v.ClientSecret = string(s.secret)
	}
	return v
}

// PaymentService sequences intent creation, card confirmation and the
// booking status patch for each open payment modal.
type PaymentService struct {
	backend   domain.BackendClient
	processor domain.Processor
	ledger    domain.AttemptLedger
	onSuccess func(ctx context.Context, ev domain.BookingPaid)

	ttl time.Duration
	now func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
}

// NewPaymentService wires the orchestrator. ledger may be nil.
func NewPaymentService(b domain.BackendClient, p domain.Processor, ledger domain.AttemptLedger, ttl time.Duration) *PaymentService {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &PaymentService{
		backend:   b,
		processor: p,
		ledger:    ledger,
		ttl:       ttl,
		now:       time.Now,
		sessions:  map[string]*session{},
	}
}

// OnSuccess registers the callback fired after a charge succeeded and the
// status patch was attempted.
func (s *PaymentService) OnSuccess(fn func(ctx context.Context, ev domain.BookingPaid)) {
	s.onSuccess = fn
}

// Open starts a session for a booking and requests its payment intent.
// A failed intent is reported through the session state, not the error;
// the error is only for invalid input.
func (s *PaymentService) Open(ctx context.Context, token, bookingID string, amount float64) (SessionView, error) {
	if err := validate.Struct(openRequest{BookingID: bookingID, Amount: amount}); err != nil {
		return SessionView{}, fmt.Errorf("%w: %s", domain.ErrValidation, firstFieldError(err))
	}

	ss := &session{
		id:        uuid.NewString(),
		token:     token,
		bookingID: bookingID,
		amount:    amount,
		state:     domain.StateRequestingIntent,
		expires:   s.now().Add(s.ttl),
	}

	secret, err := s.backend.CreatePaymentIntent(ctx, token, bookingID, amount)
	if err != nil || secret == "" {
		ss.state = domain.StateIntentFailed
		ss.message = intentErrorMessage(err)
		observability.ObservePayment("intent", "failed")
		log.Warn().Err(err).Str("booking", bookingID).Msg("create payment intent failed")
	} else {
		ss.state = domain.StateIntentReady
		ss.secret = secret
		observability.ObservePayment("intent", "ready")
	}

	s.mu.Lock()
	s.sessions[ss.id] = ss
	s.mu.Unlock()
	return ss.view(), nil
}

func (s *PaymentService) Get(id string) (SessionView, error) {
	ss, err := s.lookup(id)
	if err != nil {
		return SessionView{}, err
	}
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return ss.view(), nil
}

// Submit confirms the card against the session's secret. Card errors leave
// the session retryable with the same secret.
func (s *PaymentService) Submit(ctx context.Context, id, paymentMethod string) (SessionView, error) {
	ss, err := s.lookup(id)
	if err != nil {
		return SessionView{}, err
	}

	ss.mu.Lock()
	switch {
	case ss.closed:
		ss.mu.Unlock()
		return SessionView{}, domain.ErrSessionNotFound
	case ss.processing:
		ss.mu.Unlock()
		return SessionView{}, domain.ErrPaymentInProgress
	case ss.state != domain.StateIntentReady && ss.state != domain.StateFailed:
		st := ss.state
		ss.mu.Unlock()
		return SessionView{}, fmt.Errorf("%w: submit from %s", domain.ErrInvalidTransition, st)
	case paymentMethod == "":
		ss.mu.Unlock()
		return SessionView{}, fmt.Errorf("%w: payment method is required", domain.ErrValidation)
	}
	ss.processing = true
	ss.state = domain.StateProcessingPayment
	ss.message = ""
	secret, token, bookingID, amount := ss.secret, ss.token, ss.bookingID, ss.amount
	ss.mu.Unlock()

	next, msg, intent, recorded := s.confirm(ctx, ss.id, secret, token, bookingID, amount, paymentMethod)

	ss.mu.Lock()
	ss.processing = false
	if ss.closed {
		ss.mu.Unlock()
		return SessionView{}, domain.ErrSessionNotFound
	}
	ss.state = next
	ss.message = msg
	if next == domain.StateSucceeded {
		ss.intentID = intent.ID
		ss.recorded = &recorded
	}
	v := ss.view()
	ss.mu.Unlock()

	if next == domain.StateSucceeded && s.onSuccess != nil {
		s.onSuccess(context.WithoutCancel(ctx), domain.BookingPaid{
			BookingID:       bookingID,
			PaymentIntentID: intent.ID,
			Amount:          amount,
			Recorded:        recorded,
			PaidAt:          s.now().UTC(),
		})
	}
	return v, nil
}

// confirm runs the processor call and, on success, the single status patch.
func (s *PaymentService) confirm(ctx context.Context, sid string, secret domain.ClientSecret, token, bookingID string, amount float64, pm string) (domain.PaymentState, string, domain.PaymentIntent, bool) {
	intent, err := s.processor.ConfirmCardPayment(ctx, secret, pm)
	if err != nil {
		var pe *domain.ProcessorError
		if errors.As(err, &pe) && pe.Message != "" {
			observability.ObservePayment("confirm", "card_error")
			return domain.StateFailed, pe.Message, intent, false
		}
		observability.ObservePayment("confirm", "error")
		log.Warn().Err(err).Str("session", sid).Msg("confirm card payment failed")
		return domain.StateFailed, msgPaymentFallback, intent, false
	}
	if intent.Status != domain.IntentSucceeded {
		observability.ObservePayment("confirm", intent.Status)
		return domain.StateFailed, msgPaymentFallback, intent, false
	}
	if intent.ID == "" {
		intent.ID = secret.IntentID()
	}
	observability.ObservePayment("confirm", "succeeded")

	// The charge is final from here on: the patch must not be abandoned
	// because the caller went away.
	pctx := context.WithoutCancel(ctx)
	recorded := true
	var lastErr *string
	if _, err := s.backend.UpdatePaymentStatus(pctx, token, bookingID, domain.PaymentStatusPaid, intent.ID); err != nil {
		recorded = false
		e := err.Error()
		lastErr = &e
		observability.ObservePayment("patch", "failed")
		log.Error().Err(err).
			Str("session", sid).
			Str("booking", bookingID).
			Str("intent", intent.ID).
			Msg("payment captured but booking status patch failed")
	} else {
		observability.ObservePayment("patch", "ok")
	}

	if s.ledger != nil {
		if _, err := s.ledger.RecordAttempt(pctx, domain.PaymentAttempt{
			SessionID:       sid,
			BookingID:       bookingID,
			Amount:          amount,
			PaymentIntentID: intent.ID,
			Reconciled:      recorded,
			LastError:       lastErr,
		}); err != nil {
			log.Error().Err(err).Str("intent", intent.ID).Msg("record payment attempt failed")
		}
	}

	msg := ""
	if !recorded {
		msg = msgPaymentUnrecorded
	}
	return domain.StateSucceeded, msg, intent, recorded
}

// Close discards a session. Nothing is sent to the backend; an abandoned
// intent is left to the processor to expire.
func (s *PaymentService) Close(id string) error {
	s.mu.Lock()
	ss, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return domain.ErrSessionNotFound
	}
	ss.mu.Lock()
	ss.closed = true
	ss.state = domain.StateClosed
	ss.secret = ""
	ss.mu.Unlock()
	observability.ObservePayment("session", "closed")
	return nil
}

// Sweep drops expired sessions that are not mid-payment.
func (s *PaymentService) Sweep() int {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, ss := range s.sessions {
		ss.mu.Lock()
		if !ss.processing && now.After(ss.expires) {
			ss.closed = true
			ss.state = domain.StateClosed
			delete(s.sessions, id)
			n++
		}
		ss.mu.Unlock()
	}
	return n
}

// RunJanitor sweeps every interval until ctx is done.
func (s *PaymentService) RunJanitor(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := s.Sweep(); n > 0 {
				log.Debug().Int("sessions", n).Msg("expired payment sessions dropped")
			}
		}
	}
}

func (s *PaymentService) lookup(id string) (*session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ss, ok := s.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	if s.now().After(ss.expires) {
		ss.mu.Lock()
		busy := ss.processing
		ss.mu.Unlock()
		if !busy {
			delete(s.sessions, id)
			return nil, domain.ErrSessionNotFound
		}
	}
	return ss, nil
}

func intentErrorMessage(err error) string {
	var ae *domain.APIError
	if errors.As(err, &ae) && ae.Message != "" {
		return ae.Message
	}
	return msgIntentFallback
}

func firstFieldError(err error) string {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) && len(ve) > 0 {
		switch ve[0].Field() {
		case "BookingID":
			return "invalid booking id"
		case "Amount":
			return "amount must be greater than zero"
		}
		return ve[0].Field() + " is invalid"
	}
	return err.Error()
}
