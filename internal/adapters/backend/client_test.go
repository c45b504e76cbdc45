package backend_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"staybook/internal/adapters/backend"
	"staybook/internal/domain"
)

func newClient(t *testing.T, h http.Handler) *backend.Client {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	cl, err := backend.New(ts.URL, 100) // high RPS for tests
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	return cl
}

func ctx(t *testing.T) context.Context {
	c, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	t.Cleanup(cancel)
	return c
}

func TestNew_RequiresBase(t *testing.T) {
	if _, err := backend.New("", 5); err == nil {
		t.Fatalf("expected error for empty base")
	}
}

func TestClient_GetProperty_RetriesThenSuccess(t *testing.T) {
	var hits int32
	cl := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/properties/p1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("unexpected auth header %q", got)
		}
		switch atomic.AddInt32(&hits, 1) {
		case 1, 2:
			w.WriteHeader(503)
		default:
			_ = json.NewEncoder(w).Encode(map[string]any{"_id": "p1"})
		}
	}))

	got, err := cl.GetProperty(ctx(t), "tok", "p1")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got["_id"] != "p1" {
		t.Fatalf("unexpected payload: %+v", got)
	}
	if atomic.LoadInt32(&hits) != 3 {
		t.Fatalf("expected 3 calls due to retries, got %d", hits)
	}
}

func TestClient_GetBooking_404IsNotFound(t *testing.T) {
	cl := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Booking not found"}`))
	}))

	_, err := cl.GetBooking(ctx(t), "tok", "bk_1")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	var ae *domain.APIError
	if !errors.As(err, &ae) || ae.Message != "Booking not found" {
		t.Fatalf("expected API message, got %v", err)
	}
}

func TestClient_CreatePaymentIntent(t *testing.T) {
	cl := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/payments/create-payment-intent" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		var body struct {
			BookingID string  `json:"bookingId"`
			Amount    float64 `json:"amount"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
		}
		if body.BookingID != "bk_1" || body.Amount != 420 {
			t.Errorf("unexpected body %+v", body)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"clientSecret": "pi_1_secret_x"})
	}))

	secret, err := cl.CreatePaymentIntent(ctx(t), "tok", "bk_1", 420)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if secret != "pi_1_secret_x" {
		t.Fatalf("unexpected secret %q", secret)
	}
}

func TestClient_CreatePaymentIntent_NoRetryAndServerMessage(t *testing.T) {
	var hits int32
	cl := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"card_declined"}`))
	}))

	_, err := cl.CreatePaymentIntent(ctx(t), "tok", "bk_1", 420)
	var ae *domain.APIError
	if !errors.As(err, &ae) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if ae.Status != 500 || ae.Message != "card_declined" {
		t.Fatalf("unexpected error %+v", ae)
	}
	if n := atomic.LoadInt32(&hits); n != 1 {
		t.Fatalf("POST must not be retried, got %d calls", n)
	}
}

func TestClient_CreatePaymentIntent_MissingSecret(t *testing.T) {
	cl := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	if _, err := cl.CreatePaymentIntent(ctx(t), "tok", "bk_1", 1); err == nil {
		t.Fatalf("expected error for missing client secret")
	}
}

func TestClient_UpdatePaymentStatus(t *testing.T) {
	var got map[string]string
	cl := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch || r.URL.Path != "/api/bookings/bk_1/payment-status" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_ = json.NewEncoder(w).Encode(map[string]any{"_id": "bk_1", "paymentStatus": "paid"})
	}))

	out, err := cl.UpdatePaymentStatus(ctx(t), "tok", "bk_1", "paid", "pi_1")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got["paymentStatus"] != "paid" || got["paymentIntentId"] != "pi_1" {
		t.Fatalf("unexpected request body %v", got)
	}
	if out["paymentStatus"] != "paid" {
		t.Fatalf("unexpected response %v", out)
	}
}

func TestClient_GetOwnerProperties_BareAndWrapped(t *testing.T) {
	for name, body := range map[string]string{
		"bare":    `[{"_id":"p1"},{"_id":"p2"}]`,
		"wrapped": `{"properties":[{"_id":"p1"},{"_id":"p2"}]}`,
		"data":    `{"data":[{"_id":"p1"},{"_id":"p2"}]}`,
	} {
		body := body
		t.Run(name, func(t *testing.T) {
			cl := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			}))
			got, err := cl.GetOwnerProperties(ctx(t), "tok")
			if err != nil {
				t.Fatalf("unexpected err: %v", err)
			}
			if len(got) != 2 || got[1]["_id"] != "p2" {
				t.Fatalf("unexpected list %v", got)
			}
		})
	}
}

func TestClient_Unauthorized(t *testing.T) {
	cl := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	_, err := cl.GetOwnerProperties(ctx(t), "")
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}
