package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

type openPaymentRequest struct {
	BookingID string  `json:"bookingId"`
	Amount    float64 `json:"amount"`
}

type submitPaymentRequest struct {
	PaymentMethod string `json:"paymentMethod"`
}

func (h *Handlers) paymentsReady(w http.ResponseWriter) bool {
	if h.P == nil {
		writeProblem(w, http.StatusServiceUnavailable, "Payments Unavailable", "payment processor is not configured")
		return false
	}
	return true
}

func (h *Handlers) openPayment(w http.ResponseWriter, r *http.Request) {
	if !h.paymentsReady(w) {
		return
	}
	token := bearerToken(r)
	if token == "" {
		writeProblem(w, http.StatusUnauthorized, "Unauthorized", "bearer token required")
		return
	}
	var req openPaymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	v, err := h.P.Open(r.Context(), token, req.BookingID, req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Location", "/v1/payments/"+v.ID)
	writeJSON(w, http.StatusCreated, v)
}

func (h *Handlers) getPayment(w http.ResponseWriter, r *http.Request) {
	if !h.paymentsReady(w) {
		return
	}
	v, err := h.P.Get(chi.URLParam(r, "sid"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, v)
}

func (h *Handlers) submitPayment(w http.ResponseWriter, r *http.Request) {
	if !h.paymentsReady(w) {
		return
	}
	var req submitPaymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	v, err := h.P.Submit(r.Context(), chi.URLParam(r, "sid"), req.PaymentMethod)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, v)
}

func (h *Handlers) closePayment(w http.ResponseWriter, r *http.Request) {
	if !h.paymentsReady(w) {
		return
	}
	if err := h.P.Close(chi.URLParam(r, "sid")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
