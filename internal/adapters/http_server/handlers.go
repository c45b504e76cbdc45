// internal/adapters/http_server/handlers.go
package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"staybook/internal/app"
	"staybook/internal/catalog"
	"staybook/internal/domain"
)

// Handlers serves the BFF routes. P is nil when the processor is not
// configured; payment routes then answer 503.
type Handlers struct {
	Q       *app.QueryService
	P       *app.PaymentService
	Catalog *catalog.Catalog
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

type locationList struct {
	Items      []domain.LocationView `json:"items"`
	Empty      bool                  `json:"empty"`
	ClearQuery string                `json:"clearQuery,omitempty"`
}

type searchRequest struct {
	Location string `json:"location"`
	From     string `json:"from"`
	To       string `json:"to"`
	Guests   string `json:"guests"`
}

type searchResponse struct {
	Query string `json:"query"`
	Link  string `json:"link"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })

	s.mux.Route("/v1", func(r chi.Router) {
		r.Get("/locations", h.listLocations)
		r.Get("/locations/{id}", h.getLocation)
		r.Post("/search", h.search)
		r.Get("/dashboard", h.dashboard)
		r.Get("/bookings/{id}", h.getBooking)

		r.Post("/payments", h.openPayment)
		r.Get("/payments/{sid}", h.getPayment)
		r.Post("/payments/{sid}/submit", h.submitPayment)
		r.Delete("/payments/{sid}", h.closePayment)
	})
}

// selectLang prefers ?lang= over Accept-Language.
func selectLang(r *http.Request) domain.Language {
	if l := r.URL.Query().Get("lang"); l != "" {
		return domain.ParseLanguage(l)
	}
	return domain.ParseLanguage(r.Header.Get("Accept-Language"))
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// writeError maps service errors onto problem responses.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ae *domain.APIError
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeProblem(w, http.StatusUnprocessableEntity, "Invalid Request", err.Error())
	case errors.Is(err, domain.ErrSessionNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", "payment session not found")
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", messageOf(err))
	case errors.Is(err, domain.ErrUnauthorized):
		writeProblem(w, http.StatusUnauthorized, "Unauthorized", messageOf(err))
	case errors.Is(err, domain.ErrForbidden):
		writeProblem(w, http.StatusForbidden, "Forbidden", messageOf(err))
	case errors.Is(err, domain.ErrPaymentInProgress):
		writeProblem(w, http.StatusConflict, "Payment In Progress", "a payment is already being processed")
	case errors.Is(err, domain.ErrInvalidTransition):
		writeProblem(w, http.StatusConflict, "Invalid State", err.Error())
	case errors.As(err, &ae):
		log.Warn().Err(err).Str("path", r.URL.Path).Msg("backend error")
		writeProblem(w, http.StatusBadGateway, "Bad Gateway", ae.Message)
	default:
		log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeProblem(w, http.StatusBadGateway, "Bad Gateway", "upstream request failed")
	}
}

func messageOf(err error) string {
	var ae *domain.APIError
	if errors.As(err, &ae) && ae.Message != "" {
		return ae.Message
	}
	return ""
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", "request body must be a JSON object")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

// writeCacheable serves v with a weak ETag and honours If-None-Match.
func writeCacheable(w http.ResponseWriter, r *http.Request, lang domain.Language, v any) {
	etag, body := calcETagAndBody(v)
	w.Header().Set("Vary", "Accept-Language")
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Language", string(lang))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write cacheable body")
	}
}

func (h *Handlers) listLocations(w http.ResponseWriter, r *http.Request) {
	lang := selectLang(r)
	recs := catalog.Filter(h.Catalog.All(), r.URL.Query().Get("q"), lang)

	out := locationList{Items: make([]domain.LocationView, 0, len(recs))}
	for _, rec := range recs {
		out.Items = append(out.Items, catalog.Localize(rec, lang))
	}
	if len(out.Items) == 0 {
		out.Empty = true
		out.ClearQuery = "/v1/locations"
	}
	writeCacheable(w, r, lang, out)
}

func (h *Handlers) getLocation(w http.ResponseWriter, r *http.Request) {
	lang := selectLang(r)
	rec, ok := h.Catalog.Get(chi.URLParam(r, "id"))
	if !ok {
		writeProblem(w, http.StatusNotFound, "Not Found", "location not found")
		return
	}
	writeCacheable(w, r, lang, catalog.Localize(rec, lang))
}

func (h *Handlers) search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	from, err := app.ParseSearchDate(req.From)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Date", "from must be YYYY-MM-DD or RFC 3339")
		return
	}
	to, err := app.ParseSearchDate(req.To)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Date", "to must be YYYY-MM-DD or RFC 3339")
		return
	}
	q := app.BuildSearchParams(req.Location, domain.DateRange{From: from, To: to}, req.Guests)
	writeJSON(w, http.StatusOK, searchResponse{Query: q, Link: app.SearchResultsLink(q)})
}

func (h *Handlers) dashboard(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		writeProblem(w, http.StatusUnauthorized, "Unauthorized", "bearer token required")
		return
	}
	m, err := h.Q.Dashboard(r.Context(), token)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", "private, no-store")
	writeJSON(w, http.StatusOK, m)
}

func (h *Handlers) getBooking(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		writeProblem(w, http.StatusUnauthorized, "Unauthorized", "bearer token required")
		return
	}
	out, err := h.Q.GetBooking(r.Context(), token, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", "private, no-store")
	writeJSON(w, http.StatusOK, out)
}
