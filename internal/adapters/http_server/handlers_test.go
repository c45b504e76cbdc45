package httpserver_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	server "staybook/internal/adapters/http_server"
	redisad "staybook/internal/adapters/redis"
	"staybook/internal/app"
	"staybook/internal/catalog"
	"staybook/internal/domain"
)

type stubBackend struct {
	owner   []map[string]any
	booking map[string]any
	secret  domain.ClientSecret
	patched int
}

func (b *stubBackend) GetOwnerProperties(ctx context.Context, token string) ([]map[string]any, error) {
	if token != "tok" {
		return nil, &domain.APIError{Status: 401, Message: "jwt expired"}
	}
	return b.owner, nil
}

func (b *stubBackend) GetProperty(ctx context.Context, token, id string) (map[string]any, error) {
	return map[string]any{"_id": id, "title": "Palm Villa", "location": "Jeddah"}, nil
}

func (b *stubBackend) GetBooking(ctx context.Context, token, id string) (map[string]any, error) {
	if b.booking == nil {
		return nil, &domain.APIError{Status: 404, Message: "Booking not found"}
	}
	return b.booking, nil
}

func (b *stubBackend) CreatePaymentIntent(ctx context.Context, token, bookingID string, amount float64) (domain.ClientSecret, error) {
	if b.secret == "" {
		return "", &domain.APIError{Status: 400, Message: "Booking already paid"}
	}
	return b.secret, nil
}

func (b *stubBackend) UpdatePaymentStatus(ctx context.Context, token, bookingID, status, intentID string) (map[string]any, error) {
	b.patched++
	return map[string]any{}, nil
}

type approveAll struct{}

func (approveAll) ConfirmCardPayment(ctx context.Context, secret domain.ClientSecret, pm string) (domain.PaymentIntent, error) {
	return domain.PaymentIntent{ID: secret.IntentID(), Status: domain.IntentSucceeded}, nil
}

func newTestServer(t *testing.T, b *stubBackend, withPayments bool) *httptest.Server {
	t.Helper()
	mr := miniredis.RunT(t)
	cache := redisad.New(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = cache.Close() })

	h := &server.Handlers{
		Q:       app.NewQueryService(b, cache, time.Minute),
		Catalog: catalog.Default(),
	}
	if withPayments {
		h.P = app.NewPaymentService(b, approveAll{}, nil, time.Minute)
	}
	srv := server.New()
	srv.MountHandlers(h)
	ts := httptest.NewServer(srv.Mux())
	t.Cleanup(ts.Close)
	return ts
}

func do(t *testing.T, method, url, body string, hdr map[string]string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dst))
}

var auth = map[string]string{"Authorization": "Bearer tok"}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t, &stubBackend{}, false)
	resp := do(t, "GET", ts.URL+"/healthz", "", nil)
	assert.Equal(t, 200, resp.StatusCode)
}

func TestLocations_FilterAndLanguage(t *testing.T) {
	ts := newTestServer(t, &stubBackend{}, false)

	resp := do(t, "GET", ts.URL+"/v1/locations?q=jed&lang=ar", "", nil)
	require.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "ar", resp.Header.Get("Content-Language"))
	assert.NotEmpty(t, resp.Header.Get("ETag"))

	var out struct {
		Items []domain.LocationView `json:"items"`
		Empty bool                  `json:"empty"`
	}
	decodeBody(t, resp, &out)
	require.Len(t, out.Items, 1)
	assert.Equal(t, "jeddah", out.Items[0].ID)
	assert.Equal(t, domain.LangAR, out.Items[0].Language)
	assert.False(t, out.Empty)
}

func TestLocations_EmptyResultHasClearLink(t *testing.T) {
	ts := newTestServer(t, &stubBackend{}, false)

	resp := do(t, "GET", ts.URL+"/v1/locations?q=zzz", "", nil)
	require.Equal(t, 200, resp.StatusCode)

	var out map[string]any
	decodeBody(t, resp, &out)
	assert.Equal(t, true, out["empty"])
	assert.Equal(t, "/v1/locations", out["clearQuery"])
	assert.Equal(t, []any{}, out["items"])
}

func TestLocations_NotModified(t *testing.T) {
	ts := newTestServer(t, &stubBackend{}, false)

	first := do(t, "GET", ts.URL+"/v1/locations", "", nil)
	etag := first.Header.Get("ETag")
	require.NotEmpty(t, etag)

	second := do(t, "GET", ts.URL+"/v1/locations", "", map[string]string{"If-None-Match": etag})
	assert.Equal(t, http.StatusNotModified, second.StatusCode)
}

func TestLocation_ByIDAndMissing(t *testing.T) {
	ts := newTestServer(t, &stubBackend{}, false)

	resp := do(t, "GET", ts.URL+"/v1/locations/AlUla", "", map[string]string{"Accept-Language": "en-US,en;q=0.9"})
	require.Equal(t, 200, resp.StatusCode)
	var v domain.LocationView
	decodeBody(t, resp, &v)
	assert.Equal(t, "alula", v.ID)
	assert.Equal(t, domain.LangEN, v.Language)

	missing := do(t, "GET", ts.URL+"/v1/locations/atlantis", "", nil)
	assert.Equal(t, 404, missing.StatusCode)
	assert.Equal(t, "application/problem+json", missing.Header.Get("Content-Type"))
}

func TestSearch(t *testing.T) {
	ts := newTestServer(t, &stubBackend{}, false)

	resp := do(t, "POST", ts.URL+"/v1/search",
		`{"location":"All Locations","from":"2024-06-01","to":"2024-06-05","guests":"3 People"}`, nil)
	require.Equal(t, 200, resp.StatusCode)

	var out struct{ Query, Link string }
	decodeBody(t, resp, &out)
	assert.Equal(t, "checkIn=2024-06-01T00:00:00.000Z&checkOut=2024-06-05T00:00:00.000Z&guests=3", out.Query)
	assert.Equal(t, "/properties?"+out.Query, out.Link)
}

func TestSearch_BadDateAndBody(t *testing.T) {
	ts := newTestServer(t, &stubBackend{}, false)

	assert.Equal(t, 400, do(t, "POST", ts.URL+"/v1/search", `{"from":"June 1st"}`, nil).StatusCode)
	assert.Equal(t, 400, do(t, "POST", ts.URL+"/v1/search", `not json`, nil).StatusCode)
}

func TestDashboard(t *testing.T) {
	b := &stubBackend{owner: []map[string]any{
		{"_id": "p1", "price": 100, "rating": 40, "reviewCount": 5},
		{"_id": "p2", "price": 50, "rating": 10, "reviewCount": 1},
	}}
	ts := newTestServer(t, b, false)

	resp := do(t, "GET", ts.URL+"/v1/dashboard", "", auth)
	require.Equal(t, 200, resp.StatusCode)
	var m domain.DashboardMetrics
	decodeBody(t, resp, &m)
	assert.Equal(t, domain.DashboardMetrics{PropertyCount: 2, TotalRevenue: 150, AverageRating: 5, TotalBookings: 6}, m)

	assert.Equal(t, 401, do(t, "GET", ts.URL+"/v1/dashboard", "", nil).StatusCode)
	assert.Equal(t, 401, do(t, "GET", ts.URL+"/v1/dashboard", "", map[string]string{"Authorization": "Bearer stale"}).StatusCode)
}

func TestBooking_DetailAndNotFound(t *testing.T) {
	b := &stubBackend{booking: map[string]any{"_id": "bk_1", "propertyId": "p9", "paymentStatus": "pending"}}
	ts := newTestServer(t, b, false)

	resp := do(t, "GET", ts.URL+"/v1/bookings/bk_1", "", auth)
	require.Equal(t, 200, resp.StatusCode)
	var d app.BookingDetail
	decodeBody(t, resp, &d)
	assert.Equal(t, "Palm Villa", d.Property.Title)
	assert.Equal(t, "/bookings/bk_1/chat", d.Links.Chat)

	b.booking = nil
	nf := do(t, "GET", ts.URL+"/v1/bookings/bk_1", "", auth)
	assert.Equal(t, 404, nf.StatusCode)
	var p struct{ Detail string }
	decodeBody(t, nf, &p)
	assert.Equal(t, "Booking not found", p.Detail)
}

func TestPayments_UnavailableWithoutProcessor(t *testing.T) {
	ts := newTestServer(t, &stubBackend{}, false)
	resp := do(t, "POST", ts.URL+"/v1/payments", `{"bookingId":"bk_1","amount":10}`, auth)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestPayments_FullFlow(t *testing.T) {
	b := &stubBackend{secret: "pi_9_secret_z"}
	ts := newTestServer(t, b, true)

	open := do(t, "POST", ts.URL+"/v1/payments", `{"bookingId":"bk_1","amount":420}`, auth)
	require.Equal(t, http.StatusCreated, open.StatusCode)
	var v app.SessionView
	decodeBody(t, open, &v)
	assert.Equal(t, domain.StateIntentReady, v.State)
	assert.Equal(t, "pi_9_secret_z", v.ClientSecret)
	assert.Equal(t, "/v1/payments/"+v.ID, open.Header.Get("Location"))

	sub := do(t, "POST", ts.URL+"/v1/payments/"+v.ID+"/submit", `{"paymentMethod":"pm_card_visa"}`, nil)
	require.Equal(t, 200, sub.StatusCode)
	var done app.SessionView
	decodeBody(t, sub, &done)
	assert.Equal(t, domain.StateSucceeded, done.State)
	assert.Equal(t, "pi_9", done.PaymentIntentID)
	assert.Empty(t, done.ClientSecret)
	assert.Equal(t, 1, b.patched)

	again := do(t, "POST", ts.URL+"/v1/payments/"+v.ID+"/submit", `{"paymentMethod":"pm_card_visa"}`, nil)
	assert.Equal(t, http.StatusConflict, again.StatusCode)

	assert.Equal(t, http.StatusNoContent, do(t, "DELETE", ts.URL+"/v1/payments/"+v.ID, "", nil).StatusCode)
	assert.Equal(t, 404, do(t, "GET", ts.URL+"/v1/payments/"+v.ID, "", nil).StatusCode)
}

func TestPayments_IntentFailedAndValidation(t *testing.T) {
	ts := newTestServer(t, &stubBackend{}, true)

	open := do(t, "POST", ts.URL+"/v1/payments", `{"bookingId":"bk_1","amount":420}`, auth)
	require.Equal(t, http.StatusCreated, open.StatusCode)
	var v app.SessionView
	decodeBody(t, open, &v)
	assert.Equal(t, domain.StateIntentFailed, v.State)
	assert.Equal(t, "Booking already paid", v.Message)
	assert.Equal(t, []domain.Action{domain.ActionClose}, v.Actions)

	bad := do(t, "POST", ts.URL+"/v1/payments", `{"bookingId":"../etc","amount":420}`, auth)
	assert.Equal(t, http.StatusUnprocessableEntity, bad.StatusCode)
}
