// internal/adapters/backend/client.go
package backend

import (
	"bytes"
	"context"
	crand "crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"staybook/internal/adapters/observability"
	"staybook/internal/domain"
)

const maxAttempts = 4

type Client struct {
	base string
	hc   *http.Client
	rl   *rate.Limiter
}

func New(base string, rps int) (*Client, error) {
	if base == "" {
		return nil, fmt.Errorf("backend base URL is required")
	}
	if rps <= 0 {
		rps = 10
	}
	return &Client{
		base: strings.TrimRight(base, "/"),
		hc:   &http.Client{Timeout: 20 * time.Second},
		rl:   rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

// ---- Public API ----

func (c *Client) GetOwnerProperties(ctx context.Context, token string) ([]map[string]any, error) {
	var raw any
	if err := c.do(ctx, http.MethodGet, "/api/properties/owner", "properties_owner", token, nil, &raw); err != nil {
		return nil, err
	}
	return listOf(raw, "properties", "data")
}

func (c *Client) GetProperty(ctx context.Context, token, id string) (map[string]any, error) {
	var out map[string]any
	return out, c.do(ctx, http.MethodGet, "/api/properties/"+url.PathEscape(id), "property", token, nil, &out)
}

func (c *Client) GetBooking(ctx context.Context, token, id string) (map[string]any, error) {
	var out map[string]any
	return out, c.do(ctx, http.MethodGet, "/api/bookings/"+url.PathEscape(id), "booking", token, nil, &out)
}

func (c *Client) CreatePaymentIntent(ctx context.Context, token, bookingID string, amount float64) (domain.ClientSecret, error) {
	body := map[string]any{"bookingId": bookingID, "amount": amount}
	var out struct {
		ClientSecret string `json:"clientSecret"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/payments/create-payment-intent", "create_payment_intent", token, body, &out); err != nil {
		return "", err
	}
	if out.ClientSecret == "" {
		return "", &domain.APIError{Status: http.StatusBadGateway, Message: "payment intent response had no client secret"}
	}
	return domain.ClientSecret(out.ClientSecret), nil
}

func (c *Client) UpdatePaymentStatus(ctx context.Context, token, bookingID, status, paymentIntentID string) (map[string]any, error) {
	body := map[string]any{"paymentStatus": status, "paymentIntentId": paymentIntentID}
	var out map[string]any
	path := "/api/bookings/" + url.PathEscape(bookingID) + "/payment-status"
	return out, c.do(ctx, http.MethodPatch, path, "payment_status", token, body, &out)
}

// ---- Internals ----

// do sends one JSON request with client-side rate limiting and decodes into out.
// GET and PATCH retry on 429 and transient 5xx, honoring Retry-After; POST is
// sent once since creating an intent is not idempotent.
func (c *Client) do(ctx context.Context, method, path, endpoint, token string, in, out any) error {
	if err := c.rl.Wait(ctx); err != nil {
		return err
	}

	var payload []byte
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		payload = b
	}
	attempts := maxAttempts
	if method == http.MethodPost {
		attempts = 1
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		// build a fresh request each attempt
		var body io.Reader
		if payload != nil {
			body = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
		if err != nil {
			return err
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "staybook-bff/1.0")

		start := time.Now()
		resp, err := c.hc.Do(req)
		if err != nil {
			observability.ObserveExternal("backend", endpoint, 0, time.Since(start))
			// network error or context canceled
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			if i < attempts-1 && sleepCtx(ctx, backoff(i)) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr
		}
		observability.ObserveExternal("backend", endpoint, resp.StatusCode, time.Since(start))

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			if resp.StatusCode == http.StatusNoContent || out == nil {
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
				return nil
			}
			err := json.NewDecoder(resp.Body).Decode(out)
			resp.Body.Close()
			if errors.Is(err, io.EOF) {
				return nil // empty body
			}
			return err

		case retryable(resp.StatusCode) && i < attempts-1:
			// Prefer server-provided Retry-After; otherwise exponential backoff.
			wait := retryAfter(resp)
			lastErr = readAPIError(resp)
			if wait == 0 {
				wait = backoff(i)
			}
			if sleepCtx(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr

		default:
			return readAPIError(resp)
		}
	}

	return lastErr
}

func retryable(status int) bool {
	switch status {
	case http.StatusTooManyRequests, http.StatusInternalServerError,
		http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// readAPIError reads a small error body and closes it. The backend answers
// {"error": "..."}, {"message": "..."} or {"error": {"message": "..."}}.
func readAPIError(resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	resp.Body.Close()
	ae := &domain.APIError{Status: resp.StatusCode}

	var m map[string]any
	if json.Unmarshal(b, &m) == nil {
		switch v := m["error"].(type) {
		case string:
			ae.Message = v
		case map[string]any:
			ae.Message, _ = v["message"].(string)
		}
		if ae.Message == "" {
			ae.Message, _ = m["message"].(string)
		}
	}
	return ae
}

// listOf accepts a bare JSON array or an object wrapping one under any of keys.
func listOf(raw any, keys ...string) ([]map[string]any, error) {
	arr, ok := raw.([]any)
	if !ok {
		obj, isObj := raw.(map[string]any)
		if !isObj {
			if raw == nil {
				return nil, nil
			}
			return nil, fmt.Errorf("backend: unexpected payload %T", raw)
		}
		for _, k := range keys {
			if a, ok := obj[k].([]any); ok {
				arr = a
				break
			}
		}
	}
	out := make([]map[string]any, 0, len(arr))
	for _, it := range arr {
		if m, ok := it.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out, nil
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After header (seconds or HTTP-date). Returns 0 if absent/invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff returns an exponential backoff delay with concurrency-safe jitter.
// Base doubles each attempt (200ms, 400ms, 800ms...) plus up to 50% jitter.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	return base + time.Duration(0.5*f*float64(base))
}
