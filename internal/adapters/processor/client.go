// Package processor confirms card payments with the hosted payment
// processor using the publishable key. Card details never pass through
// here; the hosted element hands us an opaque payment method token.
package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"staybook/internal/adapters/observability"
	"staybook/internal/domain"
)

type Client struct {
	base string
	key  string
	hc   *http.Client
}

func New(base, publishableKey string) (*Client, error) {
	if publishableKey == "" {
		return nil, fmt.Errorf("processor publishable key is required")
	}
	if base == "" {
		return nil, fmt.Errorf("processor base URL is required")
	}
	return &Client{
		base: strings.TrimRight(base, "/"),
		key:  publishableKey,
		hc:   &http.Client{Timeout: 30 * time.Second},
	}, nil
}

type intentResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Error  *struct {
		Code    string `json:"code"`
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// ConfirmCardPayment confirms the intent bound to secret. A declined card or
// any other processor-side refusal comes back as *domain.ProcessorError.
// It is never retried: a second confirmation is the user's decision.
func (c *Client) ConfirmCardPayment(ctx context.Context, secret domain.ClientSecret, paymentMethod string) (domain.PaymentIntent, error) {
	intentID := secret.IntentID()
	form := url.Values{}
	form.Set("client_secret", string(secret))
	form.Set("payment_method", paymentMethod)

	endpoint := fmt.Sprintf("%s/v1/payment_intents/%s/confirm", c.base, url.PathEscape(intentID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return domain.PaymentIntent{}, err
	}
	req.Header.Set("Authorization", "Bearer "+c.key)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		observability.ObserveExternal("processor", "confirm", 0, time.Since(start))
		return domain.PaymentIntent{}, err
	}
	defer resp.Body.Close()
	observability.ObserveExternal("processor", "confirm", resp.StatusCode, time.Since(start))

	b, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return domain.PaymentIntent{}, err
	}
	var out intentResponse
	if err := json.Unmarshal(b, &out); err != nil {
		return domain.PaymentIntent{}, fmt.Errorf("processor: status %d: decode: %w", resp.StatusCode, err)
	}
	if out.Error != nil {
		code := out.Error.Code
		if code == "" {
			code = out.Error.Type
		}
		return domain.PaymentIntent{}, &domain.ProcessorError{Code: code, Message: out.Error.Message}
	}
	if resp.StatusCode >= 300 {
		return domain.PaymentIntent{}, fmt.Errorf("processor: bad status %d", resp.StatusCode)
	}
	if out.ID == "" {
		out.ID = intentID
	}
	return domain.PaymentIntent{ID: out.ID, Status: out.Status}, nil
}
