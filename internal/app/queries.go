package app

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"staybook/internal/domain"
)

type QueryService struct {
	backend  domain.BackendClient
	cache    domain.Cache
	cacheTTL time.Duration
}

func NewQueryService(b domain.BackendClient, c domain.Cache, ttl time.Duration) *QueryService {
	return &QueryService{backend: b, cache: c, cacheTTL: ttl}
}

// BookingDetail is what the payment and booking pages render.
type BookingDetail struct {
	Booking  domain.Booking  `json:"booking"`
	Property domain.Property `json:"property"`
	Links    BookingLinks    `json:"links"`
}

type BookingLinks struct {
	Self string `json:"self"`
	Chat string `json:"chat"`
}

func (s *QueryService) GetProperty(ctx context.Context, token, id string) (domain.Property, error) {
	key := fmt.Sprintf("property:%s", id)
	var p domain.Property
	if ok, _ := s.cache.Get(ctx, key, &p); ok {
		return p, nil
	}
	raw, err := s.backend.GetProperty(ctx, token, id)
	if err != nil {
		return domain.Property{}, err
	}
	p = mapProperty(raw)
	_ = s.cache.Set(ctx, key, p, int(s.cacheTTL.Seconds()))
	return p, nil
}

// OwnerProperties is cached per bearer token; the key holds a digest,
// never the token itself.
func (s *QueryService) OwnerProperties(ctx context.Context, token string) ([]domain.Property, error) {
	key := "owner-properties:" + tokenDigest(token)
	var out []domain.Property
	if ok, _ := s.cache.Get(ctx, key, &out); ok {
		return out, nil
	}
	raw, err := s.backend.GetOwnerProperties(ctx, token)
	if err != nil {
		return nil, err
	}
	out = mapProperties(raw)
	_ = s.cache.Set(ctx, key, out, int(s.cacheTTL.Seconds()))
	return out, nil
}

// GetBooking always hits the backend; payment status changes underneath us.
func (s *QueryService) GetBooking(ctx context.Context, token, id string) (BookingDetail, error) {
	if err := ValidateBookingID(id); err != nil {
		return BookingDetail{}, err
	}
	raw, err := s.backend.GetBooking(ctx, token, id)
	if err != nil {
		return BookingDetail{}, err
	}
	b := mapBooking(raw)
	if b.ID == "" {
		b.ID = id
	}
	d := BookingDetail{
		Booking: b,
		Links:   BookingLinks{Self: BookingLink(b.ID), Chat: BookingChatLink(b.ID)},
	}
	if b.PropertyID != "" {
		p, err := s.GetProperty(ctx, token, b.PropertyID)
		if err != nil {
			return BookingDetail{}, fmt.Errorf("load property %s: %w", b.PropertyID, err)
		}
		// the booking page only shows the summary fields
		d.Property = domain.Property{ID: p.ID, Title: p.Title, Location: p.Location, Images: p.Images}
	}
	return d, nil
}

func tokenDigest(token string) string {
	sum := sha1.Sum([]byte(strings.TrimSpace(token)))
	return hex.EncodeToString(sum[:])
}
