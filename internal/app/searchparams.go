package app

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"staybook/internal/domain"
)

const (
	AllLocations  = "All Locations"
	DefaultGuests = "1 Person"
)

// isoMillis matches the timestamps the backend search endpoint expects.
const isoMillis = "2006-01-02T15:04:05.000Z"

// NewSearchQuery normalizes the hero search inputs.
func NewSearchQuery(location string, dr domain.DateRange, guests string) domain.BookingSearchQuery {
	var q domain.BookingSearchQuery
	if loc := strings.TrimSpace(location); loc != "" && loc != AllLocations {
		q.Location = &loc
	}
	if dr.Complete() {
		in, out := dr.From.UTC(), dr.To.UTC()
		q.CheckIn, q.CheckOut = &in, &out
	}
	if n, ok := parseGuests(guests); ok && n != 1 {
		q.Guests = &n
	}
	return q
}

// Encode renders q in a fixed key order: location, checkIn, checkOut, guests.
func Encode(q domain.BookingSearchQuery) string {
	var parts []string
	add := func(k, v string) { parts = append(parts, k+"="+escape(v)) }
	if q.Location != nil {
		add("location", *q.Location)
	}
	if q.CheckIn != nil && q.CheckOut != nil {
		add("checkIn", q.CheckIn.UTC().Format(isoMillis))
		add("checkOut", q.CheckOut.UTC().Format(isoMillis))
	}
	if q.Guests != nil {
		add("guests", strconv.Itoa(*q.Guests))
	}
	return strings.Join(parts, "&")
}

// BuildSearchParams turns the hero search inputs into the listing page query.
// It never fails: unusable inputs are dropped.
func BuildSearchParams(location string, dr domain.DateRange, guests string) string {
	return Encode(NewSearchQuery(location, dr, guests))
}

// parseGuests reads "2 People" -> 2. Anything that is not a positive
// integer before the first space is rejected.
func parseGuests(s string) (int, bool) {
	tok, _, _ := strings.Cut(strings.TrimSpace(s), " ")
	n, err := strconv.Atoi(tok)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

// escape is QueryEscape with ':' left readable; it is legal in a query.
func escape(v string) string {
	return strings.ReplaceAll(url.QueryEscape(v), "%3A", ":")
}

// ---- navigation ----

func SearchResultsLink(query string) string {
	if query == "" {
		return "/properties"
	}
	return "/properties?" + query
}

func BookingLink(id string) string { return "/bookings/" + url.PathEscape(id) }

func BookingChatLink(id string) string { return BookingLink(id) + "/chat" }

// ParseSearchDate accepts the date picker's yyyy-mm-dd or a full RFC 3339 value.
func ParseSearchDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
