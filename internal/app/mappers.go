package app

import (
	"strconv"
	"strings"
	"time"

	"staybook/internal/domain"
)

/********** alias registries (single source of truth) **********/

// The backend has shipped both camelCase and snake_case payloads, and Mongo
// style "_id" keys; populated references arrive as nested objects.
var propertyAliases = map[string][]string{
	"id":          {"id", "_id", "propertyId"},
	"title":       {"title", "name"},
	"location":    {"location", "location.city", "location.name", "address.city", "city"},
	"price":       {"price", "pricePerNight", "price_per_night", "nightlyRate"},
	"rating":      {"rating", "averageRating", "average_rating"},
	"reviewCount": {"reviewCount", "reviewsCount", "review_count", "numReviews"},
	"images":      {"images", "photos", "gallery"},
}

var bookingAliases = map[string][]string{
	"id":            {"id", "_id", "bookingId"},
	"propertyId":    {"propertyId", "propertyId._id", "propertyId.id", "property._id", "property.id", "property_id"},
	"name":          {"contactName", "guestName", "contact.name", "name"},
	"email":         {"contactEmail", "guestEmail", "contact.email", "email"},
	"phone":         {"contactPhone", "guestPhone", "contact.phone", "phone"},
	"checkIn":       {"checkIn", "check_in", "checkInDate", "startDate"},
	"checkOut":      {"checkOut", "check_out", "checkOutDate", "endDate"},
	"guests":        {"guests", "guestCount", "numberOfGuests", "guests_count"},
	"status":        {"status", "bookingStatus"},
	"paymentStatus": {"paymentStatus", "payment_status"},
	"totalAmount":   {"totalAmount", "total_amount", "totalPrice", "amount"},
}

/********** tiny helpers **********/

// unwrap strips a {"data": {...}} envelope when present.
func unwrap(m map[string]any) map[string]any {
	if inner, ok := m["data"].(map[string]any); ok {
		return inner
	}
	return m
}

// lookupAny: safe nested lookup with dot paths on maps.
func lookupAny(m map[string]any, path string) any {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		v, ok := obj[part]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

// lookupStr returns string at path or "". Numeric ids are formatted.
func lookupStr(m map[string]any, path string) string {
	switch v := lookupAny(m, path).(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}

// firstAlias: first non-empty string for a named alias set.
func firstAlias(m map[string]any, aliases map[string][]string, key string) string {
	for _, p := range aliases[key] {
		if s := strings.TrimSpace(lookupStr(m, p)); s != "" {
			return s
		}
	}
	return ""
}

// getFloatFlexible: number from several paths (float64/int/string like "8,0").
func getFloatFlexible(m map[string]any, paths ...string) float64 {
	for _, k := range paths {
		switch v := lookupAny(m, k).(type) {
		case float64:
			return v
		case int:
			return float64(v)
		case string:
			s := strings.TrimSpace(strings.ReplaceAll(v, ",", "."))
			if s == "" {
				continue
			}
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				return f
			}
		}
	}
	return 0
}

// firstIntFlexible: int from several paths (float64/int/string).
func firstIntFlexible(m map[string]any, paths ...string) int {
	for _, k := range paths {
		switch v := lookupAny(m, k).(type) {
		case float64:
			return int(v)
		case int:
			return v
		case string:
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				return n
			}
		}
	}
	return 0
}

// firstSliceStrings: accept []any with either strings or {url/src/secure_url}.
func firstSliceStrings(m map[string]any, paths ...string) []string {
	for _, k := range paths {
		raw, ok := lookupAny(m, k).([]any)
		if !ok {
			continue
		}
		out := make([]string, 0, len(raw))
		for _, it := range raw {
			switch t := it.(type) {
			case string:
				if t != "" {
					out = append(out, t)
				}
			case map[string]any:
				for _, key := range []string{"url", "secure_url", "src"} {
					if u, ok := t[key].(string); ok && u != "" {
						out = append(out, u)
						break
					}
				}
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

// firstTime parses RFC 3339 (with or without fraction) or a bare date.
func firstTime(m map[string]any, paths ...string) *time.Time {
	for _, k := range paths {
		s, ok := lookupAny(m, k).(string)
		if !ok || strings.TrimSpace(s) == "" {
			continue
		}
		s = strings.TrimSpace(s)
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return &t
		}
		if t, err := time.Parse("2006-01-02", s); err == nil {
			return &t
		}
	}
	return nil
}

/********** property mapper **********/

func mapProperty(raw map[string]any) domain.Property {
	p := unwrap(raw)
	return domain.Property{
		ID:          firstAlias(p, propertyAliases, "id"),
		Title:       firstAlias(p, propertyAliases, "title"),
		Location:    firstAlias(p, propertyAliases, "location"),
		Price:       getFloatFlexible(p, propertyAliases["price"]...),
		Rating:      getFloatFlexible(p, propertyAliases["rating"]...),
		ReviewCount: firstIntFlexible(p, propertyAliases["reviewCount"]...),
		Images:      firstSliceStrings(p, propertyAliases["images"]...),
	}
}

func mapProperties(in []map[string]any) []domain.Property {
	out := make([]domain.Property, 0, len(in))
	for _, p := range in {
		out = append(out, mapProperty(p))
	}
	return out
}

/********** booking mapper **********/

func mapBooking(raw map[string]any) domain.Booking {
	b := unwrap(raw)
	return domain.Booking{
		ID:         firstAlias(b, bookingAliases, "id"),
		PropertyID: firstAlias(b, bookingAliases, "propertyId"),
		Contact: domain.Contact{
			Name:  firstAlias(b, bookingAliases, "name"),
			Email: firstAlias(b, bookingAliases, "email"),
			Phone: firstAlias(b, bookingAliases, "phone"),
		},
		CheckIn:       firstTime(b, bookingAliases["checkIn"]...),
		CheckOut:      firstTime(b, bookingAliases["checkOut"]...),
		Guests:        firstIntFlexible(b, bookingAliases["guests"]...),
		Status:        firstAlias(b, bookingAliases, "status"),
		PaymentStatus: firstAlias(b, bookingAliases, "paymentStatus"),
		TotalAmount:   getFloatFlexible(b, bookingAliases["totalAmount"]...),
	}
}
