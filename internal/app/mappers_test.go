package app

import (
	"encoding/json"
	"testing"
	"time"
)

func decode(t *testing.T, s string) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		t.Fatalf("bad fixture: %v", err)
	}
	return m
}

func TestMapProperty_CamelCase(t *testing.T) {
	p := mapProperty(decode(t, `{
		"_id": "665f1c",
		"title": "Corniche Loft",
		"location": "Jeddah",
		"price": 420,
		"rating": 4.6,
		"reviewCount": 18,
		"images": ["a.jpg", {"url": "b.jpg"}, {"secure_url": "c.jpg"}]
	}`))

	if p.ID != "665f1c" || p.Title != "Corniche Loft" || p.Location != "Jeddah" {
		t.Fatalf("unexpected identity fields: %+v", p)
	}
	if p.Price != 420 || p.Rating != 4.6 || p.ReviewCount != 18 {
		t.Fatalf("unexpected numbers: %+v", p)
	}
	if len(p.Images) != 3 || p.Images[2] != "c.jpg" {
		t.Fatalf("unexpected images: %v", p.Images)
	}
}

func TestMapProperty_SnakeCaseStringsAndEnvelope(t *testing.T) {
	p := mapProperty(decode(t, `{"data": {
		"id": 77,
		"name": "Desert Camp",
		"location": {"city": "AlUla"},
		"price_per_night": "1250,50",
		"average_rating": "4",
		"review_count": "9",
		"photos": []
	}}`))

	if p.ID != "77" || p.Title != "Desert Camp" || p.Location != "AlUla" {
		t.Fatalf("unexpected identity fields: %+v", p)
	}
	if p.Price != 1250.5 || p.Rating != 4 || p.ReviewCount != 9 {
		t.Fatalf("unexpected numbers: %+v", p)
	}
	if p.Images != nil {
		t.Fatalf("expected no images, got %v", p.Images)
	}
}

func TestMapBooking(t *testing.T) {
	b := mapBooking(decode(t, `{
		"_id": "bk_1",
		"propertyId": {"_id": "665f1c", "title": "Corniche Loft"},
		"contactName": "Sara",
		"contactEmail": "sara@example.com",
		"checkIn": "2024-06-01T00:00:00.000Z",
		"checkOut": "2024-06-05",
		"guests": 2,
		"status": "pending",
		"paymentStatus": "unpaid",
		"totalAmount": 1680
	}`))

	if b.ID != "bk_1" || b.PropertyID != "665f1c" {
		t.Fatalf("unexpected ids: %+v", b)
	}
	if b.Contact.Name != "Sara" || b.Contact.Email != "sara@example.com" || b.Contact.Phone != "" {
		t.Fatalf("unexpected contact: %+v", b.Contact)
	}
	if b.CheckIn == nil || !b.CheckIn.Equal(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected checkIn: %v", b.CheckIn)
	}
	if b.CheckOut == nil || b.CheckOut.Day() != 5 {
		t.Fatalf("unexpected checkOut: %v", b.CheckOut)
	}
	if b.Guests != 2 || b.Status != "pending" || b.PaymentStatus != "unpaid" || b.TotalAmount != 1680 {
		t.Fatalf("unexpected booking: %+v", b)
	}
}

func TestMapBooking_PlainPropertyID(t *testing.T) {
	b := mapBooking(decode(t, `{"id": "bk_2", "property_id": "p9", "payment_status": "paid"}`))
	if b.PropertyID != "p9" || b.PaymentStatus != "paid" {
		t.Fatalf("unexpected booking: %+v", b)
	}
	if b.CheckIn != nil {
		t.Fatalf("expected nil checkIn")
	}
}
