package domain

import "time"

// Property is owned by the backend; the service only keeps transient copies.
type Property struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Location    string   `json:"location"`
	Price       float64  `json:"price"`
	Rating      float64  `json:"rating"`
	ReviewCount int      `json:"reviewCount"`
	Images      []string `json:"images"`
}

type Contact struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

type Booking struct {
	ID            string     `json:"id"`
	PropertyID    string     `json:"propertyId"`
	Contact       Contact    `json:"contact"`
	CheckIn       *time.Time `json:"checkIn,omitempty"`
	CheckOut      *time.Time `json:"checkOut,omitempty"`
	Guests        int        `json:"guests"`
	Status        string     `json:"status"`
	PaymentStatus string     `json:"paymentStatus"`
	TotalAmount   float64    `json:"totalAmount"`
}

// DateRange is a possibly half-open selection from the date picker.
type DateRange struct {
	From *time.Time
	To   *time.Time
}

// Complete reports whether the range can be used for a search.
func (r DateRange) Complete() bool {
	return r.From != nil && r.To != nil && !r.From.After(*r.To)
}

type BookingSearchQuery struct {
	Location *string
	CheckIn  *time.Time
	CheckOut *time.Time
	Guests   *int
}

// DashboardMetrics are the host dashboard summary cards.
type DashboardMetrics struct {
	PropertyCount int     `json:"propertyCount"`
	TotalRevenue  float64 `json:"totalRevenue"`
	AverageRating float64 `json:"averageRating"`
	TotalBookings int     `json:"totalBookings"`
}
