package catalog

import (
	"strings"

	"staybook/internal/domain"
)

// Filter keeps records whose name or region contains query, ignoring case.
// Both languages are searched whatever lang is active, so an Arabic query
// still finds results while the UI is in English. lang is accepted to keep
// the call site explicit about the active language.
func Filter(records []domain.LocationRecord, query string, lang domain.Language) []domain.LocationRecord {
	_ = lang
	if query == "" {
		return records
	}
	q := strings.ToLower(query)
	out := make([]domain.LocationRecord, 0, len(records))
	for _, r := range records {
		if matches(r, q) {
			out = append(out, r)
		}
	}
	return out
}

func matches(r domain.LocationRecord, q string) bool {
	for _, field := range []string{r.Name.EN, r.Name.AR, r.Region.EN, r.Region.AR} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}
