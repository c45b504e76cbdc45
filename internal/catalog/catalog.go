// Package catalog serves the static destination list shown on the
// destinations page and behind the hero search box.
package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"staybook/internal/domain"
)

//go:embed destinations.json
var destinationsJSON []byte

type Catalog struct {
	records []domain.LocationRecord
	byID    map[string]int
}

// Default parses the embedded destination file. It panics on malformed
// data since the file ships with the binary.
func Default() *Catalog {
	c, err := Parse(destinationsJSON)
	if err != nil {
		panic(err)
	}
	return c
}

func Parse(b []byte) (*Catalog, error) {
	var recs []domain.LocationRecord
	if err := json.Unmarshal(b, &recs); err != nil {
		return nil, fmt.Errorf("catalog: decode destinations: %w", err)
	}
	return New(recs)
}

func New(recs []domain.LocationRecord) (*Catalog, error) {
	c := &Catalog{records: recs, byID: make(map[string]int, len(recs))}
	for i, r := range recs {
		if r.ID == "" {
			return nil, fmt.Errorf("catalog: record %d has no id", i)
		}
		if _, dup := c.byID[r.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate id %q", r.ID)
		}
		c.byID[r.ID] = i
	}
	return c, nil
}

// All returns the complete catalog in file order. Callers must not mutate it.
func (c *Catalog) All() []domain.LocationRecord { return c.records }

func (c *Catalog) Get(id string) (domain.LocationRecord, bool) {
	i, ok := c.byID[strings.ToLower(strings.TrimSpace(id))]
	if !ok {
		return domain.LocationRecord{}, false
	}
	return c.records[i], true
}

// Localize projects r onto lang for the destination cards.
func Localize(r domain.LocationRecord, lang domain.Language) domain.LocationView {
	return domain.LocationView{
		ID:              r.ID,
		Name:            r.Name.In(lang),
		Region:          r.Region.In(lang),
		Description:     r.Description.In(lang),
		Neighborhoods:   r.Neighborhoods,
		Images:          r.Images,
		BestTimeToVisit: r.BestTimeToVisit.In(lang),
		Language:        lang,
	}
}
