// Package search implements price filtering, ranking and nearest-price matching over
// catalog properties joined with their live listings.
package search

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"landsphere/server/internal/apperr"
	"landsphere/server/internal/models"
)

// NearbyQuery selects listings in a state close to a target price. City and Margin are
// optional.
type NearbyQuery struct {
	State        string
	City         string
	PropertyType string
	TargetPrice  decimal.Decimal
	Margin       *decimal.Decimal
}

func available(entries []models.MarketEntry) []models.MarketEntry {
	out := make([]models.MarketEntry, 0, len(entries))
	for _, e := range entries {
		if e.Available() {
			out = append(out, e)
		}
	}
	return out
}

// BudgetFilter keeps the available entries priced at or below the ceiling, in input order.
func BudgetFilter(entries []models.MarketEntry, ceiling decimal.Decimal) []models.MarketEntry {
	out := make([]models.MarketEntry, 0)
	for _, e := range entries {
		if e.Available() && e.Price.LessThanOrEqual(ceiling) {
			out = append(out, e)
		}
	}
	return out
}

// SortByPrice returns a stably sorted copy. Entries with equal prices keep their relative
// order in both directions, so sorting a sorted sequence again is a no-op.
func SortByPrice(entries []models.MarketEntry, ascending bool) []models.MarketEntry {
	out := slices.Clone(entries)
	if out == nil {
		out = make([]models.MarketEntry, 0)
	}
	slices.SortStableFunc(out, func(a, b models.MarketEntry) int {
		if ascending {
			return a.Price.Cmp(b.Price)
		}
		return b.Price.Cmp(a.Price)
	})
	return out
}

// PriceSearch returns every available entry priced exactly at target, in ascending
// price order (stable).
func PriceSearch(entries []models.MarketEntry, target decimal.Decimal) []models.MarketEntry {
	sorted := SortByPrice(available(entries), true)

	hit, found := slices.BinarySearchFunc(sorted, target, func(e models.MarketEntry, t decimal.Decimal) int {
		return e.Price.Cmp(t)
	})
	if !found {
		return make([]models.MarketEntry, 0)
	}

	lo, hi := hit, hit+1
	for lo > 0 && sorted[lo-1].Price.Equal(target) {
		lo--
	}
	for hi < len(sorted) && sorted[hi].Price.Equal(target) {
		hi++
	}
	return sorted[lo:hi]
}

// SearchNearby matches available listings in a state, optionally narrowed to a city,
// against a target price. With a margin it returns every candidate within the margin,
// closest first with ties going to the lower price and then the lower property id.
// Without a margin it returns the single closest candidate, ties going to the lower id.
// No candidates is an empty result.
func SearchNearby(entries []models.MarketEntry, q NearbyQuery) ([]models.MarketEntry, error) {
	if strings.TrimSpace(q.State) == "" {
		return nil, fmt.Errorf("state is required: %w", apperr.ErrInvalidInput)
	}
	if strings.TrimSpace(q.PropertyType) == "" {
		return nil, fmt.Errorf("property type is required: %w", apperr.ErrInvalidInput)
	}
	if q.Margin != nil && q.Margin.IsNegative() {
		return nil, fmt.Errorf("margin must not be negative: %w", apperr.ErrInvalidInput)
	}

	candidates := make([]models.MarketEntry, 0)
	for _, e := range entries {
		if !e.Available() || !strings.EqualFold(e.State, strings.TrimSpace(q.State)) {
			continue
		}
		if q.City != "" && !strings.EqualFold(e.City, strings.TrimSpace(q.City)) {
			continue
		}
		if !strings.EqualFold(e.PropertyType, strings.TrimSpace(q.PropertyType)) {
			continue
		}
		candidates = append(candidates, e)
	}

	distance := func(e models.MarketEntry) decimal.Decimal {
		return e.Price.Sub(q.TargetPrice).Abs()
	}

	if q.Margin == nil {
		if len(candidates) == 0 {
			return candidates, nil
		}
		best := candidates[0]
		for _, e := range candidates[1:] {
			switch d := distance(e).Cmp(distance(best)); {
			case d < 0, d == 0 && e.PropertyID < best.PropertyID:
				best = e
			}
		}
		return []models.MarketEntry{best}, nil
	}

	matches := make([]models.MarketEntry, 0, len(candidates))
	for _, e := range candidates {
		if distance(e).LessThanOrEqual(*q.Margin) {
			matches = append(matches, e)
		}
	}
	slices.SortFunc(matches, func(a, b models.MarketEntry) int {
		if c := distance(a).Cmp(distance(b)); c != 0 {
			return c
		}
		if c := a.Price.Cmp(b.Price); c != 0 {
			return c
		}
		return cmp.Compare(a.PropertyID, b.PropertyID)
	})
	return matches, nil
}
