// Package market rolls available listings up along the region, state and city hierarchy
// and drives marketplace browsing.
package market

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"landsphere/server/internal/apperr"
	"landsphere/server/internal/models"
	"landsphere/server/internal/search"
)

const (
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"

	PlatformOwnerName = "Platform"
)

func summarize(entries []models.MarketEntry, keep func(models.MarketEntry) bool, group func(models.MarketEntry) string) []models.SummaryRow {
	counts := make(map[string]int)
	for _, e := range entries {
		if e.Available() && keep(e) {
			counts[group(e)]++
		}
	}

	rows := make([]models.SummaryRow, 0, len(counts))
	for name, count := range counts {
		rows = append(rows, models.SummaryRow{Name: name, Count: count})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Name < rows[j].Name })
	return rows
}

func all(models.MarketEntry) bool { return true }

// RegionSummary counts available listings per region.
func RegionSummary(entries []models.MarketEntry) []models.SummaryRow {
	return summarize(entries, all, func(e models.MarketEntry) string { return e.Region })
}

// StateSummary counts available listings per state of one region.
func StateSummary(entries []models.MarketEntry, region string) []models.SummaryRow {
	return summarize(entries,
		func(e models.MarketEntry) bool { return strings.EqualFold(e.Region, region) },
		func(e models.MarketEntry) string { return e.State })
}

// CitySummary counts available listings per city of one state.
func CitySummary(entries []models.MarketEntry, state string) []models.SummaryRow {
	return summarize(entries,
		func(e models.MarketEntry) bool { return strings.EqualFold(e.State, state) },
		func(e models.MarketEntry) string { return e.City })
}

// DetailQuery narrows the listings of one city. State, Budget and Sort are optional.
type DetailQuery struct {
	City   string
	State  string
	Budget *decimal.Decimal
	Sort   string
}

// CityDetail returns the available listings of a city, optionally capped by a budget and
// sorted by price.
func CityDetail(entries []models.MarketEntry, q DetailQuery) ([]models.MarketEntry, error) {
	if q.Sort != "" && q.Sort != SortPriceAsc && q.Sort != SortPriceDesc {
		return nil, fmt.Errorf("unknown sort %q: %w", q.Sort, apperr.ErrInvalidInput)
	}

	rows := make([]models.MarketEntry, 0)
	for _, e := range entries {
		if !e.Available() || !strings.EqualFold(e.City, q.City) {
			continue
		}
		if q.State != "" && !strings.EqualFold(e.State, q.State) {
			continue
		}
		rows = append(rows, e)
	}

	if q.Budget != nil {
		rows = search.BudgetFilter(rows, *q.Budget)
	}
	if q.Sort != "" {
		rows = search.SortByPrice(rows, q.Sort == SortPriceAsc)
	}
	return rows, nil
}

// WithOwnerNames fills in who holds each entry.
func WithOwnerNames(entries []models.MarketEntry, accounts []models.UserAccount) []models.MarketEntry {
	names := make(map[int64]string, len(accounts))
	for _, a := range accounts {
		names[a.ID] = a.DisplayName()
	}
	for i := range entries {
		name, ok := names[entries[i].OwnerID]
		if entries[i].OwnerID == models.PlatformOwnerID || !ok {
			name = PlatformOwnerName
		}
		entries[i].OwnerName = name
	}
	return entries
}
