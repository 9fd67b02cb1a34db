package geography

import (
	"fmt"
	"maps"
	"slices"

	"github.com/shopspring/decimal"

	"landsphere/server/internal/apperr"
	"landsphere/server/internal/models"
)

type typeTotals struct {
	count      int
	perSqFtSum decimal.Decimal
}

// aggregate computes stats over base prices, keyed by lower-cased city name. A name
// shared by several states is aggregated as one city.
func aggregate(records []models.PropertyRecord) map[string]*models.CityStats {
	stats := make(map[string]*models.CityStats)
	totals := make(map[string]decimal.Decimal)
	types := make(map[string]map[string]*typeTotals)

	for _, r := range records {
		k := key(r.City)
		s, ok := stats[k]
		if !ok {
			s = &models.CityStats{
				Name:             r.City,
				MinPrice:         r.BasePrice,
				MaxPrice:         r.BasePrice,
				TypeDistribution: make(map[string]int),
				TypeAvgPrices:    make(map[string]decimal.Decimal),
			}
			stats[k] = s
			types[k] = make(map[string]*typeTotals)
		}

		s.Count++
		totals[k] = totals[k].Add(r.BasePrice)
		if r.BasePrice.LessThan(s.MinPrice) {
			s.MinPrice = r.BasePrice
		}
		if r.BasePrice.GreaterThan(s.MaxPrice) {
			s.MaxPrice = r.BasePrice
		}
		s.TypeDistribution[r.PropertyType]++

		tt, ok := types[k][r.PropertyType]
		if !ok {
			tt = &typeTotals{}
			types[k][r.PropertyType] = tt
		}
		tt.count++
		tt.perSqFtSum = tt.perSqFtSum.Add(r.PricePerSqFt)
	}

	for k, s := range stats {
		s.AvgPrice = totals[k].Div(decimal.NewFromInt(int64(s.Count))).Round(2)
		for propertyType, tt := range types[k] {
			s.TypeAvgPrices[propertyType] = tt.perSqFtSum.Div(decimal.NewFromInt(int64(tt.count))).Round(2)
		}
	}
	return stats
}

// CityStats returns the aggregate for one city.
func (idx *Index) CityStats(city string) (models.CityStats, error) {
	s, ok := idx.stats[key(city)]
	if !ok {
		return models.CityStats{}, fmt.Errorf("city %q: %w", city, apperr.ErrNotFound)
	}
	return cloneStats(s), nil
}

// MultiCityStats computes CityStats for each city independently, keyed by the name as
// given. Cities missing from the catalog have no entry.
func (idx *Index) MultiCityStats(cities []string) map[string]models.CityStats {
	result := make(map[string]models.CityStats, len(cities))
	for _, city := range cities {
		if s, ok := idx.stats[key(city)]; ok {
			result[city] = cloneStats(s)
		}
	}
	return result
}

func cloneStats(s *models.CityStats) models.CityStats {
	out := *s
	out.TypeDistribution = maps.Clone(s.TypeDistribution)
	out.TypeAvgPrices = maps.Clone(s.TypeAvgPrices)
	out.Nearby = slices.Clone(s.Nearby)
	return out
}
