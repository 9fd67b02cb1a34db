// Package catalogtest provides a small deterministic catalog for tests.
package catalogtest

import (
	"github.com/shopspring/decimal"

	"landsphere/server/internal/catalog"
	"landsphere/server/internal/models"
)

// Record builds a catalog record with the fields the marketplace logic looks at.
func Record(id int64, region, state, city, propertyType string, price int64) models.PropertyRecord {
	return models.PropertyRecord{
		PropertyID:   id,
		Region:       region,
		State:        state,
		City:         city,
		PropertyType: propertyType,
		AreaSqFt:     1000,
		PricePerSqFt: decimal.NewFromInt(price).Div(decimal.NewFromInt(1000)),
		BasePrice:    decimal.NewFromInt(price),
		YearBuilt:    2020,
		GrowthRate:   0.1,
		RiskScore:    5,
	}
}

// Records is the sample catalog in encounter order. "Udaipur" exists in two states.
func Records() []models.PropertyRecord {
	return []models.PropertyRecord{
		Record(1, "West", "Maharashtra", "Mumbai", "Residential", 500),
		Record(2, "West", "Maharashtra", "Pune", "Commercial", 700),
		Record(3, "West", "Gujarat", "Surat", "Residential", 300),
		Record(4, "North", "Delhi", "New Delhi", "Residential", 900),
		Record(5, "West", "Maharashtra", "Mumbai", "Commercial", 500),
		Record(6, "North", "Punjab", "Amritsar", "Agricultural", 200),
		Record(7, "West", "Maharashtra", "Nagpur", "Residential", 650),
		Record(8, "South", "Karnataka", "Bengaluru", "Industrial", 1200),
		Record(9, "West", "Gujarat", "Ahmedabad", "Residential", 450),
		Record(10, "West", "Maharashtra", "Mumbai", "Residential", 520),
		Record(11, "West", "Rajasthan", "Udaipur", "Residential", 400),
		Record(12, "North-East", "Tripura", "Udaipur", "Residential", 150),
	}
}

// Catalog returns the sample catalog.
func Catalog() *catalog.Catalog {
	c, err := catalog.New(Records())
	if err != nil {
		panic(err)
	}
	return c
}

// Entries joins the sample catalog with its seed listings.
func Entries() []models.MarketEntry {
	c := Catalog()
	return c.Join(c.SeedListings())
}
