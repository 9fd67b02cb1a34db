// Package catalog holds the immutable property reference data. A Catalog is built once
// at startup and shared by reference; nothing mutates it afterwards, so it is safe for
// concurrent readers without locking.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"landsphere/server/internal/models"
)

var ErrMissingCatalog = errors.New("property catalog is missing")

// Source provides the persisted catalog rows.
type Source interface {
	Catalog(ctx context.Context) ([]models.PropertyRecord, error)
}

type Catalog struct {
	records []models.PropertyRecord
	index   map[int64]int
}

// New builds a catalog from records kept in the given order. Duplicate ids are rejected.
func New(records []models.PropertyRecord) (*Catalog, error) {
	if len(records) == 0 {
		return nil, ErrMissingCatalog
	}

	c := &Catalog{
		records: make([]models.PropertyRecord, len(records)),
		index:   make(map[int64]int, len(records)),
	}
	copy(c.records, records)

	for i, r := range c.records {
		if _, dup := c.index[r.PropertyID]; dup {
			return nil, fmt.Errorf("duplicate property id %d in catalog", r.PropertyID)
		}
		c.index[r.PropertyID] = i
	}
	return c, nil
}

// Load reads the catalog from its persisted table.
func Load(ctx context.Context, source Source) (*Catalog, error) {
	records, err := source.Catalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	return New(records)
}

func (c *Catalog) Len() int {
	return len(c.records)
}

func (c *Catalog) Get(propertyID int64) (models.PropertyRecord, bool) {
	i, ok := c.index[propertyID]
	if !ok {
		return models.PropertyRecord{}, false
	}
	return c.records[i], true
}

// Records returns the catalog in encounter order. The slice is shared; do not modify it.
func (c *Catalog) Records() []models.PropertyRecord {
	return c.records
}

// Join pairs each listing with its catalog record, preserving listing order. Listings
// without a catalog record are skipped.
func (c *Catalog) Join(listings []models.Listing) []models.MarketEntry {
	entries := make([]models.MarketEntry, 0, len(listings))
	for _, l := range listings {
		record, ok := c.Get(l.PropertyID)
		if !ok {
			continue
		}
		entries = append(entries, models.MarketEntry{
			PropertyRecord: record,
			Price:          l.Price,
			OwnerID:        l.OwnerID,
			Status:         l.Status,
		})
	}
	return entries
}

// SeedListings returns the initial listing for every property: platform owned,
// available, priced at the catalog base price.
func (c *Catalog) SeedListings() []models.Listing {
	listings := make([]models.Listing, len(c.records))
	for i, r := range c.records {
		listings[i] = models.Listing{
			PropertyID: r.PropertyID,
			Price:      r.BasePrice,
			OwnerID:    models.PlatformOwnerID,
			Status:     models.StatusAvailable,
		}
	}
	return listings
}
