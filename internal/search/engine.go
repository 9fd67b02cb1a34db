package search

import (
	"context"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"landsphere/server/internal/apperr"
	"landsphere/server/internal/catalog"
	"landsphere/server/internal/models"
)

// ListingSource returns the current listings, freshly read on every call.
type ListingSource interface {
	Listings(ctx context.Context) ([]models.Listing, error)
}

// Engine runs the search functions against live listings.
type Engine struct {
	catalog  *catalog.Catalog
	listings ListingSource
	logger   *logrus.Logger
}

func NewEngine(c *catalog.Catalog, listings ListingSource, logger *logrus.Logger) *Engine {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	return &Engine{catalog: c, listings: listings, logger: logger}
}

// Entries joins the current listings with the catalog, in listing key order.
func (e *Engine) Entries(ctx context.Context) ([]models.MarketEntry, error) {
	if e.catalog == nil {
		return nil, fmt.Errorf("search engine has no catalog: %w", apperr.ErrEngineUnavailable)
	}
	listings, err := e.listings.Listings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load listings: %w", err)
	}
	return e.catalog.Join(listings), nil
}

func (e *Engine) BudgetFilter(ctx context.Context, ceiling decimal.Decimal) ([]models.MarketEntry, error) {
	entries, err := e.Entries(ctx)
	if err != nil {
		return nil, err
	}
	return BudgetFilter(entries, ceiling), nil
}

func (e *Engine) PriceSearch(ctx context.Context, target decimal.Decimal) ([]models.MarketEntry, error) {
	entries, err := e.Entries(ctx)
	if err != nil {
		return nil, err
	}
	return PriceSearch(entries, target), nil
}

// SortedByPrice lists the available entries ordered by price.
func (e *Engine) SortedByPrice(ctx context.Context, ascending bool) ([]models.MarketEntry, error) {
	entries, err := e.Entries(ctx)
	if err != nil {
		return nil, err
	}
	return SortByPrice(available(entries), ascending), nil
}

func (e *Engine) SearchNearby(ctx context.Context, q NearbyQuery) ([]models.MarketEntry, error) {
	entries, err := e.Entries(ctx)
	if err != nil {
		return nil, err
	}

	matches, err := SearchNearby(entries, q)
	if err != nil {
		return nil, err
	}
	e.logger.WithFields(logrus.Fields{
		"state":         q.State,
		"city":          q.City,
		"property_type": q.PropertyType,
		"target_price":  q.TargetPrice.String(),
		"matches":       len(matches),
	}).Debug("Nearby search completed")
	return matches, nil
}
