package market

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"landsphere/server/internal/apperr"
	"landsphere/server/internal/catalog"
	"landsphere/server/internal/geography"
	"landsphere/server/internal/models"
)

// Levels of the drill-down, from the country overview to a city's listings.
const (
	LevelOverview = "overview"
	LevelRegion   = "region"
	LevelState    = "state"
	LevelCity     = "city"
)

// Store is the read side of the record store used while browsing.
type Store interface {
	Listings(ctx context.Context) ([]models.Listing, error)
	Accounts(ctx context.Context) ([]models.UserAccount, error)
}

// Location is where a free-text search lands in the hierarchy.
type Location struct {
	Region string `json:"region"`
	State  string `json:"state"`
	City   string `json:"city,omitempty"`
}

type BrowseRequest struct {
	Region string
	State  string
	City   string
	Search string
	Budget *decimal.Decimal
	Sort   string
}

// View is one page of the drill-down. Summary is filled on the overview, region and state
// levels, Listings on the city level.
type View struct {
	Level    string               `json:"level"`
	Region   string               `json:"region,omitempty"`
	State    string               `json:"state,omitempty"`
	City     string               `json:"city,omitempty"`
	Summary  []models.SummaryRow  `json:"summary,omitempty"`
	Listings []models.MarketEntry `json:"listings,omitempty"`
	Redirect *Location            `json:"redirect,omitempty"`
}

type Service struct {
	catalog *catalog.Catalog
	index   *geography.Index
	store   Store
	logger  *logrus.Logger
}

func NewService(c *catalog.Catalog, index *geography.Index, store Store, logger *logrus.Logger) *Service {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	return &Service{catalog: c, index: index, store: store, logger: logger}
}

// Resolve matches a query against city names first and state names second, ignoring
// case. A miss resolves to nothing.
func (s *Service) Resolve(query string) (Location, bool) {
	query = strings.TrimSpace(query)
	if query == "" || s.index == nil {
		return Location{}, false
	}
	if node, ok := s.index.LookupCity(query); ok {
		return Location{Region: node.Region, State: node.State, City: node.City}, true
	}
	if state, region, ok := s.index.LookupState(query); ok {
		return Location{Region: region, State: state}, true
	}
	return Location{}, false
}

// Entries joins the current listings with the catalog and their owners' names.
func (s *Service) Entries(ctx context.Context) ([]models.MarketEntry, error) {
	if s.catalog == nil || s.index == nil {
		return nil, fmt.Errorf("marketplace is not initialised: %w", apperr.ErrEngineUnavailable)
	}

	listings, err := s.store.Listings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load listings: %w", err)
	}
	accounts, err := s.store.Accounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load accounts: %w", err)
	}
	return WithOwnerNames(s.catalog.Join(listings), accounts), nil
}

// Browse walks the drill-down. A search that resolves replaces the request; a city shows
// its listings; a state its cities; a region its states. A state or region with nothing
// available falls back to the overview.
func (s *Service) Browse(ctx context.Context, req BrowseRequest) (*View, error) {
	var redirect *Location
	if req.Search != "" {
		if loc, ok := s.Resolve(req.Search); ok {
			redirect = &loc
			req = BrowseRequest{Region: loc.Region, State: loc.State, City: loc.City, Budget: req.Budget, Sort: req.Sort}
		}
	}

	entries, err := s.Entries(ctx)
	if err != nil {
		return nil, err
	}

	view, err := s.browse(entries, req)
	if err != nil {
		return nil, err
	}
	view.Redirect = redirect

	s.logger.WithFields(logrus.Fields{
		"level":  view.Level,
		"region": view.Region,
		"state":  view.State,
		"city":   view.City,
	}).Debug("Marketplace browsed")
	return view, nil
}

func (s *Service) browse(entries []models.MarketEntry, req BrowseRequest) (*View, error) {
	switch {
	case req.City != "":
		state, region := req.State, req.Region
		if node, ok := s.index.LookupCity(req.City); ok {
			if state == "" {
				state = node.State
			}
			if region == "" {
				region = node.Region
			}
		}
		listings, err := CityDetail(entries, DetailQuery{City: req.City, State: req.State, Budget: req.Budget, Sort: req.Sort})
		if err != nil {
			return nil, err
		}
		return &View{Level: LevelCity, Region: region, State: state, City: req.City, Listings: listings}, nil

	case req.State != "":
		rows := CitySummary(entries, req.State)
		if len(rows) == 0 {
			return overview(entries), nil
		}
		region := req.Region
		if _, r, ok := s.index.LookupState(req.State); ok && region == "" {
			region = r
		}
		return &View{Level: LevelState, Region: region, State: req.State, Summary: rows}, nil

	case req.Region != "":
		rows := StateSummary(entries, req.Region)
		if len(rows) == 0 {
			return overview(entries), nil
		}
		return &View{Level: LevelRegion, Region: req.Region, Summary: rows}, nil
	}
	return overview(entries), nil
}

func overview(entries []models.MarketEntry) *View {
	return &View{Level: LevelOverview, Summary: RegionSummary(entries)}
}
