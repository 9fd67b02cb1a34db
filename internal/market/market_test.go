package market

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"landsphere/server/internal/apperr"
	"landsphere/server/internal/catalog"
	"landsphere/server/internal/catalog/catalogtest"
	"landsphere/server/internal/geography"
	"landsphere/server/internal/models"
)

type fakeStore struct {
	listings []models.Listing
	accounts []models.UserAccount
	err      error
}

func (f *fakeStore) Listings(context.Context) ([]models.Listing, error) { return f.listings, f.err }
func (f *fakeStore) Accounts(context.Context) ([]models.UserAccount, error) { return f.accounts, f.err }

func newService(t *testing.T, store *fakeStore) *Service {
	c := catalogtest.Catalog()
	idx, err := geography.Build(c)
	require.NoError(t, err)
	if store.listings == nil {
		store.listings = c.SeedListings()
	}
	return NewService(c, idx, store, nil)
}

func ids(entries []models.MarketEntry) []int64 {
	out := make([]int64, len(entries))
	for i, e := range entries {
		out[i] = e.PropertyID
	}
	return out
}

func TestRegionSummaryFiveRegions(t *testing.T) {
	regions := []string{"North", "South", "East", "West", "Central"}
	records := make([]models.PropertyRecord, 0, 5000)
	for i := 0; i < 5000; i++ {
		region := regions[i%len(regions)]
		state := fmt.Sprintf("%s State %d", region, i%7)
		city := fmt.Sprintf("%s City %d", state, i%11)
		records = append(records, catalogtest.Record(int64(i+1), region, state, city, "Residential", int64(1000+i)))
	}
	c, err := catalog.New(records)
	require.NoError(t, err)

	entries := c.Join(c.SeedListings())
	available := len(entries)
	for i := 0; i < len(entries); i += 9 {
		entries[i].Status = models.StatusSold
		entries[i].OwnerID = 1
		available--
	}

	rows := RegionSummary(entries)
	require.Len(t, rows, 5)

	total := 0
	for _, row := range rows {
		total += row.Count
	}
	assert.Equal(t, available, total)
	assert.Equal(t, "Central", rows[0].Name, "rows are ordered by name")
}

func TestSummaries(t *testing.T) {
	entries := catalogtest.Entries()
	entries[0].Status = models.StatusSold
	entries[0].OwnerID = 3

	assert.Equal(t, []models.SummaryRow{
		{Name: "North", Count: 2},
		{Name: "North-East", Count: 1},
		{Name: "South", Count: 1},
		{Name: "West", Count: 7},
	}, RegionSummary(entries))

	assert.Equal(t, []models.SummaryRow{
		{Name: "Gujarat", Count: 2},
		{Name: "Maharashtra", Count: 4},
		{Name: "Rajasthan", Count: 1},
	}, StateSummary(entries, "west"))

	assert.Equal(t, []models.SummaryRow{
		{Name: "Mumbai", Count: 2},
		{Name: "Nagpur", Count: 1},
		{Name: "Pune", Count: 1},
	}, CitySummary(entries, "MAHARASHTRA"))

	assert.Empty(t, StateSummary(entries, "Atlantis"))
}

func TestCityDetail(t *testing.T) {
	budget := decimal.NewFromInt(510)

	tests := []struct {
		name  string
		query DetailQuery
		want  []int64
	}{
		{name: "listing order", query: DetailQuery{City: "mumbai"}, want: []int64{1, 5, 10}},
		{name: "descending keeps equal prices in order", query: DetailQuery{City: "Mumbai", Sort: SortPriceDesc}, want: []int64{10, 1, 5}},
		{name: "budget", query: DetailQuery{City: "Mumbai", Budget: &budget, Sort: SortPriceAsc}, want: []int64{1, 5}},
		{name: "state disambiguates", query: DetailQuery{City: "Udaipur", State: "Tripura"}, want: []int64{12}},
		{name: "shared name without state", query: DetailQuery{City: "Udaipur", Sort: SortPriceAsc}, want: []int64{12, 11}},
		{name: "unknown city", query: DetailQuery{City: "Atlantis"}, want: []int64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CityDetail(catalogtest.Entries(), tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
		})
	}

	_, err := CityDetail(catalogtest.Entries(), DetailQuery{City: "Mumbai", Sort: "rating"})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestWithOwnerNames(t *testing.T) {
	entries := catalogtest.Entries()[:3]
	entries[1].OwnerID = 4
	entries[2].OwnerID = 5

	named := WithOwnerNames(entries, []models.UserAccount{
		{ID: 4, Username: "asha", FullName: "Asha Rao"},
		{ID: 5, Username: "vikram"},
	})
	assert.Equal(t, PlatformOwnerName, named[0].OwnerName)
	assert.Equal(t, "Asha Rao", named[1].OwnerName)
	assert.Equal(t, "vikram", named[2].OwnerName)
}

func TestResolve(t *testing.T) {
	s := newService(t, &fakeStore{})

	tests := []struct {
		query string
		want  Location
		found bool
	}{
		{query: "pune", want: Location{Region: "West", State: "Maharashtra", City: "Pune"}, found: true},
		{query: " Punjab ", want: Location{Region: "North", State: "Punjab"}, found: true},
		{query: "Delhi", want: Location{Region: "North", State: "Delhi"}, found: true},
		{query: "udaipur", want: Location{Region: "West", State: "Rajasthan", City: "Udaipur"}, found: true},
		{query: "West", found: false},
		{query: "", found: false},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got, ok := s.Resolve(tt.query)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBrowse(t *testing.T) {
	ctx := context.Background()
	c := catalogtest.Catalog()
	listings := c.SeedListings()
	listings[1].OwnerID = 2
	listings[1].Status = models.StatusSold

	s := newService(t, &fakeStore{
		listings: listings,
		accounts: []models.UserAccount{{ID: 2, Username: "asha"}},
	})

	t.Run("overview", func(t *testing.T) {
		view, err := s.Browse(ctx, BrowseRequest{})
		require.NoError(t, err)
		assert.Equal(t, LevelOverview, view.Level)
		assert.Len(t, view.Summary, 4)
		assert.Nil(t, view.Redirect)
	})

	t.Run("region lists states", func(t *testing.T) {
		view, err := s.Browse(ctx, BrowseRequest{Region: "North"})
		require.NoError(t, err)
		assert.Equal(t, LevelRegion, view.Level)
		assert.Equal(t, []models.SummaryRow{{Name: "Delhi", Count: 1}, {Name: "Punjab", Count: 1}}, view.Summary)
	})

	t.Run("state lists cities and infers region", func(t *testing.T) {
		view, err := s.Browse(ctx, BrowseRequest{State: "maharashtra"})
		require.NoError(t, err)
		assert.Equal(t, LevelState, view.Level)
		assert.Equal(t, "West", view.Region)
		assert.Equal(t, []models.SummaryRow{{Name: "Mumbai", Count: 3}, {Name: "Nagpur", Count: 1}}, view.Summary, "sold Pune listing is not counted")
	})

	t.Run("city infers state and region", func(t *testing.T) {
		view, err := s.Browse(ctx, BrowseRequest{City: "Mumbai", Sort: SortPriceDesc})
		require.NoError(t, err)
		assert.Equal(t, LevelCity, view.Level)
		assert.Equal(t, "Maharashtra", view.State)
		assert.Equal(t, "West", view.Region)
		assert.Equal(t, []int64{10, 1, 5}, ids(view.Listings))
		assert.Equal(t, PlatformOwnerName, view.Listings[0].OwnerName)
	})

	t.Run("search redirects to city", func(t *testing.T) {
		view, err := s.Browse(ctx, BrowseRequest{Search: "SURAT", Region: "North"})
		require.NoError(t, err)
		require.NotNil(t, view.Redirect)
		assert.Equal(t, Location{Region: "West", State: "Gujarat", City: "Surat"}, *view.Redirect)
		assert.Equal(t, LevelCity, view.Level)
		assert.Equal(t, []int64{3}, ids(view.Listings))
	})

	t.Run("search redirects to state", func(t *testing.T) {
		view, err := s.Browse(ctx, BrowseRequest{Search: "gujarat"})
		require.NoError(t, err)
		require.NotNil(t, view.Redirect)
		assert.Equal(t, LevelState, view.Level)
		assert.Equal(t, "Gujarat", view.State)
	})

	t.Run("unmatched search is ignored", func(t *testing.T) {
		view, err := s.Browse(ctx, BrowseRequest{Search: "Atlantis", Region: "South"})
		require.NoError(t, err)
		assert.Nil(t, view.Redirect)
		assert.Equal(t, LevelRegion, view.Level)
	})

	t.Run("unknown state falls back to overview", func(t *testing.T) {
		view, err := s.Browse(ctx, BrowseRequest{State: "Atlantis"})
		require.NoError(t, err)
		assert.Equal(t, LevelOverview, view.Level)
	})

	t.Run("unknown region falls back to overview", func(t *testing.T) {
		view, err := s.Browse(ctx, BrowseRequest{Region: "Atlantis"})
		require.NoError(t, err)
		assert.Equal(t, LevelOverview, view.Level)
	})

	t.Run("invalid sort", func(t *testing.T) {
		_, err := s.Browse(ctx, BrowseRequest{City: "Mumbai", Sort: "newest"})
		assert.ErrorIs(t, err, apperr.ErrInvalidInput)
	})
}

func TestBrowseErrors(t *testing.T) {
	boom := errors.New("database is locked")
	s := newService(t, &fakeStore{err: boom})
	_, err := s.Browse(context.Background(), BrowseRequest{})
	assert.ErrorIs(t, err, boom)

	_, err = NewService(nil, nil, &fakeStore{}, nil).Browse(context.Background(), BrowseRequest{})
	assert.ErrorIs(t, err, apperr.ErrEngineUnavailable)
}
