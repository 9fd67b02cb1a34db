package prediction

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"landsphere/server/internal/apperr"
)

func TestTrajectory(t *testing.T) {
	points := Trajectory(decimal.NewFromInt(1000), 0.1, 2024, 3)

	require.Len(t, points, 4)
	want := []string{"1000", "1100", "1210", "1331"}
	for i, p := range points {
		assert.Equal(t, 2024+i, p.Year)
		assert.True(t, p.Price.Equal(decimal.RequireFromString(want[i])), "year %d: %s", p.Year, p.Price)
	}

	rounded := Trajectory(decimal.RequireFromString("999.99"), 0.07, 2030, 2)
	assert.True(t, rounded[2].Price.Equal(decimal.RequireFromString("1144.89")), rounded[2].Price.String())

	assert.Len(t, Trajectory(decimal.NewFromInt(1), 0.1, 2024, 0), 1)
}

func TestClientPredict(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/predict", r.URL.Path)

		var req Request
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 1500.0, req.Area)
		assert.Equal(t, 7, req.YearsAhead)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"current_price_est": 2500000.5, "future_price": 4871759.42, "roi": 94.87, "risk_score": 5, "investment_score": 189.74}`))
	}))
	defer server.Close()

	client := NewClient(server.URL+"/", time.Second, nil)
	req := Request{Area: 1500, YearBuilt: 2024, GrowthRate: 0.1, RiskScore: 5, YearsAhead: 7}

	estimate, err := client.Predict(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, estimate.CurrentPriceEstimate.Equal(decimal.RequireFromString("2500000.5")))
	assert.True(t, estimate.ROI.Equal(decimal.RequireFromString("94.87")))
	assert.Equal(t, 5, estimate.RiskScore)

	_, err = client.Predict(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load(), "repeated requests are answered from memory")
}

func TestClientPredictFailures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{name: "server error", status: http.StatusInternalServerError, body: "model not loaded", wantErr: apperr.ErrEngineUnavailable},
		{name: "unavailable", status: http.StatusServiceUnavailable, wantErr: apperr.ErrEngineUnavailable},
		{name: "rejected input", status: http.StatusBadRequest, body: "area missing", wantErr: apperr.ErrInvalidInput},
		{name: "garbage body", status: http.StatusOK, body: "<html>", wantErr: apperr.ErrEngineUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := NewClient(server.URL, time.Second, nil).Predict(context.Background(), Request{Area: 1})
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	t.Run("unreachable", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		url := server.URL
		server.Close()

		_, err := NewClient(url, time.Second, nil).Predict(context.Background(), Request{Area: 1})
		assert.ErrorIs(t, err, apperr.ErrEngineUnavailable)
	})
}

type MockPredictor struct {
	mock.Mock
}

func (m *MockPredictor) Predict(ctx context.Context, req Request) (*Estimate, error) {
	args := m.Called(ctx, req)
	if estimate, ok := args.Get(0).(*Estimate); ok {
		return estimate, args.Error(1)
	}
	return nil, args.Error(1)
}

func TestForecastAppliesDefaults(t *testing.T) {
	predictor := new(MockPredictor)
	forecaster := NewForecaster(predictor, nil)
	forecaster.now = func() time.Time { return time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC) }

	want := Request{Area: 1000, YearBuilt: 2026, GrowthRate: 0.1, RiskScore: 5, YearsAhead: 5}
	predictor.On("Predict", mock.Anything, want).
		Return(&Estimate{CurrentPriceEstimate: decimal.NewFromInt(1000)}, nil).Once()

	forecast, err := forecaster.Forecast(context.Background(), ForecastRequest{})
	require.NoError(t, err)

	require.Len(t, forecast.TimeSeries, 6)
	assert.Equal(t, 2026, forecast.TimeSeries[0].Year)
	assert.Equal(t, 2031, forecast.TimeSeries[5].Year)
	assert.True(t, forecast.TimeSeries[5].Price.Equal(decimal.RequireFromString("1610.51")))
	predictor.AssertExpectations(t)
}

func TestForecastUsesRequestValues(t *testing.T) {
	predictor := new(MockPredictor)
	forecaster := NewForecaster(predictor, nil)

	area, year, years := 2400.0, 2024, 2
	want := Request{Area: 2400, YearBuilt: 2024, GrowthRate: 0.1, RiskScore: 5, YearsAhead: 2}
	predictor.On("Predict", mock.Anything, want).
		Return(&Estimate{CurrentPriceEstimate: decimal.NewFromInt(200)}, nil).Once()

	forecast, err := forecaster.Forecast(context.Background(), ForecastRequest{Area: &area, YearBuying: &year, Years: &years})
	require.NoError(t, err)
	assert.Equal(t, []int{2024, 2025, 2026}, []int{forecast.TimeSeries[0].Year, forecast.TimeSeries[1].Year, forecast.TimeSeries[2].Year})
	assert.True(t, forecast.TimeSeries[2].Price.Equal(decimal.NewFromInt(242)))
	predictor.AssertExpectations(t)
}

func TestForecastRejectsInvalidInput(t *testing.T) {
	forecaster := NewForecaster(new(MockPredictor), nil)

	zero, negative, tooLong := 0.0, -1, MaxHorizon+1
	tests := map[string]ForecastRequest{
		"zero area":      {Area: &zero},
		"negative years": {Years: &negative},
		"long horizon":   {Years: &tooLong},
		"zero risk":      {RiskScore: new(int)},
	}
	for name, req := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := forecaster.Forecast(context.Background(), req)
			assert.ErrorIs(t, err, apperr.ErrInvalidInput)
		})
	}

	_, err := NewForecaster(nil, nil).Forecast(context.Background(), ForecastRequest{})
	assert.ErrorIs(t, err, apperr.ErrEngineUnavailable)
}
