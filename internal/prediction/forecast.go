package prediction

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"landsphere/server/internal/apperr"
)

const (
	DefaultArea       = 1000
	DefaultHorizon    = 5
	DefaultGrowthRate = 0.1
	DefaultRiskScore  = 5
	MaxHorizon        = 50
)

// Point is one year of a price trajectory.
type Point struct {
	Year  int             `json:"year"`
	Price decimal.Decimal `json:"price"`
}

// Trajectory compounds base at growthRate for every year from startYear through
// startYear+horizon, rounding each price to 2 places.
func Trajectory(base decimal.Decimal, growthRate float64, startYear, horizon int) []Point {
	factor := decimal.NewFromInt(1).Add(decimal.NewFromFloat(growthRate))
	points := make([]Point, 0, horizon+1)
	for y := 0; y <= horizon; y++ {
		price := base.Mul(factor.Pow(decimal.NewFromInt(int64(y))))
		points = append(points, Point{Year: startYear + y, Price: price.Round(2)})
	}
	return points
}

// ForecastRequest is what a buyer asks about. Nil fields take the defaults.
type ForecastRequest struct {
	Area       *float64 `json:"area"`
	YearBuying *int     `json:"year_buying"`
	Years      *int     `json:"years"`
	GrowthRate *float64 `json:"growth_rate"`
	RiskScore  *int     `json:"risk_score"`
}

type Forecast struct {
	Estimate
	TimeSeries []Point `json:"time_series"`
}

// Forecaster fills in defaults, asks the model for an estimate and attaches the yearly
// trajectory starting at the buying year.
type Forecaster struct {
	predictor Predictor
	now       func() time.Time
	logger    *logrus.Logger
}

func NewForecaster(predictor Predictor, logger *logrus.Logger) *Forecaster {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	return &Forecaster{predictor: predictor, now: time.Now, logger: logger}
}

func (f *Forecaster) Forecast(ctx context.Context, fr ForecastRequest) (*Forecast, error) {
	req := Request{
		Area:       DefaultArea,
		YearBuilt:  f.now().Year(),
		GrowthRate: DefaultGrowthRate,
		RiskScore:  DefaultRiskScore,
		YearsAhead: DefaultHorizon,
	}
	if fr.Area != nil {
		req.Area = *fr.Area
	}
	if fr.YearBuying != nil {
		req.YearBuilt = *fr.YearBuying
	}
	if fr.Years != nil {
		req.YearsAhead = *fr.Years
	}
	if fr.GrowthRate != nil {
		req.GrowthRate = *fr.GrowthRate
	}
	if fr.RiskScore != nil {
		req.RiskScore = *fr.RiskScore
	}

	if req.Area <= 0 {
		return nil, fmt.Errorf("area must be positive: %w", apperr.ErrInvalidInput)
	}
	if req.YearsAhead < 0 || req.YearsAhead > MaxHorizon {
		return nil, fmt.Errorf("years must be between 0 and %d: %w", MaxHorizon, apperr.ErrInvalidInput)
	}
	if req.RiskScore <= 0 {
		return nil, fmt.Errorf("risk score must be positive: %w", apperr.ErrInvalidInput)
	}

	if f.predictor == nil {
		return nil, fmt.Errorf("no price model configured: %w", apperr.ErrEngineUnavailable)
	}
	estimate, err := f.predictor.Predict(ctx, req)
	if err != nil {
		return nil, err
	}

	f.logger.WithFields(logrus.Fields{
		"area":        req.Area,
		"year_buying": req.YearBuilt,
		"years":       req.YearsAhead,
	}).Info("Forecast computed")

	return &Forecast{
		Estimate:   *estimate,
		TimeSeries: Trajectory(estimate.CurrentPriceEstimate, req.GrowthRate, req.YearBuilt, req.YearsAhead),
	}, nil
}
