// Package prediction talks to the external price model and derives price trajectories
// from its estimates.
package prediction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"landsphere/server/internal/apperr"
)

// Request is the model input.
type Request struct {
	Area       float64 `json:"area"`
	YearBuilt  int     `json:"year_built"`
	GrowthRate float64 `json:"growth_rate"`
	RiskScore  int     `json:"risk_score"`
	YearsAhead int     `json:"years_ahead"`
}

// Estimate is the model output.
type Estimate struct {
	CurrentPriceEstimate decimal.Decimal `json:"current_price_est"`
	FuturePrice          decimal.Decimal `json:"future_price"`
	ROI                  decimal.Decimal `json:"roi"`
	InvestmentScore      decimal.Decimal `json:"investment_score"`
	RiskScore            int             `json:"risk_score"`
}

type Predictor interface {
	Predict(ctx context.Context, req Request) (*Estimate, error)
}

// Client calls the model service over HTTP. The model is deterministic, so answers are
// kept in memory per request.
type Client struct {
	baseURL   string
	client    *http.Client
	logger    *logrus.Logger
	cache     map[Request]Estimate
	cacheLock sync.RWMutex
}

func NewClient(baseURL string, timeout time.Duration, logger *logrus.Logger) *Client {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
		cache:   make(map[Request]Estimate),
	}
}

func (c *Client) Predict(ctx context.Context, req Request) (*Estimate, error) {
	c.cacheLock.RLock()
	if cached, ok := c.cache[req]; ok {
		c.cacheLock.RUnlock()
		return &cached, nil
	}
	c.cacheLock.RUnlock()

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode prediction request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		c.logger.WithError(err).Error("Prediction request failed")
		return nil, fmt.Errorf("prediction service unreachable: %v: %w", err, apperr.ErrEngineUnavailable)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read prediction response: %v: %w", err, apperr.ErrEngineUnavailable)
	}

	switch {
	case resp.StatusCode >= 500:
		c.logger.WithField("status", resp.StatusCode).Error("Prediction service failed")
		return nil, fmt.Errorf("prediction service returned %d: %w", resp.StatusCode, apperr.ErrEngineUnavailable)
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("prediction service rejected request (%d): %s: %w",
			resp.StatusCode, strings.TrimSpace(string(payload)), apperr.ErrInvalidInput)
	}

	var estimate Estimate
	if err := json.Unmarshal(payload, &estimate); err != nil {
		return nil, fmt.Errorf("failed to parse prediction response: %v: %w", err, apperr.ErrEngineUnavailable)
	}

	c.logger.WithFields(logrus.Fields{
		"area":          req.Area,
		"years_ahead":   req.YearsAhead,
		"current_price": estimate.CurrentPriceEstimate.String(),
	}).Debug("Received prediction")

	c.cacheLock.Lock()
	c.cache[req] = estimate
	c.cacheLock.Unlock()

	return &estimate, nil
}
