package api

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"landsphere/server/internal/apperr"
	"landsphere/server/internal/geography"
	"landsphere/server/internal/market"
	"landsphere/server/internal/prediction"
	"landsphere/server/internal/search"
	"landsphere/server/internal/trading"
)

// Services bundles the marketplace components the handlers call into. Forecaster may be
// nil when no prediction service is configured.
type Services struct {
	Trading    *trading.Engine
	Search     *search.Engine
	Market     *market.Service
	Geography  *geography.Index
	Forecaster *prediction.Forecaster
}

type Handler struct {
	trading    *trading.Engine
	search     *search.Engine
	market     *market.Service
	geography  *geography.Index
	forecaster *prediction.Forecaster
	auth       *Authenticator
	logger     *logrus.Logger
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type SellRequest struct {
	Price *decimal.Decimal `json:"price"`
}

func NewHandler(s Services, auth *Authenticator, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}

	return &Handler{
		trading:    s.Trading,
		search:     s.Search,
		market:     s.Market,
		geography:  s.Geography,
		forecaster: s.Forecaster,
		auth:       auth,
		logger:     logger,
	}
}

// fail logs err and answers with the status its kind maps to. Internal failures are not
// echoed back to the client.
func (h *Handler) fail(c *gin.Context, err error, msg string) {
	status := apperr.HTTPStatus(err)
	entry := h.logger.WithError(err).WithField("path", c.FullPath())
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		entry.Error(msg)
		c.JSON(status, gin.H{"error": msg})
		return
	}
	entry.Warn(msg)
	c.JSON(status, gin.H{"error": err.Error()})
}

func pathID(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, c.Param(name), apperr.ErrInvalidInput)
	}
	return id, nil
}

// decimalQuery reads an optional decimal query parameter.
func decimalQuery(c *gin.Context, name string) (*decimal.Decimal, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q: %w", name, raw, apperr.ErrInvalidInput)
	}
	return &v, nil
}

func requiredDecimal(c *gin.Context, name string) (decimal.Decimal, error) {
	v, err := decimalQuery(c, name)
	if err != nil {
		return decimal.Zero, err
	}
	if v == nil {
		return decimal.Zero, fmt.Errorf("%s is required: %w", name, apperr.ErrInvalidInput)
	}
	return *v, nil
}

func (h *Handler) Register(c *gin.Context) {
	var form trading.NewAccount
	if err := c.ShouldBindJSON(&form); err != nil {
		h.fail(c, fmt.Errorf("%v: %w", err, apperr.ErrInvalidInput), "Invalid registration request")
		return
	}

	account, err := h.trading.Register(c.Request.Context(), form)
	if err != nil {
		h.fail(c, err, "Failed to register account")
		return
	}

	c.JSON(http.StatusCreated, account)
}

func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, fmt.Errorf("%v: %w", err, apperr.ErrInvalidInput), "Invalid login request")
		return
	}

	account, err := h.trading.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.fail(c, err, "Login rejected")
		return
	}

	token, err := h.auth.Issue(account.ID)
	if err != nil {
		h.fail(c, err, "Failed to issue token")
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "user": account})
}

func (h *Handler) Buy(c *gin.Context) {
	propertyID, err := pathID(c, "property_id")
	if err != nil {
		h.fail(c, err, "Invalid property id")
		return
	}

	receipt, err := h.trading.Buy(c.Request.Context(), propertyID, currentUser(c))
	if err != nil {
		h.fail(c, err, "Failed to buy property")
		return
	}

	c.JSON(http.StatusOK, receipt)
}

func (h *Handler) Sell(c *gin.Context) {
	propertyID, err := pathID(c, "property_id")
	if err != nil {
		h.fail(c, err, "Invalid property id")
		return
	}

	var req SellRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Price == nil {
		h.fail(c, fmt.Errorf("price is required: %w", apperr.ErrInvalidInput), "Invalid sell request")
		return
	}

	listing, err := h.trading.Sell(c.Request.Context(), propertyID, currentUser(c), *req.Price)
	if err != nil {
		h.fail(c, err, "Failed to list property")
		return
	}

	c.JSON(http.StatusOK, listing)
}

func (h *Handler) Dashboard(c *gin.Context) {
	dashboard, err := h.trading.Dashboard(c.Request.Context(), currentUser(c))
	if err != nil {
		h.fail(c, err, "Failed to load dashboard")
		return
	}

	c.JSON(http.StatusOK, dashboard)
}

func (h *Handler) Marketplace(c *gin.Context) {
	budget, err := decimalQuery(c, "budget")
	if err != nil {
		h.fail(c, err, "Invalid budget")
		return
	}

	view, err := h.market.Browse(c.Request.Context(), market.BrowseRequest{
		Region: c.Query("region"),
		State:  c.Query("state"),
		City:   c.Query("city"),
		Search: c.Query("search"),
		Budget: budget,
		Sort:   c.Query("sort"),
	})
	if err != nil {
		h.fail(c, err, "Failed to browse marketplace")
		return
	}

	c.JSON(http.StatusOK, view)
}

func (h *Handler) NearbyCities(c *gin.Context) {
	city := strings.TrimSpace(c.Query("city"))
	if city == "" {
		h.fail(c, fmt.Errorf("city is required: %w", apperr.ErrInvalidInput), "Invalid nearby request")
		return
	}

	nearby, err := h.geography.NearbyCities(city)
	if err != nil {
		h.fail(c, err, "Failed to find nearby cities")
		return
	}

	c.JSON(http.StatusOK, gin.H{"city": city, "nearby": nearby})
}

func (h *Handler) CityStats(c *gin.Context) {
	stats, err := h.geography.CityStats(c.Param("city_name"))
	if err != nil {
		h.fail(c, err, "Failed to get city stats")
		return
	}

	c.JSON(http.StatusOK, stats)
}

// Compare accepts cities either repeated (?cities=A&cities=B) or comma separated.
func (h *Handler) Compare(c *gin.Context) {
	var cities []string
	for _, v := range c.QueryArray("cities") {
		for _, city := range strings.Split(v, ",") {
			if city = strings.TrimSpace(city); city != "" {
				cities = append(cities, city)
			}
		}
	}
	if len(cities) == 0 {
		h.fail(c, fmt.Errorf("at least one city is required: %w", apperr.ErrInvalidInput), "Invalid compare request")
		return
	}

	c.JSON(http.StatusOK, h.geography.MultiCityStats(cities))
}

func (h *Handler) Cities(c *gin.Context) {
	c.JSON(http.StatusOK, h.geography.Cities())
}

func (h *Handler) SearchNearby(c *gin.Context) {
	target, err := requiredDecimal(c, "target_price")
	if err != nil {
		h.fail(c, err, "Invalid target price")
		return
	}
	margin, err := decimalQuery(c, "margin")
	if err != nil {
		h.fail(c, err, "Invalid margin")
		return
	}

	results, err := h.search.SearchNearby(c.Request.Context(), search.NearbyQuery{
		State:        c.Query("state"),
		City:         c.Query("city"),
		PropertyType: c.Query("property_type"),
		TargetPrice:  target,
		Margin:       margin,
	})
	if err != nil {
		h.fail(c, err, "Failed to search nearby listings")
		return
	}

	c.JSON(http.StatusOK, results)
}

func (h *Handler) BudgetSearch(c *gin.Context) {
	budget, err := requiredDecimal(c, "budget")
	if err != nil {
		h.fail(c, err, "Invalid budget")
		return
	}

	results, err := h.search.BudgetFilter(c.Request.Context(), budget)
	if err != nil {
		h.fail(c, err, "Failed to filter by budget")
		return
	}

	c.JSON(http.StatusOK, results)
}

func (h *Handler) PriceSearch(c *gin.Context) {
	target, err := requiredDecimal(c, "target")
	if err != nil {
		h.fail(c, err, "Invalid target price")
		return
	}

	results, err := h.search.PriceSearch(c.Request.Context(), target)
	if err != nil {
		h.fail(c, err, "Failed to search by price")
		return
	}

	c.JSON(http.StatusOK, results)
}

func (h *Handler) SortedProperties(c *gin.Context) {
	order := c.DefaultQuery("order", "asc")
	if order != "asc" && order != "desc" {
		h.fail(c, fmt.Errorf("order must be asc or desc: %w", apperr.ErrInvalidInput), "Invalid sort order")
		return
	}

	results, err := h.search.SortedByPrice(c.Request.Context(), order == "asc")
	if err != nil {
		h.fail(c, err, "Failed to sort properties")
		return
	}

	c.JSON(http.StatusOK, results)
}

func (h *Handler) Predict(c *gin.Context) {
	if h.forecaster == nil {
		h.fail(c, fmt.Errorf("no prediction service configured: %w", apperr.ErrEngineUnavailable), "Prediction unavailable")
		return
	}

	var req prediction.ForecastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, fmt.Errorf("%v: %w", err, apperr.ErrInvalidInput), "Invalid prediction request")
		return
	}

	forecast, err := h.forecaster.Forecast(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err, "Failed to predict price")
		return
	}

	c.JSON(http.StatusOK, forecast)
}
