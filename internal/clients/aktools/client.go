// Package aktools provides a data adapter over an AKTools HTTP server,
// which exposes akshare functions as /api/public/<function> endpoints.
package aktools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/bobmcallan/finsight/internal/common"
	"github.com/bobmcallan/finsight/internal/interfaces"
	"github.com/bobmcallan/finsight/internal/models"
)

const (
	DefaultBaseURL   = "http://127.0.0.1:8080/api/public"
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 5 // requests per second
)

// DefaultEndpoints maps each market to the akshare function serving its
// financial statement abstract.
var DefaultEndpoints = map[models.Market]string{
	models.MarketMainland: "stock_financial_abstract_ths",
	models.MarketHongKong: "stock_financial_hk_analysis_indicator_em",
	models.MarketUS:       "stock_financial_us_analysis_indicator_em",
}

// DefaultIndicators is the report granularity requested per market.
var DefaultIndicators = map[models.Market]string{
	models.MarketMainland: "按报告期",
	models.MarketHongKong: "报告期",
	models.MarketUS:       "单季报",
}

// Client implements DataAdapter against AKTools
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
	endpoints  map[models.Market]string
	indicators map[models.Market]string
}

var _ interfaces.DataAdapter = (*Client)(nil)

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		if requestsPerSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
		}
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithEndpoint overrides the akshare function used for a market.
func WithEndpoint(market models.Market, function string) ClientOption {
	return func(c *Client) {
		if function != "" {
			c.endpoints[market] = function
		}
	}
}

// WithIndicator overrides the report granularity requested for a market.
func WithIndicator(market models.Market, indicator string) ClientOption {
	return func(c *Client) {
		if indicator != "" {
			c.indicators[market] = indicator
		}
	}
}

// NewClient creates a new AKTools client
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter:    rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:     common.NewSilentLogger(),
		endpoints:  make(map[models.Market]string, len(DefaultEndpoints)),
		indicators: make(map[models.Market]string, len(DefaultIndicators)),
	}
	for m, fn := range DefaultEndpoints {
		c.endpoints[m] = fn
	}
	for m, ind := range DefaultIndicators {
		c.indicators[m] = ind
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// NewClientFromConfig builds a client from the [provider] section.
func NewClientFromConfig(cfg common.ProviderConfig, logger *common.Logger) *Client {
	opts := []ClientOption{
		WithBaseURL(cfg.BaseURL),
		WithLogger(logger),
		WithRateLimit(cfg.RateLimit),
		WithTimeout(cfg.GetTimeout()),
	}
	for key, fn := range cfg.Endpoints {
		if m, err := models.ParseMarket(key); err == nil {
			opts = append(opts, WithEndpoint(m, fn))
		}
	}
	for key, ind := range cfg.Indicators {
		if m, err := models.ParseMarket(key); err == nil {
			opts = append(opts, WithIndicator(m, ind))
		}
	}
	return NewClient(opts...)
}

// APIError represents an API error
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("AKTools API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// Unwrap classifies every provider error as data unavailable.
func (e *APIError) Unwrap() error {
	return interfaces.ErrDataUnavailable
}

// get performs a rate-limited GET request
func (c *Client) get(ctx context.Context, function string, params url.Values, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	reqURL := fmt.Sprintf("%s/%s?%s", c.baseURL, function, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	c.logger.Debug().Str("function", function).Str("symbol", params.Get("symbol")).Msg("AKTools API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(body)),
			Endpoint:   function,
		}
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// Fetch retrieves every reporting period the provider holds for symbol,
// newest first. The symbol must already be in provider format.
func (c *Client) Fetch(ctx context.Context, market models.Market, symbol string, opts ...interfaces.FetchOption) ([]models.FinancialRecord, error) {
	function, ok := c.endpoints[market]
	if !ok {
		return nil, fmt.Errorf("no provider endpoint configured for market %s: %w", market, interfaces.ErrDataUnavailable)
	}

	params := url.Values{}
	params.Set("symbol", symbol)
	if ind := c.indicators[market]; ind != "" {
		params.Set("indicator", ind)
	}

	var rows []map[string]interface{}
	if err := c.get(ctx, function, params, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("provider returned no rows for %s.%s: %w", market, symbol, interfaces.ErrDataUnavailable)
	}

	records, skipped := ParseRows(market, symbol, rows)
	if skipped > 0 {
		c.logger.Warn().Str("symbol", symbol).Int("skipped", skipped).Msg("AKTools rows without a report date were skipped")
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("no dated rows for %s.%s: %w", market, symbol, interfaces.ErrDataUnavailable)
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].ReportDate.After(records[j].ReportDate)
	})
	return records, nil
}
