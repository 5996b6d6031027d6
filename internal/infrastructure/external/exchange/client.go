package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/finvera/expense-approval/internal/application/port"
)

// Client fetches exchange rates from an external rate API and implements
// port.CurrencyConverter. Rates are cached per base currency for a short
// TTL so bursts of submissions do not hammer the provider.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger

	mu    sync.Mutex
	cache map[string]cachedRates
	ttl   time.Duration
}

type cachedRates struct {
	rates     map[string]float64
	fetchedAt time.Time
}

type ratesResponse struct {
	Base  string             `json:"base"`
	Rates map[string]float64 `json:"rates"`
}

// NewClient creates a new exchange rate client
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
		cache:      make(map[string]cachedRates),
		ttl:        10 * time.Minute,
	}
}

// Convert converts an amount in cents from one currency to another.
// Same-currency conversions short-circuit at rate 1. When the provider
// is unreachable the amount is kept at rate 1 so submission never blocks
// on the rate feed.
func (c *Client) Convert(ctx context.Context, amountCents int64, fromCurrency, toCurrency string) (int64, float64, error) {
	from := strings.ToUpper(fromCurrency)
	to := strings.ToUpper(toCurrency)
	if from == to {
		return amountCents, 1.0, nil
	}

	rates, err := c.ratesFor(ctx, from)
	if err != nil {
		c.logger.Warn("Exchange rate lookup failed, keeping original amount",
			zap.String("from", from),
			zap.String("to", to),
			zap.Error(err))
		return amountCents, 1.0, nil
	}

	rate, ok := rates[to]
	if !ok || rate <= 0 {
		c.logger.Warn("Exchange rate missing for currency, keeping original amount",
			zap.String("from", from),
			zap.String("to", to))
		return amountCents, 1.0, nil
	}

	converted := int64(math.Round(float64(amountCents) * rate))
	return converted, rate, nil
}

func (c *Client) ratesFor(ctx context.Context, base string) (map[string]float64, error) {
	c.mu.Lock()
	if cached, ok := c.cache[base]; ok && time.Since(cached.fetchedAt) < c.ttl {
		c.mu.Unlock()
		return cached.rates, nil
	}
	c.mu.Unlock()

	url := fmt.Sprintf("%s/%s", c.baseURL, base)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build rate request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch rates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rate provider returned status %d", resp.StatusCode)
	}

	var body ratesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode rate response: %w", err)
	}
	if len(body.Rates) == 0 {
		return nil, fmt.Errorf("rate provider returned no rates for %s", base)
	}

	c.mu.Lock()
	c.cache[base] = cachedRates{rates: body.Rates, fetchedAt: time.Now()}
	c.mu.Unlock()

	return body.Rates, nil
}

// Verify interface compliance
var _ port.CurrencyConverter = (*Client)(nil)
