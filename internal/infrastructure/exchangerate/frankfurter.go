// Package exchangerate fetches USD/CNY reference rates from the Frankfurter API.
package exchangerate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"github.com/ippgi/ippgi-prices/internal/shared/logger"
)

var (
	// plausible CNY per USD; anything outside is treated as a bad response
	minReasonableRate = decimal.NewFromInt(5)
	maxReasonableRate = decimal.NewFromInt(10)
)

const maxResponseSize = 64 << 10

type frankfurterResponse struct {
	Base  string                     `json:"base"`
	Date  string                     `json:"date"`
	Rates map[string]decimal.Decimal `json:"rates"`
}

// FrankfurterClient reads ECB reference rates.
type FrankfurterClient struct {
	client *resty.Client
	logger logger.Interface
}

func NewFrankfurterClient(baseURL string, timeout time.Duration, log logger.Interface) *FrankfurterClient {
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetResponseBodyLimit(maxResponseSize)

	return &FrankfurterClient{client: client, logger: log}
}

// LatestRate returns the most recent CNY-per-USD rate.
func (c *FrankfurterClient) LatestRate(ctx context.Context) (decimal.Decimal, error) {
	return c.fetch(ctx, "/latest")
}

// RateOn returns the CNY-per-USD rate published for date (YYYY-MM-DD). On
// non-publishing days the provider answers with the previous business day.
func (c *FrankfurterClient) RateOn(ctx context.Context, date string) (decimal.Decimal, error) {
	return c.fetch(ctx, "/"+date)
}

func (c *FrankfurterClient) fetch(ctx context.Context, path string) (decimal.Decimal, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{"from": "USD", "to": "CNY"}).
		Get(path)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to fetch exchange rate: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return decimal.Zero, fmt.Errorf("exchange rate provider returned status %d", resp.StatusCode())
	}

	var data frankfurterResponse
	if err := json.Unmarshal(resp.Body(), &data); err != nil {
		return decimal.Zero, fmt.Errorf("failed to decode exchange rate response: %w", err)
	}

	rate, ok := data.Rates["CNY"]
	if !ok || !rate.IsPositive() {
		return decimal.Zero, fmt.Errorf("exchange rate response has no CNY rate")
	}
	if rate.LessThan(minReasonableRate) || rate.GreaterThan(maxReasonableRate) {
		c.logger.Warnw("exchange rate outside reasonable range", "rate", rate.String(), "path", path)
		return decimal.Zero, fmt.Errorf("exchange rate %s outside reasonable range [%s, %s]",
			rate, minReasonableRate, maxReasonableRate)
	}

	c.logger.Debugw("exchange rate fetched", "path", path, "rate", rate.String(), "published", data.Date)
	return rate, nil
}
