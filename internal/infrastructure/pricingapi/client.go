// Package pricingapi talks to the upstream steel pricing service.
package pricingapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/ippgi/ippgi-prices/internal/domain/price"
	"github.com/ippgi/ippgi-prices/internal/shared/logger"
)

const (
	dailyPath      = "/prices/daily"
	realtimePath   = "/prices/daily/getByProductSpecAndDate"
	statisticsPath = "/prices/statistics"
)

// envelope wraps every upstream response body.
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (e *envelope) ok() bool {
	return e.Code == 0 || e.Code == http.StatusOK
}

func (e *envelope) empty() bool {
	d := strings.TrimSpace(string(e.Data))
	return d == "" || d == "null"
}

// RealtimeQuery selects one product quote.
type RealtimeQuery struct {
	ProductSpec string `json:"productSpec"`
	Date        string `json:"date"`
	SiteID      int    `json:"siteId"`
	CategoryID  int    `json:"categoryId"`
}

// StatisticsQuery selects the daily history of one product.
type StatisticsQuery struct {
	SiteID      int
	ProductSpec string
	From        string
	To          string
	CategoryID  int
}

// Client is a resty client for the pricing service. Every method returns
// an *UpstreamError on failure and never retries.
type Client struct {
	client *resty.Client
	logger logger.Interface
}

func NewClient(baseURL, token string, timeout time.Duration, log logger.Interface) *Client {
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	if token != "" {
		client.SetAuthToken(token)
	}
	return &Client{client: client, logger: log}
}

// DailyPrices returns one category's quotes for date grouped by width.
func (c *Client) DailyPrices(ctx context.Context, siteID, categoryID int, date string) (map[string][]price.PriceItem, error) {
	const op = "daily prices"
	req := c.client.R().SetContext(ctx).SetQueryParams(map[string]string{
		"siteId":     strconv.Itoa(siteID),
		"categoryId": strconv.Itoa(categoryID),
		"date":       date,
	})

	env, err := c.do(op, func() (*resty.Response, error) { return req.Get(dailyPath) })
	if err != nil {
		return nil, err
	}

	groups := map[string][]price.PriceItem{}
	if env.empty() {
		return groups, nil
	}
	if err := json.Unmarshal(env.Data, &groups); err != nil {
		return nil, &UpstreamError{Kind: KindParse, Op: op, Err: err}
	}
	return groups, nil
}

// QuoteBySpec returns the quote of one product on one date, or nil when the
// upstream has none.
func (c *Client) QuoteBySpec(ctx context.Context, q RealtimeQuery) (*price.PriceItem, error) {
	const op = "realtime price"
	req := c.client.R().SetContext(ctx).SetBody(q)

	env, err := c.do(op, func() (*resty.Response, error) { return req.Post(realtimePath) })
	if err != nil {
		return nil, err
	}
	if env.empty() {
		return nil, nil
	}

	var item price.PriceItem
	if err := json.Unmarshal(env.Data, &item); err != nil {
		return nil, &UpstreamError{Kind: KindParse, Op: op, Err: err}
	}
	return &item, nil
}

// Statistics returns the daily records of one product between two dates.
func (c *Client) Statistics(ctx context.Context, q StatisticsQuery) ([]price.PriceItem, error) {
	const op = "price statistics"
	req := c.client.R().SetContext(ctx).SetQueryParams(map[string]string{
		"siteId":      strconv.Itoa(q.SiteID),
		"productSpec": q.ProductSpec,
		"from":        q.From,
		"to":          q.To,
		"categoryId":  strconv.Itoa(q.CategoryID),
	})

	env, err := c.do(op, func() (*resty.Response, error) { return req.Get(statisticsPath) })
	if err != nil {
		return nil, err
	}
	if env.empty() {
		return nil, nil
	}

	var items []price.PriceItem
	if err := json.Unmarshal(env.Data, &items); err != nil {
		return nil, &UpstreamError{Kind: KindParse, Op: op, Err: err}
	}
	return items, nil
}

// do executes send and unwraps the response envelope.
func (c *Client) do(op string, send func() (*resty.Response, error)) (*envelope, error) {
	start := time.Now()
	resp, err := send()
	if err != nil {
		c.logger.Warnw("upstream request failed", "op", op, "error", err)
		return nil, &UpstreamError{Kind: KindTransport, Op: op, Err: err}
	}

	c.logger.Debugw("upstream request completed",
		"op", op,
		"status", resp.StatusCode(),
		"duration", time.Since(start),
	)

	if resp.StatusCode() != http.StatusOK {
		return nil, &UpstreamError{Kind: KindStatus, Op: op, Status: resp.StatusCode(), Message: truncate(resp.String(), 200)}
	}

	var env envelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return nil, &UpstreamError{Kind: KindParse, Op: op, Err: err}
	}
	if !env.ok() {
		return nil, &UpstreamError{Kind: KindStatus, Op: op, Status: env.Code, Message: env.Message}
	}
	return &env, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
