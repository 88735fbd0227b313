package price

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// CurrencyUSD is stamped on every converted item.
const CurrencyUSD = "USD"

// Dimension is a width or thickness. The upstream sends either a JSON number
// or a string; both decode to the same textual form.
type Dimension string

func (d *Dimension) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*d = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*d = Dimension(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("dimension: %w", err)
	}
	*d = Dimension(n.String())
	return nil
}

// PriceItem is one upstream quote. Every amount is in CNY.
type PriceItem struct {
	ID             int64     `json:"id"`
	ProductSpec    string    `json:"productSpec"`
	StatisticsTime string    `json:"statisticsTime"`
	Timestamp      int64     `json:"timestamp"`
	SiteID         int       `json:"siteId"`
	CategoryID     int       `json:"categoryId"`
	Width          Dimension `json:"width"`
	Thickness      Dimension `json:"thickness"`
	CreateTime     string    `json:"createTime,omitempty"`

	Price        *decimal.Decimal `json:"price"`
	TaxPrice     *decimal.Decimal `json:"taxPrice"`
	PriceTax     *decimal.Decimal `json:"priceTax"`
	LastPrice    *decimal.Decimal `json:"lastprice"`
	OpeningPrice *decimal.Decimal `json:"openingPrice"`
	ClosingPrice *decimal.Decimal `json:"closingPrice"`
	HighestPrice *decimal.Decimal `json:"highestPrice"`
	LowestPrice  *decimal.Decimal `json:"lowestPrice"`
}

// Money is one amount in both currencies.
type Money struct {
	CNY decimal.Decimal `json:"cny"`
	USD decimal.Decimal `json:"usd"`
}

// ConvertedPriceItem is a PriceItem with every present price field carried
// in both CNY and USD at ExchangeRate (CNY per USD).
type ConvertedPriceItem struct {
	ID             int64     `json:"id"`
	ProductSpec    string    `json:"product_spec"`
	StatisticsTime string    `json:"statistics_time"`
	Timestamp      int64     `json:"timestamp"`
	SiteID         int       `json:"site_id"`
	CategoryID     int       `json:"category_id"`
	Width          Dimension `json:"width"`
	Thickness      Dimension `json:"thickness"`
	CreateTime     string    `json:"create_time,omitempty"`

	Price        *Money `json:"price,omitempty"`
	TaxPrice     *Money `json:"tax_price,omitempty"`
	PriceTax     *Money `json:"price_tax,omitempty"`
	LastPrice    *Money `json:"last_price,omitempty"`
	OpeningPrice *Money `json:"opening_price,omitempty"`
	ClosingPrice *Money `json:"closing_price,omitempty"`
	HighestPrice *Money `json:"highest_price,omitempty"`
	LowestPrice  *Money `json:"lowest_price,omitempty"`

	ExchangeRate decimal.Decimal `json:"exchange_rate"`
	Currency     string          `json:"currency"`
}

// CNYToUSD returns amount / rate rounded half away from zero to 2 places.
// rate must be positive.
func CNYToUSD(amount, rate decimal.Decimal) decimal.Decimal {
	return amount.Div(rate).Round(2)
}

// USDToCNY returns amount * rate rounded to 2 places.
func USDToCNY(amount, rate decimal.Decimal) decimal.Decimal {
	return amount.Mul(rate).Round(2)
}

func convertField(v *decimal.Decimal, rate decimal.Decimal) *Money {
	if v == nil {
		return nil
	}
	return &Money{CNY: *v, USD: CNYToUSD(*v, rate)}
}

// Convert converts item at rate without touching item. rate must be positive.
func Convert(item PriceItem, rate decimal.Decimal) ConvertedPriceItem {
	return ConvertedPriceItem{
		ID:             item.ID,
		ProductSpec:    item.ProductSpec,
		StatisticsTime: item.StatisticsTime,
		Timestamp:      item.Timestamp,
		SiteID:         item.SiteID,
		CategoryID:     item.CategoryID,
		Width:          item.Width,
		Thickness:      item.Thickness,
		CreateTime:     item.CreateTime,

		Price:        convertField(item.Price, rate),
		TaxPrice:     convertField(item.TaxPrice, rate),
		PriceTax:     convertField(item.PriceTax, rate),
		LastPrice:    convertField(item.LastPrice, rate),
		OpeningPrice: convertField(item.OpeningPrice, rate),
		ClosingPrice: convertField(item.ClosingPrice, rate),
		HighestPrice: convertField(item.HighestPrice, rate),
		LowestPrice:  convertField(item.LowestPrice, rate),

		ExchangeRate: rate,
		Currency:     CurrencyUSD,
	}
}

// IsSentinel reports rows the upstream uses as placeholders: no id or no price.
func (c ConvertedPriceItem) IsSentinel() bool {
	return c.ID == 0 || c.Price == nil || c.Price.CNY.IsZero()
}

// TaxInclusive returns the tax-inclusive amount, preferring taxPrice over priceTax.
func (c ConvertedPriceItem) TaxInclusive() *Money {
	if c.TaxPrice != nil {
		return c.TaxPrice
	}
	return c.PriceTax
}

// CategoryPrices is one material's items grouped by width.
type CategoryPrices struct {
	Material   string                          `json:"material"`
	Name       string                          `json:"name"`
	CategoryID int                             `json:"category_id"`
	Widths     map[string][]ConvertedPriceItem `json:"widths"`
}

// Items flattens the width groups in ascending width-key order.
func (c *CategoryPrices) Items() []ConvertedPriceItem {
	keys := make([]string, 0, len(c.Widths))
	for k := range c.Widths {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var items []ConvertedPriceItem
	for _, k := range keys {
		items = append(items, c.Widths[k]...)
	}
	return items
}

// PriceList is the converted multi-category list for one business date.
// Categories and Errors are keyed by material name.
type PriceList struct {
	Success      bool                       `json:"success"`
	Date         string                     `json:"date"`
	Categories   map[string]*CategoryPrices `json:"categories"`
	Errors       map[string]string          `json:"errors,omitempty"`
	FetchedAt    time.Time                  `json:"fetched_at"`
	ResolvedRate decimal.Decimal            `json:"resolved_rate"`
}

// EmbeddedRate scans the items for the first positive exchange rate, in
// catalogue order. Lists cached before ResolvedRate existed only carry the
// rate on their items.
func (l *PriceList) EmbeddedRate() (decimal.Decimal, bool) {
	for _, m := range catalogue {
		cat, ok := l.Categories[m.Name]
		if !ok {
			continue
		}
		for _, item := range cat.Items() {
			if item.ExchangeRate.IsPositive() {
				return item.ExchangeRate, true
			}
		}
	}
	return decimal.Zero, false
}

// RealtimeQuote is the converted quote for one product on one date.
type RealtimeQuote struct {
	ProductType string             `json:"product_type"`
	ProductSpec string             `json:"product_spec"`
	Date        string             `json:"date"`
	Item        ConvertedPriceItem `json:"item"`
	FetchedAt   time.Time          `json:"fetched_at"`
}
