// Package marketdata is the client for the external price/fundamental data
// gateway. The gateway owns the wire format; from the pipeline's side an
// empty response is a valid "no data" outcome, never an error.
package marketdata

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// Bar is one daily OHLCV row as returned by the gateway.
type Bar struct {
	Date          time.Time `json:"date"`
	Open          float64   `json:"open"`
	High          float64   `json:"high"`
	Low           float64   `json:"low"`
	Close         float64   `json:"close"`
	Volume        int64     `json:"volume"`
	AdjustedClose float64   `json:"adjusted_close"`
}

// Client handles market data gateway API operations
type Client struct {
	client *resty.Client
}

// NewClient creates a new market data client
func NewClient(baseURL string, timeout time.Duration) *Client {
	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetTimeout(timeout)
	client.SetRetryCount(2)
	client.SetRetryWaitTime(500 * time.Millisecond)

	return &Client{client: client}
}

type dailyBarsResponse struct {
	Symbol string `json:"symbol"`
	Bars   []Bar  `json:"bars"`
}

// DailyBars fetches daily OHLCV bars for a symbol over [from, to].
// An unknown symbol or an empty range returns an empty slice.
func (c *Client) DailyBars(ctx context.Context, symbol string, from, to time.Time) ([]Bar, error) {
	var result dailyBarsResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"symbol": symbol,
			"from":   from.Format("2006-01-02"),
			"to":     to.Format("2006-01-02"),
		}).
		SetResult(&result).
		Get("/v1/prices/daily")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch bars for %s: %w", symbol, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, nil
	}
	if resp.IsError() {
		return nil, fmt.Errorf("bars request for %s failed: %s", symbol, resp.Status())
	}
	return result.Bars, nil
}

type fundamentalsResponse struct {
	Symbol string             `json:"symbol"`
	Ratios map[string]float64 `json:"ratios"`
}

// Fundamentals fetches the flat ratio map for a symbol. Missing keys are
// valid; an unknown symbol returns an empty map.
func (c *Client) Fundamentals(ctx context.Context, symbol string) (map[string]float64, error) {
	var result fundamentalsResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("symbol", symbol).
		SetResult(&result).
		Get("/v1/fundamentals")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch fundamentals for %s: %w", symbol, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, nil
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fundamentals request for %s failed: %s", symbol, resp.Status())
	}
	return result.Ratios, nil
}
