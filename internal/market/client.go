// Package market implements the client for the marketplace and token-sale
// REST feeds, tolerant of the several response and field shapes the
// upstream APIs produce.
package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Client fetches marketplace listings, sales and token sold-orders.
type Client struct {
	baseURL        string
	listingsPath   string
	salesPath      string
	tokenSalesPath string
	httpClient     *http.Client
}

// ClientOptions configures a Client. Zero values get sensible defaults.
type ClientOptions struct {
	BaseURL        string
	ListingsPath   string // default /api/krc721/listed-orders
	SalesPath      string // default /api/krc721/sold-orders
	TokenSalesPath string // default /api/sold-orders
	Timeout        time.Duration
}

// NewClient creates a marketplace feed client.
func NewClient(opts ClientOptions) *Client {
	listings := opts.ListingsPath
	if listings == "" {
		listings = "/api/krc721/listed-orders"
	}
	sales := opts.SalesPath
	if sales == "" {
		sales = "/api/krc721/sold-orders"
	}
	tokenSales := opts.TokenSalesPath
	if tokenSales == "" {
		tokenSales = "/api/sold-orders"
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 20 * time.Second
	}

	return &Client{
		baseURL:        opts.BaseURL,
		listingsPath:   listings,
		salesPath:      sales,
		tokenSalesPath: tokenSales,
		httpClient:     &http.Client{Timeout: timeout},
	}
}

// Listings fetches active listings for ticker.
func (c *Client) Listings(ctx context.Context, ticker string, limit int) ([]map[string]any, error) {
	q := url.Values{"ticker": {ticker}, "limit": {strconv.Itoa(limit)}}
	return c.getRows(ctx, c.listingsPath, q)
}

// Sales fetches sales for ticker within the trailing minutes window.
func (c *Client) Sales(ctx context.Context, ticker string, minutes, limit int) ([]map[string]any, error) {
	q := url.Values{"ticker": {ticker}, "minutes": {strconv.Itoa(minutes)}, "limit": {strconv.Itoa(limit)}}
	return c.getRows(ctx, c.salesPath, q)
}

// TokenSales fetches fulfilled token sold-orders for ticker within the
// trailing minutes window.
func (c *Client) TokenSales(ctx context.Context, ticker string, minutes int) ([]map[string]any, error) {
	q := url.Values{"ticker": {ticker}, "minutes": {strconv.Itoa(minutes)}}
	return c.getRows(ctx, c.tokenSalesPath, q)
}

// getRows performs the GET and extracts the row array from whichever shape
// the endpoint uses: a bare array, {"orders": [...]} or {"data": [...]}.
func (c *Client) getRows(ctx context.Context, path string, query url.Values) ([]map[string]any, error) {
	u := c.baseURL + path + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build request %s: %w", path, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get %s: unexpected status %d", path, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", path, err)
	}
	return extractRows(body, path)
}

func extractRows(body []byte, path string) ([]map[string]any, error) {
	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", path, err)
	}

	switch v := payload.(type) {
	case []any:
		return toRowMaps(v), nil
	case map[string]any:
		for _, key := range []string{"orders", "data"} {
			if arr, ok := v[key].([]any); ok {
				return toRowMaps(arr), nil
			}
		}
		return nil, nil
	default:
		return nil, nil
	}
}

func toRowMaps(arr []any) []map[string]any {
	rows := make([]map[string]any, 0, len(arr))
	for _, item := range arr {
		if m, ok := item.(map[string]any); ok {
			rows = append(rows, m)
		}
	}
	return rows
}
