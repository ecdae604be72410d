package bitso

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

const baseURL = "https://api.bitso.com"

// HTTPClient describes an HTTP client.
//
//go:generate mockgen -package=bitso_test -destination=mock_http_client_test.go -source=client.go HTTPClient
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// BitsoAPIClient is a client for the public Bitso ticker API.
type BitsoAPIClient struct {
	// baseURL is the base URL for the API.
	baseURL string
	// httpClient is the HTTP httpClient.
	httpClient HTTPClient
	// header contains additional headers to be sent with each request.
	header http.Header
}

// BitsoAPIClientOption is a configuration option for the Bitso API client.
type BitsoAPIClientOption func(*BitsoAPIClient)

// WithBaseURL sets the base URL for the API.
func WithBaseURL(baseURL string) BitsoAPIClientOption {
	return func(c *BitsoAPIClient) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets the HTTP client for the API.
func WithHTTPClient(httpClient HTTPClient) BitsoAPIClientOption {
	return func(c *BitsoAPIClient) {
		c.httpClient = httpClient
	}
}

// WithHeader sets additional headers to be sent with each request.
func WithHeader(header http.Header) BitsoAPIClientOption {
	return func(c *BitsoAPIClient) {
		for key, values := range header {
			for _, value := range values {
				c.header.Add(key, value)
			}
		}
	}
}

// NewBitsoAPIClient creates a new Bitso API client.
func NewBitsoAPIClient(options ...BitsoAPIClientOption) *BitsoAPIClient {
	var client = &BitsoAPIClient{
		baseURL:    baseURL,
		httpClient: http.DefaultClient,
		header:     http.Header{},
	}
	for _, option := range options {
		option(client)
	}
	return client
}

// Ticker is the payload of one Bitso order book ticker.
type Ticker struct {
	Book string      `json:"book"`
	Ask  json.Number `json:"ask"`
	Bid  json.Number `json:"bid"`
}

type tickerResponse struct {
	Success bool   `json:"success"`
	Payload Ticker `json:"payload"`
}

// GetTicker fetches the ticker for one book, e.g. "btc_cop".
// ok is false when the API answers with a non-success envelope, which
// is Bitso's signal for an unknown or empty book.
func (c *BitsoAPIClient) GetTicker(ctx context.Context, book string) (Ticker, bool, error) {
	u := fmt.Sprintf("%s/v3/ticker/?book=%s", c.baseURL, url.QueryEscape(book))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return Ticker{}, false, err
	}
	for key, values := range c.header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Ticker{}, false, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Ticker{}, false, fmt.Errorf("GET %s -> %d", u, resp.StatusCode)
	}

	var body tickerResponse
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		return Ticker{}, false, fmt.Errorf("decode: %w", err)
	}
	if !body.Success {
		return Ticker{}, false, nil
	}
	return body.Payload, true, nil
}
