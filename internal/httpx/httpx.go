package httpx

import (
    "bytes"
    "context"
    "encoding/json"
    "fmt"
    "io"
    "net"
    "net/http"
    "time"
)

// Client is a small wrapper around http.Client with sane defaults.
type Client struct {
    HTTP      *http.Client
    UserAgent string
    Headers   map[string]string
}

func New(timeout time.Duration) *Client {
    transport := &http.Transport{
        Proxy: http.ProxyFromEnvironment,
        DialContext: (&net.Dialer{Timeout: 3 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
        MaxIdleConns:          100,
        MaxIdleConnsPerHost:   20,
        ForceAttemptHTTP2:     true,
        IdleConnTimeout:       90 * time.Second,
        TLSHandshakeTimeout:   3 * time.Second,
        ExpectContinueTimeout: 1 * time.Second,
        ResponseHeaderTimeout: 5 * time.Second,
    }
    return &Client{HTTP: &http.Client{Timeout: timeout, Transport: transport}, UserAgent: "cryptospread/1.0"}
}

func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
    if c.UserAgent != "" && req.Header.Get("User-Agent") == "" {
        req.Header.Set("User-Agent", c.UserAgent)
    }
    for k, v := range c.Headers {
        if req.Header.Get(k) == "" {
            req.Header.Set(k, v)
        }
    }
    return c.HTTP.Do(req)
}

// GetJSON issues a GET and decodes the JSON body into out.
// Non-2xx statuses are reported as errors with a body excerpt.
func (c *Client) GetJSON(ctx context.Context, url string, out any) error {
    req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
    if err != nil { return err }
    req.Header.Set("Accept", "application/json")
    return c.doJSON(req, out)
}

// PostJSON issues a POST with a JSON payload and decodes the response.
func (c *Client) PostJSON(ctx context.Context, url string, payload, out any) error {
    body, err := json.Marshal(payload)
    if err != nil { return err }
    req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
    if err != nil { return err }
    req.Header.Set("Content-Type", "application/json")
    req.Header.Set("Accept", "application/json")
    return c.doJSON(req, out)
}

func (c *Client) doJSON(req *http.Request, out any) error {
    resp, err := c.Do(req.Context(), req)
    if err != nil { return err }
    defer resp.Body.Close()
    if resp.StatusCode < 200 || resp.StatusCode >= 300 {
        b, _ := io.ReadAll(io.LimitReader(resp.Body, 2<<10))
        return fmt.Errorf("%s %s -> %d: %s", req.Method, req.URL, resp.StatusCode, string(b))
    }
    dec := json.NewDecoder(resp.Body)
    dec.UseNumber()
    if err := dec.Decode(out); err != nil {
        return fmt.Errorf("decode: %w", err)
    }
    return nil
}
