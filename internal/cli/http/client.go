package httpclient

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// ResponseInfo carries response details.
type ResponseInfo struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
}

// Client wraps HTTP requests for the CLI.
type Client struct {
	rc            *resty.Client
	tokenProvider func() string
}

func New(baseURL string, timeout time.Duration, tokenProvider func() string) *Client {
	rc := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")
	return &Client{rc: rc, tokenProvider: tokenProvider}
}

func (c *Client) SetBaseURL(baseURL string) {
	c.rc.SetBaseURL(baseURL)
}

func (c *Client) BaseURL() string {
	return c.rc.BaseURL
}

func (c *Client) SetTimeout(timeout time.Duration) {
	if timeout > 0 {
		c.rc.SetTimeout(timeout)
	}
}

// Do sends body verbatim; non-2xx responses are not errors.
func (c *Client) Do(ctx context.Context, method, path string, body []byte) (ResponseInfo, error) {
	var info ResponseInfo
	req := c.rc.R().SetContext(ctx)
	if len(body) > 0 {
		req.SetBody(body)
	}
	if c.tokenProvider != nil {
		if token := c.tokenProvider(); token != "" {
			req.SetAuthToken(token)
		}
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return info, fmt.Errorf("request failed: %w", err)
	}
	info.StatusCode = resp.StatusCode()
	info.Headers = resp.Header()
	info.Body = resp.Body()
	info.Duration = resp.Time()
	return info, nil
}
