package imgapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client talks to the image-context HTTP API. Every call runs under the
// budget of its Kind.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
	budgets   Budgets
	now       func() time.Time
}

const (
	defaultAPIBind   = "127.0.0.1:8000"
	defaultUserAgent = "lumen/0.1"
)

// Response is a fully read HTTP response with a non-error status.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// NewClient builds a Client using the provided apiBind host:port value. A nil
// budgets table uses DefaultBudgets.
func NewClient(apiBind string, budgets Budgets) (*Client, error) {
	base, err := parseBaseURL(apiBind)
	if err != nil {
		return nil, err
	}
	if budgets == nil {
		budgets = DefaultBudgets()
	}
	return &Client{
		baseURL:   base,
		http:      &http.Client{},
		userAgent: defaultUserAgent,
		budgets:   budgets,
		now:       time.Now,
	}, nil
}

// BaseURL returns the normalized server address.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Budget returns the configured budget for kind, or zero when none is set.
func (c *Client) Budget(kind Kind) time.Duration {
	d, _ := c.budgets.Lookup(kind)
	return d
}

// Call executes req under the budget for kind. Failures are classified as
// *TimeoutError, *NetworkError or *ServerError. Cancellation of ctx by the
// caller is returned as an error wrapping context.Canceled. No retries are
// attempted.
func (c *Client) Call(ctx context.Context, kind Kind, req *http.Request) (*Response, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	budget, ok := c.budgets.Lookup(kind)
	if !ok {
		return nil, &ValidationError{Field: "kind", Reason: fmt.Sprintf("no budget configured for %s", kind)}
	}

	callCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	req = req.WithContext(callCtx)
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	op := fmt.Sprintf("%s %s", req.Method, req.URL.Path)

	start := c.now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, c.classify(ctx, kind, budget, start, op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.classify(ctx, kind, budget, start, op, err)
	}
	if elapsed := c.now().Sub(start); elapsed > budget {
		return nil, &TimeoutError{Kind: kind, Budget: budget, Elapsed: elapsed}
	}
	if resp.StatusCode >= 400 {
		return nil, newServerError(resp.StatusCode, body)
	}
	return &Response{Status: resp.StatusCode, Header: resp.Header, Body: body}, nil
}

func (c *Client) classify(parent context.Context, kind Kind, budget time.Duration, start time.Time, op string, err error) error {
	if parent.Err() == context.Canceled {
		return fmt.Errorf("%s: %w", op, context.Canceled)
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &TimeoutError{Kind: kind, Budget: budget, Elapsed: c.now().Sub(start), Err: err}
	}
	return &NetworkError{Op: op, Err: err}
}

func (c *Client) getJSON(ctx context.Context, kind Kind, rel *url.URL, dest any) error {
	req, err := c.newRequest(http.MethodGet, rel, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	return c.callJSON(ctx, kind, req, dest)
}

func (c *Client) postJSON(ctx context.Context, kind Kind, rel *url.URL, payload, dest any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := c.newRequest(http.MethodPost, rel, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.callJSON(ctx, kind, req, dest)
}

func (c *Client) callJSON(ctx context.Context, kind Kind, req *http.Request, dest any) error {
	resp, err := c.Call(ctx, kind, req)
	if err != nil {
		return err
	}
	if dest == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Body, dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) newRequest(method string, rel *url.URL, body io.Reader) (*http.Request, error) {
	reqURL := c.baseURL.ResolveReference(rel)
	req, err := http.NewRequest(method, reqURL.String(), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	return req, nil
}

func parseBaseURL(apiBind string) (*url.URL, error) {
	trimmed := strings.TrimSpace(apiBind)
	if trimmed == "" {
		trimmed = defaultAPIBind
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse api_bind %q: %w", apiBind, err)
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
