package answer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultBaseURL = "http://localhost:8181"
	defaultTimeout = 30 * time.Second

	askPath   = "/ask/stream"
	startPath = "/crawl"
)

// ErrMalformedResponse is returned when a 2xx response body cannot be decoded.
var ErrMalformedResponse = errors.New("answer: malformed response")

// askRequest is the request body of the answer endpoint.
type askRequest struct {
	Question string `json:"question"`
}

// askResponse covers both the answer payload and the service's status
// envelope, which it sometimes returns with a 200.
type askResponse struct {
	Answer          string   `json:"answer"`
	SourceURLs      []string `json:"source_urls"`
	CombinedContent string   `json:"combined_content,omitempty"`

	Success *bool  `json:"success,omitempty"`
	Message string `json:"message,omitempty"`
	Status  int    `json:"status,omitempty"`
}

// Answer is a decoded reply from the answer service.
type Answer struct {
	Text       string
	SourceURLs []string
}

// HTTPStatusError captures non-2xx upstream responses with status-aware context.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("answer: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// Client talks to the remote question-answering service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient = &http.Client{Timeout: d}
		}
	}
}

// NewClient creates a Client for the service rooted at baseURL. An empty
// baseURL means the local development service.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		return nil, fmt.Errorf("answer: base URL %q must be http or https", baseURL)
	}
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) resolvedHTTPClient() *http.Client {
	if c.httpClient != nil {
		return c.httpClient
	}
	return &http.Client{Timeout: defaultTimeout}
}

// Ask posts question to the answer endpoint. It issues exactly one request;
// callers decide what a failure means.
func (c *Client) Ask(ctx context.Context, question string) (Answer, error) {
	body, err := json.Marshal(askRequest{Question: question})
	if err != nil {
		return Answer{}, fmt.Errorf("answer: marshal request: %w", err)
	}

	url := c.baseURL + askPath
	req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if reqErr != nil {
		return Answer{}, fmt.Errorf("answer: create request: %w", reqErr)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	raw, err := c.doJSONRequest(req, url)
	if err != nil {
		return Answer{}, fmt.Errorf("answer: request failed: %w", err)
	}

	var payload askResponse
	if decErr := json.Unmarshal(raw, &payload); decErr != nil {
		return Answer{}, fmt.Errorf("%w: %v", ErrMalformedResponse, decErr)
	}
	if payload.Success != nil && !*payload.Success {
		status := payload.Status
		if status < 400 {
			status = http.StatusBadGateway
		}
		return Answer{}, fmt.Errorf("answer: request failed: %w", &HTTPStatusError{
			StatusCode: status,
			URL:        url,
			Body:       payload.Message,
		})
	}

	text := strings.TrimSpace(payload.Answer)
	if text == "" {
		text = strings.TrimSpace(payload.Message)
	}
	return Answer{Text: text, SourceURLs: payload.SourceURLs}, nil
}

// StartSession calls the session-start endpoint. Only success or failure
// matters; the body is discarded.
func (c *Client) StartSession(ctx context.Context) error {
	url := c.baseURL + startPath
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("answer: create session-start request: %w", err)
	}
	if _, err := c.doJSONRequest(req, url); err != nil {
		return fmt.Errorf("answer: session start failed: %w", err)
	}
	return nil
}

func (c *Client) doJSONRequest(req *http.Request, url string) ([]byte, error) {
	res, doErr := c.resolvedHTTPClient().Do(req)
	if doErr != nil {
		return nil, doErr
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, &HTTPStatusError{
			StatusCode: res.StatusCode,
			URL:        url,
			Body:       string(buf),
		}
	}

	buf, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return buf, nil
}
