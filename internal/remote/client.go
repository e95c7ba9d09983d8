// Package remote is the HTTP client for the campus backend chat API.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/cloudwego/hertz/pkg/app/client"
	"github.com/cloudwego/hertz/pkg/protocol"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
)

// Endpoints holds the backend path of each operation, relative to the base URL.
type Endpoints struct {
	Conversations string
	ActiveUsers   string
	SearchUsers   string
	Messages      string
	Send          string
	Edit          string
	Unsend        string
	MarkRead      string
	UpdateSession string
	UnreadCount   string
}

// DefaultEndpoints returns the stock backend paths.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		Conversations: "/chat/conversations.php",
		ActiveUsers:   "/chat/active_users.php",
		SearchUsers:   "/chat/search_users.php",
		Messages:      "/chat/get_messages.php",
		Send:          "/chat/send_message.php",
		Edit:          "/chat/edit_message.php",
		Unsend:        "/chat/unsend_message.php",
		MarkRead:      "/chat/mark_read.php",
		UpdateSession: "/chat/update_session.php",
		UnreadCount:   "/chat/unread_count.php",
	}
}

func (e Endpoints) withDefaults() Endpoints {
	d := DefaultEndpoints()
	fill := func(dst *string, def string) {
		if *dst == "" {
			*dst = def
		}
	}
	fill(&e.Conversations, d.Conversations)
	fill(&e.ActiveUsers, d.ActiveUsers)
	fill(&e.SearchUsers, d.SearchUsers)
	fill(&e.Messages, d.Messages)
	fill(&e.Send, d.Send)
	fill(&e.Edit, d.Edit)
	fill(&e.Unsend, d.Unsend)
	fill(&e.MarkRead, d.MarkRead)
	fill(&e.UpdateSession, d.UpdateSession)
	fill(&e.UnreadCount, d.UnreadCount)
	return e
}

// Client talks to the backend over HTTP.
type Client struct {
	baseURL    string
	endpoints  Endpoints
	httpClient *client.Client
	timeout    time.Duration
	loc        *time.Location
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHertzClient sets a custom Hertz client.
func WithHertzClient(httpClient *client.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithEndpoints overrides backend paths. Empty fields keep their default.
func WithEndpoints(e Endpoints) ClientOption {
	return func(c *Client) {
		c.endpoints = e.withDefaults()
	}
}

// WithTimeout bounds requests whose context carries no deadline.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithLocation sets the zone of the backend's zoneless timestamps.
func WithLocation(loc *time.Location) ClientOption {
	return func(c *Client) {
		c.loc = loc
	}
}

// NewClient creates a backend client rooted at baseURL.
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("remote: base URL is required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("remote: invalid base URL: %w", err)
	}

	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		endpoints: DefaultEndpoints(),
		timeout:   10 * time.Second,
		loc:       time.Local,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		httpClient, err := client.NewClient(
			client.WithDialTimeout(5*time.Second),
			client.WithClientReadTimeout(c.timeout),
			client.WithWriteTimeout(c.timeout),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create http client: %w", err)
		}
		c.httpClient = httpClient
	}
	return c, nil
}

// do sends req and returns the raw body of a 2xx response.
func (c *Client) do(ctx context.Context, req *protocol.Request) ([]byte, error) {
	resp := &protocol.Response{}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(c.timeout)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := c.httpClient.DoDeadline(ctx, req, resp, deadline); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	body := append([]byte(nil), resp.Body()...)
	if status := resp.StatusCode(); status < 200 || status >= 300 {
		apiErr := &APIError{Status: status}
		var env envelope
		if json.Unmarshal(body, &env) == nil {
			apiErr.Message = env.text()
		}
		return nil, apiErr
	}
	return body, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req := &protocol.Request{}
	req.SetMethod(consts.MethodGet)
	req.SetRequestURI(reqURL)
	req.Header.Set("Accept", "application/json")
	return c.do(ctx, req)
}

func (c *Client) post(ctx context.Context, path string, body any) ([]byte, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req := &protocol.Request{}
	req.SetMethod(consts.MethodPost)
	req.SetRequestURI(c.baseURL + path)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.SetBody(jsonBody)
	return c.do(ctx, req)
}

// decode unmarshals a JSON body into v. Empty or non-JSON bodies are
// reported as ErrMalformedResponse.
func decode(body []byte, v any) error {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return fmt.Errorf("%w: empty body", ErrMalformedResponse)
	}
	if err := json.Unmarshal(trimmed, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}
