package sobrsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"
)

// Client is a Go client for the SOBR HTTP API. Reads fall back to a
// file-backed offline cache when the server is unreachable, selected by a
// health-check circuit breaker. Authentication and authorization denials
// are returned as-is, never served from the cache.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client

	cache   *fileCache
	breaker *healthBreaker
}

// NewClient builds a client with a cookie jar for the session cookie pair.
// cacheDir enables the offline read cache; pass "" to disable it.
func NewClient(baseURL, cacheDir string) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	httpClient := &http.Client{Timeout: 10 * time.Second, Jar: jar}

	c := &Client{
		BaseURL:    strings.TrimSuffix(baseURL, "/"),
		HTTPClient: httpClient,
	}
	if cacheDir != "" {
		cache, err := newFileCache(cacheDir)
		if err != nil {
			return nil, err
		}
		c.cache = cache
	}
	c.breaker = newHealthBreaker(httpClient, c.BaseURL, 30*time.Second)
	return c, nil
}

// Login authenticates and stores the session cookies on the client's jar.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	var out LoginResult
	err := c.post(ctx, "/api/login", map[string]any{"email": email, "password": password}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Logout(ctx context.Context) error {
	return c.post(ctx, "/api/logout", map[string]any{}, nil)
}

func (c *Client) Refresh(ctx context.Context) error {
	return c.post(ctx, "/api/refresh", map[string]any{}, nil)
}

func (c *Client) UpsertUser(ctx context.Context, email, fullName, role string, metadata map[string]any) (*User, error) {
	var out User
	err := c.post(ctx, "/api/users/upsert", map[string]any{
		"email":     email,
		"full_name": fullName,
		"role":      role,
		"metadata":  metadata,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetUsers(ctx context.Context) ([]User, error) {
	var out []User
	if err := c.get(ctx, "/api/users", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetProfile(ctx context.Context) (*User, error) {
	var out User
	if err := c.get(ctx, "/api/profile", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RequestConnection(ctx context.Context, userID, sponsorID string) (*Connection, error) {
	var out Connection
	err := c.post(ctx, "/api/connections", map[string]any{"userId": userID, "sponsorId": sponsorID}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) AcceptConnection(ctx context.Context, userID, sponsorID string) error {
	return c.post(ctx, "/api/connections/accept", map[string]any{"userId": userID, "sponsorId": sponsorID}, nil)
}

func (c *Client) DeclineConnection(ctx context.Context, userID, sponsorID string) error {
	return c.post(ctx, "/api/connections/decline", map[string]any{"userId": userID, "sponsorId": sponsorID}, nil)
}

func (c *Client) ConnectionStatus(ctx context.Context, userID, sponsorID string) (string, error) {
	var out struct {
		Status string `json:"status"`
	}
	q := url.Values{"userId": {userID}, "sponsorId": {sponsorID}}
	if err := c.get(ctx, "/api/connections/status?"+q.Encode(), &out); err != nil {
		return "", err
	}
	return out.Status, nil
}

func (c *Client) IncomingForSponsor(ctx context.Context, sponsorID string) ([]Connection, error) {
	var out []Connection
	if err := c.get(ctx, "/api/connections/sponsor/"+url.PathEscape(sponsorID)+"/incoming", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) SendMessage(ctx context.Context, fromUserID, toUserID, body string) (*Message, error) {
	var out Message
	err := c.post(ctx, "/api/messages", map[string]any{
		"fromUserId": fromUserID,
		"toUserId":   toUserID,
		"body":       body,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) MessagesForUser(ctx context.Context, userID string) ([]Message, error) {
	var out []Message
	if err := c.get(ctx, "/api/messages/user/"+url.PathEscape(userID), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Conversations(ctx context.Context) ([]Conversation, error) {
	var out []Conversation
	if err := c.get(ctx, "/api/conversations", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) MarkMessagesRead(ctx context.Context, userID, otherUserID string) error {
	return c.post(ctx, "/api/messages/mark-read", map[string]any{"userId": userID, "otherUserId": otherUserID}, nil)
}

func (c *Client) PendingSponsors(ctx context.Context) ([]User, error) {
	var out []User
	if err := c.get(ctx, "/api/sponsors/pending", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ApproveSponsor(ctx context.Context, sponsorID string) error {
	return c.post(ctx, "/api/sponsors/"+url.PathEscape(sponsorID)+"/approve", map[string]any{}, nil)
}

func (c *Client) DeclineSponsor(ctx context.Context, sponsorID string) error {
	return c.post(ctx, "/api/sponsors/"+url.PathEscape(sponsorID)+"/decline", map[string]any{}, nil)
}

func (c *Client) BulkApproveSponsors(ctx context.Context, ids []string) (*BulkApproveResult, error) {
	var out BulkApproveResult
	if err := c.post(ctx, "/api/sponsors/bulk_approve", map[string]any{"ids": ids}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetDashboardMetrics(ctx context.Context) (*DashboardMetrics, error) {
	var out DashboardMetrics
	if err := c.get(ctx, "/api/dashboard/metrics", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RecentActivity(ctx context.Context) ([]ActivityItem, error) {
	var out []ActivityItem
	if err := c.get(ctx, "/api/activity/recent", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// get performs a read. When the breaker is open or the call fails for
// network/server reasons, the last good cached body is returned instead.
// Authentication and authorization errors are never masked by the cache.
func (c *Client) get(ctx context.Context, path string, out any) error {
	if c.cache != nil && !c.breaker.allow() && !c.breaker.probe(ctx) {
		if body, _, ok := c.cache.get(path); ok {
			return json.Unmarshal(body, out)
		}
	}

	body, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		if c.cache != nil && fallbackEligible(err) {
			c.breaker.trip()
			if cached, _, ok := c.cache.get(path); ok {
				return json.Unmarshal(cached, out)
			}
		}
		return err
	}
	c.breaker.reset()
	if c.cache != nil {
		c.cache.put(path, body)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(body, out)
}

// fallbackEligible reports whether the cache may stand in for this error:
// network failures and server faults only. Client errors, including every
// authentication and authorization denial, are always surfaced.
func fallbackEligible(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= 500
	}
	return true
}

// post performs a write. Writes never fall back to the cache.
func (c *Client) post(ctx context.Context, path string, payload any, out any) error {
	body, err := c.do(ctx, http.MethodPost, path, payload)
	if err != nil {
		return err
	}
	c.breaker.reset()
	if out == nil {
		return nil
	}
	return json.Unmarshal(body, out)
}

func (c *Client) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reqBody)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	res, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sobr request: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 4<<20))
	if err != nil {
		return nil, err
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		if res.StatusCode >= 400 {
			return nil, &APIError{Status: res.StatusCode, Message: http.StatusText(res.StatusCode)}
		}
		return nil, err
	}
	if res.StatusCode >= 400 || !env.Success {
		return nil, &APIError{Status: res.StatusCode, Message: env.Message}
	}
	return env.Data, nil
}
