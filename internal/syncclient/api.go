// Package syncclient implements the polling protocol spoken by the widget
// and the console: watermark-based transcript fetches, incremental roster
// merges, token refresh and the deploy-skew guard. Everything is driven by
// an injected clock so the timing rules are testable.
package syncclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"livechat-backend/internal/dto"
	"livechat-backend/internal/version"
)

type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d (%s): %s", e.StatusCode, e.Code, e.Message)
}

// Client wraps the HTTP surface. On a bad_token rejection it refreshes the
// rotating widget token and replays the request exactly once; any second
// rejection propagates.
type Client struct {
	baseURL    string
	httpClient *http.Client
	buildTag   string

	mu    sync.Mutex
	token string

	// OnStaleBuild fires once when the server reports a different build
	// than ours; the embedding page uses it to force a reload.
	OnStaleBuild  func(serverBuild string)
	staleReported bool

	// AgentToken, when set, authenticates requests as staff instead of
	// with the widget token.
	AgentToken string
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		buildTag:   version.Build,
	}
}

func (c *Client) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

func (c *Client) RefreshToken(ctx context.Context) error {
	var resp dto.PublicTokenResponse
	if err := c.doOnce(ctx, http.MethodGet, "/public-token", nil, &resp); err != nil {
		return err
	}
	c.mu.Lock()
	c.token = resp.Token
	c.mu.Unlock()
	return nil
}

// Do performs one API call, injecting the widget token into the request
// body when asked and applying the refresh-then-replay rule.
func (c *Client) Do(ctx context.Context, method, path string, body map[string]any, out any) error {
	if c.AgentToken == "" {
		if c.Token() == "" {
			if err := c.RefreshToken(ctx); err != nil {
				return err
			}
		}
		if body != nil {
			body["token"] = c.Token()
		}
	}

	err := c.doOnce(ctx, method, path, body, out)
	apiErr, ok := err.(*APIError)
	if !ok || apiErr.Code != "bad_token" || c.AgentToken != "" {
		return err
	}

	// Rotated out from under us: refresh and replay exactly once.
	if err := c.RefreshToken(ctx); err != nil {
		return err
	}
	if body != nil {
		body["token"] = c.Token()
	}
	return c.doOnce(ctx, method, path, body, out)
}

func (c *Client) doOnce(ctx context.Context, method, path string, body map[string]any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.AgentToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.AgentToken)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if res.StatusCode >= 400 {
		var parsed struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		_ = json.Unmarshal(data, &parsed)
		return &APIError{
			StatusCode: res.StatusCode,
			Code:       parsed.Code,
			Message:    parsed.Message,
		}
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		c.checkBuild(out)
	}
	return nil
}

func (c *Client) checkBuild(out any) {
	var serverBuild string
	switch v := out.(type) {
	case *dto.PublicTokenResponse:
		serverBuild = v.PluginVersion
	case *dto.PresenceResponse:
		serverBuild = v.PluginVersion
	case *dto.VisitorMessageResponse:
		serverBuild = v.PluginVersion
	case *dto.LeadResponse:
		serverBuild = v.PluginVersion
	case *dto.TypingResponse:
		serverBuild = v.PluginVersion
	case *dto.MessagesResponse:
		serverBuild = v.PluginVersion
	case *dto.VisitorsResponse:
		serverBuild = v.PluginVersion
	case *dto.ConversationResponse:
		serverBuild = v.PluginVersion
	case *dto.AgentMessageResponse:
		serverBuild = v.PluginVersion
	case *dto.AIReplyResponse:
		serverBuild = v.PluginVersion
	default:
		return
	}

	if serverBuild == "" || serverBuild == c.buildTag || c.staleReported {
		return
	}
	c.staleReported = true
	if c.OnStaleBuild != nil {
		c.OnStaleBuild(serverBuild)
	}
}
