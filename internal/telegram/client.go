// Package telegram reads recent channel messages through a
// pre-authenticated tdlib HTTP gateway. The gateway owns the MTProto
// session; this client connects once per run and reuses the session
// across channels.
package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/jobgram/jobgram/internal/model"
)

// Client is the messaging-source session injected into the run
// coordinator. Connect once, reuse across channels, Close at run end.
type Client interface {
	Connect(ctx context.Context) error
	RecentMessages(ctx context.Context, username string, limit int) ([]model.RawMessage, error)
	Close() error
}

// GatewayClient talks to the tdlib gateway's JSON API.
type GatewayClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewGatewayClient creates a client for the gateway at baseURL.
func NewGatewayClient(baseURL, token string, httpClient *http.Client) *GatewayClient {
	return &GatewayClient{
		baseURL:    baseURL,
		token:      token,
		httpClient: httpClient,
	}
}

// sessionResponse is the gateway's session status body.
type sessionResponse struct {
	Authorized bool   `json:"authorized"`
	Phone      string `json:"phone"`
}

// gatewayMessage is one message in the gateway's channel history response.
type gatewayMessage struct {
	ID     int64  `json:"id"`
	Text   string `json:"text"`
	Date   int64  `json:"date"` // unix seconds
	ChatID int64  `json:"chat_id"`
	Link   string `json:"link"`
}

type messagesResponse struct {
	Messages []gatewayMessage `json:"messages"`
}

// Connect verifies the gateway session is alive and authorized. A
// failure here is fatal for the whole run.
func (c *GatewayClient) Connect(ctx context.Context) error {
	var sess sessionResponse
	if err := c.get(ctx, "/v1/session", &sess); err != nil {
		return fmt.Errorf("gateway session check: %w", err)
	}
	if !sess.Authorized {
		return fmt.Errorf("gateway session is not authorized")
	}
	return nil
}

// RecentMessages fetches up to limit most recent messages from the
// channel, in source order (reverse-chronological). The gateway offers
// only a count-based cursor; time filtering happens in the Reader.
func (c *GatewayClient) RecentMessages(ctx context.Context, username string, limit int) ([]model.RawMessage, error) {
	path := fmt.Sprintf("/v1/channels/%s/messages?limit=%d", username, limit)
	var resp messagesResponse
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, fmt.Errorf("fetching messages for @%s: %w", username, err)
	}

	msgs := make([]model.RawMessage, 0, len(resp.Messages))
	for _, gm := range resp.Messages {
		msgs = append(msgs, model.RawMessage{
			ID:        gm.ID,
			Text:      gm.Text,
			Timestamp: time.Unix(gm.Date, 0),
			ChatID:    gm.ChatID,
			URL:       gm.Link,
		})
	}
	return msgs, nil
}

// Close is a no-op for the HTTP gateway; the session outlives the run.
func (c *GatewayClient) Close() error {
	return nil
}

func (c *GatewayClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &model.HTTPError{
			StatusCode: resp.StatusCode,
			RetryAfter: model.ParseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
