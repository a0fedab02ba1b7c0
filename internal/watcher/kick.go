package watcher

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const defaultKickBaseURL = "https://kick.com/api/v2"

// LiveInfo is the slice of a Kick channel lookup the watcher cares about.
type LiveInfo struct {
	Live  bool
	ID    int64
	Title string
	Game  string
}

// KickClient reads the public Kick channels API.
type KickClient struct {
	httpClient *http.Client
	baseURL    string
}

func NewKickClient() *KickClient {
	return &KickClient{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    defaultKickBaseURL,
	}
}

// NewKickClientWithBaseURL exists for tests against a local server.
func NewKickClientWithBaseURL(baseURL string) *KickClient {
	c := NewKickClient()
	c.baseURL = baseURL
	return c
}

type kickChannelResponse struct {
	Livestream *struct {
		ID           int64  `json:"id"`
		IsLive       bool   `json:"is_live"`
		SessionTitle string `json:"session_title"`
		Game         *struct {
			Name string `json:"name"`
		} `json:"game"`
	} `json:"livestream"`
}

// ChannelInfo reports whether a login is live. A non-200 answer counts as
// offline rather than an error: the poll loop should not alert on the
// API's bad days.
func (c *KickClient) ChannelInfo(ctx context.Context, login string) (LiveInfo, error) {
	endpoint := fmt.Sprintf("%s/channels/%s", c.baseURL, url.PathEscape(login))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return LiveInfo{}, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return LiveInfo{}, fmt.Errorf("kick channel lookup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return LiveInfo{}, nil
	}

	var body kickChannelResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return LiveInfo{}, fmt.Errorf("decode kick response: %w", err)
	}
	if body.Livestream == nil || !body.Livestream.IsLive {
		return LiveInfo{}, nil
	}
	info := LiveInfo{
		Live:  true,
		ID:    body.Livestream.ID,
		Title: body.Livestream.SessionTitle,
	}
	if body.Livestream.Game != nil {
		info.Game = body.Livestream.Game.Name
	}
	return info, nil
}
