// Package social collects follower and member counts for a token's
// community channels. Each channel is optional; a channel with no
// configured endpoint simply reports zero.
package social

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/tokenscout/tokenscout/internal/domain"
	"github.com/tokenscout/tokenscout/internal/gateway"
	"github.com/tokenscout/tokenscout/internal/platform/fetch"
)

// Config holds the per-channel API endpoints and credentials.
type Config struct {
	TwitterBaseURL   string
	TwitterBearer    string
	TelegramBaseURL  string
	TelegramBotToken string
	DiscordBaseURL   string
}

// Client fetches social metrics for a token symbol.
type Client struct {
	cfg        Config
	gw         *gateway.Gateway
	httpClient *http.Client
}

// NewClient creates a Client.
func NewClient(cfg Config, gw *gateway.Gateway) *Client {
	return &Client{
		cfg:        cfg,
		gw:         gw,
		httpClient: fetch.NewHTTPClient(),
	}
}

type apiTwitterUser struct {
	Data struct {
		PublicMetrics struct {
			Followers int `json:"followers_count"`
		} `json:"public_metrics"`
	} `json:"data"`
}

type apiTelegramCount struct {
	Result int `json:"result"`
}

type apiDiscordPreview struct {
	ApproxMembers int `json:"approximate_member_count"`
}

// Metrics queries every configured channel for the symbol's community.
// Individual channel failures zero that channel but do not fail the
// lookup; an error is returned only when no channel is configured.
func (c *Client) Metrics(ctx context.Context, symbol string) (domain.SocialMetrics, error) {
	var m domain.SocialMetrics
	queried := false

	if c.cfg.TwitterBaseURL != "" {
		queried = true
		u := fmt.Sprintf("%s/2/users/by/username/%s", c.cfg.TwitterBaseURL, url.PathEscape(symbol))
		header := http.Header{}
		header.Set("Authorization", "Bearer "+c.cfg.TwitterBearer)
		var resp apiTwitterUser
		if err := fetch.GetJSON(ctx, c.gw, c.httpClient, u, header, &resp); err == nil {
			m.TwitterFollowers = resp.Data.PublicMetrics.Followers
		}
	}

	if c.cfg.TelegramBaseURL != "" && c.cfg.TelegramBotToken != "" {
		queried = true
		u := fmt.Sprintf("%s/bot%s/getChatMembersCount?chat_id=@%s",
			c.cfg.TelegramBaseURL, url.PathEscape(c.cfg.TelegramBotToken), url.QueryEscape(symbol))
		var resp apiTelegramCount
		if err := fetch.GetJSON(ctx, c.gw, c.httpClient, u, nil, &resp); err == nil {
			m.TelegramMembers = resp.Result
		}
	}

	if c.cfg.DiscordBaseURL != "" {
		queried = true
		u := fmt.Sprintf("%s/api/v9/guilds/%s/preview", c.cfg.DiscordBaseURL, url.PathEscape(symbol))
		var resp apiDiscordPreview
		if err := fetch.GetJSON(ctx, c.gw, c.httpClient, u, nil, &resp); err == nil {
			m.DiscordMembers = resp.ApproxMembers
		}
	}

	if !queried {
		return domain.SocialMetrics{}, fmt.Errorf("social: no channels configured")
	}
	return m, nil
}
