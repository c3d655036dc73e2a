package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/Sternrassler/manifold-client/pkg/pagination"
)

// GetMarket fetches a single market by ID.
func (c *Client) GetMarket(ctx context.Context, id string) (*Market, error) {
	var market Market
	if err := c.getResource(ctx, "/market/", id, &market); err != nil {
		return nil, err
	}
	return &market, nil
}

// GetUser fetches a single user by username.
func (c *Client) GetUser(ctx context.Context, username string) (*User, error) {
	var user User
	if err := c.getResource(ctx, "/user/", username, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// FetchMarkets fetches markets concurrently. Failed IDs are logged and
// omitted; the result is in completion order.
func (c *Client) FetchMarkets(ctx context.Context, ids []string) []*Market {
	return c.marketFetcher().FetchAll(ctx, ids)
}

// FetchMarketsWithReport is FetchMarkets with the per-ID failures returned.
func (c *Client) FetchMarketsWithReport(ctx context.Context, ids []string) pagination.Report[*Market] {
	return c.marketFetcher().FetchAllWithReport(ctx, ids)
}

// FetchUsers fetches users concurrently. Failed usernames are logged and
// omitted; the result is in completion order.
func (c *Client) FetchUsers(ctx context.Context, usernames []string) []*User {
	return c.userFetcher().FetchAll(ctx, usernames)
}

// FetchUsersWithReport is FetchUsers with the per-username failures returned.
func (c *Client) FetchUsersWithReport(ctx context.Context, usernames []string) pagination.Report[*User] {
	return c.userFetcher().FetchAllWithReport(ctx, usernames)
}

func (c *Client) marketFetcher() *pagination.BatchFetcher[*Market] {
	return pagination.NewBatchFetcher(c.GetMarket, c.batchConfig())
}

func (c *Client) userFetcher() *pagination.BatchFetcher[*User] {
	return pagination.NewBatchFetcher(c.GetUser, c.batchConfig())
}

func (c *Client) batchConfig() pagination.Config {
	return pagination.Config{
		MaxConcurrency: c.config.MaxConcurrency,
		Timeout:        c.config.Timeout,
		Logger:         &c.logger,
	}
}

// getResource fetches prefix+id and decodes the object into out.
func (c *Client) getResource(ctx context.Context, prefix, id string, out any) error {
	if id == "" {
		return fmt.Errorf("%s: %w", prefix, ErrEmptyResource)
	}

	endpoint := prefix + url.PathEscape(id)
	body, err := c.GetJSON(ctx, endpoint, nil)
	if err != nil {
		return err
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) || bytes.Equal(trimmed, []byte("{}")) {
		return fmt.Errorf("%s: %w", endpoint, ErrEmptyResource)
	}

	if err := json.Unmarshal(trimmed, out); err != nil {
		return fmt.Errorf("%s: %w: %v", endpoint, ErrUnexpectedResponse, err)
	}
	return nil
}
