package client

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"net/url"

	"github.com/Sternrassler/manifold-client/pkg/pagination"
)

// Paginate returns a cursor over a "before"-paginated endpoint such as
// /bets, /comments or /txns. A zero-value config field takes its default.
func (c *Client) Paginate(endpoint string, params url.Values, config pagination.CursorConfig) *pagination.Cursor {
	if config.Logger == nil {
		config.Logger = &c.logger
	}
	return pagination.NewCursor(c, endpoint, params, config)
}

// Bets iterates /bets. Filter with params such as userId, contractId or
// contractSlug.
func (c *Client) Bets(ctx context.Context, params url.Values) iter.Seq2[*Bet, error] {
	return decodeItems[Bet](ctx, c.Paginate("/bets", params, pagination.DefaultCursorConfig()))
}

// Comments iterates /comments. Filter with contractId, contractSlug or
// userId.
func (c *Client) Comments(ctx context.Context, params url.Values) iter.Seq2[*Comment, error] {
	return decodeItems[Comment](ctx, c.Paginate("/comments", params, pagination.DefaultCursorConfig()))
}

// Txns iterates /txns.
func (c *Client) Txns(ctx context.Context, params url.Values) iter.Seq2[*Txn, error] {
	return decodeItems[Txn](ctx, c.Paginate("/txns", params, pagination.DefaultCursorConfig()))
}

// CommentTexts iterates /comments and yields the plain text of each
// comment body. Comments with an empty body yield "".
func (c *Client) CommentTexts(ctx context.Context, params url.Values) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for comment, err := range c.Comments(ctx, params) {
			if err != nil {
				yield("", err)
				return
			}
			if !yield(comment.PlainText(), nil) {
				return
			}
		}
	}
}

// decodeItems adapts a cursor into a typed sequence. A decode failure ends
// the sequence with ErrUnexpectedResponse.
func decodeItems[T any](ctx context.Context, cursor *pagination.Cursor) iter.Seq2[*T, error] {
	return func(yield func(*T, error) bool) {
		for raw, err := range cursor.All(ctx) {
			if err != nil {
				yield(nil, err)
				return
			}
			item := new(T)
			if err := json.Unmarshal(raw, item); err != nil {
				yield(nil, fmt.Errorf("%w: %v", ErrUnexpectedResponse, err))
				return
			}
			if !yield(item, nil) {
				return
			}
		}
	}
}
