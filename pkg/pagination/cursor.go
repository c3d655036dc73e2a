package pagination

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"net/url"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
)

// MaxPageSize is the largest page the Manifold API serves.
const MaxPageSize = 1000

// Getter is the transport the cursor and grouped fetchers need.
// Implementations must report non-success statuses as errors.
type Getter interface {
	GetJSON(ctx context.Context, endpoint string, params url.Values) ([]byte, error)
}

// CursorConfig holds cursor pagination configuration
type CursorConfig struct {
	// PageSize is sent as the "limit" parameter (1..MaxPageSize)
	PageSize int
	// MaxPages caps the number of requests; reaching it ends iteration silently
	MaxPages int
	// CursorField is the gjson path of the item field sent as "before"
	CursorField string
	// Logger for page diagnostics (default: global logger)
	Logger *zerolog.Logger
}

// DefaultCursorConfig returns the defaults used for /bets, /comments and /txns
func DefaultCursorConfig() CursorConfig {
	return CursorConfig{
		PageSize:    MaxPageSize,
		MaxPages:    100,
		CursorField: "id",
	}
}

// Cursor lazily walks a "before"-cursor paginated endpoint.
//
// A page is requested only when the caller asks for an item past the end of
// the current one, so abandoning the loop issues no further requests. The
// walk stops on an empty page, a short page, or after MaxPages requests.
type Cursor struct {
	getter   Getter
	endpoint string
	params   url.Values
	config   CursorConfig
	logger   zerolog.Logger

	before string
	pages  int
	page   []json.RawMessage
	pos    int
	item   json.RawMessage
	done   bool
	err    error
}

// NewCursor creates a cursor over endpoint. params is copied; "limit" and
// "before" are managed by the cursor.
func NewCursor(getter Getter, endpoint string, params url.Values, config CursorConfig) *Cursor {
	if config.PageSize <= 0 || config.PageSize > MaxPageSize {
		config.PageSize = MaxPageSize
	}
	if config.MaxPages <= 0 {
		config.MaxPages = 100
	}
	if config.CursorField == "" {
		config.CursorField = "id"
	}

	logger := log.Logger
	if config.Logger != nil {
		logger = *config.Logger
	}

	base := url.Values{}
	for key, values := range params {
		base[key] = append([]string(nil), values...)
	}

	return &Cursor{
		getter:   getter,
		endpoint: endpoint,
		params:   base,
		config:   config,
		logger: logger.With().
			Str("component", "cursor").
			Str("endpoint", endpoint).
			Logger(),
	}
}

// Next advances to the next item, fetching a page if needed. It returns
// false when iteration is over; check Err to tell exhaustion from failure.
func (c *Cursor) Next(ctx context.Context) bool {
	for {
		if c.pos < len(c.page) {
			c.item = c.page[c.pos]
			c.pos++
			return true
		}
		c.item = nil
		if c.done || c.err != nil {
			return false
		}
		if !c.fetchPage(ctx) {
			return false
		}
	}
}

// Item returns the current item. Valid after Next returned true.
func (c *Cursor) Item() json.RawMessage {
	return c.item
}

// Err returns the error that stopped iteration, if any.
func (c *Cursor) Err() error {
	return c.err
}

// Pages returns the number of pages fetched so far.
func (c *Cursor) Pages() int {
	return c.pages
}

// All returns the remaining items as an iterator. A terminal error is
// yielded once, with a nil item, after the last good item.
func (c *Cursor) All(ctx context.Context) iter.Seq2[json.RawMessage, error] {
	return func(yield func(json.RawMessage, error) bool) {
		for c.Next(ctx) {
			if !yield(c.Item(), nil) {
				return
			}
		}
		if err := c.Err(); err != nil {
			yield(nil, err)
		}
	}
}

// fetchPage requests the next page. It returns true when a non-empty page
// was loaded.
func (c *Cursor) fetchPage(ctx context.Context) bool {
	pageNum := c.pages + 1

	// Previous page was full: continue from its last item.
	if len(c.page) > 0 {
		cursor := gjson.GetBytes(c.page[len(c.page)-1], c.config.CursorField)
		if !cursor.Exists() || cursor.Type == gjson.Null || cursor.String() == "" {
			c.err = &PageError{Endpoint: c.endpoint, Page: pageNum, Err: fmt.Errorf("%w: %q", ErrMissingCursor, c.config.CursorField)}
			return false
		}
		c.before = cursor.String()
	}

	if c.pages >= c.config.MaxPages {
		c.logger.Debug().
			Int("max_pages", c.config.MaxPages).
			Msg("Max pages reached - stopping pagination")
		c.done = true
		return false
	}

	if err := ctx.Err(); err != nil {
		c.err = &PageError{Endpoint: c.endpoint, Page: pageNum, Err: err}
		return false
	}

	params := url.Values{}
	for key, values := range c.params {
		params[key] = values
	}
	params.Set("limit", strconv.Itoa(c.config.PageSize))
	if c.before != "" {
		params.Set("before", c.before)
	}

	body, err := c.getter.GetJSON(ctx, c.endpoint, params)
	if err != nil {
		c.logger.Warn().
			Err(err).
			Int("page", pageNum).
			Msg("Page fetch failed - aborting pagination")
		c.err = &PageError{Endpoint: c.endpoint, Page: pageNum, Err: err}
		return false
	}

	var items []json.RawMessage
	if err := json.Unmarshal(body, &items); err != nil {
		c.err = &PageError{Endpoint: c.endpoint, Page: pageNum, Err: fmt.Errorf("%w: %v", ErrInvalidPage, err)}
		return false
	}

	c.pages++
	PagesFetched.WithLabelValues(c.endpoint).Inc()

	c.logger.Debug().
		Int("page", pageNum).
		Int("items", len(items)).
		Str("before", c.before).
		Msg("Fetched page")

	c.page = items
	c.pos = 0

	if len(items) == 0 {
		c.done = true
		return false
	}
	if len(items) < c.config.PageSize {
		c.done = true
	}
	return true
}
