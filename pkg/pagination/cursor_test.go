package pagination

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"testing"

	"github.com/tidwall/gjson"
)

// fakeSource serves a fixed item list newest-first with "before" semantics.
type fakeSource struct {
	items    []string
	requests []url.Values
	failAt   int // 1-based request number that fails, 0 to never fail
}

var errStatus = errors.New("http 500")

func (f *fakeSource) GetJSON(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	f.requests = append(f.requests, params)
	if f.failAt > 0 && len(f.requests) == f.failAt {
		return nil, errStatus
	}

	limit, err := strconv.Atoi(params.Get("limit"))
	if err != nil {
		return nil, fmt.Errorf("bad limit: %w", err)
	}

	start := 0
	if before := params.Get("before"); before != "" {
		for i, id := range f.items {
			if id == before {
				start = i + 1
				break
			}
		}
	}
	end := min(start+limit, len(f.items))

	page := make([]map[string]string, 0, end-start)
	for _, id := range f.items[start:end] {
		page = append(page, map[string]string{"id": id, "endpoint": endpoint})
	}
	return json.Marshal(page)
}

func itemIDs(t *testing.T, raw []json.RawMessage) []string {
	t.Helper()
	ids := make([]string, len(raw))
	for i, item := range raw {
		ids[i] = gjson.GetBytes(item, "id").String()
	}
	return ids
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestCursor_PagesUntilShortPage(t *testing.T) {
	source := &fakeSource{items: []string{"b1", "b2", "b3", "b4", "b5"}}
	cfg := DefaultCursorConfig()
	cfg.PageSize = 2

	cur := NewCursor(source, "/bets", url.Values{"userId": {"abc123"}}, cfg)

	var got []json.RawMessage
	for cur.Next(context.Background()) {
		got = append(got, cur.Item())
	}
	if err := cur.Err(); err != nil {
		t.Fatalf("Err() = %v", err)
	}

	if ids := itemIDs(t, got); !equalStrings(ids, source.items) {
		t.Errorf("items = %v, want %v", ids, source.items)
	}
	if len(source.requests) != 3 {
		t.Fatalf("requests = %d, want 3", len(source.requests))
	}
	if cur.Pages() != 3 {
		t.Errorf("Pages() = %d, want 3", cur.Pages())
	}

	wantBefore := []string{"", "b2", "b4"}
	for i, params := range source.requests {
		if params.Get("limit") != "2" {
			t.Errorf("request %d limit = %q, want 2", i+1, params.Get("limit"))
		}
		if params.Get("userId") != "abc123" {
			t.Errorf("request %d userId = %q, want abc123", i+1, params.Get("userId"))
		}
		if params.Get("before") != wantBefore[i] {
			t.Errorf("request %d before = %q, want %q", i+1, params.Get("before"), wantBefore[i])
		}
	}
}

func TestCursor_EmptyPageStops(t *testing.T) {
	source := &fakeSource{items: []string{"a", "b"}}
	cfg := DefaultCursorConfig()
	cfg.PageSize = 2

	cur := NewCursor(source, "/comments", nil, cfg)
	count := 0
	for cur.Next(context.Background()) {
		count++
	}

	if count != 2 {
		t.Errorf("items = %d, want 2", count)
	}
	// Second page is requested because the first one was full, and is empty.
	if len(source.requests) != 2 {
		t.Errorf("requests = %d, want 2", len(source.requests))
	}
	if cur.Err() != nil {
		t.Errorf("Err() = %v, want nil", cur.Err())
	}
}

func TestCursor_EmptySource(t *testing.T) {
	source := &fakeSource{}
	cur := NewCursor(source, "/txns", nil, DefaultCursorConfig())

	if cur.Next(context.Background()) {
		t.Error("Next() = true on empty source")
	}
	if len(source.requests) != 1 {
		t.Errorf("requests = %d, want 1", len(source.requests))
	}
	if cur.Next(context.Background()) {
		t.Error("Next() after exhaustion = true")
	}
	if len(source.requests) != 1 {
		t.Errorf("requests after exhaustion = %d, want 1", len(source.requests))
	}
}

func TestCursor_MaxPagesCap(t *testing.T) {
	items := make([]string, 10)
	for i := range items {
		items[i] = fmt.Sprintf("t%d", i)
	}
	source := &fakeSource{items: items}

	cfg := CursorConfig{PageSize: 2, MaxPages: 2}
	cur := NewCursor(source, "/txns", nil, cfg)

	count := 0
	for cur.Next(context.Background()) {
		count++
	}

	if count != 4 {
		t.Errorf("items = %d, want 4", count)
	}
	if len(source.requests) != 2 {
		t.Errorf("requests = %d, want 2", len(source.requests))
	}
	if cur.Err() != nil {
		t.Errorf("Err() = %v, want nil (cap is not an error)", cur.Err())
	}
}

func TestCursor_FailingPageAborts(t *testing.T) {
	source := &fakeSource{items: []string{"b1", "b2", "b3", "b4", "b5"}, failAt: 2}
	cfg := DefaultCursorConfig()
	cfg.PageSize = 2

	cur := NewCursor(source, "/bets", nil, cfg)

	var got []json.RawMessage
	for cur.Next(context.Background()) {
		got = append(got, cur.Item())
	}

	if ids := itemIDs(t, got); !equalStrings(ids, []string{"b1", "b2"}) {
		t.Errorf("items = %v, want [b1 b2]", ids)
	}

	err := cur.Err()
	if !errors.Is(err, errStatus) {
		t.Fatalf("Err() = %v, want wrapped %v", err, errStatus)
	}
	var pageErr *PageError
	if !errors.As(err, &pageErr) {
		t.Fatalf("Err() = %T, want *PageError", err)
	}
	if pageErr.Page != 2 || pageErr.Endpoint != "/bets" {
		t.Errorf("PageError = %+v, want page 2 of /bets", pageErr)
	}

	if cur.Next(context.Background()) {
		t.Error("Next() after failure = true")
	}
	if len(source.requests) != 2 {
		t.Errorf("requests = %d, want 2", len(source.requests))
	}
}

func TestCursor_EarlyStopIssuesNoRequests(t *testing.T) {
	source := &fakeSource{items: []string{"a", "b", "c", "d", "e"}}
	cfg := DefaultCursorConfig()
	cfg.PageSize = 2

	cur := NewCursor(source, "/bets", nil, cfg)
	for item, err := range cur.All(context.Background()) {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if gjson.GetBytes(item, "id").String() == "b" {
			break
		}
	}

	if len(source.requests) != 1 {
		t.Errorf("requests = %d, want 1", len(source.requests))
	}
}

func TestCursor_AllYieldsTerminalError(t *testing.T) {
	source := &fakeSource{items: []string{"a", "b", "c"}, failAt: 2}
	cfg := DefaultCursorConfig()
	cfg.PageSize = 2

	var items int
	var errs []error
	for item, err := range NewCursor(source, "/bets", nil, cfg).All(context.Background()) {
		if err != nil {
			errs = append(errs, err)
			if item != nil {
				t.Error("error should be yielded with nil item")
			}
			continue
		}
		items++
	}

	if items != 2 {
		t.Errorf("items = %d, want 2", items)
	}
	if len(errs) != 1 || !errors.Is(errs[0], errStatus) {
		t.Errorf("errors = %v, want one wrapped %v", errs, errStatus)
	}
}

type staticGetter struct {
	bodies [][]byte
	calls  int
}

func (s *staticGetter) GetJSON(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	body := s.bodies[min(s.calls, len(s.bodies)-1)]
	s.calls++
	return body, nil
}

func TestCursor_MissingCursorField(t *testing.T) {
	getter := &staticGetter{bodies: [][]byte{[]byte(`[{"id":"a"},{"name":"no-id"}]`)}}
	cur := NewCursor(getter, "/bets", nil, CursorConfig{PageSize: 2})

	count := 0
	for cur.Next(context.Background()) {
		count++
	}

	if count != 2 {
		t.Errorf("items = %d, want 2 (page is yielded before cursor is read)", count)
	}
	if !errors.Is(cur.Err(), ErrMissingCursor) {
		t.Errorf("Err() = %v, want ErrMissingCursor", cur.Err())
	}
	if getter.calls != 1 {
		t.Errorf("calls = %d, want 1", getter.calls)
	}
}

func TestCursor_CustomCursorField(t *testing.T) {
	var seen []string
	getter := getterFunc(func(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
		seen = append(seen, params.Get("before"))
		if params.Get("before") == "" {
			return []byte(`[{"txnId":"t1"},{"txnId":"t2"}]`), nil
		}
		return []byte(`[{"txnId":"t3"}]`), nil
	})

	cur := NewCursor(getter, "/txns", nil, CursorConfig{PageSize: 2, CursorField: "txnId"})
	count := 0
	for cur.Next(context.Background()) {
		count++
	}

	if count != 3 {
		t.Errorf("items = %d, want 3", count)
	}
	if !equalStrings(seen, []string{"", "t2"}) {
		t.Errorf("before values = %v, want [\"\" t2]", seen)
	}
}

func TestCursor_InvalidPage(t *testing.T) {
	getter := &staticGetter{bodies: [][]byte{[]byte(`{"error":"not a list"}`)}}
	cur := NewCursor(getter, "/bets", nil, DefaultCursorConfig())

	if cur.Next(context.Background()) {
		t.Error("Next() = true for invalid page")
	}
	if !errors.Is(cur.Err(), ErrInvalidPage) {
		t.Errorf("Err() = %v, want ErrInvalidPage", cur.Err())
	}
}

func TestCursor_DoesNotMutateBaseParams(t *testing.T) {
	source := &fakeSource{items: []string{"a"}}
	params := url.Values{"contractId": {"c1"}}

	cur := NewCursor(source, "/comments", params, DefaultCursorConfig())
	for cur.Next(context.Background()) {
	}

	if params.Has("limit") || params.Has("before") {
		t.Errorf("base params mutated: %v", params)
	}
}

func TestCursor_CancelledContext(t *testing.T) {
	source := &fakeSource{items: []string{"a"}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cur := NewCursor(source, "/bets", nil, DefaultCursorConfig())
	if cur.Next(ctx) {
		t.Error("Next() = true with cancelled context")
	}
	if !errors.Is(cur.Err(), context.Canceled) {
		t.Errorf("Err() = %v, want context.Canceled", cur.Err())
	}
	if len(source.requests) != 0 {
		t.Errorf("requests = %d, want 0", len(source.requests))
	}
}

func TestNewCursor_ClampsConfig(t *testing.T) {
	cur := NewCursor(&fakeSource{}, "/bets", nil, CursorConfig{PageSize: 5000})
	if cur.config.PageSize != MaxPageSize {
		t.Errorf("PageSize = %d, want %d", cur.config.PageSize, MaxPageSize)
	}
	if cur.config.MaxPages != 100 {
		t.Errorf("MaxPages = %d, want 100", cur.config.MaxPages)
	}
	if cur.config.CursorField != "id" {
		t.Errorf("CursorField = %q, want id", cur.config.CursorField)
	}
}

type getterFunc func(ctx context.Context, endpoint string, params url.Values) ([]byte, error)

func (f getterFunc) GetJSON(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	return f(ctx, endpoint, params)
}
