// Package testutil provides testing utilities for the Manifold client.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

// APIPrefix is the version path the mock serves under, matching the real API.
const APIPrefix = "/v0"

// MockResponse defines the behavior for a mock endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockManifold is a configurable mock Manifold API server for testing.
type MockManifold struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]http.HandlerFunc

	// Tracking
	requestCount int
	pathCounts   map[string]int
	queries      map[string][]url.Values
	lastHeader   http.Header
}

// NewMockManifold creates a new mock server. Handlers are registered by
// path relative to APIPrefix ("/market/abc").
func NewMockManifold() *MockManifold {
	mock := &MockManifold{
		handlers:   make(map[string]http.HandlerFunc),
		pathCounts: make(map[string]int),
		queries:    make(map[string][]url.Values),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, APIPrefix)

		mock.mu.Lock()
		mock.requestCount++
		mock.pathCounts[path]++
		mock.queries[path] = append(mock.queries[path], r.URL.Query())
		mock.lastHeader = r.Header.Clone()
		handler, exists := mock.handlers[path]
		mock.mu.Unlock()

		if exists {
			handler(w, r)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message":"not found"}`))
	}))

	return mock
}

// URL returns the API base URL of the mock server, including APIPrefix.
func (m *MockManifold) URL() string {
	return m.server.URL + APIPrefix
}

// Close shuts down the mock server.
func (m *MockManifold) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockManifold) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount = 0
	m.pathCounts = make(map[string]int)
	m.queries = make(map[string][]url.Values)
	m.lastHeader = nil
}

// SetHandler sets a custom handler for a specific path.
func (m *MockManifold) SetHandler(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a simple response for a path.
func (m *MockManifold) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			select {
			case <-time.After(resp.Delay):
			case <-r.Context().Done():
				return
			}
		}

		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}

		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// SetJSON configures a 200 response with v encoded as JSON.
func (m *MockManifold) SetJSON(path string, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	m.SetResponse(path, NewJSONResponse(string(body)))
}

// SetCollection serves items as a "before"-cursor paginated collection
// ordered newest first. limit caps the page; before is the id of the last
// item already seen. An unknown before yields an empty page.
func (m *MockManifold) SetCollection(path string, items []map[string]any) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()

		start := 0
		if before := query.Get("before"); before != "" {
			start = len(items)
			for i, item := range items {
				if id, _ := item["id"].(string); id == before {
					start = i + 1
					break
				}
			}
		}

		limit := len(items)
		if raw := query.Get("limit"); raw != "" {
			if n, err := strconv.Atoi(raw); err == nil && n > 0 {
				limit = n
			}
		}

		end := min(start+limit, len(items))
		page := items[start:end]

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(page)
	})
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockManifold) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requestCount
}

// GetPathCount returns the number of requests made to path.
func (m *MockManifold) GetPathCount(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pathCounts[path]
}

// GetQueries returns the query parameters of every request made to path,
// in arrival order.
func (m *MockManifold) GetQueries(path string) []url.Values {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]url.Values(nil), m.queries[path]...)
}

// LastRequestHeader returns the headers of the most recent request.
func (m *MockManifold) LastRequestHeader() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastHeader
}

// NewJSONResponse creates a standard 200 OK JSON response.
func NewJSONResponse(data string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       data,
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
	}
}

// NewNotFoundResponse creates a 404 Not Found response.
func NewNotFoundResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusNotFound,
		Body:       `{"message":"Contract not found"}`,
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"message":"Rate limit exceeded"}`,
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"message":"Internal server error"}`,
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
	}
}
