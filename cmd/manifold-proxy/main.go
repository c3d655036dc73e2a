package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/Sternrassler/manifold-client/pkg/client"
	"github.com/Sternrassler/manifold-client/pkg/logging"
	"github.com/Sternrassler/manifold-client/pkg/metrics"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// maxCommentTexts caps /comments/text responses.
const maxCommentTexts = 1000

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "path to YAML config file")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.Log.Level),
		Pretty: cfg.Log.Pretty,
		Output: os.Stderr,
	})
	logger := logging.NewLogger("proxy")

	clientCfg := cfg.clientConfig()

	// Redis is optional; without it the request budget is not shared
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr: cfg.RedisAddr,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logger.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("Failed to connect to Redis")
		}
		logger.Info().Str("addr", cfg.RedisAddr).Msg("Connected to Redis")
		clientCfg.Redis = redisClient
		defer redisClient.Close()
	}

	manifoldClient, err := client.New(clientCfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create Manifold client")
	}
	defer manifoldClient.Close()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newRouter(manifoldClient, redisClient, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info().
			Str("addr", srv.Addr).
			Str("user_agent", clientCfg.UserAgent).
			Str("base_url", clientCfg.BaseURL).
			Msg("Starting Manifold proxy server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Server failed")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Shutdown failed")
	}
}

// newRouter wires all proxy endpoints.
func newRouter(manifoldClient *client.Client, redisClient *redis.Client, logger zerolog.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", healthHandler)
	mux.HandleFunc("GET /ready", readyHandler(redisClient))
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /markets", marketsHandler(manifoldClient))
	mux.HandleFunc("GET /users", usersHandler(manifoldClient))
	mux.HandleFunc("GET /market-probs", marketProbsHandler(manifoldClient))
	mux.HandleFunc("GET /comments/text", commentTextsHandler(manifoldClient))
	return requestIDMiddleware(logger, mux)
}

type ctxKey struct{}

// requestIDMiddleware tags every request with an X-Request-ID, reusing the
// caller's when present, and logs completion.
func requestIDMiddleware(logger zerolog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)

		reqLogger := logging.WithRequestID(logger, requestID)
		start := time.Now()

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, reqLogger)))

		reqLogger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("duration", time.Since(start)).
			Msg("Request handled")
	})
}

// requestLogger returns the request-scoped logger set by requestIDMiddleware.
func requestLogger(r *http.Request) zerolog.Logger {
	if logger, ok := r.Context().Value(ctxKey{}).(zerolog.Logger); ok {
		return logger
	}
	return logging.NewLogger("proxy")
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

// readyHandler reports ready when Redis (if configured) answers a ping.
func readyHandler(redisClient *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if redisClient != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := redisClient.Ping(ctx).Err(); err != nil {
				http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK")
	}
}

// batchResponse is the body of /markets and /users.
type batchResponse struct {
	Items  []json.RawMessage `json:"items"`
	Failed []string          `json:"failed"`
}

func marketsHandler(manifoldClient *client.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ids := splitList(r.URL.Query().Get("ids"))
		if len(ids) == 0 {
			http.Error(w, "ids is required", http.StatusBadRequest)
			return
		}

		report := manifoldClient.FetchMarketsWithReport(r.Context(), ids)

		resp := batchResponse{Items: make([]json.RawMessage, 0, len(report.Items)), Failed: []string{}}
		for _, market := range report.Items {
			resp.Items = append(resp.Items, market.Raw)
		}
		for _, f := range report.Failures {
			resp.Failed = append(resp.Failed, f.ID)
		}
		writeJSON(w, r, http.StatusOK, resp)
	}
}

func usersHandler(manifoldClient *client.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		usernames := splitList(r.URL.Query().Get("usernames"))
		if len(usernames) == 0 {
			http.Error(w, "usernames is required", http.StatusBadRequest)
			return
		}

		report := manifoldClient.FetchUsersWithReport(r.Context(), usernames)

		resp := batchResponse{Items: make([]json.RawMessage, 0, len(report.Items)), Failed: []string{}}
		for _, user := range report.Items {
			resp.Items = append(resp.Items, user.Raw)
		}
		for _, f := range report.Failures {
			resp.Failed = append(resp.Failed, f.ID)
		}
		writeJSON(w, r, http.StatusOK, resp)
	}
}

// marketProbsHandler maps each id to a number (binary) or an answer map.
func marketProbsHandler(manifoldClient *client.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ids := splitList(r.URL.Query().Get("ids"))
		if len(ids) == 0 {
			http.Error(w, "ids is required", http.StatusBadRequest)
			return
		}

		probs, err := manifoldClient.MarketProbs(r.Context(), ids)
		if err != nil {
			writeUpstreamError(w, r, err)
			return
		}

		resp := make(map[string]any, len(probs))
		for id, p := range probs {
			if p.IsMultipleChoice() {
				resp[id] = p.AnswerProbs
			} else {
				resp[id] = p.Prob
			}
		}
		writeJSON(w, r, http.StatusOK, resp)
	}
}

// commentTextsHandler returns the plain text of up to limit comments.
func commentTextsHandler(manifoldClient *client.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()

		limit := 100
		if raw := query.Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 || n > maxCommentTexts {
				http.Error(w, fmt.Sprintf("limit must be 1..%d", maxCommentTexts), http.StatusBadRequest)
				return
			}
			limit = n
		}

		params := url.Values{}
		for _, key := range []string{"contractId", "contractSlug", "userId"} {
			if v := query.Get(key); v != "" {
				params.Set(key, v)
			}
		}
		if len(params) == 0 {
			http.Error(w, "contractId, contractSlug or userId is required", http.StatusBadRequest)
			return
		}

		texts := make([]string, 0, limit)
		for text, err := range manifoldClient.CommentTexts(r.Context(), params) {
			if err != nil {
				writeUpstreamError(w, r, err)
				return
			}
			texts = append(texts, text)
			if len(texts) == limit {
				break
			}
		}
		writeJSON(w, r, http.StatusOK, texts)
	}
}

// writeUpstreamError maps client errors to proxy statuses.
func writeUpstreamError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusBadGateway
	switch {
	case errors.Is(err, client.ErrRequestBlocked):
		status = http.StatusTooManyRequests
	case client.IsNotFound(err):
		status = http.StatusNotFound
	}

	logger := requestLogger(r)
	logger.Warn().Err(err).Int("status", status).Msg("Upstream request failed")
	http.Error(w, fmt.Sprintf("manifold request failed: %v", err), status)
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger := requestLogger(r)
		logger.Error().Err(err).Msg("Failed to write response")
	}
}

// splitList splits a comma-separated query value, dropping blanks.
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
