package pagination

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config holds batch fetcher configuration
type Config struct {
	// MaxConcurrency is the number of parallel workers.
	// Manifold allows 500 req/min per IP, 10 workers stay well inside it.
	MaxConcurrency int
	// Timeout per item fetch
	Timeout time.Duration
	// Logger receives per-item failure diagnostics (default: global logger)
	Logger *zerolog.Logger
}

// DefaultConfig returns safe default configuration for the Manifold API
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 10,
		Timeout:        30 * time.Second,
	}
}

// FetchFunc retrieves a single resource by id.
type FetchFunc[T any] func(ctx context.Context, id string) (T, error)

// Failure records an item whose fetch failed.
type Failure struct {
	ID  string
	Err error
}

// Report is the outcome of a batch fetch.
type Report[T any] struct {
	// Items holds successful results in arrival order.
	Items []T
	// Failures holds one entry per failed id, in arrival order.
	Failures []Failure
}

// itemResult represents the result of fetching a single item
type itemResult[T any] struct {
	ID    string
	Value T
	Error error
}

// BatchFetcher fetches many independent items in parallel
type BatchFetcher[T any] struct {
	fetch  FetchFunc[T]
	config Config
	logger zerolog.Logger
}

// NewBatchFetcher creates a new batch fetcher
func NewBatchFetcher[T any](fetch FetchFunc[T], config Config) *BatchFetcher[T] {
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 10
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	logger := log.Logger
	if config.Logger != nil {
		logger = *config.Logger
	}

	return &BatchFetcher[T]{
		fetch:  fetch,
		config: config,
		logger: logger.With().Str("component", "batch-fetcher").Logger(),
	}
}

// FetchAll fetches every id and returns the successful results.
// Order follows completion, not input order. Failed items are logged and
// omitted.
func (bf *BatchFetcher[T]) FetchAll(ctx context.Context, ids []string) []T {
	return bf.FetchAllWithReport(ctx, ids).Items
}

// FetchAllWithReport behaves like FetchAll and also returns the failures.
func (bf *BatchFetcher[T]) FetchAllWithReport(ctx context.Context, ids []string) Report[T] {
	var report Report[T]
	if len(ids) == 0 {
		return report
	}

	start := time.Now()
	defer func() {
		BatchDuration.Observe(time.Since(start).Seconds())
	}()

	workers := bf.config.MaxConcurrency
	if workers > len(ids) {
		workers = len(ids)
	}

	bf.logger.Debug().
		Int("items", len(ids)).
		Int("workers", workers).
		Msg("Starting batch fetch")

	// Create channels
	idQueue := make(chan string, len(ids))
	results := make(chan itemResult[T], len(ids))

	for _, id := range ids {
		idQueue <- id
	}
	close(idQueue)

	// Start worker pool
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go bf.worker(ctx, idQueue, results, &wg, i)
	}

	// Close results channel when all workers done
	go func() {
		wg.Wait()
		close(results)
	}()

	// Collect results
	for result := range results {
		if result.Error != nil {
			BatchItemsTotal.WithLabelValues("failed").Inc()
			bf.logger.Warn().
				Err(result.Error).
				Str("id", result.ID).
				Msg("Item fetch failed")
			report.Failures = append(report.Failures, Failure{ID: result.ID, Err: result.Error})
			continue
		}

		BatchItemsTotal.WithLabelValues("ok").Inc()
		report.Items = append(report.Items, result.Value)
	}

	level := zerolog.InfoLevel
	if len(report.Failures) > 0 {
		level = zerolog.WarnLevel
	}
	bf.logger.WithLevel(level).
		Int("requested", len(ids)).
		Int("fetched", len(report.Items)).
		Int("failed", len(report.Failures)).
		Dur("duration", time.Since(start)).
		Msg("Batch fetch complete")

	return report
}

// worker processes ids from the queue until it is drained
func (bf *BatchFetcher[T]) worker(ctx context.Context, idQueue <-chan string, results chan<- itemResult[T], wg *sync.WaitGroup, workerID int) {
	defer wg.Done()
	processed := 0

	for id := range idQueue {
		results <- bf.fetchOne(ctx, id)
		processed++
	}

	bf.logger.Debug().
		Int("worker_id", workerID).
		Int("items_processed", processed).
		Msg("Worker completed")
}

// fetchOne runs a single fetch with its own timeout. A panic in the fetch
// function is reported as that item's failure.
func (bf *BatchFetcher[T]) fetchOne(ctx context.Context, id string) (result itemResult[T]) {
	result.ID = id

	itemCtx, cancel := context.WithTimeout(ctx, bf.config.Timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			result.Error = &panicError{value: r}
		}
	}()

	result.Value, result.Error = bf.fetch(itemCtx, id)
	return result
}
