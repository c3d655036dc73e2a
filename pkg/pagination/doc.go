// Package pagination drives many independent Manifold API requests to
// completion.
//
// Three strategies are provided, trading request count against latency:
//
//   - BatchFetcher fans a known list of ids out over a bounded worker pool
//     (default 10 workers). A failed item is logged and dropped; it never
//     aborts its siblings.
//   - Cursor walks an endpoint that supports the "before" cursor (/bets,
//     /comments, /txns) one page at a time, lazily. A failed page aborts the
//     walk because it breaks cursor continuity.
//   - FetchGrouped splits ids into fixed-size groups for endpoints that accept
//     many ids per call (/market-probs), one sequential request per group.
//
// Example usage:
//
//	fetcher := pagination.NewBatchFetcher(api.GetMarket, pagination.DefaultConfig())
//	markets := fetcher.FetchAll(ctx, ids)
//
//	cur := pagination.NewCursor(api, "/bets", url.Values{"userId": {"abc123"}}, pagination.DefaultCursorConfig())
//	for cur.Next(ctx) {
//		handle(cur.Item())
//	}
//	if err := cur.Err(); err != nil {
//		return err
//	}
package pagination
