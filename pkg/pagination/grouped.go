package pagination

import (
	"context"
	"fmt"
)

// DefaultGroupSize is the number of ids the Manifold batch endpoints accept
// per request.
const DefaultGroupSize = 100

// GroupFunc handles one group of ids. index is the zero-based group number.
type GroupFunc func(ctx context.Context, index int, group []string) error

// Chunk splits ids into consecutive groups of at most size ids.
// A non-positive size uses DefaultGroupSize.
func Chunk(ids []string, size int) [][]string {
	if size <= 0 {
		size = DefaultGroupSize
	}
	if len(ids) == 0 {
		return nil
	}

	groups := make([][]string, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		groups = append(groups, ids[start:end:end])
	}
	return groups
}

// FetchGrouped calls fn once per group, sequentially. The first error aborts
// the remaining groups.
func FetchGrouped(ctx context.Context, ids []string, size int, fn GroupFunc) error {
	for i, group := range Chunk(ids, size) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(ctx, i, group); err != nil {
			return fmt.Errorf("group %d (%d ids): %w", i+1, len(group), err)
		}
		GroupsFetched.Inc()
	}
	return nil
}
