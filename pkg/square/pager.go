package square

import (
	"context"
	"fmt"
	"iter"
)

// Page is one response from a cursor-paginated endpoint.
type Page[T any] struct {
	Items  []T
	Cursor string
}

// FetchPage requests the page starting at cursor; "" asks for the first page.
type FetchPage[T any] func(ctx context.Context, cursor string) (Page[T], error)

// Pages lazily walks a cursor-paginated endpoint, yielding one page per step
// until a response carries no cursor. The walk ends at the first error and
// each range over the sequence starts again from the first page.
func Pages[T any](ctx context.Context, fetch FetchPage[T]) iter.Seq2[[]T, error] {
	return func(yield func([]T, error) bool) {
		cursor := ""
		seen := map[string]struct{}{}
		for {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			page, err := fetch(ctx, cursor)
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(page.Items, nil) {
				return
			}
			if page.Cursor == "" {
				return
			}
			if _, dup := seen[page.Cursor]; dup {
				yield(nil, fmt.Errorf("square returned cursor %q twice", page.Cursor))
				return
			}
			seen[page.Cursor] = struct{}{}
			cursor = page.Cursor
		}
	}
}

// Collect drains a page sequence into one slice.
func Collect[T any](pages iter.Seq2[[]T, error]) ([]T, error) {
	var out []T
	for items, err := range pages {
		if err != nil {
			return nil, err
		}
		out = append(out, items...)
	}
	return out, nil
}
