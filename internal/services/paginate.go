package services

import (
	"context"
	"fmt"

	"github.com/desertthunder/songbridge/internal/shared"
)

// Page is one page of a cursor-paginated listing. An empty Next means there are no more pages.
type Page[T any] struct {
	Items []T
	Next  string
}

// FetchAll calls fetch starting with an empty cursor and follows Next until it is empty.
//
// Items are returned in page order. Empty pages do not stop the loop. The first error aborts.
func FetchAll[T any](ctx context.Context, fetch func(ctx context.Context, cursor string) (Page[T], error)) ([]T, error) {
	var (
		items  []T
		cursor string
		seen   = make(map[string]bool)
	)

	for {
		if err := ctx.Err(); err != nil {
			return items, err
		}

		page, err := fetch(ctx, cursor)
		if err != nil {
			return items, err
		}
		items = append(items, page.Items...)

		if page.Next == "" {
			return items, nil
		}
		if seen[page.Next] {
			return items, fmt.Errorf("%w: %s", shared.ErrPaginationLoop, page.Next)
		}
		seen[page.Next] = true
		cursor = page.Next
	}
}

// FetchUpTo is [FetchAll] with a ceiling of max items. Each call asks for min(pageSize, remaining) items.
//
// The page that crosses the ceiling is kept whole.
func FetchUpTo[T any](ctx context.Context, max, pageSize int, fetch func(ctx context.Context, cursor string, size int) (Page[T], error)) ([]T, error) {
	var (
		items     []T
		cursor    string
		remaining = max
		seen      = make(map[string]bool)
	)

	for remaining > 0 {
		if err := ctx.Err(); err != nil {
			return items, err
		}

		page, err := fetch(ctx, cursor, min(pageSize, remaining))
		if err != nil {
			return items, err
		}
		items = append(items, page.Items...)
		remaining -= len(page.Items)

		if page.Next == "" {
			break
		}
		if seen[page.Next] {
			return items, fmt.Errorf("%w: %s", shared.ErrPaginationLoop, page.Next)
		}
		seen[page.Next] = true
		cursor = page.Next
	}

	return items, nil
}
