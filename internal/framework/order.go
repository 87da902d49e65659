package framework

import (
	"fmt"
	"sort"
)

// nextOrder returns the order for an item appended after items: one past
// the current maximum, or 0 for an empty level.
func nextOrder[T any](items []T, order func(*T) *int) int {
	next := 0
	for i := range items {
		if o := *order(&items[i]); o+1 > next {
			next = o + 1
		}
	}
	return next
}

// reorder moves items[target] to newOrder. It sits before every sibling
// that had an order >= newOrder, and later siblings are bumped only as far
// as needed to keep the orders strictly increasing.
func reorder[T any](items []T, target, newOrder int, order func(*T) *int) error {
	if newOrder < 0 {
		return fmt.Errorf("order must be >= 0, got %d", newOrder)
	}
	others := make([]int, 0, len(items)-1)
	for i := range items {
		if i != target {
			others = append(others, i)
		}
	}
	sort.SliceStable(others, func(a, b int) bool {
		return *order(&items[others[a]]) < *order(&items[others[b]])
	})

	seq := make([]int, 0, len(items))
	placed := false
	for _, i := range others {
		if !placed && *order(&items[i]) >= newOrder {
			seq = append(seq, target)
			placed = true
		}
		seq = append(seq, i)
	}
	if !placed {
		seq = append(seq, target)
	}

	*order(&items[target]) = newOrder
	prev := -1
	for _, i := range seq {
		o := order(&items[i])
		if *o <= prev {
			*o = prev + 1
		}
		prev = *o
	}
	return nil
}

// distinctOrders reports the first order value shared by two items, if any.
func distinctOrders[T any](items []T, order func(*T) *int) (int, bool) {
	seen := make(map[int]bool, len(items))
	for i := range items {
		o := *order(&items[i])
		if seen[o] {
			return o, false
		}
		seen[o] = true
	}
	return 0, true
}
