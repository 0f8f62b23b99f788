package sampler

import "github.com/pkg/errors"

// ErrEmptyIterator is returned by NewCycle for an empty sequence.
var ErrEmptyIterator = errors.New("sampler: cyclic iterator over empty sequence")

// Cycle yields the elements of a fixed sequence in order, forever.
type Cycle[T any] struct {
	items []T
	pos   int
}

// NewCycle copies items into a new iterator positioned at the first element.
func NewCycle[T any](items []T) (*Cycle[T], error) {
	if len(items) == 0 {
		return nil, ErrEmptyIterator
	}
	c := &Cycle[T]{items: make([]T, len(items))}
	copy(c.items, items)
	return c, nil
}

// Next returns the current element and advances, wrapping after the last.
func (c *Cycle[T]) Next() T {
	v := c.items[c.pos]
	c.pos = (c.pos + 1) % len(c.items)
	return v
}

// Reset restarts the traversal at the first element.
func (c *Cycle[T]) Reset() {
	c.pos = 0
}

// Len returns the period of the cycle.
func (c *Cycle[T]) Len() int {
	return len(c.items)
}
