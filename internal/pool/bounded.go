package pool

import "sort"

// BoundedOrderedPool is a capacity-bounded collection kept in ascending key
// order. Each item's key is read once, on insertion; later changes to the
// item do not reorder it. Items with equal keys keep insertion order, so the
// oldest of several minimum-key items is evicted first.
type BoundedOrderedPool[T any] struct {
	capacity int
	key      func(T) float64
	entries  []entry[T]
}

type entry[T any] struct {
	key  float64
	item T
}

// NewBoundedOrderedPool creates a pool holding at most capacity items ordered by key.
func NewBoundedOrderedPool[T any](capacity int, key func(T) float64) *BoundedOrderedPool[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &BoundedOrderedPool[T]{
		capacity: capacity,
		key:      key,
		entries:  make([]entry[T], 0, capacity),
	}
}

// Add inserts item. When the pool is full the minimum-key item is removed
// first and returned with evicted set.
func (p *BoundedOrderedPool[T]) Add(item T) (removed T, evicted bool) {
	if len(p.entries) >= p.capacity {
		removed, evicted = p.PopMin()
	}

	k := p.key(item)
	// Upper bound: after every entry with an equal key.
	i := sort.Search(len(p.entries), func(i int) bool { return p.entries[i].key > k })
	p.entries = append(p.entries, entry[T]{})
	copy(p.entries[i+1:], p.entries[i:])
	p.entries[i] = entry[T]{key: k, item: item}
	return removed, evicted
}

// PopMin removes and returns the minimum-key item.
func (p *BoundedOrderedPool[T]) PopMin() (T, bool) {
	var zero T
	if len(p.entries) == 0 {
		return zero, false
	}
	item := p.entries[0].item
	last := len(p.entries) - 1
	copy(p.entries, p.entries[1:])
	p.entries[last] = entry[T]{}
	p.entries = p.entries[:last]
	return item, true
}

// Min returns the minimum-key item without removing it.
func (p *BoundedOrderedPool[T]) Min() (T, bool) {
	var zero T
	if len(p.entries) == 0 {
		return zero, false
	}
	return p.entries[0].item, true
}

// Len returns the number of items.
func (p *BoundedOrderedPool[T]) Len() int { return len(p.entries) }

// Cap returns the capacity.
func (p *BoundedOrderedPool[T]) Cap() int { return p.capacity }

// Full reports whether the next Add will evict.
func (p *BoundedOrderedPool[T]) Full() bool { return len(p.entries) >= p.capacity }

// Items returns the items in ascending key order.
func (p *BoundedOrderedPool[T]) Items() []T {
	out := make([]T, len(p.entries))
	for i, e := range p.entries {
		out[i] = e.item
	}
	return out
}

// Keys returns the insertion-time keys in ascending order.
func (p *BoundedOrderedPool[T]) Keys() []float64 {
	out := make([]float64, len(p.entries))
	for i, e := range p.entries {
		out[i] = e.key
	}
	return out
}
