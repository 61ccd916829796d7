// internal/cache/lru.go
//
// Tiny generic LRU used by the session manager to cap the number of live
// form sessions.  Not safe for concurrent use; callers hold their own lock.
package cache

import "container/list"

// LRU is a least-recently-used cache keyed by K.
type LRU[K comparable, V any] struct {
	cap     int
	ll      *list.List
	dict    map[K]*list.Element
	onEvict func(K, V)
}

type pair[K comparable, V any] struct {
	key K
	val V
}

// New returns an LRU with the given capacity.  Panics on cap < 1.
// onEvict, when non-nil, runs for every entry pushed out by capacity
// pressure or RemoveOldest, never for Remove.
func New[K comparable, V any](capacity int, onEvict func(K, V)) *LRU[K, V] {
	if capacity < 1 {
		panic("cache: capacity must be ≥1")
	}
	return &LRU[K, V]{
		cap:     capacity,
		ll:      list.New(),
		dict:    make(map[K]*list.Element, capacity),
		onEvict: onEvict,
	}
}

// Get retrieves a value and marks it MRU.
func (c *LRU[K, V]) Get(key K) (val V, ok bool) {
	if ele, hit := c.dict[key]; hit {
		c.ll.MoveToFront(ele)
		return ele.Value.(pair[K, V]).val, true
	}
	return val, false
}

// Peek retrieves a value without touching recency.
func (c *LRU[K, V]) Peek(key K) (val V, ok bool) {
	if ele, hit := c.dict[key]; hit {
		return ele.Value.(pair[K, V]).val, true
	}
	return val, false
}

// Add inserts or updates a value.
func (c *LRU[K, V]) Add(key K, val V) {
	if ele, hit := c.dict[key]; hit {
		ele.Value = pair[K, V]{key, val}
		c.ll.MoveToFront(ele)
		return
	}
	ele := c.ll.PushFront(pair[K, V]{key, val})
	c.dict[key] = ele
	if c.ll.Len() > c.cap {
		c.RemoveOldest()
	}
}

// Remove deletes key and returns its value.
func (c *LRU[K, V]) Remove(key K) (val V, ok bool) {
	ele, hit := c.dict[key]
	if !hit {
		return val, false
	}
	c.ll.Remove(ele)
	delete(c.dict, key)
	return ele.Value.(pair[K, V]).val, true
}

// Oldest returns the LRU entry without removing it.
func (c *LRU[K, V]) Oldest() (key K, val V, ok bool) {
	last := c.ll.Back()
	if last == nil {
		return key, val, false
	}
	p := last.Value.(pair[K, V])
	return p.key, p.val, true
}

// RemoveOldest evicts the LRU entry, running onEvict.
func (c *LRU[K, V]) RemoveOldest() (key K, val V, ok bool) {
	last := c.ll.Back()
	if last == nil {
		return key, val, false
	}
	c.ll.Remove(last)
	p := last.Value.(pair[K, V])
	delete(c.dict, p.key)
	if c.onEvict != nil {
		c.onEvict(p.key, p.val)
	}
	return p.key, p.val, true
}

// Keys returns keys from most to least recently used.
func (c *LRU[K, V]) Keys() []K {
	out := make([]K, 0, c.ll.Len())
	for e := c.ll.Front(); e != nil; e = e.Next() {
		out = append(out, e.Value.(pair[K, V]).key)
	}
	return out
}

// Len reports current size.
func (c *LRU[K, V]) Len() int { return c.ll.Len() }
