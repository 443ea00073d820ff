package capture

import "sync"

// lruCache is a thread-safe least recently used cache
type lruCache[V any] struct {
	mutex    sync.Mutex
	capacity int
	items    map[string]*cacheNode[V]
	head     *cacheNode[V] // most recently used
	tail     *cacheNode[V] // least recently used
	hits     int64
	misses   int64
}

type cacheNode[V any] struct {
	key   string
	value V
	prev  *cacheNode[V]
	next  *cacheNode[V]
}

func newLRUCache[V any](capacity int) *lruCache[V] {
	if capacity <= 0 {
		capacity = 16
	}
	c := &lruCache[V]{
		capacity: capacity,
		items:    make(map[string]*cacheNode[V]),
		head:     &cacheNode[V]{},
		tail:     &cacheNode[V]{},
	}
	c.head.next = c.tail
	c.tail.prev = c.head
	return c
}

func (c *lruCache[V]) get(key string) (V, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if node, ok := c.items[key]; ok {
		c.unlink(node)
		c.pushFront(node)
		c.hits++
		return node.value, true
	}
	c.misses++
	var zero V
	return zero, false
}

func (c *lruCache[V]) put(key string, value V) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if node, ok := c.items[key]; ok {
		node.value = value
		c.unlink(node)
		c.pushFront(node)
		return
	}

	node := &cacheNode[V]{key: key, value: value}
	c.pushFront(node)
	c.items[key] = node

	if len(c.items) > c.capacity {
		lru := c.tail.prev
		c.unlink(lru)
		delete(c.items, lru.key)
	}
}

func (c *lruCache[V]) len() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return len(c.items)
}

// CacheStats reports image cache effectiveness
type CacheStats struct {
	Hits     int64 `json:"hits"`
	Misses   int64 `json:"misses"`
	Size     int   `json:"current_size"`
	Capacity int   `json:"max_capacity"`
}

func (c *lruCache[V]) stats() CacheStats {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return CacheStats{Hits: c.hits, Misses: c.misses, Size: len(c.items), Capacity: c.capacity}
}

func (c *lruCache[V]) pushFront(node *cacheNode[V]) {
	node.prev = c.head
	node.next = c.head.next
	c.head.next.prev = node
	c.head.next = node
}

func (c *lruCache[V]) unlink(node *cacheNode[V]) {
	node.prev.next = node.next
	node.next.prev = node.prev
}
