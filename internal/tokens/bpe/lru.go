package bpe

import "sync"

type lruNode struct {
	key   string
	value []TokenID
	next  *lruNode
	prev  *lruNode
}

// LRUCache memoizes encodings by input text. It is safe for concurrent use.
// A nil *LRUCache is a valid, always-empty cache.
type LRUCache struct {
	mu    sync.Mutex
	size  int
	nodes map[string]*lruNode
	head  *lruNode
	tail  *lruNode
}

// NewLRUCache returns a cache holding at most size entries, or nil when size
// is not positive.
func NewLRUCache(size int) *LRUCache {
	if size <= 0 {
		return nil
	}
	return &LRUCache{
		size:  size,
		nodes: map[string]*lruNode{},
	}
}

// Get returns a copy of the cached value for key.
func (c *LRUCache) Get(key string) ([]TokenID, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	node, ok := c.nodes[key]
	if !ok {
		return nil, false
	}
	c.moveToHead(node)
	return append([]TokenID(nil), node.value...), true
}

// Set stores a copy of value under key, evicting the least recently used entry
// when full.
func (c *LRUCache) Set(key string, value []TokenID) {
	if c == nil {
		return
	}
	value = append([]TokenID(nil), value...)

	c.mu.Lock()
	defer c.mu.Unlock()

	if node, ok := c.nodes[key]; ok {
		node.value = value
		c.moveToHead(node)
		return
	}

	node := &lruNode{
		key:   key,
		value: value,
	}
	c.nodes[key] = node
	c.addNode(node)
	if len(c.nodes) > c.size {
		delete(c.nodes, c.tail.key)
		c.removeNode(c.tail)
	}
}

// Len returns the number of cached entries.
func (c *LRUCache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.nodes)
}

func (c *LRUCache) moveToHead(node *lruNode) {
	c.removeNode(node)
	node.prev = nil
	node.next = nil
	c.addNode(node)
}

func (c *LRUCache) addNode(node *lruNode) {
	if c.head != nil {
		c.head.prev = node
		node.next = c.head
	}
	if c.tail == nil {
		c.tail = node
	}
	c.head = node
}

func (c *LRUCache) removeNode(node *lruNode) {
	if node.prev != nil {
		node.prev.next = node.next
	} else {
		c.head = node.next
	}
	if node.next != nil {
		node.next.prev = node.prev
	} else {
		c.tail = node.prev
	}
}
