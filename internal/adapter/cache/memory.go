package cache

import (
	"context"
	"slices"
	"sync"

	"github.com/couchcryptid/almanac-etl-service/internal/domain"
)

// Memory is a thread-safe in-process LRU implementing domain.Cache.
type Memory struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   string
	value []byte
	prev  *entry
	next  *entry
}

// NewMemory creates an LRU holding at most maxEntries values.
func NewMemory(maxEntries int) *Memory {
	return &Memory{
		maxEntries: max(maxEntries, 1),
		entries:    make(map[string]*entry),
	}
}

// Get returns a copy of the value stored under key, or domain.ErrCacheMiss.
func (c *Memory) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, domain.ErrCacheMiss
	}
	c.moveToFront(e)
	return slices.Clone(e.value), nil
}

// Set stores a copy of value under key, evicting the least recently used entry when full.
func (c *Memory) Set(_ context.Context, key string, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = slices.Clone(value)
		c.moveToFront(e)
		return nil
	}

	e := &entry{key: key, value: slices.Clone(value)}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
	return nil
}

// Len reports the number of cached entries.
func (c *Memory) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Memory) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.unlink(e)
	c.addToFront(e)
}

func (c *Memory) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *Memory) unlink(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *Memory) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.unlink(c.tail)
}
