// Package session holds what accumulates across runs: the cumulative
// results, the operator's cart and named groups. Everything is keyed by
// item fingerprint, so merging the same items again changes nothing.
//
// Not goroutine-safe. The controller owns the session and is the only
// writer; the crawl worker never touches it.
package session

import "github.com/abelbrown/rankscrape/internal/model"

// Collection is an insertion-ordered set of items keyed by Hash.
type Collection struct {
	items []model.Item
	index map[string]int
}

// NewCollection builds a collection, dropping duplicate hashes.
func NewCollection(items ...model.Item) *Collection {
	c := &Collection{index: make(map[string]int)}
	c.Merge(items)
	return c
}

// Merge appends items whose hash is not yet present and returns how many
// were added. Merging a collection into itself adds nothing.
func (c *Collection) Merge(items []model.Item) int {
	added := 0
	for _, it := range items {
		if _, ok := c.index[it.Hash]; ok {
			continue
		}
		c.index[it.Hash] = len(c.items)
		c.items = append(c.items, it)
		added++
	}
	return added
}

// Items returns a copy in insertion order.
func (c *Collection) Items() []model.Item {
	out := make([]model.Item, len(c.items))
	copy(out, c.items)
	return out
}

// Len is the number of items.
func (c *Collection) Len() int { return len(c.items) }

// Contains reports whether hash is present.
func (c *Collection) Contains(hash string) bool {
	_, ok := c.index[hash]
	return ok
}

// Get returns the item with hash.
func (c *Collection) Get(hash string) (model.Item, bool) {
	i, ok := c.index[hash]
	if !ok {
		return model.Item{}, false
	}
	return c.items[i], true
}

// Select returns the items for hashes, in the order given, skipping unknown ones.
func (c *Collection) Select(hashes []string) []model.Item {
	out := make([]model.Item, 0, len(hashes))
	for _, h := range hashes {
		if it, ok := c.Get(h); ok {
			out = append(out, it)
		}
	}
	return out
}

// Remove deletes hashes and returns how many were present.
func (c *Collection) Remove(hashes ...string) int {
	drop := make(map[string]bool, len(hashes))
	for _, h := range hashes {
		if c.Contains(h) {
			drop[h] = true
		}
	}
	if len(drop) == 0 {
		return 0
	}
	kept := c.items[:0]
	for _, it := range c.items {
		if !drop[it.Hash] {
			kept = append(kept, it)
		}
	}
	clear(c.items[len(kept):])
	c.items = kept
	c.reindex()
	return len(drop)
}

// Clear empties the collection.
func (c *Collection) Clear() {
	c.items = nil
	c.index = make(map[string]int)
}

func (c *Collection) reindex() {
	c.index = make(map[string]int, len(c.items))
	for i, it := range c.items {
		c.index[it.Hash] = i
	}
}
