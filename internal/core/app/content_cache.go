package app

import "sync"

// ContentCache holds the last observed text per file id. It is the diff
// baseline for the next change to that file and nothing else.
type ContentCache struct {
	mu    sync.RWMutex
	texts map[string]string
}

func NewContentCache() *ContentCache {
	return &ContentCache{texts: make(map[string]string)}
}

func (c *ContentCache) Get(id string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	text, ok := c.texts[id]
	return text, ok
}

func (c *ContentCache) Set(id, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.texts[id] = text
}

func (c *ContentCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.texts)
}
