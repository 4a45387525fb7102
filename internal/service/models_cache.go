package service

import (
	"sync"
	"time"

	"github.com/set-night/chatcreate/internal/domain"
)

type cachedModels struct {
	models   []string
	cachedAt time.Time
}

// ModelsCache keeps the last successful listing per asset class.
type ModelsCache struct {
	mu      sync.RWMutex
	entries map[domain.AssetClass]cachedModels
	ttl     time.Duration
}

func NewModelsCache(ttl time.Duration) *ModelsCache {
	return &ModelsCache{ttl: ttl, entries: make(map[domain.AssetClass]cachedModels)}
}

func (c *ModelsCache) Get(class domain.AssetClass) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[class]
	if !ok || c.ttl <= 0 || time.Since(entry.cachedAt) > c.ttl {
		return nil
	}
	return append([]string(nil), entry.models...)
}

func (c *ModelsCache) Set(class domain.AssetClass, models []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[class] = cachedModels{
		models:   append([]string(nil), models...),
		cachedAt: time.Now(),
	}
}
