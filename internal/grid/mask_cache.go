package grid

import "sync"

type maskKey struct {
	worldID string
	version int64
	groupID string
}

// MaskCache хранит маски перемещения по ключу (мир, версия, группа).
// Маска строится один раз на пару (группа, версия мира) и сбрасывается
// при смене версии мира или явной инвалидации.
type MaskCache struct {
	mu      sync.RWMutex
	entries map[maskKey]Mask
	hits    uint64
	misses  uint64
}

// NewMaskCache создает пустой кеш масок
func NewMaskCache() *MaskCache {
	return &MaskCache{entries: make(map[maskKey]Mask)}
}

// Get возвращает маску из кеша или строит ее через build
func (c *MaskCache) Get(worldID string, version int64, groupID string, build func() Mask) Mask {
	key := maskKey{worldID: worldID, version: version, groupID: groupID}

	c.mu.RLock()
	mask, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		c.mu.Lock()
		c.hits++
		c.mu.Unlock()
		return mask
	}

	mask = build()

	c.mu.Lock()
	defer c.mu.Unlock()
	// Удаляем маски устаревших версий этого мира
	for k := range c.entries {
		if k.worldID == worldID && k.version != version {
			delete(c.entries, k)
		}
	}
	c.entries[key] = mask
	c.misses++
	return mask
}

// Invalidate удаляет все маски мира
func (c *MaskCache) Invalidate(worldID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if k.worldID == worldID {
			delete(c.entries, k)
		}
	}
}

// Len возвращает число закешированных масок
func (c *MaskCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats возвращает число попаданий и промахов
func (c *MaskCache) Stats() (hits, misses uint64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}
