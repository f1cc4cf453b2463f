package memory

import (
	"time"

	"ai-counselor-be/internal/entity"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// MemoryCache keeps the latest session memory in process so reads skip the database.
// The pipeline writes through on every memory update.
type MemoryCache struct {
	cache *cache.Cache
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	// Purge expired items every 10 minutes
	c := cache.New(ttl, 10*time.Minute)
	return &MemoryCache{
		cache: c,
	}
}

func (r *MemoryCache) Put(sessionId uuid.UUID, m entity.Memory) {
	r.cache.Set(sessionId.String(), m.Clone(), cache.DefaultExpiration)
}

func (r *MemoryCache) Get(sessionId uuid.UUID) (entity.Memory, bool) {
	if x, found := r.cache.Get(sessionId.String()); found {
		return x.(entity.Memory).Clone(), true
	}
	return entity.Memory{}, false
}

func (r *MemoryCache) Delete(sessionId uuid.UUID) {
	r.cache.Delete(sessionId.String())
}
