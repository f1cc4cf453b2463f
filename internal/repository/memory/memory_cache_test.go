package memory

import (
	"testing"
	"time"

	"ai-counselor-be/internal/entity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCacheReturnsCopies(t *testing.T) {
	c := NewMemoryCache(time.Minute)
	id := uuid.New()

	m := entity.NewMemory()
	m.UserProfile.EmotionalState = []string{"sad"}
	c.Put(id, m)

	m.UserProfile.EmotionalState[0] = "mutated"

	got, ok := c.Get(id)
	require.True(t, ok)
	assert.Equal(t, []string{"sad"}, got.UserProfile.EmotionalState)

	got.UserProfile.EmotionalState[0] = "mutated again"
	again, _ := c.Get(id)
	assert.Equal(t, []string{"sad"}, again.UserProfile.EmotionalState)
}

func TestMemoryCacheMissAndDelete(t *testing.T) {
	c := NewMemoryCache(time.Minute)
	id := uuid.New()

	_, ok := c.Get(id)
	assert.False(t, ok)

	c.Put(id, entity.NewMemory())
	c.Delete(id)
	_, ok = c.Get(id)
	assert.False(t, ok)
}
