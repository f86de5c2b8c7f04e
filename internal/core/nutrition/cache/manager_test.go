package cache

import (
	"context"
	"testing"
	"time"

	"nutrition-engine/internal/infrastructure/config"
	"nutrition-engine/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T, maxSize int, ttl time.Duration) *Manager {
	t.Helper()
	m := NewManager(&config.CacheConfig{
		Enabled:         true,
		MaxSize:         maxSize,
		TTL:             ttl,
		CleanupInterval: time.Minute,
	}, nil)
	require.NotNil(t, m)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func mapping(text, code string) common.IngredientMapping {
	return common.IngredientMapping{
		NormalizedText:  text,
		FoodCode:        code,
		ConfidenceScore: 0.95,
		MatchMethod:     common.MatchMethodExact,
	}
}

func TestManagerUpsertAndGet(t *testing.T) {
	m := newTestManager(t, 10, time.Hour)
	ctx := context.Background()

	require.NoError(t, m.Upsert(ctx, mapping("chicken breast", "F001")))

	got, err := m.Get(ctx, "chicken breast")
	require.NoError(t, err)
	assert.Equal(t, "F001", got.FoodCode)
	assert.InDelta(t, 0.95, got.ConfidenceScore, 0.001)
}

func TestManagerGetMiss(t *testing.T) {
	m := newTestManager(t, 10, time.Hour)

	_, err := m.Get(context.Background(), "nothing here")
	assert.ErrorIs(t, err, common.ErrMappingNotFound)
}

func TestManagerUpsertReplaces(t *testing.T) {
	m := newTestManager(t, 10, time.Hour)
	ctx := context.Background()

	require.NoError(t, m.Upsert(ctx, mapping("rice", "F001")))
	require.NoError(t, m.Upsert(ctx, mapping("rice", "F002")))

	got, err := m.Get(ctx, "rice")
	require.NoError(t, err)
	assert.Equal(t, "F002", got.FoodCode)
}

func TestManagerTTLExpiry(t *testing.T) {
	m := newTestManager(t, 10, 20*time.Millisecond)
	ctx := context.Background()

	require.NoError(t, m.Upsert(ctx, mapping("milk", "F003")))
	time.Sleep(50 * time.Millisecond)

	_, err := m.Get(ctx, "milk")
	assert.ErrorIs(t, err, common.ErrMappingNotFound)
}

func TestManagerLRUEviction(t *testing.T) {
	m := newTestManager(t, 2, time.Hour)
	ctx := context.Background()

	require.NoError(t, m.Upsert(ctx, mapping("a", "F001")))
	require.NoError(t, m.Upsert(ctx, mapping("b", "F002")))

	// 提高 a 的使用次數，b 成為淘汰對象
	_, err := m.Get(ctx, "a")
	require.NoError(t, err)

	require.NoError(t, m.Upsert(ctx, mapping("c", "F003")))

	_, err = m.Get(ctx, "b")
	assert.ErrorIs(t, err, common.ErrMappingNotFound)

	_, err = m.Get(ctx, "a")
	assert.NoError(t, err)
}

func TestManagerSimilarKeys(t *testing.T) {
	m := newTestManager(t, 10, time.Hour)
	ctx := context.Background()

	require.NoError(t, m.Upsert(ctx, mapping("chicken breast", "F001")))
	require.NoError(t, m.Upsert(ctx, mapping("chicken thigh", "F002")))
	require.NoError(t, m.Upsert(ctx, mapping("white rice", "F003")))

	keys := m.SimilarKeys("chicken wings", 5)
	assert.ElementsMatch(t, []string{"chicken breast", "chicken thigh"}, keys)

	// 不包含查詢本身
	keys = m.SimilarKeys("chicken breast", 5)
	assert.NotContains(t, keys, "chicken breast")
}

func TestManagerSimilarKeysLimit(t *testing.T) {
	m := newTestManager(t, 10, time.Hour)
	ctx := context.Background()

	require.NoError(t, m.Upsert(ctx, mapping("red apple", "F001")))
	require.NoError(t, m.Upsert(ctx, mapping("green apple", "F002")))
	require.NoError(t, m.Upsert(ctx, mapping("apple sauce", "F003")))

	keys := m.SimilarKeys("apple pie", 2)
	assert.Len(t, keys, 2)
}

func TestManagerDisabled(t *testing.T) {
	m := NewManager(&config.CacheConfig{Enabled: false}, nil)
	assert.Nil(t, m)

	// nil manager 所有操作皆安全
	_, err := m.Get(context.Background(), "x")
	assert.ErrorIs(t, err, common.ErrCacheDisabled)
	assert.NoError(t, m.Upsert(context.Background(), mapping("x", "F001")))
	assert.Nil(t, m.SimilarKeys("x", 3))
	assert.Nil(t, m.GetStats())
	assert.NoError(t, m.Close())
}

func TestManagerStats(t *testing.T) {
	m := newTestManager(t, 10, time.Hour)
	ctx := context.Background()

	require.NoError(t, m.Upsert(ctx, mapping("pasta", "F001")))
	_, _ = m.Get(ctx, "pasta")
	_, _ = m.Get(ctx, "missing")

	stats := m.GetStats()
	assert.Equal(t, 1, stats["size"])
	assert.Equal(t, int64(1), stats["hits"])
	assert.Equal(t, int64(1), stats["misses"])
}
