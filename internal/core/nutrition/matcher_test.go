package nutrition

import (
	"context"
	"strings"
	"testing"
	"time"

	"nutrition-engine/internal/core/nutrition/cache"
	"nutrition-engine/internal/core/reference"
	"nutrition-engine/internal/infrastructure/config"
	"nutrition-engine/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testResolverConfig() *config.ResolverConfig {
	return &config.ResolverConfig{
		Workers:             2,
		QueueSize:           10,
		SimilarityThreshold: 0.25,
		FuzzyLimit:          8,
		WordOrderLimit:      3,
		StoreTimeout:        time.Second,
	}
}

func testCacheManager(t *testing.T) *cache.Manager {
	t.Helper()
	m := cache.NewManager(&config.CacheConfig{
		Enabled:         true,
		MaxSize:         100,
		TTL:             time.Hour,
		CleanupInterval: time.Minute,
	}, nil)
	require.NotNil(t, m)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func newTestMatcher(t *testing.T, store reference.FoodStore) *Matcher {
	t.Helper()
	return NewMatcher(store, testCacheManager(t), testResolverConfig())
}

func TestMatcherExactMatch(t *testing.T) {
	store := reference.NewMemoryStore(
		common.FoodRecord{FoodCode: "F001", FoodName: "chicken breast"},
	)
	m := newTestMatcher(t, store)

	result := m.Match(context.Background(), "chicken breast", Aliases("chicken breast"))
	require.NotNil(t, result.Record)
	assert.Equal(t, common.MatchMethodExact, result.Method)
	assert.InDelta(t, 0.95, result.Confidence, 0.001)
	assert.Equal(t, "F001", result.Record.FoodCode)
}

func TestMatcherExactMatchViaAlias(t *testing.T) {
	store := reference.NewMemoryStore(
		common.FoodRecord{FoodCode: "F002", FoodName: "basil"},
	)
	m := newTestMatcher(t, store)

	// 別名剔除修飾詞後精確命中
	result := m.Match(context.Background(), "fresh chopped basil", Aliases("fresh chopped basil"))
	require.NotNil(t, result.Record)
	assert.Equal(t, common.MatchMethodExact, result.Method)
}

func TestMatcherSecondCallHitsCache(t *testing.T) {
	store := reference.NewMemoryStore(
		common.FoodRecord{FoodCode: "F003", FoodName: "olive oil"},
	)
	m := newTestMatcher(t, store)

	first := m.Match(context.Background(), "olive oil", Aliases("olive oil"))
	require.Equal(t, common.MatchMethodExact, first.Method)

	second := m.Match(context.Background(), "olive oil", Aliases("olive oil"))
	require.NotNil(t, second.Record)
	assert.Equal(t, common.MatchMethodCached, second.Method)
	assert.InDelta(t, first.Confidence, second.Confidence, 0.001)
	assert.Equal(t, first.Record.FoodCode, second.Record.FoodCode)
}

func TestMatcherFuzzyMatch(t *testing.T) {
	store := reference.NewMemoryStore(
		common.FoodRecord{FoodCode: "F004", FoodName: "chicken breast"},
	)
	m := newTestMatcher(t, store)

	// 拼寫錯誤：精確查詢失敗，相似度搜尋補上
	result := m.Match(context.Background(), "chiken breast", Aliases("chiken breast"))
	require.NotNil(t, result.Record)
	assert.Equal(t, common.MatchMethodFuzzy, result.Method)
	assert.Equal(t, "F004", result.Record.FoodCode)
	assert.GreaterOrEqual(t, result.Confidence, 0.25)
	assert.LessOrEqual(t, result.Confidence, 0.98)
}

func TestMatcherCategoryMatch(t *testing.T) {
	store := reference.NewMemoryStore(
		common.FoodRecord{FoodCode: "F005", FoodName: "mixed vegetable medley"},
	)
	m := newTestMatcher(t, store)

	// 與庫內名稱幾乎不相似，但含 broccoli 關鍵詞歸入 vegetable 類
	result := m.Match(context.Background(), "purple sprouting broccoli", Aliases("purple sprouting broccoli"))
	require.NotNil(t, result.Record)
	assert.Equal(t, common.MatchMethodCategory, result.Method)
	assert.InDelta(t, 0.6, result.Confidence, 0.001)
}

func TestMatcherGenericMatch(t *testing.T) {
	store := reference.NewMemoryStore(
		common.FoodRecord{FoodCode: "F006", FoodName: "basic stock"},
	)
	m := newTestMatcher(t, store)

	// 無類別關鍵詞，落到通用後備查詢
	result := m.Match(context.Background(), "mystery broth", Aliases("mystery broth"))
	require.NotNil(t, result.Record)
	assert.Equal(t, common.MatchMethodGeneric, result.Method)
	assert.InDelta(t, 0.4, result.Confidence, 0.001)
}

func TestMatcherNoMatch(t *testing.T) {
	m := newTestMatcher(t, reference.NewMemoryStore())

	result := m.Match(context.Background(), "xyzabc", Aliases("xyzabc"))
	assert.Nil(t, result.Record)
	assert.Equal(t, common.MatchMethodNone, result.Method)
	assert.InDelta(t, 0.0, result.Confidence, 0.001)
}

func TestMatcherEmptyInput(t *testing.T) {
	m := newTestMatcher(t, reference.NewMemoryStore())

	result := m.Match(context.Background(), "", nil)
	assert.Nil(t, result.Record)
	assert.Equal(t, common.MatchMethodNone, result.Method)
}

// reversedOnlyStore 只對倒轉詞序的查詢回應，驗證詞序無關階段
type reversedOnlyStore struct {
	*reference.MemoryStore
	accept string
	record common.FoodRecord
}

func (s *reversedOnlyStore) SearchSimilar(ctx context.Context, query string, threshold float64, limit int) ([]reference.SimilarFood, error) {
	if strings.EqualFold(query, s.accept) {
		return []reference.SimilarFood{{Record: s.record, Similarity: 0.8}}, nil
	}
	return nil, nil
}

func TestMatcherWordOrderMatch(t *testing.T) {
	store := &reversedOnlyStore{
		MemoryStore: reference.NewMemoryStore(),
		accept:      "cheese cheddar",
		record:      common.FoodRecord{FoodCode: "F007", FoodName: "cheese cheddar"},
	}
	m := newTestMatcher(t, store)

	result := m.Match(context.Background(), "cheddar cheese", []string{"cheddar cheese"})
	require.NotNil(t, result.Record)
	assert.Equal(t, common.MatchMethodWordOrder, result.Method)
	assert.LessOrEqual(t, result.Confidence, 0.85)
	assert.Equal(t, "F007", result.Record.FoodCode)
}

func TestMatcherMethodsWithinClosedSet(t *testing.T) {
	store := reference.NewMemoryStore(
		common.FoodRecord{FoodCode: "F009", FoodName: "chicken breast"},
		common.FoodRecord{FoodCode: "F010", FoodName: "mixed vegetable medley"},
		common.FoodRecord{FoodCode: "F011", FoodName: "basic stock"},
	)
	m := newTestMatcher(t, store)

	// 覆蓋精確、模糊、類別、通用與無匹配各路徑，方法標籤不得超出集合
	inputs := []string{
		"chicken breast",
		"chiken breast",
		"purple sprouting broccoli",
		"mystery broth",
		"qqqq",
	}
	for _, in := range inputs {
		result := m.Match(context.Background(), in, Aliases(in))
		assert.Contains(t, common.MatchMethods, result.Method, "input %q", in)
	}
}

func TestMatcherFuzzyConfidenceCapped(t *testing.T) {
	store := reference.NewMemoryStore(
		common.FoodRecord{FoodCode: "F008", FoodName: "tomato"},
	)
	m := newTestMatcher(t, store)

	// 別名不含輸入本身時強迫走模糊路徑：前綴與詞覆蓋加成後仍不破上限
	result := m.Match(context.Background(), "tomato", []string{"tomatoo"})
	if result.Record != nil && result.Method == common.MatchMethodFuzzy {
		assert.LessOrEqual(t, result.Confidence, 0.98)
	}
}
