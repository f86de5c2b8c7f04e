package nutrition

import (
	"context"
	"strings"

	"nutrition-engine/internal/core/nutrition/cache"
	"nutrition-engine/internal/core/reference"
	"nutrition-engine/internal/infrastructure/config"
	"nutrition-engine/internal/pkg/common"

	"go.uber.org/zap"
)

// 各策略的信心分數常數
const (
	exactMatchConfidence    = 0.95
	fuzzyPrefixBonus        = 0.10
	fuzzyWordCoverageBonus  = 0.05
	fuzzyConfidenceCap      = 0.98
	wordOrderConfidenceCap  = 0.85
	categoryMatchConfidence = 0.6
	genericMatchConfidence  = 0.4
)

// genericQualifiers 通用後備查詢詞，依序嘗試
var genericQualifiers = []string{"basic", "raw", "fresh", "standard", "plain", "simple"}

// matchCategory 匹配用食材類別
type matchCategory struct {
	name     string
	keywords []string
}

// matchCategories 九個固定類別；順序即平手時的優先序
var matchCategories = []matchCategory{
	{"fruit", []string{"apple", "banana", "orange", "berry", "strawberry", "blueberry", "mango", "peach", "pear", "grape", "melon", "pineapple", "lemon", "lime", "cherry", "fruit"}},
	{"vegetable", []string{"tomato", "onion", "carrot", "broccoli", "spinach", "lettuce", "cabbage", "pepper", "celery", "cucumber", "zucchini", "potato", "pea", "bean", "vegetable"}},
	{"meat", []string{"chicken", "beef", "pork", "lamb", "turkey", "bacon", "sausage", "ham", "veal", "meat"}},
	{"fish", []string{"salmon", "tuna", "cod", "shrimp", "prawn", "crab", "lobster", "anchovy", "sardine", "fish"}},
	{"dairy", []string{"milk", "cheese", "yogurt", "butter", "cream", "dairy"}},
	{"grain", []string{"rice", "pasta", "bread", "flour", "oat", "wheat", "barley", "quinoa", "noodle", "grain"}},
	{"spice", []string{"salt", "cumin", "paprika", "cinnamon", "turmeric", "oregano", "basil", "spice"}},
	{"oil", []string{"oil", "olive", "canola", "sunflower", "sesame"}},
	{"nut", []string{"almond", "peanut", "walnut", "cashew", "pecan", "pistachio", "hazelnut", "nut"}},
}

// MatchResult 食材匹配結果
type MatchResult struct {
	Record     *common.FoodRecord
	Confidence float64
	Method     string
}

// Matcher 食材匹配器：五段後備鏈
// 快取命中 → 別名精確 → 模糊相似度 → 詞序無關 → 類別/通用後備
// 參考資料庫與快取以建構子注入
type Matcher struct {
	store reference.FoodStore
	cache *cache.Manager
	cfg   *config.ResolverConfig
}

// NewMatcher 創建食材匹配器
func NewMatcher(store reference.FoodStore, cacheManager *cache.Manager, cfg *config.ResolverConfig) *Matcher {
	return &Matcher{
		store: store,
		cache: cacheManager,
		cfg:   cfg,
	}
}

// Match 依後備鏈解析正規化文字為食品紀錄，首個可用匹配即返回。
// 任一階段的資料庫或快取失敗只記日誌並落入下一階段，整條鏈永不失敗。
func (m *Matcher) Match(ctx context.Context, normalized string, aliases []string) MatchResult {
	if normalized == "" || len(aliases) == 0 {
		return MatchResult{Method: common.MatchMethodNone}
	}

	// 1. 快取查詢
	if result, ok := m.tryCache(ctx, normalized); ok {
		return result
	}

	// 2. 別名精確匹配
	if result, ok := m.tryExact(ctx, normalized, aliases); ok {
		return result
	}

	// 3. 模糊相似度搜尋
	if result, ok := m.tryFuzzy(ctx, normalized, aliases[0]); ok {
		return result
	}

	// 4. 詞序無關搜尋
	if result, ok := m.tryWordOrder(ctx, normalized); ok {
		return result
	}

	// 5. 類別後備
	if result, ok := m.tryCategory(ctx, normalized); ok {
		return result
	}

	// 6. 通用後備
	if result, ok := m.tryGeneric(ctx, normalized); ok {
		return result
	}

	return MatchResult{Method: common.MatchMethodNone}
}

// tryCache 快取查詢：命中後仍須取回食品紀錄
func (m *Matcher) tryCache(ctx context.Context, normalized string) (MatchResult, bool) {
	mapping, err := m.cache.Get(ctx, normalized)
	if err != nil || mapping == nil {
		return MatchResult{}, false
	}

	storeCtx, cancel := m.storeContext(ctx)
	rec, err := m.store.FindByCode(storeCtx, mapping.FoodCode)
	cancel()
	if err != nil {
		common.LogWarn("快取對應的食品紀錄取回失敗",
			zap.String("normalized", normalized),
			zap.String("food_code", mapping.FoodCode),
			zap.Error(err),
		)
		return MatchResult{}, false
	}

	return MatchResult{
		Record:     rec,
		Confidence: mapping.ConfidenceScore,
		Method:     common.MatchMethodCached,
	}, true
}

// tryExact 依別名順序做不分大小寫的精確查詢
func (m *Matcher) tryExact(ctx context.Context, normalized string, aliases []string) (MatchResult, bool) {
	for _, alias := range aliases {
		storeCtx, cancel := m.storeContext(ctx)
		rec, err := m.store.FindByExactName(storeCtx, alias)
		cancel()
		if err != nil {
			continue
		}
		m.writeCache(ctx, normalized, rec.FoodCode, exactMatchConfidence, common.MatchMethodExact)
		return MatchResult{
			Record:     rec,
			Confidence: exactMatchConfidence,
			Method:     common.MatchMethodExact,
		}, true
	}
	return MatchResult{}, false
}

// tryFuzzy 以第一個別名做相似度搜尋並重新評分
func (m *Matcher) tryFuzzy(ctx context.Context, normalized, query string) (MatchResult, bool) {
	storeCtx, cancel := m.storeContext(ctx)
	candidates, err := m.store.SearchSimilar(storeCtx, query, m.cfg.SimilarityThreshold, m.cfg.FuzzyLimit)
	cancel()
	if err != nil {
		common.LogWarn("相似度搜尋失敗", zap.String("query", query), zap.Error(err))
		return MatchResult{}, false
	}
	if len(candidates) == 0 {
		return MatchResult{}, false
	}

	best, score := bestCandidate(candidates, query, fuzzyConfidenceCap)
	m.writeCache(ctx, normalized, best.FoodCode, score, common.MatchMethodFuzzy)
	return MatchResult{
		Record:     best,
		Confidence: score,
		Method:     common.MatchMethodFuzzy,
	}, true
}

// tryWordOrder 多詞輸入時倒轉詞序重新搜尋
func (m *Matcher) tryWordOrder(ctx context.Context, normalized string) (MatchResult, bool) {
	words := strings.Fields(normalized)
	if len(words) < 2 {
		return MatchResult{}, false
	}

	reversed := make([]string, len(words))
	for i, w := range words {
		reversed[len(words)-1-i] = w
	}
	query := strings.Join(reversed, " ")

	storeCtx, cancel := m.storeContext(ctx)
	candidates, err := m.store.SearchSimilar(storeCtx, query, m.cfg.SimilarityThreshold, m.cfg.WordOrderLimit)
	cancel()
	if err != nil {
		common.LogWarn("詞序無關搜尋失敗", zap.String("query", query), zap.Error(err))
		return MatchResult{}, false
	}
	if len(candidates) == 0 {
		return MatchResult{}, false
	}

	// 候選排序沿用模糊階段的加分規則；0.85 的上限讓本階段永遠低於模糊匹配
	best, score := bestCandidate(candidates, query, wordOrderConfidenceCap)
	m.writeCache(ctx, normalized, best.FoodCode, score, common.MatchMethodWordOrder)
	return MatchResult{
		Record:     best,
		Confidence: score,
		Method:     common.MatchMethodWordOrder,
	}, true
}

// tryCategory 依類別關鍵詞命中數歸類，查詢包含類別詞的任一食品
func (m *Matcher) tryCategory(ctx context.Context, normalized string) (MatchResult, bool) {
	category := classifyMatchCategory(normalized)
	if category == "" {
		return MatchResult{}, false
	}

	storeCtx, cancel := m.storeContext(ctx)
	rec, err := m.store.FindByNameContaining(storeCtx, category)
	cancel()
	if err != nil {
		return MatchResult{}, false
	}

	m.writeCache(ctx, normalized, rec.FoodCode, categoryMatchConfidence, common.MatchMethodCategory)
	return MatchResult{
		Record:     rec,
		Confidence: categoryMatchConfidence,
		Method:     common.MatchMethodCategory,
	}, true
}

// tryGeneric 依通用修飾詞順序查詢，首個命中即返回
func (m *Matcher) tryGeneric(ctx context.Context, normalized string) (MatchResult, bool) {
	for _, qualifier := range genericQualifiers {
		storeCtx, cancel := m.storeContext(ctx)
		rec, err := m.store.FindByNameContaining(storeCtx, qualifier)
		cancel()
		if err != nil {
			continue
		}
		m.writeCache(ctx, normalized, rec.FoodCode, genericMatchConfidence, common.MatchMethodGeneric)
		return MatchResult{
			Record:     rec,
			Confidence: genericMatchConfidence,
			Method:     common.MatchMethodGeneric,
		}, true
	}
	return MatchResult{}, false
}

// writeCache 匹配成功後回寫對應快取，失敗僅記日誌
func (m *Matcher) writeCache(ctx context.Context, normalized, foodCode string, confidence float64, method string) {
	err := m.cache.Upsert(ctx, common.IngredientMapping{
		NormalizedText:  normalized,
		FoodCode:        foodCode,
		ConfidenceScore: confidence,
		MatchMethod:     method,
	})
	if err != nil {
		common.LogWarn("對應快取寫入失敗", zap.String("normalized", normalized), zap.Error(err))
	}
}

// storeContext 為單次資料庫呼叫設置逾時
func (m *Matcher) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.cfg.StoreTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, m.cfg.StoreTimeout)
}

// bestCandidate 重新評分候選並取最高者：
// score = 相似度；候選名以查詢開頭 +0.10；查詢每個詞都出現在候選名中 +0.05；上限 scoreCap
func bestCandidate(candidates []reference.SimilarFood, query string, scoreCap float64) (*common.FoodRecord, float64) {
	bestIdx := 0
	bestScore := -1.0
	for i, c := range candidates {
		score := enhanceScore(c, query, scoreCap)
		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}
	rec := candidates[bestIdx].Record
	return &rec, bestScore
}

func enhanceScore(c reference.SimilarFood, query string, scoreCap float64) float64 {
	score := c.Similarity
	name := strings.ToLower(c.Record.FoodName)

	if strings.HasPrefix(name, query) {
		score += fuzzyPrefixBonus
	}
	if queryWordsCovered(query, name) {
		score += fuzzyWordCoverageBonus
	}
	if score > scoreCap {
		score = scoreCap
	}
	return score
}

// queryWordsCovered 查詢的每個詞是否都是候選名某個詞的子字串
func queryWordsCovered(query, name string) bool {
	nameWords := strings.Fields(name)
	for _, qw := range strings.Fields(query) {
		found := false
		for _, nw := range nameWords {
			if strings.Contains(nw, qw) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// classifyMatchCategory 統計各類別關鍵詞命中數，取最多者；平手依宣告順序
func classifyMatchCategory(normalized string) string {
	bestName := ""
	bestHits := 0
	for _, cat := range matchCategories {
		hits := 0
		for _, kw := range cat.keywords {
			if strings.Contains(normalized, kw) {
				hits++
			}
		}
		if hits > bestHits {
			bestHits = hits
			bestName = cat.name
		}
	}
	return bestName
}
