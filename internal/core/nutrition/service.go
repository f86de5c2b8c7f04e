package nutrition

import (
	"context"
	"fmt"
	"sync"
	"time"

	"nutrition-engine/internal/core/nutrition/cache"
	"nutrition-engine/internal/core/nutrition/queue"
	"nutrition-engine/internal/core/reference"
	"nutrition-engine/internal/infrastructure/config"
	"nutrition-engine/internal/pkg/common"

	"go.uber.org/zap"
)

// suggestionLimit 每個未匹配食材回傳的建議數上限
const suggestionLimit = 3

// Service 營養計算服務：協調匹配、單位換算、縮放與品質評估
// 依賴一律由建構子注入
type Service struct {
	cfg     *config.Config
	matcher *Matcher
	cache   *cache.Manager
	queue   *queue.Manager
	remote  *reference.OpenFoodFactsClient
}

// NewService 創建營養計算服務
func NewService(cfg *config.Config, matcher *Matcher, cacheManager *cache.Manager, queueManager *queue.Manager, remote *reference.OpenFoodFactsClient) *Service {
	return &Service{
		cfg:     cfg,
		matcher: matcher,
		cache:   cacheManager,
		queue:   queueManager,
		remote:  remote,
	}
}

// Calculate 計算整份食材清單的營養。
// 各食材經隊列工作協程平行解析（隊列滿則同步執行），
// 解析結果寫入各自的固定槽位，等待全部完成後由單一協程歸約總和。
func (s *Service) Calculate(ctx context.Context, req *common.NutritionRequest) (*common.NutritionResult, error) {
	if req == nil || len(req.Ingredients) == 0 {
		return nil, common.ErrEmptyIngredients
	}

	servings := req.Servings
	if servings < 1 {
		servings = 1
	}

	start := time.Now()
	common.LogInfo("開始營養計算",
		zap.Int("ingredient_count", len(req.Ingredients)),
		zap.Float64("servings", servings),
	)
	common.LogDebug("食材清單", zap.String("ingredients", common.FormatIngredients(req.Ingredients)))

	// 扇出：每個食材一個槽位，互不重疊
	resolved := make([]ResolvedIngredient, len(req.Ingredients))
	var wg sync.WaitGroup
	for i, ing := range req.Ingredients {
		wg.Add(1)
		i, ing := i, ing
		task := func(taskCtx context.Context) {
			defer wg.Done()
			resolved[i] = s.resolveOne(taskCtx, ing, servings)
		}
		if s.queue == nil || s.queue.Submit(ctx, task) != nil {
			// 隊列不可用或已滿時退回同步執行
			task(ctx)
		}
	}
	wg.Wait()

	// 歸約：單一協程累加，避免共享累加器
	var totals common.Nutrients
	audit := common.AuditLog{}
	perIngredient := make(map[string]common.PerIngredientNutrition, len(resolved))
	for _, r := range resolved {
		totals.Add(r.Nutrition.Nutrients)
		audit.UnitConversions = append(audit.UnitConversions, r.Trace)
		perIngredient[uniqueKey(perIngredient, r.Ingredient.Name.Value)] = r.Nutrition
	}

	// 品質評估以加總後、未套下限的總量為準；下限只修飾輸出，
	// 不得影響能量一致性檢核
	aggregated := common.NewNutritionTotals(totals)
	quality, confidenceTrace := EvaluateQuality(resolved, &aggregated)
	quality.MinimumsApplied = applyMinimums(&totals, len(resolved))
	audit.Confidence = confidenceTrace

	result := &common.NutritionResult{
		Totals:        common.NewNutritionTotals(totals.Rounded()),
		DataQuality:   quality,
		PerIngredient: perIngredient,
		AuditLog:      audit,
		Servings:      servings,
	}

	common.LogInfo("營養計算完成",
		zap.Duration("duration", time.Since(start)),
		zap.Float64("calories", result.Totals.Calories),
		zap.Float64("confidence", quality.ConfidenceScore),
		zap.String("label", quality.OverallConfidence),
	)
	return result, nil
}

// resolveOne 解析單一食材：正規化、匹配、換算克數、縮放營養值。
// 匹配失敗時以類別估算值代替，永不回傳錯誤。
func (s *Service) resolveOne(ctx context.Context, ing common.Ingredient, servings float64) ResolvedIngredient {
	normalized := Normalize(ing.Name.Value)
	quantity := ing.EffectiveQuantity()
	conv := ConvertToGrams(quantity, ing.Unit, normalized)

	trace := common.ConversionTrace{
		Ingredient:   ing.Name.Value,
		Quantity:     quantity,
		Unit:         ing.Unit,
		StandardUnit: conv.StandardUnit,
		Category:     conv.Category,
		Grams:        round1(conv.Grams),
		AssumedGrams: conv.Assumed,
	}

	var match MatchResult
	if normalized != "" {
		match = s.matcher.Match(ctx, normalized, Aliases(normalized))
	}

	if match.Record == nil {
		return s.resolveFallback(ing, normalized, quantity, conv, trace)
	}

	scaling, multiplier := ComputeScaling(conv.Grams, match.Record, servings)
	nutrition := common.PerIngredientNutrition{
		Nutrients:       match.Record.Nutrients.Scale(multiplier).Rounded(),
		Matched:         true,
		FoodCode:        match.Record.FoodCode,
		MatchedFoodName: match.Record.FoodName,
		MatchMethod:     match.Method,
		ConfidenceScore: match.Confidence,
		Grams:           round1(conv.Grams),
		Scaling:         &scaling,
	}

	return ResolvedIngredient{
		Ingredient: ing,
		Nutrition:  nutrition,
		Trace:      trace,
	}
}

// resolveFallback 匹配失敗時的類別估算，並收集建議替代名稱
func (s *Service) resolveFallback(ing common.Ingredient, normalized string, quantity float64, conv UnitConversion, trace common.ConversionTrace) ResolvedIngredient {
	estimate, category := FallbackEstimate(normalized, quantity)
	common.LogDebug("食材改用類別估算",
		zap.String("ingredient", ing.Name.Value),
		zap.String("fallback_category", category),
	)

	nutrition := common.PerIngredientNutrition{
		Nutrients:       estimate.Rounded(),
		Matched:         false,
		IsFallback:      true,
		MatchMethod:     common.MatchMethodFallback,
		ConfidenceScore: FallbackConfidence,
		Grams:           round1(conv.Grams),
	}

	return ResolvedIngredient{
		Ingredient:  ing,
		Nutrition:   nutrition,
		Trace:       trace,
		Suggestions: s.suggestions(normalized),
	}
}

// suggestions 彙整未匹配食材的替代名稱：本地快取鍵優先，遠端查詢補足
func (s *Service) suggestions(normalized string) []string {
	if normalized == "" {
		return nil
	}

	names := s.cache.SimilarKeys(normalized, suggestionLimit)
	if len(names) >= suggestionLimit || !s.cfg.Resolver.RemoteSuggestions || s.remote == nil {
		return names
	}

	remoteCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Resolver.StoreTimeout)
	defer cancel()
	for _, name := range s.remote.SuggestNames(remoteCtx, normalized, suggestionLimit) {
		if len(names) >= suggestionLimit {
			break
		}
		names = append(names, name)
	}
	return names
}

// QueueStatus 隊列狀態（健康檢查用）
func (s *Service) QueueStatus() *queue.Status {
	if s.queue == nil {
		return nil
	}
	return s.queue.GetStatus()
}

// CacheStats 快取統計（健康檢查用）
func (s *Service) CacheStats() map[string]interface{} {
	return s.cache.GetStats()
}

// uniqueKey 重複的食材名稱加序號後綴，避免覆蓋
func uniqueKey(existing map[string]common.PerIngredientNutrition, name string) string {
	if _, ok := existing[name]; !ok {
		return name
	}
	for i := 2; ; i++ {
		key := fmt.Sprintf("%s_%d", name, i)
		if _, ok := existing[key]; !ok {
			return key
		}
	}
}
