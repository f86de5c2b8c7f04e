package nutrition

import (
	"context"
	"testing"

	"nutrition-engine/internal/core/nutrition/queue"
	"nutrition-engine/internal/core/reference"
	"nutrition-engine/internal/infrastructure/config"
	"nutrition-engine/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFoodStore() *reference.MemoryStore {
	return reference.NewMemoryStore(
		common.FoodRecord{
			FoodCode: "F100",
			FoodName: "flour",
			Nutrients: common.Nutrients{
				Calories: 364, ProteinG: 10, CarbsG: 76, FatG: 1, FiberG: 2.7, IronMg: 1.2,
			},
		},
		common.FoodRecord{
			FoodCode: "F101",
			FoodName: "sugar",
			Nutrients: common.Nutrients{
				Calories: 387, CarbsG: 100, SugarG: 100,
			},
		},
	)
}

func newTestService(t *testing.T, store reference.FoodStore) *Service {
	t.Helper()

	cfg := &config.Config{
		Resolver: *testResolverConfig(),
		Cache: config.CacheConfig{
			Enabled: false,
		},
	}
	cacheManager := testCacheManager(t)
	matcher := NewMatcher(store, cacheManager, &cfg.Resolver)
	return NewService(cfg, matcher, cacheManager, nil, nil)
}

func TestCalculateEmptyIngredients(t *testing.T) {
	svc := newTestService(t, testFoodStore())

	_, err := svc.Calculate(context.Background(), &common.NutritionRequest{})
	assert.ErrorIs(t, err, common.ErrEmptyIngredients)

	_, err = svc.Calculate(context.Background(), nil)
	assert.ErrorIs(t, err, common.ErrEmptyIngredients)
}

func TestCalculateMatchedIngredients(t *testing.T) {
	svc := newTestService(t, testFoodStore())

	req := &common.NutritionRequest{
		Ingredients: []common.Ingredient{
			{Quantity: 2, Unit: "cup", Name: common.IngredientName{Value: "flour"}},
			{Quantity: 1, Unit: "cup", Name: common.IngredientName{Value: "sugar"}},
		},
		Servings: 4,
	}

	result, err := svc.Calculate(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.InDelta(t, 4.0, result.Servings, 0.001)
	require.Len(t, result.PerIngredient, 2)

	// 麵粉：2 cup × 120g = 240g → 因子 2.4 ÷ 4 份 = 0.6
	flour := result.PerIngredient["flour"]
	assert.True(t, flour.Matched)
	assert.Equal(t, common.MatchMethodExact, flour.MatchMethod)
	assert.InDelta(t, 240.0, flour.Grams, 0.001)
	assert.InDelta(t, 218.0, flour.Calories, 1.0)
	require.NotNil(t, flour.Scaling)
	assert.InDelta(t, 2.4, flour.Scaling.ScaleFactor, 0.001)

	// 糖：1 cup × 200g = 200g → 因子 2.0 ÷ 4 份 = 0.5
	sugar := result.PerIngredient["sugar"]
	assert.True(t, sugar.Matched)
	assert.InDelta(t, 200.0, sugar.Grams, 0.001)
	assert.InDelta(t, 194.0, sugar.Calories, 1.0)

	assert.InDelta(t, flour.Calories+sugar.Calories, result.Totals.Calories, 1.0)
	assert.Equal(t, "high", result.DataQuality.OverallConfidence)
	assert.False(t, result.DataQuality.Penalties.UnmatchedPenaltyApplied)
	assert.Len(t, result.AuditLog.UnitConversions, 2)
	assert.Equal(t, result.Totals.ProteinG, result.Totals.Protein)
}

func TestCalculateUnmatchedFallsBack(t *testing.T) {
	svc := newTestService(t, testFoodStore())

	req := &common.NutritionRequest{
		Ingredients: []common.Ingredient{
			{Quantity: 5, Unit: "g", Name: common.IngredientName{Value: "xyzabc123"}},
		},
	}

	result, err := svc.Calculate(context.Background(), req)
	require.NoError(t, err)

	entry := result.PerIngredient["xyzabc123"]
	assert.False(t, entry.Matched)
	assert.True(t, entry.IsFallback)
	assert.Equal(t, common.MatchMethodFallback, entry.MatchMethod)
	assert.InDelta(t, FallbackConfidence, entry.ConfidenceScore, 0.001)

	assert.Equal(t, "low", result.DataQuality.OverallConfidence)
	assert.True(t, result.DataQuality.Penalties.UnmatchedPenaltyApplied)
	require.Len(t, result.DataQuality.UnmatchedIngredients, 1)
	assert.Equal(t, "xyzabc123", result.DataQuality.UnmatchedIngredients[0].Name)
}

func TestCalculateAppliesMinimums(t *testing.T) {
	// 空字串名稱直接走後備估算，數量極小時觸發總量下限
	svc := newTestService(t, testFoodStore())

	req := &common.NutritionRequest{
		Ingredients: []common.Ingredient{
			{Quantity: 0.1, Unit: "g", Name: common.IngredientName{Value: "???"}},
		},
	}

	result, err := svc.Calculate(context.Background(), req)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, result.Totals.Calories, 50.0)
	assert.GreaterOrEqual(t, result.Totals.ProteinG, 1.0)
	assert.GreaterOrEqual(t, result.Totals.CarbsG, 1.0)
	assert.GreaterOrEqual(t, result.Totals.FatG, 0.5)
	assert.NotEmpty(t, result.DataQuality.MinimumsApplied)
}

func TestCalculateDuplicateNamesKeepDistinctKeys(t *testing.T) {
	svc := newTestService(t, testFoodStore())

	req := &common.NutritionRequest{
		Ingredients: []common.Ingredient{
			{Quantity: 1, Unit: "cup", Name: common.IngredientName{Value: "flour"}},
			{Quantity: 2, Unit: "cup", Name: common.IngredientName{Value: "flour"}},
		},
	}

	result, err := svc.Calculate(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, result.PerIngredient, 2)
	assert.Contains(t, result.PerIngredient, "flour")
	assert.Contains(t, result.PerIngredient, "flour_2")
}

func TestCalculateDefaultQuantityAndServings(t *testing.T) {
	svc := newTestService(t, testFoodStore())

	req := &common.NutritionRequest{
		Ingredients: []common.Ingredient{
			// 數量缺省視為 1
			{Unit: "cup", Name: common.IngredientName{Value: "sugar"}},
		},
	}

	result, err := svc.Calculate(context.Background(), req)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, result.Servings, 0.001)

	sugar := result.PerIngredient["sugar"]
	assert.InDelta(t, 200.0, sugar.Grams, 0.001)
}

func TestCalculateFractionalServings(t *testing.T) {
	svc := newTestService(t, testFoodStore())

	var req common.NutritionRequest
	payload := `{"ingredients":[{"quantity":1,"unit":"cup","name":"sugar"}],"servings":2.5}`
	require.NoError(t, common.ParseJSON(payload, &req))

	result, err := svc.Calculate(context.Background(), &req)
	require.NoError(t, err)
	assert.InDelta(t, 2.5, result.Servings, 0.001)

	// 200g 糖 → 因子 2.0 ÷ 2.5 份 = 0.8
	sugar := result.PerIngredient["sugar"]
	require.NotNil(t, sugar.Scaling)
	assert.InDelta(t, 2.5, sugar.Scaling.Servings, 0.001)
	assert.InDelta(t, 387*0.8, sugar.Calories, 1.0)
}

func TestCalculateLowCalorieFloorKeepsEnergyCheckPassing(t *testing.T) {
	// 加總熱量 30 kcal，宏量推算 30.3 kcal：能量檢核必須以加總值為準，
	// 不受之後套用的 50 kcal 下限影響
	store := reference.NewMemoryStore(
		common.FoodRecord{
			FoodCode: "F102",
			FoodName: "clear broth",
			Nutrients: common.Nutrients{
				Calories: 30, ProteinG: 3, CarbsG: 3, FatG: 0.7,
			},
		},
	)
	svc := newTestService(t, store)

	req := &common.NutritionRequest{
		Ingredients: []common.Ingredient{
			{Quantity: 100, Unit: "g", Name: common.IngredientName{Value: "clear broth"}},
		},
	}

	result, err := svc.Calculate(context.Background(), req)
	require.NoError(t, err)

	assert.InDelta(t, 50.0, result.Totals.Calories, 0.001)
	assert.Contains(t, result.DataQuality.MinimumsApplied, "calories")

	assert.False(t, result.DataQuality.Penalties.EnergyCheckFail)
	assert.InDelta(t, 30.0, result.AuditLog.Confidence.ReportedCalories, 0.001)
	assert.InDelta(t, 30.3, result.AuditLog.Confidence.CalculatedCalories, 0.001)
	assert.InDelta(t, 0.95, result.DataQuality.ConfidenceScore, 0.001)
	assert.Equal(t, "high", result.DataQuality.OverallConfidence)
}

func TestCalculateWithQueueWorkers(t *testing.T) {
	svc := newTestService(t, testFoodStore())
	qm := queue.NewManager(2, 10)
	qm.Start()
	t.Cleanup(qm.Close)
	svc.queue = qm

	req := &common.NutritionRequest{
		Ingredients: []common.Ingredient{
			{Quantity: 1, Unit: "cup", Name: common.IngredientName{Value: "flour"}},
			{Quantity: 1, Unit: "cup", Name: common.IngredientName{Value: "sugar"}},
			{Quantity: 1, Unit: "g", Name: common.IngredientName{Value: "mystery"}},
		},
	}

	result, err := svc.Calculate(context.Background(), req)
	require.NoError(t, err)
	assert.Len(t, result.PerIngredient, 3)
	assert.Greater(t, qm.GetStatus().ProcessedCount, 0)
}

func TestCalculateIngredientNameObjectForm(t *testing.T) {
	svc := newTestService(t, testFoodStore())

	var req common.NutritionRequest
	payload := `{"ingredients":[{"quantity":1,"unit":"cup","name":{"item":"sugar"}}]}`
	require.NoError(t, common.ParseJSON(payload, &req))

	result, err := svc.Calculate(context.Background(), &req)
	require.NoError(t, err)
	assert.Contains(t, result.PerIngredient, "sugar")
}
