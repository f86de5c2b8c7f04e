package nutrition

import (
	"math"

	"nutrition-engine/internal/pkg/common"
)

// 信心分數彙整相關常數
const (
	confidenceWeightFloor     = 0.1
	unmatchedRatioThreshold   = 0.25
	energyDeviationThreshold  = 0.20
	energyCheckPenalty        = 0.8
	highConfidenceThreshold   = 0.8
	mediumConfidenceThreshold = 0.6
)

// 總量下限：任何非空食材清單的結果至少具備的營養值
const (
	minTotalCalories = 50.0
	minTotalProteinG = 1.0
	minTotalCarbsG   = 1.0
	minTotalFatG     = 0.5
)

// ResolvedIngredient 單一食材的完整解析結果
type ResolvedIngredient struct {
	Ingredient  common.Ingredient
	Nutrition   common.PerIngredientNutrition
	Trace       common.ConversionTrace
	Suggestions []string
}

// EvaluateQuality 計算整體資料品質：
// 以食材數量加權平均信心分數，再依未匹配比例與能量一致性調整，
// 最終分數截斷於 [0,1] 並映射為 high/medium/low 標籤。
func EvaluateQuality(resolved []ResolvedIngredient, totals *common.NutritionTotals) (common.DataQuality, common.ConfidenceTrace) {
	trace := common.ConfidenceTrace{}
	quality := common.DataQuality{
		Penalties: common.QualityPenalties{},
	}

	if len(resolved) == 0 {
		quality.OverallConfidence = confidenceLabel(0)
		return quality, trace
	}

	// 數量加權平均：份量大的食材對整體信心影響較大
	weightedSum := 0.0
	weightTotal := 0.0
	unmatchedCount := 0
	for _, r := range resolved {
		weight := r.Ingredient.EffectiveQuantity()
		if weight < confidenceWeightFloor {
			weight = confidenceWeightFloor
		}
		weightedSum += r.Nutrition.ConfidenceScore * weight
		weightTotal += weight

		if !r.Nutrition.Matched || r.Nutrition.IsFallback {
			unmatchedCount++
			quality.UnmatchedIngredients = append(quality.UnmatchedIngredients, common.UnmatchedIngredient{
				Name:        r.Ingredient.Name.Value,
				Suggestions: r.Suggestions,
			})
		}
	}

	score := weightedSum / weightTotal
	trace.WeightedMean = round3(score)

	// 未匹配比例懲罰
	ratio := float64(unmatchedCount) / float64(len(resolved))
	quality.Penalties.UnmatchedRatio = round3(ratio)
	trace.UnmatchedRatio = round3(ratio)
	if ratio > unmatchedRatioThreshold {
		score *= 1 - ratio/2
		quality.Penalties.UnmatchedPenaltyApplied = true
	}

	// Atwater 能量一致性檢核：4/4/9 推算熱量與回報熱量偏差過大時扣分
	if totals.Calories > 0 {
		computed := 4*totals.ProteinG + 4*totals.CarbsG + 9*totals.FatG
		deviation := math.Abs(computed-totals.Calories) / totals.Calories
		trace.ReportedCalories = round1(totals.Calories)
		trace.CalculatedCalories = round1(computed)
		if deviation > energyDeviationThreshold {
			score *= energyCheckPenalty
			quality.Penalties.EnergyCheckFail = true
		}
	}

	score = clampScore(score)
	trace.FinalScore = round3(score)

	quality.ConfidenceScore = round3(score)
	quality.OverallConfidence = confidenceLabel(score)
	return quality, trace
}

// applyMinimums 對非空清單的總量套用下限，回傳套用到的欄位名
func applyMinimums(totals *common.Nutrients, ingredientCount int) []string {
	if ingredientCount == 0 {
		return nil
	}

	var applied []string
	if totals.Calories < minTotalCalories {
		totals.Calories = minTotalCalories
		applied = append(applied, "calories")
	}
	if totals.ProteinG < minTotalProteinG {
		totals.ProteinG = minTotalProteinG
		applied = append(applied, "protein")
	}
	if totals.CarbsG < minTotalCarbsG {
		totals.CarbsG = minTotalCarbsG
		applied = append(applied, "carbs")
	}
	if totals.FatG < minTotalFatG {
		totals.FatG = minTotalFatG
		applied = append(applied, "fat")
	}
	return applied
}

// confidenceLabel 分數映射為標籤
func confidenceLabel(score float64) string {
	switch {
	case score >= highConfidenceThreshold:
		return "high"
	case score >= mediumConfidenceThreshold:
		return "medium"
	default:
		return "low"
	}
}

func clampScore(score float64) float64 {
	if math.IsNaN(score) || score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
