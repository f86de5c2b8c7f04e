package nutrition

import (
	"math"

	"nutrition-engine/internal/pkg/common"
)

// 縮放因子範圍
const (
	ScaleFactorMin = 0.1
	ScaleFactorMax = 50.0
)

// 縮放基準方法
const (
	ScaleMethodPer100g   = "per_100g"
	ScaleMethodRefWeight = "reference_weight"
	ScaleCappedSuffix    = "_capped"
)

// ComputeScaling 由食材克數與食品紀錄計算線性縮放因子。
// 基準為紀錄的參考重量（若有），否則 100g。
// 因子非有限或 ≤0 時鉗至 0.1；超過 50 時鉗至 50 並標記 _capped。
// 回傳稽核紀錄與每份乘數（因子 ÷ max(1, servings)）；份數可為小數。
func ComputeScaling(grams float64, rec *common.FoodRecord, servings float64) (common.ScalingAudit, float64) {
	basis := 100.0
	method := ScaleMethodPer100g
	desc := ""
	if rec != nil && rec.RefWeightGrams != nil && *rec.RefWeightGrams > 0 {
		basis = *rec.RefWeightGrams
		method = ScaleMethodRefWeight
		desc = rec.RefWeightDesc
	}

	factor := grams / basis
	if math.IsNaN(factor) || math.IsInf(factor, 0) || factor <= 0 {
		factor = ScaleFactorMin
	}
	if factor > ScaleFactorMax {
		factor = ScaleFactorMax
		method += ScaleCappedSuffix
	}

	if servings < 1 {
		servings = 1
	}

	audit := common.ScalingAudit{
		ReferenceBasisGrams: basis,
		ReferenceDesc:       desc,
		ScaleFactor:         factor,
		Method:              method,
		Servings:            servings,
	}
	return audit, factor / servings
}
