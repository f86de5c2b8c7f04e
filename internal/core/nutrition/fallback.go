package nutrition

import (
	"strings"

	"nutrition-engine/internal/pkg/common"
)

// FallbackConfidence 後備估算的固定信心分數
const FallbackConfidence = 0.2

// fallbackCategory 後備估算類別與其關鍵詞
type fallbackCategory struct {
	name     string
	keywords []string
	per100g  common.Nutrients
}

// fallbackCategories 未匹配食材的固定九類後備表（每 100g 預設值）
// 順序即判斷優先序
var fallbackCategories = []fallbackCategory{
	{
		name:     "fat",
		keywords: []string{"oil", "butter", "margarine", "lard", "ghee", "fat"},
		per100g: common.Nutrients{
			Calories: 750, FatG: 84, SaturatedFatG: 18,
		},
	},
	{
		name:     "sugar",
		keywords: []string{"sugar", "honey", "syrup", "sweetener", "molasses"},
		per100g: common.Nutrients{
			Calories: 390, CarbsG: 98, SugarG: 95,
		},
	},
	{
		name:     "carb",
		keywords: []string{"flour", "bread", "pasta", "rice", "noodle", "oat", "cereal", "potato"},
		per100g: common.Nutrients{
			Calories: 350, CarbsG: 74, ProteinG: 9, FiberG: 3, IronMg: 1.2,
		},
	},
	{
		name:     "protein",
		keywords: []string{"chicken", "beef", "pork", "fish", "egg", "tofu", "meat", "turkey", "lamb"},
		per100g: common.Nutrients{
			Calories: 200, ProteinG: 25, FatG: 10, CholesterolMg: 70, IronMg: 1.5,
		},
	},
	{
		name:     "vegetable",
		keywords: []string{"tomato", "onion", "carrot", "broccoli", "spinach", "lettuce", "cabbage", "pepper", "vegetable", "celery", "cucumber"},
		per100g: common.Nutrients{
			Calories: 30, CarbsG: 6, FiberG: 2.5, ProteinG: 1.5,
			PotassiumMg: 250, VitaminCMg: 15, VitaminAIU: 500,
		},
	},
	{
		name:     "fruit",
		keywords: []string{"apple", "banana", "orange", "berry", "grape", "mango", "peach", "pear", "fruit", "melon", "lemon", "lime"},
		per100g: common.Nutrients{
			Calories: 55, CarbsG: 14, SugarG: 10, FiberG: 2,
			PotassiumMg: 180, VitaminCMg: 20,
		},
	},
	{
		name:     "spice",
		keywords: []string{"salt", "pepper", "cumin", "paprika", "cinnamon", "herb", "spice", "seasoning"},
		per100g: common.Nutrients{
			Calories: 280, CarbsG: 50, FiberG: 25, IronMg: 10, CalciumMg: 500,
		},
	},
	{
		name:     "dairy",
		keywords: []string{"milk", "cheese", "yogurt", "cream", "dairy"},
		per100g: common.Nutrients{
			Calories: 120, ProteinG: 6, FatG: 7, CarbsG: 6,
			SaturatedFatG: 4, CalciumMg: 150, CholesterolMg: 20,
		},
	},
	{
		name:     "default",
		keywords: nil,
		per100g: common.Nutrients{
			Calories: 100, ProteinG: 3, CarbsG: 12, FatG: 4, FiberG: 1,
		},
	},
}

// FallbackEstimate 未匹配食材的後備營養估算
// 固定類別表 × min(quantity, 10) × 0.3
func FallbackEstimate(normalized string, quantity float64) (common.Nutrients, string) {
	if quantity > 10 {
		quantity = 10
	}
	if quantity < 0 {
		quantity = 0
	}

	cat := classifyFallback(normalized)
	return cat.per100g.Scale(quantity * 0.3), cat.name
}

// classifyFallback 依關鍵詞將名稱歸入後備類別，無命中時取 default
func classifyFallback(normalized string) fallbackCategory {
	for _, cat := range fallbackCategories {
		for _, kw := range cat.keywords {
			if strings.Contains(normalized, kw) {
				return cat
			}
		}
	}
	return fallbackCategories[len(fallbackCategories)-1]
}
