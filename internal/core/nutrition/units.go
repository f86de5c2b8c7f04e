package nutrition

import (
	"strings"

	"nutrition-engine/internal/pkg/common"

	"go.uber.org/zap"
)

// 換算類別
const (
	CategorySpice        = "spice"
	CategoryDriedHerb    = "dried_herb"
	CategoryFreshHerb    = "fresh_herb"
	CategoryOil          = "oil"
	CategoryFlour        = "flour"
	CategorySugar        = "sugar"
	CategoryRiceCooked   = "rice_cooked"
	CategoryRiceUncooked = "rice_uncooked"
	CategoryGeneral      = "general"
)

// herbKeywords 香草關鍵詞，配合 dried/fresh 判斷乾燥或新鮮香草
var herbKeywords = []string{
	"basil", "oregano", "thyme", "rosemary", "parsley",
	"dill", "mint", "sage", "tarragon", "cilantro", "coriander", "chive",
}

// spiceKeywords 香料關鍵詞
var spiceKeywords = []string{
	"cumin", "paprika", "cinnamon", "turmeric", "nutmeg", "clove",
	"cardamom", "chili powder", "curry powder", "allspice", "spice",
}

// oilKeywords 油脂關鍵詞
var oilKeywords = []string{"oil", "butter", "margarine", "lard", "ghee"}

// conversionTables 各類別單位到克的換算表
var conversionTables = map[string]map[string]float64{
	CategoryGeneral: {
		"g": 1, "kg": 1000, "mg": 0.001,
		"oz": 28.35, "lb": 453.59,
		"cup": 240, "tbsp": 15, "tsp": 5,
		"ml": 1, "l": 1000,
	},
	CategorySpice: {
		"tsp": 2, "tbsp": 6, "pinch": 0.3, "dash": 0.6,
	},
	CategoryDriedHerb: {
		"tsp": 1, "tbsp": 3, "pinch": 0.2,
	},
	CategoryFreshHerb: {
		"tsp": 1.3, "tbsp": 3.8, "cup": 25, "bunch": 50, "sprig": 2,
	},
	CategoryOil: {
		"tsp": 4.5, "tbsp": 13.5, "cup": 216, "ml": 0.92,
	},
	CategoryFlour: {
		"tsp": 2.6, "tbsp": 7.8, "cup": 120,
	},
	CategorySugar: {
		"tsp": 4.2, "tbsp": 12.5, "cup": 200,
	},
	CategoryRiceUncooked: {
		"cup": 185, "tbsp": 11.5,
	},
	CategoryRiceCooked: {
		"cup": 158, "tbsp": 10,
	},
}

// unitAliases 常見單位寫法到標準縮寫
var unitAliases = map[string]string{
	"gram": "g", "gm": "g",
	"kilogram": "kg", "kilo": "kg",
	"milligram": "mg",
	"ounce":     "oz",
	"pound":     "lb", "lbs": "lb",
	"tablespoon": "tbsp", "tbs": "tbsp", "tbl": "tbsp",
	"teaspoon": "tsp", "ts": "tsp",
	"milliliter": "ml", "millilitre": "ml",
	"liter": "l", "litre": "l",
	"c": "cup",
}

// UnitConversion 單位換算結果
type UnitConversion struct {
	Grams        float64
	StandardUnit string
	Category     string
	Assumed      bool // 查無換算因子時視數量為克
}

// ConversionCategory 依名稱子字串規則分類食材的換算類別
func ConversionCategory(name string) string {
	isHerb := containsAny(name, herbKeywords)
	switch {
	case isHerb && strings.Contains(name, "dried"):
		return CategoryDriedHerb
	case isHerb:
		return CategoryFreshHerb
	case containsAny(name, spiceKeywords):
		return CategorySpice
	case containsAny(name, oilKeywords):
		return CategoryOil
	case strings.Contains(name, "flour"):
		return CategoryFlour
	case strings.Contains(name, "sugar"):
		return CategorySugar
	case strings.Contains(name, "rice") && strings.Contains(name, "cooked"):
		return CategoryRiceCooked
	case strings.Contains(name, "rice"):
		return CategoryRiceUncooked
	default:
		return CategoryGeneral
	}
}

// StandardizeUnit 標準化單位字串：小寫、展開常見寫法、去尾端複數 s
func StandardizeUnit(unit string) string {
	u := strings.ToLower(strings.TrimSpace(unit))
	if u == "" {
		return ""
	}
	if std, ok := unitAliases[u]; ok {
		return std
	}
	if strings.HasSuffix(u, "s") {
		trimmed := strings.TrimSuffix(u, "s")
		if std, ok := unitAliases[trimmed]; ok {
			return std
		}
		if _, ok := conversionTables[CategoryGeneral][trimmed]; ok {
			return trimmed
		}
		// 類別表中存在的單位也接受（pinch/dash/bunch/sprig）
		for _, table := range conversionTables {
			if _, ok := table[trimmed]; ok {
				return trimmed
			}
		}
	}
	return u
}

// ConvertToGrams 將（數量、單位、食材名）換算為克
// 類別表 → 通用表 → 視數量為克（記降級日誌，永不失敗），回傳值不為負
func ConvertToGrams(quantity float64, unit, name string) UnitConversion {
	if quantity < 0 {
		quantity = 0
	}

	category := ConversionCategory(name)
	stdUnit := StandardizeUnit(unit)

	conv := UnitConversion{
		StandardUnit: stdUnit,
		Category:     category,
	}

	factor, ok := conversionTables[category][stdUnit]
	if !ok {
		factor, ok = conversionTables[CategoryGeneral][stdUnit]
	}
	if !ok {
		// 查無因子：視數量為克
		conv.Assumed = true
		conv.Grams = quantity
		common.LogWarn("單位換算降級為克",
			zap.String("ingredient", name),
			zap.String("unit", unit),
			zap.String("standard_unit", stdUnit),
			zap.Float64("quantity", quantity),
		)
		return conv
	}

	conv.Grams = quantity * factor
	if conv.Grams < 0 {
		conv.Grams = 0
	}
	return conv
}

// containsAny 檢查字串是否包含任一關鍵詞
func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
