package common

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// 食材匹配方法（封閉集合）
const (
	MatchMethodCached    = "cached"
	MatchMethodExact     = "exact_match"
	MatchMethodFuzzy     = "fuzzy_match"
	MatchMethodWordOrder = "word_order_match"
	MatchMethodCategory  = "category_match"
	MatchMethodGeneric   = "generic_match"
	MatchMethodFallback  = "fallback_estimation"
	MatchMethodNone      = "no_match"
)

// MatchMethods 所有合法的匹配方法
var MatchMethods = []string{
	MatchMethodCached,
	MatchMethodExact,
	MatchMethodFuzzy,
	MatchMethodWordOrder,
	MatchMethodCategory,
	MatchMethodGeneric,
	MatchMethodFallback,
	MatchMethodNone,
}

// IngredientName 食材名稱
// 上游有兩種形態：純字串或 {"name": "..."} / {"item": "..."} 包裝物件，
// 統一在反序列化時攤平成字串，下游不再分支
type IngredientName struct {
	Value string
}

// UnmarshalJSON 實現 json.Unmarshaler 介面
func (n *IngredientName) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		n.Value = s
		return nil
	}

	var wrapped struct {
		Name string `json:"name"`
		Item string `json:"item"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return fmt.Errorf("invalid ingredient name: %w", err)
	}
	if wrapped.Name != "" {
		n.Value = wrapped.Name
	} else {
		n.Value = wrapped.Item
	}
	return nil
}

// MarshalJSON 實現 json.Marshaler 介面
func (n IngredientName) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.Value)
}

// String 實現 fmt.Stringer 介面
func (n IngredientName) String() string {
	return n.Value
}

// Ingredient 單一食材（數量、單位、名稱）
type Ingredient struct {
	Quantity float64        `json:"quantity"`
	Unit     string         `json:"unit"`
	Name     IngredientName `json:"name"`
	Notes    string         `json:"notes,omitempty"`
}

// EffectiveQuantity 有效數量：缺省為 1，下限 0.1
func (i Ingredient) EffectiveQuantity() float64 {
	if i.Quantity <= 0 {
		return 1
	}
	if i.Quantity < 0.1 {
		return 0.1
	}
	return i.Quantity
}

// Nutrients 營養素欄位（FoodRecord 為每 100g 基準，其餘為配方比例）
type Nutrients struct {
	Calories      float64 `json:"calories"`
	ProteinG      float64 `json:"protein_g"`
	CarbsG        float64 `json:"carbs_g"`
	FatG          float64 `json:"fat_g"`
	FiberG        float64 `json:"fiber_g"`
	SugarG        float64 `json:"sugar_g"`
	SaturatedFatG float64 `json:"saturated_fat_g"`
	SodiumMg      float64 `json:"sodium_mg"`
	CholesterolMg float64 `json:"cholesterol_mg"`
	PotassiumMg   float64 `json:"potassium_mg"`
	CalciumMg     float64 `json:"calcium_mg"`
	IronMg        float64 `json:"iron_mg"`
	VitaminAIU    float64 `json:"vitamin_a_iu"`
	VitaminCMg    float64 `json:"vitamin_c_mg"`
}

// Scale 按比例縮放所有營養素欄位
func (n Nutrients) Scale(factor float64) Nutrients {
	return Nutrients{
		Calories:      n.Calories * factor,
		ProteinG:      n.ProteinG * factor,
		CarbsG:        n.CarbsG * factor,
		FatG:          n.FatG * factor,
		FiberG:        n.FiberG * factor,
		SugarG:        n.SugarG * factor,
		SaturatedFatG: n.SaturatedFatG * factor,
		SodiumMg:      n.SodiumMg * factor,
		CholesterolMg: n.CholesterolMg * factor,
		PotassiumMg:   n.PotassiumMg * factor,
		CalciumMg:     n.CalciumMg * factor,
		IronMg:        n.IronMg * factor,
		VitaminAIU:    n.VitaminAIU * factor,
		VitaminCMg:    n.VitaminCMg * factor,
	}
}

// Add 欄位逐項相加
func (n *Nutrients) Add(other Nutrients) {
	n.Calories += other.Calories
	n.ProteinG += other.ProteinG
	n.CarbsG += other.CarbsG
	n.FatG += other.FatG
	n.FiberG += other.FiberG
	n.SugarG += other.SugarG
	n.SaturatedFatG += other.SaturatedFatG
	n.SodiumMg += other.SodiumMg
	n.CholesterolMg += other.CholesterolMg
	n.PotassiumMg += other.PotassiumMg
	n.CalciumMg += other.CalciumMg
	n.IronMg += other.IronMg
	n.VitaminAIU += other.VitaminAIU
	n.VitaminCMg += other.VitaminCMg
}

// Rounded 套用輸出精度：毫克、IU 與熱量取整數，克取一位小數
func (n Nutrients) Rounded() Nutrients {
	round1 := func(v float64) float64 { return math.Round(v*10) / 10 }
	return Nutrients{
		Calories:      math.Round(n.Calories),
		ProteinG:      round1(n.ProteinG),
		CarbsG:        round1(n.CarbsG),
		FatG:          round1(n.FatG),
		FiberG:        round1(n.FiberG),
		SugarG:        round1(n.SugarG),
		SaturatedFatG: round1(n.SaturatedFatG),
		SodiumMg:      math.Round(n.SodiumMg),
		CholesterolMg: math.Round(n.CholesterolMg),
		PotassiumMg:   math.Round(n.PotassiumMg),
		CalciumMg:     math.Round(n.CalciumMg),
		IronMg:        math.Round(n.IronMg),
		VitaminAIU:    math.Round(n.VitaminAIU),
		VitaminCMg:    round1(n.VitaminCMg),
	}
}

// FoodRecord 參考資料集中的食品紀錄（每 100g 營養素）
// 對本引擎為唯讀
type FoodRecord struct {
	FoodCode string `json:"food_code"`
	FoodName string `json:"food_name"`
	Nutrients
	RefWeightGrams *float64 `json:"reference_weight_grams,omitempty"`
	RefWeightDesc  string   `json:"reference_weight_description,omitempty"`
}

// IngredientMapping 食材到食品紀錄的對應，作為跨請求快取
// 以正規化文字為唯一鍵，upsert 寫入，僅用於降低延遲、不影響正確性
type IngredientMapping struct {
	NormalizedText  string  `json:"normalized_text"`
	FoodCode        string  `json:"food_code"`
	ConfidenceScore float64 `json:"confidence_score"`
	MatchMethod     string  `json:"match_method"`
}

// NutritionTotals 配方層級營養總和
// 同時輸出原始欄位名與下游相容用的短別名（protein/carbs/fat）
type NutritionTotals struct {
	Nutrients
	Protein float64 `json:"protein"`
	Carbs   float64 `json:"carbs"`
	Fat     float64 `json:"fat"`
}

// NewNutritionTotals 由營養素構建總和並補上短別名
func NewNutritionTotals(n Nutrients) NutritionTotals {
	return NutritionTotals{
		Nutrients: n,
		Protein:   n.ProteinG,
		Carbs:     n.CarbsG,
		Fat:       n.FatG,
	}
}

// ScalingAudit 參考重量換算稽核紀錄
type ScalingAudit struct {
	ReferenceBasisGrams float64 `json:"reference_basis_grams"`
	ReferenceDesc       string  `json:"reference_description,omitempty"`
	ScaleFactor         float64 `json:"scale_factor"`
	Method              string  `json:"method"`
	Servings            float64 `json:"servings"`
}

// PerIngredientNutrition 單一食材在配方比例下的營養值與稽核資訊
// 每次請求重新計算
type PerIngredientNutrition struct {
	Nutrients
	Matched         bool          `json:"matched"`
	IsFallback      bool          `json:"is_fallback,omitempty"`
	FoodCode        string        `json:"food_code,omitempty"`
	MatchedFoodName string        `json:"matched_food_name,omitempty"`
	MatchMethod     string        `json:"match_method"`
	ConfidenceScore float64       `json:"confidence_score"`
	Grams           float64       `json:"grams"`
	Scaling         *ScalingAudit `json:"scaling,omitempty"`
}

// QualityPenalties 信心分數懲罰紀錄
type QualityPenalties struct {
	UnmatchedRatio          float64 `json:"unmatched_ratio"`
	UnmatchedPenaltyApplied bool    `json:"unmatched_penalty_applied"`
	EnergyCheckFail         bool    `json:"energy_check_fail"`
}

// UnmatchedIngredient 未匹配食材與建議替代名稱
type UnmatchedIngredient struct {
	Name        string   `json:"name"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// DataQuality 資料品質報告
type DataQuality struct {
	OverallConfidence    string                `json:"overall_confidence"`
	ConfidenceScore      float64               `json:"confidence_score"`
	Penalties            QualityPenalties      `json:"penalties"`
	UnmatchedIngredients []UnmatchedIngredient `json:"unmatched_or_low_confidence_ingredients"`
	MinimumsApplied      []string              `json:"minimums_applied,omitempty"`
}

// ConversionTrace 單位換算軌跡
type ConversionTrace struct {
	Ingredient   string  `json:"ingredient"`
	Quantity     float64 `json:"quantity"`
	Unit         string  `json:"unit"`
	StandardUnit string  `json:"standard_unit"`
	Category     string  `json:"category"`
	Grams        float64 `json:"grams"`
	AssumedGrams bool    `json:"assumed_grams,omitempty"`
}

// ConfidenceTrace 信心分數計算軌跡
type ConfidenceTrace struct {
	WeightedMean       float64 `json:"weighted_mean"`
	UnmatchedRatio     float64 `json:"unmatched_ratio"`
	ReportedCalories   float64 `json:"reported_calories"`
	CalculatedCalories float64 `json:"calculated_calories"`
	FinalScore         float64 `json:"final_score"`
}

// AuditLog 請求稽核日誌
type AuditLog struct {
	UnitConversions []ConversionTrace `json:"unit_conversions"`
	Confidence      ConfidenceTrace   `json:"confidence"`
}

// NutritionRequest 營養計算請求；份數可為小數（如 2.5 份）
type NutritionRequest struct {
	Ingredients []Ingredient `json:"ingredients"`
	Servings    float64      `json:"servings,omitempty"`
}

// NutritionResult 營養計算結果，回傳後即不再變動
type NutritionResult struct {
	Totals        NutritionTotals                   `json:"totals"`
	DataQuality   DataQuality                       `json:"data_quality"`
	PerIngredient map[string]PerIngredientNutrition `json:"per_ingredient"`
	AuditLog      AuditLog                          `json:"audit_log"`
	Servings      float64                           `json:"servings"`
}

// FormatIngredients 格式化食材列表（日誌用）
func FormatIngredients(ingredients []Ingredient) string {
	var sb strings.Builder
	for _, ing := range ingredients {
		sb.WriteString(fmt.Sprintf("- %s: %g %s\n", ing.Name.Value, ing.Quantity, ing.Unit))
	}
	return sb.String()
}
