package nutrition

import (
	"strings"
)

// measurementWords 匹配前應剔除的計量詞
var measurementWords = map[string]bool{
	"cup": true, "cups": true,
	"tbsp": true, "tbsps": true, "tablespoon": true, "tablespoons": true,
	"tsp": true, "tsps": true, "teaspoon": true, "teaspoons": true,
	"oz": true, "ozs": true, "ounce": true, "ounces": true,
	"lb": true, "lbs": true, "pound": true, "pounds": true,
	"g": true, "gram": true, "grams": true,
	"kg": true, "kilogram": true, "kilograms": true,
	"ml": true, "milliliter": true, "milliliters": true,
	"l": true, "liter": true, "liters": true,
}

// modifierWords 處理方式與鮮度修飾詞
var modifierWords = map[string]bool{
	"fresh": true, "dried": true, "frozen": true, "canned": true,
	"cooked": true, "raw": true, "chopped": true, "minced": true,
	"sliced": true, "diced": true, "ground": true, "grated": true,
	"shredded": true, "whole": true,
}

// substitution 已知替代名稱
type substitution struct {
	phrase      string
	replacement string
}

// substitutions 替代詞典，以子字串取代套用；順序即嘗試順序
var substitutions = []substitution{
	{"bell pepper", "sweet pepper"},
	{"bell pepper", "capsicum"},
	{"cilantro", "coriander"},
	{"coriander", "cilantro"},
	{"zucchini", "courgette"},
	{"courgette", "zucchini"},
	{"eggplant", "aubergine"},
	{"scallion", "spring onion"},
	{"garbanzo bean", "chickpea"},
	{"arugula", "rocket"},
	{"shrimp", "prawn"},
	{"powdered sugar", "icing sugar"},
	{"cornstarch", "cornflour"},
}

// Aliases 為正規化文字產生候選匹配字串，依序排列且去重。
// 第一項永遠是輸入本身；匹配器依序嘗試並在首個命中時返回。
func Aliases(normalized string) []string {
	if normalized == "" {
		return nil
	}

	var out []string
	seen := make(map[string]bool)
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			return
		}
		seen[s] = true
		out = append(out, s)
	}

	add(normalized)

	// 剔除計量詞
	add(removeWords(normalized, measurementWords))

	// 剔除修飾詞
	add(removeWords(normalized, modifierWords))

	// 恰為兩個詞時倒轉順序
	words := strings.Fields(normalized)
	if len(words) == 2 {
		add(words[1] + " " + words[0])
	}

	// 替代詞典：關鍵片語出現時以子字串取代
	for _, sub := range substitutions {
		if strings.Contains(normalized, sub.phrase) {
			add(strings.ReplaceAll(normalized, sub.phrase, sub.replacement))
		}
	}

	return out
}

// removeWords 移除指定詞集合中的詞
func removeWords(s string, drop map[string]bool) string {
	var kept []string
	for _, w := range strings.Fields(s) {
		if !drop[strings.Trim(w, ",")] {
			kept = append(kept, w)
		}
	}
	return strings.Join(kept, " ")
}
