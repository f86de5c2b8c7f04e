package nutrition

import (
	"strings"
	"unicode"
)

// Normalize 將原始食材名稱正規化以供匹配：
// 轉小寫、移除標點（保留逗號與連字號）、壓縮空白。
// 空輸入回傳空字串，呼叫端須視為自動未匹配。
func Normalize(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case r == ',' || r == '-':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}
