package reference

import (
	"context"

	"nutrition-engine/internal/pkg/common"
)

// SimilarFood 相似度搜尋結果
type SimilarFood struct {
	Record     common.FoodRecord
	Similarity float64
}

// FoodStore 參考食品資料庫查詢介面
// 匹配器透過建構子注入，便於測試替身
type FoodStore interface {
	// FindByCode 以食品代碼查詢
	FindByCode(ctx context.Context, code string) (*common.FoodRecord, error)

	// FindByExactName 以名稱做不分大小寫的精確查詢
	FindByExactName(ctx context.Context, name string) (*common.FoodRecord, error)

	// FindByNameContaining 查詢名稱包含指定片語的任一食品
	FindByNameContaining(ctx context.Context, token string) (*common.FoodRecord, error)

	// SearchSimilar 以 trigram 相似度搜尋，回傳依相似度排序的候選
	SearchSimilar(ctx context.Context, query string, threshold float64, limit int) ([]SimilarFood, error)
}
