package reference

import (
	"context"
	"sort"
	"strings"
	"sync"

	"nutrition-engine/internal/pkg/common"
)

// MemoryStore 記憶體參考資料庫，測試替身與離線開發用
type MemoryStore struct {
	mu      sync.RWMutex
	records []common.FoodRecord
}

// NewMemoryStore 創建記憶體參考資料庫
func NewMemoryStore(records ...common.FoodRecord) *MemoryStore {
	return &MemoryStore{records: records}
}

// Add 加入一筆食品紀錄
func (s *MemoryStore) Add(rec common.FoodRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
}

// FindByCode 以食品代碼查詢
func (s *MemoryStore) FindByCode(ctx context.Context, code string) (*common.FoodRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rec := range s.records {
		if rec.FoodCode == code {
			r := rec
			return &r, nil
		}
	}
	return nil, common.ErrFoodNotFound
}

// FindByExactName 以名稱做不分大小寫的精確查詢
func (s *MemoryStore) FindByExactName(ctx context.Context, name string) (*common.FoodRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rec := range s.records {
		if strings.EqualFold(rec.FoodName, name) {
			r := rec
			return &r, nil
		}
	}
	return nil, common.ErrFoodNotFound
}

// FindByNameContaining 查詢名稱包含指定片語的任一食品，偏好較短的名稱
func (s *MemoryStore) FindByNameContaining(ctx context.Context, token string) (*common.FoodRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	token = strings.ToLower(token)
	var best *common.FoodRecord
	for i := range s.records {
		rec := s.records[i]
		if !strings.Contains(strings.ToLower(rec.FoodName), token) {
			continue
		}
		if best == nil || len(rec.FoodName) < len(best.FoodName) {
			r := rec
			best = &r
		}
	}
	if best == nil {
		return nil, common.ErrFoodNotFound
	}
	return best, nil
}

// SearchSimilar 以 trigram 相似度搜尋（與 pg_trgm 同一量度）
func (s *MemoryStore) SearchSimilar(ctx context.Context, query string, threshold float64, limit int) ([]SimilarFood, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []SimilarFood
	for _, rec := range s.records {
		sim := TrigramSimilarity(strings.ToLower(query), strings.ToLower(rec.FoodName))
		if sim >= threshold {
			results = append(results, SimilarFood{Record: rec, Similarity: sim})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// TrigramSimilarity 計算兩字串的 trigram 相似度 ∈ [0,1]
// 與 pg_trgm 相同：每個詞前補兩個空白、後補一個空白後取三字組
func TrigramSimilarity(a, b string) float64 {
	ta := trigrams(a)
	tb := trigrams(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	shared := 0
	for t := range ta {
		if tb[t] {
			shared++
		}
	}
	union := len(ta) + len(tb) - shared
	if union == 0 {
		return 0
	}
	return float64(shared) / float64(union)
}

func trigrams(s string) map[string]bool {
	set := make(map[string]bool)
	for _, word := range strings.Fields(s) {
		padded := "  " + word + " "
		for i := 0; i+3 <= len(padded); i++ {
			set[padded[i:i+3]] = true
		}
	}
	return set
}
