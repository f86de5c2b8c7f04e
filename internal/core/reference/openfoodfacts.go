package reference

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"nutrition-engine/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// OpenFoodFactsClient Open Food Facts 搜尋客戶端
// 僅用於替未匹配食材產生建議名稱，失敗時靜默略過
type OpenFoodFactsClient struct {
	client *resty.Client
}

// NewOpenFoodFactsClient 創建 Open Food Facts 客戶端
func NewOpenFoodFactsClient(baseURL string) *OpenFoodFactsClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(5*time.Second).
		SetHeader("User-Agent", "nutrition-engine/1.0")

	return &OpenFoodFactsClient{client: client}
}

// offSearchResponse Open Food Facts 搜尋回應的最小子集
type offSearchResponse struct {
	Products []struct {
		ProductName   string `json:"product_name"`
		ProductNameEn string `json:"product_name_en"`
		GenericName   string `json:"generic_name"`
	} `json:"products"`
}

// SuggestNames 搜尋相近的產品名稱作為建議
func (c *OpenFoodFactsClient) SuggestNames(ctx context.Context, query string, limit int) []string {
	if limit <= 0 {
		limit = 3
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"search_terms":  query,
			"search_simple": "1",
			"action":        "process",
			"json":          "1",
			"page_size":     strconv.Itoa(limit),
		}).
		Get("/cgi/search.pl")

	if err != nil {
		common.LogWarn("Open Food Facts 查詢失敗",
			zap.String("query", query),
			zap.Error(err),
		)
		return nil
	}
	if resp.StatusCode() != http.StatusOK {
		common.LogWarn("Open Food Facts 回應異常",
			zap.String("query", query),
			zap.Int("status", resp.StatusCode()),
		)
		return nil
	}

	var result offSearchResponse
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		common.LogWarn("Open Food Facts 回應解析失敗", zap.Error(err))
		return nil
	}

	var names []string
	seen := make(map[string]bool)
	for _, p := range result.Products {
		// 名稱優先序：product_name → product_name_en → generic_name
		name := p.ProductName
		if name == "" {
			name = p.ProductNameEn
		}
		if name == "" {
			name = p.GenericName
		}
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
		if len(names) >= limit {
			break
		}
	}
	return names
}
