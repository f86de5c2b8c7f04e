package nutrition

import (
	"errors"
	"net/http"

	nutritionService "nutrition-engine/internal/core/nutrition"
	"nutrition-engine/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler 營養計算處理程序
type Handler struct {
	service *nutritionService.Service
}

// NewHandler 創建新的營養計算處理程序
func NewHandler(service *nutritionService.Service) *Handler {
	return &Handler{service: service}
}

// ConvertRequest 單位換算請求
type ConvertRequest struct {
	Quantity float64 `json:"quantity" binding:"required"`
	Unit     string  `json:"unit" binding:"required"`
	Name     string  `json:"name" binding:"required"` // 食材名稱，決定換算類別
}

// ConvertResponse 單位換算結果
type ConvertResponse struct {
	Grams        float64 `json:"grams"`
	StandardUnit string  `json:"standard_unit"`
	Category     string  `json:"category"`
	AssumedGrams bool    `json:"assumed_grams,omitempty"`
}

// HandleCalculate 計算食材清單的營養總和
func (h *Handler) HandleCalculate(c *gin.Context) {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = common.GenerateUUID()
		c.Header("X-Request-ID", requestID)
	}

	common.LogInfo("開始處理營養計算請求",
		zap.String("request_id", requestID),
		zap.String("client_ip", c.ClientIP()),
	)

	var req common.NutritionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.LogWarn("請求格式無效",
			zap.Error(err),
			zap.String("request_id", requestID),
		)
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request format",
			"code":  common.ErrCodeInvalidRequest,
		})
		return
	}

	result, err := h.service.Calculate(c.Request.Context(), &req)
	if err != nil {
		var customErr *common.CustomError
		if errors.As(err, &customErr) {
			c.JSON(customErr.Status, gin.H{
				"error": customErr.Message,
				"code":  customErr.Code,
			})
			return
		}
		common.LogError("營養計算失敗",
			zap.Error(err),
			zap.String("request_id", requestID),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Nutrition calculation failed",
			"code":  common.ErrCodeInternalError,
		})
		return
	}

	c.JSON(http.StatusOK, result)
}

// HandleConvert 將數量與單位換算為公克
func (h *Handler) HandleConvert(c *gin.Context) {
	var req ConvertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request format",
			"code":  common.ErrCodeInvalidRequest,
		})
		return
	}

	if req.Quantity < 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Quantity must not be negative",
			"code":  common.ErrCodeInvalidRequest,
		})
		return
	}

	conv := nutritionService.ConvertToGrams(req.Quantity, req.Unit, nutritionService.Normalize(req.Name))
	c.JSON(http.StatusOK, ConvertResponse{
		Grams:        conv.Grams,
		StandardUnit: conv.StandardUnit,
		Category:     conv.Category,
		AssumedGrams: conv.Assumed,
	})
}
