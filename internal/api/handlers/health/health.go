package health

import (
	"context"
	"net/http"
	"runtime"
	"time"

	nutritionService "nutrition-engine/internal/core/nutrition"
	"nutrition-engine/internal/infrastructure/config"
	"nutrition-engine/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Pinger 就緒檢查用的連線探測
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler 健康檢查處理程序
type Handler struct {
	cfg     *config.Config
	service *nutritionService.Service
	store   Pinger // 可為 nil（記憶體參考資料）
}

// NewHandler 創建健康檢查處理程序
func NewHandler(cfg *config.Config, service *nutritionService.Service, store Pinger) *Handler {
	return &Handler{
		cfg:     cfg,
		service: service,
		store:   store,
	}
}

// HealthResponse 健康檢查響應
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime"`
	Queue     interface{}            `json:"queue,omitempty"`
	Cache     map[string]interface{} `json:"cache,omitempty"`
}

// HealthCheck 健康檢查處理器
func (h *Handler) HealthCheck(c *gin.Context) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	response := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   h.cfg.App.Version,
		Runtime: map[string]interface{}{
			"goroutines": runtime.NumGoroutine(),
			"memory": map[string]interface{}{
				"alloc":       m.Alloc,
				"total_alloc": m.TotalAlloc,
				"sys":         m.Sys,
				"num_gc":      m.NumGC,
			},
		},
		Cache: h.service.CacheStats(),
	}
	if status := h.service.QueueStatus(); status != nil {
		response.Queue = status
	}

	common.LogDebug("Health check request",
		zap.String("client_ip", c.ClientIP()),
		zap.String("path", c.Request.URL.Path),
	)

	c.JSON(http.StatusOK, response)
}

// ReadinessCheck 就緒檢查處理器：確認參考資料庫可連線
func (h *Handler) ReadinessCheck(c *gin.Context) {
	if h.store != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.store.Ping(ctx); err != nil {
			common.LogWarn("就緒檢查失敗：參考資料庫無法連線", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "not_ready",
				"reason": "reference database unreachable",
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
	})
}

// LivenessCheck 存活檢查處理器
func (h *Handler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}
