package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"nutrition-engine/internal/api"
	"nutrition-engine/internal/core/nutrition"
	"nutrition-engine/internal/core/nutrition/cache"
	"nutrition-engine/internal/core/nutrition/queue"
	"nutrition-engine/internal/core/reference"
	"nutrition-engine/internal/infrastructure/config"
	"nutrition-engine/internal/infrastructure/database"
	"nutrition-engine/internal/pkg/common"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// 載入 .env
	if err := godotenv.Load(); err != nil {
		fmt.Println("Warning: .env file not found")
	}

	// 載入設定
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化 logger（需在載入 config 後）
	if err := common.InitLogger(cfg.LogLevel); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer common.Sync()

	// 連接參考食品資料庫
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, &cfg.Database)
	if err != nil {
		common.LogFatal("Failed to connect to reference database", zap.Error(err))
	}
	defer pool.Close()

	store := reference.NewPostgresStore(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		common.LogFatal("Failed to ensure reference schema", zap.Error(err))
	}

	// 初始化對應快取（Redis 不可用時退回純記憶體）
	var cacheService *cache.Service
	if cfg.Cache.Enabled {
		cacheService, err = cache.NewService(&cfg.Cache)
		if err != nil {
			common.LogWarn("Redis unavailable, mapping cache falls back to memory only", zap.Error(err))
			cacheService = nil
		}
	}
	cacheManager := cache.NewManager(&cfg.Cache, cacheService)
	defer cacheManager.Close()

	// 初始化隊列管理器
	queueManager := queue.NewManager(cfg.Resolver.Workers, cfg.Resolver.QueueSize)
	queueManager.Start()
	defer queueManager.Close()

	// 建議查詢用的遠端食品資料庫客戶端
	var remote *reference.OpenFoodFactsClient
	if cfg.Resolver.RemoteSuggestions {
		remote = reference.NewOpenFoodFactsClient(cfg.Resolver.OpenFoodFactsURL)
	}

	// 組裝營養計算服務
	matcher := nutrition.NewMatcher(store, cacheManager, &cfg.Resolver)
	service := nutrition.NewService(cfg, matcher, cacheManager, queueManager, remote)

	// 設置路由
	router, err := api.SetupRouter(cfg, service, pool)
	if err != nil {
		common.LogError("Failed to setup router", zap.Error(err))
		os.Exit(1)
	}

	// 設置 HTTP 服務器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// 啟動服務器
	go func() {
		common.LogInfo("啟動應用",
			zap.String("version", cfg.App.Version),
			zap.String("env", cfg.App.Env),
			zap.Bool("debug", cfg.App.Debug),
			zap.Int("port", cfg.Server.Port),
		)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			common.LogError("Failed to start server",
				zap.Error(err),
			)
			os.Exit(1)
		}
	}()

	// 等待中斷信號
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	common.LogInfo("Shutting down server...")

	// 設置關閉超時
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		common.LogError("Server forced to shutdown",
			zap.Error(err),
		)
		os.Exit(1)
	}

	common.LogInfo("Server exited")
}
