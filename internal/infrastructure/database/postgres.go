package database

import (
	"context"
	"fmt"
	"time"

	"nutrition-engine/internal/infrastructure/config"
	"nutrition-engine/internal/pkg/common"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// NewPostgresPool 建立 PostgreSQL 連線池，附帶指數退避重試
func NewPostgresPool(ctx context.Context, cfg *config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	retries := cfg.ConnectRetries
	if retries <= 0 {
		retries = 1
	}
	pingTimeout := cfg.ConnectTimeout
	if pingTimeout <= 0 {
		pingTimeout = 5 * time.Second
	}

	var pool *pgxpool.Pool
	for i := 1; i <= retries; i++ {
		pool, err = pgxpool.NewWithConfig(ctx, poolCfg)
		if err == nil {
			pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
			pingErr := pool.Ping(pingCtx)
			cancel()
			if pingErr == nil {
				common.LogInfo("資料庫連線成功",
					zap.Int("attempt", i),
					zap.Int32("max_conns", poolCfg.MaxConns),
				)
				return pool, nil
			}
			pool.Close()
			err = pingErr
		}

		common.LogWarn("資料庫連線失敗",
			zap.Int("attempt", i),
			zap.Error(err),
		)

		// 指數退避：1, 2, 4, 8 秒...上限 10 秒
		waitTime := time.Duration(1<<uint(i-1)) * time.Second
		if waitTime > 10*time.Second {
			waitTime = 10 * time.Second
		}
		select {
		case <-time.After(waitTime):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", retries, err)
}
