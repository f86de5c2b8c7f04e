package cache

import (
	"context"
	"fmt"

	"nutrition-engine/internal/infrastructure/config"
	"nutrition-engine/internal/pkg/common"

	"github.com/go-redis/redis/v8"
)

// Service Redis 對應快取服務（持久層）
type Service struct {
	client *redis.Client
	config *config.CacheConfig
}

// NewService 創建 Redis 對應快取服務
func NewService(cfg *config.CacheConfig) (*Service, error) {
	if !cfg.Enabled {
		return &Service{config: cfg}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	// 測試連接
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Service{
		client: client,
		config: cfg,
	}, nil
}

// Get 讀取對應快取
func (s *Service) Get(ctx context.Context, normalizedText string) (*common.IngredientMapping, error) {
	if !s.config.Enabled || s.client == nil {
		return nil, common.ErrCacheDisabled
	}

	data, err := s.client.Get(ctx, s.key(normalizedText)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, common.ErrMappingNotFound
		}
		return nil, fmt.Errorf("failed to get mapping: %w", err)
	}

	var mapping common.IngredientMapping
	if err := common.ParseJSONBytes(data, &mapping); err != nil {
		return nil, fmt.Errorf("failed to unmarshal mapping: %w", err)
	}
	return &mapping, nil
}

// Upsert 寫入對應快取（後寫者勝）
func (s *Service) Upsert(ctx context.Context, mapping common.IngredientMapping) error {
	if !s.config.Enabled || s.client == nil {
		return nil
	}

	data, err := common.ToJSON(mapping)
	if err != nil {
		return fmt.Errorf("failed to marshal mapping: %w", err)
	}

	if err := s.client.Set(ctx, s.key(mapping.NormalizedText), data, s.config.TTL).Err(); err != nil {
		return fmt.Errorf("failed to set mapping: %w", err)
	}
	return nil
}

// Close 關閉 Redis 連線
func (s *Service) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}

// key 生成快取鍵
func (s *Service) key(normalizedText string) string {
	return fmt.Sprintf("mapping:%s", normalizedText)
}
