package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"nutrition-engine/internal/infrastructure/config"
	"nutrition-engine/internal/pkg/common"

	"go.uber.org/zap"
)

// Manager 對應快取管理器：記憶體熱層在前，Redis 持久層在後
// 快取僅為效能最佳化，不影響解析正確性
type Manager struct {
	config  *config.CacheConfig
	service *Service // 可為 nil（純記憶體模式）
	mu      sync.RWMutex
	store   map[string]cacheEntry
	stats   cacheStats
	done    chan struct{}
}

// cacheEntry 緩存條目
type cacheEntry struct {
	mapping     common.IngredientMapping
	expiresAt   time.Time
	createdAt   time.Time
	lastAccess  time.Time
	accessCount int
}

// cacheStats 緩存統計
type cacheStats struct {
	hits      int64
	misses    int64
	evictions int64
	errors    int64
}

// NewManager 創建對應快取管理器；快取停用時回傳 nil
func NewManager(cfg *config.CacheConfig, service *Service) *Manager {
	if !cfg.Enabled {
		common.LogInfo("Mapping cache disabled")
		return nil
	}

	m := &Manager{
		config:  cfg,
		service: service,
		store:   make(map[string]cacheEntry),
		done:    make(chan struct{}),
	}

	// 啟動清理過期緩存的協程
	go m.startCleanup()

	common.LogInfo("對應快取管理員已初始化",
		zap.Int("最大容量", cfg.MaxSize),
		zap.Duration("存活時間", cfg.TTL),
		zap.Duration("清理間隔", cfg.CleanupInterval),
		zap.Bool("redis_tier", service != nil && service.client != nil),
	)

	return m
}

// Get 讀取對應：先查記憶體，未命中再查 Redis 並回填
func (m *Manager) Get(ctx context.Context, normalizedText string) (*common.IngredientMapping, error) {
	if m == nil {
		return nil, common.ErrCacheDisabled
	}

	m.mu.Lock()
	if entry, exists := m.store[normalizedText]; exists {
		if time.Now().After(entry.expiresAt) {
			delete(m.store, normalizedText)
			m.stats.evictions++
		} else {
			entry.lastAccess = time.Now()
			entry.accessCount++
			m.store[normalizedText] = entry
			m.stats.hits++
			m.mu.Unlock()
			common.LogCacheHit("memory", normalizedText)
			mapping := entry.mapping
			return &mapping, nil
		}
	}
	m.stats.misses++
	m.mu.Unlock()

	// Redis 持久層
	if m.service != nil {
		mapping, err := m.service.Get(ctx, normalizedText)
		if err == nil {
			common.LogCacheHit("redis", normalizedText)
			m.setMemory(*mapping)
			return mapping, nil
		}
	}

	common.LogCacheMiss("mapping", normalizedText)
	return nil, common.ErrMappingNotFound
}

// Upsert 寫入對應（insert-or-replace），容忍併發重複寫入
func (m *Manager) Upsert(ctx context.Context, mapping common.IngredientMapping) error {
	if m == nil || mapping.NormalizedText == "" {
		return nil
	}

	m.setMemory(mapping)

	if m.service != nil {
		if err := m.service.Upsert(ctx, mapping); err != nil {
			// Redis 失敗只降低快取效益，不影響本次請求
			common.LogWarn("Redis 對應寫入失敗",
				zap.String("鍵", mapping.NormalizedText),
				zap.Error(err),
			)
			m.mu.Lock()
			m.stats.errors++
			m.mu.Unlock()
		}
	}
	return nil
}

// SimilarKeys 回傳與指定文字共享詞彙的既有快取鍵，供未匹配建議使用
func (m *Manager) SimilarKeys(normalizedText string, limit int) []string {
	if m == nil || normalizedText == "" {
		return nil
	}

	words := strings.Fields(normalizedText)
	if len(words) == 0 {
		return nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var keys []string
	now := time.Now()
	for key, entry := range m.store {
		if key == normalizedText || now.After(entry.expiresAt) {
			continue
		}
		for _, w := range words {
			if strings.Contains(key, w) {
				keys = append(keys, key)
				break
			}
		}
		if limit > 0 && len(keys) >= limit {
			break
		}
	}
	return keys
}

// setMemory 寫入記憶體層，必要時先清理再做 LRU 淘汰
func (m *Manager) setMemory(mapping common.IngredientMapping) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.store) >= m.config.MaxSize {
		evicted := m.cleanupLocked()
		if evicted > 0 {
			common.LogDebug("快取清理執行", zap.Int("清理數量", evicted))
		}
		for len(m.store) >= m.config.MaxSize {
			if !m.evictLRULocked() {
				break
			}
		}
	}

	now := time.Now()
	m.store[mapping.NormalizedText] = cacheEntry{
		mapping:    mapping,
		expiresAt:  now.Add(m.config.TTL),
		createdAt:  now,
		lastAccess: now,
	}
}

// startCleanup 啟動清理過期緩存的協程
func (m *Manager) startCleanup() {
	ticker := time.NewTicker(m.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.mu.Lock()
			count := m.cleanupLocked()
			m.mu.Unlock()
			if count > 0 {
				common.LogDebug("已清理過期快取", zap.Int("count", count))
			}
		case <-m.done:
			return
		}
	}
}

// cleanupLocked 清理過期的緩存，呼叫端須持有鎖
func (m *Manager) cleanupLocked() int {
	now := time.Now()
	count := 0
	for key, entry := range m.store {
		if now.After(entry.expiresAt) {
			delete(m.store, key)
			count++
			m.stats.evictions++
		}
	}
	return count
}

// evictLRULocked 淘汰最少使用的條目，呼叫端須持有鎖
func (m *Manager) evictLRULocked() bool {
	var oldestKey string
	var oldestAccess time.Time
	var lowestAccessCount int

	for key, entry := range m.store {
		if oldestKey == "" ||
			entry.accessCount < lowestAccessCount ||
			(entry.accessCount == lowestAccessCount && entry.lastAccess.Before(oldestAccess)) {
			oldestKey = key
			oldestAccess = entry.lastAccess
			lowestAccessCount = entry.accessCount
		}
	}

	if oldestKey == "" {
		return false
	}
	delete(m.store, oldestKey)
	m.stats.evictions++
	common.LogDebug("快取已淘汰(LRU)", zap.String("鍵", oldestKey))
	return true
}

// GetStats 獲取緩存統計信息
func (m *Manager) GetStats() map[string]interface{} {
	if m == nil {
		return nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	total := m.stats.hits + m.stats.misses
	hitRatio := 0.0
	if total > 0 {
		hitRatio = float64(m.stats.hits) / float64(total)
	}
	return map[string]interface{}{
		"size":      len(m.store),
		"max_size":  m.config.MaxSize,
		"hits":      m.stats.hits,
		"misses":    m.stats.misses,
		"evictions": m.stats.evictions,
		"errors":    m.stats.errors,
		"hit_ratio": hitRatio,
	}
}

// Close 關閉快取管理器
func (m *Manager) Close() error {
	if m == nil {
		return nil
	}

	close(m.done)

	m.mu.Lock()
	m.store = make(map[string]cacheEntry)
	hits, misses, evictions := m.stats.hits, m.stats.misses, m.stats.evictions
	m.mu.Unlock()

	common.LogInfo("對應快取管理員已關閉",
		zap.Int64("命中次數", hits),
		zap.Int64("未命中次數", misses),
		zap.Int64("淘汰次數", evictions),
	)

	if m.service != nil {
		return m.service.Close()
	}
	return nil
}
