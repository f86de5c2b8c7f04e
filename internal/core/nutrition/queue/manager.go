package queue

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"nutrition-engine/internal/pkg/common"

	"go.uber.org/zap"
)

// Task 可排入隊列的工作單元
type Task func(ctx context.Context)

// request 隊列請求
type request struct {
	ctx  context.Context
	task Task
}

// Status 隊列狀態
type Status struct {
	QueueLength    int `json:"queue_length"`
	ProcessedCount int `json:"processed_count"`
	MaxQueueSize   int `json:"max_queue_size"`
	Workers        int `json:"workers"`
}

// Manager 隊列管理器：固定數量的工作協程消化背景工作
// 隊列滿時 Submit 立即回錯，由呼叫端決定改為同步執行
type Manager struct {
	workers   int
	maxSize   int
	queue     chan request
	done      chan struct{}
	processed int64
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewManager 創建新的隊列管理器
func NewManager(workers, maxSize int) *Manager {
	if workers <= 0 {
		workers = 1
	}
	if maxSize <= 0 {
		maxSize = 1
	}
	return &Manager{
		workers: workers,
		maxSize: maxSize,
		queue:   make(chan request, maxSize),
		done:    make(chan struct{}),
	}
}

// Start 啟動工作協程
func (m *Manager) Start() {
	for i := 0; i < m.workers; i++ {
		m.wg.Add(1)
		go m.worker(i)
	}
	common.LogInfo("隊列管理員已啟動",
		zap.Int("workers", m.workers),
		zap.Int("max_queue_size", m.maxSize),
	)
}

// worker 持續取出工作執行直到關閉
func (m *Manager) worker(id int) {
	defer m.wg.Done()
	for {
		select {
		case req, ok := <-m.queue:
			if !ok {
				return
			}
			m.run(id, req)
		case <-m.done:
			return
		}
	}
}

// run 執行單一工作並攔截 panic，避免拖垮工作協程
func (m *Manager) run(id int, req request) {
	defer func() {
		if r := recover(); r != nil {
			common.LogError("背景工作發生 panic",
				zap.Int("worker", id),
				zap.Any("panic", r),
			)
		}
	}()

	req.task(req.ctx)
	atomic.AddInt64(&m.processed, 1)
}

// Submit 將工作加入隊列
func (m *Manager) Submit(ctx context.Context, task Task) error {
	select {
	case <-m.done:
		return fmt.Errorf("queue manager is closed")
	default:
	}

	if len(m.queue) >= m.maxSize {
		return fmt.Errorf("queue is full")
	}

	select {
	case m.queue <- request{ctx: ctx, task: task}:
		common.LogDebug("背景工作已入列", zap.Int("queue_length", len(m.queue)))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-m.done:
		return fmt.Errorf("queue manager is closed")
	}
}

// GetStatus 獲取隊列狀態
func (m *Manager) GetStatus() *Status {
	return &Status{
		QueueLength:    len(m.queue),
		ProcessedCount: int(atomic.LoadInt64(&m.processed)),
		MaxQueueSize:   m.maxSize,
		Workers:        m.workers,
	}
}

// Close 關閉隊列管理器並等待工作協程退出
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		close(m.done)
		m.wg.Wait()
		common.LogInfo("隊列管理員已關閉",
			zap.Int64("processed", atomic.LoadInt64(&m.processed)),
		)
	})
}
