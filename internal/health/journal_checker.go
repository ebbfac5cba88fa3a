package health

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// JournalChecker 事件日志数据库健康检查器
type JournalChecker struct {
	db *gorm.DB
}

// NewJournalChecker 创建数据库健康检查器
func NewJournalChecker(db *gorm.DB) *JournalChecker {
	return &JournalChecker{db: db}
}

// Name 返回检查器名称
func (c *JournalChecker) Name() string {
	return "journal"
}

// Check 执行健康检查
func (c *JournalChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()

	sqlDB, err := c.db.DB()
	if err != nil {
		return CheckResult{
			Status:  StatusUnhealthy,
			Message: fmt.Sprintf("pool unavailable: %v", err),
			Latency: time.Since(start),
		}
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		return CheckResult{
			Status:  StatusUnhealthy,
			Message: fmt.Sprintf("ping failed: %v", err),
			Latency: time.Since(start),
		}
	}

	stats := sqlDB.Stats()

	// 连接池利用率
	utilization := 0.0
	if stats.MaxOpenConnections > 0 {
		utilization = float64(stats.InUse) / float64(stats.MaxOpenConnections)
	}

	status := StatusHealthy
	message := "ok"
	if utilization > 0.9 {
		status = StatusDegraded
		message = "connection pool near limit"
	}

	return CheckResult{
		Status:  status,
		Message: message,
		Details: map[string]interface{}{
			"open_conns":  stats.OpenConnections,
			"in_use":      stats.InUse,
			"idle":        stats.Idle,
			"max_conns":   stats.MaxOpenConnections,
			"utilization": fmt.Sprintf("%.1f%%", utilization*100),
		},
		Latency: time.Since(start),
	}
}
