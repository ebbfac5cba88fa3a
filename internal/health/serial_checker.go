package health

import (
	"context"
	"fmt"
	"os"
	"time"
)

// SerialChecker 串口设备健康检查器
type SerialChecker struct {
	device string
}

// NewSerialChecker 创建串口健康检查器
func NewSerialChecker(device string) *SerialChecker {
	return &SerialChecker{device: device}
}

// Name 返回检查器名称
func (c *SerialChecker) Name() string {
	return "serial"
}

// Check 执行健康检查
func (c *SerialChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()

	// 设备节点消失（USB 转串口拔出等）视为不健康
	info, err := os.Stat(c.device)
	if err != nil {
		return CheckResult{
			Status:  StatusUnhealthy,
			Message: fmt.Sprintf("device unavailable: %v", err),
			Details: map[string]interface{}{
				"device": c.device,
			},
			Latency: time.Since(start),
		}
	}

	return CheckResult{
		Status:  StatusHealthy,
		Message: "ok",
		Details: map[string]interface{}{
			"device": c.device,
			"mode":   info.Mode().String(),
		},
		Latency: time.Since(start),
	}
}
