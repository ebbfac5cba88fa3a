package health

import (
	"context"
	"time"

	"github.com/taoyao-code/panel-relay/internal/relay"
)

// LinkChecker 对端链路健康检查器。
// 无对端链路是正常待机态，报告 Degraded 而非 Unhealthy。
type LinkChecker struct {
	bridge *relay.Bridge
}

// NewLinkChecker 创建链路健康检查器
func NewLinkChecker(bridge *relay.Bridge) *LinkChecker {
	return &LinkChecker{bridge: bridge}
}

// Name 返回检查器名称
func (c *LinkChecker) Name() string {
	return "link"
}

// Check 执行健康检查
func (c *LinkChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()

	snap := c.bridge.Snapshot()

	if !snap.LinkUp {
		return CheckResult{
			Status:  StatusDegraded,
			Message: "no peer link",
			Details: map[string]interface{}{
				"power_on": snap.PowerOn,
			},
			Latency: time.Since(start),
		}
	}

	details := map[string]interface{}{
		"session_id": snap.SessionID,
		"peer_addr":  snap.PeerAddr,
		"power_on":   snap.PowerOn,
		"forwarded": snap.PanelToPeer.ValidFrames +
			snap.PeerToPanel.ValidFrames,
		"invalid": snap.PanelToPeer.InvalidFrames +
			snap.PeerToPanel.InvalidFrames,
		"write_errors": snap.PanelToPeer.WriteErrors +
			snap.PeerToPanel.WriteErrors,
	}
	if snap.StartedAt != nil {
		details["uptime"] = time.Since(*snap.StartedAt).Truncate(time.Second).String()
	}

	// 持续出现写错误说明某一侧通道已劣化
	status := StatusHealthy
	message := "ok"
	if snap.PanelToPeer.WriteErrors+snap.PeerToPanel.WriteErrors > 0 {
		status = StatusDegraded
		message = "write errors on active link"
	}

	return CheckResult{
		Status:  status,
		Message: message,
		Details: details,
		Latency: time.Since(start),
	}
}
