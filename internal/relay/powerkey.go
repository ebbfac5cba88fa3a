package relay

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// EdgeWaiter 可等待的边沿事件源（GPIO 电源键）
type EdgeWaiter interface {
	Wait(ctx context.Context) (int, error)
}

// waitErrorBackoff 边沿等待出错后的退避
const waitErrorBackoff = time.Second

// WatchPowerKey 循环等待电源键下降沿，每次按键翻转电源状态并向对端
// 发送电源消息。Wait 是阻塞调用，本函数必须独占一个 goroutine，
// 绝不与帧中继循环同线程。ctx 取消后返回。
func (b *Bridge) WatchPowerKey(ctx context.Context, w EdgeWaiter) {
	for {
		if _, err := w.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			b.log.Warn("power key wait", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(waitErrorBackoff):
			}
			continue
		}

		on, err := b.TogglePower("gpio")
		switch {
		case errors.Is(err, ErrNoLink):
			// 没有对端也要维持本地状态机，消息丢弃即可
			b.log.Debug("power key pressed with no peer link", zap.Bool("on", on))
		case err != nil:
			b.log.Error("power key relay", zap.Bool("on", on), zap.Error(err))
		default:
			b.log.Info("power key pressed", zap.Bool("on", on))
		}
	}
}
