package gpio

import (
	"context"
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// pollTick 单次 poll 的超时，用于周期性检查取消信号
const pollTick = 500 * time.Millisecond

// PowerKey 物理电源键传感器：低有效输入脚，下降沿触发。
// Wait 是阻塞调用，必须跑在独立 goroutine 上，绝不与帧中继共线程。
type PowerKey struct {
	fs  *Sysfs
	pin int
	f   *os.File
}

// InitPowerKey 幂等导出并配置电源键输入脚
// （direction=in、active_low=1、edge=falling），返回可等待的句柄。
func InitPowerKey(fs *Sysfs, pin int) (*PowerKey, error) {
	if err := fs.Export(pin); err != nil {
		return nil, err
	}
	if err := fs.SetDirection(pin, In); err != nil {
		return nil, err
	}
	if err := fs.SetActiveLow(pin, true); err != nil {
		return nil, err
	}
	if err := fs.SetEdge(pin, EdgeFalling); err != nil {
		return nil, err
	}
	f, err := os.Open(fs.ValuePath(pin))
	if err != nil {
		return nil, fmt.Errorf("open gpio%d value: %w", pin, err)
	}
	return &PowerKey{fs: fs, pin: pin, f: f}, nil
}

// Pin 返回传感器占用的引脚号
func (p *PowerKey) Pin() int { return p.pin }

// Wait 阻塞等待一次边沿事件，返回事件后的电平值。
// sysfs 的边沿通知通过 value 文件的 POLLPRI 送达；
// 每个 pollTick 醒来一次检查 ctx。
func (p *PowerKey) Wait(ctx context.Context) (int, error) {
	// 先消费一次当前值，清掉可能悬挂的就绪状态
	if _, err := p.f.Seek(0, 0); err != nil {
		return 0, err
	}
	buf := make([]byte, 8)
	_, _ = p.f.Read(buf)

	fds := []unix.PollFd{{Fd: int32(p.f.Fd()), Events: unix.POLLPRI | unix.POLLERR}}
	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		n, err := unix.Poll(fds, int(pollTick.Milliseconds()))
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return 0, fmt.Errorf("gpio%d poll: %w", p.pin, err)
		}
		if n == 0 {
			continue // 超时，回到循环顶检查取消
		}
		if fds[0].Revents&(unix.POLLPRI|unix.POLLERR) != 0 {
			if _, err := p.f.Seek(0, 0); err != nil {
				return 0, err
			}
			m, err := p.f.Read(buf)
			if err != nil || m == 0 {
				return 0, fmt.Errorf("gpio%d read after edge: %w", p.pin, err)
			}
			if buf[0] == '1' {
				return 1, nil
			}
			return 0, nil
		}
	}
}

// Close 释放 value 文件描述符
func (p *PowerKey) Close() error { return p.f.Close() }
