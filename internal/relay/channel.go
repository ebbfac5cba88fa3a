package relay

import (
	"encoding/hex"
	"io"
	"net"
	"sync"

	"github.com/goburrow/serial"
	"go.uber.org/zap"
)

// lockedReadWriter 序列化 Write：同一通道可能同时收到另一方向的
// 握手应答、转发帧、保活与电源消息，帧必须整帧落线不可交织。
// Read 不加锁（每通道只有一个读者）。
type lockedReadWriter struct {
	mu *sync.Mutex
	rw io.ReadWriter
}

func (l *lockedReadWriter) Read(p []byte) (int, error) { return l.rw.Read(p) }

func (l *lockedReadWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rw.Write(p)
}

// retryReadWriter 把带读超时的通道适配成阻塞语义：
// 超时在本层吞掉并重试，核心协议层只见到真实数据、真实错误或 EOF。
// done 关闭后下一次超时即返回 EOF，处置循环得以冲刷缓冲并退出。
// failed 记录不可恢复的读错误，供处置循环判定拆链路；
// 只被所属方向的 goroutine 访问，不需要原子操作。
type retryReadWriter struct {
	rw     io.ReadWriter
	done   <-chan struct{}
	failed bool
}

func (c *retryReadWriter) Read(p []byte) (int, error) {
	for {
		n, err := c.rw.Read(p)
		if n > 0 || err == nil {
			return n, err
		}
		if !isTimeout(err) {
			if err != io.EOF {
				c.failed = true
			}
			return 0, err
		}
		select {
		case <-c.done:
			return 0, io.EOF
		default:
		}
	}
}

func (c *retryReadWriter) Write(p []byte) (int, error) { return c.rw.Write(p) }

// traceReadWriter 在 debug 级别把每次写出的帧以十六进制落日志。
// Check 先行，非 debug 级别时零开销。
type traceReadWriter struct {
	rw   io.ReadWriter
	log  *zap.Logger
	name string
}

func (t *traceReadWriter) Read(p []byte) (int, error) { return t.rw.Read(p) }

func (t *traceReadWriter) Write(p []byte) (int, error) {
	if ce := t.log.Check(zap.DebugLevel, "channel write"); ce != nil {
		ce.Write(zap.String("channel", t.name), zap.String("hex", hex.EncodeToString(p)))
	}
	return t.rw.Write(p)
}

func isTimeout(err error) bool {
	if err == serial.ErrTimeout {
		return true
	}
	if ne, ok := err.(net.Error); ok && ne.Timeout() {
		return true
	}
	return false
}
