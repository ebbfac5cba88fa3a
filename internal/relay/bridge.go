// Package relay 把面板串口与一条对端 TCP 链路桥接起来：
// 每个方向一个帧缓冲、一个 goroutine，循环执行 读取→分类→处置；
// 保活/握手在本端模拟，电源键事件转成电源消息发往对端。
package relay

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/taoyao-code/panel-relay/internal/metrics"
	"github.com/taoyao-code/panel-relay/internal/protocol"
)

// 方向标签（指标与统计共用）
const (
	DirPanelToPeer = "panel_to_peer"
	DirPeerToPanel = "peer_to_panel"
)

// ErrNoLink 当前没有对端链路
var ErrNoLink = errors.New("relay: no peer link")

// Journal 链路与电源事件的落库能力（可选，nil 安全）
type Journal interface {
	LinkStarted(ctx context.Context, id, peerAddr string, at time.Time) error
	LinkEnded(ctx context.Context, id string, at time.Time, panelToPeer, peerToPanel protocol.Stats) error
	PowerEvent(ctx context.Context, source string, on bool, at time.Time) error
}

// Options 桥接器可选项
type Options struct {
	BufferSize        int
	KeepaliveInterval time.Duration // <=0 关闭保活发送
	Journal           Journal
}

// Bridge 帧中继桥。串口是常驻端点，对端链路随 TCP 接入建立、随 EOF 拆除。
type Bridge struct {
	log    *zap.Logger
	m      *metrics.AppMetrics
	serial io.ReadWriter
	opts   Options

	mu      sync.Mutex
	session *session

	powerMu sync.Mutex
	powerOn bool
}

// session 一条对端链路的存续状态
type session struct {
	id        string
	peerAddr  string
	startedAt time.Time
	conn      net.Conn
	wmu       sync.Mutex // 序列化对 conn 的带外写（电源消息/保活以外的注入）
	up        *dirState  // panel → peer
	down      *dirState  // peer → panel
}

// New 创建桥接器。serial 为已打开的面板串口通道；
// 串口写入方（握手应答、转发、保活）不止一个，统一加写锁。
func New(serial io.ReadWriter, log *zap.Logger, m *metrics.AppMetrics, opts Options) *Bridge {
	if opts.BufferSize <= 0 {
		opts.BufferSize = protocol.DefaultBufferSize
	}
	locked := &lockedReadWriter{mu: &sync.Mutex{}, rw: serial}
	traced := &traceReadWriter{rw: locked, log: log, name: "serial"}
	return &Bridge{log: log, m: m, serial: traced, opts: opts}
}

// HandleLink 处理一条对端链路，阻塞到链路结束。供 tcpserver 作为回调安装。
func (b *Bridge) HandleLink(conn net.Conn) {
	s := &session{
		id:        uuid.NewString(),
		peerAddr:  conn.RemoteAddr().String(),
		startedAt: time.Now(),
		conn:      conn,
		up:        newDirState(DirPanelToPeer),
		down:      newDirState(DirPeerToPanel),
	}

	b.mu.Lock()
	b.session = s
	b.mu.Unlock()

	b.log.Info("peer link up",
		zap.String("session", s.id),
		zap.String("peer", s.peerAddr))
	if b.m != nil {
		b.m.LinkUp.Set(1)
	}
	if b.opts.Journal != nil {
		if err := b.opts.Journal.LinkStarted(context.Background(), s.id, s.peerAddr, s.startedAt); err != nil {
			b.log.Warn("journal link start", zap.Error(err))
		}
	}

	done := make(chan struct{})
	var once sync.Once
	// 任一方向退出都拆除整条链路：关 done 唤醒串口方向，关 conn 唤醒对端方向
	stop := func() {
		once.Do(func() {
			close(done)
			_ = conn.Close()
		})
	}
	var wg sync.WaitGroup

	// 对端通道同样存在多个写入方（转发、应答、电源消息），统一加写锁
	peer := &traceReadWriter{
		rw:   &lockedReadWriter{mu: &s.wmu, rw: conn},
		log:  b.log,
		name: "peer",
	}

	// panel → peer：串口读带超时，包一层重试/取消语义再交给核心
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer stop()
		in := &retryReadWriter{rw: b.serial, done: done}
		b.runDirection(s.up, in, peer, done)
	}()

	// peer → panel
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer stop()
		in := &retryReadWriter{rw: peer, done: done}
		b.runDirection(s.down, in, b.serial, done)
	}()

	// 面板侧周期保活
	if b.opts.KeepaliveInterval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.keepaliveLoop(done)
		}()
	}

	wg.Wait()

	b.mu.Lock()
	b.session = nil
	b.mu.Unlock()

	if b.m != nil {
		b.m.LinkUp.Set(0)
	}
	upStats, downStats := s.up.stats(), s.down.stats()
	b.log.Info("peer link down",
		zap.String("session", s.id),
		zap.Uint64("panel_to_peer_valid", upStats.ValidFrames),
		zap.Uint64("peer_to_panel_valid", downStats.ValidFrames),
		zap.Uint64("invalid", upStats.InvalidFrames+downStats.InvalidFrames),
		zap.Uint64("write_errors", upStats.WriteErrors+downStats.WriteErrors))
	if b.opts.Journal != nil {
		if err := b.opts.Journal.LinkEnded(context.Background(), s.id, time.Now(), upStats, downStats); err != nil {
			b.log.Warn("journal link end", zap.Error(err))
		}
	}
}

// runDirection 单方向的处置循环。
// 退出条件：对端 EOF、通道读错误、容量耗尽仍未定界。
// 普通的 Invalid（垃圾字节）只计数，等下一个起始标记重新同步。
func (b *Bridge) runDirection(st *dirState, in *retryReadWriter, out io.ReadWriter, done <-chan struct{}) {
	buf := protocol.NewBuffer(b.opts.BufferSize)
	for {
		select {
		case <-done:
			return
		default:
		}

		ft := protocol.Dispatch(in, out, buf)
		st.observe(b.m, buf.Stats(), ft)

		switch ft.Kind {
		case protocol.KindEndOfFile:
			b.log.Debug("channel eof", zap.String("direction", st.dir))
			return
		case protocol.KindInvalid:
			if in.failed {
				b.log.Warn("channel read error, tearing link down",
					zap.String("direction", st.dir))
				return
			}
		case protocol.KindIncomplete:
			if buf.Full() {
				// 容量被打满仍未定界：协议层无法恢复，拆链路
				b.log.Error("frame buffer exhausted while incomplete",
					zap.String("direction", st.dir), zap.Int("capacity", buf.Cap()))
				return
			}
		case protocol.KindPowerKey:
			b.log.Debug("panel power key frame observed", zap.String("direction", st.dir))
		}
	}
}

// keepaliveLoop 周期向面板发送保活帧
func (b *Bridge) keepaliveLoop(done <-chan struct{}) {
	t := time.NewTicker(b.opts.KeepaliveInterval)
	defer t.Stop()
	for {
		select {
		case <-done:
			return
		case <-t.C:
			if _, err := b.serial.Write(protocol.KeepaliveFrame()); err != nil {
				b.log.Warn("keepalive write", zap.Error(err))
			}
		}
	}
}

// SendPower 把电源消息发往对端并记录事件。source 为 gpio 或 api。
func (b *Bridge) SendPower(on bool, source string) error {
	b.powerMu.Lock()
	b.powerOn = on
	b.powerMu.Unlock()

	if b.m != nil {
		b.m.PowerKeyTotal.WithLabelValues(source).Inc()
	}
	if b.opts.Journal != nil {
		if err := b.opts.Journal.PowerEvent(context.Background(), source, on, time.Now()); err != nil {
			b.log.Warn("journal power event", zap.Error(err))
		}
	}

	b.mu.Lock()
	s := b.session
	b.mu.Unlock()
	if s == nil {
		return ErrNoLink
	}

	s.wmu.Lock()
	defer s.wmu.Unlock()
	msg := protocol.PowerFrame(on)
	if n, err := s.conn.Write(msg); err != nil || n != len(msg) {
		b.log.Error("power message write", zap.Bool("on", on), zap.Error(err))
		if err != nil {
			return err
		}
		return io.ErrShortWrite
	}
	b.log.Info("power message sent", zap.Bool("on", on), zap.String("source", source))
	return nil
}

// TogglePower 翻转电源状态并发送电源消息（电源键按下语义）
func (b *Bridge) TogglePower(source string) (bool, error) {
	b.powerMu.Lock()
	next := !b.powerOn
	b.powerMu.Unlock()
	return next, b.SendPower(next, source)
}

// PowerOn 当前电源状态
func (b *Bridge) PowerOn() bool {
	b.powerMu.Lock()
	defer b.powerMu.Unlock()
	return b.powerOn
}

// Snapshot 运行状态快照（管理面用）
type Snapshot struct {
	LinkUp      bool           `json:"link_up"`
	SessionID   string         `json:"session_id,omitempty"`
	PeerAddr    string         `json:"peer_addr,omitempty"`
	StartedAt   *time.Time     `json:"started_at,omitempty"`
	PowerOn     bool           `json:"power_on"`
	PanelToPeer protocol.Stats `json:"panel_to_peer"`
	PeerToPanel protocol.Stats `json:"peer_to_panel"`
}

// Snapshot 返回当前链路与计数快照
func (b *Bridge) Snapshot() Snapshot {
	snap := Snapshot{PowerOn: b.PowerOn()}
	b.mu.Lock()
	s := b.session
	b.mu.Unlock()
	if s != nil {
		snap.LinkUp = true
		snap.SessionID = s.id
		snap.PeerAddr = s.peerAddr
		started := s.startedAt
		snap.StartedAt = &started
		snap.PanelToPeer = s.up.stats()
		snap.PeerToPanel = s.down.stats()
	}
	return snap
}
