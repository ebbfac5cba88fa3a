package tcpserver

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	cfgpkg "github.com/taoyao-code/panel-relay/internal/config"
)

// Server 对端监听器。
// 协议不做多路复用：同一时刻只服务一条对端链路，链路存续期间到达的
// 新连接直接关闭；accept 还受令牌桶限速，防御对端重连风暴。
type Server struct {
	cfg     cfgpkg.TCPConfig
	log     *zap.Logger
	ln      net.Listener
	wg      sync.WaitGroup
	stopC   chan struct{}
	active  atomic.Bool
	limiter *rate.Limiter
	mu      sync.Mutex
	cur     net.Conn

	handler  func(net.Conn) // 同步处理一条链路，返回即链路结束
	onAccept func()
	onReject func()
}

// New 创建对端监听器
func New(cfg cfgpkg.TCPConfig, log *zap.Logger) *Server {
	perSec := cfg.AcceptPerSec
	if perSec <= 0 {
		perSec = 2
	}
	burst := cfg.AcceptBurst
	if burst <= 0 {
		burst = 4
	}
	return &Server{
		cfg:     cfg,
		log:     log,
		stopC:   make(chan struct{}),
		limiter: rate.NewLimiter(rate.Limit(perSec), burst),
	}
}

// SetHandler 设置链路处理回调（每条被接受的链路同步调用一次）
func (s *Server) SetHandler(h func(net.Conn)) { s.handler = h }

// SetMetricsCallbacks 设置指标回调
func (s *Server) SetMetricsCallbacks(onAccept, onReject func()) {
	s.onAccept, s.onReject = onAccept, onReject
}

// Start 监听并接受连接（非阻塞，内部 goroutine）
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	s.ln = ln
	s.log.Info("tcp listening", zap.String("addr", ln.Addr().String()))

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.ln.Accept()
			if err != nil {
				select {
				case <-s.stopC:
					return
				default:
				}
				// 短暂错误等待后重试
				time.Sleep(50 * time.Millisecond)
				continue
			}

			if !s.limiter.Allow() {
				s.log.Warn("accept rate exceeded, closing",
					zap.String("remote", conn.RemoteAddr().String()))
				_ = conn.Close()
				if s.onReject != nil {
					s.onReject()
				}
				continue
			}
			if !s.active.CompareAndSwap(false, true) {
				s.log.Warn("link already active, rejecting peer",
					zap.String("remote", conn.RemoteAddr().String()))
				_ = conn.Close()
				if s.onReject != nil {
					s.onReject()
				}
				continue
			}
			if s.onAccept != nil {
				s.onAccept()
			}

			s.mu.Lock()
			s.cur = conn
			s.mu.Unlock()

			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				defer func() {
					s.mu.Lock()
					s.cur = nil
					s.mu.Unlock()
					s.active.Store(false)
				}()
				defer c.Close()
				if s.handler != nil {
					s.handler(c)
				}
			}(conn)
		}
	}()
	return nil
}

// Addr 返回实际监听地址（Start 之后有效）
func (s *Server) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// LinkActive 当前是否有对端链路
func (s *Server) LinkActive() bool { return s.active.Load() }

// Shutdown 优雅关闭监听并等待链路退出
func (s *Server) Shutdown(ctx context.Context) error {
	close(s.stopC)
	if s.ln != nil {
		_ = s.ln.Close()
	}
	s.mu.Lock()
	if s.cur != nil {
		_ = s.cur.Close()
	}
	s.mu.Unlock()
	ch := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(ch)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-ch:
		return nil
	}
}
