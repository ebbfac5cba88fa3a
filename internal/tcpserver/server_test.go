package tcpserver

import (
	"context"
	"io"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/panel-relay/internal/config"
)

func startServer(t *testing.T, h func(net.Conn)) *Server {
	t.Helper()
	s := New(cfgpkg.TCPConfig{Addr: "127.0.0.1:0", AcceptPerSec: 100, AcceptBurst: 100}, zap.NewNop())
	s.SetHandler(h)
	require.NoError(t, s.Start())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = s.Shutdown(ctx)
	})
	return s
}

func TestSinglePeerPolicy(t *testing.T) {
	release := make(chan struct{})
	var handled atomic.Int32
	s := startServer(t, func(c net.Conn) {
		handled.Add(1)
		<-release
	})

	first, err := net.Dial("tcp", s.Addr().String())
	require.NoError(t, err)
	defer first.Close()

	require.Eventually(t, s.LinkActive, time.Second, 10*time.Millisecond)

	// 链路活跃期间第二条连接立刻被关闭
	second, err := net.Dial("tcp", s.Addr().String())
	require.NoError(t, err)
	defer second.Close()

	_ = second.SetReadDeadline(time.Now().Add(time.Second))
	_, err = second.Read(make([]byte, 1))
	assert.ErrorIs(t, err, io.EOF, "second peer must be closed while the link is active")

	close(release)
	assert.Equal(t, int32(1), handled.Load())
}

func TestLinkReleasedAfterHandlerReturns(t *testing.T) {
	s := startServer(t, func(c net.Conn) {
		// 读到 EOF 即返回
		_, _ = io.Copy(io.Discard, c)
	})

	first, err := net.Dial("tcp", s.Addr().String())
	require.NoError(t, err)
	require.Eventually(t, s.LinkActive, time.Second, 10*time.Millisecond)
	_ = first.Close()

	require.Eventually(t, func() bool { return !s.LinkActive() }, time.Second, 10*time.Millisecond)

	// 释放后可再次接入
	second, err := net.Dial("tcp", s.Addr().String())
	require.NoError(t, err)
	defer second.Close()
	require.Eventually(t, s.LinkActive, time.Second, 10*time.Millisecond)
}

func TestShutdownClosesActiveLink(t *testing.T) {
	s := New(cfgpkg.TCPConfig{Addr: "127.0.0.1:0", AcceptPerSec: 100, AcceptBurst: 100}, zap.NewNop())
	s.SetHandler(func(c net.Conn) { _, _ = io.Copy(io.Discard, c) })
	require.NoError(t, s.Start())

	conn, err := net.Dial("tcp", s.Addr().String())
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, s.LinkActive, time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	assert.NoError(t, s.Shutdown(ctx))
}

func TestAcceptRateLimit(t *testing.T) {
	var rejected atomic.Int32
	s := New(cfgpkg.TCPConfig{Addr: "127.0.0.1:0", AcceptPerSec: 0.001, AcceptBurst: 1}, zap.NewNop())
	s.SetHandler(func(c net.Conn) { _, _ = io.Copy(io.Discard, c) })
	s.SetMetricsCallbacks(nil, func() { rejected.Add(1) })
	require.NoError(t, s.Start())
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = s.Shutdown(ctx)
	}()

	// 第一条拿走唯一的令牌
	first, err := net.Dial("tcp", s.Addr().String())
	require.NoError(t, err)
	defer first.Close()
	require.Eventually(t, s.LinkActive, time.Second, 10*time.Millisecond)
	_ = first.Close()
	require.Eventually(t, func() bool { return !s.LinkActive() }, time.Second, 10*time.Millisecond)

	// 令牌耗尽：即使链路空闲也被限速拒绝
	second, err := net.Dial("tcp", s.Addr().String())
	require.NoError(t, err)
	defer second.Close()
	require.Eventually(t, func() bool { return rejected.Load() == 1 }, time.Second, 10*time.Millisecond)
}
