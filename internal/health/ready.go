package health

import "sync/atomic"

// Readiness 就绪状态聚合（串口、TCP 监听等）
type Readiness struct {
	serialReady atomic.Bool
	tcpReady    atomic.Bool
}

func New() *Readiness { return &Readiness{} }

func (r *Readiness) SetSerialReady(v bool) { r.serialReady.Store(v) }
func (r *Readiness) SetTCPReady(v bool)    { r.tcpReady.Store(v) }

// Ready 总体就绪：各子系统均为 true
func (r *Readiness) Ready() bool {
	return r.serialReady.Load() && r.tcpReady.Load()
}
