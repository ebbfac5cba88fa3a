package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRegistry 创建自定义 Prometheus Registry，并注册常用采集器
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler 返回 Prometheus 指标 HTTP 处理器
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// AppMetrics 中继业务指标
type AppMetrics struct {
	TCPAccepted   prometheus.Counter
	TCPRejected   prometheus.Counter     // 单链路策略下被拒绝的连接
	FramesTotal   *prometheus.CounterVec // labels: direction, type
	InvalidTotal  *prometheus.CounterVec // labels: direction
	WriteErrTotal *prometheus.CounterVec // labels: direction
	HandshakeEmu  prometheus.Counter     // 本端模拟的握手应答次数
	KeepaliveEmu  prometheus.Counter     // 本端吸收的保活帧
	PowerKeyTotal *prometheus.CounterVec // labels: source=gpio|api
	LinkUp        prometheus.Gauge       // 对端链路状态 0/1
}

// NewAppMetrics 注册并返回业务指标
func NewAppMetrics(reg *prometheus.Registry) *AppMetrics {
	m := &AppMetrics{
		TCPAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tcp_accept_total",
			Help: "Total accepted TCP connections.",
		}),
		TCPRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tcp_rejected_total",
			Help: "Connections rejected while a link was already active.",
		}),
		FramesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_frames_total",
			Help: "Resolved frames by direction and type.",
		}, []string{"direction", "type"}),
		InvalidTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_invalid_frames_total",
			Help: "Frames discarded as invalid by direction.",
		}, []string{"direction"}),
		WriteErrTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_write_errors_total",
			Help: "Failed or short channel writes by direction.",
		}, []string{"direction"}),
		HandshakeEmu: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "handshake_emulated_total",
			Help: "Init ack sequences emitted locally.",
		}),
		KeepaliveEmu: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "keepalive_emulated_total",
			Help: "Keepalive frames absorbed locally.",
		}),
		PowerKeyTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "power_key_events_total",
			Help: "Power key events by source.",
		}, []string{"source"}),
		LinkUp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "relay_link_up",
			Help: "Whether a peer link is currently established.",
		}),
	}
	reg.MustRegister(m.TCPAccepted, m.TCPRejected, m.FramesTotal, m.InvalidTotal,
		m.WriteErrTotal, m.HandshakeEmu, m.KeepaliveEmu, m.PowerKeyTotal, m.LinkUp)
	return m
}
