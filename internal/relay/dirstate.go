package relay

import (
	"sync/atomic"

	"github.com/taoyao-code/panel-relay/internal/metrics"
	"github.com/taoyao-code/panel-relay/internal/protocol"
)

// dirState 单方向的可并发读取的计数镜像。
// 帧缓冲只属于处置 goroutine；每轮处置后把计数拷到原子变量，
// 管理面读快照不触碰缓冲本身。
type dirState struct {
	dir     string
	valid   atomic.Uint64
	invalid atomic.Uint64
	werr    atomic.Uint64
}

func newDirState(dir string) *dirState { return &dirState{dir: dir} }

// observe 同步缓冲计数到镜像，并按增量上报指标
func (st *dirState) observe(m *metrics.AppMetrics, s protocol.Stats, ft protocol.FrameType) {
	dValid := s.ValidFrames - st.valid.Load()
	dInvalid := s.InvalidFrames - st.invalid.Load()
	dWerr := s.WriteErrors - st.werr.Load()
	st.valid.Store(s.ValidFrames)
	st.invalid.Store(s.InvalidFrames)
	st.werr.Store(s.WriteErrors)

	if m == nil {
		return
	}
	if dValid > 0 {
		m.FramesTotal.WithLabelValues(st.dir, ft.String()).Add(float64(dValid))
	}
	if dInvalid > 0 {
		m.InvalidTotal.WithLabelValues(st.dir).Add(float64(dInvalid))
	}
	if dWerr > 0 {
		m.WriteErrTotal.WithLabelValues(st.dir).Add(float64(dWerr))
	}
	switch ft.Kind {
	case protocol.KindKeepalive:
		m.KeepaliveEmu.Inc()
		m.HandshakeEmu.Inc()
	case protocol.KindInit1, protocol.KindInit2:
		m.HandshakeEmu.Inc()
	}
}

// stats 计数快照
func (st *dirState) stats() protocol.Stats {
	return protocol.Stats{
		ValidFrames:   st.valid.Load(),
		InvalidFrames: st.invalid.Load(),
		WriteErrors:   st.werr.Load(),
	}
}
