package protocol

// DefaultBufferSize 单方向缓冲区默认容量。
// 协议帧都很短（握手/保活 3~4 字节，转发帧通常几十字节），2KiB 足够宽裕。
const DefaultBufferSize = 2048

// Stats 单方向的运行计数
type Stats struct {
	ValidFrames   uint64 `json:"valid_frames"`
	InvalidFrames uint64 `json:"invalid_frames"`
	WriteErrors   uint64 `json:"write_errors"`
}

// Buffer 一个传输方向的在途字节累加器。
// 固定容量 + 写游标（0 <= wridx <= cap）；同一时刻最多容纳一个帧，
// 帧一经判定（除 Incomplete 外的任何结果）游标即归零。
// 每个方向恰好一个实例，只被一个 goroutine 触碰，不加锁。
type Buffer struct {
	data  []byte
	wridx int
	stats Stats
}

// NewBuffer 创建容量为 size 的缓冲区；size<=0 时取 DefaultBufferSize
func NewBuffer(size int) *Buffer {
	if size <= 0 {
		size = DefaultBufferSize
	}
	return &Buffer{data: make([]byte, size)}
}

// Len 当前在途字节数
func (b *Buffer) Len() int { return b.wridx }

// Cap 缓冲区容量
func (b *Buffer) Cap() int { return len(b.data) }

// Full 容量耗尽。若此时帧仍是 Incomplete，属调用方层面的致命状态，
// 本层不做恢复。
func (b *Buffer) Full() bool { return b.wridx == len(b.data) }

// Bytes 返回在途字节（底层数组的切片，Reset 后失效）
func (b *Buffer) Bytes() []byte { return b.data[:b.wridx] }

// Reset 丢弃在途字节，游标归零
func (b *Buffer) Reset() { b.wridx = 0 }

// Stats 返回计数快照
func (b *Buffer) Stats() Stats { return b.stats }
