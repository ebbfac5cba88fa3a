package protocol

import "io"

// Dispatch 执行一次 读取→分类→处置 循环。
//
// 处置表：
//   - Keepalive / Init1：在 in 通道回写握手应答一、应答二（保活帧在本端
//     被模拟，同时刻意复用 Init1 的动作分支 —— 收到保活即重发握手应答，
//     这是协议耦合，不是简单确认）；
//   - Init2：回写握手应答二；
//   - PowerKey：不转发，交由上层（调试日志）处理；
//   - Incomplete：缓冲保留，等待更多字节；
//   - Invalid：丢弃缓冲，下一个 0xFE 重新同步；
//   - 其余（EndOfFile / EOS / Forwardable）：把累计的整帧原样写到 out。
//     EOF 时缓冲可能非空，同样要发出去。
//
// 写失败或短写只累计 write_errors，不中断处置；返回的帧类型让调用方
// 得以在 EndOfFile 时拆除连接。
func Dispatch(in, out io.ReadWriter, b *Buffer) FrameType {
	ft := ReadInto(in, b)

	switch ft.Kind {
	case KindKeepalive, KindInit1:
		// 先上电的一方发出 Init1，期待 Init1+Init2 两个应答
		b.stats.WriteErrors += writeFailed(in, Init1Ack())
		b.stats.WriteErrors += writeFailed(in, Init2Ack())
		b.Reset()
		b.stats.ValidFrames++

	case KindInit2:
		// 电台已开机时面板上电只发 Init2，期待 Init2 应答
		b.stats.WriteErrors += writeFailed(in, Init2Ack())
		b.Reset()
		b.stats.ValidFrames++

	case KindPowerKey:
		b.Reset()
		b.stats.ValidFrames++

	case KindIncomplete:
		// 不动缓冲

	case KindInvalid:
		b.stats.InvalidFrames++
		b.Reset()

	default:
		b.stats.WriteErrors += writeFailed(out, b.Bytes())
		b.Reset()
		b.stats.ValidFrames++
	}

	return ft
}

// writeFailed 写 p 到 w，失败或短写返回 1，成功返回 0
func writeFailed(w io.Writer, p []byte) uint64 {
	n, err := w.Write(p)
	if err != nil || n != len(p) {
		return 1
	}
	return 0
}
