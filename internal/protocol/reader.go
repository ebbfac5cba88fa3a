package protocol

import "io"

// ReadInto 从 r 读取至多 cap-wridx 字节追加到缓冲区，并对缓冲内容分类。
//
// 分类只看首字节与最后写入的字节，O(1)：
//   - 首字节 0xFE：末字节为 0xFD 即帧完整，取偏移 1 处的类型字节分类；
//     否则 Incomplete。注意 2 字节退化帧 [FE FD] 会把结束标记当作类型
//     字节使用，这一边界行为是协议既定事实，必须原样保留。
//   - 首字节 0x00 且缓冲区恰好 1 字节：EOS。
//   - 其余：Invalid（流已失步，等待下一个 0xFE 重新同步）。
//
// 读到 0 字节视为对端关闭（EndOfFile）；读错误归类 Invalid。
// 二者都不在本层重试。
func ReadInto(r io.Reader, b *Buffer) FrameType {
	n, err := r.Read(b.data[b.wridx:])
	if n > 0 {
		b.wridx += n

		switch {
		case b.data[0] == StartMarker:
			if b.wridx >= 2 && b.data[b.wridx-1] == EndMarker {
				return classify(b.data[1])
			}
			return FrameType{Kind: KindIncomplete}
		case b.data[0] == eosSentinel && b.wridx == 1:
			return FrameType{Kind: KindEndOfStream}
		default:
			return FrameType{Kind: KindInvalid}
		}
	}
	if err != nil && err != io.EOF {
		return FrameType{Kind: KindInvalid}
	}
	return FrameType{Kind: KindEndOfFile}
}
