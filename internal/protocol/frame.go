package protocol

// 帧格式（面板-电台控制协议）：
// start[1]=0xFE | type[1] | data[..] | end[1]=0xFD
// 帧不携带长度字段，完全依靠起止标记自定界；
// 单独一个 0x00 字节为流结束哨兵（EOS）。
const (
	StartMarker = 0xFE // 帧起始标记
	EndMarker   = 0xFD // 帧结束标记
	eosSentinel = 0x00 // 流结束哨兵（仅当缓冲区里只有它一个字节）
)

// 保留的帧类型字节
const (
	TypeKeepalive = 0x0B // 保活帧
	TypePowerKey  = 0xA0 // 面板电源键消息
	TypeInit1     = 0xF0 // 上电握手第一步
	TypeInit2     = 0xF1 // 上电握手第二步
)

// Kind 帧分类结果的判别标签。
// Incomplete / EndOfFile 描述缓冲区或通道状态，并非线上出现的类型字节。
type Kind uint8

const (
	KindInvalid     Kind = iota // 流失步，无法定界
	KindIncomplete              // 帧未收完，缓冲保留
	KindEndOfStream             // EOS 哨兵
	KindEndOfFile               // 对端关闭（读到 0 字节）
	KindKeepalive
	KindInit1
	KindInit2
	KindPowerKey
	KindForwardable // 其余类型字节，原样转发
)

func (k Kind) String() string {
	switch k {
	case KindIncomplete:
		return "incomplete"
	case KindEndOfStream:
		return "eos"
	case KindEndOfFile:
		return "eof"
	case KindKeepalive:
		return "keepalive"
	case KindInit1:
		return "init1"
	case KindInit2:
		return "init2"
	case KindPowerKey:
		return "power_key"
	case KindForwardable:
		return "forward"
	default:
		return "invalid"
	}
}

// FrameType 帧分类结果。Forwardable 时 Code 保存原始类型字节。
type FrameType struct {
	Kind Kind
	Code byte
}

func (t FrameType) String() string { return t.Kind.String() }

// classify 依据类型字节（帧偏移 1 处）求帧类型
func classify(code byte) FrameType {
	switch code {
	case TypeKeepalive:
		return FrameType{Kind: KindKeepalive, Code: code}
	case TypeInit1:
		return FrameType{Kind: KindInit1, Code: code}
	case TypeInit2:
		return FrameType{Kind: KindInit2, Code: code}
	case TypePowerKey:
		return FrameType{Kind: KindPowerKey, Code: code}
	default:
		return FrameType{Kind: KindForwardable, Code: code}
	}
}

// Init1Ack 握手应答一：{FE F0 FD}
func Init1Ack() []byte { return []byte{StartMarker, TypeInit1, EndMarker} }

// Init2Ack 握手应答二：{FE F1 FD}
func Init2Ack() []byte { return []byte{StartMarker, TypeInit2, EndMarker} }

// KeepaliveFrame 保活帧：{FE 0B 00 FD}
func KeepaliveFrame() []byte {
	return []byte{StartMarker, TypeKeepalive, 0x00, EndMarker}
}

// PowerFrame 电源消息：{FE A0 <0|1> FD}，on 为 true 时第三字节为 0x01
func PowerFrame(on bool) []byte {
	msg := []byte{StartMarker, TypePowerKey, 0x00, EndMarker}
	if on {
		msg[2] = 0x01
	}
	return msg
}
