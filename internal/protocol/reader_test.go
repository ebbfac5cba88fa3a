package protocol

import (
	"errors"
	"io"
	"testing"
)

// chunkReader 每次 Read 最多吐出一个分片，模拟任意拆包到达
type chunkReader struct {
	chunks [][]byte
	err    error // 分片耗尽后返回的错误
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if len(r.chunks) == 0 {
		if r.err != nil {
			return 0, r.err
		}
		return 0, io.EOF
	}
	n := copy(p, r.chunks[0])
	if n < len(r.chunks[0]) {
		r.chunks[0] = r.chunks[0][n:]
	} else {
		r.chunks = r.chunks[1:]
	}
	return n, nil
}

// readAll 反复 ReadInto 直到结果不再是 Incomplete
func readAll(t *testing.T, r io.Reader, b *Buffer) FrameType {
	t.Helper()
	for i := 0; i < 64; i++ {
		ft := ReadInto(r, b)
		if ft.Kind != KindIncomplete {
			return ft
		}
	}
	t.Fatalf("frame never resolved")
	return FrameType{}
}

func TestReadInto_FragmentationInvariance(t *testing.T) {
	frame := []byte{0xFE, 0x42, 0x01, 0xFD}
	splits := [][][]byte{
		{frame},
		{frame[:1], frame[1:]},
		{frame[:2], frame[2:]},
		{frame[:3], frame[3:]},
		{frame[:1], frame[1:2], frame[2:3], frame[3:]},
	}
	for i, chunks := range splits {
		b := NewBuffer(0)
		ft := readAll(t, &chunkReader{chunks: chunks}, b)
		if ft.Kind != KindForwardable || ft.Code != 0x42 {
			t.Fatalf("split %d: got %v (code %#02x)", i, ft.Kind, ft.Code)
		}
		if got := b.Bytes(); len(got) != len(frame) {
			t.Fatalf("split %d: buffered %d bytes, want %d", i, len(got), len(frame))
		}
	}
}

func TestReadInto_ReservedTypes(t *testing.T) {
	cases := []struct {
		frame []byte
		want  Kind
	}{
		{[]byte{0xFE, 0x0B, 0x00, 0xFD}, KindKeepalive},
		{[]byte{0xFE, 0xF0, 0xFD}, KindInit1},
		{[]byte{0xFE, 0xF1, 0xFD}, KindInit2},
		{[]byte{0xFE, 0xA0, 0x01, 0xFD}, KindPowerKey},
		{[]byte{0xFE, 0x10, 0x20, 0x30, 0xFD}, KindForwardable},
	}
	for _, c := range cases {
		b := NewBuffer(0)
		ft := ReadInto(&chunkReader{chunks: [][]byte{c.frame}}, b)
		if ft.Kind != c.want {
			t.Fatalf("frame % X: got %v, want %v", c.frame, ft.Kind, c.want)
		}
	}
}

// 2 字节退化帧 [FE FD]：结束标记同时充当类型字节。既定边界行为，回归固定。
func TestReadInto_DegenerateTwoByteFrame(t *testing.T) {
	b := NewBuffer(0)
	ft := ReadInto(&chunkReader{chunks: [][]byte{{0xFE, 0xFD}}}, b)
	if ft.Kind != KindForwardable || ft.Code != 0xFD {
		t.Fatalf("got %v (code %#02x), want forwardable 0xFD", ft.Kind, ft.Code)
	}
}

func TestReadInto_EOSOnlyWhenAlone(t *testing.T) {
	b := NewBuffer(0)
	ft := ReadInto(&chunkReader{chunks: [][]byte{{0x00}}}, b)
	if ft.Kind != KindEndOfStream {
		t.Fatalf("lone 0x00: got %v, want eos", ft.Kind)
	}

	// 0x00 后面跟了别的字节就不再是 EOS
	b = NewBuffer(0)
	ft = ReadInto(&chunkReader{chunks: [][]byte{{0x00, 0x00}}}, b)
	if ft.Kind != KindInvalid {
		t.Fatalf("0x00 0x00: got %v, want invalid", ft.Kind)
	}
}

func TestReadInto_GarbageIsInvalid(t *testing.T) {
	for _, lead := range []byte{0x01, 0x7F, 0xFD, 0xFF} {
		b := NewBuffer(0)
		ft := ReadInto(&chunkReader{chunks: [][]byte{{lead, 0xAA, 0xBB}}}, b)
		if ft.Kind != KindInvalid {
			t.Fatalf("lead %#02x: got %v, want invalid", lead, ft.Kind)
		}
	}
}

func TestReadInto_ZeroBytesIsEOF(t *testing.T) {
	b := NewBuffer(0)
	if ft := ReadInto(&chunkReader{}, b); ft.Kind != KindEndOfFile {
		t.Fatalf("got %v, want eof", ft.Kind)
	}
}

func TestReadInto_ReadErrorIsInvalid(t *testing.T) {
	b := NewBuffer(0)
	ft := ReadInto(&chunkReader{err: errors.New("boom")}, b)
	if ft.Kind != KindInvalid {
		t.Fatalf("got %v, want invalid", ft.Kind)
	}
}

// 未终结的帧保持 Incomplete，缓冲不清空
func TestReadInto_IncompleteKeepsBuffer(t *testing.T) {
	b := NewBuffer(0)
	ft := ReadInto(&chunkReader{chunks: [][]byte{{0xFE, 0x42}}}, b)
	if ft.Kind != KindIncomplete {
		t.Fatalf("got %v, want incomplete", ft.Kind)
	}
	if b.Len() != 2 {
		t.Fatalf("buffer len %d, want 2", b.Len())
	}
}
