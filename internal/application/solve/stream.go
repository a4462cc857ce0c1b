package solve

import "io"

// ChunkStream 有限的文本块序列
// 约定：Recv 返回 io.EOF 表示正常结束；序列不可重启，
// 块的交付顺序即远端服务的到达顺序，消费方不得重排
type ChunkStream interface {
	Recv() (string, error)
	Close()
}

// singleChunkStream 将一次性完整响应归一化为单块序列
type singleChunkStream struct {
	text string
	done bool
}

// NewSingleChunkStream 创建单块序列
func NewSingleChunkStream(text string) ChunkStream {
	return &singleChunkStream{text: text}
}

func (s *singleChunkStream) Recv() (string, error) {
	if s.done {
		return "", io.EOF
	}
	s.done = true
	return s.text, nil
}

func (s *singleChunkStream) Close() {
	s.done = true
}

// Drain 读取整个序列并按到达顺序拼接
// 每读到一块立即回调 emit（可为 nil）
func Drain(cs ChunkStream, emit func(chunk string)) (string, int, error) {
	var out string
	count := 0
	for {
		chunk, err := cs.Recv()
		if err == io.EOF {
			return out, count, nil
		}
		if err != nil {
			return out, count, err
		}
		out += chunk
		count++
		if emit != nil {
			emit(chunk)
		}
	}
}
