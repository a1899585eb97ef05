package speech

import (
	"context"
	"sync"
)

const chunkBacklog = 64

// ChunkMicrophone 由客户端上传的音频块驱动的麦克风。
// 客户端在 record_start 中携带权限申请结果，Grant 记录该结果。
type ChunkMicrophone struct {
	mu      sync.Mutex
	granted bool
	stream  *chunkStream
}

// NewChunkMicrophone 创建麦克风，默认未授权
func NewChunkMicrophone() *ChunkMicrophone {
	return &ChunkMicrophone{}
}

// Grant 记录客户端的麦克风授权结果
func (m *ChunkMicrophone) Grant(granted bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.granted = granted
}

func (m *ChunkMicrophone) Open(ctx context.Context) (InputStream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.granted {
		return nil, ErrPermissionDenied
	}
	if m.stream != nil {
		return nil, ErrDeviceBusy
	}
	m.stream = &chunkStream{owner: m, ch: make(chan []byte, chunkBacklog)}
	return m.stream, nil
}

// Push 写入一段客户端音频，没有打开的采集会话时返回 ErrNotRecording
func (m *ChunkMicrophone) Push(chunk []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stream == nil {
		return ErrNotRecording
	}
	data := make([]byte, len(chunk))
	copy(data, chunk)
	m.stream.ch <- data
	return nil
}

// Busy 表示设备是否被占用
func (m *ChunkMicrophone) Busy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stream != nil
}

type chunkStream struct {
	owner *ChunkMicrophone
	ch    chan []byte
	once  sync.Once
}

func (s *chunkStream) Chunks() <-chan []byte {
	return s.ch
}

func (s *chunkStream) Close() error {
	s.once.Do(func() {
		s.owner.mu.Lock()
		defer s.owner.mu.Unlock()
		if s.owner.stream == s {
			s.owner.stream = nil
		}
		close(s.ch)
	})
	return nil
}
