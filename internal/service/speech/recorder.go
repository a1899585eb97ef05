package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc"

	"github.com/likeness-ai/command-center/backend/internal/model/speech"
)

// Microphone 音频采集设备
type Microphone interface {
	Open(ctx context.Context) (InputStream, error)
}

// InputStream 一次采集会话。Close 释放设备并关闭 Chunks 通道
type InputStream interface {
	Chunks() <-chan []byte
	Close() error
}

type RecorderState string

const (
	RecorderIdle      RecorderState = "idle"
	RecorderRecording RecorderState = "recording"
)

type recordingSession struct {
	stream    InputStream
	startedAt time.Time
	done      chan struct{}

	mu     sync.Mutex
	chunks [][]byte
}

// Recorder 录音状态机：Idle → Recording → Idle
type Recorder struct {
	mic      Microphone
	mimeType string
	now      func() time.Time

	mu      sync.Mutex
	opening bool
	closed  bool
	active  *recordingSession
	wg      conc.WaitGroup
}

// NewRecorder 创建录音器，mimeType 为产出录音的容器类型
func NewRecorder(mic Microphone, mimeType string) *Recorder {
	if mimeType == "" {
		mimeType = "audio/webm"
	}
	return &Recorder{
		mic:      mic,
		mimeType: mimeType,
		now:      time.Now,
	}
}

// State 返回当前状态，申请设备期间仍视为 Idle
func (r *Recorder) State() RecorderState {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active != nil {
		return RecorderRecording
	}
	return RecorderIdle
}

// Start 申请麦克风并开始累积音频块。录音中或正在申请设备时重复调用不做任何事
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrClosed
	}
	if r.active != nil || r.opening {
		r.mu.Unlock()
		return nil
	}
	r.opening = true
	r.mu.Unlock()

	stream, err := r.mic.Open(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.opening = false

	if err != nil {
		if errors.Is(err, ErrPermissionDenied) {
			log.Printf("[recorder] microphone permission denied")
		} else {
			log.Printf("[recorder] open microphone failed: %v", err)
		}
		return fmt.Errorf("acquire microphone: %w", err)
	}
	if r.closed {
		_ = stream.Close()
		return ErrClosed
	}

	sess := &recordingSession{
		stream:    stream,
		startedAt: r.now(),
		done:      make(chan struct{}),
	}
	r.active = sess
	r.wg.Go(func() {
		collect(sess)
	})
	return nil
}

// Stop 结束录音、释放设备并返回拼接后的录音。Idle 时返回 nil
func (r *Recorder) Stop(ctx context.Context) (*speech.Recording, error) {
	r.mu.Lock()
	sess := r.active
	r.active = nil
	r.mu.Unlock()

	if sess == nil {
		return nil, nil
	}

	if err := sess.stream.Close(); err != nil {
		log.Printf("[recorder] release microphone: %v", err)
	}

	select {
	case <-sess.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	return r.finalize(sess), nil
}

// Close 销毁录音器，无论处于何种状态都释放设备
func (r *Recorder) Close() {
	r.mu.Lock()
	r.closed = true
	sess := r.active
	r.active = nil
	r.mu.Unlock()

	if sess != nil {
		if err := sess.stream.Close(); err != nil {
			log.Printf("[recorder] release microphone: %v", err)
		}
	}
	r.wg.Wait()
}

func (r *Recorder) finalize(sess *recordingSession) *speech.Recording {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	data := bytes.Join(sess.chunks, nil)
	return &speech.Recording{
		ID:        uuid.NewString(),
		Data:      data,
		MIMEType:  r.mimeType,
		Chunks:    len(sess.chunks),
		Size:      len(data),
		StartedAt: sess.startedAt,
		Duration:  r.now().Sub(sess.startedAt),
	}
}

func collect(sess *recordingSession) {
	defer close(sess.done)
	for chunk := range sess.stream.Chunks() {
		if len(chunk) == 0 {
			continue
		}
		sess.mu.Lock()
		sess.chunks = append(sess.chunks, chunk)
		sess.mu.Unlock()
	}
}
