package speech

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/sourcegraph/conc"

	"github.com/likeness-ai/command-center/backend/internal/model/speech"
)

// AudioFrame 推送给客户端的一段 PCM16 音频
type AudioFrame struct {
	PlaybackID uint64
	Seq        int
	PCM        []byte
	SampleRate int
	Channels   int
	Final      bool
}

// FrameSink 接收输出帧（WebSocket 连接等）
type FrameSink interface {
	WriteFrame(frame AudioFrame) error
}

// StreamOutput 按实时节奏把音频切帧推送给 sink，同一时刻只保留一路输出
type StreamOutput struct {
	sink     FrameSink
	frameDur time.Duration

	mu      sync.Mutex
	seq     uint64
	current *streamPlayback
	closed  bool
	wg      conc.WaitGroup
}

// NewStreamOutput 创建推流输出，frameDur 为每帧时长
func NewStreamOutput(sink FrameSink, frameDur time.Duration) *StreamOutput {
	if frameDur <= 0 {
		frameDur = 100 * time.Millisecond
	}
	return &StreamOutput{sink: sink, frameDur: frameDur}
}

// Play 开始输出缓冲，已有输出会先被停止
func (o *StreamOutput) Play(buf *speech.AudioBuffer) (Playback, error) {
	if buf == nil || len(buf.Samples) == 0 {
		return nil, ErrNoAudio
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return nil, ErrClosed
	}
	// 已结束的输出 Stop 会立即返回
	if o.current != nil {
		o.current.Stop()
	}

	o.seq++
	pb := &streamPlayback{
		id:   o.seq,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	o.current = pb
	o.wg.Go(func() {
		o.pump(pb, buf)
	})
	return pb, nil
}

// Close 停止输出并等待推流协程退出
func (o *StreamOutput) Close() {
	o.mu.Lock()
	o.closed = true
	if o.current != nil {
		o.current.Stop()
		o.current = nil
	}
	o.mu.Unlock()
	o.wg.Wait()
}

func (o *StreamOutput) pump(pb *streamPlayback, buf *speech.AudioBuffer) {
	defer close(pb.done)

	perFrame := int(int64(buf.SampleRate) * int64(o.frameDur) / int64(time.Second))
	if perFrame <= 0 {
		perFrame = 1
	}
	perFrame *= buf.Channels

	ticker := time.NewTicker(o.frameDur)
	defer ticker.Stop()

	seq := 0
	for offset := 0; offset < len(buf.Samples); offset += perFrame {
		end := offset + perFrame
		if end > len(buf.Samples) {
			end = len(buf.Samples)
		}
		if offset > 0 {
			select {
			case <-pb.stop:
				return
			case <-ticker.C:
			}
		}

		frame := AudioFrame{
			PlaybackID: pb.id,
			Seq:        seq,
			PCM:        EncodePCM16(buf.Samples[offset:end]),
			SampleRate: buf.SampleRate,
			Channels:   buf.Channels,
			Final:      end == len(buf.Samples),
		}
		if err := o.sink.WriteFrame(frame); err != nil {
			if !errors.Is(err, ErrClosed) {
				log.Printf("[speech] write audio frame failed: %v", err)
			}
			return
		}
		seq++
	}

	// 等最后一帧播放完毕再视为结束
	select {
	case <-pb.stop:
	case <-ticker.C:
	}
}

type streamPlayback struct {
	id       uint64
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func (p *streamPlayback) Stop() {
	p.stopOnce.Do(func() { close(p.stop) })
	<-p.done
}

func (p *streamPlayback) Done() <-chan struct{} {
	return p.done
}
