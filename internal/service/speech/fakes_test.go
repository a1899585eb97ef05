package speech

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/likeness-ai/command-center/backend/internal/model/speech"
)

type fakeSynth struct {
	mu    sync.Mutex
	calls int
	gate  chan struct{}
	data  []byte
	err   error
}

func (f *fakeSynth) SynthesizeSpeech(ctx context.Context, req *speech.TTSRequest) (*speech.TTSResponse, error) {
	f.mu.Lock()
	f.calls++
	gate := f.gate
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	return &speech.TTSResponse{
		AudioData:  f.data,
		MIMEType:   "audio/L16;codec=pcm;rate=24000",
		SampleRate: 24000,
		Channels:   1,
	}, nil
}

func (f *fakeSynth) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type memCache struct {
	mu   sync.Mutex
	bufs map[string]*speech.AudioBuffer
}

func newMemCache() *memCache {
	return &memCache{bufs: make(map[string]*speech.AudioBuffer)}
}

func (c *memCache) CachedAudio(id string) (*speech.AudioBuffer, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	buf, ok := c.bufs[id]
	return buf, ok
}

func (c *memCache) StoreAudio(id string, buf *speech.AudioBuffer) (*speech.AudioBuffer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.bufs[id]; ok {
		return existing, nil
	}
	c.bufs[id] = buf
	return buf, nil
}

// fakeOutput 记录播放/停止事件，Finish 模拟自然结束
type fakeOutput struct {
	mu     sync.Mutex
	events []string
	plays  []*fakePlayback
	active int
	err    error
}

func (o *fakeOutput) Play(buf *speech.AudioBuffer) (Playback, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err != nil {
		return nil, o.err
	}
	pb := &fakePlayback{owner: o, n: len(o.plays) + 1, buf: buf, done: make(chan struct{})}
	o.plays = append(o.plays, pb)
	o.active++
	o.events = append(o.events, fmt.Sprintf("play#%d", pb.n))
	return pb, nil
}

func (o *fakeOutput) Events() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.events...)
}

func (o *fakeOutput) Active() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.active
}

func (o *fakeOutput) Playback(n int) *fakePlayback {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.plays[n-1]
}

type fakePlayback struct {
	owner *fakeOutput
	n     int
	buf   *speech.AudioBuffer
	once  sync.Once
	done  chan struct{}
}

func (p *fakePlayback) end(event string) {
	p.once.Do(func() {
		p.owner.mu.Lock()
		p.owner.active--
		p.owner.events = append(p.owner.events, fmt.Sprintf("%s#%d", event, p.n))
		p.owner.mu.Unlock()
		close(p.done)
	})
}

func (p *fakePlayback) Stop()                 { p.end("stop") }
func (p *fakePlayback) Finish()               { p.end("end") }
func (p *fakePlayback) Done() <-chan struct{} { return p.done }

func pcmBytes(samples ...int16) []byte {
	out := make([]byte, 2*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(s))
	}
	return out
}
