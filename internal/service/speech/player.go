package speech

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/likeness-ai/command-center/backend/internal/model/speech"
)

// Output 音频输出设备（浏览器扬声器、测试桩等）
type Output interface {
	Play(buf *speech.AudioBuffer) (Playback, error)
}

// Playback 一次正在进行的输出。Stop 在输出真正停止后返回；Done 在输出结束（自然结束或被停止）时关闭。
type Playback interface {
	Stop()
	Done() <-chan struct{}
}

// AudioLoader 按消息加载音频
type AudioLoader interface {
	LoadAudio(ctx context.Context, messageID, text string) (*speech.AudioBuffer, bool, error)
}

// StateListener 接收播放状态变更，回调中不得再调用 Player
type StateListener func(messageID string, playing bool)

type PlayOutcome string

const (
	OutcomePlaying    PlayOutcome = "playing"
	OutcomeStopped    PlayOutcome = "stopped"
	OutcomeSuperseded PlayOutcome = "superseded"
	OutcomeFailed     PlayOutcome = "failed"
)

// PlayResult PlayOrToggle 的结果。Done 仅在 Outcome 为 playing 时非空
type PlayResult struct {
	MessageID string
	Outcome   PlayOutcome
	Cached    bool
	Done      <-chan struct{}
}

type playbackSession struct {
	id        uint64
	messageID string
	playback  Playback
}

// Player 保证同一时刻最多一路音频在播放
type Player struct {
	loader   AudioLoader
	output   Output
	listener StateListener

	mu     sync.Mutex
	seq    uint64
	active *playbackSession
}

// NewPlayer 创建播放器，listener 可为空
func NewPlayer(loader AudioLoader, output Output, listener StateListener) *Player {
	return &Player{
		loader:   loader,
		output:   output,
		listener: listener,
	}
}

// PlayOrToggle 播放消息音频；若该消息正在播放（或正在合成）则停止它。
// cached 为调用方已持有的解码缓冲，为空时交给 loader 加载。
func (p *Player) PlayOrToggle(ctx context.Context, messageID, text string, cached *speech.AudioBuffer) (PlayResult, error) {
	messageID = strings.TrimSpace(messageID)
	if messageID == "" {
		return PlayResult{Outcome: OutcomeFailed}, ErrMissingMessageID
	}

	p.mu.Lock()
	if p.active != nil && p.active.messageID == messageID {
		p.stopLocked()
		p.mu.Unlock()
		return PlayResult{MessageID: messageID, Outcome: OutcomeStopped}, nil
	}
	p.stopLocked()
	p.seq++
	sess := &playbackSession{id: p.seq, messageID: messageID}
	p.active = sess
	p.notify(messageID, true)
	p.mu.Unlock()

	buf, fromCache := cached, cached != nil
	if buf == nil {
		loaded, hit, err := p.loader.LoadAudio(ctx, messageID, text)
		if err != nil {
			p.release(sess)
			log.Printf("[player] load audio for message %s failed: %v", messageID, err)
			return PlayResult{MessageID: messageID, Outcome: OutcomeFailed}, err
		}
		buf, fromCache = loaded, hit
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	// 合成期间用户可能已切换或停止，过期的音频直接丢弃
	if p.active != sess {
		return PlayResult{MessageID: messageID, Outcome: OutcomeSuperseded, Cached: fromCache}, nil
	}

	pb, err := p.output.Play(buf)
	if err != nil {
		p.active = nil
		p.notify(messageID, false)
		return PlayResult{MessageID: messageID, Outcome: OutcomeFailed}, fmt.Errorf("start playback: %w", err)
	}
	sess.playback = pb
	go p.watch(sess, pb)

	return PlayResult{
		MessageID: messageID,
		Outcome:   OutcomePlaying,
		Cached:    fromCache,
		Done:      pb.Done(),
	}, nil
}

// StopAll 停止当前输出，视图销毁时调用
func (p *Player) StopAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

// Active 返回当前处于播放（或合成中）的消息 ID
func (p *Player) Active() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active == nil {
		return "", false
	}
	return p.active.messageID, true
}

func (p *Player) stopLocked() {
	if p.active == nil {
		return
	}
	sess := p.active
	p.active = nil
	if sess.playback != nil {
		sess.playback.Stop()
	}
	p.notify(sess.messageID, false)
}

func (p *Player) release(sess *playbackSession) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active == sess {
		p.active = nil
		p.notify(sess.messageID, false)
	}
}

// watch 在输出自然结束后清除活动标记
func (p *Player) watch(sess *playbackSession, pb Playback) {
	<-pb.Done()
	p.release(sess)
}

func (p *Player) notify(messageID string, playing bool) {
	if p.listener != nil {
		p.listener(messageID, playing)
	}
}
