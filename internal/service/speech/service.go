package speech

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/likeness-ai/command-center/backend/internal/model/speech"
)

// Synthesizer 抽象外部语音合成服务
type Synthesizer interface {
	SynthesizeSpeech(ctx context.Context, req *speech.TTSRequest) (*speech.TTSResponse, error)
}

// AudioCache 保存消息上已解码的音频。缓存一经写入不可覆盖，StoreAudio 返回最终生效的缓冲。
type AudioCache interface {
	CachedAudio(messageID string) (*speech.AudioBuffer, bool)
	StoreAudio(messageID string, buf *speech.AudioBuffer) (*speech.AudioBuffer, error)
}

// Options 语音服务参数
type Options struct {
	Voice      string
	SampleRate int
	Channels   int
	Timeout    time.Duration
}

func (o Options) withDefaults() Options {
	if o.SampleRate <= 0 {
		o.SampleRate = speech.DefaultSampleRate
	}
	if o.Channels <= 0 {
		o.Channels = speech.DefaultChannels
	}
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	return o
}

// Service 负责合成、解码与按消息缓存音频
type Service struct {
	synth Synthesizer
	cache AudioCache
	opts  Options
	group singleflight.Group
}

// NewService 创建语音服务，cache 可为空（此时每次都重新合成）
func NewService(synth Synthesizer, cache AudioCache, opts Options) *Service {
	return &Service{
		synth: synth,
		cache: cache,
		opts:  opts.withDefaults(),
	}
}

// Options 返回生效的服务参数
func (s *Service) Options() Options {
	return s.opts
}

// Synthesize 调用合成服务并将返回的 PCM 解码为浮点缓冲，不经过缓存
func (s *Service) Synthesize(ctx context.Context, req *speech.TTSRequest) (*speech.AudioBuffer, error) {
	if s.synth == nil {
		return nil, fmt.Errorf("speech synthesizer not configured")
	}
	if req == nil || strings.TrimSpace(req.Text) == "" {
		return nil, ErrEmptyText
	}
	if req.Voice == "" {
		req.Voice = s.opts.Voice
	}

	resp, err := s.synth.SynthesizeSpeech(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("synthesize speech: %w", err)
	}
	if resp == nil || len(resp.AudioData) == 0 {
		return nil, ErrNoAudio
	}

	if rate, ok := SampleRateFromMIME(resp.MIMEType); ok && rate != s.opts.SampleRate {
		log.Printf("[speech] provider rate %d differs from configured %d, decoding at %d", rate, s.opts.SampleRate, s.opts.SampleRate)
	}

	buf, err := DecodePCM16(resp.AudioData, s.opts.SampleRate, s.opts.Channels)
	if err != nil {
		return nil, fmt.Errorf("decode speech audio: %w", err)
	}
	return buf, nil
}

// LoadAudio 返回消息对应的音频：优先命中缓存，否则合成并写回消息。
// 同一消息的并发请求只会触发一次合成；合成不随调用方取消，以便结果始终能落入缓存。
// 第二个返回值表示是否命中缓存。
func (s *Service) LoadAudio(ctx context.Context, messageID, text string) (*speech.AudioBuffer, bool, error) {
	if strings.TrimSpace(messageID) == "" {
		return nil, false, ErrMissingMessageID
	}
	if buf, ok := s.cached(messageID); ok {
		return buf, true, nil
	}
	if strings.TrimSpace(text) == "" {
		return nil, false, ErrEmptyText
	}

	v, err, _ := s.group.Do(messageID, func() (any, error) {
		if buf, ok := s.cached(messageID); ok {
			return buf, nil
		}

		synthCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.Timeout)
		defer cancel()

		start := time.Now()
		buf, err := s.Synthesize(synthCtx, &speech.TTSRequest{MessageID: messageID, Text: text})
		if err != nil {
			return nil, err
		}
		log.Printf("[speech] synthesized message %s: %.2fs audio in %s", messageID, buf.Duration().Seconds(), time.Since(start).Round(time.Millisecond))

		if s.cache == nil {
			return buf, nil
		}
		stored, err := s.cache.StoreAudio(messageID, buf)
		if err != nil {
			log.Printf("[speech] cache audio for message %s failed: %v", messageID, err)
			return buf, nil
		}
		return stored, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v.(*speech.AudioBuffer), false, nil
}

func (s *Service) cached(messageID string) (*speech.AudioBuffer, bool) {
	if s.cache == nil {
		return nil, false
	}
	buf, ok := s.cache.CachedAudio(messageID)
	if !ok || buf == nil {
		return nil, false
	}
	return buf, true
}
