package speech

import "time"

const (
	// DefaultSampleRate 合成语音的固定采样率
	DefaultSampleRate = 24000
	// DefaultChannels 合成语音的声道数
	DefaultChannels = 1
)

// AudioBuffer 已解码的音频数据，样本按声道交错排列，取值范围 [-1, 1]。
// 缓存后视为只读，播放时按引用共享。
type AudioBuffer struct {
	SampleRate int       `json:"sampleRate"`
	Channels   int       `json:"channels"`
	Samples    []float32 `json:"-"`
}

// Frames 返回每个声道的样本数
func (b *AudioBuffer) Frames() int {
	if b == nil || b.Channels <= 0 {
		return 0
	}
	return len(b.Samples) / b.Channels
}

// Duration 返回音频时长
func (b *AudioBuffer) Duration() time.Duration {
	if b == nil || b.SampleRate <= 0 {
		return 0
	}
	return time.Duration(b.Frames()) * time.Second / time.Duration(b.SampleRate)
}
