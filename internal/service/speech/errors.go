package speech

import "errors"

var (
	// ErrNoAudio 服务商未返回音频数据，视为协议违约而非空结果
	ErrNoAudio = errors.New("no audio data returned")
	// ErrInvalidAudio 音频数据无法按 16bit PCM 解码
	ErrInvalidAudio = errors.New("invalid pcm audio")
	// ErrEmptyText 待合成文本为空
	ErrEmptyText = errors.New("tts text is empty")
	// ErrMissingMessageID 播放请求缺少消息 ID
	ErrMissingMessageID = errors.New("message id is required")

	// ErrPermissionDenied 麦克风权限被拒绝
	ErrPermissionDenied = errors.New("microphone permission denied")
	// ErrDeviceBusy 麦克风已被其他录音会话占用
	ErrDeviceBusy = errors.New("microphone already in use")
	// ErrNotRecording 当前没有进行中的录音
	ErrNotRecording = errors.New("not recording")
	// ErrClosed 组件已销毁
	ErrClosed = errors.New("closed")
)
