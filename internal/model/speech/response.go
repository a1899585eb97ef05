package speech

import "time"

// TTSResponse 语音合成响应，AudioData 为服务商返回的编码音频（16bit PCM）
type TTSResponse struct {
	SessionID  string    `json:"sessionId"`
	AudioData  []byte    `json:"-"`
	MIMEType   string    `json:"mimeType"`
	SampleRate int       `json:"sampleRate"`
	Channels   int       `json:"channels"`
	RequestID  string    `json:"requestId,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Recording 一次录音结束后得到的不可变音频产物
type Recording struct {
	ID        string        `json:"id"`
	Data      []byte        `json:"-"`
	MIMEType  string        `json:"mimeType"`
	Chunks    int           `json:"chunks"`
	Size      int           `json:"size"`
	StartedAt time.Time     `json:"startedAt"`
	Duration  time.Duration `json:"duration"`
}
