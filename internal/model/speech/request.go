package speech

// TTSRequest 语音合成请求
type TTSRequest struct {
	SessionID string `json:"sessionId"`
	MessageID string `json:"messageId"`
	Text      string `json:"text"`
	Voice     string `json:"voice"` // 预置音色，例如 Fenrir
}
