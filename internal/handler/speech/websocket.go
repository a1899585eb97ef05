package speech

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/sourcegraph/conc"

	"github.com/likeness-ai/command-center/backend/internal/service/assistant"
	speechsvc "github.com/likeness-ai/command-center/backend/internal/service/speech"
)

const (
	readTimeout  = 60 * time.Second
	writeTimeout = 10 * time.Second
	pingInterval = 25 * time.Second
)

type inboundMessage struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

// PlayMessage 播放/停止某条消息的音频
type PlayMessage struct {
	MessageID string `json:"messageId"`
}

// RecordStartMessage 开始录音，Granted 为浏览器麦克风授权结果
type RecordStartMessage struct {
	Granted bool `json:"granted"`
}

// AudioMessage 录音数据块
type AudioMessage struct {
	Chunk []byte `json:"chunk"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

type playbackEvent struct {
	MessageID string `json:"messageId"`
	Playing   bool   `json:"playing"`
}

type audioFrameEvent struct {
	PlaybackID uint64 `json:"playbackId"`
	Seq        int    `json:"seq"`
	PCM        []byte `json:"pcm"`
	SampleRate int    `json:"sampleRate"`
	Channels   int    `json:"channels"`
	Final      bool   `json:"final"`
}

type recordingEvent struct {
	State    speechsvc.RecorderState `json:"state"`
	ID       string                  `json:"id,omitempty"`
	Size     int                     `json:"size,omitempty"`
	Chunks   int                     `json:"chunks,omitempty"`
	Duration float64                 `json:"durationSeconds,omitempty"`
}

type errorEvent struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// connection 一个视图对应一条连接：独占一个播放器与一个录音器
type connection struct {
	h         *Handler
	conn      *websocket.Conn
	sessionID string

	writeMu sync.Mutex
	closed  bool

	output   *speechsvc.StreamOutput
	player   *speechsvc.Player
	mic      *speechsvc.ChunkMicrophone
	recorder *speechsvc.Recorder
	tasks    conc.WaitGroup
}

// handleWebSocket 处理WebSocket连接
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		http.Error(w, "sessionID is required", http.StatusBadRequest)
		return
	}

	if _, err := h.convo.GetSession(r.Context(), sessionID); err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] upgrade failed: %v", err)
		return
	}

	c := h.newConnection(conn, sessionID)
	log.Printf("[ws] new connection for session: %s", sessionID)

	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		c.teardown()
		log.Printf("[ws] connection closed for session: %s", sessionID)
	}()

	conn.SetReadLimit(1 << 20)
	conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	go c.pingLoop(ctx)

	c.send("connected", map[string]any{
		"synthesis": h.audio != nil,
		"recording": c.recorder.State(),
	})

	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[ws] read error: %v", err)
			}
			return
		}

		conn.SetReadDeadline(time.Now().Add(readTimeout))

		if msg.SessionID != "" && msg.SessionID != sessionID {
			c.sendError("session_mismatch", "session mismatch")
			continue
		}

		c.handleMessage(ctx, &msg)
	}
}

func (h *Handler) newConnection(conn *websocket.Conn, sessionID string) *connection {
	c := &connection{
		h:         h,
		conn:      conn,
		sessionID: sessionID,
		mic:       speechsvc.NewChunkMicrophone(),
	}
	c.output = speechsvc.NewStreamOutput(c, h.opts.FrameDuration)
	if h.audio != nil {
		c.player = speechsvc.NewPlayer(h.audio, c.output, c.onPlaybackState)
	}
	c.recorder = speechsvc.NewRecorder(c.mic, h.opts.RecordingMIME)
	return c
}

func (c *connection) handleMessage(ctx context.Context, msg *inboundMessage) {
	switch msg.Type {
	case "play":
		var payload PlayMessage
		if err := json.Unmarshal(msg.Data, &payload); err != nil || payload.MessageID == "" {
			c.sendError("invalid_payload", "play requires messageId")
			return
		}
		// 合成可能较慢，放到后台以便继续接收 stop/toggle
		c.tasks.Go(func() { c.play(ctx, payload.MessageID) })
	case "stop_all":
		if c.player != nil {
			c.player.StopAll()
		}
	case "record_start":
		var payload RecordStartMessage
		if len(msg.Data) > 0 {
			if err := json.Unmarshal(msg.Data, &payload); err != nil {
				c.sendError("invalid_payload", "invalid record_start payload")
				return
			}
		}
		c.startRecording(ctx, payload.Granted)
	case "audio":
		var payload AudioMessage
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			c.sendError("invalid_payload", "invalid audio payload")
			return
		}
		if err := c.mic.Push(payload.Chunk); err != nil {
			c.sendError("not_recording", err.Error())
		}
	case "record_stop":
		c.stopRecording(ctx)
	default:
		c.sendError("unknown_type", "unknown message type: "+msg.Type)
	}
}

func (c *connection) play(ctx context.Context, messageID string) {
	if c.player == nil {
		c.sendError("synthesis_unavailable", "speech synthesis unavailable")
		return
	}

	msg, err := c.h.convo.GetMessage(ctx, messageID)
	if err != nil || msg.SessionID != c.sessionID {
		c.sendError("message_not_found", "message not found")
		return
	}

	res, err := c.player.PlayOrToggle(ctx, msg.ID, msg.Content, msg.Audio)
	if err != nil {
		if !errors.Is(err, speechsvc.ErrClosed) {
			c.sendError("playback_failed", err.Error())
		}
		return
	}
	log.Printf("[ws] play message=%s outcome=%s cached=%v", messageID, res.Outcome, res.Cached)
}

func (c *connection) startRecording(ctx context.Context, granted bool) {
	c.mic.Grant(granted)
	if err := c.recorder.Start(ctx); err != nil {
		code := "recording_failed"
		if errors.Is(err, speechsvc.ErrPermissionDenied) {
			code = "permission_denied"
		}
		c.sendError(code, err.Error())
		c.send("recording", recordingEvent{State: c.recorder.State()})
		return
	}
	c.send("recording", recordingEvent{State: c.recorder.State()})
}

func (c *connection) stopRecording(ctx context.Context) {
	rec, err := c.recorder.Stop(ctx)
	if err != nil {
		c.sendError("recording_failed", err.Error())
		return
	}
	if rec == nil {
		return
	}

	c.send("recording", recordingEvent{
		State:    c.recorder.State(),
		ID:       rec.ID,
		Size:     rec.Size,
		Chunks:   rec.Chunks,
		Duration: rec.Duration.Seconds(),
	})

	if c.h.notes == nil {
		c.sendError("voice_notes_unavailable", "voice notes unavailable")
		return
	}
	if rec.Size == 0 {
		c.sendError("empty_recording", assistant.ErrEmptyRecording.Error())
		return
	}
	c.tasks.Go(func() {
		turn, err := c.h.notes.SubmitVoiceNote(ctx, c.sessionID, rec)
		if err != nil {
			c.sendError("voice_note_failed", err.Error())
			return
		}
		c.send("message", turn)
	})
}

// WriteFrame 实现 speechsvc.FrameSink
func (c *connection) WriteFrame(frame speechsvc.AudioFrame) error {
	return c.write(outgoingMessage{
		Type:      "audio_frame",
		SessionID: c.sessionID,
		Data: audioFrameEvent{
			PlaybackID: frame.PlaybackID,
			Seq:        frame.Seq,
			PCM:        frame.PCM,
			SampleRate: frame.SampleRate,
			Channels:   frame.Channels,
			Final:      frame.Final,
		},
		Timestamp: time.Now().UnixMilli(),
	})
}

func (c *connection) onPlaybackState(messageID string, playing bool) {
	c.send("playback", playbackEvent{MessageID: messageID, Playing: playing})
}

func (c *connection) send(kind string, data interface{}) {
	msg := outgoingMessage{
		Type:      kind,
		SessionID: c.sessionID,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	}
	if err := c.write(msg); err != nil && !errors.Is(err, speechsvc.ErrClosed) {
		log.Printf("[ws] send %s failed: %v", kind, err)
	}
}

func (c *connection) sendError(code, message string) {
	c.send("error", errorEvent{Code: code, Message: message})
}

func (c *connection) write(msg outgoingMessage) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.closed {
		return speechsvc.ErrClosed
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteJSON(msg)
}

func (c *connection) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		}
	}
}

// teardown 视图销毁：停止播放、释放麦克风并等待后台任务退出
func (c *connection) teardown() {
	if c.player != nil {
		c.player.StopAll()
	}
	c.output.Close()
	c.recorder.Close()
	c.tasks.Wait()

	c.writeMu.Lock()
	c.closed = true
	c.writeMu.Unlock()
	c.conn.Close()
}
