package speech

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

type received struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func dial(t *testing.T, env *testEnv, sessionID string) (*websocket.Conn, func()) {
	t.Helper()

	server := httptest.NewServer(env.router)
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/speech/ws/" + sessionID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		server.Close()
		t.Fatalf("dial: %v", err)
	}
	return conn, func() {
		conn.Close()
		server.Close()
	}
}

func sendMessage(t *testing.T, conn *websocket.Conn, kind string, data any) {
	t.Helper()
	if err := conn.WriteJSON(map[string]any{"type": kind, "data": data}); err != nil {
		t.Fatalf("write %s: %v", kind, err)
	}
}

// readUntil 读取消息直到出现指定类型，途中的其他消息一并返回
func readUntil(t *testing.T, conn *websocket.Conn, kind string, match func(json.RawMessage) bool) []received {
	t.Helper()

	var seen []received
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		var msg received
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("waiting for %s: %v (seen %d messages)", kind, err, len(seen))
		}
		seen = append(seen, msg)
		if msg.Type == kind && (match == nil || match(msg.Data)) {
			return seen
		}
	}
}

func TestWebSocketUnknownSession(t *testing.T) {
	env := newTestEnv(t, true)
	server := httptest.NewServer(env.router)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/speech/ws/missing"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatalf("expected dial to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %+v", resp)
	}
}

func TestWebSocketPlayStreamsFrames(t *testing.T) {
	env := newTestEnv(t, true)
	conn, closeAll := dial(t, env, env.session)
	defer closeAll()

	readUntil(t, conn, "connected", nil)
	sendMessage(t, conn, "play", PlayMessage{MessageID: env.welcomeID()})

	seen := readUntil(t, conn, "playback", func(data json.RawMessage) bool {
		var ev playbackEvent
		return json.Unmarshal(data, &ev) == nil && !ev.Playing
	})

	var frames []audioFrameEvent
	started := false
	for _, msg := range seen {
		switch msg.Type {
		case "playback":
			var ev playbackEvent
			json.Unmarshal(msg.Data, &ev)
			if ev.Playing && ev.MessageID == env.welcomeID() {
				started = true
			}
		case "audio_frame":
			var f audioFrameEvent
			if err := json.Unmarshal(msg.Data, &f); err != nil {
				t.Fatalf("decode frame: %v", err)
			}
			frames = append(frames, f)
		}
	}

	if !started {
		t.Fatalf("expected playing=true before frames")
	}
	// 20ms 音频，10ms 一帧
	if len(frames) != 2 || !frames[1].Final || frames[0].Final {
		t.Fatalf("unexpected frames %+v", frames)
	}
	if frames[0].SampleRate != 24000 || frames[0].Channels != 1 || len(frames[0].PCM) != 240*2 {
		t.Fatalf("unexpected frame format %+v", frames[0])
	}
}

func TestWebSocketPlayUnknownMessage(t *testing.T) {
	env := newTestEnv(t, true)
	conn, closeAll := dial(t, env, env.session)
	defer closeAll()

	sendMessage(t, conn, "play", PlayMessage{MessageID: "nope"})
	seen := readUntil(t, conn, "error", nil)

	var ev errorEvent
	json.Unmarshal(seen[len(seen)-1].Data, &ev)
	if ev.Code != "message_not_found" {
		t.Fatalf("code = %q", ev.Code)
	}
	if env.synth.Calls() != 0 {
		t.Fatalf("synthesis should not run")
	}
}

func TestWebSocketRecordPermissionDenied(t *testing.T) {
	env := newTestEnv(t, true)
	conn, closeAll := dial(t, env, env.session)
	defer closeAll()

	sendMessage(t, conn, "record_start", RecordStartMessage{Granted: false})
	seen := readUntil(t, conn, "recording", nil)

	var sawDenied bool
	for _, msg := range seen {
		if msg.Type == "error" {
			var ev errorEvent
			json.Unmarshal(msg.Data, &ev)
			sawDenied = ev.Code == "permission_denied"
		}
	}
	if !sawDenied {
		t.Fatalf("expected permission_denied error, saw %+v", seen)
	}

	var state recordingEvent
	json.Unmarshal(seen[len(seen)-1].Data, &state)
	if state.State != "idle" {
		t.Fatalf("state = %q, want idle", state.State)
	}

	// 未录音时停止不产生任何产物
	sendMessage(t, conn, "record_stop", nil)
	sendMessage(t, conn, "bogus", nil)
	seen = readUntil(t, conn, "error", nil)
	for _, msg := range seen {
		if msg.Type == "message" || msg.Type == "recording" {
			t.Fatalf("unexpected %s after idle stop", msg.Type)
		}
	}
}

func TestWebSocketVoiceNote(t *testing.T) {
	env := newTestEnv(t, true)
	conn, closeAll := dial(t, env, env.session)
	defer closeAll()

	sendMessage(t, conn, "record_start", RecordStartMessage{Granted: true})
	readUntil(t, conn, "recording", func(data json.RawMessage) bool {
		var ev recordingEvent
		return json.Unmarshal(data, &ev) == nil && ev.State == "recording"
	})

	sendMessage(t, conn, "audio", AudioMessage{Chunk: []byte("abc")})
	sendMessage(t, conn, "audio", AudioMessage{Chunk: []byte("def")})
	sendMessage(t, conn, "record_stop", nil)

	seen := readUntil(t, conn, "message", nil)

	var stopped recordingEvent
	for _, msg := range seen {
		if msg.Type == "recording" {
			json.Unmarshal(msg.Data, &stopped)
		}
	}
	if stopped.State != "idle" || stopped.Size != 6 || stopped.Chunks != 2 {
		t.Fatalf("unexpected recording event %+v", stopped)
	}

	env.notes.mu.Lock()
	got := env.notes.got
	env.notes.mu.Unlock()
	if got == nil || string(got.Data) != "abcdef" {
		t.Fatalf("voice note recording = %+v", got)
	}
}

func TestWebSocketEmptyRecordingReportsError(t *testing.T) {
	env := newTestEnv(t, true)
	conn, closeAll := dial(t, env, env.session)
	defer closeAll()

	sendMessage(t, conn, "record_start", RecordStartMessage{Granted: true})
	readUntil(t, conn, "recording", func(data json.RawMessage) bool {
		var ev recordingEvent
		return json.Unmarshal(data, &ev) == nil && ev.State == "recording"
	})
	sendMessage(t, conn, "record_stop", nil)

	seen := readUntil(t, conn, "error", nil)
	var ev errorEvent
	json.Unmarshal(seen[len(seen)-1].Data, &ev)
	if ev.Code != "empty_recording" {
		t.Fatalf("code = %q, want empty_recording", ev.Code)
	}
	for _, msg := range seen {
		if msg.Type == "message" {
			t.Fatalf("empty recording must not produce a voice note")
		}
	}

	env.notes.mu.Lock()
	defer env.notes.mu.Unlock()
	if env.notes.got != nil {
		t.Fatalf("voice note flow should not run for an empty recording")
	}
}
