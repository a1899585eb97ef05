package speech

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/likeness-ai/command-center/backend/internal/model/speech"
	"github.com/likeness-ai/command-center/backend/internal/service/assistant"
	chatService "github.com/likeness-ai/command-center/backend/internal/service/chat"
	speechsvc "github.com/likeness-ai/command-center/backend/internal/service/speech"
)

type fakeSynth struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeSynth) SynthesizeSpeech(ctx context.Context, req *speech.TTSRequest) (*speech.TTSResponse, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	// 20ms 静音 + 一个非零样本
	pcm := make([]byte, 480*2)
	pcm[2] = 0xff
	pcm[3] = 0x3f
	return &speech.TTSResponse{
		AudioData: pcm,
		MIMEType:  "audio/L16;codec=pcm;rate=24000",
	}, nil
}

func (f *fakeSynth) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeNotes struct {
	mu  sync.Mutex
	got *speech.Recording
}

func (f *fakeNotes) SubmitVoiceNote(ctx context.Context, sessionID string, rec *speech.Recording) (*assistant.Turn, error) {
	f.mu.Lock()
	f.got = rec
	f.mu.Unlock()
	turn := &assistant.Turn{}
	turn.User.SessionID = sessionID
	turn.User.Content = assistant.AudioNoteContent
	turn.Reply.SessionID = sessionID
	turn.Reply.Content = "scored"
	return turn, nil
}

type testEnv struct {
	router  http.Handler
	store   *chatService.Service
	synth   *fakeSynth
	notes   *fakeNotes
	session string
}

func newTestEnv(t *testing.T, withAudio bool) *testEnv {
	t.Helper()

	store := chatService.NewService()
	session, err := store.CreateSession(context.Background())
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	env := &testEnv{store: store, synth: &fakeSynth{}, notes: &fakeNotes{}, session: session.ID}

	var loader AudioLoader
	if withAudio {
		loader = speechsvc.NewService(env.synth, store, speechsvc.Options{Timeout: time.Second})
	}

	r := chi.NewRouter()
	New(loader, store, env.notes, Options{FrameDuration: 10 * time.Millisecond}).RegisterRoutes(r)
	env.router = r
	return env
}

func (e *testEnv) welcomeID() string {
	return "welcome-" + e.session
}

func TestSynthesizeReturnsWAVAndCaches(t *testing.T) {
	env := newTestEnv(t, true)

	for i, wantCached := range []string{"false", "true"} {
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/speech/synthesize/"+env.welcomeID(), nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("call %d: status = %d body=%s", i, rec.Code, rec.Body.String())
		}
		if ct := rec.Header().Get("Content-Type"); ct != "audio/wav" {
			t.Fatalf("content type = %q", ct)
		}
		if got := rec.Header().Get("X-Audio-Cached"); got != wantCached {
			t.Fatalf("call %d: X-Audio-Cached = %q, want %q", i, got, wantCached)
		}
		body := rec.Body.Bytes()
		if !bytes.HasPrefix(body, []byte("RIFF")) || len(body) != 44+480*2 {
			t.Fatalf("unexpected wav: len=%d", len(body))
		}
	}

	if calls := env.synth.Calls(); calls != 1 {
		t.Fatalf("expected a single synthesis, got %d", calls)
	}
	msg, _ := env.store.GetMessage(context.Background(), env.welcomeID())
	if !msg.HasAudio || msg.Audio == nil {
		t.Fatalf("decoded audio should be attached to the message")
	}
}

func TestSynthesizeErrors(t *testing.T) {
	cases := []struct {
		name      string
		withAudio bool
		synthErr  error
		messageID func(*testEnv) string
		want      int
	}{
		{"unavailable", false, nil, (*testEnv).welcomeID, http.StatusServiceUnavailable},
		{"unknown message", true, nil, func(*testEnv) string { return "missing" }, http.StatusNotFound},
		{"provider failure", true, errors.New("quota"), (*testEnv).welcomeID, http.StatusBadGateway},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t, tc.withAudio)
			env.synth.err = tc.synthErr

			rec := httptest.NewRecorder()
			env.router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/speech/synthesize/"+tc.messageID(env), nil))
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d", rec.Code, tc.want)
			}
		})
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, false)

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/speech/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !bytes.Contains(rec.Body.Bytes(), []byte(`"synthesis":false`)) {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}
