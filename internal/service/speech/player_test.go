package speech

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/likeness-ai/command-center/backend/internal/model/speech"
)

func newTestPlayer(synth *fakeSynth) (*Player, *fakeOutput, *memCache) {
	cache := newMemCache()
	out := &fakeOutput{}
	svc := NewService(synth, cache, Options{})
	return NewPlayer(svc, out, nil), out, cache
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met in time")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestPlayOrToggleTogglesOff(t *testing.T) {
	player, out, _ := newTestPlayer(&fakeSynth{data: pcmBytes(1, 2)})
	ctx := context.Background()

	res, err := player.PlayOrToggle(ctx, "m1", "hello", nil)
	if err != nil || res.Outcome != OutcomePlaying {
		t.Fatalf("first play = %+v, %v", res, err)
	}

	res, err = player.PlayOrToggle(ctx, "m1", "hello", nil)
	if err != nil || res.Outcome != OutcomeStopped {
		t.Fatalf("second play = %+v, %v", res, err)
	}
	if _, ok := player.Active(); ok {
		t.Fatalf("no session should be active after toggle off")
	}
	if got := out.Active(); got != 0 {
		t.Fatalf("active outputs = %d, want 0", got)
	}
	if !reflect.DeepEqual(out.Events(), []string{"play#1", "stop#1"}) {
		t.Fatalf("events = %v", out.Events())
	}
}

func TestPlayOrToggleCacheHitSkipsSynthesis(t *testing.T) {
	synth := &fakeSynth{data: pcmBytes(1, 2)}
	player, out, _ := newTestPlayer(synth)
	ctx := context.Background()

	if _, err := player.PlayOrToggle(ctx, "m1", "hello", nil); err != nil {
		t.Fatalf("play: %v", err)
	}
	out.Playback(1).Finish()
	waitFor(t, func() bool { _, ok := player.Active(); return !ok })

	res, err := player.PlayOrToggle(ctx, "m1", "hello", nil)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if !res.Cached {
		t.Fatalf("replay should use the cached buffer")
	}
	if calls := synth.Calls(); calls != 1 {
		t.Fatalf("synthesizer called %d times, want 1", calls)
	}
	if out.Playback(1).buf != out.Playback(2).buf {
		t.Fatalf("replay must reuse the same buffer")
	}
}

func TestPlayOrToggleUsesProvidedBuffer(t *testing.T) {
	synth := &fakeSynth{data: pcmBytes(1, 2)}
	player, out, _ := newTestPlayer(synth)
	buf := &speech.AudioBuffer{SampleRate: 24000, Channels: 1, Samples: []float32{0.1}}

	res, err := player.PlayOrToggle(context.Background(), "m1", "hello", buf)
	if err != nil || !res.Cached {
		t.Fatalf("play = %+v, %v", res, err)
	}
	if synth.Calls() != 0 {
		t.Fatalf("synthesizer should not be called when a buffer is supplied")
	}
	if out.Playback(1).buf != buf {
		t.Fatalf("output did not receive the supplied buffer")
	}
}

func TestPlayOrToggleSwitchStopsPreviousFirst(t *testing.T) {
	player, out, _ := newTestPlayer(&fakeSynth{data: pcmBytes(1, 2)})
	ctx := context.Background()

	if _, err := player.PlayOrToggle(ctx, "a", "first", nil); err != nil {
		t.Fatalf("play a: %v", err)
	}
	res, err := player.PlayOrToggle(ctx, "b", "second", nil)
	if err != nil || res.Outcome != OutcomePlaying {
		t.Fatalf("play b = %+v, %v", res, err)
	}

	if !reflect.DeepEqual(out.Events(), []string{"play#1", "stop#1", "play#2"}) {
		t.Fatalf("events = %v", out.Events())
	}
	if id, _ := player.Active(); id != "b" {
		t.Fatalf("active = %q, want b", id)
	}
	if got := out.Active(); got != 1 {
		t.Fatalf("active outputs = %d, want 1", got)
	}
}

func TestPlayOrToggleDropsStaleAudio(t *testing.T) {
	gate := make(chan struct{})
	synth := &fakeSynth{data: pcmBytes(1, 2), gate: gate}
	player, out, cache := newTestPlayer(synth)
	ctx := context.Background()

	results := make(chan PlayResult, 1)
	go func() {
		res, _ := player.PlayOrToggle(ctx, "m1", "hello", nil)
		results <- res
	}()

	waitFor(t, func() bool { return synth.Calls() == 1 })
	res, err := player.PlayOrToggle(ctx, "m1", "hello", nil)
	if err != nil || res.Outcome != OutcomeStopped {
		t.Fatalf("toggle during synthesis = %+v, %v", res, err)
	}

	close(gate)
	if res := <-results; res.Outcome != OutcomeSuperseded {
		t.Fatalf("pending play outcome = %s, want superseded", res.Outcome)
	}
	if len(out.Events()) != 0 {
		t.Fatalf("stale audio must not be played, events = %v", out.Events())
	}
	if _, ok := cache.CachedAudio("m1"); !ok {
		t.Fatalf("late synthesis result should still be cached")
	}
}

func TestPlayOrToggleFailureClearsMarker(t *testing.T) {
	var mu sync.Mutex
	var states []bool
	synth := &fakeSynth{err: errors.New("boom")}
	out := &fakeOutput{}
	player := NewPlayer(NewService(synth, newMemCache(), Options{}), out, func(_ string, playing bool) {
		mu.Lock()
		states = append(states, playing)
		mu.Unlock()
	})

	res, err := player.PlayOrToggle(context.Background(), "m1", "hello", nil)
	if err == nil || res.Outcome != OutcomeFailed {
		t.Fatalf("play = %+v, %v", res, err)
	}
	if _, ok := player.Active(); ok {
		t.Fatalf("marker should be cleared after failure")
	}
	mu.Lock()
	defer mu.Unlock()
	if !reflect.DeepEqual(states, []bool{true, false}) {
		t.Fatalf("states = %v", states)
	}
}

func TestPlayOrToggleNaturalEndClearsMarker(t *testing.T) {
	player, out, _ := newTestPlayer(&fakeSynth{data: pcmBytes(1, 2)})

	res, err := player.PlayOrToggle(context.Background(), "m1", "hello", nil)
	if err != nil {
		t.Fatalf("play: %v", err)
	}
	out.Playback(1).Finish()

	select {
	case <-res.Done:
	case <-time.After(time.Second):
		t.Fatalf("Done was not closed")
	}
	waitFor(t, func() bool { _, ok := player.Active(); return !ok })
}

func TestPlayOrToggleRequiresMessageID(t *testing.T) {
	player, _, _ := newTestPlayer(&fakeSynth{})
	if _, err := player.PlayOrToggle(context.Background(), " ", "hello", nil); !errors.Is(err, ErrMissingMessageID) {
		t.Fatalf("err = %v", err)
	}
}

func TestStopAllReleasesOutputAcrossCycles(t *testing.T) {
	synth := &fakeSynth{data: pcmBytes(1, 2)}
	cache := newMemCache()
	out := &fakeOutput{}
	svc := NewService(synth, cache, Options{})

	for i := 0; i < 10; i++ {
		player := NewPlayer(svc, out, nil)
		if _, err := player.PlayOrToggle(context.Background(), "m1", "hello", nil); err != nil {
			t.Fatalf("cycle %d: %v", i, err)
		}
		player.StopAll()
		if got := out.Active(); got != 0 {
			t.Fatalf("cycle %d: active outputs = %d, want 0", i, got)
		}
	}
	if calls := synth.Calls(); calls != 1 {
		t.Fatalf("synthesizer called %d times, want 1", calls)
	}
}
