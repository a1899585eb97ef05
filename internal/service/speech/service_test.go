package speech

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestLoadAudioCacheHitSkipsSynthesis(t *testing.T) {
	synth := &fakeSynth{data: pcmBytes(1, 2, 3, 4)}
	cache := newMemCache()
	svc := NewService(synth, cache, Options{})

	first, hit, err := svc.LoadAudio(context.Background(), "m1", "hello")
	if err != nil {
		t.Fatalf("first load: %v", err)
	}
	if hit {
		t.Fatalf("first load should miss the cache")
	}

	second, hit, err := svc.LoadAudio(context.Background(), "m1", "hello")
	if err != nil {
		t.Fatalf("second load: %v", err)
	}
	if !hit {
		t.Fatalf("second load should hit the cache")
	}
	if second != first {
		t.Fatalf("cached buffer was not reused verbatim")
	}
	if calls := synth.Calls(); calls != 1 {
		t.Fatalf("synthesizer called %d times, want 1", calls)
	}
}

func TestLoadAudioSingleFlight(t *testing.T) {
	gate := make(chan struct{})
	synth := &fakeSynth{data: pcmBytes(1, 2), gate: gate}
	svc := NewService(synth, newMemCache(), Options{})

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := svc.LoadAudio(context.Background(), "m1", "hello"); err != nil {
				t.Errorf("load: %v", err)
			}
		}()
	}

	deadline := time.Now().Add(time.Second)
	for synth.Calls() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(10 * time.Millisecond)
	close(gate)
	wg.Wait()

	if calls := synth.Calls(); calls != 1 {
		t.Fatalf("synthesizer called %d times, want 1", calls)
	}
}

func TestLoadAudioErrors(t *testing.T) {
	providerErr := errors.New("quota exceeded")
	tests := []struct {
		name  string
		synth *fakeSynth
		text  string
		want  error
	}{
		{name: "provider failure", synth: &fakeSynth{err: providerErr}, text: "hi", want: providerErr},
		{name: "empty payload", synth: &fakeSynth{}, text: "hi", want: ErrNoAudio},
		{name: "undecodable payload", synth: &fakeSynth{data: []byte{1}}, text: "hi", want: ErrInvalidAudio},
		{name: "empty text", synth: &fakeSynth{data: pcmBytes(1)}, text: "  ", want: ErrEmptyText},
	}

	for _, tt := range tests {
		cache := newMemCache()
		svc := NewService(tt.synth, cache, Options{})
		_, _, err := svc.LoadAudio(context.Background(), "m1", tt.text)
		if !errors.Is(err, tt.want) {
			t.Errorf("%s: err = %v, want %v", tt.name, err, tt.want)
		}
		if _, ok := cache.CachedAudio("m1"); ok {
			t.Errorf("%s: failed load must not populate the cache", tt.name)
		}
	}
}

func TestLoadAudioIgnoresCallerCancellation(t *testing.T) {
	gate := make(chan struct{})
	synth := &fakeSynth{data: pcmBytes(1, 2), gate: gate}
	cache := newMemCache()
	svc := NewService(synth, cache, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, _, err := svc.LoadAudio(ctx, "m1", "hello")
		done <- err
	}()

	cancel()
	close(gate)
	if err := <-done; err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, ok := cache.CachedAudio("m1"); !ok {
		t.Fatalf("synthesized audio should be cached even after the caller went away")
	}
}
