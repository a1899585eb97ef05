package config

import "testing"

func TestLoadServerConfigPort(t *testing.T) {
	cases := []struct {
		port    string
		want    string
		wantErr bool
	}{
		{port: "9090", want: ":9090"},
		{port: ":8081", want: ":8081"},
		{port: "127.0.0.1:7000", want: "127.0.0.1:7000"},
		{port: "80 80", wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.port, func(t *testing.T) {
			t.Setenv("PORT", tc.port)
			cfg, err := loadServerConfig()
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tc.port)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cfg.Addr != tc.want {
				t.Fatalf("addr = %q, want %q", cfg.Addr, tc.want)
			}
		})
	}
}

func TestLoadAIConfigFallsBackToAPIKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("API_KEY", "  secret ")
	t.Setenv("AI_PROVIDER", "Gemini")
	t.Setenv("AI_TEMPERATURE", "0.4")

	cfg, err := loadAIConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.GeminiAPIKey != "secret" || !cfg.Enabled() {
		t.Fatalf("expected gemini enabled via API_KEY, got %+v", cfg)
	}
	if cfg.Temperature == nil || *cfg.Temperature != 0.4 {
		t.Fatalf("temperature = %v", cfg.Temperature)
	}
}

func TestLoadAIConfigRejectsUnknownProvider(t *testing.T) {
	t.Setenv("AI_PROVIDER", "openai")
	if _, err := loadAIConfig(); err == nil {
		t.Fatalf("expected error for unknown provider")
	}
}

func TestSpeechConfigDefaults(t *testing.T) {
	cfg, err := loadSpeechConfig(AIConfig{GeminiAPIKey: "k"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Voice != "Fenrir" || cfg.SampleRate != 24000 || cfg.Channels != 1 || !cfg.Enabled {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestVoiceNoteTranscriberValidation(t *testing.T) {
	t.Setenv("VOICE_NOTE_TRANSCRIBER", "whisper")
	if _, err := loadVoiceNoteConfig(); err == nil {
		t.Fatalf("expected error for unknown transcriber")
	}

	t.Setenv("VOICE_NOTE_TRANSCRIBER", " Gemini ")
	cfg, err := loadVoiceNoteConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Transcriber != TranscriberGemini {
		t.Fatalf("transcriber = %q", cfg.Transcriber)
	}
}
