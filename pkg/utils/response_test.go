package utils

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestDecodeJSON(t *testing.T) {
	cases := []struct {
		name    string
		body    string
		limit   int64
		wantErr string
	}{
		{name: "ok", body: `{"idea":"x"}`},
		{name: "empty", body: ``, wantErr: "request body is empty"},
		{name: "malformed", body: `{"idea":`, wantErr: "invalid request body"},
		{name: "too large", body: `{"idea":"xxxxxxxxxxxxxxxx"}`, limit: 8, wantErr: "invalid request body"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var dst struct {
				Idea string `json:"idea"`
			}
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body))

			err := DecodeJSON(rec, req, &dst, tc.limit)
			if tc.wantErr == "" {
				if err != nil || dst.Idea != "x" {
					t.Fatalf("unexpected result %+v err=%v", dst, err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("err = %v, want %q", err, tc.wantErr)
			}
		})
	}
}

func TestRespondError(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, http.StatusBadGateway, "provider down")

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{"error":"provider down"}` {
		t.Fatalf("body = %s", got)
	}
}
