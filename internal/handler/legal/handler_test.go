package legal

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	legalService "github.com/likeness-ai/command-center/backend/internal/service/legal"
)

type fakeDrafter struct {
	err   error
	calls int
}

func (f *fakeDrafter) DraftCeaseAndDesist(ctx context.Context, violator, asset, usage string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return "CEASE AND DESIST: " + violator, nil
}

func serveLegal(drafter *fakeDrafter, body string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	New(legalService.NewService(drafter)).RegisterRoutes(r)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/legal/cease-and-desist", strings.NewReader(body)))
	return rec
}

func TestCeaseAndDesist(t *testing.T) {
	rec := serveLegal(&fakeDrafter{}, `{"violator":"Acme","asset":"MyVoice_V1","usage":"radio ads"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var letter legalService.Letter
	if err := json.NewDecoder(rec.Body).Decode(&letter); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if letter.Body != "CEASE AND DESIST: Acme" {
		t.Fatalf("body = %q", letter.Body)
	}
}

func TestCeaseAndDesistValidation(t *testing.T) {
	drafter := &fakeDrafter{}
	if rec := serveLegal(drafter, `{"violator":"Acme"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if drafter.calls != 0 {
		t.Fatalf("drafter must not be called without an asset")
	}

	if rec := serveLegal(&fakeDrafter{err: errors.New("down")}, `{"violator":"Acme","asset":"Face"}`); rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
}
