package httputil

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type sampleRequest struct {
	Text  string `json:"text" validate:"required,max=10"`
	Limit int    `json:"limit" validate:"omitempty,min=1"`
}

func TestDecodeJSONAndFailRequest(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantErr    bool
		wantStatus int
	}{
		{name: "valid", body: `{"text":"hi"}`},
		{name: "malformed", body: `{"text":`, wantErr: true, wantStatus: http.StatusBadRequest},
		{name: "missing field", body: `{}`, wantErr: true, wantStatus: http.StatusUnprocessableEntity},
		{name: "too long", body: `{"text":"hello world!"}`, wantErr: true, wantStatus: http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var v sampleRequest
			err := DecodeJSON(req, &v)
			if (err != nil) != tt.wantErr {
				t.Fatalf("DecodeJSON error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr {
				return
			}
			rec := httptest.NewRecorder()
			FailRequest(discardLogger(), rec, err)
			if rec.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
		})
	}
}

func TestValidationErrorListsFields(t *testing.T) {
	err := Validator.Struct(sampleRequest{Limit: -1})
	rec := httptest.NewRecorder()
	ValidationError(discardLogger(), rec, err)

	var body struct {
		Detail []FieldError `json:"detail"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(body.Detail) != 2 {
		t.Fatalf("expected 2 field errors, got %v", body.Detail)
	}
	if body.Detail[0].Field != "Text" || body.Detail[0].Rule != "required" {
		t.Errorf("unexpected first field error: %+v", body.Detail[0])
	}
}

func TestFailWritesJSONDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	Fail(discardLogger(), rec, "llm unavailable", io.EOF, http.StatusBadGateway)

	if rec.Code != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected JSON content type, got %s", ct)
	}
	if !strings.Contains(rec.Body.String(), "llm unavailable") {
		t.Errorf("expected detail in body, got %s", rec.Body.String())
	}
}

func TestRouterRecoversPanics(t *testing.T) {
	r := NewRouter(discardLogger(), "test")
	r.Get("/boom", func(w http.ResponseWriter, r *http.Request) { panic("boom") })
	r.Get("/healthz", HealthHandler(discardLogger()))

	srv := httptest.NewServer(r)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/boom")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || string(body) != "ok" {
		t.Errorf("unexpected health answer %d %q", resp.StatusCode, body)
	}
}

func TestRouterServesMetrics(t *testing.T) {
	r := NewRouter(discardLogger(), "test")

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("unexpected content type %q", ct)
	}
}
