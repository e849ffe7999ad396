package mw

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/MrSnakeDoc/stash/internal/logger"
	"github.com/MrSnakeDoc/stash/internal/sessiondb"
	"github.com/MrSnakeDoc/stash/internal/utils"
)

var noContent = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
})

func decodeMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body utils.ErrorBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body.Message
}

func TestAllowOnlyCIDRS(t *testing.T) {
	log := logger.New("error", false)

	tests := []struct {
		name       string
		allowed    []string
		remoteAddr string
		want       int
	}{
		{name: "empty list passes", allowed: nil, remoteAddr: "203.0.113.9:1234", want: http.StatusNoContent},
		{name: "exact ip", allowed: []string{"127.0.0.1"}, remoteAddr: "127.0.0.1:1234", want: http.StatusNoContent},
		{name: "cidr", allowed: []string{"10.0.0.0/8"}, remoteAddr: "10.1.2.3:1234", want: http.StatusNoContent},
		{name: "rejected", allowed: []string{"10.0.0.0/8"}, remoteAddr: "192.168.1.1:1234", want: http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
			req.RemoteAddr = tt.remoteAddr
			rec := httptest.NewRecorder()

			AllowOnlyCIDRS(tt.allowed, false, log)(noContent).ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
			if tt.want == http.StatusForbidden && decodeMessage(t, rec) != "Forbidden" {
				t.Error("403 without JSON message")
			}
		})
	}
}

func TestRateLimit(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	h := RateLimit(RateLimitConfig{
		Burst:        2,
		RefillPerMin: 60,
		Now:          func() time.Time { return now },
	})(noContent)

	do := func(addr string, path ...string) *httptest.ResponseRecorder {
		target := "/auth/login"
		if len(path) > 0 {
			target = path[0]
		}
		req := httptest.NewRequest(http.MethodPost, target, nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	for i := 0; i < 2; i++ {
		if rec := do("1.1.1.1:1"); rec.Code != http.StatusNoContent {
			t.Fatalf("request %d status = %d, want 204", i+1, rec.Code)
		}
	}

	rec := do("1.1.1.1:1")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("third request status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "1" {
		t.Errorf("Retry-After = %q, want 1", rec.Header().Get("Retry-After"))
	}
	if msg := decodeMessage(t, rec); msg == "" {
		t.Error("429 without JSON message")
	}

	if rec := do("2.2.2.2:1"); rec.Code != http.StatusNoContent {
		t.Errorf("other client status = %d, want 204", rec.Code)
	}
	if rec := do("1.1.1.1:1", "/auth/register"); rec.Code != http.StatusNoContent {
		t.Errorf("other route status = %d, want 204", rec.Code)
	}

	now = now.Add(time.Second)
	if rec := do("1.1.1.1:1"); rec.Code != http.StatusNoContent {
		t.Errorf("after refill status = %d, want 204", rec.Code)
	}
}

func TestRequireBearer(t *testing.T) {
	db, err := sessiondb.New(time.Hour)
	if err != nil {
		t.Fatalf("sessiondb.New() error = %v", err)
	}
	raw, _, _ := db.Create(42)

	var gotID int64
	var gotToken string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID, _ = UserID(r.Context())
		gotToken = Token(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	h := RequireBearer(db, logger.New("error", false))(next)

	tests := []struct {
		name    string
		header  string
		want    int
		message string
	}{
		{name: "missing", header: "", want: http.StatusUnauthorized, message: "No token provided"},
		{name: "wrong scheme", header: "Basic " + raw, want: http.StatusUnauthorized, message: "No token provided"},
		{name: "unknown token", header: "Bearer nope", want: http.StatusUnauthorized, message: "Invalid token"},
		{name: "valid", header: "Bearer " + raw, want: http.StatusNoContent},
		{name: "lowercase scheme", header: "bearer " + raw, want: http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotID, gotToken = 0, ""
			req := httptest.NewRequest(http.MethodGet, "/bookmarks", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
			if tt.message != "" {
				if msg := decodeMessage(t, rec); msg != tt.message {
					t.Errorf("message = %q, want %q", msg, tt.message)
				}
				return
			}
			if gotID != 42 || gotToken != raw {
				t.Errorf("context user = %d, token = %q, want 42, %q", gotID, gotToken, raw)
			}
		})
	}
}

func TestLog(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	log := logger.FromZap(zap.New(core))

	fail := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	Log(log, false)(noContent).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	Log(log, false)(fail).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/boom", nil))

	entries := logs.FilterMessage("http_request").AllUntimed()
	if len(entries) != 2 {
		t.Fatalf("http_request lines = %d, want 2", len(entries))
	}
	if entries[0].Level != zapcore.InfoLevel || entries[0].ContextMap()["status"] != int64(http.StatusNoContent) {
		t.Errorf("first line = %v %v", entries[0].Level, entries[0].ContextMap())
	}
	if entries[1].Level != zapcore.WarnLevel {
		t.Errorf("5xx logged at %v, want warn", entries[1].Level)
	}
}

func TestCORS(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/bookmarks", nil)
	req.Header.Set("Origin", "http://localhost:3000")

	rec := httptest.NewRecorder()
	CORS("")(noContent).ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("disabled CORS set Allow-Origin = %q", got)
	}

	rec = httptest.NewRecorder()
	CORS("http://localhost:3000")(noContent).ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Allow-Origin = %q, want http://localhost:3000", got)
	}
}
