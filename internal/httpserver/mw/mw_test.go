package mw

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MrSnakeDoc/smartmarks/internal/logger"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })

func TestRateLimit(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	h := RateLimit(RateLimitConfig{
		Burst:             2,
		RefillPerIPPerMin: 60,
		Logger:            logger.New("error", false),
		Now:               func() time.Time { return now },
	})(ok)

	do := func(remote string) *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodPost, "/login", nil)
		r.RemoteAddr = remote
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		return w
	}

	if got := do("1.1.1.1:1").Code; got != http.StatusNoContent {
		t.Fatalf("first request: %d", got)
	}
	if got := do("1.1.1.1:2").Code; got != http.StatusNoContent {
		t.Fatalf("second request: %d", got)
	}
	w := do("1.1.1.1:3")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("third request: %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") != "1" {
		t.Errorf("Retry-After = %q, want 1", w.Header().Get("Retry-After"))
	}

	if got := do("2.2.2.2:1").Code; got != http.StatusNoContent {
		t.Errorf("other client should have its own bucket, got %d", got)
	}

	now = now.Add(time.Second)
	if got := do("1.1.1.1:4").Code; got != http.StatusNoContent {
		t.Errorf("after refill: %d", got)
	}
}

func TestEnforceHost(t *testing.T) {
	h := EnforceHost([]string{"marks.example.com", "*.lan"}, logger.New("error", false))(ok)

	tests := []struct {
		host string
		want int
	}{
		{"marks.example.com", http.StatusNoContent},
		{"MARKS.example.com:8080", http.StatusNoContent},
		{"nas.lan", http.StatusNoContent},
		{"lan", http.StatusForbidden},
		{"evil.com", http.StatusForbidden},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/infra", nil)
		r.Host = tt.host
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		if w.Code != tt.want {
			t.Errorf("host %q: got %d, want %d", tt.host, w.Code, tt.want)
		}
	}
}

func TestAllowOnlyCIDRS(t *testing.T) {
	log := logger.New("error", false)

	passthrough := AllowOnlyCIDRS(nil, false, log)(ok)
	r := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	passthrough.ServeHTTP(w, r)
	if w.Code != http.StatusNoContent {
		t.Errorf("passthrough: %d", w.Code)
	}

	h := AllowOnlyCIDRS([]string{"10.0.0.0/8"}, true, log)(ok)
	tests := []struct {
		xff  string
		want int
	}{
		{"10.2.3.4", http.StatusNoContent},
		{"11.2.3.4", http.StatusForbidden},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		r.RemoteAddr = "127.0.0.1:9999"
		r.Header.Set("X-Forwarded-For", tt.xff)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		if w.Code != tt.want {
			t.Errorf("xff %q: got %d, want %d", tt.xff, w.Code, tt.want)
		}
	}
}

func TestTimeoutSkipsUpgrades(t *testing.T) {
	var hadDeadline bool
	h := Timeout(time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hadDeadline = r.Context().Deadline()
	}))

	r := httptest.NewRequest(http.MethodGet, "/dashboard/live", nil)
	r.Header.Set("Upgrade", "websocket")
	h.ServeHTTP(httptest.NewRecorder(), r)
	if hadDeadline {
		t.Error("upgrade request should not carry a deadline")
	}

	r = httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	h.ServeHTTP(httptest.NewRecorder(), r)
	if !hadDeadline {
		t.Error("plain request should carry a deadline")
	}
}
