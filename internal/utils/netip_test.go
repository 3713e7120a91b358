package utils

import (
	"net/http/httptest"
	"testing"
)

func TestIPMatcher(t *testing.T) {
	m, rejected := NewIPMatcher([]string{"10.0.0.0/8", " 192.168.1.7 ", "::1", "not-an-ip", ""})
	if len(rejected) != 1 || rejected[0] != "not-an-ip" {
		t.Fatalf("rejected = %v", rejected)
	}

	tests := []struct {
		ip   string
		want bool
	}{
		{"10.1.2.3", true},
		{"192.168.1.7", true},
		{"192.168.1.8", false},
		{"::1", true},
		{"::ffff:10.9.9.9", true},
		{"garbage", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := m.Allow(tt.ip); got != tt.want {
			t.Errorf("Allow(%q) = %v, want %v", tt.ip, got, tt.want)
		}
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remote     string
		headers    map[string]string
		trustProxy bool
		want       string
	}{
		{"remote addr", "1.2.3.4:5555", nil, false, "1.2.3.4"},
		{"ignores headers without trust", "1.2.3.4:5555", map[string]string{"X-Forwarded-For": "9.9.9.9"}, false, "1.2.3.4"},
		{"cloudflare first", "127.0.0.1:1", map[string]string{"CF-Connecting-IP": "8.8.8.8", "X-Forwarded-For": "9.9.9.9"}, true, "8.8.8.8"},
		{"left-most forwarded", "127.0.0.1:1", map[string]string{"X-Forwarded-For": "9.9.9.9, 10.0.0.1"}, true, "9.9.9.9"},
		{"real ip", "127.0.0.1:1", map[string]string{"X-Real-IP": "7.7.7.7"}, true, "7.7.7.7"},
		{"ipv6 remote", "[::1]:8080", nil, false, "::1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := ClientIP(r, tt.trustProxy); got != tt.want {
				t.Errorf("ClientIP = %q, want %q", got, tt.want)
			}
		})
	}
}
