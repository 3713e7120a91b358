package domain

import "testing"

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "bare host", in: "go.dev", want: "https://go.dev"},
		{name: "https kept", in: "https://go.dev/blog", want: "https://go.dev/blog"},
		{name: "http kept", in: "http://example.com", want: "http://example.com"},
		{name: "host starting with http", in: "httpbin.org/get", want: "https://httpbin.org/get"},
		{name: "other scheme kept", in: "ftp://files.example.com", want: "ftp://files.example.com"},
		{name: "surrounding spaces", in: "  b.com  ", want: "https://b.com"},
		{name: "empty", in: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeURL(tt.in); got != tt.want {
				t.Errorf("NormalizeURL(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestIsWebURL(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"https://go.dev/blog", true},
		{"HTTP://EXAMPLE.COM", true},
		{NormalizeURL("go.dev"), true},
		{"javascript://%0aalert(document.cookie)", false},
		{NormalizeURL("javascript://x/%0aalert(1)"), false},
		{"javascript:alert(1)", false},
		{"data://text/html,<script>", false},
		{"ftp://files.example.com", false},
		{"https://", false},
		{NormalizeURL("mailto:a@b.c"), false},
		{"", false},
	}

	for _, tt := range tests {
		if got := IsWebURL(tt.in); got != tt.want {
			t.Errorf("IsWebURL(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestDraftComplete(t *testing.T) {
	tests := []struct {
		name  string
		draft Draft
		want  bool
	}{
		{name: "both set", draft: Draft{Title: "A", URL: "a.com"}, want: true},
		{name: "missing title", draft: Draft{URL: "a.com"}, want: false},
		{name: "missing url", draft: Draft{Title: "A"}, want: false},
		{name: "blank title", draft: Draft{Title: "   ", URL: "a.com"}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.draft.Complete(); got != tt.want {
				t.Errorf("Complete() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDraftToNewBookmark(t *testing.T) {
	d := Draft{Title: "  Cafe\u0301 ", URL: "b.com"}
	nb := d.ToNewBookmark("u1")

	if nb.Title != "Caf\u00e9" {
		t.Errorf("Title = %q, want NFC-normalized %q", nb.Title, "Caf\u00e9")
	}
	if nb.URL != "https://b.com" {
		t.Errorf("URL = %q, want %q", nb.URL, "https://b.com")
	}
	if nb.UserID != "u1" {
		t.Errorf("UserID = %q, want %q", nb.UserID, "u1")
	}

	d.Reset()
	if d.Title != "" || d.URL != "" {
		t.Errorf("Reset() left %+v", d)
	}
}
