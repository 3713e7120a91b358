package homepage

import (
	"os"
	"path/filepath"
	"testing"
)

func writeYAML(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bookmarks.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to create test YAML file: %v", err)
	}
	return path
}

func TestLoaderLoad(t *testing.T) {
	path := writeYAML(t, `---
- Developer:
    - Github:
        - abbr: GH
          href: https://github.com/
- Social:
    - Reddit:
        - abbr: RE
          href: https://reddit.com/
          description: The front page of the internet
`)

	config, err := NewLoader(path).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(config) != 2 {
		t.Fatalf("Load() returned %d groups, want 2", len(config))
	}

	gh := config[0]["Developer"][0]["Github"][0]
	if gh.Abbr != "GH" || gh.Href != "https://github.com/" {
		t.Errorf("Github entry = %+v", gh)
	}
}

func TestLoaderLoadWithTemplateVariables(t *testing.T) {
	path := writeYAML(t, `---
- Infra:
    - AdGuard:
        - abbr: AG
          href: {{HOMEPAGE_VAR_ADGUARD_URL}}
`)

	config, err := NewLoader(path).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := config[0]["Infra"][0]["AdGuard"][0].Href; got != "" {
		t.Errorf("templated href = %q, want empty", got)
	}
}

func TestLoaderLoadErrors(t *testing.T) {
	if _, err := NewLoader("/nonexistent/path/bookmarks.yaml").Load(); err == nil {
		t.Error("Load() with non-existent file should return error")
	}

	path := writeYAML(t, "- Developer: [unterminated\n")
	if _, err := NewLoader(path).Load(); err == nil {
		t.Error("Load() with invalid yaml should return error")
	}
}

func TestStripTemplateVariables(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected string
	}{
		{
			name:     "single template variable",
			input:    []byte("href: {{HOMEPAGE_VAR_URL}}"),
			expected: "href: \"\"",
		},
		{
			name:     "two variables",
			input:    []byte("a: {{A}}\nb: {{B}}"),
			expected: "a: \"\"\nb: \"\"",
		},
		{
			name:     "no template variables",
			input:    []byte("plain text"),
			expected: "plain text",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := stripTemplateVariables(tt.input)
			if string(result) != tt.expected {
				t.Errorf("stripTemplateVariables() = %q, want %q", string(result), tt.expected)
			}
		})
	}
}
