package store

import (
	"context"
	"net/url"
	"path/filepath"
	"testing"

	"github.com/MrSnakeDoc/smartmarks/internal/logger"
)

func TestSQLitePath(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"sqlite:///var/lib/smartmarks.db", "/var/lib/smartmarks.db"},
		{"sqlite://data/smartmarks.db", "data/smartmarks.db"},
		{"sqlite:smartmarks.db", "smartmarks.db"},
		{"file:///tmp/x.db", "/tmp/x.db"},
	}

	for _, tt := range tests {
		u, err := url.Parse(tt.raw)
		if err != nil {
			t.Fatalf("parse %q: %v", tt.raw, err)
		}
		if got := SQLitePath(u); got != tt.want {
			t.Errorf("SQLitePath(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestOpen_SQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "marks.db")
	b, err := Open(context.Background(), Options{URL: "sqlite://" + path}, logger.New("error", false))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer b.Close()

	if b.Kind() != "sqlite" {
		t.Errorf("Kind = %q, want sqlite", b.Kind())
	}
	if err := b.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
}

func TestOpen_UnsupportedScheme(t *testing.T) {
	_, err := Open(context.Background(), Options{URL: "postgres://localhost/db"}, logger.New("error", false))
	if err == nil {
		t.Error("expected error for unsupported scheme")
	}
}
