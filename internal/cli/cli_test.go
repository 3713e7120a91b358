package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/smartmarks/internal/logger"
	"github.com/MrSnakeDoc/smartmarks/internal/session"
	"github.com/MrSnakeDoc/smartmarks/internal/store"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "smartmarks", cmd.Use)
	assert.NotNil(t, cmd.RunE, "root serves without a subcommand")

	for _, name := range []string{"serve", "import"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestImportCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	imp, _, err := cmd.Find([]string{"import"})
	require.NoError(t, err)

	for flag, short := range map[string]string{"file": "f", "user": "u", "watch": "w"} {
		f := imp.Flags().Lookup(flag)
		require.NotNil(t, f, flag)
		assert.Equal(t, short, f.Shorthand)
	}
	assert.Equal(t, "false", imp.Flags().Lookup("watch").DefValue)
}

func TestImportCommandRequiresFlags(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetArgs([]string{"import", "--file", "bookmarks.yaml"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "user")
}

func TestImportCommand(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "marks.db")
	t.Setenv("SMARTMARKS_STORE_URL", "sqlite://"+dbPath)
	t.Setenv("SMARTMARKS_STORE_KEY", "test-key")
	t.Setenv("SMARTMARKS_LOG_LEVEL", "error")

	file := filepath.Join(dir, "bookmarks.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`---
- Developer:
    - Github:
        - abbr: GH
          href: https://github.com/
    - Go:
        - abbr: GO
          href: go.dev
`), 0o644))

	run := func() string {
		var out bytes.Buffer
		cmd := NewRootCommand()
		cmd.SetArgs([]string{"import", "-f", file, "-u", "Dana"})
		cmd.SetOut(&out)
		require.NoError(t, cmd.ExecuteContext(context.Background()))
		return out.String()
	}

	assert.Contains(t, run(), "2 inserted, 0 updated, 0 unchanged, 0 failed")
	assert.Contains(t, run(), "0 inserted, 0 updated, 2 unchanged, 0 failed")

	backend, err := store.Open(context.Background(), store.Options{URL: "sqlite://" + dbPath}, logger.Nop())
	require.NoError(t, err)
	defer backend.Close()

	owner, err := session.IdentityFor("dana")
	require.NoError(t, err)
	rows, err := backend.ListBookmarks(context.Background(), owner.ID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Go", rows[0].Title, "newest first")
	assert.Equal(t, "https://go.dev", rows[0].URL)
}
