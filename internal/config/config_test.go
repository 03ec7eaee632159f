package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "layersync.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"), false)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_MissingRequiredFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"), true)
	require.Error(t, err)
}

func TestLoad_OverlaysDefinedKeys(t *testing.T) {
	path := writeConfig(t, `
database = "traces.db"
log_level = "debug"
synchronized_properties = ["title", " opacity ", "title", "minScale"]
`)

	cfg, err := Load(path, true)
	require.NoError(t, err)

	assert.Equal(t, "traces.db", cfg.Database)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, []string{"title", "opacity", "minScale"}, cfg.SynchronizedProperties)
	assert.Equal(t, "", cfg.SessionPrefix)
}

func TestLoad_EmptyListDisablesSync(t *testing.T) {
	cfg, err := Load(writeConfig(t, "synchronized_properties = []\n"), true)
	require.NoError(t, err)
	assert.Empty(t, cfg.SynchronizedProperties)
	assert.NotNil(t, cfg.SynchronizedProperties)
}

func TestLoad_BlankDatabaseKeepsDefault(t *testing.T) {
	cfg, err := Load(writeConfig(t, "database = \"  \"\n"), true)
	require.NoError(t, err)
	assert.Equal(t, Default().Database, cfg.Database)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"bad level", `log_level = "loud"`, "parse log_level"},
		{"derived field", `synchronized_properties = ["qtip"]`, "cannot be synchronized"},
		{"unknown key", `databse = "x.db"`, `unknown key "databse"`},
		{"malformed", `database = `, "load config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content), true)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestConfig_Session(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "basic", cfg.Session("basic"))

	cfg.SessionPrefix = "ci-"
	assert.Equal(t, "ci-basic", cfg.Session("basic"))
}
