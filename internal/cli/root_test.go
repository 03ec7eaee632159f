package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/layersync/internal/ir"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "layersync", cmd.Use)
	assert.Equal(t, ir.Version, cmd.Version)
	assert.Contains(t, cmd.Long, "record store")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := [][]string{
		{"validate"},
		{"test"},
		{"trace"},
		{"snapshot"},
		{"snapshot", "save"},
		{"snapshot", "show"},
		{"snapshot", "list"},
		{"snapshot", "restore"},
	}

	for _, path := range commands {
		t.Run(filepath.Join(path...), func(t *testing.T) {
			subCmd, _, err := cmd.Find(path)
			require.NoError(t, err, "Command %v should exist", path)
			require.NotNil(t, subCmd)
			assert.Equal(t, path[len(path)-1], subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "layersync.toml", configFlag.DefValue)
}

func TestCommandDatabaseFlags(t *testing.T) {
	cmd := NewRootCommand()

	for _, path := range [][]string{{"test"}, {"trace"}, {"snapshot", "list"}} {
		subCmd, _, err := cmd.Find(path)
		require.NoError(t, err)

		dbFlag := subCmd.Flags().Lookup("db")
		require.NotNil(t, dbFlag, "%v should accept --db", path)
		// Empty means the config file decides.
		assert.Equal(t, "", dbFlag.DefValue)
	}
}

func TestInvalidFormat(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--format", "xml", "snapshot", "list", "--db", filepath.Join(t.TempDir(), "x.db")})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid format "xml"`)
}

func TestExplicitConfigMustExist(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "missing.toml"), "trace"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to load config")
}

func TestConfigDatabaseDefault(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "from-config.db")
	cfgPath := filepath.Join(dir, "layersync.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("database = \""+filepath.ToSlash(dbPath)+"\"\n"), 0644))

	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", cfgPath, "trace"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "No sessions recorded.")

	_, err := os.Stat(dbPath)
	assert.NoError(t, err, "trace should open the configured database")
}

func TestRootOptionsFallbacks(t *testing.T) {
	opts := &RootOptions{Format: "text"}

	assert.Equal(t, "layersync.db", opts.database(""))
	assert.Equal(t, "other.db", opts.database("other.db"))
	assert.NotNil(t, opts.logger())
	assert.Equal(t, "osm", opts.config().Session("osm"))
}
