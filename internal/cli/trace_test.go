package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/layersync/internal/ir"
	"github.com/roach88/layersync/internal/store"
)

func seedTrace(t *testing.T) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "traces.db")

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	events := []ir.TraceEvent{
		{Seq: 1, Direction: ir.ToRecords, Kind: "load", Index: 0, Subject: "roads"},
		{Seq: 2, Direction: ir.ToRecords, Kind: "load", Index: 1, Subject: "rivers"},
		{Seq: 3, Direction: ir.ToRecords, Kind: "sync", Index: 0, Subject: "roads", Key: "opacity"},
		{Seq: 4, Direction: ir.ToEntities, Kind: "remove", Index: 1, Subject: "rivers"},
	}
	require.NoError(t, st.WriteTrace(context.Background(), "session-a", events))
	require.NoError(t, st.WriteTrace(context.Background(), "session-b", events[:1]))
	return dbPath
}

func runTraceCommand(t *testing.T, opts *RootOptions, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewTraceCommand(opts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestTraceCommandFlags(t *testing.T) {
	cmd := NewTraceCommand(&RootOptions{Format: "text"})

	for _, name := range []string{"db", "session", "kind"} {
		flag := cmd.Flags().Lookup(name)
		require.NotNil(t, flag, "--%s should exist", name)
		assert.Equal(t, "", flag.DefValue)
	}
}

func TestTraceListSessions(t *testing.T) {
	dbPath := seedTrace(t)

	out, err := runTraceCommand(t, &RootOptions{Format: "text"}, "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "session-a")
	assert.Contains(t, out, "session-b")
	assert.Contains(t, out, "4 events")
}

func TestTraceListSessionsJSON(t *testing.T) {
	dbPath := seedTrace(t)

	out, err := runTraceCommand(t, &RootOptions{Format: "json"}, "--db", dbPath)
	require.NoError(t, err)

	var resp struct {
		Status string              `json:"status"`
		Data   []store.SessionInfo `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data, 2)
	assert.Equal(t, "session-a", resp.Data[0].Session)
	assert.Equal(t, int64(4), resp.Data[0].LastSeq)
}

func TestTraceEmptyDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "empty.db")

	out, err := runTraceCommand(t, &RootOptions{Format: "text"}, "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "No sessions recorded.")
}

func TestTraceSessionText(t *testing.T) {
	dbPath := seedTrace(t)

	out, err := runTraceCommand(t, &RootOptions{Format: "text", Verbose: true}, "--db", dbPath, "--session", "session-a")
	require.NoError(t, err)

	assert.Contains(t, out, "Trace for Session: session-a")
	assert.Contains(t, out, "Hash: ")
	assert.Contains(t, out, "=== Timeline ===")
	assert.Contains(t, out, "[1] E->R load    roads@0")
	assert.Contains(t, out, "[3] E->R sync    roads@0 opacity")
	assert.Contains(t, out, "[4] R->E remove  rivers@1")
	assert.Contains(t, out, "Total Events: 4")
	assert.Contains(t, out, "To Entities:  1")
}

func TestTraceSessionJSON(t *testing.T) {
	dbPath := seedTrace(t)

	out, err := runTraceCommand(t, &RootOptions{Format: "json"}, "--db", dbPath, "--session", "session-a")
	require.NoError(t, err)

	var resp struct {
		Status string      `json:"status"`
		Data   TraceResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "session-a", resp.Data.Session)
	assert.Len(t, resp.Data.Events, 4)
	assert.Equal(t, 3, resp.Data.Stats.ToRecords)
	assert.Equal(t, 1, resp.Data.Stats.ToEntities)
	assert.Equal(t, 2, resp.Data.Stats.ByKind["load"])

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()
	events, err := st.ReadTrace(context.Background(), "session-a")
	require.NoError(t, err)
	want, err := ir.TraceHash(events)
	require.NoError(t, err)
	assert.Equal(t, want, resp.Data.Hash)
}

func TestTraceKindFilter(t *testing.T) {
	dbPath := seedTrace(t)

	out, err := runTraceCommand(t, &RootOptions{Format: "json"}, "--db", dbPath, "--session", "session-a", "--kind", "load")
	require.NoError(t, err)

	var resp struct {
		Data TraceResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data.Events, 2)
	for _, ev := range resp.Data.Events {
		assert.Equal(t, "load", ev.Kind)
	}
	assert.Equal(t, 2, resp.Data.Stats.TotalEvents)
}

func TestTraceUnknownSession(t *testing.T) {
	dbPath := seedTrace(t)

	_, err := runTraceCommand(t, &RootOptions{Format: "text"}, "--db", dbPath, "--session", "missing")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "no events found for session: missing")
}

func TestTraceStats(t *testing.T) {
	stats := traceStats([]ir.TraceEvent{
		{Direction: ir.ToRecords, Kind: "add"},
		{Direction: ir.ToEntities, Kind: "add"},
		{Direction: ir.ToEntities, Kind: "qtip"},
	})

	assert.Equal(t, 3, stats.TotalEvents)
	assert.Equal(t, 1, stats.ToRecords)
	assert.Equal(t, 2, stats.ToEntities)
	assert.Equal(t, map[string]int{"add": 2, "qtip": 1}, stats.ByKind)
}
