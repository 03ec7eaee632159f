package cli

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/roach88/layersync/internal/ir"
	"github.com/roach88/layersync/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Session  string
	Kind     string // optional - filter to one propagation kind
}

// TraceResult holds the trace of one session.
type TraceResult struct {
	Session string          `json:"session"`
	Hash    string          `json:"hash"`
	Events  []ir.TraceEvent `json:"events"`
	Stats   TraceStats      `json:"stats"`
}

// TraceStats holds summary statistics for a trace.
type TraceStats struct {
	TotalEvents int            `json:"total_events"`
	ToRecords   int            `json:"to_records"`
	ToEntities  int            `json:"to_entities"`
	ByKind      map[string]int `json:"by_kind"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show persisted mirror traces",
		Long: `Show the propagations recorded for a session.

Without --session the sessions in the database are listed. The database
defaults to the config file's database setting.

Examples:
  layersync trace --db traces.db
  layersync trace --db traces.db --session group_bind
  layersync trace --db traces.db --session group_bind --kind add --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database")
	cmd.Flags().StringVar(&opts.Session, "session", "", "session to show")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "only show events of this kind")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	formatter := opts.formatter(cmd)

	st, err := store.Open(opts.database(opts.Database))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	if opts.Session == "" {
		sessions, err := st.ListSessions(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list sessions", err)
		}
		if formatter.JSON() {
			return formatter.Success(sessions)
		}
		return outputSessionsText(formatter.Writer, sessions)
	}

	events, err := st.ReadTrace(ctx, opts.Session)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read trace", err)
	}
	if len(events) == 0 {
		return NewExitError(ExitCommandError, fmt.Sprintf("no events found for session: %s", opts.Session))
	}

	// The hash covers the whole session, before any kind filter.
	hash, err := ir.TraceHash(events)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to hash trace", err)
	}

	result := TraceResult{
		Session: opts.Session,
		Hash:    hash,
		Events:  filterKind(events, opts.Kind),
	}
	result.Stats = traceStats(result.Events)

	if formatter.JSON() {
		return formatter.Success(result)
	}
	return outputTraceText(formatter.Writer, result, opts.Verbose)
}

func filterKind(events []ir.TraceEvent, kind string) []ir.TraceEvent {
	if kind == "" {
		return events
	}
	out := []ir.TraceEvent{}
	for _, ev := range events {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

func traceStats(events []ir.TraceEvent) TraceStats {
	stats := TraceStats{TotalEvents: len(events), ByKind: make(map[string]int)}
	for _, ev := range events {
		switch ev.Direction {
		case ir.ToRecords:
			stats.ToRecords++
		case ir.ToEntities:
			stats.ToEntities++
		}
		stats.ByKind[ev.Kind]++
	}
	return stats
}

func outputSessionsText(w io.Writer, sessions []store.SessionInfo) error {
	if len(sessions) == 0 {
		fmt.Fprintln(w, "No sessions recorded.")
		return nil
	}
	for _, s := range sessions {
		fmt.Fprintf(w, "%-32s %5d events  last seq %d\n", s.Session, s.Events, s.LastSeq)
	}
	return nil
}

// outputTraceText outputs the trace result as text.
func outputTraceText(w io.Writer, result TraceResult, verbose bool) error {
	fmt.Fprintf(w, "Trace for Session: %s\n", result.Session)
	if verbose {
		fmt.Fprintf(w, "Hash: %s\n", result.Hash)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Timeline ===")
	if len(result.Events) == 0 {
		fmt.Fprintln(w, "  (no events)")
	}
	for _, ev := range result.Events {
		fmt.Fprintf(w, "  [%d] %s %-7s %s@%d", ev.Seq, arrow(ev.Direction), ev.Kind, ev.Subject, ev.Index)
		if ev.Key != "" {
			fmt.Fprintf(w, " %s", ev.Key)
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Total Events: %d\n", result.Stats.TotalEvents)
	fmt.Fprintf(w, "  To Records:   %d\n", result.Stats.ToRecords)
	fmt.Fprintf(w, "  To Entities:  %d\n", result.Stats.ToEntities)

	kinds := make([]string, 0, len(result.Stats.ByKind))
	for k := range result.Stats.ByKind {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		fmt.Fprintf(w, "  %-13s %d\n", k+":", result.Stats.ByKind[k])
	}
	return nil
}

// arrow renders a direction for text output.
func arrow(d ir.Direction) string {
	if d == ir.ToEntities {
		return "R->E"
	}
	return "E->R"
}
