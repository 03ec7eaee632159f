package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/layersync/internal/entity"
	"github.com/roach88/layersync/internal/ir"
	"github.com/roach88/layersync/internal/mirror"
	"github.com/roach88/layersync/internal/record"
	"github.com/roach88/layersync/internal/store"
)

// SnapshotOptions holds flags shared by the snapshot subcommands.
type SnapshotOptions struct {
	*RootOptions
	Database string
	Name     string
}

// RestoredRecord is one record produced by a snapshot restore.
type RestoredRecord struct {
	ID     string `json:"id"`
	Entity string `json:"entity"`
	Text   string `json:"text"`
}

// RestoreResult holds the outcome of a snapshot restore.
type RestoreResult struct {
	Name    string           `json:"name"`
	Hash    string           `json:"hash"`
	Records []RestoredRecord `json:"records"`
}

// NewSnapshotCommand creates the snapshot command and its subcommands.
func NewSnapshotCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SnapshotOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Save and restore layer snapshots",
		Long: `Save layer trees to SQLite and restore them into a mirrored record store.

Examples:
  layersync snapshot save --name base ./layers
  layersync snapshot list
  layersync snapshot show --name base
  layersync snapshot restore --name base --format json`,
	}

	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite database")

	cmd.AddCommand(
		newSnapshotSaveCommand(opts),
		newSnapshotShowCommand(opts),
		newSnapshotListCommand(opts),
		newSnapshotRestoreCommand(opts),
	)
	return cmd
}

func newSnapshotSaveCommand(opts *SnapshotOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "save <layers-dir>",
		Short:         "Compile CUE layers and save them as a snapshot",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnapshotSave(opts, args[0], cmd)
		},
	}
	cmd.Flags().StringVar(&opts.Name, "name", "", "snapshot name (required)")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newSnapshotShowCommand(opts *SnapshotOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "show",
		Short:         "Print a stored snapshot",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnapshotShow(opts, cmd)
		},
	}
	cmd.Flags().StringVar(&opts.Name, "name", "", "snapshot name (required)")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newSnapshotListCommand(opts *SnapshotOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List stored snapshots",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnapshotList(opts, cmd)
		},
	}
}

func newSnapshotRestoreCommand(opts *SnapshotOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Rebuild a map from a snapshot and mirror it into records",
		Long: `Rebuild a map from a stored snapshot, bind a mirror over a fresh record
store and print the mirrored records.

Records carry the synchronized_properties list from the config file.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnapshotRestore(opts, cmd)
		},
	}
	cmd.Flags().StringVar(&opts.Name, "name", "", "snapshot name (required)")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func (o *SnapshotOptions) open() (*store.Store, error) {
	st, err := store.Open(o.database(o.Database))
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

func runSnapshotSave(opts *SnapshotOptions, layersDir string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	result, err := LoadLayers(layersDir)
	if err != nil {
		var loadErr *LoadError
		if !errors.As(err, &loadErr) {
			loadErr = &LoadError{Code: ErrCodeGeneric, Message: err.Error()}
		}
		_ = formatter.Error(loadErr.Code, loadErr.Message, nil)
		if result == nil {
			return WrapExitError(ExitCommandError, "failed to load layers", err)
		}
		return WrapExitError(ExitFailure, "invalid layer definitions", err)
	}

	st, err := opts.open()
	if err != nil {
		return err
	}
	defer st.Close()

	m := entity.BuildMap(opts.Name, result.Layers, nil)
	snap, err := st.SaveSnapshot(cmd.Context(), opts.Name, entity.Describe(m.Layers()))
	if err != nil {
		_ = formatter.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to save snapshot", err)
	}

	opts.logger().Info("snapshot saved", "name", snap.Name, "hash", snap.Hash, "layers", len(snap.Layers))

	info := store.SnapshotInfo{Name: snap.Name, Hash: snap.Hash, Layers: len(snap.Layers)}
	if formatter.JSON() {
		return formatter.Success(info)
	}
	fmt.Fprintf(formatter.Writer, "✓ Saved snapshot %s (%d layer(s))\n", info.Name, result.Count())
	formatter.VerboseLog("hash %s", info.Hash)
	return nil
}

// loadSnapshot reads the named snapshot, reporting a missing one as E110.
func loadSnapshot(opts *SnapshotOptions, st *store.Store, cmd *cobra.Command, formatter *OutputFormatter) (ir.Snapshot, error) {
	snap, err := st.LoadSnapshot(cmd.Context(), opts.Name)
	switch {
	case errors.Is(err, store.ErrSnapshotNotFound):
		msg := fmt.Sprintf("snapshot not found: %s", opts.Name)
		_ = formatter.Error(ErrCodeSnapshotAbsent, msg, nil)
		return ir.Snapshot{}, WrapExitError(ExitCommandError, msg, err)
	case err != nil:
		_ = formatter.Error(ErrCodeStore, err.Error(), nil)
		return ir.Snapshot{}, WrapExitError(ExitCommandError, "failed to load snapshot", err)
	}
	return snap, nil
}

func runSnapshotShow(opts *SnapshotOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	st, err := opts.open()
	if err != nil {
		return err
	}
	defer st.Close()

	snap, err := loadSnapshot(opts, st, cmd, formatter)
	if err != nil {
		return err
	}

	if formatter.JSON() {
		return formatter.Success(snap)
	}
	fmt.Fprintf(formatter.Writer, "Snapshot: %s\n", snap.Name)
	fmt.Fprintf(formatter.Writer, "Hash: %s\n\n", snap.Hash)
	writeLayerTree(formatter.Writer, snap.Layers, 1)
	return nil
}

func writeLayerTree(w io.Writer, layers []ir.SnapshotLayer, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, l := range layers {
		title := l.ID
		if s, ok := l.Properties[ir.KeyTitle].(ir.String); ok {
			title = string(s)
		}
		marker := "-"
		if l.Group {
			marker = "+"
		}
		fmt.Fprintf(w, "%s%s %s (%s)\n", indent, marker, title, l.ID)
		writeLayerTree(w, l.Children, depth+1)
	}
}

func runSnapshotList(opts *SnapshotOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	st, err := opts.open()
	if err != nil {
		return err
	}
	defer st.Close()

	infos, err := st.ListSnapshots(cmd.Context())
	if err != nil {
		_ = formatter.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to list snapshots", err)
	}

	if formatter.JSON() {
		return formatter.Success(infos)
	}
	if len(infos) == 0 {
		fmt.Fprintln(formatter.Writer, "No snapshots stored.")
		return nil
	}
	for _, info := range infos {
		fmt.Fprintf(formatter.Writer, "%-24s %3d layer(s)  %s\n", info.Name, info.Layers, info.Hash)
	}
	return nil
}

func runSnapshotRestore(opts *SnapshotOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	st, err := opts.open()
	if err != nil {
		return err
	}
	defer st.Close()

	snap, err := loadSnapshot(opts, st, cmd, formatter)
	if err != nil {
		return err
	}

	reader := record.NewLayerReader(
		record.WithSynchronizedProperties(opts.config().SynchronizedProperties...),
		record.WithIDGenerator(entity.NewSequenceGenerator("rec")),
	)
	records := record.NewCollection(reader)
	m := mirror.New(records, mirror.WithLogger(opts.logger()), mirror.WithMap(entity.Restore(snap.Name, snap.Layers)))
	defer m.Close()

	result := RestoreResult{Name: snap.Name, Hash: snap.Hash, Records: make([]RestoredRecord, 0, records.Len())}
	for _, r := range records.Items() {
		result.Records = append(result.Records, RestoredRecord{
			ID:     r.ID(),
			Entity: r.Entity().ID(),
			Text:   fieldString(r.Get(record.FieldText)),
		})
	}

	if formatter.JSON() {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "Restored %s: %d record(s)\n", result.Name, len(result.Records))
	for _, r := range result.Records {
		fmt.Fprintf(formatter.Writer, "  %-8s %-20s %s\n", r.ID, r.Entity, r.Text)
	}
	return nil
}

func fieldString(v ir.Value) string {
	if s, ok := v.(ir.String); ok {
		return string(s)
	}
	return ""
}
