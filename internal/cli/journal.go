package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/shipbot/internal/config"
	"github.com/roach88/shipbot/internal/journal"
)

// JournalOptions holds flags for the journal command.
type JournalOptions struct {
	*RootOptions
	Database string
	Cycle    string
	Kind     string
	Limit    int
	Stats    bool
}

// validKinds are the entry kinds accepted by --kind.
var validKinds = []journal.Kind{
	journal.KindInviteAccept,
	journal.KindAck,
	journal.KindJoin,
	journal.KindPost,
}

// NewJournalCommand creates the journal command.
func NewJournalCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &JournalOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "journal",
		Short: "List journaled side effects",
		Long: `List the side effects recorded by 'shipbot run'.

Entries are listed oldest first. The journal path comes from --db,
or from the config file's journal key.

Examples:
  shipbot journal --db ./shipbot.db
  shipbot journal --db ./shipbot.db --kind join --limit 20
  shipbot journal --db ./shipbot.db --cycle 0190a3f2-...
  shipbot journal --stats --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJournal(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (default: config journal)")
	cmd.Flags().StringVar(&opts.Cycle, "cycle", "", "only entries of this cycle token")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "only entries of this kind (invite_accept|ack|join|post)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "only the most recent N entries (0 for all)")
	cmd.Flags().BoolVar(&opts.Stats, "stats", false, "count entries by kind and outcome")

	return cmd
}

func runJournal(opts *JournalOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	if opts.Kind != "" && !isValidKind(journal.Kind(opts.Kind)) {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid kind %q: must be one of %v", opts.Kind, validKinds))
	}
	if opts.Limit < 0 {
		return NewExitError(ExitCommandError, fmt.Sprintf("--limit must be non-negative, got %d", opts.Limit))
	}

	path, err := journalPath(opts)
	if err != nil {
		return err
	}

	j, err := journal.Open(ctx, path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer j.Close()

	out := newFormatter(opts.RootOptions, cmd)

	if opts.Stats {
		stats, err := j.Stats(ctx)
		if err != nil {
			return WrapExitError(ExitFailure, "failed to read journal stats", err)
		}
		if opts.Format == "json" {
			return out.Success(stats)
		}
		rows := make([][]string, 0, len(stats))
		for _, s := range stats {
			rows = append(rows, []string{string(s.Kind), string(s.Outcome), strconv.Itoa(s.Count)})
		}
		return out.Table([]string{"KIND", "OUTCOME", "COUNT"}, rows)
	}

	entries, err := j.Entries(ctx, journal.Filter{
		Cycle: opts.Cycle,
		Kind:  journal.Kind(opts.Kind),
		Limit: opts.Limit,
	})
	if err != nil {
		return WrapExitError(ExitFailure, "failed to read journal", err)
	}

	if opts.Format == "json" {
		return out.Success(entries)
	}
	if len(entries) == 0 {
		return out.Success("No journal entries found.")
	}

	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		frame := ""
		if e.FrameID != 0 {
			frame = strconv.FormatUint(e.FrameID, 10)
		}
		rows = append(rows, []string{
			strconv.FormatInt(e.Seq, 10),
			strconv.FormatInt(e.CycleSeq, 10),
			string(e.Kind),
			e.Resource,
			frame,
			string(e.Outcome),
			e.Error,
		})
	}
	return out.Table([]string{"SEQ", "CYCLE", "KIND", "RESOURCE", "FRAME", "OUTCOME", "ERROR"}, rows)
}

// journalPath resolves the journal file, which must already exist.
func journalPath(opts *JournalOptions) (string, error) {
	path := opts.Database
	if path == "" {
		cfg, err := config.Load(opts.Config)
		if err != nil {
			return "", WrapExitError(ExitCommandError, "no --db given and config could not be loaded", err)
		}
		path = cfg.Journal
	}
	if path == "" {
		return "", NewExitError(ExitCommandError, "no journal configured (use --db or set journal in the config)")
	}

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return "", NewExitError(ExitCommandError, fmt.Sprintf("journal not found: %s", path))
	}
	return path, nil
}

func isValidKind(k journal.Kind) bool {
	for _, v := range validKinds {
		if v == k {
			return true
		}
	}
	return false
}
