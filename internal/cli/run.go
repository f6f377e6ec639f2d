package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/shipbot/internal/config"
	"github.com/roach88/shipbot/internal/dispatch"
	"github.com/roach88/shipbot/internal/eyre"
	"github.com/roach88/shipbot/internal/journal"
	"github.com/roach88/shipbot/internal/responder"
	"github.com/roach88/shipbot/internal/transport"
	"github.com/roach88/shipbot/internal/urbit"
)

// closeTimeout bounds the channel teardown on shutdown.
const closeTimeout = 5 * time.Second

// Bridge is an authenticated session with a ship.
// *eyre.Client implements it.
type Bridge interface {
	transport.Transport
	Login(ctx context.Context) error
	Ship() urbit.Ship
	Close(ctx context.Context) error
}

// Connector creates a bridge that is not logged in yet.
type Connector func(cfg config.Config, logger *slog.Logger) (Bridge, error)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Journal   string
	Responder string
	Cycles    int

	// Connect allows overriding the ship connection (for testing).
	// If nil, defaults to an eyre HTTP client.
	Connect Connector
}

// CycleSummary is the printable part of a cycle report.
type CycleSummary struct {
	Token          string `json:"token"`
	Seq            int64  `json:"seq"`
	Frames         int    `json:"frames"`
	Unrecognized   int    `json:"unrecognized"`
	Invites        int    `json:"invites"`
	Acks           int    `json:"acks"`
	SelfSuppressed int    `json:"self_suppressed"`
	Joins          int    `json:"joins"`
	Posts          int    `json:"posts"`
	Failures       int    `json:"failures"`
}

func (s CycleSummary) String() string {
	return fmt.Sprintf("cycle %d (%s): frames=%d unrecognized=%d invites=%d acks=%d self=%d joins=%d posts=%d failures=%d",
		s.Seq, s.Token, s.Frames, s.Unrecognized, s.Invites, s.Acks, s.SelfSuppressed, s.Joins, s.Posts, s.Failures)
}

func summarize(r dispatch.CycleReport) CycleSummary {
	return CycleSummary{
		Token:          r.Token,
		Seq:            r.Seq,
		Frames:         r.Frames,
		Unrecognized:   r.Unrecognized,
		Invites:        r.Invites,
		Acks:           r.Acks,
		SelfSuppressed: r.SelfSuppressed,
		Joins:          r.Joins,
		Posts:          r.Posts,
		Failures:       r.Failures,
	}
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Connect to the ship and start the bridge",
		Long: `Connect to the ship and start the dispatch loop.

The bridge logs in with the ship's +code, subscribes to the invite,
metadata and graph streams, and runs one dispatch cycle per poll
interval until interrupted. With --cycles it runs that many cycles,
prints their reports and exits.

Exit codes:
  0 - Stopped by signal or finished --cycles
  2 - Setup error (config, login, subscriptions, journal)

A dropped event stream is reopened by the transport; it never stops the
bridge.

Examples:
  shipbot run
  shipbot run --config ./ship_config.yaml --journal ./shipbot.db
  shipbot run --responder echo --verbose
  shipbot run --cycles 1 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBridge(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Journal, "journal", "", "path to SQLite journal (overrides config)")
	cmd.Flags().StringVar(&opts.Responder, "responder", "", "responder to run (overrides config)")
	cmd.Flags().IntVar(&opts.Cycles, "cycles", 0, "run this many cycles then exit (0 runs until interrupted)")

	return cmd
}

func runBridge(opts *RunOptions, cmd *cobra.Command) error {
	if opts.Cycles < 0 {
		return NewExitError(ExitCommandError, fmt.Sprintf("--cycles must be non-negative, got %d", opts.Cycles))
	}

	cfg, err := config.Load(opts.Config)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if opts.Journal != "" {
		cfg.Journal = opts.Journal
	}
	if opts.Responder != "" {
		cfg.Responder = opts.Responder
	}

	logger := newLogger(opts.RootOptions, cfg.Level(), cmd.ErrOrStderr())
	logger.Debug("config loaded", "path", opts.Config, "config", fmt.Sprintf("%+v", cfg.Redacted()))

	resp, err := responder.New(cfg.Responder)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create responder", err)
	}

	// Setup signal handling for graceful shutdown
	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	connect := opts.Connect
	if connect == nil {
		connect = connectEyre
	}
	bridge, err := connect(cfg, logger)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create client", err)
	}
	defer func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), closeTimeout)
		defer closeCancel()
		if err := bridge.Close(closeCtx); err != nil {
			logger.Error("error closing channel", "error", err)
		}
	}()

	if err := bridge.Login(ctx); err != nil {
		return WrapExitError(ExitCommandError, "failed to log in", err)
	}
	identity, err := dispatch.NewIdentity(bridge.Ship())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to resolve ship identity", err)
	}
	logger.Info("logged in", "ship", identity.Ship().String(), "url", cfg.ShipURL)

	dispatchOpts := []dispatch.Option{
		dispatch.WithPollInterval(cfg.PollInterval),
		dispatch.WithLogger(logger),
	}
	if cfg.Journal != "" {
		j, err := journal.Open(ctx, cfg.Journal)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open journal", err)
		}
		defer func() {
			if closeErr := j.Close(); closeErr != nil {
				logger.Error("error closing journal", "error", closeErr)
			}
		}()
		dispatchOpts = append(dispatchOpts, dispatch.WithRecorder(j))
		logger.Info("journal ready", "path", cfg.Journal)
	}

	d := dispatch.New(bridge, identity, resp, dispatchOpts...)

	if opts.Cycles > 0 {
		return runCycles(ctx, d, opts, cmd)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Bridge started as %s. Press Ctrl-C to stop.\n", identity.Ship())

	// Run returns only a setup error or the cancellation that stopped it.
	if err := d.Run(ctx); dispatch.IsSetupError(err) {
		return WrapExitError(ExitCommandError, "failed to open streams", err)
	}

	logger.Info("bridge stopped gracefully")
	return nil
}

// runCycles opens the streams, runs a fixed number of cycles paced by the
// poll interval, and prints their summaries.
func runCycles(ctx context.Context, d *dispatch.Dispatcher, opts *RunOptions, cmd *cobra.Command) error {
	out := newFormatter(opts.RootOptions, cmd)

	if err := d.Open(ctx); err != nil {
		return WrapExitError(ExitCommandError, "failed to open streams", err)
	}

	summaries := make([]CycleSummary, 0, opts.Cycles)
	for i := 0; i < opts.Cycles; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return outputCycles(out, summaries)
			case <-time.After(d.PollInterval()):
			}
		}
		summaries = append(summaries, summarize(d.RunCycle(ctx)))
	}
	return outputCycles(out, summaries)
}

func outputCycles(out *OutputFormatter, summaries []CycleSummary) error {
	if out.Format == "json" {
		return out.Success(summaries)
	}
	for _, s := range summaries {
		if err := out.Success(s); err != nil {
			return err
		}
	}
	return nil
}

func connectEyre(cfg config.Config, logger *slog.Logger) (Bridge, error) {
	client, err := eyre.New(cfg.ShipURL, cfg.ShipCode, eyre.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	return client, nil
}
