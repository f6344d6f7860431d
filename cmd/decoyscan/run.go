package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/nao1215/decoyscan/internal/config"
	"github.com/nao1215/decoyscan/internal/database"
	"github.com/nao1215/decoyscan/internal/egress"
	"github.com/nao1215/decoyscan/internal/fingerprint"
	"github.com/nao1215/decoyscan/internal/geo"
	"github.com/nao1215/decoyscan/internal/model"
	"github.com/nao1215/decoyscan/internal/netprobe"
	"github.com/nao1215/decoyscan/internal/pipeline"
	"github.com/nao1215/decoyscan/internal/report"
	"github.com/nao1215/decoyscan/internal/shell"
	"github.com/nao1215/decoyscan/internal/sink"
)

// NewRunCmd creates the run command.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the fake security scan",
		Long: `Run plays a security-scan animation and, at the same time, collects:
- the public address as seen by several IP echo services
- its approximate location and network owner
- local addresses surfaced by a STUN negotiation
- host fingerprint signals (fonts, rendering, locale, display)

The record is stored (REST endpoint, libsql database, local journal) and
then shown back to the visitor as a warning. Collection never blocks the
animation; each source fails quietly.

Examples:
  # Run with defaults
  decoyscan run

  # Skip the leak probe and the canvas render
  decoyscan run --no-leak-probe --block-canvas

  # Route lookups through a local Tor SOCKS proxy
  decoyscan run --egress socks5 --proxy 127.0.0.1:9050

  # Write the record as JSON to a file
  decoyscan run --json -o record.json`,
		Args: cobra.NoArgs,
		RunE: runRunCmd,
	}

	// Capability flags
	cmd.Flags().Bool("no-leak-probe", false, "Disable the STUN leak probe")
	cmd.Flags().Bool("no-fingerprint", false, "Disable host fingerprint collection")
	cmd.Flags().Bool("no-classify", false, "Disable the relay heuristic (tier is UNKNOWN)")
	cmd.Flags().Bool("block-canvas", false, "Report the canvas hash as blocked instead of rendering")
	cmd.Flags().Bool("no-journal", false, "Do not keep a local copy of the record")

	// Timing flags
	cmd.Flags().DurationP("timeout", "t", config.DefaultLookupTimeout,
		"Deadline for each address and geo lookup")
	cmd.Flags().Duration("leak-window", config.DefaultLeakWindow,
		"How long the leak probe gathers candidates")
	cmd.Flags().DurationP("duration", "d", config.DefaultAnimationDuration,
		"Length of the scan animation (0 disables it)")

	// Egress flags
	cmd.Flags().String("egress", config.EgressDirect,
		"Lookup route: direct, socks5 or tor")
	cmd.Flags().StringP("proxy", "p", config.DefaultProxyAddress,
		"SOCKS5 proxy address for --egress socks5")
	cmd.Flags().DurationP("tor-timeout", "T", config.DefaultTorStartupTimeout,
		"Timeout for embedded Tor startup")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	return cmd
}

func runRunCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildRunConfig(cmd, os.Getenv)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd.ErrOrStderr(), cfg.Verbose, cfg.LogJSON)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runDecoy(ctx, cfg, cmd.OutOrStdout(), cmd.ErrOrStderr(), logger)
}

// buildRunConfig layers the run flags over the loaded configuration.
// Flags that were not given leave file and environment values alone.
func buildRunConfig(cmd *cobra.Command, getenv func(string) string) (*config.Config, error) {
	cfg, err := loadConfig(cmd, getenv)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()

	disable := map[string]*bool{
		"no-leak-probe":  &cfg.Capabilities.LeakProbe,
		"no-fingerprint": &cfg.Capabilities.Fingerprint,
		"no-classify":    &cfg.Capabilities.Classify,
		"block-canvas":   &cfg.Capabilities.Canvas,
		"no-journal":     &cfg.Journal,
	}
	for name, dst := range disable {
		off, err := flags.GetBool(name)
		if err != nil {
			return nil, err
		}
		if off {
			*dst = false
		}
	}

	if cfg.LookupTimeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.LeakWindow, err = flags.GetDuration("leak-window"); err != nil {
		return nil, err
	}
	if cfg.AnimationDuration, err = flags.GetDuration("duration"); err != nil {
		return nil, err
	}
	if cfg.TorStartupTimeout, err = flags.GetDuration("tor-timeout"); err != nil {
		return nil, err
	}

	if flags.Changed("egress") {
		if cfg.Egress, err = flags.GetString("egress"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("proxy") {
		if cfg.ProxyAddress, err = flags.GetString("proxy"); err != nil {
			return nil, err
		}
	}

	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = flags.GetString("output"); err != nil {
		return nil, err
	}
	return cfg, nil
}

// runDecoy runs the animation and the collection pass side by side and
// waits for both. The report goes to stdout (or ReportFile); the
// animation goes to stderr so it never mixes with JSON output.
func runDecoy(ctx context.Context, cfg *config.Config, stdout, stderr io.Writer, logger *slog.Logger) error {
	route, stopEgress, err := setupEgress(ctx, cfg, stderr, logger)
	if err != nil {
		return err
	}
	defer stopEgress()

	output, closeOutput, err := openReportOutput(cfg.ReportFile, stdout)
	if err != nil {
		return err
	}
	defer closeOutput()

	httpClient := route.HTTPClient(cfg.LookupTimeout)

	geoResolver, closeGeo, err := setupGeo(cfg, httpClient, logger)
	if err != nil {
		return err
	}
	defer closeGeo()

	store, closeStore := setupSink(cfg, route, logger)
	defer closeStore()

	addresses := netprobe.NewAddressResolver(
		netprobe.WithHTTPClient(httpClient),
		netprobe.WithEndpoints(cfg.Endpoints),
		netprobe.WithLookupTimeout(cfg.LookupTimeout),
		netprobe.WithResolverLogger(logger),
	)
	collectors := pipeline.Collectors{
		Address: addresses,
		Geo:     geoResolver,
		Leaks: netprobe.NewLeakProbe(
			netprobe.NewSTUNGatherer(cfg.STUNServers),
			netprobe.WithWindow(cfg.LeakWindow),
			netprobe.WithLeakLogger(logger),
		),
		Fingerprint: fingerprint.NewCollector(getVersion(),
			fingerprint.WithUserAgent(cfg.UserAgent),
			fingerprint.WithCanvasBlocked(!cfg.Capabilities.Canvas),
			fingerprint.WithLogger(logger),
		),
	}

	holder := &shell.Holder{}
	collect := pipeline.Build(cfg.Capabilities, collectors,
		pipeline.WithSink(store),
		pipeline.WithLogger(logger),
		pipeline.WithOnAssembled(func(record model.VisitorRecord, failures []model.Failure) {
			holder.Publish(record, failures, "")
		}),
		// Republish so a shell that renders after persistence shows the status.
		pipeline.WithOnStored(func(out pipeline.Outcome) {
			holder.Publish(out.Record, out.Failures, string(out.Result.Status))
		}),
	)
	logger.Debug("collection pipeline ready",
		"steps", collect.StepNames(),
		"endpoints", addresses.Endpoints(),
	)

	var writer report.Writer = report.New(report.FormatFor(cfg.JSONReport, cfg.MarkdownReport), output, getVersion(),
		report.WithVerbose(cfg.Verbose))
	if cfg.ReportFile != "" {
		// The file is for the operator; the visitor still sees the warning.
		writer = report.NewMultiWriter(writer, report.NewSimpleWriter(stderr, report.WithVerbose(cfg.Verbose)))
	}
	animation := shell.NewAnimation(stderr,
		shell.WithDuration(cfg.AnimationDuration),
		shell.WithTick(cfg.AnimationTick),
		shell.WithInteractive(isTerminal(stderr)),
	)
	decoy := shell.New(animation, holder, writer, shell.WithLogger(logger))

	var (
		wg       sync.WaitGroup
		outcome  pipeline.Outcome
		rendered bool
		shellErr error
	)
	wg.Go(func() {
		outcome = collect.Execute(ctx)
	})
	wg.Go(func() {
		rendered, shellErr = decoy.Run(ctx)
	})
	wg.Wait()

	if shellErr != nil {
		return fmt.Errorf("failed to write report: %w", shellErr)
	}

	// Collection outlasted the animation: render the finished record now.
	if !rendered {
		final := &report.Report{
			Record:   outcome.Record,
			Failures: outcome.Failures,
			Storage:  string(outcome.Result.Status),
		}
		if _, err := writer.Write(final); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
	}

	logger.Info("run complete",
		"session_id", outcome.Record.SessionID,
		"storage", string(outcome.Result.Status),
		"failures", len(outcome.Failures),
	)
	return nil
}

// setupEgress returns the route lookups take and a function releasing it.
func setupEgress(ctx context.Context, cfg *config.Config, status io.Writer, logger *slog.Logger) (*egress.Client, func(), error) {
	noop := func() {}

	switch cfg.Egress {
	case config.EgressSOCKS5:
		if st := egress.CheckProxy(ctx, cfg.ProxyAddress); st != egress.ProxyStatusOK {
			return nil, nil, fmt.Errorf("proxy check failed for %s: %w", cfg.ProxyAddress, st.Err())
		}
		client, err := egress.NewSOCKS5Client(cfg.ProxyAddress)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create proxy client: %w", err)
		}
		logger.Info("lookups routed through SOCKS5 proxy", "proxy", client.ProxyAddress())
		return client, noop, nil

	case config.EgressTor:
		fmt.Fprintln(status, "Starting embedded Tor daemon...")
		fmt.Fprintf(status, "This may take 1-3 minutes while Tor bootstraps and connects to the network.\n\n")

		tor := egress.NewEmbeddedTor(egress.WithStartupTimeout(cfg.TorStartupTimeout))
		if err := tor.Start(ctx); err != nil {
			return nil, nil, fmt.Errorf("failed to start embedded Tor: %w", err)
		}
		stop := func() {
			if err := tor.Stop(); err != nil {
				logger.Error("failed to stop embedded Tor", "error", err)
			}
		}

		client, err := tor.Client()
		if err != nil {
			stop()
			return nil, nil, fmt.Errorf("failed to create Tor client: %w", err)
		}
		if st := egress.CheckProxy(ctx, tor.SocksAddr()); st != egress.ProxyStatusOK {
			stop()
			return nil, nil, fmt.Errorf("embedded Tor proxy check failed: %w", st.Err())
		}
		logger.Info("lookups routed through embedded Tor", "proxy", client.ProxyAddress())
		return client, stop, nil

	default:
		return egress.Direct(), noop, nil
	}
}

// setupGeo prefers local MaxMind databases over the HTTP provider.
func setupGeo(cfg *config.Config, client *http.Client, logger *slog.Logger) (pipeline.GeoResolver, func(), error) {
	if cfg.GeoCityDB != "" {
		mmdb, err := geo.OpenMMDB(cfg.GeoCityDB, cfg.GeoASNDB, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open geo database: %w", err)
		}
		return mmdb, func() {
			if err := mmdb.Close(); err != nil {
				logger.Debug("failed to close geo database", "error", err)
			}
		}, nil
	}

	return geo.NewHTTPResolver(
		geo.WithHTTPClient(client),
		geo.WithURLTemplate(cfg.GeoURLTemplate),
		geo.WithTimeout(cfg.LookupTimeout),
		geo.WithLogger(logger),
	), func() {}, nil
}

// setupSink returns the configured store, fanned out to the local journal
// when enabled. A journal that cannot be opened is logged and skipped.
func setupSink(cfg *config.Config, route *egress.Client, logger *slog.Logger) (sink.Sink, func()) {
	primary := sink.New(cfg.Storage,
		sink.WithLogger(logger),
		sink.WithHTTPClient(route.HTTPClient(sink.DefaultRESTTimeout)),
	)
	if !cfg.Journal {
		return primary, func() {}
	}

	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		logger.Warn("local journal unavailable", "dir", cfg.DBDir, "error", err)
		return primary, func() {}
	}

	journal := sink.NewJournal(db, sink.WithLogger(logger))
	return sink.NewMulti(primary, []sink.Sink{journal}, sink.WithLogger(logger)), func() {
		if err := db.Close(); err != nil {
			logger.Debug("failed to close journal", "error", err)
		}
	}
}

// openReportOutput returns the report destination. Files are created with
// 0600 permissions because the report identifies the host.
func openReportOutput(path string, stdout io.Writer) (io.Writer, func(), error) {
	if path == "" {
		return stdout, func() {}, nil
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // User-provided output path is intentional
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, func() { _ = f.Close() }, nil //nolint:errcheck // Best effort close
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd())) //nolint:gosec // fd fits in int
}
