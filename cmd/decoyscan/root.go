package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/nao1215/decoyscan/internal/config"
	dlog "github.com/nao1215/decoyscan/internal/log"
)

// NewRootCmd creates the root command for decoyscan.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decoyscan",
		Short: "A fake security scan that shows what it collected",
		Long: `decoyscan is a honeypot "security scanner". It plays a scan animation
while it quietly resolves your public address, locality, device
fingerprint and locally bound addresses, stores the record, and then
reveals everything it collected.

It is a demonstration of how much an untrusted program learns in a few
seconds. Nothing it reports is guaranteed to be accurate.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON lines")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: "+config.DefaultConfigFile+" in current or home directory, then "+config.XDGConfigFile+" in the XDG config directory)")

	cmd.AddCommand(NewRunCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// getBoolFlag reads a flag from the command or its persistent parents.
func getBoolFlag(cmd *cobra.Command, name string) bool {
	v, err := cmd.Flags().GetBool(name)
	if err != nil {
		v, err = cmd.Root().PersistentFlags().GetBool(name)
		if err != nil {
			return false
		}
	}
	return v
}

// getStringFlag reads a flag from the command or its persistent parents.
func getStringFlag(cmd *cobra.Command, name string) string {
	v, err := cmd.Flags().GetString(name)
	if err != nil {
		v, err = cmd.Root().PersistentFlags().GetString(name)
		if err != nil {
			return ""
		}
	}
	return v
}

// setupLogger builds the process logger. Visitor addresses are redacted
// from logs; they only appear in the rendered report.
func setupLogger(w io.Writer, verbose, jsonLogs bool) *slog.Logger {
	return dlog.New(w, dlog.Options{
		Verbose:         verbose,
		JSON:            jsonLogs,
		RedactAddresses: true,
	})
}

// loadConfig builds a Config from defaults, the configuration file and the
// environment. Command flags are applied by the caller.
func loadConfig(cmd *cobra.Command, getenv func(string) string) (*config.Config, error) {
	cfg := config.NewConfig()

	cfg.ConfigFilePath = getStringFlag(cmd, "config")

	// An explicit path must exist; the default locations are optional.
	found := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case found != "":
		file, err := config.LoadConfigFile(found)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", found, err)
		}
		file.Apply(cfg)
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	}

	config.ApplyEnv(cfg, getenv)

	cfg.Verbose = getBoolFlag(cmd, "verbose")
	cfg.LogJSON = getBoolFlag(cmd, "log-json")
	return cfg, nil
}
