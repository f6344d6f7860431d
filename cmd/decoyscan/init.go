package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nao1215/decoyscan/internal/config"
)

//go:embed templates/decoyscan.yaml
var configTemplate embed.FS

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new decoyscan configuration file",
		Long: `Initialize creates a new .decoyscan configuration file in the current directory.

The generated file documents:
- IP echo endpoints and STUN servers
- The geo provider (HTTP template or local MaxMind databases)
- Record storage (REST endpoint or libsql:// URL) and the local journal
- Capability switches and the lookup egress route

Examples:
  # Create .decoyscan in current directory
  decoyscan init

  # Create config file at a specific path
  decoyscan init -o myconfig.yaml

  # Force overwrite existing file
  decoyscan init -f`,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", config.DefaultConfigFile,
		"Output file path for the configuration")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing configuration file")

	return cmd
}

func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("configuration file already exists: %s (use -f to overwrite)", outputPath)
		}
	}

	content, err := configTemplate.ReadFile("templates/decoyscan.yaml")
	if err != nil {
		return fmt.Errorf("failed to read config template: %w", err)
	}

	dir := filepath.Dir(outputPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	// The file may hold the storage key.
	if err := os.WriteFile(outputPath, content, 0600); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created configuration file: %s\n", outputPath)
	fmt.Fprintln(out, "\nEdit this file to configure:")
	fmt.Fprintln(out, "  - Where records are stored ("+config.EnvStorageURL+" and "+config.EnvStorageKey+" override it)")
	fmt.Fprintln(out, "  - Which probes run")
	fmt.Fprintln(out, "  - How lookups leave this host")

	return nil
}
