package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"
	"github.com/spf13/cobra"

	"github.com/nao1215/decoyscan/internal/config"
	"github.com/nao1215/decoyscan/internal/database"
	"github.com/nao1215/decoyscan/internal/model"
	"github.com/nao1215/decoyscan/internal/report"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [session-id]",
		Short: "List or show records kept in the local journal",
		Long: `History reads the local journal written by 'decoyscan run'.

Without arguments it lists the most recent records, newest first. With a
session identifier it shows that record in full, the same way run does.

Examples:
  # List the 20 most recent records
  decoyscan history

  # List every record
  decoyscan history --limit 0

  # Show one record as Markdown
  decoyscan history --markdown 01JABCDEFGHJKMNPQRSTVWXYZ0`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "n", config.DefaultHistoryLimit,
		"Maximum number of records to list (0 lists all)")
	cmd.Flags().BoolP("json", "j", false,
		"Output in JSON format")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output in Markdown format")

	return cmd
}

func runHistoryCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, nil)
	if err != nil {
		return err
	}

	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	markdownOutput, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}
	if jsonOutput && markdownOutput {
		return config.ErrConflictingReportFormats
	}
	format := report.FormatFor(jsonOutput, markdownOutput)

	// Never create the journal just to read it.
	opts := database.DefaultOptions()
	opts.CreateIfNotExists = false
	db, err := database.Open(cfg.DBDir, opts)
	if err != nil {
		return fmt.Errorf("failed to open journal in %s: %w", cfg.DBDir, err)
	}
	defer db.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()

	if len(args) == 1 {
		return showRecord(ctx, db, args[0], format, out)
	}
	return listRecords(ctx, db, limit, format, out)
}

// showRecord renders one journaled record.
func showRecord(ctx context.Context, db *database.RecordDB, sessionID string, format report.Format, out io.Writer) error {
	record, failures, err := db.GetRecord(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to read record: %w", err)
	}
	if record == nil {
		return fmt.Errorf("no record with session id %s", sessionID)
	}

	_, err = report.New(format, out, getVersion(), report.WithVerbose(true)).Write(&report.Report{
		Record:   *record,
		Failures: failures,
	})
	return err
}

// historyEntry is the JSON form of a journal summary.
type historyEntry struct {
	SessionID     string    `json:"session_id"`
	CapturedAt    time.Time `json:"captured_at"`
	PublicAddress string    `json:"public_address,omitempty"`
	Country       string    `json:"country,omitempty"`
	ThreatTier    string    `json:"threat_tier"`
	IsLikelyRelay bool      `json:"is_likely_relay"`
	LeakedCount   int       `json:"leaked_count"`
}

// listRecords prints the newest summaries.
func listRecords(ctx context.Context, db *database.RecordDB, limit int, format report.Format, out io.Writer) error {
	summaries, err := db.ListRecords(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to list records: %w", err)
	}
	total, err := db.CountRecords(ctx)
	if err != nil {
		return fmt.Errorf("failed to count records: %w", err)
	}

	switch format {
	case report.FormatJSON:
		entries := make([]historyEntry, len(summaries))
		for i, s := range summaries {
			entries[i] = historyEntry{
				SessionID:     s.SessionID,
				CapturedAt:    s.CapturedAt,
				PublicAddress: s.PublicAddress,
				Country:       s.Country,
				ThreatTier:    s.ThreatTier.String(),
				IsLikelyRelay: s.IsLikelyRelay,
				LeakedCount:   s.LeakedCount,
			}
		}
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(entries)
	case report.FormatMarkdown:
		return listRecordsMarkdown(summaries, total, out)
	default:
		return listRecordsText(summaries, total, out)
	}
}

func listRecordsText(summaries []database.RecordSummary, total int, out io.Writer) error {
	if len(summaries) == 0 {
		fmt.Fprintln(out, "No records found in the local journal.")
		fmt.Fprintln(out, "\nUse 'decoyscan run' to collect one.")
		return nil
	}

	fmt.Fprintf(out, "Journal records (%d of %d):\n\n", len(summaries), total)
	fmt.Fprintf(out, "  %-26s  %-19s  %-15s  %-16s  %-7s  %s\n",
		"Session", "Captured", "Address", "Country", "Tier", "Leaked")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 100))

	for _, s := range summaries {
		fmt.Fprintf(out, "  %-26s  %-19s  %-15s  %-16s  %-7s  %d\n",
			s.SessionID,
			s.CapturedAt.Local().Format("2006-01-02 15:04:05"),
			orDash(s.PublicAddress),
			truncate(orDash(s.Country), 16),
			s.ThreatTier,
			s.LeakedCount,
		)
	}

	fmt.Fprintf(out, "\nTiers: %s\n", formatTierSummary(summaries))
	fmt.Fprintln(out, "Use 'decoyscan history <session-id>' to show a record.")
	return nil
}

func listRecordsMarkdown(summaries []database.RecordSummary, total int, out io.Writer) error {
	md := markdown.NewMarkdown(out)
	md.H1("decoyscan Journal")
	md.PlainText("")

	if len(summaries) == 0 {
		md.PlainText("No records found in the local journal.")
		return md.Build()
	}

	md.PlainTextf("Showing %d of %d records. Tiers: %s", len(summaries), total, formatTierSummary(summaries))
	md.PlainText("")

	rows := make([][]string, len(summaries))
	for i, s := range summaries {
		rows[i] = []string{
			"`" + s.SessionID + "`",
			s.CapturedAt.Format("2006-01-02 15:04:05 MST"),
			orDash(s.PublicAddress),
			orDash(s.Country),
			s.ThreatTier.String(),
			strconv.FormatBool(s.IsLikelyRelay),
			strconv.Itoa(s.LeakedCount),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Session", "Captured", "Address", "Country", "Tier", "Relay", "Leaked"},
		Rows:   rows,
	})
	return md.Build()
}

// formatTierSummary counts records per tier, e.g. "H:2 M:5 U:1".
func formatTierSummary(summaries []database.RecordSummary) string {
	counts := make(map[model.ThreatTier]int)
	for _, s := range summaries {
		counts[s.ThreatTier]++
	}

	var parts []string
	for _, tier := range []model.ThreatTier{model.TierHigh, model.TierMedium, model.TierUnknown} {
		if n := counts[tier]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s:%d", tier.String()[:1], n))
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, " ")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "~"
}
