package report

import (
	"io"
	"strconv"

	"github.com/nao1215/decoyscan/internal/model"
	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
)

// MarkdownWriter outputs the warning as a Markdown document.
type MarkdownWriter struct {
	baseWriter
	version string
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer, version string) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
		version:    version,
	}
}

// Write outputs the report in Markdown format.
func (w *MarkdownWriter) Write(report *Report) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeNetwork(md, report)
	w.writeDevice(md, report)
	w.writeCollection(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *Report) {
	r := report.Record
	md.H1("This Was Not a Security Scan")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Session", "`" + r.SessionID + "`"},
			{"Captured At", r.CapturedAt.Format("2006-01-02 15:04:05 MST")},
			{"Threat Tier", "**" + r.ThreatTier.String() + "**"},
		},
	})
	md.PlainText("")

	switch r.ThreatTier {
	case model.TierHigh:
		md.Cautionf("Threat tier HIGH: %s.", verdict(r))
	case model.TierMedium:
		md.Warningf("Threat tier MEDIUM: %s.", verdict(r))
	default:
		md.Note("The threat tier could not be determined for this run.")
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeNetwork(md *markdown.Markdown, report *Report) {
	r := report.Record
	md.H2("Where You Are")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Signal", "Value"},
		Rows: [][]string{
			{"Public Address", orUnknown(r.PublicAddress)},
			{"Location", location(r)},
			{"Network Owner", orUnknown(r.Organization)},
			{"Likely Relay", strconv.FormatBool(r.IsLikelyRelay)},
		},
	})
	md.PlainText("")

	if len(r.LeakedAddresses) == 0 {
		md.PlainText("No local addresses leaked.")
		md.PlainText("")
		return
	}
	md.H3("Leaked Local Addresses")
	md.PlainText("")
	md.BulletList(r.LeakedAddresses...)
	md.PlainText("")
}

func (w *MarkdownWriter) writeDevice(md *markdown.Markdown, report *Report) {
	r := report.Record
	md.H2("What You Are Running")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Signal", "Value"},
		Rows: [][]string{
			{"User Agent", truncateString(orUnknown(r.UserAgent), 60)},
			{"Screen", orUnknown(r.ScreenResolution)},
			{"Timezone", orUnknown(r.TimezoneName)},
			{"Locale", orUnknown(r.BrowserLocale)},
			{"Connection", orUnknown(r.ConnectionClass)},
			{"Plugins", strconv.Itoa(r.PluginCount)},
			{"Fonts Detected", strconv.Itoa(r.FontsDetectedCount)},
			{"Canvas Hash", "`" + orUnknown(r.CanvasFingerprint) + "`"},
		},
	})
	md.PlainText("")
}

// writeCollection summarizes which sub-collections succeeded.
func (w *MarkdownWriter) writeCollection(md *markdown.Markdown, report *Report) {
	md.H2("Collection")
	md.PlainText("")

	if report.Storage != "" {
		md.PlainTextf("Storage: `%s`", report.Storage)
		md.PlainText("")
	}

	if len(report.Failures) == 0 {
		md.Tip("Every sub-collection produced a value.")
		md.PlainText("")
		return
	}

	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Sub-collections"),
		piechart.WithShowData(true),
	)
	chart.LabelAndIntValue("Failed", uint64(len(report.Failures)))
	if succeeded := collectionCount - len(report.Failures); succeeded > 0 {
		chart.LabelAndIntValue("Succeeded", uint64(succeeded))
	}
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")

	rows := make([][]string, len(report.Failures))
	for i, f := range report.Failures {
		rows[i] = []string{string(f.Source), truncateString(f.Reason, 60)}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Source", "Reason"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	if w.version != "" {
		md.PlainTextf("*Generated by decoyscan %s*", w.version)
		return
	}
	md.PlainText("*Generated by decoyscan*")
}

// collectionCount is the number of sub-collections that can fail.
const collectionCount = 5
