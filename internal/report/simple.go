package report

import (
	"fmt"
	"io"
	"strings"
)

const ruleWidth = 70

// SimpleWriter renders the themed plain-text warning.
type SimpleWriter struct {
	baseWriter

	// verbose adds the session identifier, failures and storage status.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables the run details section.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the warning.
func (w *SimpleWriter) Write(report *Report) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb)
	w.writeNetwork(&sb, report)
	w.writeDevice(&sb, report)
	w.writeVerdict(&sb, report)
	if w.verbose {
		w.writeDetails(&sb, report)
	}
	w.writeFooter(&sb)

	return io.WriteString(w.output, sb.String())
}

func (w *SimpleWriter) writeHeader(sb *strings.Builder) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString("                  !!  THIS WAS NOT A SECURITY SCAN  !!\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n\n")
	sb.WriteString("While the progress bar was running, this program quietly collected\n")
	sb.WriteString("the following about you. Anything you run from a stranger can do the same.\n\n")
}

func (w *SimpleWriter) section(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n\n")
}

func (w *SimpleWriter) writeNetwork(sb *strings.Builder, report *Report) {
	r := report.Record
	w.section(sb, "WHERE YOU ARE")

	fmt.Fprintf(sb, "  Public address:    %s\n", orUnknown(r.PublicAddress))
	fmt.Fprintf(sb, "  Location:          %s\n", location(r))
	fmt.Fprintf(sb, "  Network owner:     %s\n", orUnknown(r.Organization))
	fmt.Fprintf(sb, "  Local addresses:   %s\n", leakedList(r))
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeDevice(sb *strings.Builder, report *Report) {
	r := report.Record
	w.section(sb, "WHAT YOU ARE RUNNING")

	fmt.Fprintf(sb, "  User agent:        %s\n", orUnknown(r.UserAgent))
	fmt.Fprintf(sb, "  Screen:            %s\n", orUnknown(r.ScreenResolution))
	fmt.Fprintf(sb, "  Timezone:          %s\n", orUnknown(r.TimezoneName))
	fmt.Fprintf(sb, "  Locale:            %s\n", orUnknown(r.BrowserLocale))
	fmt.Fprintf(sb, "  Connection:        %s\n", orUnknown(r.ConnectionClass))
	fmt.Fprintf(sb, "  Plugins:           %d\n", r.PluginCount)
	fmt.Fprintf(sb, "  Fonts detected:    %d\n", r.FontsDetectedCount)
	fmt.Fprintf(sb, "  Canvas hash:       %s\n", orUnknown(r.CanvasFingerprint))
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeVerdict(sb *strings.Builder, report *Report) {
	r := report.Record
	w.section(sb, "VERDICT")

	fmt.Fprintf(sb, "  Threat tier:       %s\n", r.ThreatTier)
	fmt.Fprintf(sb, "  Assessment:        %s\n", verdict(r))
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeDetails(sb *strings.Builder, report *Report) {
	r := report.Record
	w.section(sb, "RUN DETAILS")

	fmt.Fprintf(sb, "  Session:           %s\n", r.SessionID)
	fmt.Fprintf(sb, "  Captured at:       %s\n", r.CapturedAt.Format("2006-01-02 15:04:05 MST"))
	if report.Storage != "" {
		fmt.Fprintf(sb, "  Storage:           %s\n", report.Storage)
	}
	if len(report.Failures) == 0 {
		sb.WriteString("  Failures:          none\n")
	} else {
		sb.WriteString("  Failures:\n")
		for _, f := range report.Failures {
			fmt.Fprintf(sb, "    - %s: %s\n", f.Source, f.Reason)
		}
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString("Think before you run binaries that promise to make you safer.\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
}
