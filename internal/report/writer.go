package report

import (
	"io"
	"strings"

	"github.com/nao1215/decoyscan/internal/model"
)

// Report is what a writer renders: one record plus how its run went.
type Report struct {
	// Record is the assembled visitor record.
	Record model.VisitorRecord `json:"record"`

	// Failures lists the sub-collections that produced no value.
	Failures []model.Failure `json:"failures,omitempty"`

	// Storage is the persistence status reported by the sink.
	// Empty when the run has not been persisted yet.
	Storage string `json:"storage,omitempty"`
}

// Writer outputs a report in one format.
type Writer interface {
	Write(report *Report) (int, error)
}

// Format selects a writer.
type Format string

// Supported formats.
const (
	FormatText     Format = "text"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

// FormatFor maps the --json and --markdown flags to a Format.
func FormatFor(jsonOutput, markdownOutput bool) Format {
	switch {
	case jsonOutput:
		return FormatJSON
	case markdownOutput:
		return FormatMarkdown
	default:
		return FormatText
	}
}

// New returns the writer for format. Unknown formats fall back to text,
// which is configured with textOpts.
func New(format Format, output io.Writer, version string, textOpts ...SimpleWriterOption) Writer {
	switch format {
	case FormatJSON:
		return NewJSONWriter(output, WithPrettyPrint(), WithVersion(version))
	case FormatMarkdown:
		return NewMarkdownWriter(output, version)
	default:
		return NewSimpleWriter(output, textOpts...)
	}
}

// MultiWriter writes to multiple Writers in order, stopping at the first
// error.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the report to all configured Writers and returns the total
// bytes written.
func (m *MultiWriter) Write(report *Report) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(report)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// orUnknown substitutes the unknown sentinel for empty values.
func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return model.Unknown
	}
	return s
}

// location joins city and country, skipping empty parts.
func location(r model.VisitorRecord) string {
	parts := make([]string, 0, 2)
	if r.City != "" {
		parts = append(parts, r.City)
	}
	if r.Country != "" {
		parts = append(parts, r.Country)
	}
	if len(parts) == 0 {
		return model.Unknown
	}
	return strings.Join(parts, ", ")
}

// verdict describes the threat tier in words.
func verdict(r model.VisitorRecord) string {
	switch r.ThreatTier {
	case model.TierHigh:
		return "your location does not match your clock; you are likely behind a VPN or proxy"
	case model.TierMedium:
		return "no relay detected; this is probably where you really are"
	default:
		return "could not be determined"
	}
}

func leakedList(r model.VisitorRecord) string {
	if len(r.LeakedAddresses) == 0 {
		return "none"
	}
	return strings.Join(r.LeakedAddresses, ", ")
}

// truncateString truncates s to maxLen bytes with an ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
