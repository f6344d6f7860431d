// Package report renders a visitor record for display.
//
// Three writers share the Writer interface:
//   - SimpleWriter: the themed warning shown when the fake scan ends
//   - MarkdownWriter: the same content as a Markdown document
//   - JSONWriter: the record and its failures for tool integration
//
// Writers only read the Report they are given; records are never changed.
package report
