// Package report renders scan, enumeration and footprint reports.
//
// Three writers share the Writer interface:
//   - SimpleWriter: human-readable text with a colored risk level
//   - JSONWriter and FullJSONWriter: structured JSON for other tools
//   - MarkdownWriter: GitHub-flavored Markdown with a mermaid pie chart
package report
