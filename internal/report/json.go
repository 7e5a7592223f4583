package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/recongraph/internal/model"
)

// Report kinds carried in the FullJSONWriter envelope.
const (
	KindScan        = "scan"
	KindEnumeration = "enumeration"
	KindFootprint   = "footprint"
)

// JSONWriter outputs reports in JSON format.
type JSONWriter struct {
	baseWriter

	indent       bool
	indentPrefix string
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
// The prefix is prepended to each line, and indent is used for each level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint is WithIndent("", "  ").
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
// Output is compact unless an indent option is given.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// WriteScan outputs a scan report.
func (w *JSONWriter) WriteScan(r *model.ScanReport) (int, error) {
	return w.writeJSON(r)
}

// WriteEnumeration outputs an enumeration report.
func (w *JSONWriter) WriteEnumeration(r *model.EnumerationReport) (int, error) {
	return w.writeJSON(r)
}

// WriteFootprint outputs a footprint report.
func (w *JSONWriter) WriteFootprint(r *model.FootprintReport) (int, error) {
	return w.writeJSON(r)
}

func (w *JSONWriter) writeJSON(v any) (int, error) {
	var (
		data []byte
		err  error
	)
	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return 0, err
	}

	data = append(data, '\n')
	return w.output.Write(data)
}

// JSONReport wraps a report with the producing version and its kind.
type JSONReport struct {
	Version string `json:"version"`
	Kind    string `json:"kind"`
	Report  any    `json:"report"`
}

// FullJSONWriter outputs reports inside a JSONReport envelope.
type FullJSONWriter struct {
	*JSONWriter

	version string
}

// NewFullJSONWriter creates a writer for reports with metadata.
func NewFullJSONWriter(output io.Writer, version string, opts ...JSONWriterOption) *FullJSONWriter {
	return &FullJSONWriter{
		JSONWriter: NewJSONWriter(output, opts...),
		version:    version,
	}
}

// WriteScan outputs a scan report inside the envelope.
func (w *FullJSONWriter) WriteScan(r *model.ScanReport) (int, error) {
	return w.writeJSON(JSONReport{Version: w.version, Kind: KindScan, Report: r})
}

// WriteEnumeration outputs an enumeration report inside the envelope.
func (w *FullJSONWriter) WriteEnumeration(r *model.EnumerationReport) (int, error) {
	return w.writeJSON(JSONReport{Version: w.version, Kind: KindEnumeration, Report: r})
}

// WriteFootprint outputs a footprint report inside the envelope.
func (w *FullJSONWriter) WriteFootprint(r *model.FootprintReport) (int, error) {
	return w.writeJSON(JSONReport{Version: w.version, Kind: KindFootprint, Report: r})
}
