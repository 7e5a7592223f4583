package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/nao1215/recongraph/internal/model"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Writer renders one report per call to its output.
type Writer interface {
	WriteScan(report *model.ScanReport) (int, error)
	WriteEnumeration(report *model.EnumerationReport) (int, error)
	WriteFootprint(report *model.FootprintReport) (int, error)
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

const dateLayout = "2006-01-02 15:04:05 MST"

// field is one rendered key/value pair of a source payload.
type field struct {
	Label string
	Value string
}

var titleCaser = cases.Title(language.English, cases.NoLower)

// label turns a payload key such as "name_servers" into "Name Servers".
func label(key string) string {
	return titleCaser.String(strings.ReplaceAll(key, "_", " "))
}

// payloadFields flattens a payload into labelled fields ordered by key.
// Payloads are rendered through their JSON form so every source type is
// handled alike; empty values are skipped.
//
// Design decision: We go through encoding/json instead of reflection so the
// labels match the JSON report field names exactly.
func payloadFields(payload any) []field {
	if payload == nil {
		return nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return []field{{Label: "Payload", Value: fmt.Sprint(payload)}}
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return []field{{Label: "Payload", Value: string(data)}}
	}

	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	fields := make([]field, 0, len(keys))
	for _, k := range keys {
		v := formatValue(obj[k])
		if v == "" {
			continue
		}
		fields = append(fields, field{Label: label(k), Value: v})
	}
	return fields
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		if val {
			return "yes"
		}
		return "no"
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			if s := formatValue(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(data)
	}
}

// scanStatus summarises how a scan ended.
func scanStatus(r *model.ScanReport) string {
	if r.TimedOut {
		return "TIMED OUT (partial results)"
	}
	if failed := r.FailedSources(); len(failed) > 0 {
		return fmt.Sprintf("Complete (%d of %d sources failed)", len(failed), len(r.BySource))
	}
	return "Complete"
}

func enumerationStatus(r *model.EnumerationReport) string {
	if r.TimedOut {
		return "TIMED OUT (partial results)"
	}
	return "Complete"
}

// outcomeCounts returns the found, not-found and error counts of r.
func outcomeCounts(r *model.EnumerationReport) (found, notFound, errored int) {
	found = r.FoundCount
	errored = r.ErrorCount
	notFound = max(r.Probed-found-errored, 0)
	return found, notFound, errored
}

func formatElapsed(d time.Duration) string {
	return d.Round(time.Millisecond).String()
}
