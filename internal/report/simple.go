package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/nao1215/recongraph/internal/model"
)

const ruleWidth = 70

// SimpleWriter outputs human-readable text reports for terminal display.
type SimpleWriter struct {
	baseWriter

	// verbose also lists not-found probes and full failure reasons.
	verbose bool

	// colored enables ANSI colors for the risk level and probe markers.
	colored bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// WithColor forces colors on or off. By default colors follow
// color.NoColor, which is false only on a terminal.
func WithColor(enabled bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.colored = enabled
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		colored:    !color.NoColor,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *SimpleWriter) paint(s string, attrs ...color.Attribute) string {
	c := color.New(attrs...)
	if w.colored {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c.Sprint(s)
}

func (w *SimpleWriter) riskColor(level model.RiskLevel) []color.Attribute {
	switch level {
	case model.RiskHigh:
		return []color.Attribute{color.FgRed, color.Bold}
	case model.RiskMedium:
		return []color.Attribute{color.FgYellow, color.Bold}
	default:
		return []color.Attribute{color.FgGreen}
	}
}

// WriteScan outputs a scan report.
func (w *SimpleWriter) WriteScan(r *model.ScanReport) (int, error) {
	var sb strings.Builder

	writeBanner(&sb, "RECONGRAPH SCAN REPORT")
	fmt.Fprintf(&sb, "Target:      %s (%s)\n", r.Target.Raw, r.TargetType)
	if r.Address != "" && r.Address != r.Target.Raw {
		fmt.Fprintf(&sb, "Address:     %s\n", r.Address)
	}
	fmt.Fprintf(&sb, "Scan Date:   %s\n", r.DateScanned.Format(dateLayout))
	fmt.Fprintf(&sb, "Status:      %s\n\n", scanStatus(r))

	w.writeRisk(&sb, r.Risk)
	w.writeSources(&sb, r)
	writeFooter(&sb)

	return io.WriteString(w.output, sb.String())
}

func (w *SimpleWriter) writeRisk(sb *strings.Builder, risk *model.RiskAssessment) {
	writeSection(sb, "RISK")
	if risk == nil {
		sb.WriteString("  Not assessed\n\n")
		return
	}

	level := w.paint(strings.ToUpper(risk.Level.String()), w.riskColor(risk.Level)...)
	fmt.Fprintf(sb, "  Score: %d/%d   Level: %s\n", risk.Score, model.MaxRiskScore, level)
	if len(risk.Details) == 0 {
		sb.WriteString("  No risk signals\n")
	}
	for _, d := range risk.Details {
		fmt.Fprintf(sb, "  * %s\n", d)
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeSources(sb *strings.Builder, r *model.ScanReport) {
	writeSection(sb, "SOURCES")
	if len(r.BySource) == 0 {
		sb.WriteString("  No sources queried\n\n")
		return
	}

	for _, name := range r.SourceNames() {
		res := r.BySource[name]
		if !res.OK {
			fmt.Fprintf(sb, "[%s] %s\n", w.paint("x", color.FgRed), name)
			fmt.Fprintf(sb, "    Failure: %s\n", res.Reason)
			continue
		}

		fmt.Fprintf(sb, "[%s] %s\n", w.paint("+", color.FgGreen), name)
		fields := payloadFields(res.Payload)
		if len(fields) == 0 {
			sb.WriteString("    No data\n")
		}
		for _, f := range fields {
			fmt.Fprintf(sb, "    %s: %s\n", f.Label, f.Value)
		}
	}
	sb.WriteString("\n")
}

// WriteEnumeration outputs an enumeration report.
func (w *SimpleWriter) WriteEnumeration(r *model.EnumerationReport) (int, error) {
	var sb strings.Builder

	writeBanner(&sb, "RECONGRAPH ENUMERATION REPORT")
	w.writeEnumeration(&sb, r)
	writeFooter(&sb)

	return io.WriteString(w.output, sb.String())
}

func (w *SimpleWriter) writeEnumeration(sb *strings.Builder, r *model.EnumerationReport) {
	found, notFound, errored := outcomeCounts(r)

	fmt.Fprintf(sb, "Identity:    %s\n", r.Identity)
	fmt.Fprintf(sb, "Started:     %s\n", r.StartedAt.Format(dateLayout))
	fmt.Fprintf(sb, "Elapsed:     %s\n", formatElapsed(r.Elapsed))
	fmt.Fprintf(sb, "Status:      %s\n\n", enumerationStatus(r))

	writeSection(sb, "SUMMARY")
	fmt.Fprintf(sb, "  PROBED:    %d\n", r.Probed)
	fmt.Fprintf(sb, "  FOUND:     %d\n", found)
	fmt.Fprintf(sb, "  NOT FOUND: %d\n", notFound)
	fmt.Fprintf(sb, "  ERRORS:    %d\n\n", errored)

	writeSection(sb, "ACCOUNTS")
	if found == 0 {
		sb.WriteString("  No accounts found\n")
	}
	results := r.Results
	if !w.verbose {
		results = r.FoundResults()
	}
	for _, res := range results {
		switch res.Status {
		case model.ProbeFound:
			fmt.Fprintf(sb, "  [%s] %-20s %s\n", w.paint("+", color.FgGreen), res.Site, res.URL)
		case model.ProbeError:
			fmt.Fprintf(sb, "  [%s] %-20s %s\n", w.paint("!", color.FgYellow), res.Site, res.Reason)
		case model.ProbeNotFound:
			fmt.Fprintf(sb, "  [-] %s\n", res.Site)
		}
	}
	sb.WriteString("\n")
}

// WriteFootprint outputs a footprint report.
func (w *SimpleWriter) WriteFootprint(r *model.FootprintReport) (int, error) {
	var sb strings.Builder

	writeBanner(&sb, "RECONGRAPH FOOTPRINT REPORT")
	fmt.Fprintf(&sb, "Identity:    %s (%s)\n", r.Identity.Value, r.Kind)
	fmt.Fprintf(&sb, "Scan Date:   %s\n", r.DateScanned.Format(dateLayout))
	if r.Error != "" {
		fmt.Fprintf(&sb, "Status:      %s\n\n", w.paint("ERROR - "+r.Error, color.FgRed))
	} else {
		sb.WriteString("Status:      Complete\n\n")
	}

	switch {
	case r.Enumeration != nil:
		w.writeEnumeration(&sb, r.Enumeration)
	case r.Breach != nil:
		writeFields(&sb, "BREACHES", payloadFields(r.Breach))
	case r.Phone != nil:
		writeFields(&sb, "PHONE", payloadFields(r.Phone))
	}
	writeFooter(&sb)

	return io.WriteString(w.output, sb.String())
}

func writeFields(sb *strings.Builder, title string, fields []field) {
	writeSection(sb, title)
	if len(fields) == 0 {
		sb.WriteString("  No data\n")
	}
	for _, f := range fields {
		fmt.Fprintf(sb, "  %s: %s\n", f.Label, f.Value)
	}
	sb.WriteString("\n")
}

func writeBanner(sb *strings.Builder, title string) {
	pad := max((ruleWidth-len(title))/2, 0)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat(" ", pad))
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n\n")
}

func writeSection(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n\n")
}

func writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString("Report generated by recongraph\n")
	sb.WriteString("https://github.com/nao1215/recongraph\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
}
