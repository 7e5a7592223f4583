package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"github.com/nao1215/recongraph/internal/model"
)

// MarkdownWriter outputs reports in GitHub-flavored Markdown.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output)}
}

// WriteScan outputs a scan report.
func (w *MarkdownWriter) WriteScan(r *model.ScanReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Recongraph Scan Report")
	md.PlainText("")

	rows := [][]string{
		{"Target", "`" + r.Target.Raw + "`"},
		{"Target Type", r.TargetType},
	}
	if r.Address != "" && r.Address != r.Target.Raw {
		rows = append(rows, []string{"Address", "`" + r.Address + "`"})
	}
	rows = append(rows,
		[]string{"Scan Date", r.DateScanned.Format(dateLayout)},
		[]string{"Status", scanStatus(r)},
	)
	md.Table(markdown.TableSet{Header: []string{"Property", "Value"}, Rows: rows})
	md.PlainText("")

	w.writeRisk(md, r.Risk)
	w.writeSources(md, r)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeRisk(md *markdown.Markdown, risk *model.RiskAssessment) {
	md.H2("Risk")
	md.PlainText("")

	if risk == nil {
		md.PlainText("Risk was not assessed.")
		md.PlainText("")
		return
	}

	md.Table(markdown.TableSet{
		Header: []string{"Score", "Level"},
		Rows: [][]string{
			{strconv.Itoa(risk.Score) + "/" + strconv.Itoa(model.MaxRiskScore), "**" + risk.Level.String() + "**"},
		},
	})
	md.PlainText("")

	switch risk.Level {
	case model.RiskHigh:
		md.Cautionf("High risk target. %d signal(s) contributed to a score of %d.", len(risk.Details), risk.Score)
	case model.RiskMedium:
		md.Warningf("Medium risk target. %d signal(s) contributed to a score of %d.", len(risk.Details), risk.Score)
	default:
		md.Tip("No significant risk signals detected.")
	}
	md.PlainText("")

	if len(risk.Details) > 0 {
		md.BulletList(risk.Details...)
		md.PlainText("")
	}
}

func (w *MarkdownWriter) writeSources(md *markdown.Markdown, r *model.ScanReport) {
	md.H2("Sources")
	md.PlainText("")

	if len(r.BySource) == 0 {
		md.PlainText("No sources were queried.")
		md.PlainText("")
		return
	}

	rows := make([][]string, 0, len(r.BySource))
	for _, name := range r.SourceNames() {
		res := r.BySource[name]
		if res.OK {
			rows = append(rows, []string{name, "✅ OK"})
		} else {
			rows = append(rows, []string{name, "❌ " + truncateString(res.Reason, 80)})
		}
	}
	md.Table(markdown.TableSet{Header: []string{"Source", "Outcome"}, Rows: rows})
	md.PlainText("")

	for _, name := range r.SourceNames() {
		res := r.BySource[name]
		if !res.OK {
			continue
		}
		fields := payloadFields(res.Payload)
		if len(fields) == 0 {
			continue
		}
		md.H3(name)
		md.PlainText("")
		writeFieldTable(md, fields)
	}
}

// WriteEnumeration outputs an enumeration report.
func (w *MarkdownWriter) WriteEnumeration(r *model.EnumerationReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Recongraph Enumeration Report")
	md.PlainText("")
	w.writeEnumeration(md, r)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeEnumeration(md *markdown.Markdown, r *model.EnumerationReport) {
	found, notFound, errored := outcomeCounts(r)

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Identity", "`" + r.Identity + "`"},
			{"Started", r.StartedAt.Format(dateLayout)},
			{"Elapsed", formatElapsed(r.Elapsed)},
			{"Status", enumerationStatus(r)},
		},
	})
	md.PlainText("")

	md.H2("Summary")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Outcome", "Count"},
		Rows: [][]string{
			{"🟢 Found", strconv.Itoa(found)},
			{"⚪ Not Found", strconv.Itoa(notFound)},
			{"🟠 Error", strconv.Itoa(errored)},
			{"**Probed**", "**" + strconv.Itoa(r.Probed) + "**"},
		},
	})
	md.PlainText("")

	if r.Probed > 0 {
		writeOutcomeChart(md, found, notFound, errored)
	}
	if r.TimedOut {
		md.Warningf("The enumeration deadline expired after %d of the probes settled.", r.Probed)
		md.PlainText("")
	}

	md.H2("Accounts")
	md.PlainText("")

	var rows [][]string
	for _, res := range r.Results {
		switch res.Status {
		case model.ProbeFound:
			rows = append(rows, []string{res.Site, "Found", res.URL})
		case model.ProbeError:
			rows = append(rows, []string{res.Site, "Error", truncateString(res.Reason, 60)})
		case model.ProbeNotFound:
		}
	}
	if len(rows) == 0 {
		md.PlainText("No accounts found.")
		md.PlainText("")
		return
	}
	md.Table(markdown.TableSet{Header: []string{"Site", "Outcome", "Detail"}, Rows: rows})
	md.PlainText("")
}

// writeOutcomeChart writes a mermaid pie chart of probe outcomes.
func writeOutcomeChart(md *markdown.Markdown, found, notFound, errored int) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Probe Outcomes"),
		piechart.WithShowData(true),
	)
	if found > 0 {
		chart.LabelAndIntValue("Found", uint64(found))
	}
	if notFound > 0 {
		chart.LabelAndIntValue("Not Found", uint64(notFound))
	}
	if errored > 0 {
		chart.LabelAndIntValue("Error", uint64(errored))
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// WriteFootprint outputs a footprint report.
func (w *MarkdownWriter) WriteFootprint(r *model.FootprintReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Recongraph Footprint Report")
	md.PlainText("")

	if r.Error != "" {
		md.Cautionf("Lookup failed: %s", r.Error)
		md.PlainText("")
	}

	switch {
	case r.Enumeration != nil:
		w.writeEnumeration(md, r.Enumeration)
	case r.Breach != nil:
		md.Table(footprintHeader(r))
		md.PlainText("")
		md.H2("Breaches")
		md.PlainText("")
		writeFieldTable(md, payloadFields(r.Breach))
	case r.Phone != nil:
		md.Table(footprintHeader(r))
		md.PlainText("")
		md.H2("Phone")
		md.PlainText("")
		writeFieldTable(md, payloadFields(r.Phone))
	default:
		md.Table(footprintHeader(r))
		md.PlainText("")
	}
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func footprintHeader(r *model.FootprintReport) markdown.TableSet {
	return markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Identity", "`" + r.Identity.Value + "`"},
			{"Kind", r.Kind},
			{"Scan Date", r.DateScanned.Format(dateLayout)},
		},
	}
}

func writeFieldTable(md *markdown.Markdown, fields []field) {
	if len(fields) == 0 {
		md.PlainText("No data.")
		md.PlainText("")
		return
	}
	rows := make([][]string, len(fields))
	for i, f := range fields {
		rows[i] = []string{f.Label, truncateString(f.Value, 120)}
	}
	md.Table(markdown.TableSet{Header: []string{"Field", "Value"}, Rows: rows})
	md.PlainText("")
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [recongraph](https://github.com/nao1215/recongraph)*")
}

// truncateString truncates a string to maxLen runes with ellipsis.
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
