package reporting

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ethereum-optimism/infra/op-testrun/types"
)

const (
	summaryHeading  = "=== Test Summary"
	resultsHeading  = "=== Test Results"
	coverageHeading = "=== Code Coverage by Class"
)

// HumanFormatter renders the summary, results and coverage tables
type HumanFormatter struct {
	opts FormatterOptions
}

// NewHumanFormatter creates a new human-readable formatter
func NewHumanFormatter(opts FormatterOptions) *HumanFormatter {
	return &HumanFormatter{opts: opts}
}

// Format formats the report data as ASCII tables
func (hf *HumanFormatter) Format(data *ReportData) (string, error) {
	var buf bytes.Buffer

	buf.WriteString(summaryHeading + "\n")
	hf.renderSummary(&buf, data)

	if rows := hf.resultRows(data); rows != nil {
		buf.WriteString("\n" + resultsHeading + "\n")
		hf.renderResults(&buf, rows)
	}

	if hf.opts.CodeCoverage && !hf.opts.Concise {
		buf.WriteString("\n" + coverageHeading + "\n")
		hf.renderCoverage(&buf, data.Coverage)
	}

	return buf.String(), nil
}

// resultRows returns the tests shown in the results table, or nil when the
// table is omitted. Concise output shows only failures, and nothing at all
// when every test passed.
func (hf *HumanFormatter) resultRows(data *ReportData) []ReportTestItem {
	if !hf.opts.Concise {
		if data.AllTests == nil {
			return []ReportTestItem{}
		}
		return data.AllTests
	}
	if !data.HasFailures {
		return nil
	}
	return data.FailedTests
}

func (hf *HumanFormatter) newTable(buf *bytes.Buffer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(buf)
	t.SetStyle(table.StyleLight)
	t.Style().Format.Header = text.FormatUpper
	return t
}

func (hf *HumanFormatter) renderSummary(buf *bytes.Buffer, data *ReportData) {
	t := hf.newTable(buf)
	t.AppendHeader(table.Row{"Name", "Value"})
	for _, f := range data.Summary {
		value := f.Display()
		if f.Name == "outcome" {
			value = hf.colorOutcome(types.Outcome(f.Value), value)
		}
		t.AppendRow(table.Row{f.Label, value})
	}
	t.Render()
}

func (hf *HumanFormatter) renderResults(buf *bytes.Buffer, rows []ReportTestItem) {
	t := hf.newTable(buf)
	t.AppendHeader(table.Row{"Test Name", "Outcome", "Message", "Runtime (ms)"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Test Name", WidthMax: 120, WidthMaxEnforcer: text.WrapSoft},
		{Name: "Message", WidthMax: 80, WidthMaxEnforcer: text.WrapSoft},
		{Name: "Runtime (ms)", Align: text.AlignRight},
	})
	for _, item := range rows {
		t.AppendRow(table.Row{
			item.Name,
			hf.colorOutcome(item.Outcome, string(item.Outcome)),
			item.Message,
			item.Duration.Milliseconds(),
		})
	}
	t.Render()
}

func (hf *HumanFormatter) renderCoverage(buf *bytes.Buffer, coverage []ReportCoverageItem) {
	t := hf.newTable(buf)
	header := table.Row{"Class Name", "Percent"}
	if hf.opts.DetailedCoverage {
		header = append(header, "Uncovered Lines")
	}
	t.AppendHeader(header)
	for _, c := range coverage {
		row := table.Row{c.ClassName, c.Percentage}
		if hf.opts.DetailedCoverage {
			row = append(row, joinLines(c.UncoveredLines))
		}
		t.AppendRow(row)
	}
	t.Render()
}

func (hf *HumanFormatter) colorOutcome(outcome types.Outcome, s string) string {
	if !hf.opts.Color {
		return s
	}
	switch outcome {
	case types.OutcomePass:
		return text.FgGreen.Sprint(s)
	case types.OutcomeFail, types.OutcomeCompletedWithFailures:
		return text.FgRed.Sprint(s)
	case types.OutcomeSkip:
		return text.FgYellow.Sprint(s)
	default:
		return s
	}
}

func joinLines(lines []int) string {
	parts := make([]string, len(lines))
	for i, l := range lines {
		parts[i] = fmt.Sprint(l)
	}
	return strings.Join(parts, ",")
}
