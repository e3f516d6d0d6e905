package reporting

import (
	"fmt"
	"strings"
)

// ResultFormat selects the renderer used for a report
type ResultFormat string

const (
	FormatHuman ResultFormat = "human"
	FormatTAP   ResultFormat = "tap"
	FormatJUnit ResultFormat = "junit"
	FormatJSON  ResultFormat = "json"
)

// ResultFormats lists every supported format, in the order shown to users
var ResultFormats = []ResultFormat{FormatHuman, FormatTAP, FormatJUnit, FormatJSON}

// ParseResultFormat validates a format name. An empty name selects human.
func ParseResultFormat(s string) (ResultFormat, error) {
	if s == "" {
		return FormatHuman, nil
	}
	for _, f := range ResultFormats {
		if strings.EqualFold(s, string(f)) {
			return f, nil
		}
	}
	return "", fmt.Errorf("invalid result format %q, expected one of %s", s, formatNames())
}

func formatNames() string {
	names := make([]string, len(ResultFormats))
	for i, f := range ResultFormats {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}

// ReportFormatter defines the interface for different report output formats
type ReportFormatter interface {
	Format(data *ReportData) (string, error)
}

// FormatterOptions are the rendering switches shared by the formatters
type FormatterOptions struct {
	CodeCoverage     bool
	DetailedCoverage bool
	Concise          bool
	Color            bool
}

// NewFormatter returns the formatter for format
func NewFormatter(format ResultFormat, opts FormatterOptions) (ReportFormatter, error) {
	switch format {
	case FormatHuman, "":
		return NewHumanFormatter(opts), nil
	case FormatTAP:
		return NewTAPFormatter(), nil
	case FormatJUnit:
		return NewJUnitFormatter(), nil
	case FormatJSON:
		return NewJSONFormatter(), nil
	default:
		return nil, fmt.Errorf("unsupported result format %q", format)
	}
}

// artifactName is the result file name for a run in the given format
func artifactName(format ResultFormat, runID string) string {
	switch format {
	case FormatTAP:
		return fmt.Sprintf("test-result-%s-tap.txt", runID)
	case FormatJUnit:
		return fmt.Sprintf("test-result-%s-junit.xml", runID)
	case FormatJSON:
		return fmt.Sprintf("test-result-%s.json", runID)
	default:
		return fmt.Sprintf("test-result-%s.txt", runID)
	}
}
