package reporting

import (
	"fmt"
	"strings"
)

// TAPFormatter renders a Test Anything Protocol stream
type TAPFormatter struct{}

// NewTAPFormatter creates a new TAP formatter
func NewTAPFormatter() *TAPFormatter {
	return &TAPFormatter{}
}

// Format formats the report data as TAP
func (tf *TAPFormatter) Format(data *ReportData) (string, error) {
	var out strings.Builder

	fmt.Fprintf(&out, "1..%d\n", len(data.AllTests))
	for _, item := range data.AllTests {
		status := "ok"
		if item.Failed() {
			status = "not ok"
		}
		fmt.Fprintf(&out, "%s %d %s\n", status, item.Index, item.Name)
		if item.Failed() && item.Message != "" {
			for _, line := range strings.Split(strings.TrimRight(item.Message, "\n"), "\n") {
				fmt.Fprintf(&out, "  # %s\n", line)
			}
		}
	}
	fmt.Fprintf(&out, "# Run \"%s report -i %s --result-format <format>\" to retrieve test results in a different format.\n", BinaryName, data.RunID)

	return out.String(), nil
}
