package reporting

import (
	"encoding/json"
	"fmt"

	"github.com/ethereum-optimism/infra/op-testrun/types"
)

// JSONReport is the structured block printed for the json result format
type JSONReport struct {
	Result *types.TestResult `json:"result"`
	Status int               `json:"status"`
}

// JSONFormatter renders the raw result together with its exit status
type JSONFormatter struct{}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

// Format formats the report data as indented JSON
func (jf *JSONFormatter) Format(data *ReportData) (string, error) {
	out, err := json.MarshalIndent(JSONReport{Result: data.Result, Status: data.ExitStatus}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal json report: %w", err)
	}
	return string(out) + "\n", nil
}
