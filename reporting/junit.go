package reporting

import (
	"encoding/xml"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/acarl005/stripansi"

	"github.com/ethereum-optimism/infra/op-testrun/types"
)

const junitSuiteName = "op-testrun"

// junitTestSuites is the top level element of the JUnit document
type junitTestSuites struct {
	XMLName xml.Name         `xml:"testsuites"`
	Suites  []junitTestSuite `xml:"testsuite"`
}

type junitTestSuite struct {
	Name      string `xml:"name,attr"`
	Timestamp string `xml:"timestamp,attr"`
	Hostname  string `xml:"hostname,attr"`
	Tests     int    `xml:"tests,attr"`
	Failures  int    `xml:"failures,attr"`
	// Remote runs do not distinguish errors from failures.
	Errors int    `xml:"errors,attr"`
	Time   string `xml:"time,attr"`

	Properties []junitProperty  `xml:"properties>property"`
	TestCases  []*junitTestCase `xml:"testcase"`
}

type junitProperty struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

type junitTestCase struct {
	Name      string `xml:"name,attr"`
	ClassName string `xml:"classname,attr"`
	Time      string `xml:"time,attr"` // seconds, two decimals

	Failure *junitFailure `xml:"failure,omitempty"`
	Skipped *junitSkipped `xml:"skipped,omitempty"`
}

type junitFailure struct {
	Message string `xml:"message,attr"`
	Details string `xml:",cdata"`
}

type junitSkipped struct{}

// JUnitFormatter renders a JUnit XML document
type JUnitFormatter struct{}

// NewJUnitFormatter creates a new JUnit formatter
func NewJUnitFormatter() *JUnitFormatter {
	return &JUnitFormatter{}
}

// Format formats the report data as JUnit XML
func (jf *JUnitFormatter) Format(data *ReportData) (string, error) {
	s := data.Result.Summary
	suite := junitTestSuite{
		Name:      junitSuiteName,
		Timestamp: xmlSafe(s.TestStartTime),
		Hostname:  xmlSafe(s.Hostname),
		Tests:     len(data.AllTests),
		Failures:  len(data.FailedTests),
		Time:      msToSeconds(s.TestExecutionTimeMs),
	}
	for _, f := range data.Summary {
		suite.Properties = append(suite.Properties, junitProperty{Name: f.Name, Value: xmlSafe(f.Value)})
	}

	for _, item := range data.AllTests {
		testCase := &junitTestCase{
			Name:      xmlSafe(item.MethodName),
			ClassName: xmlSafe(item.ClassName),
			Time:      msToSeconds(item.Duration.Milliseconds()),
		}
		switch {
		case item.Failed():
			details := item.StackTrace
			if details == "" {
				details = item.Message
			}
			testCase.Failure = &junitFailure{
				Message: xmlSafe(item.Message),
				Details: xmlSafe(details),
			}
		case item.Outcome == types.OutcomeSkip:
			testCase.Skipped = &junitSkipped{}
		}
		suite.TestCases = append(suite.TestCases, testCase)
	}

	doc, err := xml.MarshalIndent(junitTestSuites{Suites: []junitTestSuite{suite}}, "", "    ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal junit report: %w", err)
	}
	return xml.Header + string(doc) + "\n", nil
}

func msToSeconds(ms int64) string {
	return fmt.Sprintf("%.2f", float64(ms)/1000)
}

// xmlSafe strips ANSI escapes and drops every character XML 1.0 does not
// allow. Invalid UTF-8 is replaced with U+FFFD.
func xmlSafe(s string) string {
	s = strings.ToValidUTF8(stripansi.Strip(s), string(utf8.RuneError))
	return strings.Map(func(r rune) rune {
		if isXMLChar(r) {
			return r
		}
		return -1
	}, s)
}

func isXMLChar(r rune) bool {
	switch {
	case r == '\t', r == '\n', r == '\r':
		return true
	case r >= 0x20 && r <= 0xD7FF:
		return true
	case r >= 0xE000 && r <= 0xFFFD:
		return true
	case r >= 0x10000 && r <= utf8.MaxRune:
		return true
	}
	return false
}
