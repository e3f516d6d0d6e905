package types

import (
	"fmt"
	"strings"
	"time"
)

// TestLevel is the scope of a test execution
type TestLevel string

const (
	TestLevelRunLocalTests     TestLevel = "RunLocalTests"
	TestLevelRunAllTestsInOrg  TestLevel = "RunAllTestsInOrg"
	TestLevelRunSpecifiedTests TestLevel = "RunSpecifiedTests"
)

// TestLevels lists every accepted test level in display order
var TestLevels = []TestLevel{
	TestLevelRunLocalTests,
	TestLevelRunAllTestsInOrg,
	TestLevelRunSpecifiedTests,
}

// IsValid checks if the test level is one of the known levels
func (l TestLevel) IsValid() bool {
	for _, known := range TestLevels {
		if l == known {
			return true
		}
	}
	return false
}

// ParseTestLevel parses a test level name. An empty string yields an empty level.
func ParseTestLevel(s string) (TestLevel, error) {
	if s == "" {
		return "", nil
	}
	level := TestLevel(s)
	if !level.IsValid() {
		names := make([]string, len(TestLevels))
		for i, l := range TestLevels {
			names[i] = string(l)
		}
		return "", fmt.Errorf("invalid test level %q, must be one of: %s", s, strings.Join(names, ", "))
	}
	return level, nil
}

// Specifiers select a subset of tests to run
type Specifiers struct {
	Tests      []string `json:"tests,omitempty"`
	ClassNames []string `json:"classNames,omitempty"`
	SuiteNames []string `json:"suiteNames,omitempty"`
}

// Any reports whether any specifier is set
func (s Specifiers) Any() bool {
	return len(s.Tests) > 0 || len(s.ClassNames) > 0 || len(s.SuiteNames) > 0
}

// RunPlan is the unambiguous execution plan of one invocation
type RunPlan struct {
	TestLevel    TestLevel     `json:"testLevel"`
	Specifiers   Specifiers    `json:"specifiers"`
	Synchronous  bool          `json:"synchronous"`
	CodeCoverage bool          `json:"codeCoverage"`
	Wait         time.Duration `json:"wait,omitempty"`
}

// RunsSynchronously reports whether the plan takes the single blocking call path
func (p *RunPlan) RunsSynchronously() bool {
	return p.Synchronous && p.TestLevel == TestLevelRunSpecifiedTests
}
