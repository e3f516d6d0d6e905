package types

// CategoryFlow marks payloads addressed to flow tests
const CategoryFlow = "flow"

// TestItem addresses one test class, optionally narrowed to methods
type TestItem struct {
	ClassName   string   `json:"className"`
	Namespace   string   `json:"namespace,omitempty"`
	TestMethods []string `json:"testMethods,omitempty"`
}

// SyncPayload is the body of a synchronous run request
type SyncPayload struct {
	TestLevel        TestLevel  `json:"testLevel"`
	Tests            []TestItem `json:"tests,omitempty"`
	SkipCodeCoverage bool       `json:"skipCodeCoverage"`
}

// AsyncPayload is the body of an asynchronous run submission
type AsyncPayload struct {
	TestLevel        TestLevel  `json:"testLevel"`
	Tests            []TestItem `json:"tests,omitempty"`
	SuiteNames       string     `json:"suiteNames,omitempty"`
	Category         string     `json:"category,omitempty"`
	SkipCodeCoverage bool       `json:"skipCodeCoverage"`
}
