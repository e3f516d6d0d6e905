// Package resolver turns raw run options into one unambiguous RunPlan.
package resolver

import (
	"strings"
	"time"

	"github.com/ethereum-optimism/infra/op-testrun/types"
)

// Options are the raw, possibly conflicting, run options of one invocation
type Options struct {
	Tests        []string
	ClassNames   []string
	SuiteNames   []string
	TestLevel    types.TestLevel // empty when not given explicitly
	Synchronous  bool
	CodeCoverage bool
	Wait         time.Duration
}

// NewRunPlan validates the options and returns the resolved plan
func NewRunPlan(opts Options) (*types.RunPlan, error) {
	specifiers := types.Specifiers{
		Tests:      MergeValues(opts.Tests),
		ClassNames: MergeValues(opts.ClassNames),
		SuiteNames: MergeValues(opts.SuiteNames),
	}

	level, err := Resolve(specifiers, opts.Synchronous, opts.TestLevel)
	if err != nil {
		return nil, err
	}

	return &types.RunPlan{
		TestLevel:    level,
		Specifiers:   specifiers,
		Synchronous:  opts.Synchronous,
		CodeCoverage: opts.CodeCoverage,
		Wait:         opts.Wait,
	}, nil
}

// Resolve picks the test level for a set of specifiers. Rules are applied in
// order and the first match wins.
func Resolve(specifiers types.Specifiers, synchronous bool, explicit types.TestLevel) (types.TestLevel, error) {
	if synchronous && (len(specifiers.SuiteNames) > 0 || len(specifiers.ClassNames) > 1) {
		return "", types.NewInvalidCombinationError(types.RuleSyncSingleClassOnly)
	}

	if specifiers.Any() && explicit != "" && explicit != types.TestLevelRunSpecifiedTests {
		return "", types.NewInvalidCombinationError(types.RuleSpecifierRequiresSpecifiedTests)
	}

	switch {
	case explicit != "":
		return explicit, nil
	case specifiers.Any():
		return types.TestLevelRunSpecifiedTests, nil
	default:
		return types.TestLevelRunLocalTests, nil
	}
}

// MergeValues flattens repeated flag occurrences and comma separated values
// into one list, keeping first-seen order and dropping duplicates.
func MergeValues(values []string) []string {
	var merged []string
	seen := make(map[string]bool)
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			part = strings.TrimSpace(part)
			if part == "" || seen[part] {
				continue
			}
			seen[part] = true
			merged = append(merged, part)
		}
	}
	return merged
}
