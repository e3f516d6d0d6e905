// Package payload builds the request bodies sent to the execution backend.
package payload

import (
	"errors"
	"strings"

	"github.com/ethereum-optimism/infra/op-testrun/resolver"
	"github.com/ethereum-optimism/infra/op-testrun/types"
)

// Builder builds sync and async payloads for a flow test run
type Builder struct {
	category string
}

// NewBuilder creates a builder that tags suite submissions with the flow category
func NewBuilder() *Builder {
	return &Builder{category: types.CategoryFlow}
}

// BuildSync builds the payload for the single blocking call. Only tests or a
// single class can be run synchronously.
func (b *Builder) BuildSync(plan *types.RunPlan) (types.SyncPayload, error) {
	if plan == nil {
		return types.SyncPayload{}, errors.New("run plan is required")
	}
	if len(plan.Specifiers.SuiteNames) > 0 || len(plan.Specifiers.ClassNames) > 1 {
		return types.SyncPayload{}, types.NewInvalidCombinationError(types.RuleSyncSingleClassOnly)
	}

	p := types.SyncPayload{
		TestLevel:        plan.TestLevel,
		SkipCodeCoverage: !plan.CodeCoverage,
	}
	switch {
	case len(plan.Specifiers.Tests) > 0:
		p.Tests = resolver.NormalizeTests(plan.Specifiers.Tests)
	case len(plan.Specifiers.ClassNames) > 0:
		p.Tests = resolver.ClassItems(plan.Specifiers.ClassNames)
	}
	return p, nil
}

// BuildAsync builds the payload for an asynchronous submission
func (b *Builder) BuildAsync(plan *types.RunPlan) (types.AsyncPayload, error) {
	if plan == nil {
		return types.AsyncPayload{}, errors.New("run plan is required")
	}

	p := types.AsyncPayload{
		TestLevel:        plan.TestLevel,
		SkipCodeCoverage: !plan.CodeCoverage,
	}
	switch {
	case len(plan.Specifiers.Tests) > 0:
		p.Tests = resolver.NormalizeTests(plan.Specifiers.Tests)
	case len(plan.Specifiers.ClassNames) > 0:
		p.Tests = resolver.ClassItems(plan.Specifiers.ClassNames)
	case len(plan.Specifiers.SuiteNames) > 0:
		p.SuiteNames = strings.Join(resolver.MergeValues(plan.Specifiers.SuiteNames), ",")
		p.Category = b.category
	}
	return p, nil
}
