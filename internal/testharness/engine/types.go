// Package engine provides scenario execution orchestration for the test harness.
package engine

import (
	"context"
	"time"

	"github.com/lpnswitch/lpnswitch-go/internal/testharness/loader"
)

// TestResult represents the outcome of a single scenario.
type TestResult struct {
	// TestCase is the scenario that was executed.
	TestCase *loader.TestCase

	// Passed indicates if all steps passed.
	Passed bool

	// Error is the error that caused failure, if any.
	Error error

	// StepResults contains results for each step.
	StepResults []*StepResult

	// Duration is how long the scenario took.
	Duration time.Duration

	// StartTime when the scenario started.
	StartTime time.Time

	// EndTime when the scenario finished.
	EndTime time.Time

	// Skipped indicates if the scenario was skipped.
	Skipped bool

	// SkipReason explains why the scenario was skipped.
	SkipReason string
}

// StepResult represents the outcome of a single step.
type StepResult struct {
	// Step is the step that was executed.
	Step *loader.Step

	// StepIndex is the index of this step (0-based).
	StepIndex int

	// Passed indicates if the step passed.
	Passed bool

	// Error is the error that caused failure, if any.
	Error error

	// ExpectResults maps expectation keys to their assertion results.
	ExpectResults map[string]*ExpectResult

	// Duration is how long the step took.
	Duration time.Duration

	// Output contains the outputs the step produced.
	Output map[string]any
}

// ExpectResult represents the result of checking an expectation.
type ExpectResult struct {
	// Key is the expectation key (e.g., "state").
	Key string

	// Expected is the expected value.
	Expected any

	// Actual is the actual value.
	Actual any

	// Passed indicates if the expectation was met.
	Passed bool

	// Message describes the result.
	Message string
}

// SuiteResult represents the outcome of running a set of scenarios.
type SuiteResult struct {
	// SuiteName identifies the suite.
	SuiteName string

	// Results contains results for each scenario.
	Results []*TestResult

	// PassCount is the number of passed scenarios.
	PassCount int

	// FailCount is the number of failed scenarios.
	FailCount int

	// SkipCount is the number of skipped scenarios.
	SkipCount int

	// Duration is the total time for all scenarios.
	Duration time.Duration
}

// ActionHandler processes a step action.
// Returns outputs to make available for expectations, and an error if the
// action failed.
type ActionHandler func(ctx context.Context, step *loader.Step, state *ExecutionState) (map[string]any, error)

// ExpectChecker checks an expectation against the execution state.
type ExpectChecker func(key string, expected any, state *ExecutionState) *ExpectResult

// SetupFunc prepares the execution state before the first step.
type SetupFunc func(ctx context.Context, tc *loader.TestCase, state *ExecutionState) error

// TeardownFunc releases what SetupFunc created.
type TeardownFunc func(tc *loader.TestCase, state *ExecutionState)

// ExecutionState holds state during scenario execution.
type ExecutionState struct {
	// Outputs accumulated from previous steps.
	Outputs map[string]any

	// Context for cancellation.
	Context context.Context

	// Custom state that handlers can use.
	Custom map[string]any
}

// NewExecutionState creates a new execution state.
func NewExecutionState(ctx context.Context) *ExecutionState {
	return &ExecutionState{
		Outputs: make(map[string]any),
		Custom:  make(map[string]any),
		Context: ctx,
	}
}

// Get retrieves a value from outputs.
func (s *ExecutionState) Get(key string) (any, bool) {
	v, ok := s.Outputs[key]
	return v, ok
}

// Set stores a value in outputs.
func (s *ExecutionState) Set(key string, value any) {
	s.Outputs[key] = value
}

// EngineConfig configures the engine.
type EngineConfig struct {
	// DefaultTimeout is the default timeout for scenarios.
	DefaultTimeout time.Duration

	// StepTimeout is the default timeout for individual steps.
	StepTimeout time.Duration

	// StopOnFirstFailure stops execution after the first failed scenario.
	StopOnFirstFailure bool

	// Setup runs before the first step of every scenario.
	Setup SetupFunc

	// Teardown runs after the last step of every scenario.
	Teardown TeardownFunc
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() *EngineConfig {
	return &EngineConfig{
		DefaultTimeout: 10 * time.Second,
		StepTimeout:    5 * time.Second,
	}
}
