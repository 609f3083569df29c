// Package runner executes YAML scenarios against a switch node.
//
// Every scenario gets a fresh node wired to a recording stack. Steps inject
// stack events, drive the buttons or force command failures; expectations
// then inspect the node status, the commands the node issued, its armed
// soft timers and the display.
package runner

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lpnswitch/lpnswitch-go/internal/testharness/engine"
	"github.com/lpnswitch/lpnswitch-go/internal/testharness/loader"
	"github.com/lpnswitch/lpnswitch-go/internal/testharness/reporter"
	"github.com/lpnswitch/lpnswitch-go/pkg/log"
)

// SuiteName names the suite in reports.
const SuiteName = "lpnswitch"

// Config configures the scenario runner.
type Config struct {
	// TestDir is the path to the scenario directory.
	TestDir string

	// Pattern filters scenarios by ID or name (regular expression).
	Pattern string

	// Tags includes only scenarios carrying all of these tags (comma-separated).
	Tags string

	// Timeout is the default scenario timeout.
	Timeout time.Duration

	// StopOnFirstFailure ends the suite after the first failed scenario.
	StopOnFirstFailure bool

	// Verbose enables step-level output.
	Verbose bool

	// Output is where to write results. Default: os.Stdout.
	Output io.Writer

	// OutputFormat is "text", "json", or "junit".
	OutputFormat string

	// Trace receives the node trace of every scenario, tagged with the
	// scenario ID. Nil disables tracing.
	Trace log.Logger

	// Logger receives the node's operational logs. Nil disables them.
	Logger *slog.Logger
}

// Runner executes scenarios.
type Runner struct {
	config   *Config
	engine   *engine.Engine
	reporter reporter.Reporter
}

// New creates a runner.
func New(config *Config) *Runner {
	if config.Output == nil {
		config.Output = os.Stdout
	}

	engineConfig := engine.DefaultConfig()
	if config.Timeout > 0 {
		engineConfig.DefaultTimeout = config.Timeout
	}
	engineConfig.StopOnFirstFailure = config.StopOnFirstFailure

	r := &Runner{config: config}
	engineConfig.Setup = r.setupSession
	engineConfig.Teardown = r.teardownSession

	r.engine = engine.NewWithConfig(engineConfig)
	engine.RegisterListCheckers(r.engine)
	r.registerHandlers()

	r.reporter = reporter.New(config.OutputFormat, config.Output, config.Verbose)
	return r
}

// Run loads the scenarios from TestDir, filters them and runs them.
func (r *Runner) Run(ctx context.Context) (*engine.SuiteResult, error) {
	cases, err := loader.LoadDirectoryRecursive(r.config.TestDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load scenarios: %w", err)
	}

	cases, err = loader.FilterTestCases(cases, r.config.Pattern, splitTags(r.config.Tags))
	if err != nil {
		return nil, err
	}
	if len(cases) == 0 {
		return nil, fmt.Errorf("no scenarios found matching filters (pattern=%q, tags=%q)",
			r.config.Pattern, r.config.Tags)
	}

	return r.RunCases(ctx, cases), nil
}

// RunCases runs the given scenarios and reports the suite.
func (r *Runner) RunCases(ctx context.Context, cases []*loader.TestCase) *engine.SuiteResult {
	result := r.engine.RunSuite(ctx, SuiteName, cases)
	r.reporter.ReportSuite(result)
	return result
}

func splitTags(s string) []string {
	var tags []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
