// Command lpnswitch-test runs YAML scenarios against the switch node.
//
// Each scenario starts a fresh node on a recording stack, feeds it stack
// events and checks the commands, timers, display lines and status the
// node ends up with.
//
// Usage:
//
//	lpnswitch-test [flags] [scenario-pattern]
//
// Flags:
//
//	-tests string       Path to scenario directory (default "./testdata/cases")
//	-tags string        Only run scenarios carrying all of these tags (comma-separated)
//	-timeout duration   Scenario timeout (default 10s)
//	-fail-fast          Stop after the first failed scenario
//	-verbose            Enable verbose output
//	-json               Output results as JSON
//	-junit              Output results as JUnit XML
//	-trace string       File path for node trace logging (CBOR format)
//	-log-level string   Node log level: debug, info, warn, error (default: off)
//
// Examples:
//
//	# Run every scenario
//	lpnswitch-test
//
//	# Run the LPN scenarios with step details
//	lpnswitch-test -tags lpn -verbose
//
//	# Run one scenario and keep its trace
//	lpnswitch-test -trace dfu.cbor "TC-DFU-001"
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/lpnswitch/lpnswitch-go/internal/testharness/reporter"
	"github.com/lpnswitch/lpnswitch-go/internal/testharness/runner"
	swlog "github.com/lpnswitch/lpnswitch-go/pkg/log"
)

var (
	tests    = flag.String("tests", "./testdata/cases", "Path to scenario directory")
	tags     = flag.String("tags", "", "Only run scenarios carrying all of these tags (comma-separated)")
	timeout  = flag.Duration("timeout", 10*time.Second, "Scenario timeout")
	failFast = flag.Bool("fail-fast", false, "Stop after the first failed scenario")
	verbose  = flag.Bool("verbose", false, "Enable verbose output")
	jsonOut  = flag.Bool("json", false, "Output results as JSON")
	junitOut = flag.Bool("junit", false, "Output results as JUnit XML")
	traceLog = flag.String("trace", "", "File path for node trace logging (CBOR format)")
	logLevel = flag.String("log-level", "", "Node log level: debug, info, warn, error (default: off)")
)

func main() {
	flag.Parse()

	pattern := ""
	if flag.NArg() > 0 {
		pattern = flag.Arg(0)
	}

	outputFormat := reporter.FormatText
	if *jsonOut {
		outputFormat = reporter.FormatJSON
	} else if *junitOut {
		outputFormat = reporter.FormatJUnit
	}

	if outputFormat == reporter.FormatText {
		log.SetFlags(log.Ltime)
		printBanner()
		log.Printf("Scenarios: %s", *tests)
		if pattern != "" {
			log.Printf("Pattern: %s", pattern)
		}
		if *tags != "" {
			log.Printf("Tags: %s", *tags)
		}
	}

	config := &runner.Config{
		TestDir:            *tests,
		Pattern:            pattern,
		Tags:               *tags,
		Timeout:            *timeout,
		StopOnFirstFailure: *failFast,
		Verbose:            *verbose,
		Output:             os.Stdout,
		OutputFormat:       outputFormat,
	}

	if *logLevel != "" {
		var level slog.Level
		if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
			fmt.Fprintf(os.Stderr, "Error: invalid log level %q\n", *logLevel)
			os.Exit(1)
		}
		config.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	}

	var traceLogger *swlog.FileLogger
	if *traceLog != "" {
		var err error
		traceLogger, err = swlog.NewFileLogger(*traceLog)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to create trace logger: %v\n", err)
			os.Exit(1)
		}
		// Only set the logger when non-nil to avoid a typed-nil interface.
		config.Trace = traceLogger
		if outputFormat == reporter.FormatText {
			log.Printf("Trace logging to: %s", *traceLog)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	result, err := runner.New(config).Run(ctx)
	if traceLogger != nil {
		traceLogger.Close()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if result.FailCount > 0 {
		os.Exit(1)
	}
}

func printBanner() {
	fmt.Print(`
 _     ____  _   _               _ _       _
| |   |  _ \| \ | |_____      __(_) |_ ___| |__
| |   | |_) |  \| / __\ \ /\ / /| | __/ __| '_ \
| |___|  __/| |\  \__ \\ V  V / | | || (__| | | |
|_____|_|   |_| \_|___/ \_/\_/  |_|\__\___|_| |_|

Node Scenario Runner
`)
}
