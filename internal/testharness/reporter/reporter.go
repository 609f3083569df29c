// Package reporter formats scenario results.
package reporter

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/lpnswitch/lpnswitch-go/internal/testharness/engine"
)

// Output formats accepted by New.
const (
	FormatText  = "text"
	FormatJSON  = "json"
	FormatJUnit = "junit"
)

// Reporter formats and outputs scenario results.
type Reporter interface {
	// ReportSuite reports results for a suite.
	ReportSuite(result *engine.SuiteResult)

	// ReportTest reports results for a single scenario.
	ReportTest(result *engine.TestResult)
}

// New returns the reporter for format. Unknown formats fall back to text.
func New(format string, w io.Writer, verbose bool) Reporter {
	switch format {
	case FormatJSON:
		return NewJSONReporter(w, verbose)
	case FormatJUnit:
		return NewJUnitReporter(w)
	default:
		return NewTextReporter(w, verbose)
	}
}

func status(result *engine.TestResult) string {
	switch {
	case result.Skipped:
		return "skipped"
	case result.Passed:
		return "passed"
	default:
		return "failed"
	}
}

func passRate(result *engine.SuiteResult) float64 {
	total := result.PassCount + result.FailCount
	if total == 0 {
		return 0
	}
	return float64(result.PassCount) / float64(total) * 100
}

var (
	passStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	skipStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	dimStyle  = lipgloss.NewStyle().Faint(true)
)

// TextReporter outputs human-readable text reports.
type TextReporter struct {
	writer  io.Writer
	verbose bool
}

// NewTextReporter creates a new text reporter. Colors are only emitted
// when the process output is a terminal.
func NewTextReporter(w io.Writer, verbose bool) *TextReporter {
	return &TextReporter{
		writer:  w,
		verbose: verbose,
	}
}

// ReportSuite reports suite results in text format.
func (r *TextReporter) ReportSuite(result *engine.SuiteResult) {
	fmt.Fprintf(r.writer, "\n=== Suite: %s ===\n\n", result.SuiteName)

	for _, tr := range result.Results {
		r.ReportTest(tr)
	}

	fmt.Fprintf(r.writer, "\n--- Summary ---\n")
	fmt.Fprintf(r.writer, "Total:    %d\n", len(result.Results))
	fmt.Fprintf(r.writer, "Passed:   %d\n", result.PassCount)
	fmt.Fprintf(r.writer, "Failed:   %d\n", result.FailCount)
	fmt.Fprintf(r.writer, "Skipped:  %d\n", result.SkipCount)
	if result.PassCount+result.FailCount > 0 {
		fmt.Fprintf(r.writer, "Pass Rate: %.1f%%\n", passRate(result))
	}
	fmt.Fprintf(r.writer, "Duration: %s\n", result.Duration.Round(time.Millisecond))
}

// ReportTest reports a single scenario result in text format.
func (r *TextReporter) ReportTest(result *engine.TestResult) {
	tc := result.TestCase

	var tag string
	switch {
	case result.Skipped:
		tag = skipStyle.Render("SKIP")
	case result.Passed:
		tag = passStyle.Render("PASS")
	default:
		tag = failStyle.Render("FAIL")
	}

	fmt.Fprintf(r.writer, "[%s] %s - %s %s\n",
		tag, tc.ID, tc.Name, dimStyle.Render(result.Duration.Round(time.Microsecond).String()))

	if result.Skipped {
		if result.SkipReason != "" {
			fmt.Fprintf(r.writer, "       Skip reason: %s\n", result.SkipReason)
		}
		return
	}
	if !result.Passed && result.Error != nil {
		fmt.Fprintf(r.writer, "       Error: %v\n", result.Error)
	}

	for _, sr := range result.StepResults {
		// Failed steps are always detailed; passing ones only when verbose.
		if sr.Passed && !r.verbose {
			continue
		}
		r.reportStep(sr)
	}
}

func (r *TextReporter) reportStep(sr *engine.StepResult) {
	stepStatus := "PASS"
	if !sr.Passed {
		stepStatus = "FAIL"
	}
	label := sr.Step.Action
	if sr.Step.Description != "" {
		label += ": " + sr.Step.Description
	}
	fmt.Fprintf(r.writer, "    [%s] Step %d %s\n", stepStatus, sr.StepIndex+1, label)

	if !sr.Passed && sr.Error != nil {
		fmt.Fprintf(r.writer, "           Error: %v\n", sr.Error)
	}

	keys := make([]string, 0, len(sr.ExpectResults))
	for k := range sr.ExpectResults {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		er := sr.ExpectResults[key]
		expStatus := "OK"
		if !er.Passed {
			expStatus = "FAILED"
		}
		fmt.Fprintf(r.writer, "           [%s] %s: %s\n", expStatus, key, er.Message)
	}

	if !sr.Passed {
		if cmds, ok := sr.Output[engine.OutputCommands]; ok {
			fmt.Fprintf(r.writer, "           Commands: %v\n", cmds)
		}
	}
}

// JSONReporter outputs JSON-formatted reports.
type JSONReporter struct {
	writer  io.Writer
	pretty  bool
	outputs bool
}

// NewJSONReporter creates a new JSON reporter. With verbose set, every
// step carries its outputs.
func NewJSONReporter(w io.Writer, verbose bool) *JSONReporter {
	return &JSONReporter{
		writer:  w,
		pretty:  true,
		outputs: verbose,
	}
}

// JSONSuiteResult is the JSON representation of suite results.
type JSONSuiteResult struct {
	SuiteName string           `json:"suite_name"`
	Duration  string           `json:"duration"`
	Total     int              `json:"total"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Skipped   int              `json:"skipped"`
	PassRate  float64          `json:"pass_rate"`
	Tests     []JSONTestResult `json:"tests"`
}

// JSONTestResult is the JSON representation of a scenario result.
type JSONTestResult struct {
	ID         string           `json:"id"`
	Name       string           `json:"name"`
	Tags       []string         `json:"tags,omitempty"`
	Status     string           `json:"status"`
	Duration   string           `json:"duration"`
	Error      string           `json:"error,omitempty"`
	SkipReason string           `json:"skip_reason,omitempty"`
	Steps      []JSONStepResult `json:"steps,omitempty"`
}

// JSONStepResult is the JSON representation of a step result.
type JSONStepResult struct {
	Index   int                   `json:"index"`
	Action  string                `json:"action"`
	Status  string                `json:"status"`
	Error   string                `json:"error,omitempty"`
	Expects map[string]JSONExpect `json:"expects,omitempty"`
	Outputs map[string]any        `json:"outputs,omitempty"`
}

// JSONExpect is the JSON representation of an expectation result.
type JSONExpect struct {
	Passed   bool   `json:"passed"`
	Expected any    `json:"expected"`
	Actual   any    `json:"actual"`
	Message  string `json:"message"`
}

// ReportSuite reports suite results in JSON format.
func (r *JSONReporter) ReportSuite(result *engine.SuiteResult) {
	jr := JSONSuiteResult{
		SuiteName: result.SuiteName,
		Duration:  result.Duration.Round(time.Millisecond).String(),
		Total:     len(result.Results),
		Passed:    result.PassCount,
		Failed:    result.FailCount,
		Skipped:   result.SkipCount,
		PassRate:  passRate(result),
		Tests:     make([]JSONTestResult, 0, len(result.Results)),
	}
	for _, tr := range result.Results {
		jr.Tests = append(jr.Tests, r.testToJSON(tr))
	}
	r.writeJSON(jr)
}

// ReportTest reports a single scenario result in JSON format.
func (r *JSONReporter) ReportTest(result *engine.TestResult) {
	r.writeJSON(r.testToJSON(result))
}

func (r *JSONReporter) testToJSON(result *engine.TestResult) JSONTestResult {
	tc := result.TestCase
	jr := JSONTestResult{
		ID:         tc.ID,
		Name:       tc.Name,
		Tags:       tc.Tags,
		Status:     status(result),
		Duration:   result.Duration.Round(time.Microsecond).String(),
		SkipReason: result.SkipReason,
	}
	if result.Error != nil {
		jr.Error = result.Error.Error()
	}

	for _, sr := range result.StepResults {
		jsr := JSONStepResult{
			Index:  sr.StepIndex,
			Action: sr.Step.Action,
			Status: "passed",
		}
		if !sr.Passed {
			jsr.Status = "failed"
		}
		if sr.Error != nil {
			jsr.Error = sr.Error.Error()
		}
		if r.outputs || !sr.Passed {
			jsr.Outputs = sr.Output
		}
		if len(sr.ExpectResults) > 0 {
			jsr.Expects = make(map[string]JSONExpect, len(sr.ExpectResults))
			for key, er := range sr.ExpectResults {
				jsr.Expects[key] = JSONExpect{
					Passed:   er.Passed,
					Expected: er.Expected,
					Actual:   er.Actual,
					Message:  er.Message,
				}
			}
		}
		jr.Steps = append(jr.Steps, jsr)
	}
	return jr
}

func (r *JSONReporter) writeJSON(v any) {
	enc := json.NewEncoder(r.writer)
	if r.pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(r.writer, `{"error": %q}`+"\n", "failed to marshal: "+err.Error())
	}
}

// JUnitReporter outputs JUnit XML for CI integration.
type JUnitReporter struct {
	writer io.Writer
}

// NewJUnitReporter creates a new JUnit reporter.
func NewJUnitReporter(w io.Writer) *JUnitReporter {
	return &JUnitReporter{writer: w}
}

type junitSuite struct {
	XMLName  xml.Name    `xml:"testsuite"`
	Name     string      `xml:"name,attr"`
	Tests    int         `xml:"tests,attr"`
	Failures int         `xml:"failures,attr"`
	Skipped  int         `xml:"skipped,attr"`
	Time     string      `xml:"time,attr"`
	Cases    []junitCase `xml:"testcase"`
}

type junitCase struct {
	Name      string        `xml:"name,attr"`
	ClassName string        `xml:"classname,attr"`
	Time      string        `xml:"time,attr"`
	Skipped   *junitSkipped `xml:"skipped,omitempty"`
	Failure   *junitFailure `xml:"failure,omitempty"`
}

type junitSkipped struct {
	Message string `xml:"message,attr"`
}

type junitFailure struct {
	Message string `xml:"message,attr"`
	Detail  string `xml:",cdata"`
}

// ReportSuite reports suite results in JUnit XML format.
func (r *JUnitReporter) ReportSuite(result *engine.SuiteResult) {
	suite := junitSuite{
		Name:     result.SuiteName,
		Tests:    len(result.Results),
		Failures: result.FailCount,
		Skipped:  result.SkipCount,
		Time:     seconds(result.Duration),
	}
	for _, tr := range result.Results {
		suite.Cases = append(suite.Cases, junitCaseFor(tr))
	}
	r.write(suite)
}

// ReportTest reports a single scenario as a one-case suite.
func (r *JUnitReporter) ReportTest(result *engine.TestResult) {
	suite := junitSuite{
		Name:  result.TestCase.ID,
		Tests: 1,
		Time:  seconds(result.Duration),
		Cases: []junitCase{junitCaseFor(result)},
	}
	switch {
	case result.Skipped:
		suite.Skipped = 1
	case !result.Passed:
		suite.Failures = 1
	}
	r.write(suite)
}

func junitCaseFor(tr *engine.TestResult) junitCase {
	tc := tr.TestCase
	jc := junitCase{
		Name:      tc.Name,
		ClassName: tc.ID,
		Time:      seconds(tr.Duration),
	}
	switch {
	case tr.Skipped:
		jc.Skipped = &junitSkipped{Message: tr.SkipReason}
	case !tr.Passed && tr.Error != nil:
		f := &junitFailure{Message: tr.Error.Error()}
		for _, sr := range tr.StepResults {
			if !sr.Passed {
				f.Detail += fmt.Sprintf("Step %d (%s): %v\n", sr.StepIndex+1, sr.Step.Action, sr.Error)
			}
		}
		jc.Failure = f
	}
	return jc
}

func (r *JUnitReporter) write(suite junitSuite) {
	data, err := xml.MarshalIndent(suite, "", "  ")
	if err != nil {
		fmt.Fprintf(r.writer, "<!-- failed to marshal: %s -->\n", err)
		return
	}
	fmt.Fprint(r.writer, xml.Header)
	fmt.Fprintln(r.writer, string(data))
}

func seconds(d time.Duration) string {
	return fmt.Sprintf("%.3f", d.Seconds())
}
