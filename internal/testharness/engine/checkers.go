package engine

import (
	"fmt"
	"sort"
	"strings"
)

// Checker registration names. These are the expectation keys that appear in
// YAML scenarios and the map keys in Engine.checkers.
const (
	CheckerNameDefault        = "default"
	CheckerNameCommands       = "commands"
	CheckerNameIssued         = "issued"
	CheckerNameNotIssued      = "not_issued"
	CheckerNameIssuedInOrder  = "issued_in_order"
	CheckerNameCommandCount   = "command_count"
	CheckerNameTimersArmed    = "timers_armed"
	CheckerNameTimersNotArmed = "timers_not_armed"
	CheckerNameDisplay        = "display"
)

// Output keys the checkers read.
const (
	OutputCommands      = "commands"
	OutputCommandCounts = "command_counts"
	OutputTimers        = "timers"
	OutputDisplay       = "display"
)

// RegisterListCheckers registers the command, timer and display checkers.
func RegisterListCheckers(e *Engine) {
	e.RegisterChecker(CheckerNameCommands, ListEquals(OutputCommands))
	e.RegisterChecker(CheckerNameIssued, ListContains(OutputCommands))
	e.RegisterChecker(CheckerNameNotIssued, ListExcludes(OutputCommands))
	e.RegisterChecker(CheckerNameIssuedInOrder, ListInOrder(OutputCommands))
	e.RegisterChecker(CheckerNameCommandCount, MapSubset(OutputCommandCounts))
	e.RegisterChecker(CheckerNameTimersArmed, MapSubset(OutputTimers))
	e.RegisterChecker(CheckerNameTimersNotArmed, MapExcludes(OutputTimers))
	e.RegisterChecker(CheckerNameDisplay, MapSubset(OutputDisplay))
}

// ToFloat64 converts various numeric types to float64 for comparison.
func ToFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint8:
		return float64(n), true
	default:
		return 0, false
	}
}

// ListEquals checks that the list output equals the expected list.
func ListEquals(output string) ExpectChecker {
	return func(key string, expected any, state *ExecutionState) *ExpectResult {
		actual, exp, res := listPair(key, output, expected, state)
		if res != nil {
			return res
		}
		passed := strings.Join(actual, ",") == strings.Join(exp, ",")
		return &ExpectResult{
			Key:      key,
			Expected: expected,
			Actual:   actual,
			Passed:   passed,
			Message:  fmt.Sprintf("expected %v, got %v", exp, actual),
		}
	}
}

// ListContains checks that every expected item appears in the list output.
func ListContains(output string) ExpectChecker {
	return func(key string, expected any, state *ExecutionState) *ExpectResult {
		actual, exp, res := listPair(key, output, expected, state)
		if res != nil {
			return res
		}
		for _, item := range exp {
			if indexOf(actual, item, 0) < 0 {
				return &ExpectResult{
					Key: key, Expected: expected, Actual: actual,
					Passed: false, Message: fmt.Sprintf("%q not found in %v", item, actual),
				}
			}
		}
		return &ExpectResult{
			Key: key, Expected: expected, Actual: actual,
			Passed: true, Message: fmt.Sprintf("all of %v present", exp),
		}
	}
}

// ListExcludes checks that no expected item appears in the list output.
func ListExcludes(output string) ExpectChecker {
	return func(key string, expected any, state *ExecutionState) *ExpectResult {
		actual, exp, res := listPair(key, output, expected, state)
		if res != nil {
			return res
		}
		for _, item := range exp {
			if indexOf(actual, item, 0) >= 0 {
				return &ExpectResult{
					Key: key, Expected: expected, Actual: actual,
					Passed: false, Message: fmt.Sprintf("%q unexpectedly present", item),
				}
			}
		}
		return &ExpectResult{
			Key: key, Expected: expected, Actual: actual,
			Passed: true, Message: fmt.Sprintf("none of %v present", exp),
		}
	}
}

// ListInOrder checks that the expected items appear in the list output in
// the given relative order. Other items may appear in between.
func ListInOrder(output string) ExpectChecker {
	return func(key string, expected any, state *ExecutionState) *ExpectResult {
		actual, exp, res := listPair(key, output, expected, state)
		if res != nil {
			return res
		}
		pos := 0
		for _, item := range exp {
			i := indexOf(actual, item, pos)
			if i < 0 {
				return &ExpectResult{
					Key: key, Expected: expected, Actual: actual,
					Passed: false, Message: fmt.Sprintf("%q not found after position %d in %v", item, pos, actual),
				}
			}
			pos = i + 1
		}
		return &ExpectResult{
			Key: key, Expected: expected, Actual: actual,
			Passed: true, Message: fmt.Sprintf("%v in order", exp),
		}
	}
}

// MapSubset checks that the map output holds every expected key with the
// expected value. Expected may also be a list of keys that must be present.
// Nested maps are compared as subsets as well.
func MapSubset(output string) ExpectChecker {
	return func(key string, expected any, state *ExecutionState) *ExpectResult {
		actual, ok := outputMap(state, output)
		if !ok {
			return missingOutput(key, output, expected)
		}

		if list, ok := expected.([]any); ok {
			for _, k := range list {
				if _, has := actual[fmt.Sprint(k)]; !has {
					return &ExpectResult{
						Key: key, Expected: expected, Actual: actual,
						Passed: false, Message: fmt.Sprintf("%v missing (have %v)", k, mapKeys(actual)),
					}
				}
			}
			return &ExpectResult{Key: key, Expected: expected, Actual: actual, Passed: true, Message: "all present"}
		}

		exp, ok := expected.(map[string]any)
		if !ok {
			return &ExpectResult{
				Key: key, Expected: expected, Actual: actual,
				Passed: false, Message: fmt.Sprintf("expected a map or list, got %T", expected),
			}
		}
		if msg := subsetMismatch("", exp, actual); msg != "" {
			return &ExpectResult{Key: key, Expected: expected, Actual: actual, Passed: false, Message: msg}
		}
		return &ExpectResult{Key: key, Expected: expected, Actual: actual, Passed: true, Message: "all expected fields match"}
	}
}

// MapExcludes checks that none of the expected keys is in the map output.
func MapExcludes(output string) ExpectChecker {
	return func(key string, expected any, state *ExecutionState) *ExpectResult {
		actual, ok := outputMap(state, output)
		if !ok {
			return missingOutput(key, output, expected)
		}
		exp, ok := toStrings(expected)
		if !ok {
			return &ExpectResult{
				Key: key, Expected: expected, Actual: actual,
				Passed: false, Message: fmt.Sprintf("expected a list, got %T", expected),
			}
		}
		for _, k := range exp {
			if _, has := actual[k]; has {
				return &ExpectResult{
					Key: key, Expected: expected, Actual: actual,
					Passed: false, Message: fmt.Sprintf("%s unexpectedly present", k),
				}
			}
		}
		return &ExpectResult{Key: key, Expected: expected, Actual: actual, Passed: true, Message: "none present"}
	}
}

func subsetMismatch(prefix string, exp, actual map[string]any) string {
	for k, ev := range exp {
		av, has := actual[k]
		if !has {
			return fmt.Sprintf("%s%s: missing", prefix, k)
		}
		if em, ok := ev.(map[string]any); ok {
			am, ok := av.(map[string]any)
			if !ok {
				return fmt.Sprintf("%s%s: expected map, got %T", prefix, k, av)
			}
			if msg := subsetMismatch(prefix+k+".", em, am); msg != "" {
				return msg
			}
			continue
		}
		if !valuesEqual(ev, av) {
			return fmt.Sprintf("%s%s: expected %v, got %v", prefix, k, ev, av)
		}
	}
	return ""
}

func valuesEqual(a, b any) bool {
	af, aok := ToFloat64(a)
	bf, bok := ToFloat64(b)
	if aok && bok {
		return af == bf
	}
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

func listPair(key, output string, expected any, state *ExecutionState) ([]string, []string, *ExpectResult) {
	raw, exists := state.Get(output)
	if !exists {
		return nil, nil, missingOutput(key, output, expected)
	}
	actual, ok := toStrings(raw)
	if !ok {
		return nil, nil, &ExpectResult{
			Key: key, Expected: expected, Actual: raw,
			Passed: false, Message: fmt.Sprintf("output %q is not a list", output),
		}
	}
	exp, ok := toStrings(expected)
	if !ok {
		return nil, nil, &ExpectResult{
			Key: key, Expected: expected, Actual: raw,
			Passed: false, Message: fmt.Sprintf("expected a list, got %T", expected),
		}
	}
	return actual, exp, nil
}

func missingOutput(key, output string, expected any) *ExpectResult {
	return &ExpectResult{
		Key:      key,
		Expected: expected,
		Passed:   false,
		Message:  fmt.Sprintf("output key %q not found", output),
	}
}

func outputMap(state *ExecutionState, output string) (map[string]any, bool) {
	raw, exists := state.Get(output)
	if !exists {
		return nil, false
	}
	switch m := raw.(type) {
	case map[string]any:
		return m, true
	case map[string]int:
		out := make(map[string]any, len(m))
		for k, v := range m {
			out[k] = v
		}
		return out, true
	case map[string]string:
		out := make(map[string]any, len(m))
		for k, v := range m {
			out[k] = v
		}
		return out, true
	default:
		return nil, false
	}
}

func toStrings(v any) ([]string, bool) {
	switch l := v.(type) {
	case []string:
		return l, true
	case []any:
		out := make([]string, len(l))
		for i, item := range l {
			out[i] = fmt.Sprint(item)
		}
		return out, true
	case string:
		return []string{l}, true
	case nil:
		return nil, true
	default:
		return nil, false
	}
}

func indexOf(list []string, item string, from int) int {
	for i := from; i < len(list); i++ {
		if list[i] == item {
			return i
		}
	}
	return -1
}

func mapKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
