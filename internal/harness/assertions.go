package harness

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/iamez/slomix-sub001/internal/engine"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Target   string // What was inspected, e.g. "row 101/A1B2..."
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	// Header with assertion type
	fmt.Fprintf(&buf, "Assertion failed: %s", e.Type)
	if e.Target != "" {
		fmt.Fprintf(&buf, " (%s)", e.Target)
	}
	buf.WriteString("\n")

	// Expected vs Actual (most important info)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	return buf.String()
}

// assertRow checks the row for (round_id, participant_id).
func assertRow(result *engine.SessionTimingShadowResult, a Assertion) error {
	target := fmt.Sprintf("row %d/%s", a.RoundID, a.ParticipantID)
	for _, row := range result.Rows {
		if row.RoundID == a.RoundID && row.ParticipantID == a.ParticipantID {
			return assertFields(AssertRow, target, row, a.Expect)
		}
	}
	return &AssertionError{
		Type:     AssertRow,
		Target:   target,
		Expected: "row present",
		Actual:   fmt.Sprintf("not found among %d rows", len(result.Rows)),
	}
}

// assertSummary checks the session summary for participant_id.
func assertSummary(result *engine.SessionTimingShadowResult, a Assertion) error {
	target := "summary " + a.ParticipantID
	summary, ok := result.PlayerSummary(a.ParticipantID)
	if !ok {
		return &AssertionError{
			Type:     AssertSummary,
			Target:   target,
			Expected: "summary present",
			Actual:   "not found",
		}
	}
	return assertFields(AssertSummary, target, summary, a.Expect)
}

// assertRound checks the diagnostics for round_id.
func assertRound(result *engine.SessionTimingShadowResult, a Assertion) error {
	target := fmt.Sprintf("round %d", a.RoundID)
	diag, ok := result.RoundDiagnostics(a.RoundID)
	if !ok {
		return &AssertionError{
			Type:     AssertRound,
			Target:   target,
			Expected: "diagnostics present",
			Actual:   fmt.Sprintf("round not in %v", result.RoundIDs),
		}
	}
	return assertFields(AssertRound, target, diag, a.Expect)
}

// assertResult checks top-level result fields.
func assertResult(result *engine.SessionTimingShadowResult, a Assertion) error {
	return assertFields(AssertResult, "result", result, a.Expect)
}

// assertTopN checks the ranking order for a metric.
func assertTopN(result *engine.SessionTimingShadowResult, a Assertion) error {
	metric, err := engine.ParseDiffMetric(a.Metric)
	if err != nil {
		return err
	}
	ranked, err := result.TopNDiffSummary(a.N, metric, !a.Signed)
	if err != nil {
		return err
	}

	actual := make([]string, len(ranked))
	for i, s := range ranked {
		actual[i] = s.ParticipantID
	}
	expected := a.Order
	if expected == nil {
		expected = []string{}
	}

	if !reflect.DeepEqual(actual, expected) {
		return &AssertionError{
			Type:     AssertTopN,
			Target:   fmt.Sprintf("top %d by %s (signed=%t)", a.N, a.Metric, a.Signed),
			Expected: fmt.Sprintf("%v", expected),
			Actual:   fmt.Sprintf("%v", actual),
		}
	}
	return nil
}

// assertRowCount checks the exact number of rows.
func assertRowCount(result *engine.SessionTimingShadowResult, a Assertion) error {
	if len(result.Rows) != a.Count {
		return &AssertionError{
			Type:     AssertRowCount,
			Expected: fmt.Sprintf("%d rows", a.Count),
			Actual:   fmt.Sprintf("%d rows", len(result.Rows)),
		}
	}
	return nil
}

// assertFields subset-matches expected against the JSON form of actual.
// Only specified fields are validated.
func assertFields(kind, target string, actual any, expected map[string]interface{}) error {
	fields, err := toFieldMap(actual)
	if err != nil {
		return fmt.Errorf("%s (%s): %w", kind, target, err)
	}

	// Sorted for stable error messages
	keys := make([]string, 0, len(expected))
	for k := range expected {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		want := expected[key]
		got, exists := fields[key]
		if !exists {
			return &AssertionError{
				Type:     kind,
				Target:   target,
				Expected: fmt.Sprintf("field %s = %v", key, want),
				Actual:   "field missing",
			}
		}
		if !fieldValuesEqual(want, got) {
			return &AssertionError{
				Type:     kind,
				Target:   target,
				Expected: fmt.Sprintf("%s = %v", key, want),
				Actual:   fmt.Sprintf("%s = %v", key, got),
			}
		}
	}
	return nil
}

// toFieldMap converts an engine value to its JSON object form.
// Numbers are kept as json.Number so integers compare exactly.
func toFieldMap(v any) (map[string]interface{}, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}

	var fields map[string]interface{}
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	if err := decoder.Decode(&fields); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}
	return fields, nil
}

// fieldValuesEqual compares a YAML-decoded expected value with a
// JSON-decoded actual value. Maps are subset-matched; slices are exact.
func fieldValuesEqual(expected, actual interface{}) bool {
	// Handle nil cases
	if expected == nil && actual == nil {
		return true
	}
	if expected == nil || actual == nil {
		return false
	}

	switch exp := expected.(type) {
	case int:
		return numberEquals(actual, float64(exp))
	case int64:
		return numberEquals(actual, float64(exp))
	case float64:
		return numberEquals(actual, exp)
	case string:
		actualStr, ok := actual.(string)
		return ok && exp == actualStr
	case bool:
		actualBool, ok := actual.(bool)
		return ok && exp == actualBool
	case map[string]interface{}:
		actualMap, ok := actual.(map[string]interface{})
		if !ok {
			return false
		}
		for key, val := range exp {
			if !fieldValuesEqual(val, actualMap[key]) {
				return false
			}
		}
		return true
	case []interface{}:
		actualList, ok := actual.([]interface{})
		if !ok || len(actualList) != len(exp) {
			return false
		}
		for i := range exp {
			if !fieldValuesEqual(exp[i], actualList[i]) {
				return false
			}
		}
		return true
	}

	// Fallback to DeepEqual for complex types
	return reflect.DeepEqual(expected, actual)
}

func numberEquals(actual interface{}, want float64) bool {
	n, ok := actual.(json.Number)
	if !ok {
		return false
	}
	got, err := n.Float64()
	return err == nil && got == want
}

// EvaluateAssertions evaluates all assertions against the session.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(session *engine.SessionTimingShadowResult, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertRow:
			err = assertRow(session, assertion)
		case AssertSummary:
			err = assertSummary(session, assertion)
		case AssertRound:
			err = assertRound(session, assertion)
		case AssertResult:
			err = assertResult(session, assertion)
		case AssertTopN:
			err = assertTopN(session, assertion)
		case AssertRowCount:
			err = assertRowCount(session, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
