package harness

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/roach88/tallykeep/internal/cloudkv"
	"github.com/roach88/tallykeep/internal/replica"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s:%s -> %s\n", event.Seq, event.Device, event.Op, event.Outcome)
		}
	}

	return buf.String()
}

// stepMatches reports whether event ran op, on device when one is given.
func stepMatches(event TraceEvent, device, op string) bool {
	return event.Op == op && (device == "" || event.Device == device)
}

// assertTraceContains checks if the trace contains a step matching the
// op, device and args (subset match).
func assertTraceContains(trace []TraceEvent, assertion Assertion) error {
	expected, _ := normalize(assertion.Args)
	expectedArgs, _ := expected.(map[string]any)

	for _, event := range trace {
		if stepMatches(event, assertion.Device, assertion.Op) && matchArgs(event.Args, expectedArgs) {
			return nil
		}
	}

	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("op %s on %s with args %v", assertion.Op, deviceLabel(assertion.Device), assertion.Args),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks if ops appear in the specified order.
// Ops don't need to be consecutive (intervening steps are allowed).
func assertTraceOrder(trace []TraceEvent, assertion Assertion) error {
	// Each expected entry matches the first step at or after the previous match.
	pos := 0
	for _, entry := range assertion.Ops {
		device, op := splitOp(entry)
		found := false
		for pos < len(trace) {
			event := trace[pos]
			pos++
			if stepMatches(event, device, op) {
				found = true
				break
			}
		}
		if !found {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("ops in order: %v", assertion.Ops),
				Actual:   fmt.Sprintf("%s not found after position %d", entry, pos),
				Trace:    trace,
			}
		}
	}
	return nil
}

// assertTraceCount checks if the op appears exactly the specified number of times.
func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if stepMatches(event, assertion.Device, assertion.Op) {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s on %s", assertion.Count, assertion.Op, deviceLabel(assertion.Device)),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}

	return nil
}

// assertFinalState finds exactly one record in a device's collection
// matching Where and validates Expect with subset semantics.
func assertFinalState(ctx context.Context, h *Harness, assertion Assertion) error {
	device := assertion.Device
	if device == "" {
		device = h.devices[0]
	}

	ws, err := h.workingSet(ctx, device)
	if err != nil {
		return err
	}
	all, err := normalize(ws)
	if err != nil {
		return fmt.Errorf("final_state: %w", err)
	}
	rows, _ := all.(map[string]any)[assertion.Table].([]any)

	where, _ := normalize(assertion.Where)
	whereMap, _ := where.(map[string]any)
	whereDesc := formatWhereClause(assertion.Where)

	var matched []map[string]any
	for _, row := range rows {
		rec, ok := row.(map[string]any)
		if ok && matchArgs(rec, whereMap) {
			matched = append(matched, rec)
		}
	}

	switch len(matched) {
	case 0:
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("record in %s/%s where %s", device, assertion.Table, whereDesc),
			Actual:   "record not found",
		}
	case 1:
	default:
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("exactly one record in %s/%s where %s", device, assertion.Table, whereDesc),
			Actual:   fmt.Sprintf("%d records matched (assertion is ambiguous)", len(matched)),
		}
	}

	expected, _ := normalize(assertion.Expect)
	expectedMap, _ := expected.(map[string]any)
	for key, expectedValue := range expectedMap {
		actualValue, exists := matched[0][key]
		if !exists {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("field %q to exist", key),
				Actual:   fmt.Sprintf("field %q not present in record %v", key, matched[0]),
			}
		}
		if !valuesEqual(actualValue, expectedValue) {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("field %q = %v (type %T)", key, expectedValue, expectedValue),
				Actual:   fmt.Sprintf("field %q = %v (type %T)", key, actualValue, actualValue),
			}
		}
	}

	return nil
}

// assertReplicaCount checks the number of replicas in the shared store.
func assertReplicaCount(ctx context.Context, h *Harness, assertion Assertion) error {
	cfg := cloudkv.DefaultConfig(h.config(h.devices[0]).ReplicaPath)
	cfg.GCInterval = 0
	kv, err := cloudkv.Open(cfg)
	if err != nil {
		return fmt.Errorf("replica_count: %w", err)
	}
	defer kv.Close()

	entries, err := replica.New(kv).ListReplicas(ctx)
	if err != nil {
		return fmt.Errorf("replica_count: %w", err)
	}

	if len(entries) != assertion.Count {
		keys := make([]string, 0, len(entries))
		for _, e := range entries {
			keys = append(keys, e.Key)
		}
		return &AssertionError{
			Type:     AssertReplicaCount,
			Expected: fmt.Sprintf("%d replicas", assertion.Count),
			Actual:   fmt.Sprintf("%d replicas %v", len(entries), keys),
		}
	}
	return nil
}

// formatWhereClause creates a human-readable description of match conditions.
func formatWhereClause(where map[string]any) string {
	if len(where) == 0 {
		return "(no conditions)"
	}

	// Sort keys for deterministic output
	keys := make([]string, 0, len(where))
	for k := range where {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, where[k]))
	}
	return strings.Join(parts, " AND ")
}

// matchArgs checks if actual contains all expected keys (subset match).
// Nested objects are matched the same way. Extra keys in actual are ignored.
func matchArgs(actual map[string]any, expected map[string]any) bool {
	for key, expectedVal := range expected {
		actualVal, exists := actual[key]
		if !exists {
			return false
		}
		if !valuesEqual(actualVal, expectedVal) {
			return false
		}
	}
	return true
}

// valuesEqual compares two normalized values. Objects use subset semantics.
func valuesEqual(actual, expected any) bool {
	if actual == nil && expected == nil {
		return true
	}
	if actual == nil || expected == nil {
		return false
	}

	if expMap, ok := expected.(map[string]any); ok {
		actMap, ok := actual.(map[string]any)
		return ok && matchArgs(actMap, expMap)
	}

	return reflect.DeepEqual(actual, expected)
}

func splitOp(entry string) (device, op string) {
	if i := strings.IndexByte(entry, ':'); i >= 0 {
		return entry[:i], entry[i+1:]
	}
	return "", entry
}

func deviceLabel(device string) string {
	if device == "" {
		return "any device"
	}
	return device
}

// AssertionContext provides store access for state assertions.
type AssertionContext struct {
	Harness *Harness
	Ctx     context.Context
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertFinalState, AssertReplicaCount:
			if actx == nil || actx.Harness == nil {
				err = fmt.Errorf("assertion[%d]: %s requires store context", i, assertion.Type)
			} else if assertion.Type == AssertFinalState {
				err = assertFinalState(actx.Ctx, actx.Harness, assertion)
			} else {
				err = assertReplicaCount(actx.Ctx, actx.Harness, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
