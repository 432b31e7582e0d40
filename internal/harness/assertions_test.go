package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTrace() []TraceEvent {
	return []TraceEvent{
		{Seq: 1, Device: "laptop", Op: OpSync, Outcome: "created"},
		{Seq: 2, Device: "laptop", Op: OpCreateInvoice, Args: map[string]any{"client": "c1"}, Outcome: OutcomeOK},
		{Seq: 3, Device: "phone", Op: OpSync, Outcome: "pulled"},
		{Seq: 4, Device: "phone", Op: OpRecordPayment, Args: map[string]any{"invoice": "id-0001", "amount": float64(500)}, Outcome: OutcomeOK},
		{Seq: 5, Device: "laptop", Op: OpSync, Outcome: "pulled"},
	}
}

func TestAssertTraceContains_Found(t *testing.T) {
	err := assertTraceContains(sampleTrace(), Assertion{
		Type: AssertTraceContains,
		Op:   OpRecordPayment,
		Args: map[string]any{"amount": 500},
	})
	assert.NoError(t, err)
}

func TestAssertTraceContains_WrongDevice(t *testing.T) {
	err := assertTraceContains(sampleTrace(), Assertion{
		Type:   AssertTraceContains,
		Device: "laptop",
		Op:     OpRecordPayment,
	})
	require.Error(t, err)

	assertErr, ok := err.(*AssertionError)
	require.True(t, ok)
	assert.Equal(t, AssertTraceContains, assertErr.Type)
	assert.Contains(t, assertErr.Expected, "laptop")
	assert.Equal(t, "not found in trace", assertErr.Actual)
}

func TestAssertTraceContains_WrongArgs(t *testing.T) {
	err := assertTraceContains(sampleTrace(), Assertion{
		Type: AssertTraceContains,
		Op:   OpRecordPayment,
		Args: map[string]any{"invoice": "id-0009"},
	})
	assert.Error(t, err)
}

func TestAssertTraceOrder(t *testing.T) {
	tests := []struct {
		name string
		ops  []string
		ok   bool
	}{
		{"in order", []string{OpCreateInvoice, "phone:sync", OpRecordPayment}, true},
		{"device qualified", []string{"laptop:sync", "phone:sync", "laptop:sync"}, true},
		{"reversed", []string{OpRecordPayment, OpCreateInvoice}, false},
		{"wrong device", []string{"phone:create_invoice"}, false},
		{"repeated beyond trace", []string{"phone:sync", "phone:sync"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := assertTraceOrder(sampleTrace(), Assertion{Type: AssertTraceOrder, Ops: tt.ops})
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestAssertTraceCount(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertTraceCount(trace, Assertion{Type: AssertTraceCount, Op: OpSync, Count: 3}))
	assert.NoError(t, assertTraceCount(trace, Assertion{Type: AssertTraceCount, Device: "laptop", Op: OpSync, Count: 2}))
	assert.NoError(t, assertTraceCount(trace, Assertion{Type: AssertTraceCount, Op: OpPrune, Count: 0}))

	err := assertTraceCount(trace, Assertion{Type: AssertTraceCount, Op: OpSync, Count: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "3 occurrences")
}

func TestMatchArgs(t *testing.T) {
	actual := map[string]any{
		"id":      "id-0002",
		"amount":  "270",
		"invoice": map[string]any{"paymentStatus": "Paid", "paidAmount": "270"},
		"tags":    []any{"a", "b"},
	}

	assert.True(t, matchArgs(actual, nil))
	assert.True(t, matchArgs(actual, map[string]any{"id": "id-0002"}))
	assert.True(t, matchArgs(actual, map[string]any{"invoice": map[string]any{"paymentStatus": "Paid"}}))
	assert.True(t, matchArgs(actual, map[string]any{"tags": []any{"a", "b"}}))

	assert.False(t, matchArgs(actual, map[string]any{"id": "id-0003"}))
	assert.False(t, matchArgs(actual, map[string]any{"missing": "x"}))
	assert.False(t, matchArgs(actual, map[string]any{"invoice": map[string]any{"paymentStatus": "Unpaid"}}))
	assert.False(t, matchArgs(actual, map[string]any{"tags": []any{"a"}}))
	assert.False(t, matchArgs(actual, map[string]any{"invoice": "Paid"}))
}

func TestFormatWhereClause(t *testing.T) {
	assert.Equal(t, "(no conditions)", formatWhereClause(nil))
	assert.Equal(t, "amount=5 AND id=c1", formatWhereClause(map[string]any{"id": "c1", "amount": 5}))
}

func TestEvaluateAssertions_StateWithoutContext(t *testing.T) {
	errs := EvaluateAssertions(NewResult(), []Assertion{
		{Type: AssertFinalState, Table: "clients"},
		{Type: AssertReplicaCount, Count: 1},
		{Type: "bogus"},
	}, nil)

	require.Len(t, errs, 3)
	assert.Contains(t, errs[0], "requires store context")
	assert.Contains(t, errs[1], "requires store context")
	assert.Contains(t, errs[2], `unknown assertion type "bogus"`)
}
