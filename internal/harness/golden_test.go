package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The golden_sync scenario freezes the clock, so its trace is byte-stable.
//
// Regenerate with:
//
//	go test ./internal/harness -run TestRunWithGolden -update
func TestRunWithGolden_FrozenClockSync(t *testing.T) {
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", "golden_sync.yaml"))
	require.NoError(t, err)

	result, err := RunWithGolden(t, scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestTraceSnapshot_CanonicalIsStable(t *testing.T) {
	trace := []TraceEvent{
		{Seq: 1, Device: "local", Op: OpAdvance, Args: map[string]any{"ms": float64(5)}, Outcome: OutcomeOK},
		{Seq: 2, Device: "local", Op: OpSync, Outcome: "created", Result: map[string]any{"state": "success", "action": "created"}},
	}

	first, err := TraceSnapshot{ScenarioName: "s", Trace: trace}.Canonical()
	require.NoError(t, err)
	second, err := TraceSnapshot{ScenarioName: "s", Trace: trace}.Canonical()
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t,
		`{"scenario_name":"s","trace":[{"args":{"ms":5},"device":"local","op":"advance","outcome":"ok","seq":1},`+
			`{"device":"local","op":"sync","outcome":"created","result":{"action":"created","state":"success"},"seq":2}]}`,
		string(first))
}
