package harness

import (
	"bytes"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// DefaultStartMillis is the clock start when a scenario sets none.
const DefaultStartMillis int64 = 1_700_000_000_000

// DefaultDevice is used when a scenario lists no devices.
const DefaultDevice = "local"

// Scenario defines a multi-device scenario.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// StartMillis is the initial clock reading in ms since epoch.
	StartMillis int64 `yaml:"start_ms,omitempty"`

	// StepMillis is how far the clock advances on every read. 0 freezes it
	// between explicit advance steps.
	StepMillis int64 `yaml:"step_ms,omitempty"`

	// Retention overrides the replica retention count.
	Retention *int `yaml:"retention,omitempty"`

	// Devices names the primary stores sharing one replica store.
	Devices []string `yaml:"devices,omitempty"`

	// Setup seeds device working sets before the flow.
	Setup []SeedStep `yaml:"setup,omitempty"`

	// Flow contains the operations to run, in order.
	Flow []FlowStep `yaml:"flow"`

	// Assertions validate the final trace and state.
	Assertions []Assertion `yaml:"assertions"`
}

// SeedStep writes a working set directly to a device's primary store.
type SeedStep struct {
	Device string `yaml:"device,omitempty"`

	// Data holds working set collections keyed by their JSON names.
	Data map[string]any `yaml:"data"`
}

// FlowStep runs one operation on one device.
type FlowStep struct {
	// Device defaults to the first listed device.
	Device string `yaml:"device,omitempty"`

	// Op is the operation name, see the Op constants.
	Op string `yaml:"op"`

	// Args are operation arguments.
	Args map[string]any `yaml:"args,omitempty"`

	// Expect validates the step. If nil, any outcome is accepted.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies an expected step outcome.
type ExpectClause struct {
	// Outcome is the expected outcome, e.g. "pushed", "ok", "rejected".
	Outcome string `yaml:"outcome"`

	// Result is a subset of the expected result fields.
	Result map[string]any `yaml:"result,omitempty"`
}

// Assertion validates trace or final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_contains": Check op ran with args
	// - "trace_order": Check ops ran in order
	// - "trace_count": Check op ran exactly N times
	// - "final_state": Find a record and verify expected fields
	// - "replica_count": Check the number of stored replicas
	Type string `yaml:"type"`

	// Device narrows trace assertions and selects the store for final_state.
	Device string `yaml:"device,omitempty"`

	// Op is the operation name (trace_contains, trace_count).
	Op string `yaml:"op,omitempty"`

	// Args are the expected step args (trace_contains). Subset match.
	Args map[string]any `yaml:"args,omitempty"`

	// Ops is the expected order (trace_order). Entries are "op" or
	// "device:op".
	Ops []string `yaml:"ops,omitempty"`

	// Count is the expected number (trace_count, replica_count).
	Count int `yaml:"count,omitempty"`

	// Table is the working set collection (final_state).
	Table string `yaml:"table,omitempty"`

	// Where selects exactly one record (final_state).
	Where map[string]any `yaml:"where,omitempty"`

	// Expect contains expected field values (final_state). Subset match.
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
	AssertReplicaCount  = "replica_count"
)

// Operation names.
const (
	OpSync          = "sync"
	OpExport        = "export"
	OpTamper        = "tamper"
	OpImport        = "import"
	OpCreateInvoice = "create_invoice"
	OpRecordPayment = "record_payment"
	OpRemovePayment = "remove_payment"
	OpReconcile     = "reconcile"
	OpPrune         = "prune"
	OpCheck         = "check"
	OpAdvance       = "advance"
)

var knownOps = []string{
	OpSync, OpExport, OpTamper, OpImport, OpCreateInvoice, OpRecordPayment,
	OpRemovePayment, OpReconcile, OpPrune, OpCheck, OpAdvance,
}

// collections are the working set collections final_state can address.
var collections = []string{
	"clients", "projects", "timeEntries", "invoices", "payments",
	"recurringTemplates", "invoiceReminders", "exchangeRates",
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Parse YAML with strict field validation (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	scenario.applyDefaults()
	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// applyDefaults fills the start time, device list and step devices.
func (s *Scenario) applyDefaults() {
	if s.StartMillis == 0 {
		s.StartMillis = DefaultStartMillis
	}
	if len(s.Devices) == 0 {
		s.Devices = []string{DefaultDevice}
	}
	for i := range s.Setup {
		if s.Setup[i].Device == "" {
			s.Setup[i].Device = s.Devices[0]
		}
	}
	for i := range s.Flow {
		if s.Flow[i].Device == "" {
			s.Flow[i].Device = s.Devices[0]
		}
	}
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	if s.StepMillis < 0 {
		return fmt.Errorf("step_ms must be non-negative")
	}

	if s.Retention != nil && *s.Retention < 0 {
		return fmt.Errorf("retention must be non-negative")
	}

	for i, name := range s.Devices {
		if name == "" {
			return fmt.Errorf("devices[%d]: name is required", i)
		}
		if slices.Index(s.Devices, name) != i {
			return fmt.Errorf("devices[%d]: duplicate device %q", i, name)
		}
	}

	for i, step := range s.Setup {
		if !slices.Contains(s.Devices, step.Device) {
			return fmt.Errorf("setup[%d]: unknown device %q", i, step.Device)
		}
		if step.Data == nil {
			return fmt.Errorf("setup[%d]: data is required", i)
		}
	}

	for i, step := range s.Flow {
		if step.Op == "" {
			return fmt.Errorf("flow[%d]: op is required", i)
		}
		if !slices.Contains(knownOps, step.Op) {
			return fmt.Errorf("flow[%d]: unknown op %q", i, step.Op)
		}
		if !slices.Contains(s.Devices, step.Device) {
			return fmt.Errorf("flow[%d]: unknown device %q", i, step.Device)
		}
		if step.Expect != nil && step.Expect.Outcome == "" {
			return fmt.Errorf("flow[%d].expect: outcome is required", i)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion, s.Devices); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, devices []string) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	if a.Device != "" && !slices.Contains(devices, a.Device) {
		return fmt.Errorf("assertions[%d]: unknown device %q", index, a.Device)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Op == "" {
			return fmt.Errorf("assertions[%d]: op is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Ops) == 0 {
			return fmt.Errorf("assertions[%d]: ops list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Op == "" {
			return fmt.Errorf("assertions[%d]: op is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertFinalState:
		if a.Table == "" {
			return fmt.Errorf("assertions[%d]: table is required for final_state", index)
		}
		if !slices.Contains(collections, a.Table) {
			return fmt.Errorf("assertions[%d]: unknown table %q", index, a.Table)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	case AssertReplicaCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for replica_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
