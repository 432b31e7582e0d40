// Package harness runs multi-device scenarios against the tallykeep service.
//
// A scenario describes one or more devices that share a replica store, a
// flow of operations run on those devices, and assertions over the
// resulting trace and final state. Every step opens the device's service,
// runs one operation and closes it again, like one CLI invocation.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	start_ms: 1736500000000
//	step_ms: 0
//	devices: [laptop, phone]
//	setup:
//	  - device: laptop
//	    data:
//	      clients: [{ id: c1, name: Acme }]
//	flow:
//	  - device: laptop
//	    op: sync
//	    expect:
//	      outcome: created
//	  - op: advance
//	    args: { ms: 1000 }
//	assertions:
//	  - type: trace_contains
//	    device: phone
//	    op: sync
//	  - type: final_state
//	    device: phone
//	    table: invoices
//	    where: { id: id-0001 }
//	    expect: { paymentStatus: Paid }
//
// # Operations
//
//   - sync: one sync; outcome is the action (created, pulled, pushed, none) or error
//   - export: export document, kept under args.doc (default "last")
//   - tamper: string replacement inside a kept document
//   - import: import args.doc or inline args.data with args.mode
//   - create_invoice, record_payment, remove_payment: ledger mutations
//   - reconcile, prune, check: maintenance
//   - advance: move the shared clock forward by args.ms
//
// # Assertion Types
//
//   - trace_contains: an operation ran on a device with matching args
//   - trace_order: operations ran in the given order
//   - trace_count: an operation ran exactly N times
//   - final_state: a record in a device's working set has the expected fields
//   - replica_count: the replica store holds exactly N replicas
//
// # Deterministic Testing
//
// The clock starts at start_ms and advances step_ms per read, and entity ids
// are sequential (id-0001, id-0002, ...), so traces are identical across
// runs and can be compared against golden files.
package harness
