package harness

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"github.com/roach88/tallykeep/internal/app"
	"github.com/roach88/tallykeep/internal/codec"
	"github.com/roach88/tallykeep/internal/config"
	"github.com/roach88/tallykeep/internal/invoicing"
	"github.com/roach88/tallykeep/internal/ledger"
	"github.com/roach88/tallykeep/internal/model"
	"github.com/roach88/tallykeep/internal/store"
	"github.com/roach88/tallykeep/internal/testutil"
)

// Outcomes reported by non-sync steps.
const (
	OutcomeOK       = "ok"
	OutcomeError    = "error"
	OutcomeRejected = "rejected"
	OutcomeValid    = "valid"
	OutcomeInvalid  = "invalid"
	OutcomeSkipped  = "skipped"
)

// Harness executes one scenario in a private directory.
type Harness struct {
	dir       string
	devices   []string
	retention *int
	clock     *testutil.StepClock
	ids       *testutil.SequentialIDs
	docs      map[string][]byte
	seq       int64
}

// Run executes a scenario and returns the result.
//
// Each run gets fresh stores in a temporary directory that is removed
// afterwards. Expectation and assertion failures are reported on the
// Result; err is set only when the scenario could not be executed.
func Run(scenario *Scenario) (*Result, error) {
	dir, err := os.MkdirTemp("", "tallykeep-scenario-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create scenario dir: %w", err)
	}
	defer os.RemoveAll(dir)

	h := &Harness{
		dir:       dir,
		devices:   scenario.Devices,
		retention: scenario.Retention,
		clock:     testutil.NewStepClockMillis(scenario.StartMillis, time.Duration(scenario.StepMillis)*time.Millisecond),
		ids:       testutil.NewSequentialIDs("id"),
		docs:      make(map[string][]byte),
	}

	ctx := context.Background()
	result := NewResult()

	if err := h.executeSetup(ctx, scenario.Setup); err != nil {
		return nil, fmt.Errorf("failed to execute setup: %w", err)
	}

	if err := h.executeFlow(ctx, scenario.Flow, result); err != nil {
		return nil, fmt.Errorf("failed to execute flow: %w", err)
	}

	for _, device := range h.devices {
		ws, err := h.workingSet(ctx, device)
		if err != nil {
			return nil, err
		}
		result.State[device] = ws.Counts()
	}

	actx := &AssertionContext{Harness: h, Ctx: ctx}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}

	return result, nil
}

func (h *Harness) config(device string) *config.Config {
	cfg := config.Default()
	cfg.DatabasePath = filepath.Join(h.dir, device+".db")
	cfg.ReplicaPath = filepath.Join(h.dir, "replica")
	cfg.ReplicaGCInterval = 0
	if h.retention != nil {
		cfg.ReplicaRetention = *h.retention
	}
	return cfg
}

// withService opens device's service for the duration of fn.
func (h *Harness) withService(ctx context.Context, device string, fn func(*app.Service) error) error {
	svc, err := app.Open(ctx, h.config(device), app.Options{Clock: h.clock, NewID: h.ids.Next})
	if err != nil {
		return fmt.Errorf("open device %s: %w", device, err)
	}
	defer svc.Close()
	return fn(svc)
}

// workingSet reads a device's stored working set.
func (h *Harness) workingSet(ctx context.Context, device string) (model.WorkingSet, error) {
	st, err := store.Open(h.config(device).DatabasePath)
	if err != nil {
		return model.WorkingSet{}, fmt.Errorf("open device %s: %w", device, err)
	}
	defer st.Close()
	return store.LoadWorkingSet(ctx, st), nil
}

// executeSetup writes seed data straight to each device's primary store.
func (h *Harness) executeSetup(ctx context.Context, steps []SeedStep) error {
	for i, step := range steps {
		var ws model.WorkingSet
		if err := convert(step.Data, &ws); err != nil {
			return fmt.Errorf("setup[%d]: %w", i, err)
		}

		st, err := store.Open(h.config(step.Device).DatabasePath)
		if err != nil {
			return fmt.Errorf("setup[%d]: %w", i, err)
		}
		ok := store.SaveWorkingSet(ctx, st, ws)
		st.Close()
		if !ok {
			return fmt.Errorf("setup[%d]: seed data not saved", i)
		}
	}
	return nil
}

// executeFlow runs each step, records it in the trace and checks its
// expect clause.
func (h *Harness) executeFlow(ctx context.Context, steps []FlowStep, result *Result) error {
	for i, step := range steps {
		outcome, res, err := h.executeStep(ctx, step)
		if err != nil {
			return fmt.Errorf("flow[%d] %s: %w", i, step.Op, err)
		}

		h.seq++
		args, _ := normalize(step.Args)
		argMap, _ := args.(map[string]any)
		result.AddTrace(TraceEvent{
			Seq:     h.seq,
			Device:  step.Device,
			Op:      step.Op,
			Args:    argMap,
			Outcome: outcome,
			Result:  res,
		})

		if step.Expect == nil {
			continue
		}
		if outcome != step.Expect.Outcome {
			result.AddError(fmt.Sprintf("flow[%d] %s on %s: expected outcome %q, got %q (result %v)",
				i, step.Op, step.Device, step.Expect.Outcome, outcome, res))
			continue
		}
		expected, _ := normalize(step.Expect.Result)
		expectedMap, _ := expected.(map[string]any)
		if !matchArgs(res, expectedMap) {
			result.AddError(fmt.Sprintf("flow[%d] %s on %s: result %v does not match %v",
				i, step.Op, step.Device, res, step.Expect.Result))
		}
	}
	return nil
}

// executeStep runs one operation. Operation failures become the "error"
// outcome; only failures to run the step at all are returned.
func (h *Harness) executeStep(ctx context.Context, step FlowStep) (string, map[string]any, error) {
	args := step.Args

	switch step.Op {
	case OpAdvance:
		ms, err := argInt(args, "ms", 0)
		if err != nil {
			return "", nil, err
		}
		h.clock.Advance(time.Duration(ms) * time.Millisecond)
		return OutcomeOK, nil, nil

	case OpTamper:
		name := argString(args, "doc", "last")
		doc, ok := h.docs[name]
		if !ok {
			return "", nil, fmt.Errorf("no exported document %q", name)
		}
		replace, _ := args["replace"].(map[string]any)
		for old, repl := range replace {
			doc = bytes.ReplaceAll(doc, []byte(old), []byte(fmt.Sprint(repl)))
		}
		h.docs[name] = doc
		return OutcomeOK, nil, nil
	}

	var (
		outcome string
		res     map[string]any
	)
	err := h.withService(ctx, step.Device, func(svc *app.Service) error {
		var err error
		outcome, res, err = h.runOp(ctx, svc, step.Op, args)
		return err
	})
	return outcome, res, err
}

func (h *Harness) runOp(ctx context.Context, svc *app.Service, op string, args map[string]any) (string, map[string]any, error) {
	switch op {
	case OpSync:
		out := svc.Sync(ctx)
		res := map[string]any{
			"action":       string(out.Action),
			"state":        string(out.State),
			"lastModified": svc.Snapshot().LastModified,
		}
		if out.ReplicaKey != "" {
			res["replicaKey"] = out.ReplicaKey
		}
		if out.Err != nil {
			res["error"] = out.Err.Error()
			return OutcomeError, toMap(res), nil
		}
		return string(out.Action), toMap(res), nil

	case OpExport:
		doc, err := svc.Export()
		if err != nil {
			return OutcomeError, errorResult(err), nil
		}
		h.docs[argString(args, "doc", "last")] = []byte(doc)

		var env codec.Envelope
		if err := json.Unmarshal([]byte(doc), &env); err != nil {
			return "", nil, fmt.Errorf("decode export: %w", err)
		}
		return OutcomeOK, toMap(map[string]any{"checksum": env.Checksum, "exportedBy": env.ExportedBy}), nil

	case OpImport:
		doc, err := h.importDocument(args)
		if err != nil {
			return "", nil, err
		}
		mode := model.ImportMode(argString(args, "mode", string(model.ModeMerge)))
		res, err := svc.Import(ctx, doc, mode)
		if err != nil {
			return OutcomeError, errorResult(err), nil
		}
		summary := map[string]any{"errors": res.Errors, "warnings": res.Warnings}
		if !res.Success {
			return OutcomeRejected, toMap(summary), nil
		}
		summary["counts"] = res.Data.Counts()
		return OutcomeOK, toMap(summary), nil

	case OpCreateInvoice:
		entries, err := argStrings(args, "entries")
		if err != nil {
			return "", nil, err
		}
		inv, err := svc.CreateInvoice(ctx, invoicing.Draft{
			ClientID:     argString(args, "client", ""),
			TimeEntryIDs: entries,
			IssueDate:    argString(args, "issued", ""),
			DueDate:      argString(args, "due", ""),
			Notes:        argString(args, "notes", ""),
		})
		if err != nil {
			return OutcomeError, errorResult(err), nil
		}
		return OutcomeOK, toMap(inv), nil

	case OpRecordPayment:
		amount, err := argDecimal(args, "amount")
		if err != nil {
			return "", nil, err
		}
		tds, err := argDecimal(args, "tds")
		if err != nil {
			return "", nil, err
		}
		p, err := svc.RecordPayment(ctx, ledger.PaymentInput{
			InvoiceID: argString(args, "invoice", ""),
			Amount:    amount,
			TDSAmount: tds,
			Date:      argString(args, "date", ""),
			Method:    argString(args, "method", ""),
			Notes:     argString(args, "notes", ""),
		})
		if err != nil {
			return OutcomeError, errorResult(err), nil
		}
		return OutcomeOK, h.paymentResult(svc, p), nil

	case OpRemovePayment:
		p, err := svc.RemovePayment(ctx, argString(args, "id", ""))
		if err != nil {
			return OutcomeError, errorResult(err), nil
		}
		return OutcomeOK, h.paymentResult(svc, p), nil

	case OpReconcile:
		ran, err := svc.Reconcile(ctx, argBool(args, "force"))
		if err != nil {
			return OutcomeError, errorResult(err), nil
		}
		if !ran {
			return OutcomeSkipped, nil, nil
		}
		return OutcomeOK, nil, nil

	case OpPrune:
		keep, err := argInt(args, "keep", svc.Config().ReplicaRetention)
		if err != nil {
			return "", nil, err
		}
		removed, err := svc.PruneReplicas(ctx, keep)
		if err != nil {
			return OutcomeError, errorResult(err), nil
		}
		return OutcomeOK, toMap(map[string]any{"removed": removed}), nil

	case OpCheck:
		report := svc.Check()
		outcome := OutcomeValid
		if !report.Valid {
			outcome = OutcomeInvalid
		}
		return outcome, toMap(report), nil
	}

	return "", nil, fmt.Errorf("unknown op %q", op)
}

// importDocument returns a kept export (args.doc) or inline data (args.data).
func (h *Harness) importDocument(args map[string]any) ([]byte, error) {
	if data, ok := args["data"]; ok {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("encode inline data: %w", err)
		}
		return raw, nil
	}
	name := argString(args, "doc", "last")
	doc, ok := h.docs[name]
	if !ok {
		return nil, fmt.Errorf("no exported document %q", name)
	}
	return doc, nil
}

func (h *Harness) paymentResult(svc *app.Service, p model.Payment) map[string]any {
	res := toMap(p)
	for _, inv := range svc.WorkingSet().Invoices {
		if inv.ID == p.InvoiceID {
			res["invoice"] = toMap(map[string]any{
				"paymentStatus": inv.PaymentStatus,
				"paidAmount":    inv.PaidAmount,
				"tdsReceived":   inv.TDSReceived,
			})
		}
	}
	return res
}

func errorResult(err error) map[string]any {
	return map[string]any{"error": err.Error()}
}

// toMap converts v to its JSON object form.
func toMap(v any) map[string]any {
	n, err := normalize(v)
	if err != nil {
		return map[string]any{"error": err.Error()}
	}
	m, _ := n.(map[string]any)
	return m
}

// normalize round-trips v through JSON so YAML and Go values compare alike.
func normalize(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// convert decodes a YAML-sourced value into dst via JSON.
func convert(v any, dst any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}

func argString(args map[string]any, key, def string) string {
	v, ok := args[key]
	if !ok || v == nil {
		return def
	}
	return fmt.Sprint(v)
}

func argBool(args map[string]any, key string) bool {
	b, _ := args[key].(bool)
	return b
}

func argInt(args map[string]any, key string, def int) (int, error) {
	v, ok := args[key]
	if !ok {
		return def, nil
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	}
	return 0, fmt.Errorf("arg %s: expected integer, got %T", key, v)
}

func argStrings(args map[string]any, key string) ([]string, error) {
	v, ok := args[key]
	if !ok {
		return nil, nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("arg %s: expected list, got %T", key, v)
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		out = append(out, fmt.Sprint(item))
	}
	return out, nil
}

func argDecimal(args map[string]any, key string) (decimal.Decimal, error) {
	v, ok := args[key]
	if !ok {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(fmt.Sprint(v))
	if err != nil {
		return decimal.Zero, fmt.Errorf("arg %s: %w", key, err)
	}
	return d, nil
}
