package merge

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tallykeep/internal/model"
)

func currentSet() model.WorkingSet {
	ws := model.WorkingSet{
		Clients:  []model.Client{{ID: "c1", Name: "Acme (local)"}},
		Projects: []model.Project{{ID: "p1", ClientID: "c1", Name: "Site", HourlyRate: decimal.NewFromInt(100)}},
		TimeEntries: []model.TimeEntry{
			{ID: "t1", ProjectID: "p1", Date: "2025-01-05", Hours: decimal.NewFromInt(1)},
			{ID: "t2", ProjectID: "p1", Date: "2025-01-01", Hours: decimal.NewFromInt(2)},
		},
		BillerInfo: model.BillerProfile{Name: "Local Biller"},
	}
	ws.Normalize()
	return ws
}

func importedSnapshot() model.Snapshot {
	s := model.Snapshot{
		WorkingSet: model.WorkingSet{
			Clients: []model.Client{{ID: "c1", Name: "Acme (imported)"}, {ID: "c2", Name: "Globex"}},
			TimeEntries: []model.TimeEntry{
				{ID: "t3", ProjectID: "p1", Date: "2025-01-03", Hours: decimal.NewFromInt(3)},
				{ID: "t4", ProjectID: "p1", Date: "2025-01-09", Hours: decimal.NewFromInt(4)},
			},
			Payments:      []model.Payment{{ID: "pay1", InvoiceID: "i1", Amount: decimal.NewFromInt(5)}},
			ExchangeRates: []model.ExchangeRate{{ID: "r1", From: "USD", To: "INR", Rate: decimal.NewFromInt(83)}},
			BillerInfo:    model.BillerProfile{Name: "Imported Biller"},
		},
		Version:      model.SchemaVersion,
		LastModified: 1,
	}
	s.Normalize()
	return s
}

func ids[T any](records []T, id func(T) string) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = id(r)
	}
	return out
}

func entryIDs(ws model.WorkingSet) []string {
	return ids(ws.TimeEntries, func(te model.TimeEntry) string { return te.ID })
}

func TestApply_Replace(t *testing.T) {
	imported := importedSnapshot()
	got := Apply(currentSet(), imported, model.ModeReplace)

	assert.Equal(t, []string{"c1", "c2"}, ids(got.Clients, func(c model.Client) string { return c.ID }))
	assert.Equal(t, "Acme (imported)", got.Clients[0].Name)
	assert.Empty(t, got.Projects, "missing collections become empty")
	assert.NotNil(t, got.Projects)
	assert.Equal(t, []string{"t3", "t4"}, entryIDs(got), "replace keeps imported order")
	assert.Equal(t, "Imported Biller", got.BillerInfo.Name)

	got.Clients[0].Name = "mutated"
	assert.Equal(t, "Acme (imported)", imported.Clients[0].Name, "result shares no slices with input")
}

func TestApply_MergeExistingWins(t *testing.T) {
	got := Apply(currentSet(), importedSnapshot(), model.ModeMerge)

	require.Len(t, got.Clients, 2)
	assert.Equal(t, "Acme (local)", got.Clients[0].Name)
	assert.Equal(t, "Globex", got.Clients[1].Name)
	assert.Len(t, got.Projects, 1)
	assert.Len(t, got.Payments, 1)
	assert.Len(t, got.ExchangeRates, 1)
	assert.Equal(t, "Local Biller", got.BillerInfo.Name)
}

func TestApply_MergeSortsTimeEntriesNewestFirst(t *testing.T) {
	got := Apply(currentSet(), importedSnapshot(), model.ModeMerge)
	assert.Equal(t, []string{"t4", "t1", "t3", "t2"}, entryIDs(got))
}

func TestApply_MergeSortIsStable(t *testing.T) {
	cur := currentSet()
	cur.TimeEntries = []model.TimeEntry{
		{ID: "a", Date: "2025-01-01"},
		{ID: "b", Date: "2025-01-01"},
	}
	imported := importedSnapshot()
	imported.TimeEntries = []model.TimeEntry{{ID: "c", Date: "2025-01-01"}}

	got := Apply(cur, imported, model.ModeMerge)
	assert.Equal(t, []string{"a", "b", "c"}, entryIDs(got))
}

func TestApply_MergeFillsBlankBiller(t *testing.T) {
	cur := currentSet()
	cur.BillerInfo = model.BillerProfile{}

	got := Apply(cur, importedSnapshot(), model.ModeMerge)
	assert.Equal(t, "Imported Biller", got.BillerInfo.Name)
}

func TestApply_MergeIdempotent(t *testing.T) {
	imported := importedSnapshot()
	once := Apply(currentSet(), imported, model.ModeMerge)
	twice := Apply(once, imported, model.ModeMerge)

	a, err := json.Marshal(once)
	require.NoError(t, err)
	b, err := json.Marshal(twice)
	require.NoError(t, err)
	assert.JSONEq(t, string(a), string(b))
}

func TestApply_MergeCollapsesDuplicateImportedIDs(t *testing.T) {
	imported := importedSnapshot()
	imported.Clients = append(imported.Clients, model.Client{ID: "c2", Name: "Globex duplicate"})

	got := Apply(currentSet(), imported, model.ModeMerge)
	require.Len(t, got.Clients, 2)
	assert.Equal(t, "Globex", got.Clients[1].Name)
}

func TestApply_UnknownModeKeepsCurrent(t *testing.T) {
	cur := currentSet()
	got := Apply(cur, importedSnapshot(), model.ImportMode("append"))
	assert.Equal(t, cur, got)
}
