package store

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tallykeep/internal/model"
)

func sampleWorkingSet() model.WorkingSet {
	return model.WorkingSet{
		Clients:  []model.Client{{ID: "c1", Name: "Acme"}},
		Projects: []model.Project{{ID: "p1", ClientID: "c1", Name: "Site", HourlyRate: decimal.RequireFromString("85.5"), Currency: "USD", Status: model.ProjectActive}},
		TimeEntries: []model.TimeEntry{
			{ID: "t1", ProjectID: "p1", Date: "2026-03-02", Hours: decimal.RequireFromString("2.5"), Billable: true, InvoiceID: model.StrPtr("i1")},
		},
		Invoices: []model.Invoice{
			{ID: "i1", ClientID: "c1", InvoiceNumber: "INV-0001", TimeEntryIDs: []string{"t1"}, TotalAmount: decimal.RequireFromString("213.75"), Currency: "USD", Status: model.InvoiceSent, PaymentStatus: model.PaymentUnpaid},
		},
		BillerInfo: model.BillerProfile{Name: "Jo Doe"},
	}
}

func TestWorkingSet_SaveAndLoad(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	ws := sampleWorkingSet()
	require.True(t, SaveWorkingSet(ctx, s, ws))

	got := LoadWorkingSet(ctx, s)

	want := ws.Clone()
	wantJSON, err := json.Marshal(want)
	require.NoError(t, err)
	gotJSON, err := json.Marshal(got)
	require.NoError(t, err)
	assert.JSONEq(t, string(wantJSON), string(gotJSON))
}

func TestWorkingSet_LoadEmptyStore(t *testing.T) {
	got := LoadWorkingSet(context.Background(), createTestStore(t))

	assert.NotNil(t, got.Clients)
	assert.NotNil(t, got.Payments)
	assert.Empty(t, got.Invoices)
	assert.True(t, got.BillerInfo.IsBlank())
}

func TestWorkingSet_CorruptedCollectionIsolated(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	require.True(t, SaveWorkingSet(ctx, s, sampleWorkingSet()))
	require.NoError(t, s.Put(ctx, KeyProjects, []byte(`[{"id":`)))

	got := LoadWorkingSet(ctx, s)
	assert.Empty(t, got.Projects)
	assert.Len(t, got.Clients, 1, "other collections still load")
}

func TestWorkingSet_SaveFailure(t *testing.T) {
	assert.False(t, SaveWorkingSet(context.Background(), failingKV{}, sampleWorkingSet()))
}

func TestWorkingSet_NilCollectionsStoredAsEmpty(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	require.True(t, SaveWorkingSet(ctx, s, model.WorkingSet{}))

	raw, err := s.Get(ctx, KeyPayments)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(raw))
}
