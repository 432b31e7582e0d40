package integrity

import (
	"errors"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tallykeep/internal/model"
)

const validSnapshot = `{
  "clients": [{"id": "c1", "name": "Acme"}],
  "projects": [],
  "timeEntries": [],
  "invoices": [],
  "billerInfo": {},
  "version": "2.0",
  "lastModified": 1700000000000
}`

func TestCheckShape_Accepts(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"minimal", validSnapshot},
		{"optional collections present", `{"clients":[],"projects":[],"timeEntries":[],"invoices":[],
			"payments":[{"id":"p1"}],"recurringTemplates":[],"invoiceReminders":[],"exchangeRates":[],
			"billerInfo":{"name":"Me"},"version":"2.0","lastModified":1}`},
		{"extra fields allowed", `{"clients":[],"projects":[],"timeEntries":[],"invoices":[],
			"billerInfo":{},"version":"2.0","lastModified":1,"exportedAt":"2025-01-01T00:00:00Z"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NoError(t, CheckShape([]byte(tt.doc)))
		})
	}
}

func TestCheckShape_Rejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"empty object", `{}`},
		{"not an object", `[1,2]`},
		{"not json", `{"clients":`},
		{"missing invoices", `{"clients":[],"projects":[],"timeEntries":[],"billerInfo":{},"version":"2.0","lastModified":1}`},
		{"missing billerInfo", `{"clients":[],"projects":[],"timeEntries":[],"invoices":[],"version":"2.0","lastModified":1}`},
		{"clients not a list", `{"clients":{},"projects":[],"timeEntries":[],"invoices":[],"billerInfo":{},"version":"2.0","lastModified":1}`},
		{"record not an object", `{"clients":["c1"],"projects":[],"timeEntries":[],"invoices":[],"billerInfo":{},"version":"2.0","lastModified":1}`},
		{"payments not a list", `{"clients":[],"projects":[],"timeEntries":[],"invoices":[],"payments":"x","billerInfo":{},"version":"2.0","lastModified":1}`},
		{"version not a string", `{"clients":[],"projects":[],"timeEntries":[],"invoices":[],"billerInfo":{},"version":2,"lastModified":1}`},
		{"lastModified not a number", `{"clients":[],"projects":[],"timeEntries":[],"invoices":[],"billerInfo":{},"version":"2.0","lastModified":"now"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckShape([]byte(tt.doc))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrShapeInvalid))

			var shapeErr *ShapeError
			require.True(t, errors.As(err, &shapeErr))
			assert.Equal(t, SchemaSnapshot, shapeErr.Schema)
			assert.NotEmpty(t, shapeErr.Detail)
		})
	}
}

func TestValidateSnapshot(t *testing.T) {
	good := model.Snapshot{Version: model.SchemaVersion, LastModified: 1}
	good.Normalize()
	assert.NoError(t, ValidateSnapshot(good))

	noVersion := good
	noVersion.Version = ""
	assert.ErrorIs(t, ValidateSnapshot(noVersion), ErrShapeInvalid)

	noTime := good
	noTime.LastModified = 0
	assert.ErrorIs(t, ValidateSnapshot(noTime), ErrShapeInvalid)

	// Nil collections marshal to null and are rejected.
	raw := model.Snapshot{Version: model.SchemaVersion, LastModified: 1}
	assert.ErrorIs(t, ValidateSnapshot(raw), ErrShapeInvalid)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want Variant
	}{
		{"envelope", `{"data":{"clients":[]},"checksum":"abc","exportedBy":"x"}`, VariantEnvelope},
		{"bare", validSnapshot, VariantBare},
		{"legacy", `{"clients":[{"id":"c1"}],"projects":[]}`, VariantLegacy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Classify([]byte(tt.doc))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want.String(), got.String())
		})
	}
}

func TestClassify_Unrecognized(t *testing.T) {
	for _, doc := range []string{`{}`, `{"clients":[]}`, `{"data":[],"checksum":"x"}`, `"text"`, `not json`} {
		_, err := Classify([]byte(doc))
		assert.ErrorIs(t, err, ErrUnrecognized, doc)
	}
}

func TestValidateReferences_Clean(t *testing.T) {
	s := model.Snapshot{WorkingSet: model.WorkingSet{
		Clients:     []model.Client{{ID: "c1"}},
		Projects:    []model.Project{{ID: "p1", ClientID: "c1"}},
		TimeEntries: []model.TimeEntry{{ID: "t1", ProjectID: "p1"}},
		Invoices:    []model.Invoice{{ID: "i1", ClientID: "c1"}},
	}}
	assert.Empty(t, ValidateReferences(s))
}

func TestValidateReferences_Report(t *testing.T) {
	s := model.Snapshot{WorkingSet: model.WorkingSet{
		Clients: []model.Client{{ID: "c1", Name: "Acme"}},
		Projects: []model.Project{
			{ID: "p1", ClientID: "c1", Name: "Website", HourlyRate: decimal.NewFromInt(100)},
			{ID: "p2", ClientID: "c9", Name: "Orphan"},
		},
		TimeEntries: []model.TimeEntry{
			{ID: "t1", ProjectID: "p1", Date: "2025-01-02"},
			{ID: "t2", ProjectID: "p7", Date: "2025-01-03"},
		},
		Invoices: []model.Invoice{
			{ID: "i1", ClientID: "c2", InvoiceNumber: "INV-0001"},
		},
	}}

	before := s.Clone()
	warnings := ValidateReferences(s)
	require.Len(t, warnings, 3)
	assert.Equal(t, before.Projects, s.Projects, "input must not be mutated")

	g := goldie.New(t, goldie.WithFixtureDir("testdata/golden"), goldie.WithNameSuffix(".golden"))
	g.Assert(t, "reference_warnings", []byte(strings.Join(warnings, "\n")+"\n"))
}
