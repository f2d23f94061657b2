package pipeline

import (
	"testing"
	"time"

	"shopdesk/ledger-csv/internal/ledgererror"
	"shopdesk/ledger-csv/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParams_Parse(t *testing.T) {
	f, s, err := Params{
		Type:         "Taken",
		Counterparty: "  Ali ",
		Query:        "rice",
		BranchID:     "1",
		Status:       "unreturned",
		From:         "2024-03-01",
		To:           "2024-03-31",
		Sort:         "amount:desc",
	}.Parse()
	require.NoError(t, err)

	assert.Equal(t, models.TypeTaken, f.Type)
	assert.Equal(t, "Ali", f.Counterparty)
	assert.Equal(t, "rice", f.Query)
	require.NotNil(t, f.BranchID)
	assert.Equal(t, 1, *f.BranchID)
	assert.Equal(t, models.StatusUnsettled, f.Status)
	require.True(t, f.HasDateRange())
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), *f.From)
	assert.Equal(t, models.SortState{Key: models.SortByAmount, Direction: models.Desc}, s)
}

func TestParams_ParseEmpty(t *testing.T) {
	f, s, err := Params{}.Parse()
	require.NoError(t, err)
	assert.Equal(t, models.TypeAll, f.Type)
	assert.Equal(t, models.StatusAll, f.Status)
	assert.Nil(t, f.BranchID)
	assert.False(t, f.HasDateRange())
	assert.Equal(t, models.DefaultSort, s)
}

func TestParams_ParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		p     Params
		field string
	}{
		{"type", Params{Type: "both"}, "type"},
		{"status", Params{Status: "maybe"}, "status"},
		{"branch", Params{BranchID: "one"}, "branch"},
		{"from", Params{From: "yesterday"}, "from"},
		{"to", Params{To: "32/13/2024x"}, "to"},
		{"sort", Params{Sort: "price"}, "sort"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := tt.p.Parse()
			require.Error(t, err)
			var verr *ledgererror.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}
