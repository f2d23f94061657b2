package finance

import (
	"bytes"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"shopdesk/ledger-csv/cmd/root"
	"shopdesk/ledger-csv/internal/config"
	"shopdesk/ledger-csv/internal/container"
	"shopdesk/ledger-csv/internal/ledgererror"
	"shopdesk/ledger-csv/internal/logging"
	"shopdesk/ledger-csv/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) *bytes.Buffer {
	t.Helper()
	tmp := t.TempDir()
	cfg := &config.Config{}
	cfg.Log.Level, cfg.Log.Format = "info", "text"
	cfg.CSV.Delimiter, cfg.CSV.DateFormat = ",", "2006-01-02"
	cfg.Session.File = filepath.Join(tmp, "session.yaml")
	cfg.Finance.Driver, cfg.Finance.File = config.FinanceDriverFile, filepath.Join(tmp, "finance.yaml")
	cfg.Report.Locale = "en"
	c, err := container.NewContainerWithLogger(cfg, logging.NewMockLogger())
	require.NoError(t, err)
	root.SetContainer(c)
	t.Cleanup(func() { _ = c.Close() })

	saved := []string{format, person, total, paid, indicator, amount, date, note, wagon, products}
	t.Cleanup(func() {
		format, person, total, paid, indicator = saved[0], saved[1], saved[2], saved[3], saved[4]
		amount, date, note, wagon, products = saved[5], saved[6], saved[7], saved[8], saved[9]
	})
	format, person, total, paid, indicator = "table", "", "", "", ""
	amount, date, note, wagon, products = "", "", "", "", ""

	var out bytes.Buffer
	for _, c := range append(Cmd.Commands(), Cmd) {
		c.SetOut(&out)
	}
	return &out
}

func listJSON(t *testing.T, out *bytes.Buffer) []models.PersonFinance {
	t.Helper()
	out.Reset()
	format = "json"
	require.NoError(t, listFunc(listCmd, nil))
	var people []models.PersonFinance
	require.NoError(t, json.Unmarshal(out.Bytes(), &people))
	return people
}

func TestFinance_WagonsAndPayments(t *testing.T) {
	out := setup(t)

	person, wagon, amount, date = "Ali", "W-1", "1 000", "2024-03-01"
	require.NoError(t, wagonFunc(wagonCmd, nil))
	person, wagon, amount, date = " ali ", "W-2", "500", "2024-03-04"
	require.NoError(t, wagonFunc(wagonCmd, nil))
	assert.Contains(t, out.String(), "Ali: total 1 500, paid 0, remaining 1 500")

	out.Reset()
	person, amount, date, note = "ALI", "600", "2024-03-10", "cash"
	require.NoError(t, payFunc(payCmd, nil))
	assert.Contains(t, out.String(), "remaining 900")

	people := listJSON(t, out)
	require.Len(t, people, 1)
	p := people[0]
	assert.Equal(t, "Ali", p.PersonName)
	assert.Len(t, p.Wagons, 2)
	require.Len(t, p.Payments, 1)
	assert.Equal(t, "cash", p.Payments[0].Note)
	assert.True(t, p.RemainingAmount.Equal(decimal.NewFromInt(900)))
}

func TestFinance_PaymentAboveRemaining(t *testing.T) {
	setup(t)

	person, total = "Vali", "100"
	require.NoError(t, saveFunc(saveCmd, nil))

	amount = "150"
	err := payFunc(payCmd, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ledgererror.ErrOverpayment))

	person, amount = "Nobody", "10"
	err = payFunc(payCmd, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ledgererror.ErrNotFound))
}

func TestFinance_SaveMergesAndTable(t *testing.T) {
	out := setup(t)

	person, total, paid, indicator = "Sami", "2000", "500", "taken"
	require.NoError(t, saveFunc(saveCmd, nil))
	person, total, paid, indicator = "sami", "", "700", ""
	require.NoError(t, saveFunc(saveCmd, nil))
	assert.Contains(t, out.String(), "Sami: total 2 000, paid 700, remaining 1 300")

	out.Reset()
	format = "table"
	require.NoError(t, listFunc(listCmd, nil))
	assert.Contains(t, out.String(), "Sami")
	assert.Contains(t, out.String(), "taken")
	assert.Contains(t, out.String(), "Remaining: 1 300")
}

func TestFinance_Delete(t *testing.T) {
	out := setup(t)

	person, total = "Ali", "10"
	require.NoError(t, saveFunc(saveCmd, nil))
	require.NoError(t, deleteFunc(deleteCmd, nil))
	assert.Contains(t, out.String(), "deleted Ali")
	assert.Empty(t, listJSON(t, out))

	err := deleteFunc(deleteCmd, nil)
	assert.True(t, errors.Is(err, ledgererror.ErrNotFound))
}

func TestFinance_InvalidInput(t *testing.T) {
	setup(t)

	person, wagon, amount = "Ali", "W-1", "lots"
	require.Error(t, wagonFunc(wagonCmd, nil))

	amount, date = "10", "not a date"
	require.Error(t, wagonFunc(wagonCmd, nil))

	format = "xml"
	require.Error(t, listFunc(listCmd, nil))
}
