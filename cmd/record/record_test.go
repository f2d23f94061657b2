package record

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

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

const debtsJSON = `{"success":true,"data":[
	{"id":1,"name":"Ali","amount":1000,"paid_amount":400,"branch_id":0,"isreturned":0,"day":1,"month":3,"year":2024},
	{"id":2,"name":"Vali","amount":500,"paid_amount":500,"branch_id":0,"isreturned":1,"day":2,"month":3,"year":2024}
]}`

type fakeBackend struct {
	mu     sync.Mutex
	writes []string
	last   map[string]interface{}
}

func (f *fakeBackend) handle(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if r.Method == http.MethodGet {
		_, _ = io.WriteString(w, debtsJSON)
		return
	}
	f.writes = append(f.writes, r.Method+" "+r.URL.Path)
	body, _ := io.ReadAll(r.Body)
	switch r.Method {
	case http.MethodDelete:
		_, _ = io.WriteString(w, `{"success":true,"message":"deleted"}`)
	default:
		f.last = map[string]interface{}{}
		_ = json.Unmarshal(body, &f.last)
		if r.Method == http.MethodPost {
			f.last["id"] = 9
		}
		out, _ := json.Marshal(map[string]interface{}{"success": true, "data": f.last})
		_, _ = w.Write(out)
	}
}

func setup(t *testing.T) (*fakeBackend, *bytes.Buffer) {
	t.Helper()
	fake := &fakeBackend{}
	server := httptest.NewServer(http.HandlerFunc(fake.handle))
	t.Cleanup(server.Close)

	tmp := t.TempDir()
	cfg := &config.Config{}
	cfg.Log.Level, cfg.Log.Format = "info", "text"
	cfg.CSV.Delimiter, cfg.CSV.DateFormat = ",", "2006-01-02"
	cfg.Backend.BaseURL = server.URL
	cfg.Backend.DebtsPath, cfg.Backend.ShipmentsPath = "/api/debts", "/api/wagons"
	cfg.Backend.TimeoutSeconds = 5
	cfg.Session.File = filepath.Join(tmp, "session.yaml")
	cfg.Finance.Driver, cfg.Finance.File = config.FinanceDriverFile, filepath.Join(tmp, "finance.yaml")
	cfg.Report.Locale = "en"
	c, err := container.NewContainerWithLogger(cfg, logging.NewMockLogger())
	require.NoError(t, err)
	root.SetContainer(c)

	savedAdd, savedAmount := addFlags, payAmount
	t.Cleanup(func() { addFlags, payAmount = savedAdd, savedAmount })

	var out bytes.Buffer
	Cmd.SetOut(&out)
	for _, sub := range Cmd.Commands() {
		sub.SetOut(&out)
	}
	return fake, &out
}

func TestBuildRecord(t *testing.T) {
	tests := []struct {
		name        string
		flags       AddFlags
		wantTotal   string
		wantPaid    string
		wantSettled bool
		wantKind    models.Kind
		wantErr     bool
	}{
		{
			name:      "totals from product lines",
			flags:     AddFlags{Counterparty: " Ali ", Products: "Rice*2*15000|Oil*1*30000*10000", Kind: "given"},
			wantTotal: "60000",
			wantPaid:  "10000",
			wantKind:  models.KindGiven,
		},
		{
			name:        "explicit amounts settle the record",
			flags:       AddFlags{Counterparty: "Vali", Products: "Cement*3*500", Total: "1 500", Paid: "1500", Kind: "taken"},
			wantTotal:   "1500",
			wantPaid:    "1500",
			wantSettled: true,
			wantKind:    models.KindTaken,
		},
		{
			name:      "zero total is never settled",
			flags:     AddFlags{Counterparty: "Sami", Products: "Sample*1*0"},
			wantTotal: "0",
			wantPaid:  "0",
			wantKind:  models.KindGiven,
		},
		{name: "missing counterparty", flags: AddFlags{Products: "Rice*1*10", Total: "10"}, wantErr: true},
		{name: "paid above total", flags: AddFlags{Counterparty: "Ali", Products: "Rice*1*10", Total: "10", Paid: "20"}, wantErr: true},
		{name: "bad total", flags: AddFlags{Counterparty: "Ali", Products: "Rice*1*10", Total: "abc"}, wantErr: true},
		{name: "bad date", flags: AddFlags{Counterparty: "Ali", Products: "Rice*1*10", Date: "someday"}, wantErr: true},
		{name: "finance source", flags: AddFlags{Counterparty: "Ali", Products: "Rice*1*10", Source: "finance"}, wantErr: true},
		{name: "no products", flags: AddFlags{Counterparty: "Ali", Total: "100"}, wantErr: true},
		{name: "undelimited product text", flags: AddFlags{Counterparty: "Ali", Products: "Rice", Total: "100"}, wantErr: true},
		{name: "zero quantity", flags: AddFlags{Counterparty: "Ali", Products: "Rice*0*100"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := BuildRecord(tt.flags)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, r.TotalAmount.Equal(decimal.RequireFromString(tt.wantTotal)), "total %s", r.TotalAmount)
			assert.True(t, r.PaidAmount.Equal(decimal.RequireFromString(tt.wantPaid)), "paid %s", r.PaidAmount)
			assert.Equal(t, tt.wantSettled, r.Settled)
			assert.Equal(t, tt.wantKind, r.Kind)
			assert.Equal(t, strings.TrimSpace(tt.flags.Counterparty), r.Counterparty)
		})
	}
}

func TestBuildRecord_Date(t *testing.T) {
	r, err := BuildRecord(AddFlags{Counterparty: "Ali", Products: "Rice*1*10", Date: "2024-03-07"})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC), r.Date.UTC())
}

func TestAdd_RejectsMissingItemsBeforeNetwork(t *testing.T) {
	fake, _ := setup(t)
	addFlags = AddFlags{Source: "debt", Counterparty: "Ali", Products: "Rice", Total: "100", Kind: "given"}

	err := addFunc(addCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--products")
	assert.Empty(t, fake.writes)
}

func TestAdd_PostsRecord(t *testing.T) {
	fake, out := setup(t)
	addFlags = AddFlags{Source: "debt", Counterparty: "Ali", Products: "Rice*2*500", Kind: "given"}

	require.NoError(t, addFunc(addCmd, nil))
	assert.Equal(t, []string{"POST /api/debts"}, fake.writes)
	assert.Equal(t, "Ali", fake.last["name"])
	assert.Contains(t, out.String(), "created debt 9 for Ali")
}

func TestPay_AppliesPaymentAndPuts(t *testing.T) {
	fake, out := setup(t)
	payAmount = "100"

	require.NoError(t, payFunc(payCmd, []string{"debt", "1"}))
	assert.Equal(t, []string{"PUT /api/debts/1"}, fake.writes)
	paid := decimal.RequireFromString(strings.Trim(jsonString(fake.last["paid_amount"]), `"`))
	assert.True(t, paid.Equal(decimal.NewFromInt(500)), "paid %s", paid)
	assert.Contains(t, out.String(), "debt 1: remaining 500")
}

func TestPay_Rejections(t *testing.T) {
	fake, _ := setup(t)

	payAmount = "700"
	err := payFunc(payCmd, []string{"debt", "1"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ledgererror.ErrOverpayment))

	payAmount = "10"
	err = payFunc(payCmd, []string{"debt", "2"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ledgererror.ErrOverpayment))

	err = payFunc(payCmd, []string{"debt", "404"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")

	payAmount = "ten"
	require.Error(t, payFunc(payCmd, []string{"debt", "1"}))
	assert.Empty(t, fake.writes)
}

func TestSettle_MarksReturned(t *testing.T) {
	fake, out := setup(t)

	require.NoError(t, settleFunc(settleCmd, []string{"debt", "1"}))
	assert.Equal(t, []string{"PUT /api/debts/1"}, fake.writes)
	assert.EqualValues(t, true, fake.last["isreturned"])
	assert.Contains(t, out.String(), "debt 1 settled")
}

func TestDelete(t *testing.T) {
	fake, out := setup(t)

	require.NoError(t, deleteFunc(deleteCmd, []string{"debt", "1"}))
	assert.Equal(t, []string{"DELETE /api/debts/1"}, fake.writes)
	assert.Contains(t, out.String(), "debt 1 deleted")
}

func jsonString(v interface{}) string {
	b, _ := json.Marshal(v)
	return string(b)
}
