package statement

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"shopdesk/ledger-csv/cmd/root"
	"shopdesk/ledger-csv/internal/config"
	"shopdesk/ledger-csv/internal/container"
	"shopdesk/ledger-csv/internal/logging"
	"shopdesk/ledger-csv/internal/pipeline"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const recordsCSV = `id,source,counterparty,products,total,paid,kind,settled,date
1,debt,Ali,Rice*2*500*0,,400,given,false,2024-03-01
2,debt,ali ,,500,0,given,false,2024-03-05
3,shipment,Vali,,2000,2000,taken,true,2024-03-03
1,shipment,Vali,Cement*1*700,,0,taken,false,2024-03-04
`

func setup(t *testing.T) *bytes.Buffer {
	t.Helper()
	tmp := t.TempDir()
	path := filepath.Join(tmp, "records.csv")
	require.NoError(t, os.WriteFile(path, []byte(recordsCSV), 0600))

	cfg := &config.Config{}
	cfg.Log.Level, cfg.Log.Format = "info", "text"
	cfg.CSV.Delimiter, cfg.CSV.QuoteAll, cfg.CSV.DateFormat = ",", true, "2006-01-02"
	cfg.Session.File = filepath.Join(tmp, "session.yaml")
	cfg.Finance.Driver, cfg.Finance.File = config.FinanceDriverFile, filepath.Join(tmp, "finance.yaml")
	cfg.Report.Locale = "en"
	c, err := container.NewContainerWithLogger(cfg, logging.NewMockLogger())
	require.NoError(t, err)
	root.SetContainer(c)

	savedFlags, savedParams, savedID, savedSource, savedTitle, savedNow := root.SharedFlags, params, recordID, source, title, now
	root.SharedFlags = root.CommonFlags{FromFile: path}
	t.Cleanup(func() {
		root.SharedFlags, params, recordID, source, title, now = savedFlags, savedParams, savedID, savedSource, savedTitle, savedNow
	})
	source = ""

	now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

	var out bytes.Buffer
	Cmd.SetOut(&out)
	return &out
}

func TestStatement_Counterparty(t *testing.T) {
	out := setup(t)
	params, recordID, title = pipeline.Params{}, "", ""

	require.NoError(t, statementFunc(Cmd, []string{"  ALI"}))
	text := out.String()
	assert.True(t, strings.HasPrefix(text, "Statement\n=========\n"))
	assert.Contains(t, text, "Counterparty: Ali")
	assert.Contains(t, text, "Generated:    2024-05-01")
	assert.Contains(t, text, "Total:     1 500")
	assert.Contains(t, text, "Remaining: 1 100")
	assert.Less(t, strings.Index(text, "2024-03-01"), strings.Index(text, "2024-03-05"), "oldest first")
}

func TestStatement_SingleRecord(t *testing.T) {
	out := setup(t)
	params, recordID, source, title = pipeline.Params{}, "1", "debt", ""

	require.NoError(t, statementFunc(Cmd, nil))
	text := out.String()
	assert.True(t, strings.HasPrefix(text, "Record 1\n"))
	assert.Contains(t, text, "Rice")
	assert.Contains(t, text, "Remaining: 600")
}

func TestStatement_Errors(t *testing.T) {
	setup(t)
	params, recordID, title = pipeline.Params{}, "", ""
	require.Error(t, statementFunc(Cmd, nil))
	require.Error(t, statementFunc(Cmd, []string{"Nobody"}))

	recordID = "99"
	require.Error(t, statementFunc(Cmd, nil))
}

func TestStatement_SourceDisambiguatesID(t *testing.T) {
	tests := []struct {
		name    string
		source  string
		want    string
		wantErr string
	}{
		{name: "ambiguous without source", wantErr: "ambiguous"},
		{name: "debt", source: "debt", want: "Counterparty: Ali"},
		{name: "shipment alias", source: "wagon", want: "Counterparty: Vali"},
		{name: "no finance record", source: "finance", wantErr: "not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := setup(t)
			params, recordID, source, title = pipeline.Params{}, "1", tt.source, ""

			err := statementFunc(Cmd, nil)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Contains(t, out.String(), tt.want)
		})
	}
}
