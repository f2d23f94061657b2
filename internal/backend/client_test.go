package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"shopdesk/ledger-csv/internal/ledgererror"
	"shopdesk/ledger-csv/internal/logging"
	"shopdesk/ledger-csv/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPolicy struct {
	statuses []int
}

func (p *recordingPolicy) OnUnauthorized(status int) error {
	p.statuses = append(p.statuses, status)
	return nil
}

func newTestClient(t *testing.T, handler http.HandlerFunc, policy SessionPolicy) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(Options{
		BaseURL:       server.URL,
		ShopID:        "7",
		MaxRetries:    3,
		RetryInterval: time.Millisecond,
		Timeout:       2 * time.Second,
	}, StaticCredentials{Token: "raw-token", UUID: "device-1"}, policy, logging.NewMockLogger())
	require.NoError(t, err)
	return client
}

func TestNewClient_RequiresAbsoluteURL(t *testing.T) {
	_, err := NewClient(Options{}, nil, nil, logging.NewMockLogger())
	assert.True(t, ledgererror.IsValidation(err))

	_, err = NewClient(Options{BaseURL: "not a url"}, nil, nil, logging.NewMockLogger())
	assert.True(t, ledgererror.IsValidation(err))
}

func TestListDebts_EnvelopeAndAuthHeaders(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/debts", r.URL.Path)
		assert.Equal(t, "raw-token", r.Header.Get("authorization"))
		assert.Equal(t, "device-1", r.Header.Get("uuid"))
		_, _ = io.WriteString(w, `{"success":true,"data":[
			{"id":1,"name":" Ali ","amount":"1500","paid_amount":900,
			 "product_names":"Rice*2*500*0|Oil*1*500*0","branch_id":0,
			 "isreturned":0,"day":7,"month":3,"year":2024},
			{"id":"2","name":"Vali","amount":2000,"branch_id":"1","isreturned":true,
			 "day":31,"month":2,"year":2024}
		]}`)
	}, nil)

	records, err := client.ListDebts(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)

	ali := records[0]
	assert.Equal(t, "1", ali.ID)
	assert.Equal(t, models.SourceDebt, ali.Source)
	assert.Equal(t, "Ali", ali.Counterparty)
	assert.True(t, ali.TotalAmount.Equal(decimal.NewFromInt(1500)))
	assert.True(t, ali.PaidAmount.Equal(decimal.NewFromInt(900)))
	assert.Equal(t, models.KindGiven, ali.Kind)
	assert.False(t, ali.Settled)
	assert.Len(t, ali.LineItems, 2)
	assert.Equal(t, time.Date(2024, time.March, 7, 0, 0, 0, 0, time.UTC), ali.Date)

	vali := records[1]
	assert.Equal(t, models.KindTaken, vali.Kind)
	assert.True(t, vali.Settled)
	assert.True(t, vali.Date.IsZero(), "February 31st is not a date")
}

func TestListShipments_BareArray(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/wagons", r.URL.Path)
		_, _ = io.WriteString(w, `[{"id":9,"name":"Olim","indicator":1,
			"product_names":["v2:[{\"n\":\"Cement\",\"q\":\"3\",\"p\":\"100\",\"d\":\"50\"}]"],
			"created_at":"2024-01-05T08:00:00Z"}]`)
	}, nil)

	records, err := client.ListShipments(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)

	r := records[0]
	assert.Equal(t, models.SourceShipment, r.Source)
	assert.Equal(t, models.KindTaken, r.Kind)
	assert.True(t, r.TotalAmount.Equal(decimal.NewFromInt(300)))
	assert.True(t, r.PaidAmount.Equal(decimal.NewFromInt(50)))
	assert.Equal(t, 2024, r.Date.Year())
}

func TestListDebts_EmptyData(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"success":true,"data":null}`)
	}, nil)

	records, err := client.ListDebts(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestListDebts_SkipsNegativeTotals(t *testing.T) {
	logger := logging.NewMockLogger()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"success":true,"data":[
			{"id":1,"name":"Ali","amount":-300,"branch_id":0},
			{"id":2,"name":"Ali","amount":500,"branch_id":0}
		]}`)
	}))
	t.Cleanup(server.Close)
	client, err := NewClient(Options{BaseURL: server.URL, Timeout: time.Second}, StaticCredentials{}, nil, logger)
	require.NoError(t, err)

	records, err := client.ListDebts(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "2", records[0].ID)
	assert.True(t, logger.HasEntry("WARN", "Skipping record with negative total"))
}

func TestListDebts_RetriesTransientFailures(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = io.WriteString(w, `{"message":"warming up"}`)
			return
		}
		_, _ = io.WriteString(w, `{"data":[]}`)
	}, nil)

	_, err := client.ListDebts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestListDebts_GivesUpAfterMaxRetries(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}, nil)

	_, err := client.ListDebts(context.Background())
	require.Error(t, err)
	var apiErr *ledgererror.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Equal(t, int32(4), atomic.LoadInt32(&calls))
}

func TestListDebts_UnauthorizedInvokesPolicyWithoutRetry(t *testing.T) {
	var calls int32
	policy := &recordingPolicy{}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"success":false,"message":"token expired"}`)
	}, policy)

	_, err := client.ListDebts(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ledgererror.ErrUnauthorized))
	assert.Contains(t, err.Error(), "token expired")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, []int{http.StatusUnauthorized}, policy.statuses)
}

func TestListDebts_StaleResponseDiscarded(t *testing.T) {
	var client *Client
	client = newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		// A newer request for the same resource starts while this one is in flight.
		client.Tracker().Begin(ResourceDebts)
		_, _ = io.WriteString(w, `{"data":[{"id":1,"name":"Ali","amount":10}]}`)
	}, nil)

	_, err := client.ListDebts(context.Background())
	assert.True(t, errors.Is(err, ledgererror.ErrStaleResponse))
}

func TestListDebts_CancelledContext(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[]`)
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.ListDebts(ctx)
	assert.Error(t, err)
}

func TestCreateRecord_SendsOnceWithIdempotencyKey(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NotEmpty(t, r.Header.Get("Idempotency-Key"))
		w.WriteHeader(http.StatusInternalServerError)
	}, nil)

	_, err := client.CreateRecord(context.Background(), models.LedgerRecord{
		Source:       models.SourceDebt,
		Counterparty: "Ali",
		LineItems: []models.LineItem{
			{Name: "Rice", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(100), PaidAmount: decimal.Zero},
		},
		TotalAmount: decimal.NewFromInt(100),
		PaidAmount:  decimal.Zero,
		Kind:        models.KindGiven,
	})
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "writes are never retried")
}

func TestCreateRecord_BodyAndEcho(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Ali", body["name"])
		assert.Equal(t, float64(1500), body["amount"])
		assert.Equal(t, "7", body["shop_id"])
		assert.Equal(t, float64(1), body["branch_id"])
		assert.Equal(t, float64(2024), body["year"])
		assert.Contains(t, body["product_names"], "v2:")
		_, _ = io.WriteString(w, `{"success":true,"data":{"id":55,"name":"Ali","amount":1500,
			"branch_id":1,"product_names":"Rice*3*500*0","year":2024,"month":1,"day":2}}`)
	}, nil)

	saved, err := client.CreateRecord(context.Background(), models.LedgerRecord{
		ID:           "ignored",
		Source:       models.SourceDebt,
		Counterparty: " Ali ",
		LineItems: []models.LineItem{
			{Name: "Rice", Quantity: decimal.NewFromInt(3), UnitPrice: decimal.NewFromInt(500), PaidAmount: decimal.Zero},
		},
		TotalAmount: decimal.NewFromInt(1500),
		PaidAmount:  decimal.Zero,
		Kind:        models.KindTaken,
		Date:        time.Date(2024, time.January, 2, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, "55", saved.ID)
	assert.Equal(t, models.KindTaken, saved.Kind)
	require.Len(t, saved.LineItems, 1)
}

func TestCreateRecord_ValidationBeforeNetwork(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}, nil)

	_, err := client.CreateRecord(context.Background(), models.LedgerRecord{
		Counterparty: "Ali",
		TotalAmount:  decimal.NewFromInt(100),
		PaidAmount:   decimal.NewFromInt(150),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ledgererror.ErrOverpayment))
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestCreateRecord_RequiresLineItems(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}, nil)

	tests := []struct {
		name   string
		record models.LedgerRecord
	}{
		{name: "no items", record: models.LedgerRecord{Counterparty: "Ali", TotalAmount: decimal.NewFromInt(100)}},
		{name: "legacy text only", record: models.LedgerRecord{Counterparty: "Ali", Legacy: "Rice", TotalAmount: decimal.NewFromInt(100)}},
		{name: "item without quantity", record: models.LedgerRecord{
			Counterparty: "Ali",
			TotalAmount:  decimal.NewFromInt(100),
			LineItems:    []models.LineItem{{Name: "Rice", UnitPrice: decimal.NewFromInt(100)}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.CreateRecord(context.Background(), tt.record)
			require.Error(t, err)
			assert.True(t, ledgererror.IsValidation(err))
		})
	}
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestUpdateRecord_AllowsRecordsWithoutItems(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		_, _ = io.WriteString(w, `{"success":true,"data":{"id":3,"name":"Ali","amount":100,"paid_amount":100,"isreturned":1}}`)
	}, nil)

	saved, err := client.UpdateRecord(context.Background(), models.LedgerRecord{
		ID:           "3",
		Source:       models.SourceDebt,
		Counterparty: "Ali",
		Legacy:       "Rice",
		TotalAmount:  decimal.NewFromInt(100),
		PaidAmount:   decimal.NewFromInt(100),
		Settled:      true,
	})
	require.NoError(t, err)
	assert.True(t, saved.Settled)
}

func TestNewClient_RejectsUnknownItemFormat(t *testing.T) {
	_, err := NewClient(Options{BaseURL: "http://localhost", ItemFormat: "csv"}, nil, nil, logging.NewMockLogger())
	assert.True(t, ledgererror.IsValidation(err))
}

func TestUpdateRecord_RequiresID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {}, nil)
	_, err := client.UpdateRecord(context.Background(), models.LedgerRecord{Counterparty: "Ali"})
	assert.True(t, ledgererror.IsValidation(err))
}

func TestUpdateRecord_ShipmentPath(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/wagons/9", r.URL.Path)
		_, _ = io.WriteString(w, `{"id":9,"name":"Olim","isreturned":true}`)
	}, nil)

	saved, err := client.UpdateRecord(context.Background(), models.LedgerRecord{
		ID: "9", Source: models.SourceShipment, Counterparty: "Olim",
		TotalAmount: decimal.NewFromInt(10), PaidAmount: decimal.NewFromInt(10), Settled: true,
	})
	require.NoError(t, err)
	assert.True(t, saved.Settled)
}

func TestDeleteRecord(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodDelete, r.Method)
			assert.Equal(t, "/api/debts/5", r.URL.Path)
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "5", body["id"])
			_, _ = io.WriteString(w, `{"success":true}`)
		}, nil)
		assert.NoError(t, client.DeleteRecord(context.Background(), models.SourceDebt, "5"))
	})

	t.Run("backend refuses", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"success":false,"message":"record is locked"}`)
		}, nil)
		err := client.DeleteRecord(context.Background(), models.SourceDebt, "5")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "record is locked")
	})

	t.Run("not found", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}, nil)
		err := client.DeleteRecord(context.Background(), models.SourceShipment, "5")
		assert.True(t, errors.Is(err, ledgererror.ErrNotFound))
	})

	t.Run("unknown source", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {}, nil)
		err := client.DeleteRecord(context.Background(), models.SourceFinance, "5")
		assert.True(t, ledgererror.IsValidation(err))
	})
}
