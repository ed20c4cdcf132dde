package sap

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubPayload() InvoicePayload {
	return InvoicePayload{
		CardCode:  "V10001",
		DocDate:   "2026-08-15",
		NumAtCard: "V10001-20260815-abc123",
		BranchID:  3,
		Lines: []InvoiceLine{
			NewInvoiceLine(42, 0, decimal.NewFromInt(10), decimal.NewFromFloat(15.05)),
		},
	}
}

func TestPostInvoiceSuccess(t *testing.T) {
	stub := newERPStub()
	stub.mux.HandleFunc("POST /PurchaseInvoices", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "V10001", body["CardCode"])
		lines := body["DocumentLines"].([]any)
		require.Len(t, lines, 1)
		line := lines[0].(map[string]any)
		assert.EqualValues(t, 20, line["BaseType"])
		assert.EqualValues(t, 42, line["BaseEntry"])

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{
			"DocEntry": 9001, "DocNum": 5001,
			"CardCode": "V10001", "DocDate": "2026-08-15",
			"NumAtCard": body["NumAtCard"],
		})
	})

	client, _ := newTestClient(t, stub, Config{SessionTTL: time.Hour})

	posted, err := client.PostInvoice(context.Background(), stubPayload())
	require.NoError(t, err)
	assert.Equal(t, 9001, posted.DocEntry)
	assert.Equal(t, 5001, posted.DocNum)
}

func TestPostInvoiceTerminalRejectionCarriesERPMessage(t *testing.T) {
	const erpMessage = "10000177 - Delivered quantity is greater than open quantity"

	stub := newERPStub()
	var requests atomic.Int64
	stub.mux.HandleFunc("POST /PurchaseInvoices", func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, `{"error":{"code":-5002,"message":{"lang":"en-us","value":%q}}}`, erpMessage)
	})

	client, _ := newTestClient(t, stub, Config{SessionTTL: time.Hour, PostRetries: 3})

	_, err := client.PostInvoice(context.Background(), stubPayload())
	require.Error(t, err)
	var postErr *PostingError
	require.ErrorAs(t, err, &postErr)
	assert.False(t, postErr.Retryable)
	assert.Equal(t, erpMessage, postErr.Message, "the ERP's own message must surface verbatim")
	assert.EqualValues(t, 1, requests.Load(), "a terminal rejection must not be retried")
}

func TestPostInvoiceRetriesTransientThenSucceeds(t *testing.T) {
	stub := newERPStub()
	var requests atomic.Int64
	stub.mux.HandleFunc("POST /PurchaseInvoices", func(w http.ResponseWriter, r *http.Request) {
		if requests.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{"DocEntry": 9002, "DocNum": 5002})
	})

	client, _ := newTestClient(t, stub, Config{
		SessionTTL:     time.Hour,
		PostRetries:    3,
		PostRetryDelay: time.Millisecond,
	})

	posted, err := client.PostInvoice(context.Background(), stubPayload())
	require.NoError(t, err)
	assert.Equal(t, 9002, posted.DocEntry)
	assert.EqualValues(t, 3, requests.Load())
}

func TestPostInvoiceExhaustsRetryBudget(t *testing.T) {
	stub := newERPStub()
	var requests atomic.Int64
	stub.mux.HandleFunc("POST /PurchaseInvoices", func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})

	client, _ := newTestClient(t, stub, Config{
		SessionTTL:     time.Hour,
		PostRetries:    3,
		PostRetryDelay: time.Millisecond,
	})

	_, err := client.PostInvoice(context.Background(), stubPayload())
	require.Error(t, err)
	var postErr *PostingError
	require.ErrorAs(t, err, &postErr)
	assert.True(t, postErr.Retryable)
	assert.EqualValues(t, 3, requests.Load())
}

func TestGetInvoiceByDocNum(t *testing.T) {
	stub := newERPStub()
	stub.mux.HandleFunc("GET /PurchaseInvoices", func(w http.ResponseWriter, r *http.Request) {
		require.Contains(t, r.URL.Query().Get("$filter"), "DocNum eq 5001")
		require.Contains(t, r.URL.Query().Get("$filter"), "CardCode eq 'V10001'")
		json.NewEncoder(w).Encode(map[string]any{"value": []map[string]any{
			{"DocEntry": 9001, "DocNum": 5001, "CardCode": "V10001"},
		}})
	})

	client, _ := newTestClient(t, stub, Config{SessionTTL: time.Hour})

	inv, err := client.GetInvoiceByDocNum(context.Background(), 5001, "V10001")
	require.NoError(t, err)
	require.NotNil(t, inv)
	assert.Equal(t, 9001, inv.DocEntry)
}

func TestGetInvoiceByDocNumNotFound(t *testing.T) {
	stub := newERPStub()
	stub.mux.HandleFunc("GET /PurchaseInvoices", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"value": []any{}})
	})

	client, _ := newTestClient(t, stub, Config{SessionTTL: time.Hour})

	inv, err := client.GetInvoiceByDocNum(context.Background(), 999, "")
	require.NoError(t, err)
	assert.Nil(t, inv)
}
