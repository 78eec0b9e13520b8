// Copyright (c) 2024-2026 The vestscan developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package esplora

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/stretchr/testify/require"

	"github.com/vestscan/vestscan/faults"
)

var testTxid = strings.Repeat("ab", 32)

// validResponse is a two-transaction esplora address history: one
// confirmed payment to the tracked address and one unconfirmed.
var validResponse = fmt.Sprintf(`[
  {
    "txid": "%s",
    "vin": [
      {"prevout": {"scriptpubkey_address": "%s", "value": 150000000}}
    ],
    "vout": [
      {"scriptpubkey_address": "%s", "value": 100000000},
      {"scriptpubkey_address": "%s", "value": 49999790}
    ],
    "status": {"confirmed": true, "block_height": 770000, "block_time": 1672531200},
    "fee": 210
  },
  {
    "txid": "%s",
    "vin": [{}],
    "vout": [
      {"scriptpubkey_address": "%s", "value": 5000000}
    ],
    "status": {"confirmed": false},
    "fee": 141
  }
]`, testTxid, otherAddr, trackedAddr, otherAddr,
	strings.Repeat("cd", 32), trackedAddr)

// newTestClient spins up a server handing out body with the given
// status and returns a mainnet client pointed at it.
func newTestClient(t *testing.T, status int, body string) (*Client, *int) {
	t.Helper()

	hits := 0
	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			hits++
			w.WriteHeader(status)
			fmt.Fprint(w, body)
		}))
	t.Cleanup(server.Close)

	return New(server.URL, &chaincfg.MainNetParams), &hits
}

// TestFetchTransactions checks that a valid indexer response is
// normalized into minimal transaction records.
func TestFetchTransactions(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, http.StatusOK, validResponse)
	txs, err := client.FetchTransactions(context.Background(),
		trackedAddr)
	require.NoError(t, err)
	require.Len(t, txs, 2)

	tx := txs[0]
	require.Equal(t, testTxid, tx.TxID)
	require.True(t, tx.Confirmed)
	require.Equal(t, int32(770000), tx.BlockHeight)
	require.Equal(t,
		time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), tx.BlockTime)
	require.Len(t, tx.Inputs, 1)
	require.Equal(t, otherAddr, tx.Inputs[0].FromAddress)
	require.Len(t, tx.Outputs, 2)
	require.EqualValues(t, 100000000, tx.Outputs[0].Value)
	require.EqualValues(t, 210, tx.Fee)
	require.EqualValues(t, 100000000, ReceivedAmount(&tx, trackedAddr))

	// The unconfirmed tx has no block time and its coinbase-style
	// empty input is dropped.
	require.False(t, txs[1].Confirmed)
	require.True(t, txs[1].BlockTime.IsZero())
	require.Empty(t, txs[1].Inputs)
}

// TestFetchRejectsInvalidAddress checks that a malformed address fails
// validation before any network I/O happens.
func TestFetchRejectsInvalidAddress(t *testing.T) {
	t.Parallel()

	client, hits := newTestClient(t, http.StatusOK, validResponse)

	tests := []string{
		"",
		"notanaddress",
		"1A1zP1eP5QGefi2DMPTfTL5SLmv7Divfdj", // bad checksum
		"bc1qqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqq",
	}
	for _, addr := range tests {
		_, err := client.FetchTransactions(context.Background(), addr)
		require.True(t, faults.IsCode(err, faults.ErrValidation),
			"address %q", addr)
	}
	require.Zero(t, *hits)
}

// TestValidateAddressFormats checks the supported address families.
func TestValidateAddressFormats(t *testing.T) {
	t.Parallel()

	client := New("http://localhost", &chaincfg.MainNetParams)

	valid := []string{
		"1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa",         // P2PKH
		"3J98t1WpEZ73CNmQviecrnyiWrnqRhWNLy",         // P2SH
		"bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4", // bech32
	}
	for _, addr := range valid {
		require.NoError(t, client.ValidateAddress(addr), addr)
	}

	// A testnet address is rejected by a mainnet client.
	err := client.ValidateAddress("mipcBbFg9gMiCh81Kj8tqqdgoZub1ZJRfn")
	require.True(t, faults.IsCode(err, faults.ErrValidation))
}

// TestFetchHTTPErrors checks the retryability classification of
// upstream HTTP statuses.
func TestFetchHTTPErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status    int
		retryable bool
	}{
		{http.StatusServiceUnavailable, true},
		{http.StatusTooManyRequests, true},
		{http.StatusGatewayTimeout, true},
		{http.StatusNotFound, false},
		{http.StatusBadRequest, false},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(fmt.Sprintf("http %d", tc.status), func(t *testing.T) {
			t.Parallel()

			client, _ := newTestClient(t, tc.status, "oops")
			_, err := client.FetchTransactions(
				context.Background(), trackedAddr)

			require.True(t, faults.IsCode(err, faults.ErrNetwork))

			var ferr *faults.Error
			require.ErrorAs(t, err, &ferr)
			require.Equal(t, tc.status, ferr.Status)
			require.Equal(t, tc.retryable, ferr.Retryable())
		})
	}
}

// TestFetchMalformedResponses checks that schema violations surface as
// non-retryable data faults.
func TestFetchMalformedResponses(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: "{not json"},
		{name: "not an array", body: `{"txid": "abc"}`},
		{
			name: "short txid",
			body: `[{"txid": "abc", "vin": [], "vout": [],
				"status": {"confirmed": true}, "fee": 1}]`,
		},
		{
			name: "missing status",
			body: fmt.Sprintf(`[{"txid": "%s", "vin": [],
				"vout": [], "fee": 1}]`, testTxid),
		},
		{
			name: "missing fee",
			body: fmt.Sprintf(`[{"txid": "%s", "vin": [],
				"vout": [], "status": {"confirmed": true}}]`,
				testTxid),
		},
		{
			name: "missing vin and vout",
			body: fmt.Sprintf(`[{"txid": "%s",
				"status": {"confirmed": true}, "fee": 1}]`,
				testTxid),
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			client, _ := newTestClient(t, http.StatusOK, tc.body)
			_, err := client.FetchTransactions(
				context.Background(), trackedAddr)

			require.True(t,
				faults.IsCode(err, faults.ErrDataProcessing),
				"got %v", err)

			var ferr *faults.Error
			require.ErrorAs(t, err, &ferr)
			require.False(t, ferr.Retryable())
		})
	}
}

// TestFetchCancellation checks that cancelling the context surfaces a
// cancellation fault rather than a network error.
func TestFetchCancellation(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
		}))
	t.Cleanup(server.Close)

	client := New(server.URL, &chaincfg.MainNetParams)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err := client.FetchTransactions(ctx, trackedAddr)
	require.True(t, faults.IsCode(err, faults.ErrCancelled), "got %v",
		err)
}

// TestDefaultEndpoints checks the zero-config endpoint selection.
func TestDefaultEndpoints(t *testing.T) {
	t.Parallel()

	require.Equal(t, MainNetBaseURL, New("", nil).baseURL)
	require.Equal(t, TestNet3BaseURL,
		New("", &chaincfg.TestNet3Params).baseURL)
	require.Equal(t, "http://example.test",
		New("http://example.test/", nil).baseURL)
}
