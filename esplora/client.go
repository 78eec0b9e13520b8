// Copyright (c) 2024-2026 The vestscan developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package esplora

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/vestscan/vestscan/faults"
)

const (
	// MainNetBaseURL is the default esplora endpoint for mainnet.
	MainNetBaseURL = "https://blockstream.info/api"

	// TestNet3BaseURL is the default esplora endpoint for testnet3.
	TestNet3BaseURL = "https://blockstream.info/testnet/api"

	// defaultRequestTimeout bounds a single address-history request.
	// The per-request context can cancel sooner but never later.
	defaultRequestTimeout = 30 * time.Second

	// maxResponseBytes bounds how much of a response body is read.
	maxResponseBytes = 32 << 20 // 32 MiB
)

// Client fetches address history from an esplora-compatible indexer
// and normalizes it into minimal Transaction records.  It is stateless
// and safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	params     *chaincfg.Params
}

// New creates a Client for the given indexer base URL and network.  A
// nil params defaults to mainnet, and an empty baseURL defaults to the
// public endpoint for that network.
func New(baseURL string, params *chaincfg.Params) *Client {
	if params == nil {
		params = &chaincfg.MainNetParams
	}
	if baseURL == "" {
		baseURL = MainNetBaseURL
		if params.Net != chaincfg.MainNetParams.Net {
			baseURL = TestNet3BaseURL
		}
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultRequestTimeout},
		params:     params,
	}
}

// ValidateAddress checks that addr parses as a Bitcoin address
// (P2PKH, P2SH, or bech32) for the client's network.  The returned
// error, if any, is a non-retryable validation fault.
func (c *Client) ValidateAddress(addr string) error {
	decoded, err := btcutil.DecodeAddress(addr, c.params)
	if err != nil {
		return faults.Validation(
			fmt.Sprintf("%q is not a valid Bitcoin address", addr),
			"Double-check the address for typos. Mainnet "+
				"addresses start with 1, 3, or bc1.",
		)
	}
	if !decoded.IsForNet(c.params) {
		return faults.Validation(
			fmt.Sprintf("address %q belongs to a different "+
				"network than %s", addr, c.params.Name),
			"Use an address for the configured network.",
		)
	}
	return nil
}

// esploraVout mirrors the indexer's output schema.  Only the fields the
// pipeline needs are decoded.
type esploraVout struct {
	ScriptPubKeyAddress string `json:"scriptpubkey_address"`
	Value               int64  `json:"value"`
}

// esploraVin mirrors the indexer's input schema.  Prevout is absent on
// coinbase inputs.
type esploraVin struct {
	Prevout *esploraVout `json:"prevout"`
}

// esploraStatus mirrors the indexer's confirmation status schema.
type esploraStatus struct {
	Confirmed   bool  `json:"confirmed"`
	BlockHeight int32 `json:"block_height"`
	BlockTime   int64 `json:"block_time"`
}

// esploraTx mirrors one element of the indexer's address-transactions
// response.  Pointer fields distinguish absent from zero so responses
// missing required fields can be rejected.
type esploraTx struct {
	TxID   string         `json:"txid"`
	Vin    []esploraVin   `json:"vin"`
	Vout   []esploraVout  `json:"vout"`
	Status *esploraStatus `json:"status"`
	Fee    *int64         `json:"fee"`
}

// FetchTransactions retrieves the full transaction history of addr
// from the indexer.  The address is validated before any network I/O.
// Cancelling ctx aborts a request in flight.  All failures surface as
// typed faults: validation, network (carrying the HTTP status), or
// data processing for responses that do not match the expected schema.
func (c *Client) FetchTransactions(ctx context.Context,
	addr string) ([]Transaction, error) {

	if err := c.ValidateAddress(addr); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/address/%s/txs", c.baseURL, addr)
	log.Debugf("Fetching transactions for %s from %s", addr, url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, faults.DataProcessing("building the indexer "+
			"request failed", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Distinguish caller cancellation from transport failure.
		return nil, faults.Classify(err, "transaction fetch")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, faults.Network(resp.StatusCode,
			fmt.Sprintf("the indexer responded with HTTP %d",
				resp.StatusCode), nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, faults.Classify(err, "transaction fetch")
	}

	var rawTxs []esploraTx
	if err := json.Unmarshal(body, &rawTxs); err != nil {
		return nil, faults.DataProcessing("the indexer response is "+
			"not a transaction list", err)
	}

	txs := make([]Transaction, 0, len(rawTxs))
	for i, raw := range rawTxs {
		tx, err := normalizeTx(&raw)
		if err != nil {
			return nil, faults.DataProcessing(fmt.Sprintf(
				"transaction %d in the indexer response is "+
					"malformed", i), err)
		}
		txs = append(txs, *tx)
	}

	log.Infof("Fetched %d transactions for %s", len(txs), addr)

	return txs, nil
}

// normalizeTx reduces one indexer transaction to the minimal record,
// rejecting it when a required field is missing.
func normalizeTx(raw *esploraTx) (*Transaction, error) {
	if len(raw.TxID) != chainhash.MaxHashStringSize {
		return nil, fmt.Errorf("txid %q is not %d hex characters",
			raw.TxID, chainhash.MaxHashStringSize)
	}
	if _, err := chainhash.NewHashFromStr(raw.TxID); err != nil {
		return nil, fmt.Errorf("invalid txid %q: %w", raw.TxID, err)
	}
	if raw.Status == nil {
		return nil, fmt.Errorf("txid %s has no status", raw.TxID)
	}
	if raw.Fee == nil {
		return nil, fmt.Errorf("txid %s has no fee", raw.TxID)
	}
	if raw.Vin == nil || raw.Vout == nil {
		return nil, fmt.Errorf("txid %s has no inputs or outputs",
			raw.TxID)
	}

	tx := &Transaction{
		TxID:        raw.TxID,
		Confirmed:   raw.Status.Confirmed,
		BlockHeight: raw.Status.BlockHeight,
		Fee:         btcutil.Amount(*raw.Fee),
		Inputs:      make([]TxInput, 0, len(raw.Vin)),
		Outputs:     make([]TxOutput, 0, len(raw.Vout)),
	}
	if raw.Status.BlockTime > 0 {
		tx.BlockTime = time.Unix(raw.Status.BlockTime, 0).UTC()
	}

	for _, vin := range raw.Vin {
		// Coinbase inputs carry no prevout.
		if vin.Prevout == nil {
			continue
		}
		tx.Inputs = append(tx.Inputs, TxInput{
			FromAddress: vin.Prevout.ScriptPubKeyAddress,
			Value:       btcutil.Amount(vin.Prevout.Value),
		})
	}
	for _, vout := range raw.Vout {
		tx.Outputs = append(tx.Outputs, TxOutput{
			ToAddress: vout.ScriptPubKeyAddress,
			Value:     btcutil.Amount(vout.Value),
		})
	}

	return tx, nil
}
