// Copyright (c) 2024-2026 The vestscan developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package esplora

import (
	"time"

	"github.com/btcsuite/btcd/btcutil"
)

// TxInput is one input of a normalized transaction, reduced to the
// previous output's address and value.
type TxInput struct {
	FromAddress string
	Value       btcutil.Amount
}

// TxOutput is one output of a normalized transaction.
type TxOutput struct {
	ToAddress string
	Value     btcutil.Amount
}

// Transaction is the minimal record the reconciliation pipeline needs,
// normalized from the indexer's verbose schema.  It is immutable once
// fetched and owned by the invocation that fetched it.
type Transaction struct {
	TxID        string
	Confirmed   bool
	BlockHeight int32
	BlockTime   time.Time
	Inputs      []TxInput
	Outputs     []TxOutput
	Fee         btcutil.Amount
}

// ReceivedAmount returns the total value the transaction paid to addr,
// summing every output locked to it.  Inputs and outputs to other
// addresses are ignored.
func ReceivedAmount(tx *Transaction, addr string) btcutil.Amount {
	var total btcutil.Amount
	for _, out := range tx.Outputs {
		if out.ToAddress == addr {
			total += out.Value
		}
	}
	return total
}

// FilterIncoming returns the transactions that paid a non-zero amount
// to addr, preserving input order.
func FilterIncoming(txs []Transaction, addr string) []Transaction {
	incoming := make([]Transaction, 0, len(txs))
	for _, tx := range txs {
		if ReceivedAmount(&tx, addr) > 0 {
			incoming = append(incoming, tx)
		}
	}
	return incoming
}
