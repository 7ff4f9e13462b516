// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package tx

import "github.com/vechain/compounder/thor"

// Receipt represents the results of a call.
type Receipt struct {
	// id of the call
	TxID thor.Bytes32
	// block number the call executed in
	BlockNumber uint64
	// account that made the call
	Origin thor.Address
	// whether all changes were rolled back
	Reverted bool
	// revert reason, empty unless reverted
	Reason string
	// events produced, empty if reverted
	Events Events
}

// Receipts is a slice of receipts.
type Receipts []*Receipt
