// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package state manages contract storage slots of the ledger.
// It follows the flow as bellow:
//
//	          o
//	          |
//	 [ revertable state ]
//	          |
//	   [ stacked map ] -> [ journal ] -> [ stage ] -> [ kv batch ]
//	          |
//	     [ lru cache ]
//	          |
//	   [ kv getter ]
//
// Every slot is addressed by (contract address, 32-byte key) and holds an
// rlp encoded value. An empty value means the slot is unset.
package state
