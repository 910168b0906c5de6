// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package chain

import (
	"context"

	lcommon "github.com/blinklabs-io/gouroboros/ledger/common"
)

// TxInfo is the confirmation state of a transaction
type TxInfo struct {
	Hash      lcommon.Blake2b256
	Confirmed bool
	Slot      uint64
	BlockHash string
}

// Provider is a read/submit view of the chain
type Provider interface {
	// FetchAddressUtxos returns the unspent outputs at the address
	FetchAddressUtxos(ctx context.Context, addr lcommon.Address) ([]Utxo, error)
	// FetchTxInfo returns nil when the transaction is unknown
	FetchTxInfo(ctx context.Context, hash lcommon.Blake2b256) (*TxInfo, error)
	SubmitTx(ctx context.Context, txCbor []byte) (lcommon.Blake2b256, error)
}
