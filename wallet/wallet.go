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

// Package wallet defines the wallet capability used to fund, sign and
// submit transactions, along with a wallet backed by a payment signing key.
package wallet

import (
	"context"

	lcommon "github.com/blinklabs-io/gouroboros/ledger/common"
	"github.com/medifund/medifund/chain"
)

// Wallet provides funds and signatures for transactions
type Wallet interface {
	ChangeAddress(ctx context.Context) (lcommon.Address, error)
	Utxos(ctx context.Context) ([]chain.Utxo, error)
	// Collateral returns outputs suitable as script collateral, best first
	Collateral(ctx context.Context) ([]chain.Utxo, error)
	// SignTx returns the transaction with the wallet's witnesses added
	SignTx(ctx context.Context, txCbor []byte) ([]byte, error)
	SubmitTx(ctx context.Context, txCbor []byte) (lcommon.Blake2b256, error)
}
