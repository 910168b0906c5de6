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

package wallet

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"

	lcommon "github.com/blinklabs-io/gouroboros/ledger/common"
	"github.com/medifund/medifund/chain"
	"github.com/medifund/medifund/keystore"
)

// DefaultMinCollateral is the smallest pure-lovelace output offered as
// collateral
const DefaultMinCollateral = 5_000_000

// KeyWallet is a single address wallet backed by a payment signing key
type KeyWallet struct {
	key           *keystore.PaymentKey
	address       lcommon.Address
	provider      chain.Provider
	minCollateral uint64
}

type KeyWalletConfig struct {
	Key       *keystore.PaymentKey
	NetworkId uint8
	Provider  chain.Provider
	// MinCollateral defaults to DefaultMinCollateral
	MinCollateral uint64
}

func NewKeyWallet(cfg KeyWalletConfig) (*KeyWallet, error) {
	if cfg.Key == nil {
		return nil, errors.New("wallet: key not set")
	}
	if cfg.Provider == nil {
		return nil, errors.New("wallet: provider not set")
	}
	addr, err := cfg.Key.Address(cfg.NetworkId)
	if err != nil {
		return nil, fmt.Errorf("wallet address: %w", err)
	}
	if cfg.MinCollateral == 0 {
		cfg.MinCollateral = DefaultMinCollateral
	}
	return &KeyWallet{
		key:           cfg.Key,
		address:       addr,
		provider:      cfg.Provider,
		minCollateral: cfg.MinCollateral,
	}, nil
}

func (w *KeyWallet) ChangeAddress(context.Context) (lcommon.Address, error) {
	return w.address, nil
}

func (w *KeyWallet) Utxos(ctx context.Context) ([]chain.Utxo, error) {
	return w.provider.FetchAddressUtxos(ctx, w.address)
}

// Collateral returns the pure-lovelace outputs of at least the minimum
// collateral amount, smallest first
func (w *KeyWallet) Collateral(ctx context.Context) ([]chain.Utxo, error) {
	utxos, err := w.Utxos(ctx)
	if err != nil {
		return nil, err
	}
	ret := slices.DeleteFunc(utxos, func(u chain.Utxo) bool {
		assets := u.Output.Assets()
		if assets != nil && len(assets.Policies()) > 0 {
			return true
		}
		return u.Lovelace() < w.minCollateral
	})
	slices.SortStableFunc(ret, func(a, b chain.Utxo) int {
		return cmp.Compare(a.Lovelace(), b.Lovelace())
	})
	return ret, nil
}

// SignTx adds a witness for the payment key
func (w *KeyWallet) SignTx(_ context.Context, txCbor []byte) ([]byte, error) {
	tx, err := chain.DecodeTx(txCbor)
	if err != nil {
		return nil, err
	}
	if err := tx.AddVkeyWitnesses(w.key.Witness(tx.Hash())); err != nil {
		return nil, err
	}
	return tx.Cbor()
}

func (w *KeyWallet) SubmitTx(ctx context.Context, txCbor []byte) (lcommon.Blake2b256, error) {
	return w.provider.SubmitTx(ctx, txCbor)
}

var _ Wallet = (*KeyWallet)(nil)
