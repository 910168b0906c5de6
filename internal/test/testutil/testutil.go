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

// Package testutil provides in-memory chain provider and wallet fakes and
// helpers for building outputs in tests.
package testutil

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	lcommon "github.com/blinklabs-io/gouroboros/ledger/common"
	"github.com/medifund/medifund/chain"
	"github.com/stretchr/testify/require"
)

// Hash224 returns a hash filled with the given byte
func Hash224(b byte) lcommon.Blake2b224 {
	return lcommon.NewBlake2b224(bytes.Repeat([]byte{b}, lcommon.Blake2b224Size))
}

// Hash256 returns a hash filled with the given byte
func Hash256(b byte) lcommon.Blake2b256 {
	return lcommon.NewBlake2b256(bytes.Repeat([]byte{b}, lcommon.Blake2b256Size))
}

// KeyAddress returns a testnet enterprise address for the key hash
func KeyAddress(t *testing.T, keyHash lcommon.Blake2b224) lcommon.Address {
	t.Helper()
	addr, err := lcommon.NewAddressFromParts(
		lcommon.AddressTypeKeyNone,
		chain.NetworkIdTestnet,
		keyHash.Bytes(),
		nil,
	)
	require.NoError(t, err)
	return addr
}

// Utxo encodes the output and decodes it as a Utxo at the reference
func Utxo(t *testing.T, ref chain.TxRef, out chain.Output) chain.Utxo {
	t.Helper()
	ret, err := out.Utxo(ref)
	require.NoError(t, err)
	return ret
}

// Provider is an in-memory chain.Provider
type Provider struct {
	mutex     sync.Mutex
	utxos     map[string][]chain.Utxo
	txs       map[lcommon.Blake2b256]*chain.TxInfo
	submitted [][]byte
	// SubmitErr is returned from SubmitTx when set
	SubmitErr error
	// FetchErr is returned from the fetch calls when set
	FetchErr error
}

func NewProvider() *Provider {
	return &Provider{
		utxos: make(map[string][]chain.Utxo),
		txs:   make(map[lcommon.Blake2b256]*chain.TxInfo),
	}
}

func (p *Provider) AddUtxo(utxo chain.Utxo) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	addr := utxo.Output.Address().String()
	p.utxos[addr] = append(p.utxos[addr], utxo)
}

func (p *Provider) SetTxInfo(info chain.TxInfo) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.txs[info.Hash] = &info
}

// Submitted returns the transactions passed to SubmitTx
func (p *Provider) Submitted() [][]byte {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return append([][]byte(nil), p.submitted...)
}

func (p *Provider) FetchAddressUtxos(
	_ context.Context,
	addr lcommon.Address,
) ([]chain.Utxo, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if p.FetchErr != nil {
		return nil, p.FetchErr
	}
	return append([]chain.Utxo(nil), p.utxos[addr.String()]...), nil
}

func (p *Provider) FetchTxInfo(
	_ context.Context,
	hash lcommon.Blake2b256,
) (*chain.TxInfo, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if p.FetchErr != nil {
		return nil, p.FetchErr
	}
	info, ok := p.txs[hash]
	if !ok {
		return nil, nil
	}
	ret := *info
	return &ret, nil
}

func (p *Provider) SubmitTx(
	_ context.Context,
	txCbor []byte,
) (lcommon.Blake2b256, error) {
	if p.SubmitErr != nil {
		return lcommon.Blake2b256{}, p.SubmitErr
	}
	tx, err := chain.DecodeTx(txCbor)
	if err != nil {
		return lcommon.Blake2b256{}, err
	}
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.submitted = append(p.submitted, txCbor)
	return tx.Hash(), nil
}

// Wallet is an in-memory wallet. Signing adds a fixed dummy witness.
type Wallet struct {
	Address       lcommon.Address
	UtxoSet       []chain.Utxo
	CollateralSet []chain.Utxo
	Provider      chain.Provider
}

func (w *Wallet) ChangeAddress(context.Context) (lcommon.Address, error) {
	return w.Address, nil
}

func (w *Wallet) Utxos(context.Context) ([]chain.Utxo, error) {
	return append([]chain.Utxo(nil), w.UtxoSet...), nil
}

func (w *Wallet) Collateral(context.Context) ([]chain.Utxo, error) {
	return append([]chain.Utxo(nil), w.CollateralSet...), nil
}

func (w *Wallet) SignTx(_ context.Context, txCbor []byte) ([]byte, error) {
	tx, err := chain.DecodeTx(txCbor)
	if err != nil {
		return nil, err
	}
	err = tx.AddVkeyWitnesses(lcommon.VkeyWitness{
		Vkey:      bytes.Repeat([]byte{0x01}, 32),
		Signature: bytes.Repeat([]byte{0x02}, 64),
	})
	if err != nil {
		return nil, err
	}
	return tx.Cbor()
}

func (w *Wallet) SubmitTx(ctx context.Context, txCbor []byte) (lcommon.Blake2b256, error) {
	if w.Provider == nil {
		return lcommon.Blake2b256{}, errors.New("wallet has no provider")
	}
	return w.Provider.SubmitTx(ctx, txCbor)
}
