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
	"bytes"
	"encoding/hex"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/blinklabs-io/gouroboros/cbor"
	gledger "github.com/blinklabs-io/gouroboros/ledger"
	lcommon "github.com/blinklabs-io/gouroboros/ledger/common"
	"github.com/blinklabs-io/gouroboros/ledger/shelley"
)

// TxRef identifies a transaction output
type TxRef struct {
	Hash  lcommon.Blake2b256
	Index uint32
}

func (r TxRef) String() string {
	return fmt.Sprintf("%s#%d", r.Hash.String(), r.Index)
}

// Input returns the ledger transaction input for the reference
func (r TxRef) Input() shelley.ShelleyTransactionInput {
	return shelley.ShelleyTransactionInput{
		TxId:        r.Hash,
		OutputIndex: r.Index,
	}
}

// Compare orders references by hash and then index, matching the ledger
// ordering of transaction inputs
func (r TxRef) Compare(other TxRef) int {
	if c := bytes.Compare(r.Hash[:], other.Hash[:]); c != 0 {
		return c
	}
	switch {
	case r.Index < other.Index:
		return -1
	case r.Index > other.Index:
		return 1
	}
	return 0
}

// ParseTxRef parses the "hash#index" form
func ParseTxRef(s string) (TxRef, error) {
	hashStr, idxStr, ok := strings.Cut(s, "#")
	if !ok {
		return TxRef{}, fmt.Errorf("%w: %q", ErrInvalidTxRef, s)
	}
	hash, err := hex.DecodeString(hashStr)
	if err != nil || len(hash) != lcommon.Blake2b256Size {
		return TxRef{}, fmt.Errorf("%w: bad hash %q", ErrInvalidTxRef, hashStr)
	}
	idx, err := strconv.ParseUint(idxStr, 10, 32)
	if err != nil {
		return TxRef{}, fmt.Errorf("%w: bad index %q", ErrInvalidTxRef, idxStr)
	}
	return TxRef{
		Hash:  lcommon.NewBlake2b256(hash),
		Index: uint32(idx),
	}, nil
}

// AssetID identifies a native asset
type AssetID struct {
	Policy lcommon.Blake2b224
	Name   []byte
}

// String returns the policy.nameHex form
func (a AssetID) String() string {
	return a.Policy.String() + "." + hex.EncodeToString(a.Name)
}

// Utxo is an unspent output along with its decoded form
type Utxo struct {
	Ref    TxRef
	Output lcommon.TransactionOutput
}

// NewUtxo decodes output CBOR into a Utxo
func NewUtxo(ref TxRef, outputCbor []byte) (Utxo, error) {
	output, err := gledger.NewTransactionOutputFromCbor(outputCbor)
	if err != nil {
		return Utxo{}, fmt.Errorf("%w %s: %w", ErrInvalidOutput, ref, err)
	}
	return Utxo{Ref: ref, Output: output}, nil
}

func (u Utxo) Lovelace() uint64 {
	return u.Output.Amount()
}

// AssetAmount returns the quantity of the given asset held by the output
func (u Utxo) AssetAmount(asset AssetID) *big.Int {
	assets := u.Output.Assets()
	if assets == nil {
		return new(big.Int)
	}
	return new(big.Int).SetUint64(assets.Asset(asset.Policy, asset.Name))
}

func (u Utxo) HasAsset(asset AssetID) bool {
	return u.AssetAmount(asset).Sign() > 0
}

// InlineDatum returns the CBOR of the inline datum, or nil if the output
// has none
func (u Utxo) InlineDatum() []byte {
	d := u.Output.Datum()
	if d == nil || d.Data == nil {
		return nil
	}
	return d.Cbor()
}

// Output describes an output to encode. Assets and Datum are optional.
type Output struct {
	Address  lcommon.Address
	Lovelace uint64
	Assets   *lcommon.MultiAsset[lcommon.MultiAssetTypeOutput]
	// Datum is the CBOR of an inline datum
	Datum []byte
}

type outputDatum struct {
	cbor.StructAsArray
	Type uint
	Data cbor.Tag
}

type outputWire struct {
	Address []byte       `cbor:"0,keyasint"`
	Amount  any          `cbor:"1,keyasint"`
	Datum   *outputDatum `cbor:"2,keyasint,omitempty"`
}

// Cbor encodes the output in the post-Babbage map form
func (o Output) Cbor() ([]byte, error) {
	addrBytes, err := o.Address.Bytes()
	if err != nil {
		return nil, fmt.Errorf("encode output address: %w", err)
	}
	tmp := outputWire{
		Address: addrBytes,
		Amount:  o.Lovelace,
	}
	if o.Assets != nil && len(o.Assets.Policies()) > 0 {
		tmp.Amount = []any{o.Lovelace, o.Assets}
	}
	if len(o.Datum) > 0 {
		tmp.Datum = &outputDatum{
			Type: 1,
			Data: cbor.Tag{Number: 24, Content: o.Datum},
		}
	}
	return cbor.Encode(&tmp)
}

// Utxo encodes the output and decodes it back as a Utxo at the given
// reference
func (o Output) Utxo(ref TxRef) (Utxo, error) {
	outputCbor, err := o.Cbor()
	if err != nil {
		return Utxo{}, err
	}
	return NewUtxo(ref, outputCbor)
}
