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
	"errors"
	"fmt"

	"github.com/blinklabs-io/gouroboros/cbor"
	lcommon "github.com/blinklabs-io/gouroboros/ledger/common"
)

// Witness set keys
const (
	WitnessKeyVkey      uint = 0
	WitnessKeyRedeemers uint = 5
	WitnessKeyPlutusV3  uint = 7
)

// Tx is a transaction split into its top level parts. The body is kept
// as raw CBOR so its hash never changes while witnesses are added.
type Tx struct {
	Body      cbor.RawMessage
	Witnesses map[uint]cbor.RawMessage
	Valid     bool
}

type txWire struct {
	cbor.StructAsArray
	Body      cbor.RawMessage
	Witnesses map[uint]cbor.RawMessage
	Valid     bool
	AuxData   *cbor.RawMessage
}

// DecodeTx splits transaction CBOR into its parts
func DecodeTx(txCbor []byte) (*Tx, error) {
	var tmp txWire
	if _, err := cbor.Decode(txCbor, &tmp); err != nil {
		return nil, fmt.Errorf("decode transaction: %w", err)
	}
	if len(tmp.Body) == 0 {
		return nil, errors.New("decode transaction: empty body")
	}
	if tmp.Witnesses == nil {
		tmp.Witnesses = make(map[uint]cbor.RawMessage)
	}
	return &Tx{
		Body:      tmp.Body,
		Witnesses: tmp.Witnesses,
		Valid:     tmp.Valid,
	}, nil
}

// Cbor encodes the transaction with no auxiliary data
func (t *Tx) Cbor() ([]byte, error) {
	witnesses := t.Witnesses
	if witnesses == nil {
		witnesses = map[uint]cbor.RawMessage{}
	}
	return cbor.Encode(&txWire{
		Body:      t.Body,
		Witnesses: witnesses,
		Valid:     t.Valid,
	})
}

// Hash returns the transaction id
func (t *Tx) Hash() lcommon.Blake2b256 {
	return lcommon.Blake2b256Hash(t.Body)
}

// VkeyWitnesses returns the vkey witnesses currently attached
func (t *Tx) VkeyWitnesses() ([]lcommon.VkeyWitness, error) {
	raw, ok := t.Witnesses[WitnessKeyVkey]
	if !ok {
		return nil, nil
	}
	var ret []lcommon.VkeyWitness
	if _, err := cbor.Decode(raw, &ret); err != nil {
		return nil, fmt.Errorf("decode vkey witnesses: %w", err)
	}
	return ret, nil
}

// AddVkeyWitnesses appends vkey witnesses to the witness set
func (t *Tx) AddVkeyWitnesses(witnesses ...lcommon.VkeyWitness) error {
	existing, err := t.VkeyWitnesses()
	if err != nil {
		return err
	}
	existing = append(existing, witnesses...)
	raw, err := cbor.Encode(existing)
	if err != nil {
		return fmt.Errorf("encode vkey witnesses: %w", err)
	}
	if t.Witnesses == nil {
		t.Witnesses = make(map[uint]cbor.RawMessage)
	}
	t.Witnesses[WitnessKeyVkey] = raw
	return nil
}
