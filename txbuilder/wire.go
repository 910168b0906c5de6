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

package txbuilder

import (
	"fmt"

	"github.com/blinklabs-io/gouroboros/cbor"
	lcommon "github.com/blinklabs-io/gouroboros/ledger/common"
	"github.com/blinklabs-io/gouroboros/ledger/shelley"
	"github.com/blinklabs-io/plutigo/data"
	"github.com/medifund/medifund/chain"
)

// Redeemer tags
const (
	redeemerTagSpend uint8 = 0
	redeemerTagMint  uint8 = 1
)

// plutusV3LanguageId is the cost model key in the language views
const plutusV3LanguageId uint = 2

// vkeyWitnessSize approximates one encoded vkey witness
const vkeyWitnessSize = 101

type txBody struct {
	Inputs           []shelley.ShelleyTransactionInput               `cbor:"0,keyasint"`
	Outputs          []cbor.RawMessage                               `cbor:"1,keyasint"`
	Fee              uint64                                          `cbor:"2,keyasint"`
	ValidityStart    *uint64                                         `cbor:"8,keyasint,omitempty"`
	Mint             *lcommon.MultiAsset[lcommon.MultiAssetTypeMint] `cbor:"9,keyasint,omitempty"`
	ScriptDataHash   []byte                                          `cbor:"11,keyasint,omitempty"`
	Collateral       []shelley.ShelleyTransactionInput               `cbor:"13,keyasint,omitempty"`
	RequiredSigners  []lcommon.Blake2b224                            `cbor:"14,keyasint,omitempty"`
	CollateralReturn cbor.RawMessage                                 `cbor:"16,keyasint,omitempty"`
	TotalCollateral  uint64                                          `cbor:"17,keyasint,omitempty"`
}

type exUnitsWire struct {
	cbor.StructAsArray
	Memory uint64
	Steps  uint64
}

type redeemerWire struct {
	cbor.StructAsArray
	Tag     uint8
	Index   uint32
	Data    cbor.RawMessage
	ExUnits exUnitsWire
}

type redeemer struct {
	tag     uint8
	index   uint32
	data    data.PlutusData
	exUnits ExUnits
}

func encodeRedeemers(redeemers []redeemer) ([]byte, error) {
	tmp := make([]redeemerWire, 0, len(redeemers))
	for _, r := range redeemers {
		pd, err := data.Encode(r.data)
		if err != nil {
			return nil, fmt.Errorf("encode redeemer data: %w", err)
		}
		tmp = append(tmp, redeemerWire{
			Tag:   r.tag,
			Index: r.index,
			Data:  pd,
			ExUnits: exUnitsWire{
				Memory: r.exUnits.Memory,
				Steps:  r.exUnits.Steps,
			},
		})
	}
	return cbor.Encode(tmp)
}

// scriptDataHash computes the script integrity hash. Campaign outputs carry
// inline datums, so the witness datum list is always empty and omitted.
func scriptDataHash(redeemersCbor []byte, costModel []int64) ([]byte, error) {
	if costModel == nil {
		costModel = []int64{}
	}
	languageViews, err := cbor.Encode(map[uint][]int64{
		plutusV3LanguageId: costModel,
	})
	if err != nil {
		return nil, fmt.Errorf("encode language views: %w", err)
	}
	buf := make([]byte, 0, len(redeemersCbor)+len(languageViews))
	buf = append(buf, redeemersCbor...)
	buf = append(buf, languageViews...)
	return lcommon.Blake2b256Hash(buf).Bytes(), nil
}

func encodeScripts(scripts [][]byte) ([]byte, error) {
	return cbor.Encode(scripts)
}

func txInputs(utxos []chain.Utxo) []shelley.ShelleyTransactionInput {
	ret := make([]shelley.ShelleyTransactionInput, 0, len(utxos))
	for _, u := range utxos {
		ret = append(ret, u.Ref.Input())
	}
	return ret
}
