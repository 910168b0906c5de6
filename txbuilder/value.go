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
	"math"
	"math/big"

	"github.com/blinklabs-io/gouroboros/cbor"
	lcommon "github.com/blinklabs-io/gouroboros/ledger/common"
	"github.com/medifund/medifund/chain"
)

// value is a lovelace amount plus native assets. Asset amounts may go
// negative while balancing.
type value struct {
	Lovelace *big.Int
	Assets   map[lcommon.Blake2b224]map[string]*big.Int
}

func newValue(lovelace uint64) *value {
	return &value{
		Lovelace: new(big.Int).SetUint64(lovelace),
		Assets:   make(map[lcommon.Blake2b224]map[string]*big.Int),
	}
}

func utxoValue(u chain.Utxo) *value {
	ret := newValue(u.Lovelace())
	assets := u.Output.Assets()
	if assets == nil {
		return ret
	}
	for _, policy := range assets.Policies() {
		for _, name := range assets.Assets(policy) {
			ret.addOutputAsset(policy, name, assets.Asset(policy, name))
		}
	}
	return ret
}

func (v *value) addAsset(policy lcommon.Blake2b224, name []byte, amount *big.Int) {
	if amount == nil {
		return
	}
	names, ok := v.Assets[policy]
	if !ok {
		names = make(map[string]*big.Int)
		v.Assets[policy] = names
	}
	cur, ok := names[string(name)]
	if !ok {
		cur = new(big.Int)
		names[string(name)] = cur
	}
	cur.Add(cur, amount)
}

// addOutputAsset adds an asset quantity as found in a transaction output
func (v *value) addOutputAsset(
	policy lcommon.Blake2b224,
	name []byte,
	amount lcommon.MultiAssetTypeOutput,
) {
	v.addAsset(policy, name, new(big.Int).SetUint64(amount))
}

func (v *value) add(other *value) *value {
	v.Lovelace.Add(v.Lovelace, other.Lovelace)
	for policy, names := range other.Assets {
		for name, amount := range names {
			v.addAsset(policy, []byte(name), amount)
		}
	}
	return v
}

func (v *value) sub(other *value) *value {
	v.Lovelace.Sub(v.Lovelace, other.Lovelace)
	for policy, names := range other.Assets {
		for name, amount := range names {
			v.addAsset(policy, []byte(name), new(big.Int).Neg(amount))
		}
	}
	return v
}

func (v *value) clone() *value {
	return newValue(0).add(v)
}

// covers reports whether v holds at least every amount in other
func (v *value) covers(other *value) bool {
	return v.clone().sub(other).nonNegative()
}

func (v *value) nonNegative() bool {
	if v.Lovelace.Sign() < 0 {
		return false
	}
	for _, names := range v.Assets {
		for _, amount := range names {
			if amount.Sign() < 0 {
				return false
			}
		}
	}
	return true
}

// lacksAssets reports whether some asset in v is negative
func (v *value) lacksAssets() bool {
	for _, names := range v.Assets {
		for _, amount := range names {
			if amount.Sign() < 0 {
				return true
			}
		}
	}
	return false
}

// multiAsset returns the positive assets of v in output form, or nil when
// there are none. Quantities above the output limit are capped.
func (v *value) multiAsset() *lcommon.MultiAsset[lcommon.MultiAssetTypeOutput] {
	tmp := make(map[lcommon.Blake2b224]map[cbor.ByteString]lcommon.MultiAssetTypeOutput)
	for policy, names := range v.Assets {
		for name, amount := range names {
			if amount.Sign() <= 0 {
				continue
			}
			if _, ok := tmp[policy]; !ok {
				tmp[policy] = make(map[cbor.ByteString]lcommon.MultiAssetTypeOutput)
			}
			qty := uint64(math.MaxUint64)
			if amount.IsUint64() {
				qty = amount.Uint64()
			}
			tmp[policy][cbor.NewByteString([]byte(name))] = qty
		}
	}
	if len(tmp) == 0 {
		return nil
	}
	ret := lcommon.NewMultiAsset(tmp)
	return &ret
}

func (v *value) output(addr lcommon.Address, datumCbor []byte) chain.Output {
	return chain.Output{
		Address:  addr,
		Lovelace: v.Lovelace.Uint64(),
		Assets:   v.multiAsset(),
		Datum:    datumCbor,
	}
}
