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
	"cmp"
	"fmt"
	"math/big"
	"slices"

	"github.com/medifund/medifund/chain"
)

// minUtxoOverhead is the fixed per-output overhead in the min-UTxO formula
const minUtxoOverhead = 160

// minLovelace returns the smallest lovelace amount the ledger accepts for
// the output
func (p ProtocolParams) minLovelace(out chain.Output) (uint64, error) {
	// The lovelace field width affects the size, so compute against the
	// largest encoding first and then settle on the real amount
	tmp := out
	tmp.Lovelace = 1 << 40
	for range 2 {
		outputCbor, err := tmp.Cbor()
		if err != nil {
			return 0, err
		}
		req := (minUtxoOverhead + uint64(len(outputCbor))) * p.CoinsPerUtxoByte
		if req == tmp.Lovelace {
			break
		}
		tmp.Lovelace = req
	}
	return tmp.Lovelace, nil
}

// topUp raises the output lovelace to the ledger minimum
func (p ProtocolParams) topUp(out chain.Output) (chain.Output, error) {
	minAmount, err := p.minLovelace(out)
	if err != nil {
		return out, fmt.Errorf("min UTxO: %w", err)
	}
	if out.Lovelace < minAmount {
		out.Lovelace = minAmount
	}
	return out, nil
}

// fee returns the minimum fee for a transaction of the given size spending
// the given execution budget
func (p ProtocolParams) fee(size int, budget ExUnits) uint64 {
	// #nosec G115
	ret := p.MinFeeA*uint64(size) + p.MinFeeB
	execCost := new(big.Rat).Mul(p.PriceMem, new(big.Rat).SetInt(new(big.Int).SetUint64(budget.Memory)))
	execCost.Add(
		execCost,
		new(big.Rat).Mul(p.PriceStep, new(big.Rat).SetInt(new(big.Int).SetUint64(budget.Steps))),
	)
	return ret + ceilRat(execCost)
}

// totalCollateral returns the collateral required for the fee
func (p ProtocolParams) totalCollateral(fee uint64) uint64 {
	return ceilRat(big.NewRat(
		// #nosec G115
		int64(fee*p.CollateralPercent),
		100,
	))
}

func ceilRat(r *big.Rat) uint64 {
	q, m := new(big.Int).QuoRem(r.Num(), r.Denom(), new(big.Int))
	if m.Sign() > 0 {
		q.Add(q, big.NewInt(1))
	}
	if q.Sign() < 0 {
		return 0
	}
	return q.Uint64()
}

// selectionOrder returns the wallet UTxOs that may be added to cover a
// deficit, largest lovelace first, skipping the ones already spent
func selectionOrder(walletUtxos []chain.Utxo, spent []chain.Utxo) []chain.Utxo {
	ret := make([]chain.Utxo, 0, len(walletUtxos))
	for _, u := range walletUtxos {
		if slices.ContainsFunc(spent, func(s chain.Utxo) bool {
			return s.Ref == u.Ref
		}) {
			continue
		}
		ret = append(ret, u)
	}
	slices.SortStableFunc(ret, func(a, b chain.Utxo) int {
		return cmp.Compare(b.Lovelace(), a.Lovelace())
	})
	return ret
}

func sortUtxos(utxos []chain.Utxo) {
	slices.SortFunc(utxos, func(a, b chain.Utxo) int {
		return a.Ref.Compare(b.Ref)
	})
}
