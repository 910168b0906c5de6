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
	"errors"
	"math/big"
)

// ProtocolParams holds the ledger parameters used for fees, minimum output
// values and the script integrity hash
type ProtocolParams struct {
	MinFeeA           uint64
	MinFeeB           uint64
	CoinsPerUtxoByte  uint64
	PriceMem          *big.Rat
	PriceStep         *big.Rat
	CollateralPercent uint64
	MaxTxSize         uint64
	// PlutusV3CostModel must match the ledger's current cost model, as it is
	// part of the script integrity hash
	PlutusV3CostModel []int64
}

// DefaultProtocolParams returns the current mainnet fee parameters. The
// PlutusV3 cost model is left empty.
func DefaultProtocolParams() ProtocolParams {
	return ProtocolParams{
		MinFeeA:           44,
		MinFeeB:           155381,
		CoinsPerUtxoByte:  4310,
		PriceMem:          big.NewRat(577, 10000),
		PriceStep:         big.NewRat(721, 10000000),
		CollateralPercent: 150,
		MaxTxSize:         16384,
	}
}

func (p ProtocolParams) validate() error {
	if p.PriceMem == nil || p.PriceStep == nil {
		return errors.New("protocol params: execution prices not set")
	}
	if p.CoinsPerUtxoByte == 0 {
		return errors.New("protocol params: coins per UTxO byte not set")
	}
	return nil
}

// ExUnits is an execution budget
type ExUnits struct {
	Memory uint64
	Steps  uint64
}

// Execution budgets attached to redeemers when none are configured
var (
	DefaultSpendExUnits = ExUnits{Memory: 2_000_000, Steps: 800_000_000}
	DefaultMintExUnits  = ExUnits{Memory: 1_000_000, Steps: 400_000_000}
)
