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

package blockfrost

import (
	"errors"
	"fmt"
	"math/big"
	"strconv"

	"github.com/medifund/medifund/txbuilder"
)

// AmountResponse is one entry of an output value. Unit is "lovelace" or the
// policy id hex followed by the asset name hex.
type AmountResponse struct {
	Unit     string `json:"unit"`
	Quantity string `json:"quantity"`
}

// AddressUtxoResponse represents an entry of the address UTxO listing.
type AddressUtxoResponse struct {
	Address             string           `json:"address"`
	TxHash              string           `json:"tx_hash"`
	OutputIndex         uint32           `json:"output_index"`
	Amount              []AmountResponse `json:"amount"`
	Block               string           `json:"block"`
	DataHash            *string          `json:"data_hash"`
	InlineDatum         *string          `json:"inline_datum"`
	ReferenceScriptHash *string          `json:"reference_script_hash"`
}

// TxResponse represents the transaction lookup response.
type TxResponse struct {
	Hash          string `json:"hash"`
	Block         string `json:"block"`
	BlockHeight   uint64 `json:"block_height"`
	BlockTime     int64  `json:"block_time"`
	Slot          uint64 `json:"slot"`
	Index         int    `json:"index"`
	Fees          string `json:"fees"`
	Size          int    `json:"size"`
	ValidContract bool   `json:"valid_contract"`
}

// ProtocolParamsResponse represents the current epoch protocol
// parameters response.
type ProtocolParamsResponse struct {
	Epoch              uint64  `json:"epoch"`
	MinFeeA            int     `json:"min_fee_a"`
	MinFeeB            int     `json:"min_fee_b"`
	MaxBlockSize       int     `json:"max_block_size"`
	MaxTxSize          int     `json:"max_tx_size"`
	MaxBlockHeaderSize int     `json:"max_block_header_size"`
	KeyDeposit         string  `json:"key_deposit"`
	PoolDeposit        string  `json:"pool_deposit"`
	ProtocolMajorVer   int     `json:"protocol_major_ver"`
	ProtocolMinorVer   int     `json:"protocol_minor_ver"`
	MinPoolCost        string  `json:"min_pool_cost"`
	CoinsPerUtxoSize   *string `json:"coins_per_utxo_size"`
	// CostModelsRaw holds the cost models in ledger parameter order
	CostModelsRaw       map[string][]int64 `json:"cost_models_raw"`
	PriceMem            *float64           `json:"price_mem"`
	PriceStep           *float64           `json:"price_step"`
	MaxTxExMem          *string            `json:"max_tx_ex_mem"`
	MaxTxExSteps        *string            `json:"max_tx_ex_steps"`
	MaxValSize          *string            `json:"max_val_size"`
	CollateralPercent   *int               `json:"collateral_percent"`
	MaxCollateralInputs *int               `json:"max_collateral_inputs"`
}

// ProtocolParams converts the response into builder parameters
func (r ProtocolParamsResponse) ProtocolParams() (txbuilder.ProtocolParams, error) {
	if r.MinFeeA < 0 || r.MinFeeB < 0 || r.MaxTxSize < 0 {
		return txbuilder.ProtocolParams{}, errors.New("negative fee parameters")
	}
	ret := txbuilder.ProtocolParams{
		MinFeeA:   uint64(r.MinFeeA),
		MinFeeB:   uint64(r.MinFeeB),
		MaxTxSize: uint64(r.MaxTxSize),
	}
	if r.CoinsPerUtxoSize == nil {
		return txbuilder.ProtocolParams{}, errors.New("coins_per_utxo_size not set")
	}
	coins, err := strconv.ParseUint(*r.CoinsPerUtxoSize, 10, 64)
	if err != nil {
		return txbuilder.ProtocolParams{}, fmt.Errorf("parse coins_per_utxo_size: %w", err)
	}
	ret.CoinsPerUtxoByte = coins
	if r.PriceMem == nil || r.PriceStep == nil {
		return txbuilder.ProtocolParams{}, errors.New("execution prices not set")
	}
	if ret.PriceMem, err = ratFromFloat(*r.PriceMem); err != nil {
		return txbuilder.ProtocolParams{}, fmt.Errorf("parse price_mem: %w", err)
	}
	if ret.PriceStep, err = ratFromFloat(*r.PriceStep); err != nil {
		return txbuilder.ProtocolParams{}, fmt.Errorf("parse price_step: %w", err)
	}
	if r.CollateralPercent != nil && *r.CollateralPercent > 0 {
		ret.CollateralPercent = uint64(*r.CollateralPercent)
	}
	if model, ok := r.CostModelsRaw["PlutusV3"]; ok {
		ret.PlutusV3CostModel = model
	}
	return ret, nil
}

// ratFromFloat goes through the shortest decimal form so 0.0577 becomes
// 577/10000 rather than its binary approximation
func ratFromFloat(v float64) (*big.Rat, error) {
	ret, ok := new(big.Rat).SetString(strconv.FormatFloat(v, 'f', -1, 64))
	if !ok || ret.Sign() < 0 {
		return nil, fmt.Errorf("invalid price %v", v)
	}
	return ret, nil
}

// ErrorResponse represents a Blockfrost error response.
type ErrorResponse struct {
	StatusCode int    `json:"status_code"`
	Error      string `json:"error"`
	Message    string `json:"message"`
}

// APIError is returned for non-success responses
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("blockfrost: status %d: %s", e.StatusCode, e.Message)
}
