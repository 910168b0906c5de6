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
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"slices"
	"time"

	"github.com/blinklabs-io/gouroboros/cbor"
	lcommon "github.com/blinklabs-io/gouroboros/ledger/common"
	"github.com/blinklabs-io/plutigo/data"
	"github.com/medifund/medifund/chain"
	"github.com/medifund/medifund/datum"
	"github.com/medifund/medifund/query"
	"github.com/medifund/medifund/script"
	"github.com/medifund/medifund/wallet"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName = "github.com/medifund/medifund/txbuilder"

	maxFeeIterations = 10
)

// Locator resolves the applied validators
type Locator interface {
	HospitalRegistry() (*script.Registry, error)
	PatientRegistry() (*script.Registry, error)
	RegistryFor(kind datum.TokenKind) (*script.Registry, error)
	AdminToken() script.AdminToken
	Network() chain.Network
}

type Config struct {
	Locator  Locator
	Provider chain.Provider
	// Scanner is used to find campaign outputs. One is created from the
	// provider and locator when not set.
	Scanner      *query.Scanner
	Params       ProtocolParams
	SlotConfig   *chain.SlotConfig
	SpendExUnits ExUnits
	MintExUnits  ExUnits
	Logger       *slog.Logger
	PromRegistry prometheus.Registerer
	// Now defaults to time.Now
	Now func() time.Time
}

// UnsignedTx is a balanced transaction ready for signing
type UnsignedTx struct {
	Cbor       []byte
	Hash       lcommon.Blake2b256
	Fee        uint64
	Action     string
	CampaignId uint64
	// Campaign is the datum of the campaign output created by the
	// transaction, if any
	Campaign *datum.Campaign
	// CampaignOutput is the index of that output
	CampaignOutput uint32
}

type Builder struct {
	config  Config
	scanner *query.Scanner
	metrics builderMetrics
}

func NewBuilder(cfg Config) (*Builder, error) {
	if cfg.Locator == nil {
		return nil, errors.New("txbuilder: locator not set")
	}
	if cfg.Provider == nil {
		return nil, errors.New("txbuilder: provider not set")
	}
	if err := cfg.Params.validate(); err != nil {
		return nil, err
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if cfg.SlotConfig == nil {
		slotConfig := cfg.Locator.Network().SlotConfig
		cfg.SlotConfig = &slotConfig
	}
	if cfg.SpendExUnits == (ExUnits{}) {
		cfg.SpendExUnits = DefaultSpendExUnits
	}
	if cfg.MintExUnits == (ExUnits{}) {
		cfg.MintExUnits = DefaultMintExUnits
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	b := &Builder{
		config:  cfg,
		scanner: cfg.Scanner,
	}
	if b.scanner == nil {
		scanner, err := query.NewScanner(query.ScannerConfig{
			Provider: cfg.Provider,
			Locator:  cfg.Locator,
			Logger:   cfg.Logger,
		})
		if err != nil {
			return nil, err
		}
		b.scanner = scanner
	}
	b.metrics.init(cfg.PromRegistry)
	return b, nil
}

// plan describes what an action needs from the balancer
type plan struct {
	action     string
	campaignId uint64
	// inputs are spent regardless of balance
	inputs []chain.Utxo
	// scriptInput is the script output spent with spendRedeemer
	scriptInput   *chain.Utxo
	spendRedeemer data.PlutusData
	mint          *mintPlan
	scripts       [][]byte
	// outputs are topped up to the minimum lovelace before balancing
	outputs         []chain.Output
	requiredSigners []lcommon.Blake2b224
	validityStart   *uint64
	campaign        *datum.Campaign
}

type mintPlan struct {
	asset    chain.AssetID
	amount   int64
	redeemer data.PlutusData
}

func (p *plan) needsCollateral() bool {
	return p.scriptInput != nil || p.mint != nil
}

func (p *plan) addRequiredSigner(keyHash lcommon.Blake2b224) {
	if !slices.Contains(p.requiredSigners, keyHash) {
		p.requiredSigners = append(p.requiredSigners, keyHash)
	}
}

func (b *Builder) now() time.Time {
	return b.config.Now()
}

func (b *Builder) startSpan(
	ctx context.Context,
	action string,
	attrs ...attribute.KeyValue,
) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.String("action", action))
	return otel.Tracer(tracerName).Start(
		ctx,
		"txbuilder."+action,
		trace.WithAttributes(attrs...),
	)
}

// finish records the outcome of an action
func (b *Builder) finish(
	span trace.Span,
	action string,
	tx *UnsignedTx,
	err error,
) (*UnsignedTx, error) {
	defer span.End()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		b.metrics.failures.WithLabelValues(action).Inc()
		b.config.Logger.Debug(
			"transaction build failed",
			"component", "txbuilder",
			"action", action,
			"error", err.Error(),
		)
		return nil, err
	}
	span.SetAttributes(
		attribute.String("tx_hash", tx.Hash.String()),
		// #nosec G115
		attribute.Int64("fee", int64(tx.Fee)),
	)
	b.metrics.builds.WithLabelValues(action).Inc()
	b.metrics.fees.Observe(float64(tx.Fee))
	b.config.Logger.Info(
		"built transaction",
		"component", "txbuilder",
		"action", action,
		"tx_hash", tx.Hash.String(),
		"fee", tx.Fee,
		"size", len(tx.Cbor),
	)
	return tx, nil
}

// build selects inputs, balances and serializes the plan
func (b *Builder) build(
	ctx context.Context,
	w wallet.Wallet,
	p *plan,
) (*UnsignedTx, error) {
	params := b.config.Params
	changeAddr, err := w.ChangeAddress(ctx)
	if err != nil {
		return nil, fmt.Errorf("wallet change address: %w", err)
	}
	walletUtxos, err := w.Utxos(ctx)
	if err != nil {
		return nil, fmt.Errorf("wallet UTxOs: %w", err)
	}
	outputs := make([]chain.Output, 0, len(p.outputs))
	for _, out := range p.outputs {
		tmp, err := params.topUp(out)
		if err != nil {
			return nil, err
		}
		outputs = append(outputs, tmp)
	}
	var collateral *chain.Utxo
	if p.needsCollateral() {
		collateralUtxos, err := w.Collateral(ctx)
		if err != nil {
			return nil, fmt.Errorf("wallet collateral: %w", err)
		}
		if len(collateralUtxos) == 0 {
			return nil, ErrNoCollateral
		}
		collateral = &collateralUtxos[0]
	}
	// Fixed part of the balance: everything except the selected inputs,
	// the change and the fee
	fixed := newValue(0)
	for _, u := range p.inputs {
		fixed.add(utxoValue(u))
	}
	if p.scriptInput != nil {
		fixed.add(utxoValue(*p.scriptInput))
	}
	if p.mint != nil {
		fixed.addAsset(
			p.mint.asset.Policy,
			p.mint.asset.Name,
			bigInt(p.mint.amount),
		)
	}
	for _, out := range outputs {
		fixed.sub(outputValue(out))
	}
	spent := slices.Clone(p.inputs)
	if p.scriptInput != nil {
		spent = append(spent, *p.scriptInput)
	}
	candidates := selectionOrder(walletUtxos, spent)
	var selected []chain.Utxo
	var fee uint64
	for range maxFeeIterations {
		// Select until the change covers the fee and its own minimum
		var change *value
		for {
			change = fixed.clone()
			for _, u := range selected {
				change.add(utxoValue(u))
			}
			change.sub(newValue(fee))
			if change.nonNegative() {
				changeMin, err := params.minLovelace(change.output(changeAddr, nil))
				if err != nil {
					return nil, err
				}
				if change.Lovelace.Uint64() >= changeMin {
					break
				}
			}
			if len(selected) == len(candidates) {
				if change.lacksAssets() {
					return nil, fmt.Errorf(
						"%w: wallet lacks assets required by the transaction",
						ErrInsufficientFunds,
					)
				}
				return nil, fmt.Errorf(
					"%w: wallet holds too little lovelace for outputs, fee and change",
					ErrInsufficientFunds,
				)
			}
			selected = append(selected, candidates[len(selected)])
		}
		txCbor, numSigners, err := b.assemble(
			p,
			append(slices.Clone(spent), selected...),
			append(slices.Clone(outputs), change.output(changeAddr, nil)),
			collateral,
			fee,
		)
		if err != nil {
			return nil, err
		}
		budget := p.budget(b.config.SpendExUnits, b.config.MintExUnits)
		required := params.fee(len(txCbor)+numSigners*vkeyWitnessSize, budget)
		if required <= fee {
			if params.MaxTxSize > 0 && uint64(len(txCbor)) > params.MaxTxSize {
				return nil, fmt.Errorf(
					"transaction size %d exceeds maximum %d",
					len(txCbor),
					params.MaxTxSize,
				)
			}
			tx, err := chain.DecodeTx(txCbor)
			if err != nil {
				return nil, err
			}
			return &UnsignedTx{
				Cbor:       txCbor,
				Hash:       tx.Hash(),
				Fee:        fee,
				Action:     p.action,
				CampaignId: p.campaignId,
				Campaign:   p.campaign,
			}, nil
		}
		fee = required
	}
	return nil, ErrFeeNotConverged
}

func (p *plan) budget(spend ExUnits, mint ExUnits) ExUnits {
	var ret ExUnits
	if p.scriptInput != nil {
		ret.Memory += spend.Memory
		ret.Steps += spend.Steps
	}
	if p.mint != nil {
		ret.Memory += mint.Memory
		ret.Steps += mint.Steps
	}
	return ret
}

// assemble serializes the transaction and returns the number of vkey
// witnesses it will need
func (b *Builder) assemble(
	p *plan,
	inputs []chain.Utxo,
	outputs []chain.Output,
	collateral *chain.Utxo,
	fee uint64,
) ([]byte, int, error) {
	params := b.config.Params
	inputs = slices.Clone(inputs)
	sortUtxos(inputs)
	body := txBody{
		Inputs:          txInputs(inputs),
		Fee:             fee,
		ValidityStart:   p.validityStart,
		RequiredSigners: p.requiredSigners,
	}
	for _, out := range outputs {
		outputCbor, err := out.Cbor()
		if err != nil {
			return nil, 0, fmt.Errorf("encode output: %w", err)
		}
		body.Outputs = append(body.Outputs, outputCbor)
	}
	var redeemers []redeemer
	if p.scriptInput != nil {
		idx := slices.IndexFunc(inputs, func(u chain.Utxo) bool {
			return u.Ref == p.scriptInput.Ref
		})
		redeemers = append(redeemers, redeemer{
			tag: redeemerTagSpend,
			// #nosec G115
			index:   uint32(idx),
			data:    p.spendRedeemer,
			exUnits: b.config.SpendExUnits,
		})
	}
	if p.mint != nil {
		mint := lcommon.NewMultiAsset(
			map[lcommon.Blake2b224]map[cbor.ByteString]lcommon.MultiAssetTypeMint{
				p.mint.asset.Policy: {
					cbor.NewByteString(p.mint.asset.Name): p.mint.amount,
				},
			},
		)
		body.Mint = &mint
		// The only minted policy is always at index 0
		redeemers = append(redeemers, redeemer{
			tag:     redeemerTagMint,
			index:   0,
			data:    p.mint.redeemer,
			exUnits: b.config.MintExUnits,
		})
	}
	witnesses := map[uint]cbor.RawMessage{}
	if len(redeemers) > 0 {
		redeemersCbor, err := encodeRedeemers(redeemers)
		if err != nil {
			return nil, 0, err
		}
		witnesses[chain.WitnessKeyRedeemers] = redeemersCbor
		body.ScriptDataHash, err = scriptDataHash(
			redeemersCbor,
			params.PlutusV3CostModel,
		)
		if err != nil {
			return nil, 0, err
		}
	}
	if len(p.scripts) > 0 {
		scriptsCbor, err := encodeScripts(p.scripts)
		if err != nil {
			return nil, 0, err
		}
		witnesses[chain.WitnessKeyPlutusV3] = scriptsCbor
	}
	signers := make(map[lcommon.Blake2b224]struct{})
	for _, u := range inputs {
		addr := u.Output.Address()
		if addr.Type() == lcommon.AddressTypeScriptNone {
			continue
		}
		signers[addr.PaymentKeyHash()] = struct{}{}
	}
	if collateral != nil {
		total := params.totalCollateral(fee)
		ret := utxoValue(*collateral).sub(newValue(total))
		if ret.Lovelace.Sign() < 0 {
			return nil, 0, fmt.Errorf(
				"%w: collateral %s holds less than %d lovelace",
				ErrNoCollateral,
				collateral.Ref.String(),
				total,
			)
		}
		retOutput := ret.output(collateral.Output.Address(), nil)
		retCbor, err := retOutput.Cbor()
		if err != nil {
			return nil, 0, fmt.Errorf("encode collateral return: %w", err)
		}
		body.Collateral = txInputs([]chain.Utxo{*collateral})
		body.CollateralReturn = retCbor
		body.TotalCollateral = total
		addr := collateral.Output.Address()
		signers[addr.PaymentKeyHash()] = struct{}{}
	}
	for _, keyHash := range p.requiredSigners {
		signers[keyHash] = struct{}{}
	}
	bodyCbor, err := cbor.Encode(&body)
	if err != nil {
		return nil, 0, fmt.Errorf("encode transaction body: %w", err)
	}
	tx := chain.Tx{
		Body:      bodyCbor,
		Witnesses: witnesses,
		Valid:     true,
	}
	txCbor, err := tx.Cbor()
	if err != nil {
		return nil, 0, fmt.Errorf("encode transaction: %w", err)
	}
	return txCbor, len(signers), nil
}

func outputValue(out chain.Output) *value {
	ret := newValue(out.Lovelace)
	if out.Assets == nil {
		return ret
	}
	for _, policy := range out.Assets.Policies() {
		for _, name := range out.Assets.Assets(policy) {
			ret.addOutputAsset(policy, name, out.Assets.Asset(policy, name))
		}
	}
	return ret
}

func bigInt(v int64) *big.Int {
	return big.NewInt(v)
}

// walletKeyHash returns the payment key hash of the wallet change address
func walletKeyHash(ctx context.Context, w wallet.Wallet) (lcommon.Blake2b224, error) {
	addr, err := w.ChangeAddress(ctx)
	if err != nil {
		return lcommon.Blake2b224{}, fmt.Errorf("wallet change address: %w", err)
	}
	if addr.Type() == lcommon.AddressTypeScriptNone {
		return lcommon.Blake2b224{}, errors.New("wallet change address is a script address")
	}
	return addr.PaymentKeyHash(), nil
}

// findAsset returns a wallet UTxO holding the asset
func findAsset(
	ctx context.Context,
	w wallet.Wallet,
	asset chain.AssetID,
	purpose string,
) (chain.Utxo, error) {
	utxos, err := w.Utxos(ctx)
	if err != nil {
		return chain.Utxo{}, fmt.Errorf("wallet UTxOs: %w", err)
	}
	for _, u := range utxos {
		if u.HasAsset(asset) {
			return u, nil
		}
	}
	return chain.Utxo{}, MissingAssetError{Asset: asset, Purpose: purpose}
}

// keyAddress returns the enterprise address for a payment key hash
func (b *Builder) keyAddress(keyHash lcommon.Blake2b224) (lcommon.Address, error) {
	return lcommon.NewAddressFromParts(
		lcommon.AddressTypeKeyNone,
		b.config.Locator.Network().NetworkId,
		keyHash.Bytes(),
		nil,
	)
}
