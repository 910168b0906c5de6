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

	"github.com/medifund/medifund/chain"
	"github.com/medifund/medifund/datum"
	"github.com/medifund/medifund/wallet"
	"go.opentelemetry.io/otel/attribute"
)

// RegisterHospital mints the authorization token for a hospital. The
// wallet must hold the admin token.
func (b *Builder) RegisterHospital(
	ctx context.Context,
	w wallet.Wallet,
	name string,
) (*UnsignedTx, error) {
	return b.register(ctx, w, datum.TokenKindHospital, name)
}

// RegisterPatient mints the authorization token for a patient. The wallet
// must hold the admin token.
func (b *Builder) RegisterPatient(
	ctx context.Context,
	w wallet.Wallet,
	name string,
) (*UnsignedTx, error) {
	return b.register(ctx, w, datum.TokenKindPatient, name)
}

func (b *Builder) register(
	ctx context.Context,
	w wallet.Wallet,
	kind datum.TokenKind,
	name string,
) (*UnsignedTx, error) {
	action := "RegisterHospital"
	if kind == datum.TokenKindPatient {
		action = "RegisterPatient"
	}
	ctx, span := b.startSpan(ctx, action, attribute.String("name", name))
	tx, err := func() (*UnsignedTx, error) {
		if name == "" {
			return nil, errors.New("entity name must not be empty")
		}
		adminUtxo, err := findAsset(
			ctx,
			w,
			b.config.Locator.AdminToken().AssetID(),
			"admin token",
		)
		if err != nil {
			return nil, err
		}
		p, err := b.mintPlan(action, kind, name, 1, datum.MintToken)
		if err != nil {
			return nil, err
		}
		p.inputs = append(p.inputs, adminUtxo)
		return b.build(ctx, w, p)
	}()
	return b.finish(span, action, tx, err)
}

// BurnToken burns an authorization token held by the wallet
func (b *Builder) BurnToken(
	ctx context.Context,
	w wallet.Wallet,
	kind datum.TokenKind,
	name string,
) (*UnsignedTx, error) {
	action := datum.BurnToken.String()
	ctx, span := b.startSpan(
		ctx,
		action,
		attribute.String("name", name),
		attribute.String("kind", kind.String()),
	)
	tx, err := func() (*UnsignedTx, error) {
		p, err := b.mintPlan(action, kind, name, -1, datum.BurnToken)
		if err != nil {
			return nil, err
		}
		tokenUtxo, err := findAsset(ctx, w, p.mint.asset, kind.String()+" token")
		if err != nil {
			return nil, err
		}
		p.inputs = append(p.inputs, tokenUtxo)
		return b.build(ctx, w, p)
	}()
	return b.finish(span, action, tx, err)
}

func (b *Builder) mintPlan(
	action string,
	kind datum.TokenKind,
	name string,
	amount int64,
	r datum.MintRedeemer,
) (*plan, error) {
	registry, err := b.config.Locator.RegistryFor(kind)
	if err != nil {
		return nil, err
	}
	return &plan{
		action: action,
		mint: &mintPlan{
			asset: chain.AssetID{
				Policy: registry.PolicyId,
				Name:   datum.TokenName(name, kind),
			},
			amount:   amount,
			redeemer: r.ToPlutusData(),
		},
		scripts: [][]byte{registry.Script},
	}, nil
}
