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

	lcommon "github.com/blinklabs-io/gouroboros/ledger/common"
	"github.com/medifund/medifund/chain"
	"github.com/medifund/medifund/datum"
	"github.com/medifund/medifund/eligibility"
	"github.com/medifund/medifund/query"
	"github.com/medifund/medifund/script"
	"github.com/medifund/medifund/wallet"
	"go.opentelemetry.io/otel/attribute"
)

// CreateCampaignParams describes a new campaign
type CreateCampaignParams struct {
	// HospitalName identifies the hospital token held by the wallet
	HospitalName string
	// InitialDeposit is the lovelace locked with the campaign datum. It is
	// raised to the ledger minimum if needed.
	InitialDeposit uint64
	Campaign       datum.Campaign
}

// CreateCampaign locks a new campaign datum at the patient script address
func (b *Builder) CreateCampaign(
	ctx context.Context,
	w wallet.Wallet,
	params CreateCampaignParams,
) (*UnsignedTx, error) {
	action := datum.ActionCreateCampaign.String()
	ctx, span := b.startSpan(
		ctx,
		action,
		// #nosec G115
		attribute.Int64("campaign_id", int64(params.Campaign.CampaignId)),
	)
	tx, err := b.createCampaign(ctx, w, params)
	return b.finish(span, action, tx, err)
}

func (b *Builder) createCampaign(
	ctx context.Context,
	w wallet.Wallet,
	params CreateCampaignParams,
) (*UnsignedTx, error) {
	hospital, err := b.config.Locator.HospitalRegistry()
	if err != nil {
		return nil, err
	}
	patient, err := b.config.Locator.PatientRegistry()
	if err != nil {
		return nil, err
	}
	hospitalToken := chain.AssetID{
		Policy: hospital.PolicyId,
		Name:   datum.TokenName(params.HospitalName, datum.TokenKindHospital),
	}
	tokenUtxo, err := findAsset(ctx, w, hospitalToken, "hospital token")
	if err != nil {
		return nil, err
	}
	existing, err := b.scanner.GetCampaign(ctx, params.Campaign.CampaignId)
	if err == nil && existing != nil {
		return nil, fmt.Errorf(
			"%w: %d at %s",
			ErrCampaignExists,
			params.Campaign.CampaignId,
			existing.Ref.String(),
		)
	}
	if err != nil && !errors.Is(err, query.ErrCampaignNotFound) {
		return nil, err
	}
	now := datum.TimeToPosix(b.now())
	c := params.Campaign.Clone()
	c.Status = datum.StatusActive
	c.CurrentFunds = 0
	c.TotalClaimed = 0
	c.CreatedAt = now
	c.LastUpdated = now
	for i := range c.Milestones {
		c.Milestones[i].Claimed = false
		c.Milestones[i].ClaimDate = nil
		c.Milestones[i].AmountClaimed = 0
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if eligibility.IsExpired(c, b.now()) {
		return nil, fmt.Errorf("%w: deadline is in the past", datum.ErrInvalidCampaign)
	}
	datumCbor, err := c.Cbor()
	if err != nil {
		return nil, fmt.Errorf("encode campaign datum: %w", err)
	}
	p := &plan{
		action:     datum.ActionCreateCampaign.String(),
		campaignId: c.CampaignId,
		inputs:     []chain.Utxo{tokenUtxo},
		outputs: []chain.Output{
			{
				Address:  *patient.Address,
				Lovelace: params.InitialDeposit,
				Datum:    datumCbor,
			},
		},
		campaign: c,
	}
	return b.build(ctx, w, p)
}

// Donate adds funds to an active campaign
func (b *Builder) Donate(
	ctx context.Context,
	w wallet.Wallet,
	campaignId uint64,
	amount uint64,
) (*UnsignedTx, error) {
	action := datum.ActionContributeFunds.String()
	ctx, span := b.startSpan(ctx, action, campaignAttr(campaignId))
	tx, err := b.donate(ctx, w, campaignId, amount)
	return b.finish(span, action, tx, err)
}

func (b *Builder) donate(
	ctx context.Context,
	w wallet.Wallet,
	campaignId uint64,
	amount uint64,
) (*UnsignedTx, error) {
	cu, err := b.campaign(ctx, campaignId)
	if err != nil {
		return nil, err
	}
	c := cu.Campaign
	ineligible := func(reason string) error {
		return IneligibleError{
			Action:     "donate",
			CampaignId: campaignId,
			Reason:     reason,
		}
	}
	switch {
	case c.Status != datum.StatusActive:
		return nil, ineligible(fmt.Sprintf("campaign is %s", c.Status))
	case eligibility.IsExpired(c, b.now()):
		return nil, ineligible("campaign deadline has passed")
	case amount < c.MinContribution:
		return nil, ineligible(fmt.Sprintf(
			"contribution %d is below the minimum of %d",
			amount,
			c.MinContribution,
		))
	}
	contributor, err := walletKeyHash(ctx, w)
	if err != nil {
		return nil, err
	}
	successor := c.Clone()
	successor.CurrentFunds += amount
	successor.LastUpdated = datum.TimeToPosix(b.now())
	p, err := b.spendPlan(
		cu,
		datum.ContributeFunds{Amount: amount, Contributor: contributor},
		successor,
		utxoValue(*cu.Utxo).add(newValue(amount)),
	)
	if err != nil {
		return nil, err
	}
	p.addRequiredSigner(contributor)
	return b.build(ctx, w, p)
}

// ClaimMilestone releases the funds of a reached milestone to the
// beneficiary
func (b *Builder) ClaimMilestone(
	ctx context.Context,
	w wallet.Wallet,
	campaignId uint64,
	percentage uint64,
) (*UnsignedTx, error) {
	action := datum.ActionClaimMilestoneFunds.String()
	ctx, span := b.startSpan(
		ctx,
		action,
		campaignAttr(campaignId),
		// #nosec G115
		attribute.Int64("percentage", int64(percentage)),
	)
	tx, err := b.claimMilestone(ctx, w, campaignId, percentage)
	return b.finish(span, action, tx, err)
}

func (b *Builder) claimMilestone(
	ctx context.Context,
	w wallet.Wallet,
	campaignId uint64,
	percentage uint64,
) (*UnsignedTx, error) {
	cu, err := b.campaign(ctx, campaignId)
	if err != nil {
		return nil, err
	}
	c := cu.Campaign
	now := b.now()
	if res := eligibility.CanClaimMilestone(c, percentage, now); !res.Allowed {
		return nil, IneligibleError{
			Action:     "claim",
			CampaignId: campaignId,
			Reason:     res.Reason,
		}
	}
	amount := eligibility.ClaimableAmount(c, percentage)
	if amount == 0 {
		return nil, IneligibleError{
			Action:     "claim",
			CampaignId: campaignId,
			Reason:     "no funds available to claim",
		}
	}
	remaining := utxoValue(*cu.Utxo).sub(newValue(amount))
	if remaining.Lovelace.Sign() < 0 {
		return nil, fmt.Errorf(
			"%w: campaign output holds %d lovelace, claim needs %d",
			ErrInsufficientFunds,
			cu.Utxo.Lovelace(),
			amount,
		)
	}
	beneficiaryAddr, err := b.keyAddress(c.Beneficiary)
	if err != nil {
		return nil, fmt.Errorf("beneficiary address: %w", err)
	}
	nowPosix := datum.TimeToPosix(now)
	successor := c.Clone()
	idx, _ := successor.Milestone(percentage)
	successor.Milestones[idx].Claimed = true
	successor.Milestones[idx].ClaimDate = &nowPosix
	successor.Milestones[idx].AmountClaimed = amount
	successor.TotalClaimed += amount
	successor.LastUpdated = nowPosix
	p, err := b.spendPlan(
		cu,
		datum.ClaimMilestoneFunds{Percentage: percentage},
		successor,
		remaining,
	)
	if err != nil {
		return nil, err
	}
	p.outputs = append(p.outputs, chain.Output{
		Address:  beneficiaryAddr,
		Lovelace: amount,
	})
	slot := b.config.SlotConfig.TimeToSlot(now)
	p.validityStart = &slot
	p.addRequiredSigner(c.Beneficiary)
	return b.build(ctx, w, p)
}

// Refund returns part of a contribution from a cancelled or expired
// campaign
func (b *Builder) Refund(
	ctx context.Context,
	w wallet.Wallet,
	campaignId uint64,
	contributor lcommon.Blake2b224,
	amount uint64,
) (*UnsignedTx, error) {
	action := datum.ActionRefundContributor.String()
	ctx, span := b.startSpan(ctx, action, campaignAttr(campaignId))
	tx, err := b.refund(ctx, w, campaignId, contributor, amount)
	return b.finish(span, action, tx, err)
}

func (b *Builder) refund(
	ctx context.Context,
	w wallet.Wallet,
	campaignId uint64,
	contributor lcommon.Blake2b224,
	amount uint64,
) (*UnsignedTx, error) {
	cu, err := b.campaign(ctx, campaignId)
	if err != nil {
		return nil, err
	}
	c := cu.Campaign
	ineligible := func(reason string) error {
		return IneligibleError{
			Action:     "refund",
			CampaignId: campaignId,
			Reason:     reason,
		}
	}
	if res := eligibility.CanRequestRefund(c, b.now()); !res.Allowed {
		return nil, ineligible(res.Reason)
	}
	refundable := eligibility.RefundableAmount(c)
	switch {
	case amount == 0:
		return nil, ineligible("refund amount must be positive")
	case amount > refundable:
		return nil, ineligible(fmt.Sprintf(
			"requested %d exceeds refundable amount %d",
			amount,
			refundable,
		))
	}
	remaining := utxoValue(*cu.Utxo).sub(newValue(amount))
	if remaining.Lovelace.Sign() < 0 {
		return nil, fmt.Errorf(
			"%w: campaign output holds %d lovelace, refund needs %d",
			ErrInsufficientFunds,
			cu.Utxo.Lovelace(),
			amount,
		)
	}
	contributorAddr, err := b.keyAddress(contributor)
	if err != nil {
		return nil, fmt.Errorf("contributor address: %w", err)
	}
	successor := c.Clone()
	successor.CurrentFunds -= amount
	successor.LastUpdated = datum.TimeToPosix(b.now())
	p, err := b.spendPlan(
		cu,
		datum.RefundContributor{Contributor: contributor, Amount: amount},
		successor,
		remaining,
	)
	if err != nil {
		return nil, err
	}
	p.outputs = append(p.outputs, chain.Output{
		Address:  contributorAddr,
		Lovelace: amount,
	})
	p.addRequiredSigner(contributor)
	return b.build(ctx, w, p)
}

// Pause moves an active campaign to paused
func (b *Builder) Pause(
	ctx context.Context,
	w wallet.Wallet,
	campaignId uint64,
) (*UnsignedTx, error) {
	return b.transition(ctx, w, campaignId, datum.StatusPaused, datum.PauseCampaign{})
}

// Resume moves a paused campaign back to active
func (b *Builder) Resume(
	ctx context.Context,
	w wallet.Wallet,
	campaignId uint64,
) (*UnsignedTx, error) {
	return b.transition(ctx, w, campaignId, datum.StatusActive, datum.ResumeCampaign{})
}

func (b *Builder) Cancel(
	ctx context.Context,
	w wallet.Wallet,
	campaignId uint64,
) (*UnsignedTx, error) {
	return b.transition(ctx, w, campaignId, datum.StatusCancelled, datum.CancelCampaign{})
}

func (b *Builder) Complete(
	ctx context.Context,
	w wallet.Wallet,
	campaignId uint64,
) (*UnsignedTx, error) {
	return b.transition(ctx, w, campaignId, datum.StatusCompleted, datum.CompleteCampaign{})
}

func (b *Builder) transition(
	ctx context.Context,
	w wallet.Wallet,
	campaignId uint64,
	to datum.Status,
	r datum.Redeemer,
) (*UnsignedTx, error) {
	act := r.Action().String()
	ctx, span := b.startSpan(ctx, act, campaignAttr(campaignId))
	tx, err := func() (*UnsignedTx, error) {
		cu, err := b.campaign(ctx, campaignId)
		if err != nil {
			return nil, err
		}
		c := cu.Campaign
		if !eligibility.CanTransition(c.Status, to) {
			return nil, IneligibleError{
				Action:     act,
				CampaignId: campaignId,
				Reason:     fmt.Sprintf("cannot move from %s to %s", c.Status, to),
			}
		}
		successor := c.Clone()
		successor.Status = to
		successor.LastUpdated = datum.TimeToPosix(b.now())
		p, err := b.spendPlan(cu, r, successor, utxoValue(*cu.Utxo))
		if err != nil {
			return nil, err
		}
		p.addRequiredSigner(c.Creator)
		return b.build(ctx, w, p)
	}()
	return b.finish(span, act, tx, err)
}

// campaign looks up the live campaign output
func (b *Builder) campaign(ctx context.Context, campaignId uint64) (*query.CampaignUtxo, error) {
	cu, err := b.scanner.GetCampaign(ctx, campaignId)
	if err != nil {
		return nil, err
	}
	if cu.Utxo == nil {
		return nil, fmt.Errorf("%w: %d has no confirmed output", ErrCampaignNotFound, campaignId)
	}
	return cu, nil
}

// spendPlan returns a plan that spends the campaign output and recreates
// it with the successor datum and value as the first output
func (b *Builder) spendPlan(
	cu *query.CampaignUtxo,
	r datum.Redeemer,
	successor *datum.Campaign,
	successorValue *value,
) (*plan, error) {
	patient, err := b.config.Locator.PatientRegistry()
	if err != nil {
		return nil, err
	}
	if err := successor.Validate(); err != nil {
		return nil, err
	}
	datumCbor, err := successor.Cbor()
	if err != nil {
		return nil, fmt.Errorf("encode campaign datum: %w", err)
	}
	scriptInput := *cu.Utxo
	return &plan{
		action:        r.Action().String(),
		campaignId:    successor.CampaignId,
		scriptInput:   &scriptInput,
		spendRedeemer: datum.EncodeRedeemer(successor.CampaignId, r),
		scripts:       [][]byte{patient.Script},
		outputs: []chain.Output{
			successorValue.output(*patient.Address, datumCbor),
		},
		campaign: successor,
	}, nil
}

func campaignAttr(campaignId uint64) attribute.KeyValue {
	// #nosec G115
	return attribute.Int64("campaign_id", int64(campaignId))
}

var _ Locator = (*script.Locator)(nil)
