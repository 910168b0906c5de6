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

package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	lcommon "github.com/blinklabs-io/gouroboros/ledger/common"
	"github.com/medifund/medifund/datum"
	"github.com/medifund/medifund/txbuilder"
	"github.com/medifund/medifund/wallet"
	"github.com/spf13/cobra"
)

type txResultView struct {
	Action     string `json:"action"`
	CampaignId uint64 `json:"campaignId,omitempty"`
	TxHash     string `json:"txHash"`
	Fee        uint64 `json:"fee"`
	Submitted  bool   `json:"submitted"`
	// Cbor is the signed transaction, only set for dry runs
	Cbor string `json:"cbor,omitempty"`
}

type buildFunc func(
	ctx context.Context,
	a *app,
	b *txbuilder.Builder,
	w *wallet.KeyWallet,
	args []string,
) (*txbuilder.UnsignedTx, error)

// txRunner wires the app, builder and key wallet around a build step and
// then signs and submits the result
func txRunner(dryRun *bool, build buildFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := appFromCommand(cmd)
		if err != nil {
			return err
		}
		defer a.close()
		ctx := cmd.Context()
		b, err := a.builder(ctx)
		if err != nil {
			return err
		}
		w, err := a.wallet()
		if err != nil {
			return err
		}
		tx, err := build(ctx, a, b, w, args)
		if err != nil {
			return err
		}
		view, err := a.signAndSubmit(ctx, w, tx, *dryRun)
		if err != nil {
			return err
		}
		return writeJSON(os.Stdout, view)
	}
}

// signAndSubmit signs the transaction and, unless dryRun is set, submits
// it, records the new campaign output in the local cache and invalidates
// superseded cache records
func (a *app) signAndSubmit(
	ctx context.Context,
	w wallet.Wallet,
	tx *txbuilder.UnsignedTx,
	dryRun bool,
) (*txResultView, error) {
	signed, err := w.SignTx(ctx, tx.Cbor)
	if err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}
	view := &txResultView{
		Action:     tx.Action,
		CampaignId: tx.CampaignId,
		TxHash:     tx.Hash.String(),
		Fee:        tx.Fee,
	}
	if dryRun {
		view.Cbor = hex.EncodeToString(signed)
		return view, nil
	}
	hash, err := w.SubmitTx(ctx, signed)
	if err != nil {
		return nil, err
	}
	view.TxHash = hash.String()
	view.Submitted = true
	a.logger.Info(
		"submitted transaction",
		"component", programName,
		"action", tx.Action,
		"tx_hash", view.TxHash,
	)
	if tx.Campaign != nil {
		if _, err := a.cache.Record(ctx, hash, tx.CampaignOutput, tx.Campaign); err != nil {
			a.logger.Warn("failed to cache campaign output", "component", programName, "error", err)
		}
	}
	if _, err := a.cache.Invalidate(ctx); err != nil {
		a.logger.Warn("failed to invalidate campaign cache", "component", programName, "error", err)
	}
	return view, nil
}

func txCommand() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "tx",
		Short: "Build, sign and submit transactions",
	}
	cmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "sign but do not submit, printing the transaction CBOR")
	cmd.AddCommand(
		txCreateCampaignCommand(&dryRun),
		txDonateCommand(&dryRun),
		txClaimCommand(&dryRun),
		txRefundCommand(&dryRun),
		txTransitionCommand(&dryRun, "pause", "Pause an active campaign", (*txbuilder.Builder).Pause),
		txTransitionCommand(&dryRun, "resume", "Resume a paused campaign", (*txbuilder.Builder).Resume),
		txTransitionCommand(&dryRun, "cancel", "Cancel a campaign", (*txbuilder.Builder).Cancel),
		txTransitionCommand(&dryRun, "complete", "Mark a campaign as completed", (*txbuilder.Builder).Complete),
		txRegisterCommand(&dryRun, datum.TokenKindHospital),
		txRegisterCommand(&dryRun, datum.TokenKindPatient),
		txBurnCommand(&dryRun),
	)
	return cmd
}

type createCampaignFlags struct {
	hospital             string
	id                   uint64
	title                string
	description          string
	goal                 string
	beneficiary          string
	authority            string
	emergencyContact     string
	deadline             string
	duration             time.Duration
	minContribution      string
	verificationRequired bool
	milestones           string
	deposit              string
}

func txCreateCampaignCommand(dryRun *bool) *cobra.Command {
	var f createCampaignFlags
	cmd := &cobra.Command{
		Use:   "create-campaign",
		Short: "Create a campaign backed by a hospital token held by the wallet",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = txRunner(dryRun, func(
		ctx context.Context,
		a *app,
		b *txbuilder.Builder,
		w *wallet.KeyWallet,
		_ []string,
	) (*txbuilder.UnsignedTx, error) {
		changed := cmd.Flags().Changed
		params, err := f.params(ctx, a, w, changed)
		if err != nil {
			return nil, err
		}
		return b.CreateCampaign(ctx, w, params)
	})
	cmd.Flags().StringVar(&f.hospital, "hospital", "", "name of the hospital whose token backs the campaign")
	cmd.Flags().Uint64Var(&f.id, "id", 0, "campaign id (default: next unused id)")
	cmd.Flags().StringVar(&f.title, "title", "", "campaign title")
	cmd.Flags().StringVar(&f.description, "description", "", "campaign description")
	cmd.Flags().StringVar(&f.goal, "goal", "", "funding goal in ADA")
	cmd.Flags().StringVar(&f.beneficiary, "beneficiary", "", "beneficiary key hash (default: wallet key)")
	cmd.Flags().StringVar(&f.authority, "authority", "", "medical authority key hash")
	cmd.Flags().StringVar(&f.emergencyContact, "emergency-contact", "", "emergency contact key hash")
	cmd.Flags().StringVar(&f.deadline, "deadline", "", "deadline as an RFC 3339 time")
	cmd.Flags().DurationVar(&f.duration, "duration", 0, "deadline as an offset from now")
	cmd.Flags().StringVar(&f.minContribution, "min-contribution", "", "minimum contribution in ADA")
	cmd.Flags().BoolVar(&f.verificationRequired, "verification-required", false, "require medical verification")
	cmd.Flags().StringVar(&f.milestones, "milestones", "", "comma separated milestone percentages (default 25,50,75,100)")
	cmd.Flags().StringVar(&f.deposit, "deposit", "2", "ADA locked with the campaign datum")
	_ = cmd.MarkFlagRequired("hospital")
	return cmd
}

// params assembles the campaign from the flags that were set. Unset fields
// fall back to the campaign record defaults.
func (f *createCampaignFlags) params(
	ctx context.Context,
	a *app,
	w *wallet.KeyWallet,
	changed func(string) bool,
) (txbuilder.CreateCampaignParams, error) {
	var rec datum.Record
	addr, err := w.ChangeAddress(ctx)
	if err != nil {
		return txbuilder.CreateCampaignParams{}, err
	}
	creator := addr.PaymentKeyHash()
	rec.Creator = &creator
	rec.Beneficiary = &creator
	id := f.id
	if !changed("id") {
		all, err := a.scanner.GetAllCampaigns(ctx)
		if err != nil {
			return txbuilder.CreateCampaignParams{}, err
		}
		for _, existing := range all {
			id = max(id, existing.Campaign.CampaignId+1)
		}
	}
	rec.CampaignId = &id
	if changed("title") {
		rec.Title = &f.title
	}
	if changed("description") {
		rec.Description = &f.description
	}
	adaFields := []struct {
		flag  string
		value string
		dest  **float64
	}{
		{"goal", f.goal, &rec.TotalGoalAda},
		{"min-contribution", f.minContribution, &rec.MinContributionAda},
	}
	for _, field := range adaFields {
		if !changed(field.flag) {
			continue
		}
		v, err := strconv.ParseFloat(field.value, 64)
		if err != nil {
			return txbuilder.CreateCampaignParams{}, fmt.Errorf("invalid --%s %q", field.flag, field.value)
		}
		*field.dest = &v
	}
	keyFields := []struct {
		flag  string
		value string
		dest  **lcommon.Blake2b224
	}{
		{"beneficiary", f.beneficiary, &rec.Beneficiary},
		{"authority", f.authority, &rec.MedicalAuthority},
		{"emergency-contact", f.emergencyContact, &rec.EmergencyContact},
	}
	for _, field := range keyFields {
		if !changed(field.flag) {
			continue
		}
		keyHash, err := parseKeyHash(field.flag, field.value)
		if err != nil {
			return txbuilder.CreateCampaignParams{}, err
		}
		*field.dest = &keyHash
	}
	switch {
	case changed("deadline") && changed("duration"):
		return txbuilder.CreateCampaignParams{}, errors.New("--deadline and --duration are mutually exclusive")
	case changed("deadline"):
		t, err := time.Parse(time.RFC3339, f.deadline)
		if err != nil {
			return txbuilder.CreateCampaignParams{}, fmt.Errorf("invalid --deadline: %w", err)
		}
		deadline := float64(datum.TimeToPosix(t))
		rec.Deadline = &deadline
	case changed("duration"):
		deadline := float64(datum.TimeToPosix(time.Now().Add(f.duration)))
		rec.Deadline = &deadline
	}
	if changed("verification-required") {
		rec.VerificationRequired = &f.verificationRequired
	}
	if changed("milestones") {
		for _, s := range strings.Split(f.milestones, ",") {
			pct, err := parseUint("milestone percentage", strings.TrimSpace(s))
			if err != nil {
				return txbuilder.CreateCampaignParams{}, err
			}
			rec.Milestones = append(rec.Milestones, datum.Milestone{Percentage: pct})
		}
	}
	deposit, err := parseAda(f.deposit)
	if err != nil {
		return txbuilder.CreateCampaignParams{}, err
	}
	return txbuilder.CreateCampaignParams{
		HospitalName:   f.hospital,
		InitialDeposit: deposit,
		Campaign:       rec.Campaign(datum.TimeToPosix(time.Now()), a.logger),
	}, nil
}

func txDonateCommand(dryRun *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "donate <campaign-id> <ada>",
		Short: "Contribute to an active campaign",
		Args:  cobra.ExactArgs(2),
		RunE: txRunner(dryRun, func(
			ctx context.Context,
			_ *app,
			b *txbuilder.Builder,
			w *wallet.KeyWallet,
			args []string,
		) (*txbuilder.UnsignedTx, error) {
			id, err := parseUint("campaign id", args[0])
			if err != nil {
				return nil, err
			}
			amount, err := parseAda(args[1])
			if err != nil {
				return nil, err
			}
			return b.Donate(ctx, w, id, amount)
		}),
	}
}

func txClaimCommand(dryRun *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "claim <campaign-id> <percentage>",
		Short: "Claim the funds of a reached milestone",
		Args:  cobra.ExactArgs(2),
		RunE: txRunner(dryRun, func(
			ctx context.Context,
			_ *app,
			b *txbuilder.Builder,
			w *wallet.KeyWallet,
			args []string,
		) (*txbuilder.UnsignedTx, error) {
			id, err := parseUint("campaign id", args[0])
			if err != nil {
				return nil, err
			}
			percentage, err := parseUint("percentage", args[1])
			if err != nil {
				return nil, err
			}
			return b.ClaimMilestone(ctx, w, id, percentage)
		}),
	}
}

func txRefundCommand(dryRun *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "refund <campaign-id> <contributor-key-hash> <ada>",
		Short: "Refund a contributor of a cancelled or expired campaign",
		Args:  cobra.ExactArgs(3),
		RunE: txRunner(dryRun, func(
			ctx context.Context,
			_ *app,
			b *txbuilder.Builder,
			w *wallet.KeyWallet,
			args []string,
		) (*txbuilder.UnsignedTx, error) {
			id, err := parseUint("campaign id", args[0])
			if err != nil {
				return nil, err
			}
			contributor, err := parseKeyHash("contributor", args[1])
			if err != nil {
				return nil, err
			}
			amount, err := parseAda(args[2])
			if err != nil {
				return nil, err
			}
			return b.Refund(ctx, w, id, contributor, amount)
		}),
	}
}

type transitionFunc func(
	b *txbuilder.Builder,
	ctx context.Context,
	w wallet.Wallet,
	campaignId uint64,
) (*txbuilder.UnsignedTx, error)

func txTransitionCommand(
	dryRun *bool,
	use string,
	short string,
	transition transitionFunc,
) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <campaign-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: txRunner(dryRun, func(
			ctx context.Context,
			_ *app,
			b *txbuilder.Builder,
			w *wallet.KeyWallet,
			args []string,
		) (*txbuilder.UnsignedTx, error) {
			id, err := parseUint("campaign id", args[0])
			if err != nil {
				return nil, err
			}
			return transition(b, ctx, w, id)
		}),
	}
}

func txRegisterCommand(dryRun *bool, kind datum.TokenKind) *cobra.Command {
	return &cobra.Command{
		Use:   "register-" + kind.String() + " <name>",
		Short: "Mint the " + kind.String() + " authorization token using the admin token",
		Args:  cobra.ExactArgs(1),
		RunE: txRunner(dryRun, func(
			ctx context.Context,
			_ *app,
			b *txbuilder.Builder,
			w *wallet.KeyWallet,
			args []string,
		) (*txbuilder.UnsignedTx, error) {
			if kind == datum.TokenKindPatient {
				return b.RegisterPatient(ctx, w, args[0])
			}
			return b.RegisterHospital(ctx, w, args[0])
		}),
	}
}

func txBurnCommand(dryRun *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "burn <hospital|patient> <name>",
		Short: "Burn an authorization token held by the wallet",
		Args:  cobra.ExactArgs(2),
		RunE: txRunner(dryRun, func(
			ctx context.Context,
			_ *app,
			b *txbuilder.Builder,
			w *wallet.KeyWallet,
			args []string,
		) (*txbuilder.UnsignedTx, error) {
			kind, err := datum.ParseTokenKind(args[0])
			if err != nil {
				return nil, err
			}
			return b.BurnToken(ctx, w, kind, args[1])
		}),
	}
}
