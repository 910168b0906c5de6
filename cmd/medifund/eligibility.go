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
	"os"
	"time"

	"github.com/medifund/medifund/eligibility"
	"github.com/spf13/cobra"
)

type eligibilityView struct {
	CampaignId uint64 `json:"campaignId"`
	Action     string `json:"action"`
	Allowed    bool   `json:"allowed"`
	Reason     string `json:"reason,omitempty"`
	Amount     uint64 `json:"amount,omitempty"`
}

func eligibilityCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eligibility",
		Short: "Check whether a campaign action is currently allowed",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "claim <campaign-id> <percentage>",
			Short: "Check a milestone claim",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseUint("campaign id", args[0])
				if err != nil {
					return err
				}
				percentage, err := parseUint("percentage", args[1])
				if err != nil {
					return err
				}
				a, err := appFromCommand(cmd)
				if err != nil {
					return err
				}
				defer a.close()
				c, err := a.scanner.GetCampaign(cmd.Context(), id)
				if err != nil {
					return err
				}
				res := eligibility.CanClaimMilestone(c.Campaign, percentage, time.Now())
				view := eligibilityView{
					CampaignId: id,
					Action:     "claim",
					Allowed:    res.Allowed,
					Reason:     res.Reason,
				}
				if res.Allowed {
					view.Amount = eligibility.ClaimableAmount(c.Campaign, percentage)
				}
				return writeJSON(os.Stdout, view)
			},
		},
		&cobra.Command{
			Use:   "refund <campaign-id>",
			Short: "Check a refund request",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseUint("campaign id", args[0])
				if err != nil {
					return err
				}
				a, err := appFromCommand(cmd)
				if err != nil {
					return err
				}
				defer a.close()
				c, err := a.scanner.GetCampaign(cmd.Context(), id)
				if err != nil {
					return err
				}
				res := eligibility.CanRequestRefund(c.Campaign, time.Now())
				view := eligibilityView{
					CampaignId: id,
					Action:     "refund",
					Allowed:    res.Allowed,
					Reason:     res.Reason,
				}
				if res.Allowed {
					view.Amount = eligibility.RefundableAmount(c.Campaign)
				}
				return writeJSON(os.Stdout, view)
			},
		},
	)
	return cmd
}
