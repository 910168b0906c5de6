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
	"slices"
	"time"

	"github.com/medifund/medifund/datum"
	"github.com/medifund/medifund/query"
	"github.com/spf13/cobra"
)

func campaignsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "campaigns",
		Short: "Query campaigns",
	}
	cmd.AddCommand(campaignsListCommand())
	cmd.AddCommand(campaignsShowCommand())
	return cmd
}

func campaignsListCommand() *cobra.Command {
	var status, creator string
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List campaigns, including locally submitted ones not yet on chain",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := appFromCommand(cmd)
			if err != nil {
				return err
			}
			defer a.close()
			campaigns, err := a.scanner.MergeWithCache(cmd.Context())
			if err != nil {
				return err
			}
			if status != "" {
				s, err := datum.ParseStatus(status)
				if err != nil {
					return err
				}
				campaigns = slices.DeleteFunc(campaigns, func(c query.CampaignUtxo) bool {
					return c.Campaign.Status != s
				})
			}
			if creator != "" {
				keyHash, err := parseKeyHash("creator", creator)
				if err != nil {
					return err
				}
				campaigns = slices.DeleteFunc(campaigns, func(c query.CampaignUtxo) bool {
					return c.Campaign.Creator != keyHash
				})
			}
			slices.SortFunc(campaigns, func(x, y query.CampaignUtxo) int {
				if x.Campaign.CampaignId < y.Campaign.CampaignId {
					return -1
				}
				if x.Campaign.CampaignId > y.Campaign.CampaignId {
					return 1
				}
				return 0
			})
			now := time.Now()
			if jsonOutput {
				views := make([]campaignView, 0, len(campaigns))
				for _, c := range campaigns {
					views = append(views, newCampaignView(c, now))
				}
				return writeJSON(os.Stdout, views)
			}
			return writeCampaignTable(os.Stdout, campaigns, now)
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "only show campaigns in this status")
	cmd.Flags().StringVar(&creator, "creator", "", "only show campaigns created by this key hash")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "write JSON output")
	return cmd
}

func campaignsShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <campaign-id>",
		Short: "Show a campaign",
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
			return writeJSON(os.Stdout, newCampaignView(*c, time.Now()))
		},
	}
}
