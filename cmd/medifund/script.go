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
	"encoding/hex"
	"os"

	"github.com/spf13/cobra"
)

type scriptInfoView struct {
	Network          string `json:"network"`
	AdminPolicyId    string `json:"adminPolicyId"`
	AdminAssetName   string `json:"adminAssetName"`
	HospitalPolicyId string `json:"hospitalPolicyId"`
	PatientPolicyId  string `json:"patientPolicyId"`
	CampaignAddress  string `json:"campaignAddress"`
}

func scriptCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "script",
		Short: "Inspect the protocol validators",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "info",
		Short: "Show the policy ids and campaign script address",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := appFromCommand(cmd)
			if err != nil {
				return err
			}
			defer a.close()
			hospital, err := a.locator.HospitalRegistry()
			if err != nil {
				return err
			}
			patient, err := a.locator.PatientRegistry()
			if err != nil {
				return err
			}
			admin := a.locator.AdminToken()
			view := scriptInfoView{
				Network:          a.network.Name,
				AdminPolicyId:    admin.PolicyId.String(),
				AdminAssetName:   hex.EncodeToString(admin.AssetName),
				HospitalPolicyId: hospital.PolicyId.String(),
				PatientPolicyId:  patient.PolicyId.String(),
			}
			if patient.Address != nil {
				view.CampaignAddress = patient.Address.String()
			}
			return writeJSON(os.Stdout, view)
		},
	})
	return cmd
}
