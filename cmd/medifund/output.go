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
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	lcommon "github.com/blinklabs-io/gouroboros/ledger/common"
	"github.com/medifund/medifund/datum"
	"github.com/medifund/medifund/eligibility"
	"github.com/medifund/medifund/query"
)

type milestoneView struct {
	Percentage    uint64 `json:"percentage"`
	Claimed       bool   `json:"claimed"`
	ClaimDate     string `json:"claimDate,omitempty"`
	AmountClaimed uint64 `json:"amountClaimed"`
}

type campaignView struct {
	CampaignId           uint64          `json:"campaignId"`
	Utxo                 string          `json:"utxo"`
	Pending              bool            `json:"pending,omitempty"`
	Title                string          `json:"title"`
	Description          string          `json:"description"`
	Status               string          `json:"status"`
	TotalGoal            uint64          `json:"totalGoal"`
	CurrentFunds         uint64          `json:"currentFunds"`
	TotalClaimed         uint64          `json:"totalClaimed"`
	PercentFunded        float64         `json:"percentFunded"`
	Remaining            uint64          `json:"remaining"`
	TimeRemaining        string          `json:"timeRemaining"`
	Deadline             string          `json:"deadline"`
	Creator              string          `json:"creator"`
	Beneficiary          string          `json:"beneficiary"`
	MedicalAuthority     string          `json:"medicalAuthority"`
	EmergencyContact     string          `json:"emergencyContact"`
	MinContribution      uint64          `json:"minContribution"`
	VerificationRequired bool            `json:"verificationRequired"`
	Milestones           []milestoneView `json:"milestones"`
	CreatedAt            string          `json:"createdAt"`
	LastUpdated          string          `json:"lastUpdated"`
}

func posixString(ms int64) string {
	return datum.PosixToTime(ms).UTC().Format(time.RFC3339)
}

func newCampaignView(c query.CampaignUtxo, now time.Time) campaignView {
	d := c.Campaign
	ret := campaignView{
		CampaignId:           d.CampaignId,
		Utxo:                 c.Ref.String(),
		Pending:              c.Pending,
		Title:                d.Title,
		Description:          d.Description,
		Status:               d.Status.String(),
		TotalGoal:            d.TotalGoal,
		CurrentFunds:         d.CurrentFunds,
		TotalClaimed:         d.TotalClaimed,
		PercentFunded:        eligibility.PercentFunded(d),
		Remaining:            eligibility.RemainingAmount(d),
		TimeRemaining:        eligibility.TimeRemaining(d, now).String(),
		Deadline:             posixString(d.Deadline),
		Creator:              d.Creator.String(),
		Beneficiary:          d.Beneficiary.String(),
		MedicalAuthority:     d.MedicalAuthority.String(),
		EmergencyContact:     d.EmergencyContact.String(),
		MinContribution:      d.MinContribution,
		VerificationRequired: d.VerificationRequired,
		CreatedAt:            posixString(d.CreatedAt),
		LastUpdated:          posixString(d.LastUpdated),
	}
	for _, m := range d.Milestones {
		mv := milestoneView{
			Percentage:    m.Percentage,
			Claimed:       m.Claimed,
			AmountClaimed: m.AmountClaimed,
		}
		if m.ClaimDate != nil {
			mv.ClaimDate = posixString(*m.ClaimDate)
		}
		ret.Milestones = append(ret.Milestones, mv)
	}
	return ret
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeCampaignTable(w io.Writer, campaigns []query.CampaignUtxo, now time.Time) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tFUNDED\tGOAL\tCLAIMED\tTIME LEFT\tTITLE\tUTXO")
	for _, c := range campaigns {
		v := newCampaignView(c, now)
		utxo := v.Utxo
		if v.Pending {
			utxo += " (pending)"
		}
		fmt.Fprintf(
			tw,
			"%d\t%s\t%.1f%%\t%s\t%s\t%s\t%s\t%s\n",
			v.CampaignId,
			v.Status,
			v.PercentFunded,
			formatAda(v.TotalGoal),
			formatAda(v.TotalClaimed),
			v.TimeRemaining,
			v.Title,
			utxo,
		)
	}
	return tw.Flush()
}

func formatAda(lovelace uint64) string {
	return fmt.Sprintf(
		"%d.%06d",
		lovelace/datum.LovelacePerAda,
		lovelace%datum.LovelacePerAda,
	)
}

// parseAda converts a decimal ADA amount to lovelace
func parseAda(s string) (uint64, error) {
	ada, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid ADA amount %q: %w", s, err)
	}
	return datum.AdaToLovelace(ada)
}

func parseUint(name string, s string) (uint64, error) {
	ret, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, s)
	}
	return ret, nil
}

func parseKeyHash(name string, s string) (lcommon.Blake2b224, error) {
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != lcommon.Blake2b224Size {
		return lcommon.Blake2b224{}, fmt.Errorf("invalid %s key hash %q", name, s)
	}
	return lcommon.NewBlake2b224(b), nil
}
