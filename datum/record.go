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

package datum

import (
	"fmt"
	"io"
	"log/slog"
	"math"

	lcommon "github.com/blinklabs-io/gouroboros/ledger/common"
	"github.com/blinklabs-io/plutigo/data"
)

// Defaults substituted by EncodeCampaignRecord for missing or unusable values
const (
	DefaultTotalGoal       uint64 = 1_000 * LovelacePerAda
	DefaultMinContribution uint64 = 1 * LovelacePerAda
	// DefaultCampaignDuration is the deadline offset applied when none is
	// given, in milliseconds
	DefaultCampaignDuration int64 = 30 * 24 * 60 * 60 * 1000
)

// DefaultMilestones returns the milestone plan used when a record carries
// none
func DefaultMilestones() []Milestone {
	return []Milestone{
		{Percentage: 25},
		{Percentage: 50},
		{Percentage: 75},
		{Percentage: 100},
	}
}

// AdaToLovelace converts a whole-coin amount to lovelace
func AdaToLovelace(ada float64) (uint64, error) {
	ret, ok := clampUint(math.Round(ada * LovelacePerAda))
	if !ok {
		return 0, fmt.Errorf("amount %v cannot be represented in lovelace", ada)
	}
	return ret, nil
}

// EncodeCampaign returns the Plutus data form of a campaign datum
func EncodeCampaign(c Campaign) data.PlutusData {
	return c.ToPlutusData()
}

// Record is the loosely typed campaign shape handed over by application
// layers. Amounts are in ADA.
type Record struct {
	CampaignId           *uint64
	Title                *string
	Description          *string
	TotalGoalAda         *float64
	Creator              *lcommon.Blake2b224
	Beneficiary          *lcommon.Blake2b224
	MedicalAuthority     *lcommon.Blake2b224
	EmergencyContact     *lcommon.Blake2b224
	CurrentFundsAda      *float64
	TotalClaimedAda      *float64
	Deadline             *float64
	Status               *Status
	Milestones           []Milestone
	MinContributionAda   *float64
	VerificationRequired *bool
	CreatedAt            *float64
	LastUpdated          *float64
}

// Campaign resolves the record to a campaign datum. Fields that are
// missing or not representable get a default and are reported on the
// logger. now is used for missing timestamps.
func (r Record) Campaign(now int64, logger *slog.Logger) Campaign {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	logger = logger.With("component", "datum")
	substituted := func(field string, value any) {
		logger.Warn(
			"substituting default for campaign field",
			"field", field,
			"default", value,
		)
	}
	ada := func(field string, v *float64, def uint64) uint64 {
		if v == nil {
			substituted(field, def)
			return def
		}
		ret, err := AdaToLovelace(*v)
		if err != nil {
			substituted(field, def)
			return def
		}
		return ret
	}
	timestamp := func(field string, v *float64, def int64) int64 {
		if v == nil {
			substituted(field, def)
			return def
		}
		ret, ok := clampInt(*v)
		if !ok || ret < 0 {
			substituted(field, def)
			return def
		}
		return ret
	}
	hash := func(field string, v *lcommon.Blake2b224) lcommon.Blake2b224 {
		if v == nil {
			substituted(field, "")
			return lcommon.Blake2b224{}
		}
		return *v
	}
	var c Campaign
	if r.CampaignId != nil {
		c.CampaignId = *r.CampaignId
	} else {
		substituted("campaign_id", 0)
	}
	if r.Title != nil {
		c.Title = *r.Title
	} else {
		substituted("title", "")
	}
	if r.Description != nil {
		c.Description = *r.Description
	} else {
		substituted("description", "")
	}
	c.TotalGoal = ada("total_goal", r.TotalGoalAda, DefaultTotalGoal)
	if c.TotalGoal == 0 {
		substituted("total_goal", DefaultTotalGoal)
		c.TotalGoal = DefaultTotalGoal
	}
	c.Creator = hash("creator", r.Creator)
	c.Beneficiary = hash("beneficiary", r.Beneficiary)
	c.MedicalAuthority = hash("medical_authority", r.MedicalAuthority)
	c.EmergencyContact = hash("emergency_contact", r.EmergencyContact)
	c.CurrentFunds = ada("current_funds", r.CurrentFundsAda, 0)
	c.TotalClaimed = ada("total_claimed", r.TotalClaimedAda, 0)
	c.Deadline = timestamp("deadline", r.Deadline, now+DefaultCampaignDuration)
	if r.Status != nil && r.Status.Valid() {
		c.Status = *r.Status
	} else {
		substituted("status", StatusActive.String())
		c.Status = StatusActive
	}
	if len(r.Milestones) > 0 {
		c.Milestones = r.Milestones
	} else {
		substituted("milestones", "25/50/75/100")
		c.Milestones = DefaultMilestones()
	}
	c.MinContribution = ada(
		"min_contribution",
		r.MinContributionAda,
		DefaultMinContribution,
	)
	if r.VerificationRequired != nil {
		c.VerificationRequired = *r.VerificationRequired
	} else {
		substituted("verification_required", false)
	}
	c.CreatedAt = timestamp("created_at", r.CreatedAt, now)
	c.LastUpdated = timestamp("last_updated", r.LastUpdated, now)
	return c
}

// EncodeCampaignRecord encodes a loosely typed record. It never fails:
// unusable values are replaced with defaults and logged at WARN.
func EncodeCampaignRecord(
	r Record,
	now int64,
	logger *slog.Logger,
) data.PlutusData {
	c := r.Campaign(now, logger)
	return c.ToPlutusData()
}
