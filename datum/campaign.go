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
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"time"

	lcommon "github.com/blinklabs-io/gouroboros/ledger/common"
	"github.com/blinklabs-io/plutigo/data"
)

const (
	// LovelacePerAda is the fixed multiplier between whole-coin amounts and
	// the base unit carried in datums
	LovelacePerAda = 1_000_000

	campaignFieldCount  = 17
	milestoneFieldCount = 4
)

var hashFieldNames = []string{
	"creator",
	"beneficiary",
	"medical_authority",
	"emergency_contact",
}

var (
	ErrInvalidCampaign = errors.New("invalid campaign")
	ErrEmptyDatum      = errors.New("empty datum")
)

// Milestone is a funding percentage checkpoint
type Milestone struct {
	Percentage    uint64
	Claimed       bool
	ClaimDate     *int64
	AmountClaimed uint64
}

func (m Milestone) ToPlutusData() data.PlutusData {
	return data.NewConstr(
		0,
		uintData(m.Percentage),
		boolData(m.Claimed),
		optionData(m.ClaimDate),
		uintData(m.AmountClaimed),
	)
}

// Campaign is the on-chain campaign datum. Timestamps are POSIX
// milliseconds, amounts are lovelace.
type Campaign struct {
	CampaignId           uint64
	Title                string
	Description          string
	TotalGoal            uint64
	Creator              lcommon.Blake2b224
	Beneficiary          lcommon.Blake2b224
	MedicalAuthority     lcommon.Blake2b224
	EmergencyContact     lcommon.Blake2b224
	CurrentFunds         uint64
	TotalClaimed         uint64
	Deadline             int64
	Status               Status
	Milestones           []Milestone
	MinContribution      uint64
	VerificationRequired bool
	CreatedAt            int64
	LastUpdated          int64
}

func (c *Campaign) ToPlutusData() data.PlutusData {
	milestones := make([]data.PlutusData, 0, len(c.Milestones))
	for _, m := range c.Milestones {
		milestones = append(milestones, m.ToPlutusData())
	}
	return data.NewConstr(
		0,
		uintData(c.CampaignId),
		bytesData([]byte(c.Title)),
		bytesData([]byte(c.Description)),
		uintData(c.TotalGoal),
		c.Creator.ToPlutusData(),
		c.Beneficiary.ToPlutusData(),
		c.MedicalAuthority.ToPlutusData(),
		c.EmergencyContact.ToPlutusData(),
		uintData(c.CurrentFunds),
		uintData(c.TotalClaimed),
		intData(c.Deadline),
		c.Status.ToPlutusData(),
		data.NewList(milestones...),
		uintData(c.MinContribution),
		boolData(c.VerificationRequired),
		intData(c.CreatedAt),
		intData(c.LastUpdated),
	)
}

// Cbor returns the CBOR encoding of the datum
func (c *Campaign) Cbor() ([]byte, error) {
	return data.Encode(c.ToPlutusData())
}

// Clone returns a deep copy suitable for building a successor datum
func (c *Campaign) Clone() *Campaign {
	ret := *c
	ret.Milestones = make([]Milestone, len(c.Milestones))
	for i, m := range c.Milestones {
		ret.Milestones[i] = m
		if m.ClaimDate != nil {
			tmp := *m.ClaimDate
			ret.Milestones[i].ClaimDate = &tmp
		}
	}
	return &ret
}

// Milestone returns the index of the milestone with the given percentage
func (c *Campaign) Milestone(percentage uint64) (int, bool) {
	idx := slices.IndexFunc(c.Milestones, func(m Milestone) bool {
		return m.Percentage == percentage
	})
	return idx, idx >= 0
}

// LastClaimTime returns the most recent claim date across all claimed
// milestones, or 0 when nothing has been claimed
func (c *Campaign) LastClaimTime() int64 {
	var ret int64
	for _, m := range c.Milestones {
		if m.Claimed && m.ClaimDate != nil && *m.ClaimDate > ret {
			ret = *m.ClaimDate
		}
	}
	return ret
}

// Available returns the funds held for the campaign that have not been
// claimed yet
func (c *Campaign) Available() uint64 {
	if c.TotalClaimed > c.CurrentFunds {
		return 0
	}
	return c.CurrentFunds - c.TotalClaimed
}

func (c *Campaign) DeadlineTime() time.Time {
	return PosixToTime(c.Deadline)
}

// Validate checks the datum invariants
func (c *Campaign) Validate() error {
	if c.TotalGoal == 0 {
		return fmt.Errorf("%w: total goal must be positive", ErrInvalidCampaign)
	}
	if !c.Status.Valid() {
		return fmt.Errorf("%w: unknown status %d", ErrInvalidCampaign, c.Status)
	}
	if c.CurrentFunds < c.TotalClaimed {
		return fmt.Errorf(
			"%w: current funds %d below total claimed %d",
			ErrInvalidCampaign,
			c.CurrentFunds,
			c.TotalClaimed,
		)
	}
	if c.TotalClaimed > c.TotalGoal {
		return fmt.Errorf(
			"%w: total claimed %d exceeds goal %d",
			ErrInvalidCampaign,
			c.TotalClaimed,
			c.TotalGoal,
		)
	}
	var prev uint64
	for i, m := range c.Milestones {
		if m.Percentage == 0 || m.Percentage > 100 {
			return fmt.Errorf(
				"%w: milestone %d percentage %d out of range",
				ErrInvalidCampaign,
				i,
				m.Percentage,
			)
		}
		if i > 0 && m.Percentage <= prev {
			return fmt.Errorf(
				"%w: milestone percentages must be strictly increasing",
				ErrInvalidCampaign,
			)
		}
		if m.Claimed && m.ClaimDate == nil {
			return fmt.Errorf(
				"%w: claimed milestone %d%% has no claim date",
				ErrInvalidCampaign,
				m.Percentage,
			)
		}
		prev = m.Percentage
	}
	return nil
}

// DecodeCampaign decodes a campaign datum. It accepts parsed Plutus data,
// raw CBOR bytes, a hex encoded CBOR string, or any provider value exposing
// its CBOR encoding.
func DecodeCampaign(v any) (*Campaign, error) {
	var pd data.PlutusData
	switch tmp := v.(type) {
	case nil:
		return nil, ErrEmptyDatum
	case data.PlutusData:
		pd = tmp
	case []byte:
		if len(tmp) == 0 {
			return nil, ErrEmptyDatum
		}
		decoded, err := data.Decode(tmp)
		if err != nil {
			return nil, fmt.Errorf("decode datum CBOR: %w", err)
		}
		pd = decoded
	case string:
		raw, err := hex.DecodeString(tmp)
		if err != nil {
			return nil, fmt.Errorf("decode datum hex: %w", err)
		}
		return DecodeCampaign(raw)
	case interface{ Cbor() []byte }:
		return DecodeCampaign(tmp.Cbor())
	default:
		return nil, fmt.Errorf("unsupported datum representation %T", v)
	}
	return decodeCampaignData(pd)
}

// TryDecodeCampaign is DecodeCampaign without the error. It returns nil for
// anything that is not a well-formed campaign datum.
func TryDecodeCampaign(v any) (ret *Campaign) {
	defer func() {
		if r := recover(); r != nil {
			ret = nil
		}
	}()
	c, err := DecodeCampaign(v)
	if err != nil {
		return nil
	}
	return c
}

func decodeCampaignData(pd data.PlutusData) (*Campaign, error) {
	constr, err := asConstr(pd, 0, campaignFieldCount)
	if err != nil {
		return nil, fmt.Errorf("campaign datum: %w", err)
	}
	f := constr.Fields
	var c Campaign
	var errs []error
	decodeField := func(name string, fn func() error) {
		if err := fn(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	decodeField("campaign_id", func() (err error) {
		c.CampaignId, err = asUint(f[0])
		return err
	})
	decodeField("title", func() error {
		b, err := asBytes(f[1])
		c.Title = string(b)
		return err
	})
	decodeField("description", func() error {
		b, err := asBytes(f[2])
		c.Description = string(b)
		return err
	})
	decodeField("total_goal", func() (err error) {
		c.TotalGoal, err = asUint(f[3])
		return err
	})
	for i, dest := range []*lcommon.Blake2b224{
		&c.Creator,
		&c.Beneficiary,
		&c.MedicalAuthority,
		&c.EmergencyContact,
	} {
		decodeField(hashFieldNames[i], func() (err error) {
			*dest, err = asHash(f[4+i])
			return err
		})
	}
	decodeField("current_funds", func() (err error) {
		c.CurrentFunds, err = asUint(f[8])
		return err
	})
	decodeField("total_claimed", func() (err error) {
		c.TotalClaimed, err = asUint(f[9])
		return err
	})
	decodeField("deadline", func() (err error) {
		c.Deadline, err = asInt(f[10])
		return err
	})
	decodeField("status", func() (err error) {
		c.Status, err = decodeStatus(f[11])
		return err
	})
	decodeField("milestones", func() error {
		items, err := asList(f[12])
		if err != nil {
			return err
		}
		c.Milestones = make([]Milestone, 0, len(items))
		for _, item := range items {
			m, err := decodeMilestone(item)
			if err != nil {
				return err
			}
			c.Milestones = append(c.Milestones, m)
		}
		return nil
	})
	decodeField("min_contribution", func() (err error) {
		c.MinContribution, err = asUint(f[13])
		return err
	})
	decodeField("verification_required", func() (err error) {
		c.VerificationRequired, err = asBool(f[14])
		return err
	})
	decodeField("created_at", func() (err error) {
		c.CreatedAt, err = asInt(f[15])
		return err
	})
	decodeField("last_updated", func() (err error) {
		c.LastUpdated, err = asInt(f[16])
		return err
	})
	if len(errs) > 0 {
		return nil, fmt.Errorf("campaign datum: %w", errors.Join(errs...))
	}
	return &c, nil
}

func decodeMilestone(pd data.PlutusData) (Milestone, error) {
	var m Milestone
	constr, err := asConstr(pd, 0, milestoneFieldCount)
	if err != nil {
		return m, fmt.Errorf("milestone: %w", err)
	}
	if m.Percentage, err = asUint(constr.Fields[0]); err != nil {
		return m, fmt.Errorf("milestone percentage: %w", err)
	}
	if m.Claimed, err = asBool(constr.Fields[1]); err != nil {
		return m, fmt.Errorf("milestone claimed: %w", err)
	}
	if m.ClaimDate, err = asOption(constr.Fields[2]); err != nil {
		return m, fmt.Errorf("milestone claim date: %w", err)
	}
	if m.AmountClaimed, err = asUint(constr.Fields[3]); err != nil {
		return m, fmt.Errorf("milestone amount claimed: %w", err)
	}
	return m, nil
}

// TimeToPosix converts a time to the POSIX millisecond representation used
// on chain
func TimeToPosix(t time.Time) int64 {
	return t.UnixMilli()
}

func PosixToTime(ms int64) time.Time {
	return time.UnixMilli(ms)
}
