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
	"bytes"
	"encoding/hex"
	"log/slog"
	"math"
	"math/big"
	"testing"

	lcommon "github.com/blinklabs-io/gouroboros/ledger/common"
	"github.com/blinklabs-io/plutigo/data"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testHash(b byte) lcommon.Blake2b224 {
	return lcommon.NewBlake2b224(bytes.Repeat([]byte{b}, lcommon.Blake2b224Size))
}

func testCampaign() Campaign {
	claimDate := int64(1_700_000_000_000)
	return Campaign{
		CampaignId:       42,
		Title:            "Surgery fund",
		Description:      "Post-op care",
		TotalGoal:        1_000 * LovelacePerAda,
		Creator:          testHash(0x01),
		Beneficiary:      testHash(0x02),
		MedicalAuthority: testHash(0x03),
		EmergencyContact: testHash(0x04),
		CurrentFunds:     400 * LovelacePerAda,
		TotalClaimed:     250 * LovelacePerAda,
		Deadline:         1_800_000_000_000,
		Status:           StatusActive,
		Milestones: []Milestone{
			{
				Percentage:    25,
				Claimed:       true,
				ClaimDate:     &claimDate,
				AmountClaimed: 250 * LovelacePerAda,
			},
			{Percentage: 50},
			{Percentage: 100},
		},
		MinContribution:      2 * LovelacePerAda,
		VerificationRequired: true,
		CreatedAt:            1_690_000_000_000,
		LastUpdated:          claimDate,
	}
}

func TestCampaignRoundTrip(t *testing.T) {
	statuses := []Status{
		StatusActive,
		StatusPaused,
		StatusCompleted,
		StatusCancelled,
	}
	for _, status := range statuses {
		t.Run(status.String(), func(t *testing.T) {
			c := testCampaign()
			c.Status = status
			require.NoError(t, c.Validate())
			cborData, err := c.Cbor()
			require.NoError(t, err)
			decoded, err := DecodeCampaign(cborData)
			require.NoError(t, err)
			assert.Equal(t, &c, decoded)
		})
	}
}

func TestDecodeCampaignRepresentations(t *testing.T) {
	c := testCampaign()
	cborData, err := c.Cbor()
	require.NoError(t, err)

	fromData, err := DecodeCampaign(c.ToPlutusData())
	require.NoError(t, err)
	assert.Equal(t, &c, fromData)

	fromHex, err := DecodeCampaign(hex.EncodeToString(cborData))
	require.NoError(t, err)
	assert.Equal(t, &c, fromHex)

	fromCborer, err := DecodeCampaign(rawCbor(cborData))
	require.NoError(t, err)
	assert.Equal(t, &c, fromCborer)
}

type rawCbor []byte

func (r rawCbor) Cbor() []byte { return r }

func TestDecodeCampaignEmptyMilestones(t *testing.T) {
	c := testCampaign()
	c.Milestones = []Milestone{}
	c.TotalClaimed = 0
	cborData, err := c.Cbor()
	require.NoError(t, err)
	decoded, err := DecodeCampaign(cborData)
	require.NoError(t, err)
	assert.Empty(t, decoded.Milestones)
}

func TestDecodeCampaignBadStatusTag(t *testing.T) {
	c := testCampaign()
	pd, ok := c.ToPlutusData().(*data.Constr)
	require.True(t, ok)
	pd.Fields[11] = data.NewConstr(7)
	raw, err := data.Encode(pd)
	require.NoError(t, err)
	_, err = DecodeCampaign(raw)
	require.ErrorContains(t, err, "status")
	assert.Nil(t, TryDecodeCampaign(raw))
	assert.Nil(t, TryDecodeCampaign(hex.EncodeToString(raw)))
}

func TestDecodeCampaignInvalid(t *testing.T) {
	testDefs := []struct {
		name  string
		input any
	}{
		{name: "nil", input: nil},
		{name: "empty bytes", input: []byte{}},
		{name: "garbage", input: []byte{0xff, 0x00, 0x13}},
		{name: "bad hex", input: "zz"},
		{name: "wrong constructor", input: data.NewConstr(1)},
		{
			name:  "short constructor",
			input: data.NewConstr(0, data.NewInteger(big.NewInt(1))),
		},
		{name: "integer", input: uintData(5)},
		{name: "unsupported type", input: 5},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			_, err := DecodeCampaign(testDef.input)
			require.Error(t, err)
			assert.Nil(t, TryDecodeCampaign(testDef.input))
		})
	}
}

func TestDecodeCampaignBadField(t *testing.T) {
	c := testCampaign()
	pd := c.ToPlutusData().(*data.Constr)
	// Status with an unknown ordinal
	pd.Fields[11] = data.NewConstr(9)
	_, err := DecodeCampaign(pd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status")
}

func TestCampaignValidate(t *testing.T) {
	testDefs := []struct {
		name   string
		modify func(*Campaign)
	}{
		{name: "zero goal", modify: func(c *Campaign) { c.TotalGoal = 0 }},
		{
			name:   "claimed above funds",
			modify: func(c *Campaign) { c.TotalClaimed = c.CurrentFunds + 1 },
		},
		{
			name: "claimed above goal",
			modify: func(c *Campaign) {
				c.CurrentFunds = c.TotalGoal * 2
				c.TotalClaimed = c.TotalGoal + 1
			},
		},
		{
			name: "non increasing milestones",
			modify: func(c *Campaign) {
				c.Milestones[2].Percentage = 50
			},
		},
		{
			name: "milestone above 100",
			modify: func(c *Campaign) {
				c.Milestones[2].Percentage = 101
			},
		},
		{
			name: "claimed without date",
			modify: func(c *Campaign) {
				c.Milestones[0].ClaimDate = nil
			},
		},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			c := testCampaign()
			testDef.modify(&c)
			require.ErrorIs(t, c.Validate(), ErrInvalidCampaign)
		})
	}
}

func TestCampaignClone(t *testing.T) {
	c := testCampaign()
	clone := c.Clone()
	*clone.Milestones[0].ClaimDate = 1
	clone.Milestones[1].Claimed = true
	assert.Equal(t, int64(1_700_000_000_000), *c.Milestones[0].ClaimDate)
	assert.False(t, c.Milestones[1].Claimed)
	assert.Equal(t, int64(1_700_000_000_000), c.LastClaimTime())
	assert.Equal(t, uint64(150*LovelacePerAda), c.Available())
}

func TestEncodeCampaignRecordDefaults(t *testing.T) {
	var logBuf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logBuf, nil))
	nan := math.NaN()
	inf := math.Inf(1)
	negative := -5.0
	goal := 250.5
	title := "Kidney transplant"
	now := int64(1_700_000_000_000)
	r := Record{
		Title:              &title,
		TotalGoalAda:       &goal,
		CurrentFundsAda:    &nan,
		TotalClaimedAda:    &inf,
		MinContributionAda: &negative,
	}
	pd := EncodeCampaignRecord(r, now, logger)
	c, err := DecodeCampaign(pd)
	require.NoError(t, err)
	assert.Equal(t, title, c.Title)
	assert.Equal(t, uint64(250_500_000), c.TotalGoal)
	assert.Equal(t, uint64(0), c.CurrentFunds)
	assert.Equal(t, uint64(0), c.TotalClaimed)
	assert.Equal(t, DefaultMinContribution, c.MinContribution)
	assert.Equal(t, StatusActive, c.Status)
	assert.Equal(t, DefaultMilestones(), c.Milestones)
	assert.Equal(t, now+DefaultCampaignDuration, c.Deadline)
	assert.Equal(t, now, c.CreatedAt)
	assert.Equal(t, now, c.LastUpdated)
	out := logBuf.String()
	for _, field := range []string{
		"current_funds",
		"total_claimed",
		"min_contribution",
		"creator",
		"deadline",
	} {
		assert.Contains(t, out, "field="+field)
	}
	assert.NotContains(t, out, "field=title")
	assert.NotContains(t, out, "field=total_goal")
}

func TestEncodeCampaignRecordNilLogger(t *testing.T) {
	assert.NotPanics(t, func() {
		EncodeCampaignRecord(Record{}, 0, nil)
	})
}

func TestAdaToLovelace(t *testing.T) {
	v, err := AdaToLovelace(1.5)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_500_000), v)
	_, err = AdaToLovelace(math.NaN())
	require.Error(t, err)
	_, err = AdaToLovelace(-1)
	require.Error(t, err)
}
