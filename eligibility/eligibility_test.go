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

package eligibility

import (
	"testing"
	"time"

	"github.com/medifund/medifund/datum"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

func scenarioCampaign() *datum.Campaign {
	return &datum.Campaign{
		CampaignId:   1,
		TotalGoal:    1_000_000_000,
		CurrentFunds: 500_000_000,
		Status:       datum.StatusActive,
		Deadline:     datum.TimeToPosix(testNow.Add(30 * 24 * time.Hour)),
		Milestones: []datum.Milestone{
			{Percentage: 25},
			{Percentage: 50},
			{Percentage: 75},
			{Percentage: 100},
		},
		CreatedAt:   datum.TimeToPosix(testNow),
		LastUpdated: datum.TimeToPosix(testNow),
	}
}

func claim(c *datum.Campaign, percentage uint64, at time.Time) {
	idx, ok := c.Milestone(percentage)
	if !ok {
		panic("missing milestone")
	}
	amount := ClaimableAmount(c, percentage)
	claimDate := datum.TimeToPosix(at)
	c.Milestones[idx].Claimed = true
	c.Milestones[idx].ClaimDate = &claimDate
	c.Milestones[idx].AmountClaimed = amount
	c.TotalClaimed += amount
}

func TestClaimScenarioFundingThreshold(t *testing.T) {
	c := scenarioCampaign()
	assert.True(t, CanClaimMilestone(c, 25, testNow).Allowed)
	assert.True(t, CanClaimMilestone(c, 50, testNow).Allowed)
	res := CanClaimMilestone(c, 75, testNow)
	assert.False(t, res.Allowed)
	assert.Contains(t, res.Reason, "75%")
}

func TestClaimNotSequential(t *testing.T) {
	c := scenarioCampaign()
	// 50% may be claimed before 25% since its own threshold is met
	assert.True(t, CanClaimMilestone(c, 50, testNow).Allowed)
	c.CurrentFunds = 200_000_000
	// Neither threshold is met now
	assert.False(t, CanClaimMilestone(c, 25, testNow).Allowed)
	assert.False(t, CanClaimMilestone(c, 50, testNow).Allowed)
	c.CurrentFunds = 250_000_000
	assert.True(t, CanClaimMilestone(c, 25, testNow).Allowed)
	assert.False(t, CanClaimMilestone(c, 50, testNow).Allowed)
}

func TestClaimedNeverClaimable(t *testing.T) {
	for _, pct := range []uint64{25, 50, 75, 100} {
		c := scenarioCampaign()
		c.CurrentFunds = c.TotalGoal
		claim(c, pct, testNow.Add(-30*24*time.Hour))
		for _, at := range []time.Time{
			testNow,
			testNow.Add(10 * 24 * time.Hour),
		} {
			res := CanClaimMilestone(c, pct, at)
			assert.False(t, res.Allowed, "pct %d", pct)
			assert.Contains(t, res.Reason, "already claimed")
		}
	}
}

func TestClaimCooldownBoundary(t *testing.T) {
	c := scenarioCampaign()
	claim(c, 25, testNow)
	cooldownEnd := testNow.Add(ClaimCooldown)
	res := CanClaimMilestone(c, 50, cooldownEnd.Add(-time.Millisecond))
	assert.False(t, res.Allowed)
	assert.Contains(t, res.Reason, "cooldown")
	assert.True(t, CanClaimMilestone(c, 50, cooldownEnd).Allowed)
}

func TestClaimCooldownUsesLatestClaim(t *testing.T) {
	c := scenarioCampaign()
	c.CurrentFunds = c.TotalGoal
	c.Deadline = datum.TimeToPosix(testNow.Add(90 * 24 * time.Hour))
	claim(c, 50, testNow.Add(10*24*time.Hour))
	claim(c, 25, testNow)
	at := testNow.Add(10*24*time.Hour + ClaimCooldown - time.Millisecond)
	assert.False(t, CanClaimMilestone(c, 75, at).Allowed)
	assert.True(t, CanClaimMilestone(c, 75, at.Add(time.Millisecond)).Allowed)
}

func TestClaimStatusAndDeadline(t *testing.T) {
	c := scenarioCampaign()
	c.Status = datum.StatusPaused
	assert.False(t, CanClaimMilestone(c, 25, testNow).Allowed)
	c.Status = datum.StatusActive
	deadline := datum.PosixToTime(c.Deadline)
	assert.True(t, CanClaimMilestone(c, 25, deadline).Allowed)
	assert.False(t, CanClaimMilestone(c, 25, deadline.Add(time.Millisecond)).Allowed)
	assert.False(t, CanClaimMilestone(c, 30, testNow).Allowed)
}

func TestClaimableAmountBound(t *testing.T) {
	goals := []uint64{1, 3, 999, 1_000_000_000, 1<<63 + 7}
	percentages := []uint64{1, 25, 33, 50, 99, 100}
	for _, goal := range goals {
		for _, pct := range percentages {
			for _, claimed := range []uint64{0, goal / 2, goal} {
				c := &datum.Campaign{
					TotalGoal:    goal,
					CurrentFunds: goal,
					TotalClaimed: claimed,
				}
				amount := ClaimableAmount(c, pct)
				assert.LessOrEqual(t, amount, c.CurrentFunds-c.TotalClaimed)
				if claimed == goal {
					assert.Equal(t, uint64(0), amount)
				}
			}
		}
	}
	c := scenarioCampaign()
	assert.Equal(t, uint64(250_000_000), ClaimableAmount(c, 25))
	assert.Equal(t, uint64(500_000_000), ClaimableAmount(c, 100))
}

func TestCanTransition(t *testing.T) {
	testDefs := []struct {
		from, to datum.Status
		allowed  bool
	}{
		{datum.StatusActive, datum.StatusPaused, true},
		{datum.StatusActive, datum.StatusCompleted, true},
		{datum.StatusActive, datum.StatusCancelled, true},
		{datum.StatusPaused, datum.StatusActive, true},
		{datum.StatusPaused, datum.StatusCancelled, true},
		{datum.StatusPaused, datum.StatusCompleted, false},
		{datum.StatusActive, datum.StatusActive, false},
		{datum.StatusCompleted, datum.StatusActive, false},
		{datum.StatusCancelled, datum.StatusActive, false},
		{datum.StatusCancelled, datum.StatusPaused, false},
	}
	for _, testDef := range testDefs {
		assert.Equal(
			t,
			testDef.allowed,
			CanTransition(testDef.from, testDef.to),
			"%s -> %s",
			testDef.from,
			testDef.to,
		)
	}
}

func TestCanRequestRefund(t *testing.T) {
	c := scenarioCampaign()
	c.Status = datum.StatusCancelled
	for _, funds := range []uint64{0, 500_000_000, 2_000_000_000} {
		c.CurrentFunds = funds
		assert.True(t, CanRequestRefund(c, testNow).Allowed)
	}

	c = scenarioCampaign()
	afterDeadline := datum.PosixToTime(c.Deadline).Add(time.Millisecond)
	assert.True(t, CanRequestRefund(c, afterDeadline).Allowed)
	c.CurrentFunds = c.TotalGoal
	res := CanRequestRefund(c, afterDeadline)
	assert.False(t, res.Allowed)
	assert.NotEmpty(t, res.Reason)

	c = scenarioCampaign()
	assert.False(t, CanRequestRefund(c, testNow).Allowed)
	c.Status = datum.StatusPaused
	assert.True(t, CanRequestRefund(c, testNow).Allowed)
	c.Status = datum.StatusCompleted
	assert.False(t, CanRequestRefund(c, afterDeadline).Allowed)
}

func TestProgressViews(t *testing.T) {
	c := scenarioCampaign()
	assert.InDelta(t, 50.0, PercentFunded(c), 0.0001)
	assert.Equal(t, uint64(500_000_000), RemainingAmount(c))
	assert.Equal(t, uint64(500_000_000), RefundableAmount(c))
	left := TimeRemaining(c, testNow.Add(-90*time.Minute))
	assert.Equal(t, Countdown{Days: 30, Hours: 1, Minutes: 30}, left)
	assert.Equal(t, "30d 1h 30m", left.String())
	assert.False(t, IsExpired(c, testNow))

	expired := datum.PosixToTime(c.Deadline).Add(time.Second)
	assert.Equal(t, Countdown{}, TimeRemaining(c, expired))
	assert.True(t, IsExpired(c, expired))

	c.CurrentFunds = 2 * c.TotalGoal
	assert.Equal(t, uint64(0), RemainingAmount(c))
	assert.InDelta(t, 200.0, PercentFunded(c), 0.0001)
	require.Equal(t, 0.0, PercentFunded(&datum.Campaign{}))
}
