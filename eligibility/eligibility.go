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

// Package eligibility evaluates campaign state transitions, milestone
// claims and refunds against a campaign datum. Rejections are reported as
// values, never as errors.
package eligibility

import (
	"fmt"
	"math"
	"math/big"
	"time"

	"github.com/medifund/medifund/datum"
)

// ClaimCooldown is the minimum delay between two milestone claims
const ClaimCooldown = 7 * 24 * time.Hour

// Result is the outcome of an eligibility check
type Result struct {
	Allowed bool
	Reason  string
}

func allowed() Result {
	return Result{Allowed: true}
}

func denied(format string, args ...any) Result {
	return Result{Reason: fmt.Sprintf(format, args...)}
}

var transitions = map[datum.Status][]datum.Status{
	datum.StatusActive: {
		datum.StatusPaused,
		datum.StatusCompleted,
		datum.StatusCancelled,
	},
	datum.StatusPaused: {
		datum.StatusActive,
		datum.StatusCancelled,
	},
}

// CanTransition returns true if the lifecycle allows moving between the
// given states
func CanTransition(from, to datum.Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// CanClaimMilestone checks whether the milestone at the given percentage
// may be claimed at time now
func CanClaimMilestone(c *datum.Campaign, percentage uint64, now time.Time) Result {
	idx, ok := c.Milestone(percentage)
	if !ok {
		return denied("no milestone at %d%%", percentage)
	}
	if c.Milestones[idx].Claimed {
		return denied("milestone %d%% already claimed", percentage)
	}
	if c.Status != datum.StatusActive {
		return denied("campaign is %s", c.Status)
	}
	nowMs := datum.TimeToPosix(now)
	if nowMs > c.Deadline {
		return denied("campaign deadline has passed")
	}
	if !reachedPercentage(c, percentage) {
		return denied(
			"campaign has raised %d of the %d lovelace needed for %d%%",
			c.CurrentFunds,
			requiredFunds(c, percentage),
			percentage,
		)
	}
	if last := c.LastClaimTime(); last > 0 {
		next := last + ClaimCooldown.Milliseconds()
		if nowMs < next {
			return denied(
				"claim cooldown active until %s",
				datum.PosixToTime(next).UTC().Format(time.RFC3339),
			)
		}
	}
	return allowed()
}

// ClaimableAmount is the amount released by claiming the milestone, capped
// at the unclaimed funds
func ClaimableAmount(c *datum.Campaign, percentage uint64) uint64 {
	return min(requiredFunds(c, percentage), c.Available())
}

// CanRequestRefund checks whether contributors may be refunded at time now
func CanRequestRefund(c *datum.Campaign, now time.Time) Result {
	switch c.Status {
	case datum.StatusCancelled, datum.StatusPaused:
		return allowed()
	case datum.StatusActive:
		if !IsExpired(c, now) {
			return denied("campaign is still running")
		}
		if c.CurrentFunds >= c.TotalGoal {
			return denied("campaign reached its goal")
		}
		return allowed()
	default:
		return denied("campaign is %s", c.Status)
	}
}

// RefundableAmount is the total that can still be returned to contributors
func RefundableAmount(c *datum.Campaign) uint64 {
	return c.Available()
}

// PercentFunded returns the funding progress as a percentage, which may
// exceed 100
func PercentFunded(c *datum.Campaign) float64 {
	if c.TotalGoal == 0 {
		return 0
	}
	return float64(c.CurrentFunds) * 100 / float64(c.TotalGoal)
}

// RemainingAmount returns the lovelace still needed to reach the goal
func RemainingAmount(c *datum.Campaign) uint64 {
	if c.CurrentFunds >= c.TotalGoal {
		return 0
	}
	return c.TotalGoal - c.CurrentFunds
}

// Countdown is the time left until the deadline
type Countdown struct {
	Days    int64
	Hours   int64
	Minutes int64
}

func (c Countdown) String() string {
	return fmt.Sprintf("%dd %dh %dm", c.Days, c.Hours, c.Minutes)
}

// TimeRemaining returns the time left until the deadline, or a zero
// countdown once it has passed
func TimeRemaining(c *datum.Campaign, now time.Time) Countdown {
	left := c.Deadline - datum.TimeToPosix(now)
	if left <= 0 {
		return Countdown{}
	}
	d := time.Duration(left) * time.Millisecond
	return Countdown{
		Days:    int64(d / (24 * time.Hour)),
		Hours:   int64(d % (24 * time.Hour) / time.Hour),
		Minutes: int64(d % time.Hour / time.Minute),
	}
}

// IsExpired returns true once now is past the deadline
func IsExpired(c *datum.Campaign, now time.Time) bool {
	return datum.TimeToPosix(now) > c.Deadline
}

// requiredFunds is floor(goal * percentage / 100)
func requiredFunds(c *datum.Campaign, percentage uint64) uint64 {
	ret := new(big.Int).SetUint64(c.TotalGoal)
	ret.Mul(ret, new(big.Int).SetUint64(percentage))
	ret.Quo(ret, big.NewInt(100))
	if !ret.IsUint64() {
		return math.MaxUint64
	}
	return ret.Uint64()
}

// reachedPercentage checks funds*100 >= percentage*goal
func reachedPercentage(c *datum.Campaign, percentage uint64) bool {
	funds := new(big.Int).SetUint64(c.CurrentFunds)
	funds.Mul(funds, big.NewInt(100))
	target := new(big.Int).SetUint64(c.TotalGoal)
	target.Mul(target, new(big.Int).SetUint64(percentage))
	return funds.Cmp(target) >= 0
}
