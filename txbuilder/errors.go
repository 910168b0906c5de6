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

package txbuilder

import (
	"errors"
	"fmt"

	"github.com/medifund/medifund/chain"
	"github.com/medifund/medifund/query"
)

var (
	ErrNoCollateral      = errors.New("no collateral available in wallet")
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrCampaignNotFound is shared with the query layer
	ErrCampaignNotFound = query.ErrCampaignNotFound
	ErrCampaignExists   = errors.New("campaign id already in use")
	ErrFeeNotConverged  = errors.New("fee calculation did not converge")
)

// MissingAssetError reports that the wallet does not hold a required asset
type MissingAssetError struct {
	Asset chain.AssetID
	// Purpose describes why the asset is required
	Purpose string
}

func (e MissingAssetError) Error() string {
	if e.Purpose != "" {
		return fmt.Sprintf(
			"required asset %s (%s) not found in wallet",
			e.Asset.String(),
			e.Purpose,
		)
	}
	return fmt.Sprintf("required asset %s not found in wallet", e.Asset.String())
}

// IneligibleError reports that an action is not allowed for the current
// campaign state
type IneligibleError struct {
	Action     string
	CampaignId uint64
	Reason     string
}

func (e IneligibleError) Error() string {
	return fmt.Sprintf(
		"%s not allowed for campaign %d: %s",
		e.Action,
		e.CampaignId,
		e.Reason,
	)
}
