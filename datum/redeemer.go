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
	"errors"
	"fmt"
	"strings"

	lcommon "github.com/blinklabs-io/gouroboros/ledger/common"
	"github.com/blinklabs-io/plutigo/data"
)

var ErrUnknownAction = errors.New("unknown campaign action")

// Action identifies a campaign spending action by its redeemer ordinal
type Action uint

const (
	ActionCreateCampaign Action = iota
	ActionContributeFunds
	ActionClaimMilestoneFunds
	ActionRefundContributor
	ActionPauseCampaign
	ActionResumeCampaign
	ActionCancelCampaign
	ActionCompleteCampaign
)

var actionNames = map[Action]string{
	ActionCreateCampaign:      "CreateCampaign",
	ActionContributeFunds:     "ContributeFunds",
	ActionClaimMilestoneFunds: "ClaimMilestoneFunds",
	ActionRefundContributor:   "RefundContributor",
	ActionPauseCampaign:       "PauseCampaign",
	ActionResumeCampaign:      "ResumeCampaign",
	ActionCancelCampaign:      "CancelCampaign",
	ActionCompleteCampaign:    "CompleteCampaign",
}

func (a Action) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return fmt.Sprintf("Action(%d)", uint(a))
}

// Redeemer is a campaign spending redeemer. The set of implementations is
// closed.
type Redeemer interface {
	Action() Action
	args() []data.PlutusData
	isRedeemer()
}

type CreateCampaign struct{}

type ContributeFunds struct {
	Amount      uint64
	Contributor lcommon.Blake2b224
}

type ClaimMilestoneFunds struct {
	Percentage uint64
}

type RefundContributor struct {
	Contributor lcommon.Blake2b224
	Amount      uint64
}

type PauseCampaign struct{}

type ResumeCampaign struct{}

type CancelCampaign struct{}

type CompleteCampaign struct{}

func (CreateCampaign) Action() Action      { return ActionCreateCampaign }
func (ContributeFunds) Action() Action     { return ActionContributeFunds }
func (ClaimMilestoneFunds) Action() Action { return ActionClaimMilestoneFunds }
func (RefundContributor) Action() Action   { return ActionRefundContributor }
func (PauseCampaign) Action() Action       { return ActionPauseCampaign }
func (ResumeCampaign) Action() Action      { return ActionResumeCampaign }
func (CancelCampaign) Action() Action      { return ActionCancelCampaign }
func (CompleteCampaign) Action() Action    { return ActionCompleteCampaign }

func (CreateCampaign) args() []data.PlutusData { return nil }

func (r ContributeFunds) args() []data.PlutusData {
	return []data.PlutusData{uintData(r.Amount), r.Contributor.ToPlutusData()}
}

func (r ClaimMilestoneFunds) args() []data.PlutusData {
	return []data.PlutusData{uintData(r.Percentage)}
}

func (r RefundContributor) args() []data.PlutusData {
	return []data.PlutusData{r.Contributor.ToPlutusData(), uintData(r.Amount)}
}

func (PauseCampaign) args() []data.PlutusData    { return nil }
func (ResumeCampaign) args() []data.PlutusData   { return nil }
func (CancelCampaign) args() []data.PlutusData   { return nil }
func (CompleteCampaign) args() []data.PlutusData { return nil }

func (CreateCampaign) isRedeemer()      {}
func (ContributeFunds) isRedeemer()     {}
func (ClaimMilestoneFunds) isRedeemer() {}
func (RefundContributor) isRedeemer()   {}
func (PauseCampaign) isRedeemer()       {}
func (ResumeCampaign) isRedeemer()      {}
func (CancelCampaign) isRedeemer()      {}
func (CompleteCampaign) isRedeemer()    {}

// EncodeRedeemer produces Constr(ordinal, [campaignId, args...])
func EncodeRedeemer(campaignId uint64, r Redeemer) data.PlutusData {
	fields := append([]data.PlutusData{uintData(campaignId)}, r.args()...)
	return data.NewConstr(uint(r.Action()), fields...)
}

// DecodeRedeemer is the inverse of EncodeRedeemer
func DecodeRedeemer(pd data.PlutusData) (uint64, Redeemer, error) {
	constr, ok := pd.(*data.Constr)
	if !ok {
		return 0, nil, fmt.Errorf("redeemer: expected constructor, got %T", pd)
	}
	if len(constr.Fields) == 0 {
		return 0, nil, errors.New("redeemer: missing campaign id")
	}
	campaignId, err := asUint(constr.Fields[0])
	if err != nil {
		return 0, nil, fmt.Errorf("redeemer campaign id: %w", err)
	}
	args := constr.Fields[1:]
	expectArgs := func(n int) error {
		if len(args) != n {
			return fmt.Errorf(
				"redeemer %s: expected %d arguments, got %d",
				Action(constr.Tag),
				n,
				len(args),
			)
		}
		return nil
	}
	var ret Redeemer
	switch Action(constr.Tag) {
	case ActionCreateCampaign:
		ret = CreateCampaign{}
	case ActionContributeFunds:
		if err := expectArgs(2); err != nil {
			return 0, nil, err
		}
		amount, err := asUint(args[0])
		if err != nil {
			return 0, nil, err
		}
		contributor, err := asHash(args[1])
		if err != nil {
			return 0, nil, err
		}
		return campaignId, ContributeFunds{Amount: amount, Contributor: contributor}, nil
	case ActionClaimMilestoneFunds:
		if err := expectArgs(1); err != nil {
			return 0, nil, err
		}
		pct, err := asUint(args[0])
		if err != nil {
			return 0, nil, err
		}
		return campaignId, ClaimMilestoneFunds{Percentage: pct}, nil
	case ActionRefundContributor:
		if err := expectArgs(2); err != nil {
			return 0, nil, err
		}
		contributor, err := asHash(args[0])
		if err != nil {
			return 0, nil, err
		}
		amount, err := asUint(args[1])
		if err != nil {
			return 0, nil, err
		}
		return campaignId, RefundContributor{Contributor: contributor, Amount: amount}, nil
	case ActionPauseCampaign:
		ret = PauseCampaign{}
	case ActionResumeCampaign:
		ret = ResumeCampaign{}
	case ActionCancelCampaign:
		ret = CancelCampaign{}
	case ActionCompleteCampaign:
		ret = CompleteCampaign{}
	default:
		return 0, nil, fmt.Errorf("%w: constructor %d", ErrUnknownAction, constr.Tag)
	}
	if err := expectArgs(0); err != nil {
		return 0, nil, err
	}
	return campaignId, ret, nil
}

// ActionArgs carries the arguments used by ParseAction
type ActionArgs struct {
	Amount      uint64
	Contributor lcommon.Blake2b224
	Percentage  uint64
}

// ParseAction maps an action name to its redeemer. Names are matched
// case-insensitively, with or without the "Campaign"/"Funds" suffixes
// (for example "donate", "contribute_funds" and "ContributeFunds").
func ParseAction(name string, args ActionArgs) (Redeemer, error) {
	key := strings.ToLower(strings.NewReplacer("_", "", "-", "", " ", "").Replace(name))
	switch key {
	case "createcampaign", "create":
		return CreateCampaign{}, nil
	case "contributefunds", "contribute", "donate":
		return ContributeFunds{Amount: args.Amount, Contributor: args.Contributor}, nil
	case "claimmilestonefunds", "claimmilestone", "claim":
		return ClaimMilestoneFunds{Percentage: args.Percentage}, nil
	case "refundcontributor", "refund":
		return RefundContributor{Contributor: args.Contributor, Amount: args.Amount}, nil
	case "pausecampaign", "pause":
		return PauseCampaign{}, nil
	case "resumecampaign", "resume":
		return ResumeCampaign{}, nil
	case "cancelcampaign", "cancel":
		return CancelCampaign{}, nil
	case "completecampaign", "complete":
		return CompleteCampaign{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownAction, name)
}

// MintRedeemer is the redeemer for the authorization token policies
type MintRedeemer uint

const (
	MintToken MintRedeemer = iota
	BurnToken
)

func (m MintRedeemer) ToPlutusData() data.PlutusData {
	return data.NewConstr(uint(m))
}

func (m MintRedeemer) String() string {
	if m == BurnToken {
		return "BurnToken"
	}
	return "MintToken"
}

func asHash(pd data.PlutusData) (lcommon.Blake2b224, error) {
	b, err := asBytes(pd)
	if err != nil {
		return lcommon.Blake2b224{}, err
	}
	if len(b) != lcommon.Blake2b224Size {
		return lcommon.Blake2b224{}, fmt.Errorf(
			"expected %d byte hash, got %d",
			lcommon.Blake2b224Size,
			len(b),
		)
	}
	return lcommon.NewBlake2b224(b), nil
}
